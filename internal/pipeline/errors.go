package pipeline

import "errors"

// retryableError marks a failure as transient infrastructure trouble. The
// task runner keys its retry policy off this marker instead of guessing from
// arbitrary error values.
type retryableError struct {
	err error
}

func (e retryableError) Error() string { return e.err.Error() }
func (e retryableError) Unwrap() error { return e.err }

// Retryable wraps err as transient. Nil stays nil.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return retryableError{err: err}
}

// IsRetryable reports whether err was marked transient anywhere in its chain.
func IsRetryable(err error) bool {
	var re retryableError
	return errors.As(err, &re)
}
