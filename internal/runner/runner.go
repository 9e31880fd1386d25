package runner

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/juju/clock"
	"github.com/juju/retry"

	"eventhub/internal/pipeline"
	"eventhub/pkg/utils"
)

// ErrQueueFull is returned by Submit when the job queue has no room.
var ErrQueueFull = errors.New("runner: job queue full")

// Job is one unit of work: a single-slug run or a batch run.
type Job struct {
	ID    string   `json:"id"`
	Slugs []string `json:"slugs"`
	Limit int      `json:"limit,omitempty"`
}

// Runner schedules orchestrator runs on a pool of workers. Jobs run to
// completion independently and concurrently; within one job, the pipeline
// stages stay strictly sequential. Transient failures are retried with
// doubling, jittered backoff up to a fixed attempt ceiling; anything else
// fails the job immediately.
type Runner struct {
	orch *pipeline.Orchestrator
	cfg  utils.RunnerConfig
	clk  clock.Clock

	jobs chan Job
	quit chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

func New(orch *pipeline.Orchestrator, cfg utils.RunnerConfig, clk clock.Clock) *Runner {
	if clk == nil {
		clk = clock.WallClock
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = 3
	}
	return &Runner{
		orch: orch,
		cfg:  cfg,
		clk:  clk,
		jobs: make(chan Job, cfg.QueueSize),
		quit: make(chan struct{}),
	}
}

// Start launches the worker pool.
func (r *Runner) Start() {
	for i := 0; i < r.cfg.Workers; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}
	log.Printf("[runner] %d workers started", r.cfg.Workers)
}

// Stop shuts the pool down and waits for in-flight jobs to finish. Jobs still
// queued are discarded; the queue is in-process, so there is nowhere durable
// to park them, but the loss is logged.
func (r *Runner) Stop() {
	r.once.Do(func() { close(r.quit) })
	r.wg.Wait()

	dropped := 0
	for {
		select {
		case job := <-r.jobs:
			dropped++
			log.Printf("[runner] discarding queued job %s slugs=%v", job.ID, job.Slugs)
		default:
			if dropped > 0 {
				log.Printf("[runner] %d queued jobs discarded at shutdown", dropped)
			}
			return
		}
	}
}

// Submit enqueues a job and returns its ID without waiting for execution.
func (r *Runner) Submit(slugs []string, limit int) (string, error) {
	job := Job{ID: uuid.NewString(), Slugs: slugs, Limit: limit}
	select {
	case r.jobs <- job:
		return job.ID, nil
	default:
		return "", ErrQueueFull
	}
}

// HasSource reports whether slug names a registered source.
func (r *Runner) HasSource(slug string) bool {
	_, ok := r.orch.Sources[slug]
	return ok
}

// Slugs returns all registered source slugs.
func (r *Runner) Slugs() []string {
	return r.orch.Slugs()
}

func (r *Runner) worker(n int) {
	defer r.wg.Done()
	for {
		select {
		case <-r.quit:
			return
		case job := <-r.jobs:
			log.Printf("[runner] worker %d: job %s slugs=%v", n, job.ID, job.Slugs)
			if err := r.execute(job); err != nil {
				if retry.IsAttemptsExceeded(err) {
					err = retry.LastError(err)
				}
				log.Printf("[runner] job %s failed permanently: %v", job.ID, err)
			}
		}
	}
}

func (r *Runner) execute(job Job) error {
	return retry.Call(retry.CallArgs{
		Func: func() error { return r.runOnce(job) },
		IsFatalError: func(err error) bool {
			return !pipeline.IsRetryable(err)
		},
		NotifyFunc: func(lastErr error, attempt int) {
			log.Printf("[runner] job %s attempt %d failed: %v", job.ID, attempt, lastErr)
		},
		Attempts:    r.cfg.Attempts,
		Delay:       r.cfg.RetryDelay,
		MaxDelay:    16 * r.cfg.RetryDelay,
		BackoffFunc: retry.ExpBackoff(r.cfg.RetryDelay, 16*r.cfg.RetryDelay, 2.0, true),
		Clock:       r.clk,
		Stop:        r.quit,
	})
}

// runOnce executes one attempt under the job's hard wall-clock limit.
func (r *Runner) runOnce(job Job) error {
	ctx := context.Background()
	if r.cfg.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.JobTimeout)
		defer cancel()
	}

	if len(job.Slugs) == 1 {
		_, err := r.orch.RunSlug(ctx, job.Slugs[0], job.Limit)
		return err
	}
	_, err := r.orch.RunBatch(ctx, job.Slugs, job.Limit)
	return err
}
