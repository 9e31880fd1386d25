package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ReportStore persists run reports as one JSON document per run, keyed
// "{slug}-{timestamp}.json". Reports are written once and never mutated.
type ReportStore struct {
	Dir string
}

func NewReportStore(dir string) *ReportStore {
	return &ReportStore{Dir: dir}
}

// Write stores one report and returns its path.
func (s *ReportStore) Write(key string, report any) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("ensure report dir: %w", err)
	}

	ts := time.Now().UTC().Format("20060102-150405")
	path := filepath.Join(s.Dir, fmt.Sprintf("%s-%s.json", key, ts))

	b, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal report %s: %w", key, err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return "", fmt.Errorf("write report %s: %w", path, err)
	}
	return path, nil
}

// List returns the stored report file names, newest first.
func (s *ReportStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read report dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	// Order by the timestamp suffix, not the whole name, so different slugs
	// interleave by recency instead of grouping.
	sort.Slice(names, func(i, j int) bool {
		si, sj := reportStamp(names[i]), reportStamp(names[j])
		if si != sj {
			return si > sj
		}
		return names[i] > names[j]
	})
	return names, nil
}

// reportStamp extracts the "20060102-150405" suffix of a report file name.
func reportStamp(name string) string {
	base := strings.TrimSuffix(name, ".json")
	if len(base) < 15 {
		return base
	}
	return base[len(base)-15:]
}

// Read returns one stored report by file name.
func (s *ReportStore) Read(name string) ([]byte, error) {
	if name != filepath.Base(name) || !strings.HasSuffix(name, ".json") {
		return nil, fmt.Errorf("invalid report name %q", name)
	}
	return os.ReadFile(filepath.Join(s.Dir, name))
}
