package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// fileStore appends one JSON record per line. It exists so the watcher can
// keep a history without pulling in a database; reads rescan the file,
// which is fine at notification volumes.
type fileStore struct {
	mu   sync.Mutex
	path string
	log  zerolog.Logger
}

func openFile(cfg Config, log zerolog.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("file storage path is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, err
	}
	return &fileStore{path: cfg.Path, log: log}, nil
}

func (s *fileStore) Close() error { return nil }

func (s *fileStore) AppendNotification(_ context.Context, r Record) error {
	if r.At.IsZero() {
		r.At = time.Now()
	}
	b, err := json.Marshal(r)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	_, err = f.Write(append(b, '\n'))
	return err
}

func (s *fileStore) Recent(_ context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	all, err := s.readAll()
	if err != nil {
		return nil, err
	}
	// Newest first, like the sqlite driver.
	var out []Record
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

func (s *fileStore) Prune(_ context.Context, olderThan time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.readAllLocked()
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	kept := all[:0]
	var removed int64
	for _, r := range all {
		if r.At.Before(olderThan) {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	if removed == 0 {
		return 0, nil
	}

	// Rewrite via temp file + rename so a crash never loses the whole log.
	tmp := s.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, err
	}
	w := bufio.NewWriter(f)
	for _, r := range kept {
		b, err := json.Marshal(r)
		if err != nil {
			_ = f.Close()
			return 0, err
		}
		if _, err := w.Write(append(b, '\n')); err != nil {
			_ = f.Close()
			return 0, err
		}
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return 0, err
	}
	if err := f.Close(); err != nil {
		return 0, err
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return 0, err
	}
	return removed, nil
}

func (s *fileStore) readAll() ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all, err := s.readAllLocked()
	if err != nil && os.IsNotExist(err) {
		return nil, nil
	}
	return all, err
}

func (s *fileStore) readAllLocked() ([]Record, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var out []Record
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var r Record
		if err := json.Unmarshal([]byte(line), &r); err != nil {
			// A torn write at the tail shouldn't poison the whole history.
			s.log.Warn().Err(err).Msg("storage: skipping corrupt history line")
			continue
		}
		out = append(out, r)
	}
	return out, sc.Err()
}
