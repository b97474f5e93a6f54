// Package storage keeps uploaded scans on disk long enough for the result
// page to show them.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type Store struct {
	dir    string
	prefix string
	ttl    time.Duration
	logger *zap.SugaredLogger
	now    func() time.Time
}

// New creates dir if needed. Files are exposed to clients under urlPrefix.
func New(dir, urlPrefix string, ttl time.Duration, logger *zap.SugaredLogger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &Store{
		dir:    dir,
		prefix: strings.TrimSuffix(urlPrefix, "/"),
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}, nil
}

func (s *Store) Dir() string {
	return s.dir
}

// Save writes data under a fresh uuid name keeping the original extension
// and returns the public URL.
func (s *Store) Save(originalName string, data []byte) (string, error) {
	name := uuid.New().String() + strings.ToLower(filepath.Ext(originalName))
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("failed to save upload: %w", err)
	}
	return s.prefix + "/" + name, nil
}

// Sweep removes files older than the retention period and returns how many
// were removed.
func (s *Store) Sweep() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to list uploads: %w", err)
	}

	cutoff := s.now().Add(-s.ttl)
	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil && !os.IsNotExist(err) {
			s.logger.Warnw("failed to remove upload", "file", e.Name(), "error", err)
			continue
		}
		removed++
	}
	return removed, nil
}

// StartSweeper runs Sweep on the cron schedule, e.g. "@every 1m". Stop the
// returned cron to end it.
func (s *Store) StartSweeper(schedule string) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		n, err := s.Sweep()
		if err != nil {
			s.logger.Errorw("upload sweep failed", "error", err)
			return
		}
		if n > 0 {
			s.logger.Infow("upload sweep", "removed", n)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	c.Start()
	return c, nil
}
