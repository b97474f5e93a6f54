package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "uploads"), "/uploads/", time.Minute, zap.NewNop().Sugar())
	require.NoError(t, err)
	return s
}

func TestSave(t *testing.T) {
	s := newStore(t)

	url, err := s.Save("Scan.PNG", []byte("png"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "/uploads/"))
	assert.True(t, strings.HasSuffix(url, ".png"))

	data, err := os.ReadFile(filepath.Join(s.Dir(), strings.TrimPrefix(url, "/uploads/")))
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))
}

func TestSweep(t *testing.T) {
	s := newStore(t)

	oldURL, err := s.Save("old.jpg", []byte("a"))
	require.NoError(t, err)
	newURL, err := s.Save("new.jpg", []byte("b"))
	require.NoError(t, err)

	oldPath := filepath.Join(s.Dir(), filepath.Base(oldURL))
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(oldPath, past, past))

	n, err := s.Sweep()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.NoFileExists(t, oldPath)
	assert.FileExists(t, filepath.Join(s.Dir(), filepath.Base(newURL)))
}

func TestStartSweeperRejectsBadSchedule(t *testing.T) {
	s := newStore(t)

	_, err := s.StartSweeper("every now and then")
	assert.Error(t, err)

	c, err := s.StartSweeper("@every 1m")
	require.NoError(t, err)
	c.Stop()
}
