package alelog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTruncatesExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "log")
	require.NoError(t, os.WriteFile(path, []byte("stale content\n"), 0o600))

	q, err := New(path)
	require.NoError(t, err)
	require.NotNil(t, q)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestLogThenFlushWritesFormattedLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "log")
	q, err := New(path)
	require.NoError(t, err)

	q.Log("station started")
	q.Log("scanning 40A")
	require.NoError(t, q.Flush())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "station started")
	assert.Contains(t, string(data), "scanning 40A")
}

func TestFlushWithNothingPendingIsNoOp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "log")
	q, err := New(path)
	require.NoError(t, err)

	require.NoError(t, q.Flush())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestFlushClearsQueue(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "log")
	q, err := New(path)
	require.NoError(t, err)

	q.Log("first")
	require.NoError(t, q.Flush())
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	require.NoError(t, q.Flush())
	second, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
