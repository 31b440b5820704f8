package postlog_test

import (
	"bufio"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"stagehand/internal/config"
	"stagehand/internal/core"
	"stagehand/internal/postlog"
)

func newFileLog(t *testing.T, path string) *postlog.FileLog {
	t.Helper()

	l := &postlog.FileLog{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Config: &config.Config{PostLogFile: path},
	}
	require.NoError(t, l.Init(t.Context()))
	t.Cleanup(func() { _ = l.Shutdown(t.Context()) })
	return l
}

func TestFileLogAppends(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "posted_log.jsonl")
	l := newFileLog(t, path)

	ts := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, l.Append(t.Context(), core.PostedEntry{Timestamp: ts, Type: "thread", Account: "alice", ThreadID: "t1", PostID: "p1"}))
	require.NoError(t, l.Append(t.Context(), core.PostedEntry{Timestamp: ts, Type: "comment", Account: "bob", ThreadID: "t1", PostID: "p2", ParentID: "p1"}))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	scanner := bufio.NewScanner(f)
	require.True(t, scanner.Scan())

	var entry core.PostedEntry
	require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
	require.Equal(t, "thread", entry.Type)
	require.Equal(t, "alice", entry.Account)

	count, err := l.Count()
	require.NoError(t, err)
	require.Equal(t, 2, count)
}

func TestFileLogAppendsAcrossRuns(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "posted_log.jsonl")

	first := newFileLog(t, path)
	require.NoError(t, first.Append(t.Context(), core.PostedEntry{Type: "thread"}))
	require.NoError(t, first.Shutdown(t.Context()))

	second := newFileLog(t, path)
	require.NoError(t, second.Append(t.Context(), core.PostedEntry{Type: "comment"}))

	count, err := postlog.CountFile(path)
	require.NoError(t, err)
	require.Equal(t, 2, count)
}

func TestCountFileMissing(t *testing.T) {
	t.Parallel()

	count, err := postlog.CountFile(filepath.Join(t.TempDir(), "nope.jsonl"))
	require.NoError(t, err)
	require.Zero(t, count)
}
