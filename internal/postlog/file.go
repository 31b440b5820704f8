// Package postlog records every successful publish. The file appender is
// the default; a Postgres repository takes over when DATABASE_URL is set.
package postlog

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"sync"

	"stagehand/internal/config"
	"stagehand/internal/core"
)

// FileLog appends entries to a JSON-lines file, one object per publish.
type FileLog struct {
	Logger *slog.Logger
	Config *config.Config

	mu sync.Mutex
	f  *os.File
}

func (l *FileLog) Init(_ context.Context) error {
	l.Logger = l.Logger.With("component", "postlog.FileLog")

	f, err := os.OpenFile(l.Config.PostLogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	l.f = f
	return nil
}

func (l *FileLog) Shutdown(_ context.Context) error {
	return l.f.Close()
}

func (l *FileLog) Append(_ context.Context, entry core.PostedEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	_, err = l.f.Write(append(raw, '\n'))
	return err
}

// Count reads the number of logged publishes, for the status command.
func (l *FileLog) Count() (int, error) {
	return CountFile(l.Config.PostLogFile)
}

// CountFile counts entries in a JSONL post log. A missing file is zero.
func CountFile(path string) (int, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	count := 0
	for _, line := range bytes.Split(raw, []byte("\n")) {
		if len(bytes.TrimSpace(line)) > 0 {
			count++
		}
	}
	return count, nil
}
