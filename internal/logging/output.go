package logging

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// RotateConfig controls the rotating log file
type RotateConfig struct {
	Dir        string
	FileName   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// NewRotatingFile opens a size-rotated log file under cfg.Dir
func NewRotatingFile(cfg RotateConfig) (io.WriteCloser, error) {
	if cfg.Dir == "" {
		cfg.Dir = "logs"
	}
	if cfg.FileName == "" {
		cfg.FileName = "console101farm.log"
	}
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	return &lumberjack.Logger{
		Filename:   filepath.Join(cfg.Dir, cfg.FileName),
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
		LocalTime:  true,
	}, nil
}

// HookWriter passes each complete line written to it to a callback,
// without the trailing newline.
type HookWriter struct {
	mu   sync.Mutex
	fn   func(line string)
	part []byte
}

// NewHookWriter creates a writer calling fn once per line
func NewHookWriter(fn func(line string)) *HookWriter {
	return &HookWriter{fn: fn}
}

func (h *HookWriter) Write(p []byte) (int, error) {
	h.mu.Lock()
	h.part = append(h.part, p...)
	var lines []string
	for {
		i := bytes.IndexByte(h.part, '\n')
		if i < 0 {
			break
		}
		lines = append(lines, string(h.part[:i]))
		h.part = h.part[i+1:]
	}
	h.mu.Unlock()

	for _, line := range lines {
		h.fn(line)
	}
	return len(p), nil
}
