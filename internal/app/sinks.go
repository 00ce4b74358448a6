package app

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/attunehid/attune/internal/config"
	"github.com/attunehid/attune/internal/dispatch"
)

// actionLogEntry is one line of the rotating action log.
type actionLogEntry struct {
	Time   time.Time `json:"time"`
	Action string    `json:"action"`
	Source string    `json:"source"`
	Detail string    `json:"detail,omitempty"`
}

// actionLogSink appends one JSON line per executed action to a
// size-rotated file.
type actionLogSink struct {
	mu     sync.Mutex
	out    *lumberjack.Logger
	logger *slog.Logger
}

func newActionLogSink(cfg config.ActionLogConfig, logger *slog.Logger) *actionLogSink {
	return &actionLogSink{
		out: &lumberjack.Logger{
			Filename:   cfg.Path,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
		},
		logger: logger.With("component", "actionlog"),
	}
}

// RecordAction implements dispatch.Sink.
func (s *actionLogSink) RecordAction(r dispatch.Record) {
	line, err := json.Marshal(actionLogEntry{
		Time:   r.At,
		Action: r.Action,
		Source: r.Source.String(),
		Detail: r.Detail,
	})
	if err != nil {
		return
	}
	line = append(line, '\n')

	s.mu.Lock()
	_, err = s.out.Write(line)
	s.mu.Unlock()
	if err != nil {
		s.logger.Warn("action log write failed", "error", err)
	}
}

func (s *actionLogSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.out.Close()
}
