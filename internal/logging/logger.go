// Package logging provides leveled logging and decision tracing for
// supplyshock. There are two outputs:
//   - a leveled slog.Logger on stderr for operational messages
//   - a DecisionLogger writing one JSON object per session decision
//     (<dir>/decisions.jsonl) when running at debug or trace level
package logging

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// LevelTrace sits below Debug. At this level prompts and raw reasoning
// responses are logged in full.
const LevelTrace = slog.LevelDebug - 4

// DecisionsFile is the file name used inside the decision log directory.
const DecisionsFile = "decisions.jsonl"

// ParseLevel maps a level name to a slog.Level. Accepted names are
// error, warn, info, debug and trace, in any case. Anything else is info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error":
		return slog.LevelError
	case "warn", "warning":
		return slog.LevelWarn
	case "debug":
		return slog.LevelDebug
	case "trace":
		return LevelTrace
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a leveled text logger writing to w.
func NewLogger(level string, w io.Writer) *slog.Logger {
	lvl := ParseLevel(level)
	opts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if l, ok := a.Value.Any().(slog.Level); ok && l == LevelTrace {
					a.Value = slog.StringValue("TRACE")
				}
			}
			return a
		},
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Discard returns a logger that drops everything. Components use it when
// the caller passes no logger.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// OrDiscard returns l, or Discard() when l is nil.
func OrDiscard(l *slog.Logger) *slog.Logger {
	if l == nil {
		return Discard()
	}
	return l
}

// Decision kinds written by the session.
const (
	DecisionEventApplied           = "event_applied"
	DecisionRecommendationsApplied = "recommendations_applied"
	DecisionReset                  = "reset"
	DecisionAnalysisRetry          = "analysis_retry"
	DecisionAnalysisFailed         = "analysis_failed"
)

// DecisionLogger writes session decisions as JSON lines. It is safe for
// concurrent use, and a nil *DecisionLogger is a valid no-op logger.
type DecisionLogger struct {
	mu sync.Mutex
	w  io.WriteCloser
}

// NewDecisionLogger opens dir/decisions.jsonl for append when level is
// debug or trace. At any other level, or when the file cannot be opened,
// it returns nil.
func NewDecisionLogger(dir string, level string) *DecisionLogger {
	if ParseLevel(level) > slog.LevelDebug {
		return nil
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil
	}

	f, err := os.OpenFile(filepath.Join(dir, DecisionsFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil
	}
	return &DecisionLogger{w: f}
}

// NewDecisionWriter wraps an arbitrary writer. Close closes it.
func NewDecisionWriter(w io.WriteCloser) *DecisionLogger {
	return &DecisionLogger{w: w}
}

// Log writes one decision line with the given kind. "decision" and "time"
// are added to a copy of fields; the caller's map is left alone.
func (dl *DecisionLogger) Log(kind string, fields map[string]any) {
	if dl == nil {
		return
	}

	entry := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		entry[k] = v
	}
	entry["decision"] = kind
	entry["time"] = time.Now().UTC().Format(time.RFC3339Nano)

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	data = append(data, '\n')

	dl.mu.Lock()
	defer dl.mu.Unlock()
	if dl.w == nil {
		return
	}
	_, _ = dl.w.Write(data)
}

// Close closes the underlying writer. Later calls to Log are no-ops.
func (dl *DecisionLogger) Close() {
	if dl == nil {
		return
	}

	dl.mu.Lock()
	defer dl.mu.Unlock()
	if dl.w != nil {
		dl.w.Close()
		dl.w = nil
	}
}
