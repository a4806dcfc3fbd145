package mcp

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// AuditFile is the audit log's name inside its directory.
const AuditFile = "mcp-audit.jsonl"

// AuditEntry records one MCP tool invocation. Params carry metadata only,
// never snapshots or mutation bodies.
type AuditEntry struct {
	Timestamp  time.Time         `json:"timestamp"`
	Tool       string            `json:"tool"`
	SessionID  string            `json:"session_id,omitempty"`
	DurationMs int64             `json:"duration_ms"`
	Status     string            `json:"status"` // "success" or "error"
	Error      string            `json:"error,omitempty"`
	Params     map[string]string `json:"params,omitempty"`
}

// AuditLogger appends entries to a JSONL file. It is safe for concurrent
// use, and a nil *AuditLogger is a no-op.
type AuditLogger struct {
	mu   sync.Mutex
	file *os.File
}

// NewAuditLogger opens dir/mcp-audit.jsonl for append. When the file
// cannot be opened a warning goes to stderr and nil is returned.
func NewAuditLogger(dir string) *AuditLogger {
	if err := os.MkdirAll(dir, 0700); err != nil {
		fmt.Fprintf(os.Stderr, "warning: cannot create audit log directory %s: %v\n", dir, err)
		return nil
	}

	path := filepath.Join(dir, AuditFile)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: cannot open audit log %s: %v\n", path, err)
		return nil
	}
	return &AuditLogger{file: f}
}

// Log appends entry as one line.
func (a *AuditLogger) Log(entry AuditEntry) {
	if a == nil {
		return
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	data = append(data, '\n')

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.file == nil {
		return
	}
	_, _ = a.file.Write(data)
}

// Close closes the file. Later calls to Log are no-ops.
func (a *AuditLogger) Close() error {
	if a == nil {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.file == nil {
		return nil
	}
	err := a.file.Close()
	a.file = nil
	return err
}

// auditParams keeps the loggable part of a tool's arguments. Values of
// safe keys are logged; large or free-form arguments are reduced to a
// presence marker or a count.
func auditParams(params map[string]any) map[string]string {
	if params == nil {
		return nil
	}

	safeValue := map[string]bool{"seed": true}
	presenceOnly := map[string]bool{"snapshot": true}

	out := make(map[string]string, len(params)+1)
	for k, v := range params {
		switch {
		case safeValue[k]:
			out[k] = fmt.Sprintf("%v", v)
		case presenceOnly[k]:
			out[k] = "(set)"
		case k == "mutations":
			out[k] = fmt.Sprintf("%d", v)
		}
	}
	out["_param_count"] = fmt.Sprintf("%d", len(params))
	return out
}

// auditTool records a finished tool call.
func (s *Server) auditTool(tool string, start time.Time, err error, params map[string]string) {
	status, msg := "success", ""
	if err != nil {
		status, msg = "error", err.Error()
	}

	s.audit.Log(AuditEntry{
		Timestamp:  start,
		Tool:       tool,
		SessionID:  s.sess.ID(),
		DurationMs: time.Since(start).Milliseconds(),
		Status:     status,
		Error:      msg,
		Params:     params,
	})
}
