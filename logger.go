package recipestore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// OperationLogger is the operator-visible channel for controller network operations.
type OperationLogger interface {
	LogOperation(entry OperationLog) error
}

// OperationLog records the outcome of one network operation.
type OperationLog struct {
	Operation  string        `json:"operation"`
	Timestamp  time.Time     `json:"timestamp"`
	Duration   time.Duration `json:"duration_ns"`
	Sequence   uint64        `json:"sequence,omitempty"`
	RecipeID   string        `json:"recipe_id,omitempty"`
	Records    int           `json:"records,omitempty"`
	Stale      bool          `json:"stale,omitempty"`
	Error      string        `json:"error,omitempty"`
	ErrorKind  string        `json:"error_kind,omitempty"`
	StatusCode int           `json:"status_code,omitempty"`
}

// Failed reports whether the operation ended in an error.
func (l OperationLog) Failed() bool {
	return l.Error != ""
}

// NewOperationLog builds an entry for op, filling the error fields from err.
func NewOperationLog(op string, started time.Time, err error) OperationLog {
	entry := OperationLog{
		Operation: op,
		Timestamp: started,
		Duration:  time.Since(started),
	}
	if err != nil {
		entry.Error = err.Error()
		entry.ErrorKind = ErrorKind(err)
		var remoteErr *RemoteError
		if errors.As(err, &remoteErr) {
			entry.StatusCode = remoteErr.StatusCode
		}
	}
	return entry
}

// FileOperationLogger accumulates entries and writes them as one document on Flush.
type FileOperationLogger struct {
	mu      sync.Mutex
	entries []OperationLog
	writer  io.Writer
}

func NewFileOperationLogger(writer io.Writer) *FileOperationLogger {
	return &FileOperationLogger{
		entries: make([]OperationLog, 0),
		writer:  writer,
	}
}

// LogOperation buffers the entry; nothing is written until Flush.
func (fl *FileOperationLogger) LogOperation(entry OperationLog) error {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	fl.entries = append(fl.entries, entry)
	return nil
}

// Flush writes all buffered entries to the writer and clears the buffer.
func (fl *FileOperationLogger) Flush() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	if fl.writer == nil {
		return nil
	}

	data, err := json.MarshalIndent(map[string]any{
		"sync_session": map[string]any{
			"timestamp":  time.Now(),
			"operations": fl.entries,
		},
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal operation log: %w", err)
	}

	if _, err := fl.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write operation log: %w", err)
	}

	fl.entries = fl.entries[:0]
	return nil
}

type NoOpOperationLogger struct{}

func NewNoOpOperationLogger() *NoOpOperationLogger {
	return &NoOpOperationLogger{}
}

func (nop *NoOpOperationLogger) LogOperation(entry OperationLog) error {
	return nil
}

// StdoutOperationLogger writes each entry as a JSON line.
type StdoutOperationLogger struct {
	out io.Writer
}

func NewStdoutOperationLogger() *StdoutOperationLogger {
	return &StdoutOperationLogger{out: os.Stdout}
}

func (l *StdoutOperationLogger) LogOperation(entry OperationLog) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(l.out, string(data))
	return err
}

// MultiOperationLogger fans an entry out to every logger and joins their errors.
type MultiOperationLogger []OperationLogger

func (m MultiOperationLogger) LogOperation(entry OperationLog) error {
	var errs []error
	for _, l := range m {
		errs = append(errs, l.LogOperation(entry))
	}
	return errors.Join(errs...)
}
