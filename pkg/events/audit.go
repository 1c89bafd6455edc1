package events

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

const auditFileMode = 0600

// AuditLog is an Emitter that appends each event to a file as one JSON
// line. Entries are numbered so gaps show up after a crash or a failed
// write.
type AuditLog struct {
	mu       sync.Mutex
	path     string
	file     *os.File
	enc      *json.Encoder
	seq      uint64
	failures uint64
	lastErr  error
	now      func() time.Time
}

// AuditEntry is one line of the audit file
type AuditEntry struct {
	Seq        uint64            `json:"seq"`
	Timestamp  time.Time         `json:"timestamp"`
	EventType  string            `json:"event_type"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// NewAuditLog opens path for appending, creating it with mode 0600. An
// empty path gives a disabled log that drops everything.
func NewAuditLog(path string) (*AuditLog, error) {
	al := &AuditLog{path: path, now: time.Now}
	if path == "" {
		return al, nil
	}
	if err := al.open(); err != nil {
		return nil, err
	}
	return al, nil
}

func (al *AuditLog) open() error {
	file, err := os.OpenFile(al.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, auditFileMode)
	if err != nil {
		return fmt.Errorf("events: open audit log: %w", err)
	}
	al.file = file
	al.enc = json.NewEncoder(file)
	return nil
}

// Emit writes ev. Write failures are counted and reported by Stats.
func (al *AuditLog) Emit(ev Event) {
	if ev == nil {
		return
	}

	al.mu.Lock()
	defer al.mu.Unlock()
	if al.file == nil {
		return
	}

	al.seq++
	entry := AuditEntry{
		Seq:       al.seq,
		Timestamp: al.now().UTC(),
		EventType: ev.EventType(),
	}
	if attributed, ok := ev.(Attributed); ok {
		entry.Attributes = attributed.Attributes()
	}
	if err := al.enc.Encode(&entry); err != nil {
		al.failures++
		al.lastErr = err
	}
}

// Close closes the file. Later events are dropped.
func (al *AuditLog) Close() error {
	al.mu.Lock()
	defer al.mu.Unlock()
	if al.file == nil {
		return nil
	}
	err := al.file.Close()
	al.file = nil
	return err
}

// Rotate renames the current file with a timestamp suffix, opens a fresh
// one and returns the archived path. Sequence numbers carry on across
// files. Rotating a disabled log does nothing.
func (al *AuditLog) Rotate() (string, error) {
	al.mu.Lock()
	defer al.mu.Unlock()
	if al.path == "" {
		return "", nil
	}

	if al.file != nil {
		if err := al.file.Close(); err != nil {
			return "", fmt.Errorf("events: close audit log: %w", err)
		}
		al.file = nil
	}

	archived := al.path + "." + al.now().UTC().Format("20060102-150405")
	if err := os.Rename(al.path, archived); err != nil {
		return "", fmt.Errorf("events: rotate audit log: %w", err)
	}
	if err := al.open(); err != nil {
		return "", err
	}
	return archived, nil
}

// AuditStats describes the audit file
type AuditStats struct {
	Enabled   bool
	FilePath  string
	FileSize  int64
	Entries   uint64
	Failures  uint64
	LastError error
}

// Stats reports the file size and how many entries were written or lost
func (al *AuditLog) Stats() (*AuditStats, error) {
	al.mu.Lock()
	stats := &AuditStats{
		Enabled:   al.path != "",
		FilePath:  al.path,
		Entries:   al.seq - al.failures,
		Failures:  al.failures,
		LastError: al.lastErr,
	}
	al.mu.Unlock()

	if !stats.Enabled {
		return stats, nil
	}
	info, err := os.Stat(stats.FilePath)
	if err != nil {
		return nil, err
	}
	stats.FileSize = info.Size()
	return stats, nil
}
