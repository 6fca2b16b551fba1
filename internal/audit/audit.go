// Package audit implements the append-only activity log. Entries record
// who did what, to which domain and with what outcome; they never contain
// secret material. A failed log write degrades the operation that caused
// it, it never rolls it back.
package audit

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sphereryder/passvault/internal/storage"
)

// DefaultLimit is the number of entries Read returns when no limit is given.
const DefaultLimit = 50

// ActorUnknown is recorded when there is no authenticated session.
const ActorUnknown = "unknown"

// ErrWriteFailed signals that the audit log itself could not be written.
// Callers surface it as a warning; the triggering operation stands.
var ErrWriteFailed = errors.New("audit log write failed")

// Outcomes
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Operation kinds
const (
	OpRegister = "register"
	OpLogin    = "login"
	OpLogout   = "logout"
	OpAdd      = "add"
	OpGet      = "get"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpList     = "list"
	OpRotate   = "change-master-password"
)

// Entry is one immutable audit log line. Session identifies the
// authenticated session behind the operation, empty when there is none.
type Entry struct {
	Time    time.Time
	Session string
	Actor   string
	Op      string
	Target  string
	Outcome string
	Detail  string
}

// Log appends and reads audit entries
type Log struct {
	storage *storage.Storage
	logger  *slog.Logger
}

// New creates an audit log over the given storage
func New(st *storage.Storage, logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{storage: st, logger: logger}
}

// Append writes one entry. It never fails the caller's operation: on a
// storage error it logs a warning and returns ErrWriteFailed so the
// caller can surface the degraded mode.
func (l *Log) Append(e Entry) error {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	if e.Actor == "" {
		e.Actor = ActorUnknown
	}

	rec := &storage.AuditRecord{
		Time:    e.Time,
		Session: e.Session,
		Actor:   e.Actor,
		Op:      e.Op,
		Target:  e.Target,
		Outcome: e.Outcome,
		Detail:  e.Detail,
	}

	if err := l.storage.AppendAudit(rec); err != nil {
		l.logger.Warn("audit write failed",
			"op", e.Op, "actor", e.Actor, "error", err)
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	return nil
}

// Read returns up to limit entries, most recent first. A limit of zero
// or less selects DefaultLimit.
func (l *Log) Read(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	records, err := l.storage.ReadAudit(limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read audit log: %w", err)
	}

	entries := make([]Entry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, Entry{
			Time:    rec.Time,
			Session: rec.Session,
			Actor:   rec.Actor,
			Op:      rec.Op,
			Target:  rec.Target,
			Outcome: rec.Outcome,
			Detail:  rec.Detail,
		})
	}
	return entries, nil
}
