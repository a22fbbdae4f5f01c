package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Action names the operation an entry records.
type Action string

const (
	ActionWrapKey      Action = "wrap_key"
	ActionUnwrapKey    Action = "unwrap_key"
	ActionUnlockFolder Action = "unlock_folder"
	ActionVerifyToken  Action = "verify_token"
)

// Source describes who attempted an operation and from where.
// Every field is optional.
type Source struct {
	// Actor is the verified user id, empty when anonymous.
	Actor      string
	RemoteAddr string
	UserAgent  string
	// Resource is the file or folder the attempt targeted.
	Resource string
}

// Entry is an immutable audit record.
type Entry struct {
	ID        uuid.UUID `json:"id"`
	Actor     string    `json:"actor,omitempty"`
	Action    Action    `json:"action"`
	Success   bool      `json:"success"`
	Source    Source    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}

// Recorder appends entries. Implementations never update or delete.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
}

// Discard drops every entry.
type Discard struct{}

// Record implements Recorder.
func (Discard) Record(context.Context, Entry) error { return nil }

// Trail writes entries synchronously and reports write failures to the logger
// without propagating them.
type Trail struct {
	recorder Recorder
	logger   logrus.FieldLogger
	now      func() time.Time
}

// NewTrail creates a Trail. A nil recorder discards entries, a nil logger uses a new
// logrus logger and a nil clock uses time.Now.
func NewTrail(recorder Recorder, logger logrus.FieldLogger, now func() time.Time) *Trail {
	if recorder == nil {
		recorder = Discard{}
	}

	if now == nil {
		now = time.Now
	}

	return &Trail{recorder: recorder, logger: LoggerOrDefault(logger), now: now}
}

// LoggerOrDefault returns logger, or a new logrus logger when logger is nil
// or holds a nil *logrus.Logger.
func LoggerOrDefault(logger logrus.FieldLogger) logrus.FieldLogger {
	if l, ok := logger.(*logrus.Logger); logger == nil || (ok && l == nil) {
		return logrus.New()
	}

	return logger
}

// Record writes one entry and returns it. The caller's outcome is never affected by a write failure.
func (t *Trail) Record(ctx context.Context, action Action, success bool, src Source) Entry {
	entry := Entry{
		ID:        uuid.New(),
		Actor:     src.Actor,
		Action:    action,
		Success:   success,
		Source:    src,
		Timestamp: t.now().UTC(),
	}

	if err := t.recorder.Record(ctx, entry); err != nil {
		t.logger.WithFields(logrus.Fields{
			"audit_id": entry.ID.String(),
			"action":   string(action),
			"success":  success,
			"resource": src.Resource,
		}).WithError(err).Error("writing audit entry")
	}

	return entry
}
