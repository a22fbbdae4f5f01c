package audit_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/idelchi/cloak/internal/audit"
)

type sliceRecorder struct {
	mu      sync.Mutex
	entries []audit.Entry
	err     error
}

func (r *sliceRecorder) Record(_ context.Context, e audit.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return r.err
	}

	r.entries = append(r.entries, e)

	return nil
}

func TestTrailRecord(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	rec := &sliceRecorder{}
	trail := audit.NewTrail(rec, nil, func() time.Time { return now })

	src := audit.Source{Actor: "user-1", RemoteAddr: "10.0.0.1", Resource: "file-9"}
	got := trail.Record(context.Background(), audit.ActionUnwrapKey, false, src)

	if len(rec.entries) != 1 {
		t.Fatalf("recorded %d entries, want 1", len(rec.entries))
	}

	entry := rec.entries[0]
	if entry != got {
		t.Errorf("returned entry %+v differs from recorded %+v", got, entry)
	}

	if entry.Actor != "user-1" || entry.Action != audit.ActionUnwrapKey || entry.Success {
		t.Errorf("unexpected entry %+v", entry)
	}

	if !entry.Timestamp.Equal(now) {
		t.Errorf("timestamp = %v, want %v", entry.Timestamp, now)
	}

	if entry.Source != src {
		t.Errorf("source = %+v, want %+v", entry.Source, src)
	}

	next := trail.Record(context.Background(), audit.ActionUnwrapKey, true, src)
	if next.ID == entry.ID {
		t.Error("entry ids are not unique")
	}
}

func TestTrailRecordFailureIsLogged(t *testing.T) {
	t.Parallel()

	logger, hook := test.NewNullLogger()
	trail := audit.NewTrail(&sliceRecorder{err: errors.New("disk full")}, logger, nil)

	entry := trail.Record(context.Background(), audit.ActionWrapKey, true, audit.Source{Resource: "file-1"})

	if entry.Action != audit.ActionWrapKey {
		t.Errorf("action = %q, want %q", entry.Action, audit.ActionWrapKey)
	}

	last := hook.LastEntry()
	if last == nil {
		t.Fatal("audit failure was not logged")
	}

	if last.Level != logrus.ErrorLevel {
		t.Errorf("level = %v, want error", last.Level)
	}

	if last.Data["resource"] != "file-1" {
		t.Errorf("resource field = %v, want file-1", last.Data["resource"])
	}
}

func TestNewTrailDefaults(t *testing.T) {
	t.Parallel()

	trail := audit.NewTrail(nil, nil, nil)

	entry := trail.Record(context.Background(), audit.ActionVerifyToken, true, audit.Source{})
	if entry.Timestamp.IsZero() {
		t.Error("default clock produced a zero timestamp")
	}
}
