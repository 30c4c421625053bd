package audit

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tg_concierge_bot/internal/domain"
)

func TestRecordInsertsAuditEntry(t *testing.T) {
	hookLogger, hook := logtest.NewNullLogger()
	fake := &fakeLogCollection{}
	recorder := NewRecorder(fake, logrus.NewEntry(hookLogger))

	err := recorder.Record(context.Background(), 42, "rsvp_approve", "user_id=7")
	if err != nil {
		t.Fatalf("Record returned error: %v", err)
	}

	if len(fake.inserted) != 1 {
		t.Fatalf("expected 1 inserted document, got %d", len(fake.inserted))
	}

	entry, ok := fake.inserted[0].(domain.AdminAction)
	if !ok {
		t.Fatalf("expected AdminAction document, got %T", fake.inserted[0])
	}
	if entry.AdminID != 42 {
		t.Fatalf("expected admin_id 42, got %d", entry.AdminID)
	}
	if entry.Action != "rsvp_approve" {
		t.Fatalf("expected action rsvp_approve, got %q", entry.Action)
	}
	if entry.Details != "user_id=7" {
		t.Fatalf("expected details user_id=7, got %q", entry.Details)
	}
	if entry.Timestamp.IsZero() {
		t.Fatalf("expected timestamp to be set")
	}

	logged := findLogEvent(hook.AllEntries(), "admin_action")
	if logged == nil {
		t.Fatalf("expected admin_action log entry")
	}
	if logged.Data["admin_id"] != int64(42) {
		t.Fatalf("expected logged admin_id 42, got %v", logged.Data["admin_id"])
	}
}

func TestRecordTrimsFields(t *testing.T) {
	hookLogger, _ := logtest.NewNullLogger()
	fake := &fakeLogCollection{}
	recorder := NewRecorder(fake, logrus.NewEntry(hookLogger))

	if err := recorder.Record(context.Background(), 42, "  broadcast  ", "  42 sent  "); err != nil {
		t.Fatalf("Record returned error: %v", err)
	}

	entry := fake.inserted[0].(domain.AdminAction)
	if entry.Action != "broadcast" || entry.Details != "42 sent" {
		t.Fatalf("expected trimmed fields, got %q / %q", entry.Action, entry.Details)
	}
}

func TestRecordValidatesAndPropagatesErrors(t *testing.T) {
	hookLogger, _ := logtest.NewNullLogger()
	tests := []struct {
		name      string
		recorder  *Recorder
		ctx       context.Context
		adminID   int64
		action    string
		expectErr string
	}{
		{
			name:      "nil recorder",
			recorder:  nil,
			ctx:       context.Background(),
			adminID:   1,
			action:    "x",
			expectErr: "audit recorder",
		},
		{
			name:      "nil collection",
			recorder:  NewRecorder(nil, logrus.NewEntry(hookLogger)),
			ctx:       context.Background(),
			adminID:   1,
			action:    "x",
			expectErr: "recorder is not initialized",
		},
		{
			name:      "nil context",
			recorder:  NewRecorder(&fakeLogCollection{}, logrus.NewEntry(hookLogger)),
			ctx:       nil,
			adminID:   1,
			action:    "x",
			expectErr: "context is required",
		},
		{
			name:      "zero admin id",
			recorder:  NewRecorder(&fakeLogCollection{}, logrus.NewEntry(hookLogger)),
			ctx:       context.Background(),
			adminID:   0,
			action:    "x",
			expectErr: "admin id is required",
		},
		{
			name:      "blank action",
			recorder:  NewRecorder(&fakeLogCollection{}, logrus.NewEntry(hookLogger)),
			ctx:       context.Background(),
			adminID:   1,
			action:    "   ",
			expectErr: "action is required",
		},
		{
			name: "insert error",
			recorder: NewRecorder(&fakeLogCollection{
				insertErr: errors.New("insert fail"),
			}, logrus.NewEntry(hookLogger)),
			ctx:       context.Background(),
			adminID:   1,
			action:    "x",
			expectErr: "insert fail",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			err := tt.recorder.Record(tt.ctx, tt.adminID, tt.action, "")
			if err == nil || !strings.Contains(err.Error(), tt.expectErr) {
				t.Fatalf("expected error containing %q, got %v", tt.expectErr, err)
			}
		})
	}
}

type fakeLogCollection struct {
	inserted  []interface{}
	insertErr error
}

func (f *fakeLogCollection) InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error) {
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	f.inserted = append(f.inserted, document)
	return &mongo.InsertOneResult{InsertedID: len(f.inserted)}, nil
}

func findLogEvent(entries []*logrus.Entry, event string) *logrus.Entry {
	for _, entry := range entries {
		if entry.Data["event"] == event {
			return entry
		}
	}
	return nil
}
