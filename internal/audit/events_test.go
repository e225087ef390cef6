package audit_test

import (
	"context"
	"testing"

	"github.com/p-n-ai/mentora/internal/audit"
)

func TestMemoryEventLogger_LogEvent(t *testing.T) {
	logger := audit.NewMemoryEventLogger()

	err := logger.LogEvent(context.Background(), audit.Event{
		Actor: "admin@example.com",
		Type:  audit.EventDuplicatesDeleted,
		Data: map[string]any{
			"deleted_count": 2,
		},
	})
	if err != nil {
		t.Fatalf("LogEvent() error = %v", err)
	}

	events := logger.Events()
	if len(events) != 1 {
		t.Fatalf("len(events) = %d, want 1", len(events))
	}
	if events[0].Type != audit.EventDuplicatesDeleted {
		t.Errorf("Type = %q, want %q", events[0].Type, audit.EventDuplicatesDeleted)
	}
	if events[0].CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
}

func TestMemoryEventLogger_RequiresFields(t *testing.T) {
	logger := audit.NewMemoryEventLogger()
	tests := []struct {
		name  string
		event audit.Event
	}{
		{"missing type", audit.Event{Actor: "a"}},
		{"missing actor", audit.Event{Type: audit.EventStaffCreated}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := logger.LogEvent(context.Background(), tt.event); err == nil {
				t.Error("LogEvent() should error")
			}
		})
	}
	if n := len(logger.Events()); n != 0 {
		t.Errorf("len(events) = %d, want 0", n)
	}
}

func TestPostgresEventLogger_LogEvent_NilPool(t *testing.T) {
	logger := audit.NewPostgresEventLogger(nil)

	err := logger.LogEvent(context.Background(), audit.Event{
		Actor: "admin@example.com",
		Type:  audit.EventDuplicatesDeleted,
	})
	if err == nil {
		t.Fatal("expected error for nil pool")
	}
}

func TestNopEventLogger(t *testing.T) {
	var logger audit.EventLogger = audit.NopEventLogger{}
	if err := logger.LogEvent(context.Background(), audit.Event{}); err != nil {
		t.Errorf("LogEvent() error = %v, want nil", err)
	}
}
