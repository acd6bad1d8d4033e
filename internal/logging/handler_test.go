package logging

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/mudbeaver/site-api/internal/model"
	"github.com/mudbeaver/site-api/internal/store"
	"github.com/mudbeaver/site-api/internal/testutil"
)

func newTestLogger(t *testing.T) (*slog.Logger, *store.Queries, func()) {
	t.Helper()

	db, cleanup := testutil.TestDB(t)
	inner := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := slog.New(NewEventLogHandler(inner, db))
	return logger, store.New(db), cleanup
}

func TestEventLogHandler_WarnIsMirrored(t *testing.T) {
	logger, q, cleanup := newTestLogger(t)
	defer cleanup()

	logger.Warn("contact message rejected", "field", "subject")

	events, err := q.ListRecentEvents(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListRecentEvents: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("event count = %d, want 1", len(events))
	}

	e := events[0]
	if e.Level != model.EventLevelWarning {
		t.Errorf("Level = %q, want %q", e.Level, model.EventLevelWarning)
	}
	if e.Category != model.EventCategoryIntake {
		t.Errorf("Category = %q, want %q", e.Category, model.EventCategoryIntake)
	}
	if e.Message != "contact message rejected" {
		t.Errorf("Message = %q", e.Message)
	}
	if e.Metadata != `{"field":"subject"}` {
		t.Errorf("Metadata = %q", e.Metadata)
	}
}

func TestEventLogHandler_InfoIsNotMirrored(t *testing.T) {
	logger, q, cleanup := newTestLogger(t)
	defer cleanup()

	logger.Info("post created", "post_id", 1)

	events, err := q.ListRecentEvents(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListRecentEvents: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("event count = %d, want 0 for INFO logs", len(events))
	}
}

func TestEventLogHandler_ExplicitCategory(t *testing.T) {
	logger, q, cleanup := newTestLogger(t)
	defer cleanup()

	logger.Error("something broke", "category", model.EventCategoryMedia, "public_id", "abc")

	events, err := q.ListRecentEvents(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListRecentEvents: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("event count = %d, want 1", len(events))
	}

	e := events[0]
	if e.Level != model.EventLevelError {
		t.Errorf("Level = %q, want %q", e.Level, model.EventLevelError)
	}
	if e.Category != model.EventCategoryMedia {
		t.Errorf("Category = %q, want %q", e.Category, model.EventCategoryMedia)
	}
	if e.Metadata != `{"public_id":"abc"}` {
		t.Errorf("Metadata = %q, category attr should be stripped", e.Metadata)
	}
}

func TestExtractCategoryInference(t *testing.T) {
	tests := []struct {
		message string
		want    string
	}{
		{"api key expired", model.EventCategoryAuth},
		{"failed to update post slug", model.EventCategoryPost},
		{"internship application flagged", model.EventCategoryIntake},
		{"upload to media host failed", model.EventCategoryMedia},
		{"config reloaded", model.EventCategoryConfig},
		{"disk almost full", model.EventCategorySystem},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			r := slog.Record{Message: tt.message}
			if got := extractCategory(r); got != tt.want {
				t.Errorf("extractCategory(%q) = %q, want %q", tt.message, got, tt.want)
			}
		})
	}
}
