package gcal

import (
	"context"
	"testing"
	"time"
)

func TestMockCreateAndList(t *testing.T) {
	now := func() time.Time {
		return time.Date(2025, time.June, 2, 8, 0, 0, 0, time.UTC)
	}
	m := NewMock(now)

	seeded, err := m.UpcomingEvents(context.Background(), "", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(seeded) != 5 {
		t.Fatalf("expected 5 seeded events, got %d", len(seeded))
	}
	if seeded[0].Summary != "Team Meeting" {
		t.Errorf("first seeded event = %q", seeded[0].Summary)
	}

	created, err := m.CreateEvent(context.Background(), "", EventInput{
		Summary:       "Morning Ride",
		StartDateTime: "2025-06-03T09:00:00Z",
		EndDateTime:   "2025-06-03T10:00:00Z",
		Description:   "Good day for a ride",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.ID == "" || created.HTMLLink == "" {
		t.Errorf("created event missing id or link: %+v", created)
	}
	if created.Start.DateTime != "2025-06-03T09:00:00Z" {
		t.Errorf("start = %+v", created.Start)
	}

	all, _ := m.UpcomingEvents(context.Background(), "", 10)
	if len(all) != 6 {
		t.Errorf("expected 6 events after create, got %d", len(all))
	}
}

func TestMockMaxResults(t *testing.T) {
	m := NewMock(nil)
	events, err := m.UpcomingEvents(context.Background(), "", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("expected 2 events, got %d", len(events))
	}
}
