package gcal

import (
	"context"
	"sync"
	"time"

	t "github.com/bikebuddy/bikebuddy-service/internal/types"
	"github.com/google/uuid"
)

// Mock is an in-memory Calendar used when Google OAuth is not
// configured. It ignores the access token and pre-seeds a handful of
// upcoming events so the list endpoint has something to show.
type Mock struct {
	mu     sync.Mutex
	events []t.CalendarEvent
	now    func() time.Time
}

func NewMock(now func() time.Time) *Mock {
	if now == nil {
		now = time.Now
	}
	m := &Mock{now: now}
	m.events = m.seedEvents()
	return m
}

func (m *Mock) seedEvents() []t.CalendarEvent {
	base := m.now()
	at := func(hours int) string {
		return base.Add(time.Duration(hours) * time.Hour).Format(time.RFC3339)
	}
	summaries := []struct {
		summary    string
		startHours int
		endHours   int
	}{
		{"Team Meeting", 1, 2},
		{"Bike Ride with Alex", 24, 26},
		{"Project Deadline", 48, 49},
		{"Dentist Appointment", 72, 73},
		{"Weekend Getaway Planning", 120, 122},
	}

	events := make([]t.CalendarEvent, 0, len(summaries))
	for _, s := range summaries {
		id := uuid.NewString()
		events = append(events, t.CalendarEvent{
			ID:       id,
			Summary:  s.summary,
			Start:    t.EventTime{DateTime: at(s.startHours)},
			End:      t.EventTime{DateTime: at(s.endHours)},
			HTMLLink: "https://calendar.google.com/calendar/event?eid=" + id,
		})
	}
	return events
}

func (m *Mock) CreateEvent(_ context.Context, _ string, in EventInput) (*t.CalendarEvent, error) {
	id := uuid.NewString()
	event := t.CalendarEvent{
		ID:          id,
		Summary:     in.Summary,
		Start:       t.EventTime{DateTime: in.StartDateTime},
		End:         t.EventTime{DateTime: in.EndDateTime},
		HTMLLink:    "https://calendar.google.com/calendar/event?eid=" + id,
		Description: in.Description,
	}

	m.mu.Lock()
	m.events = append(m.events, event)
	m.mu.Unlock()

	return &event, nil
}

func (m *Mock) UpcomingEvents(_ context.Context, _ string, maxResults int) ([]t.CalendarEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.events)
	if maxResults > 0 && maxResults < n {
		n = maxResults
	}
	out := make([]t.CalendarEvent, n)
	copy(out, m.events[:n])
	return out, nil
}
