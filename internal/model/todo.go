package model

import (
	"fmt"
	"time"
)

// Subtask is a checklist entry inside a Todo. Its ID is only unique within
// the parent todo. Title may be empty while the user is still typing.
type Subtask struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// Todo is a single task owned by one user.
//
// Timestamp is kept as the string the user submitted (for example
// "2024-01-01T10:00") rather than a time.Time, so the stored value round-trips
// exactly. Use ParseTimestamp when a real time is needed.
type Todo struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Timestamp string    `json:"timestamp"`
	Completed bool      `json:"completed"`
	Subtasks  []Subtask `json:"subtasks"`
}

// UserTodos is one entry of the todos slot: every todo belonging to a user,
// keyed by the user's email.
type UserTodos struct {
	User string `json:"user"`
	Data []Todo `json:"data"`
}

// timestampLayouts are tried in order by ParseTimestamp. The first one is
// what an HTML datetime-local input submits.
var timestampLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTimestamp parses an ISO-like date-time string. Values without a zone
// are interpreted in loc.
func ParseTimestamp(s string, loc *time.Location) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("model: unrecognised timestamp %q", s)
}

// DueStatus classifies a todo's timestamp relative to the current day.
type DueStatus string

const (
	DueOverdue DueStatus = "overdue"
	DueToday   DueStatus = "today"
	DueFuture  DueStatus = "future"
)

// Due reports whether the todo falls before, on, or after the calendar day of
// now. Unparseable timestamps count as future.
func (t Todo) Due(now time.Time) DueStatus {
	ts, err := ParseTimestamp(t.Timestamp, now.Location())
	if err != nil {
		return DueFuture
	}
	y1, m1, d1 := ts.Date()
	y2, m2, d2 := now.Date()
	day := time.Date(y1, m1, d1, 0, 0, 0, 0, now.Location())
	today := time.Date(y2, m2, d2, 0, 0, 0, 0, now.Location())
	switch {
	case day.Equal(today):
		return DueToday
	case day.Before(today):
		return DueOverdue
	default:
		return DueFuture
	}
}
