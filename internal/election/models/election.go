package models

import (
	"strings"
	"time"

	id "ballotguard/pkg/domain"
	dErrors "ballotguard/pkg/domain-errors"
)

// Status is the election lifecycle position.
type Status string

const (
	StatusUpcoming  Status = "upcoming"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "status must be one of upcoming, active, completed, cancelled")
	}
	return st, nil
}

func (s Status) IsValid() bool {
	switch s {
	case StatusUpcoming, StatusActive, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransitionTo encodes upcoming->active->completed, and cancellation
// from upcoming or active.
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusUpcoming:
		return target == StatusActive || target == StatusCancelled
	case StatusActive:
		return target == StatusCompleted || target == StatusCancelled
	default:
		return false
	}
}

// Election is the aggregate owned by the registry.
//
// Invariants:
//   - Department is set iff Type is departmental
//   - CloseOffset > OpenOffset, both within one day
//   - Status only moves along CanTransitionTo; Version increments on every
//     transition and is the compare-and-set token for concurrent advances
//   - Completed and cancelled elections are immutable
type Election struct {
	ID         id.ElectionID   `json:"id"`
	Type       id.ElectionType `json:"election_type"`
	Title      string          `json:"title"`
	Department string          `json:"department,omitempty"`
	Status     Status          `json:"status"`
	// Date is the calendar day of the election; only year, month and day
	// are meaningful.
	Date time.Time `json:"election_date"`
	// OpenOffset and CloseOffset are the ballot open and close times of day,
	// measured from midnight of Date in the registry's timezone.
	OpenOffset  time.Duration `json:"-"`
	CloseOffset time.Duration `json:"-"`
	Version     int64         `json:"version"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Window returns the inclusive casting window in loc.
func (e *Election) Window(loc *time.Location) (open, close time.Time) {
	y, m, d := e.Date.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, loc)
	return midnight.Add(e.OpenOffset), midnight.Add(e.CloseOffset)
}

// WithinWindow reports whether now falls in [open, close].
func (e *Election) WithinWindow(now time.Time, loc *time.Location) bool {
	open, close := e.Window(loc)
	return !now.Before(open) && !now.After(close)
}

// IsOpenAt reports whether ballots are accepted at now: status active and
// now inside the window.
func (e *Election) IsOpenAt(now time.Time, loc *time.Location) bool {
	return e.Status == StatusActive && e.WithinWindow(now, loc)
}

// CanAdvanceTo validates a transition without applying it.
func (e *Election) CanAdvanceTo(target Status) error {
	if !target.IsValid() {
		return dErrors.New(dErrors.CodeInvalidInput, "unknown target status")
	}
	if !e.Status.CanTransitionTo(target) {
		return dErrors.New(dErrors.CodeInvalidTransition,
			"cannot move election from "+string(e.Status)+" to "+string(target))
	}
	return nil
}

// ApplyAdvance moves to target and bumps the version. Call CanAdvanceTo
// first.
func (e *Election) ApplyAdvance(target Status, now time.Time) {
	e.Status = target
	e.Version++
	e.UpdatedAt = now
}

// NewElection is the creation input.
type NewElection struct {
	Type       id.ElectionType
	Title      string
	Department string
	Date       time.Time
	OpenTime   string // HH:MM
	CloseTime  string // HH:MM
}

// ParseTimeOfDay parses "HH:MM" or "HH:MM:SS" into an offset from midnight.
func ParseTimeOfDay(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Duration(t.Hour())*time.Hour +
				time.Duration(t.Minute())*time.Minute +
				time.Duration(t.Second())*time.Second, nil
		}
	}
	return 0, dErrors.New(dErrors.CodeInvalidInput, "time of day must be HH:MM")
}

// FormatTimeOfDay renders an offset as HH:MM:SS.
func FormatTimeOfDay(d time.Duration) string {
	return time.Date(0, 1, 1, 0, 0, 0, 0, time.UTC).Add(d).Format("15:04:05")
}

// Build validates the input and constructs an upcoming election.
func (n NewElection) Build(electionID id.ElectionID, now time.Time) (*Election, error) {
	if !n.Type.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "election_type must be ssg or departmental")
	}
	title := strings.TrimSpace(n.Title)
	if title == "" || len(title) > 200 {
		return nil, dErrors.New(dErrors.CodeValidation, "title is required and must be at most 200 characters")
	}
	dept := strings.TrimSpace(n.Department)
	switch {
	case n.Type == id.ElectionTypeDepartmental && dept == "":
		return nil, dErrors.New(dErrors.CodeValidation, "departmental elections require a department")
	case n.Type == id.ElectionTypeSSG && dept != "":
		return nil, dErrors.New(dErrors.CodeValidation, "ssg elections must not name a department")
	}
	if n.Date.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "election_date is required")
	}
	open, err := ParseTimeOfDay(n.OpenTime)
	if err != nil {
		return nil, err
	}
	closeAt, err := ParseTimeOfDay(n.CloseTime)
	if err != nil {
		return nil, err
	}
	if closeAt <= open {
		return nil, dErrors.New(dErrors.CodeValidation, "ballot_close_time must be after ballot_open_time")
	}
	y, m, d := n.Date.Date()
	return &Election{
		ID:          electionID,
		Type:        n.Type,
		Title:       title,
		Department:  dept,
		Status:      StatusUpcoming,
		Date:        time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
		OpenOffset:  open,
		CloseOffset: closeAt,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}
