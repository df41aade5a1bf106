package scheduling

import (
	"time"

	"github.com/google/uuid"
)

// Candidate is a conflict-check request that has passed boundary validation.
// It can only be built through NewCandidate, so holding one means the doctor
// id is set, the start instant is UTC, and the duration is positive.
type Candidate struct {
	doctorID  uuid.UUID
	start     time.Time
	duration  time.Duration
	excludeID *uuid.UUID
}

// NewCandidate validates and normalizes the inputs of a conflict check.
// excludeID names an appointment to ignore, used on reschedule so an
// appointment does not collide with itself.
func NewCandidate(doctorID uuid.UUID, start time.Time, durationMinutes int, excludeID *uuid.UUID) (Candidate, error) {
	if doctorID == uuid.Nil {
		return Candidate{}, ValidationError("doctor_id is required")
	}
	if start.IsZero() {
		return Candidate{}, ValidationError("start_time is required")
	}
	if durationMinutes <= 0 {
		return Candidate{}, ValidationError("duration_minutes must be positive")
	}
	return Candidate{
		doctorID:  doctorID,
		start:     start.UTC(),
		duration:  time.Duration(durationMinutes) * time.Minute,
		excludeID: excludeID,
	}, nil
}

// DoctorID returns the doctor whose calendar is being checked.
func (c Candidate) DoctorID() uuid.UUID { return c.doctorID }

// Start returns the UTC start instant.
func (c Candidate) Start() time.Time { return c.start }

// End returns the exclusive end instant.
func (c Candidate) End() time.Time { return c.start.Add(c.duration) }

// DurationMinutes returns the requested length in minutes.
func (c Candidate) DurationMinutes() int { return int(c.duration / time.Minute) }

// ExcludeID returns the appointment to ignore during the check, if any.
func (c Candidate) ExcludeID() *uuid.UUID { return c.excludeID }
