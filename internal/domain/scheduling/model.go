package scheduling

import (
	"time"

	"github.com/google/uuid"
)

// Appointment statuses. Any status can be set through a partial update; there
// is no guarded transition graph. Cancelled appointments keep their row but no
// longer occupy the doctor's calendar.
const (
	StatusScheduled = "scheduled"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
	StatusNoShow    = "no_show"
)

var validAppointmentStatuses = map[string]bool{
	StatusScheduled: true,
	StatusConfirmed: true,
	StatusCancelled: true,
	StatusCompleted: true,
	StatusNoShow:    true,
}

// Appointment maps to the appointments table. The stored end_time column is
// always start_time + duration; it exists so the database can enforce
// non-overlap with a range exclusion constraint.
type Appointment struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	DoctorID        uuid.UUID  `db:"doctor_id" json:"doctor_id"`
	ClientID        *uuid.UUID `db:"client_id" json:"client_id,omitempty"`
	StartTime       time.Time  `db:"start_time" json:"start_time"`
	DurationMinutes int        `db:"duration_minutes" json:"duration_minutes"`
	Status          string     `db:"status" json:"status"`
	Note            *string    `db:"note" json:"note,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`

	// Display names resolved by read queries, not stored on the row.
	DoctorName string  `db:"-" json:"doctor_name,omitempty"`
	ClientName *string `db:"-" json:"client_name,omitempty"`
}

// EndTime returns the exclusive end of the appointment interval.
func (a *Appointment) EndTime() time.Time {
	return a.StartTime.Add(time.Duration(a.DurationMinutes) * time.Minute)
}

// ConflictResult is the outcome of a conflict check. ConflictingIDs lists the
// appointments occupying the requested interval, ordered by start time.
type ConflictResult struct {
	HasConflict    bool        `json:"has_conflict"`
	ConflictingIDs []uuid.UUID `json:"conflicting_ids,omitempty"`
}

// NewClient carries the details needed to register a walk-in client as part
// of a booking.
type NewClient struct {
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	NationalID string `json:"national_id"`
}
