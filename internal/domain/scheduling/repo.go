package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ListFilter narrows appointment listings. Nil fields are not applied.
type ListFilter struct {
	DoctorID *uuid.UUID
	ClientID *uuid.UUID
	Status   string
	From     *time.Time
	To       *time.Time
}

type AppointmentRepository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f ListFilter, limit, offset int) ([]*Appointment, int, error)
	// ListOverlapping returns the ids of the doctor's non-cancelled
	// appointments whose [start_time, end_time) intersects [start, end),
	// ordered by start time. excludeID, when set, is left out of the result.
	ListOverlapping(ctx context.Context, doctorID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) ([]uuid.UUID, error)
}

// ClientDirectory resolves and registers clients on behalf of a booking.
// RegisterClient reports a national-id collision as ErrClientExists.
type ClientDirectory interface {
	ClientExists(ctx context.Context, id uuid.UUID) (bool, error)
	RegisterClient(ctx context.Context, nc NewClient) (uuid.UUID, error)
}

// DoctorDirectory answers whether a doctor is known.
type DoctorDirectory interface {
	DoctorExists(ctx context.Context, id uuid.UUID) (bool, error)
}
