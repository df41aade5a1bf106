package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinicd/clinicd/internal/platform/metrics"
)

type Service struct {
	appointments AppointmentRepository
	clients      ClientDirectory
	doctors      DoctorDirectory
}

func NewService(appts AppointmentRepository, clients ClientDirectory, doctors DoctorDirectory) *Service {
	return &Service{appointments: appts, clients: clients, doctors: doctors}
}

// BookingRequest carries everything needed to create an appointment. Exactly
// one of ClientID and NewClient must be set.
type BookingRequest struct {
	DoctorID        uuid.UUID
	ClientID        *uuid.UUID
	NewClient       *NewClient
	StartTime       time.Time
	DurationMinutes int
	Status          string
	Note            *string
}

// RescheduleRequest carries the fields a partial appointment update may
// touch. Nil fields keep their current value.
type RescheduleRequest struct {
	DoctorID        *uuid.UUID
	ClientID        *uuid.UUID
	NewClient       *NewClient
	StartTime       *time.Time
	DurationMinutes *int
	Status          *string
	Note            *string
}

// CheckConflict reports whether the candidate interval collides with any
// non-cancelled appointment of the same doctor. It reads, never writes.
func (s *Service) CheckConflict(ctx context.Context, cand Candidate) (ConflictResult, error) {
	ids, err := s.appointments.ListOverlapping(ctx, cand.DoctorID(), cand.Start(), cand.End(), cand.ExcludeID())
	if err != nil {
		metrics.ConflictChecksTotal.WithLabelValues("error").Inc()
		return ConflictResult{}, storeErr(err)
	}
	if len(ids) > 0 {
		metrics.ConflictChecksTotal.WithLabelValues("conflict").Inc()
		return ConflictResult{HasConflict: true, ConflictingIDs: ids}, nil
	}
	metrics.ConflictChecksTotal.WithLabelValues("clear").Inc()
	return ConflictResult{}, nil
}

// Book creates an appointment after resolving the client and checking the
// doctor's calendar. On conflict nothing is written and the error names the
// occupying appointments.
func (s *Service) Book(ctx context.Context, req BookingRequest) (*Appointment, error) {
	a, err := s.book(ctx, req)
	metrics.BookingsTotal.WithLabelValues(bookingOutcome("created", err)).Inc()
	return a, err
}

func (s *Service) book(ctx context.Context, req BookingRequest) (*Appointment, error) {
	cand, err := NewCandidate(req.DoctorID, req.StartTime, req.DurationMinutes, nil)
	if err != nil {
		return nil, err
	}

	status := req.Status
	if status == "" {
		status = StatusScheduled
	}
	if !validAppointmentStatuses[status] {
		return nil, ValidationError(fmt.Sprintf("invalid appointment status: %s", status))
	}

	known, err := s.doctors.DoctorExists(ctx, req.DoctorID)
	if err != nil {
		return nil, storeErr(err)
	}
	if !known {
		return nil, NotFoundError("doctor not found")
	}

	clientID, err := s.resolveClient(ctx, req.ClientID, req.NewClient)
	if err != nil {
		return nil, err
	}

	if status != StatusCancelled {
		res, err := s.CheckConflict(ctx, cand)
		if err != nil {
			return nil, err
		}
		if res.HasConflict {
			return nil, ConflictError(res.ConflictingIDs)
		}
	}

	a := &Appointment{
		DoctorID:        req.DoctorID,
		ClientID:        clientID,
		StartTime:       cand.Start(),
		DurationMinutes: cand.DurationMinutes(),
		Status:          status,
		Note:            req.Note,
	}
	if err := s.appointments.Create(ctx, a); err != nil {
		return nil, s.writeError(ctx, cand, err)
	}

	full, err := s.appointments.GetByID(ctx, a.ID)
	if err != nil {
		return nil, storeErr(err)
	}
	return full, nil
}

// Reschedule applies a partial update to an appointment, re-running the
// conflict check against the merged interval with the appointment itself
// excluded.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, req RescheduleRequest) (*Appointment, error) {
	a, err := s.reschedule(ctx, id, req)
	metrics.BookingsTotal.WithLabelValues(bookingOutcome("rescheduled", err)).Inc()
	return a, err
}

func (s *Service) reschedule(ctx context.Context, id uuid.UUID, req RescheduleRequest) (*Appointment, error) {
	current, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr(err)
	}

	doctorID := current.DoctorID
	if req.DoctorID != nil {
		doctorID = *req.DoctorID
	}
	start := current.StartTime
	if req.StartTime != nil {
		start = *req.StartTime
	}
	duration := current.DurationMinutes
	if req.DurationMinutes != nil {
		duration = *req.DurationMinutes
	}
	status := current.Status
	if req.Status != nil {
		status = *req.Status
	}
	if !validAppointmentStatuses[status] {
		return nil, ValidationError(fmt.Sprintf("invalid appointment status: %s", status))
	}
	note := current.Note
	if req.Note != nil {
		note = req.Note
	}

	if req.DoctorID != nil && *req.DoctorID != current.DoctorID {
		known, err := s.doctors.DoctorExists(ctx, doctorID)
		if err != nil {
			return nil, storeErr(err)
		}
		if !known {
			return nil, NotFoundError("doctor not found")
		}
	}

	clientID := current.ClientID
	if req.ClientID != nil || req.NewClient != nil {
		resolved, err := s.resolveClient(ctx, req.ClientID, req.NewClient)
		if err != nil {
			return nil, err
		}
		clientID = resolved
	}

	cand, err := NewCandidate(doctorID, start, duration, &id)
	if err != nil {
		return nil, err
	}

	// A cancelled appointment does not occupy the calendar, so moving or
	// re-noting one cannot conflict.
	if status != StatusCancelled {
		res, err := s.CheckConflict(ctx, cand)
		if err != nil {
			return nil, err
		}
		if res.HasConflict {
			return nil, ConflictError(res.ConflictingIDs)
		}
	}

	updated := &Appointment{
		ID:              id,
		DoctorID:        doctorID,
		ClientID:        clientID,
		StartTime:       cand.Start(),
		DurationMinutes: cand.DurationMinutes(),
		Status:          status,
		Note:            note,
	}
	if err := s.appointments.Update(ctx, updated); err != nil {
		return nil, s.writeError(ctx, cand, err)
	}

	full, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr(err)
	}
	return full, nil
}

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr(err)
	}
	return a, nil
}

func (s *Service) ListAppointments(ctx context.Context, f ListFilter, limit, offset int) ([]*Appointment, int, error) {
	items, total, err := s.appointments.List(ctx, f, limit, offset)
	if err != nil {
		return nil, 0, storeErr(err)
	}
	return items, total, nil
}

func (s *Service) DeleteAppointment(ctx context.Context, id uuid.UUID) error {
	if err := s.appointments.Delete(ctx, id); err != nil {
		return storeErr(err)
	}
	return nil
}

// resolveClient turns the client half of a booking into a client id: an
// existing id is verified, new-client details are registered, and neither is
// a validation error.
func (s *Service) resolveClient(ctx context.Context, clientID *uuid.UUID, nc *NewClient) (*uuid.UUID, error) {
	if clientID != nil {
		known, err := s.clients.ClientExists(ctx, *clientID)
		if err != nil {
			return nil, storeErr(err)
		}
		if !known {
			return nil, NotFoundError("client not found")
		}
		return clientID, nil
	}
	if nc != nil {
		if nc.Name == "" {
			return nil, ValidationError("client name is required")
		}
		if nc.NationalID == "" {
			return nil, ValidationError("client national_id is required")
		}
		id, err := s.clients.RegisterClient(ctx, *nc)
		if err != nil {
			return nil, storeErr(err)
		}
		return &id, nil
	}
	return nil, ValidationError("client_id or new_client is required")
}

// writeError classifies a failed appointment write. A conflict here means a
// concurrent booking won the interval between our check and the write; the
// calendar is re-read so the rejection can name the winner.
func (s *Service) writeError(ctx context.Context, cand Candidate, err error) error {
	if errors.Is(err, ErrScheduleConflict) {
		if ids, qerr := s.appointments.ListOverlapping(ctx, cand.DoctorID(), cand.Start(), cand.End(), cand.ExcludeID()); qerr == nil && len(ids) > 0 {
			return ConflictError(ids)
		}
		return err
	}
	return storeErr(err)
}

// storeErr passes through scheduling errors and wraps anything else as a
// store failure.
func storeErr(err error) error {
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	return StoreError(err)
}

// bookingOutcome labels a booking attempt for metrics.
func bookingOutcome(success string, err error) string {
	switch {
	case err == nil:
		return success
	case errors.Is(err, ErrScheduleConflict):
		return "conflict"
	case errors.Is(err, ErrStoreUnavailable):
		return "error"
	default:
		return "rejected"
	}
}
