package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	defaultWorkStart = "08:00"
	defaultWorkEnd   = "17:00"
)

// Service coordinates the doctor and client directories.
type Service struct {
	doctors DoctorRepository
	clients ClientRepository
}

func NewService(doctors DoctorRepository, clients ClientRepository) *Service {
	return &Service{doctors: doctors, clients: clients}
}

// -- Doctor --

func (s *Service) CreateDoctor(ctx context.Context, d *Doctor) error {
	if d.Name == "" {
		return fmt.Errorf("doctor name is required")
	}
	if d.WorkStart == "" {
		d.WorkStart = defaultWorkStart
	}
	if d.WorkEnd == "" {
		d.WorkEnd = defaultWorkEnd
	}
	if err := validateWorkday(d.WorkStart, d.WorkEnd); err != nil {
		return err
	}
	d.Active = true
	return s.doctors.Create(ctx, d)
}

func (s *Service) GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return s.doctors.GetByID(ctx, id)
}

func (s *Service) UpdateDoctor(ctx context.Context, d *Doctor) error {
	if d.Name == "" {
		return fmt.Errorf("doctor name is required")
	}
	if err := validateWorkday(d.WorkStart, d.WorkEnd); err != nil {
		return err
	}
	return s.doctors.Update(ctx, d)
}

func (s *Service) DeleteDoctor(ctx context.Context, id uuid.UUID) error {
	return s.doctors.Delete(ctx, id)
}

func (s *Service) ListDoctors(ctx context.Context, f DoctorFilter, limit, offset int) ([]*Doctor, int, error) {
	return s.doctors.List(ctx, f, limit, offset)
}

// validateWorkday checks a pair of wall-clock "HH:MM" strings. The workday
// must start before it ends; overnight shifts are not supported.
func validateWorkday(start, end string) error {
	from, err := time.Parse("15:04", start)
	if err != nil {
		return fmt.Errorf("work_start must be HH:MM")
	}
	to, err := time.Parse("15:04", end)
	if err != nil {
		return fmt.Errorf("work_end must be HH:MM")
	}
	if !from.Before(to) {
		return fmt.Errorf("work_start must be before work_end")
	}
	return nil
}

// -- Client --

func (s *Service) CreateClient(ctx context.Context, cl *Client) error {
	if cl.Name == "" {
		return fmt.Errorf("client name is required")
	}
	if cl.NationalID == "" {
		return fmt.Errorf("client national_id is required")
	}
	cl.Active = true
	return s.clients.Create(ctx, cl)
}

func (s *Service) GetClient(ctx context.Context, id uuid.UUID) (*Client, error) {
	return s.clients.GetByID(ctx, id)
}

func (s *Service) UpdateClient(ctx context.Context, cl *Client) error {
	if cl.Name == "" {
		return fmt.Errorf("client name is required")
	}
	if cl.NationalID == "" {
		return fmt.Errorf("client national_id is required")
	}
	return s.clients.Update(ctx, cl)
}

func (s *Service) DeleteClient(ctx context.Context, id uuid.UUID) error {
	return s.clients.Delete(ctx, id)
}

func (s *Service) ListClients(ctx context.Context, limit, offset int) ([]*Client, int, error) {
	return s.clients.List(ctx, limit, offset)
}

func (s *Service) SearchClients(ctx context.Context, q string, limit, offset int) ([]*Client, int, error) {
	return s.clients.Search(ctx, q, limit, offset)
}

func (s *Service) SetClientAttention(ctx context.Context, id uuid.UUID, flag bool) error {
	return s.clients.SetNeedsAttention(ctx, id, flag)
}
