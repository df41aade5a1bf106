package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// Errors shared by the repository implementations. Handlers and the booking
// adapter branch on these with errors.Is.
var (
	ErrNotFound            = errors.New("not found")
	ErrDuplicateNationalID = errors.New("national id already registered")
	ErrDoctorInUse         = errors.New("doctor has appointments")
)

// DoctorFilter narrows doctor listings. Zero values are not applied.
type DoctorFilter struct {
	Active    *bool
	Specialty string
}

type DoctorRepository interface {
	Create(ctx context.Context, d *Doctor) error
	GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	Update(ctx context.Context, d *Doctor) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f DoctorFilter, limit, offset int) ([]*Doctor, int, error)
}

type ClientRepository interface {
	Create(ctx context.Context, cl *Client) error
	GetByID(ctx context.Context, id uuid.UUID) (*Client, error)
	Update(ctx context.Context, cl *Client) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Client, int, error)
	// Search matches clients whose name contains q or whose national id
	// equals q exactly.
	Search(ctx context.Context, q string, limit, offset int) ([]*Client, int, error)
	SetNeedsAttention(ctx context.Context, id uuid.UUID, flag bool) error
}
