package identity

import (
	"time"

	"github.com/google/uuid"
)

// Doctor is a practitioner who owns a calendar. WorkStart and WorkEnd are
// wall-clock "HH:MM" strings describing the workday; they are informational
// and do not constrain appointment booking.
type Doctor struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Specialty *string   `db:"specialty" json:"specialty,omitempty"`
	WorkStart string    `db:"work_start" json:"work_start"`
	WorkEnd   string    `db:"work_end" json:"work_end"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Client is a person receiving care. NationalID is unique across the
// directory; NeedsAttention marks the client on the front-desk work queue.
type Client struct {
	ID             uuid.UUID `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	Phone          string    `db:"phone" json:"phone"`
	NationalID     string    `db:"national_id" json:"national_id"`
	Active         bool      `db:"active" json:"active"`
	NeedsAttention bool      `db:"needs_attention" json:"needs_attention"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}
