package scheduling

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicd/clinicd/internal/platform/auth"
	"github.com/clinicd/clinicd/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole("admin", "doctor", "secretary"))
	g.GET("/appointments", h.ListAppointments)
	g.GET("/appointments/conflicts", h.CheckConflict)
	g.GET("/appointments/:id", h.GetAppointment)
	g.POST("/appointments", h.CreateAppointment)
	g.PATCH("/appointments/:id", h.UpdateAppointment)
	g.DELETE("/appointments/:id", h.DeleteAppointment)
}

type newClientRequest struct {
	Name       string `json:"name" validate:"required"`
	Phone      string `json:"phone"`
	NationalID string `json:"national_id" validate:"required"`
}

type createAppointmentRequest struct {
	DoctorID        string            `json:"doctor_id" validate:"required,uuid"`
	ClientID        *string           `json:"client_id" validate:"omitempty,uuid"`
	NewClient       *newClientRequest `json:"new_client"`
	StartTime       time.Time         `json:"start_time" validate:"required"`
	DurationMinutes int               `json:"duration_minutes" validate:"required,gt=0"`
	Status          string            `json:"status" validate:"omitempty,oneof=scheduled confirmed cancelled completed no_show"`
	Note            *string           `json:"note"`
}

type updateAppointmentRequest struct {
	DoctorID        *string           `json:"doctor_id" validate:"omitempty,uuid"`
	ClientID        *string           `json:"client_id" validate:"omitempty,uuid"`
	NewClient       *newClientRequest `json:"new_client"`
	StartTime       *time.Time        `json:"start_time"`
	DurationMinutes *int              `json:"duration_minutes" validate:"omitempty,gt=0"`
	Status          *string           `json:"status" validate:"omitempty,oneof=scheduled confirmed cancelled completed no_show"`
	Note            *string           `json:"note"`
}

// CreateAppointment books a new appointment.
func (h *Handler) CreateAppointment(c echo.Context) error {
	var req createAppointmentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	doctorID, err := uuid.Parse(req.DoctorID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor_id")
	}
	clientID, err := parseOptionalID(req.ClientID, "client_id")
	if err != nil {
		return err
	}

	appt, err := h.svc.Book(c.Request().Context(), BookingRequest{
		DoctorID:        doctorID,
		ClientID:        clientID,
		NewClient:       req.NewClient.toNewClient(),
		StartTime:       req.StartTime,
		DurationMinutes: req.DurationMinutes,
		Status:          req.Status,
		Note:            req.Note,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, appt)
}

// UpdateAppointment applies a partial update, rescheduling when the interval
// changes.
func (h *Handler) UpdateAppointment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req updateAppointmentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	doctorID, err := parseOptionalID(req.DoctorID, "doctor_id")
	if err != nil {
		return err
	}
	clientID, err := parseOptionalID(req.ClientID, "client_id")
	if err != nil {
		return err
	}

	appt, err := h.svc.Reschedule(c.Request().Context(), id, RescheduleRequest{
		DoctorID:        doctorID,
		ClientID:        clientID,
		NewClient:       req.NewClient.toNewClient(),
		StartTime:       req.StartTime,
		DurationMinutes: req.DurationMinutes,
		Status:          req.Status,
		Note:            req.Note,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, appt)
}

func (h *Handler) GetAppointment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	appt, err := h.svc.GetAppointment(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, appt)
}

func (h *Handler) ListAppointments(c echo.Context) error {
	pg := pagination.FromContext(c)

	var f ListFilter
	if v := c.QueryParam("doctor_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor_id")
		}
		f.DoctorID = &id
	}
	if v := c.QueryParam("client_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid client_id")
		}
		f.ClientID = &id
	}
	if v := c.QueryParam("status"); v != "" {
		if !validAppointmentStatuses[v] {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid status")
		}
		f.Status = v
	}
	if v := c.QueryParam("date"); v != "" {
		day, err := time.Parse("2006-01-02", v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid date, want YYYY-MM-DD")
		}
		from := day.UTC()
		to := from.Add(24 * time.Hour)
		f.From, f.To = &from, &to
	} else {
		if v := c.QueryParam("from"); v != "" {
			ts, err := time.Parse(time.RFC3339, v)
			if err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, "invalid from, want RFC3339")
			}
			f.From = &ts
		}
		if v := c.QueryParam("to"); v != "" {
			ts, err := time.Parse(time.RFC3339, v)
			if err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, "invalid to, want RFC3339")
			}
			f.To = &ts
		}
	}

	items, total, err := h.svc.ListAppointments(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) DeleteAppointment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteAppointment(c.Request().Context(), id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// CheckConflict answers a pre-flight availability question without writing
// anything.
func (h *Handler) CheckConflict(c echo.Context) error {
	doctorID, err := uuid.Parse(c.QueryParam("doctor_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor_id")
	}
	start, err := time.Parse(time.RFC3339, c.QueryParam("start_time"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid start_time, want RFC3339")
	}
	duration, err := strconv.Atoi(c.QueryParam("duration_minutes"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid duration_minutes")
	}
	var excludeID *uuid.UUID
	if v := c.QueryParam("exclude_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid exclude_id")
		}
		excludeID = &id
	}

	cand, err := NewCandidate(doctorID, start, duration, excludeID)
	if err != nil {
		return respondError(c, err)
	}
	res, err := h.svc.CheckConflict(c.Request().Context(), cand)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

func (r *newClientRequest) toNewClient() *NewClient {
	if r == nil {
		return nil
	}
	return &NewClient{Name: r.Name, Phone: r.Phone, NationalID: r.NationalID}
}

func parseOptionalID(s *string, field string) (*uuid.UUID, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(*s)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid "+field)
	}
	return &id, nil
}

// respondError maps a scheduling failure onto the HTTP status taxonomy.
// Conflicts carry the occupying appointment ids in the body.
func respondError(c echo.Context, err error) error {
	var se *Error
	if !errors.As(err, &se) {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	switch {
	case errors.Is(se, ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, se.Message)
	case errors.Is(se, ErrScheduleConflict):
		return c.JSON(http.StatusConflict, echo.Map{
			"error":           se.Message,
			"conflicting_ids": se.ConflictIDs,
		})
	case errors.Is(se, ErrClientExists):
		return echo.NewHTTPError(http.StatusConflict, se.Message)
	case errors.Is(se, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, se.Message)
	case errors.Is(se, ErrStoreUnavailable):
		return echo.NewHTTPError(http.StatusServiceUnavailable, se.Message)
	}
	return echo.NewHTTPError(http.StatusInternalServerError, se.Message)
}
