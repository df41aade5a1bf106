package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddleware_RecordsSuccessfulRequest(t *testing.T) {
	e := echo.New()
	e.Use(Middleware())
	e.GET("/api/v1/doctors/:id", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/api/v1/doctors/:id", "200"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/doctors/abc", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/api/v1/doctors/:id", "200"))
	if after != before+1 {
		t.Errorf("expected counter to increase by 1, got %v -> %v", before, after)
	}
}

func TestMiddleware_UsesRouteTemplateNotRawPath(t *testing.T) {
	e := echo.New()
	e.Use(Middleware())
	e.GET("/api/v1/appointments/:id", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/appointments/550e8400-e29b-41d4-a716-446655440000", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	templated := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/api/v1/appointments/:id", "200"))
	if templated < 1 {
		t.Errorf("expected templated path counter to record, got %v", templated)
	}

	raw := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/api/v1/appointments/550e8400-e29b-41d4-a716-446655440000", "200"))
	if raw != 0 {
		t.Errorf("expected raw path to record nothing, got %v", raw)
	}
}

func TestMiddleware_RecordsHTTPErrorStatus(t *testing.T) {
	e := echo.New()
	e.Use(Middleware())
	e.GET("/api/v1/clients/:id", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "client not found")
	})

	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/api/v1/clients/:id", "404"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/clients/missing", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/api/v1/clients/:id", "404"))
	if after != before+1 {
		t.Errorf("expected 404 counter to increase by 1, got %v -> %v", before, after)
	}
}

func TestMiddleware_RecordsInternalErrorAs500(t *testing.T) {
	e := echo.New()
	e.Use(Middleware())
	e.GET("/boom", func(c echo.Context) error {
		return errors.New("unexpected failure")
	})

	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/boom", "500"))

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/boom", "500"))
	if after != before+1 {
		t.Errorf("expected 500 counter to increase by 1, got %v -> %v", before, after)
	}
}

func TestBookingsTotal_Outcomes(t *testing.T) {
	before := testutil.ToFloat64(BookingsTotal.WithLabelValues("conflict"))
	BookingsTotal.WithLabelValues("conflict").Inc()
	after := testutil.ToFloat64(BookingsTotal.WithLabelValues("conflict"))
	if after != before+1 {
		t.Errorf("expected conflict counter to increase by 1, got %v -> %v", before, after)
	}
}
