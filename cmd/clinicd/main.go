package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/clinicd/clinicd/internal/config"
	"github.com/clinicd/clinicd/internal/domain/identity"
	"github.com/clinicd/clinicd/internal/domain/scheduling"
	"github.com/clinicd/clinicd/internal/platform/auth"
	"github.com/clinicd/clinicd/internal/platform/blobstore"
	"github.com/clinicd/clinicd/internal/platform/db"
	"github.com/clinicd/clinicd/internal/platform/metrics"
	"github.com/clinicd/clinicd/internal/platform/middleware"
	"github.com/clinicd/clinicd/internal/platform/validate"
)

// ClientDirectoryAdapter adapts the identity service to the
// scheduling.ClientDirectory interface, avoiding a direct dependency from
// the scheduling package on identity.
type ClientDirectoryAdapter struct {
	svc *identity.Service
}

// NewClientDirectoryAdapter creates a new adapter.
func NewClientDirectoryAdapter(svc *identity.Service) *ClientDirectoryAdapter {
	return &ClientDirectoryAdapter{svc: svc}
}

// ClientExists implements scheduling.ClientDirectory.
func (a *ClientDirectoryAdapter) ClientExists(ctx context.Context, id uuid.UUID) (bool, error) {
	_, err := a.svc.GetClient(ctx, id)
	if errors.Is(err, identity.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// RegisterClient implements scheduling.ClientDirectory. A national-id
// collision is translated into scheduling's error vocabulary so the booking
// handler can answer with a conflict.
func (a *ClientDirectoryAdapter) RegisterClient(ctx context.Context, nc scheduling.NewClient) (uuid.UUID, error) {
	cl := &identity.Client{
		Name:       nc.Name,
		Phone:      nc.Phone,
		NationalID: nc.NationalID,
	}
	if err := a.svc.CreateClient(ctx, cl); err != nil {
		if errors.Is(err, identity.ErrDuplicateNationalID) {
			return uuid.Nil, scheduling.ClientExistsError(nc.NationalID)
		}
		return uuid.Nil, err
	}
	return cl.ID, nil
}

// DoctorDirectoryAdapter adapts the identity service to the
// scheduling.DoctorDirectory interface.
type DoctorDirectoryAdapter struct {
	svc *identity.Service
}

// NewDoctorDirectoryAdapter creates a new adapter.
func NewDoctorDirectoryAdapter(svc *identity.Service) *DoctorDirectoryAdapter {
	return &DoctorDirectoryAdapter{svc: svc}
}

// DoctorExists implements scheduling.DoctorDirectory.
func (a *DoctorDirectoryAdapter) DoctorExists(ctx context.Context, id uuid.UUID) (bool, error) {
	_, err := a.svc.GetDoctor(ctx, id)
	if errors.Is(err, identity.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "clinicd",
		Short: "Clinic appointment scheduling API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(tokenCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the clinic API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	// migrate up
	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	// migrate status
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	// migrate down - keep as warning
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Rollback last migration (not supported)",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("WARNING: migrate down is destructive and not supported by the built-in runner.")
			fmt.Println("Write a new forward migration that reverses the change instead.")
			return nil
		},
	})

	return cmd
}

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue staff access tokens",
	}

	issueCmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue a signed access token for a staff member",
		RunE: func(cmd *cobra.Command, args []string) error {
			subject, _ := cmd.Flags().GetString("subject")
			role, _ := cmd.Flags().GetString("role")
			name, _ := cmd.Flags().GetString("name")

			if subject == "" {
				return fmt.Errorf("--subject is required")
			}
			switch role {
			case "admin", "doctor", "secretary":
			default:
				return fmt.Errorf("unknown role %q (expected admin, doctor or secretary)", role)
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.JWTSecret == "" {
				return fmt.Errorf("JWT_SECRET must be set to issue tokens")
			}

			issuer := auth.NewIssuer([]byte(cfg.JWTSecret), cfg.JWTIssuer, cfg.TokenTTL())
			token, exp, err := issuer.Issue(subject, role, name)
			if err != nil {
				return err
			}

			fmt.Println(token)
			fmt.Fprintf(os.Stderr, "token expires at %s\n", exp.Format(time.RFC3339))
			return nil
		},
	}
	issueCmd.Flags().String("subject", "", "Stable identifier of the staff member")
	issueCmd.Flags().String("role", "secretary", "Role claim: admin, doctor or secretary")
	issueCmd.Flags().String("name", "", "Display name embedded in the token")
	cmd.AddCommand(issueCmd)

	return cmd
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validate.New()

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit(cfg.MaxBodySize, cfg.BlobMaxSize))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout()))
	e.Use(metrics.Middleware())

	// Authenticated API group. Blob transfer routes stay outside of it so
	// that pre-signed URLs work without a bearer token.
	apiV1 := e.Group("/api/v1")
	if cfg.IsDev() {
		apiV1.Use(auth.DevAuthMiddleware())
	} else {
		apiV1.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.JWTIssuer,
			SigningKey: []byte(cfg.JWTSecret),
		}))
	}

	// Rate limiting middleware
	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))

	// Health checks and metrics
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Identity domain
	identitySvc := identity.NewService(identity.NewDoctorRepoPG(pool), identity.NewClientRepoPG(pool))
	identityHandler := identity.NewHandler(identitySvc)
	identityHandler.RegisterRoutes(apiV1)

	// Scheduling domain
	schedulingSvc := scheduling.NewService(
		scheduling.NewAppointmentRepoPG(pool),
		NewClientDirectoryAdapter(identitySvc),
		NewDoctorDirectoryAdapter(identitySvc),
	)
	schedulingHandler := scheduling.NewHandler(schedulingSvc)
	schedulingHandler.RegisterRoutes(apiV1)

	// Appointment attachments
	store := blobstore.NewMemoryStore(middleware.ParseLimit(cfg.BlobMaxSize))
	signer := blobstore.NewSigner(cfg.BlobSecret(), cfg.BlobURLTTL())
	blobHandler := blobstore.NewHandler(store, signer)
	blobHandler.RegisterRoutes(apiV1)
	blobHandler.RegisterBlobRoutes(e)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
