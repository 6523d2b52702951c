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

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"

	"github.com/dentaldesk/clinic/internal/config"
	"github.com/dentaldesk/clinic/internal/domain/account"
	"github.com/dentaldesk/clinic/internal/domain/billing"
	"github.com/dentaldesk/clinic/internal/domain/catalog"
	"github.com/dentaldesk/clinic/internal/domain/dashboard"
	"github.com/dentaldesk/clinic/internal/domain/identity"
	"github.com/dentaldesk/clinic/internal/domain/scheduling"
	"github.com/dentaldesk/clinic/internal/domain/visit"
	"github.com/dentaldesk/clinic/internal/platform/auth"
	"github.com/dentaldesk/clinic/internal/platform/db"
	"github.com/dentaldesk/clinic/internal/platform/lock"
	"github.com/dentaldesk/clinic/internal/platform/metrics"
	"github.com/dentaldesk/clinic/internal/platform/middleware"
	"github.com/dentaldesk/clinic/internal/platform/tracing"
)

const (
	serviceName = "clinic-server"
	tokenIssuer = "dentaldesk-clinic"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   serviceName,
		Short: "Dental clinic front desk and clinical workflow server",
	}
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or inspect database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			migrator, closePool, err := openMigrator(ctx)
			if err != nil {
				return err
			}
			defer closePool()

			applied, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migrate up: %w", err)
			}
			fmt.Printf("Applied %d migration(s)\n", applied)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			migrator, closePool, err := openMigrator(ctx)
			if err != nil {
				return err
			}
			defer closePool()

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
	})

	return cmd
}

func openMigrator(ctx context.Context) (*db.Migrator, func(), error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if cfg.DatabaseURL == "" {
		return nil, nil, fmt.Errorf("DATABASE_URL is required for migrations")
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, nil, err
	}
	return db.NewMigrator(pool, db.Migrations()), pool.Close, nil
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg)
	if err := cfg.Validate(); err != nil {
		logger.Error().Err(err).Msg("invalid configuration")
		return err
	}

	ctx := context.Background()

	tp, err := tracing.Init(ctx, tracing.Config{
		Enabled:     cfg.OTelEnabled,
		Endpoint:    cfg.OTelEndpoint,
		ServiceName: serviceName,
		Version:     version,
		SampleRate:  cfg.OTelSampleRate,
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(sctx); err != nil {
			logger.Warn().Err(err).Msg("tracer shutdown")
		}
	}()

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.close()

	locker, closeLocker, err := newLocker(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeLocker()

	collector := metrics.NewCollector("clinic")

	e, err := newServer(ctx, cfg, logger, st, locker, collector, tp)
	if err != nil {
		return err
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Str("storage", cfg.Storage).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func newLogger(cfg *config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stdout)
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout})
	}
	logger = logger.With().Timestamp().Str("service", serviceName).Logger()

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	return logger.Level(level)
}

// stores bundles one repository per domain, all backed by the same storage.
type stores struct {
	patients     identity.PatientRepository
	doctors      identity.DoctorRepository
	procedures   catalog.ProcedureRepository
	appointments scheduling.AppointmentRepository
	visits       visit.Repository
	invoices     billing.InvoiceRepository
	admins       account.AdminRepository
	tx           db.TxRunner
	health       echo.HandlerFunc
	close        func()
}

func openStores(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*stores, error) {
	if !cfg.UsesPostgres() {
		logger.Warn().Msg("using in-memory storage; data is lost on restart")
		return memoryStores(), nil
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	logger.Info().Msg("connected to database")

	return &stores{
		patients:     identity.NewPatientRepoPG(pool),
		doctors:      identity.NewDoctorRepoPG(pool),
		procedures:   catalog.NewProcedureRepoPG(pool),
		appointments: scheduling.NewAppointmentRepoPG(pool),
		visits:       visit.NewRepoPG(pool),
		invoices:     billing.NewInvoiceRepoPG(pool),
		admins:       account.NewAdminRepoPG(pool),
		tx:           db.NewPoolTx(pool),
		health:       db.HealthHandler(pool, func() *db.PoolStats { return db.GetPoolStats(pool) }),
		close:        pool.Close,
	}, nil
}

func memoryStores() *stores {
	return &stores{
		patients:     identity.NewPatientRepoMem(),
		doctors:      identity.NewDoctorRepoMem(),
		procedures:   catalog.NewProcedureRepoMem(),
		appointments: scheduling.NewAppointmentRepoMem(),
		visits:       visit.NewRepoMem(),
		invoices:     billing.NewInvoiceRepoMem(),
		admins:       account.NewAdminRepoMem(),
		tx:           db.NoTx{},
		health:       db.HealthHandler(nil, nil),
		close:        func() {},
	}
}

// newLocker returns a Redis-backed locker when REDIS_URL is set so that
// several replicas serialise on the same keys; otherwise an in-process one.
func newLocker(ctx context.Context, cfg *config.Config) (lock.Locker, func(), error) {
	if cfg.RedisURL == "" {
		return lock.NewLocal(), func() {}, nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("connect to redis: %w", err)
	}
	return lock.NewRedis(client, cfg.LockTTL), func() { _ = client.Close() }, nil
}

func schedulingPolicy(cfg *config.Config) scheduling.Policy {
	p := scheduling.DefaultPolicy()
	if cfg.SchedulingScope == config.ScopeClinic {
		p.Scope = scheduling.ScopeClinic
	}
	p.Buffer = cfg.SchedulingBuffer
	return p
}

// securityConfig leaves HSTS off in development, where the server is usually
// reached over plain HTTP on localhost.
func securityConfig(cfg *config.Config) middleware.SecurityConfig {
	if cfg.IsDev() {
		return middleware.SecurityConfig{}
	}
	return middleware.SecurityConfig{HSTSMaxAge: 365 * 24 * time.Hour}
}

// newServer wires every domain service onto a fresh echo instance and
// provisions the configured administrator.
func newServer(ctx context.Context, cfg *config.Config, logger zerolog.Logger, st *stores,
	locker lock.Locker, collector *metrics.Collector, tp trace.TracerProvider) (*echo.Echo, error) {
	jwtCfg := auth.JWTConfig{
		Issuer:     tokenIssuer,
		SigningKey: []byte(cfg.JWTSigningKey),
		Skipper:    auth.AuthSkipper,
	}

	identitySvc := identity.NewService(st.patients, st.doctors, locker, collector, cfg.PhoneRegion)
	catalogSvc := catalog.NewService(st.procedures)
	schedulingSvc := scheduling.NewService(st.appointments, st.patients, st.doctors, locker, collector, schedulingPolicy(cfg))
	visitSvc := visit.NewService(st.visits, st.appointments, st.procedures, st.tx, locker)
	billingSvc := billing.NewService(st.invoices, st.visits, st.appointments, st.patients, st.doctors, st.tx, locker, collector)
	accountSvc := account.NewService(st.admins, identitySvc, auth.NewTokenIssuer(jwtCfg, cfg.JWTTTL), locker, collector)
	dashboardSvc := dashboard.NewService(schedulingSvc, identitySvc, billingSvc)

	err := accountSvc.EnsureAdmin(logger.WithContext(ctx), account.AdminSeed{
		Username:      cfg.AdminUsername,
		Password:      cfg.AdminPassword,
		FullName:      "Administrator",
		RecoveryPhone: cfg.AdminRecoveryPhone,
	})
	if err != nil {
		return nil, fmt.Errorf("provision admin %q: %w", cfg.AdminUsername, err)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.Tracing(tp))
	e.Use(middleware.Metrics(collector))
	e.Use(middleware.SecurityHeaders(securityConfig(cfg)))
	e.Use(middleware.Sanitize(logger))
	e.Use(middleware.BodyLimit("1M"))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))
	e.Use(middleware.RequestTimeout(30 * time.Second))

	// Auth middleware
	if cfg.IsDev() {
		logger.Warn().Str("env", cfg.Env).
			Msg("DEVELOPMENT MODE: requests without a bearer token act as admin; never expose this server")
		e.Use(auth.DevAuthMiddleware(jwtCfg))
	} else {
		e.Use(auth.JWTMiddleware(jwtCfg))
	}

	// Audit middleware
	e.Use(middleware.Audit(logger))

	// Ops endpoints
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "version": version})
	})
	e.GET("/health/db", st.health)
	e.GET("/metrics", echo.WrapHandler(collector.Handler()))

	apiV1 := e.Group("/api/v1", middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}))

	account.NewHandler(accountSvc).RegisterRoutes(apiV1)
	identity.NewHandler(identitySvc).RegisterRoutes(apiV1)
	catalog.NewHandler(catalogSvc).RegisterRoutes(apiV1)
	scheduling.NewHandler(schedulingSvc).RegisterRoutes(apiV1)
	visit.NewHandler(visitSvc).RegisterRoutes(apiV1)
	billing.NewHandler(billingSvc).RegisterRoutes(apiV1)
	dashboard.NewHandler(dashboardSvc).RegisterRoutes(apiV1)

	return e, nil
}
