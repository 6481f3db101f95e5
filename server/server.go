// Package server assembles the dashboard: the fiber app with its
// middleware stack, the page and API routes, and the process lifecycle.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/hashicorp/go-hclog"
	"github.com/oklog/ulid/v2"

	auth "github.com/goliatone/go-auth-dashboard"
	"github.com/goliatone/go-auth-dashboard/activity"
	"github.com/goliatone/go-auth-dashboard/config"
	"github.com/goliatone/go-auth-dashboard/metrics"
	"github.com/goliatone/go-auth-dashboard/middleware/ratelimit"
)

// ShutdownTimeout bounds the graceful shutdown
const ShutdownTimeout = 10 * time.Second

type Options struct {
	Config *config.Config
	Store  auth.AccountStore
	Logger hclog.Logger
	// Metrics defaults to a fresh registry
	Metrics *metrics.Registry
	// Activity defaults to a client built from Config.Activity
	Activity *activity.Client
	// Now is the clock used by tokens, cookies and rate limits
	Now func() time.Time
}

// Server is the assembled application
type Server struct {
	app       *fiber.App
	cfg       *config.Config
	logger    hclog.Logger
	auther    *auth.Auther
	tokens    *auth.TokenServiceImpl
	transport *auth.RouteAuthenticator
	metrics   *metrics.Registry
	activity  *activity.Client
	store     auth.AccountStore
}

// New wires every component and registers the routes
func New(opts Options) (*Server, error) {
	if opts.Config == nil {
		return nil, errors.New("server: config is required")
	}
	if opts.Store == nil {
		return nil, errors.New("server: store is required")
	}

	cfg := opts.Config
	logger := opts.Logger
	if logger == nil {
		logger = NewLogger(cfg.Log, nil)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	reg := opts.Metrics
	if reg == nil {
		reg = metrics.NewRegistry()
	}

	tokens, err := auth.NewTokenServiceFromConfig(cfg.Auth,
		auth.WithTokenClock(now),
		auth.WithTokenLogger(logger.Named("token")),
	)
	if err != nil {
		return nil, fmt.Errorf("server: token service: %w", err)
	}

	auther := auth.NewAuthenticator(opts.Store, tokens).
		WithLogger(logger.Named("auth")).
		WithPasswordHasher(auth.NewBcryptHasher(cfg.Auth.GetBcryptCost())).
		WithStoreTimeout(cfg.Store.Timeout).
		WithClock(now).
		WithEventSink(auth.MultiEventSink{
			auth.LoggingEventSink(logger.Named("events")),
			reg,
		})

	transport := auth.NewHTTPAuthenticator(cfg.Auth)
	transport.Logger = logger.Named("http")

	client := opts.Activity
	if client == nil {
		client = activity.NewClient(
			activity.WithURL(cfg.Activity.URL),
			activity.WithTimeout(cfg.Activity.Timeout),
			activity.WithObserver(reg),
			activity.WithLogger(logger.Named("activity")),
		)
	}

	engine, err := NewViewEngine()
	if err != nil {
		return nil, fmt.Errorf("server: views: %w", err)
	}

	s := &Server{
		cfg:       cfg,
		logger:    logger,
		auther:    auther,
		tokens:    tokens,
		transport: transport,
		metrics:   reg,
		activity:  client,
		store:     opts.Store,
	}

	// c.IP() reads ProxyHeader only when the peer is a trusted proxy,
	// with no trusted proxies it is always the peer address
	s.app = fiber.New(fiber.Config{
		AppName:                 "authdash",
		ReadTimeout:             cfg.Server.ReadTimeout,
		WriteTimeout:            cfg.Server.WriteTimeout,
		IdleTimeout:             cfg.Server.IdleTimeout,
		DisableStartupMessage:   true,
		Views:                   engine,
		ErrorHandler:            s.errorHandler,
		ProxyHeader:             cfg.Server.ProxyHeader,
		EnableTrustedProxyCheck: true,
		TrustedProxies:          cfg.Server.TrustedProxies,
		EnableIPValidation:      true,
	})

	s.routes(now)

	return s, nil
}

func (s *Server) routes(now func() time.Time) {
	app := s.app

	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{
		Header: fiber.HeaderXRequestID,
		Generator: func() string {
			return ulid.Make().String()
		},
	}))
	app.Use(requestLogger(s.logger.Named("request")))
	app.Use(s.metrics.Middleware())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     s.cfg.Server.CORSOrigin,
		AllowCredentials: true,
		AllowMethods:     "GET,POST,PUT,DELETE",
		AllowHeaders:     "Content-Type,Authorization",
	}))

	app.Get("/healthz", s.health).Name("healthz")
	app.Get("/metrics", s.metrics.Handler()).Name("metrics")

	gate := auth.NewRouteGate(s.tokens, s.transport, auth.WithGateLogger(s.logger.Named("gate")))
	app.Use(gate.Handler())

	NewPages(s.auther, s.transport).Register(app)

	api := app.Group("/api")

	limiter := ratelimit.New(ratelimit.Config{
		PerMinute: s.cfg.RateLimit.PerMinute,
		Burst:     s.cfg.RateLimit.Burst,
		Now:       now,
	})

	auth.RegisterAuthRoutes(api.Group("/auth"),
		auth.WithControllerLogger(s.logger.Named("controller")),
		auth.WithControllerAuthenticator(s.auther),
		auth.WithControllerTransport(s.transport),
		auth.WithControllerLimiter(limiter),
		auth.WithControllerClock(now),
	)

	api.Get("/activity", auth.ProtectedAPI(s.tokens, s.transport), s.activity.Handler()).Name("api.activity")
	api.Get("/fallback-activity", s.activity.FallbackHandler()).Name("api.fallback_activity")
}

// App exposes the fiber app, mostly for tests
func (s *Server) App() *fiber.App {
	return s.app
}

// Authenticator returns the auth use cases backing the routes
func (s *Server) Authenticator() *auth.Auther {
	return s.auther
}

type pinger interface {
	Ping(ctx context.Context) error
}

func (s *Server) health(c *fiber.Ctx) error {
	if p, ok := s.store.(pinger); ok {
		timeout := s.cfg.Store.Timeout
		if timeout <= 0 {
			timeout = auth.DefaultStoreTimeout
		}
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			s.logger.Warn("health check failed", "error", err)
			return c.Status(http.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
		}
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

// errorHandler renders anything a handler returned as the JSON error body
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(auth.ErrorResponse{
			Error: fe.Message,
			Code:  statusTextCode(fe.Code),
		})
	}
	return auth.WriteError(c, s.logger.Named("http"), err)
}

func statusTextCode(status int) string {
	switch status {
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case http.StatusRequestEntityTooLarge:
		return "PAYLOAD_TOO_LARGE"
	case http.StatusBadRequest:
		return auth.TextCodeInvalidPayload
	}
	if status >= http.StatusInternalServerError {
		return auth.TextCodeInternal
	}
	return ""
}

// Listen serves until ctx is done, then shuts down within ShutdownTimeout
func (s *Server) Listen(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr, "environment", s.cfg.Server.Environment)
		errCh <- s.app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	if err := s.app.ShutdownWithContext(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	return <-errCh
}

// Run opens the configured store, migrates it and serves until ctx is done
func Run(ctx context.Context, cfg *config.Config, logger hclog.Logger) error {
	logger.Debug("loaded configuration", "config", cfg.String())

	st, err := OpenStore(ctx, cfg.Store, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Warn("close store", "error", err)
		}
	}()

	if err := st.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	srv, err := New(Options{
		Config: cfg,
		Store:  st,
		Logger: logger,
	})
	if err != nil {
		return err
	}

	return srv.Listen(ctx, cfg.Server.Addr())
}
