// Package api provides the HTTP REST API server.
package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/good-yellow-bee/taskboard/internal/api/auth"
	"github.com/good-yellow-bee/taskboard/internal/api/health"
	"github.com/good-yellow-bee/taskboard/internal/api/middleware"
	"github.com/good-yellow-bee/taskboard/internal/security"
	"github.com/good-yellow-bee/taskboard/internal/service"
	"github.com/good-yellow-bee/taskboard/internal/storage"
)

// Config contains HTTP API server configuration.
type Config struct {
	Address          string
	JWTSecret        []byte
	HTTPTLSEnabled   bool   // Enable HTTPS for API server
	HTTPTLSCertFile  string // HTTPS certificate file
	HTTPTLSKeyFile   string // HTTPS private key file
	AccessTokenTTL   time.Duration
	RefreshTokenTTL  time.Duration
	RateLimitPerIP   int // requests per minute on the public user endpoints
	RateLimitPerUser int // requests per minute per authenticated user
	LockoutThreshold int
	LockoutDuration  time.Duration
	RequestTimeout   time.Duration
	JanitorInterval  time.Duration // sweep period for lockouts, limiter keys and expired tokens
	ShutdownTimeout  time.Duration

	// RequireTaskMembership limits task operations to project owners and
	// members. When false, task listing is public.
	RequireTaskMembership bool

	// StrictPasswords enforces the password complexity policy.
	StrictPasswords bool

	// TrustProxyHeaders takes the client IP from X-Forwarded-For and
	// X-Real-IP instead of the connection address.
	TrustProxyHeaders bool

	Verbose bool
}

// SetDefaults applies default values for missing configuration.
func (c *Config) SetDefaults() {
	if c.Address == "" {
		c.Address = ":8000"
	}
	if c.AccessTokenTTL == 0 {
		c.AccessTokenTTL = 30 * time.Minute
	}
	if c.RefreshTokenTTL == 0 {
		c.RefreshTokenTTL = 7 * 24 * time.Hour // 7 days
	}
	if c.RateLimitPerIP == 0 {
		c.RateLimitPerIP = 20
	}
	if c.RateLimitPerUser == 0 {
		c.RateLimitPerUser = 300
	}
	if c.LockoutThreshold == 0 {
		c.LockoutThreshold = 5 // 5 failed attempts
	}
	if c.LockoutDuration == 0 {
		c.LockoutDuration = 15 * time.Minute
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 10 * time.Second
	}
	if c.JanitorInterval == 0 {
		c.JanitorInterval = 5 * time.Minute
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
}

// Server is the HTTP API server.
type Server struct {
	config        *Config
	storage       storage.Storage
	services      *service.Services
	jwt           *auth.JWTService
	lockout       *auth.LockoutTracker
	ipLimiter     *middleware.RateLimiter
	userLimiter   *middleware.RateLimiter
	server        *http.Server
	healthHandler *health.Handler
}

// New creates a new API server over an opened and migrated store.
func New(cfg *Config, store storage.Storage) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if store == nil {
		return nil, fmt.Errorf("storage is required")
	}
	if len(cfg.JWTSecret) == 0 {
		return nil, fmt.Errorf("JWT secret is required")
	}

	cfg.SetDefaults()

	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.AccessTokenTTL)
	lockout := auth.NewLockoutTracker(cfg.LockoutThreshold, cfg.LockoutDuration)

	s := &Server{
		config:  cfg,
		storage: store,
		services: service.New(store, service.Options{
			JWT:                   jwtService,
			Tokens:                auth.NewTokenService(cfg.RefreshTokenTTL),
			Lockout:               lockout,
			RequireTaskMembership: cfg.RequireTaskMembership,
			StrictPasswords:       cfg.StrictPasswords,
		}),
		jwt:           jwtService,
		lockout:       lockout,
		ipLimiter:     middleware.NewRateLimiter(cfg.RateLimitPerIP),
		userLimiter:   middleware.NewRateLimiter(cfg.RateLimitPerUser),
		healthHandler: health.NewHandler(),
	}

	s.healthHandler.RegisterChecker(health.NewSQLiteChecker(store.DB()))
	s.healthHandler.RegisterChecker(health.NewFuncChecker("migrations", func(ctx context.Context) error {
		return storage.CheckSchema(ctx, store.DB())
	}))

	s.server = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.setupRouter(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}
	if cfg.HTTPTLSEnabled {
		tlsConfig, err := security.LoadServerTLS(cfg.HTTPTLSCertFile, cfg.HTTPTLSKeyFile)
		if err != nil {
			return nil, fmt.Errorf("load TLS: %w", err)
		}
		s.server.TLSConfig = tlsConfig
	}

	return s, nil
}

// Run starts the HTTP server and the background janitors and blocks until
// ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.lockout.Run(ctx, s.config.JanitorInterval)
		return nil
	})
	g.Go(func() error {
		s.ipLimiter.Run(ctx, s.config.JanitorInterval)
		return nil
	})
	g.Go(func() error {
		s.userLimiter.Run(ctx, s.config.JanitorInterval)
		return nil
	})
	g.Go(func() error {
		s.cleanupTokens(ctx)
		return nil
	})

	g.Go(func() error {
		log.Printf("HTTP API listening on %s", s.config.Address)
		var err error
		if s.config.HTTPTLSEnabled {
			// certificates come from TLSConfig
			err = s.server.ListenAndServeTLS("", "")
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Printf("shutting down HTTP API server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// cleanupTokens deletes expired and revoked refresh tokens until ctx is done.
func (s *Server) cleanupTokens(ctx context.Context) {
	ticker := time.NewTicker(s.config.JanitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.services.Users.CleanupTokens(ctx)
			if err != nil {
				log.Printf("token cleanup error: %v", err)
				continue
			}
			if n > 0 && s.config.Verbose {
				log.Printf("token cleanup: removed %d refresh tokens", n)
			}
		}
	}
}
