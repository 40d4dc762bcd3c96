package config

import (
	"ProctorGuard/database/postgres"
	proctorHandler "ProctorGuard/internal/api/proctor/handler"
	proctorRepository "ProctorGuard/internal/api/proctor/repository"
	proctorService "ProctorGuard/internal/api/proctor/service"
	"ProctorGuard/internal/middleware"
	"ProctorGuard/pkg/metrics"
	"ProctorGuard/pkg/proctor"
	"ProctorGuard/pkg/redis"
	"ProctorGuard/pkg/s3"
	"ProctorGuard/pkg/smtp"
	"ProctorGuard/pkg/utils"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

type ServerOption func(*Server) error

type Server struct {
	engine        *fiber.App
	db            *sqlx.DB
	log           *logrus.Logger
	middleware    middleware.Middleware
	validator     *validator.Validate
	utils         utils.IUtils
	handlers      []handler
	redisServer   redis.IRedis
	s3Client      s3.ItfS3
	smtpClient    smtp.ItfSmtp
	proctorEngine *proctor.Engine
	proctorConfig ProctorConfig
	metrics       *metrics.Metrics
}

type handler interface {
	Start(srv fiber.Router)
}

func NewServer(options ...ServerOption) (*Server, error) {
	server := &Server{}

	for _, option := range options {
		if err := option(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if server.engine == nil {
		return nil, fmt.Errorf("fiber app is required")
	}
	if server.log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if server.proctorEngine == nil {
		return nil, fmt.Errorf("proctoring engine is required")
	}

	return server, nil
}

func WithFiber(fiberApp *fiber.App) ServerOption {
	return func(s *Server) error {
		s.engine = fiberApp
		return nil
	}
}

func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) error {
		s.log = logger
		return nil
	}
}

func WithValidator(validator *validator.Validate) ServerOption {
	return func(s *Server) error {
		s.validator = validator
		return nil
	}
}

func WithDatabase() ServerOption {
	return func(s *Server) error {
		db, err := postgres.New()
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to connect to database: %v", err)
			}
			return fmt.Errorf("failed to create database connection: %w", err)
		}

		if os.Getenv("DB_AUTO_MIGRATE") == "true" {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := postgres.Migrate(ctx, db); err != nil {
				_ = db.Close()
				return fmt.Errorf("failed to migrate database: %w", err)
			}
		}

		s.db = db
		return nil
	}
}

func WithRedisServer(redisServer redis.IRedis) ServerOption {
	return func(s *Server) error {
		s.redisServer = redisServer
		return nil
	}
}

func WithMiddleware() ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before middleware")
		}
		s.middleware = middleware.New(s.log)
		return nil
	}
}

// WithS3Client is only needed when evidence upload is enabled.
func WithS3Client() ServerOption {
	return func(s *Server) error {
		client, err := s3.New()
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to initialize S3 client: %v", err)
			}
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		s.s3Client = client
		return nil
	}
}

// WithSmtp is only needed when ALERT_EMAILS is set.
func WithSmtp() ServerOption {
	return func(s *Server) error {
		client, err := smtp.New()
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to initialize SMTP client: %v", err)
			}
			return fmt.Errorf("failed to create SMTP client: %w", err)
		}
		s.smtpClient = client
		return nil
	}
}

func WithProctorEngine(cfg ProctorConfig) ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before the proctoring engine")
		}
		engine, err := NewProctorEngine(cfg, s.log)
		if err != nil {
			s.log.Errorf("Failed to create proctoring engine: %v", err)
			return fmt.Errorf("failed to create proctoring engine: %w", err)
		}
		s.proctorEngine = engine
		s.proctorConfig = cfg
		return nil
	}
}

func WithMetrics(m *metrics.Metrics) ServerOption {
	return func(s *Server) error {
		s.metrics = m
		return nil
	}
}

func WithUtils() ServerOption {
	return func(s *Server) error {
		s.utils = utils.New()
		return nil
	}
}

func (s *Server) RegisterHandler() {
	if s.metrics == nil {
		s.metrics = metrics.New()
	}

	// Proctoring Domain
	proctorRepo := proctorRepository.New(s.db, s.log)
	proctorServices := proctorService.NewProctorService(
		s.log,
		s.proctorEngine,
		proctorRepo,
		s.redisServer,
		s.s3Client,
		s.metrics,
		s.utils,
		proctorService.Options{
			EvidenceUpload:  s.proctorConfig.EvidenceUpload,
			LiveStatusTTL:   s.proctorConfig.LiveStatusTTL,
			Alerts:          s.smtpClient,
			AlertRecipients: s.proctorConfig.AlertRecipients,
		},
	)
	proctorHandlers := proctorHandler.New(s.log, s.validator, s.middleware, proctorServices, s.utils)

	s.setupHealthCheck()
	s.engine.Get("/metrics", adaptor.HTTPHandler(s.metrics.Handler()))
	s.handlers = append(s.handlers, proctorHandlers)
}

func (s *Server) Run() error {
	s.engine.Use(s.middleware.NewRequestIDMiddleware())
	s.engine.Use(s.middleware.NewLoggingMiddleware())
	router := s.engine.Group("/api/v1")

	for _, h := range s.handlers {
		h.Start(router)
	}

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "3000"
	}

	return s.engine.Listen(fmt.Sprintf(":%s", port))
}

// Shutdown stops accepting requests, then releases the engine's models and
// the storage clients.
func (s *Server) Shutdown(timeout time.Duration) error {
	var errs []error

	if err := s.engine.ShutdownWithTimeout(timeout); err != nil {
		errs = append(errs, fmt.Errorf("fiber: %w", err))
	}
	if err := s.proctorEngine.Close(); err != nil {
		errs = append(errs, fmt.Errorf("engine: %w", err))
	}
	if s.redisServer != nil {
		if err := s.redisServer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("database: %w", err))
		}
	}

	return errors.Join(errs...)
}

func (s *Server) setupHealthCheck() {
	s.engine.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.JSON(fiber.Map{
			"message": "Server is Healthy!",
		})
	})
}
