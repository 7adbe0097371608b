package app

import (
	"context"
	"fmt"

	"github.com/Ayan-Alam-07/VELoop-Backend/domain"
	"github.com/Ayan-Alam-07/VELoop-Backend/internal/config"
	"github.com/Ayan-Alam-07/VELoop-Backend/internal/infrastructure/auth"
	"github.com/Ayan-Alam-07/VELoop-Backend/internal/infrastructure/database"
	"github.com/Ayan-Alam-07/VELoop-Backend/internal/infrastructure/metrics"
	"github.com/Ayan-Alam-07/VELoop-Backend/internal/infrastructure/notifications"
	"github.com/Ayan-Alam-07/VELoop-Backend/internal/infrastructure/repositories"
	"github.com/Ayan-Alam-07/VELoop-Backend/internal/infrastructure/verification"
	"github.com/Ayan-Alam-07/VELoop-Backend/internal/services"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Container holds all dependencies
type Container struct {
	Config  *config.Config
	Logger  *logrus.Logger
	Metrics *metrics.Recorder

	// Infrastructure
	DB          *gorm.DB
	RedisClient *redis.Client
	Store       domain.VerificationStore

	// Repositories
	Accounts domain.AccountRepository
	Sessions domain.SessionRepository

	// Services
	Passwords   domain.PasswordService
	Tokens      domain.TokenService
	Notifier    domain.Notifier
	Federated   domain.FederatedVerifier
	Audit       domain.AuditLogger
	Lockout     domain.LockoutPolicy
	Ledger      domain.VerificationLedger
	Identifiers domain.IdentifierGenerator
	Referrals   domain.ReferralEngine
	Onboarding  domain.OnboardingService
}

// NewContainer creates and initializes all dependencies
func NewContainer(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*Container, error) {
	c := &Container{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics.New(),
	}

	if err := c.initDatabase(); err != nil {
		return nil, err
	}
	if err := c.initRedis(ctx); err != nil {
		c.Close()
		return nil, err
	}
	c.initRepositories()
	if err := c.initServices(); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Container) initDatabase() error {
	db, err := database.Open(c.Config.DSN)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	c.DB = db

	if err := database.Ping(db); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		return err
	}
	return nil
}

func (c *Container) initRedis(ctx context.Context) error {
	client, err := database.OpenRedis(ctx, c.Config.RedisAddr, c.Config.RedisPassword, c.Config.RedisDB)
	if err != nil {
		return err
	}
	c.RedisClient = client
	return nil
}

func (c *Container) initRepositories() {
	c.Accounts = repositories.NewAccountRepository(c.DB)
	c.Sessions = repositories.NewSessionRepository(c.RedisClient, c.Config.SessionTTL)

	if c.Config.OTP_Store == "redis" {
		c.Store = verification.NewRedisStore(c.RedisClient, "veloop:")
	} else {
		c.Store = verification.NewMemoryStore()
	}
}

func (c *Container) initServices() error {
	cfg := c.Config

	c.Passwords = auth.NewPasswordService()
	c.Tokens = auth.NewJWTService(cfg.JWTSecret, cfg.JWTIssuer, cfg.SessionTTL)
	if cfg.GoogleClientID == "" {
		c.Logger.Warn("GOOGLE_CLIENT_ID is not set; Google sign-in will reject every token")
	}
	c.Federated = auth.NewGoogleVerifier(cfg.GoogleClientID)

	notifier, err := notifications.New(cfg, c.Logger)
	if err != nil {
		return err
	}
	c.Notifier = notifier

	c.Audit = services.NewAuditLogger(c.Logger)
	c.Lockout = services.NewLockoutPolicy(c.Accounts, c.Store, cfg.LockoutTTL, nil)
	c.Ledger = services.NewVerificationLedger(c.Store, c.Accounts, c.Lockout, c.Audit, c.Metrics, services.LedgerConfig{
		CodeLength:    cfg.OTP_Length,
		CodeTTL:       cfg.OTP_TTL,
		MaxAttempts:   cfg.OTP_MaxAttempts,
		RequestWindow: cfg.OTP_RequestWindow,
		MaxRequests:   cfg.OTP_MaxRequests,
	}, nil)
	c.Identifiers = services.NewIdentifierGenerator(c.Accounts, services.DefaultMaxAllocationAttempts)
	c.Referrals = services.NewReferralEngine(c.Accounts, c.Audit, c.Metrics, cfg.ReferralBonus, nil)

	onboarding := services.DefaultOnboardingConfig()
	if cfg.MailSubject != "" {
		onboarding.RegisterSubject = cfg.MailSubject
	}
	c.Onboarding = services.NewOnboardingService(services.OnboardingDeps{
		Accounts:    c.Accounts,
		Sessions:    c.Sessions,
		Ledger:      c.Ledger,
		Lockout:     c.Lockout,
		Identifiers: c.Identifiers,
		Referrals:   c.Referrals,
		Passwords:   c.Passwords,
		Tokens:      c.Tokens,
		Notifier:    c.Notifier,
		Federated:   c.Federated,
		Audit:       c.Audit,
		Metrics:     c.Metrics,
		Logger:      c.Logger,
	}, onboarding)
	return nil
}

// Close closes all connections
func (c *Container) Close() error {
	if c.RedisClient != nil {
		c.RedisClient.Close()
	}

	if c.DB != nil {
		sqlDB, err := c.DB.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}

	return nil
}
