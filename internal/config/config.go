package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type AppConfig struct {
	Port        int      `yaml:"port"`
	GinMode     string   `yaml:"gin_mode"`
	LogLevel    string   `yaml:"log_level"`
	LogFormat   string   `yaml:"log_format"`
	CORSOrigins []string `yaml:"cors_origins"`
}

type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type JWTConfig struct {
	Secret string `yaml:"secret"`
	Issuer string `yaml:"issuer"`
	TTL    string `yaml:"ttl"`
}

type OTPConfig struct {
	TTL           string `yaml:"ttl"`
	Length        int    `yaml:"length"`
	MaxAttempts   int    `yaml:"max_attempts"`
	RequestWindow string `yaml:"request_window"`
	MaxRequests   int    `yaml:"max_requests"`
	LockoutTTL    string `yaml:"lockout_ttl"`
	Store         string `yaml:"store"`
}

type ReferralConfig struct {
	Bonus int64 `yaml:"bonus"`
}

type MailConfig struct {
	Provider       string `yaml:"provider"`
	From           string `yaml:"from"`
	FromName       string `yaml:"from_name"`
	Subject        string `yaml:"subject"`
	SMTPHost       string `yaml:"smtp_host"`
	SMTPPort       int    `yaml:"smtp_port"`
	SMTPUser       string `yaml:"smtp_user"`
	SMTPPassword   string `yaml:"smtp_password"`
	SendGridAPIKey string `yaml:"sendgrid_api_key"`
}

type GoogleConfig struct {
	ClientID string `yaml:"client_id"`
}

type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type ConfigFile struct {
	App       AppConfig       `yaml:"app"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	JWT       JWTConfig       `yaml:"jwt"`
	OTP       OTPConfig       `yaml:"otp"`
	Referral  ReferralConfig  `yaml:"referral"`
	Mail      MailConfig      `yaml:"mail"`
	Google    GoogleConfig    `yaml:"google"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

type Config struct {
	Port        string
	GinMode     string
	LogLevel    string
	LogFormat   string
	CORSOrigins []string

	DSN           string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret  string
	JWTIssuer  string
	SessionTTL time.Duration

	OTP_TTL           time.Duration
	OTP_Length        int
	OTP_MaxAttempts   int
	OTP_RequestWindow time.Duration
	OTP_MaxRequests   int
	OTP_Store         string
	LockoutTTL        time.Duration

	ReferralBonus int64

	MailProvider   string
	MailFrom       string
	MailFromName   string
	MailSubject    string
	SMTPHost       string
	SMTPPort       int
	SMTPUser       string
	SMTPPassword   string
	SendGridAPIKey string

	GoogleClientID string

	RateLimitRPS   float64
	RateLimitBurst int
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

// Defaults returns the file-level defaults every loaded config starts from
func Defaults() ConfigFile {
	return ConfigFile{
		App: AppConfig{
			Port:        5000,
			GinMode:     "release",
			LogLevel:    "info",
			LogFormat:   "text",
			CORSOrigins: []string{"http://localhost:5173"},
		},
		Redis: RedisConfig{Addr: "localhost:6379"},
		JWT: JWTConfig{
			Issuer: "veloop",
			TTL:    "168h",
		},
		OTP: OTPConfig{
			TTL:           "5m",
			Length:        4,
			MaxAttempts:   3,
			RequestWindow: "10m",
			MaxRequests:   3,
			LockoutTTL:    "24h",
			Store:         "memory",
		},
		Referral: ReferralConfig{Bonus: 137},
		Mail: MailConfig{
			Provider: "log",
			FromName: "VELoop",
			Subject:  "VELoop OTP Verification",
			SMTPHost: "smtp.gmail.com",
			SMTPPort: 587,
		},
		RateLimit: RateLimitConfig{RPS: 1, Burst: 5},
	}
}

// Load reads the YAML file at CONFIG_PATH (default config/config.yml),
// then applies .env and environment overrides. A missing file is allowed;
// defaults and the environment are then the only sources.
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	path := env("CONFIG_PATH", "config/config.yml")
	configFile, err := loadConfigFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	return FromFile(configFile)
}

// FromFile builds a Config from a parsed file plus environment overrides
func FromFile(configFile *ConfigFile) (*Config, error) {
	sessionTTL, err := time.ParseDuration(configFile.JWT.TTL)
	if err != nil {
		return nil, fmt.Errorf("invalid JWT TTL: %w", err)
	}

	otpTTL, err := time.ParseDuration(configFile.OTP.TTL)
	if err != nil {
		return nil, fmt.Errorf("invalid OTP TTL: %w", err)
	}

	window, err := time.ParseDuration(configFile.OTP.RequestWindow)
	if err != nil {
		return nil, fmt.Errorf("invalid OTP request window: %w", err)
	}

	lockout, err := time.ParseDuration(configFile.OTP.LockoutTTL)
	if err != nil {
		return nil, fmt.Errorf("invalid lockout TTL: %w", err)
	}

	origins := configFile.App.CORSOrigins
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		origins = strings.Split(v, ",")
	}

	cfg := &Config{
		Port:        env("PORT", fmt.Sprintf("%d", configFile.App.Port)),
		GinMode:     env("GIN_MODE", configFile.App.GinMode),
		LogLevel:    env("LOG_LEVEL", configFile.App.LogLevel),
		LogFormat:   env("LOG_FORMAT", configFile.App.LogFormat),
		CORSOrigins: origins,

		DSN:           env("DATABASE_DSN", configFile.Database.DSN),
		RedisAddr:     env("REDIS_ADDR", configFile.Redis.Addr),
		RedisPassword: env("REDIS_PASSWORD", configFile.Redis.Password),
		RedisDB:       envInt("REDIS_DB", configFile.Redis.DB),

		JWTSecret:  env("JWT_SECRET", configFile.JWT.Secret),
		JWTIssuer:  configFile.JWT.Issuer,
		SessionTTL: sessionTTL,

		OTP_TTL:           otpTTL,
		OTP_Length:        configFile.OTP.Length,
		OTP_MaxAttempts:   configFile.OTP.MaxAttempts,
		OTP_RequestWindow: window,
		OTP_MaxRequests:   configFile.OTP.MaxRequests,
		OTP_Store:         env("OTP_STORE", configFile.OTP.Store),
		LockoutTTL:        lockout,

		ReferralBonus: configFile.Referral.Bonus,

		MailProvider:   env("MAIL_PROVIDER", configFile.Mail.Provider),
		MailFrom:       env("EMAIL_USER", configFile.Mail.From),
		MailFromName:   configFile.Mail.FromName,
		MailSubject:    configFile.Mail.Subject,
		SMTPHost:       env("SMTP_HOST", configFile.Mail.SMTPHost),
		SMTPPort:       envInt("SMTP_PORT", configFile.Mail.SMTPPort),
		SMTPUser:       env("EMAIL_USER", configFile.Mail.SMTPUser),
		SMTPPassword:   env("EMAIL_PASS", configFile.Mail.SMTPPassword),
		SendGridAPIKey: env("SENDGRID_API_KEY", configFile.Mail.SendGridAPIKey),

		GoogleClientID: env("GOOGLE_CLIENT_ID", configFile.Google.ClientID),

		RateLimitRPS:   configFile.RateLimit.RPS,
		RateLimitBurst: configFile.RateLimit.Burst,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the service cannot start with
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("jwt secret is required (JWT_SECRET)")
	}
	if c.OTP_Length < 4 {
		return fmt.Errorf("otp length must be at least 4, got %d", c.OTP_Length)
	}
	if c.OTP_MaxAttempts < 1 || c.OTP_MaxRequests < 1 {
		return errors.New("otp max_attempts and max_requests must be positive")
	}
	if c.ReferralBonus < 0 {
		return errors.New("referral bonus must not be negative")
	}
	switch c.OTP_Store {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown otp store %q", c.OTP_Store)
	}
	switch c.MailProvider {
	case "log", "smtp", "sendgrid":
	default:
		return fmt.Errorf("unknown mail provider %q", c.MailProvider)
	}
	return nil
}

func loadConfigFile(path string) (*ConfigFile, error) {
	config := Defaults()

	bytes, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &config, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not read config file at %s: %w", path, err)
	}

	if err := yaml.Unmarshal(bytes, &config); err != nil {
		return nil, fmt.Errorf("could not parse config yaml: %w", err)
	}

	return &config, nil
}
