// Package config provides application configuration loaded from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	App      AppConfig
	Log      LogConfig
	Batch    BatchConfig
	SMTP     SMTPConfig
	Storage  StorageConfig
	Auth     AuthConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string
	ReadTimeout  int // seconds
	WriteTimeout int // seconds
	IdleTimeout  int // seconds
}

// DatabaseConfig holds database connection settings.
// Driver is "postgres" (default) or "sqlite"; for sqlite only Path is used.
type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	Path     string
	Debug    bool
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Dev bool
	// Migrations selects the schema strategy: "auto" (gorm AutoMigrate),
	// "sql" (golang-migrate files in MigrationsDir) or "off".
	Migrations    string
	MigrationsDir string
	Seed          bool
	// Issuer details printed on every invoice.
	IssuerName    string
	IssuerAddress string
	IssuerGSTIN   string
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level  string
	Format string // json or text
}

// BatchConfig controls the monthly invoicing run.
type BatchConfig struct {
	Schedule         string
	SchedulerEnabled bool
	Workers          int
	RenderTimeout    time.Duration
	SendTimeout      time.Duration
}

// SMTPConfig is the fallback transport used when no email settings row is active.
type SMTPConfig struct {
	Host      string
	Port      int
	Secure    bool
	User      string
	Password  string
	FromEmail string
	FromName  string
	ReplyTo   string
}

// StorageConfig selects where rendered documents and uploaded templates live.
type StorageConfig struct {
	Driver    string // local or minio
	LocalDir  string
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// AuthConfig holds the operator credentials and session secret.
type AuthConfig struct {
	SessionSecret string
	Username      string
	PasswordHash  string
}

// DSN returns the PostgreSQL connection string in key=value format.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// URL returns the PostgreSQL connection string in URL format.
func (d DatabaseConfig) URL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// Load reads configuration from environment variables.
// It uses sensible defaults for local development.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			ReadTimeout:  getEnvInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout: getEnvInt("SERVER_WRITE_TIMEOUT", 120),
			IdleTimeout:  getEnvInt("SERVER_IDLE_TIMEOUT", 60),
		},
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", "postgres"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "invoices"),
			Password: getEnv("DB_PASSWORD", "invoices123"),
			DBName:   getEnv("DB_NAME", "invoices"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			Path:     getEnv("DB_PATH", "gst-invoices.db"),
			Debug:    getEnvBool("DB_DEBUG", false),
		},
		App: AppConfig{
			Dev:           getEnvBool("DEV", true),
			Migrations:    strings.ToLower(getEnv("MIGRATIONS", "auto")),
			MigrationsDir: getEnv("MIGRATIONS_DIR", "migrations"),
			Seed:          getEnvBool("DB_SEED", false),
			IssuerName:    getEnv("ISSUER_NAME", "GST Invoicing"),
			IssuerAddress: getEnv("ISSUER_ADDRESS", ""),
			IssuerGSTIN:   getEnv("ISSUER_GSTIN", ""),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Batch: BatchConfig{
			Schedule:         getEnv("BATCH_SCHEDULE", "0 9 1 * *"),
			SchedulerEnabled: getEnvBool("BATCH_SCHEDULER", true),
			Workers:          getEnvInt("BATCH_WORKERS", 1),
			RenderTimeout:    getEnvDuration("BATCH_RENDER_TIMEOUT", 30*time.Second),
			SendTimeout:      getEnvDuration("BATCH_SEND_TIMEOUT", 30*time.Second),
		},
		SMTP: SMTPConfig{
			Host:      getEnv("SMTP_HOST", "smtp.gmail.com"),
			Port:      getEnvInt("SMTP_PORT", 587),
			Secure:    getEnvBool("SMTP_SECURE", false),
			User:      getEnv("SMTP_USER", ""),
			Password:  getEnv("SMTP_PASSWORD", ""),
			FromEmail: getEnv("SMTP_FROM_EMAIL", ""),
			FromName:  getEnv("SMTP_FROM_NAME", "GST Invoicing"),
			ReplyTo:   getEnv("SMTP_REPLY_TO", ""),
		},
		Storage: StorageConfig{
			Driver:    getEnv("STORAGE_DRIVER", "local"),
			LocalDir:  getEnv("STORAGE_DIR", "data"),
			Endpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", "invoices"),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		Auth: AuthConfig{
			SessionSecret: getEnv("SESSION_SECRET", "devsessionsecret"),
			Username:      getEnv("OPERATOR_USERNAME", "admin"),
			PasswordHash:  getEnv("OPERATOR_PASSWORD_HASH", ""),
		},
	}
}

// Validate rejects configurations the application cannot start with.
func (c *Config) Validate() error {
	var errs []error
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER %q: must be postgres or sqlite", c.Database.Driver))
	}
	switch c.App.Migrations {
	case "auto", "sql", "off":
	default:
		errs = append(errs, fmt.Errorf("MIGRATIONS %q: must be auto, sql or off", c.App.Migrations))
	}
	switch c.Storage.Driver {
	case "local", "minio":
	default:
		errs = append(errs, fmt.Errorf("STORAGE_DRIVER %q: must be local or minio", c.Storage.Driver))
	}
	if c.Batch.Workers < 1 {
		errs = append(errs, errors.New("BATCH_WORKERS must be at least 1"))
	}
	if c.Batch.RenderTimeout <= 0 || c.Batch.SendTimeout <= 0 {
		errs = append(errs, errors.New("batch timeouts must be positive"))
	}
	if !c.App.Dev && c.Auth.SessionSecret == "devsessionsecret" {
		errs = append(errs, errors.New("SESSION_SECRET must be set outside dev mode"))
	}
	return errors.Join(errs...)
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the integer value of an environment variable or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

// getEnvBool returns the boolean value of an environment variable or a default.
// Accepts "1", "true", "yes" as true; everything else is false.
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "1" || value == "true" || value == "yes"
}

// getEnvDuration accepts Go durations ("45s") or a bare number of seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
