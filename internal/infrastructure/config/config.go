package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig encapsulates all runtime configuration knobs.
type AppConfig struct {
	App         AppSettings
	HTTP        HTTPSettings
	Auth        AuthSettings
	Log         LogSettings
	Database    DatabaseSettings
	DocDatabase DatabaseSettings
	Audit       AuditSettings
	ERP         ERPSettings
	ReceitaWS   ReceitaWSSettings
	Email       EmailSettings
	Report      ReportSettings
}

type AppSettings struct {
	Name        string
	Version     string
	Environment string
}

type HTTPSettings struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// AuthSettings selects between locally-issued HS256 sessions and an
// external JWKS issuer (SSO deployments).
type AuthSettings struct {
	Enabled     bool
	Mode        string // "local" or "jwks"
	JWTSecret   string
	IssuerURI   string
	JWKSetURI   string
	ClockSkew   time.Duration
	BypassPaths []string
}

type LogSettings struct {
	Level string
}

type DatabaseSettings struct {
	Host            string
	Port            int
	Database        string
	User            string
	Password        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type AuditSettings struct {
	Enabled         bool
	LogRequestBody  bool
	LogResponseBody bool
	MaxBodySize     int
}

// ERPSettings configures the TOTVS SOAP integration.
type ERPSettings struct {
	Enabled         bool
	SoapURL         string
	Username        string
	Password        string
	CodColigada     string
	Timeout         time.Duration
	WebhookURL      string
	DebugBufferSize int
}

type ReceitaWSSettings struct {
	BaseURL       string
	Timeout       time.Duration
	MaxConcurrent int
}

type EmailSettings struct {
	Enabled bool
	BaseURL string
	APIKey  string
	From    string
}

type ReportSettings struct {
	Workers int
}

// Load resolves the application configuration from environment variables.
// It first attempts to load variables from a .env file if it exists.
// Environment variables set in the system take precedence over .env file values.
func Load() (AppConfig, error) {
	_ = godotenv.Load()

	cfg := AppConfig{
		App: AppSettings{
			Name:        getEnv("APP_NAME", "simpledfe_core"),
			Version:     getEnv("APP_VERSION", "0.1.0"),
			Environment: getEnv("APP_ENV", "local"),
		},
		HTTP: HTTPSettings{
			Port:            getEnvAsInt("APP_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("HTTP_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvAsDuration("HTTP_WRITE_TIMEOUT", 60*time.Second),
			IdleTimeout:     getEnvAsDuration("HTTP_IDLE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: getEnvAsDuration("HTTP_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Auth: AuthSettings{
			Enabled:     getEnvAsBool("AUTH_ENABLED", true),
			Mode:        getEnv("AUTH_MODE", "local"),
			JWTSecret:   strings.TrimSpace(os.Getenv("JWT_SECRET")),
			IssuerURI:   strings.TrimSpace(os.Getenv("JWT_ISSUER_URI")),
			JWKSetURI:   strings.TrimSpace(os.Getenv("JWT_JWK_SET_URI")),
			ClockSkew:   getEnvAsDuration("AUTH_CLOCK_SKEW", 2*time.Minute),
			BypassPaths: getEnvAsCSV("AUTH_BYPASS_PATHS", []string{"/health", "/api/auth/login", "/api/auth/register", "/api/auth/forgot-password", "/api/auth/reset-password"}),
		},
		Log: LogSettings{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseSettings{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			Database:        getEnv("DB_NAME", "simpledfe_core"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", ""),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		DocDatabase: DatabaseSettings{
			Host:            getEnv("DOC_DB_HOST", "localhost"),
			Port:            getEnvAsInt("DOC_DB_PORT", 5432),
			Database:        getEnv("DOC_DB_NAME", "simpledfe_docs"),
			User:            getEnv("DOC_DB_USER", "postgres"),
			Password:        getEnv("DOC_DB_PASSWORD", ""),
			SSLMode:         getEnv("DOC_DB_SSL_MODE", "disable"),
			MaxOpenConns:    getEnvAsInt("DOC_DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvAsInt("DOC_DB_MAX_IDLE_CONNS", 2),
			ConnMaxLifetime: getEnvAsDuration("DOC_DB_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Audit: AuditSettings{
			Enabled:         getEnvAsBool("AUDIT_ENABLED", true),
			LogRequestBody:  getEnvAsBool("AUDIT_LOG_REQUEST_BODY", true),
			LogResponseBody: getEnvAsBool("AUDIT_LOG_RESPONSE_BODY", true),
			MaxBodySize:     getEnvAsInt("AUDIT_MAX_BODY_SIZE", 102400),
		},
		ERP: ERPSettings{
			Enabled:         getEnvAsBool("ERP_ENABLED", true),
			SoapURL:         strings.TrimSpace(os.Getenv("ERP_SOAP_URL")),
			Username:        strings.TrimSpace(os.Getenv("ERP_USERNAME")),
			Password:        strings.TrimSpace(os.Getenv("ERP_PASSWORD")),
			CodColigada:     getEnv("ERP_COD_COLIGADA", "1"),
			Timeout:         getEnvAsDuration("ERP_TIMEOUT", 30*time.Second),
			WebhookURL:      strings.TrimSpace(os.Getenv("ERP_WEBHOOK_URL")),
			DebugBufferSize: getEnvAsInt("ERP_DEBUG_BUFFER_SIZE", 10),
		},
		ReceitaWS: ReceitaWSSettings{
			BaseURL:       getEnv("RECEITAWS_BASE_URL", "https://receitaws.com.br/v1/cnpj"),
			Timeout:       getEnvAsDuration("RECEITAWS_TIMEOUT", 30*time.Second),
			MaxConcurrent: getEnvAsInt("RECEITAWS_MAX_CONCURRENT", 3),
		},
		Email: EmailSettings{
			Enabled: getEnvAsBool("EMAIL_ENABLED", false),
			BaseURL: getEnv("RESEND_BASE_URL", "https://api.resend.com"),
			APIKey:  strings.TrimSpace(os.Getenv("RESEND_API_KEY")),
			From:    getEnv("EMAIL_FROM", "SimpleDFe <noreply@simpledfe.com.br>"),
		},
		Report: ReportSettings{
			Workers: getEnvAsInt("REPORT_WORKERS", 4),
		},
	}

	if cfg.Auth.Enabled {
		switch cfg.Auth.Mode {
		case "local":
			if cfg.Auth.JWTSecret == "" {
				return cfg, errors.New("invalid config: JWT_SECRET is required when AUTH_MODE=local")
			}
		case "jwks":
			if cfg.Auth.IssuerURI == "" {
				return cfg, errors.New("invalid config: JWT_ISSUER_URI is required when AUTH_MODE=jwks")
			}
			if cfg.Auth.JWKSetURI == "" {
				return cfg, errors.New("invalid config: JWT_JWK_SET_URI is required when AUTH_MODE=jwks")
			}
		default:
			return cfg, fmt.Errorf("invalid config: AUTH_MODE must be 'local' or 'jwks', got %q", cfg.Auth.Mode)
		}
	}

	if cfg.ERP.Enabled {
		if cfg.ERP.SoapURL == "" {
			return cfg, errors.New("invalid config: ERP_SOAP_URL is required when ERP_ENABLED=true")
		}
		if cfg.ERP.Username == "" || cfg.ERP.Password == "" {
			return cfg, errors.New("invalid config: ERP_USERNAME and ERP_PASSWORD are required when ERP_ENABLED=true")
		}
	}

	if cfg.Email.Enabled && cfg.Email.APIKey == "" {
		return cfg, errors.New("invalid config: RESEND_API_KEY is required when EMAIL_ENABLED=true")
	}

	if cfg.Report.Workers < 1 {
		return cfg, errors.New("invalid config: REPORT_WORKERS must be greater than 0")
	}

	return cfg, nil
}

// Address returns the HTTP listen address in host:port form.
func (h HTTPSettings) Address() string {
	return fmt.Sprintf(":%d", h.Port)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsCSV(key string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			values = append(values, trimmed)
		}
	}
	if len(values) == 0 {
		return fallback
	}
	return values
}
