package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server         ServerConfig
	Database       DatabaseConfig
	Auth           AuthConfig
	Users          UsersConfig
	CORS           CORSConfig
	RateLimit      RateLimitConfig
	Logging        LoggingConfig
	Tracing        TracingConfig
	Audit          AuditConfig
	AdminBootstrap AdminBootstrapConfig
	Environment    string
}

type ServerConfig struct {
	Host string
	Port int
}

type DatabaseConfig struct {
	URL            string
	MaxConnections int
	MigrationsPath string
}

// AuthConfig describes the external auth provider.
// TokenVerifier selects how bearer tokens are checked: "jwt", "oidc" or "remote".
type AuthConfig struct {
	TokenVerifier string
	ProviderURL   string
	APIKey        string
	JWTSecret     string
	JWTAudience   string
	OIDCIssuer    string
	OIDCClientID  string
	Timeout       time.Duration
}

type UsersConfig struct {
	VerifyAtomic bool
	MaxPageSize  int
}

type CORSConfig struct {
	AllowAllOrigins bool
	AllowedOrigins  []string
}

type RateLimitConfig struct {
	PublicPerMinute   int
	AdminPerMinute    int
	LoginPer15Minutes int
	TrustedProxyCIDRs []string
}

type LoggingConfig struct {
	Level  string
	Format string
}

type TracingConfig struct {
	Enabled      bool
	Exporter     string
	ServiceName  string
	OTLPEndpoint string
	SampleRate   float64
}

// AuditConfig controls where verification decisions are published.
// NATSURL is optional; without it decisions are only logged.
type AuditConfig struct {
	NATSURL     string
	NATSSubject string
}

type AdminBootstrapConfig struct {
	AuthID string
}

func Load() (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvInt("SERVER_PORT", 8080),
		},
		Database: DatabaseConfig{
			URL:            getEnv("DATABASE_URL", ""),
			MaxConnections: getEnvInt("DATABASE_MAX_CONNECTIONS", 25),
			MigrationsPath: getEnv("DATABASE_MIGRATIONS_PATH", ""),
		},
		Auth: AuthConfig{
			TokenVerifier: strings.ToLower(getEnv("AUTH_TOKEN_VERIFIER", "jwt")),
			ProviderURL:   strings.TrimRight(getEnv("AUTH_PROVIDER_URL", ""), "/"),
			APIKey:        getEnv("AUTH_PROVIDER_API_KEY", ""),
			JWTSecret:     getEnv("AUTH_JWT_SECRET", ""),
			JWTAudience:   getEnv("AUTH_JWT_AUDIENCE", "authenticated"),
			OIDCIssuer:    getEnv("AUTH_OIDC_ISSUER", ""),
			OIDCClientID:  getEnv("AUTH_OIDC_CLIENT_ID", ""),
			Timeout:       time.Duration(getEnvInt("AUTH_PROVIDER_TIMEOUT_SECONDS", 10)) * time.Second,
		},
		Users: UsersConfig{
			VerifyAtomic: getEnvBool("USERS_VERIFY_ATOMIC", true),
			MaxPageSize:  getEnvInt("USERS_MAX_PAGE_SIZE", 100),
		},
		RateLimit: RateLimitConfig{
			PublicPerMinute:   getEnvInt("RATE_LIMIT_PUBLIC", 120),
			AdminPerMinute:    getEnvInt("RATE_LIMIT_ADMIN", 0),
			LoginPer15Minutes: getEnvInt("RATE_LIMIT_LOGIN", 5),
			TrustedProxyCIDRs: splitList(getEnv("TRUSTED_PROXY_CIDRS", "")),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Tracing: TracingConfig{
			Enabled:      getEnvBool("TRACING_ENABLED", false),
			Exporter:     getEnv("TRACING_EXPORTER", "stdout"),
			ServiceName:  getEnv("TRACING_SERVICE_NAME", "eventdesk"),
			OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			SampleRate:   getEnvFloat("TRACING_SAMPLE_RATE", 1.0),
		},
		Audit: AuditConfig{
			NATSURL:     getEnv("AUDIT_NATS_URL", ""),
			NATSSubject: getEnv("AUDIT_NATS_SUBJECT", "eventdesk.users.verified"),
		},
		AdminBootstrap: AdminBootstrapConfig{
			AuthID: getEnv("ADMIN_BOOTSTRAP_AUTH_ID", ""),
		},
		Environment: getEnv("ENVIRONMENT", "development"),
	}

	cfg.CORS = loadCORS(cfg.Environment)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks settings that cannot be defaulted.
func (c Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Auth.ProviderURL == "" {
		return fmt.Errorf("AUTH_PROVIDER_URL is required")
	}

	switch c.Auth.TokenVerifier {
	case "jwt":
		if c.Auth.JWTSecret == "" {
			return fmt.Errorf("AUTH_JWT_SECRET is required when AUTH_TOKEN_VERIFIER=jwt")
		}
	case "oidc":
		if c.Auth.OIDCIssuer == "" || c.Auth.OIDCClientID == "" {
			return fmt.Errorf("AUTH_OIDC_ISSUER and AUTH_OIDC_CLIENT_ID are required when AUTH_TOKEN_VERIFIER=oidc")
		}
	case "remote":
	default:
		return fmt.Errorf("unsupported AUTH_TOKEN_VERIFIER %q (must be jwt, oidc or remote)", c.Auth.TokenVerifier)
	}

	if c.Users.MaxPageSize <= 0 {
		return fmt.Errorf("USERS_MAX_PAGE_SIZE must be positive")
	}

	if !c.CORS.AllowAllOrigins && len(c.CORS.AllowedOrigins) == 0 {
		return fmt.Errorf("CORS_ALLOWED_ORIGINS is required in %s", c.Environment)
	}
	return nil
}

func loadCORS(environment string) CORSConfig {
	origins := splitList(getEnv("CORS_ALLOWED_ORIGINS", ""))
	switch environment {
	case "development", "test":
		if len(origins) == 0 {
			return CORSConfig{AllowAllOrigins: true}
		}
	}
	return CORSConfig{AllowedOrigins: origins}
}

func splitList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}
