package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultRedirectURL     = "http://localhost:8501"
	defaultSecretsFile     = "secrets.yaml"
	defaultSessionIdleTime = 12 * time.Hour
)

// Config aggregates runtime configuration for the Planos services.
type Config struct {
	Environment    string
	HTTPPort       int
	DatabaseURL    string
	DataStore      string
	SQLitePath     string
	LogLevel       string
	AllowedOrigins []string

	GoogleClientID       string
	GoogleClientSecret   string
	GoogleRedirectURL    string
	GoogleAllowedDomains []string
	GoogleAllowedEmails  []string

	// DisableOAuth is the normalized feature flag. It is true when the secrets file
	// disables OAuth or the PLANOS_DISABLE_OAUTH override is set.
	DisableOAuth bool

	SessionIdleTimeout time.Duration
}

// secretsFile mirrors the sections of the optional YAML secrets file.
type secretsFile struct {
	GoogleOAuth struct {
		ClientID       string   `yaml:"client_id"`
		ClientSecret   string   `yaml:"client_secret"`
		RedirectURI    string   `yaml:"redirect_uri"`
		AllowedDomains []string `yaml:"allowed_domains"`
		AllowedEmails  []string `yaml:"allowed_emails"`
	} `yaml:"google_oauth"`
	FeatureFlags struct {
		DisableOAuth string `yaml:"disable_oauth"`
	} `yaml:"feature_flags"`
}

// Load reads configuration from environment variables and the optional secrets file
// with sensible defaults for local development.
func Load() (Config, error) {
	secrets, err := loadSecretsFile(getEnv("PLANOS_SECRETS_FILE", defaultSecretsFile))
	if err != nil {
		return Config{}, err
	}

	databaseURL, err := getEnvOrFile("DATABASE_URL", "/run/secrets/planos_database_url")
	if err != nil {
		return Config{}, err
	}

	clientSecret, err := getEnvOrFile("AUTH_GOOGLE_CLIENT_SECRET", "")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Environment:    strings.ToLower(getEnv("APP_ENV", "development")),
		DatabaseURL:    databaseURL,
		DataStore:      strings.ToLower(getEnv("DATA_STORE", "sqlite")),
		SQLitePath:     getEnv("SQLITE_PATH", "planos.db"),
		LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", "info")),
		AllowedOrigins: parseCSV(getEnv("ALLOWED_ORIGINS", "http://localhost:8501")),

		GoogleClientID:       strings.TrimSpace(getEnv("AUTH_GOOGLE_CLIENT_ID", secrets.GoogleOAuth.ClientID)),
		GoogleClientSecret:   strings.TrimSpace(firstNonEmpty(clientSecret, secrets.GoogleOAuth.ClientSecret)),
		GoogleRedirectURL:    getEnv("AUTH_GOOGLE_REDIRECT_URL", firstNonEmpty(secrets.GoogleOAuth.RedirectURI, defaultRedirectURL)),
		GoogleAllowedDomains: mergeLists(parseCSV(os.Getenv("AUTH_GOOGLE_ALLOWED_DOMAINS")), secrets.GoogleOAuth.AllowedDomains),
		GoogleAllowedEmails:  mergeLists(parseCSV(os.Getenv("AUTH_GOOGLE_ALLOWED_EMAILS")), secrets.GoogleOAuth.AllowedEmails),

		DisableOAuth: ParseFlag(secrets.FeatureFlags.DisableOAuth) || ParseFlag(os.Getenv("PLANOS_DISABLE_OAUTH")),
	}

	portValue := getEnv("PORT", getEnv("HTTP_PORT", "8501"))
	port, err := strconv.Atoi(portValue)
	if err != nil {
		return Config{}, fmt.Errorf("invalid port %q: %w", portValue, err)
	}
	cfg.HTTPPort = port

	idleValue := getEnv("SESSION_IDLE_TIMEOUT", defaultSessionIdleTime.String())
	idle, err := time.ParseDuration(idleValue)
	if err != nil || idle <= 0 {
		return Config{}, fmt.Errorf("invalid SESSION_IDLE_TIMEOUT %q", idleValue)
	}
	cfg.SessionIdleTimeout = idle

	switch cfg.DataStore {
	case "sqlite", "memory":
	case "postgres":
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATA_STORE is postgres but DATABASE_URL is not set")
		}
	default:
		return Config{}, fmt.Errorf("unsupported DATA_STORE %q", cfg.DataStore)
	}

	return cfg, nil
}

// HTTPAddress returns the address the HTTP server should bind to.
func (c Config) HTTPAddress() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// UseInMemoryStore returns true if the in-memory repositories should be used.
func (c Config) UseInMemoryStore() bool {
	return c.DataStore == "memory"
}

// HasOAuthCredentials reports whether both Google client credentials are configured.
func (c Config) HasOAuthCredentials() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

// OAuthAvailable reports whether the login prompt should be offered instead of guest mode.
func (c Config) OAuthAvailable() bool {
	return c.HasOAuthCredentials() && !c.DisableOAuth
}

// IsDevelopment reports whether the service runs in the development environment.
func (c Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// ParseFlag normalizes a boolean-ish configuration value. "1", "true", "yes" and "on"
// are true in any case; everything else is false.
func ParseFlag(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func loadSecretsFile(path string) (secretsFile, error) {
	var secrets secretsFile
	if strings.TrimSpace(path) == "" {
		return secrets, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return secrets, nil
		}
		return secrets, fmt.Errorf("config: reading secrets file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &secrets); err != nil {
		return secrets, fmt.Errorf("config: parsing secrets file %s: %w", path, err)
	}
	return secrets, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func parseCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func mergeLists(primary, fallback []string) []string {
	if len(primary) > 0 {
		return primary
	}
	out := make([]string, 0, len(fallback))
	for _, v := range fallback {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnvOrFile(key, defaultPath string) (string, error) {
	if value := os.Getenv(key); value != "" {
		return value, nil
	}

	fileKey := key + "_FILE"
	if path := os.Getenv(fileKey); path != "" {
		return readSecret(path, fileKey)
	}

	if defaultPath != "" {
		return readSecret(defaultPath, key)
	}

	return "", nil
}

func readSecret(path, name string) (string, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("config: reading %s (%s): %w", name, path, err)
	}

	value := strings.TrimSpace(string(contents))
	if value == "" {
		return "", fmt.Errorf("config: %s (%s) is empty", name, path)
	}
	return value, nil
}
