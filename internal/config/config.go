package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all onboarding server configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// HTTP / stdio surface
	Server ServerConfig `yaml:"server"`

	// Profile document store
	Store StoreConfig `yaml:"store"`

	// Widget resource metadata
	Widget WidgetConfig `yaml:"widget"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig configures the tool server transports.
type ServerConfig struct {
	Addr            string          `yaml:"addr"`
	Transport       string          `yaml:"transport"` // http, stdio
	EndpointPath    string          `yaml:"endpoint_path"`
	MaxConnections  int             `yaml:"max_connections"`
	ReadTimeout     string          `yaml:"read_timeout"`
	WriteTimeout    string          `yaml:"write_timeout"`
	ShutdownTimeout string          `yaml:"shutdown_timeout"`
	CORSOrigins     []string        `yaml:"cors_origins"`
	RateLimit       RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig configures the per-client token bucket.
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled"`
	RPS     float64 `yaml:"rps"`
	Burst   int     `yaml:"burst"`
	IdleTTL string  `yaml:"idle_ttl"`
}

// StoreConfig selects and configures the profile backend.
type StoreConfig struct {
	Backend    string `yaml:"backend"` // auto, firestore, postgres, redis, sqlite, memory
	Collection string `yaml:"collection"`
	OpTimeout  string `yaml:"op_timeout"`

	Firestore FirestoreConfig `yaml:"firestore"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Redis     RedisConfig     `yaml:"redis"`
	SQLite    SQLiteConfig    `yaml:"sqlite"`
}

// FirestoreConfig holds service account credentials. PrivateKey is never
// written back by Save.
type FirestoreConfig struct {
	ProjectID   string `yaml:"project_id"`
	ClientEmail string `yaml:"client_email"`
	PrivateKey  string `yaml:"-"`
	ForceKey    bool   `yaml:"force_key"`
	DatabaseID  string `yaml:"database_id"`
	MaxAttempts int    `yaml:"max_attempts"`
}

// HasCredentials reports whether all three service account values are set.
func (f FirestoreConfig) HasCredentials() bool {
	return f.ProjectID != "" && f.ClientEmail != "" && f.PrivateKey != ""
}

// PostgresConfig configures the pgx pool.
type PostgresConfig struct {
	URL        string `yaml:"url"`
	MaxConns   int32  `yaml:"max_conns"`
	MaxRetries int    `yaml:"max_retries"`
}

// RedisConfig configures the go-redis client.
type RedisConfig struct {
	Addr       string `yaml:"addr"`
	Password   string `yaml:"-"`
	DB         int    `yaml:"db"`
	MaxRetries int    `yaml:"max_retries"`
}

// SQLiteConfig configures the embedded backend.
type SQLiteConfig struct {
	Path   string `yaml:"path"`
	Driver string `yaml:"driver"` // sqlite (pure Go), sqlite3 (cgo)
}

// WidgetConfig is passed through to the widget resource _meta.
type WidgetConfig struct {
	Domain          string   `yaml:"domain"`
	ConnectDomains  []string `yaml:"connect_domains"`
	ResourceDomains []string `yaml:"resource_domains"`
	Description     string   `yaml:"description"`
	PrefersBorder   bool     `yaml:"prefers_border"`
	TemplatePath    string   `yaml:"template_path"`
}

// Store backends.
const (
	BackendAuto      = "auto"
	BackendFirestore = "firestore"
	BackendPostgres  = "postgres"
	BackendRedis     = "redis"
	BackendSQLite    = "sqlite"
	BackendMemory    = "memory"
)

// ValidBackends lists all supported store backends.
var ValidBackends = []string{BackendAuto, BackendFirestore, BackendPostgres, BackendRedis, BackendSQLite, BackendMemory}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "business-profile-onboarding",
		Version: "1.0.0",

		Server: ServerConfig{
			Addr:            ":8000",
			Transport:       "http",
			EndpointPath:    "/mcp",
			MaxConnections:  256,
			ReadTimeout:     "30s",
			WriteTimeout:    "0s",
			ShutdownTimeout: "10s",
			CORSOrigins:     []string{"*"},
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     20,
				Burst:   40,
				IdleTTL: "10m",
			},
		},

		Store: StoreConfig{
			Backend:    BackendAuto,
			Collection: "mcp_business_profiles",
			OpTimeout:  "10s",
			Firestore: FirestoreConfig{
				MaxAttempts: 5,
			},
			Postgres: PostgresConfig{
				MaxConns:   10,
				MaxRetries: 5,
			},
			Redis: RedisConfig{
				Addr:       "localhost:6379",
				MaxRetries: 10,
			},
			SQLite: SQLiteConfig{
				Path:   "data/onboarding.db",
				Driver: "sqlite",
			},
		},

		Widget: WidgetConfig{
			Domain:          "https://chatgpt.com",
			ResourceDomains: []string{"https://*.oaistatic.com"},
			Description:     "Guided business profile onboarding form that saves each field as you go.",
			PrefersBorder:   true,
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stderr",
		},
	}
}

// LoadDotEnv loads .env files into the process environment. A missing file
// is not an error; existing variables are never overwritten.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// Load loads configuration from a YAML file and applies environment
// overrides. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		case os.IsNotExist(err):
		default:
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	// Firestore service account
	if v := os.Getenv("FIREBASE_PROJECT_ID"); v != "" {
		c.Store.Firestore.ProjectID = v
	}
	if v := os.Getenv("FIREBASE_CLIENT_EMAIL"); v != "" {
		c.Store.Firestore.ClientEmail = v
	}
	if v := os.Getenv("FIREBASE_PRIVATE_KEY"); v != "" {
		// Keys pasted into .env files carry literal \n sequences.
		c.Store.Firestore.PrivateKey = strings.ReplaceAll(v, `\n`, "\n")
	}
	if v, ok := boolEnv("FIREBASE_FORCE_KEY"); ok {
		c.Store.Firestore.ForceKey = v
	}

	// Widget
	if v := os.Getenv("WIDGET_DOMAIN"); v != "" {
		c.Widget.Domain = v
	}
	if v, ok := os.LookupEnv("WIDGET_CONNECT_DOMAINS"); ok {
		c.Widget.ConnectDomains = splitList(v)
	}
	if v, ok := os.LookupEnv("WIDGET_RESOURCE_DOMAINS"); ok {
		c.Widget.ResourceDomains = splitList(v)
	}
	if v := os.Getenv("WIDGET_TEMPLATE_PATH"); v != "" {
		c.Widget.TemplatePath = v
	}

	// Server
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Addr = ":" + strings.TrimPrefix(v, ":")
	}
	if v := os.Getenv("ONBOARD_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("ONBOARD_TRANSPORT"); v != "" {
		c.Server.Transport = v
	}

	// Store
	if v := os.Getenv("ONBOARD_STORE"); v != "" {
		c.Store.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("ONBOARD_COLLECTION"); v != "" {
		c.Store.Collection = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Store.Postgres.URL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Store.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Store.Redis.Password = v
	}
	if v := os.Getenv("ONBOARD_SQLITE_PATH"); v != "" {
		c.Store.SQLite.Path = v
	}

	// Logging
	if v := os.Getenv("ONBOARD_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	valid := false
	for _, b := range ValidBackends {
		if c.Store.Backend == b {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("invalid store backend: %s (valid: %v)", c.Store.Backend, ValidBackends)
	}
	if strings.TrimSpace(c.Store.Collection) == "" {
		return fmt.Errorf("store collection must not be empty")
	}

	switch c.Store.Backend {
	case BackendPostgres:
		if c.Store.Postgres.URL == "" {
			return fmt.Errorf("postgres backend requires DATABASE_URL or store.postgres.url")
		}
	case BackendRedis:
		if c.Store.Redis.Addr == "" {
			return fmt.Errorf("redis backend requires REDIS_ADDR or store.redis.addr")
		}
	case BackendSQLite:
		if c.Store.SQLite.Driver != "sqlite" && c.Store.SQLite.Driver != "sqlite3" {
			return fmt.Errorf("invalid sqlite driver: %s (valid: sqlite, sqlite3)", c.Store.SQLite.Driver)
		}
	case BackendFirestore:
		if c.Store.Firestore.ForceKey && !c.Store.Firestore.HasCredentials() {
			return fmt.Errorf("FIREBASE_FORCE_KEY is set but FIREBASE_PROJECT_ID, FIREBASE_CLIENT_EMAIL and FIREBASE_PRIVATE_KEY are not all present")
		}
	}

	switch c.Server.Transport {
	case "http", "stdio":
	default:
		return fmt.Errorf("invalid transport: %s (valid: http, stdio)", c.Server.Transport)
	}
	if !strings.HasPrefix(c.Server.EndpointPath, "/") {
		return fmt.Errorf("endpoint path must start with /: %q", c.Server.EndpointPath)
	}
	return nil
}

// GetOpTimeout returns the per-operation store timeout.
func (c *Config) GetOpTimeout() time.Duration {
	return parseDuration(c.Store.OpTimeout, 10*time.Second)
}

// GetReadTimeout returns the HTTP read timeout.
func (c *Config) GetReadTimeout() time.Duration {
	return parseDuration(c.Server.ReadTimeout, 30*time.Second)
}

// GetWriteTimeout returns the HTTP write timeout. Zero disables it, which
// streaming transports need.
func (c *Config) GetWriteTimeout() time.Duration {
	return parseDuration(c.Server.WriteTimeout, 0)
}

// GetShutdownTimeout returns the graceful shutdown budget.
func (c *Config) GetShutdownTimeout() time.Duration {
	return parseDuration(c.Server.ShutdownTimeout, 10*time.Second)
}

// GetRateLimitIdleTTL returns how long an idle client bucket is kept.
func (c *Config) GetRateLimitIdleTTL() time.Duration {
	return parseDuration(c.Server.RateLimit.IdleTTL, 10*time.Minute)
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

func boolEnv(name string) (bool, bool) {
	raw, ok := os.LookupEnv(name)
	if !ok || strings.TrimSpace(raw) == "" {
		return false, false
	}
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return false, false
	}
	return v, true
}

// splitList parses a comma-separated env list, trimming entries and
// dropping blanks.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
