// Package config loads the service configuration with koanf. Sources are
// layered: built-in defaults, configs/base.yaml, configs/<profile>.yaml and
// finally APP_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix marks the environment variables Load reads. A double underscore
// separates nesting levels (APP_ENGINE__RETRY__MAX_ATTEMPTS); with a single
// underscore only the first one does (APP_STORE_AUTO_MIGRATE).
const EnvPrefix = "APP_"

// EnvConfigDir overrides the directory holding base.yaml and the profiles.
const EnvConfigDir = EnvPrefix + "CONFIG_DIR"

const defaultConfigDir = "configs"

const (
	DefaultServerPort     = 8080
	DefaultMaxRequestSize = 1 << 20

	// DefaultRetryMaxAttempts counts the first try of a conflicting transaction.
	DefaultRetryMaxAttempts  = 3
	DefaultRetryMultiplier   = 2.0
	DefaultRetryJitterFactor = 0.25

	DefaultCircuitMaxFailures   = 5
	DefaultCircuitHalfOpenLimit = 3

	DefaultStoreMaxOpenConns = 10
	DefaultExportConcurrency = 4

	DefaultLogFileMaxSizeMB  = 100
	DefaultLogFileMaxBackups = 3
	DefaultLogFileMaxAgeDays = 28
)

// Config is the whole service configuration. The koanf tags double as the
// field names in validation messages.
type Config struct {
	App       AppConfig       `koanf:"app"       validate:"required"`
	Server    ServerConfig    `koanf:"server"    validate:"required"`
	Log       LogConfig       `koanf:"log"       validate:"required"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Auth      AuthConfig      `koanf:"auth"      validate:"required"`
	Store     StoreConfig     `koanf:"store"     validate:"required"`
	Engine    EngineConfig    `koanf:"engine"    validate:"required"`
	Audit     AuditConfig     `koanf:"audit"     validate:"required"`
	Archive   ArchiveConfig   `koanf:"archive"`
	AWS       AWSConfig       `koanf:"aws"`

	// Features holds static feature flag values keyed by flag name.
	// A key of the form "<flag>@<tenant>" overrides the flag for one tenant.
	Features map[string]bool `koanf:"features"`
}

// AppConfig names the deployment.
type AppConfig struct {
	Name        string `koanf:"name"        validate:"required"`
	Version     string `koanf:"version"     validate:"required"`
	Environment string `koanf:"environment" validate:"required,oneof=local dev qa prod test"`
}

// ServerConfig configures the HTTP listener. RequestTimeout bounds each
// /api/v1 request; probes are not bounded.
type ServerConfig struct {
	Port            int           `koanf:"port"             validate:"required,min=1,max=65535"`
	Host            string        `koanf:"host"             validate:"required"`
	ReadTimeout     time.Duration `koanf:"read_timeout"     validate:"required,min=1s"`
	WriteTimeout    time.Duration `koanf:"write_timeout"    validate:"required,min=1s"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"     validate:"required,min=1s"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"required,min=1s"`
	MaxRequestSize  int64         `koanf:"max_request_size" validate:"required,min=1"`
	RequestTimeout  time.Duration `koanf:"request_timeout"  validate:"required,min=100ms"`
}

// LogConfig configures the slog pipeline.
type LogConfig struct {
	Level  string        `koanf:"level"  validate:"required,oneof=trace debug info warn error"`
	Format string        `koanf:"format" validate:"required,oneof=json text pretty"`
	File   LogFileConfig `koanf:"file"`
}

// LogFileConfig adds a lumberjack-rotated JSON copy of the log.
type LogFileConfig struct {
	Enabled    bool   `koanf:"enabled"`
	Path       string `koanf:"path"       validate:"required_if=Enabled true"`
	MaxSizeMB  int    `koanf:"max_size"   validate:"omitempty,min=1,max=1024"`
	MaxBackups int    `koanf:"max_backups" validate:"omitempty,min=0,max=100"`
	MaxAgeDays int    `koanf:"max_age"    validate:"omitempty,min=0,max=365"`
	Compress   bool   `koanf:"compress"`
}

// TelemetryConfig configures OTLP trace export. Metrics are always served on /-/metrics.
type TelemetryConfig struct {
	Enabled      bool    `koanf:"enabled"`
	Endpoint     string  `koanf:"endpoint"      validate:"required_if=Enabled true,omitempty,hostname_port"`
	Insecure     bool    `koanf:"insecure"`
	ServiceName  string  `koanf:"service_name"  validate:"required_if=Enabled true"`
	SamplingRate float64 `koanf:"sampling_rate" validate:"min=0,max=1"`
}

// AuthConfig contains the gateway header names the service trusts.
type AuthConfig struct {
	RolesHeader   string `koanf:"roles_header"`
	ScopesHeader  string `koanf:"scopes_header"`
	SubjectHeader string `koanf:"subject_header" validate:"required"`
	TenantHeader  string `koanf:"tenant_header"  validate:"required"`
}

// StoreConfig selects and configures the revision store.
type StoreConfig struct {
	Driver          string        `koanf:"driver"            validate:"required,oneof=memory sqlite postgres"`
	DSN             string        `koanf:"dsn"               validate:"required_unless=Driver memory"`
	MaxOpenConns    int           `koanf:"max_open_conns"    validate:"min=0,max=1000"`
	MaxIdleConns    int           `koanf:"max_idle_conns"    validate:"min=0,max=1000"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	AutoMigrate     bool          `koanf:"auto_migrate"`
}

// EngineConfig contains revision engine settings.
type EngineConfig struct {
	// Retry governs re-running a transaction that failed with a conflict.
	Retry RetryConfig `koanf:"retry" validate:"required"`

	// ExportConcurrency bounds how many lineages a bundle export writes at once.
	ExportConcurrency int `koanf:"export_concurrency" validate:"required,min=1,max=64"`
}

// RetryConfig contains retry settings.
type RetryConfig struct {
	MaxAttempts     int           `koanf:"max_attempts"     validate:"required,min=1,max=10"`
	InitialInterval time.Duration `koanf:"initial_interval" validate:"required,min=1ms"`
	MaxInterval     time.Duration `koanf:"max_interval"     validate:"required,min=1ms"`
	Multiplier      float64       `koanf:"multiplier"       validate:"required,min=1.1,max=10"`
	JitterFactor    float64       `koanf:"jitter_factor"    validate:"min=0,max=1"`
}

// AuditConfig selects the audit event sink.
type AuditConfig struct {
	Driver         string               `koanf:"driver"          validate:"required,oneof=log dynamodb none"`
	Table          string               `koanf:"table"           validate:"required_if=Driver dynamodb"`
	Timeout        time.Duration        `koanf:"timeout"         validate:"required,min=100ms"`
	CircuitBreaker CircuitBreakerConfig `koanf:"circuit_breaker" validate:"required"`
}

// CircuitBreakerConfig contains circuit breaker settings.
type CircuitBreakerConfig struct {
	MaxFailures   int           `koanf:"max_failures"    validate:"required,min=1"`
	Timeout       time.Duration `koanf:"timeout"         validate:"required,min=1s"`
	HalfOpenLimit int           `koanf:"half_open_limit" validate:"required,min=1"`
}

// ArchiveConfig configures the lineage snapshot archive.
type ArchiveConfig struct {
	Enabled   bool   `koanf:"enabled"`
	Bucket    string `koanf:"bucket"     validate:"required_if=Enabled true"`
	Prefix    string `koanf:"prefix"`
	PathStyle bool   `koanf:"path_style"`
}

// AWSConfig contains the AWS client settings shared by the audit and archive adapters.
// Static credentials are used only when both keys are set; otherwise the default chain applies.
type AWSConfig struct {
	Region          string `koanf:"region"            validate:"required"`
	Endpoint        string `koanf:"endpoint"          validate:"omitempty,url"`
	AccessKeyID     string `koanf:"access_key_id"`
	SecretAccessKey string `koanf:"secret_access_key" validate:"required_with=AccessKeyID"`
}

func defaults() map[string]any {
	return map[string]any{
		"app.name":        "quote-revisions",
		"app.version":     "dev",
		"app.environment": "local",

		"server.port":             DefaultServerPort,
		"server.host":             "0.0.0.0",
		"server.read_timeout":     "30s",
		"server.write_timeout":    "30s",
		"server.idle_timeout":     "120s",
		"server.shutdown_timeout": "10s",
		"server.max_request_size": DefaultMaxRequestSize,
		"server.request_timeout":  "15s",

		"log.level":            "info",
		"log.format":           "json",
		"log.file.enabled":     false,
		"log.file.path":        "./logs/app.log",
		"log.file.max_size":    DefaultLogFileMaxSizeMB,
		"log.file.max_backups": DefaultLogFileMaxBackups,
		"log.file.max_age":     DefaultLogFileMaxAgeDays,
		"log.file.compress":    true,

		"telemetry.enabled":       false,
		"telemetry.endpoint":      "",
		"telemetry.insecure":      false,
		"telemetry.service_name":  "quote-revisions",
		"telemetry.sampling_rate": 1.0,

		"auth.roles_header":   "X-User-Roles",
		"auth.scopes_header":  "X-User-Scopes",
		"auth.subject_header": "X-User-ID",
		"auth.tenant_header":  "X-Tenant-ID",

		"store.driver":            "memory",
		"store.dsn":               "",
		"store.max_open_conns":    DefaultStoreMaxOpenConns,
		"store.max_idle_conns":    DefaultStoreMaxOpenConns,
		"store.conn_max_lifetime": "30m",
		"store.auto_migrate":      true,

		"engine.retry.max_attempts":     DefaultRetryMaxAttempts,
		"engine.retry.initial_interval": "10ms",
		"engine.retry.max_interval":     "250ms",
		"engine.retry.multiplier":       DefaultRetryMultiplier,
		"engine.retry.jitter_factor":    DefaultRetryJitterFactor,
		"engine.export_concurrency":     DefaultExportConcurrency,

		"audit.driver":                          "log",
		"audit.table":                           "quote-audit-events",
		"audit.timeout":                         "2s",
		"audit.circuit_breaker.max_failures":    DefaultCircuitMaxFailures,
		"audit.circuit_breaker.timeout":         "30s",
		"audit.circuit_breaker.half_open_limit": DefaultCircuitHalfOpenLimit,

		"archive.enabled":    false,
		"archive.bucket":     "",
		"archive.prefix":     "lineages",
		"archive.path_style": false,

		"aws.region": "us-east-1",
	}
}

// Load resolves the configuration for profile. An empty profile loads only
// the defaults, base.yaml and the environment. Missing files are skipped;
// unreadable or malformed ones are errors. Load does not validate.
func Load(profile string) (*Config, error) {
	dir := os.Getenv(EnvConfigDir)
	if dir == "" {
		dir = defaultConfigDir
	}

	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	files := []string{filepath.Join(dir, "base.yaml")}
	if profile != "" {
		files = append(files, filepath.Join(dir, profile+".yaml"))
	}

	for _, path := range files {
		if err := loadYAML(k, path); err != nil {
			return nil, err
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	return &cfg, nil
}

func loadYAML(k *koanf.Koanf, path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}

	return nil
}

// envKey maps APP_SERVER_READ_TIMEOUT to server.read_timeout and
// APP_ENGINE__RETRY__MAX_ATTEMPTS to engine.retry.max_attempts.
func envKey(name string) string {
	key := strings.ToLower(strings.TrimPrefix(name, EnvPrefix))

	if strings.Contains(key, "__") {
		return strings.ReplaceAll(key, "__", ".")
	}

	return strings.Replace(key, "_", ".", 1)
}
