package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type LookupFunc func(string) (string, bool)

type Profile string

const (
	ProfileDev  Profile = "dev"
	ProfileTest Profile = "test"
	ProfileProd Profile = "prod"
)

var (
	ErrMissingAPIKey     = errors.New("TEXT2SQL_AI_API_KEY (or GROQ_API_KEY) not found in environment variables")
	ErrMissingDBPassword = errors.New("TEXT2SQL_DB_PASSWORD (or MYSQL_PASSWORD) not found in environment variables")
)

type Config struct {
	Profile       Profile
	Service       ServiceConfig
	HTTP          HTTPConfig
	Database      DatabaseConfig
	Schema        SchemaConfig
	Query         QueryConfig
	AI            AIConfig
	Export        ExportConfig
	Observability ObservabilityConfig
}

type ServiceConfig struct {
	Name string
}

type HTTPConfig struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	Driver          string
	Host            string
	Port            int
	User            string
	Password        string
	SSLMode         string
	DataDir         string
	Schemas         []string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
}

type SchemaConfig struct {
	SampleRows int
	CacheTTL   time.Duration
}

type QueryConfig struct {
	Timeout     time.Duration
	RowLimit    int
	AllowWrites bool
}

type AIConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

type ExportConfig struct {
	Enabled          bool
	Endpoint         string
	Region           string
	Bucket           string
	AccessKeyID      string
	SecretAccessKey  string
	UseSSL           bool
	Prefix           string
	AutoCreateBucket bool
}

type ObservabilityConfig struct {
	LogLevel slog.Level
	LogJSON  bool
}

func LoadFromEnv(serviceName string) (Config, error) {
	lookup, err := LookupWithDotEnv(os.LookupEnv, ".env")
	if err != nil {
		return Config{}, err
	}
	return Load(serviceName, lookup)
}

// LookupWithDotEnv layers the values of a dotenv file under base. Keys present
// in base always win. A missing file is not an error.
func LookupWithDotEnv(base LookupFunc, path string) (LookupFunc, error) {
	if base == nil {
		return nil, fmt.Errorf("lookup function is required")
	}
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return base, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return func(key string) (string, bool) {
		if value, ok := base(key); ok {
			return value, true
		}
		value, ok := values[key]
		return value, ok
	}, nil
}

func Load(serviceName string, lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	profile := ProfileDev
	if raw, ok := lookup("TEXT2SQL_PROFILE"); ok {
		profile = Profile(strings.ToLower(strings.TrimSpace(raw)))
	}
	if !isValidProfile(profile) {
		return Config{}, fmt.Errorf("invalid TEXT2SQL_PROFILE: %q", profile)
	}

	cfg := defaultsForProfile(profile)
	if serviceName != "" {
		cfg.Service.Name = serviceName
	}

	// Legacy keys of the original deployment are applied first so the
	// TEXT2SQL_ keys override them when both are set.
	steps := []func() error{
		func() error { return applyString(lookup, "TEXT2SQL_SERVICE_NAME", &cfg.Service.Name) },
		func() error { return applyString(lookup, "TEXT2SQL_HTTP_ADDR", &cfg.HTTP.Address) },
		func() error { return applyDuration(lookup, "TEXT2SQL_HTTP_READ_TIMEOUT", &cfg.HTTP.ReadTimeout) },
		func() error { return applyDuration(lookup, "TEXT2SQL_HTTP_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout) },
		func() error { return applyDuration(lookup, "TEXT2SQL_HTTP_IDLE_TIMEOUT", &cfg.HTTP.IdleTimeout) },
		func() error { return applyString(lookup, "TEXT2SQL_DB_DRIVER", &cfg.Database.Driver) },
		func() error { return applyString(lookup, "MYSQL_HOST", &cfg.Database.Host) },
		func() error { return applyString(lookup, "TEXT2SQL_DB_HOST", &cfg.Database.Host) },
		func() error { return applyInt(lookup, "MYSQL_PORT", &cfg.Database.Port) },
		func() error { return applyInt(lookup, "TEXT2SQL_DB_PORT", &cfg.Database.Port) },
		func() error { return applyString(lookup, "MYSQL_USER", &cfg.Database.User) },
		func() error { return applyString(lookup, "TEXT2SQL_DB_USER", &cfg.Database.User) },
		func() error { return applySecret(lookup, "MYSQL_PASSWORD", &cfg.Database.Password) },
		func() error { return applySecret(lookup, "TEXT2SQL_DB_PASSWORD", &cfg.Database.Password) },
		func() error { return applyString(lookup, "TEXT2SQL_DB_SSLMODE", &cfg.Database.SSLMode) },
		func() error { return applyString(lookup, "TEXT2SQL_DB_DATA_DIR", &cfg.Database.DataDir) },
		func() error { return applyList(lookup, "TEXT2SQL_SCHEMAS", &cfg.Database.Schemas) },
		func() error { return applyInt(lookup, "TEXT2SQL_DB_MAX_OPEN_CONNS", &cfg.Database.MaxOpenConns) },
		func() error { return applyInt(lookup, "TEXT2SQL_DB_MAX_IDLE_CONNS", &cfg.Database.MaxIdleConns) },
		func() error {
			return applyDuration(lookup, "TEXT2SQL_DB_CONN_MAX_IDLE_TIME", &cfg.Database.ConnMaxIdleTime)
		},
		func() error {
			return applyDuration(lookup, "TEXT2SQL_DB_CONN_MAX_LIFETIME", &cfg.Database.ConnMaxLifetime)
		},
		func() error { return applyInt(lookup, "TEXT2SQL_SCHEMA_SAMPLE_ROWS", &cfg.Schema.SampleRows) },
		func() error { return applyDuration(lookup, "TEXT2SQL_SCHEMA_CACHE_TTL", &cfg.Schema.CacheTTL) },
		func() error { return applyDuration(lookup, "TEXT2SQL_QUERY_TIMEOUT", &cfg.Query.Timeout) },
		func() error { return applyInt(lookup, "TEXT2SQL_QUERY_ROW_LIMIT", &cfg.Query.RowLimit) },
		func() error { return applyBool(lookup, "TEXT2SQL_ALLOW_WRITES", &cfg.Query.AllowWrites) },
		func() error { return applyString(lookup, "TEXT2SQL_AI_BASE_URL", &cfg.AI.BaseURL) },
		func() error { return applySecret(lookup, "GROQ_API_KEY", &cfg.AI.APIKey) },
		func() error { return applySecret(lookup, "TEXT2SQL_AI_API_KEY", &cfg.AI.APIKey) },
		func() error { return applyString(lookup, "TEXT2SQL_AI_MODEL", &cfg.AI.Model) },
		func() error { return applyFloat(lookup, "TEXT2SQL_AI_TEMPERATURE", &cfg.AI.Temperature) },
		func() error { return applyDuration(lookup, "TEXT2SQL_AI_TIMEOUT", &cfg.AI.Timeout) },
		func() error { return applyBool(lookup, "TEXT2SQL_EXPORT_ENABLED", &cfg.Export.Enabled) },
		func() error { return applyString(lookup, "TEXT2SQL_EXPORT_ENDPOINT", &cfg.Export.Endpoint) },
		func() error { return applyString(lookup, "TEXT2SQL_EXPORT_REGION", &cfg.Export.Region) },
		func() error { return applyString(lookup, "TEXT2SQL_EXPORT_BUCKET", &cfg.Export.Bucket) },
		func() error { return applyString(lookup, "TEXT2SQL_EXPORT_ACCESS_KEY", &cfg.Export.AccessKeyID) },
		func() error { return applySecret(lookup, "TEXT2SQL_EXPORT_SECRET_KEY", &cfg.Export.SecretAccessKey) },
		func() error { return applyBool(lookup, "TEXT2SQL_EXPORT_USE_SSL", &cfg.Export.UseSSL) },
		func() error { return applyString(lookup, "TEXT2SQL_EXPORT_PREFIX", &cfg.Export.Prefix) },
		func() error {
			return applyBool(lookup, "TEXT2SQL_EXPORT_AUTO_CREATE_BUCKET", &cfg.Export.AutoCreateBucket)
		},
		func() error { return applyBool(lookup, "TEXT2SQL_LOG_JSON", &cfg.Observability.LogJSON) },
		func() error { return applyLogLevel(lookup, "TEXT2SQL_LOG_LEVEL", &cfg.Observability.LogLevel) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return Config{}, err
		}
	}

	cfg.Database.Driver = strings.ToLower(cfg.Database.Driver)
	if !isValidDriver(cfg.Database.Driver) {
		return Config{}, fmt.Errorf("invalid TEXT2SQL_DB_DRIVER: %q", cfg.Database.Driver)
	}
	if !isValidSSLMode(cfg.Database.SSLMode) {
		return Config{}, fmt.Errorf("invalid TEXT2SQL_DB_SSLMODE: %q", cfg.Database.SSLMode)
	}
	if cfg.Service.Name == "" {
		return Config{}, fmt.Errorf("service name is required")
	}
	if cfg.HTTP.Address == "" {
		return Config{}, fmt.Errorf("http address is required")
	}
	if len(cfg.Database.Schemas) == 0 {
		return Config{}, fmt.Errorf("at least one schema is required")
	}
	if cfg.Schema.SampleRows < 0 {
		return Config{}, fmt.Errorf("invalid TEXT2SQL_SCHEMA_SAMPLE_ROWS: %d", cfg.Schema.SampleRows)
	}
	return cfg, nil
}

// Validate reports missing credentials. It is separate from Load so tools
// that never reach the database or the model can still read the config.
func (c Config) Validate() error {
	var errs []error
	if c.Database.Driver != "duckdb" && c.Database.Password == "" {
		errs = append(errs, ErrMissingDBPassword)
	}
	if c.AI.APIKey == "" {
		errs = append(errs, ErrMissingAPIKey)
	}
	return errors.Join(errs...)
}

func defaultsForProfile(profile Profile) Config {
	cfg := Config{
		Profile: profile,
		Service: ServiceConfig{Name: "text2sql-api"},
		HTTP: HTTPConfig{
			Address:      ":8501",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 90 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:          "mysql",
			Host:            "127.0.0.1",
			Port:            3306,
			User:            "root",
			DataDir:         "data",
			Schemas:         []string{"enterprise_saas", "e_commerce", "analytics"},
			MaxOpenConns:    4,
			MaxIdleConns:    4,
			ConnMaxIdleTime: 5 * time.Minute,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Schema: SchemaConfig{
			SampleRows: 3,
			CacheTTL:   5 * time.Minute,
		},
		Query: QueryConfig{
			Timeout:  30 * time.Second,
			RowLimit: 1000,
		},
		AI: AIConfig{
			BaseURL:     "https://api.groq.com/openai/v1",
			Model:       "llama-3.3-70b-versatile",
			Temperature: 0,
			Timeout:     30 * time.Second,
		},
		Export: ExportConfig{
			Enabled:          false,
			Endpoint:         "localhost:9000",
			Region:           "us-east-1",
			Bucket:           "text2sql",
			AccessKeyID:      "minio",
			SecretAccessKey:  "miniostorage",
			AutoCreateBucket: true,
		},
		Observability: ObservabilityConfig{
			LogLevel: slog.LevelDebug,
			LogJSON:  false,
		},
	}

	switch profile {
	case ProfileTest:
		cfg.HTTP.Address = ":18501"
		cfg.Observability.LogLevel = slog.LevelWarn
		cfg.Schema.CacheTTL = 0
	case ProfileProd:
		cfg.Observability.LogLevel = slog.LevelInfo
		cfg.Observability.LogJSON = true
		cfg.Export.UseSSL = true
		cfg.Export.AutoCreateBucket = false
	}

	return cfg
}

func isValidProfile(profile Profile) bool {
	switch profile {
	case ProfileDev, ProfileTest, ProfileProd:
		return true
	default:
		return false
	}
}

func isValidDriver(driver string) bool {
	switch driver {
	case "mysql", "pgx", "duckdb":
		return true
	default:
		return false
	}
}

// isValidSSLMode accepts the libpq sslmode values; empty means disable.
func isValidSSLMode(mode string) bool {
	switch mode {
	case "", "disable", "allow", "prefer", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func applyString(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	*dst = strings.TrimSpace(raw)
	return nil
}

// applySecret keeps surrounding whitespace out but never treats an empty value
// as an override of an earlier alias.
func applySecret(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return nil
	}
	*dst = strings.TrimSpace(raw)
	return nil
}

func applyList(lookup LookupFunc, key string, dst *[]string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	values := make([]string, 0)
	seen := map[string]struct{}{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if _, dup := seen[part]; dup {
			continue
		}
		seen[part] = struct{}{}
		values = append(values, part)
	}
	*dst = values
	return nil
}

func applyDuration(lookup LookupFunc, key string, dst *time.Duration) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyBool(lookup LookupFunc, key string, dst *bool) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyInt(lookup LookupFunc, key string, dst *int) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyFloat(lookup LookupFunc, key string, dst *float64) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyLogLevel(lookup LookupFunc, key string, dst *slog.Level) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	level := strings.ToLower(strings.TrimSpace(raw))
	switch level {
	case "debug":
		*dst = slog.LevelDebug
	case "info":
		*dst = slog.LevelInfo
	case "warn", "warning":
		*dst = slog.LevelWarn
	case "error":
		*dst = slog.LevelError
	default:
		return fmt.Errorf("invalid %s: %q", key, raw)
	}
	return nil
}
