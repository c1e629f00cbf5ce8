package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/feedloop/securenotes/internal/database"
	"github.com/feedloop/securenotes/internal/models"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// MinSecretLength is the minimum HS256 signing key size in bytes.
const MinSecretLength = 32

type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Auth          AuthConfig          `mapstructure:"auth"`
	Authorization AuthorizationConfig `mapstructure:"authorization"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Audit         AuditConfig         `mapstructure:"audit"`
	RateLimit     RateLimitConfig     `mapstructure:"rate_limit"`
}

type ServerConfig struct {
	Port    int           `mapstructure:"port"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type AuthConfig struct {
	JWTSecret        string   `mapstructure:"jwt_secret"`
	TokenTTLMs       int64    `mapstructure:"token_ttl_ms"`
	BypassPaths      []string `mapstructure:"bypass_paths"`
	EnableTestTokens bool     `mapstructure:"enable_test_tokens"`
}

// TokenTTL returns the configured token lifetime.
func (a AuthConfig) TokenTTL() time.Duration {
	return time.Duration(a.TokenTTLMs) * time.Millisecond
}

// RuleConfig is one entry of the authorization table. Roles hold the wire
// names; Validate rejects unknown ones.
type RuleConfig struct {
	Pattern string   `mapstructure:"pattern"`
	Methods []string `mapstructure:"methods"`
	Roles   []string `mapstructure:"roles"`
	Public  bool     `mapstructure:"public"`
}

// ParseRoles returns the rule's roles deduplicated and sorted.
func (r RuleConfig) ParseRoles() ([]models.Role, error) {
	return models.ParseRoles(r.Roles)
}

type AuthorizationConfig struct {
	Rules []RuleConfig `mapstructure:"rules"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"` // megabytes
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"` // days
}

type AuditConfig struct {
	Sinks        []string `mapstructure:"sinks"`
	FilePath     string   `mapstructure:"file_path"`
	Stream       string   `mapstructure:"stream"`
	StreamMaxLen int64    `mapstructure:"stream_max_len"`
}

type RateLimitConfig struct {
	Enabled       bool     `mapstructure:"enabled"`
	BucketSize    int      `mapstructure:"bucket_size"`
	RefillRate    int      `mapstructure:"refill_rate"`
	WindowSeconds int      `mapstructure:"window_seconds"`
	PathPrefixes  []string `mapstructure:"path_prefixes"`
}

// ConfigurationError is a fatal startup problem.
type ConfigurationError struct {
	Field string
	Err   error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %v", e.Field, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

var knownSinks = map[string]bool{"log": true, "database": true, "redis": true, "memory": true}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.timeout", "30s")
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "securenotes")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl_ms", 86400000)
	v.SetDefault("auth.bypass_paths", []string{"/v3/api-docs", "/v3/api-docs/**", "/swagger-ui/**", "/swagger-ui.html"})
	v.SetDefault("auth.enable_test_tokens", false)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file_path", "logs/securenotes.log")
	v.SetDefault("logging.max_size", 100)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age", 30)
	v.SetDefault("audit.sinks", []string{"log"})
	v.SetDefault("audit.file_path", "logs/security.log")
	v.SetDefault("audit.stream", "audit:events")
	v.SetDefault("audit.stream_max_len", 10000)
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.bucket_size", 5)
	v.SetDefault("rate_limit.refill_rate", 5)
	v.SetDefault("rate_limit.window_seconds", 60)
	v.SetDefault("rate_limit.path_prefixes", []string{"/api/public"})
}

// Load reads config.yaml from the working directory or ./config.
func Load() (*Config, error) {
	return LoadWithPath("")
}

// LoadWithPath reads the given config file. An empty path searches the
// default locations; a missing file is not an error.
func LoadWithPath(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	setDefaults(v)

	// Read environment variables, e.g. AUTH_JWT_SECRET
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isNotExist(err) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config, viper.DecodeHook(decodeHook())); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return config, nil
}

func decodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

// Validate checks the settings that must hold before the server starts.
func (c *Config) Validate() error {
	if len(c.Auth.JWTSecret) < MinSecretLength {
		return &ConfigurationError{Field: "auth.jwt_secret", Err: models.ErrWeakSigningKey}
	}
	if c.Auth.TokenTTLMs <= 0 {
		return &ConfigurationError{Field: "auth.token_ttl_ms", Err: errors.New("must be positive")}
	}
	for _, p := range c.Auth.BypassPaths {
		if !doublestar.ValidatePattern(p) {
			return &ConfigurationError{Field: "auth.bypass_paths", Err: fmt.Errorf("invalid pattern %q", p)}
		}
	}
	for i, r := range c.Authorization.Rules {
		field := fmt.Sprintf("authorization.rules[%d]", i)
		if r.Pattern == "" || !doublestar.ValidatePattern(r.Pattern) {
			return &ConfigurationError{Field: field, Err: fmt.Errorf("invalid pattern %q", r.Pattern)}
		}
		if _, err := r.ParseRoles(); err != nil {
			return &ConfigurationError{Field: field + ".roles", Err: err}
		}
		if r.Public && len(r.Roles) > 0 {
			return &ConfigurationError{Field: field, Err: errors.New("public rules cannot require roles")}
		}
	}
	switch c.Database.Driver {
	case "postgres", "memory":
	default:
		return &ConfigurationError{Field: "database.driver", Err: fmt.Errorf("unsupported driver %q", c.Database.Driver)}
	}
	for _, s := range c.Audit.Sinks {
		if !knownSinks[s] {
			return &ConfigurationError{Field: "audit.sinks", Err: fmt.Errorf("unknown sink %q", s)}
		}
		if s == "redis" && !c.Redis.Enabled {
			return &ConfigurationError{Field: "audit.sinks", Err: errors.New("redis sink requires redis.enabled")}
		}
		if s == "database" && c.Database.Driver != "postgres" {
			return &ConfigurationError{Field: "audit.sinks", Err: errors.New("database sink requires the postgres driver")}
		}
	}
	if c.RateLimit.Enabled {
		if c.RateLimit.BucketSize <= 0 || c.RateLimit.RefillRate <= 0 || c.RateLimit.WindowSeconds <= 0 {
			return &ConfigurationError{Field: "rate_limit", Err: errors.New("bucket_size, refill_rate and window_seconds must be positive")}
		}
	}
	return nil
}

// ToDBConfig converts DatabaseConfig to database.Config
func (c DatabaseConfig) ToDBConfig() database.Config {
	return database.Config{
		Host:     c.Host,
		Port:     c.Port,
		User:     c.User,
		Password: c.Password,
		DBName:   c.DBName,
		SSLMode:  c.SSLMode,
	}
}

// RedisAddr returns host:port for the redis client.
func (c RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
