package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

type Config struct {
	Port        string `mapstructure:"port"`
	DataBackend string `mapstructure:"data_backend"`
	DatabaseURL string `mapstructure:"database_url"`

	JWTSecret       string        `mapstructure:"jwt_secret"`
	AccessTokenTTL  time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTL time.Duration `mapstructure:"refresh_token_ttl"`
	UserCacheTTL    time.Duration `mapstructure:"user_cache_ttl"`

	// AMQP; an empty URL selects the in-process queue.
	AMQPURL      string `mapstructure:"amqp_url"`
	AMQPExchange string `mapstructure:"amqp_exchange"`
	AMQPQueue    string `mapstructure:"amqp_queue"`

	ExportDir         string `mapstructure:"export_dir"`
	WorkerConcurrency int    `mapstructure:"worker_concurrency"`

	PlaidClientID string `mapstructure:"plaid_client_id"`
	PlaidSecret   string `mapstructure:"plaid_secret"`
	PlaidEnv      string `mapstructure:"plaid_env"`

	CORSOrigins []string `mapstructure:"cors_origins"`
	// DemoMode rejects writes other than sign-in and webhooks.
	DemoMode bool `mapstructure:"demo_mode"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

var keys = []string{
	"port", "data_backend", "database_url",
	"jwt_secret", "access_token_ttl", "refresh_token_ttl", "user_cache_ttl",
	"amqp_url", "amqp_exchange", "amqp_queue",
	"export_dir", "worker_concurrency",
	"plaid_client_id", "plaid_secret", "plaid_env",
	"cors_origins", "demo_mode", "log_level", "log_format",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("data_backend", BackendPostgres)
	v.SetDefault("access_token_ttl", 15*time.Minute)
	v.SetDefault("refresh_token_ttl", 24*time.Hour)
	v.SetDefault("user_cache_ttl", 5*time.Minute)
	v.SetDefault("amqp_exchange", "spendsage")
	v.SetDefault("amqp_queue", "background_tasks")
	v.SetDefault("export_dir", "./data")
	v.SetDefault("worker_concurrency", 4)
	v.SetDefault("plaid_env", "sandbox")
	v.SetDefault("cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("demo_mode", false)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
}

// Load reads .env (if present), the optional config file and the
// environment. Each key can be set as SPENDSAGE_<KEY> or bare <KEY>.
func Load(file string) (*Config, error) {
	// Load .env file if present
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("spendsage")
	v.AutomaticEnv()
	for _, key := range keys {
		if err := v.BindEnv(key, "SPENDSAGE_"+strings.ToUpper(key), strings.ToUpper(key)); err != nil {
			return nil, err
		}
	}

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.CORSOrigins = splitList(strings.Join(cfg.CORSOrigins, ","))
	return &cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) UseAMQP() bool {
	return c.AMQPURL != ""
}

func (c *Config) PlaidEnabled() bool {
	return c.PlaidClientID != "" && c.PlaidSecret != ""
}

// Validate returns every problem with the configuration in one error.
func (c *Config) Validate() error {
	var problems []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		problems = append(problems, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.DataBackend {
	case BackendPostgres:
		if c.DatabaseURL == "" {
			problems = append(problems, "DATABASE_URL is required for the postgres backend")
		}
	case BackendMemory:
		if c.UseAMQP() {
			problems = append(problems, "the memory backend cannot share tasks with an AMQP worker; unset AMQP_URL")
		}
	default:
		problems = append(problems, fmt.Sprintf("invalid data backend '%s': must be one of postgres, memory", c.DataBackend))
	}

	if len(c.JWTSecret) < 32 {
		problems = append(problems, "JWT_SECRET must be at least 32 characters")
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		problems = append(problems, "token TTLs must be positive")
	}
	if c.AccessTokenTTL > c.RefreshTokenTTL {
		problems = append(problems, "access_token_ttl must not exceed refresh_token_ttl")
	}
	if c.UseAMQP() && (c.AMQPExchange == "" || c.AMQPQueue == "") {
		problems = append(problems, "AMQP exchange and queue names are required")
	}
	if c.WorkerConcurrency < 1 {
		problems = append(problems, fmt.Sprintf("invalid worker concurrency %d: must be at least 1", c.WorkerConcurrency))
	}
	if c.ExportDir == "" {
		problems = append(problems, "EXPORT_DIR is required")
	}
	if c.PlaidEnabled() && c.PlaidEnv != "sandbox" && c.PlaidEnv != "production" {
		problems = append(problems, fmt.Sprintf("invalid plaid env '%s': must be sandbox or production", c.PlaidEnv))
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		problems = append(problems, fmt.Sprintf("invalid log format '%s': must be json or console", c.LogFormat))
	}

	if len(problems) > 0 {
		return errors.New("configuration validation failed: " + strings.Join(problems, "; "))
	}
	return nil
}
