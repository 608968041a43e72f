package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const EnvPrefix = "NUTRISIFT"

type Config struct {
	Server struct {
		Port         int               `mapstructure:"port"`
		MaxBodyBytes int64             `mapstructure:"max_body_bytes"`
		CORSOrigins  []string          `mapstructure:"cors_origins"`
		APIKeys      map[string]string `mapstructure:"api_keys"` // tenant -> key, kosong = auth off
		RateLimit    struct {
			Capacity int     `mapstructure:"capacity"`
			Refill   float64 `mapstructure:"refill"` // token per detik
		} `mapstructure:"rate_limit"`
	} `mapstructure:"server"`

	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`

	AI struct {
		Provider string        `mapstructure:"provider"`
		APIKey   string        `mapstructure:"api_key"`
		Model    string        `mapstructure:"model"`
		BaseURL  string        `mapstructure:"base_url"`
		Timeout  time.Duration `mapstructure:"timeout"`
	} `mapstructure:"ai"`

	Rules struct {
		ExtraSugarTerms []string `mapstructure:"extra_sugar_terms"`
	} `mapstructure:"rules"`

	Database struct {
		Driver   string `mapstructure:"driver"` // mysql | postgres | "" (tanpa history)
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
		SSLMode  string `mapstructure:"sslmode"`
	} `mapstructure:"database"`

	Minio struct {
		Endpoint   string `mapstructure:"endpoint"`
		AccessKey  string `mapstructure:"access_key"`
		SecretKey  string `mapstructure:"secret_key"`
		BucketName string `mapstructure:"bucket_name"`
		Region     string `mapstructure:"region"`
		UseSSL     bool   `mapstructure:"use_ssl"`
	} `mapstructure:"minio"`

	Redis struct {
		Addr     string        `mapstructure:"addr"`
		Password string        `mapstructure:"password"`
		DB       int           `mapstructure:"db"`
		TTL      time.Duration `mapstructure:"ttl"`
	} `mapstructure:"redis"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.max_body_bytes", 10<<20)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.api_keys", map[string]string{})
	v.SetDefault("server.rate_limit.capacity", 10)
	v.SetDefault("server.rate_limit.refill", 0.5)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("ai.provider", "gemini")
	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.model", "")
	v.SetDefault("ai.base_url", "")
	v.SetDefault("ai.timeout", "60s")

	v.SetDefault("rules.extra_sugar_terms", []string{})

	v.SetDefault("database.driver", "")
	v.SetDefault("database.host", "127.0.0.1")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "nutrisift")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("minio.endpoint", "")
	v.SetDefault("minio.access_key", "")
	v.SetDefault("minio.secret_key", "")
	v.SetDefault("minio.bucket_name", "labels")
	v.SetDefault("minio.region", "us-east-1")
	v.SetDefault("minio.use_ssl", false)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", "24h")
}

// Load baca config.yaml (kalau ada), .env, lalu env NUTRISIFT_*.
// path kosong = tanpa file, cukup defaults + env.
func Load(path string) (*Config, error) {
	// .env opsional
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// file yang tidak ada = cukup defaults + env
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil && !isNotFound(err) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetConfigFile reports a missing file as *fs.PathError, not ConfigFileNotFoundError.
func isNotFound(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
}

// Validate cek kombinasi nilai yang tidak masuk akal
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}
	if c.Server.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("server.max_body_bytes must be positive"))
	}
	if c.Server.RateLimit.Capacity < 0 || c.Server.RateLimit.Refill < 0 {
		errs = append(errs, errors.New("server.rate_limit values must not be negative"))
	}
	switch c.AI.Provider {
	case "openai", "gemini":
	default:
		errs = append(errs, fmt.Errorf("ai.provider must be openai or gemini, got %q", c.AI.Provider))
	}
	if c.AI.Timeout <= 0 {
		errs = append(errs, errors.New("ai.timeout must be positive"))
	}
	switch c.Database.Driver {
	case "", "mysql", "postgres":
	default:
		errs = append(errs, fmt.Errorf("database.driver must be mysql or postgres, got %q", c.Database.Driver))
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log.format must be json or console, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// Helper untuk build DSN MySQL
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// Helper untuk build DSN Postgres (lib/pq)
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}
