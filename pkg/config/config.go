package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		CORS            bool          `yaml:"cors"`
		CORSOrigins     []string      `yaml:"cors_origins"`
	} `yaml:"server"`
	Logger struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"logger"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Storage struct {
		Backend string `yaml:"backend"` // file or redis
		Path    string `yaml:"path"`
		Key     string `yaml:"key"`
	} `yaml:"storage"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix"`
		Pool     struct {
			Size        int           `yaml:"size"`
			MinIdle     int           `yaml:"min_idle"`
			WaitTimeout time.Duration `yaml:"wait_timeout"`
		} `yaml:"pool"`
	} `yaml:"redis"`
	Cache struct {
		Backend    string        `yaml:"backend"` // memory or layered
		TTL        time.Duration `yaml:"ttl"`
		MaxEntries int           `yaml:"max_entries"`
	} `yaml:"cache"`
	Providers struct {
		Timeout      time.Duration `yaml:"timeout"`
		AlphaVantage struct {
			BaseURL string `yaml:"base_url"`
			APIKey  string `yaml:"api_key"`
		} `yaml:"alpha_vantage"`
		Finnhub struct {
			BaseURL string `yaml:"base_url"`
			APIKey  string `yaml:"api_key"`
		} `yaml:"finnhub"`
	} `yaml:"providers"`
	Data struct {
		MaxConcurrency int `yaml:"max_concurrency"`
	} `yaml:"data"`
	Events struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
	} `yaml:"events"`
	RateLimit struct {
		Enabled  bool    `yaml:"enabled"`
		Capacity float64 `yaml:"capacity"`
		Refill   float64 `yaml:"refill_per_sec"`
	} `yaml:"ratelimit"`
	Stream struct {
		BufferSize   int           `yaml:"buffer_size"`
		PingInterval time.Duration `yaml:"ping_interval"`
	} `yaml:"stream"`
}

// Default returns a configuration that runs fully offline on demo data.
func Default() *Config {
	c := &Config{Environment: "development"}

	c.Server.Port = 8080
	c.Server.ReadTimeout = 10 * time.Second
	c.Server.WriteTimeout = 10 * time.Second
	c.Server.ShutdownTimeout = 10 * time.Second
	c.Server.CORS = true

	c.Logger.Level = "info"
	c.Logger.Format = "console"
	c.Logger.Output = "stdout"

	c.Metrics.Enabled = true
	c.Metrics.Path = "/metrics"

	c.Storage.Backend = "file"
	c.Storage.Path = "data/dashboard.json"
	c.Storage.Key = "finboard-dashboard"

	c.Redis.Addr = "localhost:6379"
	c.Redis.Prefix = "finboard"
	c.Redis.Pool.Size = 10
	c.Redis.Pool.MinIdle = 2
	c.Redis.Pool.WaitTimeout = 4 * time.Second

	c.Cache.Backend = "memory"
	c.Cache.TTL = time.Minute

	c.Providers.Timeout = 10 * time.Second
	c.Providers.AlphaVantage.BaseURL = "https://www.alphavantage.co"
	c.Providers.Finnhub.BaseURL = "https://finnhub.io/api/v1"

	c.Data.MaxConcurrency = 8

	c.Events.Topic = "finboard.dashboard.events"
	c.Events.RequiredAcks = 1
	c.Events.Compression = "snappy"
	c.Events.Producer.MaxAttempts = 3
	c.Events.Producer.Linger = 50 * time.Millisecond
	c.Events.Producer.BatchSize = 100
	c.Events.Producer.BatchBytes = 1048576
	c.Events.Producer.WriteTimeout = 10 * time.Second
	c.Events.Producer.ReadTimeout = 10 * time.Second
	c.Events.Producer.Async = true

	c.RateLimit.Enabled = true
	c.RateLimit.Capacity = 30
	c.RateLimit.Refill = 10

	c.Stream.BufferSize = 64
	c.Stream.PingInterval = 30 * time.Second

	return c
}

// Load reads and parses a YAML configuration file on top of Default().
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Validate required fields
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}

// LoadWithEnv loads .env, then the YAML file (Default() if it does not
// exist), and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	c, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		c, err = Default(), nil
	}
	if err != nil {
		return nil, err
	}

	// Override with environment variables
	if v := os.Getenv("ALPHA_VANTAGE_API_KEY"); v != "" {
		c.Providers.AlphaVantage.APIKey = v
	}
	if v := os.Getenv("FINNHUB_API_KEY"); v != "" {
		c.Providers.Finnhub.APIKey = v
	}
	if v := os.Getenv("FINBOARD_STORAGE_BACKEND"); v != "" {
		c.Storage.Backend = v
	}
	if v := os.Getenv("FINBOARD_STORAGE_PATH"); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Events.Brokers = strings.Split(v, ",")
		c.Events.Enabled = true
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Events.Topic = v
	}
	if v := os.Getenv("FINBOARD_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("FINBOARD_PORT: %w", err)
		}
		c.Server.Port = port
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port)
	}
	switch c.Storage.Backend {
	case "file":
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for the file backend")
		}
	case "redis":
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis.addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("storage.backend must be 'file' or 'redis', got '%s'", c.Storage.Backend)
	}
	if c.Storage.Key == "" {
		return fmt.Errorf("storage.key is required")
	}
	if c.Cache.Backend != "memory" && c.Cache.Backend != "layered" {
		return fmt.Errorf("cache.backend must be 'memory' or 'layered', got '%s'", c.Cache.Backend)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive")
	}
	if c.Cache.MaxEntries < 0 {
		return fmt.Errorf("cache.max_entries cannot be negative")
	}
	if c.Data.MaxConcurrency <= 0 {
		return fmt.Errorf("data.max_concurrency must be positive")
	}
	if c.Events.Enabled && len(c.Events.Brokers) == 0 {
		return fmt.Errorf("events.brokers cannot be empty when events are enabled")
	}
	return nil
}
