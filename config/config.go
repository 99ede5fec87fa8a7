package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	CacheBackendMemory   = "memory"
	CacheBackendRedis    = "redis"
	CacheBackendPostgres = "postgres"
)

type Config struct {
	App      AppConfig
	Server   ServerConfig
	Cache    CacheConfig
	Redis    RedisConfig
	Postgres PostgresConfig
	NASA     NASAConfig
	SWPC     SWPCConfig
	ISS      ISSConfig
	TTL      TTLConfig
	Tracker  TrackerConfig
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	c.Cache.Backend = strings.ToLower(strings.TrimSpace(c.Cache.Backend))
	switch c.Cache.Backend {
	case CacheBackendMemory:
	case CacheBackendRedis:
		if c.Redis.URL == "" && c.Redis.Addr == "" {
			return fmt.Errorf("config: redis cache backend requires SPACEDASH_REDIS_URL or SPACEDASH_REDIS_ADDR")
		}
	case CacheBackendPostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("config: postgres cache backend requires SPACEDASH_POSTGRES_DSN")
		}
	default:
		return fmt.Errorf("config: unknown cache backend %q", c.Cache.Backend)
	}
	if c.Tracker.Interval <= 0 {
		return fmt.Errorf("config: tracker interval must be positive")
	}
	return nil
}

type AppConfig struct {
	Env          string `envconfig:"SPACEDASH_APP_ENV" default:"dev"`
	LogLevel     string `envconfig:"SPACEDASH_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"SPACEDASH_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"SPACEDASH_LOG_WARN_STACK" default:"false"`
}

type ServerConfig struct {
	Address         string        `envconfig:"SPACEDASH_SERVER_ADDR" default:":8080"`
	ReadTimeout     time.Duration `envconfig:"SPACEDASH_SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SPACEDASH_SERVER_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SPACEDASH_SERVER_SHUTDOWN_TIMEOUT" default:"5s"`
	CORSOrigins     []string      `envconfig:"SPACEDASH_CORS_ORIGINS" default:"*"`
}

type CacheConfig struct {
	Backend         string        `envconfig:"SPACEDASH_CACHE_BACKEND" default:"memory"`
	JanitorInterval time.Duration `envconfig:"SPACEDASH_CACHE_JANITOR_INTERVAL" default:"1m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SPACEDASH_REDIS_URL"`
	Addr         string        `envconfig:"SPACEDASH_REDIS_ADDR"`
	Password     string        `envconfig:"SPACEDASH_REDIS_PASSWORD"`
	DB           int           `envconfig:"SPACEDASH_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SPACEDASH_REDIS_POOL_SIZE" default:"10"`
	DialTimeout  time.Duration `envconfig:"SPACEDASH_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SPACEDASH_REDIS_READ_TIMEOUT" default:"2s"`
	WriteTimeout time.Duration `envconfig:"SPACEDASH_REDIS_WRITE_TIMEOUT" default:"2s"`
	Prefix       string        `envconfig:"SPACEDASH_REDIS_PREFIX" default:"spacedash"`
}

type PostgresConfig struct {
	DSN             string        `envconfig:"SPACEDASH_POSTGRES_DSN"`
	MaxOpenConns    int           `envconfig:"SPACEDASH_POSTGRES_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"SPACEDASH_POSTGRES_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"SPACEDASH_POSTGRES_CONN_MAX_LIFETIME" default:"30m"`
	AutoMigrate     bool          `envconfig:"SPACEDASH_POSTGRES_AUTO_MIGRATE" default:"true"`
	PurgeInterval   time.Duration `envconfig:"SPACEDASH_POSTGRES_PURGE_INTERVAL" default:"10m"`
}

type NASAConfig struct {
	APIKey  string        `envconfig:"SPACEDASH_NASA_API_KEY" default:"DEMO_KEY"`
	BaseURL string        `envconfig:"SPACEDASH_NASA_BASE_URL" default:"https://api.nasa.gov"`
	Timeout time.Duration `envconfig:"SPACEDASH_NASA_TIMEOUT" default:"10s"`
}

type SWPCConfig struct {
	BaseURL string        `envconfig:"SPACEDASH_SWPC_BASE_URL" default:"https://services.swpc.noaa.gov"`
	Timeout time.Duration `envconfig:"SPACEDASH_SWPC_TIMEOUT" default:"10s"`
}

type ISSConfig struct {
	PositionBaseURL string        `envconfig:"SPACEDASH_ISS_POSITION_BASE_URL" default:"https://api.wheretheiss.at"`
	CrewBaseURL     string        `envconfig:"SPACEDASH_ISS_CREW_BASE_URL" default:"http://api.open-notify.org"`
	Timeout         time.Duration `envconfig:"SPACEDASH_ISS_TIMEOUT" default:"5s"`
}

// TTLConfig holds the cache lifetime for each data category.
type TTLConfig struct {
	APOD        time.Duration `envconfig:"SPACEDASH_TTL_APOD" default:"1h"`
	Mars        time.Duration `envconfig:"SPACEDASH_TTL_MARS" default:"6h"`
	NEO         time.Duration `envconfig:"SPACEDASH_TTL_NEO" default:"1h"`
	Earth       time.Duration `envconfig:"SPACEDASH_TTL_EARTH" default:"24h"`
	DONKI       time.Duration `envconfig:"SPACEDASH_TTL_DONKI" default:"30m"`
	SolarWind   time.Duration `envconfig:"SPACEDASH_TTL_SOLAR_WIND" default:"1m"`
	Geomagnetic time.Duration `envconfig:"SPACEDASH_TTL_GEOMAGNETIC" default:"5m"`
	Aurora      time.Duration `envconfig:"SPACEDASH_TTL_AURORA" default:"5m"`
	Forecast    time.Duration `envconfig:"SPACEDASH_TTL_FORECAST" default:"30m"`
	ISSPosition time.Duration `envconfig:"SPACEDASH_TTL_ISS_POSITION" default:"4s"`
	Astronauts  time.Duration `envconfig:"SPACEDASH_TTL_ASTRONAUTS" default:"1h"`
}

type TrackerConfig struct {
	BackendURL string        `envconfig:"SPACEDASH_TRACKER_BACKEND_URL" default:"http://localhost:8080"`
	Interval   time.Duration `envconfig:"SPACEDASH_TRACKER_INTERVAL" default:"5s"`
	Timeout    time.Duration `envconfig:"SPACEDASH_TRACKER_TIMEOUT" default:"4s"`
}
