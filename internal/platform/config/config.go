// Package config loads server configuration: built-in defaults, then an
// optional YAML file named by HARVESTCERT_CONFIG, then HARVESTCERT_*
// environment overrides.
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

const envPrefix = "HARVESTCERT_"

// Store backends.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

type Config struct {
	Server    Server    `yaml:"server"`
	Registry  Registry  `yaml:"registry"`
	Store     Store     `yaml:"store"`
	Redis     Redis     `yaml:"redis"`
	Kafka     Kafka     `yaml:"kafka"`
	Auth      Auth      `yaml:"auth"`
	RateLimit RateLimit `yaml:"rate_limit"`
	Log       Log       `yaml:"log"`
}

type Server struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// Websocket enables the live event stream at /events/ws.
	Websocket bool `yaml:"websocket"`
}

type Registry struct {
	// Owner is recorded on first start; a persisted owner takes precedence.
	Owner          string `yaml:"owner"`
	EnforceDevices bool   `yaml:"enforce_devices"`
	FacilityCheck  string `yaml:"facility_check"`
}

// Facility check modes.
const (
	FacilityCheckNonEmpty  = "non_empty"
	FacilityCheckDirectory = "directory"
)

type Store struct {
	Backend     string `yaml:"backend"`
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresURL string `yaml:"postgres_url"`
}

type Redis struct {
	URL          string        `yaml:"url"`
	KeyPrefix    string        `yaml:"key_prefix"`
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// Kafka delivery is enabled when Brokers is non-empty.
type Kafka struct {
	Brokers           []string      `yaml:"brokers"`
	Topic             string        `yaml:"topic"`
	Partitions        int32         `yaml:"partitions"`
	ReplicationFactor int16         `yaml:"replication_factor"`
	RelayInterval     time.Duration `yaml:"relay_interval"`
}

func (k Kafka) Enabled() bool {
	return len(k.Brokers) > 0
}

type Auth struct {
	SigningKey string `yaml:"signing_key"`
	Issuer     string `yaml:"issuer"`
	Audience   string `yaml:"audience"`
}

// RateLimit throttles each client IP to Requests per Window. Zero requests
// disables it. Counters live in Redis when a Redis URL is set.
type RateLimit struct {
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

func (r RateLimit) Enabled() bool {
	return r.Requests > 0
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a configuration suitable for local development.
func Default() Config {
	return Config{
		Server: Server{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
			Websocket:       true,
		},
		Registry: Registry{
			FacilityCheck: FacilityCheckNonEmpty,
		},
		Store: Store{
			Backend:    BackendSQLite,
			SQLitePath: "harvestcert.db",
		},
		Redis: Redis{
			KeyPrefix:    "harvestcert:",
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: Kafka{
			Topic:             "harvest-events",
			Partitions:        3,
			ReplicationFactor: 1,
			RelayInterval:     time.Second,
		},
		Auth: Auth{
			Issuer:   "harvestcert",
			Audience: "harvestcert-api",
		},
		RateLimit: RateLimit{
			Requests: 300,
			Window:   time.Minute,
		},
		Log: Log{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from defaults, file and environment.
func Load() (Config, error) {
	cfg := Default()
	if path := os.Getenv(envPrefix + "CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

type lookupFunc func(key string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(envPrefix + key); ok {
			*dst = v
		}
	}
	var errs []error
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(envPrefix + key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, key, err))
				return
			}
			*dst = b
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v, ok := lookup(envPrefix + key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, key, err))
				return
			}
			*dst = d
		}
	}

	str("ADDR", &c.Server.Addr)
	duration("SHUTDOWN_TIMEOUT", &c.Server.ShutdownTimeout)
	boolean("WEBSOCKET", &c.Server.Websocket)
	str("OWNER", &c.Registry.Owner)
	boolean("ENFORCE_DEVICES", &c.Registry.EnforceDevices)
	str("FACILITY_CHECK", &c.Registry.FacilityCheck)
	str("STORE_BACKEND", &c.Store.Backend)
	str("SQLITE_PATH", &c.Store.SQLitePath)
	str("POSTGRES_URL", &c.Store.PostgresURL)
	str("REDIS_URL", &c.Redis.URL)
	str("REDIS_KEY_PREFIX", &c.Redis.KeyPrefix)
	if v, ok := lookup(envPrefix + "KAFKA_BROKERS"); ok {
		c.Kafka.Brokers = splitList(v)
	}
	str("KAFKA_TOPIC", &c.Kafka.Topic)
	duration("RELAY_INTERVAL", &c.Kafka.RelayInterval)
	if v, ok := lookup(envPrefix + "RATE_LIMIT_REQUESTS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sRATE_LIMIT_REQUESTS: %w", envPrefix, err))
		} else {
			c.RateLimit.Requests = n
		}
	}
	duration("RATE_LIMIT_WINDOW", &c.RateLimit.Window)
	str("JWT_SIGNING_KEY", &c.Auth.SigningKey)
	str("JWT_ISSUER", &c.Auth.Issuer)
	str("JWT_AUDIENCE", &c.Auth.Audience)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)

	return errors.Join(errs...)
}

func splitList(v string) []string {
	var out []string
	for part := range strings.SplitSeq(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate reports every inconsistency found.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Registry.Owner) == "" {
		errs = append(errs, errors.New("registry.owner is required"))
	}
	switch c.Registry.FacilityCheck {
	case FacilityCheckNonEmpty, FacilityCheckDirectory:
	default:
		errs = append(errs, fmt.Errorf("registry.facility_check %q is not supported", c.Registry.FacilityCheck))
	}
	switch c.Store.Backend {
	case BackendMemory:
	case BackendSQLite:
		if c.Store.SQLitePath == "" {
			errs = append(errs, errors.New("store.sqlite_path is required for the sqlite backend"))
		}
	case BackendPostgres:
		if c.Store.PostgresURL == "" {
			errs = append(errs, errors.New("store.postgres_url is required for the postgres backend"))
		}
	case BackendRedis:
		if c.Redis.URL == "" {
			errs = append(errs, errors.New("redis.url is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.backend %q is not supported", c.Store.Backend))
	}
	if c.Auth.SigningKey == "" {
		errs = append(errs, errors.New("auth.signing_key is required"))
	}
	if c.RateLimit.Enabled() && c.RateLimit.Window <= 0 {
		errs = append(errs, errors.New("rate_limit.window must be positive"))
	}
	if c.Kafka.Enabled() && c.Kafka.Topic == "" {
		errs = append(errs, errors.New("kafka.topic is required when brokers are set"))
	}
	return errors.Join(errs...)
}

// Outbox reports whether events go through the transactional outbox. It is
// used when Kafka is enabled and the store is a SQL backend.
func (c Config) Outbox() bool {
	return c.Kafka.Enabled() && (c.Store.Backend == BackendSQLite || c.Store.Backend == BackendPostgres)
}
