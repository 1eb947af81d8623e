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

type Database struct {
	Driver   string `yaml:"driver"` // postgres or sqlite
	DSN      string `yaml:"dsn"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`

	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
	ConnectRetries  int           `yaml:"connectRetries"`
	ConnectDelay    time.Duration `yaml:"connectDelay"`
	SeedSample      bool          `yaml:"seedSample"`
}

type HTTP struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

type Redis struct {
	Addr     string        `yaml:"addr"` // empty disables caching
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type Kafka struct {
	Brokers       []string      `yaml:"brokers"` // empty disables events
	Topic         string        `yaml:"topic"`
	MaxRetries    int           `yaml:"maxRetries"`
	RetryInterval time.Duration `yaml:"retryInterval"`
}

type Logging struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"` // trace, debug, info, warn, error, fatal, panic
}

type Config struct {
	Database Database `yaml:"database"`
	HTTP     HTTP     `yaml:"http"`
	Redis    Redis    `yaml:"redis"`
	Kafka    Kafka    `yaml:"kafka"`
	Logging  Logging  `yaml:"logging"`
}

func Default() Config {
	return Config{
		Database: Database{
			Driver:          "postgres",
			Host:            "postgres",
			Port:            "5432",
			User:            "program",
			Password:        "test",
			Name:            "delivery",
			MaxOpenConns:    25,
			MaxIdleConns:    10,
			ConnMaxLifetime: 5 * time.Minute,
			ConnectRetries:  10,
			ConnectDelay:    5 * time.Second,
		},
		HTTP: HTTP{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Redis: Redis{TTL: time.Minute},
		Kafka: Kafka{
			Topic:         "entity-deletions",
			MaxRetries:    5,
			RetryInterval: 10 * time.Second,
		},
		Logging: Logging{Level: "info"},
	}
}

// Load reads the yaml file at path on top of the defaults, then the given
// .env files, then environment overrides. A missing yaml file is not an
// error; a missing .env file is only an error when it was named explicitly.
func Load(path string, envFiles ...string) (Config, error) {
	conf := Default()

	if path != "" {
		file, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return conf, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(file, &conf); err != nil {
				return conf, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if len(envFiles) > 0 {
		if err := godotenv.Load(envFiles...); err != nil {
			return conf, fmt.Errorf("load env files: %w", err)
		}
	} else if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return conf, fmt.Errorf("load .env: %w", err)
	}

	if err := conf.applyEnv(); err != nil {
		return conf, err
	}
	return conf, conf.Validate()
}

func (c *Config) applyEnv() error {
	setString(&c.Database.Driver, "DB_DRIVER")
	setString(&c.Database.DSN, "DB_DSN")
	setString(&c.Database.Host, "DB_HOST")
	setString(&c.Database.Port, "DB_PORT")
	setString(&c.Database.User, "DB_USER")
	setString(&c.Database.Password, "DB_PASSWORD")
	setString(&c.Database.Name, "DB_NAME")
	setString(&c.HTTP.Addr, "HTTP_ADDR")
	setString(&c.Redis.Addr, "REDIS_ADDR")
	setString(&c.Redis.Password, "REDIS_PASSWORD")
	setString(&c.Kafka.Topic, "KAFKA_TOPIC")
	setString(&c.Logging.Level, "LOG_LEVEL")
	setString(&c.Logging.Path, "LOG_PATH")

	if v, ok := os.LookupEnv("KAFKA_BROKERS"); ok {
		c.Kafka.Brokers = splitList(v)
	}
	if v, ok := os.LookupEnv("DB_SEED_SAMPLE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("DB_SEED_SAMPLE: %w", err)
		}
		c.Database.SeedSample = b
	}
	return nil
}

// PostgresDSN builds a DSN from the discrete fields unless DSN is set.
func (d Database) PostgresDSN() string {
	if d.DSN != "" {
		return d.DSN
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		d.Host, d.User, d.Password, d.Name, d.Port)
}

var levels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true,
	"error": true, "fatal": true, "panic": true,
}

func (c Config) Validate() error {
	switch c.Database.Driver {
	case "postgres":
	case "sqlite":
		if c.Database.DSN == "" {
			return errors.New("database.dsn is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("unknown database driver %q: must be postgres or sqlite", c.Database.Driver)
	}
	if c.Database.MaxOpenConns <= 0 || c.Database.MaxIdleConns <= 0 {
		return errors.New("database pool sizes must be > 0")
	}
	if c.Database.ConnectRetries <= 0 {
		return errors.New("database.connectRetries must be > 0")
	}
	if c.HTTP.Addr == "" {
		return errors.New("http.addr is required")
	}
	if c.Redis.Addr != "" && c.Redis.TTL <= 0 {
		return errors.New("redis.ttl must be > 0")
	}
	if len(c.Kafka.Brokers) > 0 {
		if c.Kafka.Topic == "" {
			return errors.New("kafka.topic is required when brokers are set")
		}
		if c.Kafka.MaxRetries <= 0 || c.Kafka.RetryInterval <= 0 {
			return errors.New("kafka.maxRetries and kafka.retryInterval must be > 0")
		}
	}
	if !levels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("unknown logging level %q", c.Logging.Level)
	}
	return nil
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
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
