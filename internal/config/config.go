package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	RepositoryPostgres = "postgres"
	RepositoryInMemory = "inmemory"

	envPrefix       = "TASKS"
	minSecretLength = 32
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Logging    LoggingConfig    `yaml:"logging"`
	Repository RepositoryConfig `yaml:"repository"`
	Cache      CacheConfig      `yaml:"cache"`
	Auth       AuthConfig       `yaml:"auth"`
}

type ServerConfig struct {
	Port            string        `yaml:"port"`
	Host            string        `yaml:"host"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	RateLimitRPM    int           `yaml:"rate_limit_rpm"`
	CORSOrigins     []string      `yaml:"cors_origins"`
}

type DatabaseConfig struct {
	URL            string        `yaml:"url"`
	MaxConnections int32         `yaml:"max_connections"`
	MinConnections int32         `yaml:"min_connections"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
}

type LoggingConfig struct {
	Development bool `yaml:"development"`
}

type RepositoryConfig struct {
	Type string `yaml:"type"` // "postgres" или "inmemory"
}

type CacheConfig struct {
	SlidingExpirationMinutes int           `yaml:"sliding_expiration_minutes"`
	JanitorInterval          time.Duration `yaml:"janitor_interval"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	Issuer    string `yaml:"issuer"`
	Audience  string `yaml:"audience"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			RequestTimeout:  30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RateLimitRPM:    100,
			CORSOrigins:     []string{"*"},
		},
		Database: DatabaseConfig{
			MaxConnections: 10,
			MinConnections: 2,
			IdleTimeout:    5 * time.Minute,
		},
		Repository: RepositoryConfig{Type: RepositoryInMemory},
		Cache: CacheConfig{
			SlidingExpirationMinutes: 5,
			JanitorInterval:          time.Minute,
		},
	}
}

// Load читает yml файл (если он есть) поверх значений по умолчанию,
// затем применяет переменные окружения с префиксом TASKS_
func Load(path string) (*Config, error) {
	cfg := Default()

	file, err := os.Open(path)
	switch {
	case err == nil:
		defer file.Close()
		if err := yaml.NewDecoder(file).Decode(cfg); err != nil {
			return nil, fmt.Errorf("ошибка парсинга %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("не могу открыть %s: %w", path, err)
	}

	applyEnv(cfg, newEnv())

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newEnv() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func applyEnv(cfg *Config, v *viper.Viper) {
	setString(v, "server.host", &cfg.Server.Host)
	setString(v, "server.port", &cfg.Server.Port)
	setDuration(v, "server.request_timeout", &cfg.Server.RequestTimeout)
	setDuration(v, "server.shutdown_timeout", &cfg.Server.ShutdownTimeout)
	if v.IsSet("server.rate_limit_rpm") {
		cfg.Server.RateLimitRPM = v.GetInt("server.rate_limit_rpm")
	}
	if v.IsSet("server.cors_origins") {
		cfg.Server.CORSOrigins = strings.Split(v.GetString("server.cors_origins"), ",")
	}

	setString(v, "database.url", &cfg.Database.URL)
	if v.IsSet("database.max_connections") {
		cfg.Database.MaxConnections = v.GetInt32("database.max_connections")
	}
	if v.IsSet("database.min_connections") {
		cfg.Database.MinConnections = v.GetInt32("database.min_connections")
	}
	setDuration(v, "database.idle_timeout", &cfg.Database.IdleTimeout)

	if v.IsSet("logging.development") {
		cfg.Logging.Development = v.GetBool("logging.development")
	}
	setString(v, "repository.type", &cfg.Repository.Type)

	if v.IsSet("cache.sliding_expiration_minutes") {
		cfg.Cache.SlidingExpirationMinutes = v.GetInt("cache.sliding_expiration_minutes")
	}
	setDuration(v, "cache.janitor_interval", &cfg.Cache.JanitorInterval)

	setString(v, "auth.jwt_secret", &cfg.Auth.JWTSecret)
	setString(v, "auth.issuer", &cfg.Auth.Issuer)
	setString(v, "auth.audience", &cfg.Auth.Audience)
}

func setString(v *viper.Viper, key string, dst *string) {
	if v.IsSet(key) {
		*dst = v.GetString(key)
	}
}

func setDuration(v *viper.Viper, key string, dst *time.Duration) {
	if v.IsSet(key) {
		*dst = v.GetDuration(key)
	}
}

func (c *Config) Validate() error {
	var errs []error

	switch c.Repository.Type {
	case RepositoryInMemory:
	case RepositoryPostgres:
		if c.Database.URL == "" {
			errs = append(errs, errors.New("database.url обязателен для postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("неизвестный тип хранилища %q", c.Repository.Type))
	}

	if len(c.Auth.JWTSecret) < minSecretLength {
		errs = append(errs, fmt.Errorf("auth.jwt_secret должен быть не короче %d символов", minSecretLength))
	}
	if c.Cache.SlidingExpirationMinutes <= 0 {
		errs = append(errs, errors.New("cache.sliding_expiration_minutes должен быть больше нуля"))
	}
	if c.Cache.JanitorInterval <= 0 {
		errs = append(errs, errors.New("cache.janitor_interval должен быть больше нуля"))
	}
	if c.Server.RateLimitRPM <= 0 {
		errs = append(errs, errors.New("server.rate_limit_rpm должен быть больше нуля"))
	}

	return errors.Join(errs...)
}

func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

func (c *Config) SlidingExpiration() time.Duration {
	return time.Duration(c.Cache.SlidingExpirationMinutes) * time.Minute
}
