// Package config loads application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable; see Load for the names.
type Config struct {
	Env          string // application environment (dev, test, prod)
	Port         string // HTTP port to listen on
	DB           DBConfig
	JWTSecret    string // secret used to sign access tokens
	AccessTTLMin int    // access token lifetime in minutes
	BcryptCost   int    // bcrypt cost for password hashing
	Redis        RedisConfig
	RateLimit    RateLimitConfig
	Cache        CacheConfig
	Queue        QueueConfig
}

// DBConfig locates the MySQL database.
type DBConfig struct {
	User string
	Pass string // may be empty
	Host string
	Port string
	Name string
}

// ErrMissingEnv is returned when required variables are unset or invalid.
var ErrMissingEnv = errors.New("missing or invalid required env vars")

// Load reads the configuration from the environment.  Every required
// variable is checked before returning so that one error lists them all.
func Load() (Config, error) {
	r := &required{}
	cfg := Config{
		Env:  r.str("APP_ENV"),
		Port: r.str("APP_PORT"),
		DB: DBConfig{
			User: r.str("DB_USER"),
			Pass: os.Getenv("DB_PASS"),
			Host: r.str("DB_HOST"),
			Port: r.str("DB_PORT"),
			Name: r.str("DB_NAME"),
		},
		JWTSecret:    r.str("JWT_SECRET"),
		AccessTTLMin: r.integer("ACCESS_TOKEN_TTL_MIN"),
		BcryptCost:   envInt("BCRYPT_COST", 12),
		Redis:        LoadRedisConfig(),
		RateLimit:    LoadRateLimitConfig(),
		Cache:        LoadCacheConfig(),
		Queue:        LoadQueueConfig(),
	}
	if err := r.err(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// required collects the names of required variables that are missing or
// malformed.
type required struct {
	bad []string
}

func (r *required) str(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		r.bad = append(r.bad, key)
		return ""
	}
	return v
}

func (r *required) integer(key string) int {
	s := r.str(key)
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		r.bad = append(r.bad, key)
		return 0
	}
	return n
}

func (r *required) err() error {
	if len(r.bad) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrMissingEnv, strings.Join(r.bad, ", "))
}
