// Package config holds the settings of the espweb program.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const envPrefix = "ESPWEB_"

type Config struct {
	Addr string
	Name string
	// Transport selects "conn" (built-in HTTP/1.1 loop) or "std" (net/http).
	Transport string

	StaticDir     string
	MaxBodySize   int64
	ChunkSize     int
	IdleTimeout   time.Duration
	ShutdownGrace time.Duration

	Session struct {
		CookieName string
		MaxAge     int
		Secure     bool
		// Store keeps payloads in "memory" or in the "sqlite" file at StorePath.
		Store     string
		StorePath string
	}

	Log struct {
		Level string
		// File switches logging to a rotating JSON file.
		File       string
		MaxSizeMB  int
		MaxBackups int
	}

	Telemetry struct {
		Enabled  bool
		Endpoint string
		Insecure bool
	}
}

// NewConfig returns the defaults.
func NewConfig() *Config {
	config := &Config{
		Addr:          "0.0.0.0:8080",
		Name:          "espweb",
		Transport:     "conn",
		MaxBodySize:   8 * 1024,
		ChunkSize:     512,
		IdleTimeout:   5 * time.Second,
		ShutdownGrace: 10 * time.Second,
	}

	config.Session.CookieName = "sid"
	config.Session.MaxAge = -1
	config.Session.Store = "memory"
	config.Session.StorePath = "sessions.db"

	config.Log.Level = "info"
	config.Log.MaxSizeMB = 10
	config.Log.MaxBackups = 3

	config.Telemetry.Insecure = true

	return config
}

// LoadEnv overlays ESPWEB_* variables on config. Unset variables keep the
// current value; malformed ones are reported.
func (config *Config) LoadEnv() error {
	return config.load(os.LookupEnv)
}

func (config *Config) load(lookup func(string) (string, bool)) error {
	var errs []string

	str := func(key string, target *string) {
		if value, found := lookup(envPrefix + key); found {
			*target = value
		}
	}
	integer := func(key string, target *int) {
		if value, found := lookup(envPrefix + key); found {
			n, err := strconv.Atoi(value)
			if err != nil {
				errs = append(errs, envPrefix+key)
				return
			}
			*target = n
		}
	}
	boolean := func(key string, target *bool) {
		if value, found := lookup(envPrefix + key); found {
			b, err := strconv.ParseBool(value)
			if err != nil {
				errs = append(errs, envPrefix+key)
				return
			}
			*target = b
		}
	}
	duration := func(key string, target *time.Duration) {
		if value, found := lookup(envPrefix + key); found {
			d, err := time.ParseDuration(value)
			if err != nil {
				errs = append(errs, envPrefix+key)
				return
			}
			*target = d
		}
	}

	str("ADDR", &config.Addr)
	str("NAME", &config.Name)
	str("TRANSPORT", &config.Transport)
	str("STATIC_DIR", &config.StaticDir)

	maxBodySize := int(config.MaxBodySize)
	integer("MAX_BODY_SIZE", &maxBodySize)
	config.MaxBodySize = int64(maxBodySize)

	integer("CHUNK_SIZE", &config.ChunkSize)
	duration("IDLE_TIMEOUT", &config.IdleTimeout)
	duration("SHUTDOWN_GRACE", &config.ShutdownGrace)

	str("SESSION_COOKIE", &config.Session.CookieName)
	integer("SESSION_MAX_AGE", &config.Session.MaxAge)
	boolean("SESSION_SECURE", &config.Session.Secure)
	str("SESSION_STORE", &config.Session.Store)
	str("SESSION_DB", &config.Session.StorePath)

	str("LOG_LEVEL", &config.Log.Level)
	str("LOG_FILE", &config.Log.File)
	integer("LOG_MAX_SIZE_MB", &config.Log.MaxSizeMB)
	integer("LOG_MAX_BACKUPS", &config.Log.MaxBackups)

	boolean("TELEMETRY", &config.Telemetry.Enabled)
	str("OTLP_ENDPOINT", &config.Telemetry.Endpoint)
	boolean("OTLP_INSECURE", &config.Telemetry.Insecure)

	if len(errs) > 0 {
		return fmt.Errorf("config: malformed environment variables: %s", strings.Join(errs, ", "))
	}

	return config.Validate()
}

func (config *Config) Validate() error {
	switch config.Transport {
	case "conn", "std":
	default:
		return fmt.Errorf("config: unknown transport %q", config.Transport)
	}
	switch config.Session.Store {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("config: unknown session store %q", config.Session.Store)
	}
	if config.MaxBodySize <= 0 {
		return fmt.Errorf("config: max body size must be positive, got %d", config.MaxBodySize)
	}
	if config.ChunkSize <= 0 {
		return fmt.Errorf("config: chunk size must be positive, got %d", config.ChunkSize)
	}
	return nil
}
