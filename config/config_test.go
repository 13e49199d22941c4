package config

import (
	"strings"
	"testing"
	"time"

	"github.com/freekieb7/espweb/test"
)

func TestNewConfigDefaults(t *testing.T) {
	config := NewConfig()

	test.Equal(t, "0.0.0.0:8080", config.Addr)
	test.Equal(t, "conn", config.Transport)
	test.Equal(t, int64(8*1024), config.MaxBodySize)
	test.Equal(t, 512, config.ChunkSize)
	test.Equal(t, "sid", config.Session.CookieName)
	test.Equal(t, -1, config.Session.MaxAge)
	test.Equal(t, "memory", config.Session.Store)
	test.NoError(t, config.Validate())
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("ESPWEB_ADDR", "127.0.0.1:9000")
	t.Setenv("ESPWEB_TRANSPORT", "std")
	t.Setenv("ESPWEB_MAX_BODY_SIZE", "1024")
	t.Setenv("ESPWEB_IDLE_TIMEOUT", "30s")
	t.Setenv("ESPWEB_SESSION_SECURE", "true")
	t.Setenv("ESPWEB_TELEMETRY", "1")
	t.Setenv("ESPWEB_SESSION_STORE", "sqlite")
	t.Setenv("ESPWEB_SESSION_DB", "/tmp/espweb.db")

	config := NewConfig()
	test.NoError(t, config.LoadEnv())

	test.Equal(t, "127.0.0.1:9000", config.Addr)
	test.Equal(t, "std", config.Transport)
	test.Equal(t, int64(1024), config.MaxBodySize)
	test.Equal(t, 30*time.Second, config.IdleTimeout)
	test.True(t, config.Session.Secure, "session secure from env")
	test.True(t, config.Telemetry.Enabled, "telemetry from env")
	test.Equal(t, "sqlite", config.Session.Store)
	test.Equal(t, "/tmp/espweb.db", config.Session.StorePath)
	test.Equal(t, 512, config.ChunkSize)
}

func TestLoadMalformed(t *testing.T) {
	env := map[string]string{
		"ESPWEB_CHUNK_SIZE":   "big",
		"ESPWEB_IDLE_TIMEOUT": "soon",
	}
	lookup := func(key string) (string, bool) {
		value, found := env[key]
		return value, found
	}

	err := NewConfig().load(lookup)
	if err == nil {
		t.Fatal("Expected an error for malformed variables")
	}
	test.True(t, strings.Contains(err.Error(), "ESPWEB_CHUNK_SIZE"), "chunk size reported")
	test.True(t, strings.Contains(err.Error(), "ESPWEB_IDLE_TIMEOUT"), "idle timeout reported")
}

func TestValidate(t *testing.T) {
	config := NewConfig()
	config.Transport = "quic"
	test.True(t, config.Validate() != nil, "unknown transport rejected")

	config = NewConfig()
	config.Session.Store = "redis"
	test.True(t, config.Validate() != nil, "unknown session store rejected")

	config = NewConfig()
	config.MaxBodySize = 0
	test.True(t, config.Validate() != nil, "zero body size rejected")
}
