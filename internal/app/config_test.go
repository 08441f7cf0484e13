package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetEnvInt(t *testing.T) {
	t.Setenv("TEST_INT", "42")
	assert.Equal(t, 42, getEnvInt("TEST_INT", 7))
	assert.Equal(t, 7, getEnvInt("TEST_MISSING", 7))

	t.Setenv("TEST_BAD", "nope")
	assert.Equal(t, 7, getEnvInt("TEST_BAD", 7))
}

func TestSplitCSV(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitCSV(" a, b ,"))
	assert.Nil(t, splitCSV(""))
}

func TestLoadConfigDefaults(t *testing.T) {
	for _, k := range []string{"APP_ENV", "HTTP_ADDR", "CHAT_SCROLLBACK", "CORS_ALLOW"} {
		t.Setenv(k, "")
	}

	cfg := LoadConfig()
	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 100, cfg.ChatScrollback)
	assert.NotEmpty(t, cfg.CORSAllow)
}
