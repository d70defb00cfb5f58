package internal

import (
	"chat-gateway/domain"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Run("defaults apply to optional keys", func(t *testing.T) {
		req := require.New(t)
		t.Setenv("BADGER_FILEPATH", "/tmp/chat")
		t.Setenv("JWT_SECRET", "secret")

		config, err := LoadConfig()
		req.NoError(err)
		req.Equal(8080, config.Port)
		req.Equal(8081, config.HealthPort)
		req.Equal("chat-gateway", config.JWTIssuer)
		req.Equal(5*time.Second, config.AuthTimeout)
		req.Equal(50, config.ReplayLimit)
		req.Equal(domain.DefaultPageSize, config.PageSize)
		req.Equal(10*time.Minute, config.GCInterval)
		req.Equal(256, config.LockStripes)
		req.Empty(config.CensoredDir)
	})

	t.Run("explicit values win", func(t *testing.T) {
		req := require.New(t)
		t.Setenv("BADGER_FILEPATH", "/tmp/chat")
		t.Setenv("JWT_SECRET", "secret")
		t.Setenv("REPLAY_LIMIT", "10")
		t.Setenv("AUTH_TIMEOUT", "250ms")

		config, err := LoadConfig()
		req.NoError(err)
		req.Equal(10, config.ReplayLimit)
		req.Equal(250*time.Millisecond, config.AuthTimeout)
	})

	t.Run("missing secret is rejected", func(t *testing.T) {
		req := require.New(t)
		t.Setenv("BADGER_FILEPATH", "/tmp/chat")
		t.Setenv("JWT_SECRET", "")

		_, err := LoadConfig()
		req.Error(err)
	})

	t.Run("non positive limits are rejected", func(t *testing.T) {
		req := require.New(t)
		t.Setenv("BADGER_FILEPATH", "/tmp/chat")
		t.Setenv("JWT_SECRET", "secret")
		t.Setenv("PAGE_SIZE", "0")

		_, err := LoadConfig()
		req.Error(err)
	})
}

func TestConfig_Origins(t *testing.T) {
	req := require.New(t)
	config := Config{AllowedOrigins: " https://a.example ,,https://b.example,https://a.example"}
	req.Equal([]string{"https://a.example", "https://b.example"}, config.Origins())
	req.Empty(Config{}.Origins())
}

func TestCharacterRune(t *testing.T) {
	req := require.New(t)

	r, err := CharacterRune("€")
	req.NoError(err)
	req.Equal('€', r)

	_, err = CharacterRune("**")
	req.Error(err)
	_, err = CharacterRune("")
	req.Error(err)
}
