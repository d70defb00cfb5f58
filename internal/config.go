package internal

import (
	"fmt"
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/samber/lo"
)

type Config struct {
	Host       string `env:"HOST,default=0.0.0.0"`
	Port       int    `env:"PORT,default=8080"`
	HealthPort int    `env:"HEALTH_PORT,default=8081"`
	LogLevel   string `env:"LOG_LEVEL,default=INFO"`

	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`
	JWTSecret      string `env:"JWT_SECRET,required=true"`
	JWTIssuer      string `env:"JWT_ISSUER,default=chat-gateway"`

	AuthTimeout          time.Duration `env:"AUTH_TIMEOUT,default=5s"`
	ReplayLimit          int           `env:"REPLAY_LIMIT,default=50"`
	PageSize             int           `env:"PAGE_SIZE,default=10"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=256"`
	MaxMessageSize       int           `env:"MAX_MESSAGE_SIZE,default=65536"`
	MaxTextLength        int           `env:"MAX_TEXT_LENGTH,default=4096"`
	// LockStripes sizes the per-group locks of the send path.
	LockStripes          int           `env:"LOCK_STRIPES,default=256"`

	// Censoring is off when CensoredDir is empty.
	CensoredDir     string `env:"CENSORED_DIR"`
	CharReplacement string `env:"CHARACTER_REPLACEMENT,default=*"`
	AllowedOrigins  string `env:"ALLOWED_ORIGINS"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
	StatsInterval   time.Duration `env:"STATS_INTERVAL,default=15s"`
	GCInterval      time.Duration `env:"GC_INTERVAL,default=10m"`
}

// LoadConfig reads the process environment. Callers load any .env file first.
func LoadConfig() (Config, error) {
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	if strings.TrimSpace(config.JWTSecret) == "" {
		return Config{}, fmt.Errorf("config error: JWT_SECRET must not be blank")
	}
	if config.ReplayLimit <= 0 || config.PageSize <= 0 || config.ConnectionBufferSize <= 0 {
		return Config{}, fmt.Errorf("config error: REPLAY_LIMIT, PAGE_SIZE and CONNECTION_BUFFER_SIZE must be positive")
	}
	return config, nil
}

// Origins splits ALLOWED_ORIGINS on commas. Empty means same-origin only.
func (c Config) Origins() []string {
	parts := lo.Map(strings.Split(c.AllowedOrigins, ","), func(s string, _ int) string {
		return strings.TrimSpace(s)
	})
	return lo.Uniq(lo.Compact(parts))
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
