package e2e

import (
	"github.com/Netflix/go-env"
)

// Config points the suite at a running gateway. The suite is skipped when
// E2E_GATEWAY_ADDR is unset.
type Config struct {
	GatewayAddr string `env:"E2E_GATEWAY_ADDR"`
	HealthAddr  string `env:"E2E_HEALTH_ADDR"`
	// Same secret and issuer as the gateway, to mint test users.
	JWTSecret string `env:"E2E_JWT_SECRET"`
	JWTIssuer string `env:"E2E_JWT_ISSUER,default=chat-gateway"`
	// E2E_DEBUG_JSON allows dumping full gRPC request/response bodies as JSON
	DebugJSON bool `env:"E2E_DEBUG_JSON,default=false"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `env:"E2E_COLOURS,default=true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	return cfg, err
}
