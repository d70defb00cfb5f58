package auth

import (
	"chat-gateway/domain"
	"chat-gateway/errors"
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const DefaultIssuer = "chat-gateway"

// CustomClaims defines the structure of the data stored inside the JWT.
type CustomClaims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// JWTVerifier validates HS256 tokens signed with a secret injected at construction.
type JWTVerifier struct {
	key    []byte
	parser *jwt.Parser
}

func NewJWTVerifier(secret []byte, issuer string) *JWTVerifier {
	return &JWTVerifier{
		key: secret,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(issuer),
			jwt.WithExpirationRequired(),
		),
	}
}

// Verify parses and validates the signature and expiration of a JWT string.
func (v *JWTVerifier) Verify(ctx context.Context, credential string) (domain.Identity, error) {
	if err := ctx.Err(); err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %v", errors.ErrAuthentication, err)
	}

	claims := &CustomClaims{}
	token, err := v.parser.ParseWithClaims(credential, claims, func(*jwt.Token) (any, error) {
		return v.key, nil
	})
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %v", errors.ErrAuthentication, err)
	}
	if !token.Valid {
		return domain.Identity{}, fmt.Errorf("%w: %v", errors.ErrAuthentication, jwt.ErrSignatureInvalid)
	}

	identity := domain.Identity{
		UserID:    domain.UserID(claims.UserID),
		Role:      claims.Role,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if err := ValidateIdentity(identity); err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %v", errors.ErrAuthentication, err)
	}
	return identity, nil
}

// Issuer signs tokens with the same secret the verifier uses.
// Real credentials come from the identity service; this one serves tooling and tests.
type Issuer struct {
	key    []byte
	issuer string
}

func NewIssuer(secret []byte, issuer string) Issuer {
	return Issuer{key: secret, issuer: issuer}
}

// Issue creates a signed JWT for a specific user.
func (i Issuer) Issue(userID domain.UserID, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &CustomClaims{
		UserID: string(userID),
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    i.issuer,
			Subject:   string(userID),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.key)
}
