package auth

import (
	"chat-gateway/domain"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type identityRules struct {
	UserID string `validate:"required,max=128,excludes=:"`
	Role   string `validate:"required,max=64"`
}

// ValidateIdentity rejects tokens that verify but carry no usable identity.
func ValidateIdentity(identity domain.Identity) error {
	return validate.Struct(identityRules{
		UserID: string(identity.UserID),
		Role:   identity.Role,
	})
}
