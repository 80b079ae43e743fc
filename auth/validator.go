package auth

import (
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type profile struct {
	Subject string `validate:"required,max=128"`
	Name    string `validate:"max=256"`
	Picture string `validate:"omitempty,url"`
}

// validateClaims checks the profile fields a session is built from.
func validateClaims(claims *IdentityClaims) error {
	return validate.Struct(profile{
		Subject: claims.Subject,
		Name:    claims.Name,
		Picture: claims.Picture,
	})
}
