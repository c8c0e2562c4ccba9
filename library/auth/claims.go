package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// UserClaims are the bearer token claims; Subject carries the principal.
type UserClaims struct {
	jwt.RegisteredClaims
	DisplayName string `json:"display_name"`
}
