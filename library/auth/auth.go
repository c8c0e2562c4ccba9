// Package auth resolves the acting principal from the execution context.
//
// Every mutation in the registry is caller-attributed: the principal is
// attached to the context by the caller (CLI flag, verified bearer token)
// and read back by the service layer.
package auth

import (
	"context"
	"regexp"

	"github.com/Laisky/errors/v2"
	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrNoPrincipal indicates the context carries no acting principal.
	ErrNoPrincipal = errors.New("no principal in context")

	regexpPrincipal = regexp.MustCompile(`^[a-zA-Z0-9_@.\-]{1,128}$`)
)

type ctxKey struct{}

// ValidPrincipal checks the principal against the allowed charset.
func ValidPrincipal(principal string) error {
	if !regexpPrincipal.MatchString(principal) {
		return errors.Errorf("invalid principal %q", principal)
	}

	return nil
}

// WithPrincipal attaches the acting principal to the context.
func WithPrincipal(ctx context.Context, principal string) (context.Context, error) {
	if err := ValidPrincipal(principal); err != nil {
		return nil, errors.WithStack(err)
	}

	return context.WithValue(ctx, ctxKey{}, principal), nil
}

// FromContext returns the acting principal attached to the context.
func FromContext(ctx context.Context) (string, error) {
	principal, ok := ctx.Value(ctxKey{}).(string)
	if !ok || principal == "" {
		return "", errors.WithStack(ErrNoPrincipal)
	}

	return principal, nil
}

// Instance is the shared token verifier, set by Initialize.
var Instance *Auth

// Auth verifies bearer tokens and extracts the principal.
type Auth struct {
	secret []byte
}

// Initialize set up the shared token verifier
func Initialize(secret []byte) error {
	if len(secret) == 0 {
		return errors.New("empty auth secret")
	}

	Instance = &Auth{secret: secret}
	return nil
}

// New creates a token verifier with the given HMAC secret.
func New(secret []byte) (*Auth, error) {
	if len(secret) == 0 {
		return nil, errors.New("empty auth secret")
	}

	return &Auth{secret: secret}, nil
}

// PrincipalFromToken verifies the HS256 token and returns its subject
// as the acting principal.
func (a *Auth) PrincipalFromToken(token string) (string, error) {
	uc := new(UserClaims)
	if _, err := jwt.ParseWithClaims(token, uc,
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.Errorf("unexpected signing method %q", t.Header["alg"])
			}
			return a.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	); err != nil {
		return "", errors.Wrap(err, "parse token")
	}

	if err := ValidPrincipal(uc.Subject); err != nil {
		return "", errors.WithStack(err)
	}

	return uc.Subject, nil
}

// SignToken issues an HS256 token for claims.
func (a *Auth) SignToken(uc *UserClaims) (string, error) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, uc).SignedString(a.secret)
	if err != nil {
		return "", errors.Wrap(err, "sign token")
	}

	return token, nil
}
