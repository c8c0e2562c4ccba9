package auth

import (
	"context"
	"testing"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestPrincipalContextRoundTrip(t *testing.T) {
	t.Parallel()

	ctx, err := WithPrincipal(context.Background(), "alice")
	require.NoError(t, err)

	principal, err := FromContext(ctx)
	require.NoError(t, err)
	require.Equal(t, "alice", principal)

	_, err = FromContext(context.Background())
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrNoPrincipal))
}

func TestWithPrincipalRejectsInvalid(t *testing.T) {
	t.Parallel()

	for _, principal := range []string{"", "has space", "a:b"} {
		_, err := WithPrincipal(context.Background(), principal)
		require.Error(t, err, "principal %q should be rejected", principal)
	}
}

func TestTokenRoundTrip(t *testing.T) {
	t.Parallel()

	a, err := New([]byte("test-secret"))
	require.NoError(t, err)

	now := time.Now()
	token, err := a.SignToken(&UserClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "alice",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
		DisplayName: "Alice",
	})
	require.NoError(t, err)

	principal, err := a.PrincipalFromToken(token)
	require.NoError(t, err)
	require.Equal(t, "alice", principal)
}

func TestTokenWrongSecret(t *testing.T) {
	t.Parallel()

	signer, err := New([]byte("secret-a"))
	require.NoError(t, err)
	verifier, err := New([]byte("secret-b"))
	require.NoError(t, err)

	now := time.Now()
	token, err := signer.SignToken(&UserClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "alice",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	})
	require.NoError(t, err)

	_, err = verifier.PrincipalFromToken(token)
	require.Error(t, err)
}

func TestExpiredToken(t *testing.T) {
	t.Parallel()

	a, err := New([]byte("test-secret"))
	require.NoError(t, err)

	now := time.Now()
	token, err := a.SignToken(&UserClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "alice",
			IssuedAt:  jwt.NewNumericDate(now.Add(-2 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(now.Add(-time.Hour)),
		},
	})
	require.NoError(t, err)

	_, err = a.PrincipalFromToken(token)
	require.Error(t, err)
}
