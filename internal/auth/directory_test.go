package auth_test

import (
	"context"
	"testing"
	"time"

	"taskManager/internal/access"
	"taskManager/internal/auth"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret-test-secret-test-secret"

var now = time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)

func newDirectory(t *testing.T, opts ...auth.DirectoryOption) *auth.JWTDirectory {
	t.Helper()
	opts = append([]auth.DirectoryOption{auth.WithTimeFunc(func() time.Time { return now })}, opts...)
	dir, err := auth.NewJWTDirectory(secret, opts...)
	require.NoError(t, err)
	return dir
}

func sign(t *testing.T, method jwt.SigningMethod, key string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(key))
	require.NoError(t, err)
	return token
}

func TestNewJWTDirectory_ShortSecret(t *testing.T) {
	dir, err := auth.NewJWTDirectory("short")
	assert.Error(t, err)
	assert.Nil(t, dir)
}

func TestAuthenticate_IssuedTokens(t *testing.T) {
	dir := newDirectory(t)

	tests := []struct {
		name     string
		subject  string
		roles    []string
		expected access.Caller
	}{
		{name: "user", subject: "user-a", roles: nil, expected: access.Caller{ID: "user-a"}},
		{name: "admin", subject: "root", roles: []string{"Reader", access.AdminRole}, expected: access.Caller{ID: "root", IsAdmin: true}},
		{name: "role is case sensitive", subject: "user-b", roles: []string{"admin"}, expected: access.Caller{ID: "user-b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := dir.Issue(tt.subject, tt.roles, time.Hour)
			require.NoError(t, err)

			caller, err := dir.Authenticate(context.Background(), token)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, caller)
		})
	}
}

func TestAuthenticate_Rejected(t *testing.T) {
	dir := newDirectory(t)
	exp := now.Add(time.Hour).Unix()

	tests := []struct {
		name     string
		token    string
		expected error
	}{
		{name: "empty", token: "", expected: auth.ErrMissingToken},
		{name: "garbage", token: "not.a.jwt", expected: auth.ErrInvalidToken},
		{
			name:     "other secret",
			token:    sign(t, jwt.SigningMethodHS256, secret+"-other", jwt.MapClaims{"sub": "user-a", "exp": exp}),
			expected: auth.ErrInvalidToken,
		},
		{
			name:     "other algorithm",
			token:    sign(t, jwt.SigningMethodHS512, secret, jwt.MapClaims{"sub": "user-a", "exp": exp}),
			expected: auth.ErrInvalidToken,
		},
		{
			name:     "no expiration",
			token:    sign(t, jwt.SigningMethodHS256, secret, jwt.MapClaims{"sub": "user-a"}),
			expected: auth.ErrInvalidToken,
		},
		{
			name:     "no subject",
			token:    sign(t, jwt.SigningMethodHS256, secret, jwt.MapClaims{"exp": exp}),
			expected: auth.ErrInvalidToken,
		},
		{
			name:     "expired",
			token:    sign(t, jwt.SigningMethodHS256, secret, jwt.MapClaims{"sub": "user-a", "exp": now.Add(-time.Hour).Unix()}),
			expected: auth.ErrExpiredToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			caller, err := dir.Authenticate(context.Background(), tt.token)
			assert.ErrorIs(t, err, tt.expected)
			assert.Equal(t, access.Caller{}, caller)
		})
	}
}

// TestAuthenticate_Leeway: токен, истёкший в пределах допуска, принимается
func TestAuthenticate_Leeway(t *testing.T) {
	dir := newDirectory(t, auth.WithLeeway(time.Minute))
	token := sign(t, jwt.SigningMethodHS256, secret, jwt.MapClaims{
		"sub": "user-a",
		"exp": now.Add(-30 * time.Second).Unix(),
	})

	caller, err := dir.Authenticate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "user-a", caller.ID)
}

func TestAuthenticate_IssuerAndAudience(t *testing.T) {
	dir := newDirectory(t, auth.WithIssuer("tasks"), auth.WithAudience("tasks-api"))

	token, err := dir.Issue("user-a", nil, time.Hour)
	require.NoError(t, err)
	_, err = dir.Authenticate(context.Background(), token)
	assert.NoError(t, err)

	foreign := sign(t, jwt.SigningMethodHS256, secret, jwt.MapClaims{
		"sub": "user-a",
		"iss": "someone-else",
		"aud": "tasks-api",
		"exp": now.Add(time.Hour).Unix(),
	})
	_, err = dir.Authenticate(context.Background(), foreign)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestCallerContext(t *testing.T) {
	_, ok := auth.CallerFromContext(context.Background())
	assert.False(t, ok)

	ctx := auth.WithCaller(context.Background(), access.Caller{ID: "user-a"})
	caller, ok := auth.CallerFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "user-a", caller.ID)
}
