// Package auth - справочник пользователей: превращает Bearer токен в access.Caller.
package auth

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"taskManager/internal/access"
	"taskManager/internal/logger"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

var (
	ErrMissingToken = errors.New("токен не передан")
	ErrInvalidToken = errors.New("невалидный токен")
	ErrExpiredToken = errors.New("срок действия токена истёк")
)

const minSecretLength = 32

type Directory interface {
	Authenticate(ctx context.Context, token string) (access.Caller, error)
}

type claims struct {
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// JWTDirectory проверяет HS256 токены: sub - идентификатор пользователя, roles - роли
type JWTDirectory struct {
	secret   []byte
	issuer   string
	audience string
	leeway   time.Duration
	now      func() time.Time
}

var _ Directory = (*JWTDirectory)(nil)

type DirectoryOption func(*JWTDirectory)

func WithIssuer(issuer string) DirectoryOption {
	return func(d *JWTDirectory) {
		d.issuer = issuer
	}
}

func WithAudience(audience string) DirectoryOption {
	return func(d *JWTDirectory) {
		d.audience = audience
	}
}

func WithLeeway(leeway time.Duration) DirectoryOption {
	return func(d *JWTDirectory) {
		d.leeway = leeway
	}
}

func WithTimeFunc(now func() time.Time) DirectoryOption {
	return func(d *JWTDirectory) {
		if now != nil {
			d.now = now
		}
	}
}

func NewJWTDirectory(secret string, opts ...DirectoryOption) (*JWTDirectory, error) {
	if len(secret) < minSecretLength {
		return nil, fmt.Errorf("секрет JWT должен быть не короче %d символов", minSecretLength)
	}

	d := &JWTDirectory{
		secret: []byte(secret),
		leeway: time.Minute,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

func (d *JWTDirectory) Authenticate(ctx context.Context, token string) (access.Caller, error) {
	if token == "" {
		return access.Caller{}, ErrMissingToken
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithLeeway(d.leeway),
		jwt.WithTimeFunc(d.now),
		jwt.WithExpirationRequired(),
	}
	if d.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(d.issuer))
	}
	if d.audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(d.audience))
	}

	parsed, err := jwt.ParseWithClaims(token, &claims{}, func(*jwt.Token) (any, error) {
		return d.secret, nil
	}, parserOpts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return access.Caller{}, ErrExpiredToken
		}
		logger.Debug("Auth: Токен отклонён", zap.Error(err))
		return access.Caller{}, ErrInvalidToken
	}

	c, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid || c.Subject == "" {
		return access.Caller{}, ErrInvalidToken
	}

	return access.Caller{
		ID:      c.Subject,
		IsAdmin: slices.Contains(c.Roles, access.AdminRole),
	}, nil
}

// Issue подписывает токен тем же секретом, используется в тестах и команде token
func (d *JWTDirectory) Issue(subject string, roles []string, ttl time.Duration) (string, error) {
	now := d.now()
	rc := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    d.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	if d.audience != "" {
		rc.Audience = jwt.ClaimStrings{d.audience}
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Roles:            roles,
		RegisteredClaims: rc,
	}).SignedString(d.secret)
	if err != nil {
		return "", fmt.Errorf("подпись токена: %w", err)
	}
	return signed, nil
}
