// Package session signs and verifies the console's JWT session tokens.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"opsconsole/internal/model"
)

// CookieName carries the token for browser clients.
const CookieName = "accessToken"

var (
	ErrMissing = errors.New("session: token is missing")
	ErrInvalid = errors.New("session: token is invalid")
	ErrExpired = errors.New("session: token has expired")
)

// Claims is the token payload.
type Claims struct {
	UserID   string `json:"userId"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Actor converts verified claims to the caller identity.
func (c *Claims) Actor() (model.Actor, error) {
	id, err := uuid.Parse(c.UserID)
	if err != nil {
		return model.Actor{}, ErrInvalid
	}
	return model.Actor{ID: id, Email: c.Email, FullName: c.FullName, Role: c.Role}, nil
}

type Manager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewManager(secret string, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Manager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (m *Manager) TTL() time.Duration { return m.ttl }

// Issue signs a token for u valid for the configured TTL.
func (m *Manager) Issue(u *model.User) (string, time.Time, error) {
	now := m.now()
	exp := now.Add(m.ttl)
	claims := Claims{
		UserID:   u.ID.String(),
		Email:    u.Email,
		FullName: u.FullName,
		Role:     u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("session: sign: %w", err)
	}
	return signed, exp, nil
}

// Parse verifies signature and expiry.
func (m *Manager) Parse(token string) (*Claims, error) {
	if token == "" {
		return nil, ErrMissing
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now), jwt.WithExpirationRequired())
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrExpired
	default:
		return nil, ErrInvalid
	}
	if claims.UserID == "" {
		return nil, ErrInvalid
	}
	return claims, nil
}
