package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/flightprep/lms/internal/apperr"
	"github.com/flightprep/lms/internal/model"
)

// UserSource resolves token subjects to users.
type UserSource interface {
	GetUserByID(id string) (*model.User, error)
}

// Authenticator issues and verifies signed bearer tokens carrying the
// caller's role claim.
type Authenticator struct {
	secret []byte
	ttl    time.Duration
	users  UserSource
}

// New creates an Authenticator signing with the given secret.
func New(secret string, ttl time.Duration, users UserSource) (*Authenticator, error) {
	if secret == "" {
		return nil, fmt.Errorf("token secret is required")
	}
	return &Authenticator{secret: []byte(secret), ttl: ttl, users: users}, nil
}

// IssueToken creates a signed token for the user.
func (a *Authenticator) IssueToken(u *model.User) (string, error) {
	claims := jwt.MapClaims{
		"sub":  u.ID,
		"role": string(u.Role),
		"exp":  time.Now().Add(a.ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// verifyToken parses a token and returns the subject user ID.
func (a *Authenticator) verifyToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return "", apperr.Authorization("invalid token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", apperr.Authorization("invalid token claims")
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", apperr.Authorization("token has no subject")
	}
	return sub, nil
}
