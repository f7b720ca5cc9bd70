// Package auth issues and validates the bearer tokens of the dashboard API.
package auth

import (
	"context"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

// Roles carried in tokens.
const (
	RoleAdmin     = "ADMIN"
	RoleDashboard = "DASHBOARD"
)

type ctxKey int

// Key is the context key the middleware stores Claims under.
const Key ctxKey = 1

// ErrInvalidCredentials is returned by SignIn for an unknown user or a
// wrong password.
var ErrInvalidCredentials = errors.New("invalid username or password")

// Claims are the token payload.
type Claims struct {
	jwt.StandardClaims
	Roles []string `json:"roles"`
}

// Authorized reports whether the claims hold any of roles. No roles means
// any authenticated caller.
func (c Claims) Authorized(roles ...string) bool {
	if len(roles) == 0 {
		return true
	}
	for _, has := range c.Roles {
		for _, want := range roles {
			if has == want {
				return true
			}
		}
	}
	return false
}

// FromContext returns the claims stored by the middleware.
func FromContext(ctx context.Context) (Claims, bool) {
	c, ok := ctx.Value(Key).(Claims)
	return c, ok
}

// User is an account allowed to sign in.
type User struct {
	Username     string
	PasswordHash string
	Role         string
}

// Auth signs and validates HS256 tokens for a fixed set of users.
type Auth struct {
	key    []byte
	issuer string
	ttl    time.Duration
	users  map[string]User
	now    func() time.Time
}

// New returns an Auth. The key must not be empty.
func New(key string, issuer string, ttl time.Duration, users ...User) (*Auth, error) {
	if strings.TrimSpace(key) == "" {
		return nil, errors.New("jwt key is required")
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}

	a := Auth{
		key:    []byte(key),
		issuer: issuer,
		ttl:    ttl,
		users:  make(map[string]User, len(users)),
		now:    time.Now,
	}
	for _, u := range users {
		if u.Username == "" || u.PasswordHash == "" {
			continue
		}
		a.users[u.Username] = u
	}

	return &a, nil
}

// SignIn checks the password of username and returns a token for its role.
func (a *Auth) SignIn(username, password string) (string, Claims, error) {
	u, ok := a.users[username]
	if !ok {
		return "", Claims{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", Claims{}, ErrInvalidCredentials
	}

	roles := []string{u.Role}
	if u.Role == RoleAdmin {
		roles = append(roles, RoleDashboard)
	}
	return a.GenerateToken(username, roles...)
}

// GenerateToken signs a token for subject with roles.
func (a *Auth) GenerateToken(subject string, roles ...string) (string, Claims, error) {
	now := a.now()
	claims := Claims{
		StandardClaims: jwt.StandardClaims{
			Subject:   subject,
			Issuer:    a.issuer,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(a.ttl).Unix(),
		},
		Roles: roles,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.key)
	if err != nil {
		return "", Claims{}, errors.Wrap(err, "signing token")
	}

	return signed, claims, nil
}

// ValidateToken parses and verifies a token.
func (a *Auth) ValidateToken(tokenStr string) (Claims, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.key, nil
	})
	if err != nil {
		return Claims{}, errors.Wrap(err, "parsing token")
	}
	if !token.Valid {
		return Claims{}, errors.New("invalid token")
	}

	return claims, nil
}

// HashPassword returns the bcrypt hash stored in configuration.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", errors.Wrap(err, "hashing password")
	}
	return string(hash), nil
}
