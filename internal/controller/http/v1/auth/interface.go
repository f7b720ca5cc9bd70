package auth

import "attendance/dashboard/internal/auth"

type Authenticator interface {
	SignIn(username, password string) (string, auth.Claims, error)
}
