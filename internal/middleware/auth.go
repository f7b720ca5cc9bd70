package middleware

import (
	"context"
	"net/http"
	"strings"

	"attendance/dashboard/foundation/web"
	"attendance/dashboard/internal/auth"

	"github.com/pkg/errors"
)

// Authenticate validates the bearer token and requires one of role when any
// are given. EventSource clients cannot set headers, so a "token" query
// parameter is accepted as well.
func Authenticate(a *auth.Auth, role ...string) web.Middleware {
	// This is the actual middleware function to be executed.
	m := func(handler web.Handler) web.Handler {

		// Create the handler that will be attached in the middleware chain.
		h := func(c *web.Context) error {
			token, err := bearer(c)
			if err != nil {
				return c.RespondError(web.NewRequestError(err, http.StatusUnauthorized))
			}

			// Validate the token is signed by us.
			claims, err := a.ValidateToken(token)
			if err != nil {
				return c.RespondError(web.NewRequestError(err, http.StatusUnauthorized))
			}

			if !claims.Authorized(role...) {
				return c.RespondError(web.NewRequestError(errors.New("attempted action is not allowed"), http.StatusForbidden))
			}

			// Add claims to the context so that they can be retrieved later.
			c.Ctx = context.WithValue(c.Ctx, auth.Key, claims)

			return handler(c)
		}

		return h
	}

	return m
}

// bearer extracts the token from "Authorization: Bearer <token>" or the
// token query parameter.
func bearer(c *web.Context) (string, error) {
	authStr := c.Request.Header.Get("authorization")
	if authStr == "" {
		if token := c.Query("token"); token != "" {
			return token, nil
		}
	}

	parts := strings.Split(authStr, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", errors.New("expected authorization header format: Bearer <token>")
	}
	return parts[1], nil
}
