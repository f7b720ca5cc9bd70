package auth

import (
	"net/http"

	"attendance/dashboard/foundation/web"
	"attendance/dashboard/internal/auth"

	"github.com/pkg/errors"
)

type Controller struct {
	auth Authenticator
}

func NewController(auth Authenticator) *Controller {
	return &Controller{auth: auth}
}

func (ac Controller) SignIn(c *web.Context) error {
	var data SignInRequest

	err := c.BindFunc(&data, "Username", "Password")
	if err != nil {
		return c.RespondError(err)
	}

	token, claims, err := ac.auth.SignIn(data.Username, data.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return c.RespondError(web.NewRequestError(err, http.StatusUnauthorized))
		}
		return c.RespondError(err)
	}

	return c.Respond(map[string]interface{}{
		"status": true,
		"data": SignInResponse{
			AccessToken: token,
			ExpiresAt:   claims.ExpiresAt,
			Roles:       claims.Roles,
		},
		"error": nil,
	}, http.StatusOK)
}
