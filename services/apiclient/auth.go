package apiclient

import (
	"context"
	"net/http"

	"github.com/courseapp/courseapp/core"
)

type (
	loginRequest struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	loginResponse struct {
		Token string `json:"token" validate:"required"`
	}
)

// Login exchanges an email and password for a bearer token.
// admin selects the admin login; bad credentials come back as a core.ValidationError.
func (c *Client) Login(ctx context.Context, email, password string, admin bool) (string, error) {
	path := "/api/user/login"
	if admin {
		path = "/api/admin/login"
	}
	req := loginRequest{Email: core.CleanString(email, true /* lower */), Password: password}

	var resp loginResponse
	if err := c.do(ctx, http.MethodPost, path, req, &resp); err != nil {
		// a 401 here means wrong credentials, not an expired session
		if core.IsAuth(err) {
			return "", core.NewValidationError(err)
		}
		return "", err
	}
	return resp.Token, nil
}
