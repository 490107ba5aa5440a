package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/notevault-api/pkg/errors"
	"github.com/noah-isme/notevault-api/pkg/response"
)

// ContextOwnerKey is the gin context key storing the authenticated owner id.
const ContextOwnerKey = "owner_id"

// TokenValidator resolves a bearer token to an owner id.
type TokenValidator interface {
	Validate(token string) (string, error)
}

// JWT protects routes by requiring a valid access token. Streaming clients
// that cannot set headers may pass the token as the access_token query value.
func JWT(tokens TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := bearerToken(c)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		owner, err := tokens.Validate(raw)
		if err != nil {
			response.Error(c, unauthorized(err))
			c.Abort()
			return
		}

		c.Set(ContextOwnerKey, owner)
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		if token := c.Query("access_token"); token != "" {
			return token, nil
		}
		return "", appErrors.ErrAuthRequired
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", appErrors.Clone(appErrors.ErrAuthRequired, "invalid authorization header")
	}
	return strings.TrimSpace(parts[1]), nil
}

func unauthorized(err error) error {
	var typed *appErrors.Error
	if errors.As(err, &typed) {
		return err
	}
	return appErrors.Wrap(err, appErrors.ErrAuthRequired.Code, appErrors.ErrAuthRequired.Status, "invalid token")
}
