package v1

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/streamreact/companion/internal/domain"
	"github.com/streamreact/companion/internal/policy"
)

const identityKey = "identity"

// Authenticate resolves an optional bearer token to an identity. A present
// but invalid token is rejected outright.
func (h *Handler) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		if header == "" {
			return next(c)
		}
		if !strings.HasPrefix(header, "Bearer ") {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid authorization header"})
		}

		identity, err := h.service.Verifier().Verify(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			return h.writeError(c, err)
		}
		c.Set(identityKey, *identity)
		return next(c)
	}
}

// Authorize consults the access policy for action.
func (h *Handler) Authorize(action string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity, authenticated := identityFrom(c)
			input := policy.Input{Action: action, Authenticated: authenticated}
			if authenticated {
				input.Role = string(identity.Role)
			}

			allowed, err := h.policy.Allowed(c.Request().Context(), input)
			if err != nil {
				h.log.Error("policy evaluation failed", zap.String("action", action), zap.Error(err))
				return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Server error"})
			}
			if !allowed {
				if !authenticated {
					return h.writeError(c, domain.ErrUnauthenticated)
				}
				return h.writeError(c, domain.ErrForbidden)
			}
			return next(c)
		}
	}
}

func identityFrom(c echo.Context) (domain.Identity, bool) {
	identity, ok := c.Get(identityKey).(domain.Identity)
	return identity, ok
}
