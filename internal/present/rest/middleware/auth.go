package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/totegamma/works-uploader"
	"github.com/totegamma/works-uploader/internal/domain"
	"github.com/totegamma/works-uploader/internal/present/rest/presenter"
)

var tracer = otel.Tracer("auth")

// Authenticator resolves a bearer token to its user.
type Authenticator interface {
	AuthJwt(ctx context.Context, token string) (works.User, error)
}

type AuthMiddleware struct {
	auth Authenticator
}

func NewAuthMiddleware(auth Authenticator) *AuthMiddleware {
	return &AuthMiddleware{
		auth: auth,
	}
}

// IdentifyIdentity requires a valid bearer token on every non-read request
// and stores the requester in the request context. Reads are public.
func (s *AuthMiddleware) IdentifyIdentity(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		switch c.Request().Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			return next(c)
		}

		ctx, span := tracer.Start(c.Request().Context(), "Auth.Middleware.IdentifyIdentity")
		defer span.End()

		authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
		split := strings.Split(authHeader, " ")
		if len(split) != 2 {
			span.RecordError(fmt.Errorf("invalid authentication header"))
			return presenter.Unauthorized(c, "missing bearer token")
		}

		authType, token := split[0], split[1]
		if authType != "Bearer" {
			span.RecordError(fmt.Errorf("only Bearer is acceptable"))
			return presenter.Unauthorized(c, "only Bearer is acceptable")
		}

		user, err := s.auth.AuthJwt(ctx, token)
		if err != nil {
			span.RecordError(errors.Wrap(err, "AuthMiddleware.IdentifyIdentity: s.auth.AuthJwt failed"))
			if errors.Is(err, domain.ErrUnauthorized) {
				return presenter.Unauthorized(c, "invalid token")
			}
			return presenter.InternalError(c, err)
		}

		ctx = context.WithValue(ctx, domain.RequesterCtxKey, user)
		span.SetAttributes(attribute.String("RequesterId", user.ID))

		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}

// Requester returns the authenticated user stored by IdentifyIdentity.
func Requester(ctx context.Context) (works.User, bool) {
	user, ok := ctx.Value(domain.RequesterCtxKey).(works.User)
	return user, ok
}
