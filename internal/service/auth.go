package service

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/totegamma/works-uploader"
	"github.com/totegamma/works-uploader/internal/domain"
)

var tracer = otel.Tracer("service")

// UserRepository is where authenticated users are recorded.
type UserRepository interface {
	Upsert(ctx context.Context, user works.User) (works.User, error)
}

type AuthService struct {
	secret []byte
	users  UserRepository
}

func NewAuthService(secret string, users UserRepository) *AuthService {
	return &AuthService{
		secret: []byte(secret),
		users:  users,
	}
}

// Claims are the registered claims plus the profile shown next to works.
type Claims struct {
	jwt.RegisteredClaims
	Name     string `json:"name,omitempty"`
	Nickname string `json:"nickname,omitempty"`
	Picture  string `json:"picture,omitempty"`
}

// AuthJwt verifies an HS256 token and returns the user it was issued to.
func (s *AuthService) AuthJwt(ctx context.Context, token string) (works.User, error) {
	ctx, span := tracer.Start(ctx, "Auth.Service.AuthJwt")
	defer span.End()

	if len(s.secret) == 0 {
		err := fmt.Errorf("jwt secret is not configured")
		span.RecordError(err)
		return works.User{}, err
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		span.RecordError(errors.Wrap(err, "jwt validation failed"))
		return works.User{}, errors.Wrap(domain.ErrUnauthorized, err.Error())
	}

	if claims.Subject == "" {
		err := fmt.Errorf("missing subject")
		span.RecordError(err)
		return works.User{}, errors.Wrap(domain.ErrUnauthorized, err.Error())
	}
	span.SetAttributes(attribute.String("RequesterId", claims.Subject))

	user := works.User{
		ID:       claims.Subject,
		Name:     claims.Name,
		Nickname: claims.Nickname,
		Picture:  claims.Picture,
	}

	if s.users != nil {
		user, err = s.users.Upsert(ctx, user)
		if err != nil {
			span.RecordError(errors.Wrap(err, "users.Upsert failed"))
			return works.User{}, err
		}
	}

	return user, nil
}

// IssueJwt signs a token for user. Used by tooling and tests.
func (s *AuthService) IssueJwt(user works.User, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Name:     user.Name,
		Nickname: user.Nickname,
		Picture:  user.Picture,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}
