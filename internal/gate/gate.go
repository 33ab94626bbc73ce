package gate

import (
	"crypto/subtle"
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/totegamma/works-uploader/internal/logging"
)

type Config struct {
	User         string
	PasswordHash string
	StaticDir    string
	Realm        string
}

// New returns a server that challenges every request for basic credentials
// and serves StaticDir to those who pass.
func New(cfg Config) (*echo.Echo, error) {
	if cfg.User == "" || cfg.PasswordHash == "" {
		return nil, errors.New("gate user and password hash must be set")
	}
	if _, err := bcrypt.Cost([]byte(cfg.PasswordHash)); err != nil {
		return nil, errors.Wrap(err, "gate password is not a bcrypt hash")
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(logging.RequestID())
	e.Use(logging.AccessLog("gate"))
	e.Use(middleware.Recover())
	// a Basic header that is not valid base64 gets 400 without a challenge
	e.Use(middleware.BasicAuthWithConfig(middleware.BasicAuthConfig{
		Validator: Validator(cfg.User, cfg.PasswordHash),
		Realm:     cfg.Realm,
	}))
	e.Use(middleware.StaticWithConfig(middleware.StaticConfig{
		Root:  cfg.StaticDir,
		Index: "index.html",
	}))

	return e, nil
}

// Validator admits a request iff the username matches and the password
// verifies against the bcrypt hash.
func Validator(user, passwordHash string) middleware.BasicAuthValidator {
	return func(username, password string, c echo.Context) (bool, error) {
		userOK := subtle.ConstantTimeCompare([]byte(username), []byte(user)) == 1
		passwordOK := CheckPassword(password, passwordHash)
		if !userOK || !passwordOK {
			slog.InfoContext(
				c.Request().Context(), "basic auth rejected",
				slog.String("user", username),
				slog.String("module", "gate"),
			)
			return false, nil
		}
		return true, nil
	}
}

func HashPassword(password string, cost int) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	return string(bytes), err
}

func CheckPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
