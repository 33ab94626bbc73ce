package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureDefault(t *testing.T) *bytes.Buffer {
	t.Helper()
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })

	var buf bytes.Buffer
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	return &buf
}

func TestAccessLogLevelFollowsStatus(t *testing.T) {
	e := echo.New()
	e.Use(RequestID())
	e.Use(AccessLog("test"))
	e.GET("/ok", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/challenge", func(c echo.Context) error { return echo.ErrUnauthorized })
	e.GET("/missing", func(c echo.Context) error { return echo.ErrNotFound })
	e.GET("/boom", func(c echo.Context) error { return errors.New("boom") })

	cases := []struct {
		path   string
		status int
		level  string
	}{
		{"/ok", http.StatusOK, "INFO"},
		{"/challenge", http.StatusUnauthorized, "WARN"},
		{"/missing", http.StatusNotFound, "WARN"},
		{"/boom", http.StatusInternalServerError, "ERROR"},
	}

	for _, tc := range cases {
		buf := captureDefault(t)

		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.path, nil))
		require.Equal(t, tc.status, rec.Code, tc.path)

		var record map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &record), tc.path)
		assert.Equal(t, tc.level, record["level"], tc.path)
		assert.Equal(t, float64(tc.status), record["status"], tc.path)
		assert.Equal(t, "test", record["module"], tc.path)
		assert.NotEmpty(t, record["request_id"], tc.path)
	}
}
