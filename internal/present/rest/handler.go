package rest

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/totegamma/works-uploader"
	"github.com/totegamma/works-uploader/internal/domain"
	"github.com/totegamma/works-uploader/internal/present/form"
	"github.com/totegamma/works-uploader/internal/present/rest/middleware"
	"github.com/totegamma/works-uploader/internal/present/rest/presenter"
	"github.com/totegamma/works-uploader/internal/usecase"
)

// Realtime streams activities to output until ctx is done.
type Realtime interface {
	Realtime(ctx context.Context, output chan<- works.Activity)
}

type Handler struct {
	work     *usecase.WorkUsecase
	activity *usecase.ActivityUsecase
	signal   Realtime
}

// NewHandler wires the API. signal may be nil, in which case /realtime is not served.
func NewHandler(
	work *usecase.WorkUsecase,
	activity *usecase.ActivityUsecase,
	signal Realtime,
) *Handler {
	return &Handler{
		work:     work,
		activity: activity,
		signal:   signal,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/works", h.handleListWorks)
	e.GET("/works/:id", h.handleGetWork)
	e.POST("/works", h.handleCreateWork)
	e.PUT("/works/:id", h.handleUpdateWork)
	e.DELETE("/works/:id", h.handleDeleteWork)
	e.GET("/activities", h.handleActivities)
	if h.signal != nil {
		e.GET("/realtime", h.handleRealtime)
	}
}

func (h *Handler) handleListWorks(c echo.Context) error {
	ctx := c.Request().Context()

	offset, err := intParam(c, "offset", 0)
	if err != nil || offset < 0 {
		return presenter.BadRequestMessage(c, "invalid offset parameter")
	}
	limit, err := intParam(c, "limit", domain.DefaultListLimit)
	if err != nil || limit < 0 {
		return presenter.BadRequestMessage(c, "invalid limit parameter")
	}

	list, total, err := h.work.List(ctx, offset, limit)
	if err != nil {
		return presenter.Error(c, err)
	}

	c.Response().Header().Set("X-Total-Count", strconv.FormatInt(total, 10))
	return presenter.OK(c, list)
}

func (h *Handler) handleGetWork(c echo.Context) error {
	ctx := c.Request().Context()

	work, err := h.work.Get(ctx, c.Param("id"))
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, work)
}

func (h *Handler) handleCreateWork(c echo.Context) error {
	ctx := c.Request().Context()

	requester, ok := middleware.Requester(ctx)
	if !ok {
		return presenter.Unauthorized(c, "unauthorized")
	}

	input, err := form.BindWork(c)
	if err != nil {
		return presenter.BadRequest(c, err)
	}

	work, err := h.work.Create(ctx, requester, input)
	if err != nil {
		return presenter.Error(c, err)
	}

	location := fmt.Sprintf("%s://%s/works/%s", c.Scheme(), c.Request().Host, work.ID)
	return presenter.Created(c, location, work)
}

func (h *Handler) handleUpdateWork(c echo.Context) error {
	ctx := c.Request().Context()

	requester, ok := middleware.Requester(ctx)
	if !ok {
		return presenter.Unauthorized(c, "unauthorized")
	}

	input, err := form.BindWork(c)
	if err != nil {
		return presenter.BadRequest(c, err)
	}

	work, err := h.work.Update(ctx, requester, c.Param("id"), input)
	if err != nil {
		return presenter.Error(c, err)
	}

	location := fmt.Sprintf("%s://%s/works/%s", c.Scheme(), c.Request().Host, work.ID)
	c.Response().Header().Set(echo.HeaderLocation, location)
	return presenter.OK(c, work)
}

func (h *Handler) handleDeleteWork(c echo.Context) error {
	ctx := c.Request().Context()

	requester, ok := middleware.Requester(ctx)
	if !ok {
		return presenter.Unauthorized(c, "unauthorized")
	}

	err := h.work.Delete(ctx, requester, c.Param("id"))
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.NoContent(c)
}

func (h *Handler) handleActivities(c echo.Context) error {
	ctx := c.Request().Context()

	limit, err := intParam(c, "limit", domain.DefaultActivityLimit)
	if err != nil {
		return presenter.BadRequestMessage(c, "invalid limit parameter")
	}

	list, err := h.activity.Recent(ctx, limit)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, list)
}

func intParam(c echo.Context, name string, fallback int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Request struct {
	Type string `json:"type"`
}

func (h *Handler) handleRealtime(c echo.Context) error {
	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Error(
			"Failed to upgrade WebSocket",
			slog.String("error", err.Error()),
			slog.String("module", "socket"),
		)
		return err
	}
	defer func() {
		ws.Close()
	}()

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	output := make(chan works.Activity)
	go h.signal.Realtime(ctx, output)

	quit := make(chan struct{})

	go func() {
		defer close(quit)
		for {
			var req Request
			err := ws.ReadJSON(&req)
			if err != nil {

				wsErr, ok := err.(*websocket.CloseError)
				if ok {
					if !(wsErr.Code == websocket.CloseNormalClosure || wsErr.Code == websocket.CloseGoingAway) {
						slog.DebugContext(
							ctx, "WebSocket closed",
							slog.String("error", wsErr.Error()),
							slog.String("module", "socket"),
						)
					}
				} else {
					slog.ErrorContext(
						ctx, "Error reading message",
						slog.String("error", err.Error()),
						slog.String("module", "socket"),
					)
				}
				return
			}

			switch req.Type {
			case "h": // heartbeat
			default:
				slog.InfoContext(
					ctx, "Unknown request type",
					slog.String("type", req.Type),
					slog.String("module", "socket"),
				)
			}
		}
	}()

	for {
		select {
		case <-quit:
			return nil
		case activity := <-output:
			err := ws.WriteJSON(activity)
			if err != nil {
				slog.ErrorContext(
					ctx, "Error writing message",
					slog.String("error", err.Error()),
					slog.String("module", "socket"),
				)
				return nil
			}
		}
	}
}
