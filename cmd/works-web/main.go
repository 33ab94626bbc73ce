package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/totegamma/works-uploader/client"
	"github.com/totegamma/works-uploader/internal/config"
	"github.com/totegamma/works-uploader/internal/logging"
	"github.com/totegamma/works-uploader/internal/present/web"
	"github.com/totegamma/works-uploader/internal/store"
	"github.com/totegamma/works-uploader/internal/validation"
)

func main() {
	configPath := flag.String("config", os.Getenv("WORKS_CONFIG"), "path to config.yaml")
	flag.Parse()

	conf, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logging.Setup(conf.Env)

	var api client.API
	if conf.Web.UseStub {
		slog.Info("using stub api", slog.String("module", "main"))
		api = client.NewStub()
	} else {
		baseURL, err := conf.APIURL()
		if err != nil {
			slog.Error("failed to resolve api url", slog.String("error", err.Error()))
			os.Exit(1)
		}
		api = client.New(baseURL, client.WithToken(conf.Web.APIToken))
	}

	mode, err := store.ParseFetchMode(conf.Web.FetchMode)
	if err != nil {
		slog.Error("invalid web.fetchMode", slog.String("error", err.Error()))
		os.Exit(1)
	}

	workStore := store.NewWorkStore(api, store.WithFetchMode(mode))
	activityStore := store.NewActivityStore(store.DefaultActivities(time.Now()))

	renderer, err := web.NewRenderer()
	if err != nil {
		slog.Error("failed to load templates", slog.String("error", err.Error()))
		os.Exit(1)
	}

	e := echo.New()
	e.HideBanner = true
	e.Renderer = renderer
	e.Use(logging.RequestID())
	e.Use(logging.AccessLog("web"))
	e.Use(middleware.Recover())

	web.NewHandler(workStore, activityStore, api, validation.New()).RegisterRoutes(e)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		addr := fmt.Sprintf(":%d", conf.Web.Port)
		slog.Info("works web listening", slog.String("addr", addr), slog.String("env", conf.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server stopped", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown server", slog.String("error", err.Error()))
	}
}
