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
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/totegamma/works-uploader/internal/config"
	"github.com/totegamma/works-uploader/internal/infra/cache"
	"github.com/totegamma/works-uploader/internal/infra/database"
	"github.com/totegamma/works-uploader/internal/infra/repository"
	"github.com/totegamma/works-uploader/internal/infra/storage"
	"github.com/totegamma/works-uploader/internal/infra/tracing"
	"github.com/totegamma/works-uploader/internal/logging"
	"github.com/totegamma/works-uploader/internal/present/form"
	"github.com/totegamma/works-uploader/internal/present/rest"
	authmw "github.com/totegamma/works-uploader/internal/present/rest/middleware"
	"github.com/totegamma/works-uploader/internal/service"
	"github.com/totegamma/works-uploader/internal/usecase"
	"github.com/totegamma/works-uploader/internal/validation"
)

const serviceName = "works-api"

func main() {
	configPath := flag.String("config", os.Getenv("WORKS_CONFIG"), "path to config.yaml")
	flag.Parse()

	conf, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logging.Setup(conf.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if conf.Server.EnableTrace {
		shutdown, err := tracing.Setup(ctx, serviceName, conf.Server.TraceEndpoint)
		if err != nil {
			slog.Error("failed to setup tracing", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				slog.Error("failed to shutdown tracer", slog.String("error", err.Error()))
			}
		}()
	}

	if conf.Auth.JWTSecret == "" {
		slog.Error("auth.jwtSecret (WORKS_JWT_SECRET) must be set")
		os.Exit(1)
	}

	db, err := database.NewPostgres(conf.Server.PostgresDsn)
	if err != nil {
		slog.Error("failed to connect database", slog.String("error", err.Error()))
		os.Exit(1)
	}

	err = database.MigratePostgres(db)
	if err != nil {
		slog.Error("failed to migrate database", slog.String("error", err.Error()))
		os.Exit(1)
	}

	var signalService *service.SignalService
	if conf.Server.RedisAddr != "" {
		rdb := database.NewRedis(conf.Server.RedisAddr, conf.Server.RedisPassword, conf.Server.RedisDB)
		if err := database.PingRedis(ctx, rdb); err != nil {
			slog.Warn(
				"redis unavailable, realtime disabled",
				slog.String("error", err.Error()),
				slog.String("module", "main"),
			)
		} else {
			signalService = service.NewSignalService(rdb)
			defer rdb.Close()
		}
	}

	var workCache cache.Cache
	if conf.Server.MemcachedAddr != "" {
		workCache = cache.NewMemcached(database.NewMemcached(conf.Server.MemcachedAddr))
	} else {
		workCache = cache.NewMemory(5*time.Minute, 10*time.Minute)
	}

	objects, err := storage.New(storage.Config{
		Type:      conf.Storage.Type,
		BasePath:  conf.Storage.BasePath,
		BaseURL:   conf.Storage.BaseURL,
		Bucket:    conf.Storage.Bucket,
		Region:    conf.Storage.Region,
		Endpoint:  conf.Storage.Endpoint,
		AccessKey: conf.Storage.AccessKey,
		SecretKey: conf.Storage.SecretKey,
	})
	if err != nil {
		slog.Error("failed to setup storage", slog.String("error", err.Error()))
		os.Exit(1)
	}

	workRepo := repository.NewCachedWorkRepository(repository.NewWorkRepository(db), workCache)
	activityRepo := repository.NewActivityRepository(db)
	userRepo := repository.NewUserRepository(db)

	var publisher usecase.ActivityPublisher
	var realtime rest.Realtime
	if signalService != nil {
		publisher = signalService
		realtime = signalService
	}

	activityUsecase := usecase.NewActivityUsecase(activityRepo, publisher)
	workUsecase := usecase.NewWorkUsecase(workRepo, objects, activityUsecase, validation.New())
	authService := service.NewAuthService(conf.Auth.JWTSecret, userRepo)

	e := echo.New()
	e.HideBanner = true
	if conf.Server.EnableTrace {
		e.Use(otelecho.Middleware(serviceName))
	}
	e.Use(logging.RequestID())
	e.Use(logging.AccessLog("api"))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:  []string{"*"},
		ExposeHeaders: []string{echo.HeaderLocation, "X-Total-Count"},
	}))
	e.Use(middleware.BodyLimit(fmt.Sprintf("%dM", 2*form.MaxFileSize>>20+1)))
	e.Use(authmw.NewAuthMiddleware(authService).IdentifyIdentity)

	if local, ok := objects.(*storage.Local); ok {
		e.Static("/files", local.BasePath())
	}

	rest.NewHandler(workUsecase, activityUsecase, realtime).RegisterRoutes(e)

	go func() {
		addr := fmt.Sprintf(":%d", conf.Server.Port)
		slog.Info("works api listening", slog.String("addr", addr), slog.String("env", conf.Env))
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
