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

	"golang.org/x/crypto/bcrypt"

	"github.com/totegamma/works-uploader/internal/config"
	"github.com/totegamma/works-uploader/internal/gate"
	"github.com/totegamma/works-uploader/internal/logging"
)

const usage = `usage:
  works-gate [-config path]   serve the static site behind basic auth
  works-gate hash <password>  print a bcrypt hash for gate.password / BASIC_PASSWORD
`

func main() {
	configPath := flag.String("config", os.Getenv("WORKS_CONFIG"), "path to config.yaml")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	switch flag.Arg(0) {
	case "":
		serve(*configPath)
	case "hash":
		if flag.NArg() != 2 {
			flag.Usage()
			os.Exit(2)
		}
		hash, err := gate.HashPassword(flag.Arg(1), bcrypt.DefaultCost)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println(hash)
	default:
		flag.Usage()
		os.Exit(2)
	}
}

func serve(configPath string) {
	conf, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logging.Setup(conf.Env)

	e, err := gate.New(gate.Config{
		User:         conf.Gate.User,
		PasswordHash: conf.Gate.Password,
		StaticDir:    conf.Gate.StaticDir,
		Realm:        conf.Gate.Realm,
	})
	if err != nil {
		slog.Error("failed to setup gate", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		addr := fmt.Sprintf(":%d", conf.Gate.Port)
		slog.Info("gate listening", slog.String("addr", addr), slog.String("root", conf.Gate.StaticDir))
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
