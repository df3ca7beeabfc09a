package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"adminpanel.org/internal/config"
	"adminpanel.org/internal/httpapi"
	"adminpanel.org/internal/obs"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		log.Fatalf("%v", err)
	}
	cfg, err := config.LoadMockGateway()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	obs.Init()
	obs.SetLevel(cfg.LogLevel)
	obs.InitBuildInfo("mockgateway", version, commit)

	api, err := httpapi.New(httpapi.Options{
		Secret:         cfg.Secret,
		TokenTTL:       cfg.TokenTTL,
		AdminPassword:  cfg.AdminPass,
		ViewerPassword: cfg.ViewPass,
		Version:        version,
		Demo:           cfg.Demo,
		RatePerSecond:  cfg.RatePerSec,
		RateBurst:      cfg.RateBurst,
	})
	if err != nil {
		log.Fatalf("mock gateway: %v", err)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	logger := obs.Logger()
	logger.Info().Str("addr", srv.Addr).Str("version", version).Bool("demo", cfg.Demo).Msg("starting mock gateway")

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	logger.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	logger.Info().Msg("stopped")
}
