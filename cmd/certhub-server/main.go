package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"certifyhub-backend/lib/configutil"
	"certifyhub-backend/lib/serviceutil"
	"certifyhub-backend/lib/telemetry"
	"certifyhub-backend/services/certserver"
)

type Config struct {
	Port int    `json:"port"`
	Data string `json:"data"`
}

func main() {
	ctx := serviceutil.SignalContext()

	telemetry.InitSlog(false)
	err := telemetry.SetupFromEnv(ctx, "certhub-server")
	if err != nil && !os.IsNotExist(err) {
		serviceutil.Fatal("failed to setup telemetry", err)
	}
	defer telemetry.Shutdown(context.Background())

	config, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil && !os.IsNotExist(err) {
		serviceutil.Fatal("failed to read config", err)
	}
	if config.Port == 0 {
		config.Port = 8080
	}
	if config.Data == "" {
		config.Data = "data"
	}

	service := certserver.NewService(config.Data)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", config.Port),
		Handler: service.Router(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second*10)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	slog.Info("serving datasets", "port", config.Port, "data", config.Data)
	err = server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		serviceutil.Fatal("server exited", err)
	}
}
