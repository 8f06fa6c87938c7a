// Package serve implements the long-running dispatch service command.
package serve

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vantazh/vantazh-go/internal/api"
	"github.com/vantazh/vantazh-go/internal/conf"
	"github.com/vantazh/vantazh-go/internal/logging"
	"github.com/vantazh/vantazh-go/internal/notify"
	"github.com/vantazh/vantazh-go/internal/runtime"
)

const shutdownTimeout = 10 * time.Second

// Command returns the serve subcommand.
func Command(settings *conf.Settings, rtc *runtime.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the dispatch service with the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), settings, rtc)
		},
	}
}

func runServe(ctx context.Context, settings *conf.Settings, rtc *runtime.Context) error {
	if err := conf.ValidateSettings(settings); err != nil {
		return err
	}

	engine, err := runtime.Build(ctx, settings)
	if err != nil {
		return err
	}
	defer func() {
		if err := engine.Close(); err != nil {
			logging.Error("engine shutdown failed", "error", err)
		}
		notify.CloseLogger()
	}()

	if !settings.WebServer.Enabled {
		return fmt.Errorf("webserver is disabled in configuration, nothing to serve")
	}

	controller := api.New(settings, engine.Store, engine.Broadcaster, engine.Proximity, engine.Metrics)
	controller.Version = rtc.Version

	errCh := make(chan error, 1)
	go func() {
		if err := controller.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	logging.Info("dispatch service started",
		"port", settings.WebServer.Port,
		"push_enabled", settings.Notify.Push.Enabled,
		"email_enabled", settings.Notify.Email.Enabled,
		"mqtt_enabled", settings.MQTT.Enabled)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logging.Info("shutting down", "signal", sig.String())
	case <-ctx.Done():
		logging.Info("shutting down", "reason", ctx.Err())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return controller.Shutdown(shutdownCtx)
}
