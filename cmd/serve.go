package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/omnitrack/omnitrack/internal/api"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the REST API server",
	Long: `Run the HTTP API on the configured port. The in-memory store is
seeded once at startup and lives for the duration of the process.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveRun()
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Listen port (default 8787)")
	rootCmd.AddCommand(serveCmd)

	viper.SetDefault("port", 8787)
}

func serveRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}

	var adv api.Advisor
	if c := getAdvisor(); c != nil {
		adv = c
	} else {
		slog.Info("advisory service disabled, no API key configured")
	}

	port := servePort
	if port == 0 {
		port = viper.GetInt("port")
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           api.NewServer(s, adv).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
