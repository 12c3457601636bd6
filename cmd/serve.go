package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/reviewlens/internal/api"
	"github.com/joescharf/reviewlens/internal/ledger"
	"github.com/joescharf/reviewlens/internal/metrics"
	webui "github.com/joescharf/reviewlens/internal/ui"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web UI and JSON API server",
	Long: `Start an HTTP server with the embedded web UI, the JSON API under
/api/v1, and Prometheus metrics on /metrics.

Every browser or API client works in its own session ledger.
By default it listens on port 8080. Use --port to change it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), shutdownSignals()...)
		defer stop()
		return serveRun(ctx, viper.GetInt("port"))
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 8080, "port to listen on")
	_ = viper.BindPFlag("port", serveCmd.Flags().Lookup("port"))
}

// newServeHandler wires the API, metrics and UI onto one mux.
func newServeHandler(sessions *ledger.Sessions, ex ledger.Extractor) (http.Handler, error) {
	metrics.Register()

	uiHandler, err := webui.Handler()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize UI handler: %w", err)
	}
	apiServer := api.NewServer(sessions, ex, viper.GetBool("review.normalize"))

	mux := http.NewServeMux()
	mux.Handle("/api/", apiServer.Router())
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.Handle("/", uiHandler)
	return mux, nil
}

func serveRun(ctx context.Context, port int) error {
	ex := newExtractor()
	sessions := ledger.NewSessions(ledger.NewFactory(viper.GetString("ledger.backend"), ex, ledgerOptions()))
	defer func() {
		if err := sessions.Close(); err != nil {
			slog.Error("close sessions", "error", err)
		}
	}()

	handler, err := newServeHandler(sessions, ex)
	if err != nil {
		return err
	}

	if ttl := viper.GetDuration("ledger.session_ttl"); ttl > 0 {
		go sessions.ExpireIdle(ctx, ttl)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	ui.Success("Serving UI at http://localhost%s", srv.Addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	ui.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
