package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"sahm-rule-lab/internal/cache"
	"sahm-rule-lab/internal/config"
	"sahm-rule-lab/internal/fred"
	"sahm-rule-lab/internal/ingestion"
	"sahm-rule-lab/internal/logging"
	"sahm-rule-lab/internal/observability"
)

var configPath string

// env holds what every subcommand needs after startup.
type env struct {
	cfg    *config.Config
	logger zerolog.Logger
	closer io.Closer
}

// rootCmd is the base command for the sahm CLI
var rootCmd = &cobra.Command{
	Use:   "sahm",
	Short: "Sahm Rule recession signal engine",
	Long: `sahm computes the Sahm Rule recession signal for configured unemployment
lines and county series, scores it against recession periods and committee
announcements, and writes the results as reports and CSV chunks.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "Path to configuration file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setup loads the configuration and builds the logger.
func setup() (*env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger, closer, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, logger: logger, closer: closer}, nil
}

func (e *env) Close() {
	if err := e.closer.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "close log output: %v\n", err)
	}
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(logger zerolog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigCh:
			logger.Info().Str("signal", sig.String()).Msg("shutting down")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

// newFREDClient builds a FRED client from configuration.
func newFREDClient(cfg config.FREDConfig) (*fred.Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("FRED API key is not set (use %s)", config.EnvFREDAPIKey)
	}
	return fred.NewClient(cfg.BaseURL, cfg.APIKey,
		fred.WithTimeout(cfg.Timeout),
		fred.WithMaxRetries(cfg.MaxRetries),
		fred.WithRateDelay(cfg.RateLimitDelay),
		fred.WithCircuitBreaker("fred", 5, time.Minute),
	), nil
}

// fredSource returns the FRED client, behind the Redis series cache when
// storage.redis_addr is set. The returned func releases the Redis client.
func (e *env) fredSource() (ingestion.SeriesSource, func(), error) {
	client, err := newFREDClient(e.cfg.FRED)
	if err != nil {
		return nil, nil, err
	}
	if e.cfg.Storage.RedisAddr == "" {
		return client, func() {}, nil
	}

	rdb := cache.NewRedisClient(e.cfg.Storage.RedisAddr, "", e.cfg.Storage.RedisDB)
	e.logger.Info().Str("addr", e.cfg.Storage.RedisAddr).Msg("series cache enabled")
	release := func() {
		if err := rdb.Close(); err != nil {
			e.logger.Warn().Err(err).Msg("close redis client")
		}
	}
	return cache.NewSeriesCache(rdb, client, e.cfg.Storage.CacheTTL, e.logger), release, nil
}

// serveMetrics starts the Prometheus endpoint when addr is set.
// The server stops when ctx is done.
func serveMetrics(ctx context.Context, addr string, logger zerolog.Logger) {
	if addr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info().Str("addr", addr).Msg("starting metrics server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics server error")
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
}
