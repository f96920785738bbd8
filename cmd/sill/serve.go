package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/sill-dev/sill/internal/config"
	"github.com/sill-dev/sill/internal/errors"
	"github.com/sill-dev/sill/pkg/assets"
	"github.com/sill-dev/sill/pkg/custom"
	"github.com/sill-dev/sill/pkg/middleware"
	"github.com/sill-dev/sill/pkg/remote"
)

func serveCmd() *cobra.Command {
	var (
		port int
		host string
		dir  string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the bridge server",
		Long: `Start the bridge server engines connect to.

The server loads sill.json, registers the demo element kinds and waits
for one engine on the configured websocket path. /healthz reports the
connection state and /metrics exposes prometheus counters.

Examples:
  sill serve
  sill serve --port=9000
  sill serve --host=0.0.0.0 --config=./deploy`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(dir, host, port)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (default from sill.json)")
	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind to (default from sill.json)")
	cmd.Flags().StringVarP(&dir, "config", "c", "", "Directory containing sill.json (default: walk up from cwd)")

	return cmd
}

func runServe(dir, host string, port int) error {
	var cfg *config.Config
	var err error
	if dir != "" {
		cfg, err = config.Load(dir)
	} else {
		cfg, err = config.LoadFromWorkingDir()
	}
	if err != nil {
		return err
	}

	// Command-line overrides
	if host != "" {
		cfg.Listen.Host = host
	}
	if port > 0 {
		cfg.Listen.Port = port
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := newLogger(cfg)

	src, err := templateSource(context.Background(), cfg)
	if err != nil {
		return err
	}

	reg := custom.NewRegistry()
	if err := registerDemoKinds(reg, src, logger); err != nil {
		return err
	}

	ep := remote.NewEndpoint(reg,
		remote.WithLogger(logger),
		remote.WithLimits(cfg.ProtocolLimits()),
		remote.WithPath(cfg.Listen.Path),
		remote.WithMetrics(prometheus.DefaultRegisterer),
	)
	ep.Use(middleware.Metrics(), middleware.OTel())

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	ep.Mount(r)
	r.Get("/healthz", healthHandler(ep))
	r.Handle("/metrics", promhttp.Handler())

	httpServer := &http.Server{
		Addr:              cfg.ListenAddress(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("bridge server starting",
			"address", cfg.ListenAddress(),
			"endpoint", cfg.BridgeURL(),
			"project", cfg.Name)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != http.ErrServerClosed {
			return err
		}
		return nil

	case <-shutdown:
		logger.Info("shutting down")
		ep.Close("server shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			return err
		}
		logger.Info("server shutdown complete")
		return nil
	}
}

// healthHandler reports the engine attachment state and, when an engine is
// connected, a snapshot of the dispatch counters.
func healthHandler(ep *remote.Endpoint) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := map[string]any{
			"status": "ok",
			"engine": ep.Connected(),
		}
		if stats, ok := ep.Stats(); ok {
			body["constructed"] = stats.Constructed
			body["connected"] = stats.Connected
			body["destroyed"] = stats.Destroyed
			body["failures"] = stats.Failures
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(body)
	}
}

// newLogger builds the process logger from the log block of sill.json.
func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel()}
	var h slog.Handler
	if cfg.Log.Format == "json" {
		h = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		h = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(h)
}

// templateSource assembles the template lookup chain: project directory
// first, then the optional S3 bucket, then the built-in fallbacks. A
// manifest.json in the template directory adds fingerprint resolution,
// and the whole chain is memoized.
func templateSource(ctx context.Context, cfg *config.Config) (assets.Source, error) {
	var chain assets.Chain

	dir := cfg.TemplatesPath()
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		chain = append(chain, assets.NewDir(dir))
	} else if cfg.Templates.Dir != config.DefaultTemplatesDir {
		// Only an explicitly configured directory has to exist.
		return nil, errors.New("E123").
			WithDetail("Template directory " + dir + " does not exist").
			WithSuggestion("Create the directory or fix templates.dir in sill.json")
	}

	if cfg.HasS3() {
		var loadOpts []func(*awsconfig.LoadOptions) error
		if cfg.Templates.S3.Region != "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Templates.S3.Region))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return nil, err
		}
		client := s3.NewFromConfig(awsCfg)
		chain = append(chain, assets.NewS3Source(client, cfg.Templates.S3.Bucket, cfg.Templates.S3.Prefix))
	}

	chain = append(chain, builtinTemplates())

	var src assets.Source = chain
	manifestPath := filepath.Join(dir, "manifest.json")
	m, err := assets.LoadManifest(manifestPath)
	switch {
	case err == nil:
		src = assets.Versioned(src, m)
	case !os.IsNotExist(err):
		return nil, errors.New("E123").
			WithDetail("Cannot load " + manifestPath).
			Wrap(err)
	}

	return assets.NewCache(src), nil
}
