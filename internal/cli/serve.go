package cli

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/kilupskalvis/vhist/internal/server"
	"github.com/spf13/cobra"
)

var (
	serveListen    string
	serveLogLevel  string
	serveLogFormat string
	serveRateLimit int
	serveNoMetrics bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the index over HTTP",
	Long: `Replay the journal into a fresh index and serve it read-only over HTTP.

Routes:
  GET /api/v1/communes
  GET /api/v1/communes/{code}/voies
  GET /api/v1/voies/{id}
  GET /api/v1/voies/{id}/libelles
  GET /api/v1/cancelled          acknowledged cancellations
  GET /api/v1/stats
  GET /metrics

Examples:
  vhist serve
  vhist serve --listen 0.0.0.0:8730 --log-format json`,
	Run: runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&serveListen, "listen", os.Getenv("VHIST_LISTEN"), "Listen address (host:port), defaults to the configured one")
	f.StringVar(&serveLogLevel, "log-level", os.Getenv("VHIST_LOG_LEVEL"), "Log level (debug|info|warn|error)")
	f.StringVar(&serveLogFormat, "log-format", os.Getenv("VHIST_LOG_FORMAT"), "Log format (json|text)")
	f.IntVar(&serveRateLimit, "rate-limit", server.DefaultConfig().RequestsPerMinute, "Requests per minute per client, 0 to disable")
	f.BoolVar(&serveNoMetrics, "no-metrics", false, "Do not expose /metrics")
}

func runServe(_ *cobra.Command, _ []string) {
	c := initContext()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := serveIndex(ctx, c)
	stop()
	if err != nil {
		c.fail("%v", err)
	}
	c.Close()
}

// serveIndex replays the journal and serves the index until ctx is done
func serveIndex(ctx context.Context, c *cmdContext) error {
	listen := c.Config.Listen
	if serveListen != "" {
		listen = serveListen
	}
	level := c.Config.LogLevel
	if serveLogLevel != "" {
		level = serveLogLevel
	}
	format := c.Config.LogFormat
	if serveLogFormat != "" {
		format = serveLogFormat
	}
	logger := newLogger(os.Stdout, level, format)
	c.Logger = logger

	model, results, err := c.buildModel(ctx)
	if err != nil {
		return err
	}
	stats := model.Stats()
	logger.Info("index built", "batches", len(results), "communes", stats.Communes, "voies", stats.Voies)

	cfg := server.DefaultConfig()
	cfg.RequestsPerMinute = serveRateLimit
	cfg.ExposeMetrics = !serveNoMetrics

	h, handlerCleanup := server.Handler(model, cfg, logger)
	defer handlerCleanup()

	ln, err := net.Listen("tcp", listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", listen, err)
	}

	if err := server.Serve(ctx, ln, h, logger); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
