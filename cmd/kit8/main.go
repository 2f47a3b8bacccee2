package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kit8-platform/kit8/internal/cache"
	"github.com/kit8-platform/kit8/internal/client"
	"github.com/kit8-platform/kit8/internal/config"
	"github.com/kit8-platform/kit8/internal/logger"
	"github.com/kit8-platform/kit8/internal/telemetry"
	"github.com/kit8-platform/kit8/internal/tokenstore"
	"github.com/kit8-platform/kit8/internal/version"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{}
	err := a.rootCmd().ExecuteContext(ctx)
	a.close()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", userMessage(err))
		os.Exit(1)
	}
}

// app is built once per invocation and shared by every subcommand.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	client   *client.Client
	store    tokenstore.Store
	shutdown func(context.Context) error
}

func (a *app) rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "kit8",
		Short:         "KIT8 platform command line client",
		Long:          `Command line access to the KIT8 business platform API (CRM, inventory, orders and cashier)`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}

	v := version.Get()
	cmd.Version = fmt.Sprintf("%s (built %s, commit %s)", v.Version, v.BuildDate, v.GitCommit)

	cmd.AddCommand(
		a.loginCmd(),
		a.logoutCmd(),
		a.whoamiCmd(),
		a.healthCmd(),
		a.dashboardCmd(),
		a.contactsCmd(),
		a.dealsCmd(),
		a.statsCmd(),
		a.productsCmd(),
		a.ordersCmd(),
		a.paymentsCmd(),
	)

	return cmd
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.NewConfig()
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger.NewLogger(cmd.ErrOrStderr(), logger.ParseLogLevel(cfg.LogLevel), cfg.Environment)

	a.shutdown, err = telemetry.Setup(cmd.Context(), telemetry.Options{
		ServiceName:    "kit8",
		ServiceVersion: version.Get().Version,
		Exporter:       cfg.TraceExporter,
		Endpoint:       cfg.OTelEndpoint,
		Writer:         cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}

	store, location, err := openTokenStore(cfg)
	if err != nil {
		return err
	}
	a.store = store

	a.client = client.New(cfg.APIBaseURL, store,
		client.WithTimeout(cfg.HTTPTimeout),
		client.WithLogger(a.logger),
		client.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
		client.WithCache(cache.New(cache.Config{MaxEntries: cfg.CacheMaxEntries})),
	)

	a.logger.Debug("client ready",
		slog.String("version", version.Get().Version),
		slog.String("api", cfg.APIBaseURL),
		slog.String("token_store", cfg.TokenStore),
		slog.String("token_location", location),
	)
	return nil
}

// close releases the token store connection and flushes pending trace spans.
func (a *app) close() {
	if c, ok := a.store.(io.Closer); ok {
		if err := c.Close(); err != nil && a.logger != nil {
			a.logger.Warn("could not close token store", slog.String("error", err.Error()))
		}
	}
	if a.shutdown == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.shutdown(ctx); err != nil && a.logger != nil {
		a.logger.Warn("could not flush traces", slog.String("error", err.Error()))
	}
}

// openTokenStore returns the configured session store and a description of where it lives.
func openTokenStore(cfg *config.Config) (tokenstore.Store, string, error) {
	if cfg.TokenStore == "redis" {
		store, err := tokenstore.NewRedisFromURL(cfg.RedisURL, "")
		if err != nil {
			return nil, "", err
		}
		return store, "redis", nil
	}

	path := cfg.TokenFile
	if path == "" {
		var err error
		path, err = tokenstore.DefaultPath()
		if err != nil {
			return nil, "", err
		}
	}
	return tokenstore.NewFile(path), path, nil
}

// userMessage prefers the client's user facing text over the detailed log message.
func userMessage(err error) string {
	var ce *client.ClientError
	if errors.As(err, &ce) && ce.UserError() != "" {
		return ce.UserError()
	}
	return err.Error()
}
