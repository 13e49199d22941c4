package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/freekieb7/espweb/config"
	"github.com/freekieb7/espweb/http"
	"github.com/freekieb7/espweb/session/storage"
	"github.com/freekieb7/espweb/telemetry"
	"github.com/freekieb7/espweb/transport"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		log.Fatalln(err)
	}
}

func run(ctx context.Context, args []string) (err error) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.NewConfig()
	if err := cfg.LoadEnv(); err != nil {
		return err
	}

	flags := flag.NewFlagSet("espweb", flag.ContinueOnError)
	flags.StringVar(&cfg.Addr, "addr", cfg.Addr, "listen address")
	flags.StringVar(&cfg.Transport, "transport", cfg.Transport, `connection layer, "conn" or "std"`)
	flags.StringVar(&cfg.StaticDir, "static", cfg.StaticDir, "directory served under /static")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	shutdownTelemetry, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:     cfg.Telemetry.Enabled,
		ServiceName: cfg.Name,
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
	})
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, shutdownTelemetry(context.Background()))
	}()

	logger, closer := newLogger(cfg)
	if closer != nil {
		defer closer.Close()
	}
	slog.SetDefault(logger)

	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	engine, err := newEngine(cfg, store, http.WithLogger(logger))
	if err != nil {
		return err
	}

	var shutdown func(context.Context) error
	serverErrCh := make(chan error, 1)

	switch cfg.Transport {
	case "std":
		server := &nethttp.Server{
			Addr:        cfg.Addr,
			Handler:     otelhttp.NewHandler(transport.NewHandler(engine), cfg.Name),
			IdleTimeout: cfg.IdleTimeout,
		}
		shutdown = server.Shutdown
		go func() {
			serverErrCh <- server.ListenAndServe()
		}()
	default:
		server := transport.NewServer(engine, logger)
		server.IdleTimeout = cfg.IdleTimeout
		shutdown = server.Shutdown
		go func() {
			serverErrCh <- server.ListenAndServe(cfg.Addr)
		}()
	}

	logger.Info("listening", "addr", cfg.Addr, "transport", cfg.Transport)

	select {
	case err = <-serverErrCh:
		return err
	case <-ctx.Done():
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancel()

	if err = shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

func openStore(cfg *config.Config, logger *slog.Logger) (storage.Store, error) {
	if cfg.Session.Store == storage.SQLiteStoreName {
		return storage.NewSQLiteStore(cfg.Session.StorePath, logger)
	}
	return storage.NewMemoryStore(), nil
}
