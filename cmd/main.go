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

	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/ukydev/bus-tracker/internal/auth"
	"github.com/ukydev/bus-tracker/internal/config"
	"github.com/ukydev/bus-tracker/internal/db"
	"github.com/ukydev/bus-tracker/internal/handlers"
	"github.com/ukydev/bus-tracker/internal/notify"
)

const shutdownTimeout = 15 * time.Second

type options struct {
	configPath   string
	envFile      string
	addr         string
	hashAdminKey string
}

func parseFlags(args []string, output io.Writer) (options, error) {
	var opts options
	flags := pflag.NewFlagSet("bus-tracker", pflag.ContinueOnError)
	flags.SetOutput(output)
	flags.StringVar(&opts.configPath, "config", "", "path to a YAML config file")
	flags.StringVar(&opts.envFile, "env-file", "", "path to a .env file (default: ./.env if present)")
	flags.StringVar(&opts.addr, "addr", "", "listen address, overrides config and PORT")
	flags.StringVar(&opts.hashAdminKey, "hash-admin-key", "", "print the bcrypt hash of an admin key for ADMIN_KEY_HASH and exit")
	if err := flags.Parse(args); err != nil {
		return options{}, err
	}
	if flags.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected arguments: %v", flags.Args())
	}
	return opts, nil
}

func newLogger(cfg config.LogConfig, output io.Writer) (*log.Logger, error) {
	logger := log.New()
	logger.SetOutput(output)
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	logger.SetLevel(level)
	if cfg.Format == "json" {
		logger.SetFormatter(&log.JSONFormatter{})
	} else {
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return logger, nil
}

func run(args []string) error {
	opts, err := parseFlags(args, os.Stderr)
	if err != nil {
		return err
	}

	if opts.hashAdminKey != "" {
		hash, err := auth.HashAdminKey(opts.hashAdminKey)
		if err != nil {
			return err
		}
		fmt.Println(hash)
		return nil
	}

	cfg, err := config.Load(opts.configPath, opts.envFile)
	if err != nil {
		return err
	}
	if opts.addr != "" {
		cfg.Server.Addr = opts.addr
	}

	logger, err := newLogger(cfg.Log, os.Stderr)
	if err != nil {
		return err
	}
	if cfg.UsesDefaultSecret() {
		logger.Warn("SESSION_SECRET is not set, using the development default")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := db.ConnectMongo(ctx, cfg.Mongo)
	if err != nil {
		return fmt.Errorf("connect to MongoDB: %w", err)
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), cfg.Mongo.Timeout)
		defer cancel()
		if err := client.Disconnect(disconnectCtx); err != nil {
			logger.WithError(err).Warn("Failed to disconnect from MongoDB")
		}
	}()
	logger.WithFields(log.Fields{
		"database":   cfg.Mongo.Database,
		"collection": cfg.Mongo.Collection,
	}).Info("Connected to MongoDB")

	publisher, err := notify.New(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connect to MQTT broker: %w", err)
	}
	defer publisher.Close()
	if cfg.MQTT.Broker != "" {
		logger.WithField("broker", cfg.MQTT.Broker).Info("Publishing status events")
	}

	views, err := handlers.LoadViews()
	if err != nil {
		return err
	}

	authService := auth.NewService(cfg.Session, cfg.Conductor, cfg.Admin)
	if authService.AdminKeyRequired() {
		logger.Info("Admin key required for /add_bus")
	}

	router := handlers.NewRouter(handlers.RouterDeps{
		Config:    cfg,
		Buses:     db.NewMongoBusCollection(client, cfg.Mongo),
		Auth:      authService,
		Sessions:  auth.NewCookieStore(authService, cfg.Session),
		Publisher: publisher,
		Views:     views,
		Logger:    logger,
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.WithField("addr", cfg.Server.Addr).Info("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("Server stopped")
	return nil
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		log.Fatal(err)
	}
}
