package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"mesa/internal/api"
	"mesa/internal/audit"
	"mesa/internal/auth"
	"mesa/internal/fanout"
	"mesa/internal/menu"
	"mesa/internal/metrics"
	"mesa/internal/orders"
	"mesa/internal/qrcode"
	"mesa/internal/store"
	"mesa/internal/tables"
	"mesa/internal/token"
	"mesa/pkg/config"
)

func init() {
	// Configure zerolog for human-friendly console output
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func main() {
	configFile := config.FindConfigFile(config.ServiceName)
	envFile := config.FindEnvironmentFile(config.ServiceName)

	cfg, err := config.Load(configFile, envFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	cfg.Log.ConfigureZerolog()
	if cfg.Log.Format == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	log.Info().Msg("Starting mesa ordering server")
	log.Info().Str("config_file", configFile).Msg("Configuration loaded")
	log.Info().Str("env_file", envFile).Msg("Environment loaded")
	log.Info().
		Str("log_level", cfg.Log.Level).
		Bool("debug", cfg.Log.Debug).
		Msg("Log level configured")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Persistence
	backend, err := store.NewBackend(cfg.Store.Driver, cfg.Store.Path, cfg.Store.Debug)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store backend")
	}
	db, err := store.Open(ctx, backend)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load store")
	}

	recorder := audit.NewRecorder(audit.NewStoreSink(db))
	hub := fanout.NewHub()

	// Tables and tokens
	codec, err := token.New(cfg.Token.SecretKey,
		token.WithSignatureLength(cfg.Token.SignatureLength),
		token.WithTTLs(cfg.Token.PermanentTTL, cfg.Token.TemporaryTTL),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize token codec")
	}
	renderer, err := qrcode.NewRenderer(cfg.Server.QRDir, qrcode.WithSize(cfg.Server.QRSize))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize QR renderer")
	}
	registry := tables.NewRegistry(db, codec, recorder, tables.WithRenderer(renderer))

	// Orders and menu
	ledger := orders.NewLedger(db, hub, recorder, orders.WithPolicy(orders.PolicyFor(cfg.Orders.StrictTransitions)))
	catalog := menu.NewCatalog(db, hub, recorder)
	if err := catalog.Seed(); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed menu")
	}

	// Staff
	users := auth.NewUsers(db, auth.WithBcryptCost(cfg.Auth.BcryptCost))
	if err := users.Seed(ctx, cfg.Auth.AdminPassword, cfg.Auth.KitchenPassword); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed staff accounts")
	}
	jwtManager := auth.NewJWTManager(cfg.Auth.JWTSecretKey, cfg.Auth.SessionTTL)
	sessions := auth.NewMiddleware(jwtManager)

	realtime := fanout.NewHandler(hub, registry, sessions.Authenticate, fanout.ClientConfig{
		SendBuffer:   cfg.Realtime.SendBuffer,
		PingInterval: cfg.Realtime.PingInterval,
		PongWait:     cfg.Realtime.PongWait,
		WriteWait:    cfg.Realtime.WriteWait,
	})

	srv := api.NewServer(api.Dependencies{
		Store:         db,
		Tables:        registry,
		Orders:        ledger,
		Menu:          catalog,
		Auth:          auth.NewService(users, jwtManager, recorder),
		Sessions:      sessions,
		Audit:         recorder,
		Realtime:      realtime,
		QRDir:         cfg.Server.QRDir,
		AllowedOrigin: cfg.Server.AllowedOrigin,
	})

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector(registry, ledger, hub, cfg.Metrics.CollectInterval)
		go collector.Start(ctx)
	}

	// Create server with HTTP/2 support
	server := &http.Server{
		Addr:              cfg.GetListenAddress(),
		Handler:           h2c.NewHandler(srv.Router(), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MB
	}

	log.Info().
		Str("address", cfg.GetListenAddress()).
		Str("store_driver", backend.Name()).
		Str("store_path", cfg.Store.Path).
		Str("qr_dir", cfg.Server.QRDir).
		Bool("strict_transitions", cfg.Orders.StrictTransitions).
		Bool("tls", cfg.TLS.Enabled).
		Msg("Starting HTTP server")
	log.Info().Msgf("Health check: http://%s/health", cfg.GetListenAddress())

	errChan := make(chan error, 1)
	go func() {
		var err error
		if cfg.TLS.Enabled {
			err = server.ListenAndServeTLS(cfg.TLS.CertFile, cfg.TLS.KeyFile)
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	exitCode := 0
	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	case err := <-errChan:
		log.Error().Err(err).Msg("Server failed")
		exitCode = 1
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping HTTP server")
	}
	if collector != nil {
		collector.Stop()
	}
	if err := db.Close(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Final store flush failed")
		exitCode = 1
	}

	log.Info().Msg("Mesa server stopped")
	if exitCode != 0 {
		shutdownCancel()
		os.Exit(exitCode)
	}
}
