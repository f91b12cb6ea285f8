package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dynamicdna/academy/api"
	dbfs "github.com/dynamicdna/academy/db"
	"github.com/dynamicdna/academy/internal/config"
	"github.com/dynamicdna/academy/internal/db"
	"github.com/dynamicdna/academy/internal/jobs"
	"github.com/dynamicdna/academy/internal/notify"
	"github.com/dynamicdna/academy/internal/procedures"
	"github.com/dynamicdna/academy/internal/repository/sqlrepo"
	"github.com/dynamicdna/academy/internal/rpc"
	"github.com/dynamicdna/academy/internal/session"
	"github.com/dynamicdna/academy/internal/upload"
	"github.com/dynamicdna/academy/pkg/oauth"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	var configPath = flag.String("config", "", "Path to config YAML file")
	flag.Parse()

	// a missing .env is fine; the process environment wins either way
	envErr := godotenv.Load()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "err", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)
	api.SetLogger(logger)
	rpc.SetLogger(logger)
	session.SetLogger(logger)
	notify.SetLogger(logger)
	upload.SetLogger(logger)
	db.SetLogger(logger)
	procedures.SetLogger(logger)
	oauth.SetLogger(logger)

	if envErr != nil {
		logger.Debug("no .env file loaded", "err", envErr)
	}
	logger.Info("starting academy server", "version", version, "build_time", buildTime, "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The database is opened lazily; the server starts and serves public
	// pages even when it is unreachable.
	provider := db.NewProvider(cfg.DatabaseURL, dbfs.Migrations)
	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL not set; reads return empty results and writes fail")
	} else if _, err := provider.Get(ctx); err != nil {
		logger.Warn("database not reachable at startup", "err", err)
	}
	store := sqlrepo.New(provider, sqlrepo.WithOwnerOpenID(cfg.OAuth.OwnerOpenID), sqlrepo.WithLogger(logger))

	if err := rpc.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		logger.Error("invalid TRUSTED_PROXIES", "err", err)
		os.Exit(1)
	}

	if !cfg.SessionsEnabled() {
		logger.Warn("JWT_SECRET not set; sessions are disabled and every request is anonymous")
	}
	tokens := session.NewTokenManager(cfg.JWTSecret, cfg.SessionTTL)
	var oauthClient *oauth.Client
	if cfg.OAuthEnabled() {
		oauthClient, err = oauth.NewClient(oauth.DefaultConfig(cfg.OAuth.ServerURL, cfg.OAuth.AppID), nil)
		if err != nil {
			logger.Error("failed to create oauth client", "err", err)
			os.Exit(1)
		}
		defer oauthClient.Close()
	}
	ropts := session.Options{
		Tokens:     tokens,
		Users:      store,
		LocalLogin: cfg.LocalLoginEnabled(),
		AppID:      cfg.OAuth.AppID,
	}
	if oauthClient != nil {
		ropts.OAuth = oauthClient
	}
	resolver := session.NewResolver(ropts)

	mailer := notify.NewSMTPMailer(notify.SMTPConfig{
		Host:     cfg.Mail.Host,
		Port:     cfg.Mail.Port,
		Username: cfg.Mail.User,
		Password: cfg.Mail.Pass,
	})
	if cfg.Mail.Host == "" {
		logger.Warn("SMTP_HOST not set; notification emails will be skipped")
	}
	var pool *jobs.WorkerPool
	if cfg.Notify.Async {
		pool = jobs.NewWorkerPool(notify.Handlers(mailer), logger, cfg.Notify.Workers, cfg.Notify.QueueSize)
		// not tied to the signal context so Stop can drain the queue on shutdown
		pool.Start(context.Background())
	}
	notifier := notify.New(mailer, notify.Options{
		OwnerEmail: cfg.Mail.OwnerEmail,
		From:       cfg.MailFrom(),
		Pool:       pool,
	})

	var files upload.Store = upload.NewLocalStore(cfg.UploadsDir)
	if cfg.Storage.APIURL != "" && cfg.Storage.APIKey != "" {
		files = upload.NewRemoteStore(cfg.Storage.APIURL, cfg.Storage.APIKey, &http.Client{Timeout: 30 * time.Second})
		logger.Info("uploads go to the storage api", "url", cfg.Storage.APIURL)
	}

	var formLimiter *rpc.IPLimiter
	if cfg.FormRateLimit > 0 {
		formLimiter = rpc.NewIPLimiter(cfg.FormRateLimit, cfg.FormRateBurst)
	}
	reg := rpc.NewRegistry()
	if err := procedures.Register(reg, procedures.Deps{
		Store:       store,
		Notifier:    notifier,
		FormLimiter: formLimiter,
	}); err != nil {
		logger.Error("failed to register procedures", "err", err)
		os.Exit(1)
	}

	handler := api.SetupRoutes(api.Deps{
		Version:      version,
		BuildTime:    buildTime,
		Registry:     reg,
		Resolver:     resolver,
		Users:        store,
		Tokens:       tokens,
		LocalLogin:   cfg.LocalLoginEnabled(),
		LoginLimiter: rpc.NewIPLimiter(0.1, 5),
		Uploads:      upload.NewService(files),
		DBCheck: func(ctx context.Context) error {
			d, err := provider.Get(ctx)
			if err != nil {
				return err
			}
			return d.GetConn().PingContext(ctx)
		},
		CORSOrigins: cfg.CORSOrigins,
		StaticDir:   cfg.StaticDir,
		UploadsDir:  cfg.UploadsDir,
	})

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.APITimeout,
		WriteTimeout:      cfg.APITimeout,
		IdleTimeout:       60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", cfg.Addr, "local_login", cfg.LocalLoginEnabled(), "oauth", cfg.OAuthEnabled())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			logger.Error("server failed", "err", err)
			os.Exit(1)
		}
	case <-ctx.Done():
	}
	logger.Info("shutting down server")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "err", err)
	}

	// queued emails are delivered before the database goes away
	if pool != nil {
		pool.Stop()
	}
	if err := provider.Close(); err != nil {
		logger.Error("closing database", "err", err)
	}

	logger.Info("server exited")
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
