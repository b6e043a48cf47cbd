// Command storefront serves the coffee shop's catalog, cart, checkout and
// membership API.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	adapthttp "storefront/internal/adapter/http"
	"storefront/internal/adapter/memory"
	"storefront/internal/adapter/oidc"
	"storefront/internal/adapter/postgres"
	"storefront/internal/adapter/redis"
	"storefront/internal/app"
	"storefront/internal/catalog"
	"storefront/internal/config"
	"storefront/internal/domain"
	"storefront/internal/logging"
	"storefront/internal/metrics"
)

const version = "0.1.0"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "storefront",
		Short:         "Coffee shop storefront server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(serveCmd(), catalogCmd(), versionCmd())
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "storefront version %s\n", version)
		},
	}
}

func catalogCmd() *cobra.Command {
	var (
		locale    string
		category  string
		subscribe bool
	)
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Print the product catalog as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printCatalog(cmd.OutOrStdout(), catalog.ParseLocale(locale), category, subscribe)
		},
	}
	cmd.Flags().StringVar(&locale, "locale", "en", "Display locale (en, ja)")
	cmd.Flags().StringVar(&category, "category", "all", "Category filter")
	cmd.Flags().BoolVar(&subscribe, "subscribe", false, "Show subscription prices")
	return cmd
}

func printCatalog(w io.Writer, locale catalog.Locale, category string, subscribe bool) error {
	cards := app.NewShopService().List(locale, category, domain.PriceModifiers{SubscriptionActive: subscribe})
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(cards)
}

func serveCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath, os.Getenv)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	log, err := logging.New(cfg.Log.Level, os.Stderr)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	mem := memory.New()
	var store domain.KeyValueStore = mem
	var members domain.MemberRepository = mem
	var sessions domain.SessionRepository = mem.NewSessionRepo()
	var otps domain.OTPRepository = mem

	switch cfg.Storage.Driver {
	case config.StoragePostgres:
		db, err := postgres.Open(cfg.Storage.DatabaseURL)
		if err != nil {
			return fmt.Errorf("db open: %w", err)
		}
		defer func() { _ = db.Close() }()
		store, members, sessions, otps = db, db, postgres.NewSessionRepo(db), db
	case config.StorageRedis:
		rs, err := redis.Open(redis.Options{
			Addr:     cfg.Storage.RedisAddr,
			Password: cfg.Storage.RedisPassword,
			DB:       cfg.Storage.RedisDB,
			Prefix:   cfg.Storage.RedisPrefix,
			TTL:      cfg.Storage.RedisTTL,
		})
		if err != nil {
			return err
		}
		defer func() { _ = rs.Close() }()
		store = rs
	}

	var (
		identity domain.IdentityProvider
		sso      adapthttp.SSOProvider
	)
	switch cfg.Identity.Driver {
	case config.IdentityLocal:
		auth := app.NewMemberAuth(members, sessions, otps, app.LogOTPSender{Log: log.Named("otp")}, app.AuthConfig{
			SessionTTL: cfg.Identity.SessionTTL,
			OTPTTL:     cfg.Identity.OTPTTL,
		}, log.Named("auth"))
		identity = auth
		go purgeSessions(ctx, auth, cfg.Session.SweepInterval, log)
	case config.IdentityOIDC:
		p, err := oidc.New(ctx, oidc.Config{
			Issuer:       cfg.Identity.Issuer,
			ClientID:     cfg.Identity.ClientID,
			ClientSecret: cfg.Identity.ClientSecret,
			RedirectURL:  cfg.Identity.RedirectURL,
		}, log.Named("oidc"))
		if err != nil {
			return err
		}
		identity, sso = p, p
		go purgeSessions(ctx, p, cfg.Session.SweepInterval, log)
	}

	presence := app.NewPresence(identity, log.Named("presence"), m)
	front := app.NewStorefront(store, presence, app.NewOrderNumbers(cfg.Checkout.BrandCode), log.Named("storefront"), m, cfg.Session.IdleTTL)
	defer front.Close()
	go front.Run(ctx, cfg.Session.SweepInterval)

	srv := adapthttp.New(adapthttp.Options{
		Storefront:    front,
		Shop:          app.NewShopService(),
		Identity:      identity,
		SSO:           sso,
		Log:           log,
		Metrics:       m,
		WebDir:        cfg.Server.WebDir,
		SecureCookies: cfg.Session.SecureCookies,
	})

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", cfg.Server.Addr),
			zap.String("storage", cfg.Storage.Driver), zap.String("identity", cfg.Identity.Driver))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Info("shutting down")
	return httpServer.Shutdown(shutdownCtx)
}

// sessionPurger is an identity provider that can drop its expired sessions.
type sessionPurger interface {
	PurgeExpired(ctx context.Context) error
}

func purgeSessions(ctx context.Context, auth sessionPurger, interval time.Duration, log *zap.Logger) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := auth.PurgeExpired(ctx); err != nil {
				log.Warn("purge expired sessions", zap.Error(err))
			}
		}
	}
}
