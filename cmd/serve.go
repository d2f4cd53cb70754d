package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"storefront/internal/auth"
	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/handlers"
	"storefront/internal/logging"
	"storefront/internal/notify"
	"storefront/internal/ratelimit"
	"storefront/internal/server"
	"storefront/internal/store"
)

var skipIndexes bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&skipIndexes, "skip-indexes", false, "do not ensure MongoDB indexes on startup")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, logger, client, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer client.Disconnect(context.Background())

	db := client.Database(cfg.DBName)
	if !skipIndexes {
		if err := database.EnsureIndexes(ctx, db, logger); err != nil {
			logger.Warn().Err(err).Msg("index setup incomplete")
		}
	}

	limiter, closeLimiter, err := newLimiter(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeLimiter()

	notifier := newNotifier(cfg)

	var google auth.GoogleVerifier
	if cfg.GoogleClientID != "" {
		verifier, err := auth.NewTokeninfoVerifier(ctx, cfg.GoogleClientID)
		if err != nil {
			return fmt.Errorf("failed to initialize Google verifier: %w", err)
		}
		google = verifier
	} else if cfg.IsProduction() {
		logger.Warn().Msg("GOOGLE_CLIENT_ID not set, Google sign-in is disabled")
	} else {
		logger.Warn().Msg("GOOGLE_CLIENT_ID not set, Google identities are not verified")
	}

	authService := auth.NewService(auth.Options{
		Users:       store.NewUserMongoRepository(db),
		Tokens:      auth.NewTokenIssuer(cfg.JWTSecret),
		Notifier:    notifier,
		Google:      google,
		Factors:     cfg.Factors,
		FrontendURL: cfg.FrontendURL,
		Logger:      logging.Component("auth"),

		StrictGoogle: cfg.IsProduction(),
	})

	router := server.NewRouter(server.Deps{
		Auth:          authService,
		Cart:          store.NewCartMongoRepository(db),
		Wishlist:      store.NewWishlistMongoRepository(db),
		Products:      store.NewProductMongoRepository(db),
		Categories:    store.NewCategoryMongoRepository(db),
		Orders:        store.NewOrderMongoRepository(db),
		Subscriptions: store.NewSubscriptionMongoRepository(db),
		Contacts:      store.NewContactMongoRepository(db),
		Mail:          notifier,
		Limiter:       limiter,
		Ping:          handlers.MongoPing(db),
		Logger:        logger,
	})

	srv := server.New(":"+cfg.Port, server.WithCORS(router, cfg.CORSOrigins), logging.Component("http"))

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- srv.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	select {
	case err := <-serverErrors:
		return err
	case sig := <-shutdown:
		logger.Info().Str("signal", sig.String()).Msg("received signal")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		return srv.Shutdown(shutdownCtx)
	}
}

// newLimiter uses Redis when configured and otherwise disables rate limiting.
func newLimiter(ctx context.Context, cfg config.Config, logger zerolog.Logger) (ratelimit.Limiter, func(), error) {
	if !cfg.Redis.Enabled() {
		logger.Warn().Msg("REDIS_HOST not set, rate limiting disabled")
		return ratelimit.Noop{}, func() {}, nil
	}

	client, err := ratelimit.Connect(ctx, cfg.Redis.Address(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, nil, err
	}
	return ratelimit.NewRedisLimiter(client, cfg.RateLimit.Max, cfg.RateLimit.Window), func() { _ = client.Close() }, nil
}

func newNotifier(cfg config.Config) *notify.Notifier {
	logger := logging.Component("notify")

	var mailer *notify.Mailer
	if cfg.SMTP.Enabled() {
		mailer = notify.NewMailer(cfg.SMTP, logger)
	} else {
		logger.Warn().Msg("SMTP_HOST not set, outgoing mail is only logged")
	}

	var sms notify.SMSVerifier
	if cfg.Twilio.Enabled() {
		sms = notify.NewTwilioVerifier(cfg.Twilio)
	}

	return notify.NewNotifier(mailer, sms, logger)
}
