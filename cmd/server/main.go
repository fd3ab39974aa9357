package main

import (
	"context"
	"database/sql"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-persistence-bun"
	"github.com/goliatone/go-router"
	starter "github.com/goliatone/go-saas-starter"
	"github.com/goliatone/go-saas-starter/billing"
	"github.com/goliatone/go-saas-starter/social"
	"github.com/goliatone/go-saas-starter/social/providers/google"
	"github.com/joho/godotenv"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("failed to load .env: %v", err)
	}

	cfg := starter.ConfigFromEnv()
	logger := starter.NewLogger("server")

	ctx := context.Background()

	db, err := initPersistence(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}

	repo := starter.NewRepositoryManager(db)
	repo.MustValidate()

	sink := starter.ActivitySink(repo.ActivityLogs())

	provider := starter.NewUserProvider(starter.NewUserStore(repo.Users())).
		WithLogger(logger).
		WithActivitySink(sink)

	auther := starter.NewAuthenticator(provider, cfg).WithLogger(logger)

	httpAuth, err := starter.NewHTTPAuthenticator(auther, repo.Users(), cfg)
	if err != nil {
		log.Fatal(err)
	}
	httpAuth.WithLogger(logger)

	var billingClient *billing.Client
	if cfg.StripeSecretKey != "" {
		billingClient = billing.New(cfg.StripeSecretKey, cfg.BaseURL).WithLogger(logger)
	}

	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			UnescapePath:  true,
			StrictRouting: false,
			AppName:       "go-saas-starter",
		}))
	})

	srv.Router().Use(starter.RouteGuard(httpAuth, auther.TokenService(), logger))

	controllerOpts := []starter.AccountControllerOption{
		starter.WithControllerRepo(repo),
		starter.WithControllerAuther(httpAuth),
		starter.WithControllerLogger(logger),
		starter.WithControllerDebug(cfg.Debug),
	}
	if billingClient != nil {
		controllerOpts = append(controllerOpts, starter.WithControllerBilling(billingClient))
	}

	starter.RegisterAccountRoutes(srv.Router().Group("/"), controllerOpts...)

	if cfg.GoogleClientID != "" {
		socialAuth := social.NewAuthenticator(repo.Users(), auther.TokenService(), social.Config{
			StateSecret:          cfg.StateSecret,
			RequireVerifiedEmail: true,
		},
			social.WithProvider(google.New(google.Config{
				ClientID:     cfg.GoogleClientID,
				ClientSecret: cfg.GoogleClientSecret,
				CallbackURL:  cfg.BaseURL + "/auth/google/callback",
			})),
			social.WithActivitySink(sink),
			social.WithLogger(logger),
		)

		social.NewHTTPController(socialAuth, httpAuth, social.HTTPConfig{}).
			WithLogger(logger).
			RegisterRoutes(srv.Router())
	}

	if billingClient != nil {
		billing.NewHTTPController(billingClient, repo.Users(), httpAuth).
			WithLogger(logger).
			RegisterRoutes(srv.Router())
	}

	srv.Serve(":3000")

	WaitExitSignal()
}

func initPersistence(ctx context.Context, cfg *starter.AppConfig) (*bun.DB, error) {
	db, err := sql.Open(sqliteshim.ShimName, cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}

	persistence.RegisterModel((*starter.User)(nil))
	persistence.RegisterModel((*starter.ActivityLog)(nil))

	client, err := persistence.New(starter.NewPersistenceConfig(cfg), db, sqlitedialect.New())
	if err != nil {
		return nil, err
	}

	migrationsFS, err := fs.Sub(starter.GetMigrationsFS(), "data/sql/migrations")
	if err != nil {
		return nil, err
	}
	client.RegisterSQLMigrations(migrationsFS)

	if err := client.Migrate(ctx); err != nil {
		return nil, err
	}

	return client.DB(), nil
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
