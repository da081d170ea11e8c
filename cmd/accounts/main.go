package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-print"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"
	"go.uber.org/zap"

	"github.com/goliatone/go-accounts"
	"github.com/goliatone/go-accounts/activitymap"
	"github.com/goliatone/go-accounts/mailer"
)

type App struct {
	config   *Config
	zap      *zap.Logger
	bunDB    *bun.DB
	repo     accounts.RepositoryManager
	tokens   accounts.TokenService
	manager  *accounts.UserManager
	auth     *accounts.Authenticator
	srv      *fiber.App
	shutdown time.Duration
}

func (a *App) GetLogger(name string) accounts.Logger {
	return named(a.zap, name)
}

func main() {
	cfg, err := LoadConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	lgr, err := newZapLogger(cfg.LogLevel, cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		os.Exit(1)
	}
	defer lgr.Sync()

	if cfg.Debug {
		fmt.Println("============")
		fmt.Println(print.MaybeSecureJSON(cfg))
		fmt.Println("============")
	}

	app := &App{
		config:   cfg,
		zap:      lgr,
		shutdown: 10 * time.Second,
	}

	ctx := context.Background()

	if err := WithPersistence(ctx, app); err != nil {
		lgr.Fatal("persistence setup failed", zap.Error(err))
	}

	if err := WithServices(ctx, app); err != nil {
		lgr.Fatal("services setup failed", zap.Error(err))
	}

	if err := WithHTTPServer(ctx, app); err != nil {
		lgr.Fatal("http setup failed", zap.Error(err))
	}

	go func() {
		if err := app.srv.Listen(cfg.HTTPAddress); err != nil {
			lgr.Error("http server stopped", zap.Error(err))
		}
	}()

	sig := WaitExitSignal()
	lgr.Info("shutting down", zap.String("signal", sig.String()))

	if err := app.srv.ShutdownWithTimeout(app.shutdown); err != nil {
		lgr.Error("http shutdown failed", zap.Error(err))
	}

	if err := app.bunDB.Close(); err != nil {
		lgr.Error("database close failed", zap.Error(err))
	}
}

func WithPersistence(ctx context.Context, app *App) error {
	cfg := app.config
	logger := app.GetLogger("persistence")

	var db *bun.DB
	switch cfg.DatabaseDriver {
	case "postgres":
		sqldb, err := sql.Open("pgx", cfg.DatabaseDSN)
		if err != nil {
			return err
		}
		db = bun.NewDB(sqldb, pgdialect.New())
	default:
		sqldb, err := sql.Open(sqliteshim.ShimName, cfg.DatabaseDSN)
		if err != nil {
			return err
		}
		sqldb.SetMaxOpenConns(1)
		db = bun.NewDB(sqldb, sqlitedialect.New())
	}

	if cfg.DatabaseDebug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}

	if err := db.PingContext(ctx); err != nil {
		return err
	}

	applied, err := accounts.Migrate(ctx, db.DB, cfg.DatabaseDriver, logger)
	if err != nil {
		return err
	}
	logger.Info("migrations applied: %d", applied)

	repo := accounts.NewRepositoryManager(db)
	if err := repo.Validate(); err != nil {
		return err
	}

	app.bunDB = db
	app.repo = repo

	return nil
}

func WithServices(ctx context.Context, app *App) error {
	cfg := app.config

	var hasher accounts.PasswordHasher
	switch cfg.PasswordAlgorithm {
	case "argon2id":
		hasher = accounts.NewArgon2Hasher()
	default:
		hasher = accounts.NewBcryptHasher(cfg.BcryptCost)
	}

	var sender accounts.MailSender
	switch cfg.MailTransport {
	case "smtp":
		mcfg, err := mailer.LoadConfig()
		if err != nil {
			return err
		}
		sender, err = mailer.NewSMTPMailer(mcfg, app.GetLogger("mailer"))
		if err != nil {
			return err
		}
	default:
		sender = accounts.NewLogMailer(os.Stdout, app.GetLogger("mailer"))
	}

	audit := app.zap.Named("activity")
	sink := activitymap.NewSink(func(ctx context.Context, entry activitymap.Normalized) error {
		audit.Info(entry.Verb,
			zap.String("actor_id", entry.ActorID),
			zap.String("object_id", entry.ObjectID),
			zap.String("channel", entry.Channel),
			zap.Any("metadata", entry.Metadata),
			zap.Time("occurred_at", entry.OccurredAt),
		)
		return nil
	})

	app.tokens = accounts.NewTokenServiceFromConfig(cfg, app.GetLogger("tokens"))

	app.manager = accounts.NewUserManager(app.repo, hasher, app.tokens, sender, cfg.GetProjectURL(),
		accounts.WithUserManagerLogger(app.GetLogger("users")),
		accounts.WithUserManagerActivitySink(sink),
	)

	app.auth = accounts.NewAuthenticator(app.manager, hasher, app.tokens, cfg).
		WithLogger(app.GetLogger("auth")).
		WithActivitySink(sink)

	return nil
}

func WithHTTPServer(ctx context.Context, app *App) error {
	logger := app.GetLogger("http")

	app.srv = fiber.New(fiber.Config{
		AppName:               "go-accounts",
		ErrorHandler:          accounts.ErrorHandler(logger, app.config.Debug),
		DisableStartupMessage: !app.config.Debug,
	})

	app.srv.Get("/healthz", func(c *fiber.Ctx) error {
		if err := app.bunDB.PingContext(c.UserContext()); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	accounts.RegisterAccountRoutes(app.srv,
		accounts.WithHTTPAuthService(app.auth),
		accounts.WithHTTPAccounts(app.manager),
		accounts.WithHTTPTokenService(app.tokens),
		accounts.WithHTTPLogger(logger),
		accounts.WithHTTPDebug(app.config.Debug),
		accounts.WithHTTPFeatureGate(newFeatureGate(app.config)),
		accounts.WithHTTPHashidIDs(app.config.HashidIDs),
	)

	return nil
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
