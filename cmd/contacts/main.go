package main

import (
	"context"
	"database/sql"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/caarlos0/env/v11"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-contacts"
	"github.com/goliatone/go-contacts/middleware/bearer"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/migrate"
)

// AppConfig is read once from the environment at startup
type AppConfig struct {
	SigningKey      string `env:"SECRET_KEY,required"`
	TokenExpiration int    `env:"TOKEN_EXPIRATION_HOURS" envDefault:"23"`
	Issuer          string `env:"TOKEN_ISSUER" envDefault:"go-contacts"`
	BaseURL         string `env:"BASE_URL" envDefault:"http://localhost:3000"`
	HTTPAddr        string `env:"HTTP_ADDR" envDefault:":3000"`
	DSN             string `env:"DSN" envDefault:"file:contacts.db"`
	AvatarDir       string `env:"AVATAR_DIR" envDefault:"public/avatars"`
	AvatarURLPrefix string `env:"AVATAR_URL_PREFIX" envDefault:"/avatars"`
	Debug           bool   `env:"DEBUG" envDefault:"false"`
}

func (c AppConfig) GetSigningKey() string   { return c.SigningKey }
func (c AppConfig) GetTokenExpiration() int { return c.TokenExpiration }
func (c AppConfig) GetIssuer() string       { return c.Issuer }
func (c AppConfig) GetBaseURL() string      { return c.BaseURL }

func main() {
	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Trace),
		glog.WithName("contacts"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)
	appLogger := lgr.GetLogger("app")

	cfg := AppConfig{}
	if err := env.Parse(&cfg); err != nil {
		appLogger.Error("config load failed", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	db, err := openDatabase(ctx, cfg.DSN)
	if err != nil {
		appLogger.Error("database setup failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	repo := contacts.NewRepositoryManager(db)
	repo.MustValidate()

	avatars := contacts.NewLocalAvatarStore(cfg.AvatarDir, cfg.AvatarURLPrefix)

	auther := contacts.NewAuthenticator(repo, cfg).
		WithLogger(lgr.GetLogger("auth")).
		WithMailer(contacts.NewLogMailer(lgr.GetLogger("mailer")))

	app := contacts.NewServer()

	protected := bearer.New(bearer.Config{
		Validator:  auther,
		Resolver:   auther,
		ContextKey: contacts.ContextKey,
		ErrorHandler: func(c *fiber.Ctx, _ error) error {
			return contacts.ErrUnauthorized
		},
		ContextEnricher: func(ctx context.Context, user any) context.Context {
			if u, ok := user.(*contacts.User); ok {
				return contacts.WithContext(ctx, u)
			}
			return ctx
		},
	})

	userController := &contacts.UserController{
		Debug:   cfg.Debug,
		Logger:  lgr.GetLogger("users"),
		Repo:    repo,
		Auther:  auther,
		Avatars: avatars,
	}

	contactController := &contacts.ContactController{
		Logger: lgr.GetLogger("contacts"),
		Repo:   repo,
	}

	contacts.RegisterRoutes(app, userController, contactController, protected)

	go func() {
		if err := app.Listen(cfg.HTTPAddr); err != nil {
			appLogger.Error("server stopped", "error", err)
			os.Exit(1)
		}
	}()

	appLogger.Info("listening", "addr", cfg.HTTPAddr)

	WaitExitSignal()

	if err := app.Shutdown(); err != nil {
		appLogger.Error("shutdown failed", "error", err)
	}
}

func openDatabase(ctx context.Context, dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, err
	}

	db := bun.NewDB(sqldb, sqlitedialect.New())

	if err := runMigrations(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func runMigrations(ctx context.Context, db *bun.DB) error {
	files, err := fs.Sub(contacts.GetMigrationsFS(), "data/sql/migrations")
	if err != nil {
		return err
	}

	migrations := migrate.NewMigrations()
	if err := migrations.Discover(files); err != nil {
		return err
	}

	migrator := migrate.NewMigrator(db, migrations)
	if err := migrator.Init(ctx); err != nil {
		return err
	}

	if _, err := migrator.Migrate(ctx); err != nil {
		return err
	}

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
