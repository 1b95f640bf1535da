package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-keybot"
	"github.com/goliatone/go-keybot/discord"
	"github.com/goliatone/go-keybot/interactions"
)

type App struct {
	config   keybot.Config
	logger   keybot.Logger
	store    keybot.CredentialStore
	router   *keybot.CommandRouter
	closers  []func() error
	shutdown []func(context.Context) error
	// fatal receives errors from transports that stop on their own
	fatal chan error
}

// platformClient is what the HTTP transport needs from a discordgo session
type platformClient interface {
	discord.CommandRegistrar
	discord.Editor
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "keybot: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := keybot.LoadConfig()
	if err != nil {
		return err
	}

	app := &App{
		config: cfg,
		logger: keybot.NewJSONLogger(os.Stdout, cfg.LogLevel),
		fatal:  make(chan error, 1),
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := WithStore(ctx, app); err != nil {
		return err
	}

	session, err := discord.NewSession(cfg.BotToken)
	if err != nil {
		return err
	}

	WithRouter(app, discord.NewVerifier(session))

	switch cfg.Transport {
	case keybot.TransportHTTP:
		err = WithHTTPServer(ctx, app, session)
	default:
		err = WithGateway(ctx, app, discord.NewBot(session, app.router, cfg.ApplicationID, cfg.GuildID))
	}
	if err != nil {
		return err
	}

	app.logger.Info("keybot ready", "transport", cfg.Transport, "store", cfg.StoreDriver)

	var runErr error
	select {
	case <-ctx.Done():
		app.logger.Info("shutting down")
	case runErr = <-app.fatal:
		app.logger.Error("transport stopped", "error", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, fn := range app.shutdown {
		if err := fn(shutdownCtx); err != nil {
			app.logger.Error("shutdown failed", "error", err)
		}
	}
	return runErr
}

func WithStore(ctx context.Context, app *App) error {
	cfg := app.config
	if cfg.StoreDriver == keybot.StoreDriverSupabase {
		app.store = keybot.NewRESTStore(cfg.SupabaseURL, cfg.SupabaseAPIKey,
			keybot.WithRESTLogger(app.logger))
		return nil
	}

	database, err := keybot.OpenDatabase(cfg.StoreDriver, cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	app.closers = append(app.closers, database.Close)

	if err := database.MigrateSchema(ctx); err != nil {
		return err
	}
	app.logger.Info("schema up to date", "driver", cfg.StoreDriver)

	app.store = keybot.NewBunStore(database.DB())
	return nil
}

func WithRouter(app *App, verifier keybot.IdentityVerifier) {
	cfg := app.config
	tokens := keybot.NewTokenService([]byte(cfg.JWTSecret), cfg.TokenTTL, cfg.TokenIssuer, app.logger)
	activity := keybot.NewLogActivitySink(app.logger)

	register := keybot.NewRegisterHandler(app.store, verifier, tokens, cfg.GuildID, cfg.RequiredRoleID).
		WithLogger(app.logger).
		WithActivitySink(activity)
	createKey := keybot.NewCreateKeyHandler(app.store).
		WithLogger(app.logger).
		WithActivitySink(activity)

	app.router = keybot.NewCommandRouter(register, createKey).WithLogger(app.logger)
}

func WithGateway(ctx context.Context, app *App, bot *discord.Bot) error {
	bot.WithLogger(app.logger)
	if err := bot.Start(ctx); err != nil {
		return err
	}
	app.shutdown = append(app.shutdown, func(context.Context) error {
		return bot.Stop()
	})
	return nil
}

func WithHTTPServer(ctx context.Context, app *App, client platformClient) error {
	publicKey, err := interactions.ParsePublicKey(app.config.PublicKey)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", app.config.HTTPAddr)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to bind interactions endpoint").
			WithMetadata(map[string]any{"addr": app.config.HTTPAddr})
	}

	registered, err := discord.RegisterCommands(ctx, client, app.config.ApplicationID, app.config.GuildID)
	if err != nil {
		_ = ln.Close()
		return err
	}
	app.logger.Info("registered guild commands", "guild_id", app.config.GuildID, "count", len(registered))

	srv := interactions.NewServer(app.router, client, publicKey, interactions.WithLogger(app.logger))
	go func() {
		if err := srv.Serve(ln); err != nil {
			app.fatal <- err
		}
	}()

	app.shutdown = append(app.shutdown, srv.Shutdown)
	return nil
}

func (a *App) Close() {
	for _, fn := range a.closers {
		if err := fn(); err != nil {
			a.logger.Error("close failed", "error", err)
		}
	}
}
