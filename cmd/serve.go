package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/PKCanCode/SoundM8/internal/auth"
	"github.com/PKCanCode/SoundM8/internal/server"
	"github.com/PKCanCode/SoundM8/internal/services"
	"github.com/PKCanCode/SoundM8/internal/session"
	"github.com/PKCanCode/SoundM8/internal/shared"
	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
)

func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the OAuth proxy and REST facade",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable debug logging",
			},
		},
		Action: r.Serve,
	}
}

// Serve wires the session store, Spotify client, auth gateway, and HTTP
// surface together and blocks until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}
	if err := r.loadConfig(cmd.String("config")); err != nil {
		return err
	}

	// Refuse to start without provider credentials; nothing works without them.
	if err := r.config.Validate(); err != nil {
		return err
	}

	store, closeStore, err := r.openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	spotify, err := services.NewClient(r.config.Spotify)
	if err != nil {
		return err
	}

	gateway := auth.NewGateway(store, spotify, r.logger)
	api := server.NewAPI(r.config, gateway, store, spotify, r.logger)

	router := server.NewBasicRouter()
	router.Use(
		server.CORS(r.config.Server.ClientURL),
		server.RequestLogger(r.logger),
	)
	api.Register(router)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go session.RunSweeper(ctx, store, time.Duration(r.config.Session.SweepSeconds)*time.Second, r.logger)

	srv := server.NewServer(r.config.Addr(), router)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	r.logger.Infof("serving on %s (redirect URI %s, client %s)",
		r.config.Addr(), r.config.Spotify.RedirectURI, r.config.Server.ClientURL)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	r.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openStore builds the configured session store backend. The returned func
// releases any underlying resources.
func (r *Runner) openStore() (session.Store, func(), error) {
	switch r.config.Session.Backend {
	case "", "memory":
		return session.NewMemoryStore(), func() {}, nil
	case "sqlite":
		db, err := shared.NewDatabase(r.config.Session.DatabasePath)
		if err != nil {
			return nil, nil, err
		}
		if err := shared.RunMigrations(db); err != nil {
			db.Close()
			return nil, nil, err
		}
		return session.NewSQLiteStore(db), func() { db.Close() }, nil
	default:
		return nil, nil, shared.ErrInvalidConfig
	}
}
