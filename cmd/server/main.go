package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/wordchain-backend/internal/config"
	"github.com/DoyleJ11/wordchain-backend/internal/directory"
	"github.com/DoyleJ11/wordchain-backend/internal/dispatch"
	"github.com/DoyleJ11/wordchain-backend/internal/httpapi"
	"github.com/DoyleJ11/wordchain-backend/internal/hub"
	"github.com/DoyleJ11/wordchain-backend/internal/lexicon"
	"github.com/DoyleJ11/wordchain-backend/internal/lobby"
	"github.com/DoyleJ11/wordchain-backend/internal/logging"
	"github.com/DoyleJ11/wordchain-backend/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type recorder interface {
	lobby.Recorder
	httpapi.MatchLister
}

func run() error {
	cfg, err := config.Load(".env")
	if err != nil {
		return err
	}
	logger, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var rec recorder = store.NopRecorder{}
	if cfg.Database.DSN != "" {
		db, err := store.Open(cfg.Database.DSN)
		if err != nil {
			return err
		}
		defer db.Close()
		rec = db
		logger.Info("recording match results")
	}

	oracle := lexicon.NewClient(cfg.Lexicon.BaseURL,
		lexicon.WithTimeout(cfg.Lexicon.Timeout),
		lexicon.WithMaxTries(cfg.Lexicon.MaxTries),
		lexicon.WithLogger(logger.Named("lexicon")),
	)

	dir := directory.New()
	bc := directory.NewBroadcaster(dir, logger.Named("broadcast"))
	rules := cfg.Game.Rules()

	// Lobbies outlive the signal context; the hub closes them on shutdown.
	h := hub.NewHub(context.WithoutCancel(ctx), func(lctx context.Context, code string) *lobby.Lobby {
		return lobby.NewLobby(lctx, code, lobby.Deps{
			Oracle:       oracle,
			Broadcaster:  bc,
			Binder:       dir,
			Recorder:     rec,
			Logger:       logger.Named("lobby"),
			Rules:        rules,
			TickInterval: cfg.Game.TickInterval,
		})
	}, logger.Named("hub"))
	d := dispatch.New(h, dir, bc, logger.Named("dispatch"))

	srv := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: httpapi.SetupRoutes(h, d, rec, logger),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.HTTP.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		h.Shutdown()
		return err
	})
	return g.Wait()
}
