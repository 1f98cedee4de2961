package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/justinas/alice"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	pb "github.com/domino14/flashcard_server/api/rpc/flashcards"
	"github.com/domino14/flashcard_server/config"
	"github.com/domino14/flashcard_server/db/migrations"
	"github.com/domino14/flashcard_server/internal/flashcards"
	"github.com/domino14/flashcard_server/internal/stores"
)

const (
	GracefulShutdownTimeout = 10 * time.Second
)

func openStore(ctx context.Context, cfg *config.Config) (stores.Store, error) {
	switch cfg.DBDriver {
	case config.DriverPostgres:
		if cfg.DBMigrate {
			if err := migrations.Postgres(cfg.DBConnUri); err != nil {
				return nil, err
			}
		}
		return stores.OpenPG(ctx, cfg.DBConnUri)
	case config.DriverSQLite:
		s, err := stores.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		if cfg.DBMigrate {
			if err := migrations.SQLite(s.DB()); err != nil {
				s.Close()
				return nil, err
			}
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown db driver %q", cfg.DBDriver)
}

func main() {
	cfg := &config.Config{}
	if err := cfg.Load(os.Args[1:]); err != nil {
		log.Fatal().Err(err).Msg("could-not-load-config")
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if strings.ToLower(cfg.LogLevel) == "debug" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	if cfg.SecretKey == "" {
		log.Fatal().Msg("secret-key is required")
	}

	store, err := openStore(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("could-not-open-store")
	}
	defer store.Close()

	svc := flashcards.NewService(cfg, store)
	path, handler := pb.NewFlashcardServiceHandler(
		flashcards.NewServer(svc),
		connect.WithInterceptors(NewAuthInterceptor([]byte(cfg.SecretKey), cfg.JWTIssuers)),
	)

	mux := http.NewServeMux()
	mux.Handle(path, handler)

	middlewares := alice.New(
		hlog.NewHandler(log.With().Str("service", "flashcards").Logger()),
		hlog.RequestIDHandler("req-id", "X-Request-Id"),
		hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
			hlog.FromRequest(r).Info().
				Str("path", r.URL.Path).
				Int("status", status).
				Int("size", size).
				Dur("duration", duration).
				Msg("")
		}),
	)

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: middlewares.Then(mux),
	}
	idleConnsClosed := make(chan struct{})

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		// We received an interrupt signal, shut down.
		log.Info().Msg("got quit signal...")
		ctx, cancel := context.WithTimeout(context.Background(), GracefulShutdownTimeout)

		if err := srv.Shutdown(ctx); err != nil {
			// Error from closing listeners, or context timeout:
			log.Error().Msgf("HTTP server Shutdown: %v", err)
		}
		cancel()
		close(idleConnsClosed)
	}()

	log.Info().Str("addr", cfg.ListenAddr).Str("driver", cfg.DBDriver).Msg("listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("")
	}
	<-idleConnsClosed
	log.Info().Msg("server gracefully shutting down")
}
