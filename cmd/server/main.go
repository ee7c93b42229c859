package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/dkeye/StudyRoom/internal/adapters/auth"
	router "github.com/dkeye/StudyRoom/internal/adapters/http"
	"github.com/dkeye/StudyRoom/internal/app"
	"github.com/dkeye/StudyRoom/internal/app/ledger"
	"github.com/dkeye/StudyRoom/internal/app/orch"
	"github.com/dkeye/StudyRoom/internal/app/schedule"
	"github.com/dkeye/StudyRoom/internal/config"
	"github.com/dkeye/StudyRoom/internal/core"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setupLogging(cfg)

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
	log.Info().Msg("Server exited gracefully")
}

// setupLogging keeps the console writer for debug runs and plain JSON
// otherwise.
func setupLogging(cfg *config.Config) {
	if cfg.Mode != "debug" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

func run(ctx context.Context, cfg *config.Config) error {
	loc, err := cfg.Schedule.Location()
	if err != nil {
		return err
	}

	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	if err := seed(ctx, cfg.Seed, st); err != nil {
		return err
	}

	reg := core.NewSessionRegistry(core.DefaultShards)
	presence := app.NewPresenceBroadcaster(reg, app.PolicyFromString(cfg.SlowClientPolicy))
	limiter := app.NewRateLimiter(cfg.Chat.RateLimit, cfg.Chat.RateInterval)
	sink := app.NewChatSink(st.chat, cfg.Chat.SinkBuffer, cfg.Chat.PersistTimeout)
	resolver := schedule.NewResolver(st.schedule, loc, nil)

	o := &orch.Orchestrator{
		Sessions: reg,
		Presence: presence,
		Router: app.NewMessageRouter(reg, presence, sink, app.RouterOptions{
			MaxTalkLength: cfg.Chat.MaxLength,
			Limiter:       limiter,
		}),
		Notifier:  app.NewTargetedNotifier(),
		Schedule:  resolver,
		Ledger:    ledger.New(st.participation, nil),
		Directory: st.directory,
		Kicks:     st.kicks,
		Limiter:   limiter,
	}

	r := router.SetupRouter(ctx, cfg, router.Deps{
		Orch:     o,
		Verifier: auth.NewVerifier(cfg.Secret),
		History:  st.chat,
	})
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// the sink outlives the listener so lines sent during shutdown are flushed
	sinkCtx, stopSink := context.WithCancel(context.WithoutCancel(ctx))
	defer stopSink()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sink.Run(sinkCtx)
	})
	g.Go(func() error {
		log.Info().Str("addr", addr).Str("timezone", loc.String()).Msg("StudyRoom server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server forced to shutdown")
		}
		// hijacked WebSockets are not tracked by http.Server
		o.Shutdown(shutdownCtx)
		stopSink()
		return nil
	})
	// stores close (deferred) only after every goroutine above returned
	return g.Wait()
}
