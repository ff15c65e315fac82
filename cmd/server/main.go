package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mizuki/StudyRoom/internal/adapters/httpapi"
	"github.com/mizuki/StudyRoom/internal/adapters/ws"
	"github.com/mizuki/StudyRoom/internal/app"
	"github.com/mizuki/StudyRoom/internal/app/coord"
	"github.com/mizuki/StudyRoom/internal/config"
	"github.com/mizuki/StudyRoom/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("failed to load config")
	}

	sessions := store.NewMemory()
	defer sessions.Close()
	feedback := store.NewFeedbackBox()

	casts := app.NewBroadcaster()
	coordinator := coord.New(casts, sessions)
	presence := ws.NewPresenceController(coordinator, cfg)

	r := httpapi.SetupRouter(ctx, &httpapi.API{
		Cfg:      cfg,
		Sessions: sessions,
		Feedback: feedback,
		Presence: presence,
	})
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("StudyRoom server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
