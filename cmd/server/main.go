// Command server runs the estimation backend: the command ingress, the
// read-only REST API, and the room housekeeping loop.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cardsdown/cardsdown/internal/api/ingress"
	"github.com/cardsdown/cardsdown/internal/api/rest"
	"github.com/cardsdown/cardsdown/internal/command"
	"github.com/cardsdown/cardsdown/internal/engine"
	"github.com/cardsdown/cardsdown/internal/event"
	"github.com/cardsdown/cardsdown/internal/id"
	"github.com/cardsdown/cardsdown/internal/importer"
	"github.com/cardsdown/cardsdown/internal/platform/config"
	"github.com/cardsdown/cardsdown/internal/platform/otel"
	"github.com/cardsdown/cardsdown/internal/room"
	"github.com/cardsdown/cardsdown/internal/storage/bbolt"
	"github.com/cardsdown/cardsdown/internal/storage/sqlite"
)

// Env holds server configuration.
type Env struct {
	Addr                 string        `env:"CARDSDOWN_ADDR" envDefault:":3000"`
	RoomsDBPath          string        `env:"CARDSDOWN_ROOMS_DB" envDefault:"cardsdown-rooms.db"`
	EventsDBPath         string        `env:"CARDSDOWN_EVENTS_DB" envDefault:"cardsdown-events.db"`
	RoomTTL              time.Duration `env:"CARDSDOWN_ROOM_TTL" envDefault:"720h"`
	HousekeepingInterval time.Duration `env:"CARDSDOWN_HOUSEKEEPING_INTERVAL" envDefault:"1h"`
}

func main() {
	log.SetPrefix("[CARDSDOWN] ")

	var cfg Env
	if err := config.ParseEnv(&cfg); err != nil {
		config.Exitf("parse config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		config.Exitf("failed to serve: %v", err)
	}
}

func run(ctx context.Context, cfg Env) error {
	shutdownTracing, err := otel.Setup(ctx, "cardsdown-server")
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Printf("msg=tracing_shutdown_failed err=%q", err)
		}
	}()

	commands := command.NewRegistry()
	if err := room.RegisterCommands(commands); err != nil {
		return err
	}
	events := event.NewRegistry()
	if err := room.RegisterEvents(events); err != nil {
		return err
	}

	rooms, err := bbolt.Open(cfg.RoomsDBPath)
	if err != nil {
		return err
	}
	defer rooms.Close()

	journal, err := sqlite.Open(cfg.EventsDBPath, events)
	if err != nil {
		return err
	}
	defer journal.Close()

	logger := log.Default()
	processor := &engine.Processor{
		Commands: commands,
		Events:   events,
		Decider: room.NewDecider(
			func() time.Time { return time.Now().UTC() },
			id.New,
			importer.NewParser(importer.DefaultColumnMapping()),
		),
		Rooms:   rooms,
		Journal: journal,
		Logger:  logger,
	}

	mux := http.NewServeMux()
	restHandler := &rest.Handler{Rooms: rooms, StartedAt: time.Now().UTC(), Logger: logger}
	restHandler.Register(mux)
	ingressHandler := &ingress.Handler{Processor: processor, Logger: logger}
	ingressHandler.Register(mux)

	go housekeepingLoop(ctx, processor, cfg, logger)

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Printf("msg=server_listening addr=%s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Printf("msg=server_shutting_down")
	return server.Shutdown(shutdownCtx)
}

func housekeepingLoop(ctx context.Context, processor *engine.Processor, cfg Env, logger *log.Logger) {
	ticker := time.NewTicker(cfg.HousekeepingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			result, err := processor.Housekeeping(ctx, cfg.RoomTTL)
			if err != nil {
				logger.Printf("msg=housekeeping_failed err=%q", err)
				continue
			}
			if len(result.Marked) > 0 || len(result.Deleted) > 0 {
				logger.Printf("msg=housekeeping_done marked=%d deleted=%d", len(result.Marked), len(result.Deleted))
			}
		}
	}
}
