package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/areyouamarjeet/med-melody-quiz/internal/clock"
	"github.com/areyouamarjeet/med-melody-quiz/internal/events"
	"github.com/areyouamarjeet/med-melody-quiz/internal/game"
	"github.com/areyouamarjeet/med-melody-quiz/internal/gameconfig"
	"github.com/areyouamarjeet/med-melody-quiz/internal/ledger"
	"github.com/areyouamarjeet/med-melody-quiz/internal/roster"
	"github.com/areyouamarjeet/med-melody-quiz/internal/session"
	"github.com/areyouamarjeet/med-melody-quiz/internal/session/gateway"
)

// EventBus is both ends of the change-notification channel.
type EventBus interface {
	events.Publisher
	events.Subscriber
}

// Services bundles everything the server wires together.
type Services struct {
	Bus      EventBus
	Host     *session.HostController
	API      *gateway.API
	Manager  *gateway.ConnectionManager
	Consumer *gateway.EventConsumer

	closers []func()
}

func setupEventBus(ctx context.Context, cfg gameconfig.Config) (EventBus, func(), error) {
	if getEnv("EVENT_BUS", "memory") != "nats" {
		log.Info().Msg("using in-process event bus")
		return events.NewBus(), func() {}, nil
	}

	jsCfg := events.DefaultJetStreamConfig()
	jsCfg.URL = cfg.NATSURL
	bus, err := events.NewJetStreamBus(jsCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up JetStream bus: %w", err)
	}

	go func() {
		if err := bus.Start(ctx); err != nil {
			log.Error().Err(err).Msg("JetStream consumer failed")
		}
	}()
	log.Info().Str("url", cfg.NATSURL).Msg("using NATS JetStream event bus")
	return bus, func() { bus.Close() }, nil
}

func setupServices(ctx context.Context, cfg gameconfig.Config, settings gameconfig.RoundSettings, pool *pgxpool.Pool) (*Services, error) {
	bus, closeBus, err := setupEventBus(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var (
		gameRepo   game.StateRepository
		teamRepo   roster.TeamRepository
		ledgerRepo ledger.SubmissionRepository
	)
	if pool != nil {
		gameRepo = game.NewPostgresRepository(pool)
		teamRepo = roster.NewPostgresRepository(pool)
		ledgerRepo = ledger.NewPostgresRepository(pool)
	} else {
		log.Warn().Msg("running with in-memory stores; state will not survive a restart")
		gameRepo = game.NewMemoryRepository()
		teamRepo = roster.NewMemoryRepository()
		ledgerRepo = ledger.NewMemoryRepository()
	}

	realClock := clockwork.NewRealClock()
	rosterApp := roster.NewApp(teamRepo, bus, realClock)
	ledgerApp := ledger.NewApp(ledgerRepo, bus, realClock)
	gameApp := game.NewApp(gameRepo, rosterApp, ledgerApp, bus, realClock, settings)

	host := session.NewHostController(gameApp, rosterApp, ledgerApp, bus)
	if err := host.Start(ctx); err != nil {
		closeBus()
		return nil, fmt.Errorf("failed to start host controller: %w", err)
	}

	manager := gateway.NewConnectionManager(gateway.DefaultConnectionConfig())
	go manager.Start(ctx)
	consumer := gateway.NewEventConsumer(manager, bus)
	consumer.Start(ctx)

	newTeam := func(teamID string) *session.TeamController {
		tc := session.NewTeamController(teamID, rosterApp, ledgerApp, bus, clock.NewCountdown(realClock), settings)
		tc.Start(ctx, host.State())
		return tc
	}
	api := gateway.NewAPI(host, manager, realClock, settings, newTeam)

	return &Services{
		Bus:      bus,
		Host:     host,
		API:      api,
		Manager:  manager,
		Consumer: consumer,
		closers:  []func(){consumer.Stop, host.Stop, closeBus},
	}, nil
}

// Close tears services down in reverse dependency order.
func (s *Services) Close() {
	for _, closeFn := range s.closers {
		closeFn()
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
