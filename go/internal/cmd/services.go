package main

import (
	"database/sql"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/jdrlotr/fourline/go/internal/game"
	"github.com/jdrlotr/fourline/go/internal/gateway"
	"github.com/jdrlotr/fourline/go/internal/matchdir"
	"github.com/jdrlotr/fourline/go/internal/registry"
	"github.com/jdrlotr/fourline/go/internal/relay"
)

type Services struct {
	Manager   *gateway.ConnectionManager
	Registry  *registry.Registry
	WebSocket *gateway.WebSocketHandler
	Games     *gateway.GamesHandler
	Relay     *relay.Relay
}

func setupServices(config *Config, database *sql.DB) (*Services, error) {
	// Wire up dependency injection chain
	// Directory layer → Broadcast layer → Registry layer → Handler layer
	clock := clockwork.NewRealClock()

	// Match directory: Postgres when a database is configured, in-memory otherwise
	var directory matchdir.Directory
	if database != nil {
		directory = matchdir.NewPostgres(database)
	} else {
		directory = matchdir.NewMemory(clock)
		log.Info().Msg("no database configured, using in-memory match directory")
	}

	// Broadcast: every session event fans out to WebSocket subscribers,
	// and to NATS when a relay is configured
	manager := gateway.NewConnectionManager(gateway.DefaultConnectionConfig())
	broadcaster := game.Broadcaster(manager)

	var eventRelay *relay.Relay
	if config.NATS.URL != "" {
		relayConfig := relay.DefaultConfig()
		relayConfig.URL = config.NATS.URL
		if config.NATS.SubjectPrefix != "" {
			relayConfig.SubjectPrefix = config.NATS.SubjectPrefix
		}

		var err error
		eventRelay, err = relay.New(relayConfig)
		if err != nil {
			return nil, err
		}
		broadcaster = game.FanOut(manager, eventRelay)
	}

	// Registry
	registryConfig := registry.Config{
		CountdownSeconds: config.Game.CountdownSeconds,
		Retention:        config.retention(),
		SweepInterval:    config.sweepInterval(),
	}
	reg := registry.New(directory, broadcaster, clock, registryConfig)

	// Intent routing: inbound socket messages dispatch into the registry
	router := gateway.NewIntentRouter(reg, manager)
	manager.SetIntentHandler(router)

	return &Services{
		Manager:   manager,
		Registry:  reg,
		WebSocket: gateway.NewWebSocketHandler(manager, reg),
		Games:     gateway.NewGamesHandler(reg, directory),
		Relay:     eventRelay,
	}, nil
}
