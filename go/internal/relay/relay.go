package relay

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/jdrlotr/fourline/go/internal/game/events"
)

// Config holds the NATS relay settings.
type Config struct {
	URL           string
	SubjectPrefix string
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultConfig returns default relay configuration.
func DefaultConfig() Config {
	return Config{
		URL:           nats.DefaultURL,
		SubjectPrefix: "game.events",
		MaxReconnects: -1, // Infinite
		ReconnectWait: 2 * time.Second,
	}
}

// Relay mirrors every broadcast event onto NATS subjects so external
// consumers (audit, history projections) can follow matches without a
// socket subscription. It implements the session Broadcaster contract;
// publish failures are logged and never affect the session.
type Relay struct {
	nc     *nats.Conn
	prefix string
}

// New connects to NATS and returns a relay.
func New(config Config) (*Relay, error) {
	opts := []nats.Option{
		nats.MaxReconnects(config.MaxReconnects),
		nats.ReconnectWait(config.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	log.Info().Str("url", config.URL).Str("prefix", config.SubjectPrefix).Msg("event relay connected")
	return &Relay{nc: nc, prefix: config.SubjectPrefix}, nil
}

// Publish mirrors one event envelope to its per-type subject.
func (r *Relay) Publish(gameID uuid.UUID, event *events.Event) {
	subject := fmt.Sprintf("%s.%s", r.prefix, event.Type)

	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("game_id", gameID.String()).Msg("failed to marshal relay event")
		return
	}
	if err := r.nc.Publish(subject, data); err != nil {
		log.Error().
			Err(err).
			Str("subject", subject).
			Str("game_id", gameID.String()).
			Msg("failed to relay event")
	}
}

// Close drains the NATS connection.
func (r *Relay) Close() {
	if r.nc != nil {
		r.nc.Close()
	}
}
