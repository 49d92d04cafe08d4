package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"github.com/tradearena-io/tournament-engine/internal/config"
)

// StandingsUpdatedEvent notifies downstream consumers that a tournament's
// leaderboard reached a new version. The payload is a reference; consumers
// fetch the entry set from the shared store.
type StandingsUpdatedEvent struct {
	TournamentID string    `json:"tournamentId"`
	Version      int64     `json:"version"`
	ComputedAt   time.Time `json:"computedAt"`
}

type PublisherInterface interface {
	PublishStandingsUpdated(ctx context.Context, event *StandingsUpdatedEvent) error
	Shutdown()
}

type QueueManager struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

func NewQueueManager(cfg *config.QueueConfig) (*QueueManager, error) {
	conn, err := amqp.Dial(fmt.Sprintf("amqp://%s:%s@%s/", cfg.User, cfg.Password, cfg.Url))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open rabbitmq channel: %w", err)
	}

	if err := channel.ExchangeDeclare(
		cfg.Exchange,
		amqp.ExchangeTopic,
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		_ = channel.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", cfg.Exchange, err)
	}

	return &QueueManager{
		conn:     conn,
		channel:  channel,
		exchange: cfg.Exchange,
	}, nil
}

// PublishStandingsUpdated fans the notification out on the tournament's
// routing key. Consumers bind "standings.<tournament-id>" or "standings.#".
func (qm *QueueManager) PublishStandingsUpdated(
	ctx context.Context, event *StandingsUpdatedEvent,
) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal standings event: %w", err)
	}

	routingKey := "standings." + event.TournamentID
	err = qm.channel.PublishWithContext(ctx, qm.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish standings event: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the interaction with the queue, ensuring all
// resources are properly released.
func (qm *QueueManager) Shutdown() {
	log.Info().Msg("Shutting down queue manager")
	if err := qm.channel.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close rabbitmq channel")
	}
	if err := qm.conn.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close rabbitmq connection")
	}
}
