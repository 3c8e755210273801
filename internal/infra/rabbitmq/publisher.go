package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"edubot-quiz/internal/domain"
	"github.com/rabbitmq/amqp091-go"
)

const DefaultExchange = "quiz.events"

// CompletedEvent is the body published for every persisted quiz result.
type CompletedEvent struct {
	EventType    string    `json:"event_type"`
	ResultID     int64     `json:"result_id"`
	UserID       string    `json:"user_id"`
	ChatID       string    `json:"chat_id"`
	Flavor       string    `json:"flavor"`
	QuizID       string    `json:"quiz_id"`
	Total        int       `json:"total"`
	Correct      int       `json:"correct"`
	Points       int       `json:"points"`
	FirstAttempt bool      `json:"first_attempt"`
	StartedAt    time.Time `json:"started_at"`
	CompletedAt  time.Time `json:"completed_at"`
}

// EventPublisher publishes completion events to a topic exchange.
type EventPublisher struct {
	mu       sync.Mutex
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	exchange string
	enabled  bool
	log      *slog.Logger
}

// NewEventPublisher connects and declares the exchange. An empty URI yields a disabled publisher.
func NewEventPublisher(uri, exchange string, log *slog.Logger) (*EventPublisher, error) {
	if log == nil {
		log = slog.Default()
	}
	if exchange == "" {
		exchange = DefaultExchange
	}
	if uri == "" {
		log.Warn("rabbitmq uri is empty, event publishing is disabled")
		return &EventPublisher{exchange: exchange, log: log}, nil
	}

	conn, err := amqp091.Dial(uri)
	if err != nil {
		return nil, fmt.Errorf("connect rabbitmq: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := channel.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	log.Info("event publisher initialized", "exchange", exchange)
	return &EventPublisher{
		conn:     conn,
		channel:  channel,
		exchange: exchange,
		enabled:  true,
		log:      log,
	}, nil
}

// Enabled is false when no broker URI was configured.
func (p *EventPublisher) Enabled() bool { return p.enabled }

// RoutingKey is quiz.completed.<flavor>.
func RoutingKey(flavor domain.Flavor) string {
	return "quiz.completed." + string(flavor)
}

// NewCompletedEvent maps a persisted result onto the wire event.
func NewCompletedEvent(result domain.QuizResult) CompletedEvent {
	return CompletedEvent{
		EventType:    "quiz.completed",
		ResultID:     result.ID,
		UserID:       result.Owner.UserID,
		ChatID:       result.Owner.ChatID,
		Flavor:       string(result.Identity.Flavor),
		QuizID:       result.Identity.ID,
		Total:        result.Total,
		Correct:      result.Correct,
		Points:       result.Points,
		FirstAttempt: result.FirstAttempt,
		StartedAt:    result.StartedAt,
		CompletedAt:  result.CompletedAt,
	}
}

// PublishResult emits one persistent completion event; a disabled publisher does nothing.
func (p *EventPublisher) PublishResult(ctx context.Context, result domain.QuizResult) error {
	if !p.enabled {
		p.log.Debug("event publishing disabled, skipping", "result", result.String())
		return nil
	}
	body, err := json.Marshal(NewCompletedEvent(result))
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.channel.PublishWithContext(ctx, p.exchange, RoutingKey(result.Identity.Flavor), false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Timestamp:    result.CompletedAt,
		Body:         body,
		Headers: amqp091.Table{
			"event_type": "quiz.completed",
			"user_id":    result.Owner.UserID,
			"flavor":     string(result.Identity.Flavor),
		},
	})
	if err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

func (p *EventPublisher) Close() error {
	if !p.enabled {
		return nil
	}
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			p.log.Warn("close rabbitmq channel", "err", err)
		}
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			return fmt.Errorf("close rabbitmq connection: %w", err)
		}
	}
	return nil
}
