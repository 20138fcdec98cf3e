package messaging

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/diwise/iot-telemetry-core/internal/pkg/infrastructure/logging"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

type TopicMessage interface {
	ContentType() string
	TopicName() string
	Body() []byte
}

//go:generate moq -rm -out messaging_mock.go . MsgContext

type MsgContext interface {
	PublishOnTopic(ctx context.Context, message TopicMessage) error
	Close()
}

type Config struct {
	ServiceName string
	URL         string
	Exchange    string
}

func LoadConfiguration(serviceName string) Config {
	exchange := os.Getenv("RABBITMQ_EXCHANGE")
	if exchange == "" {
		exchange = "iot-msg-exchange-topic"
	}

	return Config{
		ServiceName: serviceName,
		URL:         os.Getenv("RABBITMQ_URL"),
		Exchange:    exchange,
	}
}

type rabbitMQContext struct {
	cfg     Config
	log     zerolog.Logger
	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
}

// Initialize connects to the broker and declares the topic exchange that all messages are published on.
func Initialize(ctx context.Context, cfg Config) (MsgContext, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("no broker url configured")
	}

	log := logging.GetLoggerFromContext(ctx).With().Str("exchange", cfg.Exchange).Logger()

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to message broker: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = channel.ExchangeDeclare(cfg.Exchange, amqp.ExchangeTopic, true, false, false, false, nil)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", cfg.Exchange, err)
	}

	log.Info().Msg("connected to message broker")

	return &rabbitMQContext{
		cfg:     cfg,
		log:     log,
		conn:    conn,
		channel: channel,
	}, nil
}

func (r *rabbitMQContext) PublishOnTopic(ctx context.Context, message TopicMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := r.channel.PublishWithContext(ctx, r.cfg.Exchange, message.TopicName(), false, false, amqp.Publishing{
		ContentType: message.ContentType(),
		MessageId:   uuid.NewString(),
		Timestamp:   time.Now().UTC(),
		AppId:       r.cfg.ServiceName,
		Body:        message.Body(),
	})
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", message.TopicName(), err)
	}

	return nil
}

func (r *rabbitMQContext) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.channel.Close(); err != nil {
		r.log.Warn().Err(err).Msg("failed to close channel")
	}

	if err := r.conn.Close(); err != nil {
		r.log.Warn().Err(err).Msg("failed to close connection")
	}
}
