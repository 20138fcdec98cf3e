package events

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/diwise/iot-telemetry-core/internal/pkg/infrastructure/logging"
	"github.com/diwise/iot-telemetry-core/internal/pkg/infrastructure/messaging"
	"github.com/diwise/iot-telemetry-core/pkg/types"
	"github.com/google/uuid"
	yaml "gopkg.in/yaml.v2"
)

const eventSource string = "github.com/diwise/iot-telemetry-core"

//go:generate moq -rm -out publisher_mock.go . Publisher

// Publisher forwards events to the external event system.
type Publisher interface {
	Publish(ctx context.Context, event types.Event) error
}

type publisher struct {
	messenger   messaging.MsgContext
	subscribers map[string][]SubscriberConfig
	client      cloudevents.Client
}

// New returns a Publisher that puts events on the message broker, if messenger is non nil, and sends
// them as cloud events to every subscriber configured for the event type.
func New(messenger messaging.MsgContext, cfg *Config) (Publisher, error) {
	p := &publisher{
		messenger:   messenger,
		subscribers: make(map[string][]SubscriberConfig),
	}

	if cfg != nil {
		for _, n := range cfg.Notifications {
			p.subscribers[n.Type] = append(p.subscribers[n.Type], n.Subscribers...)
		}
	}

	if len(p.subscribers) > 0 {
		c, err := cloudevents.NewClientHTTP()
		if err != nil {
			return nil, fmt.Errorf("failed to create cloud events client: %w", err)
		}
		p.client = c
	}

	return p, nil
}

func (p *publisher) Publish(ctx context.Context, event types.Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	logger := logging.GetLoggerFromContext(ctx).With().Str("event", event.Type).Str("entityId", event.EntityID).Logger()

	var errs []error

	if p.messenger != nil {
		if err := p.messenger.PublishOnTopic(ctx, &event); err != nil {
			logger.Error().Err(err).Msg("failed to publish event on topic")
			errs = append(errs, err)
		}
	}

	subscribers := p.subscribers[event.Type]
	if len(subscribers) == 0 || p.client == nil {
		return errors.Join(errs...)
	}

	ce := cloudevents.NewEvent()
	ce.SetID(event.ID)
	ce.SetTime(event.Timestamp)
	ce.SetSource(eventSource)
	ce.SetType(event.Type)
	ce.SetSubject(event.EntityID)
	if err := ce.SetData(cloudevents.ApplicationJSON, event); err != nil {
		return errors.Join(append(errs, err)...)
	}

	for _, s := range subscribers {
		ctxWithTarget := cloudevents.ContextWithTarget(ctx, s.Endpoint)

		result := p.client.Send(ctxWithTarget, ce)
		if !cloudevents.IsACK(result) {
			logger.Error().Err(result).Msgf("failed to send event to %s", s.Endpoint)
			errs = append(errs, fmt.Errorf("%s: %w", s.Endpoint, result))
		}
	}

	return errors.Join(errs...)
}

type SubscriberConfig struct {
	Endpoint string `yaml:"endpoint"`
}

type Notification struct {
	ID          string             `yaml:"id"`
	Name        string             `yaml:"name"`
	Type        string             `yaml:"type"`
	Subscribers []SubscriberConfig `yaml:"subscribers"`
}

type Config struct {
	Notifications []Notification `yaml:"notifications"`
}

func LoadConfiguration(data io.Reader) (*Config, error) {
	buf, err := io.ReadAll(data)
	if err != nil {
		return nil, err
	}

	cfg := Config{}
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
