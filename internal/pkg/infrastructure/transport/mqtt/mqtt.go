package mqtt

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/diwise/iot-telemetry-core/internal/pkg/application/ingestion"
	"github.com/diwise/iot-telemetry-core/internal/pkg/infrastructure/logging"
	"github.com/diwise/iot-telemetry-core/internal/pkg/infrastructure/transport"
	paho "github.com/eclipse/paho.mqtt.golang"
)

const DefaultTopic string = "sensorvision/devices/+/telemetry"

type Config struct {
	Broker   string
	Topic    string
	ClientID string
	Username string
	Password string
}

type Subscriber interface {
	Start(ctx context.Context) error
	Stop()
	Handle(ctx context.Context, topic string, payload []byte) error
}

type subscriber struct {
	cfg    Config
	svc    ingestion.IngestionService
	client paho.Client
	now    func() time.Time
}

func NewSubscriber(cfg Config, svc ingestion.IngestionService) Subscriber {
	if cfg.Topic == "" {
		cfg.Topic = DefaultTopic
	}

	if cfg.ClientID == "" {
		cfg.ClientID = fmt.Sprintf("iot-telemetry-core-%d", time.Now().UnixNano())
	}

	return &subscriber{
		cfg: cfg,
		svc: svc,
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (s *subscriber) Start(ctx context.Context) error {
	logger := logging.GetLoggerFromContext(ctx).With().Str("broker", s.cfg.Broker).Str("topic", s.cfg.Topic).Logger()

	opts := paho.NewClientOptions().
		AddBroker(s.cfg.Broker).
		SetClientID(s.cfg.ClientID).
		SetOrderMatters(false).
		SetAutoReconnect(true)

	if s.cfg.Username != "" {
		opts = opts.SetUsername(s.cfg.Username).SetPassword(s.cfg.Password)
	}

	handler := func(_ paho.Client, msg paho.Message) {
		if err := s.Handle(ctx, msg.Topic(), msg.Payload()); err != nil {
			logger.Error().Err(err).Str("messageTopic", msg.Topic()).Msg("failed to ingest mqtt message")
		}
	}

	// subscriptions are renewed on every (re)connect
	opts.SetOnConnectHandler(func(c paho.Client) {
		if token := c.Subscribe(s.cfg.Topic, 1, handler); token.Wait() && token.Error() != nil {
			logger.Error().Err(token.Error()).Msg("failed to subscribe")
			return
		}
		logger.Info().Msg("subscribed to telemetry topic")
	})

	s.client = paho.NewClient(opts)

	if token := s.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to connect to mqtt broker %s: %w", s.cfg.Broker, token.Error())
	}

	return nil
}

func (s *subscriber) Stop() {
	if s.client != nil && s.client.IsConnected() {
		s.client.Disconnect(250)
	}
}

func (s *subscriber) Handle(ctx context.Context, topic string, payload []byte) error {
	sample, err := transport.DecodeSample(payload, DeviceIDFromTopic(topic), s.now())
	if err != nil {
		return err
	}

	_, err = s.svc.Ingest(ctx, sample)
	return err
}

// DeviceIDFromTopic returns the device segment of a sensorvision/devices/<id>/telemetry topic.
func DeviceIDFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) == 4 && parts[1] == "devices" && parts[3] == "telemetry" {
		return parts[2]
	}
	return ""
}
