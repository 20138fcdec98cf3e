package kafka

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/diwise/iot-telemetry-core/internal/pkg/application/ingestion"
	"github.com/diwise/iot-telemetry-core/internal/pkg/infrastructure/logging"
	"github.com/diwise/iot-telemetry-core/internal/pkg/infrastructure/transport"
	kafkago "github.com/segmentio/kafka-go"
)

const DefaultGroupID string = "iot-telemetry-core"

type Config struct {
	Brokers []string
	Topic   string
	GroupID string
}

//go:generate moq -rm -out messagereader_mock.go . MessageReader

type MessageReader interface {
	ReadMessage(ctx context.Context) (kafkago.Message, error)
	Close() error
}

type Consumer interface {
	Start(ctx context.Context)
	Stop()
}

type consumer struct {
	svc    ingestion.IngestionService
	reader MessageReader
	now    func() time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type Option func(*consumer)

func WithReader(r MessageReader) Option {
	return func(c *consumer) {
		c.reader = r
	}
}

func NewConsumer(cfg Config, svc ingestion.IngestionService, opts ...Option) Consumer {
	c := &consumer{
		svc: svc,
		now: func() time.Time { return time.Now().UTC() },
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.reader == nil {
		if cfg.GroupID == "" {
			cfg.GroupID = DefaultGroupID
		}

		c.reader = kafkago.NewReader(kafkago.ReaderConfig{
			Brokers:  cfg.Brokers,
			Topic:    cfg.Topic,
			GroupID:  cfg.GroupID,
			MinBytes: 1e3,
			MaxBytes: 10e6,
		})
	}

	return c
}

func (c *consumer) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)

	c.wg.Add(1)
	go c.run(ctx)
}

func (c *consumer) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
}

func (c *consumer) run(ctx context.Context) {
	defer c.wg.Done()
	defer c.reader.Close()

	logger := logging.GetLoggerFromContext(ctx)

	for {
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return
			}
			logger.Warn().Err(err).Msg("kafka read error")
			continue
		}

		sample, err := transport.DecodeSample(m.Value, string(m.Key), c.now())
		if err != nil {
			logger.Warn().Err(err).Int64("offset", m.Offset).Msg("dropping kafka message")
			continue
		}

		if _, err = c.svc.Ingest(ctx, sample); err != nil {
			logger.Error().Err(err).Str("externalId", sample.DeviceID).Msg("failed to ingest kafka message")
		}
	}
}
