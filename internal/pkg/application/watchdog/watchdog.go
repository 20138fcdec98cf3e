package watchdog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/diwise/iot-telemetry-core/internal/pkg/application/events"
	"github.com/diwise/iot-telemetry-core/internal/pkg/infrastructure/logging"
	"github.com/diwise/iot-telemetry-core/internal/pkg/infrastructure/repositories/database/devices"
	"github.com/diwise/iot-telemetry-core/pkg/types"
)

const queueSize int = 64

type Watchdog interface {
	Start(ctx context.Context)
	Stop()
}

type StatusMetrics interface {
	SetDeviceStatus(deviceID string, online bool)
}

type Config struct {
	OfflineAfter time.Duration
	Interval     time.Duration
	Workers      int
}

// job asks a worker to mark a single device offline, unless it has been seen after notSeenSince.
type job struct {
	device       devices.Device
	notSeenSince time.Time
}

type watchdog struct {
	cfg       Config
	repo      devices.DeviceRepository
	metrics   StatusMetrics
	publisher events.Publisher
	now       func() time.Time

	jobs   chan job
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

type Option func(*watchdog)

func WithPublisher(p events.Publisher) Option {
	return func(w *watchdog) {
		w.publisher = p
	}
}

func WithClock(now func() time.Time) Option {
	return func(w *watchdog) {
		w.now = now
	}
}

func New(cfg Config, repo devices.DeviceRepository, m StatusMetrics, opts ...Option) Watchdog {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}

	w := &watchdog{
		cfg:     cfg,
		repo:    repo,
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
		jobs:    make(chan job, queueSize),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

func (w *watchdog) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)

	for i := 0; i < w.cfg.Workers; i++ {
		w.wg.Add(1)
		go w.worker(ctx)
	}

	w.wg.Add(1)
	go w.run(ctx)
}

func (w *watchdog) Stop() {
	w.once.Do(func() {
		if w.cancel != nil {
			w.cancel()
		}
		w.wg.Wait()
	})
}

func (w *watchdog) run(ctx context.Context) {
	defer w.wg.Done()

	t := time.NewTicker(w.cfg.Interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.scan(ctx)
		}
	}
}

func (w *watchdog) scan(ctx context.Context) {
	logger := logging.GetLoggerFromContext(ctx)

	notSeenSince := w.now().Add(-w.cfg.OfflineAfter)

	stale, err := w.repo.GetOnlineDevicesNotSeenSince(ctx, notSeenSince)
	if err != nil {
		logger.Error().Err(err).Msg("failed to fetch devices not seen since last scan")
		return
	}

	for _, d := range stale {
		select {
		case <-ctx.Done():
			return
		case w.jobs <- job{device: d, notSeenSince: notSeenSince}:
		}
	}
}

func (w *watchdog) worker(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case j := <-w.jobs:
			w.markOffline(ctx, j)
		}
	}
}

func (w *watchdog) markOffline(ctx context.Context, j job) {
	logger := logging.GetLoggerFromContext(ctx).With().Str("externalId", j.device.ExternalID).Logger()

	changed, err := w.repo.MarkOffline(ctx, j.device.ID, j.notSeenSince)
	if err != nil {
		logger.Error().Err(err).Msg("failed to mark device offline")
		return
	}

	if !changed {
		return
	}

	logger.Info().Msg("device marked offline")
	w.metrics.SetDeviceStatus(j.device.ExternalID, false)

	if w.publisher == nil {
		return
	}

	err = w.publisher.Publish(ctx, types.Event{
		Type:           types.EventDeviceOffline,
		OrganizationID: j.device.OrganizationID,
		EntityID:       j.device.ExternalID,
		Severity:       types.EventSeverityWarning,
		Title:          fmt.Sprintf("Device '%s' is offline", deviceName(j.device)),
		Description:    fmt.Sprintf("Device %s has not reported since %s", j.device.ExternalID, j.notSeenSince.Format(time.RFC3339)),
	})
	if err != nil {
		logger.Error().Err(err).Msg("failed to publish device offline event")
	}
}

func deviceName(d devices.Device) string {
	if d.Name != "" {
		return d.Name
	}
	return d.ExternalID
}
