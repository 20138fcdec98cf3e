package metrics

import (
	"context"
	"math"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/diwise/iot-telemetry-core/internal/pkg/infrastructure/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const DefaultMaxDynamicGauges int = 1000

// Key identifies a dynamic gauge.
type Key struct {
	DeviceID string
	Variable string
}

// Gauge is a single updatable metric cell.
type Gauge struct {
	bits  atomic.Uint64
	gauge prometheus.Gauge
}

func (g *Gauge) Set(value float64) {
	g.bits.Store(math.Float64bits(value))
	g.gauge.Set(value)
}

func (g *Gauge) Value() float64 {
	return math.Float64frombits(g.bits.Load())
}

// LegacyValues are the five fixed telemetry fields that are always exported, missing values as zero.
type LegacyValues struct {
	KwConsumption float64
	Voltage       float64
	Current       float64
	PowerFactor   float64
	Frequency     float64
}

type Registry struct {
	maxDynamic int
	registry   *prometheus.Registry

	cells   sync.Map // Key -> *Gauge
	created atomic.Int64

	mu   sync.Mutex
	vecs map[string]*prometheus.GaugeVec

	legacy       map[string]*prometheus.GaugeVec
	deviceStatus *prometheus.GaugeVec
	smsSent      *prometheus.CounterVec
	smsFailed    *prometheus.CounterVec
}

var legacyMetricNames = []string{"iot_kw_consumption", "iot_voltage", "iot_current", "iot_power_factor", "iot_frequency"}

func NewRegistry(maxDynamicGauges int) *Registry {
	if maxDynamicGauges <= 0 {
		maxDynamicGauges = DefaultMaxDynamicGauges
	}

	r := &Registry{
		maxDynamic: maxDynamicGauges,
		registry:   prometheus.NewRegistry(),
		vecs:       map[string]*prometheus.GaugeVec{},
		legacy:     map[string]*prometheus.GaugeVec{},
	}

	for _, name := range legacyMetricNames {
		vec := prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: name, Help: "Latest " + strings.TrimPrefix(name, "iot_") + " reported by a device"}, []string{"deviceId"})
		r.registry.MustRegister(vec)
		r.legacy[name] = vec
	}

	r.deviceStatus = prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "iot_device_status", Help: "1 if the device is online, 0 otherwise"}, []string{"deviceId"})
	r.smsSent = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "iot_sms_sent_total", Help: "Number of SMS alerts accepted by the carrier"}, []string{"organizationId"})
	r.smsFailed = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "iot_sms_failed_total", Help: "Number of SMS alerts that were rejected or failed"}, []string{"organizationId"})

	r.registry.MustRegister(r.deviceStatus, r.smsSent, r.smsFailed)

	return r
}

// GetOrCreate returns the gauge for key, creating it if the dynamic gauge limit allows.
// The returned bool is false when the limit has been reached and no gauge exists for key.
func (r *Registry) GetOrCreate(ctx context.Context, key Key) (*Gauge, bool) {
	if g, ok := r.cells.Load(key); ok {
		return g.(*Gauge), true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if g, ok := r.cells.Load(key); ok {
		return g.(*Gauge), true
	}

	if int(r.created.Load()) >= r.maxDynamic {
		logger := logging.GetLoggerFromContext(ctx)
		logger.Warn().Str("deviceId", key.DeviceID).Str("variable", key.Variable).Msgf("dynamic gauge limit (%d) reached, skipping gauge", r.maxDynamic)
		return nil, false
	}

	name := DynamicMetricName(key.Variable)

	vec, ok := r.vecs[name]
	if !ok {
		vec = prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: name, Help: "Latest value of a dynamic device variable"}, []string{"deviceId", "variable"})
		if err := r.registry.Register(vec); err != nil {
			logger := logging.GetLoggerFromContext(ctx)
			logger.Error().Err(err).Str("metric", name).Msg("failed to register dynamic gauge")
			return nil, false
		}
		r.vecs[name] = vec
	}

	g := &Gauge{gauge: vec.WithLabelValues(key.DeviceID, key.Variable)}
	r.cells.Store(key, g)
	r.created.Add(1)

	return g, true
}

// SetDynamic updates the dynamic gauge for a device variable and reports whether a gauge was available.
func (r *Registry) SetDynamic(ctx context.Context, deviceID, variable string, value float64) bool {
	g, ok := r.GetOrCreate(ctx, Key{DeviceID: deviceID, Variable: variable})
	if !ok {
		return false
	}

	g.Set(value)
	return true
}

func (r *Registry) DynamicGaugeCount() int {
	return int(r.created.Load())
}

func (r *Registry) SetLegacy(deviceID string, values LegacyValues) {
	r.legacy["iot_kw_consumption"].WithLabelValues(deviceID).Set(values.KwConsumption)
	r.legacy["iot_voltage"].WithLabelValues(deviceID).Set(values.Voltage)
	r.legacy["iot_current"].WithLabelValues(deviceID).Set(values.Current)
	r.legacy["iot_power_factor"].WithLabelValues(deviceID).Set(values.PowerFactor)
	r.legacy["iot_frequency"].WithLabelValues(deviceID).Set(values.Frequency)
}

func (r *Registry) SetDeviceStatus(deviceID string, online bool) {
	v := 0.0
	if online {
		v = 1.0
	}
	r.deviceStatus.WithLabelValues(deviceID).Set(v)
}

func (r *Registry) SmsSent(organizationID string) {
	r.smsSent.WithLabelValues(organizationID).Inc()
}

func (r *Registry) SmsFailed(organizationID string) {
	r.smsFailed.WithLabelValues(organizationID).Inc()
}

func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

var invalidMetricChars = regexp.MustCompile(`[^a-z0-9_]`)
var repeatedUnderscores = regexp.MustCompile(`_+`)

// DynamicMetricName maps a variable name onto a valid prometheus metric name.
func DynamicMetricName(variable string) string {
	name := strings.ToLower(variable)
	name = invalidMetricChars.ReplaceAllString(name, "_")
	name = repeatedUnderscores.ReplaceAllString(name, "_")
	name = strings.Trim(name, "_")

	return "iot_dynamic_" + name
}
