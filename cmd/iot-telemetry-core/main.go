package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/diwise/iot-telemetry-core/internal/pkg/application"
	"github.com/diwise/iot-telemetry-core/internal/pkg/application/events"
	"github.com/diwise/iot-telemetry-core/internal/pkg/application/ingestion"
	"github.com/diwise/iot-telemetry-core/internal/pkg/application/notifications"
	"github.com/diwise/iot-telemetry-core/internal/pkg/application/rules"
	"github.com/diwise/iot-telemetry-core/internal/pkg/application/variables"
	"github.com/diwise/iot-telemetry-core/internal/pkg/application/watchdog"
	"github.com/diwise/iot-telemetry-core/internal/pkg/infrastructure/email"
	"github.com/diwise/iot-telemetry-core/internal/pkg/infrastructure/logging"
	"github.com/diwise/iot-telemetry-core/internal/pkg/infrastructure/messaging"
	"github.com/diwise/iot-telemetry-core/internal/pkg/infrastructure/metrics"
	"github.com/diwise/iot-telemetry-core/internal/pkg/infrastructure/repositories/database"
	"github.com/diwise/iot-telemetry-core/internal/pkg/infrastructure/repositories/database/devices"
	nr "github.com/diwise/iot-telemetry-core/internal/pkg/infrastructure/repositories/database/notifications"
	rr "github.com/diwise/iot-telemetry-core/internal/pkg/infrastructure/repositories/database/rules"
	"github.com/diwise/iot-telemetry-core/internal/pkg/infrastructure/repositories/database/telemetry"
	"github.com/diwise/iot-telemetry-core/internal/pkg/infrastructure/router"
	"github.com/diwise/iot-telemetry-core/internal/pkg/infrastructure/sms"
	"github.com/diwise/iot-telemetry-core/internal/pkg/infrastructure/tracing"
	"github.com/diwise/iot-telemetry-core/internal/pkg/infrastructure/transport/kafka"
	"github.com/diwise/iot-telemetry-core/internal/pkg/infrastructure/transport/mqtt"
	"github.com/diwise/iot-telemetry-core/internal/pkg/infrastructure/websocket"
	"github.com/diwise/iot-telemetry-core/internal/pkg/presentation/api"
	"github.com/diwise/iot-telemetry-core/internal/pkg/presentation/api/auth"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

const serviceName string = "iot-telemetry-core"

type flagType int
type flagMap map[flagType]string

const (
	listenAddress flagType = iota
	servicePort
	configurationFile
	devicesFile
	dbType
	jwtSecret
	mqttBroker
	mqttTopic
	mqttUsername
	mqttPassword
	kafkaBrokers
	kafkaTopic
	kafkaGroupID
	smtpHost
	smtpPort
	smtpUsername
	smtpPassword
	awsRegion
)

func defaultFlags() flagMap {
	return flagMap{
		listenAddress: "0.0.0.0",
		servicePort:   "8080",

		configurationFile: "/opt/diwise/config/telemetry-core.yaml",
		devicesFile:       "/opt/diwise/config/devices.csv",

		dbType: "postgres",

		mqttTopic:    mqtt.DefaultTopic,
		kafkaGroupID: kafka.DefaultGroupID,
		smtpPort:     "587",
	}
}

func main() {
	serviceVersion := version()

	ctx, logger := logging.NewLogger(context.Background(), serviceName, serviceVersion)
	logger.Info().Msg("starting up ...")

	ctx, flags := parseExternalConfig(ctx, defaultFlags())

	cleanup, err := tracing.Init(ctx, logger, serviceName, serviceVersion)
	exitIf(err, logger, "failed to init tracing")
	defer cleanup()

	cfg, err := loadConfiguration(flags[configurationFile])
	exitIf(err, logger, "could not load configuration")

	var seed io.ReadCloser
	if f, err := os.Open(flags[devicesFile]); err == nil {
		seed = f
	} else {
		logger.Info().Str("file", flags[devicesFile]).Msg("no devices file found, skipping seed")
	}

	a, err := initialize(ctx, flags, cfg, seed)
	exitIf(err, logger, "failed to initialize service")

	a.start(ctx)

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%s", flags[listenAddress], flags[servicePort]),
		Handler: a.router,
	}

	go func() {
		logger.Info().Str("port", flags[servicePort]).Msg("starting to listen for connections")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			exitIf(err, logger, "failed to start request router")
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs

	logger.Info().Msg("shutting down ...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	server.Shutdown(shutdownCtx)
	a.stop()
}

type app struct {
	router *chi.Mux

	hub       *websocket.Hub
	watchdog  watchdog.Watchdog
	messenger messaging.MsgContext
	mqtt      mqtt.Subscriber
	kafka     kafka.Consumer
}

func (a *app) start(ctx context.Context) {
	logger := logging.GetLoggerFromContext(ctx)

	a.watchdog.Start(ctx)

	if a.mqtt != nil {
		if err := a.mqtt.Start(ctx); err != nil {
			logger.Error().Err(err).Msg("mqtt ingestion disabled")
			a.mqtt = nil
		}
	}

	if a.kafka != nil {
		a.kafka.Start(ctx)
	}
}

func (a *app) stop() {
	if a.mqtt != nil {
		a.mqtt.Stop()
	}

	if a.kafka != nil {
		a.kafka.Stop()
	}

	a.watchdog.Stop()
	a.hub.Close()

	if a.messenger != nil {
		a.messenger.Close()
	}
}

func initialize(ctx context.Context, flags flagMap, cfg *application.Config, seed io.ReadCloser) (*app, error) {
	logger := logging.GetLoggerFromContext(ctx)

	connect := newConnector(ctx, flags)

	deviceRepo, err := devices.NewDeviceRepository(connect)
	if err != nil {
		return nil, fmt.Errorf("could not create device repository: %w", err)
	}

	telemetryRepo, err := telemetry.NewTelemetryRepository(connect)
	if err != nil {
		return nil, fmt.Errorf("could not create telemetry repository: %w", err)
	}

	ruleRepo, err := rr.NewRuleRepository(connect)
	if err != nil {
		return nil, fmt.Errorf("could not create rule repository: %w", err)
	}

	notificationRepo, err := nr.NewNotificationRepository(connect)
	if err != nil {
		return nil, fmt.Errorf("could not create notification repository: %w", err)
	}

	if seed != nil {
		defer seed.Close()
		if err := devices.Seed(ctx, deviceRepo, seed); err != nil {
			return nil, fmt.Errorf("could not seed devices: %w", err)
		}
	}

	a := &app{}

	msgCfg := messaging.LoadConfiguration(serviceName)
	if msgCfg.URL != "" {
		a.messenger, err = messaging.Initialize(ctx, msgCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to init messenger: %w", err)
		}
	} else {
		logger.Info().Msg("no message broker configured, events are only sent to subscribers")
	}

	publisher, err := events.New(a.messenger, &cfg.Events)
	if err != nil {
		return nil, err
	}

	registry := metrics.NewRegistry(cfg.Metrics.MaxDynamicGauges)

	dispatcher, webhooks, err := newDispatcher(ctx, flags, cfg, deviceRepo, notificationRepo, registry)
	if err != nil {
		return nil, err
	}
	engine := rules.New(ruleRepo, publisher, dispatcher)

	a.hub = websocket.NewHub(organizationResolver(deviceRepo))

	svc := ingestion.New(
		ingestion.Config{
			AutoProvision:       cfg.Ingestion.Enabled(),
			DefaultOrganization: cfg.Ingestion.DefaultOrganization,
		},
		deviceRepo, telemetryRepo, variables.New(telemetryRepo), registry,
		ingestion.WithPublisher(publisher),
		ingestion.WithBroadcaster(a.hub),
		ingestion.WithRuleEvaluator(engine),
	)

	a.watchdog = watchdog.New(
		watchdog.Config{
			OfflineAfter: cfg.Watchdog.OfflineAfter,
			Interval:     cfg.Watchdog.Interval,
			Workers:      cfg.Watchdog.Workers,
		},
		deviceRepo, registry,
		watchdog.WithPublisher(publisher),
	)

	if flags[mqttBroker] != "" {
		a.mqtt = mqtt.NewSubscriber(mqtt.Config{
			Broker:   flags[mqttBroker],
			Topic:    flags[mqttTopic],
			Username: flags[mqttUsername],
			Password: flags[mqttPassword],
		}, svc)
	}

	if flags[kafkaBrokers] != "" {
		a.kafka = kafka.NewConsumer(kafka.Config{
			Brokers: strings.Split(flags[kafkaBrokers], ","),
			Topic:   flags[kafkaTopic],
			GroupID: flags[kafkaGroupID],
		}, svc)
	}

	authenticator, err := auth.NewAuthenticator([]byte(flags[jwtSecret]))
	if err != nil {
		return nil, err
	}

	a.router = api.RegisterHandlers(ctx, router.New(serviceName), authenticator, api.Handlers{
		Ingestion: svc,
		Webhooks:  webhooks,
		Live:      a.hub,
		Metrics:   registry.Handler(),
	})

	return a, nil
}

func newDispatcher(ctx context.Context, flags flagMap, cfg *application.Config, deviceRepo devices.DeviceRepository, repo nr.NotificationRepository, registry *metrics.Registry) (notifications.Dispatcher, notifications.WebhookChannel, error) {
	logger := logging.GetLoggerFromContext(ctx)

	var sender notifications.EmailSender
	if flags[smtpHost] != "" {
		port, err := strconv.Atoi(flags[smtpPort])
		if err != nil || port <= 0 || port > 65535 {
			return nil, nil, fmt.Errorf("invalid smtp port %q", flags[smtpPort])
		}
		sender = email.NewSMTPSender(email.Config{
			Host:     flags[smtpHost],
			Port:     port,
			Username: flags[smtpUsername],
			Password: flags[smtpPassword],
			From:     cfg.Notifications.Email.From,
		})
	}

	emailChannel := notifications.NewEmailChannel(cfg.Notifications.Email.Enabled, sender)

	var provider notifications.SmsProvider
	if cfg.Notifications.Sms.Enabled && flags[awsRegion] != "" {
		p, err := sms.NewSNSProvider(ctx, flags[awsRegion])
		if err != nil {
			logger.Error().Err(err).Msg("sms notifications disabled")
		} else {
			provider = p
		}
	}

	smsService := notifications.NewSmsService(
		notifications.SmsConfig{
			Enabled:               cfg.Notifications.Sms.Enabled,
			CostPerMessage:        cfg.Notifications.Sms.Cost(),
			DefaultDailyLimit:     cfg.Notifications.Sms.DefaultDailyLimit,
			DefaultMonthlyBudget:  cfg.Notifications.Sms.MonthlyBudget(),
			AlertThresholdPercent: cfg.Notifications.Sms.AlertThresholdPercent,
		},
		repo, deviceRepo, provider,
		notifications.WithBudgetAlerter(emailChannel),
		notifications.WithSmsMetrics(registry),
	)

	webhook := notifications.NewWebhookChannel(cfg.Notifications.Webhook.Timeout())

	channels := notifications.DefaultChannels(emailChannel, smsService, webhook)

	return notifications.NewDispatcher(deviceRepo, repo, smsService, channels), webhook, nil
}

// organizationResolver maps the organization claim of an authenticated request to the id
// used to partition websocket subscribers.
func organizationResolver(repo devices.DeviceRepository) websocket.OrganizationResolver {
	return func(r *http.Request) (uint, bool) {
		name, ok := auth.OrganizationFromContext(r.Context())
		if !ok {
			return 0, false
		}

		org, err := repo.GetOrCreateOrganization(r.Context(), name)
		if err != nil {
			logger := logging.GetLoggerFromContext(r.Context())
			logger.Error().Err(err).Str("organization", name).Msg("unable to resolve organization")
			return 0, false
		}

		return org.ID, true
	}
}

func newConnector(ctx context.Context, flags flagMap) database.ConnectorFunc {
	if flags[dbType] == "sqlite" {
		return database.NewSQLiteConnector(ctx)
	}

	return database.NewPostgreSQLConnector(ctx, database.LoadConfigFromEnv())
}

func loadConfiguration(path string) (*application.Config, error) {
	if path == "" {
		return application.DefaultConfig(), nil
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return application.DefaultConfig(), nil
		}
		return nil, err
	}
	defer f.Close()

	return application.LoadConfiguration(f)
}

func parseExternalConfig(ctx context.Context, flags flagMap) (context.Context, flagMap) {
	// Allow environment variables to override certain defaults
	envOrDef := func(key, def string) string {
		if value, ok := os.LookupEnv(key); ok && value != "" {
			return value
		}
		return def
	}

	flags[listenAddress] = envOrDef("LISTEN_ADDRESS", flags[listenAddress])
	flags[servicePort] = envOrDef("SERVICE_PORT", flags[servicePort])
	flags[configurationFile] = envOrDef("CONFIG_FILE", flags[configurationFile])
	flags[devicesFile] = envOrDef("DEVICES_FILE", flags[devicesFile])
	flags[jwtSecret] = envOrDef("JWT_SECRET", flags[jwtSecret])

	flags[mqttBroker] = envOrDef("MQTT_BROKER", flags[mqttBroker])
	flags[mqttTopic] = envOrDef("MQTT_TOPIC", flags[mqttTopic])
	flags[mqttUsername] = envOrDef("MQTT_USERNAME", flags[mqttUsername])
	flags[mqttPassword] = envOrDef("MQTT_PASSWORD", flags[mqttPassword])

	flags[kafkaBrokers] = envOrDef("KAFKA_BROKERS", flags[kafkaBrokers])
	flags[kafkaTopic] = envOrDef("KAFKA_TOPIC", flags[kafkaTopic])
	flags[kafkaGroupID] = envOrDef("KAFKA_GROUP_ID", flags[kafkaGroupID])

	flags[smtpHost] = envOrDef("SMTP_HOST", flags[smtpHost])
	flags[smtpPort] = envOrDef("SMTP_PORT", flags[smtpPort])
	flags[smtpUsername] = envOrDef("SMTP_USER", flags[smtpUsername])
	flags[smtpPassword] = envOrDef("SMTP_PASSWORD", flags[smtpPassword])

	flags[awsRegion] = envOrDef("AWS_REGION", flags[awsRegion])

	apply := func(f flagType) func(string) error {
		return func(value string) error {
			flags[f] = value
			return nil
		}
	}

	// Allow command line arguments to override defaults and environment variables
	flag.Func("config", "telemetry core configuration file", apply(configurationFile))
	flag.Func("devices", "list of known devices", apply(devicesFile))
	flag.Func("db", "database type, postgres or sqlite", apply(dbType))
	flag.Parse()

	return ctx, flags
}

func exitIf(err error, logger zerolog.Logger, msg string) {
	if err != nil {
		logger.Fatal().Err(err).Msg(msg)
	}
}

func version() string {
	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}

	buildSettings := buildInfo.Settings
	infoMap := map[string]string{}
	for _, s := range buildSettings {
		infoMap[s.Key] = s.Value
	}

	sha := infoMap["vcs.revision"]
	if infoMap["vcs.modified"] == "true" {
		sha += "+"
	}

	return sha
}
