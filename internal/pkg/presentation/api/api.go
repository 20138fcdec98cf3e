package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/diwise/iot-telemetry-core/internal/pkg/application/ingestion"
	"github.com/diwise/iot-telemetry-core/internal/pkg/application/notifications"
	"github.com/diwise/iot-telemetry-core/internal/pkg/infrastructure/logging"
	"github.com/diwise/iot-telemetry-core/internal/pkg/infrastructure/tracing"
	"github.com/diwise/iot-telemetry-core/internal/pkg/infrastructure/transport"
	"github.com/diwise/iot-telemetry-core/internal/pkg/presentation/api/auth"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("iot-telemetry-core/api")

const maxBodySize int64 = 1 << 20

//go:generate moq -rm -out webhooktester_mock.go . WebhookTester

type WebhookTester interface {
	TestWebhook(ctx context.Context, url string) notifications.WebhookTestResult
}

type Handlers struct {
	Ingestion ingestion.IngestionService
	Webhooks  WebhookTester
	Live      http.Handler
	Metrics   http.Handler
}

func RegisterHandlers(ctx context.Context, router *chi.Mux, authenticator auth.Enticator, h Handlers) *chi.Mux {
	log := logging.GetLoggerFromContext(ctx)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	if h.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", h.Metrics)
	}

	router.Route("/api/v0", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(authenticator.RequireOrganization())

			r.Post("/telemetry", ingestTelemetryHandler(log, h.Ingestion))
			r.Post("/webhooks/test", testWebhookHandler(log, h.Webhooks))

			if h.Live != nil {
				r.Method(http.MethodGet, "/ws", h.Live)
			}
		})
	})

	return router
}

func ingestTelemetryHandler(log zerolog.Logger, svc ingestion.IngestionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		defer r.Body.Close()

		ctx, span := tracer.Start(r.Context(), "ingest-telemetry")
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()
		_, ctx, requestLogger := logging.AddTraceIDToLoggerAndStoreInContext(span, log, ctx)

		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
		if err != nil {
			requestLogger.Error().Err(err).Msg("unable to read body")
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		sample, err := transport.DecodeSample(body, "", time.Now().UTC())
		if err != nil {
			requestLogger.Info().Err(err).Msg("unable to decode telemetry sample")
			writeError(w, http.StatusBadRequest, err)
			return
		}

		result, err := svc.Ingest(ctx, sample)
		if err != nil {
			switch {
			case errors.Is(err, ingestion.ErrDeviceNotFound):
				requestLogger.Debug().Str("externalId", sample.DeviceID).Msg("device not found")
				writeError(w, http.StatusNotFound, err)
			case errors.Is(err, ingestion.ErrInvalidSample):
				writeError(w, http.StatusBadRequest, err)
			default:
				requestLogger.Error().Err(err).Msg("failed to ingest telemetry")
				w.WriteHeader(http.StatusInternalServerError)
			}
			return
		}

		writeJSON(w, http.StatusAccepted, result)
	}
}

type webhookTestRequest struct {
	URL string `json:"url"`
}

func testWebhookHandler(log zerolog.Logger, tester WebhookTester) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		defer r.Body.Close()

		ctx, span := tracer.Start(r.Context(), "test-webhook")
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()
		_, ctx, requestLogger := logging.AddTraceIDToLoggerAndStoreInContext(span, log, ctx)

		req := webhookTestRequest{}

		err = json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(&req)
		if err != nil || req.URL == "" {
			requestLogger.Info().Msg("webhook test request without url")
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		result := tester.TestWebhook(ctx, req.URL)
		requestLogger.Info().Bool("success", result.Success).Int("statusCode", result.StatusCode).Msg("webhook tested")

		writeJSON(w, http.StatusOK, result)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Add("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(b)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, struct {
		Error string `json:"error"`
	}{err.Error()})
}
