package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/diwise/iot-telemetry-core/internal/pkg/infrastructure/logging"
	"github.com/diwise/iot-telemetry-core/internal/pkg/infrastructure/tracing"
	"github.com/diwise/iot-telemetry-core/pkg/types"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

var tracer = otel.Tracer("iot-telemetry-core-client")

var ErrDeviceNotFound = errors.New("device not found")
var ErrBadRequest = errors.New("bad request")
var ErrUnauthorized = errors.New("unauthorized")

type TelemetryClient interface {
	Send(ctx context.Context, sample types.TelemetrySample) (types.IngestResult, error)
	Close(ctx context.Context)
}

type telemetryClient struct {
	url        string
	httpClient http.Client
}

// New returns a client for the telemetry API. When oauthTokenURL is empty requests are sent
// without credentials, otherwise a token is fetched using the client credentials flow.
func New(ctx context.Context, telemetryURL, oauthTokenURL, oauthClientID, oauthClientSecret string) (TelemetryClient, error) {
	c := &telemetryClient{
		url: strings.TrimSuffix(telemetryURL, "/"),
		httpClient: http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}

	if oauthTokenURL == "" {
		return c, nil
	}

	oauthConfig := &clientcredentials.Config{
		ClientID:     oauthClientID,
		ClientSecret: oauthClientSecret,
		TokenURL:     oauthTokenURL,
	}

	// token requests use a separate client without the oauth2 transport
	ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	})

	token, err := oauthConfig.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get client credentials from %s: %w", oauthConfig.TokenURL, err)
	}

	if !token.Valid() {
		return nil, fmt.Errorf("an invalid token was returned from %s", oauthTokenURL)
	}

	c.httpClient.Transport = &oauth2.Transport{
		Source: oauthConfig.TokenSource(ctx),
		Base:   otelhttp.NewTransport(http.DefaultTransport),
	}

	return c, nil
}

func (c *telemetryClient) Send(ctx context.Context, sample types.TelemetrySample) (result types.IngestResult, err error) {
	ctx, span := tracer.Start(ctx, "send-telemetry")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	logger := logging.GetLoggerFromContext(ctx)

	body, err := json.Marshal(sample)
	if err != nil {
		err = fmt.Errorf("failed to marshal sample: %w", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+"/api/v0/telemetry", bytes.NewReader(body))
	if err != nil {
		err = fmt.Errorf("failed to create http request: %w", err)
		return
	}

	req.Header.Add("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		err = fmt.Errorf("failed to send telemetry: %w", err)
		return
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		err = fmt.Errorf("failed to read response body: %w", err)
		return
	}

	switch resp.StatusCode {
	case http.StatusAccepted, http.StatusOK:
	case http.StatusNotFound:
		err = fmt.Errorf("%w: %s", ErrDeviceNotFound, sample.DeviceID)
		return
	case http.StatusBadRequest:
		err = fmt.Errorf("%w: %s", ErrBadRequest, string(respBody))
		return
	case http.StatusUnauthorized, http.StatusForbidden:
		err = ErrUnauthorized
		return
	default:
		logger.Error().Int("statusCode", resp.StatusCode).Msg("unexpected response from telemetry api")
		err = fmt.Errorf("request failed with status code %d", resp.StatusCode)
		return
	}

	err = json.Unmarshal(respBody, &result)
	if err != nil {
		err = fmt.Errorf("failed to unmarshal response body: %w", err)
	}

	return
}

func (c *telemetryClient) Close(ctx context.Context) {
	c.httpClient.CloseIdleConnections()
}
