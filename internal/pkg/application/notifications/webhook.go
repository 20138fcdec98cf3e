package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/diwise/iot-telemetry-core/internal/pkg/infrastructure/logging"
	"github.com/diwise/iot-telemetry-core/internal/pkg/infrastructure/repositories/database/devices"
	nr "github.com/diwise/iot-telemetry-core/internal/pkg/infrastructure/repositories/database/notifications"
	"github.com/diwise/iot-telemetry-core/pkg/types"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	EventAlertTriggered = "alert.triggered"
	EventWebhookTest    = "webhook.test"

	DefaultWebhookTimeout = 5000 * time.Millisecond

	userAgent       = "SensorVision/1.0"
	eventHeader     = "X-SensorVision-Event"
	timestampFormat = "2006-01-02 15:04:05"
)

var (
	ErrWebhookURLInvalid       = fmt.Errorf("invalid webhook url")
	ErrWebhookSchemeNotAllowed = fmt.Errorf("webhook url must use https")
	ErrWebhookHostBlocked      = fmt.Errorf("webhook url points to a blocked internal or private host")
)

// blockedHostnames are matched exactly, and as a suffix for subdomains, with any trailing dot removed.
var blockedHostnames = []string{
	"localhost", "metadata.google.internal",
}

// ValidateWebhookURL rejects anything but https urls to public hosts.
func ValidateWebhookURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("%w: url is empty", ErrWebhookURLInvalid)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrWebhookURLInvalid, err.Error())
	}

	if !strings.EqualFold(u.Scheme, "https") {
		return fmt.Errorf("%w, found %q", ErrWebhookSchemeNotAllowed, u.Scheme)
	}

	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	if host == "" {
		return fmt.Errorf("%w: missing host", ErrWebhookURLInvalid)
	}

	if ip := net.ParseIP(host); ip != nil {
		if isInternalIP(ip) {
			return fmt.Errorf("%w: %s", ErrWebhookHostBlocked, host)
		}
		return nil
	}

	// resolvers accept integer, octal and hex forms of ipv4 addresses
	if isNumericHost(host) {
		return fmt.Errorf("%w: %s", ErrWebhookHostBlocked, host)
	}

	for _, blocked := range blockedHostnames {
		if host == blocked || strings.HasSuffix(host, "."+blocked) {
			return fmt.Errorf("%w: %s", ErrWebhookHostBlocked, host)
		}
	}

	return nil
}

func isInternalIP(ip net.IP) bool {
	if ip4 := ip.To4(); ip4 != nil && ip4[0] == 0 {
		return true
	}

	return ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsInterfaceLocalMulticast()
}

func isNumericHost(host string) bool {
	last := host[strings.LastIndex(host, ".")+1:]
	if last == "" {
		return false
	}

	if strings.HasPrefix(last, "0x") {
		return true
	}

	for _, r := range last {
		if r < '0' || r > '9' {
			return false
		}
	}

	return true
}

type WebhookTestResult struct {
	Success      bool   `json:"success"`
	StatusCode   int    `json:"statusCode,omitempty"`
	ResponseBody string `json:"responseBody,omitempty"`
	DurationMs   int64  `json:"durationMs"`
	Error        string `json:"error,omitempty"`
}

type WebhookChannel interface {
	Channel
	TestWebhook(ctx context.Context, webhookURL string) WebhookTestResult
}

type webhookChannel struct {
	client *http.Client
	now    func() time.Time
}

type WebhookOption func(*webhookChannel)

// WithHTTPClient replaces the default client. Redirects are never followed, whatever
// CheckRedirect the client carries.
func WithHTTPClient(client *http.Client) WebhookOption {
	return func(w *webhookChannel) {
		w.client = client
	}
}

func NewWebhookChannel(timeout time.Duration, opts ...WebhookOption) WebhookChannel {
	if timeout <= 0 {
		timeout = DefaultWebhookTimeout
	}

	w := &webhookChannel{
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		now: func() time.Time { return time.Now().UTC() },
	}

	for _, opt := range opts {
		opt(w)
	}

	// a redirect could lead to a host that ValidateWebhookURL would reject
	client := *w.client
	client.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	w.client = &client

	return w
}

func (w *webhookChannel) Send(ctx context.Context, user devices.User, alert AlertContext, pref nr.NotificationPreference) bool {
	logger := logging.GetLoggerFromContext(ctx)

	if pref.Destination == "" {
		logger.Warn().Str("username", user.Username).Msg("webhook preference has no url")
		return false
	}

	if err := ValidateWebhookURL(pref.Destination); err != nil {
		logger.Error().Err(err).Msg("webhook url validation failed")
		return false
	}

	statusCode, _, err := w.post(ctx, pref.Destination, EventAlertTriggered, NewWebhookPayload(alert))
	if err != nil {
		logger.Error().Err(err).Str("url", pref.Destination).Msg("failed to send webhook notification")
		return false
	}

	if !is2xx(statusCode) {
		logger.Warn().Int("statusCode", statusCode).Str("url", pref.Destination).Msg("webhook returned non-success status")
		return false
	}

	logger.Info().Int("statusCode", statusCode).Str("url", pref.Destination).Msg("webhook sent")

	return true
}

func (w *webhookChannel) TestWebhook(ctx context.Context, webhookURL string) WebhookTestResult {
	logger := logging.GetLoggerFromContext(ctx)

	if err := ValidateWebhookURL(webhookURL); err != nil {
		logger.Error().Err(err).Msg("webhook url validation failed")
		return WebhookTestResult{Error: err.Error()}
	}

	payload := types.WebhookPayload{
		Event:     EventWebhookTest,
		Timestamp: w.now().Format(timestampFormat),
		Message:   "This is a test webhook from SensorVision",
	}

	start := time.Now()
	statusCode, body, err := w.post(ctx, webhookURL, EventWebhookTest, payload)
	result := WebhookTestResult{
		StatusCode:   statusCode,
		ResponseBody: body,
		DurationMs:   time.Since(start).Milliseconds(),
	}

	if err != nil {
		logger.Error().Err(err).Str("url", webhookURL).Msg("webhook test failed")
		result.Error = err.Error()
		return result
	}

	result.Success = is2xx(statusCode)

	return result
}

func (w *webhookChannel) post(ctx context.Context, webhookURL, event string, payload types.WebhookPayload) (int, string, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return 0, "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(b))
	if err != nil {
		return 0, "", err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set(eventHeader, event)

	resp, err := w.client.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil && !errors.Is(err, io.EOF) {
		return resp.StatusCode, "", err
	}

	return resp.StatusCode, string(respBody), nil
}

func is2xx(statusCode int) bool {
	return statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices
}

// NewWebhookPayload builds the alert.triggered body posted to user webhooks.
func NewWebhookPayload(alert AlertContext) types.WebhookPayload {
	a := alert.Alert

	wa := &types.WebhookAlert{
		ID:             a.ID,
		Severity:       string(a.Severity),
		Message:        a.Message,
		TriggeredValue: a.TriggeredValue,
		Acknowledged:   a.Acknowledged,
	}

	if alert.Rule.ID != 0 {
		wa.Rule = &types.WebhookRule{
			ID:        alert.Rule.ID,
			Name:      alert.Rule.Name,
			Variable:  alert.Rule.Variable,
			Operator:  string(alert.Rule.Operator),
			Threshold: alert.Rule.Threshold,
		}
	}

	if alert.Device.ID != 0 {
		wa.Device = &types.WebhookDevice{
			ID:               alert.Device.ID,
			ExternalID:       alert.Device.ExternalID,
			Name:             alert.Device.Name,
			Location:         alert.Device.Location,
			SensorType:       alert.Device.SensorType,
			OrganizationID:   alert.Device.OrganizationID,
			OrganizationName: alert.Device.Organization.Name,
		}
	}

	return types.WebhookPayload{
		Event:     EventAlertTriggered,
		Timestamp: a.TriggeredAt.Format(timestampFormat),
		Alert:     wa,
	}
}
