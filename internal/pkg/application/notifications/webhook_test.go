package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/diwise/iot-telemetry-core/internal/pkg/infrastructure/repositories/database/devices"
	nr "github.com/diwise/iot-telemetry-core/internal/pkg/infrastructure/repositories/database/notifications"
	"github.com/diwise/iot-telemetry-core/internal/pkg/infrastructure/repositories/database/rules"
	"github.com/matryer/is"
)

func TestValidateWebhookURL(t *testing.T) {
	is := is.New(t)

	rejected := map[string]error{
		"":                                      ErrWebhookURLInvalid,
		"http://example.com/hook":               ErrWebhookSchemeNotAllowed,
		"ftp://example.com/hook":                ErrWebhookSchemeNotAllowed,
		"https://127.0.0.1/hook":                ErrWebhookHostBlocked,
		"https://192.168.1.5/hook":              ErrWebhookHostBlocked,
		"https://169.254.169.254/latest":        ErrWebhookHostBlocked,
		"https://10.0.0.8:8443/hook":            ErrWebhookHostBlocked,
		"https://172.20.1.1/hook":               ErrWebhookHostBlocked,
		"https://localhost/hook":                ErrWebhookHostBlocked,
		"https://LOCALHOST/hook":                ErrWebhookHostBlocked,
		"https://0.0.0.0/hook":                  ErrWebhookHostBlocked,
		"https://[::1]/hook":                    ErrWebhookHostBlocked,
		"https://metadata.google.internal/hook": ErrWebhookHostBlocked,
		"https://127.0.0.2/hook":                ErrWebhookHostBlocked,
		"https://[::ffff:127.0.0.1]/hook":       ErrWebhookHostBlocked,
		"https://[::ffff:a9fe:a9fe]/latest":     ErrWebhookHostBlocked,
		"https://[0:0:0:0:0:0:0:1]/hook":        ErrWebhookHostBlocked,
		"https://[fe80::1]/hook":                ErrWebhookHostBlocked,
		"https://[fd00::5]/hook":                ErrWebhookHostBlocked,
		"https://2130706433/hook":               ErrWebhookHostBlocked,
		"https://0x7f000001/hook":               ErrWebhookHostBlocked,
		"https://0177.0.0.1/hook":               ErrWebhookHostBlocked,
		"https://api.localhost/hook":            ErrWebhookHostBlocked,
		"https://localhost./hook":               ErrWebhookHostBlocked,
	}

	for u, expected := range rejected {
		err := ValidateWebhookURL(u)
		is.True(errors.Is(err, expected)) // url should be rejected
	}

	is.NoErr(ValidateWebhookURL("https://example.com/hook"))
	is.NoErr(ValidateWebhookURL("https://172.32.0.1/hook"))
	is.NoErr(ValidateWebhookURL("https://hooks.example.com:8443/alerts?token=abc"))
	is.NoErr(ValidateWebhookURL("https://10.example.com/hook"))
	is.NoErr(ValidateWebhookURL("https://[2606:4700::1111]/hook"))
}

func TestWebhookPostsAlertPayload(t *testing.T) {
	is := is.New(t)

	var captured *http.Request
	var body map[string]any

	client := testClient(func(r *http.Request) (*http.Response, error) {
		captured = r
		b, _ := io.ReadAll(r.Body)
		json.Unmarshal(b, &body)
		return response(http.StatusNoContent), nil
	})

	alert, device := testAlert(3, rules.SeverityMedium)
	device.Organization = devices.Organization{ID: 3, Name: "Acme"}

	ch := NewWebhookChannel(0, WithHTTPClient(client))
	ok := ch.Send(context.Background(), devices.User{}, AlertContext{Alert: alert, Rule: alert.Rule, Device: device}, nr.NotificationPreference{Channel: nr.ChannelWebhook, Destination: "https://hooks.example.com/alerts"})
	is.True(ok)

	is.Equal(http.MethodPost, captured.Method)
	is.Equal("application/json", captured.Header.Get("Content-Type"))
	is.Equal("SensorVision/1.0", captured.Header.Get("User-Agent"))
	is.Equal("alert.triggered", captured.Header.Get("X-SensorVision-Event"))

	is.Equal("alert.triggered", body["event"])
	is.Equal("2024-01-02 03:04:05", body["timestamp"])

	a := body["alert"].(map[string]any)
	is.Equal(float64(42), a["id"])
	is.Equal("MEDIUM", a["severity"])
	is.Equal(float64(151), a["triggeredValue"])
	is.Equal(false, a["acknowledged"])

	rule := a["rule"].(map[string]any)
	is.Equal("Overheat", rule["name"])
	is.Equal("GT", rule["operator"])
	is.Equal(float64(100), rule["threshold"])

	dev := a["device"].(map[string]any)
	is.Equal("meter-01", dev["externalId"])
	is.Equal("Acme", dev["organizationName"])
	is.Equal("Basement", dev["location"])
}

func TestWebhookFailures(t *testing.T) {
	is := is.New(t)

	calls := 0
	status := http.StatusInternalServerError

	client := testClient(func(r *http.Request) (*http.Response, error) {
		calls++
		return response(status), nil
	})

	alert, device := testAlert(3, rules.SeverityMedium)
	ac := AlertContext{Alert: alert, Rule: alert.Rule, Device: device}
	ch := NewWebhookChannel(0, WithHTTPClient(client))

	is.True(!ch.Send(context.Background(), devices.User{}, ac, nr.NotificationPreference{Destination: "https://hooks.example.com/alerts"}))
	is.Equal(1, calls)

	is.True(!ch.Send(context.Background(), devices.User{}, ac, nr.NotificationPreference{}))
	is.True(!ch.Send(context.Background(), devices.User{}, ac, nr.NotificationPreference{Destination: "http://hooks.example.com/alerts"}))
	is.True(!ch.Send(context.Background(), devices.User{}, ac, nr.NotificationPreference{Destination: "https://169.254.169.254/latest/meta-data"}))
	is.Equal(1, calls) // rejected urls never reach the network
}

func TestWebhookDoesNotFollowRedirects(t *testing.T) {
	is := is.New(t)

	internalCalls := 0

	redirecting := func(r *http.Request) (*http.Response, error) {
		if r.URL.Hostname() == "127.0.0.1" {
			internalCalls++
			return response(http.StatusOK), nil
		}
		resp := response(http.StatusFound)
		resp.Header.Set("Location", "http://127.0.0.1/internal")
		return resp, nil
	}

	alert, device := testAlert(3, rules.SeverityMedium)
	ac := AlertContext{Alert: alert, Rule: alert.Rule, Device: device}

	ch := NewWebhookChannel(0, WithHTTPClient(testClient(redirecting)))
	is.True(!ch.Send(context.Background(), devices.User{}, ac, nr.NotificationPreference{Destination: "https://hooks.example.com/alerts"}))

	result := ch.TestWebhook(context.Background(), "https://hooks.example.com/test")
	is.True(!result.Success)
	is.Equal(http.StatusFound, result.StatusCode)

	follower := testClient(redirecting)
	follower.CheckRedirect = func(*http.Request, []*http.Request) error { return nil }
	ch = NewWebhookChannel(0, WithHTTPClient(follower))
	is.True(!ch.Send(context.Background(), devices.User{}, ac, nr.NotificationPreference{Destination: "https://hooks.example.com/alerts"}))

	is.Equal(0, internalCalls) // redirect targets are never requested
}

func TestTestWebhook(t *testing.T) {
	is := is.New(t)

	var event string
	var body map[string]any

	client := testClient(func(r *http.Request) (*http.Response, error) {
		event = r.Header.Get("X-SensorVision-Event")
		b, _ := io.ReadAll(r.Body)
		json.Unmarshal(b, &body)
		return response(http.StatusOK), nil
	})

	ch := NewWebhookChannel(0, WithHTTPClient(client))

	result := ch.TestWebhook(context.Background(), "https://hooks.example.com/test")
	is.True(result.Success)
	is.Equal(http.StatusOK, result.StatusCode)
	is.Equal("ok", result.ResponseBody)
	is.Equal("webhook.test", event)
	is.Equal("webhook.test", body["event"])

	result = ch.TestWebhook(context.Background(), "https://192.168.0.10/test")
	is.True(!result.Success)
	is.True(strings.Contains(result.Error, "blocked"))
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func testClient(f roundTripFunc) *http.Client {
	return &http.Client{Transport: f}
}

func response(code int) *http.Response {
	return &http.Response{
		StatusCode: code,
		Body:       io.NopCloser(strings.NewReader("ok")),
		Header:     http.Header{},
	}
}
