package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/diwise/iot-telemetry-core/internal/pkg/application"
	"github.com/diwise/iot-telemetry-core/internal/pkg/presentation/api/auth"
	"github.com/diwise/iot-telemetry-core/pkg/types"
	"github.com/matryer/is"
)

const testSecret string = "a-test-secret"

func TestSetup(t *testing.T) {
	is, server := setupTest(t)

	resp, _ := testRequest(is, server, http.MethodGet, "/health", "", nil)
	is.Equal(resp.StatusCode, http.StatusNoContent)
}

func TestThatSeededDeviceIsUsedForIngestion(t *testing.T) {
	is, server := setupTest(t)
	bearer := token(is, "Acme")

	resp, body := testRequest(is, server, http.MethodPost, "/api/v0/telemetry", bearer,
		strings.NewReader(`{"deviceId":"meter-01","variables":{"kw_consumption":12.5,"temperature":21}}`))
	is.Equal(resp.StatusCode, http.StatusAccepted)

	result := types.IngestResult{}
	is.NoErr(json.Unmarshal([]byte(body), &result))
	is.Equal(result.ExternalID, "meter-01")
	is.True(!result.Created)
	is.True(result.Connected)

	_, metrics := testRequest(is, server, http.MethodGet, "/metrics", "", nil)
	is.True(strings.Contains(metrics, `iot_device_status{deviceId="meter-01"} 1`))
	is.True(strings.Contains(metrics, `iot_kw_consumption{deviceId="meter-01"} 12.5`))
}

func TestThatUnknownDeviceIsProvisioned(t *testing.T) {
	is, server := setupTest(t)
	bearer := token(is, "Acme")

	resp, body := testRequest(is, server, http.MethodPost, "/api/v0/telemetry", bearer,
		strings.NewReader(`{"deviceId":"brand-new","variables":{"humidity":40}}`))
	is.Equal(resp.StatusCode, http.StatusAccepted)

	result := types.IngestResult{}
	is.NoErr(json.Unmarshal([]byte(body), &result))
	is.True(result.Created)
}

func TestThatTelemetryRequiresToken(t *testing.T) {
	is, server := setupTest(t)

	resp, _ := testRequest(is, server, http.MethodPost, "/api/v0/telemetry", "",
		strings.NewReader(`{"deviceId":"meter-01","variables":{"temperature":21}}`))
	is.Equal(resp.StatusCode, http.StatusUnauthorized)
}

func TestThatInvalidSmtpPortFailsStartup(t *testing.T) {
	is := is.New(t)

	flags := defaultFlags()
	flags[dbType] = "sqlite"
	flags[jwtSecret] = testSecret
	flags[smtpHost] = "smtp.example.com"
	flags[smtpPort] = "smtp"

	_, err := initialize(context.Background(), flags, application.DefaultConfig(), nil)
	is.True(err != nil)
	is.True(strings.Contains(err.Error(), "invalid smtp port"))
}

func setupTest(t *testing.T) (*is.I, *httptest.Server) {
	is := is.New(t)

	flags := defaultFlags()
	flags[dbType] = "sqlite"
	flags[jwtSecret] = testSecret

	a, err := initialize(context.Background(), flags, application.DefaultConfig(), io.NopCloser(strings.NewReader(csvMock)))
	is.NoErr(err)

	server := httptest.NewServer(a.router)
	t.Cleanup(func() {
		server.Close()
		a.hub.Close()
	})

	return is, server
}

func token(is *is.I, org string) string {
	tok, err := auth.NewToken([]byte(testSecret), org)
	is.NoErr(err)
	return tok
}

func testRequest(is *is.I, ts *httptest.Server, method, path, bearer string, body io.Reader) (*http.Response, string) {
	req, _ := http.NewRequest(method, ts.URL+path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := http.DefaultClient.Do(req)
	is.NoErr(err)
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	return resp, string(respBody)
}

const csvMock string = `externalId;organization;name;location;sensorType
meter-01;Acme;Main meter;Basement;energy
meter-02;Other;Second meter;Roof;energy`
