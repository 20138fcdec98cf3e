package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/diwise/iot-telemetry-core/pkg/types"
	"github.com/matryer/is"
	"github.com/shopspring/decimal"
)

func TestSendUsesClientCredentials(t *testing.T) {
	is := is.New(t)

	tokenRequests := 0
	oauth := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenRequests++
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(TokenResponse))
	}))
	defer oauth.Close()

	var authorization string
	var sample types.TelemetrySample

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authorization = r.Header.Get("Authorization")
		b, _ := io.ReadAll(r.Body)
		json.Unmarshal(b, &sample)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"deviceId":7,"externalId":"meter-01","created":true,"connected":true,"alerts":1}`))
	}))
	defer api.Close()

	ctx := context.Background()

	c, err := New(ctx, api.URL, oauth.URL+"/token", "client", "secret")
	is.NoErr(err)
	defer c.Close(ctx)

	result, err := c.Send(ctx, types.TelemetrySample{
		DeviceID:  "meter-01",
		Timestamp: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Variables: map[string]decimal.Decimal{"temp": decimal.RequireFromString("21.5")},
	})
	is.NoErr(err)

	is.Equal(uint(7), result.DeviceID)
	is.Equal(1, result.Alerts)
	is.Equal("Bearer an-access-token", authorization)
	is.Equal("meter-01", sample.DeviceID)
	is.True(sample.Variables["temp"].Equal(decimal.RequireFromString("21.5")))
	is.True(tokenRequests >= 1)
}

func TestSendMapsStatusCodes(t *testing.T) {
	is := is.New(t)

	status := http.StatusNotFound
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	defer api.Close()

	ctx := context.Background()

	c, err := New(ctx, api.URL, "", "", "")
	is.NoErr(err)

	sample := types.TelemetrySample{DeviceID: "meter-01", Timestamp: time.Now()}

	_, err = c.Send(ctx, sample)
	is.True(errors.Is(err, ErrDeviceNotFound))

	status = http.StatusBadRequest
	_, err = c.Send(ctx, sample)
	is.True(errors.Is(err, ErrBadRequest))

	status = http.StatusUnauthorized
	_, err = c.Send(ctx, sample)
	is.True(errors.Is(err, ErrUnauthorized))

	status = http.StatusBadGateway
	_, err = c.Send(ctx, sample)
	is.True(err != nil)
}

const TokenResponse string = `{"access_token":"an-access-token","expires_in":300,"refresh_expires_in":0,"token_type":"Bearer","not-before-policy":0,"scope":"email profile"}`
