package variables

import (
	"context"
	"testing"
	"time"

	"github.com/diwise/iot-telemetry-core/internal/pkg/infrastructure/repositories/database"
	"github.com/diwise/iot-telemetry-core/internal/pkg/infrastructure/repositories/database/telemetry"
	"github.com/matryer/is"
	"github.com/shopspring/decimal"
)

func TestAppendCreatesVariablesAndValues(t *testing.T) {
	is, ctx, store, repo := testSetup(t)

	values := map[string]decimal.Decimal{
		"temp":     decimal.RequireFromString("21.5"),
		"humidity": decimal.NewFromInt(40),
	}

	n, err := store.Append(ctx, 1, 10, time.Now().UTC(), values, map[string]any{"source": "test"})
	is.NoErr(err)
	is.Equal(2, n)

	vars, err := repo.GetVariables(ctx, 10)
	is.NoErr(err)
	is.Equal(2, len(vars))

	temp, err := store.GetValues(ctx, 10, "temp")
	is.NoErr(err)
	is.Equal(1, len(temp))
	is.True(temp[0].Value.Equal(decimal.RequireFromString("21.5")))

	humidity, err := store.GetValues(ctx, 10, "humidity")
	is.NoErr(err)
	is.Equal(1, len(humidity))
	is.True(humidity[0].Value.Equal(decimal.NewFromInt(40)))
}

func TestAppendReusesExistingVariables(t *testing.T) {
	is, ctx, store, repo := testSetup(t)

	now := time.Now().UTC()

	_, err := store.Append(ctx, 1, 10, now.Add(-time.Minute), map[string]decimal.Decimal{"temp": decimal.NewFromInt(20)}, nil)
	is.NoErr(err)
	_, err = store.Append(ctx, 1, 10, now, map[string]decimal.Decimal{"temp": decimal.NewFromInt(22)}, nil)
	is.NoErr(err)

	vars, _ := repo.GetVariables(ctx, 10)
	is.Equal(1, len(vars))
	is.Equal("Temp", vars[0].DisplayName)

	values, _ := store.GetValues(ctx, 10, "temp")
	is.Equal(2, len(values))
	is.True(values[0].Value.Equal(decimal.NewFromInt(22))) // newest first

	latest, err := store.GetLatest(ctx, 10)
	is.NoErr(err)
	is.True(latest["temp"].Equal(decimal.NewFromInt(22)))
}

func TestLastValueIsNotOverwrittenByOlderSample(t *testing.T) {
	is, ctx, store, _ := testSetup(t)

	now := time.Now().UTC()

	store.Append(ctx, 1, 10, now, map[string]decimal.Decimal{"temp": decimal.NewFromInt(22)}, nil)
	store.Append(ctx, 1, 10, now.Add(-time.Hour), map[string]decimal.Decimal{"temp": decimal.NewFromInt(5)}, nil)

	latest, _ := store.GetLatest(ctx, 10)
	is.True(latest["temp"].Equal(decimal.NewFromInt(22)))
}

func TestVariablesAreScopedPerDevice(t *testing.T) {
	is, ctx, store, _ := testSetup(t)

	a, err := store.ResolveOrCreate(ctx, 1, 10, "temp")
	is.NoErr(err)
	b, err := store.ResolveOrCreate(ctx, 1, 11, "temp")
	is.NoErr(err)
	again, err := store.ResolveOrCreate(ctx, 1, 10, "temp")
	is.NoErr(err)

	is.True(a.ID != b.ID)
	is.Equal(a.ID, again.ID)
}

func TestHumanizeName(t *testing.T) {
	is := is.New(t)

	is.Equal("Temperature", HumanizeName("temperature"))
	is.Equal("Kw Consumption", HumanizeName("kw_consumption"))
	is.Equal("Power Factor", HumanizeName("powerFactor"))
	is.Equal("", HumanizeName(""))
	is.Equal("Överskott Effekt", HumanizeName("överskott_effekt"))
	is.Equal("Ärvärde", HumanizeName("ärvärde"))
}

func testSetup(t *testing.T) (*is.I, context.Context, VariableStore, telemetry.TelemetryRepository) {
	is := is.New(t)
	ctx := context.Background()

	repo, err := telemetry.NewTelemetryRepository(database.NewSQLiteConnector(ctx))
	is.NoErr(err)

	return is, ctx, New(repo), repo
}
