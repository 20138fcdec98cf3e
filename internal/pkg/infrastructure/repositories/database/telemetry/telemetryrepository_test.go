package telemetry

import (
	"context"
	"testing"
	"time"

	. "github.com/diwise/iot-telemetry-core/internal/pkg/infrastructure/repositories/database"
	"github.com/matryer/is"
	"github.com/shopspring/decimal"
)

func TestCreateVariableReturnsExistingOnConflict(t *testing.T) {
	is, ctx, r := testSetupTelemetryRepository(t)

	deviceID := uint(1)

	first := &Variable{OrganizationID: 1, DeviceID: &deviceID, Name: "temperature", DisplayName: "Temperature", DataType: DataTypeNumber}
	is.NoErr(r.CreateVariable(ctx, first))
	is.True(first.ID != 0)

	second := &Variable{OrganizationID: 1, DeviceID: &deviceID, Name: "temperature", DisplayName: "Another name", DataType: DataTypeNumber}
	is.NoErr(r.CreateVariable(ctx, second))
	is.Equal(first.ID, second.ID)
	is.Equal("Temperature", second.DisplayName)

	variables, err := r.GetVariables(ctx, deviceID)
	is.NoErr(err)
	is.Equal(1, len(variables))
}

func TestGetVariableNotFound(t *testing.T) {
	is, ctx, r := testSetupTelemetryRepository(t)

	_, err := r.GetVariable(ctx, 1, "nosuchvariable")
	is.Equal(ErrVariableNotFound, err)
}

func TestUpdateLastValueAndValues(t *testing.T) {
	is, ctx, r := testSetupTelemetryRepository(t)

	deviceID := uint(7)
	v := &Variable{OrganizationID: 1, DeviceID: &deviceID, Name: "voltage", DataType: DataTypeNumber}
	is.NoErr(r.CreateVariable(ctx, v))

	now := time.Now().UTC().Truncate(time.Second)

	is.NoErr(r.AddValues(ctx, []VariableValue{
		{VariableID: v.ID, Timestamp: now.Add(-time.Minute), Value: decimal.RequireFromString("229.5")},
		{VariableID: v.ID, Timestamp: now, Value: decimal.RequireFromString("230.1")},
	}))
	is.NoErr(r.UpdateLastValue(ctx, v.ID, decimal.RequireFromString("230.1"), now))

	values, err := r.GetValues(ctx, v.ID)
	is.NoErr(err)
	is.Equal(2, len(values))
	is.Equal("230.1", values[0].Value.String())

	stored, err := r.GetVariable(ctx, deviceID, "voltage")
	is.NoErr(err)
	is.True(stored.LastValue.Valid)
	is.Equal("230.1", stored.LastValue.Decimal.String())
	is.True(stored.LastValueAt != nil)

	is.NoErr(r.AddValues(ctx, nil))
}

func TestGetRecordsNewestFirst(t *testing.T) {
	is, ctx, r := testSetupTelemetryRepository(t)

	now := time.Now().UTC()

	is.NoErr(r.AddRecord(ctx, &TelemetryRecord{DeviceID: 3, OrganizationID: 1, Timestamp: now.Add(-time.Hour), Voltage: decimal.NewNullDecimal(decimal.NewFromInt(230))}))
	is.NoErr(r.AddRecord(ctx, &TelemetryRecord{DeviceID: 3, OrganizationID: 1, Timestamp: now}))
	is.NoErr(r.AddRecord(ctx, &TelemetryRecord{DeviceID: 4, OrganizationID: 1, Timestamp: now}))

	records, err := r.GetRecords(ctx, 3)
	is.NoErr(err)
	is.Equal(2, len(records))
	is.True(!records[0].Voltage.Valid)
	is.True(records[1].Voltage.Valid)
}

func testSetupTelemetryRepository(t *testing.T) (*is.I, context.Context, TelemetryRepository) {
	is := is.New(t)
	ctx := context.Background()

	r, err := NewTelemetryRepository(NewSQLiteConnector(ctx))
	is.NoErr(err)

	return is, ctx, r
}
