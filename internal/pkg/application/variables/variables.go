package variables

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/diwise/iot-telemetry-core/internal/pkg/infrastructure/logging"
	"github.com/diwise/iot-telemetry-core/internal/pkg/infrastructure/repositories/database/telemetry"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// VariableStore resolves dynamic variable definitions per device and appends their values.
type VariableStore interface {
	ResolveOrCreate(ctx context.Context, organizationID, deviceID uint, name string) (telemetry.Variable, error)
	Append(ctx context.Context, organizationID, deviceID uint, timestamp time.Time, values map[string]decimal.Decimal, metadata map[string]any) (int, error)
	GetValues(ctx context.Context, deviceID uint, name string) ([]telemetry.VariableValue, error)
	GetLatest(ctx context.Context, deviceID uint) (map[string]decimal.Decimal, error)
}

type variableStore struct {
	repo telemetry.TelemetryRepository
}

func New(repo telemetry.TelemetryRepository) VariableStore {
	return &variableStore{
		repo: repo,
	}
}

func (s *variableStore) ResolveOrCreate(ctx context.Context, organizationID, deviceID uint, name string) (telemetry.Variable, error) {
	v, err := s.repo.GetVariable(ctx, deviceID, name)
	if err == nil {
		return v, nil
	}

	if !errors.Is(err, telemetry.ErrVariableNotFound) {
		return telemetry.Variable{}, err
	}

	v = telemetry.Variable{
		OrganizationID: organizationID,
		DeviceID:       &deviceID,
		Name:           name,
		DisplayName:    HumanizeName(name),
		DataType:       telemetry.DataTypeNumber,
	}

	if err := s.repo.CreateVariable(ctx, &v); err != nil {
		return telemetry.Variable{}, fmt.Errorf("failed to create variable %s: %w", name, err)
	}

	logger := logging.GetLoggerFromContext(ctx)
	logger.Debug().Uint("deviceId", deviceID).Str("variable", name).Msg("created variable")

	return v, nil
}

// Append writes one value row per variable and refreshes the cached last value of each variable.
// It returns the number of rows written.
func (s *variableStore) Append(ctx context.Context, organizationID, deviceID uint, timestamp time.Time, values map[string]decimal.Decimal, metadata map[string]any) (int, error) {
	if len(values) == 0 {
		return 0, nil
	}

	var meta string
	if len(metadata) > 0 {
		b, err := json.Marshal(metadata)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal metadata: %w", err)
		}
		meta = string(b)
	}

	names := lo.Keys(values)
	sort.Strings(names)

	rows := make([]telemetry.VariableValue, 0, len(names))
	resolved := make([]telemetry.Variable, 0, len(names))

	for _, name := range names {
		v, err := s.ResolveOrCreate(ctx, organizationID, deviceID, name)
		if err != nil {
			return 0, err
		}

		resolved = append(resolved, v)
		rows = append(rows, telemetry.VariableValue{
			VariableID: v.ID,
			Timestamp:  timestamp,
			Value:      values[name],
			Metadata:   meta,
		})
	}

	if err := s.repo.AddValues(ctx, rows); err != nil {
		return 0, fmt.Errorf("failed to store variable values: %w", err)
	}

	logger := logging.GetLoggerFromContext(ctx)

	for _, v := range resolved {
		if v.LastValueAt != nil && v.LastValueAt.After(timestamp) {
			continue
		}

		if err := s.repo.UpdateLastValue(ctx, v.ID, values[v.Name], timestamp); err != nil {
			logger.Warn().Err(err).Str("variable", v.Name).Msg("failed to update last value")
		}
	}

	return len(rows), nil
}

func (s *variableStore) GetValues(ctx context.Context, deviceID uint, name string) ([]telemetry.VariableValue, error) {
	v, err := s.repo.GetVariable(ctx, deviceID, name)
	if err != nil {
		return nil, err
	}

	return s.repo.GetValues(ctx, v.ID)
}

func (s *variableStore) GetLatest(ctx context.Context, deviceID uint) (map[string]decimal.Decimal, error) {
	vars, err := s.repo.GetVariables(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	latest := map[string]decimal.Decimal{}
	for _, v := range vars {
		if v.LastValue.Valid {
			latest[v.Name] = v.LastValue.Decimal
		}
	}

	return latest, nil
}

var camelCaseBoundary = regexp.MustCompile(`([a-z])([A-Z])`)

// HumanizeName turns snake_case and camelCase variable names into display names,
// e.g. kw_consumption becomes "Kw Consumption" and powerFactor becomes "Power Factor".
func HumanizeName(name string) string {
	if strings.TrimSpace(name) == "" {
		return name
	}

	s := strings.ReplaceAll(name, "_", " ")
	s = camelCaseBoundary.ReplaceAllString(s, "$1 $2")

	words := strings.Fields(s)
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}

	return strings.Join(words, " ")
}
