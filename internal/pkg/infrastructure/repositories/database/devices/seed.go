package devices

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/diwise/iot-telemetry-core/internal/pkg/infrastructure/logging"
)

// Seed registers devices from a semicolon separated file with the columns
// externalId;organization;name;location;sensorType. Devices that already exist are left untouched.
func Seed(ctx context.Context, repo DeviceRepository, reader io.Reader) error {
	r := csv.NewReader(reader)
	r.Comma = ';'
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return err
	}

	records, err := getRecordsFromRows(rows)
	if err != nil {
		return err
	}

	log := logging.GetLoggerFromContext(ctx)
	log.Info().Msgf("loaded %d devices from file", len(records))

	for _, record := range records {
		org, err := repo.GetOrCreateOrganization(ctx, record.organization)
		if err != nil {
			return err
		}

		_, err = repo.GetDeviceByExternalID(ctx, record.externalID, org.ID)
		if errors.Is(err, ErrDeviceNotFound) {
			device := record.Device(org.ID)
			if err := repo.Save(ctx, &device); err != nil {
				log.Error().Err(err).Str("externalId", record.externalID).Msg("could not seed device")
			}
		} else if err != nil {
			log.Error().Err(err).Str("externalId", record.externalID).Msg("unable to check if device exists")
		}
	}

	return nil
}

type deviceRecord struct {
	externalID   string
	organization string
	name         string
	location     string
	sensorType   string
}

func (dr deviceRecord) Device(organizationID uint) Device {
	return Device{
		ExternalID:     dr.externalID,
		OrganizationID: organizationID,
		Name:           dr.name,
		Location:       dr.location,
		SensorType:     dr.sensorType,
		Status:         StatusUnknown,
	}
}

func getRecordsFromRows(rows [][]string) ([]deviceRecord, error) {
	var records []deviceRecord

	for i, row := range rows {
		if i == 0 && len(row) > 0 && strings.EqualFold(row[0], "externalId") {
			continue
		}

		if len(row) < 3 {
			return nil, fmt.Errorf("too few columns on line %d", i+1)
		}

		dr := deviceRecord{
			externalID:   strings.TrimSpace(row[0]),
			organization: strings.TrimSpace(row[1]),
			name:         strings.TrimSpace(row[2]),
		}

		if dr.externalID == "" || dr.organization == "" {
			return nil, fmt.Errorf("missing external id or organization on line %d", i+1)
		}

		if len(row) > 3 {
			dr.location = strings.TrimSpace(row[3])
		}
		if len(row) > 4 {
			dr.sensorType = strings.TrimSpace(row[4])
		}

		records = append(records, dr)
	}

	return records, nil
}
