package service

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"harvestcert/internal/certification/models"
	"harvestcert/internal/certification/store"
	id "harvestcert/pkg/domain"
	dErrors "harvestcert/pkg/domain-errors"
	"harvestcert/pkg/requestcontext"
)

// TelemetryReadings are the averaged, already validated sensor values for a
// batch. See models.TelemetryVerification for scaling.
type TelemetryReadings struct {
	BatchID        id.BatchID
	DeviceID       id.DeviceID
	AvgPH          uint64
	AvgTemperature uint64
	AvgLight       uint64
	FinalDensity   uint64
}

// VerifyTelemetry attaches telemetry evidence to a batch, replacing any
// previous verification. Certifiers only.
func (s *Service) VerifyTelemetry(ctx context.Context, in TelemetryReadings) (*models.TelemetryVerification, error) {
	var verification *models.TelemetryVerification
	attrs := []attribute.KeyValue{
		batchAttr(in.BatchID),
		attribute.String("harvest.device_id", string(in.DeviceID)),
	}

	var pre precheck
	if s.enforceDevices {
		pre = func(ctx context.Context, r store.Reader) error {
			if _, err := requireCertifier(ctx, r); err != nil {
				return err
			}
			c, err := loadCertificate(ctx, r, in.BatchID)
			if err != nil {
				return err
			}
			return s.requireDevice(ctx, in.DeviceID, c.FacilityID)
		}
	}

	err := s.apply(ctx, "verify_telemetry", attrs, pre, func(ctx context.Context, w store.Writer) ([]models.Event, error) {
		caller, err := requireCertifier(ctx, w.Reader)
		if err != nil {
			return nil, err
		}
		if _, err := loadCertificate(ctx, w.Reader, in.BatchID); err != nil {
			return nil, err
		}
		now := requestcontext.Now(ctx)
		v := &models.TelemetryVerification{
			BatchID:        in.BatchID,
			DeviceID:       in.DeviceID,
			AvgPH:          in.AvgPH,
			AvgTemperature: in.AvgTemperature,
			AvgLight:       in.AvgLight,
			FinalDensity:   in.FinalDensity,
			VerifiedAt:     now,
			VerifiedBy:     caller,
		}
		if err := w.PutTelemetry(ctx, v); err != nil {
			return nil, err
		}
		verification = v
		return []models.Event{models.TelemetryVerified(in.BatchID, in.DeviceID, now)}, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "telemetry verified",
		"batch_id", in.BatchID,
		"device_id", in.DeviceID,
		"caller", verification.VerifiedBy,
		"request_id", requestcontext.RequestID(ctx),
	)
	return verification, nil
}

func (s *Service) requireDevice(ctx context.Context, device id.DeviceID, facility id.FacilityID) error {
	ok, err := s.facilities.DeviceAuthorized(ctx, device, facility)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeRegistryError, "device lookup failed")
	}
	if !ok {
		return dErrors.Newf(dErrors.CodeDeviceNotAuthorized, "device %s is not authorized for facility %s", device, facility)
	}
	return nil
}
