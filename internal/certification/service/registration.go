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

// RegisterHarvest records a new pending batch. Registration is open to any
// caller; the facility must be known to the facility registry.
func (s *Service) RegisterHarvest(ctx context.Context, req models.Registration) (*models.Certificate, error) {
	var cert *models.Certificate
	attrs := []attribute.KeyValue{
		batchAttr(req.BatchID),
		attribute.String("harvest.facility_id", string(req.FacilityID)),
	}

	pre := func(ctx context.Context, r store.Reader) error {
		if err := requireUnregistered(ctx, r, req.BatchID); err != nil {
			return err
		}
		return s.requireFacility(ctx, req.FacilityID)
	}

	err := s.apply(ctx, "register_harvest", attrs, pre, func(ctx context.Context, w store.Writer) ([]models.Event, error) {
		if err := requireUnregistered(ctx, w.Reader, req.BatchID); err != nil {
			return nil, err
		}
		c, err := models.NewCertificate(req)
		if err != nil {
			return nil, err
		}
		if err := w.PutCertificate(ctx, c); err != nil {
			return nil, err
		}
		if err := w.AppendFacilityBatch(ctx, c.FacilityID, c.BatchID); err != nil {
			return nil, err
		}
		stats, err := w.Statistics(ctx)
		if err != nil {
			return nil, err
		}
		if err := stats.Record(c.Weight); err != nil {
			return nil, err
		}
		if err := w.PutStatistics(ctx, stats); err != nil {
			return nil, err
		}
		cert = c
		return []models.Event{
			models.HarvestRegistered(c.BatchID, c.FacilityID, c.Weight, requestcontext.Now(ctx)),
		}, nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.AddHarvestedWeight(cert.Weight)
	s.logger.InfoContext(ctx, "harvest registered",
		"batch_id", cert.BatchID,
		"facility_id", cert.FacilityID,
		"weight", cert.Weight,
		"caller", requestcontext.Caller(ctx),
		"request_id", requestcontext.RequestID(ctx),
	)
	return cert, nil
}

func requireUnregistered(ctx context.Context, r store.Reader, batch id.BatchID) error {
	if batch.IsNil() {
		return dErrors.New(dErrors.CodeInvalidParameters, "batch_id is required")
	}
	exists, err := r.HasCertificate(ctx, batch)
	if err != nil {
		return err
	}
	if exists {
		return dErrors.Newf(dErrors.CodeBatchAlreadyExists, "batch %s already registered", batch)
	}
	return nil
}

func (s *Service) requireFacility(ctx context.Context, facility id.FacilityID) error {
	ok, err := s.facilities.FacilityExists(ctx, facility)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeRegistryError, "facility lookup failed")
	}
	if !ok {
		return dErrors.Newf(dErrors.CodeFacilityNotFound, "facility %q not found", facility)
	}
	return nil
}
