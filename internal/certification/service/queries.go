package service

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"

	"harvestcert/internal/certification/models"
	"harvestcert/internal/certification/store"
	id "harvestcert/pkg/domain"
	dErrors "harvestcert/pkg/domain-errors"
	"harvestcert/pkg/platform/sentinel"
)

// Queries are open to every caller.

func (s *Service) IsCertifier(ctx context.Context, who id.Identity) (bool, error) {
	var ok bool
	err := s.view(ctx, "is_certifier", nil, func(ctx context.Context, r store.Reader) (err error) {
		ok, err = r.IsCertifier(ctx, who)
		return err
	})
	return ok, err
}

func (s *Service) IsLabAuthorized(ctx context.Context, lab id.LabName) (bool, error) {
	var ok bool
	err := s.view(ctx, "is_lab_authorized", nil, func(ctx context.Context, r store.Reader) (err error) {
		ok, err = r.IsLabAuthorized(ctx, lab)
		return err
	})
	return ok, err
}

// GetCertificate returns the certificate or a BatchNotFound error.
func (s *Service) GetCertificate(ctx context.Context, batch id.BatchID) (*models.Certificate, error) {
	var cert *models.Certificate
	err := s.view(ctx, "get_certificate", []attribute.KeyValue{batchAttr(batch)}, func(ctx context.Context, r store.Reader) (err error) {
		cert, err = loadCertificate(ctx, r, batch)
		return err
	})
	return cert, err
}

// GetTelemetryVerification returns the batch's verification or a NotFound error.
func (s *Service) GetTelemetryVerification(ctx context.Context, batch id.BatchID) (*models.TelemetryVerification, error) {
	var v *models.TelemetryVerification
	err := s.view(ctx, "get_telemetry_verification", []attribute.KeyValue{batchAttr(batch)}, func(ctx context.Context, r store.Reader) (err error) {
		v, err = r.Telemetry(ctx, batch)
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Newf(dErrors.CodeNotFound, "no telemetry verification for batch %s", batch)
		}
		return err
	})
	return v, err
}

// GetFacilityBatches lists batch ids in registration order; unknown
// facilities yield an empty list.
func (s *Service) GetFacilityBatches(ctx context.Context, facility id.FacilityID) ([]id.BatchID, error) {
	var batches []id.BatchID
	err := s.view(ctx, "get_facility_batches", nil, func(ctx context.Context, r store.Reader) (err error) {
		batches, err = r.FacilityBatches(ctx, facility)
		return err
	})
	return batches, err
}

// ListFacilityCertificates returns the certificates of GetFacilityBatches
// in the same order.
func (s *Service) ListFacilityCertificates(ctx context.Context, facility id.FacilityID) ([]*models.Certificate, error) {
	var certs []*models.Certificate
	err := s.view(ctx, "list_facility_certificates", nil, func(ctx context.Context, r store.Reader) error {
		batches, err := r.FacilityBatches(ctx, facility)
		if err != nil {
			return err
		}
		certs = make([]*models.Certificate, 0, len(batches))
		for _, b := range batches {
			c, err := r.Certificate(ctx, b)
			if err != nil {
				return err
			}
			certs = append(certs, c)
		}
		return nil
	})
	return certs, err
}

func (s *Service) GetQualityParameters(ctx context.Context) (models.QualityParameters, error) {
	var p models.QualityParameters
	err := s.view(ctx, "get_quality_parameters", nil, func(ctx context.Context, r store.Reader) (err error) {
		p, err = r.QualityParameters(ctx)
		return err
	})
	return p, err
}

// GetStatistics returns the registration count and total harvested weight.
func (s *Service) GetStatistics(ctx context.Context) (models.Statistics, error) {
	var stats models.Statistics
	err := s.view(ctx, "get_statistics", nil, func(ctx context.Context, r store.Reader) (err error) {
		stats, err = r.Statistics(ctx)
		return err
	})
	return stats, err
}

// Owner returns the registry owner, if one was bootstrapped.
func (s *Service) Owner(ctx context.Context) (id.Identity, error) {
	var owner id.Identity
	err := s.view(ctx, "owner", nil, func(ctx context.Context, r store.Reader) (err error) {
		owner, err = r.Owner(ctx)
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "registry has no owner")
		}
		return err
	})
	return owner, err
}
