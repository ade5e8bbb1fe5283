package service

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"harvestcert/internal/certification/models"
	"harvestcert/internal/certification/store"
	id "harvestcert/pkg/domain"
	dErrors "harvestcert/pkg/domain-errors"
	"harvestcert/pkg/platform/sentinel"
	"harvestcert/pkg/requestcontext"
)

// CertifyHarvest runs the quality gate for a batch. Certifiers only.
//
// Checks, first failure wins:
//  1. caller is an enabled certifier
//  2. batch exists and awaits a decision (pending or rejected)
//  3. telemetry was verified
//  4. nutrition was tested
//  5. score is at most 100
//
// A batch failing the gate is persisted as rejected; the rejected
// certificate is returned together with QualityStandardsNotMet. Batches
// that are already certified or revoked are refused with InvalidParameters,
// so a certificate is never re-certified.
func (s *Service) CertifyHarvest(ctx context.Context, batch id.BatchID, score uint8) (*models.Certificate, error) {
	var (
		cert   *models.Certificate
		passed bool
	)
	attrs := []attribute.KeyValue{
		batchAttr(batch),
		attribute.Int("harvest.quality_score", int(score)),
	}

	err := s.apply(ctx, "certify_harvest", attrs, nil, func(ctx context.Context, w store.Writer) ([]models.Event, error) {
		caller, err := requireCertifier(ctx, w.Reader)
		if err != nil {
			return nil, err
		}
		c, err := loadCertificate(ctx, w.Reader, batch)
		if err != nil {
			return nil, err
		}
		if err := c.CanCertify(); err != nil {
			return nil, err
		}
		if _, err := w.Telemetry(ctx, batch); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil, dErrors.Newf(dErrors.CodeTelemetryVerificationRequired, "batch %s has no telemetry verification", batch)
			}
			return nil, err
		}
		if !c.Nutrition.IsTested() {
			return nil, dErrors.Newf(dErrors.CodeQualityStandardsNotMet, "batch %s has no lab results", batch)
		}
		if score > models.MaxQualityScore {
			return nil, dErrors.Newf(dErrors.CodeInvalidParameters, "quality score %d exceeds %d", score, models.MaxQualityScore)
		}

		params, err := w.QualityParameters(ctx)
		if err != nil {
			return nil, err
		}
		now := requestcontext.Now(ctx)
		gate := params.Evaluate(c.Nutrition, score)
		cert = c

		if !gate.Passed {
			c.ApplyRejection()
			if err := w.PutCertificate(ctx, c); err != nil {
				return nil, err
			}
			events := []models.Event{models.CertificationStatusChanged(batch, models.StatusRejected, now)}
			return events, commitThenFail(dErrors.New(dErrors.CodeQualityStandardsNotMet, strings.Join(gate.Reasons, "; ")))
		}

		c.ApplyCertification(caller, score, now)
		if err := w.PutCertificate(ctx, c); err != nil {
			return nil, err
		}
		passed = true
		return []models.Event{
			models.HarvestCertified(batch, score, caller, now),
			models.CertificationStatusChanged(batch, models.StatusCertified, now),
		}, nil
	})

	switch {
	case err == nil && passed:
		s.metrics.IncrementDecision(string(models.StatusCertified))
		s.logger.InfoContext(ctx, "harvest certified",
			"batch_id", batch,
			"quality_score", score,
			"caller", cert.CertifiedBy,
			"request_id", requestcontext.RequestID(ctx),
		)
		return cert, nil
	case cert != nil && cert.Status == models.StatusRejected && dErrors.HasCode(err, dErrors.CodeQualityStandardsNotMet):
		s.metrics.IncrementDecision(string(models.StatusRejected))
		return cert, err
	default:
		return nil, err
	}
}

// RevokeCertification revokes a certified batch. Owner or certifiers.
func (s *Service) RevokeCertification(ctx context.Context, batch id.BatchID, reason string) (*models.Certificate, error) {
	var cert *models.Certificate

	err := s.apply(ctx, "revoke_certification", []attribute.KeyValue{batchAttr(batch)}, nil, func(ctx context.Context, w store.Writer) ([]models.Event, error) {
		if _, err := requireOwnerOrCertifier(ctx, w.Reader); err != nil {
			return nil, err
		}
		c, err := loadCertificate(ctx, w.Reader, batch)
		if err != nil {
			return nil, err
		}
		if err := c.CanRevoke(); err != nil {
			return nil, err
		}
		c.ApplyRevocation(reason)
		if err := w.PutCertificate(ctx, c); err != nil {
			return nil, err
		}
		cert = c
		return []models.Event{
			models.CertificationStatusChanged(batch, models.StatusRevoked, requestcontext.Now(ctx)),
		}, nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementDecision(string(models.StatusRevoked))
	s.logger.InfoContext(ctx, "certification revoked",
		"batch_id", batch,
		"reason", reason,
		"caller", requestcontext.Caller(ctx),
		"request_id", requestcontext.RequestID(ctx),
	)
	return cert, nil
}
