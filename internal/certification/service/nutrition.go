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

// LabReport is a nutrition analysis from an authorized lab.
type LabReport struct {
	BatchID            id.BatchID
	LabName            id.LabName
	LabCertificationID string
	ReportID           string
	Profile            models.NutritionalProfile
}

// UpdateNutrition replaces a batch's nutrition profile with a lab report.
// The certification status is unchanged. Certifiers only.
func (s *Service) UpdateNutrition(ctx context.Context, report LabReport) (*models.Certificate, error) {
	var cert *models.Certificate
	attrs := []attribute.KeyValue{
		batchAttr(report.BatchID),
		attribute.String("harvest.lab", string(report.LabName)),
	}

	err := s.apply(ctx, "update_nutrition", attrs, nil, func(ctx context.Context, w store.Writer) ([]models.Event, error) {
		if _, err := requireCertifier(ctx, w.Reader); err != nil {
			return nil, err
		}
		c, err := loadCertificate(ctx, w.Reader, report.BatchID)
		if err != nil {
			return nil, err
		}
		authorized, err := w.IsLabAuthorized(ctx, report.LabName)
		if err != nil {
			return nil, err
		}
		if !authorized {
			return nil, dErrors.Newf(dErrors.CodeLabNotAuthorized, "lab %q is not authorized", report.LabName)
		}

		c.ApplyLabResults(report.Profile, models.LabInfo{
			LabName:            report.LabName,
			LabCertificationID: report.LabCertificationID,
			ReportID:           report.ReportID,
			TestedAt:           requestcontext.Now(ctx),
		})
		if err := w.PutCertificate(ctx, c); err != nil {
			return nil, err
		}
		cert = c
		return nil, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "nutrition updated",
		"batch_id", report.BatchID,
		"lab", report.LabName,
		"report_id", report.ReportID,
		"request_id", requestcontext.RequestID(ctx),
	)
	return cert, nil
}
