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

// AddCertifier enables who as a certifier. Owner only.
func (s *Service) AddCertifier(ctx context.Context, who id.Identity) error {
	return s.setCertifier(ctx, "add_certifier", who, true)
}

// RemoveCertifier disables who. The entry stays recorded as disabled.
func (s *Service) RemoveCertifier(ctx context.Context, who id.Identity) error {
	return s.setCertifier(ctx, "remove_certifier", who, false)
}

// AuthorizeLab enables lab for nutrition reports. Owner only.
func (s *Service) AuthorizeLab(ctx context.Context, lab id.LabName) error {
	return s.setLab(ctx, "authorize_lab", lab, true)
}

// DeauthorizeLab disables lab. The entry stays recorded as disabled.
func (s *Service) DeauthorizeLab(ctx context.Context, lab id.LabName) error {
	return s.setLab(ctx, "deauthorize_lab", lab, false)
}

// UpdateQualityParameters replaces the quality gate thresholds. Owner only.
func (s *Service) UpdateQualityParameters(ctx context.Context, params models.QualityParameters) error {
	err := s.apply(ctx, "update_quality_parameters", nil, nil, func(ctx context.Context, w store.Writer) ([]models.Event, error) {
		if _, err := requireOwner(ctx, w.Reader); err != nil {
			return nil, err
		}
		if err := params.Validate(); err != nil {
			return nil, err
		}
		return nil, w.PutQualityParameters(ctx, params)
	})
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "quality parameters updated",
		"min_protein", params.MinProtein,
		"min_phycocyanin", params.MinPhycocyanin,
		"max_moisture", params.MaxMoisture,
		"max_contaminants", params.MaxContaminants,
		"request_id", requestcontext.RequestID(ctx),
	)
	return nil
}

func (s *Service) setCertifier(ctx context.Context, command string, who id.Identity, enabled bool) error {
	attrs := []attribute.KeyValue{attribute.String("harvest.certifier", string(who))}
	err := s.apply(ctx, command, attrs, nil, func(ctx context.Context, w store.Writer) ([]models.Event, error) {
		if _, err := requireOwner(ctx, w.Reader); err != nil {
			return nil, err
		}
		if who.IsNil() {
			return nil, dErrors.New(dErrors.CodeInvalidParameters, "certifier identity is required")
		}
		return nil, w.SetCertifier(ctx, who, enabled)
	})
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "certifier updated",
		"certifier", who,
		"enabled", enabled,
		"request_id", requestcontext.RequestID(ctx),
	)
	return nil
}

func (s *Service) setLab(ctx context.Context, command string, lab id.LabName, enabled bool) error {
	attrs := []attribute.KeyValue{attribute.String("harvest.lab", string(lab))}
	err := s.apply(ctx, command, attrs, nil, func(ctx context.Context, w store.Writer) ([]models.Event, error) {
		if _, err := requireOwner(ctx, w.Reader); err != nil {
			return nil, err
		}
		if lab.IsNil() {
			return nil, dErrors.New(dErrors.CodeInvalidParameters, "lab name is required")
		}
		return nil, w.SetLab(ctx, lab, enabled)
	})
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "lab authorization updated",
		"lab", lab,
		"enabled", enabled,
		"request_id", requestcontext.RequestID(ctx),
	)
	return nil
}
