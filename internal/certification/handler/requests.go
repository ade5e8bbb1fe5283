package handler

import (
	"math"
	"strings"
	"time"

	"harvestcert/internal/certification/models"
	"harvestcert/internal/facility"
	id "harvestcert/pkg/domain"
	dErrors "harvestcert/pkg/domain-errors"
)

const maxNotesLength = 2048

// RegisterHarvestRequest is the body of POST /harvests.
type RegisterHarvestRequest struct {
	BatchID     string    `json:"batch_id"`
	FacilityID  string    `json:"facility_id"`
	HarvestedAt time.Time `json:"harvested_at"`
	Weight      uint64    `json:"weight"`
	Density     uint64    `json:"density"`
	Notes       string    `json:"notes"`
}

// Validate leaves an empty batch_id to the registry, which reports it as
// invalid parameters.
func (r *RegisterHarvestRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Notes) > maxNotesLength {
		return dErrors.Newf(dErrors.CodeValidation, "notes must be at most %d characters", maxNotesLength)
	}
	r.BatchID = strings.TrimSpace(r.BatchID)
	r.FacilityID = strings.TrimSpace(r.FacilityID)
	if r.BatchID != "" {
		if _, err := id.ParseBatchID(r.BatchID); err != nil {
			return err
		}
	}
	if r.FacilityID != "" {
		if _, err := id.ParseFacilityID(r.FacilityID); err != nil {
			return err
		}
	}
	return nil
}

func (r *RegisterHarvestRequest) Registration() models.Registration {
	return models.Registration{
		BatchID:     id.BatchID(r.BatchID),
		FacilityID:  id.FacilityID(r.FacilityID),
		HarvestedAt: r.HarvestedAt,
		Weight:      r.Weight,
		Density:     r.Density,
		Notes:       r.Notes,
	}
}

// TelemetryRequest is the body of POST /harvests/{batchID}/telemetry.
type TelemetryRequest struct {
	DeviceID       string `json:"device_id"`
	AvgPH          uint64 `json:"avg_ph"`
	AvgTemperature uint64 `json:"avg_temperature"`
	AvgLight       uint64 `json:"avg_light"`
	FinalDensity   uint64 `json:"final_density"`

	deviceID id.DeviceID
}

func (r *TelemetryRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	device, err := id.ParseDeviceID(r.DeviceID)
	if err != nil {
		return err
	}
	r.deviceID = device
	return nil
}

// NutritionRequest is the body of PUT /harvests/{batchID}/nutrition.
type NutritionRequest struct {
	LabName            string                    `json:"lab_name"`
	LabCertificationID string                    `json:"lab_certification_id"`
	ReportID           string                    `json:"report_id"`
	Nutrition          models.NutritionalProfile `json:"nutrition"`

	labName id.LabName
}

func (r *NutritionRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	lab, err := id.ParseLabName(r.LabName)
	if err != nil {
		return err
	}
	r.labName = lab
	r.LabCertificationID = strings.TrimSpace(r.LabCertificationID)
	r.ReportID = strings.TrimSpace(r.ReportID)
	if len(r.LabCertificationID) > id.MaxIDLength || len(r.ReportID) > id.MaxIDLength {
		return dErrors.Newf(dErrors.CodeValidation, "lab identifiers must be at most %d characters", id.MaxIDLength)
	}
	return nil
}

// CertifyRequest is the body of POST /harvests/{batchID}/certify. Scores
// above 100 are rejected by the registry, not here.
type CertifyRequest struct {
	QualityScore int `json:"quality_score"`
}

func (r *CertifyRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.QualityScore < 0 || r.QualityScore > math.MaxUint8 {
		return dErrors.New(dErrors.CodeInvalidParameters, "quality_score must be between 0 and 100")
	}
	return nil
}

func (r *CertifyRequest) Score() uint8 {
	return uint8(r.QualityScore)
}

// RevokeRequest is the body of POST /harvests/{batchID}/revoke.
type RevokeRequest struct {
	Reason string `json:"reason"`
}

func (r *RevokeRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Reason = strings.TrimSpace(r.Reason)
	if len(r.Reason) > maxNotesLength {
		return dErrors.Newf(dErrors.CodeValidation, "reason must be at most %d characters", maxNotesLength)
	}
	return nil
}

// QualityParametersRequest is the body of PUT /admin/quality-parameters.
type QualityParametersRequest struct {
	MinProtein      uint64 `json:"min_protein"`
	MinPhycocyanin  uint64 `json:"min_phycocyanin"`
	MaxMoisture     uint64 `json:"max_moisture"`
	MaxContaminants uint64 `json:"max_contaminants"`
}

func (r *QualityParametersRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	return nil
}

func (r *QualityParametersRequest) Parameters() models.QualityParameters {
	return models.QualityParameters{
		MinProtein:      r.MinProtein,
		MinPhycocyanin:  r.MinPhycocyanin,
		MaxMoisture:     r.MaxMoisture,
		MaxContaminants: r.MaxContaminants,
	}
}

// RegisterFacilityRequest is the body of POST /facilities.
type RegisterFacilityRequest struct {
	FacilityID string `json:"facility_id"`
	Name       string `json:"name"`

	facilityID id.FacilityID
}

func (r *RegisterFacilityRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	facilityID, err := id.ParseFacilityID(r.FacilityID)
	if err != nil {
		return err
	}
	r.facilityID = facilityID
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	return nil
}

// RegisterDeviceRequest is the body of POST /facilities/{facilityID}/devices.
type RegisterDeviceRequest struct {
	DeviceID string `json:"device_id"`

	deviceID id.DeviceID
}

func (r *RegisterDeviceRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	device, err := id.ParseDeviceID(r.DeviceID)
	if err != nil {
		return err
	}
	r.deviceID = device
	return nil
}

// DeviceStatusRequest is the body of PUT /devices/{deviceID}/status.
type DeviceStatusRequest struct {
	Status string `json:"status"`
}

func (r *DeviceStatusRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if !facility.DeviceStatus(r.Status).IsValid() {
		return dErrors.Newf(dErrors.CodeValidation, "unknown device status %q", r.Status)
	}
	return nil
}
