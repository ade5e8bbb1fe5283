package models

import (
	"time"

	id "harvestcert/pkg/domain"
)

// NutritionalProfile holds lab results as fixed-point integers scaled by 100
// (6200 = 62.00 %). The zero value means untested.
type NutritionalProfile struct {
	Protein      uint64 `json:"protein"`
	BetaCarotene uint64 `json:"beta_carotene"`
	Chlorophyll  uint64 `json:"chlorophyll"`
	Phycocyanin  uint64 `json:"phycocyanin"`
	Iron         uint64 `json:"iron"`
	Calcium      uint64 `json:"calcium"`
	VitaminB12   uint64 `json:"vitamin_b12"`
}

// IsTested reports whether lab results were recorded. Protein is always
// reported by accredited labs, so zero protein means no results.
func (p NutritionalProfile) IsTested() bool {
	return p.Protein != 0
}

// LabInfo identifies the lab report behind a nutrition profile.
type LabInfo struct {
	LabName            id.LabName `json:"lab_name"`
	LabCertificationID string     `json:"lab_certification_id"`
	ReportID           string     `json:"report_id"`
	TestedAt           time.Time  `json:"tested_at"`
}

// TelemetryVerification is the averaged sensor evidence attached to a batch.
// Readings are fixed-point: pH and temperature ×100, light in lux, density ×1000.
type TelemetryVerification struct {
	BatchID        id.BatchID  `json:"batch_id"`
	DeviceID       id.DeviceID `json:"device_id"`
	AvgPH          uint64      `json:"avg_ph"`
	AvgTemperature uint64      `json:"avg_temperature"`
	AvgLight       uint64      `json:"avg_light"`
	FinalDensity   uint64      `json:"final_density"`
	VerifiedAt     time.Time   `json:"verified_at"`
	VerifiedBy     id.Identity `json:"verified_by"`
}
