package handler

import (
	"time"

	"harvestcert/internal/certification/models"
	id "harvestcert/pkg/domain"
)

// CertificateResponse is the HTTP representation of a certificate.
type CertificateResponse struct {
	BatchID      string                    `json:"batch_id"`
	FacilityID   string                    `json:"facility_id"`
	HarvestedAt  time.Time                 `json:"harvested_at"`
	CertifiedAt  *time.Time                `json:"certified_at,omitempty"`
	Weight       uint64                    `json:"weight"`
	Density      uint64                    `json:"density"`
	QualityScore uint8                     `json:"quality_score"`
	Nutrition    models.NutritionalProfile `json:"nutrition"`
	Tested       bool                      `json:"tested"`
	CertifiedBy  string                    `json:"certified_by,omitempty"`
	Status       string                    `json:"status"`
	LabInfo      *models.LabInfo           `json:"lab_info,omitempty"`
	Notes        string                    `json:"notes"`
}

func FromCertificate(c *models.Certificate) *CertificateResponse {
	resp := &CertificateResponse{
		BatchID:      string(c.BatchID),
		FacilityID:   string(c.FacilityID),
		HarvestedAt:  c.HarvestedAt,
		Weight:       c.Weight,
		Density:      c.Density,
		QualityScore: c.QualityScore,
		Nutrition:    c.Nutrition,
		Tested:       c.Nutrition.IsTested(),
		CertifiedBy:  string(c.CertifiedBy),
		Status:       string(c.Status),
		LabInfo:      c.LabInfo,
		Notes:        c.Notes,
	}
	if !c.CertifiedAt.IsZero() {
		at := c.CertifiedAt
		resp.CertifiedAt = &at
	}
	return resp
}

type CertificateListResponse struct {
	FacilityID   string                 `json:"facility_id"`
	Certificates []*CertificateResponse `json:"certificates"`
}

type BatchListResponse struct {
	FacilityID string   `json:"facility_id"`
	BatchIDs   []string `json:"batch_ids"`
}

func fromBatchIDs(facility id.FacilityID, batches []id.BatchID) *BatchListResponse {
	ids := make([]string, len(batches))
	for i, b := range batches {
		ids[i] = string(b)
	}
	return &BatchListResponse{FacilityID: string(facility), BatchIDs: ids}
}

type CertifierResponse struct {
	Identity   string `json:"identity"`
	Authorized bool   `json:"authorized"`
}

type LabResponse struct {
	LabName    string `json:"lab_name"`
	Authorized bool   `json:"authorized"`
}

type StatisticsResponse struct {
	TotalCertificates uint64 `json:"total_certificates"`
	TotalWeight       uint64 `json:"total_weight"`
}

type OwnerResponse struct {
	Owner string `json:"owner"`
}
