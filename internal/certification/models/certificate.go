package models

import (
	"time"

	id "harvestcert/pkg/domain"
	dErrors "harvestcert/pkg/domain-errors"
)

// Certificate is the registry record of one production batch.
//
// Invariants:
//   - BatchID is unique for the registry lifetime; certificates are never deleted
//   - CertifiedAt, CertifiedBy and QualityScore are set only by a successful
//     certification and never cleared afterwards
//   - Status follows the transitions in status.go
type Certificate struct {
	BatchID      id.BatchID         `json:"batch_id"`
	FacilityID   id.FacilityID      `json:"facility_id"`
	HarvestedAt  time.Time          `json:"harvested_at"`
	CertifiedAt  time.Time          `json:"certified_at,omitzero"`
	Weight       uint64             `json:"weight"`
	Density      uint64             `json:"density"`
	QualityScore uint8              `json:"quality_score"`
	Nutrition    NutritionalProfile `json:"nutrition"`
	CertifiedBy  id.Identity        `json:"certified_by,omitempty"`
	Status       Status             `json:"status"`
	LabInfo      *LabInfo           `json:"lab_info,omitempty"`
	Notes        string             `json:"notes"`
}

// Registration carries the producer-supplied fields of a new batch.
type Registration struct {
	BatchID     id.BatchID
	FacilityID  id.FacilityID
	HarvestedAt time.Time
	Weight      uint64
	Density     uint64
	Notes       string
}

// NewCertificate builds a pending, untested certificate.
func NewCertificate(r Registration) (*Certificate, error) {
	if r.BatchID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidParameters, "batch_id is required")
	}
	return &Certificate{
		BatchID:     r.BatchID,
		FacilityID:  r.FacilityID,
		HarvestedAt: r.HarvestedAt,
		Weight:      r.Weight,
		Density:     r.Density,
		Status:      StatusPending,
		Notes:       r.Notes,
	}, nil
}

func (c *Certificate) IsCertified() bool {
	return c.Status == StatusCertified
}

// ApplyLabResults replaces the nutrition profile and records the lab.
func (c *Certificate) ApplyLabResults(profile NutritionalProfile, lab LabInfo) {
	c.Nutrition = profile
	c.LabInfo = &lab
}

// CanCertify checks the status half of a certification request.
func (c *Certificate) CanCertify() error {
	if !c.Status.AwaitsDecision() {
		return dErrors.Newf(dErrors.CodeInvalidParameters, "batch %s is %s", c.BatchID, c.Status)
	}
	return nil
}

// ApplyCertification marks the batch certified by certifier.
func (c *Certificate) ApplyCertification(certifier id.Identity, score uint8, now time.Time) {
	c.Status = StatusCertified
	c.CertifiedAt = now
	c.CertifiedBy = certifier
	c.QualityScore = score
}

// ApplyRejection marks the batch rejected. Certification fields are untouched.
func (c *Certificate) ApplyRejection() {
	c.Status = StatusRejected
}

// CanRevoke checks that only certified batches are revoked.
func (c *Certificate) CanRevoke() error {
	if !c.Status.CanTransitionTo(StatusRevoked) {
		return dErrors.Newf(dErrors.CodeInvalidParameters, "batch %s is %s, only certified batches can be revoked", c.BatchID, c.Status)
	}
	return nil
}

// ApplyRevocation revokes the batch and appends the reason to the notes.
func (c *Certificate) ApplyRevocation(reason string) {
	c.Status = StatusRevoked
	c.Notes += "; Revoked: " + reason
}
