package models

import (
	"fmt"
	"math"

	dErrors "harvestcert/pkg/domain-errors"
)

const (
	// MinPassingScore is the lowest quality score that can be certified.
	MinPassingScore uint8 = 60
	// MaxQualityScore bounds the score scale.
	MaxQualityScore uint8 = 100
	// maxPercent is 100.00 % in fixed-point ×100.
	maxPercent uint64 = 10000
)

// QualityParameters are the owner-tunable thresholds of the quality gate.
// MaxMoisture and MaxContaminants are recorded but not evaluated by the gate.
type QualityParameters struct {
	MinProtein      uint64 `json:"min_protein"`
	MinPhycocyanin  uint64 `json:"min_phycocyanin"`
	MaxMoisture     uint64 `json:"max_moisture"`
	MaxContaminants uint64 `json:"max_contaminants"`
}

// DefaultQualityParameters returns 60.00 % protein, 15.00 mg/kg phycocyanin,
// 7.00 % moisture and 0.50 ppb contaminants.
func DefaultQualityParameters() QualityParameters {
	return QualityParameters{
		MinProtein:      6000,
		MinPhycocyanin:  1500,
		MaxMoisture:     700,
		MaxContaminants: 50,
	}
}

// Validate rejects percentages above 100 %.
func (p QualityParameters) Validate() error {
	if p.MinProtein > maxPercent {
		return dErrors.New(dErrors.CodeInvalidParameters, "min_protein exceeds 100%")
	}
	if p.MaxMoisture > maxPercent {
		return dErrors.New(dErrors.CodeInvalidParameters, "max_moisture exceeds 100%")
	}
	return nil
}

// GateResult is the outcome of the quality gate.
type GateResult struct {
	Passed  bool
	Reasons []string
}

// Evaluate applies the gate to a tested profile and a certifier score.
func (p QualityParameters) Evaluate(n NutritionalProfile, score uint8) GateResult {
	var reasons []string
	if n.Protein < p.MinProtein {
		reasons = append(reasons, fmt.Sprintf("protein %d below minimum %d", n.Protein, p.MinProtein))
	}
	if n.Phycocyanin < p.MinPhycocyanin {
		reasons = append(reasons, fmt.Sprintf("phycocyanin %d below minimum %d", n.Phycocyanin, p.MinPhycocyanin))
	}
	if score < MinPassingScore {
		reasons = append(reasons, fmt.Sprintf("quality score %d below %d", score, MinPassingScore))
	}
	return GateResult{Passed: len(reasons) == 0, Reasons: reasons}
}

// Statistics are the registry-wide aggregates. They only grow.
type Statistics struct {
	TotalCertificates uint64 `json:"total_certificates"`
	TotalWeight       uint64 `json:"total_weight"`
}

// Record adds a registered batch. A weight that would overflow the running
// total is refused and leaves s unchanged.
func (s *Statistics) Record(weight uint64) error {
	if weight > math.MaxUint64-s.TotalWeight {
		return dErrors.Newf(dErrors.CodeInvalidParameters, "weight %d overflows registry total %d", weight, s.TotalWeight)
	}
	s.TotalCertificates++
	s.TotalWeight += weight
	return nil
}
