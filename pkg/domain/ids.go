// Package domain holds the identifier primitives of the harvest registry.
//
// Identifiers are opaque strings chosen by the producer (batch, facility,
// device and lab names) or supplied by the host (caller identity). The parse
// functions are used at trust boundaries; internal code passes the typed values.
package domain

import (
	"strings"
	"unicode"

	dErrors "harvestcert/pkg/domain-errors"
)

// MaxIDLength bounds every identifier accepted at a trust boundary.
const MaxIDLength = 128

type (
	// Identity is the opaque caller identity supplied by the host.
	Identity string
	// BatchID uniquely identifies a production batch for the registry lifetime.
	BatchID string
	// FacilityID identifies a production facility.
	FacilityID string
	// DeviceID identifies a telemetry device.
	DeviceID string
	// LabName identifies a testing laboratory.
	LabName string
)

func (i Identity) String() string { return string(i) }
func (b BatchID) String() string { return string(b) }
func (f FacilityID) String() string { return string(f) }
func (d DeviceID) String() string { return string(d) }
func (l LabName) String() string { return string(l) }

func (i Identity) IsNil() bool { return i == "" }
func (b BatchID) IsNil() bool { return b == "" }
func (f FacilityID) IsNil() bool { return f == "" }
func (d DeviceID) IsNil() bool { return d == "" }
func (l LabName) IsNil() bool { return l == "" }

func ParseIdentity(s string) (Identity, error) {
	v, err := parse(s, "identity")
	return Identity(v), err
}

func ParseBatchID(s string) (BatchID, error) {
	v, err := parse(s, "batch_id")
	return BatchID(v), err
}

func ParseFacilityID(s string) (FacilityID, error) {
	v, err := parse(s, "facility_id")
	return FacilityID(v), err
}

func ParseDeviceID(s string) (DeviceID, error) {
	v, err := parse(s, "device_id")
	return DeviceID(v), err
}

func ParseLabName(s string) (LabName, error) {
	v, err := parse(s, "lab_name")
	return LabName(v), err
}

func parse(s, field string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "%s is required", field)
	}
	if len(s) > MaxIDLength {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "%s must be at most %d characters", field, MaxIDLength)
	}
	for _, r := range s {
		if unicode.IsControl(r) {
			return "", dErrors.Newf(dErrors.CodeInvalidInput, "%s contains control characters", field)
		}
	}
	return s, nil
}
