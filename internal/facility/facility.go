// Package facility is the facility and device directory consulted by the
// certification registry.
//
// Directory keeps facilities and telemetry devices in the same key-value store
// as the registry. NonEmptyCheck is the permissive stand-in used when no
// directory is deployed: any non-empty facility exists and every device is
// accepted.
package facility

import (
	"context"
	"time"

	id "harvestcert/pkg/domain"
)

// DeviceStatus is the lifecycle of a telemetry device.
type DeviceStatus string

const (
	DeviceRegistered     DeviceStatus = "registered"
	DeviceAuthorized     DeviceStatus = "authorized"
	DeviceSuspended      DeviceStatus = "suspended"
	DeviceDecommissioned DeviceStatus = "decommissioned"
)

func (s DeviceStatus) IsValid() bool {
	switch s {
	case DeviceRegistered, DeviceAuthorized, DeviceSuspended, DeviceDecommissioned:
		return true
	}
	return false
}

// Facility is a registered production site.
type Facility struct {
	ID           id.FacilityID `json:"id"`
	Name         string        `json:"name"`
	Owner        id.Identity   `json:"owner"`
	RegisteredAt time.Time     `json:"registered_at"`
}

// Device is a telemetry device bound to one facility.
type Device struct {
	ID           id.DeviceID   `json:"id"`
	FacilityID   id.FacilityID `json:"facility_id"`
	Status       DeviceStatus  `json:"status"`
	RegisteredAt time.Time     `json:"registered_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// NonEmptyCheck treats every non-empty facility id as known and authorizes
// every device.
type NonEmptyCheck struct{}

func (NonEmptyCheck) FacilityExists(_ context.Context, facility id.FacilityID) (bool, error) {
	return !facility.IsNil(), nil
}

func (NonEmptyCheck) DeviceAuthorized(context.Context, id.DeviceID, id.FacilityID) (bool, error) {
	return true, nil
}
