package models

import (
	"time"

	"github.com/google/uuid"

	id "harvestcert/pkg/domain"
)

// EventType names a registry notification.
type EventType string

const (
	EventHarvestRegistered          EventType = "harvest_registered"
	EventHarvestCertified           EventType = "harvest_certified"
	EventCertificationStatusChanged EventType = "certification_status_changed"
	EventTelemetryVerified          EventType = "telemetry_verified"
)

// Event is emitted for committed state only. Fields not relevant to the
// type are left zero.
type Event struct {
	ID         uuid.UUID     `json:"id"`
	Type       EventType     `json:"type"`
	BatchID    id.BatchID    `json:"batch_id"`
	FacilityID id.FacilityID `json:"facility_id,omitempty"`
	Weight     uint64        `json:"weight,omitempty"`
	DeviceID   id.DeviceID   `json:"device_id,omitempty"`
	Score      uint8         `json:"quality_score,omitempty"`
	Certifier  id.Identity   `json:"certifier,omitempty"`
	Status     Status        `json:"status,omitempty"`
	OccurredAt time.Time     `json:"occurred_at"`
	RequestID  string        `json:"request_id,omitempty"`
}

func newEvent(t EventType, batch id.BatchID, now time.Time) Event {
	return Event{ID: uuid.New(), Type: t, BatchID: batch, OccurredAt: now}
}

func HarvestRegistered(batch id.BatchID, facility id.FacilityID, weight uint64, now time.Time) Event {
	e := newEvent(EventHarvestRegistered, batch, now)
	e.FacilityID = facility
	e.Weight = weight
	return e
}

func HarvestCertified(batch id.BatchID, score uint8, certifier id.Identity, now time.Time) Event {
	e := newEvent(EventHarvestCertified, batch, now)
	e.Score = score
	e.Certifier = certifier
	return e
}

func CertificationStatusChanged(batch id.BatchID, status Status, now time.Time) Event {
	e := newEvent(EventCertificationStatusChanged, batch, now)
	e.Status = status
	return e
}

func TelemetryVerified(batch id.BatchID, device id.DeviceID, now time.Time) Event {
	e := newEvent(EventTelemetryVerified, batch, now)
	e.DeviceID = device
	return e
}
