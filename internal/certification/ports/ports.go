package ports

import (
	"context"

	"harvestcert/internal/certification/models"
	id "harvestcert/pkg/domain"
)

// FacilityRegistry answers facility and device questions for the registry.
// Implementations may be remote; failures surface as registry errors.
type FacilityRegistry interface {
	FacilityExists(ctx context.Context, facility id.FacilityID) (bool, error)
	DeviceAuthorized(ctx context.Context, device id.DeviceID, facility id.FacilityID) (bool, error)
}

// EventPublisher receives the events of a committed command, in emission
// order. It is called after commit; errors are logged, never returned to
// the caller of the command.
type EventPublisher interface {
	Publish(ctx context.Context, events []models.Event) error
}

// Outbox persists events inside the command's storage transaction. The ctx
// handed to Append carries that transaction.
type Outbox interface {
	Append(ctx context.Context, events []models.Event) error
}
