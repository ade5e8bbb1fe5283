package facility

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"harvestcert/internal/platform/kv"
	id "harvestcert/pkg/domain"
	dErrors "harvestcert/pkg/domain-errors"
	"harvestcert/pkg/platform/sentinel"
	"harvestcert/pkg/requestcontext"
)

const (
	facilityRecordPrefix = "FACREG_"
	deviceRecordPrefix   = "DEVICE_"
)

// Directory stores facilities and devices.
//
// Facilities are owned by the identity that registered them. Devices are
// registered and managed by the facility owner or the directory admin; a
// device registered by the facility owner is authorized immediately.
type Directory struct {
	kv     kv.Store
	admin  id.Identity
	logger *slog.Logger
}

// Option configures a Directory.
type Option func(*Directory)

// WithAdmin sets the identity allowed to manage devices of any facility.
func WithAdmin(admin id.Identity) Option {
	return func(d *Directory) {
		d.admin = admin
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(d *Directory) {
		d.logger = logger
	}
}

func NewDirectory(store kv.Store, opts ...Option) *Directory {
	d := &Directory{kv: store, logger: slog.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// RegisterFacility records a facility owned by the caller.
func (d *Directory) RegisterFacility(ctx context.Context, facilityID id.FacilityID, name string) (*Facility, error) {
	caller := requestcontext.Caller(ctx)
	if caller.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller identity required")
	}
	if facilityID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidParameters, "facility_id is required")
	}

	f := &Facility{
		ID:           facilityID,
		Name:         name,
		Owner:        caller,
		RegisteredAt: requestcontext.Now(ctx),
	}
	err := d.kv.Update(ctx, func(ctx context.Context, txn kv.Txn) error {
		var existing Facility
		err := load(ctx, txn, facilityRecordPrefix+string(facilityID), &existing)
		if err == nil {
			return dErrors.Newf(dErrors.CodeFacilityAlreadyExists, "facility %s already exists", facilityID)
		}
		if !errors.Is(err, sentinel.ErrNotFound) {
			return err
		}
		return save(ctx, txn, facilityRecordPrefix+string(facilityID), f)
	})
	if err != nil {
		return nil, wrap(err, "register facility")
	}
	d.logger.InfoContext(ctx, "facility registered",
		"facility_id", facilityID,
		"owner", caller,
		"request_id", requestcontext.RequestID(ctx),
	)
	return f, nil
}

// RegisterDevice binds a new device to a facility.
func (d *Directory) RegisterDevice(ctx context.Context, deviceID id.DeviceID, facilityID id.FacilityID) (*Device, error) {
	caller := requestcontext.Caller(ctx)
	if deviceID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidParameters, "device_id is required")
	}

	var device *Device
	err := d.kv.Update(ctx, func(ctx context.Context, txn kv.Txn) error {
		var existing Device
		err := load(ctx, txn, deviceRecordPrefix+string(deviceID), &existing)
		if err == nil {
			return dErrors.Newf(dErrors.CodeDeviceAlreadyExists, "device %s already exists", deviceID)
		}
		if !errors.Is(err, sentinel.ErrNotFound) {
			return err
		}

		f, err := d.facility(ctx, txn, facilityID)
		if err != nil {
			return err
		}
		if caller.IsNil() || (caller != f.Owner && caller != d.admin) {
			return dErrors.New(dErrors.CodeUnauthorized, "only the facility owner may register devices")
		}

		now := requestcontext.Now(ctx)
		device = &Device{
			ID:           deviceID,
			FacilityID:   facilityID,
			Status:       DeviceRegistered,
			RegisteredAt: now,
			UpdatedAt:    now,
		}
		if caller == f.Owner {
			device.Status = DeviceAuthorized
		}
		return save(ctx, txn, deviceRecordPrefix+string(deviceID), device)
	})
	if err != nil {
		return nil, wrap(err, "register device")
	}
	d.logger.InfoContext(ctx, "device registered",
		"device_id", deviceID,
		"facility_id", facilityID,
		"status", device.Status,
	)
	return device, nil
}

// SetDeviceStatus changes a device's status.
func (d *Directory) SetDeviceStatus(ctx context.Context, deviceID id.DeviceID, status DeviceStatus) (*Device, error) {
	if !status.IsValid() {
		return nil, dErrors.Newf(dErrors.CodeInvalidParameters, "unknown device status %q", status)
	}
	caller := requestcontext.Caller(ctx)

	var device Device
	err := d.kv.Update(ctx, func(ctx context.Context, txn kv.Txn) error {
		if err := load(ctx, txn, deviceRecordPrefix+string(deviceID), &device); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.Newf(dErrors.CodeDeviceNotFound, "device %s not found", deviceID)
			}
			return err
		}
		f, err := d.facility(ctx, txn, device.FacilityID)
		if err != nil {
			return err
		}
		if caller.IsNil() || (caller != f.Owner && caller != d.admin) {
			return dErrors.New(dErrors.CodeUnauthorized, "only the facility owner may change device status")
		}
		device.Status = status
		device.UpdatedAt = requestcontext.Now(ctx)
		return save(ctx, txn, deviceRecordPrefix+string(deviceID), &device)
	})
	if err != nil {
		return nil, wrap(err, "set device status")
	}
	d.logger.InfoContext(ctx, "device status changed",
		"device_id", deviceID,
		"status", status,
	)
	return &device, nil
}

func (d *Directory) Facility(ctx context.Context, facilityID id.FacilityID) (*Facility, error) {
	f, err := d.facility(ctx, d.kv, facilityID)
	if err != nil {
		return nil, wrap(err, "get facility")
	}
	return f, nil
}

func (d *Directory) Device(ctx context.Context, deviceID id.DeviceID) (*Device, error) {
	var device Device
	if err := load(ctx, d.kv, deviceRecordPrefix+string(deviceID), &device); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeDeviceNotFound, "device %s not found", deviceID)
		}
		return nil, wrap(err, "get device")
	}
	return &device, nil
}

// FacilityExists implements the registry's facility port.
func (d *Directory) FacilityExists(ctx context.Context, facilityID id.FacilityID) (bool, error) {
	_, err := d.kv.Get(ctx, facilityRecordPrefix+string(facilityID))
	if errors.Is(err, sentinel.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup facility %s: %w", facilityID, err)
	}
	return true, nil
}

// DeviceAuthorized reports whether device is bound to facility and authorized.
func (d *Directory) DeviceAuthorized(ctx context.Context, deviceID id.DeviceID, facilityID id.FacilityID) (bool, error) {
	var device Device
	err := load(ctx, d.kv, deviceRecordPrefix+string(deviceID), &device)
	if errors.Is(err, sentinel.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup device %s: %w", deviceID, err)
	}
	return device.FacilityID == facilityID && device.Status == DeviceAuthorized, nil
}

func (d *Directory) facility(ctx context.Context, r kv.Reader, facilityID id.FacilityID) (*Facility, error) {
	var f Facility
	if err := load(ctx, r, facilityRecordPrefix+string(facilityID), &f); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeFacilityNotFound, "facility %s not found", facilityID)
		}
		return nil, err
	}
	return &f, nil
}

func load(ctx context.Context, r kv.Reader, key string, v any) error {
	raw, err := r.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func save(ctx context.Context, txn kv.Txn, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return txn.Put(ctx, key, raw)
}

func wrap(err error, op string) error {
	if _, ok := dErrors.CodeOf(err); ok {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, op)
}
