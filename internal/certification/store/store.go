// Package store maps registry state onto the key-value store as JSON records.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"harvestcert/internal/certification/models"
	"harvestcert/internal/platform/kv"
	id "harvestcert/pkg/domain"
	"harvestcert/pkg/platform/sentinel"
)

// Reader reads registry state. Absent certificates, verifications and owner
// return sentinel.ErrNotFound; every other record has a defined default.
type Reader struct {
	kv kv.Reader
}

func NewReader(r kv.Reader) Reader {
	return Reader{kv: r}
}

func (r Reader) Certificate(ctx context.Context, batch id.BatchID) (*models.Certificate, error) {
	var c models.Certificate
	if err := r.load(ctx, certificateKey(batch), &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// HasCertificate reports whether batch was ever registered.
func (r Reader) HasCertificate(ctx context.Context, batch id.BatchID) (bool, error) {
	_, err := r.kv.Get(ctx, certificateKey(batch))
	if errors.Is(err, sentinel.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r Reader) Telemetry(ctx context.Context, batch id.BatchID) (*models.TelemetryVerification, error) {
	var v models.TelemetryVerification
	if err := r.load(ctx, telemetryKey(batch), &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (r Reader) IsCertifier(ctx context.Context, who id.Identity) (bool, error) {
	return r.flag(ctx, certifierKey(who))
}

func (r Reader) IsLabAuthorized(ctx context.Context, lab id.LabName) (bool, error) {
	return r.flag(ctx, labKey(lab))
}

// FacilityBatches returns the batches of a facility in registration order.
func (r Reader) FacilityBatches(ctx context.Context, facility id.FacilityID) ([]id.BatchID, error) {
	batches := []id.BatchID{}
	if err := r.load(ctx, facilityKey(facility), &batches); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, err
	}
	return batches, nil
}

func (r Reader) QualityParameters(ctx context.Context) (models.QualityParameters, error) {
	params := models.DefaultQualityParameters()
	if err := r.load(ctx, paramsKey, &params); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return models.QualityParameters{}, err
	}
	return params, nil
}

func (r Reader) Statistics(ctx context.Context) (models.Statistics, error) {
	var stats models.Statistics
	if err := r.load(ctx, statsKey, &stats); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return models.Statistics{}, err
	}
	return stats, nil
}

func (r Reader) Owner(ctx context.Context) (id.Identity, error) {
	var owner id.Identity
	if err := r.load(ctx, ownerKey, &owner); err != nil {
		return "", err
	}
	return owner, nil
}

func (r Reader) flag(ctx context.Context, key string) (bool, error) {
	var enabled bool
	err := r.load(ctx, key, &enabled)
	if errors.Is(err, sentinel.ErrNotFound) {
		return false, nil
	}
	return enabled, err
}

func (r Reader) load(ctx context.Context, key string, v any) error {
	raw, err := r.kv.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// Writer reads and writes registry state inside one kv transaction.
type Writer struct {
	Reader
	txn kv.Txn
}

func NewWriter(txn kv.Txn) Writer {
	return Writer{Reader: NewReader(txn), txn: txn}
}

func (w Writer) PutCertificate(ctx context.Context, c *models.Certificate) error {
	return w.save(ctx, certificateKey(c.BatchID), c)
}

func (w Writer) PutTelemetry(ctx context.Context, v *models.TelemetryVerification) error {
	return w.save(ctx, telemetryKey(v.BatchID), v)
}

// SetCertifier records the flag; disabled certifiers keep their key.
func (w Writer) SetCertifier(ctx context.Context, who id.Identity, enabled bool) error {
	return w.save(ctx, certifierKey(who), enabled)
}

func (w Writer) SetLab(ctx context.Context, lab id.LabName, enabled bool) error {
	return w.save(ctx, labKey(lab), enabled)
}

func (w Writer) AppendFacilityBatch(ctx context.Context, facility id.FacilityID, batch id.BatchID) error {
	batches, err := w.FacilityBatches(ctx, facility)
	if err != nil {
		return err
	}
	return w.save(ctx, facilityKey(facility), append(batches, batch))
}

func (w Writer) PutQualityParameters(ctx context.Context, p models.QualityParameters) error {
	return w.save(ctx, paramsKey, p)
}

func (w Writer) PutStatistics(ctx context.Context, s models.Statistics) error {
	return w.save(ctx, statsKey, s)
}

func (w Writer) PutOwner(ctx context.Context, owner id.Identity) error {
	return w.save(ctx, ownerKey, owner)
}

func (w Writer) save(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return w.txn.Put(ctx, key, raw)
}
