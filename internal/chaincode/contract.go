// Package chaincode exposes the certification registry as a Hyperledger
// Fabric smart contract.
//
// Each transaction builds a registry over the proposal's world state. The
// caller is the submitting client's MSP and certificate common name, the
// clock is the proposal timestamp, and committed events are emitted as a
// single chaincode event.
package chaincode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/hyperledger/fabric-contract-api-go/contractapi"

	"harvestcert/internal/certification/models"
	"harvestcert/internal/certification/service"
	"harvestcert/internal/platform/kv/fabrickv"
	id "harvestcert/pkg/domain"
	dErrors "harvestcert/pkg/domain-errors"
	"harvestcert/pkg/requestcontext"
)

// EventName is the chaincode event carrying a transaction's registry events.
const EventName = "HarvestRegistryEvents"

// RegistryContract is the harvest certification contract.
type RegistryContract struct {
	contractapi.Contract

	logger *slog.Logger
}

func NewRegistryContract(logger *slog.Logger) *RegistryContract {
	c := &RegistryContract{logger: logger}
	c.Name = "harvestcert"
	c.Info.Title = "Harvest certification registry"
	c.Info.Version = "1.0.0"
	return c
}

// Decision is the result of CertifyHarvest. A rejection is a result, not an
// error, so the rejected status is committed.
type Decision struct {
	BatchID string        `json:"batch_id"`
	Status  models.Status `json:"status"`
	Reason  string        `json:"reason,omitempty"`
}

// InitLedger records the invoking client as registry owner. Later calls
// leave the owner unchanged and return it.
func (c *RegistryContract) InitLedger(ctx contractapi.TransactionContextInterface) (string, error) {
	var owner id.Identity
	err := c.invoke(ctx, func(ctx context.Context, svc *service.Service) (err error) {
		owner, err = svc.Bootstrap(ctx, requestcontext.Caller(ctx))
		return err
	})
	return string(owner), err
}

// RegisterHarvest records a new pending batch. harvestedAt is unix seconds.
func (c *RegistryContract) RegisterHarvest(ctx contractapi.TransactionContextInterface, batchID, facilityID string, harvestedAt int64, weight, density uint64, notes string) (string, error) {
	var cert *models.Certificate
	err := c.invoke(ctx, func(ctx context.Context, svc *service.Service) (err error) {
		cert, err = svc.RegisterHarvest(ctx, models.Registration{
			BatchID:     id.BatchID(batchID),
			FacilityID:  id.FacilityID(facilityID),
			HarvestedAt: time.Unix(harvestedAt, 0).UTC(),
			Weight:      weight,
			Density:     density,
			Notes:       notes,
		})
		return err
	})
	if err != nil {
		return "", err
	}
	return marshal(cert)
}

func (c *RegistryContract) VerifyTelemetry(ctx contractapi.TransactionContextInterface, batchID, deviceID string, avgPH, avgTemperature, avgLight, finalDensity uint64) (string, error) {
	device, err := id.ParseDeviceID(deviceID)
	if err != nil {
		return "", err
	}
	var v *models.TelemetryVerification
	err = c.invoke(ctx, func(ctx context.Context, svc *service.Service) (err error) {
		v, err = svc.VerifyTelemetry(ctx, service.TelemetryReadings{
			BatchID:        id.BatchID(batchID),
			DeviceID:       device,
			AvgPH:          avgPH,
			AvgTemperature: avgTemperature,
			AvgLight:       avgLight,
			FinalDensity:   finalDensity,
		})
		return err
	})
	if err != nil {
		return "", err
	}
	return marshal(v)
}

// UpdateNutrition takes the profile as a JSON object (see
// models.NutritionalProfile).
func (c *RegistryContract) UpdateNutrition(ctx contractapi.TransactionContextInterface, batchID, labName, labCertificationID, reportID, profileJSON string) (string, error) {
	lab, err := id.ParseLabName(labName)
	if err != nil {
		return "", err
	}
	var profile models.NutritionalProfile
	if err := json.Unmarshal([]byte(profileJSON), &profile); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInvalidParameters, "nutrition profile is not valid JSON")
	}
	var cert *models.Certificate
	err = c.invoke(ctx, func(ctx context.Context, svc *service.Service) (err error) {
		cert, err = svc.UpdateNutrition(ctx, service.LabReport{
			BatchID:            id.BatchID(batchID),
			LabName:            lab,
			LabCertificationID: labCertificationID,
			ReportID:           reportID,
			Profile:            profile,
		})
		return err
	})
	if err != nil {
		return "", err
	}
	return marshal(cert)
}

func (c *RegistryContract) CertifyHarvest(ctx contractapi.TransactionContextInterface, batchID string, qualityScore int) (string, error) {
	if qualityScore < 0 || qualityScore > math.MaxUint8 {
		return "", dErrors.New(dErrors.CodeInvalidParameters, "quality score must be between 0 and 100")
	}
	decision := Decision{BatchID: batchID}
	err := c.invoke(ctx, func(ctx context.Context, svc *service.Service) error {
		cert, err := svc.CertifyHarvest(ctx, id.BatchID(batchID), uint8(qualityScore))
		switch {
		case err == nil:
			decision.Status = cert.Status
		case cert != nil && cert.Status == models.StatusRejected && dErrors.HasCode(err, dErrors.CodeQualityStandardsNotMet):
			// Stub reads do not see this transaction's writes; trust the
			// returned certificate.
			decision.Status = models.StatusRejected
			decision.Reason = message(err)
		default:
			return err
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return marshal(decision)
}

func (c *RegistryContract) RevokeCertification(ctx contractapi.TransactionContextInterface, batchID, reason string) (string, error) {
	var cert *models.Certificate
	err := c.invoke(ctx, func(ctx context.Context, svc *service.Service) (err error) {
		cert, err = svc.RevokeCertification(ctx, id.BatchID(batchID), reason)
		return err
	})
	if err != nil {
		return "", err
	}
	return marshal(cert)
}

func (c *RegistryContract) AddCertifier(ctx contractapi.TransactionContextInterface, identity string) error {
	return c.invoke(ctx, func(ctx context.Context, svc *service.Service) error {
		return svc.AddCertifier(ctx, id.Identity(identity))
	})
}

func (c *RegistryContract) RemoveCertifier(ctx contractapi.TransactionContextInterface, identity string) error {
	return c.invoke(ctx, func(ctx context.Context, svc *service.Service) error {
		return svc.RemoveCertifier(ctx, id.Identity(identity))
	})
}

func (c *RegistryContract) AuthorizeLab(ctx contractapi.TransactionContextInterface, labName string) error {
	return c.invoke(ctx, func(ctx context.Context, svc *service.Service) error {
		return svc.AuthorizeLab(ctx, id.LabName(labName))
	})
}

func (c *RegistryContract) DeauthorizeLab(ctx contractapi.TransactionContextInterface, labName string) error {
	return c.invoke(ctx, func(ctx context.Context, svc *service.Service) error {
		return svc.DeauthorizeLab(ctx, id.LabName(labName))
	})
}

// UpdateQualityParameters takes the thresholds as a JSON object (see
// models.QualityParameters).
func (c *RegistryContract) UpdateQualityParameters(ctx contractapi.TransactionContextInterface, paramsJSON string) error {
	var params models.QualityParameters
	if err := json.Unmarshal([]byte(paramsJSON), &params); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvalidParameters, "quality parameters are not valid JSON")
	}
	return c.invoke(ctx, func(ctx context.Context, svc *service.Service) error {
		return svc.UpdateQualityParameters(ctx, params)
	})
}

func (c *RegistryContract) IsCertifier(ctx contractapi.TransactionContextInterface, identity string) (bool, error) {
	var ok bool
	err := c.invoke(ctx, func(ctx context.Context, svc *service.Service) (err error) {
		ok, err = svc.IsCertifier(ctx, id.Identity(identity))
		return err
	})
	return ok, err
}

func (c *RegistryContract) IsLabAuthorized(ctx contractapi.TransactionContextInterface, labName string) (bool, error) {
	var ok bool
	err := c.invoke(ctx, func(ctx context.Context, svc *service.Service) (err error) {
		ok, err = svc.IsLabAuthorized(ctx, id.LabName(labName))
		return err
	})
	return ok, err
}

func (c *RegistryContract) GetCertificate(ctx contractapi.TransactionContextInterface, batchID string) (string, error) {
	var cert *models.Certificate
	err := c.invoke(ctx, func(ctx context.Context, svc *service.Service) (err error) {
		cert, err = svc.GetCertificate(ctx, id.BatchID(batchID))
		return err
	})
	if err != nil {
		return "", err
	}
	return marshal(cert)
}

func (c *RegistryContract) GetTelemetryVerification(ctx contractapi.TransactionContextInterface, batchID string) (string, error) {
	var v *models.TelemetryVerification
	err := c.invoke(ctx, func(ctx context.Context, svc *service.Service) (err error) {
		v, err = svc.GetTelemetryVerification(ctx, id.BatchID(batchID))
		return err
	})
	if err != nil {
		return "", err
	}
	return marshal(v)
}

func (c *RegistryContract) GetFacilityBatches(ctx contractapi.TransactionContextInterface, facilityID string) ([]string, error) {
	var batches []id.BatchID
	err := c.invoke(ctx, func(ctx context.Context, svc *service.Service) (err error) {
		batches, err = svc.GetFacilityBatches(ctx, id.FacilityID(facilityID))
		return err
	})
	if err != nil {
		return nil, err
	}
	out := make([]string, len(batches))
	for i, b := range batches {
		out[i] = string(b)
	}
	return out, nil
}

func (c *RegistryContract) GetQualityParameters(ctx contractapi.TransactionContextInterface) (string, error) {
	var params models.QualityParameters
	err := c.invoke(ctx, func(ctx context.Context, svc *service.Service) (err error) {
		params, err = svc.GetQualityParameters(ctx)
		return err
	})
	if err != nil {
		return "", err
	}
	return marshal(params)
}

func (c *RegistryContract) GetStatistics(ctx contractapi.TransactionContextInterface) (string, error) {
	var stats models.Statistics
	err := c.invoke(ctx, func(ctx context.Context, svc *service.Service) (err error) {
		stats, err = svc.GetStatistics(ctx)
		return err
	})
	if err != nil {
		return "", err
	}
	return marshal(stats)
}

func (c *RegistryContract) GetOwner(ctx contractapi.TransactionContextInterface) (string, error) {
	var owner id.Identity
	err := c.invoke(ctx, func(ctx context.Context, svc *service.Service) (err error) {
		owner, err = svc.Owner(ctx)
		return err
	})
	return string(owner), err
}

// invoke runs fn against a registry bound to this proposal.
func (c *RegistryContract) invoke(tctx contractapi.TransactionContextInterface, fn func(ctx context.Context, svc *service.Service) error) error {
	stub := tctx.GetStub()
	caller, err := callerIdentity(tctx)
	if err != nil {
		return err
	}
	ts, err := stub.GetTxTimestamp()
	if err != nil {
		return fmt.Errorf("read proposal timestamp: %w", err)
	}

	ctx := context.Background()
	ctx = requestcontext.WithCaller(ctx, caller)
	ctx = requestcontext.WithTime(ctx, ts.AsTime().UTC())
	ctx = requestcontext.WithRequestID(ctx, stub.GetTxID())

	svc := service.New(fabrickv.New(stub),
		service.WithLogger(c.logger),
		service.WithPublisher(&emitter{stub: stub}),
	)
	return fn(ctx, svc)
}

// callerIdentity names the submitting client as "<mspid>/<common name>".
func callerIdentity(tctx contractapi.TransactionContextInterface) (id.Identity, error) {
	ci := tctx.GetClientIdentity()
	msp, err := ci.GetMSPID()
	if err != nil {
		return "", fmt.Errorf("read client MSP: %w", err)
	}
	cert, err := ci.GetX509Certificate()
	if err != nil {
		return "", fmt.Errorf("read client certificate: %w", err)
	}
	if cert == nil {
		return "", dErrors.New(dErrors.CodeUnauthorized, "client certificate required")
	}
	return id.ParseIdentity(msp + "/" + cert.Subject.CommonName)
}

// eventStub is the part of the chaincode stub the emitter needs.
type eventStub interface {
	GetTxID() string
	SetEvent(name string, payload []byte) error
}

// emitter sets the transaction's chaincode event. Fabric keeps one event per
// transaction, so all events of a command travel together. Event ids are
// derived from the transaction id so every endorser produces the same payload.
type emitter struct {
	stub eventStub
}

func (e *emitter) Publish(_ context.Context, events []models.Event) error {
	txID := e.stub.GetTxID()
	out := make([]models.Event, len(events))
	for i, ev := range events {
		ev.ID = uuid.NewSHA1(uuid.NameSpaceOID, fmt.Appendf(nil, "%s/%d", txID, i))
		out[i] = ev
	}
	payload, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("marshal chaincode event: %w", err)
	}
	return e.stub.SetEvent(EventName, payload)
}

func marshal(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal result: %w", err)
	}
	return string(raw), nil
}

func message(err error) string {
	var de *dErrors.Error
	if errors.As(err, &de) {
		return de.Message
	}
	return err.Error()
}
