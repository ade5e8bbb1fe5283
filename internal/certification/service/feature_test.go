package service_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/cucumber/godog"

	"harvestcert/internal/certification/models"
	"harvestcert/internal/certification/service"
	"harvestcert/internal/platform/kv"
	id "harvestcert/pkg/domain"
	dErrors "harvestcert/pkg/domain-errors"
	"harvestcert/pkg/requestcontext"
)

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: initializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
			Strict:   true,
		},
	}
	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}

type registryWorld struct {
	svc     *service.Service
	lastErr error
}

func initializeScenario(ctx *godog.ScenarioContext) {
	w := &registryWorld{}

	ctx.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		w.svc = service.New(kv.NewMemory(), service.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
		w.lastErr = nil
		return ctx, nil
	})

	ctx.Step(`^the registry is owned by "([^"]*)"$`, w.ownedBy)
	ctx.Step(`^"([^"]*)" adds certifier "([^"]*)"$`, w.addCertifier)
	ctx.Step(`^"([^"]*)" authorizes lab "([^"]*)"$`, w.authorizeLab)
	ctx.Step(`^"([^"]*)" registers batch "([^"]*)" at facility "([^"]*)" weighing (\d+) grams with density (\d+)$`, w.register)
	ctx.Step(`^"([^"]*)" verifies telemetry for "([^"]*)" from device "([^"]*)" with ph (\d+), temperature (\d+), light (\d+) and density (\d+)$`, w.verify)
	ctx.Step(`^"([^"]*)" records lab results for "([^"]*)" from "([^"]*)" with protein (\d+) and phycocyanin (\d+)$`, w.labResults)
	ctx.Step(`^"([^"]*)" certifies "([^"]*)" with score (\d+)$`, w.certify)
	ctx.Step(`^"([^"]*)" revokes "([^"]*)" because "([^"]*)"$`, w.revoke)
	ctx.Step(`^the command succeeds$`, w.succeeds)
	ctx.Step(`^the command fails with "([^"]*)"$`, w.failsWith)
	ctx.Step(`^batch "([^"]*)" has status "([^"]*)"$`, w.hasStatus)
	ctx.Step(`^batch "([^"]*)" was certified by "([^"]*)" with score (\d+)$`, w.certifiedBy)
	ctx.Step(`^the statistics report (\d+) batches weighing (\d+) grams$`, w.statistics)
}

func caller(who string) context.Context {
	return requestcontext.WithCaller(context.Background(), id.Identity(who))
}

// record keeps the first failure of a When-chain; later steps still run.
func (w *registryWorld) record(err error) {
	if w.lastErr == nil {
		w.lastErr = err
	}
}

func (w *registryWorld) ownedBy(owner string) error {
	_, err := w.svc.Bootstrap(context.Background(), id.Identity(owner))
	return err
}

func (w *registryWorld) addCertifier(owner, who string) error {
	return w.svc.AddCertifier(caller(owner), id.Identity(who))
}

func (w *registryWorld) authorizeLab(owner, lab string) error {
	return w.svc.AuthorizeLab(caller(owner), id.LabName(lab))
}

func (w *registryWorld) register(who, batch, facility string, weight, density int) error {
	_, err := w.svc.RegisterHarvest(caller(who), models.Registration{
		BatchID:    id.BatchID(batch),
		FacilityID: id.FacilityID(facility),
		Weight:     uint64(weight),
		Density:    uint64(density),
	})
	w.record(err)
	return nil
}

func (w *registryWorld) verify(who, batch, device string, ph, temp, light, density int) error {
	_, err := w.svc.VerifyTelemetry(caller(who), service.TelemetryReadings{
		BatchID:        id.BatchID(batch),
		DeviceID:       id.DeviceID(device),
		AvgPH:          uint64(ph),
		AvgTemperature: uint64(temp),
		AvgLight:       uint64(light),
		FinalDensity:   uint64(density),
	})
	w.record(err)
	return nil
}

func (w *registryWorld) labResults(who, batch, lab string, protein, phycocyanin int) error {
	_, err := w.svc.UpdateNutrition(caller(who), service.LabReport{
		BatchID:  id.BatchID(batch),
		LabName:  id.LabName(lab),
		ReportID: "R-" + batch,
		Profile:  models.NutritionalProfile{Protein: uint64(protein), Phycocyanin: uint64(phycocyanin)},
	})
	w.record(err)
	return nil
}

func (w *registryWorld) certify(who, batch string, score int) error {
	_, err := w.svc.CertifyHarvest(caller(who), id.BatchID(batch), uint8(score))
	w.record(err)
	return nil
}

func (w *registryWorld) revoke(who, batch, reason string) error {
	_, err := w.svc.RevokeCertification(caller(who), id.BatchID(batch), reason)
	w.record(err)
	return nil
}

func (w *registryWorld) succeeds() error {
	return w.lastErr
}

func (w *registryWorld) failsWith(code string) error {
	if w.lastErr == nil {
		return fmt.Errorf("expected %s, command succeeded", code)
	}
	if !dErrors.HasCode(w.lastErr, dErrors.Code(code)) {
		return fmt.Errorf("expected %s, got %v", code, w.lastErr)
	}
	return nil
}

func (w *registryWorld) hasStatus(batch, status string) error {
	cert, err := w.svc.GetCertificate(context.Background(), id.BatchID(batch))
	if err != nil {
		return err
	}
	if string(cert.Status) != status {
		return fmt.Errorf("batch %s is %s, want %s", batch, cert.Status, status)
	}
	return nil
}

func (w *registryWorld) certifiedBy(batch, who string, score int) error {
	cert, err := w.svc.GetCertificate(context.Background(), id.BatchID(batch))
	if err != nil {
		return err
	}
	if cert.CertifiedBy != id.Identity(who) || int(cert.QualityScore) != score {
		return fmt.Errorf("batch %s certified by %q with %d", batch, cert.CertifiedBy, cert.QualityScore)
	}
	if cert.CertifiedAt.IsZero() {
		return fmt.Errorf("batch %s has no certification time", batch)
	}
	return nil
}

func (w *registryWorld) statistics(count, weight int) error {
	stats, err := w.svc.GetStatistics(context.Background())
	if err != nil {
		return err
	}
	if stats.TotalCertificates != uint64(count) || stats.TotalWeight != uint64(weight) {
		return fmt.Errorf("statistics = %+v", stats)
	}
	return nil
}
