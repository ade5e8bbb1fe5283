package main

import (
	"time"

	"github.com/spf13/cobra"

	"harvestcert/internal/certification/models"
	"harvestcert/internal/certification/service"
	id "harvestcert/pkg/domain"
)

func newHarvestCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "harvest",
		Short: "Register, verify and certify production batches",
	}
	cmd.AddCommand(
		newHarvestRegisterCmd(g),
		newHarvestTelemetryCmd(g),
		newHarvestNutritionCmd(g),
		newHarvestCertifyCmd(g),
		newHarvestRevokeCmd(g),
		newHarvestShowCmd(g),
		newHarvestEvidenceCmd(g),
	)
	return cmd
}

func newHarvestRegisterCmd(g *globals) *cobra.Command {
	var (
		reg         models.Registration
		facilityID  string
		harvestedAt string
	)
	cmd := &cobra.Command{
		Use:   "register <batch-id>",
		Short: "Register a new pending batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg.BatchID = id.BatchID(args[0])
			reg.FacilityID = id.FacilityID(facilityID)
			if harvestedAt != "" {
				t, err := time.Parse(time.RFC3339, harvestedAt)
				if err != nil {
					return err
				}
				reg.HarvestedAt = t.UTC()
			}
			return g.open(cmd, func(s *session) error {
				if reg.HarvestedAt.IsZero() {
					reg.HarvestedAt = time.Now().UTC()
				}
				cert, err := s.svc.RegisterHarvest(s.ctx, reg)
				if err != nil {
					return err
				}
				return s.print(cert)
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&facilityID, "facility", "", "facility id")
	f.StringVar(&harvestedAt, "harvested-at", "", "harvest time, RFC 3339 (default: now)")
	f.Uint64Var(&reg.Weight, "weight", 0, "weight in grams")
	f.Uint64Var(&reg.Density, "density", 0, "culture density (g/L x1000)")
	f.StringVar(&reg.Notes, "notes", "", "free-form notes")
	return cmd
}

func newHarvestTelemetryCmd(g *globals) *cobra.Command {
	var (
		in     service.TelemetryReadings
		device string
	)
	cmd := &cobra.Command{
		Use:   "telemetry <batch-id>",
		Short: "Attach averaged telemetry readings to a batch",
		Long: `Attach averaged telemetry readings to a batch. Certifiers only.

Readings are fixed-point: pH and temperature x100, light in lux, density x1000.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := id.ParseDeviceID(device)
			if err != nil {
				return err
			}
			in.BatchID = id.BatchID(args[0])
			in.DeviceID = d
			return g.open(cmd, func(s *session) error {
				v, err := s.svc.VerifyTelemetry(s.ctx, in)
				if err != nil {
					return err
				}
				return s.print(v)
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&device, "device", "", "telemetry device id")
	f.Uint64Var(&in.AvgPH, "ph", 0, "average pH x100")
	f.Uint64Var(&in.AvgTemperature, "temperature", 0, "average temperature x100")
	f.Uint64Var(&in.AvgLight, "light", 0, "average light in lux")
	f.Uint64Var(&in.FinalDensity, "final-density", 0, "final density x1000")
	return cmd
}

func newHarvestNutritionCmd(g *globals) *cobra.Command {
	var (
		report service.LabReport
		lab    string
	)
	cmd := &cobra.Command{
		Use:   "nutrition <batch-id>",
		Short: "Record a lab nutrition report",
		Long: `Record a lab nutrition report. Certifiers only; the lab must be authorized.

Values are fixed-point x100 (6200 = 62.00 %).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := id.ParseLabName(lab)
			if err != nil {
				return err
			}
			report.BatchID = id.BatchID(args[0])
			report.LabName = name
			return g.open(cmd, func(s *session) error {
				cert, err := s.svc.UpdateNutrition(s.ctx, report)
				if err != nil {
					return err
				}
				return s.print(cert)
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&lab, "lab", "", "lab name")
	f.StringVar(&report.LabCertificationID, "lab-certification", "", "lab accreditation id")
	f.StringVar(&report.ReportID, "report", "", "lab report id")
	f.Uint64Var(&report.Profile.Protein, "protein", 0, "protein")
	f.Uint64Var(&report.Profile.BetaCarotene, "beta-carotene", 0, "beta carotene")
	f.Uint64Var(&report.Profile.Chlorophyll, "chlorophyll", 0, "chlorophyll")
	f.Uint64Var(&report.Profile.Phycocyanin, "phycocyanin", 0, "phycocyanin")
	f.Uint64Var(&report.Profile.Iron, "iron", 0, "iron")
	f.Uint64Var(&report.Profile.Calcium, "calcium", 0, "calcium")
	f.Uint64Var(&report.Profile.VitaminB12, "vitamin-b12", 0, "vitamin B12")
	return cmd
}

func newHarvestCertifyCmd(g *globals) *cobra.Command {
	var score uint8
	cmd := &cobra.Command{
		Use:   "certify <batch-id>",
		Short: "Run the quality gate for a batch",
		Long: `Run the quality gate for a batch. Certifiers only.

A batch that fails the gate is stored as rejected and the command exits
with an error describing the failed thresholds.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.open(cmd, func(s *session) error {
				cert, err := s.svc.CertifyHarvest(s.ctx, id.BatchID(args[0]), score)
				if err != nil {
					return err
				}
				return s.print(cert)
			})
		},
	}
	cmd.Flags().Uint8Var(&score, "score", 0, "quality score, 0 to 100")
	_ = cmd.MarkFlagRequired("score")
	return cmd
}

func newHarvestRevokeCmd(g *globals) *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "revoke <batch-id>",
		Short: "Revoke a certified batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.open(cmd, func(s *session) error {
				cert, err := s.svc.RevokeCertification(s.ctx, id.BatchID(args[0]), reason)
				if err != nil {
					return err
				}
				return s.print(cert)
			})
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "revocation reason")
	return cmd
}

func newHarvestShowCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "show <batch-id>",
		Short: "Show a batch certificate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.open(cmd, func(s *session) error {
				cert, err := s.svc.GetCertificate(s.ctx, id.BatchID(args[0]))
				if err != nil {
					return err
				}
				return s.print(cert)
			})
		},
	}
}

func newHarvestEvidenceCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "evidence <batch-id>",
		Short: "Show the telemetry verification of a batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.open(cmd, func(s *session) error {
				v, err := s.svc.GetTelemetryVerification(s.ctx, id.BatchID(args[0]))
				if err != nil {
					return err
				}
				return s.print(v)
			})
		},
	}
}
