package main

import (
	"github.com/spf13/cobra"

	"harvestcert/internal/certification/models"
	id "harvestcert/pkg/domain"
)

func newFacilityCmd(g *globals) *cobra.Command {
	var full bool
	cmd := &cobra.Command{
		Use:   "facility <facility-id>",
		Short: "List the batches of a facility in registration order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			facility := id.FacilityID(args[0])
			return g.open(cmd, func(s *session) error {
				if full {
					certs, err := s.svc.ListFacilityCertificates(s.ctx, facility)
					if err != nil {
						return err
					}
					return s.print(certs)
				}
				batches, err := s.svc.GetFacilityBatches(s.ctx, facility)
				if err != nil {
					return err
				}
				for _, b := range batches {
					if err := s.printf("%s\n", b); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&full, "certificates", false, "print full certificates")
	return cmd
}

func newCertifierCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "certifier",
		Short: "Manage certifiers (owner only)",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <identity>",
			Short: "Enable a certifier",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return g.open(cmd, func(s *session) error {
					return s.svc.AddCertifier(s.ctx, id.Identity(args[0]))
				})
			},
		},
		&cobra.Command{
			Use:   "remove <identity>",
			Short: "Disable a certifier",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return g.open(cmd, func(s *session) error {
					return s.svc.RemoveCertifier(s.ctx, id.Identity(args[0]))
				})
			},
		},
		&cobra.Command{
			Use:   "check <identity>",
			Short: "Report whether an identity is a certifier",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return g.open(cmd, func(s *session) error {
					ok, err := s.svc.IsCertifier(s.ctx, id.Identity(args[0]))
					if err != nil {
						return err
					}
					return s.printf("%t\n", ok)
				})
			},
		},
	)
	return cmd
}

func newLabCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lab",
		Short: "Manage authorized labs (owner only)",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "authorize <lab-name>",
			Short: "Authorize a lab",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return g.open(cmd, func(s *session) error {
					return s.svc.AuthorizeLab(s.ctx, id.LabName(args[0]))
				})
			},
		},
		&cobra.Command{
			Use:   "deauthorize <lab-name>",
			Short: "Withdraw a lab's authorization",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return g.open(cmd, func(s *session) error {
					return s.svc.DeauthorizeLab(s.ctx, id.LabName(args[0]))
				})
			},
		},
		&cobra.Command{
			Use:   "check <lab-name>",
			Short: "Report whether a lab is authorized",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return g.open(cmd, func(s *session) error {
					ok, err := s.svc.IsLabAuthorized(s.ctx, id.LabName(args[0]))
					if err != nil {
						return err
					}
					return s.printf("%t\n", ok)
				})
			},
		},
	)
	return cmd
}

func newParamsCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "params",
		Short: "Show or change the quality gate thresholds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return g.open(cmd, func(s *session) error {
				params, err := s.svc.GetQualityParameters(s.ctx)
				if err != nil {
					return err
				}
				return s.print(params)
			})
		},
	}

	var params models.QualityParameters
	set := &cobra.Command{
		Use:   "set",
		Short: "Replace the thresholds (owner only)",
		Long: `Replace the quality gate thresholds. Unset flags keep their current value.

Values are fixed-point x100.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return g.open(cmd, func(s *session) error {
				current, err := s.svc.GetQualityParameters(s.ctx)
				if err != nil {
					return err
				}
				f := cmd.Flags()
				if f.Changed("min-protein") {
					current.MinProtein = params.MinProtein
				}
				if f.Changed("min-phycocyanin") {
					current.MinPhycocyanin = params.MinPhycocyanin
				}
				if f.Changed("max-moisture") {
					current.MaxMoisture = params.MaxMoisture
				}
				if f.Changed("max-contaminants") {
					current.MaxContaminants = params.MaxContaminants
				}
				if err := s.svc.UpdateQualityParameters(s.ctx, current); err != nil {
					return err
				}
				return s.print(current)
			})
		},
	}
	f := set.Flags()
	f.Uint64Var(&params.MinProtein, "min-protein", 0, "minimum protein")
	f.Uint64Var(&params.MinPhycocyanin, "min-phycocyanin", 0, "minimum phycocyanin")
	f.Uint64Var(&params.MaxMoisture, "max-moisture", 0, "maximum moisture")
	f.Uint64Var(&params.MaxContaminants, "max-contaminants", 0, "maximum contaminants")
	cmd.AddCommand(set)
	return cmd
}
