package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"harvestcert/internal/certification/service"
	"harvestcert/internal/platform/config"
	"harvestcert/internal/platform/kv/sqlkv"
	"harvestcert/internal/platform/logger"
	id "harvestcert/pkg/domain"
	"harvestcert/pkg/requestcontext"
)

// globals are the persistent flags shared by every command.
type globals struct {
	sqlitePath  string
	postgresURL string
	caller      string
	logLevel    string
}

func newRootCmd() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:   "certctl",
		Short: "Operate a harvest certification registry",
		Long: `Operate a harvest certification registry directly on its store.

Commands act as the identity given with --as. The store is a SQLite file
unless --postgres is set.

Examples:
  # Claim an empty registry
  certctl init --owner alice --as alice

  # Register and certify a batch
  certctl harvest register BATCH001 --facility FAC001 --weight 5000 --density 2500
  certctl harvest certify BATCH001 --score 85 --as bob`,
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&g.sqlitePath, "db", envOr("HARVESTCERT_SQLITE_PATH", "harvestcert.db"), "SQLite database file")
	flags.StringVar(&g.postgresURL, "postgres", os.Getenv("HARVESTCERT_POSTGRES_URL"), "Postgres URL (overrides --db)")
	flags.StringVar(&g.caller, "as", os.Getenv("USER"), "caller identity")
	flags.StringVar(&g.logLevel, "log-level", "warn", "log level")

	root.AddCommand(
		newInitCmd(g),
		newHarvestCmd(g),
		newFacilityCmd(g),
		newCertifierCmd(g),
		newLabCmd(g),
		newParamsCmd(g),
		newStatsCmd(g),
		newOwnerCmd(g),
		newTokenCmd(),
	)
	return root
}

// session is an open registry acting for the --as identity.
type session struct {
	svc *service.Service
	ctx context.Context
	out io.Writer
}

// open connects to the store and runs fn against the registry.
func (g *globals) open(cmd *cobra.Command, fn func(s *session) error) error {
	log, err := logger.NewWithWriter(cmd.ErrOrStderr(), config.Log{Level: g.logLevel, Format: "text"})
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	var store *sqlkv.Store
	if g.postgresURL != "" {
		store, err = sqlkv.OpenPostgres(ctx, g.postgresURL)
	} else {
		store, err = sqlkv.OpenSQLite(ctx, g.sqlitePath)
	}
	if err != nil {
		return err
	}
	defer store.Close()

	if g.caller != "" {
		caller, err := id.ParseIdentity(g.caller)
		if err != nil {
			return err
		}
		ctx = requestcontext.WithCaller(ctx, caller)
	}
	ctx = requestcontext.WithTime(ctx, time.Now().UTC())

	return fn(&session{
		svc: service.New(store, service.WithLogger(log)),
		ctx: ctx,
		out: cmd.OutOrStdout(),
	})
}

func (s *session) print(v any) error {
	enc := json.NewEncoder(s.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (s *session) printf(format string, args ...any) error {
	_, err := fmt.Fprintf(s.out, format, args...)
	return err
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func newInitCmd(g *globals) *cobra.Command {
	var owner string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Record the registry owner",
		Long:  `Record the registry owner. A registry that already has an owner keeps it.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return g.open(cmd, func(s *session) error {
				who, err := id.ParseIdentity(owner)
				if err != nil {
					return err
				}
				effective, err := s.svc.Bootstrap(s.ctx, who)
				if err != nil {
					return err
				}
				return s.printf("owner: %s\n", effective)
			})
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "owner identity")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}

func newOwnerCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "owner",
		Short: "Show the registry owner",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return g.open(cmd, func(s *session) error {
				owner, err := s.svc.Owner(s.ctx)
				if err != nil {
					return err
				}
				return s.printf("%s\n", owner)
			})
		},
	}
}

func newStatsCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show registry totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return g.open(cmd, func(s *session) error {
				stats, err := s.svc.GetStatistics(s.ctx)
				if err != nil {
					return err
				}
				return s.print(stats)
			})
		},
	}
}
