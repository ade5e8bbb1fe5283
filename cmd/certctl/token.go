package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"harvestcert/internal/platform/identity"
	id "harvestcert/pkg/domain"
)

func newTokenCmd() *cobra.Command {
	var (
		subject  string
		key      string
		issuer   string
		audience string
		ttl      time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the HTTP API",
		Long: `Issue an HS256 bearer token accepted by the server's command routes.

The signing key, issuer and audience must match the server configuration.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			who, err := id.ParseIdentity(subject)
			if err != nil {
				return err
			}
			if key == "" {
				return fmt.Errorf("--signing-key or HARVESTCERT_JWT_SIGNING_KEY is required")
			}
			token, err := identity.NewService(key, issuer, audience).Issue(who, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&subject, "subject", "", "caller identity carried by the token")
	f.StringVar(&key, "signing-key", os.Getenv("HARVESTCERT_JWT_SIGNING_KEY"), "HMAC signing key")
	f.StringVar(&issuer, "issuer", envOr("HARVESTCERT_JWT_ISSUER", "harvestcert"), "token issuer")
	f.StringVar(&audience, "audience", envOr("HARVESTCERT_JWT_AUDIENCE", "harvestcert-api"), "token audience")
	f.DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}
