package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/staybridge/booking-confirmation/internal/utils"
	"github.com/staybridge/booking-confirmation/pkg/jwt"
)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue partner API tokens",
	}
	cmd.AddCommand(newTokenIssueCmd())
	return cmd
}

func newTokenIssueCmd() *cobra.Command {
	var (
		partnerID string
		scopes    []string
		ttl       time.Duration
	)

	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Sign a token for a partner (uses JWT_SECRET and JWT_ISSUER)",
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := os.Getenv("JWT_SECRET")
			if secret == "" {
				return fmt.Errorf("JWT_SECRET is not set")
			}
			issuer := os.Getenv("JWT_ISSUER")
			if issuer == "" {
				issuer = "booking-confirmation"
			}

			for _, s := range scopes {
				if s != jwt.ScopeBookingsWrite && s != jwt.ScopeBookingsRead {
					return fmt.Errorf("unknown scope %q (valid: %s, %s)", s, jwt.ScopeBookingsWrite, jwt.ScopeBookingsRead)
				}
			}

			token, err := jwt.NewService(secret, issuer, ttl).GenerateToken(partnerID, scopes, ttl)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "# partner=%s scopes=%s expires=%s\n",
				partnerID, strings.Join(scopes, ","), time.Now().Add(ttl).UTC().Format(time.RFC3339))
			fmt.Fprintln(out, token)
			return nil
		},
	}

	cmd.Flags().StringVar(&partnerID, "partner", "", "partner identifier (required)")
	cmd.Flags().StringSliceVar(&scopes, "scopes", []string{jwt.ScopeBookingsWrite, jwt.ScopeBookingsRead}, "granted scopes")
	cmd.Flags().DurationVar(&ttl, "ttl", 30*24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("partner")

	return cmd
}

func newSecretCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Generate secrets",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "generate",
		Short: "Print a new JWT_SECRET value",
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := utils.GenerateJWTSecret()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "JWT_SECRET=%s\n", secret)
			return nil
		},
	})
	return cmd
}
