package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/upb/recipe-rag/middleware"
)

// NewTokenCmd creates the admin token command.
func NewTokenCmd() *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an admin JWT for the /admin endpoints",
		Long: `Sign a short-lived admin token with ADMIN_JWT_SECRET.

Example:
  curl -X POST -H "Authorization: Bearer $(ragctl token)" localhost:8000/admin/reindex`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			if cfg.Admin.JWTSecret == "" {
				return errors.New("ADMIN_JWT_SECRET is not set")
			}
			if ttl <= 0 {
				return fmt.Errorf("--ttl must be positive, got %s", ttl)
			}

			token, err := middleware.IssueToken(cfg.Admin.JWTSecret, cfg.Admin.JWTIssuer, subject, middleware.RoleAdmin, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "ragctl", "Token subject recorded in admin logs")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "Token lifetime")
	return cmd
}
