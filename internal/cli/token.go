package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/domain"
	"github.com/Apurer/go-gin-donation-matcher/internal/platform/auth"
)

// TokenOptions holds flags for the token command.
type TokenOptions struct {
	OrgID  string
	Role   string
	Secret string
	TTL    time.Duration
}

// NewTokenCommand creates the token command.
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TokenOptions{}

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a development bearer token for the matching API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := opts.Secret
			if secret == "" {
				secret = os.Getenv("JWT_SECRET")
			}
			if secret == "" {
				return errors.New("no signing secret: pass --secret or set JWT_SECRET")
			}
			role, err := domain.ParseRole(opts.Role)
			if err != nil {
				return fmt.Errorf("--role: %w", err)
			}
			if role == domain.RoleSystem {
				return errors.New("--role: system tokens are not accepted by the API")
			}
			token, err := auth.IssueToken(secret, opts.OrgID, string(role), opts.TTL)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if rootOpts.Format == "json" {
				return json.NewEncoder(out).Encode(map[string]string{"token": token, "orgId": opts.OrgID, "role": string(role)})
			}
			_, err = fmt.Fprintln(out, token)
			return err
		},
	}

	cmd.Flags().StringVar(&opts.OrgID, "org", "", "organization id (required)")
	cmd.Flags().StringVar(&opts.Role, "role", "", "donor or recipient-org (required)")
	cmd.Flags().StringVar(&opts.Secret, "secret", "", "HS256 signing secret (defaults to $JWT_SECRET)")
	cmd.Flags().DurationVar(&opts.TTL, "ttl", auth.DefaultTokenExpiry, "token lifetime")
	_ = cmd.MarkFlagRequired("org")
	_ = cmd.MarkFlagRequired("role")

	return cmd
}
