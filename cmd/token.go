package cmd

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/streamreact/companion/internal/auth"
	"github.com/streamreact/companion/internal/config"
	"github.com/streamreact/companion/internal/domain"
)

var tokenOpts struct {
	id       string
	username string
	email    string
	role     string
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a bearer token for local testing",
	RunE:  runToken,
}

func init() {
	f := tokenCmd.Flags()
	f.StringVar(&tokenOpts.id, "id", "", "user id (random when empty)")
	f.StringVar(&tokenOpts.username, "username", "viewer", "display name")
	f.StringVar(&tokenOpts.email, "email", "", "email address")
	f.StringVar(&tokenOpts.role, "role", string(domain.RoleUser), "user or admin")
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}

	role := domain.Role(tokenOpts.role)
	if role != domain.RoleUser && role != domain.RoleAdmin {
		return fmt.Errorf("unknown role %q", tokenOpts.role)
	}
	id := tokenOpts.id
	if id == "" {
		id = uuid.NewString()
	}

	token, err := auth.NewJWTVerifier(cfg.JWTSecret, cfg.JWTTTL).Issue(domain.Identity{
		ID:       id,
		Username: tokenOpts.username,
		Email:    tokenOpts.email,
		Role:     role,
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
