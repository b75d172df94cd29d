package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/attendance-session-service/internal/di"
	"github.com/sandeepkv93/attendance-session-service/internal/domain"
	"github.com/sandeepkv93/attendance-session-service/internal/repository"
	"github.com/sandeepkv93/attendance-session-service/internal/security"
)

type tokenOptions struct {
	email string
	name  string
	role  string
	ttl   time.Duration
}

// newTokenCommand provisions a user record when needed and prints an access
// token for it. It stands in for the external identity provider in local
// setups.
func newTokenCommand(opts *options) *cobra.Command {
	topts := &tokenOptions{}
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access token for a user, creating the user if missing",
		RunE: func(cmd *cobra.Command, _ []string) error {
			role := domain.Role(strings.ToLower(strings.TrimSpace(topts.role)))
			if !role.Valid() {
				return fmt.Errorf("role must be admin or standard, got %q", topts.role)
			}
			email := strings.ToLower(strings.TrimSpace(topts.email))
			if email == "" {
				return errors.New("--email is required")
			}
			cfg, logger, err := loadConfig(opts)
			if err != nil {
				return err
			}
			core, err := di.InitializeCore(cfg, logger)
			if err != nil {
				return err
			}
			defer core.Stop()

			ctx := cmd.Context()
			user, err := core.Users.FindByEmail(ctx, email)
			switch {
			case errors.Is(err, repository.ErrUserNotFound):
				name := strings.TrimSpace(topts.name)
				if name == "" {
					name = email
				}
				user = &domain.User{Email: email, Name: name, Role: role}
				if err := core.Users.Create(ctx, user); err != nil {
					return fmt.Errorf("create user: %w", err)
				}
				logger.Info("user created", "user_id", user.ID, "role", role)
			case err != nil:
				return err
			case user.Role != role:
				return fmt.Errorf("user %s already exists with role %s", email, user.Role)
			}

			ttl := topts.ttl
			if ttl <= 0 {
				ttl = cfg.JWTAccessTTL
			}
			token, err := security.NewJWTManager(cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTAccessSecret).SignAccessToken(user.ID, user.Role, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&topts.email, "email", "", "user email")
	cmd.Flags().StringVar(&topts.name, "name", "", "display name used when the user is created")
	cmd.Flags().StringVar(&topts.role, "role", string(domain.RoleStandard), "admin or standard")
	cmd.Flags().DurationVar(&topts.ttl, "ttl", 0, "token lifetime, defaults to JWT_ACCESS_TTL")
	return cmd
}
