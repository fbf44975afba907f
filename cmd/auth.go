package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"
)

type authStatus struct {
	Authenticated bool      `json:"authenticated"`
	UserID        string    `json:"user_id,omitempty"`
	DisplayName   string    `json:"display_name,omitempty"`
	Product       string    `json:"product,omitempty"`
	ExpiresAt     time.Time `json:"expires_at,omitzero"`
	CanRefresh    bool      `json:"can_refresh"`
}

// AuthLogin runs the authorization code flow and reports the authorized account.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	defer r.close()

	client, err := r.session(ctx, cmd)
	if err != nil {
		return err
	}

	if err := client.Authenticate(ctx); err != nil {
		return err
	}
	r.logger.Info("authentication successful")

	user, err := client.User(ctx)
	if err != nil {
		r.logger.Warn("authorized but failed to fetch profile", "error", err)
		return r.writePlain("✓ Authentication successful\n")
	}
	return r.writePlain("✓ Authenticated as %s\n", displayName(user.DisplayName, user.ID))
}

// AuthStatus restores stored credentials and verifies them with the profile endpoint.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	defer r.close()

	client, err := r.session(ctx, cmd)
	if err != nil {
		return err
	}

	status := authStatus{Authenticated: client.IsAuthenticated()}
	if creds, ok := client.Credentials(); ok {
		status.ExpiresAt = creds.ExpiresAt
		status.CanRefresh = creds.RefreshToken != ""
	}
	if status.Authenticated {
		user, err := client.User(ctx)
		if err != nil {
			return fmt.Errorf("failed to fetch profile: %w", err)
		}
		status.UserID = user.ID
		status.DisplayName = user.DisplayName
		status.Product = user.Product
	}

	if cmd.Bool("json") {
		return r.writeJSON(status, cmd.Bool("pretty"))
	}

	if !status.Authenticated {
		r.writePlain("✗ Not authenticated\n")
		return r.writePlain("→ Run 'spx auth login' to authorize\n")
	}

	r.writePlain("✓ Authenticated as %s\n", displayName(status.DisplayName, status.UserID))
	if status.Product != "" {
		r.writePlain("Plan: %s\n", status.Product)
	}
	if !status.ExpiresAt.IsZero() {
		r.writePlain("Token expires: %s\n", status.ExpiresAt.Local().Format(time.RFC1123))
	}
	return r.writePlain("Refresh token: %s\n", yesNo(status.CanRefresh))
}

// AuthLogout removes credentials from memory and from the configured store.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	defer r.close()

	client, err := r.session(ctx, cmd)
	if err != nil {
		return err
	}

	if err := client.Disconnect(ctx); err != nil {
		return err
	}
	return r.writePlain("✓ Credentials removed\n")
}

func displayName(name, id string) string {
	if name == "" {
		return id
	}
	return fmt.Sprintf("%s (%s)", name, id)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
