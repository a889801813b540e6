package commands

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/carrent-dev/carrent/internal/cli/auth"
)

// NewLogoutCmd creates the logout command
func NewLogoutCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogout(opts)
		},
	}
}

func runLogout(opts *Options) error {
	gw, apiClient, err := opts.gateway()
	if err != nil {
		return err
	}

	session, err := opts.loadSession(gw)
	switch {
	case errors.Is(err, auth.ErrNotAuthenticated):
		opts.printf("Not logged in to %s\n", gw.URL)
		return nil
	case errors.Is(err, auth.ErrSessionExpired):
		opts.printf("Session for %s had already expired and was removed\n", gw.URL)
		return nil
	case err != nil:
		return err
	}

	// Sessions are stateless, so forgetting the token is what counts
	if err := apiClient.Logout(session.Token); err != nil {
		opts.printf("Warning: %v\n", err)
	}

	if err := opts.Store.Delete(gw.URL); err != nil {
		return err
	}

	opts.printf("✓ Logged out of %s\n", gw.URL)
	return nil
}
