package commands

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/carrent-dev/carrent/internal/cli/client"
)

// NewWhoamiCmd creates the whoami command
func NewWhoamiCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWhoami(opts)
		},
	}
}

func runWhoami(opts *Options) error {
	gw, apiClient, err := opts.gateway()
	if err != nil {
		return err
	}

	stored, err := opts.loadSession(gw)
	if err != nil {
		return err
	}

	session, err := apiClient.Session(stored.Token)
	if err != nil {
		if errors.Is(err, client.ErrUnauthorized) {
			_ = opts.Store.Delete(gw.URL)
		}
		return err
	}
	opts.saveRefreshed(gw, apiClient)

	opts.printf("Gateway: %s\n", gw.URL)
	opts.printf("User:    %s (%s)\n", session.User.Name, session.User.Email)
	opts.printf("Role:    %s\n", session.User.Role)
	if !session.ExpiresAt.IsZero() {
		opts.printf("Expires: %s\n", session.ExpiresAt.Local().Format(time.RFC1123))
	}
	return nil
}
