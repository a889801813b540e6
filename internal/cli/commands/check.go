package commands

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/carrent-dev/carrent/internal/cli/auth"
)

// NewCheckCmd creates the check command
func NewCheckCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "check <path>...",
		Short: "Show whether the current session may open a path",
		Long: `Ask the gateway what it would do with a request for each path:
allow it, redirect it (and where to), or deny it.

Without a stored session the check runs as an anonymous visitor.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(opts, args)
		},
	}
}

func runCheck(opts *Options, paths []string) error {
	gw, apiClient, err := opts.gateway()
	if err != nil {
		return err
	}

	var token string
	session, err := opts.loadSession(gw)
	switch {
	case err == nil:
		token = session.Token
	case errors.Is(err, auth.ErrNotAuthenticated), errors.Is(err, auth.ErrSessionExpired):
		opts.printf("(checking as anonymous visitor)\n")
	default:
		return err
	}

	for _, p := range paths {
		decision, err := apiClient.Authorize(token, p)
		if err != nil {
			return err
		}

		line := strings.ToUpper(decision.Decision) + " " + p + " [" + decision.Class + "]"
		if decision.Location != "" {
			line += " -> " + decision.Location
		}
		if decision.Reason != "" {
			line += " (" + decision.Reason + ")"
		}
		opts.printf("%s\n", line)
	}

	if token != "" {
		opts.saveRefreshed(gw, apiClient)
	}
	return nil
}
