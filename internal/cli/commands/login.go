package commands

import (
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/carrent-dev/carrent/internal/cli/auth"
)

// NewLoginCmd creates the login command
func NewLoginCmd(opts *Options) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to a CarRent gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(opts, email, password)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address (or set CARRENT_EMAIL)")
	cmd.Flags().StringVar(&password, "password", "", "Password (or set CARRENT_PASSWORD, will prompt if not provided)")

	return cmd
}

func runLogin(opts *Options, email, password string) error {
	// Check for environment variables (useful for CI/CD)
	if email == "" {
		email = os.Getenv("CARRENT_EMAIL")
	}
	if password == "" {
		password = os.Getenv("CARRENT_PASSWORD")
	}

	if email == "" {
		return fmt.Errorf("email is required (use --email flag or CARRENT_EMAIL env var)")
	}

	gw, apiClient, err := opts.gateway()
	if err != nil {
		return err
	}

	// Prompt for password if not provided via flag or env var
	if password == "" {
		if !term.IsTerminal(int(syscall.Stdin)) {
			return fmt.Errorf("password is required in non-interactive mode (use --password flag or CARRENT_PASSWORD env var)")
		}
		fmt.Print("Password: ")
		bytePassword, err := term.ReadPassword(int(syscall.Stdin))
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		password = string(bytePassword)
		fmt.Println() // New line after password input
	}

	opts.printf("Logging in to %s (%s)...\n", gw.Alias, gw.URL)

	session, token, err := apiClient.Login(email, password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	if err := opts.Store.Save(gw.URL, &auth.Session{Token: token, ExpiresAt: session.ExpiresAt}); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	opts.printf("✓ Login successful!\n")
	if session.User != nil {
		opts.printf("  User: %s (%s)\n", session.User.Name, session.User.Email)
		opts.printf("  Role: %s\n", session.User.Role)
	}
	if session.Redirect != "" {
		opts.printf("  Home: %s\n", session.Redirect)
	}

	return nil
}
