package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/studioline/shootplan/internal/auth"
	"github.com/studioline/shootplan/internal/output"
	"github.com/studioline/shootplan/internal/tui"
)

// NewAuthCmd creates the auth command group.
func NewAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage authentication",
		Long:  "Store, remove and inspect the API token for the configured base URL.",
	}

	cmd.AddCommand(
		newAuthLoginCmd(),
		newAuthLogoutCmd(),
		newAuthStatusCmd(),
	)

	return cmd
}

func newAuthLoginCmd() *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store an API token",
		Long: "Store an API token for the configured base URL. The token is kept in the " +
			"system keyring, or in a locked file under the state directory when no keyring is available.",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}

			token = strings.TrimSpace(token)
			if token == "" {
				if !app.IsInteractive() {
					return output.ErrUsageHint("Token required", "Pass --token or set "+auth.TokenEnv)
				}
				if token, err = tui.Password("API token"); err != nil {
					return err
				}
			}

			creds, err := app.Auth.Login(token)
			if err != nil {
				return err
			}

			result := map[string]any{
				"status": "logged_in",
				"origin": app.Auth.Origin(),
			}
			summary := "Logged in to " + app.Auth.Origin()
			if creds.Subject != "" {
				result["subject"] = creds.Subject
				summary += " as " + creds.Subject
			}
			if creds.ExpiresAt > 0 {
				result["expires_at"] = creds.ExpiresAt
			}
			return app.OK(result, output.WithSummary(summary))
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "API token (prompted for when omitted)")

	return cmd
}

func newAuthLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove stored credentials",
		Long:  "Remove stored authentication credentials for the current origin.",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}

			if err := app.Auth.Logout(); err != nil {
				return err
			}

			return app.OK(map[string]string{
				"status": "logged_out",
			}, output.WithSummary("Successfully logged out"))
		},
	}
}

func newAuthStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show authentication status",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}

			st := app.Auth.Status()
			var summary string
			switch {
			case st.Expired:
				summary = "Token expired at " + st.ExpiresAt.Local().Format("2006-01-02 15:04")
			case !st.Authenticated:
				summary = "Not logged in"
			case st.Subject != "":
				summary = fmt.Sprintf("Logged in as %s (%s)", st.Subject, st.Source)
			default:
				summary = fmt.Sprintf("Logged in (%s)", st.Source)
			}

			opts := []output.ResponseOption{output.WithSummary(summary)}
			if !st.Authenticated {
				opts = append(opts, output.WithBreadcrumbs(output.Breadcrumb{
					Action:      "login",
					Cmd:         "shootplan auth login --token <token>",
					Description: "Store a new token",
				}))
			}
			return app.OK(st, opts...)
		},
	}
}
