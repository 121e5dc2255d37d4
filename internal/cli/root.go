// Package cli wires the command tree and maps errors to exit codes.
package cli

import (
	"context"
	"errors"
	"io"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/studioline/shootplan/internal/appctx"
	"github.com/studioline/shootplan/internal/commands"
	"github.com/studioline/shootplan/internal/config"
	"github.com/studioline/shootplan/internal/output"
	"github.com/studioline/shootplan/internal/telemetry"
	"github.com/studioline/shootplan/internal/version"
)

// NewRootCmd creates the root cobra command with every subcommand.
func NewRootCmd() *cobra.Command {
	var flags appctx.GlobalFlags

	cmd := &cobra.Command{
		Use:           "shootplan",
		Short:         "Plan studio bookings from the command line",
		Long:          "shootplan books projects, events and crews, checks who is available, and edits project briefs.",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Skip setup for help and version commands
			if cmd.Name() == "help" || cmd.Name() == "version" {
				return nil
			}

			cfg, err := config.Load(config.FlagOverrides{
				BaseURL:  flags.BaseURL,
				Company:  flags.Company,
				StateDir: flags.StateDir,
			})
			if err != nil {
				return output.ErrUsage(err.Error())
			}

			app := appctx.NewApp(cfg)
			app.Flags = flags
			app.Stdin = cmd.InOrStdin()
			app.Stdout = cmd.OutOrStdout()
			app.Stderr = cmd.ErrOrStderr()
			app.ApplyFlags()

			shutdown, err := telemetry.Setup(cmd.Context(), cfg.OTLPEndpoint)
			if err != nil {
				app.Logger.Warn("tracing disabled", "endpoint", cfg.OTLPEndpoint, "error", err)
			}
			app.Telemetry = shutdown

			cmd.SetContext(appctx.WithApp(cmd.Context(), app))
			return nil
		},
	}

	// Allow flags anywhere in the command line
	cmd.Flags().SetInterspersed(true)
	cmd.PersistentFlags().SetInterspersed(true)

	// Output format flags
	cmd.PersistentFlags().BoolVarP(&flags.JSON, "json", "j", false, "Output as JSON")
	cmd.PersistentFlags().BoolVarP(&flags.Quiet, "quiet", "q", false, "Output data only, no envelope")
	cmd.PersistentFlags().BoolVar(&flags.Styled, "styled", false, "Force styled output (ANSI colors)")
	cmd.PersistentFlags().BoolVar(&flags.IDsOnly, "ids-only", false, "Output only IDs")
	cmd.PersistentFlags().StringVar(&flags.JQ, "jq", "", "Filter JSON output with a jq expression")

	// Context flags
	cmd.PersistentFlags().StringVarP(&flags.Company, "company", "c", "", "Company ID")
	cmd.PersistentFlags().StringVar(&flags.BaseURL, "base-url", "", "API base URL")
	cmd.PersistentFlags().StringVar(&flags.StateDir, "state-dir", "", "State directory (credential file fallback)")

	// Behavior flags
	cmd.PersistentFlags().CountVarP(&flags.Verbose, "verbose", "v", "Verbose output (-v for operations, -vv for requests)")
	cmd.PersistentFlags().BoolVar(&flags.Stats, "stats", false, "Show request statistics")

	cmd.AddCommand(
		commands.NewAuthCmd(),
		commands.NewProjectCmd(),
		commands.NewEventCmd(),
		commands.NewAvailabilityCmd(),
		commands.NewSectionsCmd(),
		commands.NewRolesCmd(),
		commands.NewConfigCmd(),
		commands.NewVersionCmd(),
	)

	return cmd
}

// Execute runs the CLI and returns the process exit code.
func Execute(ctx context.Context) int {
	return run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	// Use ExecuteC to get the executed command (for correct context access)
	executedCmd, err := cmd.ExecuteContextC(ctx)

	var app *appctx.App
	if executedCmd != nil {
		app = appctx.FromContext(executedCmd.Context())
	}
	if app != nil {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if ferr := app.Close(flushCtx); ferr != nil {
			app.Logger.Debug("telemetry flush failed", "error", ferr)
		}
		cancel()
	}
	if err == nil {
		return output.ExitOK
	}

	err = transformCobraError(err)
	apiErr := output.AsError(err)
	if app != nil {
		_ = app.Err(err)
		return apiErr.ExitCode()
	}

	// Fallback: output error directly (app not available, e.g., during setup)
	pf := cmd.PersistentFlags()
	format := output.FormatAuto
	quiet, _ := pf.GetBool("quiet")
	idsOnly, _ := pf.GetBool("ids-only")
	styled, _ := pf.GetBool("styled")
	jsonFlag, _ := pf.GetBool("json")
	switch {
	case quiet:
		format = output.FormatQuiet
	case idsOnly:
		format = output.FormatIDs
	case jsonFlag:
		format = output.FormatJSON
	case styled:
		format = output.FormatStyled
	}
	writer := output.New(output.Options{Format: format, Writer: stdout})
	_ = writer.Err(err)
	return apiErr.ExitCode()
}

var (
	shorthandPattern = regexp.MustCompile(`unknown shorthand flag: '.' in (-\w)`)
	requiredPattern  = regexp.MustCompile(`required flag\(s\) "([\w-]+)"`)
)

// transformCobraError turns cobra's parse errors into usage errors with
// messages in the CLI's own voice.
func transformCobraError(err error) error {
	var oe *output.Error
	if errors.As(err, &oe) {
		return err
	}
	msg := err.Error()

	// "flag needs an argument: --FLAG" -> "--FLAG requires a value"
	if flag, ok := strings.CutPrefix(msg, "flag needs an argument: "); ok {
		return output.ErrUsage(flag + " requires a value")
	}

	if flag, ok := strings.CutPrefix(msg, "unknown flag: "); ok {
		return output.ErrUsage("Unknown option: " + flag)
	}

	if strings.HasPrefix(msg, "unknown shorthand flag: ") {
		if matches := shorthandPattern.FindStringSubmatch(msg); len(matches) > 1 {
			return output.ErrUsage("Unknown option: " + matches[1])
		}
	}

	if strings.HasPrefix(msg, "unknown command ") {
		return output.ErrUsageHint(msg, "Run shootplan --help for the command list")
	}

	if strings.Contains(msg, "invalid argument") {
		return output.ErrUsage(msg)
	}

	// "accepts 1 arg(s), received 0" -> "ID required"
	if strings.Contains(msg, "arg(s), received 0") {
		return output.ErrUsage("ID required")
	}
	if strings.Contains(msg, "arg(s), received") {
		return output.ErrUsage(msg)
	}

	if strings.HasPrefix(msg, "required flag(s) ") {
		if matches := requiredPattern.FindStringSubmatch(msg); len(matches) > 1 {
			return output.ErrUsage("--" + matches[1] + " is required")
		}
	}

	if strings.HasPrefix(msg, "if any flags in the group") {
		return output.ErrUsage(msg)
	}

	return err
}
