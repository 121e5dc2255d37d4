package commands

import (
	"github.com/spf13/cobra"

	"github.com/studioline/shootplan/internal/config"
	"github.com/studioline/shootplan/internal/output"
)

// NewConfigCmd creates the config command group.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
		Long: "Configuration is layered: flags, then SHOOTPLAN_* environment variables, then .env, " +
			"then .shootplan/config.json, then " + config.GlobalConfigDir() + "/config.json.",
	}
	cmd.AddCommand(newConfigShowCmd())
	return cmd
}

// configEntry is one resolved setting.
type configEntry struct {
	Key    string `json:"key"`
	Value  string `json:"value"`
	Source string `json:"source"`
}

func configEntries(cfg *config.Config) []configEntry {
	values := []struct{ key, value string }{
		{"base_url", cfg.BaseURL},
		{"company_id", cfg.CompanyID},
		{"state_dir", cfg.StateDir},
		{"format", cfg.Format},
		{"timeout", cfg.Timeout.String()},
		{"locale", cfg.Locale},
		{"log_level", cfg.LogLevel},
		{"otlp_endpoint", cfg.OTLPEndpoint},
	}
	out := make([]configEntry, len(values))
	for i, v := range values {
		out[i] = configEntry{Key: v.key, Value: v.value, Source: cfg.Source(v.key)}
	}
	return out
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show resolved configuration and where each value came from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			return app.OK(configEntries(app.Config), output.WithSummary("Configuration"))
		},
	}
}
