// Package commands implements the CLI commands.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/studioline/shootplan/internal/appctx"
	"github.com/studioline/shootplan/internal/builder"
	"github.com/studioline/shootplan/internal/dateparse"
	"github.com/studioline/shootplan/internal/models"
	"github.com/studioline/shootplan/internal/output"
	"github.com/studioline/shootplan/internal/tui"
)

// now is the reference time for relative dates; tests pin it.
var now = time.Now

func appFrom(cmd *cobra.Command) (*appctx.App, error) {
	app := appctx.FromContext(cmd.Context())
	if app == nil {
		return nil, fmt.Errorf("app not initialized")
	}
	return app, nil
}

// parseDate accepts the natural forms dateparse understands.
func parseDate(input string) (string, error) {
	d, err := dateparse.DateFrom(input, now())
	if err != nil {
		return "", output.ErrUsageHint(fmt.Sprintf("Invalid date %q", input),
			"Use YYYY-MM-DD, today, tomorrow, a weekday or +N")
	}
	return d, nil
}

func parseHour(flag, input string) (int, error) {
	h, err := dateparse.Hour(input)
	if err != nil {
		return 0, output.ErrUsageHint(fmt.Sprintf("Invalid --%s %q", flag, input), "Use a whole hour such as 9, 17:00 or 5pm")
	}
	return h, nil
}

// parseWindow builds the window named by --date, --start and --end.
func parseWindow(date, start, end string) (models.Window, error) {
	d, err := parseDate(date)
	if err != nil {
		return models.Window{}, err
	}
	sh, err := parseHour("start", start)
	if err != nil {
		return models.Window{}, err
	}
	eh, err := parseHour("end", end)
	if err != nil {
		return models.Window{}, err
	}
	w := models.Window{Date: d, Start: models.FromHour(sh), End: models.FromHour(eh)}
	if err := w.Validate(); err != nil {
		return models.Window{}, output.ErrUsage(err.Error())
	}
	return w, nil
}

// assignSpec is one --assign member:role[:instructions] value.
type assignSpec struct {
	Member       string
	Role         string
	Instructions string
}

func parseAssign(s string) (assignSpec, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) < 2 || strings.TrimSpace(parts[0]) == "" || strings.TrimSpace(parts[1]) == "" {
		return assignSpec{}, output.ErrUsageHint(fmt.Sprintf("Invalid --assign %q", s), "Use member:role or member:role:instructions")
	}
	spec := assignSpec{Member: strings.TrimSpace(parts[0]), Role: strings.TrimSpace(parts[1])}
	if len(parts) == 3 {
		spec.Instructions = strings.TrimSpace(parts[2])
	}
	return spec, nil
}

// notices collects controller notices for the response envelope and logs
// them as they arrive.
type notices struct {
	mu     sync.Mutex
	logger *slog.Logger
	msgs   []string
}

func newNotices(logger *slog.Logger) *notices { return &notices{logger: logger} }

func (n *notices) Notify(notice builder.Notice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, notice.Message)
	n.logger.Log(context.Background(), notice.Level, notice.Message)
}

func (n *notices) add(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
}

func (n *notices) option() output.ResponseOption {
	n.mu.Lock()
	defer n.mu.Unlock()
	return output.WithNotices(n.msgs...)
}

// confirmDelete asks before a destructive call unless --force was given.
func confirmDelete(app *appctx.App, force bool, what string) error {
	if force {
		return nil
	}
	if !app.IsInteractive() {
		return output.ErrUsageHint("Refusing to delete "+what+" without confirmation", "Pass --force to skip the prompt")
	}
	ok, err := tui.ConfirmDangerous("Delete " + what + "?")
	if err != nil {
		return err
	}
	if !ok {
		return output.ErrUsage("Canceled")
	}
	return nil
}

// anyChanged reports whether any of the named flags was set on the command
// line. Unregistered names count as unset.
func anyChanged(flags *pflag.FlagSet, names ...string) bool {
	for _, name := range names {
		if f := flags.Lookup(name); f != nil && f.Changed {
			return true
		}
	}
	return false
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
