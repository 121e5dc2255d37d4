// Package appctx provides application context helpers.
package appctx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/x/term"

	"github.com/studioline/shootplan/internal/api"
	"github.com/studioline/shootplan/internal/auth"
	"github.com/studioline/shootplan/internal/availability"
	"github.com/studioline/shootplan/internal/config"
	"github.com/studioline/shootplan/internal/data"
	"github.com/studioline/shootplan/internal/i18n"
	"github.com/studioline/shootplan/internal/names"
	"github.com/studioline/shootplan/internal/observability"
	"github.com/studioline/shootplan/internal/output"
	"github.com/studioline/shootplan/internal/resilience"
	"github.com/studioline/shootplan/internal/telemetry"
)

// contextKey is a private type for context keys.
type contextKey string

const appKey contextKey = "app"

// DebugEnv raises verbosity like -v; "1", "2" or "true".
const DebugEnv = "SHOOTPLAN_DEBUG"

// App holds the shared application context for all commands.
type App struct {
	Config *config.Config
	Auth   *auth.Manager
	Output *output.Writer
	Logger *slog.Logger
	Tr     *i18n.Translator

	// Collector counts API requests for --stats.
	Collector *observability.SessionCollector

	// Realm scopes cached lookups to the current session. It is torn down
	// when the session ends.
	Realm *data.Realm

	// Flags holds the global flag values
	Flags GlobalFlags

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Telemetry flushes pending spans; nil when tracing is off.
	Telemetry func(context.Context) error

	session *auth.Session
	client  *api.Client
}

// GlobalFlags holds values for global CLI flags.
type GlobalFlags struct {
	// Output format flags
	JSON    bool
	Quiet   bool
	IDsOnly bool
	Styled  bool
	JQ      string

	// Context flags
	Company  string
	BaseURL  string
	StateDir string

	// Behavior flags
	Verbose int // 0=config level, 1=info, 2=debug (stacks with -v -v or -vv)
	Stats   bool
}

// NewApp creates a new App with the given configuration.
func NewApp(cfg *config.Config) *App {
	logger := newLogger(os.Stderr, levelFor(cfg.LogLevel, 0))
	store := auth.NewStore(cfg.StateDir)

	return &App{
		Config: cfg,
		Auth:   auth.NewManager(cfg.BaseURL, store, logger),
		Output: output.New(output.Options{Format: formatFor(cfg.Format), Writer: os.Stdout}),
		Logger: logger,
		Tr:     i18n.New(cfg.Locale),
		Realm:  data.NewRealm("session", context.Background()),

		Collector: observability.NewSessionCollector(),
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

func formatFor(name string) output.Format {
	switch name {
	case "json":
		return output.FormatJSON
	case "styled":
		return output.FormatStyled
	case "quiet":
		return output.FormatQuiet
	case "ids":
		return output.FormatIDs
	default:
		return output.FormatAuto
	}
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// levelFor picks the log level: -v raises to info, -vv to debug, otherwise
// the configured level applies.
func levelFor(configured string, verbose int) slog.Level {
	switch {
	case verbose >= 2:
		return slog.LevelDebug
	case verbose == 1:
		return slog.LevelInfo
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(configured)); err != nil {
		return slog.LevelWarn
	}
	return l
}

// ApplyFlags applies global flag values to the app. Call it after
// replacing Stdout or Stderr.
func (a *App) ApplyFlags() {
	format := formatFor(a.Config.Format)
	switch {
	case a.Flags.IDsOnly:
		format = output.FormatIDs
	case a.Flags.Quiet:
		format = output.FormatQuiet
	case a.Flags.JSON:
		format = output.FormatJSON
	case a.Flags.Styled:
		format = output.FormatStyled
	}
	a.Output = output.New(output.Options{Format: format, Writer: a.Stdout, JQ: a.Flags.JQ})

	verbose := a.Flags.Verbose
	if v := os.Getenv(DebugEnv); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			verbose = max(verbose, n)
		} else if strings.EqualFold(v, "true") {
			verbose = 2
		}
	}
	a.Logger = newLogger(a.Stderr, levelFor(a.Config.LogLevel, verbose))
	a.Auth = auth.NewManager(a.Config.BaseURL, a.Auth.Store(), a.Logger)
}

// Client returns the API client for the current session, creating the
// session on first use. When the session ends every cached lookup in the
// realm is dropped.
func (a *App) Client() (*api.Client, error) {
	if a.client != nil {
		return a.client, nil
	}
	session, err := a.Auth.Session()
	if err != nil {
		return nil, err
	}
	session.OnLogout(func(reason auth.LogoutReason) {
		a.Logger.Debug("session ended", "reason", string(reason))
		a.Realm.Teardown()
	})
	a.session = session
	a.client = api.NewClient(a.Config.BaseURL, session,
		api.WithHTTPClient(&http.Client{Timeout: a.Config.Timeout}),
		api.WithLogger(a.Logger),
		api.WithTracer(telemetry.Tracer("api")),
		api.WithBreaker(a.Breaker()),
		api.WithCollector(a.Collector),
	)
	return a.client, nil
}

// Breaker returns the API health breaker kept under the state directory.
func (a *App) Breaker() *resilience.Breaker {
	return resilience.NewBreaker(resilience.NewStore(filepath.Join(a.Config.StateDir, "health")), resilience.BreakerConfig{})
}

// Session returns the active session, if Client has created one.
func (a *App) Session() *auth.Session { return a.session }

// CompanyID returns the company from --company or configuration.
func (a *App) CompanyID() string {
	if a.Flags.Company != "" {
		return a.Flags.Company
	}
	return a.Config.CompanyID
}

// RequireCompany returns the company id or a usage error.
func (a *App) RequireCompany() (string, error) {
	id := a.CompanyID()
	if id == "" {
		return "", output.ErrUsageHint("Company ID required",
			"Pass --company or set company_id in config (shootplan config show)")
	}
	return id, nil
}

// Names returns a role resolver for the company.
func (a *App) Names() (*names.Resolver, error) {
	client, err := a.Client()
	if err != nil {
		return nil, err
	}
	company, err := a.RequireCompany()
	if err != nil {
		return nil, err
	}
	return names.NewResolver(a.Realm, client, company), nil
}

// Availability returns a resolver for the company whose window cache is
// owned by the session realm.
func (a *App) Availability(opts ...availability.Option) (*availability.Resolver, error) {
	client, err := a.Client()
	if err != nil {
		return nil, err
	}
	company, err := a.RequireCompany()
	if err != nil {
		return nil, err
	}
	r := availability.NewResolver(client, company, opts...)
	a.Realm.Register("availability:"+company, r.Pools())
	return r, nil
}

// OK outputs a success response, with request stats in meta under
// --stats.
func (a *App) OK(data any, opts ...output.ResponseOption) error {
	if a.Flags.Stats && a.Collector != nil {
		opts = append(opts, output.WithMeta("stats", a.Collector.Summary()))
	}
	return a.Output.OK(data, opts...)
}

// Err outputs an error response, with the session-expired message taken
// from the catalog. Under --stats a one-line summary goes to
// stderr unless the output is meant for a machine.
func (a *App) Err(err error) error {
	if output.IsCode(err, output.CodeSessionExpired) {
		e := *output.AsError(err)
		e.Message = a.T("SessionExpired", nil)
		e.Cause = err
		err = &e
	}
	writeErr := a.Output.Err(err)
	if a.Flags.Stats && a.Collector != nil && !a.machineOutput() {
		fmt.Fprintf(a.Stderr, "\nStats: %s\n", a.Collector.Summary())
	}
	return writeErr
}

func (a *App) machineOutput() bool {
	return a.Flags.JSON || a.Flags.Quiet || a.Flags.IDsOnly || a.Flags.JQ != "" || a.Config.Format == "json"
}

// T renders a catalog message.
func (a *App) T(key string, data map[string]any) string { return a.Tr.T(key, data) }

// IsInteractive returns true if prompts can be shown: stdin and stdout are
// terminals and no machine-output mode is set.
func (a *App) IsInteractive() bool {
	if a.machineOutput() {
		return false
	}
	in, ok := a.Stdin.(interface{ Fd() uintptr })
	if !ok || !term.IsTerminal(in.Fd()) {
		return false
	}
	out, ok := a.Stdout.(interface{ Fd() uintptr })
	return ok && term.IsTerminal(out.Fd())
}

// Close flushes telemetry.
func (a *App) Close(ctx context.Context) error {
	if a.Telemetry == nil {
		return nil
	}
	return a.Telemetry(ctx)
}

// WithApp stores the app in the context.
func WithApp(ctx context.Context, app *App) context.Context {
	return context.WithValue(ctx, appKey, app)
}

// FromContext retrieves the app from the context.
func FromContext(ctx context.Context) *App {
	app, _ := ctx.Value(appKey).(*App)
	return app
}
