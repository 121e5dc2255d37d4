package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/studioline/shootplan/internal/api"
	"github.com/studioline/shootplan/internal/appctx"
	"github.com/studioline/shootplan/internal/builder"
	"github.com/studioline/shootplan/internal/models"
	"github.com/studioline/shootplan/internal/names"
	"github.com/studioline/shootplan/internal/output"
)

// NewProjectCmd creates the project command group.
func NewProjectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "project",
		Aliases: []string{"projects"},
		Short:   "Create and manage booking projects",
		Long: "A project is a booking engagement: a name, a color, a description, an optional " +
			"client contact and one or more dated events with their team.",
	}

	cmd.AddCommand(
		newProjectCreateCmd(),
		newProjectShowCmd(),
		newProjectEditCmd(),
		newProjectDeleteCmd(),
	)

	return cmd
}

func newProjectCreateCmd() *cobra.Command {
	var file string
	var interactive bool

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a project with its events and team",
		Long: "Create a project from a YAML draft (--file, or - for stdin) or by answering prompts " +
			"(--interactive, the default on a terminal). The project and all its events are created in one call.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			if file == "" && !interactive {
				if !app.IsInteractive() {
					return output.ErrUsageHint("Draft file required", "Pass --file draft.yaml, or --interactive on a terminal")
				}
				interactive = true
			}

			client, err := app.Client()
			if err != nil {
				return err
			}
			company, err := app.RequireCompany()
			if err != nil {
				return err
			}
			resolver, err := app.Availability()
			if err != nil {
				return err
			}

			n := newNotices(app.Logger)
			w := builder.New(client, resolver,
				builder.WithCompany(company),
				builder.WithNotifier(n),
				builder.WithTranslator(app.Tr),
				builder.WithLogger(app.Logger),
				// New bookings change everyone's availability.
				builder.WithOnCreated(func(models.Project) { resolver.Pools().Invalidate() }),
			)

			var p models.Project
			if interactive {
				p, err = newProjectPrompt(app, w, resolver).run(cmd.Context())
			} else {
				var d draftFile
				if err := readYAML(app, file, &d); err != nil {
					return err
				}
				filler := draftFiller{wizard: w, resolver: resolver, roles: app.Names}
				if err := filler.fill(cmd.Context(), d); err != nil {
					return err
				}
				p, err = w.Submit(cmd.Context())
			}
			if err != nil {
				return err
			}

			return app.OK(p,
				output.WithSummary(fmt.Sprintf("Created project %s (%s)", p.Name, p.ID)),
				n.option(),
				output.WithBreadcrumbs(showBreadcrumb(p.ID)),
			)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML draft file (- for stdin)")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Build the project with prompts")
	cmd.MarkFlagsMutuallyExclusive("file", "interactive")

	return cmd
}

func showBreadcrumb(projectID string) output.Breadcrumb {
	return output.Breadcrumb{
		Action:      "show",
		Cmd:         "shootplan project show " + projectID,
		Description: "View the project",
	}
}

// projectView is a project with role ids resolved to names.
type projectView struct {
	models.Project
	RoleNames map[string]string `json:"roleNames,omitempty"`
}

func newProjectShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a project with its events and team",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			client, err := app.Client()
			if err != nil {
				return err
			}
			p, err := client.GetProject(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			view := projectView{Project: p}
			if resolver, err := roleNamesFor(app, p); err == nil {
				view.RoleNames = map[string]string{}
				for _, e := range p.Events {
					for _, a := range e.Assignments {
						view.RoleNames[a.RoleID] = resolver.RoleName(cmd.Context(), a.RoleID)
					}
				}
			}

			return app.OK(view,
				output.WithSummary(fmt.Sprintf("%s, %s", p.Name, plural(len(p.Events), "event"))),
				output.WithBreadcrumbs(
					output.Breadcrumb{Action: "add-event", Cmd: "shootplan event add --project " + p.ID, Description: "Add an event"},
					output.Breadcrumb{Action: "sections", Cmd: "shootplan sections list " + p.ID, Description: "View brief and logistics"},
				),
			)
		},
	}
}

// roleNamesFor returns a role resolver for the project's company, falling
// back to the configured company.
func roleNamesFor(app *appctx.App, p models.Project) (*names.Resolver, error) {
	client, err := app.Client()
	if err != nil {
		return nil, err
	}
	company := app.CompanyID()
	if p.Company != nil && p.Company.ID != "" {
		company = p.Company.ID
	}
	if company == "" {
		return nil, output.ErrUsage("no company")
	}
	return names.NewResolver(app.Realm, client, company), nil
}

func newProjectEditCmd() *cobra.Command {
	var (
		name, color, description                  string
		clientName, clientEmail, clientMobile, cc string
		clearClient, schedule                     bool
	)

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a project's details",
		Long: "Change a project's details. Only the flags given are sent. Client flags replace the " +
			"whole client contact, so name, email and mobile are required together.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			req := api.UpdateProjectRequest{ProjectID: args[0], ClearClient: clearClient}
			fields := map[string]string{}
			setText := func(flag string, value string, dst **string, required string) {
				if !flags.Changed(flag) {
					return
				}
				if strings.TrimSpace(value) == "" && required != "" {
					fields[flag] = app.T(required, nil)
					return
				}
				*dst = &value
			}
			setText("name", name, &req.Name, "ProjectNameRequired")
			setText("color", color, &req.Color, "ColorRequired")
			setText("description", description, &req.Description, "DescriptionRequired")
			if flags.Changed("schedule") {
				req.IsScheduleUpdate = &schedule
			}

			if anyChanged(flags, "client-name", "client-email", "client-mobile", "client-cc") {
				if clearClient {
					return output.ErrUsage("--clear-client cannot be combined with client flags")
				}
				c := &models.Client{Name: clientName, Email: clientEmail, Mobile: clientMobile, CC: cc}
				for flag, msg := range clientErrors(app, c) {
					fields[flag] = msg
				}
				req.Client = c
			}

			if len(fields) > 0 {
				return output.ErrValidation(app.T("FixHighlightedFields", nil), fields)
			}
			if req.Name == nil && req.Color == nil && req.Description == nil && req.Client == nil &&
				!req.ClearClient && req.IsScheduleUpdate == nil {
				return output.ErrUsage("Nothing to update")
			}

			client, err := app.Client()
			if err != nil {
				return err
			}
			p, err := client.UpdateProject(cmd.Context(), req)
			if err != nil {
				return err
			}
			if p.ID == "" {
				p.ID = args[0]
			}
			return app.OK(p,
				output.WithSummary("Updated project "+p.ID),
				output.WithBreadcrumbs(showBreadcrumb(p.ID)))
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Project name")
	cmd.Flags().StringVar(&color, "color", "", "Display color")
	cmd.Flags().StringVar(&description, "description", "", "Description")
	cmd.Flags().StringVar(&clientName, "client-name", "", "Client contact name")
	cmd.Flags().StringVar(&clientEmail, "client-email", "", "Client contact email")
	cmd.Flags().StringVar(&clientMobile, "client-mobile", "", "Client contact mobile")
	cmd.Flags().StringVar(&cc, "client-cc", "", "Addresses copied on client mail")
	cmd.Flags().BoolVar(&clearClient, "clear-client", false, "Remove the client contact")
	cmd.Flags().BoolVar(&schedule, "schedule", false, "Mark the change as a schedule update (notifies the team)")

	return cmd
}

// clientErrors validates a client contact the way the create wizard does,
// keyed by flag name.
func clientErrors(app *appctx.App, c *models.Client) map[string]string {
	out := map[string]string{}
	if strings.TrimSpace(c.Name) == "" {
		out["client-name"] = app.T("ClientNameRequired", nil)
	}
	switch {
	case strings.TrimSpace(c.Email) == "":
		out["client-email"] = app.T("ClientEmailRequired", nil)
	case !builder.ValidEmail(c.Email):
		out["client-email"] = app.T("ClientEmailInvalid", nil)
	}
	switch {
	case strings.TrimSpace(c.Mobile) == "":
		out["client-mobile"] = app.T("ClientMobileRequired", nil)
	case !builder.ValidMobile(c.Mobile):
		out["client-mobile"] = app.T("ClientMobileInvalid", nil)
	}
	return out
}

func newProjectDeleteCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a project and its events",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			if err := confirmDelete(app, force, "project "+args[0]); err != nil {
				return err
			}
			client, err := app.Client()
			if err != nil {
				return err
			}
			if err := client.DeleteProject(cmd.Context(), args[0]); err != nil {
				return err
			}
			return app.OK(map[string]string{"id": args[0], "status": "deleted"},
				output.WithSummary("Deleted project "+args[0]))
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Skip the confirmation prompt")

	return cmd
}
