// ABOUTME: Salesperson CLI commands
// ABOUTME: Adds team members and lists the tenant directory
package cli

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/harperreed/hirepipe/db"
	"github.com/harperreed/hirepipe/models"
)

// AddUserCommand adds or updates a salesperson and schedules a directory
// reload so names resolve on the next lookup.
func AddUserCommand(ctx context.Context, app *App, args []string) error {
	fs := flag.NewFlagSet("add-user", flag.ExitOnError)
	id := fs.String("id", "", "Salesperson id (required)")
	name := fs.String("name", "", "Display name (required)")
	email := fs.String("email", "", "Email address")
	role := fs.String("role", "sales", "Role")
	inactive := fs.Bool("inactive", false, "Keep the user out of the directory")
	_ = fs.Parse(args)

	if strings.TrimSpace(*id) == "" || strings.TrimSpace(*name) == "" {
		return fmt.Errorf("--id and --name are required")
	}

	user := &models.Salesperson{
		ID:       strings.TrimSpace(*id),
		TenantID: app.tenant(),
		Name:     strings.TrimSpace(*name),
		Email:    strings.TrimSpace(*email),
		Role:     *role,
		Active:   !*inactive,
	}
	if err := db.SaveUser(app.DB, user); err != nil {
		return err
	}
	app.Team.RequestReload(app.tenant())

	fmt.Fprintf(app.Out, "✓ Salesperson saved: %s (ID: %s)\n", user.Name, user.ID)
	return nil
}

// ListUsersCommand prints the active salespeople of the tenant.
func ListUsersCommand(ctx context.Context, app *App, args []string) error {
	fs := flag.NewFlagSet("list-users", flag.ExitOnError)
	_ = fs.Parse(args)

	team, err := app.Team.List(ctx, app.tenant())
	if err != nil {
		return err
	}
	if len(team) == 0 {
		fmt.Fprintln(app.Out, "No salespeople. Add one with 'hirepipe crm add-user'.")
		return nil
	}

	w := tabwriter.NewWriter(app.Out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tEMAIL\tROLE")
	_, _ = fmt.Fprintln(w, "--\t----\t-----\t----")
	for _, sp := range team {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", sp.ID, sp.Name, orDash(sp.Email), orDash(sp.Role))
	}
	_ = w.Flush()
	return nil
}
