// ABOUTME: Task and activity CLI commands
// ABOUTME: Appointments feed the calendar; activities feed deal health signals
package cli

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/hirepipe/db"
	"github.com/harperreed/hirepipe/models"
)

// parseWhen accepts RFC 3339 or "YYYY-MM-DD HH:MM" in local time.
func parseWhen(flagName, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return &t, nil
	}
	for _, layout := range []string{"2006-01-02 15:04", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid --%s %q (use RFC 3339 or YYYY-MM-DD HH:MM)", flagName, value)
}

// linkFlags resolves --deal/--contact/--company into associations.
func (a *App) linkFlags(deal, contact, company string) (models.Associations, error) {
	var assoc models.Associations
	if deal != "" {
		id, err := uuid.Parse(deal)
		if err != nil {
			return assoc, fmt.Errorf("invalid --deal: %w", err)
		}
		d, err := db.GetDeal(a.DB, a.tenant(), id)
		if err != nil {
			return assoc, fmt.Errorf("failed to get deal: %w", err)
		}
		if d == nil {
			return assoc, fmt.Errorf("deal not found: %s", deal)
		}
		assoc.Deals = []models.Ref{models.IDRef(d.ID.String())}
	}
	if contact != "" {
		id, err := uuid.Parse(contact)
		if err != nil {
			return assoc, fmt.Errorf("invalid --contact: %w", err)
		}
		c, err := db.GetContact(a.DB, a.tenant(), id)
		if err != nil {
			return assoc, fmt.Errorf("failed to get contact: %w", err)
		}
		if c == nil {
			return assoc, fmt.Errorf("contact not found: %s", contact)
		}
		assoc.Contacts = []models.Ref{models.IDRef(c.ID.String())}
	}
	if company != "" {
		c, err := a.lookupCompany(company)
		if err != nil {
			return assoc, err
		}
		assoc.Companies = []models.Ref{models.IDRef(c.ID.String())}
	}
	return assoc, nil
}

// AddTaskCommand creates a CRM task. Appointments show on the calendar.
func AddTaskCommand(ctx context.Context, app *App, args []string) error {
	fs := flag.NewFlagSet("add-task", flag.ExitOnError)
	title := fs.String("title", "", "Task title (required)")
	appointment := fs.Bool("appointment", false, "Classify as an appointment")
	start := fs.String("start", "", "Start time")
	end := fs.String("end", "", "End time")
	due := fs.String("due", "", "Due time")
	assignee := fs.String("assignee", "", "Assignee id (default: current user)")
	deal := fs.String("deal", "", "Deal ID to link")
	contact := fs.String("contact", "", "Contact ID to link")
	company := fs.String("company", "", "Company ID or name to link")
	_ = fs.Parse(args)

	if strings.TrimSpace(*title) == "" {
		return fmt.Errorf("--title is required")
	}

	task := &models.Task{
		TenantID:   app.tenant(),
		Title:      *title,
		AssigneeID: *assignee,
	}
	if task.AssigneeID == "" {
		task.AssigneeID = app.Config.UserID
	}
	if *appointment {
		task.Classification = "appointment"
	}

	var err error
	if task.StartAt, err = parseWhen("start", *start); err != nil {
		return err
	}
	if task.EndAt, err = parseWhen("end", *end); err != nil {
		return err
	}
	if task.DueAt, err = parseWhen("due", *due); err != nil {
		return err
	}
	if task.StartAt != nil && task.EndAt != nil && !task.EndAt.After(*task.StartAt) {
		return fmt.Errorf("--end must be after --start")
	}
	if task.IsAppointment() && task.StartAt == nil && task.DueAt == nil {
		return fmt.Errorf("appointments need --start or --due")
	}

	if task.Associations, err = app.linkFlags(*deal, *contact, *company); err != nil {
		return err
	}

	if err := db.CreateTask(app.DB, task); err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	kind := "Task"
	if task.IsAppointment() {
		kind = "Appointment"
	}
	fmt.Fprintf(app.Out, "✓ %s created: %s (ID: %s)\n", kind, task.Title, task.ID)
	if start, _, ok := task.Window(); ok {
		fmt.Fprintf(app.Out, "  When: %s\n", start.Local().Format("Mon Jan 2 15:04"))
	}
	return nil
}

// LogActivityCommand records a call, email, meeting or note.
func LogActivityCommand(ctx context.Context, app *App, args []string) error {
	fs := flag.NewFlagSet("log-activity", flag.ExitOnError)
	kind := fs.String("type", models.ActivityNote, "Activity type: email, call, meeting or note")
	title := fs.String("title", "", "Short summary (required)")
	description := fs.String("description", "", "Details")
	at := fs.String("at", "", "When it happened (default: now)")
	deal := fs.String("deal", "", "Deal ID to link")
	contact := fs.String("contact", "", "Contact ID to link")
	company := fs.String("company", "", "Company ID or name to link")
	_ = fs.Parse(args)

	switch *kind {
	case models.ActivityEmail, models.ActivityCall, models.ActivityMeeting, models.ActivityNote:
	default:
		return fmt.Errorf("invalid --type %q (want email, call, meeting or note)", *kind)
	}
	if strings.TrimSpace(*title) == "" {
		return fmt.Errorf("--title is required")
	}

	when, err := parseWhen("at", *at)
	if err != nil {
		return err
	}
	activity := &models.Activity{
		TenantID:    app.tenant(),
		Type:        *kind,
		Title:       *title,
		Description: *description,
		Source:      "crm",
		CreatedBy:   app.Config.UserID,
	}
	if when != nil {
		activity.Timestamp = *when
	}
	if activity.Associations, err = app.linkFlags(*deal, *contact, *company); err != nil {
		return err
	}

	if err := db.CreateActivity(app.DB, activity); err != nil {
		return fmt.Errorf("failed to log activity: %w", err)
	}
	for _, id := range models.CanonicalIDs(activity.Associations.Contacts) {
		if cid, err := uuid.Parse(id); err == nil {
			if err := db.TouchContact(app.DB, app.tenant(), cid, activity.Timestamp); err != nil {
				return fmt.Errorf("failed to update contact: %w", err)
			}
		}
	}

	fmt.Fprintf(app.Out, "✓ Logged %s: %s (ID: %s)\n", activity.Type, activity.Title, activity.ID)
	return nil
}
