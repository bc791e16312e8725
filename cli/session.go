// ABOUTME: Session CLI commands
// ABOUTME: Shows, edits and clears the cached navigation state shared with the web UI
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/url"
	"sort"

	"github.com/harperreed/hirepipe/session"
)

// SessionShowCommand prints the current session.
func SessionShowCommand(ctx context.Context, app *App, args []string) error {
	store, err := app.Sessions()
	if err != nil {
		return err
	}
	s, err := store.Current()
	if errors.Is(err, session.ErrNoSession) {
		fmt.Fprintln(app.Out, "No active session")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(app.Out, "Session %s\n", s.ID)
	fmt.Fprintf(app.Out, "  User:          %s\n", s.UserID)
	fmt.Fprintf(app.Out, "  Tenant:        %s\n", s.TenantID)
	fmt.Fprintf(app.Out, "  Tab:           %s\n", orDash(s.Tab))
	fmt.Fprintf(app.Out, "  Company state: %s\n", orDash(s.CompanyState))
	fmt.Fprintf(app.Out, "  Contact state: %s\n", orDash(s.ContactState))
	fmt.Fprintf(app.Out, "  Calendar view: %s\n", s.CalendarView)
	fmt.Fprintf(app.Out, "  Search:        %s\n", orDash(s.Search))
	if len(s.Positions) > 0 {
		keys := make([]string, 0, len(s.Positions))
		for k := range s.Positions {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Fprintln(app.Out, "  Positions:")
		for _, k := range keys {
			fmt.Fprintf(app.Out, "    %s: %d\n", k, s.Positions[k])
		}
	}
	fmt.Fprintf(app.Out, "  Started:       %s\n", s.StartedAt.Local().Format("2006-01-02 15:04"))
	return nil
}

// SessionSetCommand updates the current session, starting one if needed.
// Only flags that were passed are changed.
func SessionSetCommand(ctx context.Context, app *App, args []string) error {
	fs := flag.NewFlagSet("session set", flag.ExitOnError)
	tab := fs.String("tab", "", "Active tab")
	companyState := fs.String("company-state", "", "Company list state filter")
	contactState := fs.String("contact-state", "", "Contact list state filter")
	view := fs.String("calendar-view", "", "Calendar view: month or day")
	search := fs.String("search", "", "Search text")
	_ = fs.Parse(args)

	userID, err := app.user()
	if err != nil {
		return err
	}
	store, err := app.Sessions()
	if err != nil {
		return err
	}
	s, err := store.Current()
	if errors.Is(err, session.ErrNoSession) || (err == nil && (s.UserID != userID || s.TenantID != app.tenant())) {
		s, err = store.Start(userID, app.tenant())
	}
	if err != nil {
		return err
	}

	q := url.Values{}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "tab":
			q.Set("tab", *tab)
		case "company-state":
			q.Set("companyState", *companyState)
		case "contact-state":
			q.Set("contactState", *contactState)
		case "calendar-view":
			s.SetCalendarView(*view)
		case "search":
			s.Search = *search
		}
	})
	s.ApplyQuery(q)

	if err := store.Save(s); err != nil {
		return err
	}
	fmt.Fprintf(app.Out, "✓ Session %s updated\n", s.ID)
	return nil
}

// SessionClearCommand ends the session.
func SessionClearCommand(ctx context.Context, app *App, args []string) error {
	store, err := app.Sessions()
	if err != nil {
		return err
	}
	if err := store.End(); err != nil {
		return err
	}
	fmt.Fprintln(app.Out, "✓ Session cleared")
	return nil
}
