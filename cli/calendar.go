// ABOUTME: Calendar CLI command
// ABOUTME: Prints the merged appointment, synced-activity and Google view, optionally live
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/harperreed/hirepipe/calendar"
	"github.com/harperreed/hirepipe/models"
)

// CalendarListCommand prints the month or day view. --watch keeps the view
// open and reprints whenever a source changes.
func CalendarListCommand(ctx context.Context, app *App, args []string) error {
	fs := flag.NewFlagSet("calendar list", flag.ExitOnError)
	viewFlag := fs.String("view", "", "Calendar view: month or day (default: last used, else month)")
	date := fs.String("date", "", "Anchor date YYYY-MM-DD (default: today)")
	mine := fs.Bool("mine", false, "Only appointments assigned to the current user")
	watch := fs.Bool("watch", false, "Keep running and reprint on changes")
	_ = fs.Parse(args)

	viewName := *viewFlag
	if viewName == "" {
		viewName = app.lastCalendarView()
	}
	view, err := calendar.ParseView(viewName)
	if err != nil {
		return err
	}

	anchor := app.now()
	if *date != "" {
		t, err := time.ParseInLocation("2006-01-02", *date, time.Local)
		if err != nil {
			return fmt.Errorf("invalid --date: %w", err)
		}
		anchor = t
	}
	start, end := calendar.Range(view, anchor)

	userID := ""
	if *mine {
		if userID, err = app.user(); err != nil {
			return err
		}
	}
	sources := calendar.StandardSources(app.DB, app.tenant(), userID, app.GoogleLister(ctx),
		calendar.FixedWindow(start, end), app.Logger)

	if !*watch {
		events, err := calendar.Snapshot(ctx, app.Logger, sources...)
		if err != nil {
			return fmt.Errorf("failed to load calendar: %w", err)
		}
		printEvents(app.Out, view, start, calendar.InRange(events, start, end))
		return nil
	}

	agg := calendar.NewAggregator(app.Logger, calendar.AsSources(sources)...)
	updates, cancel := agg.Subscribe()
	defer cancel()

	runErr := make(chan error, 1)
	go func() { runErr <- agg.Run(ctx) }()

	for {
		select {
		case events, ok := <-updates:
			if !ok {
				return <-runErr
			}
			if app.Interactive {
				fmt.Fprint(app.Out, "\033[H\033[2J")
			}
			printEvents(app.Out, view, start, calendar.InRange(events, start, end))
		case err := <-runErr:
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		}
	}
}

// lastCalendarView reads the view the web UI last used, if a session exists.
func (a *App) lastCalendarView() string {
	store, err := a.Sessions()
	if err != nil {
		a.Logger.Debug("session store unavailable")
		return ""
	}
	s, err := store.Current()
	if err != nil {
		return ""
	}
	return s.CalendarView
}

func printEvents(out io.Writer, view calendar.View, start time.Time, events []models.CalendarEvent) {
	title := start.Format("January 2006")
	if view == calendar.ViewDay {
		title = start.Format("Monday, January 2 2006")
	}
	fmt.Fprintf(out, "%s (%s view)\n\n", title, view)

	if len(events) == 0 {
		fmt.Fprintln(out, "No events")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "WHEN\tTITLE\tTYPE\tRELATED")
	for _, ev := range events {
		when := ev.Start.Local().Format("Mon Jan 2 15:04")
		if ev.AllDay {
			when = ev.Start.Format("Mon Jan 2") + " (all day)"
		}
		related := "-"
		if ev.RelatedTo != nil {
			related = ev.RelatedTo.Kind + ":" + shortID(ev.RelatedTo.ID)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", when, ev.Title, ev.Type, related)
	}
	_ = w.Flush()
	fmt.Fprintf(out, "\nTotal: %d event(s)\n", len(events))
}
