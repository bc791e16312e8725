// ABOUTME: Email template CLI commands
// ABOUTME: Saves templates and renders them for a contact through the MCP handlers
package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/harperreed/hirepipe/handlers"
)

// AddTemplateCommand saves (or replaces) a named email template.
func AddTemplateCommand(ctx context.Context, app *App, args []string) error {
	fs := flag.NewFlagSet("add-template", flag.ExitOnError)
	name := fs.String("name", "", "Template name (required)")
	subject := fs.String("subject", "", "Subject line (required)")
	body := fs.String("body", "", "Message body")
	bodyFile := fs.String("body-file", "", "Read the body from a file")
	_ = fs.Parse(args)

	if *bodyFile != "" {
		data, err := os.ReadFile(*bodyFile)
		if err != nil {
			return fmt.Errorf("failed to read body file: %w", err)
		}
		*body = string(data)
	}

	h := handlers.NewTemplateHandlers(app.baseEnv())
	_, out, err := h.SaveTemplate(ctx, nil, handlers.SaveTemplateInput{Name: *name, Subject: *subject, Body: *body})
	if err != nil {
		return err
	}
	fmt.Fprintf(app.Out, "✓ Template saved: %s (ID: %s)\n", out.Name, out.ID)
	return nil
}

// RenderTemplateCommand prints a template filled in for one contact.
func RenderTemplateCommand(ctx context.Context, app *App, args []string) error {
	fs := flag.NewFlagSet("render-template", flag.ExitOnError)
	name := fs.String("name", "", "Template name (required)")
	_ = fs.Parse(args)

	if fs.NArg() < 1 {
		return fmt.Errorf("contact ID is required")
	}

	h := handlers.NewTemplateHandlers(app.baseEnv())
	_, msg, err := h.RenderEmailTemplate(ctx, nil, handlers.RenderTemplateInput{Name: *name, ContactID: fs.Arg(0)})
	if err != nil {
		return err
	}
	if msg.To != "" {
		fmt.Fprintf(app.Out, "To: %s\n", msg.To)
	}
	fmt.Fprintf(app.Out, "Subject: %s\n\n%s\n", msg.Subject, msg.Body)
	return nil
}
