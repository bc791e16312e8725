// ABOUTME: Contact CLI commands
// ABOUTME: Human-friendly commands for adding and listing contacts
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

// AddContactCommand adds a new contact.
func AddContactCommand(ctx context.Context, app *App, args []string) error {
	fs := flag.NewFlagSet("add-contact", flag.ExitOnError)
	first := fs.String("first", "", "First name (required)")
	last := fs.String("last", "", "Last name")
	email := fs.String("email", "", "Email address")
	phone := fs.String("phone", "", "Phone number")
	title := fs.String("title", "", "Job title")
	state := fs.String("state", "", "Contact state (e.g. lead, active)")
	company := fs.String("company", "", "Company name (created if missing)")
	owner := fs.String("owner", "", "Salesperson id (default: current user)")
	_ = fs.Parse(args)

	if strings.TrimSpace(*first) == "" {
		return fmt.Errorf("--first is required")
	}

	contact := &models.Contact{
		TenantID:  app.tenant(),
		FirstName: *first,
		LastName:  *last,
		Email:     *email,
		Phone:     *phone,
		JobTitle:  *title,
		State:     *state,
		IsActive:  true,
	}

	if *company != "" {
		c, err := app.findOrCreateCompany(*company)
		if err != nil {
			return err
		}
		contact.Associations.Companies = []models.Ref{models.IDRef(c.ID.String())}
	}
	contact.Associations.Salespeople = app.salespersonRefs(ctx, *owner)

	if err := db.CreateContact(app.DB, contact); err != nil {
		return fmt.Errorf("failed to create contact: %w", err)
	}

	fmt.Fprintf(app.Out, "✓ Contact created: %s (ID: %s)\n", contact.DisplayName(), contact.ID)
	if contact.Email != "" {
		fmt.Fprintf(app.Out, "  Email: %s\n", contact.Email)
	}
	if *company != "" {
		fmt.Fprintf(app.Out, "  Company: %s\n", *company)
	}
	return nil
}

// ListContactsCommand lists contacts, optionally only the current user's.
func ListContactsCommand(ctx context.Context, app *App, args []string) error {
	fs := flag.NewFlagSet("list-contacts", flag.ExitOnError)
	query := fs.String("query", "", "Search by name or email")
	company := fs.String("company", "", "Filter by company name")
	state := fs.String("state", "", "Filter by contact state")
	mine := fs.Bool("mine", false, "Only contacts associated with the current user")
	owner := fs.String("owner", "", "Only contacts associated with this salesperson")
	limit := fs.Int("limit", 50, "Maximum results")
	_ = fs.Parse(args)

	ownerID, err := app.ownerFilter(*mine, *owner)
	if err != nil {
		return err
	}

	filter := db.ContactFilter{Query: *query, State: *state}
	if *company != "" {
		c, err := db.FindCompanyByName(app.DB, app.tenant(), *company)
		if err != nil {
			return fmt.Errorf("failed to lookup company: %w", err)
		}
		if c == nil {
			fmt.Fprintln(app.Out, "No contacts found")
			return nil
		}
		filter.CompanyID = c.ID.String()
	}
	if ownerID == "" {
		filter.Limit = *limit
	}

	contacts, err := db.FindContacts(app.DB, app.tenant(), filter)
	if err != nil {
		return fmt.Errorf("failed to find contacts: %w", err)
	}

	companies, err := db.ListCompanies(app.DB, app.tenant())
	if err != nil {
		return fmt.Errorf("failed to load companies: %w", err)
	}
	if ownerID != "" {
		contacts = models.ContactsForUser(contacts, companies, ownerID)
		if len(contacts) > *limit {
			contacts = contacts[:*limit]
		}
	}

	if len(contacts) == 0 {
		fmt.Fprintln(app.Out, "No contacts found")
		return nil
	}

	names := make(map[string]string, len(companies))
	for _, c := range companies {
		names[c.ID.String()] = c.Name
	}

	w := tabwriter.NewWriter(app.Out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tEMAIL\tSTATE\tCOMPANY\tOWNERS\tID")
	_, _ = fmt.Fprintln(w, "----\t-----\t-----\t-------\t------\t--")
	for _, contact := range contacts {
		companyName := "-"
		if ids := contact.CompanyIDs(); len(ids) > 0 {
			if n, ok := names[ids[0]]; ok {
				companyName = n
			}
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			contact.DisplayName(), orDash(contact.Email), orDash(contact.State), companyName,
			orDash(strings.Join(models.OwnerIDs(contact), ",")), shortID(contact.ID.String()))
	}
	_ = w.Flush()

	fmt.Fprintf(app.Out, "\nTotal: %d contact(s)\n", len(contacts))
	return nil
}
