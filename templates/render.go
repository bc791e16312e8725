// ABOUTME: Email template rendering against contact, company and sender data
// ABOUTME: Missing fields render empty instead of failing the whole message

package templates

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/harperreed/hirepipe/models"
)

// Data is what a template can reference, e.g. {{.Contact.FirstName}}.
type Data struct {
	Contact ContactData
	Company CompanyData
	Sender  SenderData
}

type ContactData struct {
	FirstName string
	LastName  string
	FullName  string
	Email     string
	JobTitle  string
}

type CompanyData struct {
	Name     string
	Industry string
}

type SenderData struct {
	Name  string
	Email string
}

// Message is a rendered template.
type Message struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewData flattens the CRM records a template may reference. Any argument may be nil.
func NewData(contact *models.Contact, company *models.Company, sender *models.Salesperson) Data {
	var d Data
	if contact != nil {
		d.Contact = ContactData{
			FirstName: contact.FirstName,
			LastName:  contact.LastName,
			FullName:  contact.DisplayName(),
			Email:     contact.Email,
			JobTitle:  contact.JobTitle,
		}
	}
	if company != nil {
		d.Company = CompanyData{Name: company.Name, Industry: company.Industry}
	}
	if sender != nil {
		d.Sender = SenderData{Name: sender.Name, Email: sender.Email}
	}
	return d
}

// Render fills the subject and body of tpl.
func Render(tpl models.EmailTemplate, contact *models.Contact, company *models.Company, sender *models.Salesperson) (Message, error) {
	data := NewData(contact, company, sender)

	subject, err := execute(tpl.Name+":subject", tpl.Subject, data)
	if err != nil {
		return Message{}, err
	}
	body, err := execute(tpl.Name+":body", tpl.Body, data)
	if err != nil {
		return Message{}, err
	}
	return Message{Subject: subject, Body: body}, nil
}

// Check parses subject and body without executing them.
func Check(tpl models.EmailTemplate) error {
	for _, src := range []string{tpl.Subject, tpl.Body} {
		if _, err := template.New(tpl.Name).Option("missingkey=zero").Parse(src); err != nil {
			return fmt.Errorf("failed to parse template %q: %w", tpl.Name, err)
		}
	}
	return nil
}

func execute(name, src string, data Data) (string, error) {
	t, err := template.New(name).Option("missingkey=zero").Parse(src)
	if err != nil {
		return "", fmt.Errorf("failed to parse template %q: %w", name, err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		// Unknown fields on Data fail at execution time; render them empty.
		if strings.Contains(err.Error(), "can't evaluate field") {
			return executeLoose(name, src, data)
		}
		return "", fmt.Errorf("failed to render template %q: %w", name, err)
	}
	return buf.String(), nil
}

// executeLoose renders against a map view of data so unknown keys become empty.
func executeLoose(name, src string, data Data) (string, error) {
	t, err := template.New(name).Option("missingkey=zero").Parse(src)
	if err != nil {
		return "", fmt.Errorf("failed to parse template %q: %w", name, err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, looseView(data)); err != nil {
		return "", fmt.Errorf("failed to render template %q: %w", name, err)
	}
	return buf.String(), nil
}

func looseView(d Data) map[string]map[string]string {
	return map[string]map[string]string{
		"Contact": {
			"FirstName": d.Contact.FirstName,
			"LastName":  d.Contact.LastName,
			"FullName":  d.Contact.FullName,
			"Email":     d.Contact.Email,
			"JobTitle":  d.Contact.JobTitle,
		},
		"Company": {
			"Name":     d.Company.Name,
			"Industry": d.Company.Industry,
		},
		"Sender": {
			"Name":  d.Sender.Name,
			"Email": d.Sender.Email,
		},
	}
}
