package templates

import (
	"testing"

	"github.com/harperreed/hirepipe/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderSubstitutesFields(t *testing.T) {
	tpl := models.EmailTemplate{
		Name:    "intro",
		Subject: "Staffing for {{.Company.Name}}",
		Body:    "Hi {{.Contact.FirstName}},\n\n{{.Sender.Name}} here.",
	}
	contact := &models.Contact{FirstName: "Dana", LastName: "Reyes"}
	company := &models.Company{Name: "Acme Logistics"}
	sender := &models.Salesperson{Name: "Ada"}

	msg, err := Render(tpl, contact, company, sender)
	require.NoError(t, err)
	assert.Equal(t, "Staffing for Acme Logistics", msg.Subject)
	assert.Equal(t, "Hi Dana,\n\nAda here.", msg.Body)
}

func TestRenderMissingValuesAreEmpty(t *testing.T) {
	tpl := models.EmailTemplate{
		Name:    "followup",
		Subject: "Re: {{.Company.Name}}",
		Body:    "Hi {{.Contact.FirstName}} ({{.Contact.Nickname}}) {{.Deal.Name}}",
	}

	msg, err := Render(tpl, &models.Contact{FirstName: "Dana"}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "Re: ", msg.Subject)
	assert.Equal(t, "Hi Dana () ", msg.Body)
}

func TestRenderFullNameFallback(t *testing.T) {
	tpl := models.EmailTemplate{Name: "n", Body: "{{.Contact.FullName}}"}
	msg, err := Render(tpl, &models.Contact{FirstName: "Dana", LastName: "Reyes"}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "Dana Reyes", msg.Body)
}

func TestCheckRejectsBadSyntax(t *testing.T) {
	assert.Error(t, Check(models.EmailTemplate{Name: "bad", Body: "{{.Contact.FirstName"}))
	assert.NoError(t, Check(models.EmailTemplate{Name: "ok", Body: "{{.Contact.FirstName}}"}))
}
