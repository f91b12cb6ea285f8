package notify

import (
	"bytes"
	"strings"
	"text/template"
)

var funcs = template.FuncMap{"upper": strings.ToUpper}

var (
	learnerReceivedTmpl = template.Must(template.New("learner_received").Parse(`Hi {{.Name}},

Thank you for applying to {{.Academy}}!

We have received your application for the program: {{.Program}}.

Our team will review your details and contact you within 2–3 business days with next steps.

If you have any questions in the meantime, you can reach us at {{.ReplyTo}}.

Kind regards,
{{.Academy}}`))

	learnerApprovedTmpl = template.Must(template.New("learner_approved").Parse(`Hi {{.Name}},

Great news! Your application to {{.Academy}} has been APPROVED.

Program: {{.Program}}

Our team will contact you shortly with your registration details and next steps.

Kind regards,
{{.Academy}}`))

	learnerDeclinedTmpl = template.Must(template.New("learner_declined").Parse(`Hi {{.Name}},

Thank you for your interest in {{.Academy}}.

After careful review, we regret to inform you that your application for {{.Program}} has not been successful at this time.

{{if .Notes}}Reason from our team:
{{.Notes}}

{{end}}We encourage you to keep building your skills and consider applying again in the future.

Kind regards,
{{.Academy}}`))

	clientReceivedTmpl = template.Must(template.New("client_received").Parse(`Hi {{.Name}},

Thank you for contacting {{.Academy}}.

We have received your enquiry from {{.Company}} regarding:

Service interest: {{.Service}}
Training needs: {{.TrainingNeeds}}

Our team will review your requirements and contact you within 2–3 business days
to discuss a tailored solution.

If you have any questions in the meantime, you can reach us at {{.ReplyTo}}.

Kind regards,
{{.Academy}} Team`))

	clientReviewedTmpl = template.Must(template.New("client_reviewed").Funcs(funcs).Parse(`Hi {{.Name}},

The status of your training enquiry with {{.Academy}} has been {{.Status}}.

Company: {{.Company}}
Service interest: {{.Service}}
Status: {{upper .Status}}
{{if .Notes}}
Notes from our team:
{{.Notes}}
{{end}}
If you have any questions, you can reply to this email or contact us at {{.ReplyTo}}.

Kind regards,
{{.Academy}} Team`))

	contactOwnerTmpl = template.Must(template.New("contact_owner").Parse(`New contact enquiry from {{.Name}} ({{.Email}}{{if .Phone}}, {{.Phone}}{{end}})

Subject:
{{.Subject}}

Message:
{{.Message}}`))

	contactReceivedTmpl = template.Must(template.New("contact_received").Parse(`Hi {{.Name}},

Thank you for contacting {{.Academy}}.

We have received your message regarding: "{{.Subject}}".

Our team will review your enquiry and get back to you within 2–3 business days.

If your matter is urgent, you can also reach us at {{.ReplyTo}}.

Kind regards,
{{.Academy}}`))
)

// emailData is the union of fields the templates reference.
type emailData struct {
	Academy       string
	ReplyTo       string
	Name          string
	Email         string
	Phone         string
	Program       string
	Company       string
	Service       string
	TrainingNeeds string
	Status        string
	Notes         string
	Subject       string
	Message       string
}

func render(t *template.Template, data emailData) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}
