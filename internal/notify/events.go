package notify

import (
	"context"
	"errors"
	"fmt"
	"text/template"

	"github.com/dynamicdna/academy/pkg/models"
)

// The event methods below run after the triggering write has been persisted.
// Owner and applicant sends are independent: one failing does not skip the other.

// LearnerSubmitted tells the owner about a new learner application and
// confirms receipt to the learner.
func (d *Dispatcher) LearnerSubmitted(ctx context.Context, a *models.LearnerApplication) {
	d.ownerEvent(ctx, "learner", "New Learner Application",
		fmt.Sprintf("New application from %s (%s) for %s", a.FullName, a.Email, a.ProgramInterest))

	d.applicantEvent(ctx, "learner confirmation", a.Email,
		"We received your application – "+AcademyName,
		learnerReceivedTmpl, emailData{Name: a.FullName, Program: a.ProgramInterest})
}

// ClientSubmitted tells the owner about a new corporate enquiry and
// confirms receipt to the contact person.
func (d *Dispatcher) ClientSubmitted(ctx context.Context, a *models.ClientApplication) {
	d.ownerEvent(ctx, "client", "New Client Application",
		fmt.Sprintf("New application from %s (%s - %s)", a.CompanyName, a.ContactPerson, a.Email))

	d.applicantEvent(ctx, "client confirmation", a.Email,
		"We received your corporate training enquiry",
		clientReceivedTmpl, emailData{
			Name:          a.ContactPerson,
			Company:       a.CompanyName,
			Service:       a.ServiceInterest,
			TrainingNeeds: a.TrainingNeeds,
		})
}

// ContactSubmitted forwards a contact form enquiry to the owner and
// acknowledges it to the sender.
func (d *Dispatcher) ContactSubmitted(ctx context.Context, m *models.ContactMessage) {
	data := emailData{Name: m.Name, Email: m.Email, Subject: m.Subject, Message: m.Message}
	if m.Phone != nil {
		data.Phone = *m.Phone
	}

	content, err := render(contactOwnerTmpl, data)
	if err != nil {
		logger.Error("render contact notification", "err", err)
	} else {
		d.ownerEvent(ctx, "contact", "New Contact Enquiry: "+m.Subject, content)
	}

	d.applicantEvent(ctx, "contact confirmation", m.Email,
		"We received your enquiry – "+AcademyName, contactReceivedTmpl, data)
}

// LearnerReviewed emails the learner the outcome of a review.
func (d *Dispatcher) LearnerReviewed(ctx context.Context, a *models.LearnerApplication) {
	var (
		tmpl  *template.Template
		label string
	)
	switch a.Status {
	case models.StatusApproved:
		tmpl, label = learnerApprovedTmpl, "Approved"
	case models.StatusDeclined:
		tmpl, label = learnerDeclinedTmpl, "Declined"
	default:
		logger.Warn("learner status email skipped", "id", a.ID, "status", a.Status)
		return
	}

	data := emailData{Name: a.FullName, Program: a.ProgramInterest}
	if a.AdminNotes != nil {
		data.Notes = *a.AdminNotes
	}
	d.applicantEvent(ctx, "learner status", a.Email,
		fmt.Sprintf("Your application status: %s – %s", label, AcademyName), tmpl, data)
}

// ClientReviewed emails the contact person the outcome of a review.
func (d *Dispatcher) ClientReviewed(ctx context.Context, a *models.ClientApplication) {
	if a.Status != models.StatusApproved && a.Status != models.StatusDeclined {
		logger.Warn("client status email skipped", "id", a.ID, "status", a.Status)
		return
	}

	data := emailData{
		Name:    a.ContactPerson,
		Company: a.CompanyName,
		Service: a.ServiceInterest,
		Status:  a.Status,
	}
	if a.AdminNotes != nil {
		data.Notes = *a.AdminNotes
	}
	d.applicantEvent(ctx, "client status", a.Email,
		"Your training enquiry has been "+a.Status, clientReviewedTmpl, data)
}

func (d *Dispatcher) ownerEvent(ctx context.Context, event, title, content string) {
	ok, err := d.NotifyOwner(ctx, title, content)
	switch {
	case errors.Is(err, ErrOwnerNotConfigured):
		logger.Warn("owner notification skipped", "event", event, "err", err)
	case err != nil:
		logger.Error("owner notification rejected", "event", event, "err", err)
	case !ok:
		logger.Warn("owner notification not delivered", "event", event)
	}
}

func (d *Dispatcher) applicantEvent(ctx context.Context, event, to, subject string, tmpl *template.Template, data emailData) {
	data.Academy = AcademyName
	data.ReplyTo = d.ReplyAddress()

	body, err := render(tmpl, data)
	if err != nil {
		logger.Error("render applicant email", "event", event, "err", err)
		return
	}
	if !d.SendApplicantEmail(ctx, to, subject, body) {
		logger.Warn("applicant email not delivered", "event", event, "to", to)
	}
}
