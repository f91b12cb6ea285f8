// Package notify delivers the academy's transactional email. Every send is
// best effort: failures are logged and reported as false, never returned to
// the RPC caller.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/dynamicdna/academy/internal/jobs"
)

const (
	TitleMaxLength   = 1200
	ContentMaxLength = 20000

	// AcademyName signs every outgoing email.
	AcademyName = "dynamicDNA Academy"
	// FallbackReplyAddress is quoted to applicants when no owner email is configured.
	FallbackReplyAddress = "enquiries@dynamicdna.co.za"

	emailJob = "email"
)

var (
	// ErrBadInput marks an owner notification with a missing or oversized title or content.
	ErrBadInput = errors.New("invalid notification payload")
	// ErrOwnerNotConfigured is returned by NotifyOwner when OWNER_EMAIL is unset.
	ErrOwnerNotConfigured = errors.New("owner email is not configured")
)

// package-level logger; can be replaced by callers via SetLogger
var logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))

// SetLogger installs a logger for the notify package. Passing nil is a no-op.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}

// Message is one outgoing email with a plain text body and its HTML alternative.
type Message struct {
	From    string
	To      string
	Subject string
	Text    string
	HTML    string
}

// Mailer delivers a single message.
type Mailer interface {
	Send(ctx context.Context, m Message) error
}

// Options configures a Dispatcher.
type Options struct {
	OwnerEmail string
	From       string
	// Pool, when set, makes deliveries asynchronous. The pool must have
	// been built with Handlers.
	Pool *jobs.WorkerPool
}

// Dispatcher turns application events into owner and applicant emails.
type Dispatcher struct {
	mailer Mailer
	owner  string
	from   string
	pool   *jobs.WorkerPool
}

// New returns a Dispatcher that sends through m.
func New(m Mailer, o Options) *Dispatcher {
	return &Dispatcher{
		mailer: m,
		owner:  strings.TrimSpace(o.OwnerEmail),
		from:   strings.TrimSpace(o.From),
		pool:   o.Pool,
	}
}

// Handlers returns the job handlers an async WorkerPool needs to deliver mail through m.
func Handlers(m Mailer) map[string]jobs.Handler {
	return map[string]jobs.Handler{
		emailJob: func(ctx context.Context, j *jobs.Job) error {
			msg, ok := j.Payload.(Message)
			if !ok {
				return fmt.Errorf("unexpected email payload %T", j.Payload)
			}
			if err := m.Send(ctx, msg); err != nil {
				return fmt.Errorf("send to %s: %w", msg.To, err)
			}
			logger.Info("email sent", "to", msg.To, "subject", msg.Subject, "async", true)
			return nil
		},
	}
}

// ReplyAddress is the contact address quoted in applicant emails.
func (d *Dispatcher) ReplyAddress() string {
	if d.owner != "" {
		return d.owner
	}
	return FallbackReplyAddress
}

// NotifyOwner emails the site owner. Title and content are trimmed and must
// be non-empty and within TitleMaxLength / ContentMaxLength characters.
// Delivery failures are logged and reported as false with a nil error.
func (d *Dispatcher) NotifyOwner(ctx context.Context, title, content string) (bool, error) {
	title = strings.TrimSpace(title)
	content = strings.TrimSpace(content)

	switch {
	case title == "":
		return false, fmt.Errorf("%w: notification title is required", ErrBadInput)
	case content == "":
		return false, fmt.Errorf("%w: notification content is required", ErrBadInput)
	case utf8.RuneCountInString(title) > TitleMaxLength:
		return false, fmt.Errorf("%w: notification title must be at most %d characters", ErrBadInput, TitleMaxLength)
	case utf8.RuneCountInString(content) > ContentMaxLength:
		return false, fmt.Errorf("%w: notification content must be at most %d characters", ErrBadInput, ContentMaxLength)
	}
	if d.owner == "" {
		return false, ErrOwnerNotConfigured
	}

	return d.deliver(ctx, d.owner, title, content), nil
}

// SendApplicantEmail emails an applicant. It never fails: an empty address
// or a transport error is logged and reported as false.
func (d *Dispatcher) SendApplicantEmail(ctx context.Context, to, subject, body string) bool {
	to = strings.TrimSpace(to)
	if to == "" {
		logger.Warn("applicant email skipped: no recipient", "subject", subject)
		return false
	}
	return d.deliver(ctx, to, subject, body)
}

func (d *Dispatcher) deliver(ctx context.Context, to, subject, body string) bool {
	msg := Message{
		From:    d.sender(),
		To:      to,
		Subject: subject,
		Text:    body,
		HTML:    htmlBody(body),
	}

	if d.pool != nil {
		_, err := d.pool.Enqueue(ctx, emailJob, msg)
		if err == nil {
			return true
		}
		logger.Warn("email queue unavailable, sending inline", "to", to, "err", err)
	}

	if err := d.mailer.Send(ctx, msg); err != nil {
		logger.Error("email send failed", "to", to, "subject", subject, "err", err)
		return false
	}
	logger.Info("email sent", "to", to, "subject", subject)
	return true
}

func (d *Dispatcher) sender() string {
	if d.from != "" {
		return d.from
	}
	return d.owner
}
