package notify

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
	"time"

	"detailing/internal/config"
	"detailing/internal/events"
	"detailing/internal/models"

	"github.com/rs/zerolog"
	"github.com/wneessen/go-mail"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var (
	textTemplates = texttemplate.Must(texttemplate.ParseFS(templateFS, "templates/*.txt.tmpl"))
	htmlTemplates = htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/*.html.tmpl"))
)

// mailSender is the part of *mail.Client the mailer needs.
type mailSender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// Mailer emails booking requests and contact messages to the business inbox.
type Mailer struct {
	client  mailSender
	from    string
	to      string
	catalog func() *models.Catalog
	loc     *time.Location
	logger  *zerolog.Logger
}

// NewSMTPClient builds a go-mail client for either Gmail with an app password
// or a generic SMTP host.
func NewSMTPClient(cfg config.EmailConfig) (*mail.Client, error) {
	opts := []mail.Option{}
	if cfg.Secure {
		opts = append(opts, mail.WithSSLPort(false))
	} else {
		opts = append(opts, mail.WithTLSPortPolicy(mail.TLSOpportunistic))
	}
	opts = append(opts, mail.WithPort(cfg.Port), mail.WithTimeout(10*time.Second))
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return client, nil
}

func NewMailer(client mailSender, cfg config.EmailConfig, catalog func() *models.Catalog, loc *time.Location, logger *zerolog.Logger) *Mailer {
	return &Mailer{
		client:  client,
		from:    cfg.From,
		to:      cfg.CompanyEmail,
		catalog: catalog,
		loc:     loc,
		logger:  logger,
	}
}

func (m *Mailer) Name() string { return "email" }

func (m *Mailer) Notify(ctx context.Context, event events.Event) error {
	msg, err := m.buildMessage(event)
	if err != nil {
		return Permanent(err)
	}

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		var sendErr *mail.SendError
		if errors.As(err, &sendErr) && !sendErr.IsTemp() {
			return Permanent(err)
		}
		return fmt.Errorf("send mail: %w", err)
	}

	m.logger.Info().
		Str("event", string(event.Type)).
		Str("to", m.to).
		Msg("Notification email sent")
	return nil
}

func (m *Mailer) buildMessage(event events.Event) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return nil, fmt.Errorf("from address: %w", err)
	}
	if err := msg.To(m.to); err != nil {
		return nil, fmt.Errorf("to address: %w", err)
	}

	var (
		subject, base string
		data          any
	)
	switch event.Type {
	case events.BookingCreated:
		if event.Booking == nil {
			return nil, fmt.Errorf("%s event without booking", event.Type)
		}
		subject = "New Booking Request - " + event.Booking.CustomerName
		base = "booking"
		data = newBookingView(event.Booking, m.catalog(), m.loc)
	case events.ContactSubmitted:
		if event.Contact == nil {
			return nil, fmt.Errorf("%s event without message", event.Type)
		}
		subject = "New Contact Form Message - " + event.Contact.Name
		base = "contact"
		data = newContactView(event.Contact, m.loc)
		if err := msg.ReplyTo(event.Contact.Email); err != nil {
			return nil, fmt.Errorf("reply-to address: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported event type %q", event.Type)
	}

	text, html, err := render(base, data)
	if err != nil {
		return nil, err
	}

	msg.Subject(singleLine(subject))
	msg.SetBodyString(mail.TypeTextPlain, text)
	msg.AddAlternativeString(mail.TypeTextHTML, html)
	return msg, nil
}

func render(base string, data any) (string, string, error) {
	var text, html bytes.Buffer
	if err := textTemplates.ExecuteTemplate(&text, base+".txt.tmpl", data); err != nil {
		return "", "", fmt.Errorf("render %s text: %w", base, err)
	}
	if err := htmlTemplates.ExecuteTemplate(&html, base+".html.tmpl", data); err != nil {
		return "", "", fmt.Errorf("render %s html: %w", base, err)
	}
	return text.String(), html.String(), nil
}
