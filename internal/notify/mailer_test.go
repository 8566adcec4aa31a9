package notify

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"detailing/internal/config"
	"detailing/internal/events"
	"detailing/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"
)

type fakeMailSender struct {
	sent []*mail.Msg
	err  error
}

func (f *fakeMailSender) DialAndSendWithContext(_ context.Context, msgs ...*mail.Msg) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msgs...)
	return nil
}

func newTestMailer(sender mailSender) *Mailer {
	logger := zerolog.New(io.Discard)
	cfg := config.EmailConfig{From: "noreply@example.com", CompanyEmail: "owner@example.com"}
	return NewMailer(sender, cfg, models.DefaultCatalog, time.UTC, &logger)
}

func sampleBooking() *models.Booking {
	return &models.Booking{
		ID:                  42,
		CustomerName:        "Alice Smith",
		ContactMethod:       models.ContactPhone,
		Phone:               "0400 111 222",
		ServiceDate:         "2024-06-01",
		ServiceTime:         "09:30",
		ServiceType:         "full",
		VehicleType:         "suv",
		Address:             "1 Main St",
		AddressLine2:        "Unit 4",
		City:                "Perth",
		State:               "WA",
		Postcode:            "6000",
		SpecialInstructions: "Gate code 1234",
		Newsletter:          true,
		Status:              models.StatusPending,
		CreatedAt:           time.Date(2024, 5, 20, 2, 30, 0, 0, time.UTC),
	}
}

func TestMailer_BookingEmail(t *testing.T) {
	sender := &fakeMailSender{}
	m := newTestMailer(sender)

	require.NoError(t, m.Notify(context.Background(), events.NewBookingCreated(sampleBooking())))
	require.Len(t, sender.sent, 1)

	msg := sender.sent[0]
	assert.Equal(t, []string{"New Booking Request - Alice Smith"}, msg.GetGenHeader(mail.HeaderSubject))
	rcpts, err := msg.GetRecipients()
	require.NoError(t, err)
	assert.Equal(t, []string{"owner@example.com"}, rcpts)
}

func TestRender_BookingText(t *testing.T) {
	view := newBookingView(sampleBooking(), models.DefaultCatalog(), time.UTC)
	text, html, err := render("booking", view)
	require.NoError(t, err)

	for _, want := range []string{
		"- Contact: Phone: 0400 111 222",
		"- Date: Saturday, 1 June 2024",
		"- Service Type: Exterior and Interior - $85",
		"- Vehicle Type: Suv",
		"1 Main St, Unit 4\nPerth, WA 6000",
		"Special Instructions: Gate code 1234",
		"- Newsletter Subscription: Yes",
		"- Booking ID: 42",
		"- Submitted: 20/05/2024, 2:30:00 am",
	} {
		assert.Contains(t, text, want)
	}
	assert.Contains(t, html, "<b>Booking ID:</b> 42")
}

func TestRender_EscapesHTML(t *testing.T) {
	b := sampleBooking()
	b.SpecialInstructions = "<script>alert(1)</script>"
	_, html, err := render("booking", newBookingView(b, models.DefaultCatalog(), time.UTC))
	require.NoError(t, err)
	assert.NotContains(t, html, "<script>")
}

func TestMailer_ContactEmailSetsReplyTo(t *testing.T) {
	sender := &fakeMailSender{}
	m := newTestMailer(sender)

	msg := &models.ContactMessage{Name: "Bob", Email: "bob@example.com", Message: "Do you do boats?", SubmittedAt: time.Now()}
	require.NoError(t, m.Notify(context.Background(), events.NewContactSubmitted(msg)))
	require.Len(t, sender.sent, 1)

	assert.Equal(t, []string{"New Contact Form Message - Bob"}, sender.sent[0].GetGenHeader(mail.HeaderSubject))
	replyTo := sender.sent[0].GetGenHeader(mail.HeaderReplyTo)
	require.Len(t, replyTo, 1)
	assert.True(t, strings.Contains(replyTo[0], "bob@example.com"))

	text, _, err := render("contact", newContactView(msg, time.UTC))
	require.NoError(t, err)
	assert.NotContains(t, text, "- Phone:")
	assert.Contains(t, text, "Please reply directly to the customer's email: bob@example.com")
}

func TestMailer_Errors(t *testing.T) {
	m := newTestMailer(&fakeMailSender{})
	err := m.Notify(context.Background(), events.Event{Type: events.BookingCreated})
	assert.ErrorIs(t, err, ErrPermanent)

	boom := errors.New("connection refused")
	m = newTestMailer(&fakeMailSender{err: boom})
	err = m.Notify(context.Background(), events.NewBookingCreated(sampleBooking()))
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrPermanent)
}
