package notify

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"detailing/internal/models"
)

// bookingView is the booking as the business reads it in alerts.
type bookingView struct {
	Booking    *models.Booking
	Contact    string
	Date       string
	Service    string
	Vehicle    string
	Address    string
	Newsletter string
	Submitted  string
}

type contactView struct {
	Message   *models.ContactMessage
	Submitted string
}

func newBookingView(b *models.Booking, catalog *models.Catalog, loc *time.Location) bookingView {
	return bookingView{
		Booking:    b,
		Contact:    b.ContactInfo(),
		Date:       longDate(b.ServiceDate),
		Service:    catalog.ServiceDisplay(b.ServiceType),
		Vehicle:    capitalize(b.VehicleType),
		Address:    b.FullAddress(),
		Newsletter: yesNo(b.Newsletter),
		Submitted:  localTimestamp(b.CreatedAt, loc),
	}
}

func newContactView(m *models.ContactMessage, loc *time.Location) contactView {
	return contactView{Message: m, Submitted: localTimestamp(m.SubmittedAt, loc)}
}

// longDate renders "2024-06-01" as "Saturday, 1 June 2024"; unparsable input
// is returned unchanged.
func longDate(date string) string {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date
	}
	return t.Format("Monday, 2 January 2006")
}

func localTimestamp(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		t = time.Now()
	}
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format("02/01/2006, 3:04:05 pm")
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}

func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
