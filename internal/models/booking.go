package models

import (
	"strings"
	"time"
)

// ContactMethod is how the customer prefers to be reached.
type ContactMethod string

const (
	ContactEmail ContactMethod = "email"
	ContactPhone ContactMethod = "phone"
)

// Status of a booking. Only pending is written today; confirmed and
// cancelled are reserved for admin tooling.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

var statusTransitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCancelled},
	StatusCancelled: {},
}

// OccupiesSlot reports whether a booking in this status holds its slot.
func (s Status) OccupiesSlot() bool {
	return s != StatusCancelled
}

// CanTransition checks if a booking may move from s to next.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Slot is a (service date, service time) pair.
type Slot struct {
	Date string `json:"date"` // YYYY-MM-DD
	Time string `json:"time"` // HH:MM
}

// Booking is a persisted service booking.
type Booking struct {
	ID                  int64         `json:"id"`
	CustomerName        string        `json:"customerName"`
	ContactMethod       ContactMethod `json:"contactMethod"`
	Email               string        `json:"email,omitempty"`
	Phone               string        `json:"phone,omitempty"`
	ServiceDate         string        `json:"serviceDate"`
	ServiceTime         string        `json:"serviceTime"`
	ServiceType         string        `json:"serviceType"`
	VehicleType         string        `json:"vehicleType"`
	Address             string        `json:"address"`
	AddressLine2        string        `json:"addressLine2,omitempty"`
	City                string        `json:"city"`
	State               string        `json:"state"`
	Postcode            string        `json:"postcode"`
	SpecialInstructions string        `json:"specialInstructions,omitempty"`
	Newsletter          bool          `json:"newsletter"`
	Status              Status        `json:"status"`
	CreatedAt           time.Time     `json:"createdAt"`
}

// Slot returns the slot the booking occupies (unless cancelled).
func (b *Booking) Slot() Slot {
	return Slot{Date: b.ServiceDate, Time: b.ServiceTime}
}

// ContactInfo formats the preferred contact channel, e.g. "Email: a@b.c".
func (b *Booking) ContactInfo() string {
	if b.ContactMethod == ContactEmail {
		return "Email: " + b.Email
	}
	return "Phone: " + b.Phone
}

// FullAddress joins the address lines as "line1, line2\ncity, state postcode".
func (b *Booking) FullAddress() string {
	var sb strings.Builder
	sb.WriteString(b.Address)
	if b.AddressLine2 != "" {
		sb.WriteString(", ")
		sb.WriteString(b.AddressLine2)
	}
	sb.WriteString("\n")
	sb.WriteString(b.City)
	sb.WriteString(", ")
	sb.WriteString(b.State)
	sb.WriteString(" ")
	sb.WriteString(b.Postcode)
	return sb.String()
}

// BookingDraft is an unvalidated booking submission as posted by the web form.
type BookingDraft struct {
	CustomerName        string        `json:"customerName" validate:"required"`
	ServiceDate         string        `json:"serviceDate" validate:"required,datetime=2006-01-02"`
	ServiceTime         string        `json:"serviceTime" validate:"required,timeslot"`
	ServiceType         string        `json:"serviceType" validate:"required,servicetype"`
	VehicleType         string        `json:"vehicleType" validate:"required"`
	Address             string        `json:"address" validate:"required"`
	City                string        `json:"city" validate:"required"`
	State               string        `json:"state" validate:"required"`
	Postcode            string        `json:"postcode" validate:"required"`
	ContactMethod       ContactMethod `json:"contactMethod" validate:"required,oneof=email phone"`
	Email               string        `json:"email" validate:"required_if=ContactMethod email"`
	Phone               string        `json:"phone" validate:"required_if=ContactMethod phone"`
	AddressLine2        string        `json:"addressLine2"`
	SpecialInstructions string        `json:"specialInstructions"`
	Newsletter          bool          `json:"newsletter"`
}

// Normalize trims surrounding whitespace so blank values count as missing.
func (d *BookingDraft) Normalize() {
	for _, f := range []*string{
		&d.CustomerName, &d.ServiceDate, &d.ServiceTime, &d.ServiceType, &d.VehicleType,
		&d.Address, &d.City, &d.State, &d.Postcode, &d.Email, &d.Phone,
		&d.AddressLine2, &d.SpecialInstructions,
	} {
		*f = strings.TrimSpace(*f)
	}
	d.ContactMethod = ContactMethod(strings.ToLower(strings.TrimSpace(string(d.ContactMethod))))
}

// Slot returns the requested slot.
func (d *BookingDraft) Slot() Slot {
	return Slot{Date: d.ServiceDate, Time: d.ServiceTime}
}
