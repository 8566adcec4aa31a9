package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus_Transitions(t *testing.T) {
	tests := []struct {
		name    string
		from    Status
		to      Status
		allowed bool
	}{
		{"pending to confirmed", StatusPending, StatusConfirmed, true},
		{"pending to cancelled", StatusPending, StatusCancelled, true},
		{"confirmed to cancelled", StatusConfirmed, StatusCancelled, true},
		{"confirmed back to pending", StatusConfirmed, StatusPending, false},
		{"cancelled is terminal", StatusCancelled, StatusPending, false},
		{"cancelled to confirmed", StatusCancelled, StatusConfirmed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransition(tt.to))
		})
	}

	assert.True(t, StatusPending.OccupiesSlot())
	assert.True(t, StatusConfirmed.OccupiesSlot())
	assert.False(t, StatusCancelled.OccupiesSlot())
}

func TestBooking_Helpers(t *testing.T) {
	b := &Booking{
		ContactMethod: ContactEmail,
		Email:         "jo@example.com",
		Phone:         "0400 000 000",
		Address:       "1 Beach Rd",
		City:          "Manly",
		State:         "NSW",
		Postcode:      "2095",
		ServiceDate:   "2024-06-01",
		ServiceTime:   "09:30",
	}

	t.Run("ContactInfo", func(t *testing.T) {
		assert.Equal(t, "Email: jo@example.com", b.ContactInfo())
		p := *b
		p.ContactMethod = ContactPhone
		assert.Equal(t, "Phone: 0400 000 000", p.ContactInfo())
	})

	t.Run("FullAddress", func(t *testing.T) {
		assert.Equal(t, "1 Beach Rd\nManly, NSW 2095", b.FullAddress())
		withLine2 := *b
		withLine2.AddressLine2 = "Unit 4"
		assert.Equal(t, "1 Beach Rd, Unit 4\nManly, NSW 2095", withLine2.FullAddress())
	})

	t.Run("Slot", func(t *testing.T) {
		assert.Equal(t, Slot{Date: "2024-06-01", Time: "09:30"}, b.Slot())
	})
}

func TestBookingDraft_Normalize(t *testing.T) {
	d := &BookingDraft{
		CustomerName:  "  Jo  ",
		ContactMethod: " EMAIL ",
		City:          "\tManly\n",
		Email:         "   ",
	}
	d.Normalize()

	assert.Equal(t, "Jo", d.CustomerName)
	assert.Equal(t, ContactEmail, d.ContactMethod)
	assert.Equal(t, "Manly", d.City)
	assert.Empty(t, d.Email)
}

func TestCatalog(t *testing.T) {
	c := DefaultCatalog()

	assert.NoError(t, c.Validate())
	assert.True(t, c.HasTime("09:30"))
	assert.False(t, c.HasTime("09:00"))
	assert.Equal(t, "Exterior Wash - $35", c.ServiceDisplay("exterior"))
	assert.Equal(t, "Full Detail - $120", c.ServiceDisplay("detail"))
	assert.Equal(t, "mystery", c.ServiceDisplay("mystery"))

	t.Run("invalid", func(t *testing.T) {
		assert.Error(t, (&Catalog{}).Validate())
		assert.Error(t, (&Catalog{
			TimeSlots: []TimeSlot{{Value: "9:30"}},
			Services:  c.Services,
		}).Validate())
		assert.Error(t, (&Catalog{
			TimeSlots: []TimeSlot{{Value: "09:30"}, {Value: "09:30"}},
			Services:  c.Services,
		}).Validate())
	})
}
