package service

import (
	"testing"

	"detailing/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateDraft(t *testing.T) {
	v := NewValidator(models.DefaultCatalog)

	tests := []struct {
		name      string
		mutate    func(d *models.BookingDraft)
		wantField string
		wantMsg   string
	}{
		{
			name:   "valid email contact",
			mutate: func(*models.BookingDraft) {},
		},
		{
			name: "valid phone contact",
			mutate: func(d *models.BookingDraft) {
				d.ContactMethod = models.ContactPhone
				d.Email = ""
				d.Phone = "0400 000 000"
			},
		},
		{
			name:      "missing name",
			mutate:    func(d *models.BookingDraft) { d.CustomerName = "" },
			wantField: "customerName",
			wantMsg:   "Missing required field: customerName",
		},
		{
			name:      "missing vehicle type",
			mutate:    func(d *models.BookingDraft) { d.VehicleType = "" },
			wantField: "vehicleType",
			wantMsg:   "Missing required field: vehicleType",
		},
		{
			name: "missing field wins over malformed earlier field",
			mutate: func(d *models.BookingDraft) {
				d.ServiceDate = "01/06/2024"
				d.Postcode = ""
			},
			wantField: "postcode",
			wantMsg:   "Missing required field: postcode",
		},
		{
			name:      "missing contact method",
			mutate:    func(d *models.BookingDraft) { d.ContactMethod = "" },
			wantField: "contactMethod",
			wantMsg:   "Contact method is required",
		},
		{
			name:      "email method without email",
			mutate:    func(d *models.BookingDraft) { d.Email = "" },
			wantField: "email",
			wantMsg:   "Email is required when email contact method is selected",
		},
		{
			name: "phone method without phone",
			mutate: func(d *models.BookingDraft) {
				d.ContactMethod = models.ContactPhone
			},
			wantField: "phone",
			wantMsg:   "Phone number is required when phone contact method is selected",
		},
		{
			name:      "unknown contact method",
			mutate:    func(d *models.BookingDraft) { d.ContactMethod = "sms" },
			wantField: "contactMethod",
			wantMsg:   "Contact method must be email or phone",
		},
		{
			name:      "bad date",
			mutate:    func(d *models.BookingDraft) { d.ServiceDate = "2024-13-01" },
			wantField: "serviceDate",
			wantMsg:   "Invalid serviceDate; expected YYYY-MM-DD",
		},
		{
			name:      "time not in catalog",
			mutate:    func(d *models.BookingDraft) { d.ServiceTime = "10:00" },
			wantField: "serviceTime",
		},
		{
			name:      "unknown service",
			mutate:    func(d *models.BookingDraft) { d.ServiceType = "ceramic" },
			wantField: "serviceType",
			wantMsg:   `Unknown serviceType "ceramic"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDraft()
			tt.mutate(d)

			err := v.ValidateDraft(d)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			vErr, ok := IsValidation(err)
			require.True(t, ok, "got %v", err)
			assert.Equal(t, tt.wantField, vErr.Field)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, vErr.Message)
			}
		})
	}
}

func TestValidateContact(t *testing.T) {
	v := NewValidator(models.DefaultCatalog)

	ok := &models.ContactMessage{Name: "Bob", Email: "bob@example.com", Message: "Hi"}
	assert.NoError(t, v.ValidateContact(ok))

	err := v.ValidateContact(&models.ContactMessage{Name: "Bob", Email: "bob@example.com"})
	vErr, isVal := IsValidation(err)
	require.True(t, isVal)
	assert.Equal(t, "Name, email, and message are required", vErr.Message)

	err = v.ValidateContact(&models.ContactMessage{Name: "Bob", Email: "not-an-email", Message: "Hi"})
	vErr, isVal = IsValidation(err)
	require.True(t, isVal)
	assert.Equal(t, "email", vErr.Field)
	assert.Equal(t, "Invalid email address", vErr.Message)
}
