package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"detailing/internal/models"

	"github.com/go-playground/validator/v10"
)

const (
	msgContactFieldsRequired = "Name, email, and message are required"
	msgInvalidEmail          = "Invalid email address"
)

// Validator checks booking drafts and contact messages. Time slot and service
// type checks read the current catalog on every call.
type Validator struct {
	validate *validator.Validate
	catalog  func() *models.Catalog
}

func NewValidator(catalog func() *models.Catalog) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	val := &Validator{validate: v, catalog: catalog}
	mustRegister(v, "timeslot", func(fl validator.FieldLevel) bool {
		return val.catalog().HasTime(fl.Field().String())
	})
	mustRegister(v, "servicetype", func(fl validator.FieldLevel) bool {
		_, ok := val.catalog().Service(fl.Field().String())
		return ok
	})
	return val
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %q validator: %v", tag, err))
	}
}

// ValidateDraft returns the first problem with d. Missing fields are reported
// before malformed ones, in form order.
func (v *Validator) ValidateDraft(d *models.BookingDraft) error {
	err := v.validate.Struct(d)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	first := fieldErrs[0]
	for _, fe := range fieldErrs {
		if isPresenceTag(fe.Tag()) {
			first = fe
			break
		}
	}
	return &ValidationError{Field: first.Field(), Message: draftMessage(first)}
}

func isPresenceTag(tag string) bool {
	return tag == "required" || tag == "required_if"
}

func draftMessage(fe validator.FieldError) string {
	switch fe.Field() {
	case "contactMethod":
		if fe.Tag() == "required" {
			return "Contact method is required"
		}
		return "Contact method must be email or phone"
	case "email":
		return "Email is required when email contact method is selected"
	case "phone":
		return "Phone number is required when phone contact method is selected"
	}

	switch fe.Tag() {
	case "required":
		return "Missing required field: " + fe.Field()
	case "datetime":
		return "Invalid serviceDate; expected YYYY-MM-DD"
	case "timeslot":
		return fmt.Sprintf("Invalid serviceTime %q; not an offered time slot", fe.Value())
	case "servicetype":
		return fmt.Sprintf("Unknown serviceType %q", fe.Value())
	default:
		return fmt.Sprintf("Invalid value for %s", fe.Field())
	}
}

// ValidateSlot checks a (date, time) pair with the same rules as a draft.
func (v *Validator) ValidateSlot(date, slotTime string) error {
	if err := v.validate.Var(date, "datetime=2006-01-02"); err != nil {
		return &ValidationError{Field: "serviceDate", Message: "Invalid serviceDate; expected YYYY-MM-DD"}
	}
	if err := v.validate.Var(slotTime, "timeslot"); err != nil {
		return &ValidationError{
			Field:   "serviceTime",
			Message: fmt.Sprintf("Invalid serviceTime %q; not an offered time slot", slotTime),
		}
	}
	return nil
}

// ValidateContact checks a contact form message.
func (v *Validator) ValidateContact(m *models.ContactMessage) error {
	err := v.validate.Struct(m)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	for _, fe := range fieldErrs {
		if fe.Tag() == "required" {
			return &ValidationError{Field: fe.Field(), Message: msgContactFieldsRequired}
		}
	}
	return &ValidationError{Field: fieldErrs[0].Field(), Message: msgInvalidEmail}
}
