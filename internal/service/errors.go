package service

import (
	"errors"
	"fmt"
)

// ErrSlotUnavailable is returned when the requested slot is held by another
// booking, whether detected by the pre-check or by the ledger at reserve time.
var ErrSlotUnavailable = errors.New("slot unavailable")

// ValidationError names the first invalid field of a submission.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

// IsValidation reports whether err is a *ValidationError.
func IsValidation(err error) (*ValidationError, bool) {
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return vErr, true
	}
	return nil, false
}
