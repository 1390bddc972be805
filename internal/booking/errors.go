package booking

import (
	"errors"
	"fmt"
)

// Business-rule outcomes. These are expected results surfaced to callers,
// never process-level failures; the API layer maps each to a status code.
var (
	ErrSlotFull         = errors.New("no room is free for the requested slot")
	ErrClosedDay        = errors.New("the clinic is closed on the requested day")
	ErrInvalidSlotTime  = errors.New("requested time is not a bookable slot")
	ErrDuplicatePatient = errors.New("a patient with this phone already exists")
	ErrNotInSeries      = errors.New("appointment does not belong to a series")
	ErrValidation       = errors.New("validation failed")
)

// validationf wraps ErrValidation with the offending field so the booking
// UI can show a field error instead of suggesting alternate times.
func validationf(field, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrValidation, field, fmt.Sprintf(format, args...))
}
