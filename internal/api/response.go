package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/visioncare/clinic-scheduler/internal/booking"
	redisclient "github.com/visioncare/clinic-scheduler/internal/redis"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

// writeBookingError maps a service error onto a status code. The booking
// UI distinguishes "slot full" (offer other times) from "bad input" (show
// the field) from "not found", so the code string matters.
func writeBookingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrValidation):
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, booking.ErrClosedDay):
		writeError(w, http.StatusBadRequest, "clinic_closed", err.Error())
	case errors.Is(err, booking.ErrInvalidSlotTime):
		writeError(w, http.StatusBadRequest, "invalid_slot_time", err.Error())
	case errors.Is(err, booking.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, booking.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, booking.ErrSeriesNotFound):
		writeError(w, http.StatusNotFound, "series_not_found", err.Error())
	case errors.Is(err, booking.ErrReasonNotFound):
		writeError(w, http.StatusNotFound, "reason_not_found", err.Error())
	case errors.Is(err, booking.ErrDuplicatePatient):
		writeError(w, http.StatusConflict, "duplicate_patient", err.Error())
	case errors.Is(err, booking.ErrSlotFull), errors.Is(err, booking.ErrRoomConflict):
		writeError(w, http.StatusConflict, "slot_full", err.Error())
	case errors.Is(err, redisclient.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, "slot_being_booked", "slot is currently being booked, please retry shortly")
	case errors.Is(err, booking.ErrNotInSeries):
		writeError(w, http.StatusUnprocessableEntity, "not_in_series", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected error")
	}
}
