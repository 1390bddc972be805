package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/visioncare/clinic-scheduler/internal/booking"
	"github.com/visioncare/clinic-scheduler/internal/clinic"
)

// BookingService is the slice of the booking service the HTTP layer uses.
type BookingService interface {
	FindPatientByPhone(ctx context.Context, phone string) (*booking.Patient, error)
	GetAvailability(ctx context.Context, date time.Time) (*booking.DayAvailability, error)
	BookAppointment(ctx context.Context, in booking.BookingInput) (*booking.Appointment, error)
	ListAppointments(ctx context.Context, date *time.Time) ([]booking.AppointmentDetail, error)
	SetStatus(ctx context.Context, id uuid.UUID, label string) (*booking.Appointment, error)
	Reschedule(ctx context.Context, id uuid.UUID, newDate *time.Time, newTime *string) (*booking.Appointment, error)
	CreateSeries(ctx context.Context, in booking.SeriesInput) (*booking.SeriesResult, error)
	EditOccurrence(ctx context.Context, appointmentID uuid.UUID, edit booking.OccurrenceEdit) (*booking.Appointment, error)
	CancelSeries(ctx context.Context, seriesID uuid.UUID) (int, error)
	WeeklyReport(ctx context.Context, rangeDays int) ([]booking.AppointmentDetail, error)
}

type Handler struct {
	svc             BookingService
	therapyReasonID int
}

func NewHandler(svc BookingService, therapyReasonID int) *Handler {
	return &Handler{svc: svc, therapyReasonID: therapyReasonID}
}

func (h *Handler) SearchPatient(w http.ResponseWriter, r *http.Request) {
	var req SearchPatientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	patient, err := h.svc.FindPatientByPhone(r.Context(), req.Phone)
	if err != nil {
		if errors.Is(err, booking.ErrPatientNotFound) {
			writeJSON(w, http.StatusOK, SearchPatientResponse{IsNew: true})
			return
		}
		writeBookingError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, SearchPatientResponse{IsNew: false, Patient: toPatientResponse(patient)})
}

func (h *Handler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	var req AvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	date, err := clinic.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date", err.Error())
		return
	}

	day, err := h.svc.GetAvailability(r.Context(), date)
	if err != nil {
		writeBookingError(w, err)
		return
	}

	slots := make(map[string]string, len(day.Slots))
	for t, st := range day.Slots {
		slots[t] = string(st)
	}
	writeJSON(w, http.StatusOK, AvailabilityResponse{Closed: day.Closed, Slots: slots})
}

func (h *Handler) BookAppointment(w http.ResponseWriter, r *http.Request) {
	var req BookAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	date, err := clinic.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date", err.Error())
		return
	}

	in := booking.BookingInput{
		Patient: booking.PatientInput{
			IsNew:      req.IsNew,
			GivenName:  req.GivenName,
			FamilyName: req.FamilyName,
			Age:        req.Age,
			Phone:      req.Phone,
		},
		Date:     date,
		Time:     req.Time,
		ReasonID: req.ReasonID,
	}
	if id, ok := GetIdentity(r.Context()); ok {
		in.AssignedTo = &id.UserID
	}

	appt, err := h.svc.BookAppointment(r.Context(), in)
	if err != nil {
		writeBookingError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
}

func (h *Handler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	var date *time.Time
	if raw := r.URL.Query().Get("date"); raw != "" {
		d, err := clinic.ParseDate(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", err.Error())
			return
		}
		date = &d
	}

	details, err := h.svc.ListAppointments(r.Context(), date)
	if err != nil {
		writeBookingError(w, err)
		return
	}

	out := make([]AppointmentDetailResponse, 0, len(details))
	for _, d := range details {
		out = append(out, toDetailResponse(d))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
		return
	}

	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	appt, err := h.svc.SetStatus(r.Context(), id, req.Status)
	if err != nil {
		writeBookingError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *Handler) EditAppointment(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
		return
	}

	var req EditAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	newDate, err := parseOptionalDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date", err.Error())
		return
	}

	appt, err := h.svc.Reschedule(r.Context(), id, newDate, req.Time)
	if err != nil {
		writeBookingError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *Handler) BookSeries(w http.ResponseWriter, r *http.Request) {
	var req BookSeriesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	start, err := clinic.ParseDate(req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date", err.Error())
		return
	}

	patient := booking.PatientInput{
		IsNew:      req.IsNew,
		GivenName:  req.GivenName,
		FamilyName: req.FamilyName,
		Age:        req.Age,
		Phone:      req.Phone,
	}

	// A non-recurring therapy request is just a single booking.
	if !req.Recurring {
		appt, err := h.svc.BookAppointment(r.Context(), booking.BookingInput{
			Patient:  patient,
			Date:     start,
			Time:     req.StartTime,
			ReasonID: h.therapyReasonID,
		})
		if err != nil {
			writeBookingError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, SeriesResponse{
			Appointment:  toAppointmentResponse(appt),
			TotalCreated: 1,
		})
		return
	}

	in := booking.SeriesInput{
		Patient:   patient,
		StartDate: start,
		StartTime: req.StartTime,
	}
	if id, ok := GetIdentity(r.Context()); ok {
		in.CreatedBy = &id.UserID
	}

	result, err := h.svc.CreateSeries(r.Context(), in)
	if err != nil {
		writeBookingError(w, err)
		return
	}

	end := formatDate(result.Series.EndDate)
	writeJSON(w, http.StatusCreated, SeriesResponse{
		Appointment:  toAppointmentResponse(result.Appointment),
		SeriesID:     &result.Series.ID,
		TotalCreated: result.TotalCreated,
		EndDate:      &end,
	})
}

func (h *Handler) EditOccurrence(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "appointmentID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
		return
	}

	var req EditOccurrenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	newDate, err := parseOptionalDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date", err.Error())
		return
	}

	appt, err := h.svc.EditOccurrence(r.Context(), id, booking.OccurrenceEdit{
		Date:   newDate,
		Time:   req.Time,
		Status: req.Status,
	})
	if err != nil {
		writeBookingError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *Handler) CancelSeries(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_series_id", "id must be a valid UUID")
		return
	}

	count, err := h.svc.CancelSeries(r.Context(), id)
	if err != nil {
		writeBookingError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CancelSeriesResponse{CancelledCount: count})
}

func (h *Handler) WeeklyReport(w http.ResponseWriter, r *http.Request) {
	days := 7
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_days", "days must be a positive integer")
			return
		}
		days = n
	}

	details, err := h.svc.WeeklyReport(r.Context(), days)
	if err != nil {
		writeBookingError(w, err)
		return
	}

	out := make([]AppointmentDetailResponse, 0, len(details))
	for _, d := range details {
		out = append(out, toDetailResponse(d))
	}
	writeJSON(w, http.StatusOK, out)
}

func parseOptionalDate(s *string) (*time.Time, error) {
	if s == nil {
		return nil, nil
	}
	d, err := clinic.ParseDate(*s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
