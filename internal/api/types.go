package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/visioncare/clinic-scheduler/internal/booking"
)

type SearchPatientRequest struct {
	Phone string `json:"phone"`
}

type SearchPatientResponse struct {
	IsNew   bool             `json:"is_new"`
	Patient *PatientResponse `json:"patient,omitempty"`
}

type AvailabilityRequest struct {
	Date string `json:"date"`
}

type AvailabilityResponse struct {
	Closed bool              `json:"closed"`
	Slots  map[string]string `json:"slots"`
}

type BookAppointmentRequest struct {
	IsNew      bool   `json:"is_new"`
	GivenName  string `json:"given_name,omitempty"`
	FamilyName string `json:"family_name,omitempty"`
	Age        int    `json:"age,omitempty"`
	Phone      string `json:"phone"`
	Date       string `json:"date"`
	Time       string `json:"time"`
	ReasonID   int    `json:"reason_id"`
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

type EditAppointmentRequest struct {
	Date *string `json:"date,omitempty"`
	Time *string `json:"time,omitempty"`
}

type EditOccurrenceRequest struct {
	Date   *string `json:"date,omitempty"`
	Time   *string `json:"time,omitempty"`
	Status *string `json:"status,omitempty"`
}

type BookSeriesRequest struct {
	IsNew      bool   `json:"is_new"`
	GivenName  string `json:"given_name,omitempty"`
	FamilyName string `json:"family_name,omitempty"`
	Age        int    `json:"age,omitempty"`
	Phone      string `json:"phone"`
	StartDate  string `json:"start_date"`
	StartTime  string `json:"start_time"`
	Recurring  bool   `json:"recurring"`
}

type PatientResponse struct {
	ID         uuid.UUID `json:"id"`
	GivenName  string    `json:"given_name"`
	FamilyName string    `json:"family_name"`
	Age        int       `json:"age"`
	Phone      string    `json:"phone"`
}

type AppointmentResponse struct {
	ID         uuid.UUID  `json:"id"`
	Date       string     `json:"date"`
	Time       string     `json:"time"`
	PatientID  uuid.UUID  `json:"patient_id"`
	ReasonID   int        `json:"reason_id"`
	RoomID     int        `json:"room_id"`
	AssignedTo *uuid.UUID `json:"assigned_to,omitempty"`
	Status     string     `json:"status"`
}

type AppointmentDetailResponse struct {
	AppointmentResponse
	Patient PatientResponse `json:"patient"`
	Reason  string          `json:"reason"`
	Room    string          `json:"room"`
}

type SeriesResponse struct {
	Appointment  AppointmentResponse `json:"appointment"`
	SeriesID     *uuid.UUID          `json:"series_id,omitempty"`
	TotalCreated int                 `json:"total_created"`
	EndDate      *string             `json:"end_date,omitempty"`
}

type CancelSeriesResponse struct {
	CancelledCount int `json:"cancelled_count"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func toPatientResponse(p *booking.Patient) *PatientResponse {
	if p == nil {
		return nil
	}
	return &PatientResponse{
		ID:         p.ID,
		GivenName:  p.GivenName,
		FamilyName: p.FamilyName,
		Age:        p.Age,
		Phone:      p.Phone,
	}
}

func toAppointmentResponse(a *booking.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:         a.ID,
		Date:       a.VisitDate.Format("2006-01-02"),
		Time:       a.VisitTime,
		PatientID:  a.PatientID,
		ReasonID:   a.ReasonID,
		RoomID:     a.RoomID,
		AssignedTo: a.AssignedTo,
		Status:     string(a.Status),
	}
}

func toDetailResponse(d booking.AppointmentDetail) AppointmentDetailResponse {
	return AppointmentDetailResponse{
		AppointmentResponse: toAppointmentResponse(&d.Appointment),
		Patient:             *toPatientResponse(&d.Patient),
		Reason:              d.Reason,
		Room:                d.RoomName,
	}
}

func formatDate(t time.Time) string {
	return t.Format("2006-01-02")
}
