package booking

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	StatusScheduled AppointmentStatus = "Scheduled"
	StatusCancelled AppointmentStatus = "Cancelled"
	StatusModified  AppointmentStatus = "Modified"
)

// ParseAppointmentStatus rejects labels outside the closed status set.
func ParseAppointmentStatus(s string) (AppointmentStatus, error) {
	switch AppointmentStatus(s) {
	case StatusScheduled, StatusCancelled, StatusModified:
		return AppointmentStatus(s), nil
	}
	return "", validationf("status", "unknown status %q", s)
}

type SeriesStatus string

const (
	SeriesActive    SeriesStatus = "Active"
	SeriesCancelled SeriesStatus = "Cancelled"
)

type OccurrenceStatus string

const (
	OccurrenceScheduled OccurrenceStatus = "Scheduled"
	OccurrenceModified  OccurrenceStatus = "Modified"
	OccurrenceCancelled OccurrenceStatus = "Cancelled"
)

type Patient struct {
	ID         uuid.UUID
	GivenName  string
	FamilyName string
	Age        int
	Phone      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Reason is a static reference value describing why a patient visits.
type Reason struct {
	ID          int
	Description string
}

// Appointment is one scheduled occupation of one room at one (date, time)
// slot for one patient. VisitDate is a midnight UTC calendar date and
// VisitTime a canonical HH:MM slot start.
type Appointment struct {
	ID         uuid.UUID
	VisitDate  time.Time
	VisitTime  string
	PatientID  uuid.UUID
	ReasonID   int
	RoomID     int
	AssignedTo *uuid.UUID
	Status     AppointmentStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Series is a declared weekly-recurring booking plan. EndDate is always
// StartDate plus a fixed number of calendar months; DayOfWeek is derived
// from StartDate once and never recomputed.
type Series struct {
	ID                  uuid.UUID
	OriginAppointmentID uuid.UUID
	StartDate           time.Time
	EndDate             time.Time
	DayOfWeek           time.Weekday
	VisitTime           string
	CreatedBy           *uuid.UUID
	Status              SeriesStatus
	CreatedAt           time.Time
}

// Occurrence links one appointment to the series it was generated for,
// carrying the originally programmed date and its own status so a single
// visit can be edited or dropped without touching its siblings.
type Occurrence struct {
	ID             int64
	SeriesID       uuid.UUID
	AppointmentID  uuid.UUID
	ProgrammedDate time.Time
	Status         OccurrenceStatus
}

// AppointmentDetail is an appointment with its patient, reason and room
// denormalized for listings and reports.
type AppointmentDetail struct {
	Appointment
	Patient  Patient
	Reason   string
	RoomName string
}
