package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/visioncare/clinic-scheduler/internal/clinic"
)

var (
	ErrPatientNotFound     = errors.New("patient not found")
	ErrReasonNotFound      = errors.New("reason not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrSeriesNotFound      = errors.New("series not found")

	// ErrRoomConflict is the database-level uniqueness constraint on
	// (date, time, room) firing at commit. It backs the room-uniqueness
	// invariant even for writers outside the slot lock.
	ErrRoomConflict = errors.New("room already taken at this slot")
)

// Repository contains all persistence interactions needed by the service.
type Repository interface {
	// Patients
	GetPatientByPhone(ctx context.Context, phone string) (*Patient, error)
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	CreatePatient(ctx context.Context, p Patient) (*Patient, error)

	// Reference data
	GetReasonByID(ctx context.Context, id int) (*Reason, error)
	ListRooms(ctx context.Context) ([]clinic.Room, error)

	// Appointments
	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	CreateAppointment(ctx context.Context, a Appointment) (*Appointment, error)
	UpdateAppointmentSchedule(ctx context.Context, id uuid.UUID, date time.Time, visitTime string, roomID int) (*Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, status AppointmentStatus) (*Appointment, error)

	// RoomsOccupied returns room ids of non-cancelled appointments at the
	// exact (date, time) slot, excluding the given appointment id when it
	// is non-nil (a rescheduled visit does not block itself).
	RoomsOccupied(ctx context.Context, date time.Time, visitTime string, exclude uuid.UUID) ([]int, error)

	ListAppointments(ctx context.Context, date *time.Time) ([]AppointmentDetail, error)
	ListAppointmentsInRange(ctx context.Context, from, to time.Time) ([]AppointmentDetail, error)

	// Recurring series
	CreateSeries(ctx context.Context, s Series) (*Series, error)
	GetSeriesByID(ctx context.Context, id uuid.UUID) (*Series, error)
	UpdateSeriesStatus(ctx context.Context, id uuid.UUID, status SeriesStatus) error
	CreateOccurrence(ctx context.Context, o Occurrence) (*Occurrence, error)
	GetOccurrenceByAppointment(ctx context.Context, appointmentID uuid.UUID) (*Occurrence, error)
	UpdateOccurrenceStatus(ctx context.Context, appointmentID uuid.UUID, status OccurrenceStatus) error
	// ListSeriesAppointmentsFrom returns non-cancelled appointments linked
	// to the series with visit date on or after from.
	ListSeriesAppointmentsFrom(ctx context.Context, seriesID uuid.UUID, from time.Time) ([]Appointment, error)

	// WithinTx runs fn against a transactional view of the repository.
	// All writes commit together or roll back together.
	WithinTx(ctx context.Context, fn func(Repository) error) error
}
