package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/visioncare/clinic-scheduler/internal/clinic"
	"github.com/visioncare/clinic-scheduler/internal/config"
	redisclient "github.com/visioncare/clinic-scheduler/internal/redis"
)

// Service drives appointment admission and the recurring-series flow.
// Every mutating path that reads occupied rooms before writing runs under
// the per-slot lock, and the writes themselves sit behind the database's
// (date, time, room) uniqueness constraint.
type Service struct {
	repo   Repository
	engine *Engine
	locker redisclient.Locker
	log    zerolog.Logger

	seriesMonths    int
	seriesMaxExtra  int
	therapyReasonID int

	now func() time.Time
}

func NewService(repo Repository, engine *Engine, locker redisclient.Locker, cfg config.Clinic, log zerolog.Logger) *Service {
	return &Service{
		repo:            repo,
		engine:          engine,
		locker:          locker,
		log:             log,
		seriesMonths:    cfg.SeriesMonths,
		seriesMaxExtra:  cfg.SeriesMaxExtra,
		therapyReasonID: cfg.VisionTherapyReasonID,
		now:             time.Now,
	}
}

// withRepo rebinds the engine to a transactional repository so occupancy
// reads and the subsequent write share one transaction.
func (e *Engine) withRepo(r Repository) *Engine {
	c := *e
	c.repo = r
	return &c
}

// PatientInput identifies the patient a booking is for. IsNew asserts the
// caller believes the phone is unknown; the name, family name and age
// fields are required only in that case.
type PatientInput struct {
	IsNew      bool
	GivenName  string
	FamilyName string
	Age        int
	Phone      string
}

type BookingInput struct {
	Patient    PatientInput
	Date       time.Time
	Time       string
	ReasonID   int
	AssignedTo *uuid.UUID
}

// BookAppointment admits one booking: validates the slot against the
// calendar policy, resolves or creates the patient, assigns the first
// free room and persists the appointment as Scheduled.
func (s *Service) BookAppointment(ctx context.Context, in BookingInput) (*Appointment, error) {
	vt, err := clinic.NormalizeTime(in.Time)
	if err != nil {
		return nil, validationf("time", "%v", err)
	}
	date := clinic.DateOnly(in.Date)

	if err := s.engine.CheckBookable(date, vt); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetReasonByID(ctx, in.ReasonID); err != nil {
		return nil, fmt.Errorf("load reason: %w", err)
	}

	var created *Appointment

	err = s.locker.WithSlotLock(ctx, date, vt, func(lockCtx context.Context) error {
		return s.repo.WithinTx(lockCtx, func(txr Repository) error {
			patient, err := s.findOrCreatePatient(lockCtx, txr, in.Patient)
			if err != nil {
				return err
			}

			room, err := s.engine.withRepo(txr).NextAvailableRoom(lockCtx, date, vt)
			if err != nil {
				return err
			}

			appt, err := txr.CreateAppointment(lockCtx, Appointment{
				ID:         uuid.New(),
				VisitDate:  date,
				VisitTime:  vt,
				PatientID:  patient.ID,
				ReasonID:   in.ReasonID,
				RoomID:     room.ID,
				AssignedTo: in.AssignedTo,
				Status:     StatusScheduled,
			})
			if err != nil {
				return fmt.Errorf("create appointment: %w", err)
			}

			created = appt
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("appointment_id", created.ID.String()).
		Str("date", date.Format("2006-01-02")).
		Str("time", vt).
		Int("room_id", created.RoomID).
		Msg("appointment booked")

	return created, nil
}

// findOrCreatePatient resolves the patient by phone. A booking asserting
// a new patient fails when the phone is already known; a booking for a
// returning patient fails when it is not.
func (s *Service) findOrCreatePatient(ctx context.Context, repo Repository, in PatientInput) (*Patient, error) {
	phone := strings.TrimSpace(in.Phone)
	if phone == "" {
		return nil, validationf("phone", "phone is required")
	}

	existing, err := repo.GetPatientByPhone(ctx, phone)
	if err != nil && !errors.Is(err, ErrPatientNotFound) {
		return nil, fmt.Errorf("load patient: %w", err)
	}

	if !in.IsNew {
		if existing == nil {
			return nil, ErrPatientNotFound
		}
		return existing, nil
	}

	if existing != nil {
		return nil, ErrDuplicatePatient
	}
	if strings.TrimSpace(in.GivenName) == "" {
		return nil, validationf("given_name", "required for a new patient")
	}
	if strings.TrimSpace(in.FamilyName) == "" {
		return nil, validationf("family_name", "required for a new patient")
	}
	if in.Age <= 0 {
		return nil, validationf("age", "must be a positive number")
	}

	created, err := repo.CreatePatient(ctx, Patient{
		ID:         uuid.New(),
		GivenName:  strings.TrimSpace(in.GivenName),
		FamilyName: strings.TrimSpace(in.FamilyName),
		Age:        in.Age,
		Phone:      phone,
	})
	if err != nil {
		return nil, fmt.Errorf("create patient: %w", err)
	}
	return created, nil
}

// FindPatientByPhone looks a patient up by their unique phone number.
func (s *Service) FindPatientByPhone(ctx context.Context, phone string) (*Patient, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, validationf("phone", "phone is required")
	}
	return s.repo.GetPatientByPhone(ctx, phone)
}

// GetAvailability reports the state of every bookable time on a date.
func (s *Service) GetAvailability(ctx context.Context, date time.Time) (*DayAvailability, error) {
	return s.engine.DayAvailability(ctx, clinic.DateOnly(date))
}

// Reschedule moves an appointment to a new date and/or time. The target
// slot is re-validated and a room re-assigned first-fit; the move is
// rejected with ErrSlotFull when every room at the target is taken.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, newDate *time.Time, newTime *string) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}

	date := appt.VisitDate
	vt := appt.VisitTime
	if newDate != nil {
		date = clinic.DateOnly(*newDate)
	}
	if newTime != nil {
		nt, err := clinic.NormalizeTime(*newTime)
		if err != nil {
			return nil, validationf("time", "%v", err)
		}
		vt = nt
	}

	if err := s.engine.CheckBookable(date, vt); err != nil {
		return nil, err
	}

	var updated *Appointment

	err = s.locker.WithSlotLock(ctx, date, vt, func(lockCtx context.Context) error {
		return s.repo.WithinTx(lockCtx, func(txr Repository) error {
			room, err := s.engine.withRepo(txr).NextAvailableRoomExcluding(lockCtx, date, vt, appt.ID)
			if err != nil {
				return err
			}
			updated, err = txr.UpdateAppointmentSchedule(lockCtx, appt.ID, date, vt, room.ID)
			if err != nil {
				return fmt.Errorf("reschedule appointment: %w", err)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("appointment_id", id.String()).
		Str("date", date.Format("2006-01-02")).
		Str("time", vt).
		Int("room_id", updated.RoomID).
		Msg("appointment rescheduled")

	return updated, nil
}

// SetStatus transitions an appointment's status within the closed set.
func (s *Service) SetStatus(ctx context.Context, id uuid.UUID, label string) (*Appointment, error) {
	status, err := ParseAppointmentStatus(label)
	if err != nil {
		return nil, err
	}
	return s.repo.UpdateAppointmentStatus(ctx, id, status)
}

// GetAppointment loads one appointment by id.
func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.repo.GetAppointmentByID(ctx, id)
}

// ListAppointments returns appointments ordered by date then time,
// optionally restricted to a single date.
func (s *Service) ListAppointments(ctx context.Context, date *time.Time) ([]AppointmentDetail, error) {
	if date != nil {
		d := clinic.DateOnly(*date)
		date = &d
	}
	return s.repo.ListAppointments(ctx, date)
}

// WeeklyReport returns the appointments from today through the next
// rangeDays days with patient fields denormalized.
func (s *Service) WeeklyReport(ctx context.Context, rangeDays int) ([]AppointmentDetail, error) {
	if rangeDays <= 0 {
		rangeDays = 7
	}
	from := clinic.DateOnly(s.now())
	to := from.AddDate(0, 0, rangeDays)
	return s.repo.ListAppointmentsInRange(ctx, from, to)
}
