package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/visioncare/clinic-scheduler/internal/clinic"
)

// SeriesInput starts a weekly vision-therapy series at the given slot.
type SeriesInput struct {
	Patient   PatientInput
	StartDate time.Time
	StartTime string
	CreatedBy *uuid.UUID
}

type SeriesResult struct {
	Appointment  *Appointment
	Series       *Series
	TotalCreated int
}

// CreateSeries books the original vision-therapy appointment and
// generates weekly follow-ups at the same time of day: the cursor
// advances 7 days at a time, at most seriesMaxExtra occurrences are added
// after the original, and generation stops once the cursor passes the end
// date (start plus seriesMonths calendar months). Weeks whose slot is
// fully booked are skipped without failing the series. Everything
// persists in one transaction; a failure partway rolls the whole series
// back.
func (s *Service) CreateSeries(ctx context.Context, in SeriesInput) (*SeriesResult, error) {
	vt, err := clinic.NormalizeTime(in.StartTime)
	if err != nil {
		return nil, validationf("start_time", "%v", err)
	}
	start := clinic.DateOnly(in.StartDate)

	if err := s.engine.CheckBookable(start, vt); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetReasonByID(ctx, s.therapyReasonID); err != nil {
		return nil, fmt.Errorf("load therapy reason: %w", err)
	}

	var result SeriesResult

	err = s.locker.WithSlotLock(ctx, start, vt, func(lockCtx context.Context) error {
		return s.repo.WithinTx(lockCtx, func(txr Repository) error {
			eng := s.engine.withRepo(txr)

			patient, err := s.findOrCreatePatient(lockCtx, txr, in.Patient)
			if err != nil {
				return err
			}

			room, err := eng.NextAvailableRoom(lockCtx, start, vt)
			if err != nil {
				return err
			}

			origin, err := txr.CreateAppointment(lockCtx, Appointment{
				ID:        uuid.New(),
				VisitDate: start,
				VisitTime: vt,
				PatientID: patient.ID,
				ReasonID:  s.therapyReasonID,
				RoomID:    room.ID,
				Status:    StatusScheduled,
			})
			if err != nil {
				return fmt.Errorf("create original appointment: %w", err)
			}

			endDate := start.AddDate(0, s.seriesMonths, 0)

			series, err := txr.CreateSeries(lockCtx, Series{
				ID:                  uuid.New(),
				OriginAppointmentID: origin.ID,
				StartDate:           start,
				EndDate:             endDate,
				DayOfWeek:           start.Weekday(),
				VisitTime:           vt,
				CreatedBy:           in.CreatedBy,
				Status:              SeriesActive,
			})
			if err != nil {
				return fmt.Errorf("create series: %w", err)
			}

			if _, err := txr.CreateOccurrence(lockCtx, Occurrence{
				SeriesID:       series.ID,
				AppointmentID:  origin.ID,
				ProgrammedDate: start,
				Status:         OccurrenceScheduled,
			}); err != nil {
				return fmt.Errorf("create original occurrence: %w", err)
			}

			total := 1
			for i := 1; i <= s.seriesMaxExtra; i++ {
				cursor := start.AddDate(0, 0, 7*i)
				if cursor.After(endDate) {
					break
				}

				room, err := eng.NextAvailableRoom(lockCtx, cursor, vt)
				if errors.Is(err, ErrSlotFull) {
					// Fully booked week: skip it, keep the cadence.
					continue
				}
				if err != nil {
					return err
				}

				appt, err := txr.CreateAppointment(lockCtx, Appointment{
					ID:        uuid.New(),
					VisitDate: cursor,
					VisitTime: vt,
					PatientID: patient.ID,
					ReasonID:  s.therapyReasonID,
					RoomID:    room.ID,
					Status:    StatusScheduled,
				})
				if err != nil {
					return fmt.Errorf("create occurrence appointment: %w", err)
				}

				if _, err := txr.CreateOccurrence(lockCtx, Occurrence{
					SeriesID:       series.ID,
					AppointmentID:  appt.ID,
					ProgrammedDate: cursor,
					Status:         OccurrenceScheduled,
				}); err != nil {
					return fmt.Errorf("create occurrence: %w", err)
				}
				total++
			}

			result = SeriesResult{Appointment: origin, Series: series, TotalCreated: total}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("series_id", result.Series.ID.String()).
		Str("start_date", start.Format("2006-01-02")).
		Str("time", vt).
		Int("total_created", result.TotalCreated).
		Msg("recurring series created")

	return &result, nil
}

// CancelSeries cancels every future, non-cancelled appointment of the
// series and marks the series itself Cancelled. Past occurrences keep
// their status; the historical record stays intact. Returns how many
// appointments were cancelled.
func (s *Service) CancelSeries(ctx context.Context, seriesID uuid.UUID) (int, error) {
	cancelled := 0

	err := s.repo.WithinTx(ctx, func(txr Repository) error {
		series, err := txr.GetSeriesByID(ctx, seriesID)
		if err != nil {
			return err
		}

		today := clinic.DateOnly(s.now())
		appts, err := txr.ListSeriesAppointmentsFrom(ctx, series.ID, today)
		if err != nil {
			return fmt.Errorf("list series appointments: %w", err)
		}

		for _, a := range appts {
			if _, err := txr.UpdateAppointmentStatus(ctx, a.ID, StatusCancelled); err != nil {
				return fmt.Errorf("cancel appointment %s: %w", a.ID, err)
			}
			if err := txr.UpdateOccurrenceStatus(ctx, a.ID, OccurrenceCancelled); err != nil {
				return fmt.Errorf("cancel occurrence for %s: %w", a.ID, err)
			}
			cancelled++
		}

		return txr.UpdateSeriesStatus(ctx, series.ID, SeriesCancelled)
	})
	if err != nil {
		return 0, err
	}

	s.log.Info().
		Str("series_id", seriesID.String()).
		Int("cancelled", cancelled).
		Msg("series cancelled")

	return cancelled, nil
}

// OccurrenceEdit is a partial edit of one series occurrence.
type OccurrenceEdit struct {
	Date   *time.Time
	Time   *string
	Status *string
}

// EditOccurrence detaches one visit from strict series cadence: the
// appointment itself is moved or restatused, the occurrence is marked
// Modified, and the parent series and sibling occurrences stay untouched.
func (s *Service) EditOccurrence(ctx context.Context, appointmentID uuid.UUID, edit OccurrenceEdit) (*Appointment, error) {
	if _, err := s.repo.GetOccurrenceByAppointment(ctx, appointmentID); err != nil {
		return nil, err
	}

	appt, err := s.repo.GetAppointmentByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	date := appt.VisitDate
	vt := appt.VisitTime
	moving := edit.Date != nil || edit.Time != nil
	if edit.Date != nil {
		date = clinic.DateOnly(*edit.Date)
	}
	if edit.Time != nil {
		nt, err := clinic.NormalizeTime(*edit.Time)
		if err != nil {
			return nil, validationf("time", "%v", err)
		}
		vt = nt
	}

	var status *AppointmentStatus
	if edit.Status != nil {
		st, err := ParseAppointmentStatus(*edit.Status)
		if err != nil {
			return nil, err
		}
		status = &st
	}

	updated := appt

	apply := func(txCtx context.Context, txr Repository) error {
		if moving {
			if err := s.engine.CheckBookable(date, vt); err != nil {
				return err
			}
			room, err := s.engine.withRepo(txr).NextAvailableRoomExcluding(txCtx, date, vt, appt.ID)
			if err != nil {
				return err
			}
			updated, err = txr.UpdateAppointmentSchedule(txCtx, appt.ID, date, vt, room.ID)
			if err != nil {
				return fmt.Errorf("move occurrence: %w", err)
			}
		}
		if status != nil {
			var err error
			updated, err = txr.UpdateAppointmentStatus(txCtx, appt.ID, *status)
			if err != nil {
				return fmt.Errorf("restatus occurrence: %w", err)
			}
		}
		return txr.UpdateOccurrenceStatus(txCtx, appt.ID, OccurrenceModified)
	}

	if moving {
		err = s.locker.WithSlotLock(ctx, date, vt, func(lockCtx context.Context) error {
			return s.repo.WithinTx(lockCtx, func(txr Repository) error {
				return apply(lockCtx, txr)
			})
		})
	} else {
		err = s.repo.WithinTx(ctx, func(txr Repository) error {
			return apply(ctx, txr)
		})
	}
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("appointment_id", appointmentID.String()).
		Bool("moved", moving).
		Msg("series occurrence edited")

	return updated, nil
}
