package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/visioncare/clinic-scheduler/internal/clinic"
)

// querier is the subset of pgx shared by *pgxpool.Pool and pgx.Tx, so the
// same repository code serves both the pooled and transactional views.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PgRepository struct {
	db   querier
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{db: pool, pool: pool}
}

// WithinTx opens a transaction and runs fn against a repository bound to
// it. Nested calls reuse the already-open transaction.
func (r *PgRepository) WithinTx(ctx context.Context, fn func(Repository) error) error {
	if r.pool == nil {
		return fn(r)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(&PgRepository{db: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == constraint
	}
	return false
}

// Scan helpers

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.GivenName, &p.FamilyName, &p.Age, &p.Phone, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}
	return &p, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var assignedTo *uuid.UUID
	err := row.Scan(
		&a.ID,
		&a.VisitDate,
		&a.VisitTime,
		&a.PatientID,
		&a.ReasonID,
		&a.RoomID,
		&assignedTo,
		&a.Status,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}
	a.AssignedTo = assignedTo
	return &a, nil
}

func scanSeries(row pgx.Row) (*Series, error) {
	var s Series
	var createdBy *uuid.UUID
	var weekday int
	err := row.Scan(
		&s.ID,
		&s.OriginAppointmentID,
		&s.StartDate,
		&s.EndDate,
		&weekday,
		&s.VisitTime,
		&createdBy,
		&s.Status,
		&s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSeriesNotFound
		}
		return nil, err
	}
	s.DayOfWeek = time.Weekday(weekday)
	s.CreatedBy = createdBy
	return &s, nil
}

const appointmentCols = `id, visit_date, visit_time, patient_id, reason_id, room_id, assigned_to, status, created_at, updated_at`

// Patients

func (r *PgRepository) GetPatientByPhone(ctx context.Context, phone string) (*Patient, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, given_name, family_name, age, phone, created_at, updated_at
		FROM patients
		WHERE phone = $1
	`, phone)
	return scanPatient(row)
}

func (r *PgRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, given_name, family_name, age, phone, created_at, updated_at
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

func (r *PgRepository) CreatePatient(ctx context.Context, p Patient) (*Patient, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO patients (id, given_name, family_name, age, phone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		RETURNING id, given_name, family_name, age, phone, created_at, updated_at
	`, p.ID, p.GivenName, p.FamilyName, p.Age, p.Phone)

	created, err := scanPatient(row)
	if err != nil {
		if isUniqueViolation(err, "patients_phone_key") {
			return nil, ErrDuplicatePatient
		}
		return nil, err
	}
	return created, nil
}

// Reference data

func (r *PgRepository) GetReasonByID(ctx context.Context, id int) (*Reason, error) {
	var reason Reason
	err := r.db.QueryRow(ctx, `
		SELECT id, description FROM reasons WHERE id = $1
	`, id).Scan(&reason.ID, &reason.Description)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReasonNotFound
		}
		return nil, err
	}
	return &reason, nil
}

func (r *PgRepository) ListRooms(ctx context.Context) ([]clinic.Room, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name FROM rooms ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []clinic.Room
	for rows.Next() {
		var room clinic.Room
		if err := rows.Scan(&room.ID, &room.Name); err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	return rooms, rows.Err()
}

// Appointments

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+appointmentCols+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) CreateAppointment(ctx context.Context, a Appointment) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO appointments (id, visit_date, visit_time, patient_id, reason_id, room_id, assigned_to, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		RETURNING `+appointmentCols+`
	`, a.ID, a.VisitDate, a.VisitTime, a.PatientID, a.ReasonID, a.RoomID, a.AssignedTo, a.Status)

	created, err := scanAppointment(row)
	if err != nil {
		if isUniqueViolation(err, "uq_appointments_slot_room") {
			return nil, ErrRoomConflict
		}
		return nil, err
	}
	return created, nil
}

func (r *PgRepository) UpdateAppointmentSchedule(ctx context.Context, id uuid.UUID, date time.Time, visitTime string, roomID int) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE appointments
		SET visit_date = $2,
		    visit_time = $3,
		    room_id = $4,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+appointmentCols+`
	`, id, date, visitTime, roomID)

	updated, err := scanAppointment(row)
	if err != nil {
		if isUniqueViolation(err, "uq_appointments_slot_room") {
			return nil, ErrRoomConflict
		}
		return nil, err
	}
	return updated, nil
}

func (r *PgRepository) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, status AppointmentStatus) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+appointmentCols+`
	`, id, status)
	return scanAppointment(row)
}

func (r *PgRepository) RoomsOccupied(ctx context.Context, date time.Time, visitTime string, exclude uuid.UUID) ([]int, error) {
	var excl *uuid.UUID
	if exclude != uuid.Nil {
		excl = &exclude
	}

	rows, err := r.db.Query(ctx, `
		SELECT room_id
		FROM appointments
		WHERE visit_date = $1
		  AND visit_time = $2
		  AND status <> 'Cancelled'
		  AND ($3::uuid IS NULL OR id <> $3::uuid)
		ORDER BY room_id
	`, date, visitTime, excl)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

const detailQuery = `
	SELECT a.id, a.visit_date, a.visit_time, a.patient_id, a.reason_id, a.room_id, a.assigned_to, a.status, a.created_at, a.updated_at,
	       p.id, p.given_name, p.family_name, p.age, p.phone, p.created_at, p.updated_at,
	       re.description, ro.name
	FROM appointments a
	JOIN patients p ON p.id = a.patient_id
	JOIN reasons re ON re.id = a.reason_id
	JOIN rooms ro ON ro.id = a.room_id
`

func scanDetailRows(rows pgx.Rows) ([]AppointmentDetail, error) {
	var result []AppointmentDetail
	for rows.Next() {
		var d AppointmentDetail
		var assignedTo *uuid.UUID
		err := rows.Scan(
			&d.ID, &d.VisitDate, &d.VisitTime, &d.PatientID, &d.ReasonID, &d.RoomID, &assignedTo, &d.Status, &d.CreatedAt, &d.UpdatedAt,
			&d.Patient.ID, &d.Patient.GivenName, &d.Patient.FamilyName, &d.Patient.Age, &d.Patient.Phone, &d.Patient.CreatedAt, &d.Patient.UpdatedAt,
			&d.Reason, &d.RoomName,
		)
		if err != nil {
			return nil, err
		}
		d.AssignedTo = assignedTo
		result = append(result, d)
	}
	return result, rows.Err()
}

func (r *PgRepository) ListAppointments(ctx context.Context, date *time.Time) ([]AppointmentDetail, error) {
	query := detailQuery
	args := []any{}
	if date != nil {
		query += ` WHERE a.visit_date = $1`
		args = append(args, *date)
	}
	query += ` ORDER BY a.visit_date, a.visit_time`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDetailRows(rows)
}

func (r *PgRepository) ListAppointmentsInRange(ctx context.Context, from, to time.Time) ([]AppointmentDetail, error) {
	rows, err := r.db.Query(ctx, detailQuery+`
		WHERE a.visit_date >= $1 AND a.visit_date < $2
		ORDER BY a.visit_date, a.visit_time
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDetailRows(rows)
}

// Recurring series

func (r *PgRepository) CreateSeries(ctx context.Context, s Series) (*Series, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO recurring_series (id, origin_appointment_id, start_date, end_date, day_of_week, visit_time, created_by, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		RETURNING id, origin_appointment_id, start_date, end_date, day_of_week, visit_time, created_by, status, created_at
	`, s.ID, s.OriginAppointmentID, s.StartDate, s.EndDate, int(s.DayOfWeek), s.VisitTime, s.CreatedBy, s.Status)
	return scanSeries(row)
}

func (r *PgRepository) GetSeriesByID(ctx context.Context, id uuid.UUID) (*Series, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, origin_appointment_id, start_date, end_date, day_of_week, visit_time, created_by, status, created_at
		FROM recurring_series
		WHERE id = $1
	`, id)
	return scanSeries(row)
}

func (r *PgRepository) UpdateSeriesStatus(ctx context.Context, id uuid.UUID, status SeriesStatus) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE recurring_series SET status = $2 WHERE id = $1
	`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSeriesNotFound
	}
	return nil
}

func (r *PgRepository) CreateOccurrence(ctx context.Context, o Occurrence) (*Occurrence, error) {
	err := r.db.QueryRow(ctx, `
		INSERT INTO recurring_series_occurrence (series_id, appointment_id, programmed_date, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, o.SeriesID, o.AppointmentID, o.ProgrammedDate, o.Status).Scan(&o.ID)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *PgRepository) GetOccurrenceByAppointment(ctx context.Context, appointmentID uuid.UUID) (*Occurrence, error) {
	var o Occurrence
	err := r.db.QueryRow(ctx, `
		SELECT id, series_id, appointment_id, programmed_date, status
		FROM recurring_series_occurrence
		WHERE appointment_id = $1
	`, appointmentID).Scan(&o.ID, &o.SeriesID, &o.AppointmentID, &o.ProgrammedDate, &o.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotInSeries
		}
		return nil, err
	}
	return &o, nil
}

func (r *PgRepository) UpdateOccurrenceStatus(ctx context.Context, appointmentID uuid.UUID, status OccurrenceStatus) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE recurring_series_occurrence SET status = $2 WHERE appointment_id = $1
	`, appointmentID, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotInSeries
	}
	return nil
}

func (r *PgRepository) ListSeriesAppointmentsFrom(ctx context.Context, seriesID uuid.UUID, from time.Time) ([]Appointment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT a.id, a.visit_date, a.visit_time, a.patient_id, a.reason_id, a.room_id, a.assigned_to, a.status, a.created_at, a.updated_at
		FROM appointments a
		JOIN recurring_series_occurrence o ON o.appointment_id = a.id
		WHERE o.series_id = $1
		  AND a.visit_date >= $2
		  AND a.status <> 'Cancelled'
		ORDER BY a.visit_date
	`, seriesID, from)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	return result, rows.Err()
}
