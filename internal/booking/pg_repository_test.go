package booking

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (*PgRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return &PgRepository{db: mock}, mock
}

func uniqueViolation(constraint string) *pgconn.PgError {
	return &pgconn.PgError{Code: "23505", ConstraintName: constraint}
}

func TestCreatePatientDuplicatePhone(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("INSERT INTO patients").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(uniqueViolation("patients_phone_key"))

	_, err := repo.CreatePatient(context.Background(), Patient{
		ID:         uuid.New(),
		GivenName:  "Ana",
		FamilyName: "Reyes",
		Age:        27,
		Phone:      "555-0001",
	})
	assert.ErrorIs(t, err, ErrDuplicatePatient)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPatientByPhoneNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM patients").
		WithArgs("555-0002").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetPatientByPhone(context.Background(), "555-0002")
	assert.ErrorIs(t, err, ErrPatientNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAppointmentRoomConflict(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("INSERT INTO appointments").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(uniqueViolation("uq_appointments_slot_room"))

	_, err := repo.CreateAppointment(context.Background(), Appointment{
		ID:        uuid.New(),
		VisitDate: monday,
		VisitTime: "12:30",
		PatientID: uuid.New(),
		ReasonID:  1,
		RoomID:    1,
		Status:    StatusScheduled,
	})
	assert.ErrorIs(t, err, ErrRoomConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAppointmentReturnsRow(t *testing.T) {
	repo, mock := newMockRepo(t)

	id := uuid.New()
	patientID := uuid.New()
	now := time.Now()

	mock.ExpectQuery("INSERT INTO appointments").
		WithArgs(id, monday, "12:30", patientID, 1, 2, (*uuid.UUID)(nil), StatusScheduled).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "visit_date", "visit_time", "patient_id", "reason_id", "room_id", "assigned_to", "status", "created_at", "updated_at",
		}).AddRow(id, monday, "12:30", patientID, 1, 2, (*uuid.UUID)(nil), StatusScheduled, now, now))

	created, err := repo.CreateAppointment(context.Background(), Appointment{
		ID:        id,
		VisitDate: monday,
		VisitTime: "12:30",
		PatientID: patientID,
		ReasonID:  1,
		RoomID:    2,
		Status:    StatusScheduled,
	})
	require.NoError(t, err)
	assert.Equal(t, id, created.ID)
	assert.Equal(t, 2, created.RoomID)
	assert.Nil(t, created.AssignedTo)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateAppointmentScheduleRoomConflict(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("UPDATE appointments").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(uniqueViolation("uq_appointments_slot_room"))

	_, err := repo.UpdateAppointmentSchedule(context.Background(), uuid.New(), monday, "13:30", 1)
	assert.ErrorIs(t, err, ErrRoomConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAppointmentByIDNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	id := uuid.New()
	mock.ExpectQuery("SELECT (.+) FROM appointments").
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetAppointmentByID(context.Background(), id)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomsOccupiedScansIDs(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT room_id").
		WithArgs(monday, "12:30", pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"room_id"}).
			AddRow(1).
			AddRow(2).
			AddRow(4))

	ids, err := repo.RoomsOccupied(context.Background(), monday, "12:30", uuid.Nil)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 4}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSeriesByIDNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	id := uuid.New()
	mock.ExpectQuery("SELECT (.+) FROM recurring_series").
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetSeriesByID(context.Background(), id)
	assert.ErrorIs(t, err, ErrSeriesNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateSeriesStatusUnknownSeries(t *testing.T) {
	repo, mock := newMockRepo(t)

	id := uuid.New()
	mock.ExpectExec("UPDATE recurring_series SET status").
		WithArgs(id, SeriesCancelled).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.UpdateSeriesStatus(context.Background(), id, SeriesCancelled)
	assert.ErrorIs(t, err, ErrSeriesNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOccurrenceByAppointmentNotLinked(t *testing.T) {
	repo, mock := newMockRepo(t)

	id := uuid.New()
	mock.ExpectQuery("SELECT (.+) FROM recurring_series_occurrence").
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetOccurrenceByAppointment(context.Background(), id)
	assert.ErrorIs(t, err, ErrNotInSeries)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateOccurrenceStatusUnknownAppointment(t *testing.T) {
	repo, mock := newMockRepo(t)

	id := uuid.New()
	mock.ExpectExec("UPDATE recurring_series_occurrence SET status").
		WithArgs(id, OccurrenceModified).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.UpdateOccurrenceStatus(context.Background(), id, OccurrenceModified)
	assert.ErrorIs(t, err, ErrNotInSeries)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListRoomsOrdered(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT id, name FROM rooms").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name"}).
			AddRow(1, "Cabinet 1").
			AddRow(2, "Cabinet 2"))

	rooms, err := repo.ListRooms(context.Background())
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	assert.Equal(t, "Cabinet 1", rooms[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}
