package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/visioncare/clinic-scheduler/internal/clinic"
)

// errTxBoom stands in for an unexpected persistence failure.
var errTxBoom = errors.New("storage failure")

// fakeRepo is an in-memory Repository. It enforces the same uniqueness
// rules the database index would, and WithinTx snapshots state so a
// failing transaction rolls everything back.
type fakeRepo struct {
	patients     map[uuid.UUID]Patient
	phoneIndex   map[string]uuid.UUID
	reasons      map[int]Reason
	rooms        []clinic.Room
	appointments map[uuid.UUID]Appointment
	series       map[uuid.UUID]Series
	occurrences  map[uuid.UUID]Occurrence // keyed by appointment id
	nextOccID    int64

	// failAfterCreates, when non-negative, makes CreateAppointment fail
	// once that many creates have succeeded.
	failAfterCreates int
	createCount      int
}

func newFakeRepo() *fakeRepo {
	f := &fakeRepo{
		patients:         make(map[uuid.UUID]Patient),
		phoneIndex:       make(map[string]uuid.UUID),
		reasons:          map[int]Reason{1: {1, "Frame glasses"}, 2: {2, "Contact lenses"}, 3: {3, "Vision therapy"}},
		rooms:            clinic.DefaultRooms(),
		appointments:     make(map[uuid.UUID]Appointment),
		series:           make(map[uuid.UUID]Series),
		occurrences:      make(map[uuid.UUID]Occurrence),
		failAfterCreates: -1,
	}
	return f
}

func (f *fakeRepo) GetPatientByPhone(_ context.Context, phone string) (*Patient, error) {
	id, ok := f.phoneIndex[phone]
	if !ok {
		return nil, ErrPatientNotFound
	}
	p := f.patients[id]
	return &p, nil
}

func (f *fakeRepo) GetPatientByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	p, ok := f.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	return &p, nil
}

func (f *fakeRepo) CreatePatient(_ context.Context, p Patient) (*Patient, error) {
	if _, exists := f.phoneIndex[p.Phone]; exists {
		return nil, ErrDuplicatePatient
	}
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	f.patients[p.ID] = p
	f.phoneIndex[p.Phone] = p.ID
	return &p, nil
}

func (f *fakeRepo) GetReasonByID(_ context.Context, id int) (*Reason, error) {
	r, ok := f.reasons[id]
	if !ok {
		return nil, ErrReasonNotFound
	}
	return &r, nil
}

func (f *fakeRepo) ListRooms(_ context.Context) ([]clinic.Room, error) {
	out := make([]clinic.Room, len(f.rooms))
	copy(out, f.rooms)
	return out, nil
}

func (f *fakeRepo) GetAppointmentByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	a, ok := f.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return &a, nil
}

func (f *fakeRepo) slotTaken(date time.Time, visitTime string, roomID int, exclude uuid.UUID) bool {
	for _, a := range f.appointments {
		if a.ID == exclude || a.Status == StatusCancelled {
			continue
		}
		if a.VisitDate.Equal(date) && a.VisitTime == visitTime && a.RoomID == roomID {
			return true
		}
	}
	return false
}

func (f *fakeRepo) CreateAppointment(_ context.Context, a Appointment) (*Appointment, error) {
	if f.failAfterCreates >= 0 && f.createCount >= f.failAfterCreates {
		return nil, errTxBoom
	}
	if f.slotTaken(a.VisitDate, a.VisitTime, a.RoomID, uuid.Nil) {
		return nil, ErrRoomConflict
	}
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	f.appointments[a.ID] = a
	f.createCount++
	return &a, nil
}

func (f *fakeRepo) UpdateAppointmentSchedule(_ context.Context, id uuid.UUID, date time.Time, visitTime string, roomID int) (*Appointment, error) {
	a, ok := f.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	if f.slotTaken(date, visitTime, roomID, id) {
		return nil, ErrRoomConflict
	}
	a.VisitDate = date
	a.VisitTime = visitTime
	a.RoomID = roomID
	a.UpdatedAt = time.Now()
	f.appointments[id] = a
	return &a, nil
}

func (f *fakeRepo) UpdateAppointmentStatus(_ context.Context, id uuid.UUID, status AppointmentStatus) (*Appointment, error) {
	a, ok := f.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	a.Status = status
	a.UpdatedAt = time.Now()
	f.appointments[id] = a
	return &a, nil
}

func (f *fakeRepo) RoomsOccupied(_ context.Context, date time.Time, visitTime string, exclude uuid.UUID) ([]int, error) {
	var ids []int
	for _, a := range f.appointments {
		if a.ID == exclude || a.Status == StatusCancelled {
			continue
		}
		if a.VisitDate.Equal(date) && a.VisitTime == visitTime {
			ids = append(ids, a.RoomID)
		}
	}
	return ids, nil
}

func (f *fakeRepo) detail(a Appointment) AppointmentDetail {
	d := AppointmentDetail{Appointment: a}
	d.Patient = f.patients[a.PatientID]
	d.Reason = f.reasons[a.ReasonID].Description
	for _, r := range f.rooms {
		if r.ID == a.RoomID {
			d.RoomName = r.Name
		}
	}
	return d
}

func (f *fakeRepo) ListAppointments(_ context.Context, date *time.Time) ([]AppointmentDetail, error) {
	var out []AppointmentDetail
	for _, a := range f.appointments {
		if date != nil && !a.VisitDate.Equal(*date) {
			continue
		}
		out = append(out, f.detail(a))
	}
	sortDetails(out)
	return out, nil
}

func (f *fakeRepo) ListAppointmentsInRange(_ context.Context, from, to time.Time) ([]AppointmentDetail, error) {
	var out []AppointmentDetail
	for _, a := range f.appointments {
		if a.VisitDate.Before(from) || !a.VisitDate.Before(to) {
			continue
		}
		out = append(out, f.detail(a))
	}
	sortDetails(out)
	return out, nil
}

func sortDetails(ds []AppointmentDetail) {
	for i := 1; i < len(ds); i++ {
		for j := i; j > 0; j-- {
			a, b := ds[j-1], ds[j]
			if a.VisitDate.After(b.VisitDate) || (a.VisitDate.Equal(b.VisitDate) && a.VisitTime > b.VisitTime) {
				ds[j-1], ds[j] = b, a
			}
		}
	}
}

func (f *fakeRepo) CreateSeries(_ context.Context, s Series) (*Series, error) {
	s.CreatedAt = time.Now()
	f.series[s.ID] = s
	return &s, nil
}

func (f *fakeRepo) GetSeriesByID(_ context.Context, id uuid.UUID) (*Series, error) {
	s, ok := f.series[id]
	if !ok {
		return nil, ErrSeriesNotFound
	}
	return &s, nil
}

func (f *fakeRepo) UpdateSeriesStatus(_ context.Context, id uuid.UUID, status SeriesStatus) error {
	s, ok := f.series[id]
	if !ok {
		return ErrSeriesNotFound
	}
	s.Status = status
	f.series[id] = s
	return nil
}

func (f *fakeRepo) CreateOccurrence(_ context.Context, o Occurrence) (*Occurrence, error) {
	f.nextOccID++
	o.ID = f.nextOccID
	f.occurrences[o.AppointmentID] = o
	return &o, nil
}

func (f *fakeRepo) GetOccurrenceByAppointment(_ context.Context, appointmentID uuid.UUID) (*Occurrence, error) {
	o, ok := f.occurrences[appointmentID]
	if !ok {
		return nil, ErrNotInSeries
	}
	return &o, nil
}

func (f *fakeRepo) UpdateOccurrenceStatus(_ context.Context, appointmentID uuid.UUID, status OccurrenceStatus) error {
	o, ok := f.occurrences[appointmentID]
	if !ok {
		return ErrNotInSeries
	}
	o.Status = status
	f.occurrences[appointmentID] = o
	return nil
}

func (f *fakeRepo) ListSeriesAppointmentsFrom(_ context.Context, seriesID uuid.UUID, from time.Time) ([]Appointment, error) {
	var out []Appointment
	for apptID, o := range f.occurrences {
		if o.SeriesID != seriesID {
			continue
		}
		a := f.appointments[apptID]
		if a.Status == StatusCancelled || a.VisitDate.Before(from) {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (f *fakeRepo) snapshot() *fakeRepo {
	c := &fakeRepo{
		patients:         make(map[uuid.UUID]Patient, len(f.patients)),
		phoneIndex:       make(map[string]uuid.UUID, len(f.phoneIndex)),
		reasons:          f.reasons,
		rooms:            f.rooms,
		appointments:     make(map[uuid.UUID]Appointment, len(f.appointments)),
		series:           make(map[uuid.UUID]Series, len(f.series)),
		occurrences:      make(map[uuid.UUID]Occurrence, len(f.occurrences)),
		nextOccID:        f.nextOccID,
		failAfterCreates: f.failAfterCreates,
		createCount:      f.createCount,
	}
	for k, v := range f.patients {
		c.patients[k] = v
	}
	for k, v := range f.phoneIndex {
		c.phoneIndex[k] = v
	}
	for k, v := range f.appointments {
		c.appointments[k] = v
	}
	for k, v := range f.series {
		c.series[k] = v
	}
	for k, v := range f.occurrences {
		c.occurrences[k] = v
	}
	return c
}

func (f *fakeRepo) restore(s *fakeRepo) {
	f.patients = s.patients
	f.phoneIndex = s.phoneIndex
	f.appointments = s.appointments
	f.series = s.series
	f.occurrences = s.occurrences
	f.nextOccID = s.nextOccID
	f.createCount = s.createCount
}

func (f *fakeRepo) WithinTx(_ context.Context, fn func(Repository) error) error {
	saved := f.snapshot()
	if err := fn(f); err != nil {
		f.restore(saved)
		return err
	}
	return nil
}

// nopLocker runs the critical section without any locking.
type nopLocker struct{}

func (nopLocker) WithSlotLock(ctx context.Context, _ time.Time, _ string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
