package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/visioncare/clinic-scheduler/internal/clinic"
)

// SlotState is the availability of one time of day on one date.
type SlotState string

const (
	SlotAvailable SlotState = "Available"
	SlotFull      SlotState = "Full"
)

// DayAvailability maps each bookable time to its state. Closed is set on
// weekend dates, in which case Slots is empty.
type DayAvailability struct {
	Closed bool
	Slots  map[string]SlotState
}

// Engine is the single source of truth for "can this (date, time) accept
// one more booking, and in which room". Callers racing for the last room
// must serialize behind the slot lock before acting on its answers.
type Engine struct {
	repo   Repository
	policy *clinic.Policy
	rooms  *clinic.RoomPool
}

func NewEngine(repo Repository, policy *clinic.Policy, rooms *clinic.RoomPool) *Engine {
	return &Engine{repo: repo, policy: policy, rooms: rooms}
}

// CheckBookable validates that the date falls on an open day and the time
// is one of the clinic's slot start times.
func (e *Engine) CheckBookable(date time.Time, visitTime string) error {
	if !e.policy.IsBookableDay(date) {
		return ErrClosedDay
	}
	if !e.policy.IsBookableTime(visitTime) {
		return ErrInvalidSlotTime
	}
	return nil
}

// RoomsOccupied returns the set of room ids taken by non-cancelled
// appointments at the exact slot.
func (e *Engine) RoomsOccupied(ctx context.Context, date time.Time, visitTime string) (map[int]bool, error) {
	ids, err := e.repo.RoomsOccupied(ctx, date, visitTime, uuid.Nil)
	if err != nil {
		return nil, fmt.Errorf("rooms occupied: %w", err)
	}
	occupied := make(map[int]bool, len(ids))
	for _, id := range ids {
		occupied[id] = true
	}
	return occupied, nil
}

// NextAvailableRoom returns the lowest-id free room at the slot, or
// ErrSlotFull when every room is taken. First-fit, not round-robin: the
// same free set always yields the same room.
func (e *Engine) NextAvailableRoom(ctx context.Context, date time.Time, visitTime string) (clinic.Room, error) {
	return e.NextAvailableRoomExcluding(ctx, date, visitTime, uuid.Nil)
}

// NextAvailableRoomExcluding is NextAvailableRoom with one appointment's
// own occupancy ignored, for reschedules within the same slot.
func (e *Engine) NextAvailableRoomExcluding(ctx context.Context, date time.Time, visitTime string, exclude uuid.UUID) (clinic.Room, error) {
	ids, err := e.repo.RoomsOccupied(ctx, date, visitTime, exclude)
	if err != nil {
		return clinic.Room{}, fmt.Errorf("rooms occupied: %w", err)
	}

	occupied := make(map[int]bool, len(ids))
	for _, id := range ids {
		occupied[id] = true
	}

	for _, room := range e.rooms.All() {
		if !occupied[room.ID] {
			return room, nil
		}
	}
	return clinic.Room{}, ErrSlotFull
}

// IsSlotAvailable reports whether at least one room is free at the slot.
func (e *Engine) IsSlotAvailable(ctx context.Context, date time.Time, visitTime string) (bool, error) {
	occupied, err := e.RoomsOccupied(ctx, date, visitTime)
	if err != nil {
		return false, err
	}
	return len(occupied) < e.rooms.Size(), nil
}

// DayAvailability reports the state of every bookable time on the date.
// Weekend dates come back closed with no slots, whatever the bookings say.
func (e *Engine) DayAvailability(ctx context.Context, date time.Time) (*DayAvailability, error) {
	if !e.policy.IsBookableDay(date) {
		return &DayAvailability{Closed: true, Slots: map[string]SlotState{}}, nil
	}

	slots := make(map[string]SlotState, len(e.policy.BookableTimes()))
	for _, t := range e.policy.BookableTimes() {
		free, err := e.IsSlotAvailable(ctx, date, t)
		if err != nil {
			return nil, err
		}
		if free {
			slots[t] = SlotAvailable
		} else {
			slots[t] = SlotFull
		}
	}
	return &DayAvailability{Slots: slots}, nil
}
