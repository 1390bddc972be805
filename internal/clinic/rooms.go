package clinic

import "sort"

// Room is one of the clinic's fixed physical treatment rooms (cabinets).
type Room struct {
	ID   int
	Name string
}

// RoomPool is the fixed, interchangeable set of rooms. Iteration order is
// ascending by id so that first-fit assignment is deterministic.
type RoomPool struct {
	rooms []Room
}

func NewRoomPool(rooms []Room) *RoomPool {
	sorted := make([]Room, len(rooms))
	copy(sorted, rooms)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	return &RoomPool{rooms: sorted}
}

// All returns the rooms in ascending id order.
func (p *RoomPool) All() []Room {
	out := make([]Room, len(p.rooms))
	copy(out, p.rooms)
	return out
}

func (p *RoomPool) Size() int {
	return len(p.rooms)
}

// ByID looks up a room by id.
func (p *RoomPool) ByID(id int) (Room, bool) {
	for _, r := range p.rooms {
		if r.ID == id {
			return r, true
		}
	}
	return Room{}, false
}
