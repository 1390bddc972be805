package clinic

// Reference data the clinic starts with. The seed command and migrations
// insert these; runtime code always reads them back from the database so
// that tests can run with alternate pools and hours.

func DefaultRooms() []Room {
	return []Room{
		{ID: 1, Name: "Cabinet 1"},
		{ID: 2, Name: "Cabinet 2"},
		{ID: 3, Name: "Cabinet 3"},
		{ID: 4, Name: "Cabinet 4"},
		{ID: 5, Name: "Cabinet 5"},
		{ID: 6, Name: "Cabinet 6"},
	}
}

func DefaultBookableTimes() []string {
	return []string{"12:30", "13:30", "14:30", "15:30"}
}
