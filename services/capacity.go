package services

import (
	"sort"

	"github.com/yeremiapane/reservation-app/models"
)

const unnamedRoom = "Unnamed Room"

// AllocatedSeats sums the guests of confirmed reservations on the table.
// Pending, completed and every unsuccessful status hold no seats.
func AllocatedSeats(tableID string, reservations []models.Reservation) int {
	allocated := 0
	for i := range reservations {
		r := &reservations[i]
		if r.Status == models.StatusConfirmed && r.OnTable(tableID) {
			allocated += r.GuestCount
		}
	}
	return allocated
}

// AvailableSeats is capacity minus allocation, never below zero.
func AvailableSeats(table models.Table, reservations []models.Reservation) int {
	available := table.Capacity - AllocatedSeats(table.ID, reservations)
	if available < 0 {
		return 0
	}
	return available
}

type SeatingTable struct {
	ID        string `json:"id"`
	TableName string `json:"table_name"`
	Capacity  int    `json:"capacity"`
	Allocated int    `json:"allocated"`
	Available int    `json:"available"`
}

type SeatingRoom struct {
	RoomName string         `json:"room_name"`
	Tables   []SeatingTable `json:"tables"`
}

// SeatingChart groups tables by room, rooms and tables sorted by name.
func SeatingChart(tables []models.Table, reservations []models.Reservation) []SeatingRoom {
	sorted := make([]models.Table, len(tables))
	copy(sorted, tables)
	sort.SliceStable(sorted, func(i, j int) bool {
		ri, rj := roomLabel(sorted[i].RoomName), roomLabel(sorted[j].RoomName)
		if ri != rj {
			return ri < rj
		}
		return sorted[i].Name < sorted[j].Name
	})

	rooms := []SeatingRoom{}
	index := make(map[string]int)
	for _, table := range sorted {
		label := roomLabel(table.RoomName)
		pos, ok := index[label]
		if !ok {
			pos = len(rooms)
			index[label] = pos
			rooms = append(rooms, SeatingRoom{RoomName: label})
		}

		allocated := AllocatedSeats(table.ID, reservations)
		rooms[pos].Tables = append(rooms[pos].Tables, SeatingTable{
			ID:        table.ID,
			TableName: table.Name,
			Capacity:  table.Capacity,
			Allocated: allocated,
			Available: AvailableSeats(table, reservations),
		})
	}
	return rooms
}

func roomLabel(name string) string {
	if name == "" {
		return unnamedRoom
	}
	return name
}
