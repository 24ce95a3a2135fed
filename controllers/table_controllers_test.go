package controllers_test

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/reservation-app/models"
	"github.com/yeremiapane/reservation-app/services"
)

func TestCreateTableValidation(t *testing.T) {
	app := newTestApp(t)
	o := app.signUp("owner@example.com", "Blue Door")
	app.createTable(o, "Main", "T1", 4)

	w := app.do(http.MethodPost, "/api/tables", gin.H{"table_name": "T2", "capacity": 0}, o.token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(http.MethodPost, "/api/tables", gin.H{"table_name": " ", "capacity": 2}, o.token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(http.MethodPost, "/api/tables", gin.H{"table_name": "t1", "capacity": 2}, o.token)
	assert.Equal(t, http.StatusConflict, w.Code, "names are unique regardless of case")

	assert.Equal(t, 1, app.notifier.tables)
}

func TestTablesAreScopedToTheirRestaurant(t *testing.T) {
	app := newTestApp(t)
	mine := app.signUp("a@example.com", "Alpha")
	theirs := app.signUp("b@example.com", "Beta")
	table := app.createTable(theirs, "Main", "T1", 4)

	w := app.do(http.MethodGet, "/api/tables/"+table.ID, nil, mine.token)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = app.do(http.MethodPatch, "/api/tables/"+table.ID, gin.H{"capacity": 10}, mine.token)
	assert.Equal(t, http.StatusNotFound, w.Code)

	var list []map[string]interface{}
	decodeData(t, app.do(http.MethodGet, "/api/tables", nil, mine.token), &list)
	assert.Empty(t, list)
}

func TestUpdateTable(t *testing.T) {
	app := newTestApp(t)
	o := app.signUp("owner@example.com", "Blue Door")
	table := app.createTable(o, "Main", "T1", 4)

	w := app.do(http.MethodPatch, "/api/tables/"+table.ID, gin.H{"capacity": -1}, o.token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(http.MethodPatch, "/api/tables/"+table.ID, gin.H{"capacity": 6, "room_name": "Terrace"}, o.token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var updated models.Table
	decodeData(t, w, &updated)
	assert.Equal(t, 6, updated.Capacity)
	assert.Equal(t, "Terrace", updated.RoomName)
	assert.Equal(t, "T1", updated.Name)
}

func TestTableListShowsAvailability(t *testing.T) {
	app := newTestApp(t)
	o := app.signUp("owner@example.com", "Blue Door")
	table := app.createTable(o, "Main", "T1", 4)

	w := app.do(http.MethodPost, "/public/restaurants/"+o.restaurantID+"/reservations", booking(table.ID, 3), "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var list []struct {
		ID        string `json:"id"`
		Capacity  int    `json:"capacity"`
		Allocated int    `json:"allocated"`
		Available int    `json:"available"`
	}
	decodeData(t, app.do(http.MethodGet, "/api/tables", nil, o.token), &list)
	require.Len(t, list, 1)
	assert.Equal(t, 3, list[0].Allocated)
	assert.Equal(t, 1, list[0].Available)
}

func TestDeleteTableKeepsReservations(t *testing.T) {
	app := newTestApp(t)
	o := app.signUp("owner@example.com", "Blue Door")
	table := app.createTable(o, "Main", "T1", 4)

	w := app.do(http.MethodPost, "/public/restaurants/"+o.restaurantID+"/reservations", booking(table.ID, 2), "")
	require.Equal(t, http.StatusCreated, w.Code)
	var reservation models.Reservation
	decodeData(t, w, &reservation)

	w = app.do(http.MethodDelete, "/api/tables/"+table.ID, nil, o.token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var stored models.Reservation
	require.NoError(t, app.db.First(&stored, "id = ?", reservation.ID).Error)
	assert.Nil(t, stored.TableID)
}

func TestSeatingChart(t *testing.T) {
	app := newTestApp(t)
	o := app.signUp("owner@example.com", "Blue Door")
	app.createTable(o, "Terrace", "T9", 2)
	app.createTable(o, "", "Bar 1", 2)
	app.createTable(o, "Main", "T1", 4)

	var chart []services.SeatingRoom
	decodeData(t, app.do(http.MethodGet, "/api/seating-chart", nil, o.token), &chart)
	require.Len(t, chart, 3)

	rooms := make([]string, 0, len(chart))
	for _, room := range chart {
		rooms = append(rooms, room.RoomName)
	}
	assert.ElementsMatch(t, []string{"Main", "Terrace", "Unnamed Room"}, rooms)
}
