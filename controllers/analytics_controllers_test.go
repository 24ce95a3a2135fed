package controllers_test

import (
	"bytes"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/reservation-app/models"
	"github.com/yeremiapane/reservation-app/services"
)

func seedAnalytics(t *testing.T, app *testApp, o owner) {
	t.Helper()
	table := app.createTable(o, "Main", "T1", 10)

	book := func(start string, guests int) models.Reservation {
		body := booking(table.ID, guests)
		body["start_time"] = start
		w := app.do(http.MethodPost, publicBookingPath(o), body, "")
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var r models.Reservation
		decodeData(t, w, &r)
		return r
	}

	done := book("2026-03-06T19:00", 2)
	w := app.do(http.MethodPost, "/api/reservations/"+done.ID+"/complete",
		gin.H{"actual_end_time": "2026-03-06T20:05:00Z", "price_paid": 80}, o.token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	book("2026-03-06T19:30", 4)
	cancelled := book("2026-03-07T12:00", 2)
	require.Equal(t, http.StatusOK, app.do(http.MethodPost, "/api/reservations/"+cancelled.ID+"/cancel", nil, o.token).Code)
}

func TestAnalytics(t *testing.T) {
	app := newTestApp(t)
	o := app.signUp("owner@example.com", "Blue Door")
	seedAnalytics(t, app, o)

	var summary services.AnalyticsSummary
	decodeData(t, app.do(http.MethodGet, "/api/analytics", nil, o.token), &summary)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 2, summary.Successful)
	assert.Equal(t, 1, summary.Unsuccessful)
	assert.InDelta(t, 80, summary.Revenue, 0.001)
	assert.InDelta(t, 3, summary.AverageGuests, 0.001)
	assert.Equal(t, "100.0%", summary.AccuracyLabel)
	require.NotNil(t, summary.PeakHour)
	assert.Equal(t, 19, *summary.PeakHour)
	require.NotNil(t, summary.TopPayer)
	assert.InDelta(t, 80, summary.TopPayer.PricePaid, 0.001)

	decodeData(t, app.do(http.MethodGet, "/api/analytics?from=2026-03-07&to=2026-03-07", nil, o.token), &summary)
	assert.Equal(t, 1, summary.Total)
	assert.Equal(t, 0, summary.Successful)
	assert.Nil(t, summary.PeakHour)
	assert.Equal(t, "N/A", summary.AccuracyLabel)

	w := app.do(http.MethodGet, "/api/analytics?from=2026-03-08&to=2026-03-01", nil, o.token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(http.MethodGet, "/api/analytics?from=yesterday", nil, o.token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAnalyticsExportPDF(t *testing.T) {
	app := newTestApp(t)
	o := app.signUp("owner@example.com", "Blue Door")
	seedAnalytics(t, app, o)

	w := app.do(http.MethodGet, "/api/analytics/export-pdf?from=2026-03-01&to=2026-03-31", nil, o.token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))
}
