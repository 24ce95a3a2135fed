package controllers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/reservation-app/models"
	"github.com/yeremiapane/reservation-app/services"
	"github.com/yeremiapane/reservation-app/utils"
)

type AnalyticsController struct {
	Store  *services.ReservationStore
	Engine *services.AdmissionEngine
}

func NewAnalyticsController(store *services.ReservationStore, engine *services.AdmissionEngine) *AnalyticsController {
	return &AnalyticsController{Store: store, Engine: engine}
}

// summarize loads every reservation in the requested range, whatever its
// status, and aggregates it in the restaurant's timezone.
func (ac *AnalyticsController) summarize(c *gin.Context) (*models.Restaurant, services.AnalyticsReport, bool) {
	restaurant, ok := sessionRestaurant(c)
	if !ok {
		return nil, services.AnalyticsReport{}, false
	}

	loc := ac.Engine.Location(restaurant)
	from, to, err := parseRange(c, loc)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return nil, services.AnalyticsReport{}, false
	}

	reservations, err := ac.Store.Reservations(c.Request.Context(), restaurant.ID, services.ReservationFilter{From: from, To: to})
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return nil, services.AnalyticsReport{}, false
	}

	report := services.AnalyticsReport{
		RestaurantName: restaurant.Name,
		From:           from,
		GeneratedAt:    time.Now().In(loc),
		Summary:        services.Summarize(reservations, loc),
	}
	if to != nil {
		last := to.Add(-time.Nanosecond)
		report.To = &last
	}
	return restaurant, report, true
}

func (ac *AnalyticsController) GetAnalytics(c *gin.Context) {
	_, report, ok := ac.summarize(c)
	if !ok {
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Reservation analytics", report.Summary)
}

// ExportPDF streams the same summary as a PDF document.
func (ac *AnalyticsController) ExportPDF(c *gin.Context) {
	restaurant, report, ok := ac.summarize(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := report.WritePDF(&buf); err != nil {
		utils.ErrorLogger.Errorf("Error rendering analytics PDF for %s: %v", restaurant.ID, err)
		utils.RespondError(c, http.StatusInternalServerError, fmt.Errorf("failed to render report: %w", err))
		return
	}

	filename := fmt.Sprintf("analytics-%s.pdf", report.GeneratedAt.Format("20060102-1504"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}
