package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/reservation-app/models"
	"github.com/yeremiapane/reservation-app/services"
	"github.com/yeremiapane/reservation-app/utils"
)

const IdempotencyHeader = "Idempotency-Key"

// PublicController serves the unauthenticated booking flow.
type PublicController struct {
	Store  *services.ReservationStore
	Engine *services.AdmissionEngine
}

func NewPublicController(store *services.ReservationStore, engine *services.AdmissionEngine) *PublicController {
	return &PublicController{Store: store, Engine: engine}
}

func (pc *PublicController) ListRestaurants(c *gin.Context) {
	var restaurants []models.Restaurant
	err := pc.Store.DB.WithContext(c.Request.Context()).
		Select("id", "name").
		Order("name ASC").
		Find(&restaurants).Error
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	out := make([]gin.H, 0, len(restaurants))
	for _, r := range restaurants {
		out = append(out, gin.H{"id": r.ID, "name": r.Name})
	}
	utils.RespondJSON(c, http.StatusOK, "List of restaurants", out)
}

// ListTables is the table picker of the booking form.
func (pc *PublicController) ListTables(c *gin.Context) {
	ctx := c.Request.Context()
	restaurantID := c.Param("restaurant_id")
	if _, err := pc.Store.Restaurant(ctx, restaurantID); err != nil {
		if errors.Is(err, services.ErrRestaurantNotFound) {
			utils.RespondError(c, http.StatusNotFound, err)
			return
		}
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	chart, err := pc.Store.SeatingChart(ctx, restaurantID)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	out := make([]gin.H, 0)
	for _, room := range chart {
		for _, t := range room.Tables {
			out = append(out, gin.H{
				"id":         t.ID,
				"room_name":  room.RoomName,
				"table_name": t.TableName,
				"capacity":   t.Capacity,
				"available":  t.Available,
			})
		}
	}
	utils.RespondJSON(c, http.StatusOK, "List of tables", out)
}

// CreateReservation runs a guest booking through admission.
func (pc *PublicController) CreateReservation(c *gin.Context) {
	admit(c, pc.Engine, c.Param("restaurant_id"))
}

// admit binds the booking body and renders the engine's decision.
func admit(c *gin.Context, engine *services.AdmissionEngine, restaurantID string) {
	var req reservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, ErrInvalidBody)
		return
	}

	key := strings.TrimSpace(c.GetHeader(IdempotencyHeader))
	if key == "" {
		key = req.IdempotencyKey
	}

	reservation, err := engine.Admit(c.Request.Context(), services.AdmissionRequest{
		RestaurantID:   restaurantID,
		TableID:        req.TableID,
		CustomerName:   req.CustomerName,
		CustomerEmail:  req.CustomerEmail,
		GuestCount:     int(req.GuestCount),
		StartTime:      req.StartTime,
		IdempotencyKey: key,
	})
	if err != nil {
		respondAdmissionError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Reservation confirmed", reservation)
}
