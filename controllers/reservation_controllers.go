package controllers

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/reservation-app/models"
	"github.com/yeremiapane/reservation-app/services"
	"github.com/yeremiapane/reservation-app/utils"
)

var defaultListStatuses = []models.ReservationStatus{models.StatusConfirmed, models.StatusPending}

type ReservationController struct {
	Store  *services.ReservationStore
	Engine *services.AdmissionEngine
}

func NewReservationController(store *services.ReservationStore, engine *services.AdmissionEngine) *ReservationController {
	return &ReservationController{Store: store, Engine: engine}
}

// GetReservations lists confirmed and pending reservations unless ?status
// names others. "all" lifts the filter.
func (rc *ReservationController) GetReservations(c *gin.Context) {
	restaurant, ok := sessionRestaurant(c)
	if !ok {
		return
	}

	filter := services.ReservationFilter{Statuses: defaultListStatuses, TableID: c.Query("table_id")}
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		if strings.EqualFold(raw, "all") {
			filter.Statuses = nil
		} else {
			statuses, err := models.ParseReservationStatuses(raw)
			if err != nil {
				utils.RespondError(c, http.StatusBadRequest, err)
				return
			}
			filter.Statuses = statuses
		}
	}

	from, to, err := parseRange(c, rc.Engine.Location(restaurant))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	filter.From, filter.To = from, to

	reservations, err := rc.Store.Reservations(c.Request.Context(), restaurant.ID, filter)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of reservations", reservations)
}

// CreateReservation books on behalf of a guest. It goes through the same
// admission path as the public route.
func (rc *ReservationController) CreateReservation(c *gin.Context) {
	restaurant, ok := sessionRestaurant(c)
	if !ok {
		return
	}
	admit(c, rc.Engine, restaurant.ID)
}

func (rc *ReservationController) GetReservation(c *gin.Context) {
	restaurant, ok := sessionRestaurant(c)
	if !ok {
		return
	}
	reservation, err := rc.Store.Reservation(c.Request.Context(), restaurant.ID, c.Param("reservation_id"))
	if errors.Is(err, services.ErrReservationNotFound) {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Reservation details", reservation)
}

type reservationPatchBody struct {
	TableID       *string      `json:"table_id"`
	CustomerName  *string      `json:"customer_name"`
	CustomerEmail *string      `json:"customer_email"`
	GuestCount    *flexibleInt `json:"guest_count"`
	StartTime     *string      `json:"start_time"`
	Status        *string      `json:"status"`
	ActualEndTime *string      `json:"actual_end_time"`
	PricePaid     *float64     `json:"price_paid"`
}

func (rc *ReservationController) UpdateReservation(c *gin.Context) {
	restaurant, ok := sessionRestaurant(c)
	if !ok {
		return
	}

	var body reservationPatchBody
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, ErrInvalidBody)
		return
	}

	loc := rc.Engine.Location(restaurant)
	patch := services.ReservationPatch{
		TableID:       body.TableID,
		CustomerName:  body.CustomerName,
		CustomerEmail: body.CustomerEmail,
		StartTime:     body.StartTime,
		PricePaid:     body.PricePaid,
	}
	if body.GuestCount != nil {
		n := int(*body.GuestCount)
		patch.GuestCount = &n
	}
	if body.Status != nil {
		status, err := models.ParseReservationStatus(*body.Status)
		if err != nil {
			utils.RespondError(c, http.StatusBadRequest, err)
			return
		}
		patch.Status = &status
	}
	if body.ActualEndTime != nil {
		end, err := services.ParseStartTime(*body.ActualEndTime, loc)
		if err != nil {
			utils.RespondError(c, http.StatusBadRequest, errors.New("invalid actual_end_time"))
			return
		}
		patch.ActualEndTime = &end
	}

	updated, err := rc.Engine.Amend(c.Request.Context(), restaurant.ID, c.Param("reservation_id"), patch)
	if err != nil {
		respondAdmissionError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Reservation updated", updated)
}

// CompleteReservation checks the guests out. Both fields are optional.
func (rc *ReservationController) CompleteReservation(c *gin.Context) {
	restaurant, ok := sessionRestaurant(c)
	if !ok {
		return
	}

	var body struct {
		ActualEndTime *string  `json:"actual_end_time"`
		PricePaid     *float64 `json:"price_paid"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
			utils.RespondError(c, http.StatusBadRequest, ErrInvalidBody)
			return
		}
	}

	var actualEnd *time.Time
	if body.ActualEndTime != nil && strings.TrimSpace(*body.ActualEndTime) != "" {
		end, err := services.ParseStartTime(*body.ActualEndTime, rc.Engine.Location(restaurant))
		if err != nil {
			utils.RespondError(c, http.StatusBadRequest, errors.New("invalid actual_end_time"))
			return
		}
		actualEnd = &end
	}
	if body.PricePaid != nil && *body.PricePaid < 0 {
		utils.RespondError(c, http.StatusBadRequest, errors.New("price_paid cannot be negative"))
		return
	}

	completed, err := rc.Engine.Complete(c.Request.Context(), restaurant.ID, c.Param("reservation_id"), actualEnd, body.PricePaid)
	if err != nil {
		respondAdmissionError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Reservation completed", completed)
}

func (rc *ReservationController) CancelReservation(c *gin.Context) {
	restaurant, ok := sessionRestaurant(c)
	if !ok {
		return
	}
	cancelled, err := rc.Engine.Cancel(c.Request.Context(), restaurant.ID, c.Param("reservation_id"))
	if err != nil {
		respondAdmissionError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Reservation cancelled", cancelled)
}

func (rc *ReservationController) DeleteReservation(c *gin.Context) {
	restaurant, ok := sessionRestaurant(c)
	if !ok {
		return
	}
	id := c.Param("reservation_id")
	if err := rc.Engine.Remove(c.Request.Context(), restaurant.ID, id); err != nil {
		respondAdmissionError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Reservation deleted", gin.H{"id": id})
}

const dateLayout = "2006-01-02"

// parseRange reads ?from and ?to. A bare date for "to" includes that whole
// day.
func parseRange(c *gin.Context, loc *time.Location) (*time.Time, *time.Time, error) {
	parse := func(name string, endOfDay bool) (*time.Time, error) {
		raw := strings.TrimSpace(c.Query(name))
		if raw == "" {
			return nil, nil
		}
		if d, err := time.ParseInLocation(dateLayout, raw, loc); err == nil {
			if endOfDay {
				d = d.AddDate(0, 0, 1)
			}
			return &d, nil
		}
		t, err := services.ParseStartTime(raw, loc)
		if err != nil {
			return nil, errors.New("invalid " + name + " date")
		}
		return &t, nil
	}

	from, err := parse("from", false)
	if err != nil {
		return nil, nil, err
	}
	to, err := parse("to", true)
	if err != nil {
		return nil, nil, err
	}
	if from != nil && to != nil && !to.After(*from) {
		return nil, nil, errors.New("to must be after from")
	}
	return from, to, nil
}
