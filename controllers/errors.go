package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/reservation-app/middlewares"
	"github.com/yeremiapane/reservation-app/models"
	"github.com/yeremiapane/reservation-app/services"
	"github.com/yeremiapane/reservation-app/utils"
)

var (
	ErrRestaurantSession = errors.New("restaurant session missing")
	ErrInvalidBody       = errors.New("invalid request body")
)

var admissionStatus = map[services.AdmissionErrorKind]int{
	services.KindValidation:           http.StatusBadRequest,
	services.KindNotFound:             http.StatusNotFound,
	services.KindInvalidTable:         http.StatusUnprocessableEntity,
	services.KindOutsideHours:         http.StatusUnprocessableEntity,
	services.KindInsufficientCapacity: http.StatusConflict,
	services.KindDenied:               http.StatusOK,
	services.KindServiceUnavailable:   http.StatusServiceUnavailable,
	services.KindBackend:              http.StatusInternalServerError,
}

// respondAdmissionError renders an engine error. Business refusals keep
// their message and carry the details in data.
func respondAdmissionError(c *gin.Context, err error) {
	admissionErr, ok := services.AsAdmissionError(err)
	if !ok {
		utils.ErrorLogger.Errorf("Unexpected admission failure: %v", err)
		utils.RespondError(c, http.StatusInternalServerError, errors.New("internal server error"))
		return
	}

	code, ok := admissionStatus[admissionErr.Kind]
	if !ok {
		code = http.StatusInternalServerError
	}
	if admissionErr.Kind == services.KindBackend {
		utils.ErrorLogger.Errorf("Admission backend error: %v", admissionErr.Err)
	}

	data := gin.H{"reason": admissionErr.Kind}
	if admissionErr.Kind == services.KindDenied {
		data["decision"] = "denied"
	}
	if admissionErr.RemainingSeats != nil {
		data["remaining_seats"] = *admissionErr.RemainingSeats
	}
	if admissionErr.Hours != nil {
		data["hours"] = admissionErr.Hours
	}
	utils.RespondRejected(c, code, admissionErr.Message, data)
}

// sessionRestaurant is the restaurant loaded by the session middleware.
func sessionRestaurant(c *gin.Context) (*models.Restaurant, bool) {
	restaurant := middlewares.CurrentRestaurant(c)
	if restaurant == nil {
		utils.RespondError(c, http.StatusUnauthorized, ErrRestaurantSession)
		return nil, false
	}
	return restaurant, true
}
