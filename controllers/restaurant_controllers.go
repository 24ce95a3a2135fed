package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/reservation-app/models"
	"github.com/yeremiapane/reservation-app/services"
	"github.com/yeremiapane/reservation-app/utils"
	"gorm.io/gorm"
)

type RestaurantController struct {
	DB     *gorm.DB
	Engine *services.AdmissionEngine
}

func NewRestaurantController(db *gorm.DB, engine *services.AdmissionEngine) *RestaurantController {
	return &RestaurantController{DB: db, Engine: engine}
}

func (rc *RestaurantController) restaurantView(restaurant *models.Restaurant) gin.H {
	return gin.H{
		"restaurant":          restaurant,
		"effective_mode":      rc.Engine.Mode(restaurant),
		"effective_timezone":  rc.Engine.Location(restaurant).String(),
		"has_operating_hours": restaurant.OperatingHours.HasSchedule(),
	}
}

func (rc *RestaurantController) GetRestaurant(c *gin.Context) {
	restaurant, ok := sessionRestaurant(c)
	if !ok {
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Restaurant details", rc.restaurantView(restaurant))
}

// UpdateRestaurant changes the profile. The owner never changes.
func (rc *RestaurantController) UpdateRestaurant(c *gin.Context) {
	restaurant, ok := sessionRestaurant(c)
	if !ok {
		return
	}

	var body struct {
		Name          *string `json:"name"`
		Email         *string `json:"email"`
		Timezone      *string `json:"timezone"`
		AdmissionMode *string `json:"admission_mode"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	updates := map[string]interface{}{}
	if body.Name != nil {
		name := strings.TrimSpace(*body.Name)
		if name == "" {
			utils.RespondError(c, http.StatusBadRequest, errors.New("restaurant name is required"))
			return
		}
		updates["name"] = name
	}
	if body.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*body.Email))
		if !strings.Contains(email, "@") {
			utils.RespondError(c, http.StatusBadRequest, errors.New("invalid email"))
			return
		}
		updates["email"] = email
	}
	if body.Timezone != nil {
		tz := strings.TrimSpace(*body.Timezone)
		if _, err := time.LoadLocation(tz); tz == "" || err != nil {
			utils.RespondError(c, http.StatusBadRequest, errors.New("unknown timezone: "+tz))
			return
		}
		updates["timezone"] = tz
	}
	if body.AdmissionMode != nil {
		mode, err := parseAdmissionMode(*body.AdmissionMode)
		if err != nil {
			utils.RespondError(c, http.StatusBadRequest, err)
			return
		}
		updates["admission_mode"] = mode
	}
	if len(updates) == 0 {
		utils.RespondError(c, http.StatusBadRequest, errors.New("nothing to update"))
		return
	}

	db := rc.DB.WithContext(c.Request.Context())
	if err := db.Model(&models.Restaurant{}).Where("id = ?", restaurant.ID).Updates(updates).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	if err := db.Where("id = ?", restaurant.ID).First(restaurant).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.InfoLogger.Printf("Restaurant %s updated", restaurant.ID)
	utils.RespondJSON(c, http.StatusOK, "Restaurant updated", rc.restaurantView(restaurant))
}

// UpdateOperatingHours replaces the whole schedule. Any shape accepted by
// models.OperatingHours is allowed; clock strings are checked up front.
func (rc *RestaurantController) UpdateOperatingHours(c *gin.Context) {
	restaurant, ok := sessionRestaurant(c)
	if !ok {
		return
	}

	var hours models.OperatingHours
	if err := c.ShouldBindJSON(&hours); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if err := validateHours(hours); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	restaurant.OperatingHours = hours
	err := rc.DB.WithContext(c.Request.Context()).
		Model(&models.Restaurant{}).Where("id = ?", restaurant.ID).
		Update("operating_hours", hours).Error
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.InfoLogger.Printf("Operating hours of restaurant %s replaced", restaurant.ID)
	utils.RespondJSON(c, http.StatusOK, "Operating hours updated", restaurant.OperatingHours)
}

// CheckHours reports whether start_time falls within the operating hours.
func (rc *RestaurantController) CheckHours(c *gin.Context) {
	restaurant, ok := sessionRestaurant(c)
	if !ok {
		return
	}

	loc := rc.Engine.Location(restaurant)
	start, err := services.ParseStartTime(c.Query("start_time"), loc)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	if !restaurant.OperatingHours.HasSchedule() {
		utils.RespondJSON(c, http.StatusOK, "No operating hours configured", services.HoursCheck{
			Allowed: true,
			Weekday: start.In(loc).Weekday().String(),
		})
		return
	}

	check := services.CheckOperatingHours(start.In(loc), restaurant.OperatingHours)
	message := "Within operating hours"
	if !check.Allowed {
		message = check.Message()
	}
	utils.RespondJSON(c, http.StatusOK, message, check)
}

func validateHours(hours models.OperatingHours) error {
	check := func(label string, h models.DayHours) error {
		if _, ok := services.ParseClock(h.Open); !ok {
			return errors.New(label + ": unreadable opening time " + h.Open)
		}
		if _, ok := services.ParseClock(h.Close); !ok {
			return errors.New(label + ": unreadable closing time " + h.Close)
		}
		return nil
	}
	if hours.Default != nil {
		if err := check("default", *hours.Default); err != nil {
			return err
		}
	}
	for wd, day := range hours.Days {
		if day.Closed {
			continue
		}
		if err := check(strings.ToLower(wd.String()), day.Hours); err != nil {
			return err
		}
	}
	return nil
}
