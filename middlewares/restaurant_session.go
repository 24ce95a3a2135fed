package middlewares

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/reservation-app/models"
	"github.com/yeremiapane/reservation-app/utils"
	"gorm.io/gorm"
)

const ContextRestaurant = "restaurant"

// RestaurantSession loads the restaurant owned by the authenticated user and
// stores it in the context. Handlers never look the restaurant up
// themselves.
func RestaurantSession(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString(ContextUserID)
		if userID == "" {
			utils.RespondError(c, http.StatusUnauthorized, errors.New("unauthorized"))
			c.Abort()
			return
		}

		query := db.WithContext(c.Request.Context()).Where("owner_id = ?", userID)
		if restaurantID := c.GetString(ContextRestaurantID); restaurantID != "" {
			query = query.Where("id = ?", restaurantID)
		}

		var restaurant models.Restaurant
		err := query.Order("created_at ASC").First(&restaurant).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondError(c, http.StatusForbidden, errors.New("no restaurant is linked to this account"))
			c.Abort()
			return
		}
		if err != nil {
			utils.ErrorLogger.Errorf("Error loading restaurant session: %v", err)
			utils.RespondError(c, http.StatusInternalServerError, errors.New("failed to load restaurant"))
			c.Abort()
			return
		}

		c.Set(ContextRestaurant, &restaurant)
		c.Next()
	}
}

// CurrentRestaurant is the restaurant stored by RestaurantSession.
func CurrentRestaurant(c *gin.Context) *models.Restaurant {
	if v, ok := c.Get(ContextRestaurant); ok {
		if restaurant, ok := v.(*models.Restaurant); ok {
			return restaurant
		}
	}
	return nil
}
