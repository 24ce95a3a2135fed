package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/reservation-app/middlewares"
	"github.com/yeremiapane/reservation-app/models"
	"github.com/yeremiapane/reservation-app/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const minPasswordLength = 6

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email is already registered")
)

type AuthController struct {
	DB  *gorm.DB
	JWT *utils.JWTManager
	// DefaultTimezone is stored on restaurants registered without one.
	DefaultTimezone string
}

func NewAuthController(db *gorm.DB, jwt *utils.JWTManager, defaultTimezone string) *AuthController {
	return &AuthController{DB: db, JWT: jwt, DefaultTimezone: defaultTimezone}
}

type registerRequest struct {
	Name            string                 `json:"name"`
	Email           string                 `json:"email" binding:"required,email"`
	Password        string                 `json:"password" binding:"required"`
	ConfirmPassword string                 `json:"confirm_password" binding:"required"`
	RestaurantName  string                 `json:"restaurant_name" binding:"required"`
	Timezone        string                 `json:"timezone"`
	AdmissionMode   string                 `json:"admission_mode"`
	OperatingHours  *models.OperatingHours `json:"operating_hours"`
}

// Register creates the owner account together with its restaurant.
func (ac *AuthController) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if len(req.Password) < minPasswordLength {
		utils.RespondError(c, http.StatusBadRequest, errors.New("password must be at least 6 characters"))
		return
	}
	if req.Password != req.ConfirmPassword {
		utils.RespondError(c, http.StatusBadRequest, errors.New("passwords do not match"))
		return
	}
	restaurantName := strings.TrimSpace(req.RestaurantName)
	if restaurantName == "" {
		utils.RespondError(c, http.StatusBadRequest, errors.New("restaurant name is required"))
		return
	}

	timezone := strings.TrimSpace(req.Timezone)
	if timezone == "" {
		timezone = ac.DefaultTimezone
	}
	if _, err := time.LoadLocation(timezone); err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("unknown timezone: "+timezone))
		return
	}
	mode, err := parseAdmissionMode(req.AdmissionMode)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	user := models.User{Name: strings.TrimSpace(req.Name), Email: email, Password: string(hashed)}
	restaurant := models.Restaurant{
		Email:         email,
		Name:          restaurantName,
		Timezone:      timezone,
		AdmissionMode: mode,
	}
	if req.OperatingHours != nil {
		restaurant.OperatingHours = *req.OperatingHours
	}

	err = ac.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.User{}).Where("email = ?", email).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrEmailTaken
		}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		restaurant.OwnerID = user.ID
		return tx.Create(&restaurant).Error
	})
	if errors.Is(err, ErrEmailTaken) {
		utils.RespondError(c, http.StatusConflict, err)
		return
	}
	if err != nil {
		utils.ErrorLogger.Errorf("Error registering %s: %v", email, err)
		utils.RespondError(c, http.StatusInternalServerError, errors.New("failed to register"))
		return
	}

	utils.InfoLogger.Printf("New restaurant registered: %s (owner=%s)", restaurant.Name, user.Email)
	utils.RespondJSON(c, http.StatusCreated, "Registration successful", gin.H{
		"user_id":       user.ID,
		"restaurant_id": restaurant.ID,
	})
}

// Login returns a bearer token bound to the owner and their restaurant.
func (ac *AuthController) Login(c *gin.Context) {
	var input struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	db := ac.DB.WithContext(c.Request.Context())
	email := strings.ToLower(strings.TrimSpace(input.Email))

	var user models.User
	if err := db.Where("email = ?", email).First(&user).Error; err != nil {
		utils.RespondError(c, http.StatusUnauthorized, ErrInvalidCredentials)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)); err != nil {
		utils.RespondError(c, http.StatusUnauthorized, ErrInvalidCredentials)
		return
	}

	var restaurant models.Restaurant
	if err := db.Where("owner_id = ?", user.ID).Order("created_at ASC").First(&restaurant).Error; err != nil {
		utils.RespondError(c, http.StatusForbidden, errors.New("no restaurant is linked to this account"))
		return
	}

	token, err := ac.JWT.GenerateToken(user.ID, restaurant.ID)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.InfoLogger.Printf("Login successful for %s", user.Email)
	utils.RespondJSON(c, http.StatusOK, "Login successful", gin.H{
		"token":           token,
		"restaurant_id":   restaurant.ID,
		"restaurant_name": restaurant.Name,
	})
}

// Logout revokes the presented token until it would have expired anyway.
func (ac *AuthController) Logout(c *gin.Context) {
	token := c.GetString(middlewares.ContextToken)
	claims := middlewares.Claims(c)
	if token == "" || claims == nil {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("unauthorized"))
		return
	}
	ac.JWT.Revoke(token, claims)
	utils.RespondJSON(c, http.StatusOK, "Logged out", nil)
}

// parseAdmissionMode accepts "", "local" and "ai". Empty keeps the
// deployment default.
func parseAdmissionMode(raw string) (string, error) {
	mode := strings.ToLower(strings.TrimSpace(raw))
	switch mode {
	case "", models.AdmissionModeLocal, models.AdmissionModeAI:
		return mode, nil
	}
	return "", errors.New("admission_mode must be local or ai")
}
