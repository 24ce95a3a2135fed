package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/reservation-app/models"
	"github.com/yeremiapane/reservation-app/services"
	"github.com/yeremiapane/reservation-app/utils"
	"gorm.io/gorm"
)

var (
	ErrTableNameTaken   = errors.New("a table with this name already exists")
	ErrInvalidCapacity  = errors.New("capacity must be greater than zero")
	ErrTableNameMissing = errors.New("table name is required")
)

type TableController struct {
	DB       *gorm.DB
	Store    *services.ReservationStore
	Notifier services.Notifier
}

func NewTableController(db *gorm.DB, store *services.ReservationStore, notifier services.Notifier) *TableController {
	return &TableController{DB: db, Store: store, Notifier: notifier}
}

type tableView struct {
	models.Table
	Allocated int `json:"allocated"`
	Available int `json:"available"`
}

func (tc *TableController) views(c *gin.Context, restaurantID string, tables []models.Table) ([]tableView, error) {
	reservations, err := tc.Store.ConfirmedReservations(c.Request.Context(), restaurantID)
	if err != nil {
		return nil, err
	}
	out := make([]tableView, 0, len(tables))
	for _, t := range tables {
		out = append(out, tableView{
			Table:     t,
			Allocated: services.AllocatedSeats(t.ID, reservations),
			Available: services.AvailableSeats(t, reservations),
		})
	}
	return out, nil
}

// GetAllTables lists the restaurant's tables with their current allocation.
func (tc *TableController) GetAllTables(c *gin.Context) {
	restaurant, ok := sessionRestaurant(c)
	if !ok {
		return
	}
	tables, err := tc.Store.Tables(c.Request.Context(), restaurant.ID)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	views, err := tc.views(c, restaurant.ID, tables)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of tables", views)
}

func (tc *TableController) GetTable(c *gin.Context) {
	restaurant, ok := sessionRestaurant(c)
	if !ok {
		return
	}
	table, ok := tc.loadTable(c, restaurant.ID)
	if !ok {
		return
	}
	views, err := tc.views(c, restaurant.ID, []models.Table{*table})
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table details", views[0])
}

// CreateTable adds a seating unit. Names are unique within a restaurant.
func (tc *TableController) CreateTable(c *gin.Context) {
	restaurant, ok := sessionRestaurant(c)
	if !ok {
		return
	}

	var req struct {
		RoomName  string `json:"room_name"`
		TableName string `json:"table_name"`
		Capacity  int    `json:"capacity"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	table := models.Table{
		RestaurantID: restaurant.ID,
		RoomName:     strings.TrimSpace(req.RoomName),
		Name:         strings.TrimSpace(req.TableName),
		Capacity:     req.Capacity,
	}
	if err := tc.validate(c, &table); err != nil {
		tc.respondInvalid(c, err)
		return
	}

	if err := tc.DB.WithContext(c.Request.Context()).Create(&table).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	tc.Notifier.TablesChanged(c.Request.Context(), restaurant.ID)
	utils.InfoLogger.Printf("New table created: %s (capacity=%d)", table.Name, table.Capacity)
	utils.RespondJSON(c, http.StatusCreated, "Table created successfully", table)
}

func (tc *TableController) UpdateTable(c *gin.Context) {
	restaurant, ok := sessionRestaurant(c)
	if !ok {
		return
	}
	table, ok := tc.loadTable(c, restaurant.ID)
	if !ok {
		return
	}

	var body struct {
		RoomName  *string `json:"room_name"`
		TableName *string `json:"table_name"`
		Capacity  *int    `json:"capacity"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if body.RoomName != nil {
		table.RoomName = strings.TrimSpace(*body.RoomName)
	}
	if body.TableName != nil {
		table.Name = strings.TrimSpace(*body.TableName)
	}
	if body.Capacity != nil {
		table.Capacity = *body.Capacity
	}
	if err := tc.validate(c, table); err != nil {
		tc.respondInvalid(c, err)
		return
	}

	if err := tc.DB.WithContext(c.Request.Context()).Save(table).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	tc.Notifier.TablesChanged(c.Request.Context(), restaurant.ID)
	utils.InfoLogger.Printf("Table %s updated (capacity=%d)", table.ID, table.Capacity)
	utils.RespondJSON(c, http.StatusOK, "Table updated", table)
}

// DeleteTable removes the table. Its reservations stay, unassigned.
func (tc *TableController) DeleteTable(c *gin.Context) {
	restaurant, ok := sessionRestaurant(c)
	if !ok {
		return
	}
	table, ok := tc.loadTable(c, restaurant.ID)
	if !ok {
		return
	}

	err := tc.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Reservation{}).Where("table_id = ?", table.ID).Update("table_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(table).Error
	})
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	tc.Notifier.TablesChanged(c.Request.Context(), restaurant.ID)
	utils.InfoLogger.Printf("Table %s deleted", table.ID)
	utils.RespondJSON(c, http.StatusOK, "Table deleted", gin.H{"id": table.ID})
}

// GetSeatingChart groups tables by room with their live availability.
func (tc *TableController) GetSeatingChart(c *gin.Context) {
	restaurant, ok := sessionRestaurant(c)
	if !ok {
		return
	}
	chart, err := tc.Store.SeatingChart(c.Request.Context(), restaurant.ID)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Seating chart", chart)
}

func (tc *TableController) loadTable(c *gin.Context, restaurantID string) (*models.Table, bool) {
	table, err := tc.Store.Table(c.Request.Context(), restaurantID, c.Param("table_id"))
	if errors.Is(err, services.ErrTableNotFound) {
		utils.RespondError(c, http.StatusNotFound, err)
		return nil, false
	}
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return nil, false
	}
	return table, true
}

func (tc *TableController) validate(c *gin.Context, table *models.Table) error {
	if table.Name == "" {
		return ErrTableNameMissing
	}
	if table.Capacity <= 0 {
		return ErrInvalidCapacity
	}

	var others []models.Table
	err := tc.DB.WithContext(c.Request.Context()).
		Where("restaurant_id = ? AND id <> ?", table.RestaurantID, table.ID).
		Find(&others).Error
	if err != nil {
		return err
	}
	for _, other := range others {
		if strings.EqualFold(other.Name, table.Name) {
			return ErrTableNameTaken
		}
	}
	return nil
}

func (tc *TableController) respondInvalid(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrTableNameTaken):
		utils.RespondError(c, http.StatusConflict, err)
	case errors.Is(err, ErrTableNameMissing), errors.Is(err, ErrInvalidCapacity):
		utils.RespondError(c, http.StatusBadRequest, err)
	default:
		utils.RespondError(c, http.StatusInternalServerError, err)
	}
}
