package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/reservation-app/config"
	"github.com/yeremiapane/reservation-app/controllers"
	"github.com/yeremiapane/reservation-app/hub"
	"github.com/yeremiapane/reservation-app/middlewares"
	"github.com/yeremiapane/reservation-app/services"
	"github.com/yeremiapane/reservation-app/utils"
	"gorm.io/gorm"
)

// Dependencies are the shared services every handler is built from.
type Dependencies struct {
	Config   config.Config
	DB       *gorm.DB
	JWT      *utils.JWTManager
	Hub      *hub.Hub
	Store    *services.ReservationStore
	Engine   *services.AdmissionEngine
	Notifier services.Notifier
}

func SetupRouter(deps Dependencies) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middlewares.SecurityHeaders(deps.Config.Env == "production"))
	r.Use(middlewares.CORSMiddlewares(deps.Config.CorsAllowedOrigins))
	r.Use(middlewares.LoggerMiddleware())
	r.Use(middlewares.NewRateLimiter(deps.Config.RateLimitPerSecond, deps.Config.RateLimitBurst).RateLimit())

	authCtrl := controllers.NewAuthController(deps.DB, deps.JWT, deps.Config.DefaultTimezone)
	restaurantCtrl := controllers.NewRestaurantController(deps.DB, deps.Engine)
	tableCtrl := controllers.NewTableController(deps.DB, deps.Store, deps.Notifier)
	reservationCtrl := controllers.NewReservationController(deps.Store, deps.Engine)
	analyticsCtrl := controllers.NewAnalyticsController(deps.Store, deps.Engine)
	publicCtrl := controllers.NewPublicController(deps.Store, deps.Engine)
	wsCtrl := controllers.NewWSController(deps.Hub, deps.Config.CorsAllowedOrigins)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	strict := middlewares.NewStrictRateLimiter(deps.Config.StrictRatePerMin)
	r.POST("/register", strict, authCtrl.Register)
	r.POST("/login", strict, authCtrl.Login)

	public := r.Group("/public")
	{
		public.GET("/restaurants", publicCtrl.ListRestaurants)
		public.GET("/restaurants/:restaurant_id/tables", publicCtrl.ListTables)
		public.POST("/restaurants/:restaurant_id/reservations", strict, publicCtrl.CreateReservation)
	}

	session := middlewares.RestaurantSession(deps.DB)
	r.GET("/ws", middlewares.WebSocketAuthMiddleware(deps.JWT), session, wsCtrl.Serve)

	api := r.Group("/api")
	api.Use(middlewares.AuthMiddleware(deps.JWT), session)
	{
		api.POST("/logout", authCtrl.Logout)

		api.GET("/restaurant", restaurantCtrl.GetRestaurant)
		api.PATCH("/restaurant", restaurantCtrl.UpdateRestaurant)
		api.PUT("/restaurant/hours", restaurantCtrl.UpdateOperatingHours)
		api.GET("/restaurant/hours/check", restaurantCtrl.CheckHours)

		api.GET("/tables", tableCtrl.GetAllTables)
		api.POST("/tables", tableCtrl.CreateTable)
		api.GET("/tables/:table_id", tableCtrl.GetTable)
		api.PATCH("/tables/:table_id", tableCtrl.UpdateTable)
		api.DELETE("/tables/:table_id", tableCtrl.DeleteTable)
		api.GET("/seating-chart", tableCtrl.GetSeatingChart)

		api.GET("/reservations", reservationCtrl.GetReservations)
		api.POST("/reservations", reservationCtrl.CreateReservation)
		api.GET("/reservations/:reservation_id", reservationCtrl.GetReservation)
		api.PATCH("/reservations/:reservation_id", reservationCtrl.UpdateReservation)
		api.DELETE("/reservations/:reservation_id", reservationCtrl.DeleteReservation)
		api.POST("/reservations/:reservation_id/complete", reservationCtrl.CompleteReservation)
		api.POST("/reservations/:reservation_id/cancel", reservationCtrl.CancelReservation)

		api.GET("/analytics", analyticsCtrl.GetAnalytics)
		api.GET("/analytics/export-pdf", analyticsCtrl.ExportPDF)
	}

	return r
}
