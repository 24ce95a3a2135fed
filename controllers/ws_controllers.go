package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/yeremiapane/reservation-app/hub"
	"github.com/yeremiapane/reservation-app/utils"
)

type WSController struct {
	Hub      *hub.Hub
	upgrader websocket.Upgrader
}

// NewWSController accepts upgrades from the given origins, or from any
// origin when the list is empty.
func NewWSController(h *hub.Hub, allowedOrigins []string) *WSController {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}
	return &WSController{
		Hub: h,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if len(allowed) == 0 {
					return true
				}
				origin := r.Header.Get("Origin")
				_, ok := allowed[origin]
				return origin == "" || ok
			},
		},
	}
}

// Serve keeps one owner dashboard subscribed to its restaurant's events.
func (wc *WSController) Serve(c *gin.Context) {
	restaurant, ok := sessionRestaurant(c)
	if !ok {
		return
	}

	conn, err := wc.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.ErrorLogger.Warnf("Websocket upgrade failed: %v", err)
		return
	}

	client := wc.Hub.Register(conn, restaurant.ID)
	utils.InfoLogger.Printf("Dashboard connected for restaurant %s", restaurant.ID)
	client.ReadLoop()
	wc.Hub.Unregister(client)
	utils.InfoLogger.Printf("Dashboard disconnected for restaurant %s", restaurant.ID)
}
