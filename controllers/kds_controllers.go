package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/yeremiapane/qr-table-order/kds"
	"github.com/yeremiapane/qr-table-order/middlewares"
	"github.com/yeremiapane/qr-table-order/utils"
)

type KDSController struct {
	Hub      *kds.Hub
	upgrader websocket.Upgrader
}

// NewKDSController accepts upgrades from the configured origins only; "*"
// accepts any.
func NewKDSController(hub *kds.Hub, origins []string) *KDSController {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return &KDSController{
		Hub: hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed["*"] || allowed[origin]
			},
		},
	}
}

// Connect -> GET /ws, pushes dashboard events until the client leaves.
func (kc *KDSController) Connect(c *gin.Context) {
	role := middlewares.CurrentRole(c)

	ws, err := kc.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.ErrorLogger.Printf("kds: upgrade failed: %v", err)
		return
	}

	kc.Hub.Register(ws, string(role))
	defer kc.Hub.Unregister(ws)

	// Clients only listen; reading keeps pings/close frames flowing.
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			return
		}
	}
}
