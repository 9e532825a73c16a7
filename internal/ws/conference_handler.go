package ws

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/classverse/classroom_backend/internal/middleware"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins; rely on the auth cookie.
		return true
	},
}

// ConferenceHandler upgrades an authenticated request to a websocket and
// registers it with the hub. Identity comes from the verified cookie, so
// the relay never trusts a client-supplied user id.
func ConferenceHandler(hub *ConferenceHub) gin.HandlerFunc {
	return func(c *gin.Context) {
		if hub == nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "realtime not available"})
			return
		}
		user, ok := middleware.CurrentUser(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		client := newConferenceClient(hub, conn, uuid.NewString(), user.ID, user.Username)
		hub.register <- client

		go client.writePump()
		client.readPump()
	}
}
