package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"
	"github.com/gorilla/websocket"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/theotime2005/blocklucky/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	clientBuffer   = 64
	connectedFrame = "connected"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The dashboard is served from a different origin in development.
		return true
	},
}

type eventClient struct {
	id     string
	conn   *websocket.Conn
	events <-chan models.Event
	cancel func()
}

type connectedMessage struct {
	Type     string `json:"type"`
	ClientID string `json:"clientId"`
}

// StreamEvents upgrades the request and forwards every emitted event as a
// JSON text frame until the client goes away.
func (h *HTTPHandler) StreamEvents(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Errorf("Failed to upgrade to websocket: %v", err)
		return
	}
	id, err := gonanoid.New()
	if err != nil {
		id = c.ClientIP()
	}
	events, cancel := h.service.Events().Subscribe(clientBuffer)
	client := &eventClient{id: id, conn: conn, events: events, cancel: cancel}
	logger.Infof("Event client %s connected", id)

	go client.writePump()
	go client.readPump()
}

// readPump drains control frames and detects disconnects.
func (c *eventClient) readPump() {
	defer func() {
		c.cancel()
		c.conn.Close()
		logger.Infof("Event client %s disconnected", c.id)
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warningf("Event client %s read error: %v", c.id, err)
			}
			return
		}
	}
}

func (c *eventClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(connectedMessage{Type: connectedFrame, ClientID: c.id}); err != nil {
		return
	}
	for {
		select {
		case ev, ok := <-c.events:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
