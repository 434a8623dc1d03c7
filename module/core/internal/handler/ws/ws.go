// Package ws bridges websocket connections onto the event distributor.
// Each connection is one subscriber: it joins the global topic on connect
// and may join or leave per-entity topics with control messages.
package ws

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/nischhal-hub/lynx.io-server/module/core/domain"
	"github.com/nischhal-hub/lynx.io-server/module/core/internal/distributor"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	sendBufferSize = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browser clients connect cross-origin in development.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// controlMessage is the client-to-server frame.
type controlMessage struct {
	Action string `json:"action"`
	Topic  string `json:"topic"`
}

type client struct {
	id   string
	conn *websocket.Conn
	hub  *Handler
	send chan domain.Event
	done chan struct{}
}

func (c *client) ID() string { return c.id }

// Send enqueues without blocking; a full buffer drops the event.
func (c *client) Send(event domain.Event) bool {
	select {
	case c.send <- event:
		return true
	default:
		return false
	}
}

type Handler struct {
	dist *distributor.Distributor
}

func NewHandler(dist *distributor.Distributor) *Handler {
	return &Handler{dist: dist}
}

func (h *Handler) Register(r *gin.RouterGroup) {
	r.GET("/ws", h.Serve)
}

func (h *Handler) Serve(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("ws: upgrade: %v", err)
		return
	}

	cl := &client{
		id:   uuid.NewString(),
		conn: conn,
		hub:  h,
		send: make(chan domain.Event, sendBufferSize),
		done: make(chan struct{}),
	}
	h.dist.Join(domain.TopicGlobal, cl)

	go cl.writeLoop()
	go cl.readLoop()
}

func (c *client) readLoop() {
	// send stays open: the distributor may still hold a reference to this
	// subscriber while a publish is in flight. The done channel stops the
	// write loop instead.
	defer func() {
		c.hub.dist.LeaveAll(c.id)
		close(c.done)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg controlMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("ws: client %s: %v", c.id, err)
			}
			return
		}
		c.handleControl(msg)
	}
}

func (c *client) handleControl(msg controlMessage) {
	if msg.Topic == "" {
		return
	}
	switch msg.Action {
	case "join":
		c.hub.dist.Join(msg.Topic, c)
	case "leave":
		c.hub.dist.Leave(msg.Topic, c.id)
	}
}

func (c *client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case event := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(event); err != nil {
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
