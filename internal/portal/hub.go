package portal

import (
	"context"
	stderrors "errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"ctf-portal/internal/api/client"
	"ctf-portal/internal/domain/notification"
)

// Message types pushed over /ws.
const (
	MessageNotice       = "notice"
	MessageRedirect     = "redirect"
	MessageNotification = "notification"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	readLimit  = 512
	sendBuffer = 16
)

var ErrHubClosed = stderrors.New("hub closed")

// Message is one frame sent to a browser tab.
type Message struct {
	Type         string                     `json:"type"`
	Level        string                     `json:"level,omitempty"`
	Status       int                        `json:"status,omitempty"`
	Message      string                     `json:"message,omitempty"`
	Redirect     string                     `json:"redirect,omitempty"`
	Notification *notification.Notification `json:"notification,omitempty"`
}

// NoticeMessage converts an adapter notice into a frame.
func NoticeMessage(n client.Notice) Message {
	typ := MessageNotice
	if n.Redirect != "" {
		typ = MessageRedirect
	}
	return Message{Type: typ, Level: n.Level, Status: n.Status, Message: n.Message, Redirect: n.Redirect}
}

type conn struct {
	ws   *websocket.Conn
	send chan Message
	done chan struct{}
}

// Hub fans messages out to every open tab of a sid. A tab that falls behind
// loses messages rather than blocking the sender.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *zap.Logger

	mu     sync.RWMutex
	conns  map[string]map[*conn]struct{}
	closed bool
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: logger,
		conns:  make(map[string]map[*conn]struct{}),
	}
}

// Serve upgrades the request and blocks until the tab goes away.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, sid string) error {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	c := &conn{ws: ws, send: make(chan Message, sendBuffer), done: make(chan struct{})}
	if !h.add(sid, c) {
		ws.Close()
		return ErrHubClosed
	}
	h.logger.Debug("websocket connected", zap.Int("tabs", h.Subscribers(sid)))

	go c.writeLoop(h.logger)
	c.readLoop()

	h.remove(sid, c)
	<-c.done
	h.logger.Debug("websocket disconnected")
	return nil
}

// Send queues m for every tab of sid and reports how many accepted it.
func (h *Hub) Send(sid string, m Message) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for c := range h.conns[sid] {
		select {
		case c.send <- m:
			n++
		default:
			h.logger.Warn("websocket send buffer full, dropping message", zap.String("type", m.Type))
		}
	}
	return n
}

// Notifier returns an adapter notifier that pushes to sid's tabs.
func (h *Hub) Notifier(sid string) client.Notifier {
	return client.NotifierFunc(func(_ context.Context, n client.Notice) {
		h.Send(sid, NoticeMessage(n))
	})
}

func (h *Hub) Subscribers(sid string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[sid])
}

// Close disconnects every tab. Later Serve calls fail with ErrHubClosed.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for sid, set := range h.conns {
		for c := range set {
			close(c.send)
		}
		delete(h.conns, sid)
	}
}

func (h *Hub) add(sid string, c *conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	set, ok := h.conns[sid]
	if !ok {
		set = make(map[*conn]struct{})
		h.conns[sid] = set
	}
	set[c] = struct{}{}
	return true
}

func (h *Hub) remove(sid string, c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.conns[sid]
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	close(c.send)
	if len(set) == 0 {
		delete(h.conns, sid)
	}
}

// readLoop discards client frames; it exists to process pongs and notice
// the close.
func (c *conn) readLoop() {
	c.ws.SetReadLimit(readLimit)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *conn) writeLoop(logger *zap.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
		close(c.done)
	}()
	for {
		select {
		case m, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.ws.WriteJSON(m); err != nil {
				logger.Debug("websocket write failed", zap.Error(err))
				c.drain()
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.drain()
				return
			}
		}
	}
}

// drain closes the socket so readLoop returns, then consumes until the hub
// closes send.
func (c *conn) drain() {
	c.ws.Close()
	for range c.send {
	}
}
