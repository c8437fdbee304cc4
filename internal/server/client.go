package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 5 * time.Second
	maxMessageSize = 4096
)

// clientMsg is what a websocket client may send.
type clientMsg struct {
	Scroll *float64 `json:"scroll,omitempty"`
	Resize *struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	} `json:"resize,omitempty"`
}

type client struct {
	conn *websocket.Conn
	// send holds at most the latest frame; slow clients skip frames.
	send chan string
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	c := &client{conn: conn, send: make(chan string, 1)}
	if !s.addClient(c) {
		conn.Close()
		return
	}
	s.logger.Info("client connected", zap.String("remote", r.RemoteAddr))

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.writeLoop()
	}()
	s.readLoop(c)

	s.removeClient(c)
	conn.Close()
	<-done
	s.logger.Info("client disconnected", zap.String("remote", r.RemoteAddr))
}

func (s *Server) readLoop(c *client) {
	c.conn.SetReadLimit(maxMessageSize)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg clientMsg
		if err := json.Unmarshal(data, &msg); err != nil {
			s.logger.Debug("ignoring malformed client message", zap.Error(err))
			continue
		}
		if msg.Scroll != nil {
			offset := *msg.Scroll
			s.loop.Post(func() { s.driver.Scroll(offset) })
		}
		if msg.Resize != nil {
			cols, rows := msg.Resize.Width, msg.Resize.Height
			s.loop.Post(func() { s.applyResize(cols, rows) })
		}
	}
}

func (c *client) writeLoop() {
	for frame := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
			c.conn.Close()
			return
		}
	}
}

func (s *Server) addClient(c *client) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.clients[c] = struct{}{}
	return true
}

func (s *Server) removeClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		close(c.send)
	}
}

func (s *Server) clientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *Server) broadcast(frame string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		select {
		case c.send <- frame:
		default:
			// Replace the stale frame.
			select {
			case <-c.send:
			default:
			}
			select {
			case c.send <- frame:
			default:
			}
		}
	}
}

// closeClients refuses new connections and closes the open ones so their
// handlers return.
func (s *Server) closeClients() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for c := range s.clients {
		c.conn.Close()
	}
}
