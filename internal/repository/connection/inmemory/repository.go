package inmemory

import (
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/CyberSavant2024/SYNCplay/internal/repository/connection"
)

const sendBufferSize = 32

type conn struct {
	ws   *websocket.Conn
	send chan any
}

// writePump is the single writer for one websocket connection. Messages
// enqueued while the socket is broken are discarded until the connection is
// removed.
func (c *conn) writePump() {
	broken := false
	for msg := range c.send {
		if broken {
			continue
		}
		if err := c.ws.WriteJSON(msg); err != nil {
			c.ws.Close()
			broken = true
		}
	}
	c.ws.Close()
}

type repo struct {
	mu       sync.RWMutex
	connList map[*websocket.Conn]string
	idList   map[string]*conn
	logger   *slog.Logger
}

func NewRepo(logger *slog.Logger) *repo {
	return &repo{
		connList: make(map[*websocket.Conn]string),
		idList:   make(map[string]*conn),
		logger:   logger,
	}
}

func (r *repo) Add(ws *websocket.Conn, connId string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.connList[ws] != "" || r.idList[connId] != nil {
		return connection.ErrAlreadyExists
	}

	c := &conn{ws: ws, send: make(chan any, sendBufferSize)}
	r.connList[ws] = connId
	r.idList[connId] = c
	go c.writePump()

	return nil
}

func (r *repo) RemoveByConnId(connId string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.idList[connId]
	if !ok {
		return connection.ErrNotFound
	}

	delete(r.connList, c.ws)
	delete(r.idList, connId)
	close(c.send)

	return nil
}

// Send enqueues a message for the connection's writer. Delivery is
// at-most-once: a full queue or an unknown connection drops the message.
func (r *repo) Send(connId string, msg any) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.idList[connId]
	if !ok {
		return connection.ErrNotFound
	}

	select {
	case c.send <- msg:
	default:
		r.logger.Warn("send queue full, dropping message", "conn_id", connId)
	}

	return nil
}
