package wsrouter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"
)

type message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type HandlerFunc[T any] func(ctx context.Context, conn *websocket.Conn, input T) error

type Middleware func(next HandlerFunc[any]) HandlerFunc[any]

type WSRouter struct {
	routes      map[string]HandlerFunc[json.RawMessage]
	middlewares []Middleware
	// ErrorHandler is called when a handler returns an error. The read loop
	// continues afterwards.
	ErrorHandler func(ctx context.Context, conn *websocket.Conn, err error)
}

func New() *WSRouter {
	return &WSRouter{routes: make(map[string]HandlerFunc[json.RawMessage])}
}

func (r *WSRouter) Use(mw Middleware) {
	r.middlewares = append(r.middlewares, mw)
}

func Handle[T any](r *WSRouter, messageType string, handler HandlerFunc[T]) {
	r.routes[messageType] = func(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
		var input T
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &input); err != nil {
				return fmt.Errorf("failed to unmarshal payload: %w", err)
			}
		}

		return handler(ctx, conn, input)
	}
}

// ServeConn reads messages from the connection until it fails and routes each
// one to the handler registered for its type. Unknown types are routed to the
// error handler.
func (r *WSRouter) ServeConn(ctx context.Context, conn *websocket.Conn) error {
	defer conn.Close()

	for {
		var msg message
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}

		msgCtx := context.WithValue(ctx, messageTypeKey, msg.Type)

		handler, ok := r.routes[msg.Type]
		if !ok {
			r.handleError(msgCtx, conn, fmt.Errorf("unknown message type: %s", msg.Type))
			continue
		}

		h := func(hctx context.Context, hconn *websocket.Conn, _ any) error {
			return handler(hctx, hconn, msg.Payload)
		}
		for i := len(r.middlewares) - 1; i >= 0; i-- {
			h = r.middlewares[i](h)
		}

		if err := h(msgCtx, conn, msg.Payload); err != nil {
			r.handleError(msgCtx, conn, err)
		}
	}
}

func (r *WSRouter) handleError(ctx context.Context, conn *websocket.Conn, err error) {
	if r.ErrorHandler != nil {
		r.ErrorHandler(ctx, conn, err)
	}
}
