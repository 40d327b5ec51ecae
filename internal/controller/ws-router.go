package controller

import (
	"context"

	"github.com/gorilla/websocket"

	"github.com/CyberSavant2024/SYNCplay/pkg/wsrouter"
)

func (c controller) getWSRouter() *wsrouter.WSRouter {
	mux := wsrouter.New()
	mux.Use(c.loggerWSMw())
	mux.ErrorHandler = func(ctx context.Context, conn *websocket.Conn, err error) {
		c.logger.WarnContext(ctx, "websocket handler error", "error", err)
	}

	// room lifecycle
	wsrouter.Handle(mux, "create-room", c.handleCreateRoom)
	wsrouter.Handle(mux, "join-room", c.handleJoinRoom)

	// host-gated playback control
	wsrouter.Handle(mux, "host:loadVideo", c.handleHostLoadVideo)
	wsrouter.Handle(mux, "host:play", c.handleHostPlay)
	wsrouter.Handle(mux, "host:pause", c.handleHostPause)
	wsrouter.Handle(mux, "host:seek", c.handleHostSeek)

	return mux
}
