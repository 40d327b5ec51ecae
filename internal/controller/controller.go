package controller

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/CyberSavant2024/SYNCplay/internal/service/room"
	"github.com/CyberSavant2024/SYNCplay/pkg/validator"
	"github.com/CyberSavant2024/SYNCplay/pkg/wsrouter"
)

type iRoomService interface {
	CreateRoom(context.Context, *room.CreateRoomParams) (room.CreateRoomResponse, error)
	JoinRoom(context.Context, *room.JoinRoomParams) (room.JoinRoomResponse, error)
	ApplyHostCommand(context.Context, *room.HostCommandParams) (room.HostCommandResponse, error)
	Disconnect(context.Context, *room.DisconnectParams) (room.DisconnectResponse, error)
}

type iConnRepo interface {
	Add(*websocket.Conn, string) error
	RemoveByConnId(string) error
	Send(connId string, msg any) error
}

type controller struct {
	roomService iRoomService
	connRepo    iConnRepo
	upgrader    websocket.Upgrader
	validate    *validator.Validator
	wsmux       *wsrouter.WSRouter
	logger      *slog.Logger
}

func NewController(roomService iRoomService, connRepo iConnRepo, logger *slog.Logger) *controller {
	c := &controller{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		roomService: roomService,
		connRepo:    connRepo,
		validate:    validator.NewValidator(),
		logger:      logger,
	}
	c.wsmux = c.getWSRouter()

	return c
}

// Output is the server-to-client message envelope.
type Output struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// broadcast fans an event out to the given connections. Delivery is
// at-most-once: connections that are already gone are skipped.
func (c controller) broadcast(ctx context.Context, connIds []string, out *Output) {
	for _, connId := range connIds {
		if err := c.connRepo.Send(connId, out); err != nil {
			c.logger.DebugContext(ctx, "skipping broadcast target", "conn_id", connId, "error", err)
		}
	}
}
