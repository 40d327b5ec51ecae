package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/CyberSavant2024/SYNCplay/internal/service/room"
	"github.com/CyberSavant2024/SYNCplay/pkg/ctxlogger"
)

type EmptyStruct struct{}

func (es *EmptyStruct) UnmarshalJSON([]byte) error {
	return nil
}

type roomResultPayload struct {
	Success   bool   `json:"success"`
	RoomCode  string `json:"roomCode,omitempty"`
	IsHost    bool   `json:"isHost"`
	UserCount int    `json:"userCount"`
	Message   string `json:"message,omitempty"`
}

type deltaPayload struct {
	Time float64 `json:"time"`
}

type roomClosedPayload struct {
	Message string `json:"message"`
}

// serveWS upgrades the connection, assigns it an identity and serves its
// message loop until the socket dies, then runs disconnect cleanup.
func (c controller) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.WarnContext(r.Context(), "failed to upgrade to websocket", "error", err)
		return
	}

	connId := uuid.NewString()
	if err := c.connRepo.Add(conn, connId); err != nil {
		c.logger.WarnContext(r.Context(), "failed to register connection", "error", err)
		conn.Close()
		return
	}

	ctx := context.WithValue(r.Context(), connIdCtxKey, connId)
	ctx = ctxlogger.AppendCtx(ctx, slog.String("conn_id", connId))
	c.logger.InfoContext(ctx, "client connected")

	if err := c.wsmux.ServeConn(ctx, conn); err != nil {
		c.logger.DebugContext(ctx, "connection closed", "error", err)
	}

	c.disconnect(ctx, connId)
}

func (c controller) disconnect(ctx context.Context, connId string) {
	resp, err := c.roomService.Disconnect(ctx, &room.DisconnectParams{MemberId: connId})
	switch {
	case errors.Is(err, room.ErrNotInRoom):
		// never joined a room, nothing to clean up
	case err != nil:
		c.logger.WarnContext(ctx, "failed to disconnect member", "error", err)
	case resp.IsRoomClosed:
		c.broadcast(ctx, resp.MemberIds, &Output{
			Type:    "room-closed",
			Payload: roomClosedPayload{Message: "Host has left the room"},
		})
	default:
		c.broadcast(ctx, resp.MemberIds, &Output{
			Type:    "user-count",
			Payload: resp.MemberCount,
		})
	}

	if err := c.connRepo.RemoveByConnId(connId); err != nil {
		c.logger.DebugContext(ctx, "failed to remove connection", "error", err)
	}
}

func (c controller) handleCreateRoom(ctx context.Context, _ *websocket.Conn, _ EmptyStruct) error {
	connId := c.getConnIdFromCtx(ctx)

	createRoomResp, err := c.roomService.CreateRoom(ctx, &room.CreateRoomParams{CreatorId: connId})
	if err != nil {
		if sendErr := c.connRepo.Send(connId, &Output{
			Type:    "create-room",
			Payload: roomResultPayload{Success: false, Message: "failed to create room"},
		}); sendErr != nil {
			return fmt.Errorf("failed to send create-room failure: %w", sendErr)
		}

		return fmt.Errorf("failed to create room: %w", err)
	}

	if err := c.connRepo.Send(connId, &Output{
		Type: "create-room",
		Payload: roomResultPayload{
			Success:   true,
			RoomCode:  createRoomResp.Code,
			IsHost:    createRoomResp.IsHost,
			UserCount: createRoomResp.MemberCount,
		},
	}); err != nil {
		return fmt.Errorf("failed to send create-room response: %w", err)
	}

	return nil
}

type JoinRoomInput struct {
	RoomCode string `json:"roomCode" validate:"required,len=6,alphanum"`
}

func (c controller) handleJoinRoom(ctx context.Context, _ *websocket.Conn, input JoinRoomInput) error {
	connId := c.getConnIdFromCtx(ctx)

	input.RoomCode = strings.ToUpper(strings.TrimSpace(input.RoomCode))
	if validationErrors, ok := c.validate.Validate(input); !ok {
		if err := c.connRepo.Send(connId, &Output{
			Type:    "join-room",
			Payload: roomResultPayload{Success: false, Message: validationErrors[0].Message},
		}); err != nil {
			return fmt.Errorf("failed to send join-room failure: %w", err)
		}

		return nil
	}

	joinRoomResp, err := c.roomService.JoinRoom(ctx, &room.JoinRoomParams{
		Code:     input.RoomCode,
		JoinerId: connId,
	})
	if err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			if sendErr := c.connRepo.Send(connId, &Output{
				Type:    "join-room",
				Payload: roomResultPayload{Success: false, Message: "Room not found"},
			}); sendErr != nil {
				return fmt.Errorf("failed to send join-room failure: %w", sendErr)
			}

			return nil
		}

		return fmt.Errorf("failed to join room: %w", err)
	}

	if err := c.connRepo.Send(connId, &Output{
		Type: "join-room",
		Payload: roomResultPayload{
			Success:   true,
			RoomCode:  joinRoomResp.Code,
			IsHost:    joinRoomResp.IsHost,
			UserCount: joinRoomResp.MemberCount,
		},
	}); err != nil {
		return fmt.Errorf("failed to send join-room response: %w", err)
	}

	// full sync goes to the joiner alone, before the room-wide count update
	if joinRoomResp.Sync != nil {
		if err := c.connRepo.Send(connId, &Output{
			Type:    "state:sync",
			Payload: joinRoomResp.Sync,
		}); err != nil {
			return fmt.Errorf("failed to send state sync: %w", err)
		}
	}

	c.broadcast(ctx, joinRoomResp.MemberIds, &Output{
		Type:    "user-count",
		Payload: joinRoomResp.MemberCount,
	})

	return nil
}

type HostLoadVideoInput struct {
	RoomCode string `json:"roomCode"`
	VideoId  string `json:"videoId"`
}

func (c controller) handleHostLoadVideo(ctx context.Context, _ *websocket.Conn, input HostLoadVideoInput) error {
	return c.applyHostCommand(ctx, &room.HostCommandParams{
		Kind:     room.KindLoad,
		Code:     input.RoomCode,
		SenderId: c.getConnIdFromCtx(ctx),
		VideoId:  input.VideoId,
	})
}

type HostTimeInput struct {
	RoomCode string  `json:"roomCode"`
	Time     float64 `json:"time"`
}

func (c controller) handleHostPlay(ctx context.Context, _ *websocket.Conn, input HostTimeInput) error {
	return c.applyHostCommand(ctx, &room.HostCommandParams{
		Kind:     room.KindPlay,
		Code:     input.RoomCode,
		SenderId: c.getConnIdFromCtx(ctx),
		Time:     input.Time,
	})
}

func (c controller) handleHostPause(ctx context.Context, _ *websocket.Conn, input HostTimeInput) error {
	return c.applyHostCommand(ctx, &room.HostCommandParams{
		Kind:     room.KindPause,
		Code:     input.RoomCode,
		SenderId: c.getConnIdFromCtx(ctx),
		Time:     input.Time,
	})
}

func (c controller) handleHostSeek(ctx context.Context, _ *websocket.Conn, input HostTimeInput) error {
	return c.applyHostCommand(ctx, &room.HostCommandParams{
		Kind:     room.KindSeek,
		Code:     input.RoomCode,
		SenderId: c.getConnIdFromCtx(ctx),
		Time:     input.Time,
	})
}

// applyHostCommand runs one host command through the service and fans out the
// resulting event. Unauthorized and unknown-room commands are dropped with no
// reply, the sender is not told its command was rejected.
func (c controller) applyHostCommand(ctx context.Context, params *room.HostCommandParams) error {
	resp, err := c.roomService.ApplyHostCommand(ctx, params)
	if err != nil {
		if errors.Is(err, room.ErrPermissionDenied) || errors.Is(err, room.ErrRoomNotFound) {
			c.logger.InfoContext(ctx, "dropping host command", "kind", params.Kind, "error", err)
			return nil
		}

		return fmt.Errorf("failed to apply host command: %w", err)
	}

	var out Output
	switch resp.Kind {
	case room.KindLoad:
		out = Output{Type: "state:sync", Payload: resp.Player}
	case room.KindPlay:
		out = Output{Type: "state:play", Payload: deltaPayload{Time: resp.Player.Time}}
	case room.KindPause:
		out = Output{Type: "state:pause", Payload: deltaPayload{Time: resp.Player.Time}}
	case room.KindSeek:
		out = Output{Type: "state:seek", Payload: deltaPayload{Time: resp.Player.Time}}
	}

	c.broadcast(ctx, resp.MemberIds, &out)

	return nil
}
