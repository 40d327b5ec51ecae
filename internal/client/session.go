package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/CyberSavant2024/SYNCplay/pkg/validator"
)

var (
	ErrNotHost      = errors.New("only the host can control playback")
	ErrJoinRejected = errors.New("join rejected")
	ErrRoomClosed   = errors.New("room closed by host")
)

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type output struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type statePayload struct {
	VideoId   string  `json:"videoId"`
	IsPlaying bool    `json:"isPlaying"`
	Time      float64 `json:"time"`
}

type deltaPayload struct {
	Time float64 `json:"time"`
}

type roomResultPayload struct {
	Success   bool   `json:"success"`
	RoomCode  string `json:"roomCode"`
	IsHost    bool   `json:"isHost"`
	UserCount int    `json:"userCount"`
	Message   string `json:"message"`
}

type roomCodeInput struct {
	RoomCode string `json:"roomCode" validate:"required,len=6,alphanum"`
}

// Session is one connection's view of a room. All player access and all
// websocket writes after Run starts happen on the run loop goroutine.
type Session struct {
	conn     *websocket.Conn
	player   Player
	validate *validator.Validator
	logger   *slog.Logger

	roomCode string
	isHost   bool
	videoId  string

	mirror syncState
	notice string
	// noticeUntil keeps the display loop from overwriting a fresh drift
	// notice with the position readout.
	noticeUntil time.Time
	now         func() time.Time

	commands chan func()

	// optional UI callbacks, invoked from the run loop
	OnStatus    func(status string)
	OnUserCount func(count int)
	OnClosed    func(message string)
}

func Dial(ctx context.Context, serverURL string, player Player, logger *slog.Logger) (*Session, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, serverURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial server: %w", err)
	}

	return &Session{
		conn:     conn,
		player:   player,
		validate: validator.NewValidator(),
		logger:   logger,
		now:      time.Now,
		commands: make(chan func(), 8),
	}, nil
}

func (s *Session) Close() error {
	return s.conn.Close()
}

func (s *Session) RoomCode() string {
	return s.roomCode
}

func (s *Session) IsHost() bool {
	return s.isHost
}

// CreateRoom registers a new room with this connection as its host. Must be
// called before Run.
func (s *Session) CreateRoom(ctx context.Context) error {
	if err := s.conn.WriteJSON(&output{Type: "create-room"}); err != nil {
		return fmt.Errorf("failed to send create-room: %w", err)
	}

	payload, err := s.awaitResponse("create-room")
	if err != nil {
		return err
	}

	var resp roomResultPayload
	if err := json.Unmarshal(payload, &resp); err != nil {
		return fmt.Errorf("failed to unmarshal create-room response: %w", err)
	}
	if !resp.Success {
		return fmt.Errorf("failed to create room: %s", resp.Message)
	}

	s.roomCode = resp.RoomCode
	s.isHost = resp.IsHost
	s.logger.Info("room created", "code", s.roomCode)

	return nil
}

// JoinRoom joins an existing room as a guest. The code is normalized to
// uppercase and validated before anything goes on the wire. Must be called
// before Run.
func (s *Session) JoinRoom(ctx context.Context, roomCode string) error {
	input := roomCodeInput{RoomCode: strings.ToUpper(strings.TrimSpace(roomCode))}
	if validationErrors, ok := s.validate.Validate(input); !ok {
		return fmt.Errorf("%w: %s", ErrJoinRejected, validationErrors[0].Message)
	}

	if err := s.conn.WriteJSON(&output{Type: "join-room", Payload: input}); err != nil {
		return fmt.Errorf("failed to send join-room: %w", err)
	}

	payload, err := s.awaitResponse("join-room")
	if err != nil {
		return err
	}

	var resp roomResultPayload
	if err := json.Unmarshal(payload, &resp); err != nil {
		return fmt.Errorf("failed to unmarshal join-room response: %w", err)
	}
	if !resp.Success {
		return fmt.Errorf("%w: %s", ErrJoinRejected, resp.Message)
	}

	s.roomCode = resp.RoomCode
	s.isHost = resp.IsHost
	s.logger.Info("room joined", "code", s.roomCode, "user_count", resp.UserCount)

	return nil
}

// awaitResponse reads until a message of the wanted type arrives; anything
// else (e.g. the state:sync that follows a join) is dispatched normally.
func (s *Session) awaitResponse(want string) (json.RawMessage, error) {
	for {
		var msg envelope
		if err := s.conn.ReadJSON(&msg); err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}

		if msg.Type == want {
			return msg.Payload, nil
		}

		if err := s.handleMessage(&msg); err != nil {
			return nil, err
		}
	}
}

// Run drives the session until the connection dies, the context is canceled
// or the room is closed by the host. It owns the player, the reconciliation
// ticker and the display ticker.
func (s *Session) Run(ctx context.Context) error {
	msgCh := make(chan envelope)
	errCh := make(chan error, 1)
	go func() {
		for {
			var msg envelope
			if err := s.conn.ReadJSON(&msg); err != nil {
				errCh <- err
				return
			}
			select {
			case msgCh <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()

	driftTicker := time.NewTicker(driftCheckPeriod)
	defer driftTicker.Stop()
	displayTicker := time.NewTicker(displayPeriod)
	defer displayTicker.Stop()

	// only the host forwards widget state changes to the server
	var stateCh <-chan PlaybackState
	if s.isHost {
		stateCh = s.player.StateChanges()
	}

	for {
		select {
		case <-ctx.Done():
			s.conn.Close()
			return ctx.Err()
		case err := <-errCh:
			return err
		case msg := <-msgCh:
			if err := s.handleMessage(&msg); err != nil {
				return err
			}
		case state := <-stateCh:
			s.handleStateChange(state)
		case fn := <-s.commands:
			fn()
		case <-driftTicker.C:
			s.checkDrift(s.now())
		case <-displayTicker.C:
			s.updateDisplay(s.now())
		}
	}
}

func (s *Session) handleMessage(msg *envelope) error {
	switch msg.Type {
	case "state:sync":
		var state statePayload
		if err := json.Unmarshal(msg.Payload, &state); err != nil {
			return fmt.Errorf("failed to unmarshal state:sync: %w", err)
		}
		s.applySync(&state)
	case "state:play":
		var delta deltaPayload
		if err := json.Unmarshal(msg.Payload, &delta); err != nil {
			return fmt.Errorf("failed to unmarshal state:play: %w", err)
		}
		s.applyDelta(delta.Time, boolPtr(true))
	case "state:pause":
		var delta deltaPayload
		if err := json.Unmarshal(msg.Payload, &delta); err != nil {
			return fmt.Errorf("failed to unmarshal state:pause: %w", err)
		}
		s.applyDelta(delta.Time, boolPtr(false))
	case "state:seek":
		var delta deltaPayload
		if err := json.Unmarshal(msg.Payload, &delta); err != nil {
			return fmt.Errorf("failed to unmarshal state:seek: %w", err)
		}
		s.applyDelta(delta.Time, nil)
	case "user-count":
		var count int
		if err := json.Unmarshal(msg.Payload, &count); err != nil {
			return fmt.Errorf("failed to unmarshal user-count: %w", err)
		}
		if s.OnUserCount != nil {
			s.OnUserCount(count)
		}
	case "room-closed":
		var closed struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(msg.Payload, &closed); err != nil {
			return fmt.Errorf("failed to unmarshal room-closed: %w", err)
		}
		if s.OnClosed != nil {
			s.OnClosed(closed.Message)
		}
		return ErrRoomClosed
	default:
		s.logger.Warn("unknown message type", "type", msg.Type)
	}

	return nil
}

// handleStateChange forwards the host widget's own play/pause transitions to
// the server, with the widget's reported position as the authoritative time.
func (s *Session) handleStateChange(state PlaybackState) {
	if !s.player.Ready() {
		return
	}

	position, err := s.player.CurrentPosition()
	if err != nil {
		s.logger.Warn("failed to read player position", "error", err)
		return
	}

	switch state {
	case StatePlaying:
		s.send("host:play", hostTimePayload{RoomCode: s.roomCode, Time: position})
		s.updateMirror(true, position)
	case StatePaused:
		s.send("host:pause", hostTimePayload{RoomCode: s.roomCode, Time: position})
		s.updateMirror(false, position)
	}
}

type hostLoadVideoPayload struct {
	RoomCode string `json:"roomCode"`
	VideoId  string `json:"videoId"`
}

type hostTimePayload struct {
	RoomCode string  `json:"roomCode"`
	Time     float64 `json:"time"`
}

// LoadVideo asks the server to load a video for the whole room. The local
// widget is driven by the state:sync echo, not directly.
func (s *Session) LoadVideo(videoId string) error {
	if !s.isHost {
		return ErrNotHost
	}

	s.commands <- func() {
		s.send("host:loadVideo", hostLoadVideoPayload{RoomCode: s.roomCode, VideoId: videoId})
	}

	return nil
}

// SeekBy seeks the host's widget by delta seconds and propagates the new
// position to the room.
func (s *Session) SeekBy(delta float64) error {
	if !s.isHost {
		return ErrNotHost
	}

	s.commands <- func() {
		position, err := s.player.CurrentPosition()
		if err != nil {
			s.logger.Warn("failed to read player position", "error", err)
			return
		}

		target := max(position+delta, 0)
		if err := s.player.SeekTo(target); err != nil {
			s.logger.Warn("failed to seek player", "error", err)
			return
		}

		s.send("host:seek", hostTimePayload{RoomCode: s.roomCode, Time: target})
		s.updateMirror(s.mirror.isPlaying, target)
	}

	return nil
}

func (s *Session) send(messageType string, payload any) {
	if err := s.conn.WriteJSON(&output{Type: messageType, Payload: payload}); err != nil {
		s.logger.Warn("failed to send message", "type", messageType, "error", err)
	}
}

func boolPtr(b bool) *bool {
	return &b
}
