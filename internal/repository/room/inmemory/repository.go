package inmemory

import (
	"context"
	"log/slog"
	"sync"

	"github.com/CyberSavant2024/SYNCplay/internal/repository/room"
)

type roomState struct {
	room.Room
	members map[string]struct{}
}

// repo keeps the room table and the member session index under one mutex, so
// every command observes and mutates both consistently.
type repo struct {
	mu       sync.RWMutex
	rooms    map[string]*roomState
	sessions map[string]string
	logger   *slog.Logger
}

func NewRepo(logger *slog.Logger) *repo {
	return &repo{
		rooms:    make(map[string]*roomState),
		sessions: make(map[string]string),
		logger:   logger,
	}
}

func (r *repo) SetRoom(ctx context.Context, params *room.SetRoomParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rooms[params.Code]; ok {
		return room.ErrRoomAlreadyExists
	}

	r.rooms[params.Code] = &roomState{
		Room: room.Room{
			Code:      params.Code,
			IsPlaying: false,
			Time:      0,
			UpdatedAt: params.UpdatedAt,
			HostId:    params.HostId,
		},
		members: map[string]struct{}{params.HostId: {}},
	}
	r.sessions[params.HostId] = params.Code

	return nil
}

func (r *repo) GetRoom(ctx context.Context, code string) (room.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.rooms[code]
	if !ok {
		return room.Room{}, room.ErrRoomNotFound
	}

	return state.Room, nil
}

func (r *repo) RemoveRoom(ctx context.Context, code string) error {
	r.logger.DebugContext(ctx, "called", "code", code)
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.rooms[code]
	if !ok {
		return room.ErrRoomNotFound
	}

	for memberId := range state.members {
		delete(r.sessions, memberId)
	}
	delete(r.rooms, code)

	return nil
}

func (r *repo) AddMember(ctx context.Context, params *room.AddMemberParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.rooms[params.Code]
	if !ok {
		return room.ErrRoomNotFound
	}

	state.members[params.MemberId] = struct{}{}
	r.sessions[params.MemberId] = params.Code

	return nil
}

func (r *repo) RemoveMember(ctx context.Context, params *room.RemoveMemberParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.rooms[params.Code]
	if !ok {
		return room.ErrRoomNotFound
	}

	if _, ok := state.members[params.MemberId]; !ok {
		return room.ErrMemberNotFound
	}

	delete(state.members, params.MemberId)
	delete(r.sessions, params.MemberId)

	return nil
}

func (r *repo) GetMemberIds(ctx context.Context, code string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.rooms[code]
	if !ok {
		return nil, room.ErrRoomNotFound
	}

	memberIds := make([]string, 0, len(state.members))
	for memberId := range state.members {
		memberIds = append(memberIds, memberId)
	}

	return memberIds, nil
}

func (r *repo) GetMemberRoomCode(ctx context.Context, memberId string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	code, ok := r.sessions[memberId]
	if !ok {
		return "", room.ErrSessionNotFound
	}

	return code, nil
}

func (r *repo) UpdatePlayback(ctx context.Context, params *room.UpdatePlaybackParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.rooms[params.Code]
	if !ok {
		return room.ErrRoomNotFound
	}

	state.VideoId = params.VideoId
	state.IsPlaying = params.IsPlaying
	state.Time = params.Time
	state.UpdatedAt = params.UpdatedAt

	return nil
}
