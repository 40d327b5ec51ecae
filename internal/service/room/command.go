package room

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/CyberSavant2024/SYNCplay/internal/repository/room"
)

// CommandKind tags the four host-gated transitions. They all flow through one
// authorize-apply-broadcast pipeline in ApplyHostCommand.
type CommandKind string

const (
	KindLoad  CommandKind = "load"
	KindPlay  CommandKind = "play"
	KindPause CommandKind = "pause"
	KindSeek  CommandKind = "seek"
)

type HostCommandParams struct {
	Kind     CommandKind
	Code     string
	SenderId string
	VideoId  string
	Time     float64
}

type HostCommandResponse struct {
	Kind CommandKind
	// MemberIds are the broadcast targets: every member for load, every
	// member except the sender otherwise.
	MemberIds []string
	Player    PlayerState
}

// ApplyHostCommand validates the sender's authority, commits the transition
// and reports who must hear about it. A sender that is not the room's host
// gets ErrPermissionDenied with the room left untouched.
func (s service) ApplyHostCommand(ctx context.Context, params *HostCommandParams) (HostCommandResponse, error) {
	s.roomLocks.Lock(params.Code)
	defer s.roomLocks.Unlock(params.Code)

	rm, err := s.roomRepo.GetRoom(ctx, params.Code)
	if err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			return HostCommandResponse{}, ErrRoomNotFound
		}

		return HostCommandResponse{}, fmt.Errorf("failed to get room: %w", err)
	}

	if rm.HostId != params.SenderId {
		return HostCommandResponse{}, ErrPermissionDenied
	}

	next := room.UpdatePlaybackParams{
		Code:      params.Code,
		UpdatedAt: s.now().UnixMilli(),
	}
	switch params.Kind {
	case KindLoad:
		next.VideoId = params.VideoId
		next.IsPlaying = false
		next.Time = 0
	case KindPlay:
		next.VideoId = rm.VideoId
		next.IsPlaying = true
		next.Time = max(params.Time, 0)
	case KindPause:
		next.VideoId = rm.VideoId
		next.IsPlaying = false
		next.Time = max(params.Time, 0)
	case KindSeek:
		next.VideoId = rm.VideoId
		next.IsPlaying = rm.IsPlaying
		next.Time = max(params.Time, 0)
	default:
		return HostCommandResponse{}, fmt.Errorf("unknown command kind: %s", params.Kind)
	}

	if err := s.roomRepo.UpdatePlayback(ctx, &next); err != nil {
		return HostCommandResponse{}, fmt.Errorf("failed to update playback: %w", err)
	}

	memberIds, err := s.roomRepo.GetMemberIds(ctx, params.Code)
	if err != nil {
		return HostCommandResponse{}, fmt.Errorf("failed to get member ids: %w", err)
	}

	// The host already applied load/play/pause/seek to its own player, so the
	// delta events skip it; load broadcasts the full sync to everyone to keep
	// host and guest paths uniform.
	if params.Kind != KindLoad {
		memberIds = slices.DeleteFunc(memberIds, func(id string) bool {
			return id == params.SenderId
		})
	}

	s.logger.InfoContext(ctx, "host command applied", "code", params.Code, "kind", params.Kind, "time", next.Time)

	return HostCommandResponse{
		Kind:      params.Kind,
		MemberIds: memberIds,
		Player: PlayerState{
			VideoId:   next.VideoId,
			IsPlaying: next.IsPlaying,
			Time:      next.Time,
		},
	}, nil
}
