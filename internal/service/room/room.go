package room

import (
	"context"
	"errors"
	"fmt"

	"github.com/CyberSavant2024/SYNCplay/internal/repository/room"
)

type CreateRoomParams struct {
	CreatorId string
}

type CreateRoomResponse struct {
	Code        string
	IsHost      bool
	MemberCount int
}

// CreateRoom allocates a unique code and registers a room owned by the
// creator. Collisions retry with a fresh code, but only maxCodeAttempts
// times, so near-exhaustion of the code space fails loudly instead of
// spinning.
func (s service) CreateRoom(ctx context.Context, params *CreateRoomParams) (CreateRoomResponse, error) {
	for range maxCodeAttempts {
		code := s.generator.GenerateRandomString(codeLength)

		s.roomLocks.Lock(code)
		err := s.roomRepo.SetRoom(ctx, &room.SetRoomParams{
			Code:      code,
			HostId:    params.CreatorId,
			UpdatedAt: s.now().UnixMilli(),
		})
		s.roomLocks.Unlock(code)
		if err != nil {
			if errors.Is(err, room.ErrRoomAlreadyExists) {
				continue
			}

			return CreateRoomResponse{}, fmt.Errorf("failed to set room: %w", err)
		}

		s.logger.InfoContext(ctx, "room created", "code", code, "host_id", params.CreatorId)

		return CreateRoomResponse{
			Code:        code,
			IsHost:      true,
			MemberCount: 1,
		}, nil
	}

	return CreateRoomResponse{}, ErrCodesExhausted
}

type JoinRoomParams struct {
	Code     string
	JoinerId string
}

type JoinRoomResponse struct {
	Code        string
	IsHost      bool
	MemberCount int
	MemberIds   []string
	// Sync carries the full playback state for the joiner alone, set only
	// when the room has a video loaded.
	Sync *PlayerState
}

func (s service) JoinRoom(ctx context.Context, params *JoinRoomParams) (JoinRoomResponse, error) {
	s.roomLocks.Lock(params.Code)
	defer s.roomLocks.Unlock(params.Code)

	rm, err := s.roomRepo.GetRoom(ctx, params.Code)
	if err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			return JoinRoomResponse{}, ErrRoomNotFound
		}

		return JoinRoomResponse{}, fmt.Errorf("failed to get room: %w", err)
	}

	if err := s.roomRepo.AddMember(ctx, &room.AddMemberParams{
		Code:     params.Code,
		MemberId: params.JoinerId,
	}); err != nil {
		return JoinRoomResponse{}, fmt.Errorf("failed to add member: %w", err)
	}

	memberIds, err := s.roomRepo.GetMemberIds(ctx, params.Code)
	if err != nil {
		return JoinRoomResponse{}, fmt.Errorf("failed to get member ids: %w", err)
	}

	var sync *PlayerState
	if rm.VideoId != "" {
		sync = &PlayerState{
			VideoId:   rm.VideoId,
			IsPlaying: rm.IsPlaying,
			Time:      s.currentPosition(&rm),
		}
	}

	s.logger.InfoContext(ctx, "member joined room", "code", params.Code, "joiner_id", params.JoinerId, "member_count", len(memberIds))

	return JoinRoomResponse{
		Code:        params.Code,
		IsHost:      params.JoinerId == rm.HostId,
		MemberCount: len(memberIds),
		MemberIds:   memberIds,
		Sync:        sync,
	}, nil
}
