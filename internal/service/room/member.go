package room

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/CyberSavant2024/SYNCplay/internal/repository/room"
)

type DisconnectParams struct {
	MemberId string
}

type DisconnectResponse struct {
	Code string
	// IsRoomClosed reports that the departing member was the host and the
	// room was torn down with it. MemberIds are then the members owed the
	// terminal room-closed event; otherwise they are the remaining members
	// owed a user-count update.
	IsRoomClosed bool
	MemberIds    []string
	MemberCount  int
}

// Disconnect removes a member from its room. Host departure cascades into
// room teardown; rooms never outlive their host.
func (s service) Disconnect(ctx context.Context, params *DisconnectParams) (DisconnectResponse, error) {
	code, err := s.roomRepo.GetMemberRoomCode(ctx, params.MemberId)
	if err != nil {
		if errors.Is(err, room.ErrSessionNotFound) {
			return DisconnectResponse{}, ErrNotInRoom
		}

		return DisconnectResponse{}, fmt.Errorf("failed to get member room code: %w", err)
	}

	s.roomLocks.Lock(code)
	defer s.roomLocks.Unlock(code)

	rm, err := s.roomRepo.GetRoom(ctx, code)
	if err != nil {
		// the host may have torn the room down while we waited for the lock
		if errors.Is(err, room.ErrRoomNotFound) {
			return DisconnectResponse{}, ErrNotInRoom
		}

		return DisconnectResponse{}, fmt.Errorf("failed to get room: %w", err)
	}

	if rm.HostId == params.MemberId {
		memberIds, err := s.roomRepo.GetMemberIds(ctx, code)
		if err != nil {
			return DisconnectResponse{}, fmt.Errorf("failed to get member ids: %w", err)
		}
		memberIds = slices.DeleteFunc(memberIds, func(id string) bool {
			return id == params.MemberId
		})

		if err := s.roomRepo.RemoveRoom(ctx, code); err != nil {
			return DisconnectResponse{}, fmt.Errorf("failed to remove room: %w", err)
		}

		s.logger.InfoContext(ctx, "host left, room closed", "code", code, "remaining_members", len(memberIds))

		return DisconnectResponse{
			Code:         code,
			IsRoomClosed: true,
			MemberIds:    memberIds,
		}, nil
	}

	if err := s.roomRepo.RemoveMember(ctx, &room.RemoveMemberParams{
		Code:     code,
		MemberId: params.MemberId,
	}); err != nil {
		return DisconnectResponse{}, fmt.Errorf("failed to remove member: %w", err)
	}

	memberIds, err := s.roomRepo.GetMemberIds(ctx, code)
	if err != nil {
		return DisconnectResponse{}, fmt.Errorf("failed to get member ids: %w", err)
	}

	s.logger.InfoContext(ctx, "member left room", "code", code, "member_id", params.MemberId, "member_count", len(memberIds))

	return DisconnectResponse{
		Code:        code,
		MemberIds:   memberIds,
		MemberCount: len(memberIds),
	}, nil
}
