package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/CyberSavant2024/SYNCplay/internal/repository/room"
)

func (r repo) AddMember(ctx context.Context, params *room.AddMemberParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)

	exists, err := r.rc.Exists(ctx, r.getRoomKey(params.Code)).Result()
	if err != nil {
		return fmt.Errorf("failed to check if room exists: %w", err)
	}
	if exists == 0 {
		return room.ErrRoomNotFound
	}

	memberListKey := r.getMemberListKey(params.Code)

	pipe := r.rc.TxPipeline()
	pipe.SAdd(ctx, memberListKey, params.MemberId)
	pipe.Expire(ctx, memberListKey, r.expiration)
	pipe.Set(ctx, r.getSessionKey(params.MemberId), params.Code, r.expiration)

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to add member: %w", err)
	}

	return nil
}

func (r repo) RemoveMember(ctx context.Context, params *room.RemoveMemberParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)

	removed, err := r.rc.SRem(ctx, r.getMemberListKey(params.Code), params.MemberId).Result()
	if err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	if removed == 0 {
		return room.ErrMemberNotFound
	}

	if err := r.rc.Del(ctx, r.getSessionKey(params.MemberId)).Err(); err != nil {
		return fmt.Errorf("failed to remove session: %w", err)
	}

	return nil
}

func (r repo) GetMemberIds(ctx context.Context, code string) ([]string, error) {
	exists, err := r.rc.Exists(ctx, r.getRoomKey(code)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to check if room exists: %w", err)
	}
	if exists == 0 {
		return nil, room.ErrRoomNotFound
	}

	memberIds, err := r.rc.SMembers(ctx, r.getMemberListKey(code)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get members: %w", err)
	}

	return memberIds, nil
}

func (r repo) GetMemberRoomCode(ctx context.Context, memberId string) (string, error) {
	code, err := r.rc.Get(ctx, r.getSessionKey(memberId)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", room.ErrSessionNotFound
		}

		return "", fmt.Errorf("failed to get session: %w", err)
	}

	return code, nil
}
