package redis

import (
	"context"
	"fmt"

	"github.com/CyberSavant2024/SYNCplay/internal/repository/room"
)

func (r repo) SetRoom(ctx context.Context, params *room.SetRoomParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	roomKey := r.getRoomKey(params.Code)

	// HSetNX on host_id doubles as the uniqueness check for the code.
	ok, err := r.rc.HSetNX(ctx, roomKey, "host_id", params.HostId).Result()
	if err != nil {
		return fmt.Errorf("failed to reserve room code: %w", err)
	}
	if !ok {
		return room.ErrRoomAlreadyExists
	}

	pipe := r.rc.TxPipeline()
	pipe.HSet(ctx, roomKey,
		"code", params.Code,
		"video_id", "",
		"is_playing", false,
		"time", float64(0),
		"updated_at", params.UpdatedAt,
	)
	pipe.Expire(ctx, roomKey, r.expiration)

	memberListKey := r.getMemberListKey(params.Code)
	pipe.SAdd(ctx, memberListKey, params.HostId)
	pipe.Expire(ctx, memberListKey, r.expiration)

	pipe.Set(ctx, r.getSessionKey(params.HostId), params.Code, r.expiration)

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to set room: %w", err)
	}

	return nil
}

func (r repo) GetRoom(ctx context.Context, code string) (room.Room, error) {
	roomKey := r.getRoomKey(code)
	res := r.rc.HGetAll(ctx, roomKey)
	if err := res.Err(); err != nil {
		return room.Room{}, fmt.Errorf("failed to get room: %w", err)
	}

	if len(res.Val()) == 0 {
		return room.Room{}, room.ErrRoomNotFound
	}

	var rm room.Room
	if err := res.Scan(&rm); err != nil {
		return room.Room{}, fmt.Errorf("failed to scan room: %w", err)
	}

	r.rc.Expire(ctx, roomKey, r.expiration)

	return rm, nil
}

func (r repo) RemoveRoom(ctx context.Context, code string) error {
	r.logger.DebugContext(ctx, "called", "code", code)
	memberListKey := r.getMemberListKey(code)

	memberIds, err := r.rc.SMembers(ctx, memberListKey).Result()
	if err != nil {
		return fmt.Errorf("failed to get members: %w", err)
	}

	res, err := r.rc.Del(ctx, r.getRoomKey(code)).Result()
	if err != nil {
		return fmt.Errorf("failed to remove room: %w", err)
	}
	if res == 0 {
		return room.ErrRoomNotFound
	}

	pipe := r.rc.TxPipeline()
	pipe.Del(ctx, memberListKey)
	for _, memberId := range memberIds {
		pipe.Del(ctx, r.getSessionKey(memberId))
	}

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to remove room keys: %w", err)
	}

	return nil
}

func (r repo) UpdatePlayback(ctx context.Context, params *room.UpdatePlaybackParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	roomKey := r.getRoomKey(params.Code)

	exists, err := r.rc.Exists(ctx, roomKey).Result()
	if err != nil {
		return fmt.Errorf("failed to check if room exists: %w", err)
	}
	if exists == 0 {
		return room.ErrRoomNotFound
	}

	if err := r.rc.HSet(ctx, roomKey,
		"video_id", params.VideoId,
		"is_playing", params.IsPlaying,
		"time", params.Time,
		"updated_at", params.UpdatedAt,
	).Err(); err != nil {
		return fmt.Errorf("failed to update playback: %w", err)
	}

	r.rc.Expire(ctx, roomKey, r.expiration)

	return nil
}
