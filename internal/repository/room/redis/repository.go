package redis

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// repo stores every room as a hash plus a member set, and the session index
// as plain keys. All keys carry a generous TTL refreshed on access, so rooms
// leaked by a server crash do not live forever.
type repo struct {
	rc         *redis.Client
	expiration time.Duration
	logger     *slog.Logger
}

func NewRepo(rc *redis.Client, expiration time.Duration, logger *slog.Logger) *repo {
	return &repo{
		rc:         rc,
		expiration: expiration,
		logger:     logger,
	}
}

func (r repo) getRoomKey(code string) string {
	return "room:" + code
}

func (r repo) getMemberListKey(code string) string {
	return "room:" + code + ":members"
}

func (r repo) getSessionKey(memberId string) string {
	return "session:" + memberId
}

func (r repo) executePipe(ctx context.Context, pipe redis.Pipeliner) error {
	cmds, err := pipe.Exec(ctx)
	if err != nil {
		for _, cmd := range cmds {
			if err := cmd.Err(); err != nil {
				return err
			}
		}

		return err
	}

	return nil
}
