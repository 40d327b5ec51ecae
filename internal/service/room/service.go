package room

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/CyberSavant2024/SYNCplay/internal/repository/room"
	"github.com/CyberSavant2024/SYNCplay/pkg/keymutex"
	"github.com/CyberSavant2024/SYNCplay/pkg/randstr"
)

var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrRoomNotFound     = errors.New("room not found")
	ErrNotInRoom        = errors.New("not in a room")
	ErrCodesExhausted   = errors.New("failed to allocate a unique room code")
)

const (
	codeLength      = 6
	maxCodeAttempts = 100
)

// RoomRepo is the storage contract shared by the in-memory and redis
// repositories: the room table plus the member session index.
type RoomRepo interface {
	SetRoom(context.Context, *room.SetRoomParams) error
	GetRoom(context.Context, string) (room.Room, error)
	RemoveRoom(context.Context, string) error
	UpdatePlayback(context.Context, *room.UpdatePlaybackParams) error
	AddMember(context.Context, *room.AddMemberParams) error
	RemoveMember(context.Context, *room.RemoveMemberParams) error
	GetMemberIds(context.Context, string) ([]string, error)
	GetMemberRoomCode(context.Context, string) (string, error)
}

type iGenerator interface {
	GenerateRandomString(length int) string
}

type service struct {
	roomRepo  RoomRepo
	generator iGenerator
	logger    *slog.Logger
	now       func() time.Time
	// roomLocks serializes commands per room code: each create, join, host
	// command and disconnect runs to completion before the next one for the
	// same room starts, so multi-step operations never interleave.
	roomLocks *keymutex.KeyedMutex
}

func NewService(roomRepo RoomRepo, logger *slog.Logger) *service {
	s := service{
		roomRepo:  roomRepo,
		logger:    logger,
		now:       time.Now,
		roomLocks: keymutex.New(),
	}

	letterBytes := []byte("ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789")
	s.generator = randstr.New(letterBytes)

	return &s
}

// PlayerState is the full-sync payload shape: the complete playback state of
// a room with Time already extrapolated to the moment it was built.
type PlayerState struct {
	VideoId   string  `json:"videoId"`
	IsPlaying bool    `json:"isPlaying"`
	Time      float64 `json:"time"`
}

// currentPosition extrapolates the authoritative position of a room at now.
func (s service) currentPosition(rm *room.Room) float64 {
	if !rm.IsPlaying {
		return rm.Time
	}

	return rm.Time + float64(s.now().UnixMilli()-rm.UpdatedAt)/1000
}
