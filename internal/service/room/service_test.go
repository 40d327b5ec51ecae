package room

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CyberSavant2024/SYNCplay/internal/repository/room"
	"github.com/CyberSavant2024/SYNCplay/internal/repository/room/inmemory"
)

func newTestService(t *testing.T) (*service, RoomRepo) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := inmemory.NewRepo(logger)

	return NewService(repo, logger), repo
}

type fixedGenerator struct {
	value string
}

func (g fixedGenerator) GenerateRandomString(length int) string {
	return g.value
}

func TestCreateRoomUniqueCodes(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	seen := make(map[string]struct{})
	for i := 0; i < 50; i++ {
		resp, err := service.CreateRoom(ctx, &CreateRoomParams{CreatorId: fmt.Sprintf("host-%d", i)})
		require.NoError(t, err)
		assert.True(t, resp.IsHost)
		assert.Equal(t, 1, resp.MemberCount)
		assert.Len(t, resp.Code, 6)

		_, dup := seen[resp.Code]
		assert.False(t, dup, "room code %s allocated twice", resp.Code)
		seen[resp.Code] = struct{}{}
	}
}

func TestCreateRoomCodesExhausted(t *testing.T) {
	service, _ := newTestService(t)
	service.generator = fixedGenerator{value: "AAAAAA"}
	ctx := context.Background()

	_, err := service.CreateRoom(ctx, &CreateRoomParams{CreatorId: "host1"})
	require.NoError(t, err)

	_, err = service.CreateRoom(ctx, &CreateRoomParams{CreatorId: "host2"})
	assert.ErrorIs(t, err, ErrCodesExhausted)
}

func TestJoinRoomNotFound(t *testing.T) {
	service, _ := newTestService(t)

	_, err := service.JoinRoom(context.Background(), &JoinRoomParams{Code: "NOPE42", JoinerId: "guest"})
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestJoinRoom(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	createResp, err := service.CreateRoom(ctx, &CreateRoomParams{CreatorId: "host"})
	require.NoError(t, err)

	joinResp, err := service.JoinRoom(ctx, &JoinRoomParams{Code: createResp.Code, JoinerId: "guest"})
	require.NoError(t, err)
	assert.False(t, joinResp.IsHost)
	assert.Equal(t, 2, joinResp.MemberCount)
	assert.ElementsMatch(t, []string{"host", "guest"}, joinResp.MemberIds)
	assert.Nil(t, joinResp.Sync, "no sync payload before a video is loaded")
}

func TestJoinRoomSyncExtrapolation(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	service.now = func() time.Time { return base }

	createResp, err := service.CreateRoom(ctx, &CreateRoomParams{CreatorId: "host"})
	require.NoError(t, err)

	_, err = service.ApplyHostCommand(ctx, &HostCommandParams{
		Kind:     KindLoad,
		Code:     createResp.Code,
		SenderId: "host",
		VideoId:  "abc123",
	})
	require.NoError(t, err)

	_, err = service.ApplyHostCommand(ctx, &HostCommandParams{
		Kind:     KindPlay,
		Code:     createResp.Code,
		SenderId: "host",
		Time:     10,
	})
	require.NoError(t, err)

	// 5 seconds of playback elapse before the guest joins
	service.now = func() time.Time { return base.Add(5 * time.Second) }

	joinResp, err := service.JoinRoom(ctx, &JoinRoomParams{Code: createResp.Code, JoinerId: "guest"})
	require.NoError(t, err)
	require.NotNil(t, joinResp.Sync)
	assert.Equal(t, "abc123", joinResp.Sync.VideoId)
	assert.True(t, joinResp.Sync.IsPlaying)
	assert.InDelta(t, 15, joinResp.Sync.Time, 0.001)
}

func TestJoinRoomSyncWhilePaused(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	service.now = func() time.Time { return base }

	createResp, err := service.CreateRoom(ctx, &CreateRoomParams{CreatorId: "host"})
	require.NoError(t, err)

	_, err = service.ApplyHostCommand(ctx, &HostCommandParams{Kind: KindLoad, Code: createResp.Code, SenderId: "host", VideoId: "abc123"})
	require.NoError(t, err)
	_, err = service.ApplyHostCommand(ctx, &HostCommandParams{Kind: KindPause, Code: createResp.Code, SenderId: "host", Time: 42})
	require.NoError(t, err)

	service.now = func() time.Time { return base.Add(time.Hour) }

	joinResp, err := service.JoinRoom(ctx, &JoinRoomParams{Code: createResp.Code, JoinerId: "guest"})
	require.NoError(t, err)
	require.NotNil(t, joinResp.Sync)
	assert.False(t, joinResp.Sync.IsPlaying)
	assert.InDelta(t, 42, joinResp.Sync.Time, 0.001, "paused rooms do not extrapolate")
}

func TestHostCommandAuthorization(t *testing.T) {
	service, repo := newTestService(t)
	ctx := context.Background()

	createResp, err := service.CreateRoom(ctx, &CreateRoomParams{CreatorId: "host"})
	require.NoError(t, err)
	_, err = service.JoinRoom(ctx, &JoinRoomParams{Code: createResp.Code, JoinerId: "guest"})
	require.NoError(t, err)

	before, err := repo.GetRoom(ctx, createResp.Code)
	require.NoError(t, err)

	for _, kind := range []CommandKind{KindLoad, KindPlay, KindPause, KindSeek} {
		_, err := service.ApplyHostCommand(ctx, &HostCommandParams{
			Kind:     kind,
			Code:     createResp.Code,
			SenderId: "guest",
			VideoId:  "evil",
			Time:     99,
		})
		assert.ErrorIs(t, err, ErrPermissionDenied, "kind %s", kind)
	}

	after, err := repo.GetRoom(ctx, createResp.Code)
	require.NoError(t, err)
	assert.Equal(t, before, after, "rejected commands must leave the room untouched")
}

func TestLoadVideo(t *testing.T) {
	service, repo := newTestService(t)
	ctx := context.Background()

	createResp, err := service.CreateRoom(ctx, &CreateRoomParams{CreatorId: "host"})
	require.NoError(t, err)
	_, err = service.JoinRoom(ctx, &JoinRoomParams{Code: createResp.Code, JoinerId: "guest"})
	require.NoError(t, err)

	resp, err := service.ApplyHostCommand(ctx, &HostCommandParams{
		Kind:     KindLoad,
		Code:     createResp.Code,
		SenderId: "host",
		VideoId:  "abc123",
	})
	require.NoError(t, err)

	assert.Equal(t, PlayerState{VideoId: "abc123", IsPlaying: false, Time: 0}, resp.Player)
	assert.ElementsMatch(t, []string{"host", "guest"}, resp.MemberIds, "load goes to every member including the host")

	rm, err := repo.GetRoom(ctx, createResp.Code)
	require.NoError(t, err)
	assert.Equal(t, "abc123", rm.VideoId)
	assert.False(t, rm.IsPlaying)
	assert.Zero(t, rm.Time)
}

func TestPlayExcludesSender(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	createResp, err := service.CreateRoom(ctx, &CreateRoomParams{CreatorId: "host"})
	require.NoError(t, err)
	_, err = service.JoinRoom(ctx, &JoinRoomParams{Code: createResp.Code, JoinerId: "guest"})
	require.NoError(t, err)

	resp, err := service.ApplyHostCommand(ctx, &HostCommandParams{
		Kind:     KindPlay,
		Code:     createResp.Code,
		SenderId: "host",
		Time:     10,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"guest"}, resp.MemberIds)
	assert.True(t, resp.Player.IsPlaying)
	assert.InDelta(t, 10, resp.Player.Time, 0.001)
}

func TestSeekKeepsPlayingFlag(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	createResp, err := service.CreateRoom(ctx, &CreateRoomParams{CreatorId: "host"})
	require.NoError(t, err)

	_, err = service.ApplyHostCommand(ctx, &HostCommandParams{Kind: KindPlay, Code: createResp.Code, SenderId: "host", Time: 5})
	require.NoError(t, err)

	resp, err := service.ApplyHostCommand(ctx, &HostCommandParams{Kind: KindSeek, Code: createResp.Code, SenderId: "host", Time: 120})
	require.NoError(t, err)
	assert.True(t, resp.Player.IsPlaying, "seek must not touch the playing flag")
	assert.InDelta(t, 120, resp.Player.Time, 0.001)
}

func TestDisconnectHostClosesRoom(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	createResp, err := service.CreateRoom(ctx, &CreateRoomParams{CreatorId: "host"})
	require.NoError(t, err)
	_, err = service.JoinRoom(ctx, &JoinRoomParams{Code: createResp.Code, JoinerId: "guest1"})
	require.NoError(t, err)
	_, err = service.JoinRoom(ctx, &JoinRoomParams{Code: createResp.Code, JoinerId: "guest2"})
	require.NoError(t, err)

	resp, err := service.Disconnect(ctx, &DisconnectParams{MemberId: "host"})
	require.NoError(t, err)
	assert.True(t, resp.IsRoomClosed)
	assert.ElementsMatch(t, []string{"guest1", "guest2"}, resp.MemberIds)

	_, err = service.JoinRoom(ctx, &JoinRoomParams{Code: createResp.Code, JoinerId: "late"})
	assert.ErrorIs(t, err, ErrRoomNotFound, "codes are reclaimed on teardown")

	// remaining members' sessions were stripped with the room
	_, err = service.Disconnect(ctx, &DisconnectParams{MemberId: "guest1"})
	assert.ErrorIs(t, err, ErrNotInRoom)
}

func TestDisconnectGuest(t *testing.T) {
	service, repo := newTestService(t)
	ctx := context.Background()

	createResp, err := service.CreateRoom(ctx, &CreateRoomParams{CreatorId: "host"})
	require.NoError(t, err)
	_, err = service.JoinRoom(ctx, &JoinRoomParams{Code: createResp.Code, JoinerId: "guest"})
	require.NoError(t, err)

	_, err = service.ApplyHostCommand(ctx, &HostCommandParams{Kind: KindLoad, Code: createResp.Code, SenderId: "host", VideoId: "abc123"})
	require.NoError(t, err)
	before, err := repo.GetRoom(ctx, createResp.Code)
	require.NoError(t, err)

	resp, err := service.Disconnect(ctx, &DisconnectParams{MemberId: "guest"})
	require.NoError(t, err)
	assert.False(t, resp.IsRoomClosed)
	assert.Equal(t, 1, resp.MemberCount)
	assert.Equal(t, []string{"host"}, resp.MemberIds)

	after, err := repo.GetRoom(ctx, createResp.Code)
	require.NoError(t, err)
	assert.Equal(t, before, after, "guest departure must not touch playback state")
}

// gatedRoomRepo blocks the first GetRoom call until released, exposing the
// window between a join's room lookup and its membership registration.
type gatedRoomRepo struct {
	RoomRepo
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (g *gatedRoomRepo) GetRoom(ctx context.Context, code string) (room.Room, error) {
	rm, err := g.RoomRepo.GetRoom(ctx, code)
	g.once.Do(func() {
		close(g.entered)
		<-g.release
	})

	return rm, err
}

func TestJoinRoomSerializedWithLoad(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	gated := &gatedRoomRepo{
		RoomRepo: inmemory.NewRepo(logger),
		entered:  make(chan struct{}),
		release:  make(chan struct{}),
	}
	service := NewService(gated, logger)
	ctx := context.Background()

	createResp, err := service.CreateRoom(ctx, &CreateRoomParams{CreatorId: "host"})
	require.NoError(t, err)

	// the guest's join stalls mid-operation, after reading the room but
	// before registering membership
	joinDone := make(chan JoinRoomResponse, 1)
	go func() {
		resp, err := service.JoinRoom(ctx, &JoinRoomParams{Code: createResp.Code, JoinerId: "guest"})
		assert.NoError(t, err)
		joinDone <- resp
	}()

	select {
	case <-gated.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("join never reached the repository")
	}

	// the host loads a video into the stalled join's window
	loadDone := make(chan HostCommandResponse, 1)
	go func() {
		resp, err := service.ApplyHostCommand(ctx, &HostCommandParams{
			Kind:     KindLoad,
			Code:     createResp.Code,
			SenderId: "host",
			VideoId:  "abc123",
		})
		assert.NoError(t, err)
		loadDone <- resp
	}()

	// let the load reach the room lock before the join resumes
	time.Sleep(50 * time.Millisecond)
	close(gated.release)

	var joinResp JoinRoomResponse
	select {
	case joinResp = <-joinDone:
	case <-time.After(2 * time.Second):
		t.Fatal("join never completed")
	}
	var loadResp HostCommandResponse
	select {
	case loadResp = <-loadDone:
	case <-time.After(2 * time.Second):
		t.Fatal("load never completed")
	}

	// the join finished first, so its sync is nil and the guest must be a
	// broadcast target of the load. Without per-room serialization the load
	// slips into the window and the guest gets neither.
	assert.Nil(t, joinResp.Sync)
	assert.Contains(t, loadResp.MemberIds, "guest")
	assert.Contains(t, loadResp.MemberIds, "host")
}

func TestDisconnectUnknownMember(t *testing.T) {
	service, _ := newTestService(t)

	_, err := service.Disconnect(context.Background(), &DisconnectParams{MemberId: "stranger"})
	assert.ErrorIs(t, err, ErrNotInRoom)
}
