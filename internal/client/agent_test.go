package client

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePlayer struct {
	ready    bool
	playing  bool
	position float64
	duration float64

	loads []string
	seeks []float64
}

func (p *fakePlayer) Load(videoId string) error {
	p.loads = append(p.loads, videoId)
	p.ready = true
	return nil
}

func (p *fakePlayer) Play() error {
	p.playing = true
	return nil
}

func (p *fakePlayer) Pause() error {
	p.playing = false
	return nil
}

func (p *fakePlayer) SeekTo(seconds float64) error {
	p.seeks = append(p.seeks, seconds)
	p.position = seconds
	return nil
}

func (p *fakePlayer) CurrentPosition() (float64, error) { return p.position, nil }
func (p *fakePlayer) Duration() (float64, error)        { return p.duration, nil }
func (p *fakePlayer) Ready() bool                       { return p.ready }
func (p *fakePlayer) StateChanges() <-chan PlaybackState {
	return nil
}

func newTestSession(t *testing.T, player *fakePlayer) *Session {
	t.Helper()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	return &Session{
		player: player,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    func() time.Time { return base },
	}
}

func TestCheckDriftBoundary(t *testing.T) {
	player := &fakePlayer{ready: true}
	s := newTestSession(t, player)
	s.updateMirror(false, 100)

	// exactly at the threshold: tolerated
	player.position = 100.25
	s.checkDrift(s.now())
	assert.Empty(t, player.seeks)

	player.position = 99.75
	s.checkDrift(s.now())
	assert.Empty(t, player.seeks)

	// just past it: snapped back
	player.position = 100.26
	s.checkDrift(s.now())
	require.Len(t, player.seeks, 1)
	assert.InDelta(t, 100, player.seeks[0], 0.001)
}

func TestCheckDriftExtrapolates(t *testing.T) {
	player := &fakePlayer{ready: true}
	s := newTestSession(t, player)
	s.updateMirror(true, 10)

	// 4 seconds later the expected position is 14
	now := s.now().Add(4 * time.Second)

	player.position = 14.1
	s.checkDrift(now)
	assert.Empty(t, player.seeks, "within threshold of the extrapolated position")

	player.position = 16
	s.checkDrift(now)
	require.Len(t, player.seeks, 1)
	assert.InDelta(t, 14, player.seeks[0], 0.001)
}

func TestCheckDriftPausedDoesNotExtrapolate(t *testing.T) {
	player := &fakePlayer{ready: true, position: 42}
	s := newTestSession(t, player)
	s.updateMirror(false, 42)

	s.checkDrift(s.now().Add(time.Hour))
	assert.Empty(t, player.seeks, "a paused mirror holds its position")
}

func TestCheckDriftSkipsHost(t *testing.T) {
	player := &fakePlayer{ready: true, position: 500}
	s := newTestSession(t, player)
	s.isHost = true
	s.updateMirror(true, 10)

	s.checkDrift(s.now())
	assert.Empty(t, player.seeks)
}

func TestCheckDriftSkipsUnreadyPlayer(t *testing.T) {
	player := &fakePlayer{position: 500}
	s := newTestSession(t, player)
	s.updateMirror(true, 10)

	s.checkDrift(s.now())
	assert.Empty(t, player.seeks)
}

func TestApplySync(t *testing.T) {
	player := &fakePlayer{}
	s := newTestSession(t, player)

	s.applySync(&statePayload{VideoId: "abc123", IsPlaying: true, Time: 15})

	assert.Equal(t, []string{"abc123"}, player.loads)
	assert.Equal(t, []float64{15}, player.seeks)
	assert.True(t, player.playing)
	assert.Equal(t, syncState{isPlaying: true, syncedTime: 15, syncedAt: s.now()}, s.mirror)
	assert.Equal(t, "Synced with host", s.notice)

	// same video again: seek without a reload
	s.applySync(&statePayload{VideoId: "abc123", IsPlaying: false, Time: 30})
	assert.Equal(t, []string{"abc123"}, player.loads)
	assert.Equal(t, []float64{15, 30}, player.seeks)
	assert.False(t, player.playing)

	// different video: fresh load
	s.applySync(&statePayload{VideoId: "xyz789", IsPlaying: false, Time: 0})
	assert.Equal(t, []string{"abc123", "xyz789"}, player.loads)
}

func TestApplyDelta(t *testing.T) {
	player := &fakePlayer{ready: true}
	s := newTestSession(t, player)
	s.updateMirror(false, 0)

	s.applyDelta(10, boolPtr(true))
	assert.Equal(t, []float64{10}, player.seeks)
	assert.True(t, player.playing)
	assert.True(t, s.mirror.isPlaying)

	// seek keeps the playing flag
	s.applyDelta(120, nil)
	assert.Equal(t, []float64{10, 120}, player.seeks)
	assert.True(t, player.playing)
	assert.True(t, s.mirror.isPlaying)
	assert.Equal(t, 120.0, s.mirror.syncedTime)

	s.applyDelta(120, boolPtr(false))
	assert.False(t, player.playing)
	assert.False(t, s.mirror.isPlaying)
}

func TestApplyDeltaIgnoredByHost(t *testing.T) {
	player := &fakePlayer{ready: true}
	s := newTestSession(t, player)
	s.isHost = true

	s.applyDelta(10, boolPtr(true))
	assert.Empty(t, player.seeks)
	assert.False(t, player.playing)
}

func TestUpdateDisplay(t *testing.T) {
	player := &fakePlayer{ready: true, position: 65, duration: 3600}
	s := newTestSession(t, player)

	var statuses []string
	s.OnStatus = func(status string) { statuses = append(statuses, status) }

	s.updateDisplay(s.now())
	require.Len(t, statuses, 1)
	assert.Equal(t, "1:05 / 60:00", statuses[0])

	// an active notice wins over the position readout
	s.setNotice("Drift corrected: 0.40s")
	s.updateDisplay(s.now().Add(time.Second))
	assert.Equal(t, "Drift corrected: 0.40s", statuses[len(statuses)-1])

	// and expires after noticeDuration
	s.updateDisplay(s.now().Add(3 * time.Second))
	assert.Equal(t, "1:05 / 60:00", statuses[len(statuses)-1])
}

func TestHandleMessageRoomClosed(t *testing.T) {
	player := &fakePlayer{ready: true}
	s := newTestSession(t, player)

	var closedMsg string
	s.OnClosed = func(message string) { closedMsg = message }

	err := s.handleMessage(&envelope{
		Type:    "room-closed",
		Payload: []byte(`{"message":"Host has left the room"}`),
	})
	assert.ErrorIs(t, err, ErrRoomClosed)
	assert.Equal(t, "Host has left the room", closedMsg)
}

func TestFormatTime(t *testing.T) {
	assert.Equal(t, "0:00", formatTime(0))
	assert.Equal(t, "0:59", formatTime(59.9))
	assert.Equal(t, "1:05", formatTime(65))
	assert.Equal(t, "60:00", formatTime(3600))
}
