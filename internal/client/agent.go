package client

import (
	"fmt"
	"math"
	"time"
)

const (
	driftCheckPeriod = 2 * time.Second
	displayPeriod    = 1 * time.Second
	// driftThreshold is exclusive: a drift of exactly 0.25s is tolerated.
	driftThreshold = 0.25
	noticeDuration = 2 * time.Second
)

// syncState mirrors the last authoritative playback state received from the
// server, the reference for extrapolation between events.
type syncState struct {
	isPlaying  bool
	syncedTime float64
	syncedAt   time.Time
}

func (s *Session) updateMirror(isPlaying bool, position float64) {
	s.mirror = syncState{
		isPlaying:  isPlaying,
		syncedTime: position,
		syncedAt:   s.now(),
	}
}

// expectedPosition extrapolates the position the widget should be at.
func (s *Session) expectedPosition(now time.Time) float64 {
	if !s.mirror.isPlaying {
		return s.mirror.syncedTime
	}

	return s.mirror.syncedTime + now.Sub(s.mirror.syncedAt).Seconds()
}

// applySync applies a full-state sync: load the video if it changed, seek and
// match the play/pause flag. Received by guests on join and by everyone on a
// host load.
func (s *Session) applySync(state *statePayload) {
	if state.VideoId != s.videoId || !s.player.Ready() {
		if err := s.player.Load(state.VideoId); err != nil {
			s.logger.Warn("failed to load video", "video_id", state.VideoId, "error", err)
			return
		}
		s.videoId = state.VideoId
	}

	if err := s.player.SeekTo(state.Time); err != nil {
		s.logger.Warn("failed to seek player", "error", err)
		return
	}

	var err error
	if state.IsPlaying {
		err = s.player.Play()
	} else {
		err = s.player.Pause()
	}
	if err != nil {
		s.logger.Warn("failed to apply play state", "error", err)
		return
	}

	s.updateMirror(state.IsPlaying, state.Time)
	s.setNotice("Synced with host")
}

// applyDelta applies a play/pause/seek event. isPlaying nil means the flag is
// unchanged (seek). The host ignores deltas, it is the origin of them.
func (s *Session) applyDelta(position float64, isPlaying *bool) {
	if s.isHost || !s.player.Ready() {
		return
	}

	if err := s.player.SeekTo(position); err != nil {
		s.logger.Warn("failed to seek player", "error", err)
		return
	}

	playing := s.mirror.isPlaying
	if isPlaying != nil {
		playing = *isPlaying

		var err error
		if playing {
			err = s.player.Play()
		} else {
			err = s.player.Pause()
		}
		if err != nil {
			s.logger.Warn("failed to apply play state", "error", err)
			return
		}
	}

	s.updateMirror(playing, position)
}

// checkDrift compares the widget's actual position against the extrapolated
// one and snaps it back when the gap exceeds the threshold. Hosts never
// reconcile against themselves.
func (s *Session) checkDrift(now time.Time) {
	if s.isHost || !s.player.Ready() {
		return
	}

	actual, err := s.player.CurrentPosition()
	if err != nil {
		s.logger.Warn("failed to read player position", "error", err)
		return
	}

	expected := s.expectedPosition(now)
	drift := actual - expected
	if math.Abs(drift) <= driftThreshold {
		return
	}

	s.logger.Info("drift detected, correcting", "drift", drift)
	if err := s.player.SeekTo(expected); err != nil {
		s.logger.Warn("failed to correct drift", "error", err)
		return
	}

	s.setNotice(fmt.Sprintf("Drift corrected: %.2fs", drift))
}

// updateDisplay renders the elapsed/total readout. Purely cosmetic: it never
// touches playback and backs off while a notice is showing.
func (s *Session) updateDisplay(now time.Time) {
	if s.OnStatus == nil || !s.player.Ready() {
		return
	}

	if now.Before(s.noticeUntil) {
		s.OnStatus(s.notice)
		return
	}

	position, err := s.player.CurrentPosition()
	if err != nil {
		return
	}
	duration, err := s.player.Duration()
	if err != nil {
		return
	}

	s.OnStatus(fmt.Sprintf("%s / %s", formatTime(position), formatTime(duration)))
}

func (s *Session) setNotice(notice string) {
	s.notice = notice
	s.noticeUntil = s.now().Add(noticeDuration)
	if s.OnStatus != nil {
		s.OnStatus(notice)
	}
}

func formatTime(seconds float64) string {
	total := int(seconds)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
