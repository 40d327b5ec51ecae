package main

import (
	"sync"
	"time"

	"github.com/CyberSavant2024/SYNCplay/internal/client"
)

const simDuration = 3600

// simPlayer is a headless stand-in for a real playback widget: its position
// advances with the wall clock while playing. Safe for concurrent use so the
// stdin prompt and the session loop can share it.
type simPlayer struct {
	mu        sync.Mutex
	ready     bool
	playing   bool
	basePos   float64
	startedAt time.Time
	states    chan client.PlaybackState
}

func newSimPlayer() *simPlayer {
	return &simPlayer{states: make(chan client.PlaybackState, 8)}
}

func (p *simPlayer) position() float64 {
	if !p.playing {
		return p.basePos
	}

	return p.basePos + time.Since(p.startedAt).Seconds()
}

func (p *simPlayer) notify(state client.PlaybackState) {
	select {
	case p.states <- state:
	default:
	}
}

func (p *simPlayer) Load(videoId string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.ready = true
	p.playing = false
	p.basePos = 0

	return nil
}

func (p *simPlayer) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.playing {
		p.startedAt = time.Now()
		p.playing = true
		p.notify(client.StatePlaying)
	}

	return nil
}

func (p *simPlayer) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.playing {
		p.basePos = p.position()
		p.playing = false
		p.notify(client.StatePaused)
	}

	return nil
}

func (p *simPlayer) SeekTo(seconds float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.basePos = seconds
	p.startedAt = time.Now()

	return nil
}

func (p *simPlayer) CurrentPosition() (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.position(), nil
}

func (p *simPlayer) Duration() (float64, error) {
	return simDuration, nil
}

func (p *simPlayer) Ready() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.ready
}

func (p *simPlayer) StateChanges() <-chan client.PlaybackState {
	return p.states
}
