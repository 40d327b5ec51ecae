package client

// PlaybackState is a state-change notification from the playback widget.
type PlaybackState int

const (
	StatePlaying PlaybackState = iota
	StatePaused
)

// Player is the boundary to the actual playback widget. Implementations are
// not required to be safe for concurrent use: the session is the single owner
// of the player and funnels every call through its run loop.
type Player interface {
	Load(videoId string) error
	Play() error
	Pause() error
	SeekTo(seconds float64) error
	CurrentPosition() (float64, error)
	Duration() (float64, error)
	// Ready reports whether the widget is fully initialized. State changes
	// and reconciliation are ignored until it is.
	Ready() bool
	// StateChanges delivers the widget's own play/pause notifications. Only
	// the host side consumes them.
	StateChanges() <-chan PlaybackState
}
