package room

// Room is the authoritative playback state of a live room. Time is the
// position in seconds as of UpdatedAt (unix milliseconds); the position at any
// later moment is Time plus the elapsed wall-clock seconds while IsPlaying.
type Room struct {
	Code      string  `redis:"code"`
	VideoId   string  `redis:"video_id"`
	IsPlaying bool    `redis:"is_playing"`
	Time      float64 `redis:"time"`
	UpdatedAt int64   `redis:"updated_at"`
	HostId    string  `redis:"host_id"`
}
