package room

// SetRoomParams registers a new room with the creator as its only member.
type SetRoomParams struct {
	Code      string
	HostId    string
	UpdatedAt int64
}

type AddMemberParams struct {
	Code     string
	MemberId string
}

type RemoveMemberParams struct {
	Code     string
	MemberId string
}

// UpdatePlaybackParams overwrites the playback fields of a room. HostId and
// membership are untouched.
type UpdatePlaybackParams struct {
	Code      string
	VideoId   string
	IsPlaying bool
	Time      float64
	UpdatedAt int64
}
