package roomprovider

import "github.com/livekit/protocol/auth"

// Grant is the caller-facing capability request for a participant.
type Grant struct {
	Room           string
	CanPublish     bool
	CanSubscribe   bool
	CanPublishData bool
}

func boolPtr(b bool) *bool { return &b }

// videoGrant converts a Grant into the SFU's claim set.  Publish flags are
// always explicit so the SFU never falls back to its defaults.
func videoGrant(g Grant) *auth.VideoGrant {
	return &auth.VideoGrant{
		Room:           g.Room,
		RoomJoin:       true,
		CanPublish:     boolPtr(g.CanPublish),
		CanSubscribe:   boolPtr(g.CanSubscribe),
		CanPublishData: boolPtr(g.CanPublishData),
	}
}
