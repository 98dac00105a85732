package media

import (
	"context"

	"github.com/pion/webrtc/v4"
)

// Track is the minimal view of a media track the binder needs. Remote pion
// tracks satisfy it directly; tests substitute fakes.
type Track interface {
	ID() string
}

// TrackRole is the logical purpose of a track, independent of its transport
// identity.
type TrackRole string

const (
	RoleRemoteCamera TrackRole = "remote_camera"
	RoleRemoteScreen TrackRole = "remote_screen"
	RoleLocalCamera  TrackRole = "local_camera"
)

// Callbacks are invoked from engine-owned goroutines. Receivers must hand the
// data off to their own scheduling context instead of mutating state inline.
type Callbacks struct {
	// OnTrack reports a new remote video track classified by role.
	OnTrack func(role TrackRole, track Track)
	// OnTrackRemoved reports that the role's remote track ended mid-call,
	// e.g. a screen share stopped.
	OnTrackRemoved func(role TrackRole)
	// OnCandidate reports a locally gathered ICE candidate to be trickled out.
	OnCandidate func(cand webrtc.ICECandidateInit)
	// OnConnected fires once the peer connection reaches the connected state.
	OnConnected func()
	// OnFailed fires when the peer connection fails terminally.
	OnFailed func(err error)
}

// Engine abstracts the media backend for a single call session.
// Start tears down any previous session's connection; all methods are meant
// to be called from one goroutine.
type Engine interface {
	Start(ctx context.Context, withCamera bool, cb Callbacks) error
	CreateOffer(ctx context.Context) (webrtc.SessionDescription, error)
	HandleOffer(ctx context.Context, offer webrtc.SessionDescription) (webrtc.SessionDescription, error)
	HandleAnswer(ctx context.Context, answer webrtc.SessionDescription) error
	AddCandidate(cand webrtc.ICECandidateInit) error
	Close() error
}
