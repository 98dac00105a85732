package core

import "time"

// Phase is the lifecycle state of the current call session.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseOutgoing
	PhaseIncoming
	PhaseNegotiating
	PhaseActive
	PhaseRecovering
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseOutgoing:
		return "outgoing"
	case PhaseIncoming:
		return "incoming"
	case PhaseNegotiating:
		return "negotiating"
	case PhaseActive:
		return "active"
	case PhaseRecovering:
		return "recovering"
	default:
		return "unknown"
	}
}

// CallSession is the single authoritative call aggregate. At most one
// non-idle session exists per process; it is pure in-memory state with no
// durable lifecycle beyond the process.
type CallSession struct {
	ID       string
	PeerID   string
	PeerName string

	// WithCamera records whether the call was negotiated as audio+video.
	WithCamera bool

	Phase Phase

	LocalMuted          bool
	LocalCameraOn       bool
	RemoteCameraOn      bool
	RemoteScreenSharing bool

	// StartedAt is set on first entering PhaseActive and survives
	// Active <-> Recovering round trips.
	StartedAt time.Time

	// Epoch identifies the generation of this session. Late events tagged
	// with an older epoch are discarded.
	Epoch uint64
}
