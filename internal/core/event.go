package core

import "github.com/pion/webrtc/v4"

// EventKind discriminates inbound signaling notifications.
type EventKind int

const (
	// EventCallRequested is an incoming call from a peer.
	EventCallRequested EventKind = iota
	// EventCallAccepted means the callee accepted our outgoing call.
	EventCallAccepted
	// EventCallRejected means the callee rejected our outgoing call.
	EventCallRejected
	// EventCallEnded means the peer hung up.
	EventCallEnded
	// EventCallAnsweredElsewhere means another of our devices answered.
	EventCallAnsweredElsewhere
	// EventCameraToggled reports the peer's camera state.
	EventCameraToggled
	// EventOfferReceived carries the peer's session description offer.
	EventOfferReceived
	// EventAnswerReceived carries the peer's session description answer.
	EventAnswerReceived
	// EventCandidateReceived carries one trickled ICE candidate.
	EventCandidateReceived
	// EventRemoteClosed means the peer closed its media session.
	EventRemoteClosed
)

func (k EventKind) String() string {
	switch k {
	case EventCallRequested:
		return "call_requested"
	case EventCallAccepted:
		return "call_accepted"
	case EventCallRejected:
		return "call_rejected"
	case EventCallEnded:
		return "call_ended"
	case EventCallAnsweredElsewhere:
		return "call_answered_elsewhere"
	case EventCameraToggled:
		return "camera_toggled"
	case EventOfferReceived:
		return "offer_received"
	case EventAnswerReceived:
		return "answer_received"
	case EventCandidateReceived:
		return "candidate_received"
	case EventRemoteClosed:
		return "remote_closed"
	default:
		return "unknown"
	}
}

// SignalingEvent is one inbound wire notification. Only the fields relevant
// to the Kind are populated; the state machine is the sole interpreter.
type SignalingEvent struct {
	Kind EventKind

	// From is the originating peer id for every kind except
	// EventCallAnsweredElsewhere, where Caller identifies the ringing peer
	// and AnsweredBy the sibling device that took the call.
	From     string
	FromName string

	WithCamera bool
	Enabled    bool

	Caller     string
	AnsweredBy string

	SDP       webrtc.SessionDescription
	Candidate webrtc.ICECandidateInit
}
