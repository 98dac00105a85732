package core

import "github.com/pion/webrtc/v4"

// Sender abstracts the outbound half of the signaling transport. All sends
// are fire-and-forget at the protocol level; the call protocol supplies its
// own accept/reject acknowledgements. Implementations return
// ErrTransportUnavailable when disconnected.
type Sender interface {
	SendCallRequest(to string, withCamera bool) error
	SendCallAccept(to string, withCamera bool) error
	SendCallReject(to string) error
	SendCallEnd(to string) error
	SendCameraToggle(to string, enabled bool) error
	SendOffer(to string, sdp webrtc.SessionDescription) error
	SendAnswer(to string, sdp webrtc.SessionDescription) error
	SendCandidate(to string, cand webrtc.ICECandidateInit) error
	SendClose(to string) error
}
