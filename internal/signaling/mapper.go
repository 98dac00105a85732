package signaling

import (
	"encoding/json"
	"fmt"

	"github.com/pion/webrtc/v4"

	"github.com/vovakirdan/wirechat-client/internal/core"
	"github.com/vovakirdan/wirechat-client/internal/proto"
)

// decodeEvent maps a wire envelope onto a core signaling event. Envelope
// types outside the call protocol (chat traffic shares the channel) return
// ok=false and are skipped.
func decodeEvent(env proto.Envelope) (core.SignalingEvent, bool, error) {
	var ev core.SignalingEvent

	switch env.Type {
	case proto.TypeCallRequest:
		var d proto.CallRequest
		if err := json.Unmarshal(env.Data, &d); err != nil {
			return ev, false, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		ev = core.SignalingEvent{Kind: core.EventCallRequested, From: d.From, FromName: d.FromName, WithCamera: d.WithCamera}

	case proto.TypeCallAccept:
		var d proto.CallAccept
		if err := json.Unmarshal(env.Data, &d); err != nil {
			return ev, false, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		ev = core.SignalingEvent{Kind: core.EventCallAccepted, From: d.From, WithCamera: d.WithCamera}

	case proto.TypeCallReject:
		var d proto.CallReject
		if err := json.Unmarshal(env.Data, &d); err != nil {
			return ev, false, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		ev = core.SignalingEvent{Kind: core.EventCallRejected, From: d.From}

	case proto.TypeCallEnd:
		var d proto.CallEnd
		if err := json.Unmarshal(env.Data, &d); err != nil {
			return ev, false, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		ev = core.SignalingEvent{Kind: core.EventCallEnded, From: d.From}

	case proto.TypeAnsweredElsewhere:
		var d proto.AnsweredElsewhere
		if err := json.Unmarshal(env.Data, &d); err != nil {
			return ev, false, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		ev = core.SignalingEvent{Kind: core.EventCallAnsweredElsewhere, Caller: d.Caller, AnsweredBy: d.AnsweredBy}

	case proto.TypeCameraToggle:
		var d proto.CameraToggle
		if err := json.Unmarshal(env.Data, &d); err != nil {
			return ev, false, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		ev = core.SignalingEvent{Kind: core.EventCameraToggled, From: d.From, Enabled: d.Enabled}

	case proto.TypeOffer:
		var d proto.Offer
		if err := json.Unmarshal(env.Data, &d); err != nil {
			return ev, false, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		ev = core.SignalingEvent{Kind: core.EventOfferReceived, From: d.From, SDP: fromWireSDP(d.Offer)}

	case proto.TypeAnswer:
		var d proto.Answer
		if err := json.Unmarshal(env.Data, &d); err != nil {
			return ev, false, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		ev = core.SignalingEvent{Kind: core.EventAnswerReceived, From: d.From, SDP: fromWireSDP(d.Answer)}

	case proto.TypeICECandidate:
		var d proto.Candidate
		if err := json.Unmarshal(env.Data, &d); err != nil {
			return ev, false, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		ev = core.SignalingEvent{Kind: core.EventCandidateReceived, From: d.From, Candidate: fromWireCandidate(d.Candidate)}

	case proto.TypeClose:
		var d proto.Close
		if err := json.Unmarshal(env.Data, &d); err != nil {
			return ev, false, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		ev = core.SignalingEvent{Kind: core.EventRemoteClosed, From: d.From}

	default:
		return ev, false, nil
	}

	return ev, true, nil
}

func toWireSDP(sdp webrtc.SessionDescription) proto.SessionDescription {
	return proto.SessionDescription{Type: sdp.Type.String(), SDP: sdp.SDP}
}

func fromWireSDP(s proto.SessionDescription) webrtc.SessionDescription {
	return webrtc.SessionDescription{Type: webrtc.NewSDPType(s.Type), SDP: s.SDP}
}

func toWireCandidate(c webrtc.ICECandidateInit) proto.ICECandidate {
	return proto.ICECandidate{
		Candidate:     c.Candidate,
		SDPMid:        c.SDPMid,
		SDPMLineIndex: c.SDPMLineIndex,
	}
}

func fromWireCandidate(c proto.ICECandidate) webrtc.ICECandidateInit {
	return webrtc.ICECandidateInit{
		Candidate:     c.Candidate,
		SDPMid:        c.SDPMid,
		SDPMLineIndex: c.SDPMLineIndex,
	}
}
