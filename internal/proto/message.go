package proto

import "encoding/json"

// Envelope frames every message on the signaling channel, both directions.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Wire event names. These are fixed protocol identifiers shared with the
// server and the other client platforms.
const (
	TypeCallRequest       = "call:request"
	TypeCallAccept        = "call:accept"
	TypeCallReject        = "call:reject"
	TypeCallEnd           = "call:end"
	TypeCameraToggle      = "call:toggle-camera"
	TypeAnsweredElsewhere = "call:answered-elsewhere"
	TypeOffer             = "webrtc:offer"
	TypeAnswer            = "webrtc:answer"
	TypeICECandidate      = "webrtc:ice-candidate"
	TypeClose             = "webrtc:close"
)

// CallRequest starts (outbound, To set) or announces (inbound, From set) a
// call.
type CallRequest struct {
	To         string `json:"to,omitempty"`
	From       string `json:"from,omitempty"`
	FromName   string `json:"fromName,omitempty"`
	WithCamera bool   `json:"withCamera"`
}

// CallAccept confirms a ringing call.
type CallAccept struct {
	To         string `json:"to,omitempty"`
	From       string `json:"from,omitempty"`
	WithCamera bool   `json:"withCamera"`
}

// CallReject declines a ringing call.
type CallReject struct {
	To   string `json:"to,omitempty"`
	From string `json:"from,omitempty"`
}

// CallEnd hangs up at any point of the lifecycle.
type CallEnd struct {
	To   string `json:"to,omitempty"`
	From string `json:"from,omitempty"`
}

// CameraToggle reports a camera state flip mid-call.
type CameraToggle struct {
	To      string `json:"to,omitempty"`
	From    string `json:"from,omitempty"`
	Enabled bool   `json:"enabled"`
}

// AnsweredElsewhere tells this device that a sibling device took the call.
type AnsweredElsewhere struct {
	AnsweredBy string `json:"answeredBy"`
	Caller     string `json:"caller"`
}

// SessionDescription is the wire form of an SDP offer or answer.
type SessionDescription struct {
	Type string `json:"type"`
	SDP  string `json:"sdp"`
}

// Offer carries the caller's session description.
type Offer struct {
	To    string             `json:"to,omitempty"`
	From  string             `json:"from,omitempty"`
	Offer SessionDescription `json:"offer"`
}

// Answer carries the callee's session description.
type Answer struct {
	To     string             `json:"to,omitempty"`
	From   string             `json:"from,omitempty"`
	Answer SessionDescription `json:"answer"`
}

// ICECandidate is the wire form of one connectivity candidate.
type ICECandidate struct {
	Candidate     string  `json:"candidate"`
	SDPMid        *string `json:"sdpMid,omitempty"`
	SDPMLineIndex *uint16 `json:"sdpMLineIndex,omitempty"`
}

// Candidate wraps an ICE candidate with addressing.
type Candidate struct {
	To        string       `json:"to,omitempty"`
	From      string       `json:"from,omitempty"`
	Candidate ICECandidate `json:"candidate"`
}

// Close tears the media session down without ending the call record.
type Close struct {
	To   string `json:"to,omitempty"`
	From string `json:"from,omitempty"`
}

// NewEnvelope marshals a payload under the given type tag.
func NewEnvelope(msgType string, payload any) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Type: msgType, Data: data}, nil
}
