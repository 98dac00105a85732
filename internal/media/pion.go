package media

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
)

// PionEngine implements Engine on top of pion/webrtc with trickle ICE.
// One peer connection exists at a time; Start replaces it.
type PionEngine struct {
	log *zerolog.Logger
	cfg webrtc.Configuration
	pc  *webrtc.PeerConnection
}

// NewPionEngine builds an engine using the given STUN servers.
func NewPionEngine(logger *zerolog.Logger, stunServers []string) *PionEngine {
	cfg := webrtc.Configuration{}
	if len(stunServers) > 0 {
		cfg.ICEServers = []webrtc.ICEServer{{URLs: stunServers}}
	}
	return &PionEngine{log: logger, cfg: cfg}
}

// Start creates a fresh peer connection for a new session and wires the
// callbacks. Any previous connection is closed first.
func (e *PionEngine) Start(ctx context.Context, withCamera bool, cb Callbacks) error {
	if e.pc != nil {
		_ = e.pc.Close()
		e.pc = nil
	}

	pc, err := webrtc.NewPeerConnection(e.cfg)
	if err != nil {
		return fmt.Errorf("new peer connection: %w", err)
	}

	videoDirection := webrtc.RTPTransceiverDirectionRecvonly
	if withCamera {
		videoDirection = webrtc.RTPTransceiverDirectionSendrecv
	}
	if _, err := pc.AddTransceiverFromKind(webrtc.RTPCodecTypeVideo, webrtc.RTPTransceiverInit{
		Direction: videoDirection,
	}); err != nil {
		_ = pc.Close()
		return fmt.Errorf("add video transceiver: %w", err)
	}
	if _, err := pc.AddTransceiverFromKind(webrtc.RTPCodecTypeAudio, webrtc.RTPTransceiverInit{
		Direction: webrtc.RTPTransceiverDirectionSendrecv,
	}); err != nil {
		_ = pc.Close()
		return fmt.Errorf("add audio transceiver: %w", err)
	}

	pc.OnICECandidate(func(cand *webrtc.ICECandidate) {
		if cand != nil && cb.OnCandidate != nil {
			cb.OnCandidate(cand.ToJSON())
		}
	})

	pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		e.log.Info().
			Str("kind", track.Kind().String()).
			Str("track_id", track.ID()).
			Str("stream_id", track.StreamID()).
			Msg("remote track received")
		if track.Kind() != webrtc.RTPCodecTypeVideo {
			// Audio is consumed by the engine's own playout path.
			return
		}
		role := RoleRemoteCamera
		if strings.Contains(strings.ToLower(track.StreamID()), "screen") {
			role = RoleRemoteScreen
		}
		if cb.OnTrack != nil {
			cb.OnTrack(role, track)
		}
		go e.watchTrack(track, role, cb)
	})

	pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		e.log.Info().Str("peer_connection_state", s.String()).Msg("peer state")
		switch s {
		case webrtc.PeerConnectionStateConnected:
			if cb.OnConnected != nil {
				cb.OnConnected()
			}
		case webrtc.PeerConnectionStateFailed:
			if cb.OnFailed != nil {
				cb.OnFailed(errors.New("peer connection failed"))
			}
		}
	})

	e.pc = pc
	return nil
}

// watchTrack drains the track's RTP stream until it ends. The read error is
// the only signal pion gives for a remote track going away, so this loop is
// what feeds OnTrackRemoved when the peer stops a camera or screen share.
func (e *PionEngine) watchTrack(track *webrtc.TrackRemote, role TrackRole, cb Callbacks) {
	buf := make([]byte, 1500)
	for {
		if _, _, err := track.Read(buf); err != nil {
			e.log.Info().
				Str("role", string(role)).
				Str("track_id", track.ID()).
				Err(err).
				Msg("remote track ended")
			if cb.OnTrackRemoved != nil {
				cb.OnTrackRemoved(role)
			}
			return
		}
	}
}

// CreateOffer produces and installs a local offer. Candidates trickle out
// through OnCandidate as they are gathered.
func (e *PionEngine) CreateOffer(ctx context.Context) (webrtc.SessionDescription, error) {
	if e.pc == nil {
		return webrtc.SessionDescription{}, errors.New("engine not started")
	}
	offer, err := e.pc.CreateOffer(nil)
	if err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("create offer: %w", err)
	}
	if err := e.pc.SetLocalDescription(offer); err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("set local description: %w", err)
	}
	return offer, nil
}

// HandleOffer installs the remote offer and produces a local answer.
func (e *PionEngine) HandleOffer(ctx context.Context, offer webrtc.SessionDescription) (webrtc.SessionDescription, error) {
	if e.pc == nil {
		return webrtc.SessionDescription{}, errors.New("engine not started")
	}
	if err := e.pc.SetRemoteDescription(offer); err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("set remote description: %w", err)
	}
	answer, err := e.pc.CreateAnswer(nil)
	if err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("create answer: %w", err)
	}
	if err := e.pc.SetLocalDescription(answer); err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("set local description: %w", err)
	}
	return answer, nil
}

// HandleAnswer installs the remote answer on the caller side.
func (e *PionEngine) HandleAnswer(ctx context.Context, answer webrtc.SessionDescription) error {
	if e.pc == nil {
		return errors.New("engine not started")
	}
	if err := e.pc.SetRemoteDescription(answer); err != nil {
		return fmt.Errorf("set remote description: %w", err)
	}
	return nil
}

// AddCandidate feeds a remote ICE candidate to the connection.
func (e *PionEngine) AddCandidate(cand webrtc.ICECandidateInit) error {
	if e.pc == nil {
		return errors.New("engine not started")
	}
	return e.pc.AddICECandidate(cand)
}

// Close shuts the current peer connection down. Safe to call repeatedly.
func (e *PionEngine) Close() error {
	if e.pc == nil {
		return nil
	}
	err := e.pc.Close()
	e.pc = nil
	if err != nil {
		return fmt.Errorf("close peer connection: %w", err)
	}
	return nil
}
