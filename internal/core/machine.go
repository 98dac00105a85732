package core

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-client/internal/audio"
	"github.com/vovakirdan/wirechat-client/internal/media"
)

// Update is one state snapshot emitted to the UI layer. Err, when set,
// carries the reason for a terminal transition or a rejected action.
type Update struct {
	Session CallSession
	Err     *CoreError
}

// Config holds the machine's tunables.
type Config struct {
	// RecoveryTimeout bounds how long an active call may sit in
	// PhaseRecovering before it is torn down.
	RecoveryTimeout time.Duration
	// CandidateQueueCap bounds queued ICE candidates that arrive before
	// negotiation starts; the oldest is dropped past the cap.
	CandidateQueueCap int
}

const (
	defaultRecoveryTimeout   = 30 * time.Second
	defaultCandidateQueueCap = 32

	inboxSize   = 128
	updatesSize = 64
)

type inboxKind int

const (
	inSignal inboxKind = iota
	inAction
	inConnChange
	inTrack
	inTrackRemoved
	inLocalCandidate
	inEngineConnected
	inEngineFailed
	inRecoveryTimeout
)

type actionKind int

const (
	actPlaceCall actionKind = iota
	actAcceptCall
	actRejectCall
	actEndCall
	actSetMuted
	actSetCamera
	actBindRenderer
	actUnbindRenderer
)

type action struct {
	kind       actionKind
	peerID     string
	peerName   string
	withCamera bool
	enabled    bool
	role       media.TrackRole
	renderer   media.Renderer
}

// envelope is one entry on the single-writer queue. Engine callbacks and
// timers are tagged with the epoch they were created under so entries from a
// superseded session are discarded.
type envelope struct {
	kind      inboxKind
	epoch     uint64
	sig       *SignalingEvent
	act       *action
	connected bool
	role      media.TrackRole
	track     media.Track
	cand      webrtc.ICECandidateInit
	err       error
}

// Machine owns the call session and applies every signaling event, local
// action, engine callback and timer as a transition on one goroutine.
// No locks are needed inside: Run is the only writer.
type Machine struct {
	cfg    Config
	log    *zerolog.Logger
	sender Sender
	engine media.Engine
	binder *media.Binder
	audio  audio.Router

	inbox   chan envelope
	updates chan Update

	// Loop-owned state below; only touched from Run.
	ctx               context.Context
	session           *CallSession
	epoch             uint64
	pendingCandidates []webrtc.ICECandidateInit
	recoveryTimer     *time.Timer
}

// NewMachine wires the state machine to its collaborators. A nil router
// falls back to the no-op audio route.
func NewMachine(cfg Config, logger *zerolog.Logger, sender Sender, engine media.Engine, binder *media.Binder, router audio.Router) *Machine {
	if cfg.RecoveryTimeout <= 0 {
		cfg.RecoveryTimeout = defaultRecoveryTimeout
	}
	if cfg.CandidateQueueCap <= 0 {
		cfg.CandidateQueueCap = defaultCandidateQueueCap
	}
	if router == nil {
		router = audio.NopRouter{}
	}
	return &Machine{
		cfg:     cfg,
		log:     logger,
		sender:  sender,
		engine:  engine,
		binder:  binder,
		audio:   router,
		inbox:   make(chan envelope, inboxSize),
		updates: make(chan Update, updatesSize),
	}
}

// Updates exposes the state snapshots for the UI layer.
func (m *Machine) Updates() <-chan Update {
	return m.updates
}

// Run processes the queue until ctx is cancelled, then tears the session
// down. It must be called exactly once.
func (m *Machine) Run(ctx context.Context) {
	m.ctx = ctx
	for {
		select {
		case <-ctx.Done():
			if m.session != nil {
				m.teardown(nil)
			}
			return
		case e := <-m.inbox:
			m.handle(e)
		}
	}
}

// Deliver enqueues one inbound signaling event. Never blocks the transport.
func (m *Machine) Deliver(ev SignalingEvent) {
	m.enqueue(envelope{kind: inSignal, sig: &ev})
}

// SetConnected reports the transport connection state into the queue.
func (m *Machine) SetConnected(connected bool) {
	m.enqueue(envelope{kind: inConnChange, connected: connected})
}

// PlaceCall starts an outgoing call to the peer.
func (m *Machine) PlaceCall(peerID, peerName string, withCamera bool) {
	m.enqueue(envelope{kind: inAction, act: &action{kind: actPlaceCall, peerID: peerID, peerName: peerName, withCamera: withCamera}})
}

// AcceptCall answers the current incoming call.
func (m *Machine) AcceptCall() {
	m.enqueue(envelope{kind: inAction, act: &action{kind: actAcceptCall}})
}

// RejectCall declines the current incoming call.
func (m *Machine) RejectCall() {
	m.enqueue(envelope{kind: inAction, act: &action{kind: actRejectCall}})
}

// EndCall hangs up whatever call is in progress.
func (m *Machine) EndCall() {
	m.enqueue(envelope{kind: inAction, act: &action{kind: actEndCall}})
}

// SetMuted toggles the local microphone flag.
func (m *Machine) SetMuted(muted bool) {
	m.enqueue(envelope{kind: inAction, act: &action{kind: actSetMuted, enabled: muted}})
}

// SetCameraEnabled toggles the local camera and notifies the peer.
func (m *Machine) SetCameraEnabled(enabled bool) {
	m.enqueue(envelope{kind: inAction, act: &action{kind: actSetCamera, enabled: enabled}})
}

// BindRenderer routes a UI surface to the binder through the queue, keeping
// binder mutations serialized with state transitions.
func (m *Machine) BindRenderer(role media.TrackRole, r media.Renderer) {
	m.enqueue(envelope{kind: inAction, act: &action{kind: actBindRenderer, role: role, renderer: r}})
}

// UnbindRenderer detaches and releases the role's surface through the queue.
func (m *Machine) UnbindRenderer(role media.TrackRole) {
	m.enqueue(envelope{kind: inAction, act: &action{kind: actUnbindRenderer, role: role}})
}

func (m *Machine) enqueue(e envelope) {
	select {
	case m.inbox <- e:
	default:
		m.log.Warn().Int("kind", int(e.kind)).Msg("inbox full, dropping entry")
	}
}

func (m *Machine) handle(e envelope) {
	switch e.kind {
	case inAction:
		m.handleAction(e.act)
	case inSignal:
		m.handleSignal(e.sig)
	case inConnChange:
		m.handleConnChange(e.connected)
	case inTrack:
		if !m.sessionAlive(e.epoch) {
			return
		}
		m.binder.TrackArrived(e.role, e.track)
		switch e.role {
		case media.RoleRemoteCamera:
			m.session.RemoteCameraOn = true
		case media.RoleRemoteScreen:
			m.session.RemoteScreenSharing = true
		}
		m.emit(nil)
	case inTrackRemoved:
		if !m.sessionAlive(e.epoch) {
			return
		}
		m.binder.TrackRemoved(e.role)
		switch e.role {
		case media.RoleRemoteCamera:
			m.session.RemoteCameraOn = false
		case media.RoleRemoteScreen:
			m.session.RemoteScreenSharing = false
		}
		m.emit(nil)
	case inLocalCandidate:
		if !m.sessionAlive(e.epoch) {
			return
		}
		if err := m.sender.SendCandidate(m.session.PeerID, e.cand); err != nil {
			m.log.Debug().Err(err).Msg("dropping local candidate, transport unavailable")
		}
	case inEngineConnected:
		if !m.sessionAlive(e.epoch) || m.session.Phase != PhaseNegotiating {
			return
		}
		m.toActive()
	case inEngineFailed:
		if !m.sessionAlive(e.epoch) {
			return
		}
		m.negotiationFailed(e.err)
	case inRecoveryTimeout:
		if !m.sessionAlive(e.epoch) || m.session.Phase != PhaseRecovering {
			return
		}
		m.log.Warn().Str("peer", m.session.PeerID).Msg("recovery timeout elapsed, ending call")
		m.teardown(coreError(ErrCodeRecoveryTimeout, "connection did not recover in time"))
	}
}

func (m *Machine) handleAction(a *action) {
	switch a.kind {
	case actPlaceCall:
		if m.session != nil {
			m.emit(coreError(ErrCodeBusy, ErrBusy.Error()))
			return
		}
		if err := m.sender.SendCallRequest(a.peerID, a.withCamera); err != nil {
			m.emit(coreError(ErrCodeTransportUnavailable, ErrTransportUnavailable.Error()))
			return
		}
		m.newSession(a.peerID, a.peerName, a.withCamera, PhaseOutgoing)
		m.session.LocalCameraOn = a.withCamera
		m.emit(nil)

	case actAcceptCall:
		if m.session == nil || m.session.Phase != PhaseIncoming {
			m.log.Debug().Msg("accept ignored, no ringing call")
			return
		}
		if err := m.sender.SendCallAccept(m.session.PeerID, m.session.WithCamera); err != nil {
			m.emit(coreError(ErrCodeTransportUnavailable, ErrTransportUnavailable.Error()))
			return
		}
		m.session.Phase = PhaseNegotiating
		m.session.LocalCameraOn = m.session.WithCamera
		if !m.startEngine() {
			return
		}
		m.emit(nil)

	case actRejectCall:
		if m.session == nil || m.session.Phase != PhaseIncoming {
			return
		}
		if err := m.sender.SendCallReject(m.session.PeerID); err != nil {
			m.log.Warn().Err(err).Msg("failed to send reject")
		}
		m.teardown(nil)

	case actEndCall:
		if m.session == nil {
			return
		}
		peer := m.session.PeerID
		hadMedia := m.session.Phase == PhaseNegotiating || m.session.Phase == PhaseActive || m.session.Phase == PhaseRecovering
		if err := m.sender.SendCallEnd(peer); err != nil {
			m.log.Warn().Err(err).Msg("failed to send call end")
		}
		if hadMedia {
			if err := m.sender.SendClose(peer); err != nil {
				m.log.Debug().Err(err).Msg("failed to send media close")
			}
		}
		m.teardown(nil)

	case actSetMuted:
		if m.session == nil {
			return
		}
		m.session.LocalMuted = a.enabled
		m.audio.SetMuted(a.enabled)
		m.emit(nil)

	case actSetCamera:
		if m.session == nil {
			return
		}
		m.session.LocalCameraOn = a.enabled
		m.binder.SetRoleEnabled(media.RoleLocalCamera, a.enabled)
		if err := m.sender.SendCameraToggle(m.session.PeerID, a.enabled); err != nil {
			m.log.Warn().Err(err).Msg("failed to send camera toggle")
		}
		m.emit(nil)

	case actBindRenderer:
		m.binder.BindRenderer(a.role, a.renderer)

	case actUnbindRenderer:
		m.binder.UnbindRenderer(a.role)
	}
}

func (m *Machine) handleSignal(ev *SignalingEvent) {
	switch ev.Kind {
	case EventCallRequested:
		if m.session == nil {
			m.newSession(ev.From, ev.FromName, ev.WithCamera, PhaseIncoming)
			m.session.RemoteCameraOn = ev.WithCamera
			m.emit(nil)
			return
		}
		if m.session.Phase == PhaseIncoming && m.session.PeerID == ev.From {
			// At-least-once delivery; already ringing for this caller.
			return
		}
		// Busy: auto-reject so the remote caller is not left ringing.
		if err := m.sender.SendCallReject(ev.From); err != nil {
			m.log.Warn().Err(err).Str("from", ev.From).Msg("failed to auto-reject while busy")
		}

	case EventCallAccepted:
		if m.session == nil || m.session.PeerID != ev.From {
			return
		}
		if m.session.Phase == PhaseNegotiating || m.session.Phase == PhaseActive {
			// Duplicate accept; the offer is already out.
			return
		}
		if m.session.Phase != PhaseOutgoing {
			return
		}
		m.session.Phase = PhaseNegotiating
		if !m.startEngine() {
			return
		}
		offer, err := m.engine.CreateOffer(m.ctx)
		if err != nil {
			m.negotiationFailed(err)
			return
		}
		if err := m.sender.SendOffer(m.session.PeerID, offer); err != nil {
			m.teardown(coreError(ErrCodeTransportUnavailable, "could not deliver offer"))
			return
		}
		m.emit(nil)

	case EventCallRejected:
		if m.session == nil || m.session.Phase != PhaseOutgoing || m.session.PeerID != ev.From {
			return
		}
		m.teardown(coreError(ErrCodeRejected, "call rejected by peer"))

	case EventCallEnded, EventRemoteClosed:
		if m.session == nil || m.session.PeerID != ev.From {
			return
		}
		m.teardown(nil)

	case EventCallAnsweredElsewhere:
		// Another of our devices answered; drop the ring silently.
		// No reject is sent: the call is live elsewhere.
		if m.session == nil || m.session.Phase != PhaseIncoming || m.session.PeerID != ev.Caller {
			return
		}
		m.log.Info().Str("caller", ev.Caller).Str("answered_by", ev.AnsweredBy).Msg("call answered on another device")
		m.teardown(nil)

	case EventCameraToggled:
		if m.session == nil || m.session.PeerID != ev.From {
			return
		}
		switch m.session.Phase {
		case PhaseNegotiating, PhaseActive, PhaseRecovering:
			m.session.RemoteCameraOn = ev.Enabled
			m.binder.SetRoleEnabled(media.RoleRemoteCamera, ev.Enabled)
			m.emit(nil)
		}

	case EventOfferReceived:
		if m.session == nil || m.session.PeerID != ev.From {
			return
		}
		// Active covers renegotiation rounds (e.g. screen share added).
		if m.session.Phase != PhaseNegotiating && m.session.Phase != PhaseActive {
			return
		}
		answer, err := m.engine.HandleOffer(m.ctx, ev.SDP)
		if err != nil {
			m.negotiationFailed(err)
			return
		}
		if err := m.sender.SendAnswer(m.session.PeerID, answer); err != nil {
			m.teardown(coreError(ErrCodeTransportUnavailable, "could not deliver answer"))
			return
		}

	case EventAnswerReceived:
		if m.session == nil || m.session.Phase != PhaseNegotiating || m.session.PeerID != ev.From {
			return
		}
		if err := m.engine.HandleAnswer(m.ctx, ev.SDP); err != nil {
			m.negotiationFailed(err)
		}

	case EventCandidateReceived:
		if m.session == nil || m.session.PeerID != ev.From {
			return
		}
		switch m.session.Phase {
		case PhaseNegotiating, PhaseActive, PhaseRecovering:
			if err := m.engine.AddCandidate(ev.Candidate); err != nil {
				m.log.Warn().Err(err).Msg("failed to add remote candidate")
			}
		default:
			// Candidates may race ahead of offer/answer delivery; hold them
			// until negotiation begins.
			if len(m.pendingCandidates) >= m.cfg.CandidateQueueCap {
				m.pendingCandidates = m.pendingCandidates[1:]
			}
			m.pendingCandidates = append(m.pendingCandidates, ev.Candidate)
		}
	}
}

func (m *Machine) handleConnChange(connected bool) {
	if m.session == nil {
		return
	}
	if connected {
		if m.session.Phase == PhaseRecovering {
			m.stopRecoveryTimer()
			m.session.Phase = PhaseActive
			m.emit(nil)
		}
		return
	}
	if m.session.Phase == PhaseActive {
		// Tracks stay bound; only the lifecycle pauses.
		m.session.Phase = PhaseRecovering
		m.startRecoveryTimer()
		m.emit(nil)
	}
}

func (m *Machine) newSession(peerID, peerName string, withCamera bool, phase Phase) {
	m.epoch++
	m.session = &CallSession{
		ID:         uuid.NewString(),
		PeerID:     peerID,
		PeerName:   peerName,
		WithCamera: withCamera,
		Phase:      phase,
		Epoch:      m.epoch,
	}
}

// startEngine brings the media engine up for the current session and replays
// candidates that arrived before negotiation. Returns false when the session
// was torn down due to an engine failure.
func (m *Machine) startEngine() bool {
	epoch := m.session.Epoch
	cb := media.Callbacks{
		OnTrack: func(role media.TrackRole, track media.Track) {
			m.enqueue(envelope{kind: inTrack, epoch: epoch, role: role, track: track})
		},
		OnTrackRemoved: func(role media.TrackRole) {
			m.enqueue(envelope{kind: inTrackRemoved, epoch: epoch, role: role})
		},
		OnCandidate: func(cand webrtc.ICECandidateInit) {
			m.enqueue(envelope{kind: inLocalCandidate, epoch: epoch, cand: cand})
		},
		OnConnected: func() {
			m.enqueue(envelope{kind: inEngineConnected, epoch: epoch})
		},
		OnFailed: func(err error) {
			m.enqueue(envelope{kind: inEngineFailed, epoch: epoch, err: err})
		},
	}
	if err := m.engine.Start(m.ctx, m.session.WithCamera, cb); err != nil {
		m.negotiationFailed(err)
		return false
	}
	for _, cand := range m.pendingCandidates {
		if err := m.engine.AddCandidate(cand); err != nil {
			m.log.Warn().Err(err).Msg("failed to replay queued candidate")
		}
	}
	m.pendingCandidates = nil
	return true
}

func (m *Machine) toActive() {
	m.session.Phase = PhaseActive
	if m.session.StartedAt.IsZero() {
		m.session.StartedAt = time.Now()
	}
	m.audio.SetInCall(true)
	m.emit(nil)
}

func (m *Machine) negotiationFailed(err error) {
	m.log.Error().Err(err).Str("peer", m.session.PeerID).Msg("negotiation failed")
	if sendErr := m.sender.SendCallEnd(m.session.PeerID); sendErr != nil {
		m.log.Debug().Err(sendErr).Msg("failed to send call end after negotiation failure")
	}
	m.teardown(coreError(ErrCodeNegotiationFailed, err.Error()))
}

// teardown releases tracks, closes the engine and returns to idle. The epoch
// bump short-circuits any late entries from the now-dead session.
func (m *Machine) teardown(cerr *CoreError) {
	m.stopRecoveryTimer()
	m.binder.ReleaseAll()
	if err := m.engine.Close(); err != nil {
		m.log.Warn().Err(err).Msg("engine close failed")
	}
	m.audio.SetInCall(false)
	m.pendingCandidates = nil
	m.epoch++
	m.session = nil
	m.emit(cerr)
}

func (m *Machine) startRecoveryTimer() {
	m.stopRecoveryTimer()
	epoch := m.session.Epoch
	m.recoveryTimer = time.AfterFunc(m.cfg.RecoveryTimeout, func() {
		m.enqueue(envelope{kind: inRecoveryTimeout, epoch: epoch})
	})
}

func (m *Machine) stopRecoveryTimer() {
	if m.recoveryTimer != nil {
		m.recoveryTimer.Stop()
		m.recoveryTimer = nil
	}
}

func (m *Machine) sessionAlive(epoch uint64) bool {
	return m.session != nil && m.session.Epoch == epoch
}

func (m *Machine) emit(cerr *CoreError) {
	u := Update{Err: cerr}
	if m.session != nil {
		u.Session = *m.session
	} else {
		u.Session = CallSession{Phase: PhaseIdle}
	}
	select {
	case m.updates <- u:
	default:
		// Drop if slow consumer.
	}
}
