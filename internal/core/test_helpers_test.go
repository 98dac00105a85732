package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-client/internal/media"
)

func mustUpdate(t *testing.T, ch <-chan Update) Update {
	t.Helper()

	select {
	case u := <-ch:
		return u
	case <-time.After(2 * time.Second):
		t.Fatalf("expected update not received")
		return Update{}
	}
}

func mustPhase(t *testing.T, ch <-chan Update, phase Phase) Update {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case u := <-ch:
			if u.Session.Phase == phase {
				return u
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected update with phase %v not received", phase)
	return Update{}
}

func expectNoUpdate(t *testing.T, ch <-chan Update, wait time.Duration) {
	t.Helper()

	select {
	case u := <-ch:
		t.Fatalf("unexpected update: phase=%v err=%v", u.Session.Phase, u.Err)
	case <-time.After(wait):
	}
}

type sentMsg struct {
	kind       string
	to         string
	withCamera bool
	enabled    bool
	sdpType    string
	candidate  string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentMsg
	errs map[string]error
}

func (s *fakeSender) failOn(kind string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.errs == nil {
		s.errs = make(map[string]error)
	}
	s.errs[kind] = err
}

func (s *fakeSender) record(msg sentMsg) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.errs[msg.kind]; err != nil {
		return err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func (s *fakeSender) all(kind string) []sentMsg {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []sentMsg
	for _, m := range s.sent {
		if m.kind == kind {
			out = append(out, m)
		}
	}
	return out
}

// waitFor polls until at least one message of the kind was sent, returning
// the latest. For paths where the machine sends without emitting an update.
func (s *fakeSender) waitFor(t *testing.T, kind string) sentMsg {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if msgs := s.all(kind); len(msgs) > 0 {
			return msgs[len(msgs)-1]
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected %s to be sent", kind)
	return sentMsg{}
}

func (s *fakeSender) last(t *testing.T, kind string) sentMsg {
	t.Helper()
	msgs := s.all(kind)
	if len(msgs) == 0 {
		t.Fatalf("expected %s to be sent", kind)
	}
	return msgs[len(msgs)-1]
}

func (s *fakeSender) SendCallRequest(to string, withCamera bool) error {
	return s.record(sentMsg{kind: "call:request", to: to, withCamera: withCamera})
}

func (s *fakeSender) SendCallAccept(to string, withCamera bool) error {
	return s.record(sentMsg{kind: "call:accept", to: to, withCamera: withCamera})
}

func (s *fakeSender) SendCallReject(to string) error {
	return s.record(sentMsg{kind: "call:reject", to: to})
}

func (s *fakeSender) SendCallEnd(to string) error {
	return s.record(sentMsg{kind: "call:end", to: to})
}

func (s *fakeSender) SendCameraToggle(to string, enabled bool) error {
	return s.record(sentMsg{kind: "call:toggle-camera", to: to, enabled: enabled})
}

func (s *fakeSender) SendOffer(to string, sdp webrtc.SessionDescription) error {
	return s.record(sentMsg{kind: "webrtc:offer", to: to, sdpType: sdp.Type.String()})
}

func (s *fakeSender) SendAnswer(to string, sdp webrtc.SessionDescription) error {
	return s.record(sentMsg{kind: "webrtc:answer", to: to, sdpType: sdp.Type.String()})
}

func (s *fakeSender) SendCandidate(to string, cand webrtc.ICECandidateInit) error {
	return s.record(sentMsg{kind: "webrtc:ice-candidate", to: to, candidate: cand.Candidate})
}

func (s *fakeSender) SendClose(to string) error {
	return s.record(sentMsg{kind: "webrtc:close", to: to})
}

type fakeEngine struct {
	mu         sync.Mutex
	started    int
	withCamera bool
	cb         media.Callbacks
	candidates []string
	offers     []string
	answers    []string
	closed     int

	startErr       error
	createOfferErr error
	handleOfferErr error
	answerErr      error
}

func (e *fakeEngine) Start(_ context.Context, withCamera bool, cb media.Callbacks) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.startErr != nil {
		return e.startErr
	}
	e.started++
	e.withCamera = withCamera
	e.cb = cb
	return nil
}

func (e *fakeEngine) CreateOffer(context.Context) (webrtc.SessionDescription, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.createOfferErr != nil {
		return webrtc.SessionDescription{}, e.createOfferErr
	}
	return webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "v=0 local-offer"}, nil
}

func (e *fakeEngine) HandleOffer(_ context.Context, offer webrtc.SessionDescription) (webrtc.SessionDescription, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.handleOfferErr != nil {
		return webrtc.SessionDescription{}, e.handleOfferErr
	}
	e.offers = append(e.offers, offer.SDP)
	return webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: "v=0 local-answer"}, nil
}

func (e *fakeEngine) HandleAnswer(_ context.Context, answer webrtc.SessionDescription) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.answerErr != nil {
		return e.answerErr
	}
	e.answers = append(e.answers, answer.SDP)
	return nil
}

func (e *fakeEngine) AddCandidate(cand webrtc.ICECandidateInit) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.candidates = append(e.candidates, cand.Candidate)
	return nil
}

func (e *fakeEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed++
	return nil
}

func (e *fakeEngine) callbacks() media.Callbacks {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cb
}

func (e *fakeEngine) addedCandidates() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.candidates...)
}

func (e *fakeEngine) startCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.started
}

func (e *fakeEngine) closeCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

type fakeRouter struct {
	mu     sync.Mutex
	muted  bool
	inCall bool
}

func (r *fakeRouter) SetMuted(muted bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.muted = muted
}

func (r *fakeRouter) SetInCall(inCall bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inCall = inCall
}

func (r *fakeRouter) state() (muted, inCall bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.muted, r.inCall
}

type fixture struct {
	m       *Machine
	sender  *fakeSender
	engine  *fakeEngine
	binder  *media.Binder
	router  *fakeRouter
	updates <-chan Update
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()

	nop := zerolog.Nop()
	sender := &fakeSender{}
	engine := &fakeEngine{}
	binder := media.NewBinder(&nop)
	router := &fakeRouter{}
	m := NewMachine(cfg, &nop, sender, engine, binder, router)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go m.Run(ctx)

	return &fixture{
		m:       m,
		sender:  sender,
		engine:  engine,
		binder:  binder,
		router:  router,
		updates: m.Updates(),
	}
}

// ringing delivers an inbound call request and waits for the incoming phase.
func (f *fixture) ringing(t *testing.T, from string) {
	t.Helper()
	f.m.Deliver(SignalingEvent{Kind: EventCallRequested, From: from, FromName: from, WithCamera: true})
	mustPhase(t, f.updates, PhaseIncoming)
}

// dialing places an outgoing call and waits for the outgoing phase.
func (f *fixture) dialing(t *testing.T, to string, withCamera bool) {
	t.Helper()
	f.m.PlaceCall(to, to, withCamera)
	mustPhase(t, f.updates, PhaseOutgoing)
}

// active walks an outgoing call all the way to the active phase.
func (f *fixture) active(t *testing.T, peer string) {
	t.Helper()
	f.dialing(t, peer, true)
	f.m.Deliver(SignalingEvent{Kind: EventCallAccepted, From: peer})
	mustPhase(t, f.updates, PhaseNegotiating)
	f.engine.callbacks().OnConnected()
	mustPhase(t, f.updates, PhaseActive)
}
