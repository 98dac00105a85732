package signaling

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-client/internal/auth"
	"github.com/vovakirdan/wirechat-client/internal/core"
	"github.com/vovakirdan/wirechat-client/internal/proto"
)

// Status describes the transport connection.
type Status int

const (
	StatusDisconnected Status = iota
	StatusConnected
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusConnected:
		return "connected"
	case StatusError:
		return "error"
	default:
		return "disconnected"
	}
}

// ConnState is one connection-state transition. The latest value is replayed
// to new subscribers so a late observer learns the current state immediately.
type ConnState struct {
	Status Status
	Err    string
}

// Config holds transport settings.
type Config struct {
	URL               string
	Token             string
	DialTimeout       time.Duration
	SendTimeout       time.Duration
	ReconnectMinDelay time.Duration
	ReconnectMaxDelay time.Duration
}

// Transport is the persistent, authenticated signaling channel. It dials
// out, decodes envelopes into core events, and reconnects with capped
// exponential backoff. Delivery is at-least-once and ordering across a
// reconnect is not guaranteed; consumers must tolerate both.
type Transport struct {
	cfg     Config
	log     *zerolog.Logger
	handler func(core.SignalingEvent)

	mu      sync.Mutex
	conn    *websocket.Conn
	running bool
	cancel  context.CancelFunc
	last    ConnState
	subs    []chan ConnState
}

// NewTransport builds a transport; handler receives every decoded call
// event from its own goroutine and must not block.
func NewTransport(cfg Config, logger *zerolog.Logger, handler func(core.SignalingEvent)) *Transport {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 10 * time.Second
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 5 * time.Second
	}
	if cfg.ReconnectMinDelay <= 0 {
		cfg.ReconnectMinDelay = 500 * time.Millisecond
	}
	if cfg.ReconnectMaxDelay <= 0 {
		cfg.ReconnectMaxDelay = 15 * time.Second
	}
	return &Transport{
		cfg:     cfg,
		log:     logger,
		handler: handler,
		last:    ConnState{Status: StatusDisconnected},
	}
}

// Connect starts the dial/read/reconnect loop. Calling it again while
// running is a no-op, so repeated lifecycle hooks cannot spawn duplicate
// sessions.
func (t *Transport) Connect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return nil
	}

	if t.cfg.Token != "" {
		if _, err := auth.Inspect(t.cfg.Token, time.Now()); err != nil {
			return fmt.Errorf("auth token: %w", err)
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.running = true
	go t.run(runCtx)
	return nil
}

// Close stops the loop and drops the connection.
func (t *Transport) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return
	}
	t.running = false
	if t.cancel != nil {
		t.cancel()
	}
	if t.conn != nil {
		_ = t.conn.Close(websocket.StatusNormalClosure, "closing")
		t.conn = nil
	}
}

// SubscribeConn returns a channel of connection-state transitions, primed
// with the current state.
func (t *Transport) SubscribeConn() <-chan ConnState {
	t.mu.Lock()
	defer t.mu.Unlock()
	ch := make(chan ConnState, 8)
	ch <- t.last
	t.subs = append(t.subs, ch)
	return ch
}

func (t *Transport) run(ctx context.Context) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = t.cfg.ReconnectMinDelay
	bo.MaxInterval = t.cfg.ReconnectMaxDelay
	bo.MaxElapsedTime = 0

	for {
		if ctx.Err() != nil {
			t.publish(ConnState{Status: StatusDisconnected})
			return
		}

		conn, err := t.dial(ctx)
		if err != nil {
			t.log.Warn().Err(err).Str("url", t.cfg.URL).Msg("signaling dial failed")
			t.publish(ConnState{Status: StatusError, Err: err.Error()})
			if !t.sleep(ctx, bo.NextBackOff()) {
				return
			}
			continue
		}

		bo.Reset()
		t.setConn(conn)
		t.publish(ConnState{Status: StatusConnected})
		t.log.Info().Str("url", t.cfg.URL).Msg("signaling connected")

		readErr := t.readLoop(ctx, conn)
		t.setConn(nil)
		_ = conn.Close(websocket.StatusNormalClosure, "closing")

		if ctx.Err() != nil {
			t.publish(ConnState{Status: StatusDisconnected})
			return
		}

		t.log.Warn().Err(readErr).Msg("signaling connection lost")
		t.publish(ConnState{Status: StatusDisconnected})
		if !t.sleep(ctx, bo.NextBackOff()) {
			return
		}
	}
}

func (t *Transport) dial(ctx context.Context) (*websocket.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, t.cfg.DialTimeout)
	defer cancel()

	opts := &websocket.DialOptions{}
	if t.cfg.Token != "" {
		opts.HTTPHeader = http.Header{"Authorization": []string{"Bearer " + t.cfg.Token}}
	}
	conn, _, err := websocket.Dial(dialCtx, t.cfg.URL, opts)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func (t *Transport) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		var env proto.Envelope
		if err := wsjson.Read(ctx, conn, &env); err != nil {
			return err
		}
		ev, ok, err := decodeEvent(env)
		if err != nil {
			t.log.Warn().Err(err).Str("type", env.Type).Msg("malformed signaling payload")
			continue
		}
		if !ok {
			// Non-call traffic on the shared channel.
			continue
		}
		if t.handler != nil {
			t.handler(ev)
		}
	}
}

func (t *Transport) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		t.publish(ConnState{Status: StatusDisconnected})
		return false
	case <-time.After(d):
		return true
	}
}

func (t *Transport) setConn(conn *websocket.Conn) {
	t.mu.Lock()
	t.conn = conn
	t.mu.Unlock()
}

func (t *Transport) publish(st ConnState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last = st
	for _, ch := range t.subs {
		select {
		case ch <- st:
		default:
			// Drop if slow consumer.
		}
	}
}

// send is fire-and-forget: there is no per-call acknowledgment, and a send
// while disconnected fails immediately instead of queueing.
func (t *Transport) send(msgType string, payload any) error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return core.ErrTransportUnavailable
	}

	env, err := proto.NewEnvelope(msgType, payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", msgType, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), t.cfg.SendTimeout)
	defer cancel()
	if err := wsjson.Write(ctx, conn, env); err != nil {
		return fmt.Errorf("send %s: %w", msgType, err)
	}
	return nil
}

// Transport implements core.Sender.

func (t *Transport) SendCallRequest(to string, withCamera bool) error {
	return t.send(proto.TypeCallRequest, proto.CallRequest{To: to, WithCamera: withCamera})
}

func (t *Transport) SendCallAccept(to string, withCamera bool) error {
	return t.send(proto.TypeCallAccept, proto.CallAccept{To: to, WithCamera: withCamera})
}

func (t *Transport) SendCallReject(to string) error {
	return t.send(proto.TypeCallReject, proto.CallReject{To: to})
}

func (t *Transport) SendCallEnd(to string) error {
	return t.send(proto.TypeCallEnd, proto.CallEnd{To: to})
}

func (t *Transport) SendCameraToggle(to string, enabled bool) error {
	return t.send(proto.TypeCameraToggle, proto.CameraToggle{To: to, Enabled: enabled})
}

func (t *Transport) SendOffer(to string, sdp webrtc.SessionDescription) error {
	return t.send(proto.TypeOffer, proto.Offer{To: to, Offer: toWireSDP(sdp)})
}

func (t *Transport) SendAnswer(to string, sdp webrtc.SessionDescription) error {
	return t.send(proto.TypeAnswer, proto.Answer{To: to, Answer: toWireSDP(sdp)})
}

func (t *Transport) SendCandidate(to string, cand webrtc.ICECandidateInit) error {
	return t.send(proto.TypeICECandidate, proto.Candidate{To: to, Candidate: toWireCandidate(cand)})
}

func (t *Transport) SendClose(to string) error {
	return t.send(proto.TypeClose, proto.Close{To: to})
}
