package core

import "errors"

// Error codes for domain errors surfaced to the UI.
const (
	// ErrCodeBusy rejects a new call while one is active. Never sent to the
	// signaling layer.
	ErrCodeBusy = "busy"
	// ErrCodeTransportUnavailable means a send was attempted while
	// disconnected; the action is dropped, not queued.
	ErrCodeTransportUnavailable = "transport_unavailable"
	// ErrCodeNegotiationFailed means the media engine rejected an
	// offer/answer; the session is terminated.
	ErrCodeNegotiationFailed = "negotiation_failed"
	// ErrCodeRendererAttachFailed marks a surface error during attach; the
	// role stays unbound so a later UI lifecycle event can retry.
	ErrCodeRendererAttachFailed = "renderer_attach_failed"
	// ErrCodeRecoveryTimeout ends a call whose transport never came back.
	ErrCodeRecoveryTimeout = "recovery_timeout"
	// ErrCodeRejected reports the remote side declining an outgoing call.
	ErrCodeRejected = "rejected"
)

var (
	ErrBusy                 = errors.New("another call is already in progress")
	ErrTransportUnavailable = errors.New("signaling transport unavailable")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}
