package audio

// Router is the audio-route collaborator (speaker vs earpiece). The call
// core notifies it of mute and in-call state but does not otherwise
// control it.
type Router interface {
	SetMuted(muted bool)
	SetInCall(active bool)
}

// NopRouter satisfies Router for platforms without an audio route, and for
// tests.
type NopRouter struct{}

func (NopRouter) SetMuted(bool)  {}
func (NopRouter) SetInCall(bool) {}
