package media

// Renderer is an opaque surface capable of displaying a video track.
// The UI layer supplies handles; only the Binder calls Attach/Detach, and
// Release is called exactly once at the end of the handle's life.
type Renderer interface {
	Attach(track Track) error
	Detach(track Track) error
	Release()
}
