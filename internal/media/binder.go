package media

import (
	"github.com/rs/zerolog"
)

// binding pairs a track with a renderer for one role. The attached flag is
// authoritative; a renderer that has been released is never touched again.
type binding struct {
	track    Track
	renderer Renderer
	attached bool
	released bool
	disabled bool
}

// Binder owns the attach/detach lifecycle between track roles and renderer
// surfaces. It guarantees at most one attached renderer per role and an
// idempotent release on every teardown path.
//
// Binder is not safe for concurrent use: all mutations must be routed
// through the call state machine's queue so detach-then-release can never
// race a late attach.
type Binder struct {
	log      *zerolog.Logger
	bindings map[TrackRole]*binding
}

// NewBinder constructs a binder with no bindings.
func NewBinder(logger *zerolog.Logger) *Binder {
	return &Binder{
		log:      logger,
		bindings: make(map[TrackRole]*binding),
	}
}

func (b *Binder) binding(role TrackRole) *binding {
	bd, ok := b.bindings[role]
	if !ok {
		bd = &binding{}
		b.bindings[role] = bd
	}
	return bd
}

// BindRenderer associates a renderer with a role. If the role's track already
// exists the renderer is attached immediately, otherwise attachment happens
// lazily when the track arrives. A previously bound renderer for the role is
// detached and released first.
func (b *Binder) BindRenderer(role TrackRole, r Renderer) {
	bd := b.binding(role)
	if bd.renderer == r {
		if bd.released {
			// A released handle is dead for good; only a fresh handle may
			// start a new binding.
			b.log.Warn().Str("role", string(role)).Msg("ignoring bind of released renderer")
			return
		}
		b.attach(role, bd)
		return
	}
	if bd.renderer != nil {
		b.detach(role, bd)
		b.release(role, bd)
	}
	bd.renderer = r
	bd.attached = false
	bd.released = false
	b.attach(role, bd)
}

// UnbindRenderer detaches and releases the role's renderer, in that order.
// Safe to call repeatedly and after session end.
func (b *Binder) UnbindRenderer(role TrackRole) {
	bd, ok := b.bindings[role]
	if !ok {
		return
	}
	b.detach(role, bd)
	b.release(role, bd)
}

// TrackArrived records a track for the role, detaching any previous track
// first so two attachments are never live at once.
func (b *Binder) TrackArrived(role TrackRole, track Track) {
	bd := b.binding(role)
	if bd.track != nil {
		b.detach(role, bd)
	}
	bd.track = track
	b.attach(role, bd)
}

// TrackRemoved detaches the role's renderer and forgets the track. The
// renderer stays bound so a replacement track re-attaches automatically.
func (b *Binder) TrackRemoved(role TrackRole) {
	bd, ok := b.bindings[role]
	if !ok {
		return
	}
	b.detach(role, bd)
	bd.track = nil
}

// SetRoleEnabled toggles a role without releasing its renderer, e.g. when the
// remote camera is switched off and back on within the same session.
func (b *Binder) SetRoleEnabled(role TrackRole, enabled bool) {
	bd := b.binding(role)
	bd.disabled = !enabled
	if enabled {
		b.attach(role, bd)
	} else {
		b.detach(role, bd)
	}
}

// ReleaseAll tears down every binding. Called on session end; tolerates
// renderers that were already unbound by UI teardown.
func (b *Binder) ReleaseAll() {
	for role, bd := range b.bindings {
		b.detach(role, bd)
		b.release(role, bd)
		bd.track = nil
		bd.disabled = false
	}
}

// Attached reports whether the role currently has a live attachment.
func (b *Binder) Attached(role TrackRole) bool {
	bd, ok := b.bindings[role]
	return ok && bd.attached
}

func (b *Binder) attach(role TrackRole, bd *binding) {
	if bd.attached || bd.released || bd.disabled || bd.track == nil || bd.renderer == nil {
		return
	}
	if err := bd.renderer.Attach(bd.track); err != nil {
		// Leave the role unbound; a later UI lifecycle event can retry.
		b.log.Warn().Err(err).Str("role", string(role)).Msg("renderer attach failed")
		return
	}
	bd.attached = true
	b.log.Debug().Str("role", string(role)).Str("track_id", bd.track.ID()).Msg("renderer attached")
}

func (b *Binder) detach(role TrackRole, bd *binding) {
	if !bd.attached {
		return
	}
	if err := bd.renderer.Detach(bd.track); err != nil {
		b.log.Warn().Err(err).Str("role", string(role)).Msg("renderer detach failed")
	}
	bd.attached = false
}

func (b *Binder) release(role TrackRole, bd *binding) {
	if bd.renderer == nil || bd.released {
		return
	}
	bd.renderer.Release()
	bd.released = true
	b.log.Debug().Str("role", string(role)).Msg("renderer released")
}
