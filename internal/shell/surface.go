package shell

import (
	"sync"

	"github.com/waycomp/compositor/internal/atmosphere"
	"github.com/waycomp/compositor/internal/geom"
)

// PendingBuffer carries an uncommitted wl_surface.attach + damage + frame
// callback set, staged until the next wl_surface.commit (§4.6).
type PendingBuffer struct {
	Mem            *atmosphere.MemContents
	Dmabuf         *atmosphere.DmabufContents
	Attached       bool
	BufferOffset   geom.Vec2
	SurfaceDamage  []geom.Rect
	BufferDamage   []geom.Rect
	Scale          int
}

// Surface is the double-buffered state for one wl_surface (§4.6). A Surface
// with Role.Kind == RoleNone behaves as a plain subsurface-less content
// holder; shell roles are layered in via SetRole.
type Surface struct {
	mu sync.Mutex

	ID     atmosphere.WindowID
	Client atmosphere.ClientID

	Role Role

	pending PendingBuffer
	hasCommitted bool

	// children are the subsurfaces parented directly to this surface, kept
	// for the recursive commit walk (§4.6).
	children []*Surface
}

// NewSurface wraps a freshly minted window id as a bare surface.
func NewSurface(id atmosphere.WindowID, client atmosphere.ClientID) *Surface {
	return &Surface{ID: id, Client: client}
}

// SetRole assigns the shell role. Per xdg-shell, a surface may only acquire
// a role once; callers are responsible for rejecting a second SetRole at
// the protocol layer (that's a client protocol error, not a Go error here).
func (s *Surface) SetRole(r Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Role = r
}

// Attach stages a new buffer for the next commit.
func (s *Surface) Attach(mem *atmosphere.MemContents, dmabuf *atmosphere.DmabufContents, offset geom.Vec2) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending.Mem = mem
	s.pending.Dmabuf = dmabuf
	s.pending.Attached = true
	s.pending.BufferOffset = offset
}

// DamageSurface stages surface-local damage for the next commit.
func (s *Surface) DamageSurface(r geom.Rect) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending.SurfaceDamage = append(s.pending.SurfaceDamage, r)
}

// DamageBuffer stages buffer-local damage for the next commit.
func (s *Surface) DamageBuffer(r geom.Rect) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending.BufferDamage = append(s.pending.BufferDamage, r)
}

// AddChild registers a subsurface parented to s, for the recursive commit
// walk (§4.6, add_new_top_subsurf wiring happens at the protocol layer).
func (s *Surface) AddChild(child *Surface) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.children = append(s.children, child)
}

// RemoveChild unregisters a subsurface, e.g. on destroy.
func (s *Surface) RemoveChild(child *Surface) {
	s.mu.Lock()
	defer s.mu.Unlock()
	filtered := s.children[:0]
	for _, c := range s.children {
		if c != child {
			filtered = append(filtered, c)
		}
	}
	s.children = filtered
}

// Commit applies s's pending state to atmosphere a and, for synchronized
// subsurfaces, recurses into children (§4.6). parentCommitInProgress is set
// when the recursion originates from an ancestor's own commit: a
// synchronized subsurface whose own wl_surface.commit fires independently
// (not as part of an ancestor commit) must NOT apply its cached state yet —
// it stays pending until the ancestor commits, per wl_subsurface's sync
// semantics (§4.6 invariant "a synchronized subsurface's state is only
// visible to the renderer when its ancestor chain commits").
func (s *Surface) Commit(a *atmosphere.Atmosphere, parentCommitInProgress bool) {
	s.mu.Lock()

	isSync := true
	if s.Role.Kind == RoleSubsurface {
		isSync = s.Role.Subsurface.Sync
	}

	deferred := isSync && !parentCommitInProgress && s.Role.Kind == RoleSubsurface
	if deferred {
		// Cache pending state as "current-pending": leave it staged. The
		// ancestor's eventual commit will call us again with
		// parentCommitInProgress == true and we'll apply it then.
		s.mu.Unlock()
		return
	}

	s.applyPendingLocked(a)
	children := append([]*Surface(nil), s.children...)
	s.mu.Unlock()

	childInProgress := true
	for _, child := range children {
		child.Commit(a, childInProgress)
	}
}

func (s *Surface) applyPendingLocked(a *atmosphere.Atmosphere) {
	switch s.Role.Kind {
	case RoleSubsurface:
		a.SetSurfacePos(s.ID, s.Role.Subsurface.PendingPos)
	case RoleToplevel:
		if size, ok := s.Role.Toplevel.ResolveCommitSize(); ok {
			a.SetWindowSize(s.ID, size)
		}
	case RolePopup:
		if size, ok := s.Role.Popup.ResolveCommitSize(); ok {
			a.SetWindowSize(s.ID, size)
		}
	}

	if s.pending.Attached {
		switch {
		case s.pending.Mem != nil:
			a.AddWmTask(atmosphere.WmTask{
				Kind:   atmosphere.TaskUpdateContentsFromMem,
				Window: s.ID,
				Mem:    s.pending.Mem,
			})
			a.SetSurfaceSize(s.ID, geom.Vec2{X: float32(s.pending.Mem.Width), Y: float32(s.pending.Mem.Height)})
		case s.pending.Dmabuf != nil:
			a.AddWmTask(atmosphere.WmTask{
				Kind:   atmosphere.TaskUpdateContentsFromDmabuf,
				Window: s.ID,
				Dmabuf: s.pending.Dmabuf,
			})
			a.SetSurfaceSize(s.ID, geom.Vec2{X: float32(s.pending.Dmabuf.Width), Y: float32(s.pending.Dmabuf.Height)})
		}
		s.hasCommitted = true
	}

	for _, r := range s.pending.SurfaceDamage {
		a.AddSurfaceDamage(s.ID, r)
	}
	for _, r := range s.pending.BufferDamage {
		a.AddBufferDamage(s.ID, r)
	}

	s.pending = PendingBuffer{}
}

// HasCommitted reports whether a buffer has ever been attached and
// committed (xdg_surface requires an initial commit with no buffer, then a
// second commit with content; §4.5 "map on first buffer commit").
func (s *Surface) HasCommitted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasCommitted
}

// RoleKind reports the surface's current shell role.
func (s *Surface) RoleKind() RoleKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Role.Kind
}
