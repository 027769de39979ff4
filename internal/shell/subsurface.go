package shell

import (
	"github.com/waycomp/compositor/internal/atmosphere"
	"github.com/waycomp/compositor/internal/geom"
)

// NewSubsurface promotes surf to the subsurface role under parent and adds
// it to the atmosphere's subsurface tree (§4.4, §4.6). New subsurfaces
// default to synchronized mode per wl_subcompositor.get_subsurface.
func NewSubsurface(surf *Surface, parent *Surface, a *atmosphere.Atmosphere) *SubsurfaceState {
	state := &SubsurfaceState{Parent: parent.ID, Sync: true}
	surf.SetRole(Role{Kind: RoleSubsurface, Subsurface: state})
	parent.AddChild(surf)
	a.AddNewTopSubsurf(parent.ID, surf.ID)
	a.SetSubsurfaceSync(surf.ID, true)
	return state
}

// SetPosition stages a new position for the next ancestor commit
// (wl_subsurface.set_position is double-buffered; §4.6).
func (s *SubsurfaceState) SetPosition(pos geom.Vec2) {
	s.PendingPos = pos
}

// SetSync switches between synchronized and desynchronized mode
// (wl_subsurface.set_sync / set_desync).
func (s *SubsurfaceState) SetSync(sync bool, windowID atmosphere.WindowID, a *atmosphere.Atmosphere) {
	s.Sync = sync
	a.SetSubsurfaceSync(windowID, sync)
}
