package shell

import (
	"testing"

	"github.com/waycomp/compositor/internal/atmosphere"
	"github.com/waycomp/compositor/internal/geom"
)

func newTestAtmosphere(t *testing.T) *atmosphere.Atmosphere {
	t.Helper()
	protocolSide, _ := atmosphere.NewLinkedPair(atmosphere.NewLink())
	return protocolSide
}

func TestSyncSubsurfaceCommitIsDeferredUntilParentCommits(t *testing.T) {
	a := newTestAtmosphere(t)
	c := a.MintClientID()

	parentID := a.MintWindowID(c)
	parent := NewSurface(parentID, c)

	childID := a.MintWindowID(c)
	child := NewSurface(childID, c)
	state := NewSubsurface(child, parent, a)

	state.SetPosition(geom.Vec2{X: 5, Y: 7})
	child.Commit(a, false) // independent commit: must not apply yet

	pos := a.GetSurfacePos(childID)
	if pos != (geom.Vec2{}) {
		t.Errorf("SurfacePos after deferred sync commit = %v, want zero (not yet applied)", pos)
	}

	parent.Commit(a, false) // ancestor commit cascades into child
	pos = a.GetSurfacePos(childID)
	if pos != (geom.Vec2{X: 5, Y: 7}) {
		t.Errorf("SurfacePos after ancestor commit = %v, want (5, 7)", pos)
	}
}

func TestDesyncSubsurfaceCommitAppliesImmediately(t *testing.T) {
	a := newTestAtmosphere(t)
	c := a.MintClientID()

	parentID := a.MintWindowID(c)
	parent := NewSurface(parentID, c)

	childID := a.MintWindowID(c)
	child := NewSurface(childID, c)
	state := NewSubsurface(child, parent, a)
	state.SetSync(false, childID, a)

	state.SetPosition(geom.Vec2{X: 3, Y: 4})
	child.Commit(a, false)

	pos := a.GetSurfacePos(childID)
	if pos != (geom.Vec2{X: 3, Y: 4}) {
		t.Errorf("SurfacePos after desync commit = %v, want (3, 4)", pos)
	}
}

func TestAttachStagesTaskAndSizeOnCommit(t *testing.T) {
	a := newTestAtmosphere(t)
	c := a.MintClientID()
	id := a.MintWindowID(c)
	surf := NewSurface(id, c)

	surf.Attach(&atmosphere.MemContents{Pixels: make([]byte, 4), Width: 1, Height: 1}, nil, geom.Vec2{})
	surf.Commit(a, false)

	size := a.GetSurfaceSize(id)
	if size != (geom.Vec2{X: 1, Y: 1}) {
		t.Errorf("SurfaceSize after commit with attached buffer = %v, want (1, 1)", size)
	}
	if !surf.HasCommitted() {
		t.Error("HasCommitted() = false after committing an attached buffer")
	}
}

func TestToplevelCommitAppliesSizeFromAckedConfigure(t *testing.T) {
	a := newTestAtmosphere(t)
	c := a.MintClientID()
	id := a.MintWindowID(c)
	surf := NewSurface(id, c)
	tl := NewToplevel(surf, a)

	tl.Configure(1, geom.Vec2{X: 200, Y: 100})
	tl.Configure(2, geom.Vec2{X: 300, Y: 150})
	tl.Ack(1)
	surf.Commit(a, false)

	if got := a.GetWindowSize(id); got != (geom.Vec2{X: 200, Y: 100}) {
		t.Errorf("WindowSize after committing ack(1) = %v, want (200, 100)", got)
	}

	// Acking the newer serial and committing again must apply its size, and
	// must drop the now-stale serial-1 config from the queue.
	tl.Ack(2)
	surf.Commit(a, false)
	if got := a.GetWindowSize(id); got != (geom.Vec2{X: 300, Y: 150}) {
		t.Errorf("WindowSize after committing ack(2) = %v, want (300, 150)", got)
	}
}

func TestSetWindowGeometryOverridesAckedConfigureSize(t *testing.T) {
	a := newTestAtmosphere(t)
	c := a.MintClientID()
	id := a.MintWindowID(c)
	surf := NewSurface(id, c)
	tl := NewToplevel(surf, a)

	tl.Configure(1, geom.Vec2{X: 200, Y: 100})
	tl.Ack(1)
	tl.SetGeometryOverride(geom.Vec2{X: 180, Y: 90})
	surf.Commit(a, false)

	if got := a.GetWindowSize(id); got != (geom.Vec2{X: 180, Y: 90}) {
		t.Errorf("WindowSize after commit with geometry override = %v, want (180, 90)", got)
	}
}

func TestToplevelAckRejectsSerialBeyondPending(t *testing.T) {
	a := newTestAtmosphere(t)
	c := a.MintClientID()
	id := a.MintWindowID(c)
	surf := NewSurface(id, c)
	tl := NewToplevel(surf, a)

	tl.Configure(5, geom.Vec2{X: 100, Y: 100})
	if tl.Ack(6) {
		t.Error("Ack(6) with PendingSerial 5 = true, want false")
	}
	if !tl.Ack(5) {
		t.Error("Ack(5) with PendingSerial 5 = false, want true")
	}
}
