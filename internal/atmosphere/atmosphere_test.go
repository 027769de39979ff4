package atmosphere

import (
	"testing"

	"github.com/waycomp/compositor/internal/geom"
)

func newTestPair(t *testing.T) (protocolSide, rendererSide *Atmosphere) {
	t.Helper()
	return NewLinkedPair(NewLink())
}

func TestMintWindowIDIsOwnedAndInUse(t *testing.T) {
	a, _ := newTestPair(t)
	c := a.MintClientID()
	w := a.MintWindowID(c)

	props, ok := a.Window(w)
	if !ok {
		t.Fatal("Window(w) ok = false immediately after mint, want true")
	}
	if !props.InUse {
		t.Error("InUse = false immediately after mint, want true")
	}
	if props.Owner != c {
		t.Errorf("Owner = %d, want %d", props.Owner, c)
	}
}

func TestWindowsForClientReflectsMintAndFree(t *testing.T) {
	a, _ := newTestPair(t)
	c := a.MintClientID()
	w1 := a.MintWindowID(c)
	w2 := a.MintWindowID(c)

	windows := a.WindowsForClient(c)
	if len(windows) != 2 {
		t.Fatalf("WindowsForClient(c) = %v, want 2 windows", windows)
	}

	a.FreeWindowID(c, w1)
	windows = a.WindowsForClient(c)
	if len(windows) != 1 || windows[0] != w2 {
		t.Errorf("WindowsForClient(c) after free = %v, want [%d]", windows, w2)
	}
}

func TestFreeWindowIDReusesSmallestID(t *testing.T) {
	a, _ := newTestPair(t)
	c := a.MintClientID()
	w0 := a.MintWindowID(c)
	a.MintWindowID(c)

	a.FreeWindowID(c, w0)
	reused := a.MintWindowID(c)
	if reused != w0 {
		t.Errorf("MintWindowID after free(%d) = %d, want %d", w0, reused, w0)
	}
}

func TestFreeClientIDDestroysAllWindows(t *testing.T) {
	a, _ := newTestPair(t)
	c := a.MintClientID()
	w := a.MintWindowID(c)
	a.FreeClientID(c)

	if _, ok := a.Window(w); ok {
		t.Error("Window(w) ok = true after owning client freed, want false")
	}
}

func TestSetGetIsImmediatelyVisibleBeforeFlip(t *testing.T) {
	a, _ := newTestPair(t)
	a.SetCursorPos(geom.Vec2{X: 1, Y: 2})
	if got := a.GetCursorPos(); got != (geom.Vec2{X: 1, Y: 2}) {
		t.Errorf("GetCursorPos() = %v, want (1, 2)", got)
	}
}

func TestFlipHemispheresDeliversPatchesToPeer(t *testing.T) {
	protocolSide, rendererSide := newTestPair(t)
	c := protocolSide.MintClientID()
	w := protocolSide.MintWindowID(c)
	protocolSide.SetWindowPos(w, geom.Vec2{X: 5, Y: 6})

	if err := protocolSide.SendHemisphere(); err != nil {
		t.Fatalf("SendHemisphere() error = %v", err)
	}
	if err := rendererSide.RecvHemisphere(); err != nil {
		t.Fatalf("RecvHemisphere() error = %v", err)
	}

	props, ok := rendererSide.Window(w)
	if !ok {
		t.Fatal("renderer Window(w) ok = false after flip, want true")
	}
	if props.WindowPos != (geom.Vec2{X: 5, Y: 6}) {
		t.Errorf("renderer WindowPos = %v, want (5, 6)", props.WindowPos)
	}
}

func TestPatchLogEmptyAfterFlip(t *testing.T) {
	protocolSide, rendererSide := newTestPair(t)
	protocolSide.SetDebugRecording(true)

	if err := protocolSide.SendHemisphere(); err != nil {
		t.Fatalf("SendHemisphere() error = %v", err)
	}
	if err := rendererSide.RecvHemisphere(); err != nil {
		t.Fatalf("RecvHemisphere() error = %v", err)
	}

	if !protocolSide.patches.empty() {
		t.Error("protocol patch log not empty after flip")
	}
}

func TestTryFlipHemispheresNonBlockingWhenPeerBusy(t *testing.T) {
	protocolSide, _ := newTestPair(t)
	// No renderer side draining: the send succeeds (buffered channel,
	// capacity 1) but the matching recv has nothing waiting.
	flipped, err := protocolSide.TryFlipHemispheres()
	if err != nil {
		t.Fatalf("TryFlipHemispheres() error = %v", err)
	}
	if flipped {
		t.Error("TryFlipHemispheres() = true with no peer response, want false")
	}
}

func TestAddWmTaskBeforeFirstRecvIsStagedAndFlushed(t *testing.T) {
	protocolSide, rendererSide := newTestPair(t)
	// rendererSide has no current hemisphere yet: task must be staged.
	rendererSide.AddWmTask(WmTask{Kind: TaskCloseWindow, Window: 7})

	if err := protocolSide.SendHemisphere(); err != nil {
		t.Fatalf("SendHemisphere() error = %v", err)
	}
	if err := rendererSide.RecvHemisphere(); err != nil {
		t.Fatalf("RecvHemisphere() error = %v", err)
	}

	tasks := rendererSide.current.DrainWmTasks()
	if len(tasks) != 1 || tasks[0].Window != 7 {
		t.Errorf("drained tasks = %v, want single staged task for window 7", tasks)
	}
}
