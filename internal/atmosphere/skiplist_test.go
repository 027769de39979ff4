package atmosphere

import "testing"

// rootOrder walks the root list starting at window-focus and returns the
// window ids in front-to-back order.
func rootOrder(a *Atmosphere) []WindowID {
	var order []WindowID
	focus, ok := a.Global().WindowFocus.Get()
	if !ok {
		return nil
	}
	cur := focus
	for {
		order = append(order, cur)
		props, ok := a.Window(cur)
		if !ok {
			break
		}
		next, hasNext := props.SkiplistNext.Get()
		if !hasNext {
			break
		}
		cur = next
	}
	return order
}

func mintRootWindow(t *testing.T, a *Atmosphere, c ClientID) WindowID {
	t.Helper()
	w := a.MintWindowID(c)
	a.SetIsToplevel(w, true)
	return w
}

func TestFocusOnNewRootBecomesHead(t *testing.T) {
	a, _ := newTestPair(t)
	c := a.MintClientID()
	w1 := mintRootWindow(t, a, c)
	a.FocusOn(Some(w1))

	if got := rootOrder(a); len(got) != 1 || got[0] != w1 {
		t.Fatalf("rootOrder = %v, want [%d]", got, w1)
	}

	w2 := mintRootWindow(t, a, c)
	a.FocusOn(Some(w2))

	got := rootOrder(a)
	want := []WindowID{w2, w1}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("rootOrder = %v, want %v", got, want)
	}
}

func TestFocusOnAlreadyHeadIsNoOp(t *testing.T) {
	a, _ := newTestPair(t)
	c := a.MintClientID()
	w1 := mintRootWindow(t, a, c)
	w2 := mintRootWindow(t, a, c)
	a.FocusOn(Some(w1))
	a.FocusOn(Some(w2))

	before := rootOrder(a)
	a.FocusOn(Some(w2))
	after := rootOrder(a)

	if len(before) != len(after) || before[0] != after[0] || before[1] != after[1] {
		t.Errorf("rootOrder changed on refocusing current head: %v -> %v", before, after)
	}
}

func TestSkiplistPlaceBelowMovesWindowBehindTarget(t *testing.T) {
	a, _ := newTestPair(t)
	c := a.MintClientID()
	w1 := mintRootWindow(t, a, c)
	w2 := mintRootWindow(t, a, c)
	w3 := mintRootWindow(t, a, c)
	a.FocusOn(Some(w1))
	a.FocusOn(Some(w2))
	a.FocusOn(Some(w3))
	// order is now [w3, w2, w1]

	a.SkiplistPlaceBelow(w3, w2)
	got := rootOrder(a)
	want := []WindowID{w2, w3, w1}
	if len(got) != 3 || got[0] != want[0] || got[1] != want[1] || got[2] != want[2] {
		t.Errorf("rootOrder after PlaceBelow = %v, want %v", got, want)
	}
}

func TestSkiplistPlaceAboveMovesWindowInFrontOfTarget(t *testing.T) {
	a, _ := newTestPair(t)
	c := a.MintClientID()
	w1 := mintRootWindow(t, a, c)
	w2 := mintRootWindow(t, a, c)
	w3 := mintRootWindow(t, a, c)
	a.FocusOn(Some(w1))
	a.FocusOn(Some(w2))
	a.FocusOn(Some(w3))
	// order is now [w3, w2, w1]

	a.SkiplistPlaceAbove(w1, w3)
	got := rootOrder(a)
	want := []WindowID{w1, w3, w2}
	if len(got) != 3 || got[0] != want[0] || got[1] != want[1] || got[2] != want[2] {
		t.Errorf("rootOrder after PlaceAbove = %v, want %v", got, want)
	}
}

func TestFreeWindowIDRemovesFromSkiplist(t *testing.T) {
	a, _ := newTestPair(t)
	c := a.MintClientID()
	w1 := mintRootWindow(t, a, c)
	w2 := mintRootWindow(t, a, c)
	a.FocusOn(Some(w1))
	a.FocusOn(Some(w2))

	a.FreeWindowID(c, w2)
	got := rootOrder(a)
	if len(got) != 1 || got[0] != w1 {
		t.Errorf("rootOrder after freeing head = %v, want [%d]", got, w1)
	}
}

func TestAddNewTopSubsurfLinksParentAndRoot(t *testing.T) {
	a, _ := newTestPair(t)
	c := a.MintClientID()
	parent := mintRootWindow(t, a, c)
	child := a.MintWindowID(c)

	a.AddNewTopSubsurf(parent, child)

	props, ok := a.Window(child)
	if !ok {
		t.Fatal("Window(child) ok = false")
	}
	if p, ok := props.ParentWindow.Get(); !ok || p != parent {
		t.Errorf("ParentWindow = %v, want Some(%d)", props.ParentWindow, parent)
	}
	if r, ok := props.RootWindow.Get(); !ok || r != parent {
		t.Errorf("RootWindow = %v, want Some(%d)", props.RootWindow, parent)
	}

	parentProps, _ := a.Window(parent)
	if top, ok := parentProps.TopChild.Get(); !ok || top != child {
		t.Errorf("parent TopChild = %v, want Some(%d)", parentProps.TopChild, child)
	}
}

func TestAddNewTopSubsurfInheritsGrandparentRoot(t *testing.T) {
	a, _ := newTestPair(t)
	c := a.MintClientID()
	root := mintRootWindow(t, a, c)
	mid := a.MintWindowID(c)
	a.AddNewTopSubsurf(root, mid)

	leaf := a.MintWindowID(c)
	a.AddNewTopSubsurf(mid, leaf)

	props, _ := a.Window(leaf)
	if r, ok := props.RootWindow.Get(); !ok || r != root {
		t.Errorf("leaf RootWindow = %v, want Some(%d)", props.RootWindow, root)
	}
}
