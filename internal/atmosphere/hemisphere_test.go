package atmosphere

import (
	"testing"

	"github.com/waycomp/compositor/internal/geom"
)

func TestHemisphereAddWmTaskMarksChanged(t *testing.T) {
	h := NewHemisphere()
	if h.IsChanged() {
		t.Error("fresh hemisphere IsChanged() = true, want false")
	}
	h.AddWmTask(WmTask{Kind: TaskCloseWindow, Window: 1})
	if !h.IsChanged() {
		t.Error("IsChanged() after AddWmTask = false, want true")
	}
}

func TestHemisphereDrainWmTasksIsFIFOAndClears(t *testing.T) {
	h := NewHemisphere()
	h.AddWmTask(WmTask{Kind: TaskCloseWindow, Window: 1})
	h.AddWmTask(WmTask{Kind: TaskMoveToFront, Window: 2})

	drained := h.DrainWmTasks()
	if len(drained) != 2 {
		t.Fatalf("DrainWmTasks() returned %d tasks, want 2", len(drained))
	}
	if drained[0].Window != 1 || drained[1].Window != 2 {
		t.Errorf("DrainWmTasks() order = %v, want FIFO [1, 2]", drained)
	}
	if more := h.DrainWmTasks(); more != nil {
		t.Errorf("second DrainWmTasks() = %v, want nil", more)
	}
}

func TestHemisphereCommitClearsChanged(t *testing.T) {
	h := NewHemisphere()
	h.AddWmTask(WmTask{Kind: TaskCloseWindow, Window: 1})
	h.Commit()
	if h.IsChanged() {
		t.Error("IsChanged() after Commit = true, want false")
	}
}

func TestHemisphereResetConsumablesClearsDamage(t *testing.T) {
	h := NewHemisphere()
	h.Windows.Activate(0, WindowProps{
		DamageSurface: []geom.Rect{geom.NewRect(0, 0, 10, 10)},
		DamageBuffer:  []geom.Rect{geom.NewRect(0, 0, 10, 10)},
	})
	h.ResetConsumables()

	v, ok := h.Windows.Get(0)
	if !ok {
		t.Fatal("window 0 not active after ResetConsumables")
	}
	if v.DamageSurface != nil || v.DamageBuffer != nil {
		t.Errorf("damage lists after ResetConsumables = (%v, %v), want (nil, nil)", v.DamageSurface, v.DamageBuffer)
	}
}
