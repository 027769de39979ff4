package atmosphere

// Hemisphere is a self-contained snapshot of all global/client/window
// properties plus a one-shot task queue (§3, §4.2). It is owned by exactly
// one side at a time; ownership transfers across a channel (§5) — callers
// must not retain a pointer to a Hemisphere they have handed off.
type Hemisphere struct {
	Global  GlobalProps
	Clients *PropertyStore[ClientProps]
	Windows *PropertyStore[WindowProps]

	tasks   []WmTask
	changed bool
}

// NewHemisphere creates an empty hemisphere with no clients or windows.
func NewHemisphere() *Hemisphere {
	return &Hemisphere{
		Clients: NewPropertyStore[ClientProps](),
		Windows: NewPropertyStore[WindowProps](),
	}
}

// AddWmTask enqueues t and marks the hemisphere changed (§4.2).
func (h *Hemisphere) AddWmTask(t WmTask) {
	h.tasks = append(h.tasks, t)
	h.changed = true
}

// DrainWmTasks returns and clears the task queue in FIFO order (§4.7 step 3,
// §5 "tasks are FIFO per hemisphere").
func (h *Hemisphere) DrainWmTasks() []WmTask {
	if len(h.tasks) == 0 {
		return nil
	}
	drained := h.tasks
	h.tasks = nil
	return drained
}

// IsChanged reports whether any set_*/AddWmTask call has happened since the
// last Commit.
func (h *Hemisphere) IsChanged() bool {
	return h.changed
}

// Commit clears the changed flag. Called by Atmosphere after finishing a
// patch replay (§4.2, §4.3).
func (h *Hemisphere) Commit() {
	h.changed = false
}

// ResetConsumables empties every window's damage lists. Called once per
// frame after the renderer has consumed them (§4.2, §4.7 step 8).
func (h *Hemisphere) ResetConsumables() {
	h.Windows.Iterate(func(_ uint32, w *WindowProps) bool {
		w.DamageSurface = nil
		w.DamageBuffer = nil
		return true
	})
}

func (h *Hemisphere) markChanged() {
	h.changed = true
}
