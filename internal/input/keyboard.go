package input

// Keyboard tracks the single seat-wide key-state (§4.9): which keys are
// currently held, from which modifier depressed/latched/locked state is
// derived. Layout and keymap translation are delegated to the bound
// wl_keyboard proxies; this only tracks raw linux keycodes.
type Keyboard struct {
	held map[uint32]bool

	Depressed uint32
	Latched   uint32
	Locked    uint32
	Group     uint32
}

// Common modifier bit positions, matching the XKB_STATE_MODS_* convention
// the xdg-shell ecosystem uses for the depressed/latched/locked bitmask.
const (
	ModShift uint32 = 1 << iota
	ModCapsLock
	ModCtrl
	ModAlt
	ModNumLock
	ModLogo
)

// linux input-event-codes.h key numbers for the handful of keys this
// router tracks as modifiers.
const (
	keyLeftShift  = 42
	keyRightShift = 54
	keyLeftCtrl   = 29
	keyRightCtrl  = 97
	keyLeftAlt    = 56
	keyRightAlt   = 100
	keyCapsLock   = 58
)

// Update records a key press/release and recomputes the depressed modifier
// mask. Returns true if the modifier mask changed, telling the caller to
// emit a wl_keyboard.modifiers event before the key event (§4.9).
func (k *Keyboard) Update(key uint32, pressed bool) bool {
	if k.held == nil {
		k.held = make(map[uint32]bool)
	}
	k.held[key] = pressed

	before := k.Depressed
	k.Depressed = 0
	if k.held[keyLeftShift] || k.held[keyRightShift] {
		k.Depressed |= ModShift
	}
	if k.held[keyLeftCtrl] || k.held[keyRightCtrl] {
		k.Depressed |= ModCtrl
	}
	if k.held[keyLeftAlt] || k.held[keyRightAlt] {
		k.Depressed |= ModAlt
	}
	if key == keyCapsLock && pressed {
		k.Locked ^= ModCapsLock
	}

	return before != k.Depressed
}
