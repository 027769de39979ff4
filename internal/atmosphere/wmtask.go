package atmosphere

// WmTaskKind discriminates the WmTask sum type (§3, §6). Role polymorphism
// here follows the same "tagged union, no inheritance" rule design note §9
// applies to shell roles.
type WmTaskKind uint8

const (
	TaskCloseWindow WmTaskKind = iota
	TaskMoveToFront
	TaskNewToplevel
	TaskNewSubsurface
	TaskPlaceSubsurfaceAbove
	TaskPlaceSubsurfaceBelow
	TaskUpdateContentsFromMem
	TaskUpdateContentsFromDmabuf
	TaskSetCursor
	TaskResetCursor
)

// MemContents carries the payload for TaskUpdateContentsFromMem. WlBuffer is
// an opaque release handle: dropping the task (calling Release) returns the
// client's buffer, per §5's shared-resource policy.
type MemContents struct {
	Pixels  []byte
	Width   int
	Height  int
	Release func()
}

// DmabufContents carries the payload for TaskUpdateContentsFromDmabuf. FD is
// already a duplicate of the client's dmabuf fd (§5: "a dmabuf file
// descriptor is duplicated before being handed to Vulkan import").
type DmabufContents struct {
	FD      int
	Width   int
	Height  int
	Format  uint32
	Modifier uint64
	Release func()
}

// WmTask is a one-shot message from the protocol side to the renderer
// (§3, §6). Exactly one of the payload fields is meaningful, selected by
// Kind; ParentID is used by TaskNewSubsurface and the two
// PlaceSubsurface{Above,Below} tasks.
type WmTask struct {
	Kind     WmTaskKind
	Window   WindowID
	ParentID WindowID
	Target   WindowID // relative-placement target, for PlaceSubsurfaceAbove/Below
	Mem      *MemContents
	Dmabuf   *DmabufContents
	CursorID Option[WindowID]
}
