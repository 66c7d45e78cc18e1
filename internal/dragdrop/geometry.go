package dragdrop

// Item is the vertical geometry of one rendered queue row, in
// container coordinates.
type Item struct {
	Top    float64 `json:"top"`
	Height float64 `json:"height"`
}

func (it Item) midpoint() float64 {
	return it.Top + it.Height/2
}

const (
	// ScrollZone is the height of the edge band that triggers
	// auto-scroll during a drag.
	ScrollZone = 100.0
	// MinScrollIntensity is the floor of the auto-scroll speed factor
	// the moment the pointer enters the zone.
	MinScrollIntensity = 0.3
)

// InsertionIndex resolves where a drop at pointerY lands: scan the
// rendered item midpoints top to bottom and pick the first whose
// midpoint lies below the container-relative, scroll-adjusted pointer.
// If none qualify the insertion point is the end of the queue.
func InsertionIndex(items []Item, pointerY, scrollTop float64) int {
	y := pointerY + scrollTop
	for i, it := range items {
		if it.midpoint() > y {
			return i
		}
	}
	return len(items)
}

// TargetIndex converts an insertion point into the index the dragged
// item occupies after its own slot is vacated.
func TargetIndex(from, insertion int) int {
	if insertion > from {
		return insertion - 1
	}
	return insertion
}

// ScrollIntensity derives the auto-scroll speed factor from pointer
// proximity to the top or bottom edge of the scrollable region.
// Negative values scroll up, positive down, zero means the pointer is
// outside both zones. Inside a zone the factor scales linearly from
// MinScrollIntensity at the zone boundary to 1 at the edge.
func ScrollIntensity(pointerY, viewTop, viewBottom float64) float64 {
	if viewBottom-viewTop < 2*ScrollZone {
		// Degenerate viewport, no room for scroll zones.
		return 0
	}

	if pointerY < viewTop+ScrollZone {
		depth := (viewTop + ScrollZone - pointerY) / ScrollZone
		return -intensity(depth)
	}
	if pointerY > viewBottom-ScrollZone {
		depth := (pointerY - (viewBottom - ScrollZone)) / ScrollZone
		return intensity(depth)
	}
	return 0
}

func intensity(depth float64) float64 {
	if depth > 1 {
		depth = 1
	}
	if depth < MinScrollIntensity {
		return MinScrollIntensity
	}
	return depth
}
