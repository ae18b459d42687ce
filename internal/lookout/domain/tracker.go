package lookout

import (
	"math"
	"time"
)

// MotionThresholdDegrees is the delta from the window's reference
// orientation that counts as the pilot starting a scanning motion.
const MotionThresholdDegrees = 10.0

// ScanUpdate is the outcome of feeding one sample to a ScanTracker.
type ScanUpdate struct {
	// Started is true on the first sample of a motion episode: the head
	// moved beyond MotionThresholdDegrees after being inside it.
	Started bool
	// Completed is true on the first sample where every enabled
	// directional requirement holds. The tracker has already reset its
	// measurement window when Completed is reported.
	Completed bool
	// DYaw and DPitch are the deltas from the window's reference
	// orientation, wrap-normalized to (-180, 180].
	DYaw   float64
	DPitch float64
}

// ScanTracker accumulates evidence of left/right/up/down head excursions
// for a single rule's measurement window. It is not safe for concurrent
// use; each rule's tracker is owned by the engine loop.
type ScanTracker struct {
	rule Rule

	haveRef  bool
	refYaw   float64
	refPitch float64

	left, right, up, down bool
	leftAt, rightAt       time.Time

	// wasLeft/wasRight track whether the previous sample was already
	// beyond the side threshold, so side timestamps update on each fresh
	// crossing and a later re-look can widen the left/right gap.
	wasLeft, wasRight bool

	inMotion    bool
	windowStart time.Time
}

// NewScanTracker creates a tracker for the given rule. The measurement
// window opens on the first sample.
func NewScanTracker(rule Rule) *ScanTracker {
	return &ScanTracker{rule: rule}
}

// Update feeds one sample to the tracker and reports scan-started and
// scan-complete events.
func (t *ScanTracker) Update(s Sample) ScanUpdate {
	if !t.haveRef {
		t.Reset(s)
	}

	upd := ScanUpdate{
		DYaw:   WrapAngle(s.Yaw - t.refYaw),
		DPitch: WrapAngle(s.Pitch - t.refPitch),
	}

	if t.rule.HorizontalEnabled() {
		half := t.rule.MinHorizontalAngle / 2
		beyondRight := upd.DYaw > half
		beyondLeft := upd.DYaw < -half
		if beyondRight && !t.wasRight {
			t.right = true
			t.rightAt = s.At
		}
		if beyondLeft && !t.wasLeft {
			t.left = true
			t.leftAt = s.At
		}
		t.wasRight = beyondRight
		t.wasLeft = beyondLeft
	}
	if t.rule.UpEnabled() && upd.DPitch > t.rule.MinVerticalAngleUp {
		t.up = true
	}
	if t.rule.DownEnabled() && upd.DPitch < -t.rule.MinVerticalAngleDown {
		t.down = true
	}

	moving := math.Abs(upd.DYaw) > MotionThresholdDegrees || math.Abs(upd.DPitch) > MotionThresholdDegrees
	if moving && !t.inMotion {
		upd.Started = true
	}
	t.inMotion = moving

	if t.complete() {
		upd.Completed = true
		t.Reset(s)
	}
	return upd
}

func (t *ScanTracker) complete() bool {
	if t.rule.HorizontalEnabled() {
		if !t.left || !t.right {
			return false
		}
		gap := t.rightAt.Sub(t.leftAt)
		if gap < 0 {
			gap = -gap
		}
		if gap < t.rule.MinLookoutTime {
			return false
		}
	}
	if t.rule.UpEnabled() && !t.up {
		return false
	}
	if t.rule.DownEnabled() && !t.down {
		return false
	}
	return true
}

// Reset opens a new measurement window with the given sample as the
// reference orientation. All directional evidence is cleared.
func (t *ScanTracker) Reset(s Sample) {
	t.haveRef = true
	t.refYaw = s.Yaw
	t.refPitch = s.Pitch
	t.left, t.right, t.up, t.down = false, false, false, false
	t.leftAt, t.rightAt = time.Time{}, time.Time{}
	t.wasLeft, t.wasRight = false, false
	t.windowStart = s.At
}

// ClearDirections drops directional evidence without moving the reference
// orientation or the window clock. Used by the center-reset feature when
// the pilot holds steady near center.
func (t *ScanTracker) ClearDirections() {
	t.left, t.right, t.up, t.down = false, false, false, false
	t.leftAt, t.rightAt = time.Time{}, time.Time{}
}

// Directions reports which directional requirements have been satisfied
// since the window opened.
func (t *ScanTracker) Directions() (left, right, up, down bool) {
	return t.left, t.right, t.up, t.down
}

// WindowStart returns the time the current measurement window opened.
func (t *ScanTracker) WindowStart() time.Time { return t.windowStart }
