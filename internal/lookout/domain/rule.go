package lookout

import (
	"fmt"
	"time"
)

// Rule is the validated form of one configured lookout alarm. Angle
// thresholds are in degrees; a zero angle disables that directional
// requirement. Timing fields are durations converted from the settings
// document's millisecond fields.
type Rule struct {
	Index int

	// MinHorizontalAngle is the combined left+right scan requirement. Each
	// side must exceed half of it from the window's reference orientation.
	MinHorizontalAngle   float64
	MinVerticalAngleUp   float64
	MinVerticalAngleDown float64

	// MaxTime is the deadline to complete all enabled directional
	// requirements before the alarm sounds.
	MaxTime time.Duration

	// MinLookoutTime is the minimum gap between the left-side and
	// right-side look for the horizontal requirement to count.
	MinLookoutTime time.Duration

	AudioFile      string
	StartVolume    int
	EndVolume      int
	VolumeRampTime time.Duration

	// RepeatInterval spaces successive alarm activations while the scan
	// stays incomplete. Zero disables re-triggering.
	RepeatInterval time.Duration

	// SilenceAfterLook is the grace period suppressing the alarm after the
	// pilot begins a new scanning motion.
	SilenceAfterLook time.Duration
}

// Validate checks rule invariants. StartVolume > EndVolume is accepted; an
// inverted or flat ramp is a configuration oddity, not an error.
func (r Rule) Validate() error {
	if r.MinHorizontalAngle < 0 {
		return fmt.Errorf("rule %d: negative min_horizontal_angle", r.Index)
	}
	if r.MinVerticalAngleUp < 0 {
		return fmt.Errorf("rule %d: negative min_vertical_angle_up", r.Index)
	}
	if r.MinVerticalAngleDown < 0 {
		return fmt.Errorf("rule %d: negative min_vertical_angle_down", r.Index)
	}
	if r.MaxTime <= 0 {
		return fmt.Errorf("rule %d: max_time_ms must be positive", r.Index)
	}
	if r.MinLookoutTime < 0 {
		return fmt.Errorf("rule %d: negative min_lookout_time_ms", r.Index)
	}
	if r.StartVolume < 0 || r.StartVolume > 100 {
		return fmt.Errorf("rule %d: start_volume out of range 0-100", r.Index)
	}
	if r.EndVolume < 0 || r.EndVolume > 100 {
		return fmt.Errorf("rule %d: end_volume out of range 0-100", r.Index)
	}
	if r.VolumeRampTime < 0 {
		return fmt.Errorf("rule %d: negative volume_ramp_time_ms", r.Index)
	}
	if r.RepeatInterval < 0 {
		return fmt.Errorf("rule %d: negative repeat_interval_ms", r.Index)
	}
	if r.SilenceAfterLook < 0 {
		return fmt.Errorf("rule %d: negative silence_after_look_ms", r.Index)
	}
	return nil
}

// HorizontalEnabled reports whether the left/right requirement is active.
func (r Rule) HorizontalEnabled() bool { return r.MinHorizontalAngle > 0 }

// UpEnabled reports whether the upward requirement is active.
func (r Rule) UpEnabled() bool { return r.MinVerticalAngleUp > 0 }

// DownEnabled reports whether the downward requirement is active.
func (r Rule) DownEnabled() bool { return r.MinVerticalAngleDown > 0 }
