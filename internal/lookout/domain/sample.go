package lookout

import (
	"math"
	"time"
)

// Sample is one timestamped headset orientation reading. Angles are in
// degrees, relative to the headset's calibrated forward direction. Roll is
// not tracked. Samples are immutable and passed by value.
type Sample struct {
	At    time.Time
	Yaw   float64
	Pitch float64
}

// WrapAngle normalizes an angle in degrees to the range (-180, 180].
func WrapAngle(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg > 180 {
		deg -= 360
	}
	if deg <= -180 {
		deg += 360
	}
	return deg
}
