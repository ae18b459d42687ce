// Package headset adapts external orientation sources to the engine's
// sampler contract. The headset SDK itself is out of process; poses arrive
// already sensor-fused.
package headset

import (
	"context"
	"errors"
	"math"

	lookout "quest-lookout/internal/lookout/domain"
)

// ErrSensorUnavailable reports that no current orientation reading exists,
// for example because the headset disconnected. The engine suspends alarm
// evaluation while this persists and resumes cleanly on recovery.
var ErrSensorUnavailable = errors.New("headset: sensor unavailable")

// Sampler yields the current orientation. Implementations must return
// promptly; a slow source buffers internally and reports staleness through
// ErrSensorUnavailable rather than blocking the polling cadence.
type Sampler interface {
	Sample(ctx context.Context) (lookout.Sample, error)
}

// YawPitchFromQuaternion extracts yaw and pitch in degrees from a unit
// quaternion in the headset's coordinate convention (y up, z toward the
// viewer). Pitch input is clamped so a slightly denormalized quaternion
// cannot produce NaN.
func YawPitchFromQuaternion(w, x, y, z float64) (yawDeg, pitchDeg float64) {
	ys := 2 * (w*y + x*z)
	yc := 1 - 2*(y*y+z*z)
	ps := 2 * (w*x - z*y)
	ps = math.Max(-1, math.Min(1, ps))
	yawDeg = math.Atan2(ys, yc) * 180 / math.Pi
	pitchDeg = math.Asin(ps) * 180 / math.Pi
	return yawDeg, pitchDeg
}
