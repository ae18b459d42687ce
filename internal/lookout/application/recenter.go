package application

import (
	"math"
	"sort"
	"time"

	lookout "quest-lookout/internal/lookout/domain"
	"quest-lookout/internal/settings"
)

// centerWindowSize is the number of recent samples the center estimate is
// computed over (30s at the stock 50ms cadence).
const centerWindowSize = 600

// CenterEstimator tracks where the pilot's neutral gaze actually is and
// detects the steady-gaze recenter gesture: holding within the configured
// window of center for the configured time clears directional scan
// evidence, so drift in the headset's notion of forward does not poison
// the trackers. The center estimate is the median of the inter-quartile
// range of the recent yaw/pitch history, which shrugs off the scan
// excursions themselves.
type CenterEstimator struct {
	window        float64
	hold          time.Duration
	yawHistory    []float64
	pitchHistory  []float64
	holdSince     time.Time
	resetReported bool
}

// NewCenterEstimator builds an estimator from the settings descriptor. A
// non-positive window or hold time disables the feature.
func NewCenterEstimator(cfg settings.CenterReset) *CenterEstimator {
	return &CenterEstimator{
		window: cfg.WindowDegrees,
		hold:   time.Duration(cfg.HoldTimeSeconds * float64(time.Second)),
	}
}

// Update folds one sample into the history and reports whether the
// steady-gaze reset fires on this sample. It fires at most once per hold
// episode.
func (c *CenterEstimator) Update(s lookout.Sample) bool {
	c.yawHistory = appendBounded(c.yawHistory, s.Yaw)
	c.pitchHistory = appendBounded(c.pitchHistory, s.Pitch)

	if c.window <= 0 || c.hold <= 0 {
		return false
	}

	centerYaw, centerPitch := c.Center()
	dyaw := lookout.WrapAngle(s.Yaw - centerYaw)
	dpitch := lookout.WrapAngle(s.Pitch - centerPitch)

	if math.Abs(dyaw) >= c.window || math.Abs(dpitch) >= c.window {
		c.holdSince = time.Time{}
		c.resetReported = false
		return false
	}
	if c.holdSince.IsZero() {
		c.holdSince = s.At
	}
	if !c.resetReported && s.At.Sub(c.holdSince) >= c.hold {
		c.resetReported = true
		return true
	}
	return false
}

// Center returns the current neutral-gaze estimate in degrees.
func (c *CenterEstimator) Center() (yaw, pitch float64) {
	return iqrMedian(c.yawHistory), iqrMedian(c.pitchHistory)
}

func appendBounded(history []float64, v float64) []float64 {
	history = append(history, v)
	if len(history) > centerWindowSize {
		history = history[1:]
	}
	return history
}

// iqrMedian returns the median of the inter-quartile range of values, or 0
// for an empty history.
func iqrMedian(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)
	q1 := n / 4
	q3 := (3 * n) / 4
	if q3 >= n {
		q3 = n - 1
	}
	return sorted[(q1+q3)/2]
}
