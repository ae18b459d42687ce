package application

import (
	"log"
	"math"
	"os"
	"time"

	"quest-lookout/internal/audio"
	lookout "quest-lookout/internal/lookout/domain"
	"quest-lookout/internal/observability/metrics"
)

// AssetChecker reports whether an audio asset exists. Injected so the
// driver is testable without touching the filesystem.
type AssetChecker func(path string) bool

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// AlertDriver renders one rule's Sounding phase into audio sink commands.
// It restarts playback whenever the machine's ramp start moves (activation
// or repeat), recomputes the ramped volume every tick, and stops on any
// other phase. Sink failures are logged and retried on the next tick.
type AlertDriver struct {
	rule   lookout.Rule
	sink   audio.Sink
	logger *log.Logger
	asset  string

	playing    bool
	rampStart  time.Time
	lastVolume int
}

// NewAlertDriver constructs a driver. A configured audio file that does
// not exist is replaced by the built-in default tone up front, so a bad
// path can never fail a tick later.
func NewAlertDriver(rule lookout.Rule, sink audio.Sink, logger *log.Logger, exists AssetChecker) *AlertDriver {
	if logger == nil {
		logger = log.New(os.Stdout, "", log.LstdFlags)
	}
	if exists == nil {
		exists = fileExists
	}
	asset := rule.AudioFile
	if asset == "" || !exists(asset) {
		if asset != "" {
			logger.Printf("rule %d: audio asset %q missing, using default tone", rule.Index, asset)
		}
		asset = audio.DefaultTone
	}
	return &AlertDriver{rule: rule, sink: sink, logger: logger, asset: asset, lastVolume: -1}
}

// Tick applies the machine's current phase to the sink.
func (d *AlertDriver) Tick(now time.Time, phase lookout.Phase, rampStart time.Time) {
	if phase != lookout.PhaseSounding {
		d.Stop()
		return
	}

	volume := d.VolumeAt(now, rampStart)
	if !d.playing || !rampStart.Equal(d.rampStart) {
		if err := d.sink.Play(d.asset, volume); err != nil {
			metrics.IncSinkFailure()
			d.logger.Printf("rule %d: audio play failed: %v", d.rule.Index, err)
			d.playing = false
			return
		}
		d.playing = true
		d.rampStart = rampStart
		d.lastVolume = volume
		return
	}
	if volume != d.lastVolume {
		if err := d.sink.SetVolume(volume); err != nil {
			metrics.IncSinkFailure()
			d.logger.Printf("rule %d: audio set volume failed: %v", d.rule.Index, err)
			return
		}
		d.lastVolume = volume
	}
}

// Stop silences the driver if it is playing. Safe to call repeatedly and
// at shutdown.
func (d *AlertDriver) Stop() {
	if !d.playing {
		return
	}
	if err := d.sink.Stop(); err != nil {
		metrics.IncSinkFailure()
		d.logger.Printf("rule %d: audio stop failed: %v", d.rule.Index, err)
	}
	d.playing = false
	d.lastVolume = -1
}

// VolumeAt computes the ramped volume for a ramp that started at
// rampStart. A zero ramp time jumps straight to the end volume; an
// inverted ramp (start above end) descends, which is unusual but valid.
func (d *AlertDriver) VolumeAt(now, rampStart time.Time) int {
	start, end := d.rule.StartVolume, d.rule.EndVolume
	if d.rule.VolumeRampTime <= 0 {
		return end
	}
	elapsed := now.Sub(rampStart)
	if elapsed <= 0 {
		return start
	}
	progress := float64(elapsed) / float64(d.rule.VolumeRampTime)
	if progress >= 1 {
		return end
	}
	return start + int(math.Round(progress*float64(end-start)))
}

// Asset returns the resolved asset id.
func (d *AlertDriver) Asset() string { return d.asset }
