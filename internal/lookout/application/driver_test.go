package application

import (
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"quest-lookout/internal/audio"
	lookout "quest-lookout/internal/lookout/domain"
)

type sinkCall struct {
	op     string
	asset  string
	volume int
}

type stubSink struct {
	calls   []sinkCall
	playErr error
	setErr  error
	stopErr error
	playing bool
}

func (s *stubSink) Play(asset string, volume int) error {
	s.calls = append(s.calls, sinkCall{op: "play", asset: asset, volume: volume})
	if s.playErr != nil {
		return s.playErr
	}
	s.playing = true
	return nil
}

func (s *stubSink) SetVolume(volume int) error {
	s.calls = append(s.calls, sinkCall{op: "volume", volume: volume})
	return s.setErr
}

func (s *stubSink) Stop() error {
	s.calls = append(s.calls, sinkCall{op: "stop"})
	s.playing = false
	return s.stopErr
}

func quietLogger() *log.Logger { return log.New(io.Discard, "", 0) }

func rampRule() lookout.Rule {
	return lookout.Rule{
		Index:          0,
		MaxTime:        30 * time.Second,
		AudioFile:      "alert.ogg",
		StartVolume:    50,
		EndVolume:      100,
		VolumeRampTime: 30 * time.Second,
	}
}

var driverEpoch = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func dt(ms int) time.Time { return driverEpoch.Add(time.Duration(ms) * time.Millisecond) }

func TestDriverVolumeRamp(t *testing.T) {
	driver := NewAlertDriver(rampRule(), &stubSink{}, quietLogger(), func(string) bool { return true })

	cases := []struct {
		offsetMS int
		want     int
	}{
		{0, 50},
		{6000, 60},
		{15000, 75},
		{30000, 100},
		{45000, 100},
	}
	for _, tc := range cases {
		if got := driver.VolumeAt(dt(tc.offsetMS), dt(0)); got != tc.want {
			t.Errorf("volume at %dms = %d, want %d", tc.offsetMS, got, tc.want)
		}
	}
}

func TestDriverZeroRampJumpsToEndVolume(t *testing.T) {
	rule := rampRule()
	rule.VolumeRampTime = 0
	driver := NewAlertDriver(rule, &stubSink{}, quietLogger(), func(string) bool { return true })
	if got := driver.VolumeAt(dt(0), dt(0)); got != 100 {
		t.Fatalf("volume with zero ramp = %d, want 100", got)
	}
}

func TestDriverDescendingRamp(t *testing.T) {
	rule := rampRule()
	rule.StartVolume, rule.EndVolume = 100, 50
	driver := NewAlertDriver(rule, &stubSink{}, quietLogger(), func(string) bool { return true })
	if got := driver.VolumeAt(dt(15000), dt(0)); got != 75 {
		t.Fatalf("descending ramp midpoint = %d, want 75", got)
	}
}

func TestDriverPlaysOnceThenAdjustsVolume(t *testing.T) {
	sink := &stubSink{}
	driver := NewAlertDriver(rampRule(), sink, quietLogger(), func(string) bool { return true })

	driver.Tick(dt(0), lookout.PhaseSounding, dt(0))
	driver.Tick(dt(6000), lookout.PhaseSounding, dt(0))
	driver.Tick(dt(6050), lookout.PhaseSounding, dt(0))

	want := []sinkCall{
		{op: "play", asset: "alert.ogg", volume: 50},
		{op: "volume", volume: 60},
	}
	if len(sink.calls) != len(want) {
		t.Fatalf("sink calls = %v, want %v", sink.calls, want)
	}
	for i := range want {
		if sink.calls[i] != want[i] {
			t.Fatalf("call %d = %v, want %v", i, sink.calls[i], want[i])
		}
	}
}

func TestDriverRestartsOnNewRamp(t *testing.T) {
	sink := &stubSink{}
	driver := NewAlertDriver(rampRule(), sink, quietLogger(), func(string) bool { return true })

	driver.Tick(dt(0), lookout.PhaseSounding, dt(0))
	// A repeat moved the ramp start: playback restarts at start volume.
	driver.Tick(dt(5000), lookout.PhaseSounding, dt(5000))

	if len(sink.calls) != 2 || sink.calls[1].op != "play" || sink.calls[1].volume != 50 {
		t.Fatalf("sink calls = %v, want a second play at volume 50", sink.calls)
	}
}

func TestDriverStopsWhenNotSounding(t *testing.T) {
	sink := &stubSink{}
	driver := NewAlertDriver(rampRule(), sink, quietLogger(), func(string) bool { return true })

	driver.Tick(dt(0), lookout.PhaseSounding, dt(0))
	driver.Tick(dt(1000), lookout.PhaseArmed, time.Time{})
	driver.Tick(dt(2000), lookout.PhaseArmed, time.Time{})

	stops := 0
	for _, call := range sink.calls {
		if call.op == "stop" {
			stops++
		}
	}
	if stops != 1 {
		t.Fatalf("stop calls = %d, want exactly 1", stops)
	}
}

func TestDriverRetriesAfterPlayFailure(t *testing.T) {
	sink := &stubSink{playErr: errors.New("device busy")}
	driver := NewAlertDriver(rampRule(), sink, quietLogger(), func(string) bool { return true })

	driver.Tick(dt(0), lookout.PhaseSounding, dt(0))
	sink.playErr = nil
	driver.Tick(dt(50), lookout.PhaseSounding, dt(0))

	if len(sink.calls) != 2 || sink.calls[1].op != "play" {
		t.Fatalf("sink calls = %v, want play retried", sink.calls)
	}
}

func TestDriverFallsBackToDefaultTone(t *testing.T) {
	driver := NewAlertDriver(rampRule(), &stubSink{}, quietLogger(), func(string) bool { return false })
	if driver.Asset() != audio.DefaultTone {
		t.Fatalf("asset = %q, want default tone", driver.Asset())
	}
}
