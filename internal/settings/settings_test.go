package settings

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	content := `
alarms:
  - min_horizontal_angle: 45
    min_vertical_angle_up: 7.5
    max_time_ms: 30000
    audio_file: lookout.ogg
    start_volume: 50
    end_volume: 100
    volume_ramp_time_ms: 30000
    repeat_interval_ms: 5000
    min_lookout_time_ms: 2000
    silence_after_look_ms: 5000
  - min_vertical_angle_down: 10
    max_time_ms: 60000
center_reset:
  window_degrees: 15
  hold_time_seconds: 2.5
log_file: lookout.log
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	doc, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(doc.Alarms) != 2 {
		t.Fatalf("alarms = %d, want 2", len(doc.Alarms))
	}
	first := doc.Alarms[0]
	if first.MinHorizontalAngle != 45 || first.MaxTimeMS != 30000 || first.AudioFile != "lookout.ogg" {
		t.Fatalf("first alarm parsed wrong: %+v", first)
	}
	if doc.Alarms[1].MinVerticalAngleDown != 10 {
		t.Fatalf("second alarm parsed wrong: %+v", doc.Alarms[1])
	}
	if doc.CenterReset.WindowDegrees != 15 || doc.CenterReset.HoldTimeSeconds != 2.5 {
		t.Fatalf("center reset parsed wrong: %+v", doc.CenterReset)
	}
	if doc.LogFile != "lookout.log" {
		t.Fatalf("log file = %q", doc.LogFile)
	}
}

func TestLoadMissingCenterResetFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	content := "alarms:\n  - max_time_ms: 30000\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	doc, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if doc.CenterReset.WindowDegrees != 20 || doc.CenterReset.HoldTimeSeconds != 3 {
		t.Fatalf("center reset fallback = %+v, want 20 degrees / 3s", doc.CenterReset)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	doc := DefaultDocument()
	doc.Alarms = append(doc.Alarms, AlarmConfig{MinVerticalAngleDown: 12, MaxTimeMS: 45000})
	doc.LogFile = "out.log"

	if err := Save(path, doc); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded.Alarms) != 2 || loaded.Alarms[1].MaxTimeMS != 45000 {
		t.Fatalf("round trip lost alarms: %+v", loaded.Alarms)
	}
	if loaded.LogFile != "out.log" {
		t.Fatalf("round trip lost log file: %q", loaded.LogFile)
	}
}

func TestAlarmConfigRuleConversion(t *testing.T) {
	rule, err := DefaultAlarm().Rule(3)
	if err != nil {
		t.Fatalf("rule: %v", err)
	}
	if rule.Index != 3 {
		t.Fatalf("index = %d, want 3", rule.Index)
	}
	if rule.MaxTime != 30*time.Second {
		t.Fatalf("max time = %v, want 30s", rule.MaxTime)
	}
	if rule.MinLookoutTime != 2*time.Second {
		t.Fatalf("min lookout time = %v, want 2s", rule.MinLookoutTime)
	}
	if rule.RepeatInterval != 5*time.Second {
		t.Fatalf("repeat interval = %v, want 5s", rule.RepeatInterval)
	}
}

func TestAlarmConfigRuleRejectsInvalid(t *testing.T) {
	cfg := DefaultAlarm()
	cfg.StartVolume = 150
	if _, err := cfg.Rule(0); err == nil {
		t.Fatal("expected validation error for volume above 100")
	}
}
