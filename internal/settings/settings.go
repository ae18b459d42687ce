// Package settings loads and saves the structured settings document. The
// document is the only configuration surface the engine consumes; the
// graphical editor and startup policy live outside this process and their
// fields pass through untouched.
package settings

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	lookout "quest-lookout/internal/lookout/domain"
)

// AlarmConfig is one alarm rule record as it appears in the settings
// document. Millisecond fields convert to durations in Rule.
type AlarmConfig struct {
	MinHorizontalAngle   float64 `yaml:"min_horizontal_angle"`
	MinVerticalAngleUp   float64 `yaml:"min_vertical_angle_up"`
	MinVerticalAngleDown float64 `yaml:"min_vertical_angle_down"`
	MaxTimeMS            int     `yaml:"max_time_ms"`
	AudioFile            string  `yaml:"audio_file"`
	StartVolume          int     `yaml:"start_volume"`
	EndVolume            int     `yaml:"end_volume"`
	VolumeRampTimeMS     int     `yaml:"volume_ramp_time_ms"`
	RepeatIntervalMS     int     `yaml:"repeat_interval_ms"`
	MinLookoutTimeMS     int     `yaml:"min_lookout_time_ms"`
	SilenceAfterLookMS   int     `yaml:"silence_after_look_ms"`
}

// CenterReset configures the steady-gaze recenter feature.
type CenterReset struct {
	WindowDegrees   float64 `yaml:"window_degrees"`
	HoldTimeSeconds float64 `yaml:"hold_time_seconds"`
}

// Document is the full settings file. StartWithWindows and LogFile belong
// to the launcher and the simulator integration; the engine ignores them.
type Document struct {
	Alarms           []AlarmConfig `yaml:"alarms"`
	CenterReset      CenterReset   `yaml:"center_reset"`
	StartWithWindows bool          `yaml:"start_with_windows"`
	LogFile          string        `yaml:"log_file"`
}

// DefaultAlarm returns the stock alarm record offered to new users.
func DefaultAlarm() AlarmConfig {
	return AlarmConfig{
		MinHorizontalAngle: 45,
		MinVerticalAngleUp: 7.5,
		MaxTimeMS:          30000,
		AudioFile:          "lookout.ogg",
		StartVolume:        50,
		EndVolume:          100,
		VolumeRampTimeMS:   30000,
		RepeatIntervalMS:   5000,
		SilenceAfterLookMS: 5000,
		MinLookoutTimeMS:   2000,
	}
}

// DefaultDocument returns a document with one stock alarm and the stock
// center-reset descriptor.
func DefaultDocument() Document {
	return Document{
		Alarms:      []AlarmConfig{DefaultAlarm()},
		CenterReset: CenterReset{WindowDegrees: 20, HoldTimeSeconds: 3},
	}
}

// Load reads the settings document from path. A missing center-reset
// descriptor falls back to the stock one; individual alarm records are
// not validated here, rule-level rejection happens on engine reload.
func Load(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("settings: read %s: %w", path, err)
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("settings: parse %s: %w", path, err)
	}
	if doc.CenterReset.WindowDegrees == 0 && doc.CenterReset.HoldTimeSeconds == 0 {
		doc.CenterReset = CenterReset{WindowDegrees: 20, HoldTimeSeconds: 3}
	}
	return doc, nil
}

// Save writes the document to path.
func Save(path string, doc Document) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("settings: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("settings: write %s: %w", path, err)
	}
	return nil
}

// Rule converts the record at the given index to its validated domain form.
func (a AlarmConfig) Rule(index int) (lookout.Rule, error) {
	rule := lookout.Rule{
		Index:                index,
		MinHorizontalAngle:   a.MinHorizontalAngle,
		MinVerticalAngleUp:   a.MinVerticalAngleUp,
		MinVerticalAngleDown: a.MinVerticalAngleDown,
		MaxTime:              time.Duration(a.MaxTimeMS) * time.Millisecond,
		MinLookoutTime:       time.Duration(a.MinLookoutTimeMS) * time.Millisecond,
		AudioFile:            a.AudioFile,
		StartVolume:          a.StartVolume,
		EndVolume:            a.EndVolume,
		VolumeRampTime:       time.Duration(a.VolumeRampTimeMS) * time.Millisecond,
		RepeatInterval:       time.Duration(a.RepeatIntervalMS) * time.Millisecond,
		SilenceAfterLook:     time.Duration(a.SilenceAfterLookMS) * time.Millisecond,
	}
	if err := rule.Validate(); err != nil {
		return lookout.Rule{}, err
	}
	return rule, nil
}
