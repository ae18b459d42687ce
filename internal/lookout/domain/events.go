package lookout

import "time"

// Event types emitted by the engine and rule machines.
const (
	EventScanStarted     = "scan_started"
	EventScanCompleted   = "scan_completed"
	EventAlarmSounding   = "alarm_sounding"
	EventAlarmRepeat     = "alarm_repeat"
	EventAlarmSilenced   = "alarm_silenced"
	EventAlarmCleared    = "alarm_cleared"
	EventSensorLost      = "sensor_lost"
	EventSensorRecovered = "sensor_recovered"
	EventCenterReset     = "center_reset"
)

// Event is one engine occurrence, consumed by notifiers, the journal and
// metrics. RuleIndex is -1 for engine-level events (sensor loss/recovery,
// center reset).
type Event struct {
	Type      string    `json:"type"`
	RuleIndex int       `json:"rule_index"`
	At        time.Time `json:"at"`
	Phase     Phase     `json:"phase,omitempty"`
	DYaw      float64   `json:"dyaw,omitempty"`
	DPitch    float64   `json:"dpitch,omitempty"`
}
