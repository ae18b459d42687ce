package lookout

import "time"

// Phase is the runtime state of one rule's alarm machine.
type Phase string

const (
	// PhaseIdle means the machine has not been armed yet (no sample seen).
	PhaseIdle Phase = "idle"
	// PhaseArmed means a measurement window is open and the deadline runs.
	PhaseArmed Phase = "armed"
	// PhaseSilenced means a scan-started grace period suppresses the alarm.
	PhaseSilenced Phase = "silenced"
	// PhaseSounding means the alarm is active until the scan completes.
	PhaseSounding Phase = "sounding"
)

// RuleMachine owns one rule's alarm state. It decides, per tick, whether
// the alarm is silent, in grace, or sounding. All transitions of the
// lookout state machine live here; audio rendering is the alert driver's
// job and tracker window resets are coordinated by the engine.
type RuleMachine struct {
	rule Rule

	phase        Phase
	deadline     time.Time
	silenceUntil time.Time
	rampStart    time.Time
	nextRepeatAt time.Time
	lastFiredAt  time.Time
}

// NewRuleMachine creates a machine in PhaseIdle. Arm it when the first
// orientation sample arrives.
func NewRuleMachine(rule Rule) *RuleMachine {
	return &RuleMachine{rule: rule, phase: PhaseIdle}
}

// Arm opens the first measurement window: the deadline starts now.
func (m *RuleMachine) Arm(now time.Time) {
	m.phase = PhaseArmed
	m.deadline = now.Add(m.rule.MaxTime)
	m.silenceUntil = time.Time{}
}

// Advance applies one tick's scan update. It returns the events produced
// this tick, in order. When the returned events contain EventAlarmSounding
// the measurement window has restarted and the caller must reset the
// rule's tracker to the current orientation.
func (m *RuleMachine) Advance(now time.Time, upd ScanUpdate) []Event {
	if m.phase == PhaseIdle {
		return nil
	}

	var events []Event
	emit := func(typ string) {
		events = append(events, Event{
			Type:      typ,
			RuleIndex: m.rule.Index,
			At:        now,
			Phase:     m.phase,
			DYaw:      upd.DYaw,
			DPitch:    upd.DPitch,
		})
	}

	// Scan-complete wins over everything else on the same tick, including
	// a deadline expiring at the same instant.
	if upd.Completed {
		if m.phase == PhaseSounding {
			m.phase = PhaseIdle
			emit(EventAlarmCleared)
		}
		m.phase = PhaseArmed
		m.deadline = now.Add(m.rule.MaxTime)
		m.silenceUntil = time.Time{}
		emit(EventScanCompleted)
		return events
	}

	if upd.Started {
		emit(EventScanStarted)
		switch m.phase {
		case PhaseArmed, PhaseSounding:
			m.phase = PhaseSilenced
			m.silenceUntil = now.Add(m.rule.SilenceAfterLook)
			emit(EventAlarmSilenced)
		case PhaseSilenced:
			// A fresh motion episode restarts the grace period.
			m.silenceUntil = now.Add(m.rule.SilenceAfterLook)
		}
	}

	if m.phase == PhaseSilenced && !now.Before(m.silenceUntil) {
		m.phase = PhaseArmed
	}

	if m.phase == PhaseArmed && !now.Before(m.deadline) {
		m.phase = PhaseSounding
		m.rampStart = now
		m.lastFiredAt = now
		if m.rule.RepeatInterval > 0 {
			m.nextRepeatAt = now.Add(m.rule.RepeatInterval)
		} else {
			m.nextRepeatAt = time.Time{}
		}
		emit(EventAlarmSounding)
		return events
	}

	if m.phase == PhaseSounding && m.rule.RepeatInterval > 0 && !now.Before(m.nextRepeatAt) {
		m.rampStart = now
		m.lastFiredAt = now
		m.nextRepeatAt = now.Add(m.rule.RepeatInterval)
		emit(EventAlarmRepeat)
	}

	return events
}

// ShiftTime moves every pending time anchor forward by d. Used after a
// sensor outage so the outage itself cannot fire an alarm or eat into a
// grace period.
func (m *RuleMachine) ShiftTime(d time.Duration) {
	if !m.deadline.IsZero() {
		m.deadline = m.deadline.Add(d)
	}
	if !m.silenceUntil.IsZero() {
		m.silenceUntil = m.silenceUntil.Add(d)
	}
	if !m.rampStart.IsZero() {
		m.rampStart = m.rampStart.Add(d)
	}
	if !m.nextRepeatAt.IsZero() {
		m.nextRepeatAt = m.nextRepeatAt.Add(d)
	}
}

// Phase returns the current phase.
func (m *RuleMachine) Phase() Phase { return m.phase }

// RampStart returns the start of the current volume ramp. It changes on
// every alarm activation and repeat; the alert driver restarts playback
// whenever it observes a new value.
func (m *RuleMachine) RampStart() time.Time { return m.rampStart }

// Deadline returns the current scan deadline (meaningful while armed or
// silenced).
func (m *RuleMachine) Deadline() time.Time { return m.deadline }

// SilenceUntil returns the end of the active grace period, if any.
func (m *RuleMachine) SilenceUntil() time.Time { return m.silenceUntil }

// LastFiredAt returns the time of the latest alarm activation or repeat.
func (m *RuleMachine) LastFiredAt() time.Time { return m.lastFiredAt }

// Rule returns the machine's rule.
func (m *RuleMachine) Rule() Rule { return m.rule }
