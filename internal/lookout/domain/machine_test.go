package lookout

import (
	"testing"
	"time"
)

func machineRule() Rule {
	return Rule{
		Index:            0,
		MaxTime:          30 * time.Second,
		RepeatInterval:   5 * time.Second,
		SilenceAfterLook: 5 * time.Second,
	}
}

func eventTypes(events []Event) []string {
	types := make([]string, len(events))
	for i, ev := range events {
		types[i] = ev.Type
	}
	return types
}

func TestMachineIdleIgnoresUpdates(t *testing.T) {
	m := NewRuleMachine(machineRule())
	if events := m.Advance(at(0), ScanUpdate{Completed: true}); events != nil {
		t.Fatalf("idle machine produced events: %v", eventTypes(events))
	}
	if m.Phase() != PhaseIdle {
		t.Fatalf("phase = %v, want idle", m.Phase())
	}
}

func TestMachineFiresExactlyAtDeadline(t *testing.T) {
	m := NewRuleMachine(machineRule())
	m.Arm(at(0))

	if events := m.Advance(at(29999), ScanUpdate{}); len(events) != 0 {
		t.Fatalf("fired before the deadline: %v", eventTypes(events))
	}
	events := m.Advance(at(30000), ScanUpdate{})
	if len(events) != 1 || events[0].Type != EventAlarmSounding {
		t.Fatalf("events at deadline = %v, want [%s]", eventTypes(events), EventAlarmSounding)
	}
	if m.Phase() != PhaseSounding {
		t.Fatalf("phase = %v, want sounding", m.Phase())
	}
	if !m.RampStart().Equal(at(30000)) {
		t.Fatalf("ramp start = %v, want %v", m.RampStart(), at(30000))
	}
}

func TestMachineCompletionBeatsDeadlineOnSameTick(t *testing.T) {
	m := NewRuleMachine(machineRule())
	m.Arm(at(0))

	events := m.Advance(at(30000), ScanUpdate{Completed: true})
	if len(events) != 1 || events[0].Type != EventScanCompleted {
		t.Fatalf("events = %v, want [%s]", eventTypes(events), EventScanCompleted)
	}
	if m.Phase() != PhaseArmed {
		t.Fatalf("phase = %v, want armed", m.Phase())
	}
	if !m.Deadline().Equal(at(60000)) {
		t.Fatalf("new deadline = %v, want %v", m.Deadline(), at(60000))
	}
}

func TestMachineCompletionClearsActiveAlarm(t *testing.T) {
	m := NewRuleMachine(machineRule())
	m.Arm(at(0))
	m.Advance(at(30000), ScanUpdate{})

	events := m.Advance(at(31000), ScanUpdate{Completed: true})
	types := eventTypes(events)
	if len(types) != 2 || types[0] != EventAlarmCleared || types[1] != EventScanCompleted {
		t.Fatalf("events = %v, want [%s %s]", types, EventAlarmCleared, EventScanCompleted)
	}
	if m.Phase() != PhaseArmed {
		t.Fatalf("phase = %v, want armed", m.Phase())
	}
}

func TestMachineScanStartSilences(t *testing.T) {
	m := NewRuleMachine(machineRule())
	m.Arm(at(0))

	events := m.Advance(at(29000), ScanUpdate{Started: true})
	types := eventTypes(events)
	if len(types) != 2 || types[0] != EventScanStarted || types[1] != EventAlarmSilenced {
		t.Fatalf("events = %v, want [%s %s]", types, EventScanStarted, EventAlarmSilenced)
	}
	if m.Phase() != PhaseSilenced {
		t.Fatalf("phase = %v, want silenced", m.Phase())
	}
	// The original deadline passed during the grace period; once the grace
	// expires the alarm fires immediately.
	if events := m.Advance(at(33000), ScanUpdate{}); len(events) != 0 {
		t.Fatalf("fired inside the grace period: %v", eventTypes(events))
	}
	events = m.Advance(at(34000), ScanUpdate{})
	if len(events) != 1 || events[0].Type != EventAlarmSounding {
		t.Fatalf("events after grace = %v, want [%s]", eventTypes(events), EventAlarmSounding)
	}
}

func TestMachineFreshMotionExtendsGrace(t *testing.T) {
	m := NewRuleMachine(machineRule())
	m.Arm(at(0))
	m.Advance(at(10000), ScanUpdate{Started: true})

	// A second motion episode at 13s pushes the grace out to 18s.
	events := m.Advance(at(13000), ScanUpdate{Started: true})
	if len(events) != 1 || events[0].Type != EventScanStarted {
		t.Fatalf("events = %v, want [%s]", eventTypes(events), EventScanStarted)
	}
	if got := m.SilenceUntil(); !got.Equal(at(18000)) {
		t.Fatalf("silence until = %v, want %v", got, at(18000))
	}
}

func TestMachineRepeatCadence(t *testing.T) {
	m := NewRuleMachine(machineRule())
	m.Arm(at(0))
	m.Advance(at(30000), ScanUpdate{})

	if events := m.Advance(at(34000), ScanUpdate{}); len(events) != 0 {
		t.Fatalf("repeated early: %v", eventTypes(events))
	}
	events := m.Advance(at(35000), ScanUpdate{})
	if len(events) != 1 || events[0].Type != EventAlarmRepeat {
		t.Fatalf("events = %v, want [%s]", eventTypes(events), EventAlarmRepeat)
	}
	if !m.RampStart().Equal(at(35000)) {
		t.Fatalf("ramp start = %v, want restart at %v", m.RampStart(), at(35000))
	}
	events = m.Advance(at(40000), ScanUpdate{})
	if len(events) != 1 || events[0].Type != EventAlarmRepeat {
		t.Fatalf("second repeat events = %v", eventTypes(events))
	}
}

func TestMachineZeroRepeatIntervalDisablesRetrigger(t *testing.T) {
	rule := machineRule()
	rule.RepeatInterval = 0
	m := NewRuleMachine(rule)
	m.Arm(at(0))
	m.Advance(at(30000), ScanUpdate{})

	for _, offset := range []int{35000, 60000, 300000} {
		if events := m.Advance(at(offset), ScanUpdate{}); len(events) != 0 {
			t.Fatalf("repeat at %dms with zero interval: %v", offset, eventTypes(events))
		}
	}
	if m.Phase() != PhaseSounding {
		t.Fatalf("phase = %v, want sounding", m.Phase())
	}
}

func TestMachineShiftTimeDelaysDeadline(t *testing.T) {
	m := NewRuleMachine(machineRule())
	m.Arm(at(0))
	m.ShiftTime(10 * time.Second)

	if events := m.Advance(at(39000), ScanUpdate{}); len(events) != 0 {
		t.Fatalf("fired before the shifted deadline: %v", eventTypes(events))
	}
	events := m.Advance(at(40000), ScanUpdate{})
	if len(events) != 1 || events[0].Type != EventAlarmSounding {
		t.Fatalf("events = %v, want [%s]", eventTypes(events), EventAlarmSounding)
	}
}

func TestMachineShiftTimeWhileSounding(t *testing.T) {
	m := NewRuleMachine(machineRule())
	m.Arm(at(0))
	m.Advance(at(30000), ScanUpdate{})

	m.ShiftTime(10 * time.Second)
	if events := m.Advance(at(44000), ScanUpdate{}); len(events) != 0 {
		t.Fatalf("repeat fired inside the shifted interval: %v", eventTypes(events))
	}
	events := m.Advance(at(45000), ScanUpdate{})
	if len(events) != 1 || events[0].Type != EventAlarmRepeat {
		t.Fatalf("events = %v, want [%s]", eventTypes(events), EventAlarmRepeat)
	}
}
