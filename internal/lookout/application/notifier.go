package application

import (
	"context"
	"log"

	lookout "quest-lookout/internal/lookout/domain"
)

// Notifier consumes engine events. Implementations must not block the
// tick; slow consumers buffer or drop.
type Notifier interface {
	Notify(ctx context.Context, event lookout.Event)
}

// MultiNotifier fans an event out to several notifiers.
type MultiNotifier struct {
	notifiers []Notifier
}

// NewMultiNotifier combines notifiers; nil entries are skipped.
func NewMultiNotifier(notifiers ...Notifier) *MultiNotifier {
	var kept []Notifier
	for _, n := range notifiers {
		if n != nil {
			kept = append(kept, n)
		}
	}
	return &MultiNotifier{notifiers: kept}
}

// Notify implements Notifier.
func (m *MultiNotifier) Notify(ctx context.Context, event lookout.Event) {
	if m == nil {
		return
	}
	for _, n := range m.notifiers {
		n.Notify(ctx, event)
	}
}

// LogNotifier writes events to a logger.
type LogNotifier struct {
	logger *log.Logger
}

// NewLogNotifier constructs a logging notifier.
func NewLogNotifier(logger *log.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify implements Notifier.
func (n *LogNotifier) Notify(_ context.Context, event lookout.Event) {
	if n == nil || n.logger == nil {
		return
	}
	if event.RuleIndex < 0 {
		n.logger.Printf("engine %s", event.Type)
		return
	}
	n.logger.Printf("rule %d %s phase=%s dyaw=%.1f dpitch=%.1f",
		event.RuleIndex, event.Type, event.Phase, event.DYaw, event.DPitch)
}
