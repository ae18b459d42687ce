// Command replay runs a recorded pose trace through the lookout engine and
// prints every emitted event, optionally writing a session report.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"quest-lookout/internal/headset"
	"quest-lookout/internal/journal"
	app "quest-lookout/internal/lookout/application"
	lookout "quest-lookout/internal/lookout/domain"
	"quest-lookout/internal/report"
	"quest-lookout/internal/settings"
)

func main() {
	tracePath := flag.String("trace", "", "path to pose trace CSV (t_ms,yaw_deg,pitch_deg)")
	settingsPath := flag.String("settings", "settings.yaml", "path to settings YAML")
	outPath := flag.String("out", "", "optional report output path (.pdf or .xlsx)")
	flag.Parse()

	if *tracePath == "" {
		fmt.Fprintln(os.Stderr, "usage: replay --trace path/to/trace.csv [--settings settings.yaml] [--out report.pdf]")
		os.Exit(2)
	}
	os.Exit(run(*tracePath, *settingsPath, *outPath))
}

func run(tracePath, settingsPath, outPath string) int {
	doc, err := settings.Load(settingsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load settings: %v\n", err)
		return 2
	}
	sampler, err := headset.LoadTrace(tracePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load trace: %v\n", err)
		return 2
	}
	if sampler.Len() == 0 {
		fmt.Fprintln(os.Stderr, "trace is empty")
		return 2
	}

	clock := &manualClock{}
	collector := &eventCollector{}
	logger := log.New(io.Discard, "", 0)

	engine, err := app.NewEngine(doc, sampler, nullSink{},
		app.WithClock(clock),
		app.WithNotifier(collector),
		app.WithLogger(logger),
		app.WithAssetChecker(func(string) bool { return true }),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "engine: %v\n", err)
		return 2
	}

	ctx := context.Background()
	first, _ := sampler.Peek()
	var last time.Time
	for {
		at, ok := sampler.Peek()
		if !ok {
			break
		}
		clock.Set(at)
		engine.Tick(ctx)
		last = at
	}
	engine.Shutdown()

	events := collector.Events()
	printEvents(events, first)

	if outPath != "" {
		if err := writeReport(outPath, first, last, events); err != nil {
			fmt.Fprintf(os.Stderr, "write report: %v\n", err)
			return 2
		}
		fmt.Printf("report written to %s\n", outPath)
	}
	return 0
}

func printEvents(events []lookout.Event, start time.Time) {
	fmt.Printf("%-12s| %-6s| %s\n", "Offset", "Rule", "Event")
	fmt.Printf("%-12s+%-7s+%s\n", "------------", "-------", "----------------")
	for _, ev := range events {
		rule := fmt.Sprintf("%d", ev.RuleIndex)
		if ev.RuleIndex < 0 {
			rule = "-"
		}
		fmt.Printf("%-12s| %-6s| %s\n", ev.At.Sub(start).String(), rule, ev.Type)
	}
	fmt.Printf("\nSummary: %d events\n", len(events))
}

func writeReport(path string, start, end time.Time, events []lookout.Event) error {
	session := journal.Session{ID: "replay", StartedAt: start, EndedAt: end}
	records := make([]journal.EventRecord, len(events))
	for i, ev := range events {
		records[i] = journal.EventRecord{
			SessionID: session.ID,
			RuleIndex: ev.RuleIndex,
			Type:      ev.Type,
			At:        ev.At,
			DYaw:      ev.DYaw,
			DPitch:    ev.DPitch,
		}
	}
	summary := report.Summarize(session, records)

	var payload []byte
	var err error
	switch {
	case strings.HasSuffix(path, ".xlsx"):
		payload, err = report.BuildSessionXLSX(summary, records)
	case strings.HasSuffix(path, ".pdf"):
		payload, err = report.BuildSessionPDF(summary, records)
	default:
		return fmt.Errorf("unsupported report extension: %s", path)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o644)
}

type manualClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *manualClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

type eventCollector struct {
	mu     sync.Mutex
	events []lookout.Event
}

func (c *eventCollector) Notify(_ context.Context, ev lookout.Event) {
	c.mu.Lock()
	c.events = append(c.events, ev)
	c.mu.Unlock()
}

func (c *eventCollector) Events() []lookout.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]lookout.Event(nil), c.events...)
}

type nullSink struct{}

func (nullSink) Play(string, int) error { return nil }
func (nullSink) SetVolume(int) error    { return nil }
func (nullSink) Stop() error            { return nil }
