package audio

import (
	"log"
	"strings"
	"testing"
)

func TestConsoleSinkLogsCommands(t *testing.T) {
	var buf strings.Builder
	sink := NewConsoleSink(log.New(&buf, "", 0))

	if err := sink.Play("lookout.ogg", 50); err != nil {
		t.Fatalf("play: %v", err)
	}
	if err := sink.SetVolume(75); err != nil {
		t.Fatalf("set volume: %v", err)
	}
	if err := sink.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "play asset=lookout.ogg volume=50") {
		t.Fatalf("log output = %q, missing play line", out)
	}
	if !strings.Contains(out, "stop asset=lookout.ogg") {
		t.Fatalf("log output = %q, missing stop line", out)
	}
	// The bell follows the logger's writer, not stdout.
	if !strings.Contains(out, "\a") {
		t.Fatalf("log output = %q, missing bell", out)
	}
}

func TestConsoleSinkStopIdempotent(t *testing.T) {
	var buf strings.Builder
	sink := NewConsoleSink(log.New(&buf, "", 0))

	if err := sink.Stop(); err != nil {
		t.Fatalf("stop before play: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("stop before play logged %q", buf.String())
	}
}
