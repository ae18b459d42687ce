package audio

import (
	"io"
	"log"
	"os"
	"sync"
)

// ConsoleSink renders audio commands as log lines plus a terminal bell on
// each activation. It stands in for a real playback backend and is safe
// for use from a single engine loop plus Stop at shutdown.
type ConsoleSink struct {
	mu      sync.Mutex
	logger  *log.Logger
	writer  io.Writer
	playing bool
	asset   string
	volume  int
}

// NewConsoleSink constructs a sink writing to logger. The terminal bell
// goes to the logger's writer so redirected logs do not leak to stdout.
func NewConsoleSink(logger *log.Logger) *ConsoleSink {
	if logger == nil {
		logger = log.New(os.Stdout, "", log.LstdFlags)
	}
	return &ConsoleSink{logger: logger, writer: logger.Writer()}
}

// Play starts the named asset at the given volume.
func (s *ConsoleSink) Play(asset string, volume int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = true
	s.asset = asset
	s.volume = volume
	s.logger.Printf("audio play asset=%s volume=%d", asset, volume)
	_, _ = s.writer.Write([]byte{'\a'})
	return nil
}

// SetVolume adjusts the volume of the active asset.
func (s *ConsoleSink) SetVolume(volume int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.playing {
		return nil
	}
	s.volume = volume
	return nil
}

// Stop silences the sink.
func (s *ConsoleSink) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.playing {
		return nil
	}
	s.playing = false
	s.logger.Printf("audio stop asset=%s", s.asset)
	return nil
}
