// Package audio defines the playback contract the lookout engine drives.
// Decoding and device I/O live outside this process; the engine only needs
// play/stop and a volume knob, all bounded-latency.
package audio

// DefaultTone is the built-in asset substituted when a configured audio
// file is missing.
const DefaultTone = "default-tone"

// Sink plays a named audio asset at a given volume (0-100). Implementations
// must not block the caller beyond a bounded latency; errors are reported
// to the caller and never terminate playback state tracking.
type Sink interface {
	Play(asset string, volume int) error
	SetVolume(volume int) error
	Stop() error
}
