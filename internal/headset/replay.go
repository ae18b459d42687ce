package headset

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	lookout "quest-lookout/internal/lookout/domain"
)

// ReplaySampler plays back a recorded pose trace. Each Sample call returns
// the next row. Traces are CSV with columns t_ms,yaw_deg,pitch_deg; a row
// with an empty yaw marks a sensor dropout at that instant.
type ReplaySampler struct {
	samples []traceRow
	pos     int
}

type traceRow struct {
	sample      lookout.Sample
	unavailable bool
}

// ErrTraceExhausted is returned once every trace row has been consumed.
var ErrTraceExhausted = fmt.Errorf("headset: pose trace exhausted")

// LoadTrace reads a pose trace file. A header row is optional.
func LoadTrace(path string) (*ReplaySampler, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open trace: %w", err)
	}
	defer f.Close()
	return ParseTrace(f)
}

// ParseTrace reads trace rows from r.
func ParseTrace(r io.Reader) (*ReplaySampler, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	var rows []traceRow
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read trace: %w", err)
		}
		line++
		if len(record) < 3 {
			return nil, fmt.Errorf("trace line %d: want 3 columns, got %d", line, len(record))
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(record[0]), "t_ms") {
			continue // header
		}
		ms, err := strconv.ParseInt(record[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("trace line %d: bad timestamp: %w", line, err)
		}
		at := time.UnixMilli(ms)
		if record[1] == "" {
			rows = append(rows, traceRow{sample: lookout.Sample{At: at}, unavailable: true})
			continue
		}
		yaw, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			return nil, fmt.Errorf("trace line %d: bad yaw: %w", line, err)
		}
		pitch, err := strconv.ParseFloat(record[2], 64)
		if err != nil {
			return nil, fmt.Errorf("trace line %d: bad pitch: %w", line, err)
		}
		rows = append(rows, traceRow{sample: lookout.Sample{At: at, Yaw: yaw, Pitch: pitch}})
	}
	return &ReplaySampler{samples: rows}, nil
}

// Sample returns the next trace row.
func (s *ReplaySampler) Sample(_ context.Context) (lookout.Sample, error) {
	if s.pos >= len(s.samples) {
		return lookout.Sample{}, ErrTraceExhausted
	}
	row := s.samples[s.pos]
	s.pos++
	if row.unavailable {
		return lookout.Sample{}, ErrSensorUnavailable
	}
	return row.sample, nil
}

// Peek returns the timestamp of the next row without consuming it.
func (s *ReplaySampler) Peek() (time.Time, bool) {
	if s.pos >= len(s.samples) {
		return time.Time{}, false
	}
	return s.samples[s.pos].sample.At, true
}

// Len returns the number of trace rows.
func (s *ReplaySampler) Len() int { return len(s.samples) }
