package transcribe

import (
	"fmt"
	"strings"

	"github.com/Marble879/simpletranscribe/internal/engine"
)

type Segment = engine.Segment

// Result is the outcome of one Transcribe call. Timestamps are centiseconds.
type Result struct {
	text     string
	start    int64
	end      int64
	segments []Segment
}

// newResult concatenates segment text in emission order and takes the start
// of the first and the end of the last segment. No segments yields "", 0, 0.
func newResult(segments []Segment) Result {
	if len(segments) == 0 {
		return Result{}
	}

	var text strings.Builder
	for _, seg := range segments {
		text.WriteString(seg.Text)
	}

	return Result{
		text:     text.String(),
		start:    segments[0].Start,
		end:      segments[len(segments)-1].End,
		segments: segments,
	}
}

func (r Result) Text() string { return r.text }

func (r Result) StartTimestamp() int64 { return r.start }

func (r Result) EndTimestamp() int64 { return r.end }

// Segments returns a copy of the per-segment breakdown.
func (r Result) Segments() []Segment {
	out := make([]Segment, len(r.segments))
	copy(out, r.segments)
	return out
}

// FormatTimestamp renders centiseconds as HH:MM:SS.cc.
func FormatTimestamp(cs int64) string {
	if cs < 0 {
		cs = 0
	}
	hours := cs / 360000
	minutes := (cs / 6000) % 60
	seconds := (cs / 100) % 60
	return fmt.Sprintf("%02d:%02d:%02d.%02d", hours, minutes, seconds, cs%100)
}
