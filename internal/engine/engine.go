// Package engine describes the inference engine the transcriber drives.
//
// An Engine loads a Context from a model artifact once. Each transcription
// derives a fresh State from that Context, runs one full inference on it and
// reads the resulting segments back. A Context must outlive every State
// derived from it, and a State is never shared between runs.
package engine

import "io"

// SampleRate is the rate, in Hz, that State.Full expects its samples at.
const SampleRate = 16000

type Strategy int

const (
	Greedy Strategy = iota
	BeamSearch
)

func (s Strategy) String() string {
	switch s {
	case Greedy:
		return "greedy"
	case BeamSearch:
		return "beam-search"
	default:
		return "unknown"
	}
}

// Params tunes a single inference run. Zero numeric fields leave the
// engine's own default in place.
type Params struct {
	Strategy Strategy
	// BestOf is the number of greedy candidates to sample.
	BestOf int
	// BeamSize applies to BeamSearch only.
	BeamSize int
	// Language is an ISO 639-1 code; "" and "auto" ask the engine to detect it.
	Language      string
	Translate     bool
	Threads       uint
	InitialPrompt string
	Temperature   float32
}

// Segment is one timestamped span of recognised text. Start and End are in
// centiseconds from the beginning of the sample buffer.
type Segment struct {
	Start int64
	End   int64
	Text  string
}

type Engine interface {
	LoadContext(modelPath string) (Context, error)
}

type Context interface {
	io.Closer
	NewState() (State, error)
}

type State interface {
	io.Closer
	Full(params Params, samples []float32) error
	SegmentCount() int
	Segment(i int) (Segment, error)
}
