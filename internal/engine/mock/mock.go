// Package mock provides an in-memory [engine.Engine] for unit tests.
//
// The mock records every call and lets the test configure results through
// exported fields. It is safe for concurrent use.
//
//	eng := &mock.Engine{
//	    Segments: []engine.Segment{{Start: 0, End: 150, Text: " hello"}},
//	}
//	tr, err := transcribe.New(store, eng)
package mock

import (
	"sync"
	"time"

	"github.com/Marble879/simpletranscribe/internal/engine"
)

var (
	_ engine.Engine  = (*Engine)(nil)
	_ engine.Context = (*Context)(nil)
	_ engine.State   = (*State)(nil)
)

// FullCall records the arguments of a single State.Full call.
type FullCall struct {
	Params  engine.Params
	Samples int
}

type Engine struct {
	mu sync.Mutex

	// LoadError is returned by LoadContext.
	LoadError error

	// NewStateError is returned by Context.NewState.
	NewStateError error

	// FullError is returned by State.Full.
	FullError error

	// SegmentError is returned by State.Segment for every index.
	SegmentError error

	// Segments is the result of every successful Full call, unless
	// SegmentsFunc is set.
	Segments []engine.Segment

	// SegmentsFunc derives segments from the samples passed to Full.
	SegmentsFunc func(samples []float32) []engine.Segment

	// FullDelay makes Full block for the given duration.
	FullDelay time.Duration

	// LoadCalls records the model paths passed to LoadContext.
	LoadCalls []string

	// FullCalls records all Full invocations.
	FullCalls []FullCall

	// StatesCreated and StatesClosed count State lifecycle events.
	StatesCreated int
	StatesClosed  int

	// ContextsClosed counts Context.Close calls.
	ContextsClosed int

	// MaxInFlight is the highest number of concurrent Full calls observed.
	MaxInFlight int

	inFlight int
}

func (e *Engine) LoadContext(modelPath string) (engine.Context, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.LoadCalls = append(e.LoadCalls, modelPath)
	if e.LoadError != nil {
		return nil, e.LoadError
	}
	return &Context{engine: e}, nil
}

// Snapshot returns a copy of the recorded Full calls.
func (e *Engine) Snapshot() []FullCall {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]FullCall, len(e.FullCalls))
	copy(out, e.FullCalls)
	return out
}

type Context struct {
	engine *Engine
}

func (c *Context) NewState() (engine.State, error) {
	e := c.engine
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.NewStateError != nil {
		return nil, e.NewStateError
	}
	e.StatesCreated++
	return &State{engine: e}, nil
}

func (c *Context) Close() error {
	c.engine.mu.Lock()
	defer c.engine.mu.Unlock()

	c.engine.ContextsClosed++
	return nil
}

type State struct {
	engine   *Engine
	segments []engine.Segment
}

func (s *State) Full(params engine.Params, samples []float32) error {
	e := s.engine

	e.mu.Lock()
	e.FullCalls = append(e.FullCalls, FullCall{Params: params, Samples: len(samples)})
	e.inFlight++
	if e.inFlight > e.MaxInFlight {
		e.MaxInFlight = e.inFlight
	}
	delay := e.FullDelay
	fullErr := e.FullError
	segmentsFunc := e.SegmentsFunc
	segments := e.Segments
	e.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	e.mu.Lock()
	e.inFlight--
	e.mu.Unlock()

	if fullErr != nil {
		return fullErr
	}
	if segmentsFunc != nil {
		segments = segmentsFunc(samples)
	}
	s.segments = append([]engine.Segment(nil), segments...)
	return nil
}

func (s *State) SegmentCount() int {
	return len(s.segments)
}

func (s *State) Segment(i int) (engine.Segment, error) {
	s.engine.mu.Lock()
	segErr := s.engine.SegmentError
	s.engine.mu.Unlock()

	if segErr != nil {
		return engine.Segment{}, segErr
	}
	return s.segments[i], nil
}

func (s *State) Close() error {
	s.engine.mu.Lock()
	defer s.engine.mu.Unlock()

	s.engine.StatesClosed++
	return nil
}
