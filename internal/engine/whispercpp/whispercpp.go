// Package whispercpp adapts the whisper.cpp CGO bindings to engine.Engine.
// The static library (libwhisper.a) and whisper.h must be reachable at link
// time through LIBRARY_PATH and C_INCLUDE_PATH.
package whispercpp

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Marble879/simpletranscribe/internal/engine"
	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
)

var (
	_ engine.Engine  = Engine{}
	_ engine.Context = (*modelContext)(nil)
	_ engine.State   = (*state)(nil)
)

// Engine loads ggml whisper models through whisper.cpp.
type Engine struct{}

func New() Engine {
	return Engine{}
}

func (Engine) LoadContext(modelPath string) (engine.Context, error) {
	if strings.TrimSpace(modelPath) == "" {
		return nil, errors.New("whispercpp: model path must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whispercpp: load model %q: %w", modelPath, err)
	}
	return &modelContext{model: model}, nil
}

type modelContext struct {
	model whisperlib.Model
}

// NewState creates a bindings context, which carries its own parameters but
// runs on the model's shared native state. Callers must not run two States
// of the same modelContext at once.
func (c *modelContext) NewState() (engine.State, error) {
	wctx, err := c.model.NewContext()
	if err != nil {
		return nil, fmt.Errorf("whispercpp: create context: %w", err)
	}
	return &state{ctx: wctx, multilingual: c.model.IsMultilingual()}, nil
}

func (c *modelContext) Close() error {
	if c.model == nil {
		return nil
	}
	err := c.model.Close()
	c.model = nil
	return err
}

type state struct {
	ctx          whisperlib.Context
	multilingual bool
	segments     []engine.Segment
}

func (s *state) Full(params engine.Params, samples []float32) error {
	s.segments = s.segments[:0]
	// The native Process indexes the first sample unconditionally.
	if len(samples) == 0 {
		return nil
	}

	if err := s.apply(params); err != nil {
		return err
	}

	if err := s.ctx.Process(samples, nil, nil, nil); err != nil {
		return fmt.Errorf("whispercpp: process audio: %w", err)
	}

	for {
		seg, err := s.ctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("whispercpp: read segment: %w", err)
		}
		s.segments = append(s.segments, engine.Segment{
			Start: centiseconds(seg.Start),
			End:   centiseconds(seg.End),
			Text:  seg.Text,
		})
	}
	return nil
}

// apply forwards params to the bindings. The bindings always decode with the
// greedy sampler and do not expose best-of, so BestOf is not forwarded and
// BeamSize only reaches the native parameter struct.
func (s *state) apply(params engine.Params) error {
	lang, err := resolveLanguage(params.Language, s.multilingual)
	if err != nil {
		return err
	}
	if lang != "" {
		if err := s.ctx.SetLanguage(lang); err != nil {
			return fmt.Errorf("whispercpp: set language %q: %w", lang, err)
		}
	}

	s.ctx.SetTranslate(params.Translate)

	if params.Threads > 0 {
		s.ctx.SetThreads(params.Threads)
	}
	if params.Strategy == engine.BeamSearch && params.BeamSize > 0 {
		s.ctx.SetBeamSize(params.BeamSize)
	}
	if params.Temperature > 0 {
		s.ctx.SetTemperature(params.Temperature)
	}
	if params.InitialPrompt != "" {
		s.ctx.SetInitialPrompt(params.InitialPrompt)
	}
	return nil
}

// resolveLanguage picks the code handed to SetLanguage. The bindings default
// every context to "en", so multilingual models get "auto" explicitly when no
// language was requested. English-only models reject SetLanguage entirely and
// return "" for any English or auto request.
func resolveLanguage(language string, multilingual bool) (string, error) {
	lang := strings.ToLower(strings.TrimSpace(language))
	if multilingual {
		if lang == "" {
			return "auto", nil
		}
		return lang, nil
	}
	switch lang {
	case "", "auto", "en":
		return "", nil
	default:
		return "", fmt.Errorf("whispercpp: model is English-only, cannot use language %q", lang)
	}
}

func (s *state) SegmentCount() int {
	return len(s.segments)
}

func (s *state) Segment(i int) (engine.Segment, error) {
	if i < 0 || i >= len(s.segments) {
		return engine.Segment{}, fmt.Errorf("whispercpp: segment index %d out of range [0, %d)", i, len(s.segments))
	}
	return s.segments[i], nil
}

func (s *state) Close() error {
	s.segments = nil
	s.ctx = nil
	return nil
}

// centiseconds converts bindings timestamps back to whisper.cpp's native
// 10 ms ticks.
func centiseconds(d time.Duration) int64 {
	return int64(d / (10 * time.Millisecond))
}
