package transcribe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/Marble879/simpletranscribe/internal/audio"
	"github.com/Marble879/simpletranscribe/internal/engine"
	"github.com/Marble879/simpletranscribe/internal/observe"
	"go.uber.org/zap"
)

var (
	ErrContextLoadFailed   = errors.New("inference context load failed")
	ErrAudioDecodeFailed   = errors.New("audio decode failed")
	ErrSessionCreateFailed = errors.New("inference session create failed")
	ErrInferenceFailed     = errors.New("inference failed")
	ErrClosed              = errors.New("transcriber is closed")
)

// ArtifactSource is anything that can name a model file on disk; *model.Store
// satisfies it.
type ArtifactSource interface {
	ArtifactPath() string
}

// Transcriber owns one loaded inference context and runs transcriptions
// against it, one inference at a time.
type Transcriber struct {
	modelPath string
	ctx       engine.Context
	loader    audio.Loader
	logger    *zap.Logger
	metrics   *observe.Metrics

	silenceGate bool
	silenceDBFS float64

	// slot holds a token while an inference runs on ctx.
	slot chan struct{}

	closeOnce sync.Once
	closed    chan struct{}
	closeErr  error
}

type Option func(*Transcriber)

func WithLoader(loader audio.Loader) Option {
	return func(t *Transcriber) { t.loader = loader }
}

func WithLogger(logger *zap.Logger) Option {
	return func(t *Transcriber) { t.logger = logger }
}

func WithMetrics(m *observe.Metrics) Option {
	return func(t *Transcriber) { t.metrics = m }
}

// WithSilenceGate skips inference when decoded audio stays below
// thresholdDBFS and returns an empty result instead.
func WithSilenceGate(thresholdDBFS float64) Option {
	return func(t *Transcriber) {
		t.silenceGate = true
		t.silenceDBFS = thresholdDBFS
	}
}

// New loads the inference context for src's artifact. A missing or rejected
// artifact fails with ErrContextLoadFailed; there is no partially built
// Transcriber.
func New(src ArtifactSource, eng engine.Engine, opts ...Option) (*Transcriber, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: no model artifact", ErrContextLoadFailed)
	}
	if eng == nil {
		return nil, fmt.Errorf("%w: no inference engine", ErrContextLoadFailed)
	}

	t := &Transcriber{
		modelPath: src.ArtifactPath(),
		slot:      make(chan struct{}, 1),
		closed:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.logger == nil {
		t.logger = zap.NewNop()
	}
	if t.loader == nil {
		t.loader = audio.NewAutoLoader(t.logger)
	}
	if t.metrics == nil {
		t.metrics = observe.Default()
	}

	info, err := os.Stat(t.modelPath)
	if err != nil {
		return nil, fmt.Errorf("%w: model %s: %w", ErrContextLoadFailed, t.modelPath, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: model %s is a directory", ErrContextLoadFailed, t.modelPath)
	}

	started := time.Now()
	ctx, err := eng.LoadContext(t.modelPath)
	if err != nil {
		return nil, fmt.Errorf("%w: model %s: %w", ErrContextLoadFailed, t.modelPath, err)
	}
	t.ctx = ctx

	t.logger.Debug("inference context loaded", zap.String("model", t.modelPath), zap.Duration("elapsed", time.Since(started)))
	return t, nil
}

func (t *Transcriber) ModelPath() string {
	return t.modelPath
}

// Transcribe decodes audioPath, runs one inference over it with params (or
// DefaultParams when params is nil) and aggregates the segments. Each call
// uses its own computation state; the first failure aborts the call.
func (t *Transcriber) Transcribe(ctx context.Context, audioPath string, params *Params) (Result, error) {
	started := time.Now()

	result, stage, err := t.transcribe(ctx, audioPath, params)
	if err != nil {
		t.metrics.RecordTranscribeError(ctx, stage)
		t.logger.Warn("transcription failed", zap.String("audio", audioPath), zap.String("stage", stage), zap.Duration("elapsed", time.Since(started)), zap.Error(err))
		return Result{}, err
	}

	elapsed := time.Since(started)
	t.metrics.RecordTranscription(ctx, len(result.segments), elapsed)
	t.logger.Debug("transcription finished",
		zap.String("audio", audioPath),
		zap.Int("segments", len(result.segments)),
		zap.Duration("elapsed", elapsed),
	)
	return result, nil
}

func (t *Transcriber) transcribe(ctx context.Context, audioPath string, params *Params) (Result, string, error) {
	if t.isClosed() {
		return Result{}, "closed", ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return Result{}, "decode", err
	}

	samples, err := t.loader.Load(ctx, audioPath)
	if err != nil {
		return Result{}, "decode", fmt.Errorf("%w: %s: %w", ErrAudioDecodeFailed, audioPath, err)
	}
	t.logger.Debug("audio decoded", zap.String("audio", audioPath), zap.Int("samples", len(samples)))

	if t.silenceGate {
		if silent, levels := audio.IsSilent(samples, t.silenceDBFS); silent {
			t.logger.Info("audio considered silent; skipping inference",
				zap.String("audio", audioPath),
				zap.Float64("rms_dbfs", levels.RMSdBFS),
				zap.Float64("peak_dbfs", levels.PeakdBFS),
				zap.Float64("threshold_dbfs", t.silenceDBFS),
			)
			return Result{}, "", nil
		}
	}

	// whisper.cpp aborts on a zero-length buffer, so an empty decode never
	// reaches the engine.
	if len(samples) == 0 {
		t.logger.Debug("audio is empty; skipping inference", zap.String("audio", audioPath))
		return newResult(nil), "", nil
	}

	selected := DefaultParams()
	if params != nil {
		selected = *params
	}

	release, err := t.acquireSlot(ctx)
	if err != nil {
		return Result{}, "wait", err
	}
	defer release()

	state, err := t.ctx.NewState()
	if err != nil {
		return Result{}, "session", fmt.Errorf("%w: %w", ErrSessionCreateFailed, err)
	}
	defer func() {
		if err := state.Close(); err != nil {
			t.logger.Warn("failed to release inference state", zap.Error(err))
		}
	}()

	if err := state.Full(selected, samples); err != nil {
		return Result{}, "inference", fmt.Errorf("%w: %s: %w", ErrInferenceFailed, audioPath, err)
	}

	n := state.SegmentCount()
	segments := make([]Segment, 0, n)
	for i := range n {
		seg, err := state.Segment(i)
		if err != nil {
			return Result{}, "inference", fmt.Errorf("%w: read segment %d: %w", ErrInferenceFailed, i, err)
		}
		segments = append(segments, seg)
	}

	return newResult(segments), "", nil
}

// acquireSlot waits for the single inference slot, giving up if ctx ends or
// the Transcriber is closed first.
func (t *Transcriber) acquireSlot(ctx context.Context) (func(), error) {
	select {
	case t.slot <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-t.closed:
		return nil, ErrClosed
	}

	if t.isClosed() {
		<-t.slot
		return nil, ErrClosed
	}
	return func() { <-t.slot }, nil
}

func (t *Transcriber) isClosed() bool {
	select {
	case <-t.closed:
		return true
	default:
		return false
	}
}

// Close waits for an in-flight inference to finish, then releases the
// context. It is safe to call more than once.
func (t *Transcriber) Close() error {
	t.closeOnce.Do(func() {
		close(t.closed)
		t.slot <- struct{}{}
		t.closeErr = t.ctx.Close()
	})
	return t.closeErr
}
