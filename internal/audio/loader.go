package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

var (
	ErrUnsupportedFormat  = errors.New("unsupported audio format")
	ErrInvalidAudio       = errors.New("invalid audio file")
	ErrDecoderUnavailable = errors.New("audio decoder unavailable")
)

// Loader decodes an audio file into mono float32 samples in [-1, 1] at
// engine.SampleRate.
type Loader interface {
	Load(ctx context.Context, path string) ([]float32, error)
}

// AutoLoader decodes RIFF/WAVE files natively and hands every other
// container to ffmpeg. WAV encodings the native decoder rejects also fall
// back to ffmpeg when it is installed.
type AutoLoader struct {
	WAV    *WAVLoader
	FFmpeg *FFmpegLoader
	Logger *zap.Logger
}

func NewAutoLoader(logger *zap.Logger) *AutoLoader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AutoLoader{
		WAV:    NewWAVLoader(logger),
		FFmpeg: NewFFmpegLoader(logger),
		Logger: logger,
	}
}

func (l *AutoLoader) Load(ctx context.Context, path string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkReadable(path); err != nil {
		return nil, err
	}

	if isWAV(path) {
		samples, err := l.WAV.Load(ctx, path)
		if err == nil {
			return samples, nil
		}
		if !errors.Is(err, ErrUnsupportedFormat) || !l.FFmpeg.Available() {
			return nil, err
		}
		l.log().Debug("native wav decoder rejected file; falling back to ffmpeg", zap.String("audio", path), zap.Error(err))
	}

	return l.FFmpeg.Load(ctx, path)
}

func (l *AutoLoader) log() *zap.Logger {
	if l.Logger == nil {
		return zap.NewNop()
	}
	return l.Logger
}

func isWAV(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".wav" || ext == ".wave"
}

func checkReadable(path string) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("audio path is required")
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("audio file %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrInvalidAudio, path)
	}
	return nil
}
