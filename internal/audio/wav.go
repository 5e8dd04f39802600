package audio

import (
	"context"
	"fmt"
	"os"

	"github.com/Marble879/simpletranscribe/internal/engine"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"go.uber.org/zap"
)

const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
)

// WAVLoader decodes integer PCM WAV files. Channels are averaged down to
// mono; the sample rate is passed through untouched, so a file that is not
// 16 kHz decodes fine but transcribes poorly.
type WAVLoader struct {
	Logger *zap.Logger
}

func NewWAVLoader(logger *zap.Logger) *WAVLoader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WAVLoader{Logger: logger}
}

func (l *WAVLoader) Load(ctx context.Context, path string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open wav: %w", err)
	}
	defer f.Close()

	// ReadInfo rather than IsValidFile: the latter rejects a zero-length
	// data chunk, which is a valid (empty) recording.
	dec := wav.NewDecoder(f)
	dec.ReadInfo()
	if err := dec.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidAudio, path, err)
	}
	if dec.NumChans < 1 || dec.SampleRate == 0 {
		return nil, fmt.Errorf("%w: %s is not a RIFF/WAVE file", ErrInvalidAudio, path)
	}

	if dec.WavAudioFormat != wavFormatPCM && dec.WavAudioFormat != wavFormatExtensible {
		return nil, fmt.Errorf("%w: wav encoding %d", ErrUnsupportedFormat, dec.WavAudioFormat)
	}
	switch dec.BitDepth {
	case 8, 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: %d-bit wav", ErrUnsupportedFormat, dec.BitDepth)
	}
	// The riff parser drops the extensible sub-format GUID, and 32-bit
	// extensible files are almost always IEEE float, which would decode
	// as integer noise here.
	if dec.WavAudioFormat == wavFormatExtensible && dec.BitDepth == 32 {
		return nil, fmt.Errorf("%w: 32-bit extensible wav", ErrUnsupportedFormat)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: read wav data: %w", ErrInvalidAudio, err)
	}
	if buf == nil {
		return nil, fmt.Errorf("%w: %s has no data chunk", ErrInvalidAudio, path)
	}

	if dec.SampleRate != engine.SampleRate {
		l.log().Warn("wav sample rate differs from engine rate; transcription quality may suffer",
			zap.String("audio", path),
			zap.Uint32("sample_rate", dec.SampleRate),
			zap.Int("expected", engine.SampleRate),
		)
	}

	return toMonoFloat32(buf, int(dec.NumChans), int(dec.BitDepth)), nil
}

func (l *WAVLoader) log() *zap.Logger {
	if l.Logger == nil {
		return zap.NewNop()
	}
	return l.Logger
}

// toMonoFloat32 normalises integer samples to [-1, 1] and averages
// interleaved channels into one.
func toMonoFloat32(buf *goaudio.IntBuffer, channels, bitDepth int) []float32 {
	if channels < 1 {
		channels = 1
	}

	scale := float32(int64(1) << (bitDepth - 1))
	frames := len(buf.Data) / channels
	mono := make([]float32, frames)

	for i := range frames {
		var sum float32
		for ch := range channels {
			v := buf.Data[i*channels+ch]
			if bitDepth == 8 {
				// 8-bit WAV is unsigned with a 128 midpoint.
				v -= 128
			}
			sum += float32(v) / scale
		}
		mono[i] = sum / float32(channels)
	}

	return mono
}
