package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/Marble879/simpletranscribe/internal/engine"
	"go.uber.org/zap"
)

// FFmpegPathEnv overrides the ffmpeg executable used for non-WAV input.
const FFmpegPathEnv = "SIMPLETRANSCRIBE_FFMPEG_PATH"

// FFmpegLoader shells out to ffmpeg and asks it for raw little-endian float32
// mono samples at the engine rate on stdout.
type FFmpegLoader struct {
	Executable string
	Logger     *zap.Logger
}

func NewFFmpegLoader(logger *zap.Logger) *FFmpegLoader {
	if logger == nil {
		logger = zap.NewNop()
	}
	exe := strings.TrimSpace(os.Getenv(FFmpegPathEnv))
	if exe == "" {
		exe = "ffmpeg"
	}
	return &FFmpegLoader{Executable: exe, Logger: logger}
}

func (l *FFmpegLoader) Available() bool {
	_, err := exec.LookPath(l.Executable)
	return err == nil
}

func (l *FFmpegLoader) Load(ctx context.Context, path string) ([]float32, error) {
	if err := checkReadable(path); err != nil {
		return nil, err
	}

	exe, err := exec.LookPath(l.Executable)
	if err != nil {
		return nil, fmt.Errorf("%w: ffmpeg not found (%s); install ffmpeg or set %s", ErrDecoderUnavailable, l.Executable, FFmpegPathEnv)
	}

	args := buildFFmpegArgs(path)
	cmd := exec.CommandContext(ctx, exe, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	l.log().Debug("decoding audio with ffmpeg", zap.String("ffmpeg", exe), zap.Strings("args", args))
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: ffmpeg: %w (%s)", ErrInvalidAudio, err, strings.TrimSpace(stderr.String()))
	}

	return decodeFloat32LE(stdout.Bytes())
}

func (l *FFmpegLoader) log() *zap.Logger {
	if l.Logger == nil {
		return zap.NewNop()
	}
	return l.Logger
}

func buildFFmpegArgs(path string) []string {
	return []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "error",
		"-i", path,
		"-vn",
		"-ac", "1",
		"-ar", strconv.Itoa(engine.SampleRate),
		"-f", "f32le",
		"pipe:1",
	}
}

func decodeFloat32LE(raw []byte) ([]float32, error) {
	if len(raw)%4 != 0 {
		return nil, fmt.Errorf("%w: decoder produced %d bytes, not a whole number of float32 samples", ErrInvalidAudio, len(raw))
	}

	samples := make([]float32, len(raw)/4)
	for i := range samples {
		samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return samples, nil
}
