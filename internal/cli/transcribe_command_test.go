package cli

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/Marble879/simpletranscribe/internal/engine"
	"github.com/Marble879/simpletranscribe/internal/engine/mock"
	"github.com/Marble879/simpletranscribe/internal/transcribe"
	"github.com/stretchr/testify/require"
)

func helloEngine() *mock.Engine {
	return &mock.Engine{Segments: []engine.Segment{
		{Start: 0, End: 150, Text: " Hello"},
		{Start: 150, End: 320, Text: " world."},
	}}
}

func TestTranscribePrintsText(t *testing.T) {
	t.Parallel()

	modelDir := t.TempDir()
	writeModelFile(t, modelDir, "ggml-base")
	eng := helloEngine()

	stdout, _, err := runCommand(t, eng, []string{"transcribe", "--model-dir", modelDir, "--no-progress", writeToneWAV(t, 1)})
	require.NoError(t, err)
	require.Equal(t, "Hello world.\n", stdout)

	calls := eng.Snapshot()
	require.Len(t, calls, 1)
	require.Equal(t, transcribe.DefaultParams(), calls[0].Params)
	require.Equal(t, 16000, calls[0].Samples)
	require.Equal(t, 1, eng.ContextsClosed)
}

func TestTranscribeSegmentsOutput(t *testing.T) {
	t.Parallel()

	modelDir := t.TempDir()
	writeModelFile(t, modelDir, "ggml-base")

	stdout, _, err := runCommand(t, helloEngine(), []string{"transcribe", "--model-dir", modelDir, "--segments", writeToneWAV(t, 1)})
	require.NoError(t, err)
	require.Equal(t,
		"[00:00:00.00 - 00:00:01.50]: Hello\n"+
			"[00:00:01.50 - 00:00:03.20]: world.\n",
		stdout)
}

func TestTranscribeJSONOutput(t *testing.T) {
	t.Parallel()

	modelDir := t.TempDir()
	writeModelFile(t, modelDir, "ggml-base")

	stdout, _, err := runCommand(t, helloEngine(), []string{"transcribe", "--model-dir", modelDir, "--json", writeToneWAV(t, 1)})
	require.NoError(t, err)

	var got jsonResult
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	require.Equal(t, "base", got.Model)
	require.Equal(t, " Hello world.", got.Text)
	require.EqualValues(t, 0, got.Start)
	require.EqualValues(t, 320, got.End)
	require.Len(t, got.Segments, 2)
	require.Equal(t, " world.", got.Segments[1].Text)
}

func TestTranscribeJSONReportsCanonicalModel(t *testing.T) {
	t.Parallel()

	modelDir := t.TempDir()
	writeModelFile(t, modelDir, "ggml-tiny")

	stdout, _, err := runCommand(t, helloEngine(), []string{"transcribe", "--model", " TINY ", "--model-dir", modelDir, "--json", writeToneWAV(t, 1)})
	require.NoError(t, err)

	var got jsonResult
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	require.Equal(t, "tiny", got.Model)
}

func TestTranscribeForwardsDecodingFlags(t *testing.T) {
	t.Parallel()

	modelDir := t.TempDir()
	writeModelFile(t, modelDir, "ggml-small")
	eng := helloEngine()

	_, _, err := runCommand(t, eng, []string{
		"transcribe",
		"--model", "SMALL",
		"--model-dir", modelDir,
		"--language", "ZH",
		"--translate",
		"--threads", "2",
		"--beam-size", "5",
		"--prompt", "glossary: whisper",
		writeToneWAV(t, 1),
	})
	require.NoError(t, err)

	require.Equal(t, []string{filepath.Join(modelDir, "ggml-small.bin")}, eng.LoadCalls)
	calls := eng.Snapshot()
	require.Len(t, calls, 1)
	require.Equal(t, transcribe.Params{
		Strategy:      engine.BeamSearch,
		BestOf:        1,
		BeamSize:      5,
		Language:      "zh",
		Translate:     true,
		Threads:       2,
		InitialPrompt: "glossary: whisper",
	}, calls[0].Params)
}

func TestTranscribeMissingModelWithoutAutoDownload(t *testing.T) {
	t.Parallel()

	modelDir := t.TempDir()
	eng := helloEngine()

	_, _, err := runCommand(t, eng, []string{"transcribe", "--model", "tiny", "--model-dir", modelDir, "--auto-download=false", writeToneWAV(t, 1)})
	require.Error(t, err)
	require.Contains(t, err.Error(), "is missing at")
	require.Contains(t, err.Error(), "simpletranscribe setup --model tiny")
	require.Empty(t, eng.LoadCalls)
}

func TestTranscribeDownloadsMissingModel(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		require.Equal(t, "/ggml-tiny.bin", r.URL.Path)
		_, _ = w.Write([]byte("fake ggml weights"))
	}))
	defer srv.Close()

	modelDir := filepath.Join(t.TempDir(), "models")
	eng := helloEngine()

	stdout, _, err := runCommand(t, eng, []string{
		"transcribe", "--model", "tiny", "--model-dir", modelDir, "--base-url", srv.URL, "--no-progress", writeToneWAV(t, 1),
	})
	require.NoError(t, err)
	require.Equal(t, "Hello world.\n", stdout)
	require.EqualValues(t, 1, hits.Load())

	data, err := os.ReadFile(filepath.Join(modelDir, "ggml-tiny.bin"))
	require.NoError(t, err)
	require.Equal(t, "fake ggml weights", string(data))
}

func TestTranscribeEngineRejectsModel(t *testing.T) {
	t.Parallel()

	modelDir := t.TempDir()
	writeModelFile(t, modelDir, "ggml-base")
	eng := &mock.Engine{LoadError: os.ErrInvalid}

	_, _, err := runCommand(t, eng, []string{"transcribe", "--model-dir", modelDir, writeToneWAV(t, 1)})
	require.ErrorIs(t, err, transcribe.ErrContextLoadFailed)
}

func TestTranscribeUndecodableAudio(t *testing.T) {
	t.Parallel()

	modelDir := t.TempDir()
	writeModelFile(t, modelDir, "ggml-base")
	notAudio := filepath.Join(t.TempDir(), "notes.wav")
	require.NoError(t, os.WriteFile(notAudio, []byte("definitely not RIFF"), 0o644))

	eng := helloEngine()
	_, _, err := runCommand(t, eng, []string{"transcribe", "--model-dir", modelDir, notAudio})
	require.ErrorIs(t, err, transcribe.ErrAudioDecodeFailed)
	require.Empty(t, eng.Snapshot())
}

func TestTranscribeSilenceGate(t *testing.T) {
	t.Parallel()

	modelDir := t.TempDir()
	writeModelFile(t, modelDir, "ggml-base")

	eng := helloEngine()
	stdout, _, err := runCommand(t, eng, []string{"transcribe", "--model-dir", modelDir, writeSilentWAV(t, 1)})
	require.NoError(t, err)
	require.Equal(t, "\n", stdout)
	require.Empty(t, eng.Snapshot())

	eng = helloEngine()
	stdout, _, err = runCommand(t, eng, []string{"transcribe", "--model-dir", modelDir, "--silence-gate=false", writeSilentWAV(t, 1)})
	require.NoError(t, err)
	require.Equal(t, "Hello world.\n", stdout)
	require.Len(t, eng.Snapshot(), 1)
}

func TestTranscribeWithoutEngine(t *testing.T) {
	t.Parallel()

	_, _, err := runCommand(t, nil, []string{"transcribe", "--model-dir", t.TempDir(), writeToneWAV(t, 1)})
	require.Error(t, err)
	require.Contains(t, err.Error(), "no inference engine")
}
