package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/Marble879/simpletranscribe/internal/engine/mock"
	"github.com/stretchr/testify/require"
)

func TestRootCommandRegistersCoreFlags(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd(&mock.Engine{})

	require.NotNil(t, cmd.PersistentFlags().Lookup("model"))
	require.NotNil(t, cmd.PersistentFlags().Lookup("model-dir"))
	require.NotNil(t, cmd.PersistentFlags().Lookup("config"))
	require.NotNil(t, cmd.PersistentFlags().Lookup("no-progress"))
	require.Equal(t, "base", cmd.PersistentFlags().Lookup("model").DefValue)
	require.Equal(t, "1", cmd.PersistentFlags().Lookup("retries").DefValue)

	transcribeCmd, _, err := cmd.Find([]string{"transcribe"})
	require.NoError(t, err)
	for _, name := range []string{"language", "translate", "threads", "beam-size", "prompt", "segments", "json", "auto-download", "silence-gate"} {
		require.NotNil(t, transcribeCmd.Flags().Lookup(name), name)
	}
	require.Equal(t, "auto", transcribeCmd.Flags().Lookup("language").DefValue)
	require.Equal(t, "true", transcribeCmd.Flags().Lookup("auto-download").DefValue)
	require.Equal(t, "-65", transcribeCmd.Flags().Lookup("silence-threshold-dbfs").DefValue)
}

func TestRootHelpParsesSuccessfully(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd(&mock.Engine{})
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs([]string{"--help"})

	err := cmd.Execute()
	require.NoError(t, err)
	require.Contains(t, out.String(), "transcribe")
	require.Contains(t, out.String(), "setup")
	require.Contains(t, out.String(), "models")
}

func TestSubcommandHelpParsesSuccessfully(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		args     []string
		contains string
	}{
		{name: "transcribe", args: []string{"transcribe", "--help"}, contains: "Transcribe an audio file"},
		{name: "setup", args: []string{"setup", "--help"}, contains: "Download the speech model"},
		{name: "models", args: []string{"models", "--help"}, contains: "List known models"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cmd := NewRootCmd(&mock.Engine{})
			out := new(bytes.Buffer)
			cmd.SetOut(out)
			cmd.SetErr(out)
			cmd.SetArgs(tt.args)

			err := cmd.Execute()
			require.NoError(t, err)
			require.Contains(t, out.String(), tt.contains)
		})
	}
}

func TestConfigFileFillsUnsetFlags(t *testing.T) {
	t.Parallel()

	modelDir := t.TempDir()
	writeModelFile(t, modelDir, "ggml-tiny")

	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(
		"model: tiny\nmodel_dir: "+modelDir+"\nlanguage: fr\nthreads: 3\nauto_download: false\n",
	), 0o644))

	eng := &mock.Engine{}
	_, _, err := runCommand(t, eng, []string{
		"transcribe", "--config", cfgPath, "--language", "de", "--no-progress", writeToneWAV(t, 1),
	})
	require.NoError(t, err)

	require.Equal(t, []string{filepath.Join(modelDir, "ggml-tiny.bin")}, eng.LoadCalls)
	calls := eng.Snapshot()
	require.Len(t, calls, 1)
	require.Equal(t, "de", calls[0].Params.Language)
	require.EqualValues(t, 3, calls[0].Params.Threads)
}

func TestSanitizeLanguage(t *testing.T) {
	t.Parallel()

	require.Equal(t, "auto", sanitizeLanguage(""))
	require.Equal(t, "auto", sanitizeLanguage("   "))
	require.Equal(t, "en", sanitizeLanguage("en"))
	require.Equal(t, "en", sanitizeLanguage(" EN "))
	require.Equal(t, "de", sanitizeLanguage("De"))
}
