package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Marble879/simpletranscribe/internal/engine"
	"github.com/Marble879/simpletranscribe/internal/model"
	"github.com/Marble879/simpletranscribe/internal/transcribe"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type transcribeFlags struct {
	beamSize int
	prompt   string
	segments bool
	json     bool
}

func newTranscribeCmd(app *appState) *cobra.Command {
	var flags transcribeFlags

	cmd := &cobra.Command{
		Use:   "transcribe <audio-file>",
		Short: "Transcribe an audio file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := app.transcribeParams(cmd, flags)

			result, modelID, err := app.transcribeAudio(cmd.Context(), args[0], params)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch {
			case flags.json:
				if err := writeJSON(out, string(modelID), result); err != nil {
					return err
				}
			case flags.segments:
				writeSegments(out, result)
			default:
				fmt.Fprintln(out, transcriptText(result))
			}

			if isBlankTranscript(result.Text()) {
				app.log().Warn(noSpeechHint())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&app.language, "language", app.language, "Language code (auto|en|de|...) for transcription")
	cmd.Flags().BoolVar(&app.translate, "translate", app.translate, "Translate the transcript to English")
	cmd.Flags().IntVar(&app.threads, "threads", app.threads, "Inference threads; 0 lets the engine decide")
	cmd.Flags().BoolVar(&app.autoDownload, "auto-download", app.autoDownload, "Automatically download missing models")
	cmd.Flags().BoolVar(&app.silenceGate, "silence-gate", app.silenceGate, "Detect near-silent audio and skip inference")
	cmd.Flags().Float64Var(&app.silenceDBFS, "silence-threshold-dbfs", app.silenceDBFS, "Silence gate threshold in dBFS")
	cmd.Flags().IntVar(&flags.beamSize, "beam-size", 0, "Use beam search with this many beams instead of greedy decoding")
	cmd.Flags().StringVar(&flags.prompt, "prompt", "", "Initial prompt to condition the decoder")
	cmd.Flags().BoolVar(&flags.segments, "segments", false, "Print one timestamped line per segment")
	cmd.Flags().BoolVar(&flags.json, "json", false, "Print the result as JSON")
	cmd.MarkFlagsMutuallyExclusive("segments", "json")
	return cmd
}

// transcribeParams returns nil, meaning engine defaults, unless a decoding
// option was requested.
func (a *appState) transcribeParams(cmd *cobra.Command, flags transcribeFlags) *transcribe.Params {
	changed := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}
	if a.language == "auto" && !a.translate && a.threads <= 0 && flags.prompt == "" && !changed("beam-size") {
		return nil
	}

	params := transcribe.DefaultParams()
	if a.language != "auto" {
		params.Language = a.language
	}
	params.Translate = a.translate
	if a.threads > 0 {
		params.Threads = uint(a.threads)
	}
	if flags.beamSize > 0 {
		params.Strategy = engine.BeamSearch
		params.BeamSize = flags.beamSize
	}
	params.InitialPrompt = flags.prompt
	return &params
}

func (a *appState) transcribeAudio(ctx context.Context, audioPath string, params *transcribe.Params) (transcribe.Result, model.ID, error) {
	audioPath = filepath.Clean(audioPath)
	if _, err := os.Stat(audioPath); err != nil {
		return transcribe.Result{}, "", fmt.Errorf("audio file not found: %w", err)
	}
	if a.engine == nil {
		return transcribe.Result{}, "", errors.New("no inference engine available in this build")
	}

	store, err := a.ensureModelAvailable(ctx)
	if err != nil {
		return transcribe.Result{}, "", err
	}

	opts := []transcribe.Option{transcribe.WithLogger(a.log())}
	if a.silenceGate {
		opts = append(opts, transcribe.WithSilenceGate(a.silenceDBFS))
	}

	started := time.Now()
	tr, err := transcribe.New(store, a.engine, opts...)
	if err != nil {
		return transcribe.Result{}, "", err
	}
	defer tr.Close()
	a.log().Debug("model loaded", zap.String("model", store.ArtifactPath()), zap.Duration("elapsed", time.Since(started)))

	a.log().Info("transcribing...", zap.String("audio", audioPath), zap.String("model", string(store.ID())), zap.String("language", a.language))
	stopSpinner := startSpinner(a.progressEnabled(), "Transcribing")
	started = time.Now()

	result, err := tr.Transcribe(ctx, audioPath, params)
	stopSpinner()
	if err != nil {
		return transcribe.Result{}, "", err
	}
	a.log().Info("transcription finished", zap.Duration("elapsed", time.Since(started)), zap.Int("segments", len(result.Segments())))

	return result, store.ID(), nil
}

func (a *appState) ensureModelAvailable(ctx context.Context) (*model.Store, error) {
	modelDir, err := a.modelStorageDir()
	if err != nil {
		return nil, err
	}

	present, err := model.Present(a.model, modelDir)
	if err != nil {
		return nil, err
	}
	if !present && !a.autoDownload {
		path, _ := model.ArtifactPath(a.model, modelDir)
		return nil, fmt.Errorf("model %q is missing at %s; run `simpletranscribe setup --model %s` or use --auto-download=true", a.model, path, a.model)
	}

	return model.Acquire(ctx, a.model, modelDir, a.acquireOptions()...)
}
