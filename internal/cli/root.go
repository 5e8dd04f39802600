package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/Marble879/simpletranscribe/internal/config"
	"github.com/Marble879/simpletranscribe/internal/engine"
	"github.com/Marble879/simpletranscribe/internal/logging"
	"github.com/Marble879/simpletranscribe/internal/model"
	"github.com/Marble879/simpletranscribe/internal/platform"
	"github.com/Marble879/simpletranscribe/internal/version"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/spf13/cobra"
)

type appState struct {
	verbose      bool
	jsonLogs     bool
	noProgress   bool
	configPath   string
	model        string
	modelDir     string
	language     string
	translate    bool
	threads      int
	baseURL      string
	autoDownload bool
	retries      int
	silenceGate  bool
	silenceDBFS  float64

	engine engine.Engine
	logger *zap.Logger
}

// NewRootCmd wires every subcommand to eng, the inference backend used by
// transcribe.
func NewRootCmd(eng engine.Engine) *cobra.Command {
	app := &appState{
		model:        string(model.Base),
		language:     "auto",
		baseURL:      model.DefaultBaseURL,
		autoDownload: true,
		retries:      1,
		silenceGate:  true,
		silenceDBFS:  -65,
		engine:       eng,
	}

	cmd := &cobra.Command{
		Use:           "simpletranscribe",
		Short:         "Transcribe audio files locally with whisper models",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version.Resolve(),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := logging.New(logging.Options{Verbose: app.verbose, JSON: app.jsonLogs})
			if err != nil {
				return fmt.Errorf("initialize logger: %w", err)
			}
			app.logger = logger

			if err := app.applyConfig(cmd); err != nil {
				return err
			}
			app.language = sanitizeLanguage(app.language)
			return nil
		},
	}

	cmd.SetVersionTemplate("{{.Name}} v{{.Version}}\n")

	bindLoggingFlags(cmd, app)
	bindModelFlags(cmd, app)

	cmd.AddCommand(newTranscribeCmd(app))
	cmd.AddCommand(newSetupCmd(app))
	cmd.AddCommand(newModelsCmd(app))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func bindLoggingFlags(cmd *cobra.Command, app *appState) {
	cmd.PersistentFlags().BoolVar(&app.verbose, "verbose", app.verbose, "Enable verbose logs")
	cmd.PersistentFlags().BoolVar(&app.jsonLogs, "log-json", app.jsonLogs, "Write logs as JSON")
	cmd.PersistentFlags().BoolVar(&app.noProgress, "no-progress", app.noProgress, "Disable progress indicators")
	cmd.PersistentFlags().StringVar(&app.configPath, "config", app.configPath, "Config file (default $XDG_CONFIG_HOME/simpletranscribe/config.yaml)")
}

func bindModelFlags(cmd *cobra.Command, app *appState) {
	cmd.PersistentFlags().StringVar(&app.model, "model", app.model, "Model name (tiny|base|small|medium|large)")
	cmd.PersistentFlags().StringVar(&app.modelDir, "model-dir", app.modelDir, "Directory where models are stored")
	cmd.PersistentFlags().StringVar(&app.baseURL, "base-url", app.baseURL, "Remote repository the models are downloaded from")
	cmd.PersistentFlags().IntVar(&app.retries, "retries", app.retries, "Download attempts before giving up")
}

// applyConfig fills every flag the user did not set from the config file. An
// explicit --config must exist; the default location is optional.
func (a *appState) applyConfig(cmd *cobra.Command) error {
	var (
		cfg *config.Config
		err error
	)
	if strings.TrimSpace(a.configPath) != "" {
		cfg, err = config.Load(a.configPath)
	} else {
		path, resolveErr := platform.ResolveConfigPath("")
		if resolveErr != nil {
			a.log().Debug("no default config location", zap.Error(resolveErr))
			return nil
		}
		cfg, err = config.LoadOptional(path)
	}
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	unset := func(name string) bool {
		f := flags.Lookup(name)
		return f == nil || !f.Changed
	}

	if cfg.Model != "" && unset("model") {
		a.model = cfg.Model
	}
	if cfg.ModelDir != "" && unset("model-dir") {
		a.modelDir = cfg.ModelDir
	}
	if cfg.Language != "" && unset("language") {
		a.language = cfg.Language
	}
	if cfg.Threads > 0 && unset("threads") {
		a.threads = cfg.Threads
	}
	if unset("translate") {
		a.translate = config.Bool(cfg.Translate, a.translate)
	}
	if cfg.BaseURL != "" && unset("base-url") {
		a.baseURL = cfg.BaseURL
	}
	if unset("auto-download") {
		a.autoDownload = config.Bool(cfg.AutoDownload, a.autoDownload)
	}
	return nil
}

func (a *appState) modelStorageDir() (string, error) {
	return platform.ResolveModelDir(a.modelDir)
}

func (a *appState) acquireOptions() []model.AcquireOption {
	return []model.AcquireOption{
		model.WithBaseURL(a.baseURL),
		model.WithLogger(a.log()),
		model.WithProgress(a.progressEnabled()),
		model.WithRetries(a.retries),
		model.WithUserAgent("simpletranscribe/" + version.Resolve()),
	}
}

func (a *appState) log() *zap.Logger {
	if a.logger == nil {
		return zap.NewNop()
	}
	return a.logger
}

func (a *appState) progressEnabled() bool {
	if a.noProgress {
		return false
	}
	return term.IsTerminal(int(os.Stderr.Fd()))
}

func sanitizeLanguage(input string) string {
	trimmed := strings.TrimSpace(strings.ToLower(input))
	if trimmed == "" {
		return "auto"
	}
	return trimmed
}
