package model

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Marble879/simpletranscribe/internal/download"
	"github.com/Marble879/simpletranscribe/internal/observe"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DefaultBaseURL hosts the ggml whisper artifacts.
const DefaultBaseURL = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main"

const artifactExt = ".bin"

var ErrModelAcquisitionFailed = errors.New("model acquisition failed")

// Store is a model artifact resident on disk. It is immutable once Acquire
// returns it.
type Store struct {
	id           ID
	artifactName string
	dir          string
	path         string
}

func (s *Store) ID() ID { return s.id }

func (s *Store) ArtifactName() string { return s.artifactName }

func (s *Store) Dir() string { return s.dir }

// ArtifactPath is the file to hand to the inference engine.
func (s *Store) ArtifactPath() string { return s.path }

type acquireConfig struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
	progress   bool
	retries    int
	userAgent  string
	metrics    *observe.Metrics
}

type AcquireOption func(*acquireConfig)

func WithBaseURL(url string) AcquireOption {
	return func(c *acquireConfig) { c.baseURL = strings.TrimRight(url, "/") }
}

func WithHTTPClient(client *http.Client) AcquireOption {
	return func(c *acquireConfig) { c.httpClient = client }
}

func WithLogger(logger *zap.Logger) AcquireOption {
	return func(c *acquireConfig) { c.logger = logger }
}

// WithProgress renders a progress bar on stderr while downloading, if stderr
// is a terminal.
func WithProgress(enabled bool) AcquireOption {
	return func(c *acquireConfig) { c.progress = enabled }
}

// WithRetries sets the total number of download attempts. The default is a
// single attempt.
func WithRetries(n int) AcquireOption {
	return func(c *acquireConfig) { c.retries = n }
}

func WithUserAgent(ua string) AcquireOption {
	return func(c *acquireConfig) { c.userAgent = ua }
}

func WithMetrics(m *observe.Metrics) AcquireOption {
	return func(c *acquireConfig) { c.metrics = m }
}

// ArtifactPath returns where the artifact for id lives under dir, without
// touching the filesystem.
func ArtifactPath(id, dir string) (string, error) {
	artifact, err := Resolve(id)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, artifact+artifactExt), nil
}

// Present reports whether the artifact for id already sits under dir.
func Present(id, dir string) (bool, error) {
	path, err := ArtifactPath(id, dir)
	if err != nil {
		return false, err
	}
	return artifactPresent(path)
}

// fetches coalesces concurrent downloads of the same artifact path.
var fetches singleflight.Group

// Acquire guarantees the artifact for id exists under dir, downloading it on
// first use. An existing non-empty file is trusted as-is: no hashing and no
// network request.
func Acquire(ctx context.Context, id, dir string, opts ...AcquireOption) (*Store, error) {
	cfg := acquireConfig{
		baseURL: DefaultBaseURL,
		retries: 1,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}
	if cfg.metrics == nil {
		cfg.metrics = observe.Default()
	}

	modelID, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	entry := catalog[modelID]

	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("%w: model directory must not be empty", ErrModelAcquisitionFailed)
	}

	store := &Store{
		id:           modelID,
		artifactName: entry.ArtifactName,
		dir:          dir,
		path:         filepath.Join(dir, entry.ArtifactName+artifactExt),
	}

	present, err := artifactPresent(store.path)
	if err != nil {
		cfg.metrics.RecordAcquisition(ctx, string(modelID), observe.OutcomeFailed)
		return nil, fmt.Errorf("%w: model %q: stat %s: %w", ErrModelAcquisitionFailed, modelID, store.path, err)
	}
	if present {
		cfg.logger.Debug("model already present", zap.String("model", string(modelID)), zap.String("path", store.path))
		cfg.metrics.RecordAcquisition(ctx, string(modelID), observe.OutcomeCached)
		return store, nil
	}

	outcome, err := acquireShared(ctx, cfg, store)
	cfg.metrics.RecordAcquisition(ctx, string(modelID), outcome)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// acquireShared joins or starts the one in-flight fetch for store.path and
// reports the acquisition outcome. The fetch runs under the ctx of the caller
// that started it, but every caller stops waiting as soon as its own ctx
// ends.
func acquireShared(ctx context.Context, cfg acquireConfig, store *Store) (string, error) {
	for {
		started := false
		ch := fetches.DoChan(store.path, func() (any, error) {
			started = true
			// Another caller may have finished the same fetch between our
			// stat and entering the group.
			if ok, _ := artifactPresent(store.path); ok {
				cfg.logger.Debug("model appeared while waiting", zap.String("model", string(store.id)), zap.String("path", store.path))
				return observe.OutcomeCached, nil
			}
			if err := fetch(ctx, cfg, store); err != nil {
				return observe.OutcomeFailed, err
			}
			return observe.OutcomeDownloaded, nil
		})

		select {
		case <-ctx.Done():
			return observe.OutcomeFailed, fmt.Errorf("%w: model %q: %w", ErrModelAcquisitionFailed, store.id, ctx.Err())
		case res := <-ch:
			if res.Err == nil {
				outcome, _ := res.Val.(string)
				return outcome, nil
			}
			// The caller that owned the fetch gave up; try again under ours.
			if !started && isContextErr(res.Err) && ctx.Err() == nil {
				continue
			}
			return observe.OutcomeFailed, res.Err
		}
	}
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func fetch(ctx context.Context, cfg acquireConfig, store *Store) error {
	url := cfg.baseURL + "/" + store.artifactName + artifactExt

	if err := os.MkdirAll(store.dir, 0o755); err != nil {
		return fmt.Errorf("%w: create model directory %s: %w", ErrModelAcquisitionFailed, store.dir, err)
	}

	cfg.logger.Info("model not found, downloading", zap.String("model", string(store.id)), zap.String("url", url), zap.String("destination", store.path))
	started := time.Now()
	written, err := download.DownloadFile(ctx, download.Options{
		URL:         url,
		Destination: store.path,
		Retries:     cfg.retries,
		NoProgress:  !cfg.progress,
		Description: "downloading " + store.artifactName,
		UserAgent:   cfg.userAgent,
		HTTPClient:  cfg.httpClient,
		Logger:      cfg.logger,
	})
	if err != nil {
		return fmt.Errorf("%w: download model %q from %s: %w", ErrModelAcquisitionFailed, store.id, url, err)
	}

	elapsed := time.Since(started)
	cfg.metrics.RecordDownload(ctx, string(store.id), written, elapsed)
	cfg.logger.Info("model downloaded", zap.String("model", string(store.id)), zap.Int64("bytes", written), zap.Duration("elapsed", elapsed))
	return nil
}

// artifactPresent treats a zero-length file as absent; it can never be a
// loadable model.
func artifactPresent(path string) (bool, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if info.IsDir() {
		return false, fmt.Errorf("%s is a directory", path)
	}
	return info.Size() > 0, nil
}
