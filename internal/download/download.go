package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"golang.org/x/term"
)

const defaultUserAgent = "simpletranscribe/1"

var (
	ErrEmptyBody = errors.New("response body is empty")
	ErrShortBody = errors.New("response body shorter than Content-Length")
)

// StatusError is returned when the server answers with anything but 200.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code %d from %s", e.StatusCode, e.URL)
}

type Options struct {
	URL         string
	Destination string
	// Retries is the total number of attempts; values below 1 mean one.
	Retries     int
	NoProgress  bool
	Description string
	UserAgent   string
	HTTPClient  *http.Client
	Logger      *zap.Logger
}

// DownloadFile fetches opts.URL into opts.Destination. The body is streamed to
// a sibling ".part" file which is synced and renamed into place only after the
// whole body arrived, so Destination never holds a truncated artifact.
// It returns the number of bytes written.
func DownloadFile(ctx context.Context, opts Options) (int64, error) {
	if opts.URL == "" {
		return 0, errors.New("download URL is required")
	}
	if opts.Destination == "" {
		return 0, errors.New("destination path is required")
	}

	if opts.Retries <= 0 {
		opts.Retries = 1
	}

	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Minute}
	}

	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}

	if opts.Description == "" {
		opts.Description = "downloading"
	}

	if err := os.MkdirAll(filepath.Dir(opts.Destination), 0o755); err != nil {
		return 0, fmt.Errorf("create destination directory: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= opts.Retries; attempt++ {
		if attempt > 1 {
			opts.Logger.Warn("retrying download", zap.Int("attempt", attempt), zap.Int("max", opts.Retries), zap.String("url", opts.URL), zap.Error(lastErr))
			select {
			case <-ctx.Done():
				return 0, ctx.Err()
			case <-time.After(time.Duration(attempt) * 300 * time.Millisecond):
			}
		}

		written, err := downloadOnce(ctx, opts)
		if err == nil {
			return written, nil
		}
		lastErr = err
	}

	return 0, lastErr
}

// PartialPath is the temporary file used while Destination is being fetched.
func PartialPath(destination string) string {
	return destination + ".part"
}

func downloadOnce(ctx context.Context, opts Options) (int64, error) {
	tempPath := PartialPath(opts.Destination)
	_ = os.Remove(tempPath)

	outFile, err := os.Create(tempPath)
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}

	success := false
	defer func() {
		_ = outFile.Close()
		if !success {
			_ = os.Remove(tempPath)
		}
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, opts.URL, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", opts.UserAgent)

	resp, err := opts.HTTPClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("download request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, &StatusError{URL: opts.URL, StatusCode: resp.StatusCode}
	}

	var writer io.Writer = outFile

	var bar *progressbar.ProgressBar
	if shouldRenderProgress(opts.NoProgress, resp.ContentLength) {
		bar = progressbar.NewOptions64(
			resp.ContentLength,
			progressbar.OptionSetDescription(opts.Description),
			progressbar.OptionSetWidth(20),
			progressbar.OptionShowBytes(true),
			progressbar.OptionThrottle(65*time.Millisecond),
			progressbar.OptionSetRenderBlankState(true),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionClearOnFinish(),
		)
		writer = io.MultiWriter(outFile, bar)
	}

	written, err := io.Copy(writer, resp.Body)
	if err != nil {
		return 0, fmt.Errorf("download body: %w", err)
	}

	if bar != nil {
		_ = bar.Finish()
	}

	if written == 0 {
		return 0, ErrEmptyBody
	}
	if resp.ContentLength > 0 && written != resp.ContentLength {
		return 0, fmt.Errorf("%w: got %d of %d bytes", ErrShortBody, written, resp.ContentLength)
	}

	if err := outFile.Sync(); err != nil {
		return 0, fmt.Errorf("sync temp file: %w", err)
	}

	if err := outFile.Close(); err != nil {
		return 0, fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tempPath, opts.Destination); err != nil {
		return 0, fmt.Errorf("move temp file into destination: %w", err)
	}

	opts.Logger.Debug("download complete", zap.String("url", opts.URL), zap.String("destination", opts.Destination), zap.Int64("bytes", written))
	success = true
	return written, nil
}

func shouldRenderProgress(noProgress bool, contentLength int64) bool {
	if noProgress {
		return false
	}
	if contentLength <= 0 {
		return false
	}
	return term.IsTerminal(int(os.Stderr.Fd()))
}
