// Package observe holds the OpenTelemetry instruments recorded by the model
// store and the transcriber. Nothing is exported unless the process installs
// a MeterProvider; the global default is a no-op.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "github.com/Marble879/simpletranscribe"

// Acquisition outcomes recorded on the acquisitions counter.
const (
	OutcomeCached     = "cached"
	OutcomeDownloaded = "downloaded"
	OutcomeFailed     = "failed"
)

type Metrics struct {
	// ModelAcquisitions counts Acquire calls by model and outcome.
	ModelAcquisitions metric.Int64Counter

	// DownloadBytes counts artifact bytes written to disk.
	DownloadBytes metric.Int64Counter

	// DownloadDuration tracks artifact fetch latency in seconds.
	DownloadDuration metric.Float64Histogram

	// TranscribeDuration tracks end-to-end Transcribe latency in seconds.
	TranscribeDuration metric.Float64Histogram

	// TranscribeErrors counts failed Transcribe calls by stage.
	TranscribeErrors metric.Int64Counter

	// Segments counts segments produced across all runs.
	Segments metric.Int64Counter
}

// Inference runs are far slower than a voice round trip, so the buckets reach
// into minutes.
var durationBuckets = []float64{
	0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300,
}

func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.ModelAcquisitions, err = m.Int64Counter("simpletranscribe.model.acquisitions",
		metric.WithDescription("Model acquisitions by model and outcome."),
	); err != nil {
		return nil, err
	}
	if met.DownloadBytes, err = m.Int64Counter("simpletranscribe.model.download.bytes",
		metric.WithDescription("Bytes of model artifacts downloaded."),
		metric.WithUnit("By"),
	); err != nil {
		return nil, err
	}
	if met.DownloadDuration, err = m.Float64Histogram("simpletranscribe.model.download.duration",
		metric.WithDescription("Latency of model artifact downloads."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TranscribeDuration, err = m.Float64Histogram("simpletranscribe.transcribe.duration",
		metric.WithDescription("Latency of a full transcription call."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TranscribeErrors, err = m.Int64Counter("simpletranscribe.transcribe.errors",
		metric.WithDescription("Failed transcriptions by stage."),
	); err != nil {
		return nil, err
	}
	if met.Segments, err = m.Int64Counter("simpletranscribe.transcribe.segments",
		metric.WithDescription("Transcript segments produced."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// Default returns metrics bound to the global MeterProvider. If instrument
// creation fails it falls back to a provider that records nothing.
func Default() *Metrics {
	defaultOnce.Do(func() {
		met, err := NewMetrics(otel.GetMeterProvider())
		if err != nil {
			met = mustNoop()
		}
		defaultMetrics = met
	})
	return defaultMetrics
}

func (m *Metrics) RecordAcquisition(ctx context.Context, model, outcome string) {
	m.ModelAcquisitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("model", model),
		attribute.String("outcome", outcome),
	))
}

func (m *Metrics) RecordDownload(ctx context.Context, model string, bytes int64, elapsed time.Duration) {
	attrs := metric.WithAttributes(attribute.String("model", model))
	m.DownloadBytes.Add(ctx, bytes, attrs)
	m.DownloadDuration.Record(ctx, elapsed.Seconds(), attrs)
}

func (m *Metrics) RecordTranscription(ctx context.Context, segments int, elapsed time.Duration) {
	m.TranscribeDuration.Record(ctx, elapsed.Seconds())
	m.Segments.Add(ctx, int64(segments))
}

func (m *Metrics) RecordTranscribeError(ctx context.Context, stage string) {
	m.TranscribeErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))
}

func mustNoop() *Metrics {
	met, err := NewMetrics(noop.NewMeterProvider())
	if err != nil {
		panic(err)
	}
	return met
}
