package trainer

import (
	"strconv"
	"time"

	"github.com/DataDog/datadog-go/v5/statsd"
	"github.com/rs/zerolog/log"

	"github.com/neurlang/mldemos/metrics"
)

// EpochStats summarises one training epoch.
type EpochStats struct {
	Epoch         int
	Batches       int
	Samples       int
	Loss          float64 // mean batch loss
	Accuracy      float64 // fraction of training samples classified correctly
	SamplesPerSec float64
	Elapsed       time.Duration
}

// Listener is notified at the end of every epoch.
type Listener interface {
	OnEpoch(stats EpochStats)
}

// ListenerFunc adapts a function to a Listener.
type ListenerFunc func(stats EpochStats)

func (f ListenerFunc) OnEpoch(stats EpochStats) { f(stats) }

// LoggingListener logs every epoch.
type LoggingListener struct {
	Model string
}

func (l LoggingListener) OnEpoch(s EpochStats) {
	log.Info().
		Str("model", l.Model).
		Int("epoch", s.Epoch).
		Int("batches", s.Batches).
		Float64("loss", s.Loss).
		Float64("accuracy", s.Accuracy).
		Float64("samples_per_sec", s.SamplesPerSec).
		Dur("elapsed", s.Elapsed).
		Msg("epoch finished")
}

// MetricsListener publishes every epoch as statsd gauges.
type MetricsListener struct {
	Client statsd.ClientInterface
	Model  string
}

func (l MetricsListener) OnEpoch(s EpochStats) {
	tags := []string{
		metrics.Tag(metrics.TagModel, l.Model),
		metrics.Tag(metrics.TagEpoch, strconv.Itoa(s.Epoch)),
	}
	for name, value := range map[string]float64{
		metrics.EpochLoss:     s.Loss,
		metrics.EpochAccuracy: s.Accuracy,
		metrics.SamplesPerSec: s.SamplesPerSec,
	} {
		if err := l.Client.Gauge(name, value, tags, 1); err != nil {
			log.Warn().Err(err).Str("metric", name).Msg("statsd gauge failed")
		}
	}
	if err := l.Client.Count(metrics.BatchCount, int64(s.Batches), tags, 1); err != nil {
		log.Warn().Err(err).Str("metric", metrics.BatchCount).Msg("statsd count failed")
	}
}
