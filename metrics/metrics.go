// Package metrics exposes the statsd client and the throughput window used while training.
package metrics

import (
	"github.com/DataDog/datadog-go/v5/statsd"
	"github.com/rs/zerolog/log"
)

// Metric names.
const (
	EpochLoss     = "train.epoch.loss"
	EpochAccuracy = "train.epoch.accuracy"
	SamplesPerSec = "train.samples_per_sec"
	BatchCount    = "train.batch.count"
	EvalAccuracy  = "eval.accuracy"
	TagEpoch      = "epoch"
	TagModel      = "model"
	metricsPrefix = "mldemos."
)

// New returns a statsd client for address, or a no-op client when address is empty.
func New(address string, tags ...string) (statsd.ClientInterface, error) {
	if address == "" {
		log.Debug().Msg("metrics address not set, using no-op statsd client")
		return &statsd.NoOpClient{}, nil
	}
	client, err := statsd.New(address,
		statsd.WithNamespace(metricsPrefix),
		statsd.WithTags(tags),
	)
	if err != nil {
		return nil, err
	}
	log.Info().Str("address", address).Strs("tags", tags).Msg("statsd client initialized")
	return client, nil
}

// Tag formats a statsd tag.
func Tag(key, value string) string {
	return key + ":" + value
}
