package element

import (
	"context"
	"log/slog"

	"github.com/docugrid/searchcore/pkg/config"
	"github.com/docugrid/searchcore/pkg/kafka"
)

// KafkaSource layers a Kafka change feed over a snapshot source. Messages
// carry a JSON element keyed by element id; a tombstone (nil value) deletes
// the keyed element.
type KafkaSource struct {
	snapshot Source
	cfg      config.KafkaConfig
	logger   *slog.Logger
}

// NewKafkaSource combines a snapshot source (may be nil for a feed-only
// source) with the change topic named in cfg.
func NewKafkaSource(cfg config.KafkaConfig, snapshot Source) *KafkaSource {
	return &KafkaSource{
		snapshot: snapshot,
		cfg:      cfg,
		logger:   slog.Default().With("component", "kafka-source"),
	}
}

// Snapshot delegates to the underlying snapshot source when present.
func (k *KafkaSource) Snapshot(ctx context.Context) (map[string]Element, error) {
	if k.snapshot == nil {
		return map[string]Element{}, nil
	}
	return k.snapshot.Snapshot(ctx)
}

// Subscribe starts a consumer on the change topic. Each message becomes a
// single-element ChangeSet handed to fn; the consume loop runs until ctx is
// cancelled.
func (k *KafkaSource) Subscribe(ctx context.Context, fn func(ChangeSet)) error {
	consumer := kafka.NewConsumer(k.cfg, k.cfg.ChangesTopic, func(ctx context.Context, key, value []byte) error {
		if len(value) == 0 {
			fn(ChangeSet{Deletes: []string{string(key)}})
			return nil
		}
		el, err := kafka.DecodeJSON[Element](value)
		if err != nil {
			// A malformed message is logged and skipped, never retried
			// forever.
			k.logger.Error("dropping undecodable element change", "key", string(key), "error", err)
			return nil
		}
		if el.ID == "" {
			el.ID = string(key)
		}
		fn(ChangeSet{Upserts: []Element{el}})
		return nil
	})

	go func() {
		if err := consumer.Start(ctx); err != nil {
			k.logger.Error("change feed stopped", "error", err)
		}
	}()
	return nil
}
