// Package notify announces finished artifacts on Kafka so training jobs can
// pick them up without polling the output directory.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/caption-prepro/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/caption-prepro/pkg/logger"
)

// EventArtifactsReady is the event-type header of ArtifactsReady messages.
const EventArtifactsReady = "prepro.artifacts-ready"

// ArtifactsReady is the event published after both artifacts are in place.
type ArtifactsReady struct {
	RunID          string    `json:"run_id"`
	Variant        string    `json:"variant"`
	DictionaryPath string    `json:"dictionary_path"`
	CaptionPath    string    `json:"caption_path"`
	VocabSize      int       `json:"vocab_size"`
	ImageCount     int       `json:"image_count"`
	FinishedAt     time.Time `json:"finished_at"`
}

// Publisher is the part of kafka.Producer the notifier uses.
type Publisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// Notifier publishes ArtifactsReady events.
type Notifier struct {
	pub    Publisher
	logger *slog.Logger
}

// New creates a Notifier over pub.
func New(pub Publisher) *Notifier {
	return &Notifier{
		pub:    pub,
		logger: logger.WithComponent("notifier"),
	}
}

// ArtifactsReady publishes ev keyed by variant, so events for one dataset
// stay ordered on a single partition.
func (n *Notifier) ArtifactsReady(ctx context.Context, ev ArtifactsReady) error {
	if err := n.pub.Publish(ctx, kafka.Event{Key: ev.Variant, Type: EventArtifactsReady, Value: ev}); err != nil {
		return fmt.Errorf("publishing artifacts-ready for run %s: %w", ev.RunID, err)
	}
	n.logger.Info("artifacts-ready published", "run_id", ev.RunID, "variant", ev.Variant)
	return nil
}
