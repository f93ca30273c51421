package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/caption-prepro/pkg/kafka"
)

type fakePublisher struct {
	events []kafka.Event
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, ev kafka.Event) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, ev)
	return nil
}

func TestArtifactsReadyKeyedByVariant(t *testing.T) {
	pub := &fakePublisher{}
	ev := ArtifactsReady{RunID: "run-1", Variant: "coco", VocabSize: 9}
	if err := New(pub).ArtifactsReady(context.Background(), ev); err != nil {
		t.Fatalf("ArtifactsReady: %v", err)
	}
	if len(pub.events) != 1 {
		t.Fatalf("published %d events, want 1", len(pub.events))
	}
	if pub.events[0].Type != EventArtifactsReady {
		t.Errorf("type = %q", pub.events[0].Type)
	}
	if pub.events[0].Key != "coco" {
		t.Errorf("key = %q, want coco", pub.events[0].Key)
	}
	if got, ok := pub.events[0].Value.(ArtifactsReady); !ok || got.RunID != "run-1" {
		t.Errorf("value = %#v", pub.events[0].Value)
	}
}

func TestArtifactsReadyPublishError(t *testing.T) {
	errBroker := errors.New("broker down")
	err := New(&fakePublisher{err: errBroker}).ArtifactsReady(context.Background(), ArtifactsReady{RunID: "run-2"})
	if !errors.Is(err, errBroker) {
		t.Errorf("err = %v, want wrapped broker error", err)
	}
}
