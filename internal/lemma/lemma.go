// Package lemma provides access to the external lemmatization service. The
// CoreNLP client talks to a Stanford CoreNLP server over HTTP; Instrument
// and Cache decorate any Lemmatizer with metrics and a Redis-backed cache.
package lemma

import (
	"context"
	"time"

	"github.com/Adithya-Monish-Kumar-K/caption-prepro/pkg/metrics"
)

// Lemmatizer returns the canonical base form of a single word.
type Lemmatizer interface {
	Lemma(ctx context.Context, word string) (string, error)
}

// Func adapts a plain function into a Lemmatizer.
type Func func(ctx context.Context, word string) (string, error)

func (f Func) Lemma(ctx context.Context, word string) (string, error) {
	return f(ctx, word)
}

type instrumented struct {
	next Lemmatizer
	m    *metrics.Metrics
}

// Instrument records request counts and latency of next on m.
func Instrument(next Lemmatizer, m *metrics.Metrics) Lemmatizer {
	return &instrumented{next: next, m: m}
}

func (l *instrumented) Lemma(ctx context.Context, word string) (string, error) {
	start := time.Now()
	lemma, err := l.next.Lemma(ctx, word)
	l.m.LemmaRequestDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		l.m.LemmaRequestsTotal.WithLabelValues("error").Inc()
		return "", err
	}
	l.m.LemmaRequestsTotal.WithLabelValues("ok").Inc()
	return lemma, nil
}
