// Package caption rewrites raw captions against the finalized vocabulary,
// carrying the per-token auxiliary alignment data through unchanged.
package caption

import (
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/caption-prepro/internal/dataset"
	"github.com/Adithya-Monish-Kumar-K/caption-prepro/internal/vocab"
	"github.com/Adithya-Monish-Kumar-K/caption-prepro/pkg/logger"
)

// Result summarizes one Rewrite pass.
type Result struct {
	Captions     int
	Tokens       int
	Replaced     int
	AllSentinels int
}

// Rewriter maps caption tokens onto a vocabulary.
type Rewriter struct {
	vocab  *vocab.Vocabulary
	logger *slog.Logger
}

// NewRewriter creates a Rewriter for v.
func NewRewriter(v *vocab.Vocabulary) *Rewriter {
	return &Rewriter{
		vocab:  v,
		logger: logger.WithComponent("caption-rewriter"),
	}
}

// Rewrite sets Encoded on every image, one encoded caption per raw caption
// in the same order. Tokens must already be lowercased by vocab.Count.
func (r *Rewriter) Rewrite(images []*dataset.ImageRecord) (Result, error) {
	var res Result
	for i, img := range images {
		encoded := make([]dataset.EncodedCaption, 0, len(img.Captions))
		for j, c := range img.Captions {
			ec, replaced, err := r.Encode(c)
			if err != nil {
				return res, fmt.Errorf("image %d caption %d: %w", i, j, err)
			}
			encoded = append(encoded, ec)
			res.Captions++
			res.Tokens += len(c.Tokens)
			res.Replaced += replaced
			if replaced > 0 && replaced == len(c.Tokens) {
				res.AllSentinels++
			}
		}
		img.Encoded = encoded
	}
	r.logger.Info("captions rewritten",
		"captions", res.Captions,
		"tokens", res.Tokens,
		"replaced", res.Replaced,
		"all_sentinel_captions", res.AllSentinels,
	)
	return res, nil
}

// Encode rewrites a single caption and reports how many tokens became the
// sentinel.
func (r *Rewriter) Encode(c dataset.Caption) (dataset.EncodedCaption, int, error) {
	if err := c.Validate(); err != nil {
		return dataset.EncodedCaption{}, 0, err
	}
	words := make([]string, len(c.Tokens))
	replaced := 0
	for i, tok := range c.Tokens {
		words[i] = r.vocab.Map(tok)
		if words[i] != tok {
			replaced++
		}
	}
	return dataset.EncodedCaption{
		Caption: words,
		Clss:    orEmpty(c.Clss),
		BBox:    orEmpty(c.BBox),
		Idx:     orEmpty(c.Idx),
	}, replaced, nil
}

// orEmpty keeps an absent slice from being written as JSON null.
func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
