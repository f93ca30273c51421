package xref

import (
	"context"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/caption-prepro/internal/lemma"
	"github.com/Adithya-Monish-Kumar-K/caption-prepro/internal/vocab"
	"github.com/Adithya-Monish-Kumar-K/caption-prepro/pkg/logger"
)

// BuildLemmaMap asks l for the lemma of every vocabulary word, in index
// order. The sentinel is not lemmatized. The first failure aborts the build.
func BuildLemmaMap(ctx context.Context, v *vocab.Vocabulary, l lemma.Lemmatizer) (map[string]string, error) {
	log := logger.WithComponent("lemma-map")
	words := v.Words()
	wtol := make(map[string]string, len(words))
	for i, w := range words {
		if v.HasSentinel() && w == v.Sentinel() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("building lemma map: %w", err)
		}
		lem, err := l.Lemma(ctx, w)
		if err != nil {
			return nil, fmt.Errorf("building lemma map at word %d: %w", i+1, err)
		}
		wtol[w] = lem
		if (i+1)%1000 == 0 {
			log.Info("lemmatization progress", "done", i+1, "total", len(words))
		}
	}
	log.Info("lemma map built", "entries", len(wtol))
	return wtol, nil
}
