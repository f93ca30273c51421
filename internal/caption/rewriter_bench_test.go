package caption

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/caption-prepro/internal/dataset"
	"github.com/Adithya-Monish-Kumar-K/caption-prepro/internal/vocab"
)

func BenchmarkRewrite(b *testing.B) {
	base := strings.Fields("a man in a blue shirt is riding a bicycle down the street")
	images := make([]*dataset.ImageRecord, 5000)
	for i := range images {
		tokens := append(append([]string(nil), base...), fmt.Sprintf("tail%d", i))
		images[i] = &dataset.ImageRecord{Annotation: dataset.Annotation{Captions: []dataset.Caption{{
			Tokens: tokens,
			Clss:   make([]json.RawMessage, len(tokens)),
			BBox:   make([]json.RawMessage, len(tokens)),
			Idx:    make([]json.RawMessage, len(tokens)),
		}}}}
	}
	v, err := vocab.Select(vocab.Count(images), 1, "UNK")
	if err != nil {
		b.Fatal(err)
	}
	r := NewRewriter(v)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := r.Rewrite(images); err != nil {
			b.Fatal(err)
		}
	}
}
