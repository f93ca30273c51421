package vocab

import (
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/caption-prepro/internal/dataset"
)

// Stats describes the corpus and the selected vocabulary. It is reported to
// the operator and plays no part in the artifacts.
type Stats struct {
	Top            []WordCount
	TotalWords     int
	DistinctWords  int
	BadWords       int
	VocabSize      int
	UnkOccurrences int
	Captions       int
	MaxLength      int
	// LengthHistogram[n] is the number of captions with n tokens.
	LengthHistogram []int
}

// Summarize computes Stats for a counted corpus and its vocabulary.
func Summarize(images []*dataset.ImageRecord, counts Counts, v *Vocabulary, topN int) Stats {
	sorted := counts.Sorted()
	if topN > len(sorted) {
		topN = len(sorted)
	}
	if topN < 0 {
		topN = 0
	}
	s := Stats{
		Top:            sorted[:topN],
		TotalWords:     counts.Total(),
		DistinctWords:  len(counts),
		BadWords:       len(v.Dropped()),
		VocabSize:      v.Len(),
		UnkOccurrences: v.DroppedOccurrences(),
	}

	lengths := make(map[int]int)
	for _, img := range images {
		for _, c := range img.Captions {
			n := len(c.Tokens)
			lengths[n]++
			s.Captions++
			if n > s.MaxLength {
				s.MaxLength = n
			}
		}
	}
	s.LengthHistogram = make([]int, s.MaxLength+1)
	for n, c := range lengths {
		s.LengthHistogram[n] = c
	}
	return s
}

// Log writes the statistics as structured records.
func (s Stats) Log(logger *slog.Logger) {
	for rank, wc := range s.Top {
		logger.Info("top word", "rank", rank+1, "word", wc.Word, "count", wc.Count)
	}
	logger.Info("vocabulary summary",
		"total_words", s.TotalWords,
		"bad_words", s.BadWords,
		"distinct_words", s.DistinctWords,
		"bad_word_pct", percent(s.BadWords, s.DistinctWords),
		"vocab_size", s.VocabSize,
		"unk_occurrences", s.UnkOccurrences,
		"unk_pct", percent(s.UnkOccurrences, s.TotalWords),
	)
	logger.Info("caption lengths", "captions", s.Captions, "max_length", s.MaxLength)
	for n, c := range s.LengthHistogram {
		logger.Debug("caption length bucket",
			"length", n,
			"captions", c,
			"pct", percent(c, s.Captions),
		)
	}
}

func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) * 100 / float64(whole)
}
