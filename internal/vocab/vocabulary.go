package vocab

import (
	apperrors "github.com/Adithya-Monish-Kumar-K/caption-prepro/pkg/errors"
)

// Vocabulary is the finalized word list of one run. It is not modified
// after Select returns.
type Vocabulary struct {
	words       []string
	counts      Counts
	threshold   int
	sentinel    string
	hasSentinel bool
	dropped     []string
	droppedOcc  int
}

// Select keeps every word whose count is strictly greater than threshold,
// ordered by descending count then alphabetically. The sentinel is appended
// once, last, if at least one token occurrence was dropped. The empty-string
// bucket never enters the vocabulary.
func Select(counts Counts, threshold int, sentinel string) (*Vocabulary, error) {
	if threshold < 0 {
		return nil, apperrors.Newf(apperrors.ErrConfig, "word count threshold must be >= 0, got %d", threshold)
	}
	if sentinel == "" {
		return nil, apperrors.New(apperrors.ErrConfig, "sentinel word must not be empty")
	}
	if _, clash := counts[sentinel]; clash {
		return nil, apperrors.Newf(apperrors.ErrConfig, "sentinel %q also occurs as a corpus word", sentinel)
	}

	v := &Vocabulary{
		counts:    counts,
		threshold: threshold,
		sentinel:  sentinel,
	}
	for _, wc := range counts.Sorted() {
		if wc.Word != "" && wc.Count > threshold {
			v.words = append(v.words, wc.Word)
			continue
		}
		v.dropped = append(v.dropped, wc.Word)
		v.droppedOcc += wc.Count
	}
	if v.droppedOcc > 0 {
		v.words = append(v.words, sentinel)
		v.hasSentinel = true
	}
	return v, nil
}

// Words returns the vocabulary in index order. The caller must not modify
// the returned slice.
func (v *Vocabulary) Words() []string { return v.words }

// Len returns the vocabulary size, sentinel included.
func (v *Vocabulary) Len() int { return len(v.words) }

// Sentinel returns the out-of-vocabulary word.
func (v *Vocabulary) Sentinel() string { return v.sentinel }

// HasSentinel reports whether the sentinel is part of the vocabulary.
func (v *Vocabulary) HasSentinel() bool { return v.hasSentinel }

// Keeps reports whether word survived the threshold.
func (v *Vocabulary) Keeps(word string) bool {
	return word != "" && v.counts[word] > v.threshold
}

// Map returns word itself if it is kept, otherwise the sentinel.
func (v *Vocabulary) Map(word string) string {
	if v.Keeps(word) {
		return word
	}
	return v.sentinel
}

// Dropped returns the distinct words below the threshold, including the
// empty-string bucket.
func (v *Vocabulary) Dropped() []string { return v.dropped }

// DroppedOccurrences returns how many token occurrences map to the sentinel.
func (v *Vocabulary) DroppedOccurrences() int { return v.droppedOcc }
