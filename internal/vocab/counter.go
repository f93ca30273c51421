// Package vocab builds the caption vocabulary: it counts lowercased tokens
// over the whole corpus, keeps the words whose count exceeds a threshold,
// adds an out-of-vocabulary sentinel when anything was dropped, and assigns
// each retained word a 1-based index.
package vocab

import (
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/caption-prepro/internal/dataset"
)

// Counts maps a lowercased token to its number of occurrences.
type Counts map[string]int

// WordCount is one entry of a frequency-ordered listing.
type WordCount struct {
	Word  string
	Count int
}

// Count lowercases every caption token in place and tallies occurrences
// across the corpus. The empty-string bucket is always present.
func Count(images []*dataset.ImageRecord) Counts {
	counts := Counts{"": 0}
	for _, img := range images {
		for i := range img.Captions {
			tokens := img.Captions[i].Tokens
			for j, tok := range tokens {
				tok = strings.ToLower(tok)
				tokens[j] = tok
				counts[tok]++
			}
		}
	}
	return counts
}

// Total returns the number of token occurrences.
func (c Counts) Total() int {
	total := 0
	for _, n := range c {
		total += n
	}
	return total
}

// Sorted returns every entry by descending count, ties broken
// alphabetically.
func (c Counts) Sorted() []WordCount {
	entries := make([]WordCount, 0, len(c))
	for w, n := range c {
		entries = append(entries, WordCount{Word: w, Count: n})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Word < entries[j].Word
	})
	return entries
}
