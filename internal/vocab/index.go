package vocab

import (
	"fmt"
)

// Index holds the two mutually inverse lookup tables of a vocabulary, both
// 1-based.
type Index struct {
	wordToIx map[string]int
	ixToWord map[int]string
}

// NewIndex assigns index i+1 to the i-th word.
func NewIndex(words []string) (*Index, error) {
	ix := &Index{
		wordToIx: make(map[string]int, len(words)),
		ixToWord: make(map[int]string, len(words)),
	}
	for i, w := range words {
		if prev, dup := ix.wordToIx[w]; dup {
			return nil, fmt.Errorf("duplicate vocabulary word %q at %d and %d", w, prev, i+1)
		}
		ix.wordToIx[w] = i + 1
		ix.ixToWord[i+1] = w
	}
	return ix, nil
}

// Len returns the number of indexed words.
func (ix *Index) Len() int { return len(ix.ixToWord) }

// Word returns the word at index i.
func (ix *Index) Word(i int) (string, bool) {
	w, ok := ix.ixToWord[i]
	return w, ok
}

// IxToWord returns a copy of the index→word table.
func (ix *Index) IxToWord() map[int]string {
	out := make(map[int]string, len(ix.ixToWord))
	for i, w := range ix.ixToWord {
		out[i] = w
	}
	return out
}

// WordToIx returns a copy of the word→index table.
func (ix *Index) WordToIx() map[string]int {
	out := make(map[string]int, len(ix.wordToIx))
	for w, i := range ix.wordToIx {
		out[w] = i
	}
	return out
}
