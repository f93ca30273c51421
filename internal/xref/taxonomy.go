// Package xref builds the two cross-reference tables of the dictionary
// bundle: word→detection class from a flat taxonomy file, and word→lemma
// from the lemmatization service.
package xref

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/caption-prepro/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/caption-prepro/pkg/logger"
)

// Taxonomy is the parsed class-name file.
type Taxonomy struct {
	// Classes[i] lists the synonyms of detection class i.
	Classes [][]string
	// WordToClass maps every synonym to its class; on duplicates the later
	// class wins.
	WordToClass map[string]int
	// Overlaps lists the synonyms that appeared in more than one class.
	Overlaps []string
}

// LoadTaxonomy reads a taxonomy file from disk.
func LoadTaxonomy(path string) (*Taxonomy, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.Newf(apperrors.ErrConfig, "class name file %s does not exist", path)
		}
		return nil, apperrors.Newf(apperrors.ErrConfig, "opening %s: %v", path, err)
	}
	defer f.Close()
	tax, err := ParseTaxonomy(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	logger.WithComponent("taxonomy").Info("taxonomy loaded",
		"path", path,
		"classes", len(tax.Classes),
		"words", len(tax.WordToClass),
		"overlaps", len(tax.Overlaps),
	)
	return tax, nil
}

// ParseTaxonomy reads one class per line, each a comma-separated synonym
// list. Line order gives the class id, starting at 0.
func ParseTaxonomy(r io.Reader) (*Taxonomy, error) {
	log := logger.WithComponent("taxonomy")
	tax := &Taxonomy{WordToClass: make(map[string]int)}
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		id := len(tax.Classes)
		line := strings.TrimRight(sc.Text(), "\r")
		var synonyms []string
		for _, w := range strings.Split(line, ",") {
			w = strings.TrimSpace(w)
			if w == "" {
				continue
			}
			synonyms = append(synonyms, w)
			if prev, dup := tax.WordToClass[w]; dup && prev != id {
				log.Debug("synonym in several classes, keeping last", "word", w, "previous", prev, "class", id)
				tax.Overlaps = append(tax.Overlaps, w)
			}
			tax.WordToClass[w] = id
		}
		tax.Classes = append(tax.Classes, synonyms)
	}
	if err := sc.Err(); err != nil {
		return nil, apperrors.Newf(apperrors.ErrInvalidInput, "reading taxonomy: %v", err)
	}
	return tax, nil
}
