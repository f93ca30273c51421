package xref

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/caption-prepro/internal/lemma"
	"github.com/Adithya-Monish-Kumar-K/caption-prepro/internal/vocab"
	apperrors "github.com/Adithya-Monish-Kumar-K/caption-prepro/pkg/errors"
)

func TestParseTaxonomy(t *testing.T) {
	tax, err := ParseTaxonomy(strings.NewReader("cat, kitten\ndog, puppy\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := map[string]int{"cat": 0, "kitten": 0, "dog": 1, "puppy": 1}
	if !reflect.DeepEqual(tax.WordToClass, want) {
		t.Errorf("wtod = %v, want %v", tax.WordToClass, want)
	}
	if len(tax.Classes) != 2 {
		t.Errorf("classes = %d, want 2", len(tax.Classes))
	}
}

func TestParseTaxonomyLastWriterWins(t *testing.T) {
	tax, err := ParseTaxonomy(strings.NewReader("man, person\r\n\nwoman, person\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := tax.WordToClass["person"]; got != 2 {
		t.Errorf("person = %d, want 2 (last class wins, blank line keeps its id)", got)
	}
	if got := tax.WordToClass["man"]; got != 0 {
		t.Errorf("man = %d, want 0", got)
	}
	if !reflect.DeepEqual(tax.Overlaps, []string{"person"}) {
		t.Errorf("overlaps = %v", tax.Overlaps)
	}
	if _, ok := tax.WordToClass[""]; ok {
		t.Error("empty synonym must not be mapped")
	}
}

func TestLoadTaxonomyMissingFile(t *testing.T) {
	_, err := LoadTaxonomy(filepath.Join(t.TempDir(), "nope.txt"))
	if !errors.Is(err, apperrors.ErrConfig) {
		t.Fatalf("err = %v, want ErrConfig", err)
	}
}

func TestLoadTaxonomyFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "classes.txt")
	if err := os.WriteFile(path, []byte("bicycle, bike\n"), 0644); err != nil {
		t.Fatal(err)
	}
	tax, err := LoadTaxonomy(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if tax.WordToClass["bike"] != 0 {
		t.Errorf("wtod = %v", tax.WordToClass)
	}
}

func testVocab(t *testing.T, counts vocab.Counts, threshold int) *vocab.Vocabulary {
	t.Helper()
	v, err := vocab.Select(counts, threshold, "UNK")
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	return v
}

func TestBuildLemmaMapSkipsSentinel(t *testing.T) {
	v := testVocab(t, vocab.Counts{"": 0, "dogs": 3, "running": 2, "rare": 1}, 1)
	var asked []string
	l := lemma.Func(func(ctx context.Context, w string) (string, error) {
		asked = append(asked, w)
		return strings.TrimSuffix(strings.TrimSuffix(w, "s"), "ning"), nil
	})
	wtol, err := BuildLemmaMap(context.Background(), v, l)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	want := map[string]string{"dogs": "dog", "running": "run"}
	if !reflect.DeepEqual(wtol, want) {
		t.Errorf("wtol = %v, want %v", wtol, want)
	}
	if !reflect.DeepEqual(asked, []string{"dogs", "running"}) {
		t.Errorf("asked = %v", asked)
	}
}

func TestBuildLemmaMapFailsOnFirstError(t *testing.T) {
	v := testVocab(t, vocab.Counts{"a": 5, "b": 4, "c": 3}, 0)
	calls := 0
	l := lemma.Func(func(ctx context.Context, w string) (string, error) {
		calls++
		if w == "b" {
			return "", apperrors.New(apperrors.ErrMalformedResponse, "no tokens")
		}
		return w, nil
	})
	wtol, err := BuildLemmaMap(context.Background(), v, l)
	if !errors.Is(err, apperrors.ErrMalformedResponse) {
		t.Fatalf("err = %v, want ErrMalformedResponse", err)
	}
	if wtol != nil {
		t.Errorf("partial map returned: %v", wtol)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}
