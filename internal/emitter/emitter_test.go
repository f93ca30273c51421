package emitter

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/caption-prepro/internal/dataset"
	apperrors "github.com/Adithya-Monish-Kumar-K/caption-prepro/pkg/errors"
)

func int64p(v int64) *int64 { return &v }

func sampleImages() []*dataset.ImageRecord {
	return []*dataset.ImageRecord{
		{
			Annotation: dataset.Annotation{ImageID: int64p(1000092795)},
			Split:      "train",
			Encoded: []dataset.EncodedCaption{{
				Caption: []string{"a", "UNK"},
				Clss:    []json.RawMessage{json.RawMessage(`""`), json.RawMessage(`"dog"`)},
				BBox:    []json.RawMessage{json.RawMessage(`null`), json.RawMessage(`[1,2,3,4]`)},
				Idx:     []json.RawMessage{json.RawMessage(`0`), json.RawMessage(`1`)},
			}},
		},
		{
			Annotation: dataset.Annotation{},
			Split:      dataset.FallbackSplit,
		},
	}
}

func TestAssemble(t *testing.T) {
	variant, err := dataset.VariantFor("flickr30k")
	if err != nil {
		t.Fatal(err)
	}
	a := Assemble(sampleImages(), variant, map[int]string{1: "a", 2: "UNK"}, map[string]int{"dog": 0}, map[string]string{"a": "a"})

	if len(a.Bundle.Images) != 2 || len(a.Captions) != 2 {
		t.Fatalf("images=%d captions=%d, want 2/2", len(a.Bundle.Images), len(a.Captions))
	}
	first := a.Bundle.Images[0]
	if first.Split != "train" || first.FilePath != "1000092795.jpg" || first.ID == nil || *first.ID != 1000092795 {
		t.Errorf("images[0] = %+v", first)
	}
	second := a.Bundle.Images[1]
	if second.Split != "rest" || second.FilePath != "" || second.ID != nil {
		t.Errorf("images[1] = %+v, want only split", second)
	}
	if a.Captions[1] == nil {
		t.Error("images without captions must encode as [] not null")
	}
}

func TestEmitWritesBothArtifacts(t *testing.T) {
	dir := t.TempDir()
	dictPath := filepath.Join(dir, "out", "dic.json")
	capPath := filepath.Join(dir, "out", "cap.json")
	variant, _ := dataset.VariantFor("flickr30k")
	a := Assemble(sampleImages(), variant, map[int]string{1: "a", 2: "UNK"}, map[string]int{"dog": 0}, map[string]string{"a": "a"})

	res, err := New().Emit(dictPath, capPath, a)
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if res.DictionaryBytes == 0 || res.CaptionBytes == 0 {
		t.Errorf("result = %+v", res)
	}

	var bundle map[string]json.RawMessage
	readJSON(t, dictPath, &bundle)
	for _, key := range []string{"ix_to_word", "wtod", "wtol", "images"} {
		if _, ok := bundle[key]; !ok {
			t.Errorf("bundle missing key %q", key)
		}
	}
	var ixToWord map[string]string
	if err := json.Unmarshal(bundle["ix_to_word"], &ixToWord); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(ixToWord, map[string]string{"1": "a", "2": "UNK"}) {
		t.Errorf("ix_to_word = %v", ixToWord)
	}
	var images []map[string]any
	if err := json.Unmarshal(bundle["images"], &images); err != nil {
		t.Fatal(err)
	}
	if _, ok := images[1]["file_path"]; ok {
		t.Error("file_path should be omitted when the record has no id")
	}

	var caps [][]map[string]any
	readJSON(t, capPath, &caps)
	if len(caps) != 2 || len(caps[0]) != 1 || len(caps[1]) != 0 {
		t.Fatalf("captions shape = %v", caps)
	}
	for _, key := range []string{"caption", "clss", "bbox", "idx"} {
		if _, ok := caps[0][0][key]; !ok {
			t.Errorf("caption record missing %q", key)
		}
	}

	leftovers, _ := filepath.Glob(filepath.Join(dir, "out", "*.tmp"))
	if len(leftovers) != 0 {
		t.Errorf("temp files left behind: %v", leftovers)
	}
}

func TestEmitRejectsMisalignedArtifacts(t *testing.T) {
	dir := t.TempDir()
	dictPath := filepath.Join(dir, "dic.json")
	a := Artifacts{
		Bundle:   DictionaryBundle{Images: []dataset.ImageMeta{{Split: "train"}}},
		Captions: nil,
	}
	if _, err := New().Emit(dictPath, filepath.Join(dir, "cap.json"), a); err == nil {
		t.Fatal("expected alignment error")
	}
	if _, err := os.Stat(dictPath); !os.IsNotExist(err) {
		t.Error("nothing should be written for misaligned artifacts")
	}
}

func TestEmitUnwritableDestination(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, nil, 0644); err != nil {
		t.Fatal(err)
	}
	capPath := filepath.Join(dir, "cap.json")
	_, err := New().Emit(filepath.Join(blocker, "dic.json"), capPath, Artifacts{})
	if !errors.Is(err, apperrors.ErrOutput) {
		t.Fatalf("err = %v, want ErrOutput", err)
	}
	if _, err := os.Stat(capPath); !os.IsNotExist(err) {
		t.Error("caption artifact must not be written when the dictionary fails")
	}
}

func TestEmitCaptionPathIsDirectory(t *testing.T) {
	dir := t.TempDir()
	dictPath := filepath.Join(dir, "dic.json")
	capPath := filepath.Join(dir, "cap.json")
	if err := os.MkdirAll(filepath.Join(capPath, "child"), 0755); err != nil {
		t.Fatal(err)
	}
	variant, _ := dataset.VariantFor("flickr30k")
	a := Assemble(sampleImages(), variant, map[int]string{1: "a"}, nil, nil)

	_, err := New().Emit(dictPath, capPath, a)
	if !errors.Is(err, apperrors.ErrOutput) {
		t.Fatalf("err = %v, want ErrOutput", err)
	}
	if _, err := os.Stat(dictPath); !os.IsNotExist(err) {
		t.Error("dictionary must not be written when the caption list cannot be")
	}
	assertNoLeftovers(t, dir)
}

func TestEmitRestoresPreviousDictionaryWhenCaptionRenameFails(t *testing.T) {
	dir := t.TempDir()
	dictPath := filepath.Join(dir, "dic.json")
	capPath := filepath.Join(dir, "cap.json")
	if err := os.WriteFile(dictPath, []byte(`{"previous":true}`), 0644); err != nil {
		t.Fatal(err)
	}
	variant, _ := dataset.VariantFor("flickr30k")
	a := Assemble(sampleImages(), variant, map[int]string{1: "a"}, nil, nil)

	e := New()
	e.rename = func(oldpath, newpath string) error {
		if newpath == capPath {
			return errors.New("disk full")
		}
		return os.Rename(oldpath, newpath)
	}
	_, err := e.Emit(dictPath, capPath, a)
	if !errors.Is(err, apperrors.ErrOutput) {
		t.Fatalf("err = %v, want ErrOutput", err)
	}
	data, err := os.ReadFile(dictPath)
	if err != nil {
		t.Fatalf("previous dictionary gone: %v", err)
	}
	if string(data) != `{"previous":true}` {
		t.Errorf("dictionary = %s, want the previous content", data)
	}
	if _, err := os.Stat(capPath); !os.IsNotExist(err) {
		t.Error("caption list must not exist after a failed emit")
	}
	assertNoLeftovers(t, dir)
}

func TestEmitReplacesPreviousOutputs(t *testing.T) {
	dir := t.TempDir()
	dictPath := filepath.Join(dir, "dic.json")
	capPath := filepath.Join(dir, "cap.json")
	for _, p := range []string{dictPath, capPath} {
		if err := os.WriteFile(p, []byte("stale"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	variant, _ := dataset.VariantFor("flickr30k")
	a := Assemble(sampleImages(), variant, map[int]string{1: "a"}, nil, nil)
	if _, err := New().Emit(dictPath, capPath, a); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	var bundle map[string]json.RawMessage
	readJSON(t, dictPath, &bundle)
	var caps []json.RawMessage
	readJSON(t, capPath, &caps)
	if len(caps) != 2 {
		t.Errorf("captions = %d lists, want 2", len(caps))
	}
	assertNoLeftovers(t, dir)
}

func assertNoLeftovers(t *testing.T, dir string) {
	t.Helper()
	for _, pattern := range []string{"*.tmp", "*.bak"} {
		matches, _ := filepath.Glob(filepath.Join(dir, pattern))
		if len(matches) != 0 {
			t.Errorf("left behind: %v", matches)
		}
	}
}

func readJSON(t *testing.T, path string, v any) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("decoding %s: %v", path, err)
	}
}
