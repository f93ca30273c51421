// Package emitter writes the two preprocessing artifacts: the dictionary
// bundle and the encoded caption list. Both are staged as temp files next to
// their destinations and only renamed into place once both are complete.
package emitter

import (
	"bufio"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Adithya-Monish-Kumar-K/caption-prepro/internal/dataset"
	apperrors "github.com/Adithya-Monish-Kumar-K/caption-prepro/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/caption-prepro/pkg/logger"
)

// DictionaryBundle is the first artifact. Map keys are written in sorted
// order by encoding/json, so equal bundles produce identical files.
type DictionaryBundle struct {
	IxToWord map[int]string      `json:"ix_to_word"`
	WtoD     map[string]int      `json:"wtod"`
	WtoL     map[string]string   `json:"wtol"`
	Images   []dataset.ImageMeta `json:"images"`
}

// Artifacts pairs the bundle with the caption list; Captions[i] belongs to
// Bundle.Images[i].
type Artifacts struct {
	Bundle   DictionaryBundle
	Captions [][]dataset.EncodedCaption
}

// Assemble builds the artifacts from the processed images.
func Assemble(images []*dataset.ImageRecord, variant dataset.Variant, ixToWord map[int]string, wtod map[string]int, wtol map[string]string) Artifacts {
	a := Artifacts{
		Bundle: DictionaryBundle{
			IxToWord: ixToWord,
			WtoD:     wtod,
			WtoL:     wtol,
			Images:   make([]dataset.ImageMeta, 0, len(images)),
		},
		Captions: make([][]dataset.EncodedCaption, 0, len(images)),
	}
	for _, img := range images {
		meta := variant.Meta(img.Annotation)
		meta.Split = img.Split
		a.Bundle.Images = append(a.Bundle.Images, meta)
		encoded := img.Encoded
		if encoded == nil {
			encoded = []dataset.EncodedCaption{}
		}
		a.Captions = append(a.Captions, encoded)
	}
	return a
}

// Result reports what Emit wrote.
type Result struct {
	DictionaryPath  string
	CaptionPath     string
	DictionaryBytes int64
	CaptionBytes    int64
}

// Emitter writes Artifacts to disk.
type Emitter struct {
	logger *slog.Logger
	rename func(oldpath, newpath string) error
}

// New creates an Emitter.
func New() *Emitter {
	return &Emitter{
		logger: logger.WithComponent("emitter"),
		rename: os.Rename,
	}
}

// Emit writes the bundle to dictPath and the captions to capPath, both or
// neither. Both files are fully written and synced before either
// destination is touched. An existing dictionary is moved aside while the
// caption list is put in place and restored if that fails, so a failed
// Emit leaves the previous outputs as they were.
func (e *Emitter) Emit(dictPath, capPath string, a Artifacts) (Result, error) {
	if len(a.Bundle.Images) != len(a.Captions) {
		return Result{}, apperrors.Newf(apperrors.ErrOutput, "artifacts not aligned: %d images, %d caption lists",
			len(a.Bundle.Images), len(a.Captions))
	}
	for _, path := range []string{dictPath, capPath} {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			return Result{}, apperrors.Newf(apperrors.ErrOutput, "output path %s is a directory", path)
		}
	}
	dictTmp, dictSize, err := stage(dictPath, a.Bundle)
	if err != nil {
		return Result{}, err
	}
	capTmp, capSize, err := stage(capPath, a.Captions)
	if err != nil {
		os.Remove(dictTmp)
		return Result{}, err
	}
	if err := e.commit(dictPath, dictTmp, capPath, capTmp); err != nil {
		return Result{}, err
	}
	e.logger.Info("wrote dictionary bundle", "path", dictPath, "bytes", dictSize)
	e.logger.Info("wrote caption list", "path", capPath, "bytes", capSize)
	return Result{
		DictionaryPath:  dictPath,
		CaptionPath:     capPath,
		DictionaryBytes: dictSize,
		CaptionBytes:    capSize,
	}, nil
}

// commit renames both staged files into place. On failure the staged files
// are removed and any previous dictionary is put back.
func (e *Emitter) commit(dictPath, dictTmp, capPath, capTmp string) error {
	backup := dictPath + ".bak"
	hadPrevious := false
	if _, err := os.Stat(dictPath); err == nil {
		if err := e.rename(dictPath, backup); err != nil {
			os.Remove(dictTmp)
			os.Remove(capTmp)
			return apperrors.Newf(apperrors.ErrOutput, "moving previous %s aside: %v", dictPath, err)
		}
		hadPrevious = true
	}
	restore := func() {
		if !hadPrevious {
			return
		}
		if err := e.rename(backup, dictPath); err != nil {
			e.logger.Error("restoring previous dictionary failed", "backup", backup, "error", err)
		}
	}

	if err := e.rename(dictTmp, dictPath); err != nil {
		os.Remove(dictTmp)
		os.Remove(capTmp)
		restore()
		return apperrors.Newf(apperrors.ErrOutput, "renaming %s: %v", dictPath, err)
	}
	if err := e.rename(capTmp, capPath); err != nil {
		os.Remove(capTmp)
		os.Remove(dictPath)
		restore()
		return apperrors.Newf(apperrors.ErrOutput, "renaming %s: %v", capPath, err)
	}
	if hadPrevious {
		if err := os.Remove(backup); err != nil {
			e.logger.Warn("removing dictionary backup failed", "path", backup, "error", err)
		}
	}
	return nil
}

// stage encodes v into a temp file beside path and returns its name.
func stage(path string, v any) (string, int64, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", 0, apperrors.Newf(apperrors.ErrOutput, "creating output directory %s: %v", dir, err)
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return "", 0, apperrors.Newf(apperrors.ErrOutput, "creating temp file for %s: %v", path, err)
	}
	tmp := f.Name()
	fail := func(format string, args ...any) (string, int64, error) {
		f.Close()
		os.Remove(tmp)
		return "", 0, apperrors.Newf(apperrors.ErrOutput, format, args...)
	}
	w := bufio.NewWriterSize(f, 1<<20)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		return fail("encoding %s: %v", path, err)
	}
	if err := w.Flush(); err != nil {
		return fail("writing %s: %v", path, err)
	}
	if err := f.Sync(); err != nil {
		return fail("syncing %s: %v", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		return fail("stat %s: %v", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return "", 0, apperrors.Newf(apperrors.ErrOutput, "closing %s: %v", path, err)
	}
	return tmp, info.Size(), nil
}
