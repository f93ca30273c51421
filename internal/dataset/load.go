package dataset

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/caption-prepro/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/caption-prepro/pkg/logger"
)

// FallbackSplit is assigned to images missing from the raw split descriptor.
const FallbackSplit = "rest"

type rawDescriptor struct {
	Images []struct {
		FileName string `json:"filename"`
		Split    string `json:"split"`
	} `json:"images"`
}

type annotationSet struct {
	Annotations []Annotation `json:"annotations"`
}

// LoadSplits reads the raw dataset descriptor and returns the image→split
// map keyed by file name without extension.
func LoadSplits(path string) (map[string]string, error) {
	var raw rawDescriptor
	if err := decodeFile(path, &raw); err != nil {
		return nil, err
	}
	splits := make(map[string]string, len(raw.Images))
	for _, img := range raw.Images {
		splits[SplitKey(img.FileName)] = img.Split
	}
	logger.WithComponent("dataset").Info("split descriptor loaded",
		"path", path,
		"images", len(raw.Images),
	)
	return splits, nil
}

// SplitKey normalizes a file name into a split-map key by dropping
// everything from the first dot.
func SplitKey(fileName string) string {
	key, _, _ := strings.Cut(fileName, ".")
	return key
}

// LoadAnnotations reads the processed annotation set into image records.
func LoadAnnotations(path string) ([]*ImageRecord, error) {
	var set annotationSet
	if err := decodeFile(path, &set); err != nil {
		return nil, err
	}
	records, err := NewRecords(set.Annotations)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	logger.WithComponent("dataset").Info("annotations loaded",
		"path", path,
		"images", len(records),
	)
	return records, nil
}

func decodeFile(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return apperrors.Newf(apperrors.ErrConfig, "input file %s does not exist", path)
		}
		return apperrors.Newf(apperrors.ErrConfig, "opening %s: %v", path, err)
	}
	defer f.Close()
	return decode(bufio.NewReaderSize(f, 1<<20), path, v)
}

func decode(r io.Reader, name string, v any) error {
	if err := json.NewDecoder(r).Decode(v); err != nil {
		return apperrors.Newf(apperrors.ErrInvalidInput, "decoding %s: %v", name, err)
	}
	return nil
}
