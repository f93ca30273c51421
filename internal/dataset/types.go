// Package dataset holds the data model of a captioning dataset as it moves
// through preprocessing: processed annotations, the image records built from
// them, encoded captions, and the per-image metadata written to the
// dictionary bundle.
package dataset

import (
	"encoding/json"
	"fmt"

	apperrors "github.com/Adithya-Monish-Kumar-K/caption-prepro/pkg/errors"
)

// Caption is one raw caption from the processed annotation set. The three
// auxiliary slices are aligned with Tokens position for position. Their
// elements are kept as raw JSON: labels may be strings or integers and a
// token without a box may carry null, and all of it is written back as read.
type Caption struct {
	Tokens []string          `json:"tokens"`
	Clss   []json.RawMessage `json:"process_clss"`
	BBox   []json.RawMessage `json:"process_bnd_box"`
	Idx    []json.RawMessage `json:"process_idx"`
}

// Validate checks that the auxiliary slices share the token slice's length.
func (c Caption) Validate() error {
	n := len(c.Tokens)
	if len(c.Clss) != n || len(c.BBox) != n || len(c.Idx) != n {
		return apperrors.Newf(apperrors.ErrInvalidInput,
			"caption misaligned: tokens=%d clss=%d bbox=%d idx=%d",
			n, len(c.Clss), len(c.BBox), len(c.Idx))
	}
	return nil
}

// Annotation is one image entry of the processed annotation set. Which of
// the identifying fields are present depends on the dataset variant.
type Annotation struct {
	ImageID  *int64    `json:"image_id,omitempty"`
	CocoID   *int64    `json:"cocoid,omitempty"`
	FilePath string    `json:"filepath,omitempty"`
	FileName string    `json:"filename,omitempty"`
	Captions []Caption `json:"captions"`
}

// ImageRecord is an annotation being carried through the pipeline. Split is
// set by the split merger and Encoded by the caption rewriter.
type ImageRecord struct {
	Annotation
	Split   string
	Encoded []EncodedCaption
}

// EncodedCaption is a caption rewritten against the vocabulary, as written
// to the caption artifact.
type EncodedCaption struct {
	Caption []string          `json:"caption"`
	Clss    []json.RawMessage `json:"clss"`
	BBox    []json.RawMessage `json:"bbox"`
	Idx     []json.RawMessage `json:"idx"`
}

// ImageMeta is the per-image entry of the dictionary bundle. Fields the
// source record lacks are omitted rather than defaulted.
type ImageMeta struct {
	Split    string `json:"split"`
	FilePath string `json:"file_path,omitempty"`
	ID       *int64 `json:"id,omitempty"`
}

// NewRecords wraps annotations into image records, validating every caption.
func NewRecords(anns []Annotation) ([]*ImageRecord, error) {
	records := make([]*ImageRecord, 0, len(anns))
	for i, ann := range anns {
		for j, c := range ann.Captions {
			if err := c.Validate(); err != nil {
				return nil, fmt.Errorf("annotation %d caption %d: %w", i, j, err)
			}
		}
		records = append(records, &ImageRecord{Annotation: ann})
	}
	return records, nil
}
