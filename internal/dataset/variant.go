package dataset

import (
	"path"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/caption-prepro/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/caption-prepro/pkg/errors"
)

// Variant maps a processed annotation onto the identifiers of one source
// schema. It is selected once from configuration.
type Variant interface {
	Name() string
	// SplitKey returns the identifier used to look the image up in the raw
	// split descriptor.
	SplitKey(ann Annotation) (string, bool)
	// Meta returns the bundle metadata for ann, without the split.
	Meta(ann Annotation) ImageMeta
}

// VariantFor returns the Variant registered under name.
func VariantFor(name string) (Variant, error) {
	switch name {
	case config.VariantFlickr30k:
		return flickr30k{}, nil
	case config.VariantCOCO:
		return coco{}, nil
	default:
		return nil, apperrors.Newf(apperrors.ErrConfig, "unsupported dataset variant %q", name)
	}
}

type flickr30k struct{}

func (flickr30k) Name() string { return config.VariantFlickr30k }

func (flickr30k) SplitKey(ann Annotation) (string, bool) {
	if ann.ImageID == nil {
		return "", false
	}
	return strconv.FormatInt(*ann.ImageID, 10), true
}

func (flickr30k) Meta(ann Annotation) ImageMeta {
	var meta ImageMeta
	if ann.ImageID != nil {
		id := *ann.ImageID
		meta.FilePath = strconv.FormatInt(id, 10) + ".jpg"
		meta.ID = &id
	}
	return meta
}

type coco struct{}

func (coco) Name() string { return config.VariantCOCO }

func (coco) SplitKey(ann Annotation) (string, bool) {
	switch {
	case ann.ImageID != nil:
		return strconv.FormatInt(*ann.ImageID, 10), true
	case ann.CocoID != nil:
		return strconv.FormatInt(*ann.CocoID, 10), true
	default:
		return "", false
	}
}

func (coco) Meta(ann Annotation) ImageMeta {
	var meta ImageMeta
	if ann.FileName != "" {
		meta.FilePath = path.Join(ann.FilePath, ann.FileName)
	}
	if ann.CocoID != nil {
		id := *ann.CocoID
		meta.ID = &id
	}
	return meta
}
