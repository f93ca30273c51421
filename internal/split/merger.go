// Package split assigns every processed image its train/val/test split from
// the raw dataset descriptor.
package split

import (
	"sort"

	"github.com/Adithya-Monish-Kumar-K/caption-prepro/internal/dataset"
	"github.com/Adithya-Monish-Kumar-K/caption-prepro/pkg/logger"
)

// Summary counts images per assigned split.
type Summary map[string]int

// Labels returns the split labels in sorted order.
func (s Summary) Labels() []string {
	labels := make([]string, 0, len(s))
	for l := range s {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return labels
}

// Merge sets Split on every image. Images whose key is absent from splits,
// or that carry no usable identifier, get dataset.FallbackSplit.
func Merge(images []*dataset.ImageRecord, splits map[string]string, variant dataset.Variant) Summary {
	summary := make(Summary)
	for _, img := range images {
		label := dataset.FallbackSplit
		if key, ok := variant.SplitKey(img.Annotation); ok {
			if s, found := splits[key]; found && s != "" {
				label = s
			}
		}
		img.Split = label
		summary[label]++
	}
	log := logger.WithComponent("split-merger")
	for _, label := range summary.Labels() {
		log.Info("split assigned", "split", label, "images", summary[label])
	}
	return summary
}
