// Package pipeline runs one preprocessing pass: it loads the inputs, merges
// splits, builds the vocabulary, rewrites captions, builds the
// cross-reference tables, and writes both artifacts. Nothing is written
// unless every stage before the emitter succeeds.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/caption-prepro/internal/caption"
	"github.com/Adithya-Monish-Kumar-K/caption-prepro/internal/dataset"
	"github.com/Adithya-Monish-Kumar-K/caption-prepro/internal/emitter"
	"github.com/Adithya-Monish-Kumar-K/caption-prepro/internal/lemma"
	"github.com/Adithya-Monish-Kumar-K/caption-prepro/internal/notify"
	"github.com/Adithya-Monish-Kumar-K/caption-prepro/internal/registry"
	"github.com/Adithya-Monish-Kumar-K/caption-prepro/internal/split"
	"github.com/Adithya-Monish-Kumar-K/caption-prepro/internal/vocab"
	"github.com/Adithya-Monish-Kumar-K/caption-prepro/internal/xref"
	"github.com/Adithya-Monish-Kumar-K/caption-prepro/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/caption-prepro/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/caption-prepro/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/caption-prepro/pkg/tracing"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// RunRecorder stores a summary of a finished run.
type RunRecorder interface {
	RecordRun(ctx context.Context, run registry.Run) error
}

// ArtifactsNotifier announces finished artifacts.
type ArtifactsNotifier interface {
	ArtifactsReady(ctx context.Context, ev notify.ArtifactsReady) error
}

// Deps are the collaborators of a Pipeline. Lemmatizer is required; the
// others may be nil.
type Deps struct {
	Lemmatizer lemma.Lemmatizer
	Metrics    *metrics.Metrics
	Recorder   RunRecorder
	Notifier   ArtifactsNotifier
}

// Result summarizes a successful run.
type Result struct {
	RunID       string
	Images      int
	VocabSize   int
	HasSentinel bool
	Splits      split.Summary
	Stats       vocab.Stats
	Rewrite     caption.Result
	Output      emitter.Result
}

// Pipeline is a configured preprocessing run.
type Pipeline struct {
	cfg     *config.Config
	deps    Deps
	emitter *emitter.Emitter
}

// New creates a Pipeline. cfg must already be validated.
func New(cfg *config.Config, deps Deps) *Pipeline {
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}
	return &Pipeline{
		cfg:     cfg,
		deps:    deps,
		emitter: emitter.New(),
	}
}

// Run executes the pass once.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	started := time.Now()
	runID := uuid.NewString()
	ctx = logger.WithRunID(ctx, runID)
	log := logger.FromContext(ctx).With("component", "pipeline")
	ctx, root := tracing.StartSpan(ctx, "prepro", runID)
	defer func() {
		root.End()
		p.observeStages(root)
		if p.cfg.Tracing.Enabled {
			root.Log(log)
		}
	}()

	log.Info("preprocessing started",
		"variant", p.cfg.Dataset.Variant,
		"input_json", p.cfg.Dataset.InputJSON,
		"annotations_json", p.cfg.Dataset.AnnotationsJSON,
		"class_names", p.cfg.Dataset.ClassNames,
		"min_word_count", p.cfg.Vocab.MinWordCount,
		"max_length", p.cfg.Vocab.MaxLength,
		"dictionary_json", p.cfg.Output.DictionaryJSON,
		"caption_json", p.cfg.Output.CaptionJSON,
	)

	if p.deps.Lemmatizer == nil {
		return nil, errors.New("pipeline: no lemmatizer configured")
	}
	variant, err := dataset.VariantFor(p.cfg.Dataset.Variant)
	if err != nil {
		return nil, err
	}

	var (
		splits   map[string]string
		images   []*dataset.ImageRecord
		taxonomy *xref.Taxonomy
	)
	err = tracing.Stage(ctx, "load", func(ctx context.Context) error {
		var g errgroup.Group
		g.Go(func() error {
			var err error
			splits, err = dataset.LoadSplits(p.cfg.Dataset.InputJSON)
			return err
		})
		g.Go(func() error {
			var err error
			images, err = dataset.LoadAnnotations(p.cfg.Dataset.AnnotationsJSON)
			return err
		})
		g.Go(func() error {
			var err error
			taxonomy, err = xref.LoadTaxonomy(p.cfg.Dataset.ClassNames)
			return err
		})
		return g.Wait()
	})
	if err != nil {
		return nil, err
	}

	res := &Result{RunID: runID, Images: len(images)}

	err = tracing.Stage(ctx, "split", func(ctx context.Context) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		res.Splits = split.Merge(images, splits, variant)
		for label, n := range res.Splits {
			p.deps.Metrics.SplitAssignments.WithLabelValues(label).Add(float64(n))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var (
		vocabulary *vocab.Vocabulary
		index      *vocab.Index
	)
	err = tracing.Stage(ctx, "vocab", func(ctx context.Context) error {
		counts := vocab.Count(images)
		var err error
		vocabulary, err = vocab.Select(counts, p.cfg.Vocab.MinWordCount, p.cfg.Vocab.UnkToken)
		if err != nil {
			return err
		}
		index, err = vocab.NewIndex(vocabulary.Words())
		if err != nil {
			return err
		}
		res.Stats = vocab.Summarize(images, counts, vocabulary, p.cfg.Vocab.TopN)
		res.Stats.Log(logger.FromContext(ctx).With("component", "vocab"))
		if vocabulary.HasSentinel() {
			log.Info("inserted sentinel token", "token", vocabulary.Sentinel())
		}
		tracing.SetAttr(ctx, "vocab_size", vocabulary.Len())
		p.deps.Metrics.TokensCounted.Add(float64(res.Stats.TotalWords))
		p.deps.Metrics.VocabSize.Set(float64(vocabulary.Len()))
		return nil
	})
	if err != nil {
		return nil, err
	}
	res.VocabSize = vocabulary.Len()
	res.HasSentinel = vocabulary.HasSentinel()

	err = tracing.Stage(ctx, "rewrite", func(ctx context.Context) error {
		var err error
		res.Rewrite, err = caption.NewRewriter(vocabulary).Rewrite(images)
		p.deps.Metrics.CaptionsRewritten.Add(float64(res.Rewrite.Captions))
		p.deps.Metrics.UnkTokens.Add(float64(res.Rewrite.Replaced))
		return err
	})
	if err != nil {
		return nil, err
	}

	var wtol map[string]string
	err = tracing.Stage(ctx, "lemmas", func(ctx context.Context) error {
		var err error
		wtol, err = xref.BuildLemmaMap(ctx, vocabulary, p.deps.Lemmatizer)
		tracing.SetAttr(ctx, "entries", len(wtol))
		return err
	})
	if err != nil {
		return nil, err
	}

	err = tracing.Stage(ctx, "emit", func(ctx context.Context) error {
		artifacts := emitter.Assemble(images, variant, index.IxToWord(), taxonomy.WordToClass, wtol)
		var err error
		res.Output, err = p.emitter.Emit(p.cfg.Output.DictionaryJSON, p.cfg.Output.CaptionJSON, artifacts)
		if err != nil {
			return err
		}
		p.deps.Metrics.ImagesProcessed.Add(float64(len(images)))
		p.deps.Metrics.ArtifactBytes.WithLabelValues("dictionary").Set(float64(res.Output.DictionaryBytes))
		p.deps.Metrics.ArtifactBytes.WithLabelValues("captions").Set(float64(res.Output.CaptionBytes))
		return nil
	})
	if err != nil {
		return nil, err
	}

	p.announce(ctx, log, res, started)
	log.Info("preprocessing finished",
		"images", res.Images,
		"vocab_size", res.VocabSize,
		"duration", time.Since(started).Round(time.Millisecond),
	)
	return res, nil
}

// announce records and publishes the finished run. The artifacts are
// already in place, so failures here are logged and not returned.
func (p *Pipeline) announce(ctx context.Context, log *slog.Logger, res *Result, started time.Time) {
	finished := time.Now()
	if p.deps.Recorder != nil {
		run := registry.Run{
			RunID:          res.RunID,
			Variant:        p.cfg.Dataset.Variant,
			MinWordCount:   p.cfg.Vocab.MinWordCount,
			MaxLength:      p.cfg.Vocab.MaxLength,
			VocabSize:      res.VocabSize,
			UnkCount:       res.Rewrite.Replaced,
			ImageCount:     res.Images,
			Splits:         res.Splits,
			DictionaryPath: res.Output.DictionaryPath,
			CaptionPath:    res.Output.CaptionPath,
			StartedAt:      started,
			FinishedAt:     finished,
		}
		if err := p.deps.Recorder.RecordRun(ctx, run); err != nil {
			log.Error("failed to record run", "error", err)
		}
	}
	if p.deps.Notifier != nil {
		ev := notify.ArtifactsReady{
			RunID:          res.RunID,
			Variant:        p.cfg.Dataset.Variant,
			DictionaryPath: res.Output.DictionaryPath,
			CaptionPath:    res.Output.CaptionPath,
			VocabSize:      res.VocabSize,
			ImageCount:     res.Images,
			FinishedAt:     finished,
		}
		if err := p.deps.Notifier.ArtifactsReady(ctx, ev); err != nil {
			log.Error("failed to publish artifacts-ready", "error", err)
		}
	}
}

func (p *Pipeline) observeStages(root *tracing.Span) {
	root.Walk(func(span *tracing.Span, depth int) {
		if depth == 1 && !span.EndTime.IsZero() {
			p.deps.Metrics.StageDuration.WithLabelValues(span.Name).Observe(span.Duration.Seconds())
		}
	})
}
