package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/caption-prepro/internal/lemma"
	"github.com/Adithya-Monish-Kumar-K/caption-prepro/internal/notify"
	"github.com/Adithya-Monish-Kumar-K/caption-prepro/internal/pipeline"
	"github.com/Adithya-Monish-Kumar-K/caption-prepro/internal/registry"
	"github.com/Adithya-Monish-Kumar-K/caption-prepro/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/caption-prepro/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/caption-prepro/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/caption-prepro/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/caption-prepro/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/caption-prepro/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/caption-prepro/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/caption-prepro/pkg/redis"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	dataset := flag.String("dataset", "", "dataset variant (flickr30k or coco)")
	inputJSON := flag.String("input-json", "", "raw dataset descriptor with split assignments")
	annotationsJSON := flag.String("annotations-json", "", "processed annotation set")
	classNames := flag.String("input-class-name", "", "detection class name file")
	dicJSON := flag.String("output-dic-json", "", "output dictionary bundle")
	capJSON := flag.String("output-cap-json", "", "output caption list")
	maxLength := flag.Int("max-length", 0, "max caption length in words (recorded only)")
	threshold := flag.Int("word-count-threshold", 0, "only words occurring more than this many times enter the vocabulary")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(apperrors.ExitCode(err))
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "dataset":
			cfg.Dataset.Variant = *dataset
		case "input-json":
			cfg.Dataset.InputJSON = *inputJSON
		case "annotations-json":
			cfg.Dataset.AnnotationsJSON = *annotationsJSON
		case "input-class-name":
			cfg.Dataset.ClassNames = *classNames
		case "output-dic-json":
			cfg.Output.DictionaryJSON = *dicJSON
		case "output-cap-json":
			cfg.Output.CaptionJSON = *capJSON
		case "max-length":
			cfg.Vocab.MaxLength = *maxLength
		case "word-count-threshold":
			cfg.Vocab.MinWordCount = *threshold
		}
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(apperrors.ExitCode(err))
	}

	logger.Setup(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg)
	stop()
	if err != nil {
		slog.Error("preprocessing failed", "error", err)
		os.Exit(apperrors.ExitCode(err))
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	m := metrics.New()
	if cfg.Metrics.Enabled {
		shutdown, err := m.Serve(cfg.Metrics.Port)
		if err != nil {
			return apperrors.Newf(apperrors.ErrConfig, "metrics.port %d: %v", cfg.Metrics.Port, err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			shutdown(shutdownCtx)
		}()
	}

	preflight := health.NewChecker(5 * time.Second)

	nlp, err := lemma.NewCoreNLP(cfg.Lemmatizer)
	if err != nil {
		return err
	}
	defer nlp.Close()
	preflight.Register("corenlp", nlp.Ping)
	var lemmatizer lemma.Lemmatizer = lemma.Instrument(nlp, m)

	if cfg.Lemmatizer.Cache {
		rdb, err := redis.NewClient(ctx, cfg.Redis)
		if err != nil {
			return apperrors.Newf(apperrors.ErrDependency, "connecting to redis: %v", err)
		}
		defer rdb.Close()
		preflight.Register("redis", rdb.Ping)
		lemmatizer = lemma.NewCache(rdb, lemmatizer, cfg.Redis.KeyPrefix, cfg.Redis.CacheTTL, m)
		slog.Info("lemma cache enabled", "addr", cfg.Redis.Addr)
	}

	deps := pipeline.Deps{
		Lemmatizer: lemmatizer,
		Metrics:    m,
	}

	if cfg.Postgres.Enabled {
		db, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return apperrors.Newf(apperrors.ErrDependency, "connecting to postgres: %v", err)
		}
		defer db.Close()
		preflight.Register("postgres", db.Ping)
		store := registry.NewStore(db)
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
		deps.Recorder = store
	}

	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.ArtifactsReady)
		defer producer.Close()
		preflight.Register("kafka", producer.Ping)
		deps.Notifier = notify.New(producer)
	}

	if err := preflight.Run(ctx).Err(); err != nil {
		return err
	}

	res, err := pipeline.New(cfg, deps).Run(ctx)
	if err != nil {
		return err
	}
	slog.Info("wrote artifacts",
		"run_id", res.RunID,
		"dictionary", res.Output.DictionaryPath,
		"captions", res.Output.CaptionPath,
	)
	return nil
}
