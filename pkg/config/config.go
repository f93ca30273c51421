// Package config loads and validates the preprocessing configuration from a
// YAML file with environment-variable overrides. It provides typed structs for
// the dataset inputs, vocabulary options, outputs, the lemmatizer, and the
// optional Redis, PostgreSQL and Kafka integrations.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/caption-prepro/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Supported dataset variants.
const (
	VariantFlickr30k = "flickr30k"
	VariantCOCO      = "coco"
)

// Config is the top-level preprocessing configuration.
type Config struct {
	Dataset    DatasetConfig    `yaml:"dataset"`
	Vocab      VocabConfig      `yaml:"vocab"`
	Output     OutputConfig     `yaml:"output"`
	Lemmatizer LemmatizerConfig `yaml:"lemmatizer"`
	Postgres   PostgresConfig   `yaml:"postgres"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Redis      RedisConfig      `yaml:"redis"`
	Logging    LoggingConfig    `yaml:"logging"`
	Tracing    TracingConfig    `yaml:"tracing"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// DatasetConfig names the dataset variant and its three input files.
type DatasetConfig struct {
	Variant         string `yaml:"variant"`
	InputJSON       string `yaml:"inputJson"`
	AnnotationsJSON string `yaml:"annotationsJson"`
	ClassNames      string `yaml:"classNames"`
}

// VocabConfig controls vocabulary selection and the corpus statistics.
type VocabConfig struct {
	MinWordCount int    `yaml:"minWordCount"`
	MaxLength    int    `yaml:"maxLength"`
	UnkToken     string `yaml:"unkToken"`
	TopN         int    `yaml:"topN"`
}

// OutputConfig holds the two artifact paths.
type OutputConfig struct {
	DictionaryJSON string `yaml:"dictionaryJson"`
	CaptionJSON    string `yaml:"captionJson"`
}

// LemmatizerConfig points at the CoreNLP server used for lemmas.
type LemmatizerConfig struct {
	URL         string        `yaml:"url"`
	Language    string        `yaml:"language"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxAttempts int           `yaml:"maxAttempts"`
	Cache       bool          `yaml:"cache"`
}

// PostgresConfig holds PostgreSQL connection parameters for the run registry.
type PostgresConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Enabled bool        `yaml:"enabled"`
	Brokers []string    `yaml:"brokers"`
	Topics  KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	ArtifactsReady string `yaml:"artifactsReady"`
}

// RedisConfig holds Redis connection and lemma-cache parameters.
type RedisConfig struct {
	Addr      string        `yaml:"addr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	PoolSize  int           `yaml:"poolSize"`
	CacheTTL  time.Duration `yaml:"cacheTTL"`
	KeyPrefix string        `yaml:"keyPrefix"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TracingConfig toggles the per-stage span log.
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. Missing values keep their defaults. The result is not validated;
// call Validate once command-line overrides have been applied.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, apperrors.Newf(apperrors.ErrConfig, "reading config file %s: %v", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, apperrors.Newf(apperrors.ErrConfig, "parsing config file %s: %v", path, err)
		}
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// Validate reports the first configuration problem that would prevent a run.
func (c *Config) Validate() error {
	switch c.Dataset.Variant {
	case VariantFlickr30k, VariantCOCO:
	default:
		return apperrors.Newf(apperrors.ErrConfig, "unsupported dataset variant %q", c.Dataset.Variant)
	}
	if c.Vocab.MinWordCount < 0 {
		return apperrors.Newf(apperrors.ErrConfig, "minWordCount must be >= 0, got %d", c.Vocab.MinWordCount)
	}
	if strings.TrimSpace(c.Vocab.UnkToken) == "" {
		return apperrors.New(apperrors.ErrConfig, "unkToken must not be empty")
	}
	required := []struct{ key, value string }{
		{"dataset.inputJson", c.Dataset.InputJSON},
		{"dataset.annotationsJson", c.Dataset.AnnotationsJSON},
		{"dataset.classNames", c.Dataset.ClassNames},
		{"output.dictionaryJson", c.Output.DictionaryJSON},
		{"output.captionJson", c.Output.CaptionJSON},
		{"lemmatizer.url", c.Lemmatizer.URL},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return apperrors.Newf(apperrors.ErrConfig, "%s is required", r.key)
		}
	}
	if c.Output.DictionaryJSON == c.Output.CaptionJSON {
		return apperrors.New(apperrors.ErrConfig, "dictionary and caption outputs must be different files")
	}
	if c.Kafka.Enabled && c.Kafka.Topics.ArtifactsReady == "" {
		return apperrors.New(apperrors.ErrConfig, "kafka.topics.artifactsReady is required when kafka is enabled")
	}
	return nil
}

// defaultConfig returns a Config matching the flickr30k layout used by the
// captioning data loader.
func defaultConfig() *Config {
	return &Config{
		Dataset: DatasetConfig{
			Variant:         VariantFlickr30k,
			InputJSON:       "data/flickr30k/dataset_flickr30k.json",
			AnnotationsJSON: "data/flickr30k/flickr30k_cleaned_class.json",
			ClassNames:      "data/flickr30k/flickr30k_class_name.txt",
		},
		Vocab: VocabConfig{
			MinWordCount: 3,
			MaxLength:    20,
			UnkToken:     "UNK",
			TopN:         20,
		},
		Output: OutputConfig{
			DictionaryJSON: "data/flickr30k/dic_flickr30k.json",
			CaptionJSON:    "data/flickr30k/cap_flickr30k.json",
		},
		Lemmatizer: LemmatizerConfig{
			URL:         "http://localhost:9000",
			Language:    "en",
			MaxAttempts: 1,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "captionprepro",
			User:            "captionprepro",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    4,
			MaxIdleConns:    1,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers: []string{"localhost:9092"},
			Topics: KafkaTopics{
				ArtifactsReady: "prepro.artifacts-ready",
			},
		},
		Redis: RedisConfig{
			Addr:      "localhost:6379",
			PoolSize:  4,
			CacheTTL:  30 * 24 * time.Hour,
			KeyPrefix: "lemma:",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads CP_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CP_DATASET_VARIANT"); v != "" {
		cfg.Dataset.Variant = v
	}
	if v := os.Getenv("CP_VOCAB_MIN_WORD_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Vocab.MinWordCount = n
		}
	}
	if v := os.Getenv("CP_LEMMATIZER_URL"); v != "" {
		cfg.Lemmatizer.URL = v
	}
	if v := os.Getenv("CP_LEMMATIZER_CACHE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Lemmatizer.Cache = b
		}
	}
	if v := os.Getenv("CP_POSTGRES_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Postgres.Enabled = b
		}
	}
	if v := os.Getenv("CP_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("CP_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("CP_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("CP_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("CP_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("CP_KAFKA_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Kafka.Enabled = b
		}
	}
	if v := os.Getenv("CP_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("CP_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("CP_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("CP_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("CP_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("CP_METRICS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Metrics.Port = port
		}
	}
}
