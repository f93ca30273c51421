package lemma

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/caption-prepro/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/caption-prepro/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/caption-prepro/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/caption-prepro/pkg/resilience"
)

const maxResponseBytes = 1 << 20

// coreNLPResponse is the part of the CoreNLP JSON output the client reads.
type coreNLPResponse struct {
	Sentences []struct {
		Tokens []struct {
			Word  string `json:"word"`
			Lemma string `json:"lemma"`
		} `json:"tokens"`
	} `json:"sentences"`
}

// CoreNLP is a client for a Stanford CoreNLP server running the
// tokenize, ssplit and lemma annotators.
type CoreNLP struct {
	endpoint string
	base     *url.URL
	http     *http.Client
	cfg      config.LemmatizerConfig
	logger   *slog.Logger
}

// NewCoreNLP creates a client for the server at cfg.URL. The client owns
// its HTTP transport; call Close to release it.
func NewCoreNLP(cfg config.LemmatizerConfig) (*CoreNLP, error) {
	base, err := url.Parse(cfg.URL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, apperrors.Newf(apperrors.ErrConfig, "invalid lemmatizer url %q", cfg.URL)
	}
	lang := cfg.Language
	if lang == "" {
		lang = "en"
	}
	props, err := json.Marshal(map[string]string{
		"annotators":       "tokenize,ssplit,lemma",
		"pipelineLanguage": lang,
		"outputFormat":     "json",
	})
	if err != nil {
		return nil, fmt.Errorf("encoding corenlp properties: %w", err)
	}
	endpoint := *base
	q := endpoint.Query()
	q.Set("properties", string(props))
	endpoint.RawQuery = q.Encode()

	return &CoreNLP{
		endpoint: endpoint.String(),
		base:     base,
		http:     &http.Client{Transport: http.DefaultTransport.(*http.Transport).Clone()},
		cfg:      cfg,
		logger:   logger.WithComponent("corenlp").With("url", cfg.URL),
	}, nil
}

// Lemma annotates word and returns the lemma of its first token.
func (c *CoreNLP) Lemma(ctx context.Context, word string) (string, error) {
	retry := resilience.RetryConfig{
		MaxAttempts: c.cfg.MaxAttempts,
		ShouldRetry: func(err error) bool {
			return !errors.Is(err, apperrors.ErrMalformedResponse)
		},
	}
	lemma, err := resilience.Do(ctx, "corenlp-lemma", retry, func(ctx context.Context) (string, error) {
		return resilience.Timeout(ctx, c.cfg.Timeout, "corenlp-lemma", func(ctx context.Context) (string, error) {
			return c.annotate(ctx, word)
		})
	})
	if err != nil {
		return "", fmt.Errorf("lemmatizing %q: %w", word, err)
	}
	return lemma, nil
}

func (c *CoreNLP) annotate(ctx context.Context, word string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBufferString(word))
	if err != nil {
		return "", fmt.Errorf("building corenlp request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	resp, err := c.http.Do(req)
	if err != nil {
		return "", apperrors.Newf(apperrors.ErrLemmatizer, "%v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", apperrors.Newf(apperrors.ErrLemmatizer, "reading response: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", apperrors.Newf(apperrors.ErrLemmatizer, "status %d: %s",
			resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return parseLemma(body)
}

func parseLemma(body []byte) (string, error) {
	var out coreNLPResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", apperrors.Newf(apperrors.ErrMalformedResponse, "decoding response: %v", err)
	}
	if len(out.Sentences) == 0 || len(out.Sentences[0].Tokens) == 0 {
		return "", apperrors.New(apperrors.ErrMalformedResponse, "response has no tokens")
	}
	lemma := out.Sentences[0].Tokens[0].Lemma
	if lemma == "" {
		return "", apperrors.New(apperrors.ErrMalformedResponse, "first token has no lemma")
	}
	return lemma, nil
}

// Ping asks the server's readiness endpoint whether it can annotate.
func (c *CoreNLP) Ping(ctx context.Context) error {
	ready := c.base.JoinPath("ready")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ready.String(), nil)
	if err != nil {
		return fmt.Errorf("building readiness request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return apperrors.Newf(apperrors.ErrLemmatizer, "%v", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return apperrors.Newf(apperrors.ErrLemmatizer, "readiness status %d", resp.StatusCode)
	}
	return nil
}

// Close releases idle connections held by the client.
func (c *CoreNLP) Close() error {
	c.http.CloseIdleConnections()
	c.logger.Debug("corenlp client closed")
	return nil
}
