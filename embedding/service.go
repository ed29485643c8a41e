// Copyright 2025 CareBridge
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package embedding

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"carebridge/platform/llm"
	"carebridge/platform/security"
	"carebridge/platform/shared/fault"
	"carebridge/platform/shared/logger"
	"carebridge/platform/telemetry"
)

const (
	defaultBatchSize = 10
)

var (
	promEmbeddings = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carebridge_embeddings_total",
			Help: "Embedding generations by outcome.",
		},
		[]string{"status"},
	)

	promEmbeddingBatchItems = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "carebridge_embedding_batch_items",
			Help:    "Input sizes of embedding batch requests.",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250},
		},
	)
)

func init() {
	prometheus.MustRegister(promEmbeddings)
	prometheus.MustRegister(promEmbeddingBatchItems)
}

// EmbedClient is the slice of the model facade this service uses.
type EmbedClient interface {
	Embed(ctx context.Context, sec *security.Context, req llm.EmbedRequest) (*llm.EmbedResponse, error)
}

// Config tunes text preparation and batch pacing.
type Config struct {
	// ModelID selects the embedding model. Empty uses the model
	// facade's default.
	ModelID string

	// MaxInputLength caps input text in runes; longer texts are
	// truncated per the strategy. Zero disables truncation.
	MaxInputLength int

	// Truncation picks which part of an over-long text survives.
	// Empty means end.
	Truncation TruncationStrategy

	// Normalize scales every generated vector to unit magnitude.
	Normalize bool

	// BatchSize bounds how many texts embed concurrently. Zero selects
	// the default of 10.
	BatchSize int

	// BatchPause is the delay inserted between consecutive batches to
	// respect downstream rate limits. Zero disables pacing.
	BatchPause time.Duration
}

// EmbeddingResult is the outcome for one input text. Batch calls return
// one result per input, in input order; a failed item carries
// IsSuccess false and the error message instead of failing the batch.
type EmbeddingResult struct {
	Text         string    `json:"text"`
	Vector       []float64 `json:"vector,omitempty"`
	Dimensions   int       `json:"dimensions"`
	ModelID      string    `json:"model_id"`
	IsSuccess    bool      `json:"is_success"`
	ErrorMessage string    `json:"error_message,omitempty"`
	GeneratedAt  time.Time `json:"generated_at"`
	FromCache    bool      `json:"from_cache"`
}

// Service generates embedding vectors through the model facade, with
// text preparation, optional normalization, Redis memoization, and
// paced batch fan-out.
type Service struct {
	client EmbedClient
	cache  *Cache
	cfg    Config
	log    *logger.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithCache enables Redis memoization of generated vectors.
func WithCache(c *Cache) Option {
	return func(s *Service) { s.cache = c }
}

// WithLogger overrides the default logger.
func WithLogger(log *logger.Logger) Option {
	return func(s *Service) { s.log = log }
}

// NewService creates the embedding facade around the model client.
func NewService(client EmbedClient, cfg Config, opts ...Option) *Service {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.Truncation == "" {
		cfg.Truncation = TruncateEnd
	}

	s := &Service{
		client: client,
		cfg:    cfg,
		log:    logger.New("embedding"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PrepareText applies the configured truncation to text.
func (s *Service) PrepareText(text string) string {
	return Truncate(text, s.cfg.MaxInputLength, s.cfg.Truncation)
}

// GenerateEmbedding embeds one text. The cache is consulted first when
// configured; a hit comes back with FromCache set and never touches
// the model.
//
// The caller must hold llm:embed.
func (s *Service) GenerateEmbedding(ctx context.Context, sec *security.Context, text string) (res *EmbeddingResult, err error) {
	finish := telemetry.Track(ctx, "embedding.generate", "Generate embedding")
	defer func() { finish(err) }()

	if err = s.authorize(sec, "GenerateEmbedding"); err != nil {
		return nil, err
	}
	if text == "" {
		return nil, fault.InvalidArgument("embedding", "GenerateEmbedding", "text is required")
	}

	return s.generate(ctx, sec, text)
}

// GenerateBatch embeds texts in batches of the configured size. Items
// within a batch run concurrently; consecutive batches are separated
// by the configured pause. One result comes back per input, in input
// order, and an item failure is recorded on its result rather than
// aborting the batch. Cancellation is honored between batches and
// inside every item.
//
// The caller must hold llm:embed.
func (s *Service) GenerateBatch(ctx context.Context, sec *security.Context, texts []string) (results []EmbeddingResult, err error) {
	finish := telemetry.Track(ctx, "embedding.batch", fmt.Sprintf("Embed %d texts", len(texts)))
	defer func() { finish(err) }()

	if err = s.authorize(sec, "GenerateBatch"); err != nil {
		return nil, err
	}
	if len(texts) == 0 {
		return []EmbeddingResult{}, nil
	}
	promEmbeddingBatchItems.Observe(float64(len(texts)))

	results = make([]EmbeddingResult, len(texts))
	for start := 0; start < len(texts); start += s.cfg.BatchSize {
		if start > 0 && s.cfg.BatchPause > 0 {
			select {
			case <-ctx.Done():
				return nil, fault.Cancelled("embedding", "GenerateBatch", ctx.Err())
			case <-time.After(s.cfg.BatchPause):
			}
		}
		if err = ctx.Err(); err != nil {
			return nil, fault.Cancelled("embedding", "GenerateBatch", err)
		}

		end := start + s.cfg.BatchSize
		if end > len(texts) {
			end = len(texts)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i] = s.embedItem(ctx, sec, texts[i])
			}(i)
		}
		wg.Wait()
	}

	return results, nil
}

// generate is the single-item path shared by GenerateEmbedding and the
// batch items. Authorization happens in the callers.
func (s *Service) generate(ctx context.Context, sec *security.Context, text string) (*EmbeddingResult, error) {
	prepared := s.PrepareText(text)
	model := s.cacheModelID()

	if vector, ok := s.cache.Get(ctx, sec.TenantID, model, prepared); ok {
		promEmbeddings.WithLabelValues("cached").Inc()
		return &EmbeddingResult{
			Text:        text,
			Vector:      vector,
			Dimensions:  len(vector),
			ModelID:     s.cfg.ModelID,
			IsSuccess:   true,
			GeneratedAt: time.Now().UTC(),
			FromCache:   true,
		}, nil
	}

	resp, err := s.client.Embed(ctx, sec, llm.EmbedRequest{ModelID: s.cfg.ModelID, Text: prepared})
	if err != nil {
		promEmbeddings.WithLabelValues("error").Inc()
		return nil, err
	}
	if !resp.IsSuccess {
		promEmbeddings.WithLabelValues("declined").Inc()
		return &EmbeddingResult{
			Text:         text,
			ModelID:      resp.ModelID,
			ErrorMessage: resp.ErrorMessage,
			GeneratedAt:  time.Now().UTC(),
		}, nil
	}

	vector := resp.Vector
	if s.cfg.Normalize {
		vector = Normalize(vector)
	}
	s.cache.Put(ctx, sec.TenantID, model, prepared, vector)

	promEmbeddings.WithLabelValues("success").Inc()
	return &EmbeddingResult{
		Text:        text,
		Vector:      vector,
		Dimensions:  len(vector),
		ModelID:     resp.ModelID,
		IsSuccess:   true,
		GeneratedAt: time.Now().UTC(),
	}, nil
}

// embedItem folds the item-level outcome into a result row: errors
// become failed rows, never batch failures.
func (s *Service) embedItem(ctx context.Context, sec *security.Context, text string) EmbeddingResult {
	if text == "" {
		promEmbeddings.WithLabelValues("error").Inc()
		return EmbeddingResult{
			Text:         text,
			ModelID:      s.cfg.ModelID,
			ErrorMessage: "text is required",
			GeneratedAt:  time.Now().UTC(),
		}
	}

	res, err := s.generate(ctx, sec, text)
	if err != nil {
		s.log.Warn(sec.TenantID, "", "batch item failed", map[string]interface{}{
			"error": err.Error(),
		})
		return EmbeddingResult{
			Text:         text,
			ModelID:      s.cfg.ModelID,
			ErrorMessage: err.Error(),
			GeneratedAt:  time.Now().UTC(),
		}
	}
	return *res
}

// cacheModelID is the model segment of cache keys. The configured
// model id keeps keys stable; when the facade default is in play the
// segment is the literal "default".
func (s *Service) cacheModelID() string {
	if s.cfg.ModelID != "" {
		return s.cfg.ModelID
	}
	return "default"
}

func (s *Service) authorize(sec *security.Context, op string) error {
	if sec == nil || !sec.IsValid() {
		return fault.Unauthorized("embedding", op, "caller is not authenticated")
	}
	if !sec.HasPermission(llm.PermissionEmbed) {
		return fault.Unauthorized("embedding", op, fmt.Sprintf("caller lacks permission %s", llm.PermissionEmbed))
	}
	return nil
}
