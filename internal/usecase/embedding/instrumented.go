package embedding

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/flightq/internal/domain"
)

const (
	// DefaultBatchSize is the maximum number of texts sent in one API request.
	DefaultBatchSize = 64
	// DefaultWorkers bounds concurrent API requests per batch.
	DefaultWorkers = 4
)

// Options tune batch splitting.
type Options struct {
	BatchSize int
	Workers   int
}

// InstrumentedEmbedder wraps Embedder with logging and concurrent chunked batching.
// Transport metrics (requests, duration, tokens) are recorded in transport/openai.
type InstrumentedEmbedder struct {
	inner     domain.Embedder
	provider  string
	model     string
	batchSize int
	pool      *ants.Pool
	logger    *zap.Logger
}

// NewInstrumentedEmbedder wraps an embedder. Call Close to release the worker pool.
func NewInstrumentedEmbedder(
	inner domain.Embedder, provider, model string,
	opts Options, logger *zap.Logger,
) (*InstrumentedEmbedder, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	pool, err := ants.NewPool(opts.Workers)
	if err != nil {
		return nil, fmt.Errorf("create embedding pool: %w", err)
	}

	return &InstrumentedEmbedder{
		inner:     inner,
		provider:  provider,
		model:     model,
		batchSize: opts.BatchSize,
		pool:      pool,
		logger:    logger,
	}, nil
}

// Close releases the worker pool.
func (p *InstrumentedEmbedder) Close() {
	p.pool.Release()
}

// Embed delegates to the inner embedder and logs the outcome.
func (p *InstrumentedEmbedder) Embed(
	ctx context.Context, text string,
) (domain.EmbeddingResult, error) {
	start := time.Now()

	result, err := p.inner.Embed(ctx, text)

	duration := time.Since(start)

	if err != nil {
		p.logger.Error("Embedding request failed",
			zap.String("provider", p.provider),
			zap.String("model", p.model),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}

	p.logger.Debug("Embedding request completed",
		zap.String("provider", p.provider),
		zap.String("model", p.model),
		zap.Duration("duration", duration),
		zap.Int("dimensions", len(result.Embedding)),
		zap.Int("prompt_tokens", result.PromptTokens),
		zap.Int("total_tokens", result.TotalTokens),
	)

	return result, nil
}

// BatchEmbed splits texts into chunks of at most batchSize and embeds them concurrently.
// Embeddings come back index-aligned with texts.
func (p *InstrumentedEmbedder) BatchEmbed(
	ctx context.Context, texts []string,
) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}

	start := time.Now()

	result, err := p.embedChunked(ctx, texts)
	if err != nil {
		return domain.BatchEmbeddingResult{}, err
	}

	p.logger.Debug("Batch embedding completed",
		zap.String("provider", p.provider),
		zap.String("model", p.model),
		zap.Duration("duration", time.Since(start)),
		zap.Int("batch_size", len(texts)),
		zap.Int("prompt_tokens", result.PromptTokens),
		zap.Int("total_tokens", result.TotalTokens),
	)

	return result, nil
}

// embedChunked fans chunks out to the pool and stitches results back by offset.
// The first failing chunk cancels the rest.
func (p *InstrumentedEmbedder) embedChunked(
	ctx context.Context, texts []string,
) (domain.BatchEmbeddingResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	embeddings := make([][]float32, len(texts))
	var (
		wg          sync.WaitGroup
		mu          sync.Mutex
		firstErr    error
		totalPrompt int
		totalTokens int
	)
	fail := func(offset, size int, err error) {
		mu.Lock()
		defer mu.Unlock()
		if firstErr == nil {
			firstErr = fmt.Errorf("batch embed (chunk %d): %w", offset, err)
			p.logger.Error("Batch embedding request failed",
				zap.String("provider", p.provider),
				zap.String("model", p.model),
				zap.Int("chunk_offset", offset),
				zap.Int("chunk_size", size),
				zap.Error(err),
			)
		}
		cancel()
	}

	for offset := 0; offset < len(texts); offset += p.batchSize {
		chunk := texts[offset:min(offset+p.batchSize, len(texts))]
		wg.Add(1)
		err := p.pool.Submit(func() {
			defer wg.Done()
			res, err := domain.BatchEmbed(ctx, p.inner, chunk)
			if err == nil && len(res.Embeddings) != len(chunk) {
				err = fmt.Errorf("got %d vectors for %d texts: %w",
					len(res.Embeddings), len(chunk), domain.ErrEmbeddingProviderError)
			}
			if err != nil {
				fail(offset, len(chunk), err)
				return
			}
			copy(embeddings[offset:], res.Embeddings)
			mu.Lock()
			totalPrompt += res.PromptTokens
			totalTokens += res.TotalTokens
			mu.Unlock()
		})
		if err != nil {
			wg.Done()
			fail(offset, len(chunk), fmt.Errorf("submit: %w", err))
			break
		}
	}
	wg.Wait()

	if firstErr != nil {
		return domain.BatchEmbeddingResult{}, firstErr
	}
	return domain.BatchEmbeddingResult{
		Embeddings:   embeddings,
		PromptTokens: totalPrompt,
		TotalTokens:  totalTokens,
	}, nil
}

// HealthCheck delegates to the inner embedder when it supports health checks.
func (p *InstrumentedEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := p.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}
