package airline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/kailas-cloud/flightq/internal/domain"
	domair "github.com/kailas-cloud/flightq/internal/domain/airline"
	"github.com/kailas-cloud/flightq/internal/metrics"
)

const (
	// DefaultTopK is the number of candidates scored per lookup.
	DefaultTopK = 1
	// DefaultThreshold is the minimum cosine similarity of an accepted match.
	DefaultThreshold = 0.2
)

// ErrNotBuilt is returned by lookups before Build succeeds.
var ErrNotBuilt = errors.New("airline index not built")

// Options hold the lookup defaults used by Lookup.
type Options struct {
	TopK      int
	Threshold float64
}

// index is the immutable result of Build.
type index struct {
	vectors [][]float32 // L2-normalized, aligned with records
}

// Retriever maps free-text airline names to IATA codes by cosine similarity
// over embeddings of the dataset's combined names.
type Retriever struct {
	records  []domair.Record
	embedder Embedder
	opts     Options
	logger   *zap.Logger
	idx      atomic.Pointer[index]
}

// New creates a retriever over records. Call Build before serving lookups.
func New(records []domair.Record, embedder Embedder, opts Options, logger *zap.Logger) *Retriever {
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retriever{
		records:  records,
		embedder: embedder,
		opts:     opts,
		logger:   logger,
	}
}

// Size returns the number of records in the table.
func (r *Retriever) Size() int {
	return len(r.records)
}

// Build embeds every record once. It may be called again to rebuild.
func (r *Retriever) Build(ctx context.Context) error {
	texts := make([]string, len(r.records))
	for i, rec := range r.records {
		texts[i] = rec.CombinedCleaned()
	}

	vectors := make([][]float32, 0, len(texts))
	if len(texts) > 0 {
		res, err := domain.BatchEmbed(ctx, r.embedder, texts)
		if err != nil {
			return fmt.Errorf("embed airline table: %w", err)
		}
		if len(res.Embeddings) != len(texts) {
			return fmt.Errorf("embed airline table: got %d vectors for %d records: %w",
				len(res.Embeddings), len(texts), domain.ErrEmbeddingProviderError)
		}
		for _, v := range res.Embeddings {
			vectors = append(vectors, normalize(v))
		}
	}

	r.idx.Store(&index{vectors: vectors})
	r.logger.Info("Airline index built", zap.Int("records", len(vectors)))
	return nil
}

// Retrieve returns the best-scoring record for query when its score reaches threshold.
// Among equal scores the earlier dataset row wins.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int, threshold float64) (Match, error) {
	idx := r.idx.Load()
	if idx == nil {
		metrics.AirlineLookupsTotal.WithLabelValues("error").Inc()
		return Match{}, ErrNotBuilt
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	cleaned := domair.CleanText(query)
	if cleaned == "" || len(idx.vectors) == 0 {
		metrics.AirlineLookupsTotal.WithLabelValues("below_threshold").Inc()
		r.logger.Debug("No reliable match found", zap.String("query", query))
		return Match{}, nil
	}

	res, err := r.embedder.Embed(ctx, cleaned)
	if err != nil {
		metrics.AirlineLookupsTotal.WithLabelValues("error").Inc()
		return Match{}, fmt.Errorf("embed query: %w", err)
	}
	q := normalize(res.Embedding)

	scores := make([]float64, len(idx.vectors))
	for i, v := range idx.vectors {
		scores[i] = dot(q, v)
	}
	top := topIndices(scores, topK)

	if r.logger.Core().Enabled(zap.DebugLevel) {
		candidates := make([]string, 0, len(top))
		for _, i := range top {
			candidates = append(candidates, fmt.Sprintf("%s=%.4f", r.records[i].Code(), scores[i]))
		}
		r.logger.Debug("Airline candidates", zap.String("query", cleaned), zap.Strings("candidates", candidates))
	}

	best := top[0]
	if scores[best] < threshold {
		metrics.AirlineLookupsTotal.WithLabelValues("below_threshold").Inc()
		r.logger.Info("No reliable match found",
			zap.String("query", query),
			zap.Float64("best_score", scores[best]),
			zap.Float64("threshold", threshold),
		)
		return Match{}, nil
	}

	metrics.AirlineLookupsTotal.WithLabelValues("match").Inc()
	rec := r.records[best]
	return Match{Code: rec.Code(), Name: rec.CombinedName(), Score: scores[best]}, nil
}

// Lookup resolves name with the configured defaults and returns the code, or "" without a match.
func (r *Retriever) Lookup(ctx context.Context, name string) (string, error) {
	m, err := r.Retrieve(ctx, name, r.opts.TopK, r.opts.Threshold)
	if err != nil {
		return "", err
	}
	return m.Code, nil
}

// Defaults returns the configured lookup options.
func (r *Retriever) Defaults() Options {
	return r.opts
}

// topIndices returns the k best row indices, highest score first, earlier rows first on ties.
func topIndices(scores []float64, k int) []int {
	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		switch {
		case scores[a] > scores[b]:
			return -1
		case scores[a] < scores[b]:
			return 1
		default:
			return 0
		}
	})
	return order[:min(k, len(order))]
}

func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	if sum == 0 {
		return out
	}
	inv := 1 / math.Sqrt(sum)
	for i, x := range v {
		out[i] = float32(float64(x) * inv)
	}
	return out
}

func dot(a, b []float32) float64 {
	n := min(len(a), len(b))
	var s float64
	for i := range n {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}
