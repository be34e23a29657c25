package generation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/flightq/internal/domain/query"
	"github.com/kailas-cloud/flightq/internal/logger"
	"github.com/kailas-cloud/flightq/internal/metrics"
	"github.com/kailas-cloud/flightq/internal/usecase/model"
)

const (
	// DefaultMaxNewTokens caps the completion length.
	DefaultMaxNewTokens = 256
	// DefaultTimeout bounds one completion.
	DefaultTimeout = 2 * time.Minute
)

// Options tune generation.
type Options struct {
	MaxNewTokens int
	Timeout      time.Duration
}

// Service turns free text into a structured query with a language model.
// It never fails: every degradation yields the empty result.
type Service struct {
	completer Completer
	opts      Options
	logger    *zap.Logger
}

// New creates a generation service.
func New(completer Completer, opts Options, log *zap.Logger) *Service {
	if opts.MaxNewTokens <= 0 {
		opts.MaxNewTokens = DefaultMaxNewTokens
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{completer: completer, opts: opts, logger: log}
}

// Generate completes text on the handle's model and normalizes the answer.
// maxNewTokens <= 0 uses the configured default.
func (s *Service) Generate(ctx context.Context, h model.Handle, text string, maxNewTokens int) query.Result {
	if maxNewTokens <= 0 {
		maxNewTokens = s.opts.MaxNewTokens
	}
	log := logger.FromContextOr(ctx, s.logger).With(
		zap.String("generation_id", uuid.NewString()),
		zap.String("adapter", h.Adapter),
	)

	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	start := time.Now()
	completion, err := s.completer.Complete(ctx, h.Model, buildPrompt(text), maxNewTokens)
	metrics.GenerationDuration.WithLabelValues(h.Adapter).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.GenerationRequestsTotal.WithLabelValues(h.Adapter, "error").Inc()
		s.degrade(log, reasonGeneration, err, "")
		return query.Empty()
	}
	metrics.GenerationRequestsTotal.WithLabelValues(h.Adapter, "success").Inc()

	raw := extractAnswer(completion)
	res, err := parse(raw)
	if err != nil {
		reason := reasonDecode
		var pe *parseError
		if errors.As(err, &pe) {
			reason = pe.reason
		}
		s.degrade(log, reason, err, raw)
		return query.Empty()
	}

	log.Debug("Generation completed",
		zap.Duration("duration", time.Since(start)),
		zap.Int("filters", len(res.Filters)),
		zap.Int("sort_by", len(res.SortBy)),
	)
	return res
}

func (s *Service) degrade(log *zap.Logger, reason string, err error, raw string) {
	metrics.GenerationFailuresTotal.WithLabelValues(reason).Inc()
	fields := []zap.Field{zap.String("reason", reason), zap.Error(err)}
	if raw != "" {
		fields = append(fields, zap.String("raw", truncate(raw, 512)))
	}
	log.Warn("Generation degraded to empty result", fields...)
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
