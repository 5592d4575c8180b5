package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/meeting-correlator/internal/api"
	"github.com/miradorstack/meeting-correlator/internal/cache"
	"github.com/miradorstack/meeting-correlator/internal/engine"
	"github.com/miradorstack/meeting-correlator/internal/metrics"
	"github.com/miradorstack/meeting-correlator/internal/utils"
)

// CacheOptions controls result caching.
type CacheOptions struct {
	Provider  cache.Provider
	TTL       time.Duration
	KeyPrefix string
}

// CorrelationService implements the gRPC Correlator service.
type CorrelationService struct {
	logger    *slog.Logger
	pipeline  *engine.Pipeline
	cache     cache.Provider
	ttl       time.Duration
	prefix    string
	limiter   *rate.Limiter
	latencies *utils.LatencyTracker
}

var _ api.CorrelatorServer = (*CorrelationService)(nil)

// NewCorrelationService constructs the service facade. limiter may be nil to
// disable throttling; a nil cache provider disables caching.
func NewCorrelationService(logger *slog.Logger, pipeline *engine.Pipeline, limiter *rate.Limiter, cacheOpts CacheOptions) *CorrelationService {
	if logger == nil {
		logger = slog.Default()
	}
	provider := cacheOpts.Provider
	if provider == nil {
		provider = cache.NoopProvider{}
	}
	prefix := cacheOpts.KeyPrefix
	if prefix == "" {
		prefix = "meeting-correlator:run:"
	}
	return &CorrelationService{
		logger:    logger,
		pipeline:  pipeline,
		cache:     provider,
		ttl:       cacheOpts.TTL,
		prefix:    prefix,
		limiter:   limiter,
		latencies: utils.NewLatencyTracker(1024),
	}
}

// NewLimiter builds a token bucket for rps requests per second; rps <= 0
// returns nil (unlimited).
func NewLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = max(1, int(rps))
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// Correlate runs one correlation over the request document.
func (s *CorrelationService) Correlate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request cannot be nil")
	}
	if s.limiter != nil && !s.limiter.Allow() {
		return nil, status.Error(codes.ResourceExhausted, "correlation rate limit exceeded")
	}
	if s.pipeline == nil {
		return nil, status.Error(codes.FailedPrecondition, "pipeline not configured")
	}

	key, keyErr := s.cacheKey(req)
	if keyErr == nil {
		if cached, ok := s.lookup(ctx, key); ok {
			return cached, nil
		}
	} else {
		s.logger.Warn("cache key derivation failed", utils.Error(keyErr))
	}

	domainReq, err := api.FromStructRequest(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	start := time.Now()
	run, err := s.pipeline.Run(ctx, domainReq)
	duration := time.Since(start)
	if err != nil {
		return nil, s.statusFor(err)
	}

	resp, err := api.ToStructRun(run)
	if err != nil {
		s.logger.Error("encode correlation run failed", utils.RunID(run.RunID), utils.Error(err))
		return nil, status.Error(codes.Internal, "failed to encode correlation result")
	}

	if keyErr == nil {
		s.store(ctx, key, resp)
	}

	s.latencies.Observe(duration)
	if count := s.latencies.Count(); count >= 20 && count%20 == 0 {
		s.logger.Info("correlation latency",
			slog.Duration("p95", s.latencies.Percentile(95)),
			slog.Duration("mean", s.latencies.Mean()),
			slog.Int("samples", count),
		)
	}
	return resp, nil
}

func (s *CorrelationService) statusFor(err error) error {
	switch {
	case utils.IsInvalidInput(err):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	}
	s.logger.Error("correlation run failed", utils.Error(err))
	return status.Error(codes.Internal, "correlation failed")
}

// cacheKey hashes the deterministic protobuf encoding of the request.
func (s *CorrelationService) cacheKey(req *structpb.Struct) (string, error) {
	payload, err := proto.MarshalOptions{Deterministic: true}.Marshal(req)
	if err != nil {
		return "", err
	}
	return cache.Key(s.prefix, payload), nil
}

func (s *CorrelationService) lookup(ctx context.Context, key string) (*structpb.Struct, bool) {
	payload, err := s.cache.Get(ctx, key)
	switch {
	case errors.Is(err, cache.ErrCacheMiss):
		metrics.ObserveCache(metrics.CacheMiss)
		return nil, false
	case err != nil:
		metrics.ObserveCache(metrics.CacheError)
		s.logger.Warn("result cache read failed", utils.Error(err))
		return nil, false
	}
	out := new(structpb.Struct)
	if err := proto.Unmarshal(payload, out); err != nil {
		metrics.ObserveCache(metrics.CacheError)
		s.logger.Warn("discarding corrupt cache entry", utils.Error(err))
		_ = s.cache.Del(ctx, key)
		return nil, false
	}
	metrics.ObserveCache(metrics.CacheHit)
	return out, true
}

func (s *CorrelationService) store(ctx context.Context, key string, resp *structpb.Struct) {
	payload, err := proto.Marshal(resp)
	if err != nil {
		s.logger.Warn("result cache encode failed", utils.Error(err))
		return
	}
	// The first identical request to finish keeps its run ID.
	stored, err := s.cache.SetNX(ctx, key, payload, s.ttl)
	if err != nil {
		s.logger.Warn("result cache write failed", utils.Error(err))
		return
	}
	if !stored {
		s.logger.Debug("result already cached by a concurrent request")
	}
}

// LatencyP95 returns the current p95 correlation latency.
func (s *CorrelationService) LatencyP95() time.Duration {
	if s.latencies == nil {
		return 0
	}
	return s.latencies.Percentile(95)
}
