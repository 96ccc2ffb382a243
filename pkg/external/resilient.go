package external

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

// ResilientModelClient wraps the model client with per-call-shape circuit
// breakers and response caching. It is the domain.TextExtractor and
// domain.AdvisoryModel implementation the analysis service consumes.
type ResilientModelClient struct {
	client *ModelClient
	cache  *ResponseCache
	log    *logrus.Logger

	visionBreaker    *gobreaker.CircuitBreaker
	reasoningBreaker *gobreaker.CircuitBreaker
}

// NewResilientModelClient creates a resilient model client. cache may be
// nil to disable caching.
func NewResilientModelClient(client *ModelClient, cache *ResponseCache, logger *logrus.Logger) *ResilientModelClient {
	newBreaker := func(name string) *gobreaker.CircuitBreaker {
		return gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: 5,
			Interval:    30 * time.Second,
			Timeout:     60 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= 3 && failureRatio >= 0.6
			},
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				logger.WithFields(logrus.Fields{
					"breaker": name,
					"from":    from.String(),
					"to":      to.String(),
				}).Warn("Circuit breaker state changed")
			},
		})
	}

	return &ResilientModelClient{
		client:           client,
		cache:            cache,
		log:              logger,
		visionBreaker:    newBreaker("vision"),
		reasoningBreaker: newBreaker("reasoning"),
	}
}

// ExtractText runs label text extraction through the vision breaker.
// Vision responses are not cached: every capture is a distinct image.
func (r *ResilientModelClient) ExtractText(ctx context.Context, imageRef string) (string, error) {
	result, err := r.visionBreaker.Execute(func() (interface{}, error) {
		return r.client.ExtractText(ctx, imageRef)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState {
			return "", fmt.Errorf("vision service unavailable (circuit breaker open)")
		}
		return "", err
	}
	return result.(string), nil
}

// Advise runs the advisory call with caching and the reasoning breaker.
func (r *ResilientModelClient) Advise(ctx context.Context, profileSummary, extractedText, facts string) (string, error) {
	key := ResponseKey("advisory", r.client.config.ReasoningModel, profileSummary+"\x00"+extractedText+"\x00"+facts)
	return r.cachedCall(ctx, key, func() (string, error) {
		return r.client.Advise(ctx, profileSummary, extractedText, facts)
	})
}

// ExtractIngredients runs the extraction call with caching and the
// reasoning breaker.
func (r *ResilientModelClient) ExtractIngredients(ctx context.Context, extractedText string) (string, error) {
	key := ResponseKey("extraction", r.client.config.ReasoningModel, extractedText)
	return r.cachedCall(ctx, key, func() (string, error) {
		return r.client.ExtractIngredients(ctx, extractedText)
	})
}

// ClassifyNova runs the NOVA classification call with caching and the
// reasoning breaker.
func (r *ResilientModelClient) ClassifyNova(ctx context.Context, extractedText string) (string, error) {
	key := ResponseKey("nova", r.client.config.ReasoningModel, extractedText)
	return r.cachedCall(ctx, key, func() (string, error) {
		return r.client.ClassifyNova(ctx, extractedText)
	})
}

// cachedCall checks the cache, falls through to the breaker-guarded call,
// and caches the result. A breaker-open condition is served from cache
// when possible.
func (r *ResilientModelClient) cachedCall(ctx context.Context, key string, call func() (string, error)) (string, error) {
	if r.cache != nil {
		if text, found, err := r.cache.Get(ctx, key); err == nil && found {
			return text, nil
		}
	}

	result, err := r.reasoningBreaker.Execute(func() (interface{}, error) {
		return call()
	})
	if err != nil {
		if err == gobreaker.ErrOpenState {
			return "", fmt.Errorf("reasoning service unavailable (circuit breaker open)")
		}
		return "", err
	}

	text := result.(string)
	if r.cache != nil && text != "" {
		if cacheErr := r.cache.Set(ctx, key, text, 0); cacheErr != nil {
			r.log.WithError(cacheErr).Warn("Failed to cache model response")
		}
	}
	return text, nil
}

// BreakerStates reports the current state of each circuit breaker, for
// the health endpoint.
func (r *ResilientModelClient) BreakerStates() map[string]string {
	return map[string]string{
		"vision":    r.visionBreaker.State().String(),
		"reasoning": r.reasoningBreaker.State().String(),
	}
}
