// Package common holds the external extraction capability shared by every
// learning tier: the interface the tiers call, the OpenAI-backed
// implementation, an offline no-op backend, and the throttling wrapper that
// bounds concurrency, rate, latency, and retries for all of them.
package common

import (
	"context"

	"github.com/nuriwon/yakgwan/internal/config"
	"github.com/nuriwon/yakgwan/internal/domain/policy"
	"github.com/nuriwon/yakgwan/internal/infrastructure/monitoring/logging"
	"github.com/nuriwon/yakgwan/pkg/errors"
)

// ExtractionRequest is one unit of work for the external capability,
// normally a single chunk.
type ExtractionRequest struct {
	DocumentID string `json:"document_id"`
	ChunkHash  string `json:"chunk_hash,omitempty"`
	Text       string `json:"text"`
}

// ExtractionResult is what one external call produced.
type ExtractionResult struct {
	Relations []policy.Relation `json:"relations"`
	Model     string            `json:"model,omitempty"`
}

// Extractor is the expensive external extraction capability.  Calls are
// synchronous and must honor ctx cancellation; implementations do not
// retry or throttle themselves, the Throttled wrapper owns that.
type Extractor interface {
	Extract(ctx context.Context, req ExtractionRequest) (ExtractionResult, error)
	Name() string
}

// NewExtractor builds the configured backend wrapped in throttling.
func NewExtractor(cfg config.ExtractionConfig, log logging.Logger) (Extractor, error) {
	var backend Extractor
	switch cfg.Backend {
	case "openai":
		backend = newOpenAIExtractor(cfg, log)
	case "noop":
		backend = NewNoopExtractor()
	default:
		return nil, errors.New(errors.ErrCodeValidation,
			"unknown extraction backend "+cfg.Backend)
	}
	return NewThrottled(backend, cfg, log), nil
}

// noopExtractor returns empty results, for offline runs and tests.
type noopExtractor struct{}

// NewNoopExtractor returns a backend that extracts nothing.
func NewNoopExtractor() Extractor { return noopExtractor{} }

func (noopExtractor) Extract(ctx context.Context, req ExtractionRequest) (ExtractionResult, error) {
	if err := ctx.Err(); err != nil {
		return ExtractionResult{}, err
	}
	return ExtractionResult{Model: "noop"}, nil
}

func (noopExtractor) Name() string { return "noop" }
