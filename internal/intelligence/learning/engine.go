package learning

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/nuriwon/yakgwan/internal/domain/policy"
	"github.com/nuriwon/yakgwan/internal/infrastructure/monitoring/logging"
	"github.com/nuriwon/yakgwan/internal/intelligence/common"
	"github.com/nuriwon/yakgwan/internal/intelligence/similarity"
	"github.com/nuriwon/yakgwan/pkg/errors"
)

// chunkParallelism bounds per-document chunk fan-out.  The external
// capability applies its own global concurrency and rate limits on top.
const chunkParallelism = 8

// Observer receives engine events.  The Prometheus collector implements it;
// a nil observer is allowed and ignored.
type Observer interface {
	DecisionMade(strategy policy.Strategy, fallback bool, saving float64)
	CacheLookup(hit bool)
	ExternalCall(backend string, success bool, elapsed time.Duration)
}

// Outcome is a successful learning run: the recorded decision and the full
// relation set for the document, reused and fresh alike.
type Outcome struct {
	Decision  policy.LearningDecision
	Relations []policy.Relation
}

// Engine executes the selected strategy and falls back down the ladder when
// a tier fails.  A tier either completes for the whole document or
// contributes nothing: chunk results are buffered and committed only after
// the tier succeeds, so cancellation or failure leaves the caches
// untouched.
type Engine struct {
	selector  *Selector
	chunks    *ChunkStore
	versions  *VersionStore
	templates *TemplateStore
	extractor common.Extractor
	observer  Observer
	logger    logging.Logger
}

// NewEngine wires the learning engine.
func NewEngine(selector *Selector, chunks *ChunkStore, versions *VersionStore,
	templates *TemplateStore, extractor common.Extractor, observer Observer,
	log logging.Logger) *Engine {
	return &Engine{
		selector:  selector,
		chunks:    chunks,
		versions:  versions,
		templates: templates,
		extractor: extractor,
		observer:  observer,
		logger:    log.Named("engine"),
	}
}

// Learn processes one chunked document.  The selector picks the cheapest
// applicable tier; if that tier fails the next one down the ladder is
// tried, ending at FULL.  Only a tier that completes the whole document
// commits its results and produces a decision; a FULL failure fails the
// document.
func (e *Engine) Learn(ctx context.Context, doc policy.Document, chunks []policy.Chunk) (Outcome, error) {
	started := time.Now()
	sel := e.selector.Select(ctx, doc, chunks)

	ladder := append([]policy.Strategy{sel.Strategy}, sel.Ladder...)
	var lastErr error
	for attempt, strategy := range ladder {
		if err := ctx.Err(); err != nil {
			return Outcome{}, err
		}

		run, err := e.runTier(ctx, strategy, doc, chunks)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				// cancellation is not a tier failure; stop without
				// falling back and without committing anything
				return Outcome{}, err
			}
			e.logger.Warn("strategy failed, falling back",
				logging.String("document_id", doc.ID),
				logging.String("strategy", string(strategy)),
				logging.Err(err))
			continue
		}

		return e.finish(ctx, doc, sel, strategy, attempt > 0, run, started)
	}

	return Outcome{}, errors.Wrap(lastErr, errors.ErrCodeDocumentFailed,
		"document failed on every strategy")
}

// tierRun is one tier's complete output before commit.
type tierRun struct {
	batch     *Batch
	relations []policy.Relation
	reused    int
	total     int
}

// runTier executes one strategy over every chunk.  FULL ignores the chunk
// cache; the other tiers reuse cached results and call the external
// capability only for misses.
func (e *Engine) runTier(ctx context.Context, strategy policy.Strategy, doc policy.Document, chunks []policy.Chunk) (*tierRun, error) {
	run := &tierRun{batch: e.chunks.NewBatch(), total: len(chunks)}
	results := make([]policy.ChunkResult, len(chunks))
	fresh := make([]bool, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(chunkParallelism)

	var reused int
	for i, chunk := range chunks {
		if strategy != policy.StrategyFull {
			if cached, ok := e.chunks.Lookup(ctx, chunk.Hash); ok {
				e.observeCache(true)
				results[i] = cached
				reused++
				continue
			}
			e.observeCache(false)
		}

		i, chunk := i, chunk
		g.Go(func() error {
			result, err := e.processChunk(gctx, doc, chunk)
			if err != nil {
				return err
			}
			results[i] = result
			fresh[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	run.reused = reused
	for i, r := range results {
		if fresh[i] {
			run.batch.AddResult(r)
		}
		run.relations = append(run.relations, r.Relations...)
	}
	return run, nil
}

// processChunk makes one external call and shapes the cacheable result.
func (e *Engine) processChunk(ctx context.Context, doc policy.Document, chunk policy.Chunk) (policy.ChunkResult, error) {
	started := time.Now()
	resp, err := e.extractor.Extract(ctx, common.ExtractionRequest{
		DocumentID: doc.ID,
		ChunkHash:  chunk.Hash,
		Text:       chunk.Text,
	})
	if e.observer != nil {
		e.observer.ExternalCall(e.extractor.Name(), err == nil, time.Since(started))
	}
	if err != nil {
		return policy.ChunkResult{}, err
	}
	return policy.ChunkResult{
		Hash:      chunk.Hash,
		Relations: resp.Relations,
		Model:     resp.Model,
		CachedAt:  time.Now().UTC(),
	}, nil
}

// finish commits the tier's buffered writes, registers learning artifacts,
// and builds the decision.
func (e *Engine) finish(ctx context.Context, doc policy.Document, sel Selection,
	strategy policy.Strategy, fellBack bool, run *tierRun, started time.Time) (Outcome, error) {

	run.batch.SetVersion(policy.DocumentVersion{
		DocumentID:  sel.ev.versionKey,
		ChunkHashes: sel.ev.hashes,
		LearnedAt:   time.Now().UTC(),
	})
	if err := run.batch.Commit(ctx, e.versions); err != nil {
		return Outcome{}, err
	}

	// Only FULL and CHUNKING runs saw the whole document fresh, so only
	// they write template-worthy structure.  TEMPLATE reused one and
	// INCREMENTAL leaned on a prior version.
	if strategy == policy.StrategyFull || strategy == policy.StrategyChunking {
		tpl := policy.Template{
			ID:               "tpl-" + similarity.HashText(sel.ev.skeleton)[:12],
			Skeleton:         sel.ev.skeleton,
			SourceDocumentID: doc.ID,
			CreatedAt:        time.Now().UTC(),
		}
		if _, err := e.templates.Register(ctx, tpl); err != nil {
			e.logger.Warn("template registration failed",
				logging.String("document_id", doc.ID), logging.Err(err))
		}
	}

	saving := 0.0
	if strategy != policy.StrategyFull && run.total > 0 {
		saving = float64(run.reused) / float64(run.total)
	}

	score := sel.Score
	reason := sel.Reason
	if fellBack {
		score = 0
		reason = string(strategy) + " after fallback"
	}

	decision := policy.LearningDecision{
		ID:           uuid.NewString(),
		DocumentID:   doc.ID,
		Strategy:     strategy,
		Similarity:   score,
		Reason:       reason,
		ChunksTotal:  run.total,
		ChunksReused: run.reused,
		CostSaving:   saving,
		Fallback:     fellBack,
		Duration:     time.Since(started),
		DecidedAt:    time.Now().UTC(),
	}
	if e.observer != nil {
		e.observer.DecisionMade(strategy, fellBack, saving)
	}

	e.logger.Info("document learned",
		logging.String("document_id", doc.ID),
		logging.String("strategy", string(strategy)),
		logging.Int("chunks_total", run.total),
		logging.Int("chunks_reused", run.reused),
		logging.Float64("cost_saving", saving),
		logging.Bool("fallback", fellBack),
		logging.Duration("elapsed", decision.Duration))

	return Outcome{Decision: decision, Relations: run.relations}, nil
}

func (e *Engine) observeCache(hit bool) {
	if e.observer != nil {
		e.observer.CacheLookup(hit)
	}
}
