package learning

import (
	"context"

	"github.com/nuriwon/yakgwan/internal/domain/policy"
	"github.com/nuriwon/yakgwan/internal/infrastructure/monitoring/logging"
	"github.com/nuriwon/yakgwan/internal/intelligence/similarity"
)

// Selection is the selector's verdict: the chosen strategy, the fallback
// ladder behind it, and the evidence the precondition saw.
type Selection struct {
	Strategy policy.Strategy
	Score    float64
	Reason   string

	// Ladder is the remaining strategies in rank order, tried when the
	// chosen one fails at execution time.
	Ladder []policy.Strategy

	ev *evaluation
}

// Selector evaluates the ranked candidates against a document.
type Selector struct {
	templates            *TemplateStore
	versions             *VersionStore
	chunks               *ChunkStore
	templateThreshold    float64
	incrementalThreshold float64
	logger               logging.Logger
}

// NewSelector builds a selector over the given stores and thresholds.
func NewSelector(templates *TemplateStore, versions *VersionStore, chunks *ChunkStore,
	templateThreshold, incrementalThreshold float64, log logging.Logger) *Selector {
	return &Selector{
		templates:            templates,
		versions:             versions,
		chunks:               chunks,
		templateThreshold:    templateThreshold,
		incrementalThreshold: incrementalThreshold,
		logger:               log.Named("selector"),
	}
}

// versionKey identifies which stored version lineage a document belongs to:
// the product when known, the declared previous version when the submitter
// named one, otherwise the document itself.
func versionKey(doc policy.Document) string {
	if doc.ProductID != "" {
		return doc.ProductID
	}
	if doc.PreviousVersionID != "" {
		return doc.PreviousVersionID
	}
	return doc.ID
}

// Select computes the document's evidence once, then walks the ranked
// candidates and picks the first applicable one.  FULL always applies, so
// Select never fails.
func (s *Selector) Select(ctx context.Context, doc policy.Document, chunks []policy.Chunk) Selection {
	ev := &evaluation{
		doc:        doc,
		chunks:     chunks,
		hashes:     similarity.ChunkHashes(chunks),
		skeleton:   similarity.Skeleton(doc.Text),
		versionKey: versionKey(doc),
	}

	s.templates.Each(func(tpl policy.Template) bool {
		if score := similarity.Dice(ev.skeleton, tpl.Skeleton); score > ev.templateScore {
			ev.templateID, ev.templateScore = tpl.ID, score
		}
		return true
	})

	if prior, ok := s.versions.Get(ctx, ev.versionKey); ok {
		ev.prior = &prior
		ev.versionScore = similarity.VersionScore(prior.ChunkHashes, ev.hashes)
	}

	for _, hash := range ev.hashes {
		if s.chunks.Contains(ctx, hash) {
			ev.cachedChunks++
		}
	}

	candidates := rankedCandidates(s.templateThreshold, s.incrementalThreshold)
	for i, c := range candidates {
		ok, score, reason := c.applicable(ev)
		if !ok {
			continue
		}
		sel := Selection{
			Strategy: c.strategy,
			Score:    score,
			Reason:   reason,
			ev:       ev,
		}
		for _, rest := range candidates[i+1:] {
			sel.Ladder = append(sel.Ladder, rest.strategy)
		}
		s.logger.Debug("strategy selected",
			logging.String("document_id", doc.ID),
			logging.String("strategy", string(c.strategy)),
			logging.Float64("score", score))
		return sel
	}

	// unreachable: FULL is always applicable
	return Selection{Strategy: policy.StrategyFull, Reason: "full processing", ev: ev}
}
