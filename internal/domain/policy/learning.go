package policy

import (
	"fmt"
	"time"
)

// ─────────────────────────────────────────────────────────────────────────────
// Learning strategies and decisions
// ─────────────────────────────────────────────────────────────────────────────

// Strategy identifies one tier of the learning cost ladder, from cheapest to
// most expensive.
type Strategy string

const (
	// StrategyTemplate reuses a cached template whose structure closely
	// matches the document, re-extracting only variable slots.
	StrategyTemplate Strategy = "TEMPLATE"

	// StrategyIncremental processes only the chunks that changed relative
	// to a previously learned version of the document.
	StrategyIncremental Strategy = "INCREMENTAL"

	// StrategyChunking processes the document chunk by chunk, reusing
	// unchanged chunks from the content-hash cache.
	StrategyChunking Strategy = "CHUNKING"

	// StrategyFull processes the whole document from scratch.  Always
	// applicable; saves nothing.
	StrategyFull Strategy = "FULL"
)

// Valid reports whether s is a known strategy.
func (s Strategy) Valid() bool {
	switch s {
	case StrategyTemplate, StrategyIncremental, StrategyChunking, StrategyFull:
		return true
	}
	return false
}

// ExpectedSaving returns the nominal cost-saving fraction for the strategy:
// the share of full-document processing cost the tier avoids when its
// preconditions hold.
func (s Strategy) ExpectedSaving() float64 {
	switch s {
	case StrategyTemplate:
		return 0.95
	case StrategyIncremental:
		return 0.85
	case StrategyChunking:
		return 0.75
	default:
		return 0
	}
}

// LearningDecision records which strategy was chosen for a document and why.
// Every processed document produces exactly one decision, persisted for
// audit and cost reporting.
type LearningDecision struct {
	ID         string   `json:"id"`
	DocumentID string   `json:"document_id"`
	Strategy   Strategy `json:"strategy"`

	// Similarity is the score that satisfied the chosen tier's
	// precondition: template similarity for TEMPLATE, version similarity
	// for INCREMENTAL, 0 otherwise.
	Similarity float64 `json:"similarity"`

	// Reason is a short human-readable justification, e.g.
	// "template tpl-3f2a matched at 0.91".
	Reason string `json:"reason"`

	// ChunksTotal and ChunksReused describe cache effectiveness for
	// chunk-based tiers; both are 0 for TEMPLATE and FULL.
	ChunksTotal  int `json:"chunks_total"`
	ChunksReused int `json:"chunks_reused"`

	// CostSaving is the realized saving fraction in [0, 1].
	CostSaving float64 `json:"cost_saving"`

	// Fallback reports whether a higher tier was attempted and failed
	// before this strategy succeeded.
	Fallback bool `json:"fallback"`

	// Duration is wall-clock processing time for the document.
	Duration  time.Duration `json:"duration"`
	DecidedAt time.Time     `json:"decided_at"`
}

// Validate checks decision invariants before persistence.
func (d LearningDecision) Validate() error {
	if d.DocumentID == "" {
		return fmt.Errorf("learning decision: document_id is required")
	}
	if !d.Strategy.Valid() {
		return fmt.Errorf("learning decision: unknown strategy %q", d.Strategy)
	}
	if d.CostSaving < 0 || d.CostSaving > 1 {
		return fmt.Errorf("learning decision: cost_saving %.3f out of [0,1]", d.CostSaving)
	}
	if d.ChunksReused > d.ChunksTotal {
		return fmt.Errorf("learning decision: reused chunks %d exceed total %d", d.ChunksReused, d.ChunksTotal)
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Cached artifacts
// ─────────────────────────────────────────────────────────────────────────────

// Chunk is one cacheable unit of a document, normally a single article.
type Chunk struct {
	// Index is the chunk's position in the document, starting at 0.
	Index int `json:"index"`

	// Hash is the hex SHA-256 of the chunk's normalized text.  Chunk
	// identity is content-based: identical text anywhere yields the same
	// hash and the same cached result.
	Hash string `json:"hash"`

	// Text is the chunk's source text.
	Text string `json:"text"`

	Span TextSpan `json:"span"`
}

// Relation is one semantic triple an external extraction call produced from
// chunk text, beyond what rule extraction can see.
type Relation struct {
	Subject    string  `json:"subject"`
	Predicate  string  `json:"predicate"`
	Object     string  `json:"object"`
	Confidence float64 `json:"confidence"`
}

// ChunkResult is the cached processing outcome for one chunk hash: the
// external relations, which are what the cache exists to avoid recomputing.
type ChunkResult struct {
	Hash      string     `json:"hash"`
	Relations []Relation `json:"relations,omitempty"`
	Model     string     `json:"model,omitempty"`
	CachedAt  time.Time  `json:"cached_at"`
}

// Template is a learned document skeleton: the structural outline of a
// previously processed document with the variable slots identified, so a
// near-identical document needs extraction only inside those slots.
type Template struct {
	ID string `json:"id"`

	// Skeleton is the structural fingerprint used for similarity
	// comparison, with variable content replaced by placeholders.
	Skeleton string `json:"skeleton"`

	// VariableSpans are the slots whose content varies between documents
	// built from this template, as spans into the skeleton.
	VariableSpans []TextSpan `json:"variable_spans,omitempty"`

	// SourceDocumentID is the document the template was learned from.
	SourceDocumentID string    `json:"source_document_id"`
	CreatedAt        time.Time `json:"created_at"`
}

// DocumentVersion is the stored prior version of a document used by the
// incremental tier: its chunk hashes in order, so a new version's diff can
// be computed without the old full text.
type DocumentVersion struct {
	DocumentID  string    `json:"document_id"`
	ChunkHashes []string  `json:"chunk_hashes"`
	LearnedAt   time.Time `json:"learned_at"`
}
