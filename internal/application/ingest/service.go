// Package ingest orchestrates the learning pipeline for one document:
// structural parsing, rule-based fact extraction, entity linking, tiered
// strategy learning, graph persistence, and decision recording.
package ingest

import (
	"context"
	"strings"
	"time"

	"github.com/nuriwon/yakgwan/internal/domain/policy"
	"github.com/nuriwon/yakgwan/internal/infrastructure/monitoring/logging"
	"github.com/nuriwon/yakgwan/internal/intelligence/entitylink"
	"github.com/nuriwon/yakgwan/internal/intelligence/extractor"
	"github.com/nuriwon/yakgwan/internal/intelligence/learning"
	"github.com/nuriwon/yakgwan/internal/intelligence/similarity"
	"github.com/nuriwon/yakgwan/internal/intelligence/structparser"
	"github.com/nuriwon/yakgwan/pkg/errors"
)

// DecisionStore persists learning decisions.
type DecisionStore interface {
	Save(ctx context.Context, d policy.LearningDecision) error
}

// GraphSink receives the learned document contribution.
type GraphSink interface {
	WriteDocument(ctx context.Context, result Result) error
}

// DocumentObserver receives end-to-end pipeline outcomes.
type DocumentObserver interface {
	DocumentProcessed(success bool, elapsed time.Duration)
}

// Result is the complete pipeline output for one document.
type Result struct {
	Document  policy.Document
	Parsed    policy.ParseResult
	Facts     policy.FactSet
	Links     []policy.EntityLinkResult
	Decision  policy.LearningDecision
	Relations []policy.Relation
}

// Service runs the pipeline.  The graph sink, decision store, and observer
// are optional; a nil sink or store is skipped, which the CLI uses for
// offline runs.
type Service struct {
	parser    *structparser.Parser
	extractor *extractor.Extractor
	linker    *entitylink.Linker
	engine    *learning.Engine
	decisions DecisionStore
	graph     GraphSink
	observer  DocumentObserver
	logger    logging.Logger
}

// NewService wires the pipeline.
func NewService(parser *structparser.Parser, ext *extractor.Extractor, linker *entitylink.Linker,
	engine *learning.Engine, decisions DecisionStore, graph GraphSink,
	observer DocumentObserver, log logging.Logger) *Service {
	return &Service{
		parser:    parser,
		extractor: ext,
		linker:    linker,
		engine:    engine,
		decisions: decisions,
		graph:     graph,
		observer:  observer,
		logger:    log.Named("ingest"),
	}
}

// Learn processes one document end to end.  The rule-based stages never
// fail; the learning engine and graph write can, and any such failure fails
// the whole document with nothing committed downstream.
func (s *Service) Learn(ctx context.Context, doc policy.Document) (Result, error) {
	started := time.Now()
	result, err := s.learn(ctx, doc)
	if s.observer != nil {
		s.observer.DocumentProcessed(err == nil, time.Since(started))
	}
	return result, err
}

func (s *Service) learn(ctx context.Context, doc policy.Document) (Result, error) {
	doc.Text = structparser.NormalizeText(doc.Text)
	if strings.TrimSpace(doc.Text) == "" {
		return Result{}, errors.New(errors.ErrCodeParseEmpty, "document has no text")
	}

	result := Result{Document: doc}
	result.Parsed = s.parser.Parse(doc.Text)
	for _, w := range result.Parsed.Warnings {
		s.logger.Warn("structural parse warning",
			logging.String("document_id", doc.ID),
			logging.String("code", w.Code),
			logging.String("message", w.Message))
	}

	result.Facts = s.extractor.Extract(doc.Text)
	result.Links = s.linkEntities(result.Parsed, result.Facts)

	chunks := similarity.ChunkDocument(doc.Text, result.Parsed)
	outcome, err := s.engine.Learn(ctx, doc, chunks)
	if err != nil {
		return Result{}, err
	}
	result.Decision = outcome.Decision
	result.Relations = outcome.Relations

	if s.graph != nil {
		if err := s.graph.WriteDocument(ctx, result); err != nil {
			return Result{}, errors.Wrap(err, errors.ErrCodeGraphWriteFailed, "persist document graph")
		}
	}

	if s.decisions != nil {
		if err := s.decisions.Save(ctx, result.Decision); err != nil {
			// the document itself succeeded; losing one audit row is
			// logged, not fatal
			s.logger.Error("decision recording failed",
				logging.String("document_id", doc.ID), logging.Err(err))
		}
	}

	return result, nil
}

// linkEntities resolves disease mentions: name candidates from subclause
// and paragraph text, plus every extracted KCD code.  Results are deduped
// by entity and method.  Null matches stay in the output so unresolved
// mentions can be queued for curation instead of vanishing.
func (s *Service) linkEntities(parsed policy.ParseResult, facts policy.FactSet) []policy.EntityLinkResult {
	if s.linker == nil {
		return nil
	}

	var links []policy.EntityLinkResult
	seen := make(map[string]bool)
	add := func(r policy.EntityLinkResult) {
		entityID := ""
		if r.Entity != nil {
			entityID = r.Entity.ID
		}
		key := entityID + "|" + string(r.Method) + "|" + r.Mention
		if seen[key] {
			return
		}
		seen[key] = true
		links = append(links, r)
	}

	for _, mention := range mentionCandidates(parsed) {
		add(s.linker.Link(mention))
	}
	for _, ref := range facts.KCDCodes {
		for _, code := range ref.Codes() {
			add(s.linker.LinkCode(code))
		}
	}
	return links
}

// mentionCandidates pulls likely disease names out of the parsed structure:
// the head of each subclause before any parenthetical or amount, e.g.
// "일반암" from "일반암(C77 제외): 1억원".
func mentionCandidates(parsed policy.ParseResult) []string {
	var candidates []string
	seen := make(map[string]bool)
	push := func(text string) {
		head := mentionHead(text)
		if head == "" || seen[head] {
			return
		}
		seen[head] = true
		candidates = append(candidates, head)
	}

	for _, art := range parsed.Articles {
		for _, para := range art.Paragraphs {
			for _, sub := range para.Subclauses {
				push(sub.Text)
			}
		}
	}
	return candidates
}

// mentionHead trims a subclause down to its leading name.
func mentionHead(text string) string {
	if i := strings.IndexAny(text, "(（:："); i >= 0 {
		text = text[:i]
	}
	return strings.TrimSpace(text)
}
