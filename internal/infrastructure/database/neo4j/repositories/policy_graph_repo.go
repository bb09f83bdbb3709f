// Package repositories writes the learned policy knowledge into the graph.
package repositories

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/nuriwon/yakgwan/internal/domain/policy"
	db "github.com/nuriwon/yakgwan/internal/infrastructure/database/neo4j"
	"github.com/nuriwon/yakgwan/pkg/errors"
)

// GraphWriter is what the ingest pipeline needs from the graph layer.
type GraphWriter interface {
	UpsertDocumentGraph(ctx context.Context, in DocumentGraph) error
}

// DocumentGraph is everything one learned document contributes to the
// graph.
type DocumentGraph struct {
	Document  policy.Document
	Parsed    policy.ParseResult
	Facts     policy.FactSet
	Links     []policy.EntityLinkResult
	Relations []policy.Relation
}

// PolicyGraphRepository persists document structure, extracted facts,
// linked entities, and external relations into Neo4j.  Every statement is a
// MERGE, so re-learning a document is idempotent.
type PolicyGraphRepository struct {
	driver *db.Driver
}

// NewPolicyGraphRepository wraps a connected driver.
func NewPolicyGraphRepository(driver *db.Driver) *PolicyGraphRepository {
	return &PolicyGraphRepository{driver: driver}
}

// UpsertDocumentGraph writes the whole document contribution in one
// transaction.
func (r *PolicyGraphRepository) UpsertDocumentGraph(ctx context.Context, in DocumentGraph) error {
	_, err := r.driver.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if err := upsertDocument(ctx, tx, in.Document); err != nil {
			return nil, err
		}
		for _, art := range in.Parsed.Articles {
			if err := upsertArticle(ctx, tx, in.Document.ID, art); err != nil {
				return nil, err
			}
		}
		if err := upsertFacts(ctx, tx, in.Document.ID, in.Facts); err != nil {
			return nil, err
		}
		if err := upsertLinks(ctx, tx, in.Document.ID, in.Links); err != nil {
			return nil, err
		}
		if err := upsertRelations(ctx, tx, in.Document.ID, in.Relations); err != nil {
			return nil, err
		}
		return nil, nil
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeGraphWriteFailed, "upsert document graph")
	}
	return nil
}

func upsertDocument(ctx context.Context, tx neo4j.ManagedTransaction, doc policy.Document) error {
	_, err := tx.Run(ctx, `
		MERGE (d:Document {id: $id})
		SET d.product_id = $product_id,
		    d.insurer = $insurer,
		    d.title = $title,
		    d.received_at = $received_at`,
		map[string]any{
			"id":          doc.ID,
			"product_id":  doc.ProductID,
			"insurer":     doc.Insurer,
			"title":       doc.Title,
			"received_at": doc.ReceivedAt.UTC(),
		})
	return err
}

func upsertArticle(ctx context.Context, tx neo4j.ManagedTransaction, docID string, art policy.Article) error {
	_, err := tx.Run(ctx, `
		MATCH (d:Document {id: $doc_id})
		MERGE (a:Article {doc_id: $doc_id, label: $label})
		SET a.number = $number,
		    a.sub_number = $sub_number,
		    a.title = $title,
		    a.span_start = $span_start,
		    a.span_end = $span_end
		MERGE (d)-[:HAS_ARTICLE]->(a)`,
		map[string]any{
			"doc_id":     docID,
			"label":      art.Label(),
			"number":     art.Number,
			"sub_number": art.SubNumber,
			"title":      art.Title,
			"span_start": art.Span.Start,
			"span_end":   art.Span.End,
		})
	if err != nil {
		return err
	}

	for _, para := range art.Paragraphs {
		if _, err := tx.Run(ctx, `
			MATCH (a:Article {doc_id: $doc_id, label: $label})
			MERGE (p:Paragraph {doc_id: $doc_id, article: $label, marker: $marker})
			SET p.number = $number,
			    p.has_exception = $has_exception,
			    p.exception_keywords = $exception_keywords,
			    p.span_start = $span_start,
			    p.span_end = $span_end
			MERGE (a)-[:HAS_PARAGRAPH]->(p)`,
			map[string]any{
				"doc_id":             docID,
				"label":              art.Label(),
				"marker":             para.Marker,
				"number":             para.Number,
				"has_exception":      para.HasException,
				"exception_keywords": para.ExceptionKeywords,
				"span_start":         para.Span.Start,
				"span_end":           para.Span.End,
			}); err != nil {
			return err
		}
	}
	return nil
}

func upsertFacts(ctx context.Context, tx neo4j.ManagedTransaction, docID string, facts policy.FactSet) error {
	for _, a := range facts.Amounts {
		if _, err := tx.Run(ctx, `
			MATCH (d:Document {id: $doc_id})
			MERGE (f:Amount {doc_id: $doc_id, span_start: $span_start, span_end: $span_end})
			SET f.value = $value, f.raw = $raw, f.confidence = $confidence
			MERGE (d)-[:HAS_AMOUNT]->(f)`,
			map[string]any{
				"doc_id": docID, "span_start": a.Span.Start, "span_end": a.Span.End,
				"value": a.Value, "raw": a.Raw, "confidence": a.Confidence,
			}); err != nil {
			return err
		}
	}
	for _, p := range facts.Periods {
		if _, err := tx.Run(ctx, `
			MATCH (d:Document {id: $doc_id})
			MERGE (f:Period {doc_id: $doc_id, span_start: $span_start, span_end: $span_end})
			SET f.days = $days, f.raw = $raw, f.confidence = $confidence
			MERGE (d)-[:HAS_PERIOD]->(f)`,
			map[string]any{
				"doc_id": docID, "span_start": p.Span.Start, "span_end": p.Span.End,
				"days": p.Days, "raw": p.Raw, "confidence": p.Confidence,
			}); err != nil {
			return err
		}
	}
	for _, k := range facts.KCDCodes {
		if _, err := tx.Run(ctx, `
			MATCH (d:Document {id: $doc_id})
			MERGE (f:KCDReference {doc_id: $doc_id, span_start: $span_start, span_end: $span_end})
			SET f.code = $code, f.range_end = $range_end, f.is_range = $is_range, f.raw = $raw
			MERGE (d)-[:REFERENCES_CODE]->(f)`,
			map[string]any{
				"doc_id": docID, "span_start": k.Span.Start, "span_end": k.Span.End,
				"code": k.Code, "range_end": k.RangeEnd, "is_range": k.IsRange, "raw": k.Raw,
			}); err != nil {
			return err
		}
	}
	return nil
}

func upsertLinks(ctx context.Context, tx neo4j.ManagedTransaction, docID string, links []policy.EntityLinkResult) error {
	for _, l := range links {
		if !l.Linked() {
			continue
		}
		if _, err := tx.Run(ctx, `
			MATCH (d:Document {id: $doc_id})
			MERGE (e:Disease {id: $entity_id})
			SET e.name = $name, e.category = $category
			MERGE (d)-[m:MENTIONS {mention: $mention}]->(e)
			SET m.method = $method, m.score = $score, m.matched_name = $matched_name`,
			map[string]any{
				"doc_id":       docID,
				"entity_id":    l.Entity.ID,
				"name":         l.Entity.Name,
				"category":     l.Entity.Category,
				"mention":      l.Mention,
				"method":       string(l.Method),
				"score":        l.Score,
				"matched_name": l.MatchedName,
			}); err != nil {
			return err
		}
	}
	return nil
}

func upsertRelations(ctx context.Context, tx neo4j.ManagedTransaction, docID string, relations []policy.Relation) error {
	for _, rel := range relations {
		if _, err := tx.Run(ctx, `
			MATCH (d:Document {id: $doc_id})
			MERGE (s:Concept {name: $subject})
			MERGE (o:Concept {name: $object})
			MERGE (s)-[r:RELATES {predicate: $predicate, doc_id: $doc_id}]->(o)
			SET r.confidence = $confidence
			MERGE (d)-[:ASSERTS {predicate: $predicate}]->(s)`,
			map[string]any{
				"doc_id":     docID,
				"subject":    rel.Subject,
				"predicate":  rel.Predicate,
				"object":     rel.Object,
				"confidence": rel.Confidence,
			}); err != nil {
			return err
		}
	}
	return nil
}
