// Package policy implements the insurance-policy bounded context: the legal
// document structure produced by parsing clause text, the critical facts
// extracted from it, the disease ontology entities those facts link to, and
// the learning decisions recorded for each processed document.  All business
// rules about what constitutes a well-formed policy structure live here;
// parsing, extraction, and persistence are handled by separate layers.
package policy

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ─────────────────────────────────────────────────────────────────────────────
// Structural hierarchy: Document ► Article ► Paragraph ► Subclause
// ─────────────────────────────────────────────────────────────────────────────

// SyntheticParagraphMarker is the marker assigned to the implicit paragraph
// created when an article carries body text before its first numbered
// paragraph.  Korean legal drafting calls this leading run the 본문.
const SyntheticParagraphMarker = "본문"

// Subclause is the finest structural unit: a numbered ("1.", "2.") or
// lettered ("가.", "나.") item inside a paragraph.
type Subclause struct {
	// Marker is the literal marker as it appeared, without the trailing
	// dot: "1", "가".
	Marker string `json:"marker"`

	// Text is the subclause body, marker stripped, whitespace trimmed.
	Text string `json:"text"`

	// Span locates the subclause within the original document text.
	Span TextSpan `json:"span"`
}

// Paragraph is one ①-numbered division of an article, or the synthetic 본문
// paragraph holding text that precedes the first numbered division.
type Paragraph struct {
	// Marker is the circled numeral as it appeared ("①", "②"), or
	// SyntheticParagraphMarker for the implicit leading paragraph.
	Marker string `json:"marker"`

	// Number is the ordinal of the paragraph within its article, starting
	// at 1.  The synthetic 본문 paragraph is number 0.
	Number int `json:"number"`

	// Text is the paragraph body excluding subclause text.
	Text string `json:"text"`

	// Subclauses are the numbered/lettered items in document order.
	Subclauses []Subclause `json:"subclauses,omitempty"`

	// HasException reports whether the paragraph contains an exception or
	// proviso construction (다만, 단서, 제외하고, …).
	HasException bool `json:"has_exception"`

	// ExceptionKeywords lists the proviso keywords that matched, in the
	// order they were checked.  Empty when HasException is false.
	ExceptionKeywords []string `json:"exception_keywords,omitempty"`

	Span TextSpan `json:"span"`
}

// Article is one 제N조 unit of a policy document.
type Article struct {
	// Number is the article number N from 제N조.
	Number int `json:"number"`

	// SubNumber is M from the 제N조의M form, 0 when absent.
	SubNumber int `json:"sub_number,omitempty"`

	// Title is the bracketed title ("보험금 지급") when present.
	Title string `json:"title,omitempty"`

	// Paragraphs are the article's paragraphs in document order.  An
	// article always has at least one paragraph: when the source text has
	// no ① markers the whole body becomes the synthetic 본문 paragraph.
	Paragraphs []Paragraph `json:"paragraphs"`

	Span TextSpan `json:"span"`
}

// Label renders the article's canonical label: "제10조" or "제10조의2".
func (a Article) Label() string {
	if a.SubNumber > 0 {
		return fmt.Sprintf("제%d조의%d", a.Number, a.SubNumber)
	}
	return fmt.Sprintf("제%d조", a.Number)
}

// TextSpan is a half-open [Start, End) byte range into the original document
// text.  Spans always index the original input, never a normalized copy, so
// callers can slice the source text directly.
type TextSpan struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the span length in bytes.
func (s TextSpan) Len() int { return s.End - s.Start }

// Contains reports whether the byte offset falls inside the span.
func (s TextSpan) Contains(off int) bool { return off >= s.Start && off < s.End }

// Overlaps reports whether two spans share at least one byte.
func (s TextSpan) Overlaps(o TextSpan) bool { return s.Start < o.End && o.Start < s.End }

// ─────────────────────────────────────────────────────────────────────────────
// Parse result
// ─────────────────────────────────────────────────────────────────────────────

// ParseWarning describes a structural irregularity the parser tolerated.
// Warnings never abort a parse; malformed regions degrade to flat text.
type ParseWarning struct {
	// Code is a short machine-readable tag: "duplicate_article_marker",
	// "no_structure_found", "out_of_order_paragraph", …
	Code string `json:"code"`

	// Message is the human-readable explanation.
	Message string `json:"message"`

	// Span locates the offending region when known.
	Span TextSpan `json:"span,omitempty"`
}

// ParseResult is the full structural decomposition of one document's text.
type ParseResult struct {
	// Articles in document order.  Empty when the text contains no 제N조
	// marker at all; in that case the raw text is still available to
	// downstream stages and a no_structure_found warning is recorded.
	Articles []Article `json:"articles"`

	// Warnings collected during parsing.  A non-empty warning list is a
	// normal outcome, not a failure.
	Warnings []ParseWarning `json:"warnings,omitempty"`

	// SourceLength is the byte length of the parsed input, recorded so
	// spans can be validated against the text they index.
	SourceLength int `json:"source_length"`
}

// ArticleCount returns the number of parsed articles.
func (r ParseResult) ArticleCount() int { return len(r.Articles) }

// FindArticle returns the first article with the given number and
// sub-number, or nil when absent.
func (r ParseResult) FindArticle(number, subNumber int) *Article {
	for i := range r.Articles {
		if r.Articles[i].Number == number && r.Articles[i].SubNumber == subNumber {
			return &r.Articles[i]
		}
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Document identity
// ─────────────────────────────────────────────────────────────────────────────

// Document is the ingestion-level record of one policy text submitted for
// learning.  The ID is assigned at intake and carried through every
// downstream stage, log line, and persisted decision.
type Document struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id,omitempty"`
	Insurer   string `json:"insurer,omitempty"`
	Title     string `json:"title,omitempty"`
	Text      string `json:"text"`

	// PreviousVersionID names the document this one revises, when the
	// submitter knows it.  It anchors the incremental-learning lineage for
	// documents that carry no product identifier.
	PreviousVersionID string `json:"previous_version_id,omitempty"`

	ReceivedAt time.Time `json:"received_at"`
}

// NewDocument builds a Document with a fresh UUID and intake timestamp.
func NewDocument(productID, title, text string) Document {
	return Document{
		ID:         uuid.NewString(),
		ProductID:  productID,
		Title:      title,
		Text:       text,
		ReceivedAt: time.Now().UTC(),
	}
}
