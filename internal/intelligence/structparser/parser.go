// Package structparser decomposes Korean insurance-policy clause text into
// its legal hierarchy: 제N조 articles, ①-numbered paragraphs, and numbered or
// lettered subclauses.  Parsing is a pure function of the input text: it
// never fails, never consults external state, and reports structural
// irregularities as warnings on the result instead of errors.
package structparser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/nuriwon/yakgwan/internal/domain/policy"
)

// ─────────────────────────────────────────────────────────────────────────────
// Marker patterns
// ─────────────────────────────────────────────────────────────────────────────

var (
	// reArticle matches an article heading at the start of a line:
	// 제10조, 제 10 조, 제10조의2.  Mid-line occurrences are treated as
	// cross-references, not headings.
	reArticle = regexp.MustCompile(`(?m)^[ \t]*제\s*(\d+)\s*조(?:의\s*(\d+))?`)

	// reArticleTitle matches the bracketed title immediately after the
	// article marker: [보험금 지급], (보험금 지급), 【보험금 지급】.
	reArticleTitle = regexp.MustCompile(`^\s*[\[(（【]([^\])）】]+)[\])）】]`)

	// reSubclause matches an item marker followed by whitespace: "1. ",
	// "12. ", "가. ".  The whitespace requirement keeps decimal numbers
	// like 0.5 from being read as markers.
	reSubclause = regexp.MustCompile(`(?:^|[\s:;])((?:\d{1,2})|[가나다라마바사아자차카타파하])\.\s`)

	// reBareDan matches the bare proviso particle 단 at a clause
	// boundary.  단독, 단체 and similar words must not trigger it.
	reBareDan = regexp.MustCompile(`(?:^|[\s(（.,;])단[,\s]`)
)

// exceptionKeywords are the proviso constructions that mark a paragraph as
// carrying an exception.  The bare 단 form is handled by reBareDan.
var exceptionKeywords = []string{"다만", "단서", "제외하고", "제외한"}

// paragraphNumber converts a circled numeral ①-⑳ to its ordinal, or 0 when
// the rune is not a circled numeral.
func paragraphNumber(r rune) int {
	if r >= '①' && r <= '⑳' {
		return int(r-'①') + 1
	}
	return 0
}

// NormalizeText applies Unicode NFC normalization.  Policy texts arrive from
// OCR and PDF pipelines that sometimes emit decomposed Hangul jamo; every
// downstream comparison assumes composed form.
func NormalizeText(text string) string {
	return norm.NFC.String(text)
}

// ─────────────────────────────────────────────────────────────────────────────
// Parser
// ─────────────────────────────────────────────────────────────────────────────

// Parser splits clause text into the article/paragraph/subclause hierarchy.
// The zero value is ready to use; Parse is safe for concurrent callers.
type Parser struct{}

// New returns a structural parser.
func New() *Parser { return &Parser{} }

// Parse decomposes text and returns the structure with any warnings.  It
// never returns an error: text with no recognizable structure yields an
// empty article list plus a no_structure_found warning, and malformed
// regions degrade to flat paragraph text.
func (p *Parser) Parse(text string) policy.ParseResult {
	result := policy.ParseResult{SourceLength: len(text)}

	headings := reArticle.FindAllStringSubmatchIndex(text, -1)
	if len(headings) == 0 {
		result.Warnings = append(result.Warnings, policy.ParseWarning{
			Code:    "no_structure_found",
			Message: "no 제N조 article marker found; text treated as unstructured",
		})
		return result
	}

	seen := make(map[string]bool, len(headings))
	for i, h := range headings {
		start := h[0]
		end := len(text)
		if i+1 < len(headings) {
			end = headings[i+1][0]
		}

		article := p.parseArticle(text, h, start, end, &result.Warnings)

		key := article.Label()
		if seen[key] {
			result.Warnings = append(result.Warnings, policy.ParseWarning{
				Code:    "duplicate_article_marker",
				Message: fmt.Sprintf("article marker %s appears more than once", key),
				Span:    policy.TextSpan{Start: start, End: h[1]},
			})
		}
		seen[key] = true

		result.Articles = append(result.Articles, article)
	}
	return result
}

// parseArticle builds one article from text[start:end], where heading holds
// the submatch indices of the 제N조 marker.
func (p *Parser) parseArticle(text string, heading []int, start, end int, warnings *[]policy.ParseWarning) policy.Article {
	number, _ := strconv.Atoi(text[heading[2]:heading[3]])
	subNumber := 0
	if heading[4] >= 0 {
		subNumber, _ = strconv.Atoi(text[heading[4]:heading[5]])
	}

	article := policy.Article{
		Number:    number,
		SubNumber: subNumber,
		Span:      policy.TextSpan{Start: start, End: end},
	}

	bodyStart := heading[1]
	if m := reArticleTitle.FindStringSubmatchIndex(text[bodyStart:end]); m != nil {
		article.Title = strings.TrimSpace(text[bodyStart+m[2] : bodyStart+m[3]])
		bodyStart += m[1]
	}

	article.Paragraphs = p.parseParagraphs(text, bodyStart, end, article.Label(), warnings)
	return article
}

// parseParagraphs splits an article body into its ① paragraphs.  Body text
// before the first marker becomes the synthetic 본문 paragraph; a body with
// no markers at all becomes a single 본문 paragraph.
func (p *Parser) parseParagraphs(text string, start, end int, label string, warnings *[]policy.ParseWarning) []policy.Paragraph {
	type mark struct {
		offset int
		width  int
		number int
		marker string
	}
	var marks []mark
	for off, r := range text[start:end] {
		if n := paragraphNumber(r); n > 0 {
			marks = append(marks, mark{
				offset: start + off,
				width:  len(string(r)),
				number: n,
				marker: string(r),
			})
		}
	}

	var paragraphs []policy.Paragraph

	leadEnd := end
	if len(marks) > 0 {
		leadEnd = marks[0].offset
	}
	if lead := strings.TrimSpace(text[start:leadEnd]); lead != "" {
		para := p.buildParagraph(text, policy.SyntheticParagraphMarker, 0, start, leadEnd)
		paragraphs = append(paragraphs, para)
	}

	prev := 0
	for i, m := range marks {
		bodyEnd := end
		if i+1 < len(marks) {
			bodyEnd = marks[i+1].offset
		}
		if m.number != prev+1 {
			*warnings = append(*warnings, policy.ParseWarning{
				Code:    "out_of_order_paragraph",
				Message: fmt.Sprintf("%s: paragraph %s follows paragraph %d", label, m.marker, prev),
				Span:    policy.TextSpan{Start: m.offset, End: m.offset + m.width},
			})
		}
		prev = m.number

		para := p.buildParagraph(text, m.marker, m.number, m.offset+m.width, bodyEnd)
		para.Span = policy.TextSpan{Start: m.offset, End: bodyEnd}
		paragraphs = append(paragraphs, para)
	}
	return paragraphs
}

// buildParagraph assembles one paragraph from text[start:end]: splits off
// subclauses and runs exception detection over the whole paragraph body.
func (p *Parser) buildParagraph(text, marker string, number, start, end int) policy.Paragraph {
	body := text[start:end]
	keywords := matchExceptions(body)
	para := policy.Paragraph{
		Marker:            marker,
		Number:            number,
		Span:              policy.TextSpan{Start: start, End: end},
		HasException:      len(keywords) > 0,
		ExceptionKeywords: keywords,
	}

	subs := reSubclause.FindAllStringSubmatchIndex(body, -1)
	ownEnd := len(body)
	if len(subs) > 0 {
		ownEnd = subs[0][0]
	}
	para.Text = strings.TrimSpace(body[:ownEnd])

	for i, s := range subs {
		subEnd := len(body)
		if i+1 < len(subs) {
			subEnd = subs[i+1][0]
		}
		para.Subclauses = append(para.Subclauses, policy.Subclause{
			Marker: body[s[2]:s[3]],
			Text:   strings.TrimSpace(body[s[1]:subEnd]),
			Span:   policy.TextSpan{Start: start + s[2], End: start + subEnd},
		})
	}
	return para
}

// matchExceptions returns the proviso keywords found in the text.  The bare
// 단 particle is reported as "단".
func matchExceptions(text string) []string {
	var matched []string
	for _, kw := range exceptionKeywords {
		if strings.Contains(text, kw) {
			matched = append(matched, kw)
		}
	}
	if reBareDan.MatchString(text) {
		matched = append(matched, "단")
	}
	return matched
}
