// Package similarity provides the comparison primitives the strategy
// selector ranks documents with: content-hash chunking, document-level
// structural similarity for template matching, and chunk-hash diffing for
// incremental learning.
package similarity

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/nuriwon/yakgwan/internal/domain/policy"
)

// reBlankLine splits unstructured text into blocks.
var reBlankLine = regexp.MustCompile(`\n\s*\n`)

// HashText returns the hex SHA-256 of the whitespace-trimmed text.  Chunk
// identity is content-based: the same clause text anywhere hashes the same.
func HashText(text string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(text)))
	return hex.EncodeToString(sum[:])
}

// ChunkDocument splits a document into cacheable chunks.  When the parse
// found articles each article is one chunk; otherwise the text falls back
// to blank-line separated blocks so unstructured documents still chunk.
func ChunkDocument(text string, parsed policy.ParseResult) []policy.Chunk {
	if len(parsed.Articles) > 0 {
		chunks := make([]policy.Chunk, 0, len(parsed.Articles))
		for i, art := range parsed.Articles {
			body := text[art.Span.Start:art.Span.End]
			chunks = append(chunks, policy.Chunk{
				Index: i,
				Hash:  HashText(body),
				Text:  body,
				Span:  art.Span,
			})
		}
		return chunks
	}
	return chunkByBlankLines(text)
}

func chunkByBlankLines(text string) []policy.Chunk {
	var chunks []policy.Chunk
	for _, block := range splitKeepOffsets(text) {
		if strings.TrimSpace(block.text) == "" {
			continue
		}
		chunks = append(chunks, policy.Chunk{
			Index: len(chunks),
			Hash:  HashText(block.text),
			Text:  block.text,
			Span:  policy.TextSpan{Start: block.start, End: block.start + len(block.text)},
		})
	}
	return chunks
}

type textBlock struct {
	text  string
	start int
}

func splitKeepOffsets(text string) []textBlock {
	var blocks []textBlock
	prev := 0
	for _, sep := range reBlankLine.FindAllStringIndex(text, -1) {
		blocks = append(blocks, textBlock{text: text[prev:sep[0]], start: prev})
		prev = sep[1]
	}
	blocks = append(blocks, textBlock{text: text[prev:], start: prev})
	return blocks
}

// ChunkHashes returns the ordered hash list, the stored form of a learned
// document version.
func ChunkHashes(chunks []policy.Chunk) []string {
	hashes := make([]string, len(chunks))
	for i, c := range chunks {
		hashes[i] = c.Hash
	}
	return hashes
}

// ChangedChunks returns the chunks whose hash does not appear in the prior
// version's hash set, in document order.
func ChangedChunks(prior []string, chunks []policy.Chunk) []policy.Chunk {
	known := make(map[string]bool, len(prior))
	for _, h := range prior {
		known[h] = true
	}
	var changed []policy.Chunk
	for _, c := range chunks {
		if !known[c.Hash] {
			changed = append(changed, c)
		}
	}
	return changed
}
