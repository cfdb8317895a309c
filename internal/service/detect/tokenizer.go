// internal/service/detect/tokenizer.go

package detect

import (
	"fmt"
	"sort"
	"unicode"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/registry"
)

// Tokenizer turns free text into lowercase, stop-word-free terms. The same
// tokenizer is used for clustering and for historical snapshot keywords so
// that mention matching stays symmetric across both paths.
type Tokenizer struct {
	analyzer analysis.Analyzer
}

// NewTokenizer creates a tokenizer backed by Bleve's standard analyzer
// (unicode tokenization, lowercasing, English stop words, no stemming).
func NewTokenizer() (*Tokenizer, error) {
	cache := registry.NewCache()
	analyzer, err := cache.AnalyzerNamed(standard.Name)
	if err != nil {
		return nil, fmt.Errorf("building standard analyzer: %w", err)
	}
	return &Tokenizer{analyzer: analyzer}, nil
}

// Tokens returns the analyzed terms of text in document order.
func (t *Tokenizer) Tokens(text string) []string {
	stream := t.analyzer.Analyze([]byte(text))
	tokens := make([]string, 0, len(stream))
	for _, tok := range stream {
		term := string(tok.Term)
		if usableTerm(term) {
			tokens = append(tokens, term)
		}
	}
	return tokens
}

// Keywords returns the distinct analyzed terms of text, sorted.
func (t *Tokenizer) Keywords(text string) []string {
	seen := make(map[string]bool)
	for _, term := range t.Tokens(text) {
		seen[term] = true
	}
	keywords := make([]string, 0, len(seen))
	for term := range seen {
		keywords = append(keywords, term)
	}
	sort.Strings(keywords)
	return keywords
}

// usableTerm drops single characters and purely numeric terms, which carry
// no topical signal.
func usableTerm(term string) bool {
	if len(term) < 2 {
		return false
	}
	for _, r := range term {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
