package correlation

import (
	"math"
	"sort"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/registry"
)

// newTextAnalyzer builds the bleve standard analyzer: unicode
// segmentation, lowercasing, English stopword removal. It is shared across
// passes; analysis is stateless.
func newTextAnalyzer() (analysis.Analyzer, error) {
	return registry.NewCache().AnalyzerNamed(standard.Name)
}

// documentIndex is the TF-IDF view of one correlation pass's alert text
// corpus. Weighting is the smooth-idf variant, idf = ln((1+N)/(1+df)) + 1,
// with l2-normalized vectors so cosine similarity reduces to a dot product.
type documentIndex struct {
	analyzer analysis.Analyzer
	counts   map[string]map[string]int // doc id -> term -> occurrences
	df       map[string]int
	docs     int
	vectors  map[string]map[string]float64 // memoized, valid once the corpus is complete
}

func newDocumentIndex(analyzer analysis.Analyzer) *documentIndex {
	return &documentIndex{
		analyzer: analyzer,
		counts:   make(map[string]map[string]int),
		df:       make(map[string]int),
		vectors:  make(map[string]map[string]float64),
	}
}

// add indexes one document. Documents whose text analyzes to zero terms
// (empty, or stopwords only) stay out of the corpus.
func (ix *documentIndex) add(id, text string) {
	if text == "" {
		return
	}
	stream := ix.analyzer.Analyze([]byte(text))
	if len(stream) == 0 {
		return
	}
	counts := make(map[string]int, len(stream))
	for _, token := range stream {
		counts[string(token.Term)]++
	}
	ix.counts[id] = counts
	for term := range counts {
		ix.df[term]++
	}
	ix.docs++
}

func (ix *documentIndex) vector(id string) map[string]float64 {
	if vec, ok := ix.vectors[id]; ok {
		return vec
	}
	counts, ok := ix.counts[id]
	if !ok {
		return nil
	}
	vec := make(map[string]float64, len(counts))
	var norm float64
	for term, tf := range counts {
		idf := math.Log(float64(1+ix.docs)/float64(1+ix.df[term])) + 1
		w := float64(tf) * idf
		vec[term] = w
		norm += w * w
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for term := range vec {
			vec[term] /= norm
		}
	}
	ix.vectors[id] = vec
	return vec
}

// cosine returns the similarity of two indexed documents. ok is false when
// either document is absent from the corpus.
func (ix *documentIndex) cosine(id1, id2 string) (float64, bool) {
	a, b := ix.vector(id1), ix.vector(id2)
	if len(a) == 0 || len(b) == 0 {
		return 0, false
	}
	if len(b) < len(a) {
		a, b = b, a
	}
	terms := make([]string, 0, len(a))
	for term := range a {
		terms = append(terms, term)
	}
	sort.Strings(terms) // fixed summation order keeps scores reproducible
	var dot float64
	for _, term := range terms {
		if w, ok := b[term]; ok {
			dot += a[term] * w
		}
	}
	if dot > 1 {
		dot = 1 // guard accumulated rounding
	}
	return dot, true
}
