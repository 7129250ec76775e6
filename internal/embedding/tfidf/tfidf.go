package tfidf

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"math"
	"sort"

	"trueneutral/internal/domain"
)

// Name identifies this embedder in configuration and persisted bundles.
const Name = "tfidf"

// Embedder implements a simple TF-IDF vectorizer.
// It builds a vocabulary from the corpus and computes IDF values.
type Embedder struct {
	vocabulary map[string]int
	terms      []string
	idf        []float64
	dimension  int
	prepared   bool
	stopwords  map[string]struct{}
}

type state struct {
	Terms []string
	IDF   []float64
}

// NewEmbedder creates an untrained TF-IDF embedder.
func NewEmbedder() *Embedder {
	return &Embedder{
		vocabulary: make(map[string]int),
		stopwords:  defaultStopwords(),
	}
}

// Name returns the identifier of this embedder implementation.
func (e *Embedder) Name() string { return Name }

// BuildVocab builds the vocabulary and IDF values from the tagged corpus.
func (e *Embedder) BuildVocab(corpus []domain.TaggedDocument) error {
	if len(corpus) == 0 {
		return domain.ErrEmptyCorpus
	}
	// Build vocabulary and document frequencies
	df := make(map[string]int)
	for _, doc := range corpus {
		seen := make(map[string]struct{})
		for _, tok := range doc.Words {
			if _, isStop := e.stopwords[tok]; isStop {
				continue
			}
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}
	// Create stable ordering for vocabulary
	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	if len(terms) == 0 {
		return errors.New("no tokens found in corpus")
	}
	idf := make([]float64, len(terms))
	N := float64(len(corpus))
	for i, term := range terms {
		// Smoothed IDF
		idf[i] = math.Log((1+N)/(1+float64(df[term]))) + 1.0
	}
	e.load(terms, idf)
	return nil
}

// Train has nothing to fit beyond the vocabulary; it only checks that BuildVocab ran.
func (e *Embedder) Train(ctx context.Context, corpus []domain.TaggedDocument) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !e.prepared {
		return domain.ErrNotTrained
	}
	return nil
}

// Dimension returns the dimensionality of the produced embedding vectors.
func (e *Embedder) Dimension() int { return e.dimension }

// Infer computes the L2-normalized TF-IDF vector for the given tokens.
func (e *Embedder) Infer(words []string) ([]float64, error) {
	if !e.prepared {
		return nil, domain.ErrNotTrained
	}
	vec := make([]float64, e.dimension)
	tf := make(map[int]int)
	total := 0
	for _, tok := range words {
		if _, isStop := e.stopwords[tok]; isStop {
			continue
		}
		if idx, ok := e.vocabulary[tok]; ok {
			tf[idx]++
			total++
		}
	}
	if total == 0 {
		return vec, nil
	}
	for idx, count := range tf {
		tfv := float64(count) / float64(total)
		vec[idx] = tfv * e.idf[idx]
	}
	// L2 normalize
	norm := 0.0
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec, nil
}

// MarshalBinary encodes the vocabulary and IDF weights.
func (e *Embedder) MarshalBinary() ([]byte, error) {
	if !e.prepared {
		return nil, domain.ErrNotTrained
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(state{Terms: e.terms, IDF: e.idf}); err != nil {
		return nil, fmt.Errorf("encode tfidf state: %w", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary restores state written by MarshalBinary.
func (e *Embedder) UnmarshalBinary(data []byte) error {
	var st state
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&st); err != nil {
		return fmt.Errorf("decode tfidf state: %w", err)
	}
	if len(st.Terms) == 0 || len(st.Terms) != len(st.IDF) {
		return fmt.Errorf("tfidf state: %d terms, %d weights", len(st.Terms), len(st.IDF))
	}
	e.load(st.Terms, st.IDF)
	return nil
}

func (e *Embedder) load(terms []string, idf []float64) {
	e.vocabulary = make(map[string]int, len(terms))
	for i, term := range terms {
		e.vocabulary[term] = i
	}
	e.terms = terms
	e.idf = idf
	e.dimension = len(terms)
	e.prepared = true
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
