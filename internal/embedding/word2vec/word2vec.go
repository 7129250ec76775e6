// Package word2vec trains word vectors over the corpus and embeds a document as the
// normalized mean of its word vectors.
package word2vec

import (
	"bufio"
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/ynqa/wego/pkg/model/modelutil/vector"
	"github.com/ynqa/wego/pkg/model/word2vec"

	"trueneutral/internal/domain"
)

// Name identifies this embedder in configuration and persisted bundles.
const Name = "word2vec"

// Config holds the training parameters.
type Config struct {
	VectorSize int
	Window     int
	Epochs     int
	MinCount   int
	Workers    int
}

func (c Config) withDefaults() Config {
	if c.VectorSize <= 0 {
		c.VectorSize = 50
	}
	if c.Window <= 0 {
		c.Window = 5
	}
	if c.Epochs <= 0 {
		c.Epochs = 40
	}
	if c.MinCount <= 0 {
		c.MinCount = 1
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	return c
}

// Embedder is a CBOW word2vec model with negative sampling.
type Embedder struct {
	cfg     Config
	dim     int
	vectors map[string][]float64
	vocab   map[string]struct{}
}

type state struct {
	Dim     int
	Words   []string
	Vectors [][]float64
}

// NewEmbedder creates an untrained embedder.
func NewEmbedder(cfg Config) *Embedder {
	cfg = cfg.withDefaults()
	return &Embedder{cfg: cfg, dim: cfg.VectorSize}
}

func (e *Embedder) Name() string { return Name }

func (e *Embedder) Dimension() int { return e.dim }

// BuildVocab records the words that occur at least MinCount times.
func (e *Embedder) BuildVocab(corpus []domain.TaggedDocument) error {
	if len(corpus) == 0 {
		return domain.ErrEmptyCorpus
	}
	counts := make(map[string]int)
	for _, doc := range corpus {
		for _, w := range doc.Words {
			counts[w]++
		}
	}
	vocab := make(map[string]struct{}, len(counts))
	for w, n := range counts {
		if n >= e.cfg.MinCount {
			vocab[w] = struct{}{}
		}
	}
	if len(vocab) == 0 {
		return fmt.Errorf("no words occur at least %d times", e.cfg.MinCount)
	}
	e.vocab = vocab
	return nil
}

// Train fits word vectors on the corpus, one document per line.
func (e *Embedder) Train(ctx context.Context, corpus []domain.TaggedDocument) error {
	if e.vocab == nil {
		return fmt.Errorf("train before vocabulary: %w", domain.ErrNotTrained)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	var text strings.Builder
	for _, doc := range corpus {
		text.WriteString(strings.Join(doc.Words, " "))
		text.WriteByte('\n')
	}

	model, err := word2vec.New(
		word2vec.Dim(e.cfg.VectorSize),
		word2vec.Window(e.cfg.Window),
		word2vec.Iter(e.cfg.Epochs),
		word2vec.MinCount(e.cfg.MinCount),
		word2vec.Goroutines(e.cfg.Workers),
		word2vec.Model(word2vec.Cbow),
		word2vec.Optimizer(word2vec.NegativeSampling),
		word2vec.NegativeSampleSize(5),
		word2vec.DocInMemory(),
	)
	if err != nil {
		return fmt.Errorf("create word2vec model: %w", err)
	}
	if err := model.Train(strings.NewReader(text.String())); err != nil {
		return fmt.Errorf("train word2vec: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var out bytes.Buffer
	if err := model.Save(&out, vector.Single); err != nil {
		return fmt.Errorf("export word vectors: %w", err)
	}
	vectors, err := parseVectors(&out, e.cfg.VectorSize)
	if err != nil {
		return err
	}
	if len(vectors) == 0 {
		return fmt.Errorf("word2vec produced no vectors")
	}
	e.vectors = vectors
	e.dim = e.cfg.VectorSize
	return nil
}

// Infer averages the vectors of known words and L2-normalizes the result.
// Unknown words are ignored; a document with none yields the zero vector.
func (e *Embedder) Infer(words []string) ([]float64, error) {
	if e.vectors == nil {
		return nil, domain.ErrNotTrained
	}
	out := make([]float64, e.dim)
	count := 0
	for _, w := range words {
		vec, ok := e.vectors[w]
		if !ok {
			continue
		}
		for i := range out {
			out[i] += vec[i]
		}
		count++
	}
	if count == 0 {
		return out, nil
	}
	norm := 0.0
	for i := range out {
		out[i] /= float64(count)
		norm += out[i] * out[i]
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range out {
			out[i] /= norm
		}
	}
	return out, nil
}

// MarshalBinary encodes the trained word vectors.
func (e *Embedder) MarshalBinary() ([]byte, error) {
	if e.vectors == nil {
		return nil, domain.ErrNotTrained
	}
	st := state{Dim: e.dim, Words: make([]string, 0, len(e.vectors))}
	for w := range e.vectors {
		st.Words = append(st.Words, w)
	}
	sort.Strings(st.Words)
	st.Vectors = make([][]float64, len(st.Words))
	for i, w := range st.Words {
		st.Vectors[i] = e.vectors[w]
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(st); err != nil {
		return nil, fmt.Errorf("encode word2vec state: %w", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary restores vectors written by MarshalBinary.
func (e *Embedder) UnmarshalBinary(data []byte) error {
	var st state
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&st); err != nil {
		return fmt.Errorf("decode word2vec state: %w", err)
	}
	if st.Dim <= 0 || len(st.Words) == 0 || len(st.Words) != len(st.Vectors) {
		return fmt.Errorf("word2vec state: dim %d, %d words, %d vectors", st.Dim, len(st.Words), len(st.Vectors))
	}
	vectors := make(map[string][]float64, len(st.Words))
	vocab := make(map[string]struct{}, len(st.Words))
	for i, w := range st.Words {
		if len(st.Vectors[i]) != st.Dim {
			return fmt.Errorf("word2vec state: vector for %q has %d values, want %d", w, len(st.Vectors[i]), st.Dim)
		}
		vectors[w] = st.Vectors[i]
		vocab[w] = struct{}{}
	}
	e.dim = st.Dim
	e.cfg.VectorSize = st.Dim
	e.vectors = vectors
	e.vocab = vocab
	return nil
}

// parseVectors reads "word v1 v2 ..." lines, skipping any that do not carry dim values.
func parseVectors(r io.Reader, dim int) (map[string][]float64, error) {
	vectors := make(map[string][]float64)
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)
	for scanner.Scan() {
		parts := strings.Fields(scanner.Text())
		if len(parts) != dim+1 {
			continue
		}
		vec := make([]float64, dim)
		for i, s := range parts[1:] {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("parse vector for %q: %w", parts[0], err)
			}
			vec[i] = v
		}
		vectors[parts[0]] = vec
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read word vectors: %w", err)
	}
	return vectors, nil
}
