package embedding

import (
	"fmt"

	"trueneutral/internal/domain"
	"trueneutral/internal/embedding/tfidf"
	"trueneutral/internal/embedding/word2vec"
)

// Embedder converts a tokenized document into a numeric vector representation.
// Implementations build a vocabulary and train over the corpus before inference.
type Embedder = domain.Embedder

// Config selects and parameterizes an embedder implementation.
type Config struct {
	Type       string
	VectorSize int
	Window     int
	Epochs     int
	MinCount   int
	Workers    int
}

// New creates an untrained embedder from cfg.
func New(cfg Config) (Embedder, error) {
	switch cfg.Type {
	case tfidf.Name, "":
		return tfidf.NewEmbedder(), nil
	case word2vec.Name:
		return word2vec.NewEmbedder(word2vec.Config{
			VectorSize: cfg.VectorSize,
			Window:     cfg.Window,
			Epochs:     cfg.Epochs,
			MinCount:   cfg.MinCount,
			Workers:    cfg.Workers,
		}), nil
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Type)
	}
}

// Restore rebuilds a trained embedder from the state produced by its MarshalBinary.
func Restore(name string, state []byte) (Embedder, error) {
	var e Embedder
	switch name {
	case tfidf.Name:
		e = tfidf.NewEmbedder()
	case word2vec.Name:
		e = word2vec.NewEmbedder(word2vec.Config{})
	default:
		return nil, fmt.Errorf("unknown embedder: %s", name)
	}
	if err := e.UnmarshalBinary(state); err != nil {
		return nil, fmt.Errorf("restore %s embedder: %w", name, err)
	}
	return e, nil
}
