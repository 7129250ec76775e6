package domain

import "context"

// Book is the immutable metadata record of a single title.
type Book struct {
	Title   string `json:"title"`
	Author  string `json:"author"`
	Genres  string `json:"genres"`
	Summary string `json:"summary"`
}

// TaggedDocument is a tokenized summary paired with its corpus tag.
type TaggedDocument struct {
	Words []string
	Tag   int
}

// Neighbor is a vector store hit: the document tag and its similarity to the query.
type Neighbor struct {
	Tag   int
	Score float64
}

// Recommendation is a similar book with its correlation score.
type Recommendation struct {
	Book  Book
	Score float64
	// ShortSummary is filled only when the query asks for it.
	ShortSummary string
}

// Query describes a similarity request. At least one of Title or Summary must be set.
type Query struct {
	Title       string
	Summary     string
	NSim        int
	WithSummary bool
}

// Embedder is a trainable document embedding model.
// BuildVocab and Train run once; Infer must be deterministic afterwards so that
// a persisted model answers queries exactly like the in-memory one.
type Embedder interface {
	Name() string
	BuildVocab(corpus []TaggedDocument) error
	Train(ctx context.Context, corpus []TaggedDocument) error
	Dimension() int
	Infer(words []string) ([]float64, error)
	MarshalBinary() ([]byte, error)
	UnmarshalBinary(data []byte) error
}

// VectorStore holds document vectors and supports similarity search.
type VectorStore interface {
	Init(dimension int) error
	Upsert(tags []int, vectors [][]float64) error
	Search(vector []float64, topK int) ([]Neighbor, error)
	Clear() error
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}

// Recommender answers similarity queries against a trained model.
type Recommender interface {
	Recommend(ctx context.Context, q Query) ([]Recommendation, error)
}
