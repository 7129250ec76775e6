// Package bundle trains, holds and persists the artifacts that answer similarity queries:
// the embedder, the catalog of books keyed by document tag, both corpora and the
// per-document vectors.
package bundle

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"trueneutral/internal/domain"
	"trueneutral/internal/embedding"
	"trueneutral/internal/vectorstore"
	"trueneutral/internal/vectorstore/memory"
)

// Entry is one catalog row: the book that produced document Tag, with its tokens.
type Entry struct {
	Tag   int
	Book  domain.Book
	Words []string
}

// Catalog maps document tags to books. Tags are exactly 0..Len()-1.
type Catalog struct {
	entries []Entry
	byTitle map[string]int
}

// NewCatalog indexes entries by tag and title. The first entry with a given title wins
// title lookups.
func NewCatalog(entries []Entry) (*Catalog, error) {
	ordered := make([]Entry, len(entries))
	seen := make([]bool, len(entries))
	for _, e := range entries {
		if e.Tag < 0 || e.Tag >= len(entries) {
			return nil, fmt.Errorf("catalog tag %d outside 0..%d", e.Tag, len(entries)-1)
		}
		if seen[e.Tag] {
			return nil, fmt.Errorf("catalog tag %d appears twice", e.Tag)
		}
		seen[e.Tag] = true
		ordered[e.Tag] = e
	}
	c := &Catalog{entries: ordered, byTitle: make(map[string]int, len(ordered))}
	for _, e := range ordered {
		if _, ok := c.byTitle[e.Book.Title]; !ok {
			c.byTitle[e.Book.Title] = e.Tag
		}
	}
	return c, nil
}

func (c *Catalog) Len() int { return len(c.entries) }

// Entry returns the entry for tag.
func (c *Catalog) Entry(tag int) (Entry, bool) {
	if tag < 0 || tag >= len(c.entries) {
		return Entry{}, false
	}
	return c.entries[tag], true
}

// Lookup finds the entry for an exact title.
func (c *Catalog) Lookup(title string) (Entry, bool) {
	tag, ok := c.byTitle[title]
	if !ok {
		return Entry{}, false
	}
	return c.entries[tag], true
}

// Entries returns a copy of all entries in tag order.
func (c *Catalog) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

func (c *Catalog) Titles() []string    { return c.column(func(b domain.Book) string { return b.Title }) }
func (c *Catalog) Authors() []string   { return c.column(func(b domain.Book) string { return b.Author }) }
func (c *Catalog) Genres() []string    { return c.column(func(b domain.Book) string { return b.Genres }) }
func (c *Catalog) Summaries() []string { return c.column(func(b domain.Book) string { return b.Summary }) }

func (c *Catalog) column(field func(domain.Book) string) []string {
	out := make([]string, len(c.entries))
	for i, e := range c.entries {
		out[i] = field(e.Book)
	}
	return out
}

// Metadata describes how and when a bundle was produced.
type Metadata struct {
	ID               uuid.UUID
	Embedder         string
	Dimension        int
	TrainedAt        time.Time
	DocumentCount    int
	TrainingDuration time.Duration
}

// Bundle is a trained model with everything needed to answer queries.
// It is read-only once built.
type Bundle struct {
	Embedder    embedding.Embedder
	Catalog     *Catalog
	TrainCorpus []domain.TaggedDocument
	TestCorpus  [][]string
	Vectors     [][]float64
	Metadata    Metadata
}

// Store loads the document vectors into a fresh in-memory vector store.
func (b *Bundle) Store() (vectorstore.Storage, error) {
	st := memory.NewStorage()
	if err := st.Init(b.Embedder.Dimension()); err != nil {
		return nil, err
	}
	tags := make([]int, len(b.Vectors))
	for i := range tags {
		tags[i] = i
	}
	if err := st.Upsert(tags, b.Vectors); err != nil {
		return nil, err
	}
	return st, nil
}

// Validate checks that catalog, corpora and vectors describe the same documents.
func (b *Bundle) Validate() error {
	if b.Embedder == nil {
		return fmt.Errorf("bundle has no embedder")
	}
	if b.Catalog == nil {
		return fmt.Errorf("bundle has no catalog")
	}
	n := b.Catalog.Len()
	if n == 0 {
		return domain.ErrEmptyCorpus
	}
	if len(b.TrainCorpus) != n || len(b.TestCorpus) != n || len(b.Vectors) != n {
		return fmt.Errorf("misaligned bundle: catalog %d, train %d, test %d, vectors %d",
			n, len(b.TrainCorpus), len(b.TestCorpus), len(b.Vectors))
	}
	for i, doc := range b.TrainCorpus {
		if doc.Tag != i {
			return fmt.Errorf("train document %d has tag %d", i, doc.Tag)
		}
	}
	dim := b.Embedder.Dimension()
	for i, v := range b.Vectors {
		if len(v) != dim {
			return fmt.Errorf("vector %d has dimension %d, want %d", i, len(v), dim)
		}
	}
	return nil
}
