package bundle

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"trueneutral/internal/corpus"
	"trueneutral/internal/domain"
)

// Trainer builds bundles from book collections.
type Trainer struct {
	logger zerolog.Logger
	now    func() time.Time
}

func NewTrainer(logger zerolog.Logger) *Trainer {
	return &Trainer{logger: logger, now: time.Now}
}

// Train builds the vocabulary, trains emb and infers one vector per document.
// Catalog entry t holds the book that produced document tag t.
// Every failure is returned as a *domain.TrainingError.
func (t *Trainer) Train(ctx context.Context, emb domain.Embedder, books []domain.Book) (*Bundle, error) {
	start := t.now()

	docs, err := corpus.ReadTagged(books)
	if err != nil {
		return nil, &domain.TrainingError{Err: err}
	}
	tokens, err := corpus.ReadTokens(books)
	if err != nil {
		return nil, &domain.TrainingError{Err: err}
	}
	if len(docs) == 0 {
		return nil, &domain.TrainingError{Err: domain.ErrEmptyCorpus}
	}

	t.logger.Info().
		Str("embedder", emb.Name()).
		Int("documents", len(docs)).
		Msg("training started")

	if err := emb.BuildVocab(docs); err != nil {
		return nil, &domain.TrainingError{Err: err}
	}
	if err := emb.Train(ctx, docs); err != nil {
		return nil, &domain.TrainingError{Err: err}
	}

	vectors := make([][]float64, len(docs))
	entries := make([]Entry, len(docs))
	for i, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, &domain.TrainingError{Err: err}
		}
		vec, err := emb.Infer(doc.Words)
		if err != nil {
			return nil, &domain.TrainingError{Err: err}
		}
		vectors[i] = vec
		entries[i] = Entry{Tag: doc.Tag, Book: books[i], Words: doc.Words}
	}
	catalog, err := NewCatalog(entries)
	if err != nil {
		return nil, &domain.TrainingError{Err: err}
	}

	finished := t.now()
	b := &Bundle{
		Embedder:    emb,
		Catalog:     catalog,
		TrainCorpus: docs,
		TestCorpus:  tokens,
		Vectors:     vectors,
		Metadata: Metadata{
			ID:               uuid.New(),
			Embedder:         emb.Name(),
			Dimension:        emb.Dimension(),
			TrainedAt:        finished,
			DocumentCount:    len(docs),
			TrainingDuration: finished.Sub(start),
		},
	}

	t.logger.Info().
		Str("bundle_id", b.Metadata.ID.String()).
		Int("documents", len(docs)).
		Int("dimension", b.Metadata.Dimension).
		Dur("duration", b.Metadata.TrainingDuration).
		Msg("training finished")
	return b, nil
}
