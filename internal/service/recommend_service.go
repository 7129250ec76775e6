package service

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"trueneutral/internal/bundle"
	"trueneutral/internal/corpus"
	"trueneutral/internal/domain"
	"trueneutral/internal/logging"
	"trueneutral/internal/metrics"
	"trueneutral/internal/vectorstore"
)

const DefaultNSim = 10

// Options tune query handling.
type Options struct {
	// DefaultNSim replaces a zero NSim.
	DefaultNSim int
	// MaxNSim rejects larger requests when positive.
	MaxNSim int
	// SummaryMaxSentences bounds the short summaries attached on request.
	SummaryMaxSentences int
}

// RecommendService answers similarity queries against one trained bundle.
// It is immutable after construction and safe for concurrent use.
type RecommendService struct {
	bundle     *bundle.Bundle
	store      vectorstore.Storage
	summarizer domain.Summarizer
	opts       Options
	logger     zerolog.Logger
}

func NewRecommendService(b *bundle.Bundle, summarizer domain.Summarizer, opts Options, logger zerolog.Logger) (*RecommendService, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	store, err := b.Store()
	if err != nil {
		return nil, err
	}
	if opts.DefaultNSim <= 0 {
		opts.DefaultNSim = DefaultNSim
	}
	if opts.MaxNSim > 0 && opts.DefaultNSim > opts.MaxNSim {
		opts.DefaultNSim = opts.MaxNSim
	}
	return &RecommendService{bundle: b, store: store, summarizer: summarizer, opts: opts, logger: logger}, nil
}

// Metadata describes the bundle the service answers from.
func (s *RecommendService) Metadata() bundle.Metadata { return s.bundle.Metadata }

// Titles lists every title in tag order.
func (s *RecommendService) Titles() []string { return s.bundle.Catalog.Titles() }

// Recommend returns up to NSim books most similar to the query, highest score first.
//
// A title found in the catalog takes precedence and its recorded summary becomes the
// query text; that book is never among the results. Otherwise the supplied summary is
// used, and a top hit whose tokens equal the query's is treated as the query itself.
func (s *RecommendService) Recommend(ctx context.Context, q domain.Query) ([]domain.Recommendation, error) {
	start := time.Now()
	recs, err := s.recommend(ctx, q)
	elapsed := time.Since(start)
	metrics.RecordQuery(SourceFromContext(ctx), elapsed, err)

	log := logging.Ctx(ctx, s.logger)
	if err != nil {
		log.Debug().Err(err).Str("title", q.Title).Msg("query rejected")
		return nil, err
	}
	log.Debug().
		Str("title", q.Title).
		Int("nsim", q.NSim).
		Int("results", len(recs)).
		Dur("duration", elapsed).
		Msg("query answered")
	return recs, nil
}

func (s *RecommendService) recommend(ctx context.Context, q domain.Query) ([]domain.Recommendation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	nsim, err := s.resolveNSim(q.NSim)
	if err != nil {
		return nil, err
	}

	text, selfTag, err := s.resolveText(q)
	if err != nil {
		return nil, err
	}
	tokens := corpus.Tokenize(corpus.Normalize(text))
	if len(tokens) == 0 {
		return nil, &domain.InvalidQueryError{Reason: "query text contains no words"}
	}
	vec, err := s.bundle.Embedder.Infer(tokens)
	if err != nil {
		return nil, err
	}
	// One extra hit leaves room for dropping the query book itself.
	hits, err := s.store.Search(vec, min(nsim, s.bundle.Catalog.Len())+1)
	if err != nil {
		return nil, err
	}

	hits = s.dropSelf(hits, selfTag, tokens)
	if len(hits) > nsim {
		hits = hits[:nsim]
	}

	recs := make([]domain.Recommendation, 0, len(hits))
	for _, h := range hits {
		e, ok := s.bundle.Catalog.Entry(h.Tag)
		if !ok {
			continue
		}
		rec := domain.Recommendation{Book: e.Book, Score: h.Score}
		if q.WithSummary && s.summarizer != nil {
			short, err := s.summarizer.Summarize(e.Book.Summary, s.opts.SummaryMaxSentences)
			if err != nil {
				return nil, err
			}
			rec.ShortSummary = short
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func (s *RecommendService) resolveNSim(n int) (int, error) {
	switch {
	case n < 0:
		return 0, &domain.InvalidQueryError{Reason: "nsim must be positive"}
	case n == 0:
		return s.opts.DefaultNSim, nil
	case s.opts.MaxNSim > 0 && n > s.opts.MaxNSim:
		return 0, &domain.InvalidQueryError{Reason: "nsim exceeds the configured maximum"}
	}
	return n, nil
}

// resolveText picks the query text. selfTag is the catalog tag of a resolved title, or -1.
func (s *RecommendService) resolveText(q domain.Query) (text string, selfTag int, err error) {
	title := strings.TrimSpace(q.Title)
	summary := strings.TrimSpace(q.Summary)
	if title != "" {
		if e, ok := s.bundle.Catalog.Lookup(title); ok {
			return e.Book.Summary, e.Tag, nil
		}
		if summary == "" {
			return "", -1, &domain.UnknownTitleError{Title: title}
		}
	}
	if summary == "" {
		return "", -1, &domain.InvalidQueryError{Reason: "a title or a summary is required"}
	}
	return summary, -1, nil
}

func (s *RecommendService) dropSelf(hits []domain.Neighbor, selfTag int, tokens []string) []domain.Neighbor {
	if selfTag >= 0 {
		return slices.DeleteFunc(hits, func(h domain.Neighbor) bool { return h.Tag == selfTag })
	}
	if len(hits) == 0 {
		return hits
	}
	if e, ok := s.bundle.Catalog.Entry(hits[0].Tag); ok && slices.Equal(e.Words, tokens) {
		return hits[1:]
	}
	return hits
}
