// Package scrape collects book records from listing sites.
package scrape

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"trueneutral/internal/dataset"
)

// Scraper walks a list's pages, then fetches every linked book page in parallel.
type Scraper struct {
	source  Source
	fetcher *Fetcher
	workers int
	logger  zerolog.Logger
}

func NewScraper(source Source, fetcher *Fetcher, workers int, logger zerolog.Logger) *Scraper {
	if workers <= 0 {
		workers = DefaultWorkers()
	}
	return &Scraper{source: source, fetcher: fetcher, workers: workers, logger: logger}
}

// Run scrapes pages first..last of list and returns one record per book link, in link order.
func (s *Scraper) Run(ctx context.Context, list string, first, last int) ([]dataset.RawRecord, error) {
	links, err := s.Links(ctx, list, first, last)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("source", s.source.Name()).Str("list", list).Int("links", len(links)).Msg("collected book links")
	return s.Books(ctx, links)
}

// Links fetches list pages sequentially. Pages that fail are logged and skipped.
func (s *Scraper) Links(ctx context.Context, list string, first, last int) ([]string, error) {
	if first < 1 || last < first {
		return nil, fmt.Errorf("invalid page range %d-%d", first, last)
	}
	var links []string
	for page := first; page <= last; page++ {
		pageURL := s.source.ListURL(list, page)
		body, err := s.fetcher.Fetch(ctx, pageURL)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.logger.Warn().Err(err).Str("url", pageURL).Msg("list page skipped")
			continue
		}
		found, err := s.source.ParseList(body)
		if err != nil {
			s.logger.Warn().Err(err).Str("url", pageURL).Msg("list page unparsable")
			continue
		}
		links = append(links, found...)
	}
	return links, nil
}

// Books fetches and parses every link. A book that cannot be fetched or parsed yields
// a record carrying only its URL, so output lines stay aligned with links; the dataset
// loader drops such records when asked to skip incomplete ones.
func (s *Scraper) Books(ctx context.Context, links []string) ([]dataset.RawRecord, error) {
	return Map(ctx, s.workers, links, func(ctx context.Context, link string) (dataset.RawRecord, error) {
		body, err := s.fetcher.Fetch(ctx, link)
		if err != nil {
			if ctx.Err() != nil {
				return dataset.RawRecord{}, ctx.Err()
			}
			s.logger.Warn().Err(err).Str("url", link).Msg("book page skipped")
			return dataset.RawRecord{URL: link}, nil
		}
		rec, err := s.source.ParseBook(link, body)
		if err != nil {
			s.logger.Warn().Err(err).Str("url", link).Msg("book page unparsable")
			return dataset.RawRecord{URL: link}, nil
		}
		return rec, nil
	})
}

// ParsePageRange parses "N" or "N-M" into a 1-based inclusive range.
func ParsePageRange(s string) (first, last int, err error) {
	lo, hi, found := strings.Cut(strings.TrimSpace(s), "-")
	if first, err = strconv.Atoi(strings.TrimSpace(lo)); err != nil {
		return 0, 0, fmt.Errorf("invalid page range %q", s)
	}
	last = first
	if found {
		if last, err = strconv.Atoi(strings.TrimSpace(hi)); err != nil {
			return 0, 0, fmt.Errorf("invalid page range %q", s)
		}
	}
	if first < 1 || last < first {
		return 0, 0, fmt.Errorf("invalid page range %q", s)
	}
	return first, last, nil
}
