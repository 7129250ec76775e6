package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"

	"trueneutral/internal/api"
	"trueneutral/internal/bundle"
	"trueneutral/internal/config"
	"trueneutral/internal/dataset"
	"trueneutral/internal/domain"
	"trueneutral/internal/embedding"
	"trueneutral/internal/logging"
	"trueneutral/internal/mcpserver"
	"trueneutral/internal/present"
	"trueneutral/internal/scrape"
	"trueneutral/internal/service"
	"trueneutral/internal/summarizer"
	"trueneutral/internal/tui"
)

type app struct {
	cfg    *config.AppConfig
	logger zerolog.Logger
}

func (a *app) scrape(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("scrape", flag.ContinueOnError)
	source := fs.String("source", a.cfg.Scrape.Source, "listing site: goodreads or risingshadow")
	list := fs.String("list", "", "list name, e.g. 3.Best_Science_Fiction_Fantasy_Books or fantasy")
	pages := fs.String("pages", "1", "page range, N or N-M")
	outPath := fs.String("out", "books.jsonl", "output JSON Lines file")
	workers := fs.Int("workers", a.cfg.Scrape.Workers, "parallel book page fetches (0 = CPUs-1)")
	delay := fs.Duration("delay", a.cfg.Scrape.Delay, "minimum spacing between requests")
	baseURL := fs.String("base-url", a.cfg.Scrape.BaseURL, "override the site root")
	cacheDir := fs.String("cache", a.cfg.Scrape.CacheDir, "page cache directory (empty disables caching)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *list == "" {
		return errors.New("scrape: -list is required")
	}
	first, last, err := scrape.ParsePageRange(*pages)
	if err != nil {
		return err
	}
	src, err := scrape.NewSource(*source, *baseURL)
	if err != nil {
		return err
	}
	if *source == "goodreads" && !flagSet(fs, "delay") && *delay < scrape.GoodreadsDelay {
		*delay = scrape.GoodreadsDelay
	}

	logger := logging.WithComponent("scraper")
	fcfg := scrape.FetcherConfig{
		UserAgent:       a.cfg.Scrape.UserAgent,
		Delay:           *delay,
		Timeout:         a.cfg.Scrape.Timeout,
		BreakerFailures: a.cfg.Scrape.BreakerFailures,
		BreakerCooldown: a.cfg.Scrape.BreakerCooldown,
	}
	if *cacheDir != "" {
		cache, err := scrape.OpenPageCache(*cacheDir, a.cfg.Scrape.CacheTTL)
		if err != nil {
			return err
		}
		defer func() {
			if err := cache.Close(); err != nil {
				logger.Warn().Err(err).Msg("failed to close page cache")
			}
		}()
		fcfg.Cache = cache
	}

	scraper := scrape.NewScraper(src, scrape.NewFetcher(fcfg, logger), *workers, logger)
	records, err := scraper.Run(ctx, *list, first, last)
	if err != nil {
		return err
	}
	if err := dataset.WriteJSONLFile(*outPath, records); err != nil {
		return err
	}
	logger.Info().Str("out", *outPath).Int("records", len(records)).Msg("scrape finished")
	return nil
}

func (a *app) train(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("train", flag.ContinueOnError)
	data := fs.String("data", "", "dataset: .jsonl, .csv, .parquet or .json")
	outPath := fs.String("out", a.cfg.Model.Path, "bundle output path")
	embedderType := fs.String("embedder", a.cfg.Embedder.Type, "embedder: tfidf or word2vec")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *data == "" {
		return errors.New("train: -data is required")
	}

	books, err := dataset.Load(ctx, *data, a.cfg.Dataset.SkipIncomplete, logging.WithComponent("dataset"))
	if err != nil {
		return err
	}
	emb, err := embedding.New(embedding.Config{
		Type:       *embedderType,
		VectorSize: a.cfg.Embedder.VectorSize,
		Window:     a.cfg.Embedder.Window,
		Epochs:     a.cfg.Embedder.Epochs,
		MinCount:   a.cfg.Embedder.MinCount,
		Workers:    a.cfg.Embedder.Workers,
	})
	if err != nil {
		return err
	}
	b, err := bundle.NewTrainer(logging.WithComponent("trainer")).Train(ctx, emb, books)
	if err != nil {
		return err
	}
	if err := bundle.Save(b, *outPath); err != nil {
		return err
	}
	a.logger.Info().Str("out", *outPath).Str("model_id", b.Metadata.ID.String()).Msg("model saved")
	return nil
}

func (a *app) recommend(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("recommend", flag.ContinueOnError)
	model := fs.String("model", a.cfg.Model.Path, "trained bundle")
	title := fs.String("title", "", "title of a book in the catalog")
	summary := fs.String("summary", "", "plot summary, used when the title is unknown")
	n := fs.Int("n", 0, "number of similar books (0 = configured default)")
	showSummary := fs.Bool("show-summary", false, "print a short summary of each book")
	color := fs.Bool("color", false, "colorize output")
	if err := fs.Parse(args); err != nil {
		return err
	}
	svc, err := a.openService(*model)
	if err != nil {
		return err
	}
	recs, err := svc.Recommend(service.WithSource(ctx, "cli"), domain.Query{
		Title:       *title,
		Summary:     *summary,
		NSim:        *n,
		WithSummary: *showSummary,
	})
	if err != nil {
		return err
	}
	return present.NewPrinter(os.Stdout, *color).Print(recs)
}

func (a *app) serve(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	model := fs.String("model", a.cfg.Model.Path, "trained bundle")
	addr := fs.String("addr", a.cfg.Server.Addr, "listen address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	svc, err := a.openService(*model)
	if err != nil {
		return err
	}

	sc := a.cfg.Server
	handler := api.NewHandler(svc, api.Config{
		RateLimitRequests: sc.RateLimitRequests,
		RateLimitWindow:   sc.RateLimitWindow,
		MaxNSim:           a.cfg.Query.MaxNSim,
	}, logging.WithComponent("api"))
	srv := api.NewServer(*addr, handler.Router(), sc.ReadTimeout, sc.WriteTimeout)

	supLogger := logging.WithComponent("supervisor")
	sup := suture.New("trueneutral", suture.Spec{
		EventHook: func(e suture.Event) {
			supLogger.Warn().Fields(e.Map()).Msg(e.String())
		},
		Timeout: sc.ShutdownTimeout,
	})
	sup.Add(api.NewHTTPServerService(srv, sc.ShutdownTimeout))

	a.logger.Info().Str("addr", *addr).Str("model", *model).Msg("serving")
	if err := sup.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	a.logger.Info().Msg("server stopped")
	return nil
}

func (a *app) tui(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("tui", flag.ContinueOnError)
	model := fs.String("model", a.cfg.Model.Path, "trained bundle")
	if err := fs.Parse(args); err != nil {
		return err
	}
	svc, err := a.openService(*model)
	if err != nil {
		return err
	}
	md := svc.Metadata()
	info := fmt.Sprintf("%d books, %s embedder (%d dims), trained %s",
		md.DocumentCount, md.Embedder, md.Dimension, md.TrainedAt.Format("2006-01-02 15:04"))
	_, err = tea.NewProgram(tui.New(svc, info, a.cfg.Query.DefaultNSim), tea.WithAltScreen()).Run()
	return err
}

func (a *app) mcp(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("mcp", flag.ContinueOnError)
	model := fs.String("model", a.cfg.Model.Path, "trained bundle")
	if err := fs.Parse(args); err != nil {
		return err
	}
	svc, err := a.openService(*model)
	if err != nil {
		return err
	}
	return mcpserver.New("trueneutral", version, svc, logging.WithComponent("mcp")).Run(ctx, &mcp.StdioTransport{})
}

func (a *app) openService(path string) (*service.RecommendService, error) {
	b, err := bundle.Load(path)
	if err != nil {
		return nil, err
	}
	sum, err := summarizer.New(a.cfg.Summarizer.Type)
	if err != nil {
		return nil, err
	}
	return service.NewRecommendService(b, sum, service.Options{
		DefaultNSim:         a.cfg.Query.DefaultNSim,
		MaxNSim:             a.cfg.Query.MaxNSim,
		SummaryMaxSentences: a.cfg.Summarizer.MaxSentences,
	}, logging.WithComponent("service"))
}

func flagSet(fs *flag.FlagSet, name string) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}
