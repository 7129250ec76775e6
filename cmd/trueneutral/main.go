package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"trueneutral/internal/config"
	"trueneutral/internal/logging"
)

const usage = `Usage: trueneutral [-config config.yaml] <command> [flags]

Commands:
  scrape     collect book records from a listing site into a JSON Lines file
  train      train a model bundle from a dataset
  recommend  print books similar to a title or a summary
  serve      run the web form and JSON API
  tui        browse recommendations in the terminal
  mcp        serve the recommend_books tool over MCP stdio
`

var version = "dev"

func main() {
	_ = godotenv.Load()

	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/trueneutral/config.yaml if not provided)")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	out := os.Stderr
	if cfg.Log.Output == "stdout" {
		out = os.Stdout
	}
	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: out})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &app{cfg: cfg, logger: logging.Logger()}
	cmd, args := flag.Arg(0), flag.Args()[1:]
	var run func(context.Context, []string) error
	switch cmd {
	case "scrape":
		run = app.scrape
	case "train":
		run = app.train
	case "recommend":
		run = app.recommend
	case "serve":
		run = app.serve
	case "tui":
		run = app.tui
	case "mcp":
		run = app.mcp
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		flag.Usage()
		os.Exit(2)
	}

	if err := run(ctx, args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		app.logger.Error().Err(err).Str("command", cmd).Msg("command failed")
		stop()
		os.Exit(1)
	}
}
