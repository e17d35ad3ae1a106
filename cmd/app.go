// Package cmd implements the pk CLI to manage a portfolio.
package cmd

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/google/subcommands"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/tamaki-fs/portfolio"
	"github.com/tamaki-fs/portfolio/eodhd"
)

// Commands lists every subcommand in registration order.
var Commands = []subcommands.Command{
	&initCmd{},
	&buyCmd{},
	&sellCmd{},
	&dividendCmd{},
	&depositCmd{},
	&withdrawCmd{},
	&convertCmd{},
	&txCmd{},
	&valueCmd{},
	&performanceCmd{},
}

// As a CLI application the lifecycle is very short lived, so it is ok to use
// global variables.

var portfolioFile = flag.String("portfolio-file", "portfolio.json", "Path to the portfolio definition file")
var ledgerDir = flag.String("ledger-dir", ".ledger", "Path to the ledger directory (one JSONL file per portfolio)")

// Setup loads the .env file when present and configures logging. It must run
// once before any command executes.
func Setup() {
	// absence of a .env file is the normal case
	_ = godotenv.Load()
	level := zerolog.InfoLevel
	if l, err := zerolog.ParseLevel(os.Getenv("PK_LOG")); err == nil && os.Getenv("PK_LOG") != "" {
		level = l
	}
	zerolog.SetGlobalLevel(level)
}

// Logger returns the CLI logger, writing human-readable lines to stderr.
func Logger() zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
}

// LoadPortfolio reads the portfolio definition file.
func LoadPortfolio() (*portfolio.Portfolio, error) {
	content, err := os.ReadFile(*portfolioFile)
	if err != nil {
		return nil, fmt.Errorf("cannot read portfolio file %q (run 'pk init' first): %w", *portfolioFile, err)
	}
	var p portfolio.Portfolio
	if err := json.Unmarshal(content, &p); err != nil {
		return nil, fmt.Errorf("invalid portfolio file %q: %w", *portfolioFile, err)
	}
	return &p, nil
}

// SavePortfolio writes the portfolio definition file.
func SavePortfolio(p *portfolio.Portfolio) error {
	content, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(*portfolioFile, append(content, '\n'), 0o644)
}

// Ledger returns the transaction source over the ledger directory.
func Ledger() *portfolio.FileTrnSource {
	return portfolio.NewFileTrnSource(*ledgerDir)
}

// MarketData returns the remote price and FX source.
func MarketData() (*eodhd.Client, error) {
	return eodhd.NewClientFromEnv(Logger())
}

// printMarkdown renders markdown to the terminal, falling back to the raw
// text when the renderer cannot run.
func printMarkdown(md string) {
	out, err := glamour.Render(md, "auto")
	if err != nil {
		fmt.Print(md)
		return
	}
	fmt.Print(out)
}
