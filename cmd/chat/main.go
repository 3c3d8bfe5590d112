// Command chat is an interactive terminal client for the assistant. It
// keeps the conversation log in memory for the session and prints chart
// side effects as text tables.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dvloznov/finance-assistant/internal/config"
	"github.com/dvloznov/finance-assistant/internal/delegate"
	"github.com/dvloznov/finance-assistant/internal/domain"
	"github.com/dvloznov/finance-assistant/internal/extract"
	"github.com/dvloznov/finance-assistant/internal/logger"
	"github.com/dvloznov/finance-assistant/internal/orchestrator"
	"github.com/dvloznov/finance-assistant/internal/search"
	"github.com/dvloznov/finance-assistant/internal/store"
	bqstore "github.com/dvloznov/finance-assistant/internal/store/bigquery"
	"github.com/dvloznov/finance-assistant/internal/store/memory"
	"github.com/dvloznov/finance-assistant/internal/tools"
)

func main() {
	var (
		user   = flag.String("user", "local", "User ID to converse as")
		period = flag.String("period", time.Now().Format("2006-01"), "Context period (YYYY-MM)")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		l := logger.New()
		l.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log := logger.NewWithLevel(cfg.LogLevel)

	ctx := context.Background()

	var recordStore store.Store
	if cfg.ProjectID != "" {
		bq, err := bqstore.New(ctx, cfg.ProjectID, cfg.DatasetID)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create BigQuery store")
		}
		recordStore = bq
	} else {
		recordStore = memory.New()
	}
	defer recordStore.Close()

	engine := extract.NewEngine()
	ai, err := delegate.New(ctx, delegate.DefaultConfig(), engine, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create delegate client")
	}

	searcher := search.New(ai, recordStore, log)
	registry := tools.New(recordStore, searcher, ai, log)
	orch := orchestrator.New(ai, registry, log)

	fmt.Printf("Finance assistant. Currency %s, period %s. Type 'quit' to exit.\n\n", cfg.DefaultCurrency, *period)

	var history []domain.ConversationTurn
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		message := strings.TrimSpace(scanner.Text())
		if message == "" {
			continue
		}
		if message == "quit" || message == "exit" {
			break
		}

		turnCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
		result, err := orch.Converse(turnCtx, *user, cfg.DefaultCurrency, message, history, *period)
		cancel()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			// Keep whatever turns completed so the session can continue.
			history = result.History
			continue
		}
		history = result.History

		fmt.Printf("\n%s\n\n", result.Text)
		for _, chart := range result.Charts {
			printChart(chart)
		}
	}
}

func printChart(chart domain.ChartPayload) {
	fmt.Printf("[%s chart] %s (%s)\n", chart.Type, chart.Title, chart.Currency)
	for _, point := range chart.Data {
		fmt.Printf("  %-24s %10.2f\n", point.Label, point.Value)
	}
	fmt.Println()
}
