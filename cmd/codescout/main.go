package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/samueljklee/codescout/internal/engine"
	"github.com/samueljklee/codescout/internal/factory"
	"github.com/samueljklee/codescout/internal/index"
	"github.com/samueljklee/codescout/internal/indexer"
)

const usage = `codescout — multi-index codebase search

Usage:
  codescout index  [-repo DIR] [-config FILE]            build or refresh the index
  codescout watch  [-repo DIR] [-config FILE] [-metrics ADDR]
                                                          index and follow file changes
  codescout search [-repo DIR] [-config FILE] [-intent I] [-type T] [-scope GLOB] [-channels LIST] [-limit N] QUERY...
  codescout deps   [-repo DIR] [-config FILE] [-reverse] [-depth N] SYMBOL
  codescout cycles [-repo DIR] [-config FILE]             report dependency cycles
  codescout status [-repo DIR] [-config FILE]             show index coverage
`

func main() {
	// Load .env if present; tokens and API keys live there, not in config.
	_ = godotenv.Load()

	ctx := context.Background()

	args := os.Args[1:]
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch args[0] {
	case "index":
		err = runIndex(ctx, args[1:], false)
	case "watch":
		err = runIndex(ctx, args[1:], true)
	case "search":
		err = runSearch(ctx, args[1:])
	case "deps":
		err = runDeps(ctx, args[1:])
	case "cycles":
		err = runCycles(ctx, args[1:])
	case "status":
		err = runStatus(ctx, args[1:])
	case "-h", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", args[0], usage)
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("command failed: %v", err)
	}
}

func runIndex(ctx context.Context, args []string, watch bool) error {
	name := "index"
	if watch {
		name = "watch"
	}
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	repoFlag := fs.String("repo", "", "Path to repository root (default: current directory)")
	configFlag := fs.String("config", "", "Path to config file (default: <repo>/.codescout/config.yaml)")
	metricsFlag := fs.String("metrics", "", "Serve Prometheus metrics on this address (watch only)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	app, err := buildApp(ctx, *repoFlag, *configFlag)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.Manager.Start(ctx, watch); err != nil {
		return err
	}
	if err := app.Manager.WaitForIndexing(ctx); err != nil {
		return err
	}
	if err := printStats(ctx, app); err != nil {
		return err
	}

	if !watch {
		return nil
	}

	if *metricsFlag != "" {
		go serveMetrics(*metricsFlag)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	log.Printf("👀 Press Ctrl-C to stop")
	<-sigCh
	return nil
}

func runSearch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	repoFlag := fs.String("repo", "", "Path to repository root (default: current directory)")
	configFlag := fs.String("config", "", "Path to config file (default: <repo>/.codescout/config.yaml)")
	intentFlag := fs.String("intent", "", "Force an intent instead of classifying the query")
	typeFlag := fs.String("type", "", "Restrict index families: semantic, structural, literal, or hybrid")
	scopeFlag := fs.String("scope", "", "Restrict results to paths matching this glob")
	channelsFlag := fs.String("channels", "", "Comma-separated chat channels or tracker projects to search")
	limitFlag := fs.Int("limit", 0, "Maximum ranked results")
	jsonFlag := fs.Bool("json", false, "Emit the full response as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("search needs a query")
	}
	query := joinArgs(fs.Args())

	app, err := buildApp(ctx, *repoFlag, *configFlag)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.Manager.Start(ctx, false); err != nil {
		return err
	}
	if err := app.Manager.WaitForIndexing(ctx); err != nil {
		return err
	}

	resp, err := app.Engine.Search(ctx, engine.Request{
		Query:      query,
		Intent:     engine.Intent(*intentFlag),
		SearchType: engine.SearchType(*typeFlag),
		Scope:      *scopeFlag,
		Channels:   splitList(*channelsFlag),
		Limit:      *limitFlag,
	})
	if err != nil {
		return err
	}

	if *jsonFlag {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	printResponse(resp)
	return nil
}

func runDeps(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("deps", flag.ExitOnError)
	repoFlag := fs.String("repo", "", "Path to repository root (default: current directory)")
	configFlag := fs.String("config", "", "Path to config file (default: <repo>/.codescout/config.yaml)")
	reverseFlag := fs.Bool("reverse", false, "Walk toward dependents instead of dependencies")
	depthFlag := fs.Int("depth", 0, "Traversal depth (default: configured max)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("deps needs exactly one symbol name")
	}
	symbol := fs.Arg(0)

	app, err := buildApp(ctx, *repoFlag, *configFlag)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.Manager.Start(ctx, false); err != nil {
		return err
	}
	if err := app.Manager.WaitForIndexing(ctx); err != nil {
		return err
	}

	var traversal index.Traversal
	if *reverseFlag {
		traversal, err = app.Engine.Dependents(symbol, *depthFlag)
	} else {
		traversal, err = app.Engine.Dependencies(symbol, *depthFlag)
	}
	if err != nil {
		return err
	}

	direction := "dependencies"
	if *reverseFlag {
		direction = "dependents"
	}
	fmt.Printf("%s of %s:\n", direction, symbol)
	for _, n := range traversal.Neighbors {
		fmt.Printf("  %*s%s %s (%s:%d, via %s)\n",
			(n.Depth-1)*2, "", n.Symbol.Kind, n.Symbol.Name, n.Symbol.FilePath, n.Symbol.StartLine, n.Via)
	}
	if traversal.Truncated {
		fmt.Println("  … truncated at depth limit")
	}
	return nil
}

func runCycles(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("cycles", flag.ExitOnError)
	repoFlag := fs.String("repo", "", "Path to repository root (default: current directory)")
	configFlag := fs.String("config", "", "Path to config file (default: <repo>/.codescout/config.yaml)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	app, err := buildApp(ctx, *repoFlag, *configFlag)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.Manager.Start(ctx, false); err != nil {
		return err
	}
	if err := app.Manager.WaitForIndexing(ctx); err != nil {
		return err
	}

	cycles := app.Engine.Cycles()
	if len(cycles) == 0 {
		fmt.Println("no dependency cycles")
		return nil
	}
	for _, c := range cycles {
		fmt.Printf("[%s] cycle of %d symbols:\n", c.Severity, len(c.Members))
		for _, m := range c.Members {
			fmt.Printf("  %s %s (%s:%d)\n", m.Kind, m.Name, m.FilePath, m.StartLine)
		}
	}
	return nil
}

func runStatus(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	repoFlag := fs.String("repo", "", "Path to repository root (default: current directory)")
	configFlag := fs.String("config", "", "Path to config file (default: <repo>/.codescout/config.yaml)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	app, err := buildApp(ctx, *repoFlag, *configFlag)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.Manager.Hydrate(ctx); err != nil {
		return err
	}
	if err := printStats(ctx, app); err != nil {
		return err
	}

	// In a git repo, surface uncommitted changes the next index run will
	// pick up.
	if gitInfo := indexer.DetectGit(ctx, app.Config.Root); gitInfo.IsGit {
		changes, err := indexer.GitChanges(ctx, gitInfo.GitRoot)
		if err != nil {
			log.Printf("⚠️ git status: %v", err)
			return nil
		}
		if len(changes) > 0 {
			fmt.Printf("uncommitted changes (%d):\n", len(changes))
			for _, ch := range changes {
				fmt.Printf("  %-2s %s\n", ch.Status, ch.Path)
			}
		}
	}
	return nil
}

func printStats(ctx context.Context, app *factory.App) error {
	stats, err := app.Manager.Stats(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("files: %d (indexed %d, pending %d, failed %d)\n",
		stats.Files, stats.Indexed, stats.Pending, stats.Failed)
	fmt.Printf("symbols: %d  edges: %d  vectors: %d\n", stats.Symbols, stats.Edges, stats.Vectors)
	return nil
}

func printResponse(resp *engine.Response) {
	d := resp.Diagnostics
	fmt.Printf("%s  (%v)\n", resp.QueryInterpretation, d.Duration.Round(time.Millisecond))
	if d.Partial {
		fmt.Printf("partial: failed=%v timed_out=%v\n", d.Failed, d.TimedOut)
	}
	for i, res := range resp.Results {
		switch res.Source {
		case engine.SourceExternal:
			fmt.Printf("%2d. [%s] %s\n    %s\n", i+1, res.Connector, res.Symbol, res.URL)
		default:
			loc := fmt.Sprintf("%s:%d", res.Path, res.Line)
			if res.Symbol != "" {
				fmt.Printf("%2d. [%s] %s %s  %s\n", i+1, res.Source, res.Kind, res.Symbol, loc)
			} else {
				fmt.Printf("%2d. [%s] %s\n", i+1, res.Source, loc)
			}
		}
		if res.Snippet != "" {
			fmt.Printf("    %s\n", firstLine(res.Snippet))
		}
	}
	if len(resp.Results) == 0 {
		fmt.Println("no results")
	}
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	log.Printf("📈 Metrics on http://%s/metrics", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Printf("⚠️ Metrics server: %v", err)
	}
}
