// signalpipe runs the cybersecurity-intelligence ingestion pipeline as a
// single batch job: fetch patents and news, classify each for domain
// relevance and structured attributes, resolve extracted company names
// into a canonical entity graph, and persist every stage's output.
//
// Grounded on the teacher's cmd/tarsy/main.go for its flag-parsing,
// .env-loading, and startup-logging sequence, re-targeted at building
// and executing a DAG instead of starting an HTTP router.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/ballistic-intel/signalpipe/internal/cache"
	"github.com/ballistic-intel/signalpipe/internal/classify"
	"github.com/ballistic-intel/signalpipe/internal/config"
	"github.com/ballistic-intel/signalpipe/internal/dag"
	"github.com/ballistic-intel/signalpipe/internal/dlq"
	"github.com/ballistic-intel/signalpipe/internal/fanout"
	"github.com/ballistic-intel/signalpipe/internal/model"
	"github.com/ballistic-intel/signalpipe/internal/oracle"
	"github.com/ballistic-intel/signalpipe/internal/resolve"
	"github.com/ballistic-intel/signalpipe/internal/runctx"
	"github.com/ballistic-intel/signalpipe/internal/sources/news"
	"github.com/ballistic-intel/signalpipe/internal/sources/patent"
	"github.com/ballistic-intel/signalpipe/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "no .env file loaded: %v\n", err)
	}

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	os.Exit(run(cfg, logger))
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

func run(cfg config.Config, logger *slog.Logger) int {
	ctx := context.Background()
	budget := time.Duration(cfg.TimeBudgetMinutes) * time.Minute
	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	rc := runctx.New(cfg.Mode, cfg.StartDate, cfg.EndDate, cfg.Mode == runctx.ModeDryRun)
	logger.Info("starting run", "correlation_id", rc.CorrelationID, "mode", rc.Mode)

	dbCfg := store.Config{
		Host: cfg.DBHost, Port: cfg.DBPort, User: cfg.DBUser, Password: cfg.DBPassword,
		Database: cfg.DBName, SSLMode: cfg.DBSSLMode,
		MaxOpenConns: 25, MaxIdleConns: 10, BatchSize: 500, MaxRetries: 3,
	}
	dbClient, err := store.NewClient(ctx, dbCfg, logger)
	if err != nil {
		logger.Error("preflight: database connection failed", "error", err)
		return 1
	}
	defer dbClient.Close()

	if err := dbClient.Ping(ctx); err != nil {
		logger.Error("preflight: database health check failed", "error", err)
		return 1
	}
	logger.Info("preflight: database healthy")

	var dlqSink fanout.FailureSink
	if cfg.DLQEnabled {
		dlqSink = dlq.New(cfg.DLQDir)
	}

	oracleClient, err := oracle.New(oracle.Config{
		BaseURL: cfg.OracleBaseURL, APIKey: cfg.OracleAPIKey, Model: cfg.OracleModel,
		MaxRPM: cfg.OracleMaxRPM,
	}, logger)
	useLLM := err == nil && cfg.LiveIntegration
	if err != nil {
		logger.Warn("oracle client unavailable, running heuristic-only", "error", err)
	}

	relevanceCache := cache.New(1 * time.Hour)
	extractionCache := cache.New(1 * time.Hour)
	classifyOpts := classify.Options{UseLLM: useLLM, FallbackEnabled: true}
	relevanceClassifier := classify.NewRelevanceClassifier(oracleClient, relevanceCache, classifyOpts)
	extractionClassifier := classify.NewExtractionClassifier(oracleClient, extractionCache, classifyOpts)

	g := dag.New(logger)
	window := lookbackWindow(cfg)

	mustAdd(g, "ingest_patents", nil, func(ctx context.Context, _ *dag.Graph) (any, error) {
		pc := patent.New(patent.Config{BaseURL: os.Getenv("PATENT_WAREHOUSE_URL")}, logger)
		start, end := window.patentRange()
		patents, stats, err := pc.Fetch(ctx, start, end)
		if err != nil {
			rc.AddError("ingest_patents", err.Error(), "")
			return nil, err
		}
		logger.Info("fetched patents", "count", len(patents), "widened", stats.Widened)
		return patents, nil
	})

	mustAdd(g, "ingest_news", nil, func(ctx context.Context, _ *dag.Graph) (any, error) {
		nc := news.New(news.Config{Feeds: feedsFromEnv()}, logger)
		articles, err := nc.Fetch(ctx, window.lookback)
		if err != nil {
			rc.AddError("ingest_news", err.Error(), "")
			return nil, err
		}
		logger.Info("fetched articles", "count", len(articles))
		return articles, nil
	})

	mustAdd(g, "relevance_patents", []string{"ingest_patents"}, func(ctx context.Context, graph *dag.Graph) (any, error) {
		patents, _ := graph.Node("ingest_patents").Result().([]model.Patent)
		results := fanout.Run(ctx, patents, func(ctx context.Context, p model.Patent) (any, error) {
			return relevanceClassifier.ClassifyPatent(ctx, p)
		}, fanout.Options{Concurrency: cfg.P2Concurrency, Node: "relevance_patents", Sink: dlqSink, Logger: logger})
		return results, nil
	})

	mustAdd(g, "relevance_news", []string{"ingest_news"}, func(ctx context.Context, graph *dag.Graph) (any, error) {
		articles, _ := graph.Node("ingest_news").Result().([]model.Article)
		results := fanout.Run(ctx, articles, func(ctx context.Context, a model.Article) (any, error) {
			return relevanceClassifier.ClassifyArticle(ctx, a)
		}, fanout.Options{Concurrency: cfg.P2Concurrency, Node: "relevance_news", Sink: dlqSink, Logger: logger})
		return results, nil
	})

	mustAdd(g, "extraction_patents", []string{"relevance_patents", "ingest_patents"}, func(ctx context.Context, graph *dag.Graph) (any, error) {
		patents, _ := graph.Node("ingest_patents").Result().([]model.Patent)
		relevance, _ := graph.Node("relevance_patents").Result().([]fanout.Result[model.Patent])
		relevant := relevantPatents(patents, relevance)
		results := fanout.Run(ctx, relevant, func(ctx context.Context, p model.Patent) (any, error) {
			return extractionClassifier.ExtractPatent(ctx, p)
		}, fanout.Options{Concurrency: cfg.P3Concurrency, Node: "extraction_patents", Sink: dlqSink, Logger: logger})
		return results, nil
	})

	mustAdd(g, "extraction_news", []string{"relevance_news", "ingest_news"}, func(ctx context.Context, graph *dag.Graph) (any, error) {
		articles, _ := graph.Node("ingest_news").Result().([]model.Article)
		relevance, _ := graph.Node("relevance_news").Result().([]fanout.Result[model.Article])
		relevant := relevantArticles(articles, relevance)
		results := fanout.Run(ctx, relevant, func(ctx context.Context, a model.Article) (any, error) {
			return extractionClassifier.ExtractArticle(ctx, a)
		}, fanout.Options{Concurrency: cfg.P3Concurrency, Node: "extraction_news", Sink: dlqSink, Logger: logger})
		return results, nil
	})

	mustAdd(g, "resolve_entities", []string{"extraction_patents", "extraction_news"}, func(ctx context.Context, graph *dag.Graph) (any, error) {
		pResults, _ := graph.Node("extraction_patents").Result().([]fanout.Result[model.Patent])
		nResults, _ := graph.Node("extraction_news").Result().([]fanout.Result[model.Article])

		var inputs []resolve.Input
		for _, r := range fanout.Succeeded(pResults) {
			ext, _ := r.Output.(model.ExtractionResult)
			for _, name := range ext.CompanyNames {
				inputs = append(inputs, resolve.Input{RawName: name, Source: "patent:" + r.Item.PublicationNumber})
			}
		}
		for _, r := range fanout.Succeeded(nResults) {
			ext, _ := r.Output.(model.ExtractionResult)
			for _, name := range ext.CompanyNames {
				inputs = append(inputs, resolve.Input{RawName: name, Source: "news:" + r.Item.ID})
			}
		}

		out := resolve.Resolve(inputs, resolve.DefaultConfig(), time.Now().UTC())
		logger.Info("resolved entities", "entities", len(out.Entities), "aliases", len(out.Aliases))
		return out, nil
	})

	mustAdd(g, "persist", []string{"ingest_patents", "ingest_news", "relevance_patents", "relevance_news",
		"extraction_patents", "extraction_news", "resolve_entities"}, func(ctx context.Context, graph *dag.Graph) (any, error) {
		if rc.DryRun {
			logger.Info("dry-run mode: skipping persistence")
			return nil, nil
		}

		patents, _ := graph.Node("ingest_patents").Result().([]model.Patent)
		articles, _ := graph.Node("ingest_news").Result().([]model.Article)
		pRelevance := resultValues[model.Patent, model.RelevanceResult](graph.Node("relevance_patents").Result())
		nRelevance := resultValues[model.Article, model.RelevanceResult](graph.Node("relevance_news").Result())
		pExtraction := resultValues[model.Patent, model.ExtractionResult](graph.Node("extraction_patents").Result())
		nExtraction := resultValues[model.Article, model.ExtractionResult](graph.Node("extraction_news").Result())
		resolved, _ := graph.Node("resolve_entities").Result().(resolve.Output)

		if r := dbClient.UpsertPatents(ctx, patents); !r.Success {
			rc.AddError("persist", fmt.Sprintf("patents: %v", r.Err), "")
		}
		if r := dbClient.UpsertArticles(ctx, articles); !r.Success {
			rc.AddError("persist", fmt.Sprintf("articles: %v", r.Err), "")
		}
		if r := dbClient.UpsertRelevanceResults(ctx, append(pRelevance, nRelevance...)); !r.Success {
			rc.AddError("persist", fmt.Sprintf("relevance: %v", r.Err), "")
		}
		if r := dbClient.UpsertExtractionResults(ctx, append(pExtraction, nExtraction...)); !r.Success {
			rc.AddError("persist", fmt.Sprintf("extraction: %v", r.Err), "")
		}
		if r := dbClient.UpsertEntities(ctx, resolved.Entities); !r.Success {
			rc.AddError("persist", fmt.Sprintf("entities: %v", r.Err), "")
		}
		if r := dbClient.UpsertAliasLinks(ctx, resolved.Aliases); !r.Success {
			rc.AddError("persist", fmt.Sprintf("aliases: %v", r.Err), "")
		}
		return nil, nil
	})

	summary, err := g.Execute(ctx, false)
	if err != nil {
		logger.Error("dag execution failed", "error", err)
		return 1
	}
	logger.Info("run summary", "completed", summary.Completed, "failed", summary.Failed,
		"skipped", summary.Skipped, "elapsed", rc.Elapsed())

	if rc.HasErrors() {
		for _, e := range rc.Errors() {
			logger.Error("run error", "node", e.Node, "item", e.ItemID, "message", e.Message)
		}
		return 1
	}
	return 0
}

func mustAdd(g *dag.Graph, name string, deps []string, work dag.WorkFunc) {
	if err := g.AddNode(name, deps, work); err != nil {
		panic(err)
	}
}

type lookback struct {
	mode      runctx.Mode
	lookback  time.Duration
	startDate string
	endDate   string
}

func lookbackWindow(cfg config.Config) lookback {
	return lookback{
		mode:      cfg.Mode,
		lookback:  time.Duration(cfg.LookbackDays) * 24 * time.Hour,
		startDate: cfg.StartDate,
		endDate:   cfg.EndDate,
	}
}

func (l lookback) patentRange() (time.Time, time.Time) {
	if l.mode == runctx.ModeBackfill {
		start, _ := time.Parse("2006-01-02", l.startDate)
		end, _ := time.Parse("2006-01-02", l.endDate)
		return start, end
	}
	end := time.Now().UTC()
	return end.Add(-l.lookback), end
}

func feedsFromEnv() []news.Feed {
	urls := os.Getenv("NEWS_FEED_URLS")
	if urls == "" {
		return nil
	}
	var feeds []news.Feed
	for i, u := range strings.Split(urls, ",") {
		if trimmed := strings.TrimSpace(u); trimmed != "" {
			feeds = append(feeds, news.Feed{Name: fmt.Sprintf("feed-%d", i), URL: trimmed})
		}
	}
	return feeds
}

func relevantPatents(patents []model.Patent, results []fanout.Result[model.Patent]) []model.Patent {
	byID := make(map[string]bool)
	for _, r := range fanout.Succeeded(results) {
		if rel, ok := r.Output.(model.RelevanceResult); ok && rel.IsRelevant {
			byID[r.Item.PublicationNumber] = true
		}
	}
	var out []model.Patent
	for _, p := range patents {
		if byID[p.PublicationNumber] {
			out = append(out, p)
		}
	}
	return out
}

func relevantArticles(articles []model.Article, results []fanout.Result[model.Article]) []model.Article {
	byID := make(map[string]bool)
	for _, r := range fanout.Succeeded(results) {
		if rel, ok := r.Output.(model.RelevanceResult); ok && rel.IsRelevant {
			byID[r.Item.ID] = true
		}
	}
	var out []model.Article
	for _, a := range articles {
		if byID[a.ID] {
			out = append(out, a)
		}
	}
	return out
}

// resultValues extracts the typed Output values from a node's raw
// []fanout.Result[I] result, skipping failures.
func resultValues[I any, O any](raw any) []O {
	results, ok := raw.([]fanout.Result[I])
	if !ok {
		return nil
	}
	var out []O
	for _, r := range fanout.Succeeded(results) {
		if v, ok := r.Output.(O); ok {
			out = append(out, v)
		}
	}
	return out
}
