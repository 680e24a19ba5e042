package classify

import (
	"context"
	"strings"

	"github.com/ballistic-intel/signalpipe/internal/cache"
	"github.com/ballistic-intel/signalpipe/internal/model"
	"github.com/ballistic-intel/signalpipe/internal/runctx"
)

const (
	relevanceContextBudget  = 800
	extractionContextBudget = 1200
)

// Oracle is the subset of internal/oracle.Client the classifier needs,
// narrowed to an interface so tests can supply a fake.
type Oracle interface {
	AskJSON(ctx context.Context, prompt string, trusted bool, v any) error
}

// Options configures one classifier tier's behavior.
type Options struct {
	UseLLM          bool
	FallbackEnabled bool
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// RelevanceClassifier implements the P2 relevance tier of C4.
type RelevanceClassifier struct {
	oracle Oracle
	cache  *cache.Cache
	opts   Options
}

// NewRelevanceClassifier builds a RelevanceClassifier.
func NewRelevanceClassifier(oracle Oracle, c *cache.Cache, opts Options) *RelevanceClassifier {
	return &RelevanceClassifier{oracle: oracle, cache: c, opts: opts}
}

type relevanceLLMResponse struct {
	IsRelevant bool     `json:"is_relevant"`
	Score      float64  `json:"score"`
	Category   string   `json:"category"`
	Reasons    []string `json:"reasons"`
}

func relevancePrompt(context string) string {
	return "Classify the following cybersecurity-domain relevance. " +
		"Respond with JSON {is_relevant:bool, score:number, category:string, reasons:array<string>}.\n\n" +
		context
}

// ClassifyPatent runs the two-tier relevance classification for a patent.
func (c *RelevanceClassifier) ClassifyPatent(ctx context.Context, p model.Patent) (model.RelevanceResult, error) {
	text := truncate(strings.ToLower("patent: "+p.Title+" "+p.Abstract), relevanceContextBudget)
	return c.classify(ctx, text, p.PublicationNumber, "patent", func() model.RelevanceResult {
		return relevanceHeuristicPatent(p)
	})
}

// ClassifyArticle runs the two-tier relevance classification for a news
// article.
func (c *RelevanceClassifier) ClassifyArticle(ctx context.Context, a model.Article) (model.RelevanceResult, error) {
	text := truncate(strings.ToLower("news: "+articleAnalysisText(a)), relevanceContextBudget)
	return c.classify(ctx, text, a.ID, "news", func() model.RelevanceResult {
		return relevanceHeuristicArticle(a)
	})
}

func (c *RelevanceClassifier) classify(ctx context.Context, contextStr, itemID, sourceType string, heuristic func() model.RelevanceResult) (model.RelevanceResult, error) {
	fp := model.Fingerprint(contextStr)
	if v, ok := c.cache.Get(fp); ok {
		return v.(model.RelevanceResult), nil
	}

	var result model.RelevanceResult
	if c.opts.UseLLM {
		var resp relevanceLLMResponse
		err := c.oracle.AskJSON(ctx, relevancePrompt(contextStr), true, &resp)
		if err == nil {
			result = model.RelevanceResult{
				ItemID:      itemID,
				SourceType:  sourceType,
				Model:       "gemini-flash",
				IsRelevant:  resp.IsRelevant,
				Score:       model.ClampScore(resp.Score),
				Category:    model.NormalizeCategory(resp.Category),
				Reasons:     resp.Reasons,
				Fingerprint: fp,
			}
			c.cache.Set(fp, result)
			return result, nil
		}
		if !c.opts.FallbackEnabled {
			return model.RelevanceResult{}, &runctx.ClassificationError{ItemID: itemID, Err: err}
		}
	}

	result = heuristic()
	result.Fingerprint = fp
	c.cache.Set(fp, result)
	return result, nil
}

// ExtractionClassifier implements the P3 extraction tier of C4.
type ExtractionClassifier struct {
	oracle Oracle
	cache  *cache.Cache
	opts   Options
}

// NewExtractionClassifier builds an ExtractionClassifier.
func NewExtractionClassifier(oracle Oracle, c *cache.Cache, opts Options) *ExtractionClassifier {
	return &ExtractionClassifier{oracle: oracle, cache: c, opts: opts}
}

type extractionLLMResponse struct {
	CompanyNames []string `json:"company_names"`
	Sector       string   `json:"sector"`
	NoveltyScore float64  `json:"novelty_score"`
	TechKeywords []string `json:"tech_keywords"`
	Rationale    []string `json:"rationale"`
}

func extractionPrompt(context string) string {
	return "Extract structured attributes from the following document. " +
		"Respond with JSON {company_names:array<string>, sector:string, " +
		"novelty_score:number, tech_keywords:array<string>, rationale:array<string>}.\n\n" +
		context
}

// ExtractPatent runs the two-tier extraction classification for a patent.
func (c *ExtractionClassifier) ExtractPatent(ctx context.Context, p model.Patent) (model.ExtractionResult, error) {
	text := truncate(strings.ToLower("patent: "+p.Title+" "+p.Abstract), extractionContextBudget)
	return c.classify(ctx, text, p.PublicationNumber, "patent", func() model.ExtractionResult {
		return extractionHeuristicPatent(p)
	})
}

// ExtractArticle runs the two-tier extraction classification for a news
// article.
func (c *ExtractionClassifier) ExtractArticle(ctx context.Context, a model.Article) (model.ExtractionResult, error) {
	text := truncate(strings.ToLower("news: "+articleAnalysisText(a)), extractionContextBudget)
	return c.classify(ctx, text, a.ID, "news", func() model.ExtractionResult {
		return extractionHeuristicArticle(a)
	})
}

func (c *ExtractionClassifier) classify(ctx context.Context, contextStr, itemID, sourceType string, heuristic func() model.ExtractionResult) (model.ExtractionResult, error) {
	fp := model.Fingerprint(contextStr)
	if v, ok := c.cache.Get(fp); ok {
		return v.(model.ExtractionResult), nil
	}

	var result model.ExtractionResult
	if c.opts.UseLLM {
		var resp extractionLLMResponse
		err := c.oracle.AskJSON(ctx, extractionPrompt(contextStr), true, &resp)
		if err == nil {
			names := resp.CompanyNames
			if len(names) > 5 {
				names = names[:5]
			}
			keywords := dedupeLower(resp.TechKeywords)
			if len(keywords) > 10 {
				keywords = keywords[:10]
			}
			result = model.ExtractionResult{
				ItemID:       itemID,
				SourceType:   sourceType,
				Model:        "gemini-flash",
				CompanyNames: dedupeCaseInsensitive(names),
				Sector:       model.NormalizeCategory(resp.Sector),
				NoveltyScore: model.ClampScore(resp.NoveltyScore),
				TechKeywords: keywords,
				Rationale:    resp.Rationale,
				Fingerprint:  fp,
			}
			c.cache.Set(fp, result)
			return result, nil
		}
		if !c.opts.FallbackEnabled {
			return model.ExtractionResult{}, &runctx.ClassificationError{ItemID: itemID, Err: err}
		}
	}

	result = heuristic()
	result.Fingerprint = fp
	c.cache.Set(fp, result)
	return result, nil
}

func dedupeCaseInsensitive(in []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, s := range in {
		lower := strings.ToLower(s)
		if !seen[lower] {
			seen[lower] = true
			out = append(out, s)
		}
	}
	return out
}

func dedupeLower(in []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, s := range in {
		lower := strings.ToLower(s)
		if !seen[lower] {
			seen[lower] = true
			out = append(out, lower)
		}
	}
	return out
}
