// Package news implements the ArticleSource document adapter (C1): feed
// polling across a configured list of RSS/Atom/JSON feeds, transport
// retry, cross-feed deduplication, per-feed caps, optional full-content
// extraction, and a funding-hint detector.
//
// Feed parsing is grounded on github.com/mmcdole/gofeed (pulled into the
// dependency pack by lueurxax-TelegramDigestBot's go.mod). Full-content
// extraction is grounded on original_source/pipeline/clients/article_fetcher.py
// (its User-Agent string, 500KB content cap, and content-selector
// priority list), reimplemented with goquery instead of BeautifulSoup.
// The dedup-by-link and per-feed cap control flow is ported from
// original_source/pipeline/parsers/feed_parser.py.
package news

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/cenkalti/backoff/v4"
	"github.com/mmcdole/gofeed"

	"github.com/ballistic-intel/signalpipe/internal/model"
	"github.com/ballistic-intel/signalpipe/internal/runctx"
)

const (
	userAgent         = "SignalPipeBot/0.1 (+cybersecurity intelligence pipeline)"
	maxContentBytes   = 500 * 1024
	defaultMaxPerFeed = 200
	defaultTimeout    = 10 * time.Second
	defaultMaxRetries = 3
)

// Feed names one RSS/Atom/JSON source to poll.
type Feed struct {
	Name string
	URL  string
}

// Config configures a Client.
type Config struct {
	Feeds         []Feed
	MaxPerFeed    int
	Timeout       time.Duration
	MaxRetries    int
	FetchFullText bool
}

// Client is the news feed adapter.
type Client struct {
	cfg    Config
	http   *http.Client
	parser *gofeed.Parser
	logger *slog.Logger
}

// New constructs a Client, applying spec defaults for unset fields.
func New(cfg Config, logger *slog.Logger) *Client {
	if cfg.MaxPerFeed <= 0 {
		cfg.MaxPerFeed = defaultMaxPerFeed
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if logger == nil {
		logger = slog.Default()
	}
	httpClient := &http.Client{Timeout: cfg.Timeout}
	return &Client{
		cfg:    cfg,
		http:   httpClient,
		parser: gofeed.NewParser(),
		logger: logger,
	}
}

// Fetch polls every configured feed, retrying transport failures up to
// cfg.MaxRetries times with exponential backoff, deduplicates by article
// id across feeds, filters to the lookback window, and tolerates
// individual feed failures without aborting the others.
func (c *Client) Fetch(ctx context.Context, lookback time.Duration) ([]model.Article, error) {
	cutoff := time.Now().UTC().Add(-lookback)
	seen := make(map[string]bool)
	var articles []model.Article
	var feedErrors []string

	for _, feed := range c.cfg.Feeds {
		parsed, err := c.fetchFeedWithRetry(ctx, feed)
		if err != nil {
			c.logger.Warn("feed fetch failed", "feed", feed.Name, "error", err)
			feedErrors = append(feedErrors, fmt.Sprintf("%s: %v", feed.Name, err))
			continue
		}

		entries := parsed.Items
		if len(entries) > c.cfg.MaxPerFeed {
			entries = entries[:c.cfg.MaxPerFeed]
		}

		for _, item := range entries {
			article := c.toArticle(item, feed.Name)
			if article.Title == "" || article.Link == "" {
				continue
			}
			if article.PublishedAt.Before(cutoff) {
				continue
			}
			if seen[article.ID] {
				continue
			}
			seen[article.ID] = true

			if c.cfg.FetchFullText {
				if text, err := c.fetchFullText(ctx, article.Link); err == nil {
					article.FullContent = text
				}
			}
			article.FundingHint, article.FundingReason = detectFundingHint(article.Title, article.Summary)

			articles = append(articles, article)
		}
	}

	if len(articles) == 0 && len(feedErrors) == len(c.cfg.Feeds) && len(c.cfg.Feeds) > 0 {
		return nil, &runctx.SourceError{Source: "news-feeds", Err: fmt.Errorf("all feeds failed: %s", strings.Join(feedErrors, "; "))}
	}

	return articles, nil
}

func (c *Client) fetchFeedWithRetry(ctx context.Context, feed Feed) (*gofeed.Feed, error) {
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(c.cfg.MaxRetries)), ctx)

	var parsed *gofeed.Feed
	attempt := func() error {
		reqCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()

		req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, feed.URL, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("User-Agent", userAgent)

		resp, err := c.http.Do(req)
		if err != nil {
			return err // transport error, retryable
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return backoff.Permanent(fmt.Errorf("feed %s returned %d", feed.URL, resp.StatusCode))
		}
		if resp.StatusCode >= 500 {
			return fmt.Errorf("feed %s returned %d", feed.URL, resp.StatusCode)
		}

		f, err := c.parser.Parse(resp.Body)
		if err != nil {
			return backoff.Permanent(err)
		}
		parsed = f
		return nil
	}

	if err := backoff.Retry(attempt, bo); err != nil {
		return nil, err
	}
	return parsed, nil
}

func (c *Client) toArticle(item *gofeed.Item, source string) model.Article {
	published := time.Now().UTC()
	if item.PublishedParsed != nil {
		published = item.PublishedParsed.UTC()
	} else if item.UpdatedParsed != nil {
		published = item.UpdatedParsed.UTC()
	}

	var categories []string
	categories = append(categories, item.Categories...)

	raw := map[string]string{"guid": item.GUID}

	return model.Article{
		ID:          model.ArticleID(source, item.Link),
		Source:      source,
		Title:       strings.TrimSpace(item.Title),
		Link:        item.Link,
		PublishedAt: published,
		Summary:     strings.TrimSpace(item.Description),
		Categories:  categories,
		Raw:         raw,
	}
}

// fetchFullText retrieves the article page and extracts its main
// textual content, mirroring article_fetcher.py's selector priority:
// article, main, a content-ish div, then body — skipping script, style,
// nav, footer, and header nodes.
func (c *Client) fetchFullText(ctx context.Context, link string) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, link, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if cl := resp.ContentLength; cl > 0 && cl > maxContentBytes {
		return "", fmt.Errorf("content length %d exceeds cap", cl)
	}

	limited := io.LimitReader(resp.Body, maxContentBytes)
	doc, err := goquery.NewDocumentFromReader(limited)
	if err != nil {
		return "", err
	}

	var content *goquery.Selection
	for _, selector := range []string{"article", "main", `div[class*="content"]`, "body"} {
		sel := doc.Find(selector).First()
		if sel.Length() > 0 {
			content = sel
			break
		}
	}
	if content == nil {
		return "", fmt.Errorf("no content container found")
	}

	content.Find("script, style, nav, footer, header").Remove()
	text := content.Text()
	return strings.Join(strings.Fields(text), " "), nil
}

var fundingKeywords = []string{
	"series a", "series b", "series c", "series d",
	"seed round", "seed funding", "funding round",
	"raises $", "raised $", "venture capital", "valuation of",
	"million in funding", "billion in funding", "closes funding",
	"led by", "investment from", "secures funding",
}

var fundingAmountRE = regexp.MustCompile(`(?i)\$\s?\d+(\.\d+)?\s?(million|billion|m|b)\b`)

// detectFundingHint flags pure funding-announcement articles via a
// small ordered keyword and dollar-amount pattern set, paralleling the
// funding-stage vocabulary the extraction heuristic excludes when
// picking company names.
func detectFundingHint(title, summary string) (bool, string) {
	haystack := strings.ToLower(title + " " + summary)
	for _, kw := range fundingKeywords {
		if strings.Contains(haystack, kw) {
			return true, fmt.Sprintf("matched funding keyword %q", kw)
		}
	}
	if fundingAmountRE.MatchString(haystack) {
		return true, "matched funding amount pattern"
	}
	return false, ""
}
