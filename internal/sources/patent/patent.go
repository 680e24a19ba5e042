// Package patent implements the PatentSource document adapter (C1): an
// HTTP client against a configurable patent warehouse, filtering to a
// country allow-list and a security-domain CPC glob set, with the
// widen-and-retry-once fallback described in spec.md §6.
//
// Grounded on the teacher's pkg/llm/client.go for its net/http+JSON
// construction idiom, and on original_source/pipeline/agents/query_builder.py
// and p1a_patent_ingestion.py for the CPC code list and the fallback
// control flow this adapter ports.
package patent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/ballistic-intel/signalpipe/internal/model"
	"github.com/ballistic-intel/signalpipe/internal/runctx"
)

// SecurityCPCGlobs is the set of CPC-code glob patterns treated as the
// cybersecurity domain, ported from PatentQueryBuilder.CYBERSECURITY_CPC_CODES.
var SecurityCPCGlobs = []string{
	"H04L*",   // digital transmission / cryptography
	"G06F21*", // computer security
	"H04W12*", // wireless security
	"H04L9*",  // cryptography mechanisms
}

// Config configures a Client.
type Config struct {
	BaseURL     string
	Countries   []string
	MinPatents  int
	HTTPTimeout time.Duration
}

// Client is the patent warehouse adapter.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

// New constructs a Client, applying spec defaults for unset fields.
func New(cfg Config, logger *slog.Logger) *Client {
	if len(cfg.Countries) == 0 {
		cfg.Countries = []string{"US"}
	}
	if cfg.MinPatents <= 0 {
		cfg.MinPatents = 50
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.HTTPTimeout},
		logger: logger,
	}
}

// Stats reports the ranges actually queried, preserving both the
// original and any widened range per the resolution of spec.md §9(i):
// the widened range never silently overwrites the original in stats,
// even when the widened query itself yields nothing.
type Stats struct {
	OriginalStart, OriginalEnd string
	WidenedStart, WidenedEnd   string
	Widened                    bool
	PatentsFetched             int
}

// warehouseRow is the wire shape returned by the warehouse endpoint.
type warehouseRow struct {
	PublicationNumber string    `json:"publication_number"`
	Title             string    `json:"title"`
	Abstract          string    `json:"abstract"`
	FilingDate        time.Time `json:"filing_date"`
	PublicationDate   time.Time `json:"publication_date"`
	Assignees         []string  `json:"assignees"`
	Inventors         []string  `json:"inventors"`
	CPCCodes          []string  `json:"cpc_codes"`
	Country           string    `json:"country_code"`
	KindCode          string    `json:"kind_code"`
}

// Fetch queries the warehouse for patents filed in [start, end]
// (YYYYMMDD), widening to a 30-day window and retrying exactly once if
// the first pass yields fewer than cfg.MinPatents records.
func (c *Client) Fetch(ctx context.Context, start, end time.Time) ([]model.Patent, Stats, error) {
	stats := Stats{
		OriginalStart: start.Format("20060102"),
		OriginalEnd:   end.Format("20060102"),
	}

	patents, err := c.query(ctx, start, end)
	if err != nil {
		return nil, stats, &runctx.SourceError{Source: "patent-warehouse", Err: err}
	}

	if len(patents) < c.cfg.MinPatents {
		widenedEnd := end
		widenedStart := end.Add(-30 * 24 * time.Hour)
		stats.Widened = true
		stats.WidenedStart = widenedStart.Format("20060102")
		stats.WidenedEnd = widenedEnd.Format("20060102")

		widened, werr := c.query(ctx, widenedStart, widenedEnd)
		if werr != nil {
			c.logger.Warn("patent fallback widen query failed", "error", werr)
			// Fallback failure does not discard the original results; both
			// ranges stay recorded in stats regardless of outcome.
		} else {
			patents = widened
		}
	}

	if len(patents) == 0 {
		return nil, stats, &runctx.SourceError{Source: "patent-warehouse", Err: fmt.Errorf("no patents retrieved")}
	}

	stats.PatentsFetched = len(patents)
	return patents, stats, nil
}

func (c *Client) query(ctx context.Context, start, end time.Time) ([]model.Patent, error) {
	reqBody := map[string]any{
		"start_date": start.Format("20060102"),
		"end_date":   end.Format("20060102"),
		"countries":  c.cfg.Countries,
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal warehouse request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.HTTPTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.cfg.BaseURL+"/v1/patents/search", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build warehouse request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("warehouse request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read warehouse response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("warehouse returned %d: %s", resp.StatusCode, string(body))
	}

	var rows []warehouseRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode warehouse response: %w", err)
	}

	countrySet := make(map[string]bool, len(c.cfg.Countries))
	for _, ct := range c.cfg.Countries {
		countrySet[ct] = true
	}

	var patents []model.Patent
	for _, row := range rows {
		if !countrySet[row.Country] {
			continue
		}
		if !matchesSecurityCPC(row.CPCCodes) {
			continue
		}
		p := model.Patent{
			PublicationNumber: row.PublicationNumber,
			Title:             row.Title,
			Abstract:          row.Abstract,
			FilingDate:        row.FilingDate,
			PublicationDate:   row.PublicationDate,
			Assignees:         row.Assignees,
			Inventors:         row.Inventors,
			CPCCodes:          row.CPCCodes,
			Country:           row.Country,
			KindCode:          row.KindCode,
		}
		if p.IsValidMinimal() {
			patents = append(patents, p)
		}
	}
	return patents, nil
}

// matchesSecurityCPC reports whether any code matches a security glob.
func matchesSecurityCPC(codes []string) bool {
	for _, code := range codes {
		for _, glob := range SecurityCPCGlobs {
			if cpcGlobMatch(glob, code) {
				return true
			}
		}
	}
	return false
}

// cpcGlobMatch adapts path.Match's single-wildcard semantics to CPC
// codes, which share no path separators, so a trailing "*" behaves as
// a plain prefix match rather than path.Match's single-segment rule.
func cpcGlobMatch(glob, code string) bool {
	if strings.HasSuffix(glob, "*") {
		return strings.HasPrefix(code, strings.TrimSuffix(glob, "*"))
	}
	ok, err := path.Match(glob, code)
	return err == nil && ok
}
