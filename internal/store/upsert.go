package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/ballistic-intel/signalpipe/internal/model"
)

// chunkSize splits total items into batch sizes no larger than size.
func chunkSize(total, size int) []int {
	if size <= 0 {
		size = total
	}
	var sizes []int
	for remaining := total; remaining > 0; {
		n := size
		if n > remaining {
			n = remaining
		}
		sizes = append(sizes, n)
		remaining -= n
	}
	return sizes
}

// UpsertPatents upserts patents keyed by publication_number.
func (c *Client) UpsertPatents(ctx context.Context, patents []model.Patent) UpsertResult {
	if len(patents) == 0 {
		return UpsertResult{Success: true}
	}
	total := 0
	offset := 0
	for _, n := range chunkSize(len(patents), c.cfg.BatchSize) {
		batch := patents[offset : offset+n]
		offset += n

		var sb strings.Builder
		sb.WriteString(`INSERT INTO patents (publication_number, title, abstract, filing_date, publication_date, assignees, inventors, cpc_codes, country, kind_code) VALUES `)
		args := make([]any, 0, len(batch)*10)
		for i, p := range batch {
			if i > 0 {
				sb.WriteString(", ")
			}
			base := i * 10
			fmt.Fprintf(&sb, "($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)",
				base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8, base+9, base+10)
			args = append(args, p.PublicationNumber, p.Title, p.Abstract, p.FilingDate, p.PublicationDate,
				p.Assignees, p.Inventors, p.CPCCodes, p.Country, p.KindCode)
		}
		sb.WriteString(` ON CONFLICT (publication_number) DO UPDATE SET
			title = EXCLUDED.title, abstract = EXCLUDED.abstract, filing_date = EXCLUDED.filing_date,
			publication_date = EXCLUDED.publication_date, assignees = EXCLUDED.assignees,
			inventors = EXCLUDED.inventors, cpc_codes = EXCLUDED.cpc_codes, country = EXCLUDED.country,
			kind_code = EXCLUDED.kind_code`)

		query := sb.String()
		if err := c.withRetry(ctx, "patents", func(ctx context.Context) error {
			_, err := c.pool.Exec(ctx, query, args...)
			return err
		}); err != nil {
			return UpsertResult{Count: total, Success: false, Err: err}
		}
		total += len(batch)
	}
	return UpsertResult{Count: total, Success: true}
}

// UpsertArticles upserts articles keyed by link.
func (c *Client) UpsertArticles(ctx context.Context, articles []model.Article) UpsertResult {
	if len(articles) == 0 {
		return UpsertResult{Success: true}
	}
	total := 0
	offset := 0
	for _, n := range chunkSize(len(articles), c.cfg.BatchSize) {
		batch := articles[offset : offset+n]
		offset += n

		var sb strings.Builder
		sb.WriteString(`INSERT INTO articles (id, link, source, title, published_at, summary, full_content, categories, funding_hint, funding_reason) VALUES `)
		args := make([]any, 0, len(batch)*10)
		for i, a := range batch {
			if i > 0 {
				sb.WriteString(", ")
			}
			base := i * 10
			fmt.Fprintf(&sb, "($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)",
				base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8, base+9, base+10)
			args = append(args, a.ID, a.Link, a.Source, a.Title, a.PublishedAt, a.Summary, a.FullContent,
				a.Categories, a.FundingHint, a.FundingReason)
		}
		sb.WriteString(` ON CONFLICT (link) DO UPDATE SET
			id = EXCLUDED.id, source = EXCLUDED.source, title = EXCLUDED.title,
			published_at = EXCLUDED.published_at, summary = EXCLUDED.summary,
			full_content = EXCLUDED.full_content, categories = EXCLUDED.categories,
			funding_hint = EXCLUDED.funding_hint, funding_reason = EXCLUDED.funding_reason`)

		query := sb.String()
		if err := c.withRetry(ctx, "articles", func(ctx context.Context) error {
			_, err := c.pool.Exec(ctx, query, args...)
			return err
		}); err != nil {
			return UpsertResult{Count: total, Success: false, Err: err}
		}
		total += len(batch)
	}
	return UpsertResult{Count: total, Success: true}
}

// UpsertRelevanceResults upserts relevance results keyed by the composite
// (item_id, source_type, model, model_version, timestamp).
func (c *Client) UpsertRelevanceResults(ctx context.Context, results []model.RelevanceResult) UpsertResult {
	if len(results) == 0 {
		return UpsertResult{Success: true}
	}
	total := 0
	offset := 0
	for _, n := range chunkSize(len(results), c.cfg.BatchSize) {
		batch := results[offset : offset+n]
		offset += n

		var sb strings.Builder
		sb.WriteString(`INSERT INTO relevance_results (item_id, source_type, model, model_version, timestamp, is_relevant, score, category, reasons, fingerprint) VALUES `)
		args := make([]any, 0, len(batch)*10)
		for i, r := range batch {
			if i > 0 {
				sb.WriteString(", ")
			}
			base := i * 10
			fmt.Fprintf(&sb, "($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)",
				base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8, base+9, base+10)
			args = append(args, r.ItemID, r.SourceType, r.Model, r.ModelVersion, r.Timestamp,
				r.IsRelevant, r.Score, string(r.Category), r.Reasons, r.Fingerprint)
		}
		sb.WriteString(` ON CONFLICT (item_id, source_type, model, model_version, timestamp) DO UPDATE SET
			is_relevant = EXCLUDED.is_relevant, score = EXCLUDED.score, category = EXCLUDED.category,
			reasons = EXCLUDED.reasons, fingerprint = EXCLUDED.fingerprint`)

		query := sb.String()
		if err := c.withRetry(ctx, "relevance_results", func(ctx context.Context) error {
			_, err := c.pool.Exec(ctx, query, args...)
			return err
		}); err != nil {
			return UpsertResult{Count: total, Success: false, Err: err}
		}
		total += len(batch)
	}
	return UpsertResult{Count: total, Success: true}
}

// UpsertExtractionResults upserts extraction results keyed by the
// composite (item_id, source_type, model, model_version, timestamp).
func (c *Client) UpsertExtractionResults(ctx context.Context, results []model.ExtractionResult) UpsertResult {
	if len(results) == 0 {
		return UpsertResult{Success: true}
	}
	total := 0
	offset := 0
	for _, n := range chunkSize(len(results), c.cfg.BatchSize) {
		batch := results[offset : offset+n]
		offset += n

		var sb strings.Builder
		sb.WriteString(`INSERT INTO extraction_results (item_id, source_type, model, model_version, timestamp, company_names, sector, novelty_score, tech_keywords, rationale, fingerprint) VALUES `)
		args := make([]any, 0, len(batch)*11)
		for i, r := range batch {
			if i > 0 {
				sb.WriteString(", ")
			}
			base := i * 11
			fmt.Fprintf(&sb, "($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)",
				base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8, base+9, base+10, base+11)
			args = append(args, r.ItemID, r.SourceType, r.Model, r.ModelVersion, r.Timestamp,
				r.CompanyNames, string(r.Sector), r.NoveltyScore, r.TechKeywords, r.Rationale, r.Fingerprint)
		}
		sb.WriteString(` ON CONFLICT (item_id, source_type, model, model_version, timestamp) DO UPDATE SET
			company_names = EXCLUDED.company_names, sector = EXCLUDED.sector,
			novelty_score = EXCLUDED.novelty_score, tech_keywords = EXCLUDED.tech_keywords,
			rationale = EXCLUDED.rationale, fingerprint = EXCLUDED.fingerprint`)

		query := sb.String()
		if err := c.withRetry(ctx, "extraction_results", func(ctx context.Context) error {
			_, err := c.pool.Exec(ctx, query, args...)
			return err
		}); err != nil {
			return UpsertResult{Count: total, Success: false, Err: err}
		}
		total += len(batch)
	}
	return UpsertResult{Count: total, Success: true}
}

// UpsertEntities upserts resolved entities keyed by entity_id.
func (c *Client) UpsertEntities(ctx context.Context, entities []model.ResolvedEntity) UpsertResult {
	if len(entities) == 0 {
		return UpsertResult{Success: true}
	}
	total := 0
	offset := 0
	for _, n := range chunkSize(len(entities), c.cfg.BatchSize) {
		batch := entities[offset : offset+n]
		offset += n

		var sb strings.Builder
		sb.WriteString(`INSERT INTO entities (entity_id, canonical_name, aliases, sources, confidence, created_at) VALUES `)
		args := make([]any, 0, len(batch)*6)
		for i, e := range batch {
			if i > 0 {
				sb.WriteString(", ")
			}
			base := i * 6
			fmt.Fprintf(&sb, "($%d,$%d,$%d,$%d,$%d,$%d)", base+1, base+2, base+3, base+4, base+5, base+6)
			args = append(args, e.EntityID, e.CanonicalName, e.Aliases, e.Sources, e.Confidence, e.CreatedAt)
		}
		sb.WriteString(` ON CONFLICT (entity_id) DO UPDATE SET
			canonical_name = EXCLUDED.canonical_name, aliases = EXCLUDED.aliases,
			sources = EXCLUDED.sources, confidence = EXCLUDED.confidence`)

		query := sb.String()
		if err := c.withRetry(ctx, "entities", func(ctx context.Context) error {
			_, err := c.pool.Exec(ctx, query, args...)
			return err
		}); err != nil {
			return UpsertResult{Count: total, Success: false, Err: err}
		}
		total += len(batch)
	}
	return UpsertResult{Count: total, Success: true}
}

// UpsertAliasLinks upserts alias links keyed by raw_name.
func (c *Client) UpsertAliasLinks(ctx context.Context, links []model.AliasLink) UpsertResult {
	if len(links) == 0 {
		return UpsertResult{Success: true}
	}
	total := 0
	offset := 0
	for _, n := range chunkSize(len(links), c.cfg.BatchSize) {
		batch := links[offset : offset+n]
		offset += n

		var sb strings.Builder
		sb.WriteString(`INSERT INTO alias_links (raw_name, canonical_name, entity_id, score, rules_applied) VALUES `)
		args := make([]any, 0, len(batch)*5)
		for i, a := range batch {
			if i > 0 {
				sb.WriteString(", ")
			}
			base := i * 5
			fmt.Fprintf(&sb, "($%d,$%d,$%d,$%d,$%d)", base+1, base+2, base+3, base+4, base+5)
			args = append(args, a.RawName, a.CanonicalName, a.EntityID, a.Score, a.RulesApplied)
		}
		sb.WriteString(` ON CONFLICT (raw_name) DO UPDATE SET
			canonical_name = EXCLUDED.canonical_name, entity_id = EXCLUDED.entity_id,
			score = EXCLUDED.score, rules_applied = EXCLUDED.rules_applied`)

		query := sb.String()
		if err := c.withRetry(ctx, "alias_links", func(ctx context.Context) error {
			_, err := c.pool.Exec(ctx, query, args...)
			return err
		}); err != nil {
			return UpsertResult{Count: total, Success: false, Err: err}
		}
		total += len(batch)
	}
	return UpsertResult{Count: total, Success: true}
}
