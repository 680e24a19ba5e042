package classify

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ballistic-intel/signalpipe/internal/model"
)

var patentNoveltyHigh = []string{
	"novel", "innovative", "breakthrough", "new method", "new system",
	"first", "unprecedented", "revolutionary", "advanced",
}

var patentNoveltyMed = []string{
	"improved", "enhanced", "optimized", "efficient", "method for",
	"system for", "apparatus for",
}

var newsNoveltyHigh = []string{
	"launches", "unveils", "introduces", "announces new", "revolutionary",
	"first-of-its-kind", "breakthrough", "innovative platform",
}

var newsNoveltyMed = []string{
	"new product", "new platform", "new feature", "enhanced",
}

var companyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b([A-Z][a-z]+(?:\s+[A-Z][a-z]+){0,2})\s+(?:announced|raised|secured|launched|unveiled|closed)`),
	regexp.MustCompile(`(?:led by|co-led by|from|by)\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+){0,2})`),
	regexp.MustCompile(`\b([A-Z][a-z]+(?:\s+[A-Z][a-z]+){0,2})\s+(?:has|will)`),
}

var extractExcludeWords = map[string]bool{
	"the": true, "a": true, "an": true, "this": true, "that": true, "these": true, "those": true,
	"cisa": true, "fbi": true, "nsa": true, "cve": true, "owasp": true,
	"series": true, "round": true, "funding": true, "million": true, "billion": true,
}

var legalSuffixStrip = regexp.MustCompile(`(?i)\s+(Inc\.?|Corp\.?|Ltd\.?|LLC|Co\.?|LP|LLP)$`)

// extractionHeuristicPatent builds an ExtractionResult from a patent's
// assignees, CPC codes, and title+abstract text.
func extractionHeuristicPatent(p model.Patent) model.ExtractionResult {
	text := strings.ToLower(p.Title + " " + p.Abstract)

	companyNames := normalizeCompanyNames(p.Assignees)
	relevance := relevanceHeuristicPatent(p)
	sector := relevance.Category
	novelty := patentNoveltyScore(p, text)
	techKeywords := extractTechKeywords(text)

	var rationale []string
	if len(companyNames) > 0 {
		n := companyNames
		if len(n) > 2 {
			n = n[:2]
		}
		rationale = append(rationale, "Assigned to "+strings.Join(n, ", "))
	}
	if len(p.CPCCodes) > 0 {
		n := p.CPCCodes
		if len(n) > 3 {
			n = n[:3]
		}
		rationale = append(rationale, "CPC codes: "+strings.Join(n, ", "))
	}
	rationale = append(rationale, fmt.Sprintf("Sector: %s", sector))
	if len(rationale) > 4 {
		rationale = rationale[:4]
	}

	return model.ExtractionResult{
		ItemID:       p.PublicationNumber,
		SourceType:   "patent",
		Model:        "heuristic-v1",
		CompanyNames: companyNames,
		Sector:       sector,
		NoveltyScore: novelty,
		TechKeywords: techKeywords,
		Rationale:    rationale,
		Fingerprint:  model.Fingerprint(text),
	}
}

// extractionHeuristicArticle builds an ExtractionResult from an article's
// title+summary text.
func extractionHeuristicArticle(a model.Article) model.ExtractionResult {
	text := strings.ToLower(articleAnalysisText(a))

	companyNames := extractCompaniesFromNews(a)
	relevance := relevanceHeuristicArticle(a)
	sector := relevance.Category
	novelty := newsNoveltyScore(text)
	techKeywords := extractTechKeywords(text)

	var rationale []string
	if len(companyNames) > 0 {
		n := companyNames
		if len(n) > 2 {
			n = n[:2]
		}
		rationale = append(rationale, "Mentions "+strings.Join(n, ", "))
	}
	if strings.Contains(text, "funding") || strings.Contains(text, "raised") {
		rationale = append(rationale, "Funding announcement")
	}
	rationale = append(rationale, fmt.Sprintf("Sector: %s", sector))
	if len(rationale) > 4 {
		rationale = rationale[:4]
	}

	return model.ExtractionResult{
		ItemID:       a.ID,
		SourceType:   "news",
		Model:        "heuristic-v1",
		CompanyNames: companyNames,
		Sector:       sector,
		NoveltyScore: novelty,
		TechKeywords: techKeywords,
		Rationale:    rationale,
		Fingerprint:  model.Fingerprint(text),
	}
}

func normalizeCompanyNames(names []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, name := range names {
		clean := strings.TrimSpace(legalSuffixStrip.ReplaceAllString(strings.TrimSpace(name), ""))
		lower := strings.ToLower(clean)
		if clean != "" && !seen[lower] {
			seen[lower] = true
			out = append(out, clean)
		}
	}
	if len(out) > 5 {
		out = out[:5]
	}
	return out
}

func extractCompaniesFromNews(a model.Article) []string {
	text := a.Title + " " + a.Summary
	var out []string
	seen := make(map[string]bool)

	for _, re := range companyPatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			if len(m) < 2 {
				continue
			}
			clean := strings.TrimSpace(m[1])
			lower := strings.ToLower(clean)
			if extractExcludeWords[lower] || seen[lower] {
				continue
			}
			seen[lower] = true
			out = append(out, clean)
		}
	}
	if len(out) > 5 {
		out = out[:5]
	}
	return out
}

func patentNoveltyScore(p model.Patent, text string) float64 {
	score := 0.5

	highCount := countHits(patentNoveltyHigh, text)
	medCount := countHits(patentNoveltyMed, text)

	score += minFloat(0.3, float64(highCount)*0.15)
	score += minFloat(0.15, float64(medCount)*0.05)

	for _, cpc := range p.CPCCodes {
		if strings.HasPrefix(cpc, "H04L9") {
			score += 0.1
			break
		}
	}

	return model.ClampScore(score)
}

func newsNoveltyScore(text string) float64 {
	score := 0.3

	highCount := countHits(newsNoveltyHigh, text)
	medCount := countHits(newsNoveltyMed, text)

	score += minFloat(0.4, float64(highCount)*0.2)
	score += minFloat(0.2, float64(medCount)*0.1)

	if strings.Contains(text, "raised") && strings.Contains(text, "million") && strings.Contains(text, "series") {
		score -= 0.1
	}

	return model.ClampScore(score)
}

func countHits(keywords []string, text string) int {
	count := 0
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			count++
		}
	}
	return count
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func extractTechKeywords(text string) []string {
	var out []string
	seen := make(map[string]bool)

	all := append(append([]string(nil), highConfidenceKeywords...), mediumConfidenceKeywords...)
	for _, kw := range sortedKeywords(all) {
		if seen[kw] {
			continue
		}
		if strings.Contains(text, kw) {
			seen[kw] = true
			out = append(out, kw)
			if len(out) >= 10 {
				break
			}
		}
	}
	return out
}
