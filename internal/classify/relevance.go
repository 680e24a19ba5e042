package classify

import (
	"sort"
	"strings"

	"github.com/ballistic-intel/signalpipe/internal/model"
)

const relevanceMinScore = 0.5

// relevanceHeuristicPatent scores a patent by CPC-code bonuses plus
// tiered keyword hits over title+abstract, per SPEC_FULL.md §4.3.
func relevanceHeuristicPatent(p model.Patent) model.RelevanceResult {
	score := 0.0
	var reasons []string
	category := model.CategoryUnknown

	for _, cpc := range p.CPCCodes {
		for prefix, cat := range securityCPCPatterns {
			if strings.HasPrefix(cpc, prefix) {
				score += 0.4
				reasons = append(reasons, "Security CPC code: "+cpc)
				category = cat
				break
			}
		}
	}

	text := strings.ToLower(p.Title + " " + p.Abstract)

	for _, kw := range sortedKeywords(highConfidenceKeywords) {
		if strings.Contains(text, kw) {
			score += 0.3
			reasons = append(reasons, "High-confidence keyword: "+kw)
			if score > 1.0 {
				break
			}
		}
	}
	for _, kw := range sortedKeywords(mediumConfidenceKeywords) {
		if strings.Contains(text, kw) {
			score += 0.1
			reasons = append(reasons, "Security keyword: "+kw)
			if score > 1.0 {
				break
			}
		}
	}

	if category == model.CategoryUnknown {
		category = detectCategory(text)
	}

	for _, kw := range sortedKeywords(negativeKeywords) {
		if strings.Contains(text, kw) {
			score -= 0.2
			break
		}
	}

	score = model.ClampScore(score)
	if len(reasons) > 4 {
		reasons = reasons[:4]
	}

	return model.RelevanceResult{
		ItemID:      p.PublicationNumber,
		SourceType:  "patent",
		Model:       "heuristic-v1",
		IsRelevant:  score >= relevanceMinScore,
		Score:       score,
		Category:    category,
		Reasons:     reasons,
		Fingerprint: model.Fingerprint(text),
	}
}

// relevanceHeuristicArticle scores a news article by weighted keyword
// density with a negative-context penalty, per SPEC_FULL.md §4.3.
func relevanceHeuristicArticle(a model.Article) model.RelevanceResult {
	text := strings.ToLower(articleAnalysisText(a))
	var reasons []string
	score := 0.0

	highCount := 0
	for _, kw := range sortedKeywords(highConfidenceKeywords) {
		if strings.Contains(text, kw) {
			highCount++
			reasons = append(reasons, "Security keyword: "+kw)
		}
	}
	if highCount > 0 {
		score += min(0.6, float64(highCount)*0.2)
	}

	medCount := 0
	for _, kw := range mediumConfidenceKeywords {
		if strings.Contains(text, kw) {
			medCount++
		}
	}
	if medCount > 0 {
		score += min(0.3, float64(medCount)*0.1)
	}

	category := detectCategory(text)

	for _, kw := range sortedKeywords(negativeKeywords) {
		if strings.Contains(text, kw) {
			score -= 0.3
			reasons = append(reasons, "Non-security context: "+kw)
			break
		}
	}

	score = model.ClampScore(score)
	if len(reasons) == 0 {
		reasons = []string{"No strong cybersecurity signals detected"}
	}
	if len(reasons) > 4 {
		reasons = reasons[:4]
	}

	return model.RelevanceResult{
		ItemID:      a.ID,
		SourceType:  "news",
		Model:       "heuristic-v1",
		IsRelevant:  score >= relevanceMinScore,
		Score:       score,
		Category:    category,
		Reasons:     reasons,
		Fingerprint: model.Fingerprint(text),
	}
}

func articleAnalysisText(a model.Article) string {
	parts := []string{a.Title, a.Summary}
	if a.FullContent != "" {
		parts = append(parts, a.FullContent)
	}
	return strings.Join(parts, " ")
}

func sortedKeywords(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}
