package resolve

import (
	"github.com/agext/levenshtein"
)

// Scores holds the four component scores and the weighted composite for
// one candidate pair.
type Scores struct {
	Jaccard   float64
	Edit      float64
	Jaro      float64
	Acronym   float64
	Composite float64
}

var levenshteinParams = levenshtein.NewParams()

// tokenJaccard computes Jaccard similarity between two token sets, with
// the edge cases both-empty -> 1.0 and exactly-one-empty -> 0.0.
func tokenJaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	intersection := 0
	for t := range a {
		if b[t] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0.0
	}
	return float64(intersection) / float64(union)
}

// editDistanceRatio computes a normalized Levenshtein similarity ratio
// between two normalized strings.
func editDistanceRatio(a, b string) float64 {
	if a == "" && b == "" {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}
	return levenshtein.Match(a, b, levenshteinParams)
}

// jaroWinkler computes the Jaro-Winkler similarity of two strings.
func jaroWinkler(a, b string) float64 {
	if a == "" && b == "" {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}

	jaro := jaroSimilarity(a, b)
	prefix := commonPrefixLength(a, b, 4)
	const scalingFactor = 0.1
	return jaro + float64(prefix)*scalingFactor*(1-jaro)
}

func jaroSimilarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	la, lb := len(ra), len(rb)
	if la == 0 || lb == 0 {
		return 0.0
	}

	matchDistance := la
	if lb > matchDistance {
		matchDistance = lb
	}
	matchDistance = matchDistance/2 - 1
	if matchDistance < 0 {
		matchDistance = 0
	}

	aMatches := make([]bool, la)
	bMatches := make([]bool, lb)

	matches := 0
	for i := 0; i < la; i++ {
		start := i - matchDistance
		if start < 0 {
			start = 0
		}
		end := i + matchDistance + 1
		if end > lb {
			end = lb
		}
		for j := start; j < end; j++ {
			if bMatches[j] || ra[i] != rb[j] {
				continue
			}
			aMatches[i] = true
			bMatches[j] = true
			matches++
			break
		}
	}

	if matches == 0 {
		return 0.0
	}

	transpositions := 0
	k := 0
	for i := 0; i < la; i++ {
		if !aMatches[i] {
			continue
		}
		for !bMatches[k] {
			k++
		}
		if ra[i] != rb[k] {
			transpositions++
		}
		k++
	}
	transpositions /= 2

	m := float64(matches)
	return (m/float64(la) + m/float64(lb) + (m-float64(transpositions))/m) / 3.0
}

func commonPrefixLength(a, b string, max int) int {
	ra, rb := []rune(a), []rune(b)
	n := len(ra)
	if len(rb) < n {
		n = len(rb)
	}
	if max < n {
		n = max
	}
	count := 0
	for i := 0; i < n; i++ {
		if ra[i] != rb[i] {
			break
		}
		count++
	}
	return count
}

// acronymScore returns 1.0 if either raw name's initials match the
// other's normalized form directly, or if acronym expansion brings the
// two names into agreement; 0.0 otherwise.
func acronymScore(name1, name2 string) float64 {
	if MatchesAcronym(name1, name2) || MatchesAcronym(name2, name1) {
		return 1.0
	}

	expanded1 := ExpandAcronym(name1)
	expanded2 := ExpandAcronym(name2)
	norm1 := Normalize(name1)
	norm2 := Normalize(name2)

	if expanded1 != norm1 || expanded2 != norm2 {
		if expanded1 == expanded2 {
			return 1.0
		}
		if Normalize(expanded1) == norm2 {
			return 1.0
		}
		if Normalize(expanded2) == norm1 {
			return 1.0
		}
	}

	return 0.0
}

// CompositeScore computes the weighted composite similarity between two
// raw company name strings per cfg's weights.
func CompositeScore(name1, name2 string, cfg Config) Scores {
	norm1 := Normalize(name1)
	norm2 := Normalize(name2)
	tokens1 := TokenSet(name1)
	tokens2 := TokenSet(name2)

	s := Scores{
		Jaccard: tokenJaccard(tokens1, tokens2),
		Edit:    editDistanceRatio(norm1, norm2),
		Jaro:    jaroWinkler(norm1, norm2),
		Acronym: acronymScore(name1, name2),
	}
	s.Composite = cfg.WeightJaccard*s.Jaccard + cfg.WeightEdit*s.Edit +
		cfg.WeightJaro*s.Jaro + cfg.WeightAcronym*s.Acronym
	return s
}

// MatchDecision is the outcome of applying the two-threshold rule to one
// candidate pair's composite score.
type MatchDecision struct {
	Match  bool
	Score  float64
	Rule   string
	Scores Scores
}

// IsMatch applies the two-threshold match decision (spec §4.5.4) to one
// candidate pair.
func IsMatch(name1, name2 string, cfg Config) MatchDecision {
	scores := CompositeScore(name1, name2, cfg)

	if scores.Composite >= cfg.HardMatchThreshold {
		return MatchDecision{Match: true, Score: scores.Composite, Rule: "hard_match", Scores: scores}
	}

	if scores.Composite >= cfg.SoftMatchThreshold {
		switch {
		case scores.Acronym == 1.0:
			return MatchDecision{Match: true, Score: scores.Composite, Rule: "soft_match_with_acronym", Scores: scores}
		case scores.Jaccard >= 0.8:
			return MatchDecision{Match: true, Score: scores.Composite, Rule: "soft_match_with_high_token_overlap", Scores: scores}
		case scores.Edit >= 0.9:
			return MatchDecision{Match: true, Score: scores.Composite, Rule: "soft_match_with_high_edit_similarity", Scores: scores}
		default:
			return MatchDecision{Match: false, Score: scores.Composite, Rule: "soft_match_no_corroboration", Scores: scores}
		}
	}

	return MatchDecision{Match: false, Score: scores.Composite, Rule: "no_match", Scores: scores}
}
