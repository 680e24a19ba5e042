// Package resolve implements the entity resolver (C6): deterministic
// normalization, multi-key blocking, weighted composite similarity, a
// two-threshold match decision, union-find clustering with a degenerate-
// cluster guard, and canonical selection into stable entity ids.
//
// The normalization rules, blocking keys, similarity weights, and
// threshold/strategy constants are ported from the reference
// implementation's config/p4_config.py and logic/name_normalizer.py.
package resolve

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Config holds the tunables of the resolution pipeline. Defaults mirror
// the reference implementation's P4Config.
type Config struct {
	HardMatchThreshold float64
	SoftMatchThreshold float64
	WeightJaccard      float64
	WeightEdit         float64
	WeightJaro         float64
	WeightAcronym      float64
	MinBlockSize       int
	MaxBlockSize       int
	MaxClusterSize     int
	CanonicalStrategy  CanonicalStrategy
}

// CanonicalStrategy selects how a cluster's representative name is chosen.
// most_frequent and highest_score are explicit aliases of longest: the
// reference implementation's P4Config allows selecting them but its
// Clusterer.select_canonical only ever implements the longest-normalized-
// form rule, falling through to it regardless of the configured strategy.
// We keep the three names distinct in the API rather than collapsing them,
// so a caller asking for "most_frequent" gets documented behavior instead
// of a silently-ignored setting.
type CanonicalStrategy string

const (
	CanonicalLongest      CanonicalStrategy = "longest"
	CanonicalMostFrequent CanonicalStrategy = "most_frequent"
	CanonicalHighestScore CanonicalStrategy = "highest_score"
)

// DefaultConfig returns the reference tunables.
func DefaultConfig() Config {
	return Config{
		HardMatchThreshold: 0.88,
		SoftMatchThreshold: 0.70,
		WeightJaccard:      0.35,
		WeightEdit:         0.25,
		WeightJaro:         0.15,
		WeightAcronym:      0.25,
		MinBlockSize:       2,
		MaxBlockSize:       1000,
		MaxClusterSize:     20,
		CanonicalStrategy:  CanonicalLongest,
	}
}

var legalSuffixesRaw = []string{
	"inc", "incorporated", "corp", "corporation", "ltd", "limited",
	"llc", "l.l.c.", "co", "company", "plc", "p.l.c.",
	"s.a.", "sa", "ag", "gmbh", "bv", "b.v.", "n.v.", "nv",
	"pte", "pty", "oy", "kk", "k.k.", "kft", "srl", "s.r.l.",
	"ab", "as", "a/s", "spa", "s.p.a.", "kg", "gmbh & co. kg",
}

var corporateStopwords = map[string]bool{
	"technologies": true, "technology": true, "systems": true, "solutions": true,
	"holdings": true, "group": true, "international": true, "global": true,
	"services": true, "software": true, "labs": true, "laboratory": true,
}

// AcronymExpansions is the seed dictionary of known acronym→full-name
// mappings.
var AcronymExpansions = map[string]string{
	"pan":  "palo alto networks",
	"vmw":  "vmware",
	"csco": "cisco",
	"crwd": "crowdstrike",
	"ftnt": "fortinet",
	"panw": "palo alto networks",
	"zs":   "zscaler",
	"okta": "okta",
}

var (
	legalSuffixesSingle = map[string]bool{}
	legalSuffixesDouble  = map[string]bool{}
)

func init() {
	for _, raw := range legalSuffixesRaw {
		tokens := tokenizeRaw(raw)
		switch len(tokens) {
		case 1:
			legalSuffixesSingle[tokens[0]] = true
		case 2:
			legalSuffixesDouble[tokens[0]+" "+tokens[1]] = true
		default:
			// Multi-token entries beyond two tokens (e.g. "gmbh & co. kg"
			// normalizes to four tokens) are never matched by the
			// single/double-token suffix check below, mirroring the
			// reference implementation's own _remove_legal_suffixes,
			// which only ever inspects the last one or two tokens.
		}
	}
}

var punctuationRE = regexp.MustCompile(`[^\p{L}\p{N}\s]`)

// tokenizeRaw applies steps 1-6 of the normalization pipeline (NFC,
// lowercase, &//, punctuation strip, whitespace collapse, tokenize)
// without suffix/stopword/dedupe, used both by normalize and to derive
// the suffix lookup tables above from their raw human-written forms.
func tokenizeRaw(s string) []string {
	s = norm.NFC.String(s)
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "&", " and ")
	s = strings.ReplaceAll(s, "/", " ")
	s = punctuationRE.ReplaceAllString(s, "")
	return strings.Fields(s)
}

// Normalize runs the full deterministic normalization pipeline over a raw
// company name string. Suffix stripping, stopword dropping and token
// dedupe repeat until none of them removes a token, so
// norm(norm(x)) == norm(x) for all x.
func Normalize(name string) string {
	if name == "" {
		return ""
	}
	tokens := tokenizeRaw(name)
	for {
		before := len(tokens)
		tokens = stripLegalSuffix(tokens)

		if len(tokens) > 2 && corporateStopwords[tokens[len(tokens)-1]] {
			tokens = tokens[:len(tokens)-1]
		}

		tokens = dedupePreserveOrder(tokens)
		if len(tokens) == before {
			break
		}
	}
	return strings.TrimSpace(strings.Join(tokens, " "))
}

func stripLegalSuffix(tokens []string) []string {
	if len(tokens) == 0 {
		return tokens
	}
	if legalSuffixesSingle[tokens[len(tokens)-1]] {
		tokens = tokens[:len(tokens)-1]
	}
	if len(tokens) >= 2 {
		lastTwo := tokens[len(tokens)-2] + " " + tokens[len(tokens)-1]
		if legalSuffixesDouble[lastTwo] {
			tokens = tokens[:len(tokens)-2]
		}
	}
	return tokens
}

func dedupePreserveOrder(tokens []string) []string {
	seen := make(map[string]bool, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

// Tokens returns the deduped, order-preserving token slice of a
// normalized name. Unlike the reference implementation's extract_tokens
// (a Python set, whose iteration order is insertion-hash dependent and
// therefore not reproducible across runs), this returns an ordered slice
// so downstream acronym-initial computation is deterministic.
func Tokens(name string) []string {
	normalized := Normalize(name)
	if normalized == "" {
		return nil
	}
	return strings.Fields(normalized)
}

// TokenSet returns the unique token set of a normalized name, for set
// operations (Jaccard) where order does not matter.
func TokenSet(name string) map[string]bool {
	set := make(map[string]bool)
	for _, t := range Tokens(name) {
		set[t] = true
	}
	return set
}

// IsAcronym reports whether name looks like an acronym: normalizes to a
// single token, and the first whitespace-split token of the raw string
// is all-uppercase and at most 5 characters.
func IsAcronym(name string) bool {
	tokens := Tokens(name)
	if len(tokens) != 1 {
		return false
	}
	rawTokens := strings.Fields(strings.TrimSpace(name))
	if len(rawTokens) == 0 {
		return false
	}
	first := rawTokens[0]
	return isAllUpper(first) && len([]rune(first)) <= 5
}

func isAllUpper(s string) bool {
	hasLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			hasLetter = true
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return hasLetter
}

// ExpandAcronym looks an acronym up in the seed dictionary, returning its
// normalized form unchanged if not found.
func ExpandAcronym(acronym string) string {
	normalized := Normalize(acronym)
	if full, ok := AcronymExpansions[normalized]; ok {
		return full
	}
	return normalized
}

// MatchesAcronym reports whether acronym's normalized form equals the
// initials (in first-occurrence token order) of fullName, tolerating the
// reference implementation's lossy heuristic of also accepting the
// initials with every 'w' character stripped (meant to catch "works",
// "ware", "ways" style company-name variants collapsing an extra initial,
// but equally capable of producing false positives on unrelated acronyms
// that happen to contain a 'w' — ported as-is rather than guessed-fixed).
func MatchesAcronym(fullName, acronym string) bool {
	fullTokens := Tokens(fullName)
	acronymNormalized := Normalize(acronym)
	if len(fullTokens) == 0 || acronymNormalized == "" {
		return false
	}

	var sb strings.Builder
	for _, tok := range fullTokens {
		if tok == "" {
			continue
		}
		sb.WriteRune([]rune(tok)[0])
	}
	initials := sb.String()

	return initials == acronymNormalized || strings.ReplaceAll(initials, "w", "") == acronymNormalized
}
