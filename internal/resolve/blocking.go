package resolve

import (
	"sort"
	"strconv"
	"strings"
)

// Pair is an unordered pair of raw input names, stored in canonical
// (lexicographic) order so the same pair is never emitted twice across
// overlapping blocks.
type Pair struct {
	A, B string
}

func canonicalPair(a, b string) Pair {
	if a <= b {
		return Pair{A: a, B: b}
	}
	return Pair{A: b, B: a}
}

// blockingKeys emits the four blocking keys for one raw name's normalized
// form.
func blockingKeys(raw string) []string {
	normalized := Normalize(raw)
	if normalized == "" {
		return nil
	}
	tokens := strings.Fields(normalized)

	keys := make([]string, 0, 4)
	keys = append(keys, "first:"+tokens[0])

	prefixLen := 3
	if len(normalized) < prefixLen {
		prefixLen = len(normalized)
	}
	keys = append(keys, "prefix:"+normalized[:prefixLen])

	sortedTokens := append([]string(nil), tokens...)
	sort.Strings(sortedTokens)
	sig := strings.Join(sortedTokens, "")
	sigLen := 10
	if len(sig) < sigLen {
		sigLen = len(sig)
	}
	keys = append(keys, "sig:"+sig[:sigLen])

	keys = append(keys, "len:"+strconv.Itoa(len(normalized)/10))

	return keys
}

// CandidatePairs builds the blocking inverted index over names and
// returns the deduplicated union of within-block pairs, skipping any
// block whose size falls outside [minBlockSize, maxBlockSize].
func CandidatePairs(names []string, minBlockSize, maxBlockSize int) []Pair {
	blocks := make(map[string][]string)
	for _, name := range names {
		for _, key := range blockingKeys(name) {
			blocks[key] = append(blocks[key], name)
		}
	}

	seen := make(map[Pair]bool)
	var pairs []Pair

	keys := make([]string, 0, len(blocks))
	for k := range blocks {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		members := blocks[key]
		if len(members) < minBlockSize || len(members) > maxBlockSize {
			continue
		}
		for i := 0; i < len(members); i++ {
			for j := i + 1; j < len(members); j++ {
				if members[i] == members[j] {
					continue
				}
				p := canonicalPair(members[i], members[j])
				if !seen[p] {
					seen[p] = true
					pairs = append(pairs, p)
				}
			}
		}
	}

	return pairs
}
