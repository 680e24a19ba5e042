package resolve

import (
	"sort"
	"time"

	"github.com/ballistic-intel/signalpipe/internal/model"
)

// Input is one raw company-name observation with an optional source tag
// (e.g. which patent or article it was extracted from).
type Input struct {
	RawName string
	Source  string
}

// Output is the result of resolving a batch of raw names into canonical
// entities.
type Output struct {
	Entities []model.ResolvedEntity
	Aliases  []model.AliasLink
}

// Resolve runs the full pipeline (blocking -> similarity -> match
// decision -> clustering -> canonical selection) over a batch of raw
// company name observations.
func Resolve(inputs []Input, cfg Config, now time.Time) Output {
	names := make([]string, 0, len(inputs))
	sourcesByName := make(map[string]map[string]bool)
	seenNames := make(map[string]bool)

	for _, in := range inputs {
		if in.RawName == "" {
			continue
		}
		if !seenNames[in.RawName] {
			seenNames[in.RawName] = true
			names = append(names, in.RawName)
		}
		if sourcesByName[in.RawName] == nil {
			sourcesByName[in.RawName] = make(map[string]bool)
		}
		if in.Source != "" {
			sourcesByName[in.RawName][in.Source] = true
		}
	}

	pairs := CandidatePairs(names, cfg.MinBlockSize, cfg.MaxBlockSize)

	var matches []MatchedPair
	pairScores := make(map[Pair]float64)
	for _, p := range pairs {
		decision := IsMatch(p.A, p.B, cfg)
		if decision.Match {
			matches = append(matches, MatchedPair{A: p.A, B: p.B, Score: decision.Score, Rule: decision.Rule})
			pairScores[p] = decision.Score
		}
	}

	clusters := ClusterMatches(matches, cfg)

	// Names that matched nothing never enter the union-find structure;
	// each becomes its own singleton cluster.
	clustered := make(map[string]bool)
	for _, c := range clusters {
		for _, m := range c.Members {
			clustered[m] = true
		}
	}
	for _, n := range names {
		if !clustered[n] {
			clusters = append(clusters, Cluster{Members: []string{n}})
		}
	}

	entities := make([]model.ResolvedEntity, 0, len(clusters))
	aliases := make([]model.AliasLink, 0, len(names))

	for _, cluster := range clusters {
		orderedMembers := orderByFirstAppearance(cluster.Members, names)
		canonical := SelectCanonical(orderedMembers, cfg.CanonicalStrategy)
		entityID := model.EntityID(canonical)

		confidence := meanPairScore(orderedMembers, pairScores)

		sources := make(map[string]bool)
		for _, m := range orderedMembers {
			for src := range sourcesByName[m] {
				sources[src] = true
			}
		}
		sourceList := make([]string, 0, len(sources))
		for s := range sources {
			sourceList = append(sourceList, s)
		}
		sort.Strings(sourceList)

		entities = append(entities, model.ResolvedEntity{
			EntityID:      entityID,
			CanonicalName: canonical,
			Aliases:       orderedMembers,
			Sources:       sourceList,
			Confidence:    confidence,
			CreatedAt:     now,
		})

		for _, m := range orderedMembers {
			score := 1.0
			var rules []string
			if m != canonical {
				if s, ok := bestPairScore(m, canonical, pairScores); ok {
					score = s
				}
			}
			aliases = append(aliases, model.AliasLink{
				RawName:       m,
				CanonicalName: canonical,
				EntityID:      entityID,
				Score:         score,
				RulesApplied:  rules,
			})
		}
	}

	return Output{Entities: entities, Aliases: aliases}
}

// orderByFirstAppearance sorts cluster members by their position in the
// original input order, preserving first-appearance semantics.
func orderByFirstAppearance(members []string, names []string) []string {
	position := make(map[string]int, len(names))
	for i, n := range names {
		position[n] = i
	}
	out := append([]string(nil), members...)
	sort.Slice(out, func(i, j int) bool { return position[out[i]] < position[out[j]] })
	return out
}

// meanPairScore computes the mean pairwise match score across a cluster's
// members; a singleton cluster defaults to 1.0 confidence.
func meanPairScore(members []string, pairScores map[Pair]float64) float64 {
	if len(members) <= 1 {
		return 1.0
	}
	sum := 0.0
	count := 0
	for i := 0; i < len(members); i++ {
		for j := i + 1; j < len(members); j++ {
			p := canonicalPair(members[i], members[j])
			if s, ok := pairScores[p]; ok {
				sum += s
				count++
			}
		}
	}
	if count == 0 {
		return 1.0
	}
	return sum / float64(count)
}

func bestPairScore(a, b string, pairScores map[Pair]float64) (float64, bool) {
	s, ok := pairScores[canonicalPair(a, b)]
	return s, ok
}
