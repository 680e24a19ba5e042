package resolve

import "sort"

// unionFind is a path-compressed, union-by-rank disjoint-set structure
// over raw name strings.
type unionFind struct {
	parent map[string]string
	rank   map[string]int
}

func newUnionFind() *unionFind {
	return &unionFind{parent: make(map[string]string), rank: make(map[string]int)}
}

func (u *unionFind) find(x string) string {
	if _, ok := u.parent[x]; !ok {
		u.parent[x] = x
		u.rank[x] = 0
		return x
	}
	if u.parent[x] != x {
		u.parent[x] = u.find(u.parent[x])
	}
	return u.parent[x]
}

func (u *unionFind) union(x, y string) bool {
	rx, ry := u.find(x), u.find(y)
	if rx == ry {
		return false
	}
	switch {
	case u.rank[rx] < u.rank[ry]:
		u.parent[rx] = ry
	case u.rank[rx] > u.rank[ry]:
		u.parent[ry] = rx
	default:
		u.parent[ry] = rx
		u.rank[rx]++
	}
	return true
}

func (u *unionFind) clusters() map[string][]string {
	out := make(map[string][]string)
	names := make([]string, 0, len(u.parent))
	for name := range u.parent {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		root := u.find(name)
		out[root] = append(out[root], name)
	}
	return out
}

// Cluster is one raw-name partition produced by ClusterMatches, before
// canonical selection.
type Cluster struct {
	Members []string
}

// ClusterMatches seeds a union-find structure from every matched pair and
// returns the resulting clusters. Any cluster exceeding cfg.MaxClusterSize
// is rejected as degenerate and re-emitted as singleton clusters, since a
// single over-eager transitive chain must not swallow unrelated names.
func ClusterMatches(matches []MatchedPair, cfg Config) []Cluster {
	uf := newUnionFind()
	for _, m := range matches {
		uf.union(m.A, m.B)
	}

	raw := uf.clusters()
	roots := make([]string, 0, len(raw))
	for root := range raw {
		roots = append(roots, root)
	}
	sort.Strings(roots)

	clusters := make([]Cluster, 0, len(raw))
	for _, root := range roots {
		members := raw[root]
		if len(members) > cfg.MaxClusterSize {
			for _, m := range members {
				clusters = append(clusters, Cluster{Members: []string{m}})
			}
			continue
		}
		clusters = append(clusters, Cluster{Members: members})
	}
	return clusters
}

// MatchedPair is one pair of raw names that the similarity stage decided
// is a match, feeding clustering.
type MatchedPair struct {
	A, B  string
	Score float64
	Rule  string
}

// SelectCanonical picks the representative name for a cluster per
// strategy. most_frequent and highest_score are explicit aliases of
// longest (see CanonicalStrategy doc comment): the underlying reference
// implementation falls back to the longest-normalized-form rule for both
// because it has no frequency or pairwise-score data available at
// selection time, and we keep that behavior rather than inventing one.
func SelectCanonical(names []string, _ CanonicalStrategy) string {
	if len(names) == 0 {
		return ""
	}
	if len(names) == 1 {
		return names[0]
	}

	type candidate struct {
		name string
		length int
	}
	candidates := make([]candidate, len(names))
	for i, name := range names {
		candidates[i] = candidate{name: name, length: len([]rune(Normalize(name)))}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].length != candidates[j].length {
			return candidates[i].length > candidates[j].length
		}
		return candidates[i].name < candidates[j].name
	})
	return candidates[0].name
}
