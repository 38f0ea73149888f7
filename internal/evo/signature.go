package evo

import (
	"crypto/sha1"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"

	"symevo/internal/tree"
)

type TreeSummary struct {
	Length             int            `json:"length"`
	Depth              int            `json:"depth"`
	SymbolDistribution map[string]int `json:"symbol_distribution"`
}

type TreeSignature struct {
	Fingerprint string      `json:"fingerprint"`
	Summary     TreeSummary `json:"summary"`
}

// ComputeTreeSignature hashes the formatted tree, so two trees share a
// fingerprint exactly when they print the same.
func ComputeTreeSignature(t *tree.Tree) TreeSignature {
	dist := make(map[string]int)
	for n := range t.IterateNodesPrefix() {
		dist[n.Symbol().Name()]++
	}
	digest := sha1.Sum([]byte(t.String()))
	return TreeSignature{
		Fingerprint: hex.EncodeToString(digest[:8]),
		Summary: TreeSummary{
			Length:             t.Length(),
			Depth:              t.Depth(),
			SymbolDistribution: dist,
		},
	}
}

// FormatDistribution renders a symbol distribution as "name=count" pairs in
// name order.
func FormatDistribution(dist map[string]int) string {
	keys := make([]string, 0, len(dist))
	for k := range dist {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+strconv.Itoa(dist[k]))
	}
	return strings.Join(parts, " ")
}
