package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"symevo/internal/config"
)

// normalizeMutatorName maps spellings accepted on the command line to the
// registry names.
func normalizeMutatorName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, "-", "_")
	switch name {
	case "subtree_mutation", "subtree_replacement":
		return "subtree"
	case "point", "node_type", "change_function":
		return "change_node_type"
	case "terminal", "change_leaf":
		return "change_terminal"
	default:
		return name
	}
}

// parseMutatorWeights parses repeated name=weight pairs. A bare name gets
// weight 1; a name given twice has its weights summed.
func parseMutatorWeights(values []string) ([]config.MutatorWeight, error) {
	var out []config.MutatorWeight
	index := make(map[string]int)
	for _, raw := range values {
		for _, item := range strings.Split(raw, ",") {
			item = strings.TrimSpace(item)
			if item == "" {
				continue
			}
			name, weightText, hasWeight := strings.Cut(item, "=")
			name = normalizeMutatorName(name)
			if name == "" {
				return nil, fmt.Errorf("mutator %q: name is required", item)
			}
			weight := 1.0
			if hasWeight {
				w, err := strconv.ParseFloat(strings.TrimSpace(weightText), 64)
				if err != nil {
					return nil, fmt.Errorf("mutator %q: invalid weight: %w", item, err)
				}
				if w <= 0 {
					return nil, fmt.Errorf("mutator %q: weight must be > 0", item)
				}
				weight = w
			}
			if i, ok := index[name]; ok {
				out[i].Weight += weight
				continue
			}
			index[name] = len(out)
			out = append(out, config.MutatorWeight{Name: name, Weight: weight})
		}
	}
	if len(out) == 0 {
		return nil, errors.New("no mutators given")
	}
	return out, nil
}
