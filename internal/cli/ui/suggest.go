package ui

import (
	"sort"
	"strings"
)

// DefaultMaxSuggestions bounds the number of suggestions returned
const DefaultMaxSuggestions = 3

type suggestion struct {
	value    string
	distance int
}

// SuggestClasses returns the candidates closest to target, a class name
// that could not be found. The edit budget grows with the length of the
// simple name.
//
//	SuggestClasses("org/threeten/bp/LocalDat", pool names)
//	// ["org/threeten/bp/LocalDate"]
func SuggestClasses(target string, candidates []string) []string {
	budget := len(simpleName(target))/3 + 1

	var found []suggestion
	for _, candidate := range candidates {
		d := LevenshteinDistance(strings.ToLower(target), strings.ToLower(candidate))
		if d <= budget {
			found = append(found, suggestion{value: candidate, distance: d})
		}
	}

	sort.SliceStable(found, func(i, j int) bool {
		if found[i].distance != found[j].distance {
			return found[i].distance < found[j].distance
		}
		return found[i].value < found[j].value
	})

	out := make([]string, 0, DefaultMaxSuggestions)
	for i := 0; i < len(found) && i < DefaultMaxSuggestions; i++ {
		out = append(out, found[i].value)
	}
	return out
}

func simpleName(class string) string {
	if i := strings.LastIndexByte(class, '/'); i >= 0 {
		return class[i+1:]
	}
	return class
}

// LevenshteinDistance returns the number of single byte insertions,
// deletions or substitutions turning s1 into s2.
func LevenshteinDistance(s1, s2 string) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	prev := make([]int, len(s2)+1)
	curr := make([]int, len(s2)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(s1); i++ {
		curr[0] = i
		for j := 1; j <= len(s2); j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(s2)]
}
