package diag

import (
	"fmt"
	"strings"
)

// SuggestClosest proposes the nearest valid candidate for an unknown name,
// measured by edit distance. Falls back to listing the candidates when
// nothing is close enough.
func SuggestClosest(unknown string, valid []string) string {
	if len(valid) == 0 {
		return ""
	}

	best := ""
	bestDist := len(unknown) + len(valid[0])
	for _, candidate := range valid {
		if d := editDistance(unknown, candidate); d < bestDist {
			bestDist = d
			best = candidate
		}
	}

	if bestDist < 5 {
		return fmt.Sprintf("did you mean %q?", best)
	}
	if len(valid) > 6 {
		return fmt.Sprintf("valid values include: %s, ...", strings.Join(valid[:6], ", "))
	}
	return fmt.Sprintf("valid values: %s", strings.Join(valid, ", "))
}

// SuggestMissingField proposes adding a required field with an example value.
func SuggestMissingField(field, example string) string {
	if example != "" {
		return fmt.Sprintf("add '%s: %s' to the document", field, example)
	}
	return fmt.Sprintf("add the '%s' field to the document", field)
}

// editDistance computes the Levenshtein distance between two strings.
func editDistance(s1, s2 string) int {
	if s1 == s2 {
		return 0
	}

	len1, len2 := len(s1), len(s2)
	matrix := make([][]int, len1+1)
	for i := range matrix {
		matrix[i] = make([]int, len2+1)
		matrix[i][0] = i
	}
	for j := 0; j <= len2; j++ {
		matrix[0][j] = j
	}

	for i := 1; i <= len1; i++ {
		for j := 1; j <= len2; j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}

			del := matrix[i-1][j] + 1
			ins := matrix[i][j-1] + 1
			sub := matrix[i-1][j-1] + cost

			m := del
			if ins < m {
				m = ins
			}
			if sub < m {
				m = sub
			}
			matrix[i][j] = m
		}
	}

	return matrix[len1][len2]
}
