package diag

// maxSuggestDistance bounds how far a suggestion may be from the unknown id.
const maxSuggestDistance = 5

// Suggest returns the candidate closest to unknown by edit distance, or ""
// when none is within a reasonable distance. Ties go to the candidate that
// appears first.
func Suggest(unknown string, candidates []string) string {
	best := ""
	bestDistance := maxSuggestDistance
	for _, c := range candidates {
		d := levenshteinDistance(unknown, c)
		if d < bestDistance {
			bestDistance = d
			best = c
		}
	}
	return best
}

// levenshteinDistance computes the edit distance between two strings.
func levenshteinDistance(s1, s2 string) int {
	if s1 == s2 {
		return 0
	}

	len1 := len(s1)
	len2 := len(s2)

	prev := make([]int, len2+1)
	curr := make([]int, len2+1)
	for j := 0; j <= len2; j++ {
		prev[j] = j
	}

	for i := 1; i <= len1; i++ {
		curr[0] = i
		for j := 1; j <= len2; j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}
			curr[j] = min(
				prev[j]+1,      // Deletion
				curr[j-1]+1,    // Insertion
				prev[j-1]+cost, // Substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[len2]
}
