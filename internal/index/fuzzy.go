package index

// entryMatchesFuzzy reports whether every query term is within maxDistance
// edits of at least one of the entry's terms.
func entryMatchesFuzzy(e *Entry, terms []string, maxDistance int) bool {
	for _, term := range terms {
		matched := false
		for indexed := range e.Terms {
			if withinDistance(term, indexed, maxDistance) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

// withinDistance reports whether the Levenshtein distance between a and b is
// at most maxDistance. A length-difference prefilter skips the DP matrix for
// pairs that cannot match.
func withinDistance(a, b string, maxDistance int) bool {
	diff := len(a) - len(b)
	if diff < 0 {
		diff = -diff
	}
	if diff > maxDistance {
		return false
	}
	return levenshtein(a, b) <= maxDistance
}

// levenshtein computes the edit distance between two strings with a
// two-row DP matrix.
func levenshtein(a, b string) int {
	if a == b {
		return 0
	}
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
