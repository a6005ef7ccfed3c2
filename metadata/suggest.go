package metadata

import "strings"

// nearest picks the candidate closest to name for did-you-mean hints.
// A case-insensitive exact match wins outright. Otherwise the best
// candidate within a length-scaled edit distance is returned, first
// seen winning ties. Empty result means nothing was close enough.
func nearest(name string, candidates []string) string {
	bound := suggestBound(name)
	best := ""
	bestDist := bound + 1
	for _, cand := range candidates {
		if cand == name {
			continue
		}
		if strings.EqualFold(cand, name) {
			return cand
		}
		if d := editDistance(name, cand, bestDist); d < bestDist {
			best = cand
			bestDist = d
		}
	}
	return best
}

// suggestBound scales the acceptable edit distance with name length:
// short names tolerate one edit, long ones up to six.
func suggestBound(name string) int {
	b := len(name) / 4
	if b < 1 {
		b = 1
	}
	if b > 6 {
		b = 6
	}
	return b
}

// editDistance is the Levenshtein distance between a and b, cut short
// at limit: any result >= limit is reported as limit.
func editDistance(a, b string, limit int) int {
	diff := len(a) - len(b)
	if diff < 0 {
		diff = -diff
	}
	if diff >= limit {
		return limit
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		rowMin := curr[0]
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			d := prev[j-1] + cost
			if v := prev[j] + 1; v < d {
				d = v
			}
			if v := curr[j-1] + 1; v < d {
				d = v
			}
			curr[j] = d
			if d < rowMin {
				rowMin = d
			}
		}
		if rowMin >= limit {
			return limit
		}
		prev, curr = curr, prev
	}
	if prev[len(b)] > limit {
		return limit
	}
	return prev[len(b)]
}
