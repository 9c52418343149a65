package catalog

import (
	"sort"
	"strings"
	"unicode"
)

// minScore is the similarity below which a candidate is not a match.
const minScore = 0.35

// bestMatches returns the indexes of up to k candidates most similar to query, best first.
func bestMatches(query string, candidates []string, k int) []int {
	q := normalize(query)
	if q == "" {
		return nil
	}

	type scored struct {
		idx   int
		score float64
	}
	var hits []scored
	for i, c := range candidates {
		if s := similarity(q, normalize(c)); s >= minScore {
			hits = append(hits, scored{i, s})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })

	if len(hits) > k {
		hits = hits[:k]
	}
	out := make([]int, len(hits))
	for i, h := range hits {
		out[i] = h.idx
	}
	return out
}

// similarity combines containment with a bigram Dice coefficient so that both
// partial titles and small typos match.
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	if b == "" {
		return 0
	}
	if strings.Contains(b, a) || strings.Contains(a, b) {
		shorter, longer := len(a), len(b)
		if shorter > longer {
			shorter, longer = longer, shorter
		}
		return 0.6 + 0.4*float64(shorter)/float64(longer)
	}
	return dice(a, b)
}

func dice(a, b string) float64 {
	ab, bb := bigrams(a), bigrams(b)
	if len(ab) == 0 || len(bb) == 0 {
		return 0
	}
	counts := make(map[string]int, len(ab))
	for _, g := range ab {
		counts[g]++
	}
	shared := 0
	for _, g := range bb {
		if counts[g] > 0 {
			counts[g]--
			shared++
		}
	}
	return 2 * float64(shared) / float64(len(ab)+len(bb))
}

func bigrams(s string) []string {
	r := []rune(s)
	if len(r) < 2 {
		return nil
	}
	out := make([]string, 0, len(r)-1)
	for i := 0; i < len(r)-1; i++ {
		out = append(out, string(r[i:i+2]))
	}
	return out
}

// normalize lowercases and keeps letters and digits separated by single spaces.
func normalize(s string) string {
	var b strings.Builder
	space := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			b.WriteRune(r)
			space = false
			continue
		}
		space = true
	}
	return b.String()
}
