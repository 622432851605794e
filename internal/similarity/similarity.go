// Package similarity implements the string-distance measures the title
// matcher scores candidates with. All measures return a value in [0,1]
// and are symmetric in their arguments.
package similarity

import "strings"

// Method tags a score with the algorithm that produced it.
type Method string

const (
	MethodLevenshtein Method = "levenshtein"
	MethodDice        Method = "dice"
	MethodJaro        Method = "jaro"
	MethodJaroWinkler Method = "jaro_winkler"
	MethodJaccard     Method = "jaccard"
	MethodCombined    Method = "combined"
)

// Combined blend weights. Equal weighting keeps the blend symmetric and
// pins Combined(x, x) at exactly 1.0.
const (
	weightLevenshtein = 0.25
	weightDice        = 0.25
	weightJaroWinkler = 0.25
	weightJaccard     = 0.25
)

// winklerPrefixScale is the standard Jaro-Winkler prefix bonus scaling.
const winklerPrefixScale = 0.1

// Levenshtein returns the edit distance between a and b.
func Levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

// LevenshteinSimilarity normalizes edit distance against the longer
// string: 1 - distance/maxLen.
func LevenshteinSimilarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	maxLen := max(len([]rune(a)), len([]rune(b)))
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(Levenshtein(a, b))/float64(maxLen)
}

// Dice returns the Sørensen–Dice coefficient over character bigrams.
// Strings shorter than two characters score 0; a single character has
// no bigrams to compare.
func Dice(a, b string) float64 {
	if a == b && len([]rune(a)) >= 2 {
		return 1.0
	}
	ba, bb := bigrams(a), bigrams(b)
	if len(ba) == 0 || len(bb) == 0 {
		return 0.0
	}

	counts := make(map[string]int, len(ba))
	for _, g := range ba {
		counts[g]++
	}
	overlap := 0
	for _, g := range bb {
		if counts[g] > 0 {
			counts[g]--
			overlap++
		}
	}
	return 2.0 * float64(overlap) / float64(len(ba)+len(bb))
}

// Jaro returns the Jaro similarity between a and b.
func Jaro(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	la, lb := len(ra), len(rb)
	if la == 0 && lb == 0 {
		return 1.0
	}
	if la == 0 || lb == 0 {
		return 0.0
	}

	window := max(la, lb)/2 - 1
	if window < 0 {
		window = 0
	}

	matchedA := make([]bool, la)
	matchedB := make([]bool, lb)
	matches := 0
	for i := 0; i < la; i++ {
		lo := max(0, i-window)
		hi := min(i+window+1, lb)
		for j := lo; j < hi; j++ {
			if matchedB[j] || ra[i] != rb[j] {
				continue
			}
			matchedA[i] = true
			matchedB[j] = true
			matches++
			break
		}
	}
	if matches == 0 {
		return 0.0
	}

	transpositions := 0
	j := 0
	for i := 0; i < la; i++ {
		if !matchedA[i] {
			continue
		}
		for !matchedB[j] {
			j++
		}
		if ra[i] != rb[j] {
			transpositions++
		}
		j++
	}

	m := float64(matches)
	return (m/float64(la) + m/float64(lb) + (m-float64(transpositions)/2)/m) / 3.0
}

// JaroWinkler is Jaro with a bounded common-prefix bonus (up to four
// characters, standard 0.1 scaling).
func JaroWinkler(a, b string) float64 {
	j := Jaro(a, b)

	ra, rb := []rune(a), []rune(b)
	prefix := 0
	for i := 0; i < min(min(len(ra), len(rb)), 4); i++ {
		if ra[i] != rb[i] {
			break
		}
		prefix++
	}
	return j + float64(prefix)*winklerPrefixScale*(1.0-j)
}

// Jaccard returns word-level Jaccard similarity over case-folded
// tokens.
func Jaccard(a, b string) float64 {
	sa := tokenSet(a)
	sb := tokenSet(b)
	if len(sa) == 0 && len(sb) == 0 {
		return 1.0
	}
	if len(sa) == 0 || len(sb) == 0 {
		return 0.0
	}

	intersection := 0
	for w := range sa {
		if sb[w] {
			intersection++
		}
	}
	union := len(sa) + len(sb) - intersection
	return float64(intersection) / float64(union)
}

// Combined blends Levenshtein, Dice, Jaro-Winkler and Jaccard into one
// score. Identical strings score 1.0; strings with fully disjoint
// vocabulary stay under 0.3.
func Combined(a, b string) float64 {
	fa, fb := strings.ToLower(a), strings.ToLower(b)
	if fa == fb {
		return 1.0
	}
	return weightLevenshtein*LevenshteinSimilarity(fa, fb) +
		weightDice*Dice(fa, fb) +
		weightJaroWinkler*JaroWinkler(fa, fb) +
		weightJaccard*Jaccard(fa, fb)
}

// AllScores computes every individual measure plus the combined blend,
// for diagnostics.
func AllScores(a, b string) map[Method]float64 {
	fa, fb := strings.ToLower(a), strings.ToLower(b)
	return map[Method]float64{
		MethodLevenshtein: LevenshteinSimilarity(fa, fb),
		MethodDice:        Dice(fa, fb),
		MethodJaro:        Jaro(fa, fb),
		MethodJaroWinkler: JaroWinkler(fa, fb),
		MethodJaccard:     Jaccard(fa, fb),
		MethodCombined:    Combined(fa, fb),
	}
}

func bigrams(s string) []string {
	r := []rune(s)
	if len(r) < 2 {
		return nil
	}
	grams := make([]string, 0, len(r)-1)
	for i := 0; i < len(r)-1; i++ {
		grams = append(grams, string(r[i:i+2]))
	}
	return grams
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(s)) {
		set[w] = true
	}
	return set
}

func min3(a, b, c int) int {
	return min(min(a, b), c)
}
