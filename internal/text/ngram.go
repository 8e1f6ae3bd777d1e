package text

import "strings"

// Ngrams expands tokens into contiguous n-grams for every n in
// [minN, maxN]. Words inside an n-gram are joined by a single space.
//
// Output is grouped by n: all unigrams (if minN is 1) in order, then all
// bigrams, and so on. Nothing is de-duplicated. If there are fewer than
// minN tokens the result is empty.
func Ngrams(tokens []string, minN, maxN int) []string {
	l := len(tokens)
	if minN < 1 || l < minN {
		return []string{}
	}
	if maxN > l {
		maxN = l
	}
	if minN == 1 && maxN == 1 {
		out := make([]string, l)
		copy(out, tokens)
		return out
	}

	size := 0
	for n := minN; n <= maxN; n++ {
		size += l - n + 1
	}

	out := make([]string, 0, size)
	for n := minN; n <= maxN; n++ {
		for i := 0; i+n <= l; i++ {
			if n == 1 {
				out = append(out, tokens[i])
				continue
			}
			out = append(out, strings.Join(tokens[i:i+n], " "))
		}
	}
	return out
}
