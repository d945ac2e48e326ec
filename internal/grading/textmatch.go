package grading

import "unicode"

// normalize trims, lowercases and collapses internal whitespace.
func normalize(s string) string {
	out := make([]rune, 0, len(s))
	space := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			space = true
			continue
		}
		if space && len(out) > 0 {
			out = append(out, ' ')
		}
		space = false
		out = append(out, unicode.ToLower(r))
	}
	return string(out)
}

// withinDistance reports whether a and b are at most k edits apart
// (insertions, deletions and substitutions). Only the diagonal band of width
// k is filled, and it gives up as soon as a whole row exceeds k.
func withinDistance(a, b string, k int) bool {
	short, long := []rune(a), []rune(b)
	if len(short) > len(long) {
		short, long = long, short
	}
	n := len(long)
	if n-len(short) > k {
		return false
	}
	over := k + 1
	prev := make([]int, n+1)
	cur := make([]int, n+1)
	for j := range prev {
		prev[j] = min(j, over)
	}
	for i := 1; i <= len(short); i++ {
		lo, hi := max(1, i-k), min(n, i+k)
		if lo == 1 {
			cur[0] = min(i, over)
		} else {
			cur[lo-1] = over
		}
		best := cur[lo-1]
		for j := lo; j <= hi; j++ {
			sub := prev[j-1]
			if short[i-1] != long[j-1] {
				sub++
			}
			cur[j] = min(sub, prev[j]+1, cur[j-1]+1, over)
			best = min(best, cur[j])
		}
		if hi < n {
			cur[hi+1] = over
		}
		if best > k {
			return false
		}
		prev, cur = cur, prev
	}
	return prev[n] <= k
}
