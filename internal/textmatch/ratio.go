package textmatch

import (
	"math"
	"unicode/utf8"

	"github.com/hbollon/go-edlib"
)

// TokenSortRatio returns a 0-100 similarity score between a and b that ignores
// word order, case and punctuation. Both inputs are processed, their tokens
// sorted, and the Indel similarity of the results is rounded half to even.
// Two strings that process to nothing score 0.
func TokenSortRatio(a, b string) int {
	return Ratio(sortTokens(fullProcess(a)), sortTokens(fullProcess(b)))
}

// Ratio is the Indel similarity of a and b on a 0-100 scale:
// 2*LCS / (len(a)+len(b)), computed over runes.
func Ratio(a, b string) int {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	if la == 0 || lb == 0 {
		return 0
	}
	lcs := edlib.LCS(a, b)
	return int(math.RoundToEven(100 * float64(2*lcs) / float64(la+lb)))
}
