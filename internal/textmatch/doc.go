// Package textmatch provides the label comparison primitives used by the
// financial statement extractors.
//
// Normalize folds a label into a canonical comparison form. TokenSortRatio
// scores two labels on a 0-100 scale regardless of word order. BestMatch
// combines both: an exact normalized match always wins, otherwise the
// highest scoring candidate at or above the threshold is returned.
//
// Example usage:
//
//	m := textmatch.NewMatcher(textmatch.DefaultThreshold)
//	if label, ok := m.Match("Total Current Assets", labels); ok {
//	    // label is the candidate exactly as it appears in the source file
//	}
package textmatch
