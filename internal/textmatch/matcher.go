package textmatch

const (
	// DefaultThreshold is the minimum score used for statement labels.
	DefaultThreshold = 85
	// FolderThreshold is the looser minimum used when matching folder names
	// against company identifiers.
	FolderThreshold = 75
)

// BestMatch returns the candidate that best matches target.
//
// A candidate whose normalized form equals the normalized target is returned
// immediately, whatever its raw score. Otherwise every raw candidate is scored
// against the raw target with TokenSortRatio and the highest scorer is
// returned if it reaches threshold. Ties go to the lowest index. The boolean
// is false when nothing qualifies, including for an empty candidate list.
func BestMatch(target string, candidates []string, threshold int) (string, bool) {
	normalizedTarget := Normalize(target)
	for _, candidate := range candidates {
		if Normalize(candidate) == normalizedTarget {
			return candidate, true
		}
	}

	bestIndex, bestScore := -1, -1
	for i, candidate := range candidates {
		if score := TokenSortRatio(target, candidate); score > bestScore {
			bestIndex, bestScore = i, score
		}
	}
	if bestIndex < 0 || bestScore < threshold {
		return "", false
	}
	return candidates[bestIndex], true
}

// Matcher binds a threshold to BestMatch.
type Matcher struct {
	Threshold int
}

// NewMatcher returns a Matcher; a non-positive threshold selects DefaultThreshold.
func NewMatcher(threshold int) Matcher {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return Matcher{Threshold: threshold}
}

// Match is BestMatch with the matcher's threshold.
func (m Matcher) Match(target string, candidates []string) (string, bool) {
	return BestMatch(target, candidates, m.Threshold)
}

// Matches reports whether label matches target on its own.
func (m Matcher) Matches(target, label string) bool {
	_, ok := BestMatch(target, []string{label}, m.Threshold)
	return ok
}

// MatchAny reports whether label matches any of targets.
func (m Matcher) MatchAny(targets []string, label string) bool {
	for _, target := range targets {
		if m.Matches(target, label) {
			return true
		}
	}
	return false
}
