package photos

import "catalogsync/pkg/models"

// Verdict is the answer of one equivalence rule
type Verdict int

const (
	// Undecided lets the next rule in the chain decide
	Undecided Verdict = iota
	Duplicate
	Distinct
)

// Rule compares two photo candidates
type Rule func(a, b models.PhotoCandidate) Verdict

// DefaultRules is the equivalence chain, most authoritative first
var DefaultRules = []Rule{
	SameID,
	SameURL,
	SameNormalizedURL,
	SameFilename,
	SamePathSuffix,
}

// Equivalent runs the chain and reports whether a and b are the same photo.
// The first rule that decides wins
func Equivalent(rules []Rule, a, b models.PhotoCandidate) bool {
	for _, rule := range rules {
		switch rule(a, b) {
		case Duplicate:
			return true
		case Distinct:
			return false
		}
	}
	return false
}

// SameID decides alone when both candidates carry a photo ID
func SameID(a, b models.PhotoCandidate) Verdict {
	if a.SourceID == nil || b.SourceID == nil {
		return Undecided
	}
	if *a.SourceID == *b.SourceID {
		return Duplicate
	}
	return Distinct
}

// SameURL matches identical URL strings
func SameURL(a, b models.PhotoCandidate) Verdict {
	if a.URL != "" && a.URL == b.URL {
		return Duplicate
	}
	return Undecided
}

// SameNormalizedURL matches URLs that differ only in size and crop parameters
func SameNormalizedURL(a, b models.PhotoCandidate) Verdict {
	pa, pb := splitURL(a.URL), splitURL(b.URL)
	if pa.normalized != "" && pa.normalized == pb.normalized {
		return Duplicate
	}
	return Undecided
}

// SameFilename matches URLs whose file name is equal once the extension and
// a trailing WxH size token are removed
func SameFilename(a, b models.PhotoCandidate) Verdict {
	sa, sb := splitURL(a.URL).filenameStem(), splitURL(b.URL).filenameStem()
	if sa != "" && sa == sb {
		return Duplicate
	}
	return Undecided
}

// SamePathSuffix matches URLs sharing their last two path segments, whatever
// the host serving them
func SamePathSuffix(a, b models.PhotoCandidate) Verdict {
	sa, sb := splitURL(a.URL).pathSuffix(), splitURL(b.URL).pathSuffix()
	if sa != "" && sa == sb {
		return Duplicate
	}
	return Undecided
}
