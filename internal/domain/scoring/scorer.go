// Package scoring ranks talents for a booking by locality and service fit.
package scoring

import (
	"slices"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/okian/carematch/internal/domain/model"
)

// Score thresholds shared with the presentation layer.
const (
	PerfectScore = 100
	GoodScore    = 75
	PartialScore = 50
	WeakScore    = 40

	containsScore    = 95
	sharedTokenScore = 85
	typoCeiling      = 85
	typoStep         = 5

	pendingPenalty = 5
)

// Bucket names.
const (
	BucketPerfect   = "perfect"
	BucketGood      = "good"
	BucketPartial   = "partial"
	BucketAvailable = "available"
)

var bucketLabels = map[string]string{
	BucketPerfect:   "Perfect Match",
	BucketGood:      "Good Match",
	BucketPartial:   "Partial Match",
	BucketAvailable: "Available",
}

// Bucket maps a match score onto its presentation bucket.
func Bucket(score int) string {
	switch {
	case score >= PerfectScore:
		return BucketPerfect
	case score >= GoodScore:
		return BucketGood
	case score >= PartialScore:
		return BucketPartial
	default:
		return BucketAvailable
	}
}

// Label returns the display label for a bucket.
func Label(bucket string) string {
	return bucketLabels[bucket]
}

// Scorer computes the match score of a talent already known to offer the
// requested service.
type Scorer interface {
	Score(customerCity string, t model.Talent) int
}

// LocalityScorer scores by how closely the talent's city matches the customer's.
//
//	exact city                           100
//	whole-word containment               95
//	shared locality word                 85
//	locality word within typo distance   75..80
//	no locality signal                   50 approved, 40 pending
//
// The address only counts through its last comma-separated part, so street
// names never match.
//
// Pending talents lose 5 points inside their band; exact matches keep 100.
type LocalityScorer struct{}

// Score implements Scorer.
func (LocalityScorer) Score(customerCity string, t model.Talent) int {
	pending := t.Approval == model.ApprovalPending
	cc, tc := normalizeCity(customerCity), normalizeCity(t.City)
	if cc == "" {
		return serviceOnly(pending)
	}
	if cc == tc {
		return PerfectScore
	}
	if near, ok := nearness(cc, tc, addressLocality(t.Address)); ok {
		if pending {
			near = max(near-pendingPenalty, GoodScore)
		}
		return near
	}
	return serviceOnly(pending)
}

func serviceOnly(pending bool) int {
	if pending {
		return WeakScore
	}
	return PartialScore
}

// nearness reports a score in [GoodScore, containsScore] when the customer's
// city is related to the talent's city or address locality.
func nearness(customer, city, locality string) (int, bool) {
	want := strings.Fields(customer)
	best, found := 0, false
	for _, other := range []string{city, locality} {
		if other == "" {
			continue
		}
		if score, ok := relate(want, strings.Fields(other)); ok && score > best {
			best, found = score, true
		}
	}
	return best, found
}

func relate(a, b []string) (int, bool) {
	if containsRun(a, b) || containsRun(b, a) {
		return containsScore, true
	}
	if sharesToken(a, b) {
		return sharedTokenScore, true
	}
	if d, ok := typoDistance(a, b); ok {
		return max(typoCeiling-typoStep*d, GoodScore), true
	}
	return 0, false
}

// city-name filler words that do not indicate locality on their own.
var stopTokens = map[string]struct{}{"city": {}, "of": {}, "the": {}, "de": {}, "san": {}}

func significant(tok string) bool {
	_, stop := stopTokens[tok]
	return !stop && len(tok) > 2
}

// containsRun reports whether needle appears as a contiguous run of words in
// hay and carries at least one significant word.
func containsRun(hay, needle []string) bool {
	if len(needle) == 0 || len(needle) > len(hay) || !slices.ContainsFunc(needle, significant) {
		return false
	}
	for i := 0; i+len(needle) <= len(hay); i++ {
		if slices.Equal(hay[i:i+len(needle)], needle) {
			return true
		}
	}
	return false
}

func sharesToken(a, b []string) bool {
	for _, tok := range a {
		if significant(tok) && slices.Contains(b, tok) {
			return true
		}
	}
	return false
}

// typoDistance returns the smallest edit distance between two significant
// words of at least minTypoLen letters when it is small enough to be a typo:
// one edit below eight letters, two from eight on.
func typoDistance(a, b []string) (int, bool) {
	best, found := 0, false
	for _, x := range a {
		for _, y := range b {
			if !significant(x) || !significant(y) || len(x) < minTypoLen || len(y) < minTypoLen {
				continue
			}
			d := fuzzy.LevenshteinDistance(x, y)
			if d == 0 || d > allowedTypos(min(len(x), len(y))) {
				continue
			}
			if !found || d < best {
				best, found = d, true
			}
		}
	}
	return best, found
}

const minTypoLen = 4

func allowedTypos(n int) int {
	if n >= 8 {
		return 2
	}
	return 1
}

// addressLocality returns the normalized last comma-separated part of an
// address. Addresses without a comma carry no separable locality.
func addressLocality(address string) string {
	i := strings.LastIndex(address, ",")
	if i < 0 {
		return ""
	}
	return normalizeCity(address[i+1:])
}

func normalizeCity(s string) string {
	s = strings.ToLower(s)
	s = strings.NewReplacer(",", " ", ".", " ", "-", " ").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}
