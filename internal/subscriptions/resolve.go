package subscriptions

import (
	"sort"

	"github.com/adilkhan-b/scentwatch/internal/scrape"
	"github.com/lithammer/fuzzysearch/fuzzy"
)

// maxResolveDistance bounds how far a typo may drift from a catalog name
// before the lookup reports no match.
const maxResolveDistance = 3

// resolveName maps free-form user input onto a canonical catalog name.
// Exact normalized matches win; otherwise the closest fuzzy candidate
// wins, provided it clears the similarity threshold.
func resolveName(input string, names []string) (string, bool) {
	needle := scrape.NormalizeName(input)
	if needle == "" || len(names) == 0 {
		return "", false
	}

	for _, name := range names {
		if name == needle {
			return name, true
		}
	}

	ranks := fuzzy.RankFindNormalizedFold(needle, names)
	if len(ranks) > 0 {
		sort.Sort(ranks)
		// The input must cover at least half the catalog name; a bare
		// subsequence hit is not enough.
		if best := ranks[0]; best.Distance*2 <= len(best.Target) {
			return best.Target, true
		}
	}

	best := ""
	bestDistance := maxResolveDistance + 1
	for _, name := range names {
		if distance := fuzzy.LevenshteinDistance(needle, name); distance < bestDistance {
			best = name
			bestDistance = distance
		}
	}
	if best == "" || bestDistance > maxResolveDistance {
		return "", false
	}
	return best, true
}
