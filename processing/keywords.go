package processing

import (
	"sort"
	"strings"
	"unicode"
)

// stopwords excluded from heuristic keyword extraction.
var stopwords = map[string]bool{
	"a": true, "about": true, "after": true, "all": true, "also": true,
	"an": true, "and": true, "any": true, "are": true, "as": true,
	"at": true, "be": true, "because": true, "been": true, "but": true,
	"by": true, "can": true, "could": true, "do": true, "for": true,
	"from": true, "has": true, "have": true, "how": true, "in": true,
	"into": true, "is": true, "it": true, "its": true, "just": true,
	"like": true, "make": true, "more": true, "most": true, "not": true,
	"of": true, "on": true, "one": true, "or": true, "our": true,
	"out": true, "over": true, "seconds": true, "so": true, "some": true,
	"than": true, "that": true, "the": true, "their": true, "them": true,
	"then": true, "there": true, "these": true, "they": true, "this": true,
	"through": true, "to": true, "up": true, "very": true, "video": true,
	"was": true, "we": true, "were": true, "what": true, "when": true,
	"which": true, "while": true, "will": true, "with": true, "would": true,
	"you": true, "your": true,
}

// ExtractKeywords derives up to max search keywords from free text by word
// frequency, skipping stopwords and short tokens. Ties break on first
// appearance so the result is deterministic.
func ExtractKeywords(text string, max int) []string {
	if max <= 0 {
		return nil
	}

	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	counts := make(map[string]int)
	firstSeen := make(map[string]int)
	var order []string
	for i, w := range words {
		if len(w) < 3 || stopwords[w] {
			continue
		}
		if counts[w] == 0 {
			firstSeen[w] = i
			order = append(order, w)
		}
		counts[w]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		if counts[order[i]] != counts[order[j]] {
			return counts[order[i]] > counts[order[j]]
		}
		return firstSeen[order[i]] < firstSeen[order[j]]
	})

	if len(order) > max {
		order = order[:max]
	}
	return order
}
