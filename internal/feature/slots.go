// Package feature implements the deterministic product -> binary feature
// vector mapping (spec.md §4.1, component C1).
//
// The D=26 positions are partitioned into five fixed, one-hot slots:
// category (0-4), color (5-12), occasion (13-16), season (17-20), style
// (21-25). The vocabulary order below is the anchor named in §4.1 and
// §9's "feature slot assignments" open question — any change to this
// order is a feature-store migration, not a bug fix.
package feature

import "strings"

// Slot describes one contiguous one-hot region of the feature vector.
type Slot struct {
	Start int
	Vocab []string
	// Default is the vocabulary entry used when the input value is
	// missing or not in Vocab. Empty means "leave the slot all-zero".
	Default string
}

var (
	categorySlot = Slot{Start: 0, Vocab: []string{"tops", "bottoms", "dresses", "outerwear", "accessories"}, Default: "tops"}
	colorSlot    = Slot{Start: 5, Vocab: []string{"black", "white", "grey", "blue", "red", "green", "brown", "pink"}, Default: ""}
	occasionSlot = Slot{Start: 13, Vocab: []string{"casual", "formal", "sport", "party"}, Default: "casual"}
	seasonSlot   = Slot{Start: 17, Vocab: []string{"spring", "summer", "autumn", "winter"}, Default: ""}
	styleSlot    = Slot{Start: 21, Vocab: []string{"classic", "trendy", "minimalist", "boho", "streetwear"}, Default: "classic"}
)

// Dimensions is D: the total feature vector length implied by the slots.
const Dimensions = 26

// synonyms folds surface variation into the canonical vocabulary term
// before slot lookup (spec.md §4.1: "gray"->"grey", "navy"->"blue").
var synonyms = map[string]string{
	"gray":    "grey",
	"navy":    "blue",
	"maroon":  "red",
	"tan":     "brown",
	"beige":   "brown",
	"fall":    "autumn",
	"dress":   "dresses",
	"top":     "tops",
	"bottom":  "bottoms",
	"jacket":  "outerwear",
	"coat":    "outerwear",
	"formalwear": "formal",
}

// normalize lowercases, trims, and applies the synonym table.
func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if canon, ok := synonyms[s]; ok {
		return canon
	}
	return s
}

// apply one-hot encodes value into vec at s's region. It returns true if
// the normalized value matched an entry in s.Vocab (as opposed to falling
// back to the default or leaving the slot empty).
func (s Slot) apply(vec []int, value string) bool {
	norm := normalize(value)
	for i, v := range s.Vocab {
		if v == norm {
			vec[s.Start+i] = 1
			return true
		}
	}
	if s.Default != "" {
		for i, v := range s.Vocab {
			if v == s.Default {
				vec[s.Start+i] = 1
				break
			}
		}
	}
	return false
}
