package feature

import "github.com/fashion-reco/reco-engine/internal/model"

// Extract is the pure, deterministic, total, idempotent C1 contract:
// product -> [0|1]^D. Unknown or missing fields fall back to each slot's
// default (Tops/Casual/Classic); color and season may remain all-zero.
func Extract(p *model.Product) []int {
	vec := make([]int, Dimensions)
	categorySlot.apply(vec, p.CategoryMain)
	colorSlot.apply(vec, p.PrimaryColor)
	occasionSlot.apply(vec, p.Occasion)
	seasonSlot.apply(vec, p.Season)
	styleSlot.apply(vec, p.Style)
	return vec
}

// Valid reports whether vec satisfies the feature-vector invariant from
// spec.md §3: fixed length D, binary entries, at least one set bit.
func Valid(vec []int) bool {
	if len(vec) != Dimensions {
		return false
	}
	sum := 0
	for _, v := range vec {
		if v != 0 && v != 1 {
			return false
		}
		sum += v
	}
	return sum >= 1
}

// ToFloat64 widens a binary feature vector for use in the bandit's
// linear-algebra routines, which operate over float64.
func ToFloat64(vec []int) []float64 {
	out := make([]float64, len(vec))
	for i, v := range vec {
		out[i] = float64(v)
	}
	return out
}

// SlotName maps a feature vector index back to its owning slot, for the
// LinUCB insights report (spec.md §4.2 "top-k ... mapped back to slot
// names").
func SlotName(index int) string {
	switch {
	case index >= categorySlot.Start && index < colorSlot.Start:
		return "category:" + categorySlot.Vocab[index-categorySlot.Start]
	case index >= colorSlot.Start && index < occasionSlot.Start:
		return "color:" + colorSlot.Vocab[index-colorSlot.Start]
	case index >= occasionSlot.Start && index < seasonSlot.Start:
		return "occasion:" + occasionSlot.Vocab[index-occasionSlot.Start]
	case index >= seasonSlot.Start && index < styleSlot.Start:
		return "season:" + seasonSlot.Vocab[index-seasonSlot.Start]
	case index >= styleSlot.Start && index < Dimensions:
		return "style:" + styleSlot.Vocab[index-styleSlot.Start]
	default:
		return "unknown"
	}
}
