// Package diversity implements the exclusion set, avoidance rules, and
// bonus scoring that shape candidate selection for a recommendation
// (spec.md §4.4, component C4).
package diversity

import (
	"errors"
	"math/rand"

	"github.com/fashion-reco/reco-engine/internal/model"
)

// Tunables fixed by spec.md §4.4.
const (
	ExclusionWindow  = 20
	CandidatePoolMax = 200
	TopK             = 5

	CategoryAvoidLimit = 3
	ColorAvoidLimit    = 2
	BrandAvoidLimit    = 3

	DiversityCategoryWeight = 0.20
	DiversityColorWeight    = 0.15
	DiversityBrandWeight    = 0.10

	ExplorationBase  = 0.30
	ExplorationDecay = 0.01
	ExplorationFloor = 0.05
)

// ErrNoCandidates is the recoverable error C5 turns into a 404.
var ErrNoCandidates = errors.New("diversity: no candidates after filtering")

// Avoidance lists facet values the candidate query must exclude, derived
// from a session's recently-loved items.
type Avoidance struct {
	Categories []string
	Colors     []string
	Brands     []string
}

// ExclusionSet returns the set of product_ids forbidden as candidates:
// the last ExclusionWindow entries of history, newest first.
func ExclusionSet(history []*model.SessionHistoryEntry) map[string]bool {
	n := len(history)
	if n > ExclusionWindow {
		n = ExclusionWindow
	}
	set := make(map[string]bool, n)
	for _, h := range history[:n] {
		set[h.ProductID] = true
	}
	return set
}

// facetCounts tallies a facet's occurrence among the loved (love only) subset
// of the 10 most-recent history entries, joined against the catalog.
func facetCounts(recent []*model.SessionHistoryEntry, products map[string]*model.Product) (categories, colors, brands map[string]int) {
	categories = make(map[string]int)
	colors = make(map[string]int)
	brands = make(map[string]int)

	limit := 10
	if len(recent) < limit {
		limit = len(recent)
	}
	for _, h := range recent[:limit] {
		if h.UserAction == nil || *h.UserAction != model.ActionLove {
			continue
		}
		p, ok := products[h.ProductID]
		if !ok || p == nil {
			continue
		}
		categories[p.CategoryMain]++
		colors[p.PrimaryColor]++
		brands[p.Brand]++
	}
	return categories, colors, brands
}

// ComputeAvoidance applies spec.md §4.4's facet thresholds to the
// loved subset of the 10 most recent history entries (newest first),
// resolving product facets via the products lookup.
func ComputeAvoidance(recentHistory []*model.SessionHistoryEntry, products map[string]*model.Product) Avoidance {
	categories, colors, brands := facetCounts(recentHistory, products)

	var a Avoidance
	for facet, count := range categories {
		if count >= CategoryAvoidLimit {
			a.Categories = append(a.Categories, facet)
		}
	}
	for facet, count := range colors {
		if count >= ColorAvoidLimit {
			a.Colors = append(a.Colors, facet)
		}
	}
	for facet, count := range brands {
		if count >= BrandAvoidLimit {
			a.Brands = append(a.Brands, facet)
		}
	}
	return a
}

// UserPreferenceSnapshot is U: the facets a session has already seen,
// used to compute each candidate's diversity_bonus.
type UserPreferenceSnapshot struct {
	SeenCategories map[string]bool
	SeenColors     map[string]bool
	SeenBrands     map[string]bool
}

// BuildSnapshot derives U from every history entry the session has ever
// been shown (not just the exclusion window), joined against products.
func BuildSnapshot(history []*model.SessionHistoryEntry, products map[string]*model.Product) UserPreferenceSnapshot {
	u := UserPreferenceSnapshot{
		SeenCategories: map[string]bool{},
		SeenColors:     map[string]bool{},
		SeenBrands:     map[string]bool{},
	}
	for _, h := range history {
		p, ok := products[h.ProductID]
		if !ok || p == nil {
			continue
		}
		u.SeenCategories[p.CategoryMain] = true
		u.SeenColors[p.PrimaryColor] = true
		u.SeenBrands[p.Brand] = true
	}
	return u
}

// DiversityBonus scores how novel p's facets are against u.
func DiversityBonus(p *model.Product, u UserPreferenceSnapshot) float64 {
	bonus := 0.0
	if !u.SeenCategories[p.CategoryMain] {
		bonus += DiversityCategoryWeight
	}
	if !u.SeenColors[p.PrimaryColor] {
		bonus += DiversityColorWeight
	}
	if !u.SeenBrands[p.Brand] {
		bonus += DiversityBrandWeight
	}
	return bonus
}

// ExplorationBonus decays with total_interactions, floored at
// ExplorationFloor.
func ExplorationBonus(totalInteractions int) float64 {
	b := ExplorationBase - ExplorationDecay*float64(totalInteractions)
	if b < ExplorationFloor {
		return ExplorationFloor
	}
	return b
}

// Scored is one candidate with every component of its final score, for
// the recommend response's per-product breakdown.
type Scored struct {
	Product         *model.Product
	BaseScore       float64 // u = ucb(x)
	DiversityBonus  float64
	ExplorationBonus float64
	Final           float64
}

// SelectTopK sorts candidates by Final descending and uniformly picks
// count of the top TopK (or top-N when count > TopK, per spec.md §4.4
// "top K_top = 5 (or top-N when N requested)"). It returns ErrNoCandidates
// if candidates is empty.
func SelectTopK(candidates []Scored, count int, rng *rand.Rand) ([]Scored, error) {
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}

	sorted := append([]Scored(nil), candidates...)
	sortByFinalDesc(sorted)

	pool := TopK
	if count > pool {
		pool = count
	}
	if pool > len(sorted) {
		pool = len(sorted)
	}
	top := sorted[:pool]

	if count > len(top) {
		count = len(top)
	}

	perm := rng.Perm(len(top))
	out := make([]Scored, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, top[perm[i]])
	}
	return out, nil
}

func sortByFinalDesc(s []Scored) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j].Final > s[j-1].Final; j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}
