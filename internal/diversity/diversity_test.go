package diversity

import (
	"math/rand"
	"testing"

	"github.com/fashion-reco/reco-engine/internal/model"
	"github.com/stretchr/testify/require"
)

func entry(productID string, action *model.Action) *model.SessionHistoryEntry {
	return &model.SessionHistoryEntry{ProductID: productID, UserAction: action}
}

func loved(productID string) *model.SessionHistoryEntry {
	a := model.ActionLove
	return entry(productID, &a)
}

func TestExclusionSetCapsAtWindow(t *testing.T) {
	history := make([]*model.SessionHistoryEntry, 0, 25)
	for i := 0; i < 25; i++ {
		history = append(history, entry(string(rune('a'+i)), nil))
	}

	set := ExclusionSet(history)
	require.Len(t, set, ExclusionWindow)
	require.True(t, set["a"])
}

func TestComputeAvoidanceThresholds(t *testing.T) {
	products := map[string]*model.Product{
		"p1": {ProductID: "p1", CategoryMain: "tops", PrimaryColor: "black", Brand: "acme"},
		"p2": {ProductID: "p2", CategoryMain: "tops", PrimaryColor: "black", Brand: "acme"},
		"p3": {ProductID: "p3", CategoryMain: "tops", PrimaryColor: "white", Brand: "acme"},
	}
	history := []*model.SessionHistoryEntry{loved("p1"), loved("p2"), loved("p3")}

	a := ComputeAvoidance(history, products)
	require.Contains(t, a.Categories, "tops")
	require.Contains(t, a.Colors, "black")
	require.Contains(t, a.Brands, "acme", "brand threshold is 3 and all 3 loved items share the brand")
}

func TestComputeAvoidanceIgnoresNonLoved(t *testing.T) {
	products := map[string]*model.Product{
		"p1": {ProductID: "p1", CategoryMain: "tops"},
	}
	skip := model.ActionSkip
	history := []*model.SessionHistoryEntry{entry("p1", &skip), entry("p1", &skip), entry("p1", &skip)}

	a := ComputeAvoidance(history, products)
	require.Empty(t, a.Categories)
}

func TestDiversityBonusRewardsNovelty(t *testing.T) {
	u := UserPreferenceSnapshot{
		SeenCategories: map[string]bool{"tops": true},
		SeenColors:     map[string]bool{},
		SeenBrands:     map[string]bool{},
	}
	p := &model.Product{CategoryMain: "tops", PrimaryColor: "black", Brand: "acme"}
	require.InDelta(t, DiversityColorWeight+DiversityBrandWeight, DiversityBonus(p, u), 1e-12)
}

func TestExplorationBonusDecaysToFloor(t *testing.T) {
	require.InDelta(t, ExplorationBase, ExplorationBonus(0), 1e-12)
	require.Equal(t, ExplorationFloor, ExplorationBonus(1000))
}

func TestSelectTopKNoCandidates(t *testing.T) {
	_, err := SelectTopK(nil, 1, rand.New(rand.NewSource(1)))
	require.ErrorIs(t, err, ErrNoCandidates)
}

func TestSelectTopKReturnsOnlyFromTopPool(t *testing.T) {
	candidates := []Scored{
		{Product: &model.Product{ProductID: "low"}, Final: 0.1},
		{Product: &model.Product{ProductID: "mid"}, Final: 0.5},
		{Product: &model.Product{ProductID: "high"}, Final: 0.9},
	}
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 20; i++ {
		picked, err := SelectTopK(candidates, 1, rng)
		require.NoError(t, err)
		require.Len(t, picked, 1)
	}
}

func TestSelectTopKPartialWhenCountExceedsPool(t *testing.T) {
	candidates := []Scored{
		{Product: &model.Product{ProductID: "a"}, Final: 0.9},
		{Product: &model.Product{ProductID: "b"}, Final: 0.5},
	}
	rng := rand.New(rand.NewSource(1))

	picked, err := SelectTopK(candidates, 5, rng)
	require.NoError(t, err)
	require.Len(t, picked, 2, "count > scored population must return as many as possible")
}

func TestSelectTopKNoDuplicatesWithinOneSelection(t *testing.T) {
	candidates := make([]Scored, 10)
	for i := range candidates {
		candidates[i] = Scored{Product: &model.Product{ProductID: string(rune('a' + i))}, Final: float64(i)}
	}
	rng := rand.New(rand.NewSource(7))

	picked, err := SelectTopK(candidates, 5, rng)
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, p := range picked {
		require.False(t, seen[p.Product.ProductID], "no intra-recommendation duplication")
		seen[p.Product.ProductID] = true
	}
}
