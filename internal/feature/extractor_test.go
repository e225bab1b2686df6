package feature

import (
	"testing"

	"github.com/fashion-reco/reco-engine/internal/model"
	"github.com/stretchr/testify/require"
)

func TestExtractShapeInvariant(t *testing.T) {
	products := []*model.Product{
		{CategoryMain: "Dresses", PrimaryColor: "Navy", Occasion: "Party", Season: "Summer", Style: "Boho"},
		{},
		{CategoryMain: "unknown-category", PrimaryColor: "gray"},
	}
	for _, p := range products {
		vec := Extract(p)
		require.Len(t, vec, Dimensions)
		require.True(t, Valid(vec), "feature vector must satisfy the shape invariant")
	}
}

func TestSynonymFolding(t *testing.T) {
	a := Extract(&model.Product{PrimaryColor: "gray"})
	b := Extract(&model.Product{PrimaryColor: "grey"})
	require.Equal(t, a, b)

	navy := Extract(&model.Product{PrimaryColor: "navy"})
	blue := Extract(&model.Product{PrimaryColor: "blue"})
	require.Equal(t, navy, blue)
}

func TestDeterministicAndIdempotent(t *testing.T) {
	p := &model.Product{CategoryMain: "Tops", PrimaryColor: "Black", Occasion: "Casual", Season: "Winter", Style: "Classic"}
	first := Extract(p)
	second := Extract(p)
	require.Equal(t, first, second)
}

func TestDefaultsApplyForMissingFields(t *testing.T) {
	vec := Extract(&model.Product{})
	require.True(t, Valid(vec))
	// category, occasion, and style always default; color/season may be zero.
	require.Equal(t, "category:tops", SlotName(0))
}

func TestSlotNameRoundTrip(t *testing.T) {
	require.Equal(t, "color:black", SlotName(5))
	require.Equal(t, "style:classic", SlotName(21))
}
