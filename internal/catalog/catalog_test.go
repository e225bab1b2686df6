package catalog

import (
	"context"
	"strings"
	"testing"

	"github.com/fashion-reco/reco-engine/internal/model"

	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	products []*model.Product
}

func (f *fakeStore) UpsertProduct(ctx context.Context, p *model.Product) error {
	f.products = append(f.products, p)
	return nil
}

const sampleCSV = `product_id,brand,category_main,primary_color,occasion,season,style,price,display_name
P1,Acme,tops,black,casual,summer,classic,29.99,Acme Tee
P2,Acme,bottoms,navy,formal,,trendy,59.00,Acme Trousers
`

func TestLoadCSVIngestsEveryRow(t *testing.T) {
	store := &fakeStore{}
	n, err := LoadCSV(context.Background(), store, strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Len(t, store.products, 2)
	require.Equal(t, "P1", store.products[0].ProductID)
	require.Equal(t, 29.99, store.products[0].Price)
	require.NotEmpty(t, store.products[0].FeatureVector)
}

func TestLoadCSVFoldsSynonymsIntoFeatureVector(t *testing.T) {
	store := &fakeStore{}
	_, err := LoadCSV(context.Background(), store, strings.NewReader(sampleCSV))
	require.NoError(t, err)

	// "navy" folds to "blue" per the synonym table (spec.md §4.1).
	p2 := store.products[1]
	require.Equal(t, 1, p2.FeatureVector[5+3]) // colorSlot starts at 5, blue is index 3
}

func TestLoadCSVRejectsMissingRequiredColumn(t *testing.T) {
	store := &fakeStore{}
	_, err := LoadCSV(context.Background(), store, strings.NewReader("brand,price\nAcme,10\n"))
	require.Error(t, err)
}

func TestLoadCSVGeneratesIDWhenAbsent(t *testing.T) {
	store := &fakeStore{}
	csv := "brand,category_main,primary_color,price\nAcme,tops,black,10\n"
	_, err := LoadCSV(context.Background(), store, strings.NewReader(csv))
	require.NoError(t, err)
	require.NotEmpty(t, store.products[0].ProductID)
}
