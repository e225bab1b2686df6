// Package catalog ingests the product catalog from CSV into storage
// (SPEC_FULL component C1a, supplementing spec.md §4.1's pure feature
// extractor with the loading step the distillation omitted).
package catalog

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fashion-reco/reco-engine/internal/feature"
	"github.com/fashion-reco/reco-engine/internal/model"

	"github.com/google/uuid"
)

// Store is the subset of mongostore.Store ingestion needs.
type Store interface {
	UpsertProduct(ctx context.Context, p *model.Product) error
}

// requiredColumns lists the header columns every input must carry; any
// input missing one of them is rejected outright rather than guessed at.
var requiredColumns = []string{"brand", "category_main", "primary_color", "price"}

// LoadCSV streams rows from r, converts each to a Product with its
// feature vector precomputed, and upserts it via store. It returns the
// number of rows successfully ingested.
func LoadCSV(ctx context.Context, store Store, r io.Reader) (int, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return 0, fmt.Errorf("catalog: reading header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, req := range requiredColumns {
		if _, ok := col[req]; !ok {
			return 0, fmt.Errorf("catalog: missing required column %q", req)
		}
	}

	count := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return count, fmt.Errorf("catalog: reading row %d: %w", count+1, err)
		}

		p, err := rowToProduct(row, col)
		if err != nil {
			return count, fmt.Errorf("catalog: row %d: %w", count+1, err)
		}
		p.FeatureVector = feature.Extract(p)

		if err := store.UpsertProduct(ctx, p); err != nil {
			return count, fmt.Errorf("catalog: upserting %s: %w", p.ProductID, err)
		}
		count++
	}
	return count, nil
}

func rowToProduct(row []string, col map[string]int) (*model.Product, error) {
	get := func(name string) string {
		if i, ok := col[name]; ok && i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	price, err := strconv.ParseFloat(get("price"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid price %q: %w", get("price"), err)
	}

	id := get("product_id")
	if id == "" {
		id = uuid.NewString()
	}

	return &model.Product{
		ProductID:    id,
		Brand:        get("brand"),
		CategoryMain: get("category_main"),
		PrimaryColor: get("primary_color"),
		Occasion:     get("occasion"),
		Season:       get("season"),
		Style:        get("style"),
		Price:        price,
		DisplayName:  get("display_name"),
		ImageURL:     get("image_url"),
	}, nil
}
