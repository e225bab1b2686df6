package mongostore

import (
	"context"

	"github.com/fashion-reco/reco-engine/internal/model"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// GetProduct fetches one product by product_id, returning (nil, nil) if
// it does not exist.
func (s *Store) GetProduct(ctx context.Context, productID string) (*model.Product, error) {
	return findOne[model.Product](ctx, s.col(ColProducts), bson.D{{Key: "_id", Value: productID}})
}

// ProductFilter narrows a candidate query; zero values are "no filter".
// AvoidCategories/AvoidColors/AvoidBrands implement the C4 avoidance
// rules (spec.md §4.4): facet values the loved-items history has
// saturated are excluded from the candidate pool, not just deprioritized.
type ProductFilter struct {
	CategoryMain string
	MinPrice     float64
	MaxPrice     float64
	ExcludeIDs   []string

	AvoidCategories []string
	AvoidColors     []string
	AvoidBrands     []string

	Limit int64
}

func (f ProductFilter) match() bson.D {
	filter := bson.D{}
	if f.CategoryMain != "" {
		filter = append(filter, bson.E{Key: "category_main", Value: f.CategoryMain})
	}
	if f.MinPrice > 0 || f.MaxPrice > 0 {
		priceRange := bson.D{}
		if f.MinPrice > 0 {
			priceRange = append(priceRange, bson.E{Key: "$gte", Value: f.MinPrice})
		}
		if f.MaxPrice > 0 {
			priceRange = append(priceRange, bson.E{Key: "$lte", Value: f.MaxPrice})
		}
		filter = append(filter, bson.E{Key: "price", Value: priceRange})
	}
	if len(f.ExcludeIDs) > 0 {
		filter = append(filter, bson.E{Key: "_id", Value: bson.D{{Key: "$nin", Value: f.ExcludeIDs}}})
	}
	if len(f.AvoidCategories) > 0 {
		filter = append(filter, bson.E{Key: "category_main", Value: bson.D{{Key: "$nin", Value: f.AvoidCategories}}})
	}
	if len(f.AvoidColors) > 0 {
		filter = append(filter, bson.E{Key: "primary_color", Value: bson.D{{Key: "$nin", Value: f.AvoidColors}}})
	}
	if len(f.AvoidBrands) > 0 {
		filter = append(filter, bson.E{Key: "brand", Value: bson.D{{Key: "$nin", Value: f.AvoidBrands}}})
	}
	return filter
}

// SampleCandidateProducts draws a uniform random sample of size up to
// f.Limit from the rows matching f, via $sample (spec.md §4.4: "Sampling
// ensures diversity across runs even when the matching set is large").
func (s *Store) SampleCandidateProducts(ctx context.Context, f ProductFilter) ([]*model.Product, error) {
	size := f.Limit
	if size <= 0 {
		size = 1
	}
	pipeline := bson.A{
		bson.D{{Key: "$match", Value: f.match()}},
		bson.D{{Key: "$sample", Value: bson.D{{Key: "size", Value: size}}}},
	}
	cursor, err := s.col(ColProducts).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, wrapError(err)
	}
	defer cursor.Close(ctx)

	var out []*model.Product
	for cursor.Next(ctx) {
		var p model.Product
		if err := cursor.Decode(&p); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	if out == nil {
		out = []*model.Product{}
	}
	return out, nil
}

// UpsertProduct inserts or replaces a product by product_id, for
// catalog ingestion (spec.md SPEC_FULL C1a).
func (s *Store) UpsertProduct(ctx context.Context, p *model.Product) error {
	_, err := s.col(ColProducts).ReplaceOne(ctx,
		bson.D{{Key: "_id", Value: p.ProductID}},
		p,
		options.Replace().SetUpsert(true),
	)
	return wrapError(err)
}

// CountProducts returns the catalog size, for the admin/health report.
func (s *Store) CountProducts(ctx context.Context) (int64, error) {
	n, err := s.col(ColProducts).CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, wrapError(err)
	}
	return n, nil
}
