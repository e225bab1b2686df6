package mongostore

import (
	"context"

	"github.com/fashion-reco/reco-engine/internal/model"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// AppendInteraction writes a write-once reward event (spec.md §3, §7's
// "two mutations" recovery note — callers are responsible for the
// history-update-then-append ordering and any rollback on failure).
func (s *Store) AppendInteraction(ctx context.Context, it *model.Interaction) error {
	return insertOne(ctx, s.col(ColInteractions), it)
}

// DeleteInteraction removes a previously-appended interaction, used for
// the best-effort compensation path when AppendInteraction's caller
// fails after the history mutation already committed.
func (s *Store) DeleteInteraction(ctx context.Context, id string) error {
	return deleteByID(ctx, s.col(ColInteractions), id)
}

// SessionInteractions returns a session's interactions in chronological
// order, the authoritative stream LinUCB replay folds over (spec.md §9).
func (s *Store) SessionInteractions(ctx context.Context, sessionID string) ([]*model.Interaction, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}})
	return findMany[model.Interaction](ctx, s.col(ColInteractions), bson.D{{Key: "session_id", Value: sessionID}}, opts)
}

// LovedFacets aggregates category_main/primary_color/brand counts among a
// session's love/like interactions, for the C4 avoidance rules (spec.md
// §4.3). Facet resolution joins back to the product catalog, so this
// walks interactions then looks up each product once.
func (s *Store) LovedFacets(ctx context.Context, sessionID string) (map[string]int, error) {
	interactions, err := findMany[model.Interaction](ctx, s.col(ColInteractions), bson.D{
		{Key: "session_id", Value: sessionID},
		{Key: "action", Value: bson.D{{Key: "$in", Value: []model.Action{model.ActionLove, model.ActionLike}}}},
	})
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, it := range interactions {
		p, err := s.GetProduct(ctx, it.ProductID)
		if err != nil || p == nil {
			continue
		}
		counts["category:"+p.CategoryMain]++
		counts["color:"+p.PrimaryColor]++
		counts["brand:"+p.Brand]++
	}
	return counts, nil
}
