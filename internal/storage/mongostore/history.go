package mongostore

import (
	"context"
	"time"

	"github.com/fashion-reco/reco-engine/internal/model"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// RecordShown inserts a new session_history row for a just-served
// recommendation (spec.md C3's record_shown operation), then trims the
// session's history back to HistoryRetention entries.
func (s *Store) RecordShown(ctx context.Context, entry *model.SessionHistoryEntry) error {
	if err := insertOne(ctx, s.col(ColSessionHistory), entry); err != nil {
		return err
	}
	return s.trimHistory(ctx, entry.SessionID)
}

// trimHistory deletes session_history rows older than the HistoryRetention
// most recent ones for a session.
func (s *Store) trimHistory(ctx context.Context, sessionID string) error {
	opts := options.Find().
		SetSort(bson.D{{Key: "shown_at", Value: -1}}).
		SetSkip(model.HistoryRetention).
		SetProjection(bson.D{{Key: "_id", Value: 1}})

	cursor, err := s.col(ColSessionHistory).Find(ctx, bson.D{{Key: "session_id", Value: sessionID}}, opts)
	if err != nil {
		return wrapError(err)
	}
	defer cursor.Close(ctx)

	var stale []string
	for cursor.Next(ctx) {
		var row struct {
			ID string `bson:"_id"`
		}
		if err := cursor.Decode(&row); err != nil {
			return err
		}
		stale = append(stale, row.ID)
	}
	if len(stale) == 0 {
		return nil
	}

	_, err = s.col(ColSessionHistory).DeleteMany(ctx, bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: stale}}}})
	return wrapError(err)
}

// SetHistoryAction records the user's reaction to a previously-shown
// product (spec.md C3's set_action operation).
func (s *Store) SetHistoryAction(ctx context.Context, entryID string, action model.Action, at time.Time) error {
	return updateFields(ctx, s.col(ColSessionHistory), entryID, bson.D{
		{Key: "user_action", Value: action},
		{Key: "action_timestamp", Value: at},
	})
}

// GetHistory returns a session's history entries, most recent first,
// capped at limit (0 means HistoryRetention).
func (s *Store) GetHistory(ctx context.Context, sessionID string, limit int64) ([]*model.SessionHistoryEntry, error) {
	if limit <= 0 {
		limit = model.HistoryRetention
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "shown_at", Value: -1}}).
		SetLimit(limit)
	return findMany[model.SessionHistoryEntry](ctx, s.col(ColSessionHistory), bson.D{{Key: "session_id", Value: sessionID}}, opts)
}

// RecentlyShownProductIDs returns the product_ids in a session's last
// window entries, for the C4 exclusion window (W_excl, spec.md §4.3).
func (s *Store) RecentlyShownProductIDs(ctx context.Context, sessionID string, window int64) ([]string, error) {
	entries, err := s.GetHistory(ctx, sessionID, window)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ProductID
	}
	return ids, nil
}
