package mongostore

import (
	"context"
	"time"

	"github.com/fashion-reco/reco-engine/internal/apperror"
	"github.com/fashion-reco/reco-engine/internal/model"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// CreateSession inserts a new session row.
func (s *Store) CreateSession(ctx context.Context, sess *model.Session) error {
	return insertOne(ctx, s.col(ColUserSessions), sess)
}

// GetSession fetches a session by id, returning (nil, nil) if absent.
func (s *Store) GetSession(ctx context.Context, sessionID string) (*model.Session, error) {
	return findOne[model.Session](ctx, s.col(ColUserSessions), bson.D{{Key: "_id", Value: sessionID}})
}

// TouchSession increments total_interactions by one, sets alpha to the
// decayed value the caller computed, and bumps updated_at — the only
// mutation the feedback processor makes to a session (spec.md §3).
func (s *Store) TouchSession(ctx context.Context, sessionID string, newAlpha float64, now time.Time) error {
	res, err := s.col(ColUserSessions).UpdateOne(ctx,
		bson.D{{Key: "_id", Value: sessionID}},
		bson.D{
			{Key: "$inc", Value: bson.D{{Key: "total_interactions", Value: 1}}},
			{Key: "$set", Value: bson.D{{Key: "alpha", Value: newAlpha}, {Key: "updated_at", Value: now}}},
		},
	)
	if err != nil {
		return wrapError(err)
	}
	if res.MatchedCount == 0 {
		return apperror.ErrNotFound
	}
	return nil
}

// DeactivateSession marks a session inactive; the core never deletes
// sessions (spec.md §3's lifecycle note).
func (s *Store) DeactivateSession(ctx context.Context, sessionID string, now time.Time) error {
	return updateFields(ctx, s.col(ColUserSessions), sessionID, bson.D{
		{Key: "status", Value: model.SessionInactive},
		{Key: "updated_at", Value: now},
	})
}
