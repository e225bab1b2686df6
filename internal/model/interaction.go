package model

import "time"

// Interaction is a write-once reward event. The ordered interactions for a
// session are the authoritative stream used to reconstruct its LinUCB
// model on demand (spec.md §3, §9).
type Interaction struct {
	ID            string    `bson:"_id" json:"id"`
	SessionID     string    `bson:"session_id" json:"session_id"`
	ProductID     string    `bson:"product_id" json:"product_id"`
	Action        Action    `bson:"action" json:"action"`
	Reward        float64   `bson:"reward" json:"reward"`
	FeatureVector []int     `bson:"feature_vector" json:"feature_vector"`
	ScoreBefore   float64   `bson:"score_before" json:"score_before"`
	ScoreAfter    float64   `bson:"score_after" json:"score_after"`
	Timestamp     time.Time `bson:"timestamp" json:"timestamp"`
}
