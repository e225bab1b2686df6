package model

import "time"

// HistoryRetention is H_max from spec.md §3: the cap on retained
// session_history rows per session.
const HistoryRetention = 100

// SessionHistoryEntry records one shown-product event and, once the user
// reacts, the action taken on it.
type SessionHistoryEntry struct {
	ID               string     `bson:"_id" json:"id"`
	SessionID        string     `bson:"session_id" json:"session_id"`
	ProductID        string     `bson:"product_id" json:"product_id"`
	ShownAt          time.Time  `bson:"shown_at" json:"shown_at"`
	UserAction       *Action    `bson:"user_action" json:"user_action,omitempty"`
	ActionTimestamp  *time.Time `bson:"action_timestamp,omitempty" json:"action_timestamp,omitempty"`
}
