package model

import "time"

// SessionStatus is the lifecycle state of a Session.
type SessionStatus string

const (
	SessionActive   SessionStatus = "active"
	SessionInactive SessionStatus = "inactive"
)

// Alpha bounds for LinUCB exploration (spec.md §4.2). DefaultAlpha is the
// starting exploration coefficient a freshly created session gets.
const (
	AlphaMin     = 0.05
	AlphaMax     = 2.0
	DefaultAlpha = 1.0
)

// Session is a per-user bandit context. Mutated only by feedback.
type Session struct {
	SessionID         string        `bson:"_id" json:"session_id"`
	UserID            string        `bson:"user_id" json:"user_id"`
	Alpha             float64       `bson:"alpha" json:"alpha"`
	Dimensions        int           `bson:"dimensions" json:"dimensions"`
	TotalInteractions int           `bson:"total_interactions" json:"total_interactions"`
	Status            SessionStatus `bson:"status" json:"status"`
	CreatedAt         time.Time     `bson:"created_at" json:"created_at"`
	UpdatedAt         time.Time     `bson:"updated_at" json:"updated_at"`
}

// Active reports whether the session may still serve traffic.
func (s *Session) Active() bool {
	return s != nil && s.Status == SessionActive
}
