package recommend

import "encoding/json"

// cachedResponse is the JSON-serializable shape of Response stored in
// C9 (spec.md §4.9): the cache stores the prior response verbatim.
type cachedResponse struct {
	Recommendations   []Scored `json:"recommendations"`
	Partial           bool     `json:"partial"`
	ProductsSeen      int      `json:"products_seen"`
	TotalInteractions int      `json:"total_interactions"`
	ConfidenceTier    string   `json:"confidence_tier"`
	Alpha             float64  `json:"alpha"`
	ExcludedCount     int      `json:"excluded_count"`
	Reasoning         string   `json:"reasoning"`
}

func encodeCachedResponse(r *Response) ([]byte, error) {
	return json.Marshal(cachedResponse{
		Recommendations:   r.Recommendations,
		Partial:           r.Partial,
		ProductsSeen:      r.ProductsSeen,
		TotalInteractions: r.TotalInteractions,
		ConfidenceTier:    r.ConfidenceTier,
		Alpha:             r.Alpha,
		ExcludedCount:     r.ExcludedCount,
		Reasoning:         r.Reasoning,
	})
}

func decodeCachedResponse(data []byte) (*Response, error) {
	var c cachedResponse
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	return &Response{
		Recommendations:   c.Recommendations,
		Partial:           c.Partial,
		ProductsSeen:      c.ProductsSeen,
		TotalInteractions: c.TotalInteractions,
		ConfidenceTier:    c.ConfidenceTier,
		Alpha:             c.Alpha,
		ExcludedCount:     c.ExcludedCount,
		Reasoning:         c.Reasoning,
	}, nil
}
