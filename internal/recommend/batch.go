package recommend

import "context"

// MaxBatchSize is the ≤10 cap on /api/recommendations/batch requests
// (spec.md §6).
const MaxBatchSize = 10

// BatchItem is one element of a batch recommend request.
type BatchItem struct {
	SessionID string
	Filters   Filters
	Count     int
}

// BatchResult pairs a BatchItem's outcome with its position, so the
// caller can aggregate partial success (spec.md §4.5's batch variant,
// C5a).
type BatchResult struct {
	Index    int
	Response *Response
	Err      error
}

// RecommendBatch runs every item independently (recommend operations
// across sessions are fully parallel, spec.md §5) and collects results
// in request order, never failing the whole batch for one item's error.
func (e *Engine) RecommendBatch(ctx context.Context, items []BatchItem) []BatchResult {
	results := make([]BatchResult, len(items))
	done := make(chan BatchResult, len(items))

	for i, item := range items {
		go func(i int, item BatchItem) {
			resp, err := e.Recommend(ctx, Request{SessionID: item.SessionID, Filters: item.Filters, Count: item.Count})
			done <- BatchResult{Index: i, Response: resp, Err: err}
		}(i, item)
	}

	for range items {
		r := <-done
		results[r.Index] = r
	}
	return results
}
