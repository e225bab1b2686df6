package feedback

import (
	"context"
	"testing"
	"time"

	"github.com/fashion-reco/reco-engine/internal/apperror"
	"github.com/fashion-reco/reco-engine/internal/feature"
	"github.com/fashion-reco/reco-engine/internal/logging"
	"github.com/fashion-reco/reco-engine/internal/model"
	"github.com/fashion-reco/reco-engine/internal/sessionlock"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	sessions     map[string]*model.Session
	products     map[string]*model.Product
	history      map[string][]*model.SessionHistoryEntry
	interactions map[string][]*model.Interaction
	touched      int
	appended     int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sessions:     map[string]*model.Session{},
		products:     map[string]*model.Product{},
		history:      map[string][]*model.SessionHistoryEntry{},
		interactions: map[string][]*model.Interaction{},
	}
}

func (f *fakeStore) GetSession(ctx context.Context, sessionID string) (*model.Session, error) {
	return f.sessions[sessionID], nil
}

func (f *fakeStore) GetProduct(ctx context.Context, productID string) (*model.Product, error) {
	return f.products[productID], nil
}

func (f *fakeStore) GetHistory(ctx context.Context, sessionID string, limit int64) ([]*model.SessionHistoryEntry, error) {
	h := f.history[sessionID]
	out := make([]*model.SessionHistoryEntry, len(h))
	for i, e := range h {
		out[len(h)-1-i] = e
	}
	return out, nil
}

func (f *fakeStore) SetHistoryAction(ctx context.Context, entryID string, action model.Action, at time.Time) error {
	for _, list := range f.history {
		for _, h := range list {
			if h.ID == entryID {
				h.UserAction = &action
				h.ActionTimestamp = &at
				return nil
			}
		}
	}
	return apperror.ErrNotFound
}

func (f *fakeStore) SessionInteractions(ctx context.Context, sessionID string) ([]*model.Interaction, error) {
	return f.interactions[sessionID], nil
}

func (f *fakeStore) AppendInteraction(ctx context.Context, it *model.Interaction) error {
	f.interactions[it.SessionID] = append(f.interactions[it.SessionID], it)
	f.appended++
	return nil
}

func (f *fakeStore) DeleteInteraction(ctx context.Context, id string) error {
	for sid, list := range f.interactions {
		for i, it := range list {
			if it.ID == id {
				f.interactions[sid] = append(list[:i], list[i+1:]...)
				return nil
			}
		}
	}
	return apperror.ErrNotFound
}

func (f *fakeStore) TouchSession(ctx context.Context, sessionID string, newAlpha float64, now time.Time) error {
	sess, ok := f.sessions[sessionID]
	if !ok {
		return apperror.ErrNotFound
	}
	sess.Alpha = newAlpha
	sess.TotalInteractions++
	sess.UpdatedAt = now
	f.touched++
	return nil
}

func newTestProcessor(store Store) *Processor {
	return New(store, sessionlock.New(), nil, logging.Default("test"))
}

func makeProduct(id string) *model.Product {
	p := &model.Product{ProductID: id, CategoryMain: "tops", PrimaryColor: "black", Brand: "acme", Price: 10}
	p.FeatureVector = feature.Extract(p)
	return p
}

func TestProcessRecordsExactlyOneInteraction(t *testing.T) {
	store := newFakeStore()
	store.sessions["s1"] = &model.Session{SessionID: "s1", Alpha: 1.0, Dimensions: feature.Dimensions, Status: model.SessionActive}
	store.products["p1"] = makeProduct("p1")
	store.history["s1"] = []*model.SessionHistoryEntry{
		{ID: uuid.NewString(), SessionID: "s1", ProductID: "p1", ShownAt: time.Now()},
	}

	proc := newTestProcessor(store)
	result, err := proc.Process(context.Background(), Request{SessionID: "s1", ProductID: "p1", Action: model.ActionLove})
	require.NoError(t, err)
	require.Equal(t, 1, store.appended)
	require.Equal(t, 2.0, result.Reward)
	require.Equal(t, 1, store.touched)
}

func TestProcessRejectsInvalidAction(t *testing.T) {
	store := newFakeStore()
	proc := newTestProcessor(store)
	_, err := proc.Process(context.Background(), Request{SessionID: "s1", ProductID: "p1", Action: "obsessed"})
	require.Error(t, err)
	appErr, ok := apperror.As(err)
	require.True(t, ok)
	require.Equal(t, apperror.KindValidation, appErr.Kind)
}

func TestProcessReturns404OnMissingSession(t *testing.T) {
	store := newFakeStore()
	proc := newTestProcessor(store)
	_, err := proc.Process(context.Background(), Request{SessionID: "missing", ProductID: "p1", Action: model.ActionLike})
	require.Error(t, err)
	appErr, ok := apperror.As(err)
	require.True(t, ok)
	require.Equal(t, apperror.KindSessionNotFound, appErr.Kind)
}

func TestProcessReturns404OnMissingProduct(t *testing.T) {
	store := newFakeStore()
	store.sessions["s1"] = &model.Session{SessionID: "s1", Alpha: 1.0, Dimensions: feature.Dimensions, Status: model.SessionActive}
	proc := newTestProcessor(store)
	_, err := proc.Process(context.Background(), Request{SessionID: "s1", ProductID: "missing", Action: model.ActionLike})
	require.Error(t, err)
	appErr, ok := apperror.As(err)
	require.True(t, ok)
	require.Equal(t, apperror.KindProductNotFound, appErr.Kind)
}

func TestPositiveRewardIncreasesScore(t *testing.T) {
	store := newFakeStore()
	store.sessions["s1"] = &model.Session{SessionID: "s1", Alpha: 1.0, Dimensions: feature.Dimensions, Status: model.SessionActive}
	store.products["p1"] = makeProduct("p1")

	proc := newTestProcessor(store)
	result, err := proc.Process(context.Background(), Request{SessionID: "s1", ProductID: "p1", Action: model.ActionLove})
	require.NoError(t, err)
	require.GreaterOrEqual(t, result.ScoreAfter, result.ScoreBefore-1e-9)
}

func TestNegativeRewardDecreasesScore(t *testing.T) {
	store := newFakeStore()
	store.sessions["s1"] = &model.Session{SessionID: "s1", Alpha: 1.0, Dimensions: feature.Dimensions, Status: model.SessionActive}
	store.products["p1"] = makeProduct("p1")

	proc := newTestProcessor(store)
	result, err := proc.Process(context.Background(), Request{SessionID: "s1", ProductID: "p1", Action: model.ActionDislike})
	require.NoError(t, err)
	require.LessOrEqual(t, result.ScoreAfter, result.ScoreBefore+1e-9)
}

func TestProcessWarnsWithoutFailingWhenNoHistoryEntry(t *testing.T) {
	store := newFakeStore()
	store.sessions["s1"] = &model.Session{SessionID: "s1", Alpha: 1.0, Dimensions: feature.Dimensions, Status: model.SessionActive}
	store.products["p1"] = makeProduct("p1")

	proc := newTestProcessor(store)
	_, err := proc.Process(context.Background(), Request{SessionID: "s1", ProductID: "p1", Action: model.ActionSkip})
	require.NoError(t, err, "set_action is a no-op+warning on no match, not a failure (spec.md §4.3)")
}
