// Package feedback implements the feedback processor (spec.md §4.6,
// component C6): the pipeline that records a user's reaction to a shown
// product, updates the session's LinUCB state, and reports the learning
// delta.
package feedback

import (
	"context"
	"time"

	"github.com/fashion-reco/reco-engine/internal/apperror"
	"github.com/fashion-reco/reco-engine/internal/bandit"
	"github.com/fashion-reco/reco-engine/internal/feature"
	"github.com/fashion-reco/reco-engine/internal/logging"
	"github.com/fashion-reco/reco-engine/internal/model"
	"github.com/fashion-reco/reco-engine/internal/reccache"
	"github.com/fashion-reco/reco-engine/internal/sessionlock"

	"github.com/google/uuid"
)

// Store is the subset of mongostore.Store the processor depends on.
type Store interface {
	GetSession(ctx context.Context, sessionID string) (*model.Session, error)
	GetProduct(ctx context.Context, productID string) (*model.Product, error)
	GetHistory(ctx context.Context, sessionID string, limit int64) ([]*model.SessionHistoryEntry, error)
	SetHistoryAction(ctx context.Context, entryID string, action model.Action, at time.Time) error
	SessionInteractions(ctx context.Context, sessionID string) ([]*model.Interaction, error)
	AppendInteraction(ctx context.Context, it *model.Interaction) error
	DeleteInteraction(ctx context.Context, id string) error
	TouchSession(ctx context.Context, sessionID string, newAlpha float64, now time.Time) error
}

// Processor wires C2/C3/C7/C9 into the C6 pipeline.
type Processor struct {
	store   Store
	locker  *sessionlock.Locker
	cache   *reccache.Cache
	log     *logging.Logger
	rewards model.RewardPolicy
}

// New builds a Processor. cache may be nil.
func New(store Store, locker *sessionlock.Locker, cache *reccache.Cache, log *logging.Logger) *Processor {
	return &Processor{store: store, locker: locker, cache: cache, log: log, rewards: model.DefaultRewardPolicy()}
}

// Request is one feedback() call per spec.md §4.6. Guard-related fields
// (idempotency key, the C7 decision) are handled by the caller before
// Process runs; Process assumes the guard has already passed.
type Request struct {
	SessionID string
	ProductID string
	Action    model.Action
}

// Result is the learning-update report spec.md §4.6 step 10 asks for.
type Result struct {
	ScoreBefore       float64
	ScoreAfter        float64
	Reward            float64
	TotalInteractions int
	Alpha             float64
	ConfidenceTier    string
	TopPositive       []bandit.ThetaComponent
	TopNegative       []bandit.ThetaComponent
}

// Process runs steps 2-7 and 9 of the feedback pipeline (spec.md §4.6);
// the guard's step 1, marking the guard entry processed (step 8) and the
// HTTP envelope of step 10 are the caller's job.
func (p *Processor) Process(ctx context.Context, req Request) (*Result, error) {
	if !req.Action.Valid() {
		return nil, apperror.New(apperror.KindValidation, "action must be one of love|like|dislike|skip|neutral").
			WithDetails(map[string]any{"action": string(req.Action)})
	}

	var result *Result
	err := sessionlock.WithLock(ctx, p.locker, req.SessionID, func() error {
		r, err := p.processLocked(ctx, req)
		result = r
		return err
	})
	return result, err
}

func (p *Processor) processLocked(ctx context.Context, req Request) (result *Result, err error) {
	defer func() {
		reward := 0.0
		if result != nil {
			reward = result.Reward
		}
		p.log.WithSession(req.SessionID).FeedbackLog(req.SessionID, req.ProductID, string(req.Action), reward, err)
	}()

	sess, err := p.store.GetSession(ctx, req.SessionID)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindInternal, "loading session", err)
	}
	if sess == nil {
		return nil, apperror.New(apperror.KindSessionNotFound, "session not found")
	}

	product, err := p.store.GetProduct(ctx, req.ProductID)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindInternal, "loading product", err)
	}
	if product == nil {
		return nil, apperror.New(apperror.KindProductNotFound, "product not found")
	}

	if !feature.Valid(product.FeatureVector) {
		return nil, apperror.New(apperror.KindValidation, "product has no valid feature vector")
	}
	x := feature.ToFloat64(product.FeatureVector)

	entryID, err := p.mostRecentShownEntry(ctx, req.SessionID, req.ProductID)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindInternal, "loading history", err)
	}

	now := time.Now()
	if entryID != "" {
		if err := p.store.SetHistoryAction(ctx, entryID, req.Action, now); err != nil {
			return nil, apperror.Wrap(apperror.KindInternal, "setting history action", err)
		}
		// No-op + warning if no match, per spec.md §4.3's set_action
		// contract; entryID == "" already covers the no-match case.
	} else {
		p.log.WithSession(req.SessionID).Warn("set_action found no matching history entry", "product_id", req.ProductID)
	}

	interactions, err := p.store.SessionInteractions(ctx, req.SessionID)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindInternal, "loading interactions", err)
	}
	bmodel, err := bandit.Replay(sess.Dimensions, sess.Alpha, toEvents(interactions))
	if err != nil {
		return p.rollbackHistoryAction(ctx, entryID, apperror.Wrap(apperror.KindModelSingular, "model matrix is singular", err))
	}

	scoreBefore, err := bmodel.UCB(x)
	if err != nil {
		return p.rollbackHistoryAction(ctx, entryID, apperror.Wrap(apperror.KindModelSingular, "model matrix is singular", err))
	}

	reward := p.rewards.Reward(req.Action)
	if err := bmodel.Update(x, reward); err != nil {
		return p.rollbackHistoryAction(ctx, entryID, apperror.Wrap(apperror.KindModelSingular, "model matrix is singular", err))
	}

	scoreAfter, err := bmodel.UCB(x)
	if err != nil {
		return p.rollbackHistoryAction(ctx, entryID, apperror.Wrap(apperror.KindModelSingular, "model matrix is singular", err))
	}

	interaction := &model.Interaction{
		ID:            uuid.NewString(),
		SessionID:     req.SessionID,
		ProductID:     req.ProductID,
		Action:        req.Action,
		Reward:        reward,
		FeatureVector: product.FeatureVector,
		ScoreBefore:   scoreBefore,
		ScoreAfter:    scoreAfter,
		Timestamp:     now,
	}
	if err := p.store.AppendInteraction(ctx, interaction); err != nil {
		// Cross-collection write failure after the history mutation
		// already committed: compensate per spec.md §7's recovery
		// policy rather than leave the two writes inconsistent.
		return p.rollbackHistoryAction(ctx, entryID, apperror.Wrap(apperror.KindInternal, "appending interaction", err))
	}

	sess.Alpha = bmodel.Alpha
	sess.TotalInteractions++
	bmodel.DecayAlpha(sess.TotalInteractions)
	if err := p.store.TouchSession(ctx, req.SessionID, bmodel.Alpha, now); err != nil {
		if delErr := p.store.DeleteInteraction(ctx, interaction.ID); delErr != nil {
			p.log.WithSession(req.SessionID).WithError(delErr).Error("compensation failed: interaction left without a session touch", "interaction_id", interaction.ID)
		}
		return nil, apperror.Wrap(apperror.KindInternal, "touching session", err)
	}

	if p.cache != nil {
		p.cache.InvalidateSession(req.SessionID)
	}

	tier := bandit.ConfidenceTier(sess.TotalInteractions, bmodel.Norm())
	pos, neg := bandit.TopComponents(bmodel.Theta, 3, feature.SlotName)

	return &Result{
		ScoreBefore:       scoreBefore,
		ScoreAfter:        scoreAfter,
		Reward:            reward,
		TotalInteractions: sess.TotalInteractions,
		Alpha:             bmodel.Alpha,
		ConfidenceTier:    tier,
		TopPositive:       pos,
		TopNegative:       neg,
	}, nil
}

// rollbackHistoryAction clears a history entry's action after a later
// step failed, so the two mutations do not drift out of sync (spec.md
// §7's recovery policy). It logs a best-effort failure rather than
// masking the original error.
func (p *Processor) rollbackHistoryAction(ctx context.Context, entryID string, original error) (*Result, error) {
	if entryID == "" {
		return nil, original
	}
	if err := p.store.SetHistoryAction(ctx, entryID, "", time.Time{}); err != nil {
		p.log.WithError(err).Error("rollback of history action failed", "entry_id", entryID)
	}
	return nil, original
}

// mostRecentShownEntry finds the newest session_history row for
// (sessionID, productID), whether or not an action is already recorded
// on it, i.e. the row set_action updates (spec.md §4.3). Returns "" if
// none match.
func (p *Processor) mostRecentShownEntry(ctx context.Context, sessionID, productID string) (string, error) {
	history, err := p.store.GetHistory(ctx, sessionID, 0)
	if err != nil {
		return "", err
	}
	for _, h := range history {
		if h.ProductID == productID {
			return h.ID, nil
		}
	}
	return "", nil
}

func toEvents(interactions []*model.Interaction) []bandit.Event {
	events := make([]bandit.Event, len(interactions))
	for i, it := range interactions {
		events[i] = bandit.Event{FeatureVector: it.FeatureVector, Reward: it.Reward}
	}
	return events
}
