// Package recommend implements the recommendation orchestrator (spec.md
// §4.5, component C5): the pipeline that turns a session and a set of
// filters into one or more scored, diversity-selected products.
package recommend

import (
	"context"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/fashion-reco/reco-engine/internal/apperror"
	"github.com/fashion-reco/reco-engine/internal/bandit"
	"github.com/fashion-reco/reco-engine/internal/diversity"
	"github.com/fashion-reco/reco-engine/internal/feature"
	"github.com/fashion-reco/reco-engine/internal/logging"
	"github.com/fashion-reco/reco-engine/internal/model"
	"github.com/fashion-reco/reco-engine/internal/reccache"
	"github.com/fashion-reco/reco-engine/internal/sessionlock"
	"github.com/fashion-reco/reco-engine/internal/storage/mongostore"

	"github.com/google/uuid"
)

// Store is the subset of mongostore.Store the orchestrator depends on.
type Store interface {
	GetSession(ctx context.Context, sessionID string) (*model.Session, error)
	GetHistory(ctx context.Context, sessionID string, limit int64) ([]*model.SessionHistoryEntry, error)
	SampleCandidateProducts(ctx context.Context, f mongostore.ProductFilter) ([]*model.Product, error)
	GetProduct(ctx context.Context, productID string) (*model.Product, error)
	SessionInteractions(ctx context.Context, sessionID string) ([]*model.Interaction, error)
	RecordShown(ctx context.Context, entry *model.SessionHistoryEntry) error
}

// Engine wires the C2-C4 and C9 components into the C5 orchestration.
type Engine struct {
	store   Store
	locker  *sessionlock.Locker
	cache   *reccache.Cache
	log     *logging.Logger
	rewards model.RewardPolicy
}

// New builds an Engine. cache may be nil to disable C9 entirely (spec.md
// §4.9: "Cache MAY be disabled globally; correctness does not depend on
// it").
func New(store Store, locker *sessionlock.Locker, cache *reccache.Cache, log *logging.Logger) *Engine {
	return &Engine{
		store:   store,
		locker:  locker,
		cache:   cache,
		log:     log,
		rewards: model.DefaultRewardPolicy(),
	}
}

// Filters narrows the candidate pool; zero values mean "no filter".
type Filters struct {
	MinPrice float64
	MaxPrice float64
	Category string
}

// Canonical renders f deterministically for the C9 cache key.
func (f Filters) Canonical() string {
	var b strings.Builder
	b.WriteString("min=")
	b.WriteString(strconv.FormatFloat(f.MinPrice, 'f', -1, 64))
	b.WriteString("&max=")
	b.WriteString(strconv.FormatFloat(f.MaxPrice, 'f', -1, 64))
	b.WriteString("&cat=")
	b.WriteString(f.Category)
	return b.String()
}

// Request is one recommend() call per spec.md §4.5.
type Request struct {
	SessionID string
	Filters   Filters
	Count     int
}

// Scored mirrors diversity.Scored for the response shape, carrying the
// product and every score component the caller surfaces.
type Scored struct {
	Product          *model.Product `json:"product"`
	ConfidenceScore  float64        `json:"confidence_score"`
	BaseScore        float64        `json:"base_score"`
	DiversityBonus   float64        `json:"diversity_bonus"`
	ExplorationBonus float64        `json:"exploration_bonus"`
}

// Response is one recommend() call's result.
type Response struct {
	Recommendations []Scored
	Partial         bool // true when fewer than Count could be returned
	ProductsSeen    int
	TotalInteractions int
	ConfidenceTier  string
	Alpha           float64
	ExcludedCount   int
	Reasoning       string
	FromCache       bool
}

const candidatePoolMax = diversity.CandidatePoolMax

// Recommend runs the full C5 pipeline for one request, serialized per
// session via the sessionlock (spec.md §5).
func (e *Engine) Recommend(ctx context.Context, req Request) (*Response, error) {
	if req.Count <= 0 {
		req.Count = 1
	}

	var resp *Response
	err := sessionlock.WithLock(ctx, e.locker, req.SessionID, func() error {
		r, err := e.recommendLocked(ctx, req)
		resp = r
		return err
	})
	return resp, err
}

func (e *Engine) recommendLocked(ctx context.Context, req Request) (resp *Response, err error) {
	start := time.Now()
	candidateCount := 0
	defer func() {
		selectedCount := 0
		if resp != nil {
			selectedCount = len(resp.Recommendations)
		}
		e.log.WithSession(req.SessionID).RecommendLog(req.SessionID, candidateCount, selectedCount, time.Since(start), err)
	}()

	sess, err := e.store.GetSession(ctx, req.SessionID)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindInternal, "loading session", err)
	}
	if sess == nil {
		return nil, apperror.New(apperror.KindSessionNotFound, "session not found")
	}
	if !sess.Active() {
		return nil, apperror.New(apperror.KindSessionInactive, "session is inactive")
	}

	history, err := e.store.GetHistory(ctx, req.SessionID, 0)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindInternal, "loading history", err)
	}

	if e.cache != nil {
		key := reccache.Key(req.SessionID, req.Filters.Canonical(), req.Count, len(history))
		if cached, ok := e.cache.Get(key); ok {
			resp, decodeErr := decodeCachedResponse(cached)
			if decodeErr == nil {
				resp.FromCache = true
				return resp, nil
			}
		}
	}

	products, err := e.fetchHistoryProducts(ctx, history)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindInternal, "loading history products", err)
	}

	exclusion := diversity.ExclusionSet(history)
	avoidance := diversity.ComputeAvoidance(history, products)
	snapshot := diversity.BuildSnapshot(history, products)

	excludeIDs := make([]string, 0, len(exclusion))
	for id := range exclusion {
		excludeIDs = append(excludeIDs, id)
	}

	candidates, err := e.store.SampleCandidateProducts(ctx, mongostore.ProductFilter{
		CategoryMain:    req.Filters.Category,
		MinPrice:        req.Filters.MinPrice,
		MaxPrice:        req.Filters.MaxPrice,
		ExcludeIDs:      excludeIDs,
		AvoidCategories: avoidance.Categories,
		AvoidColors:     avoidance.Colors,
		AvoidBrands:     avoidance.Brands,
		Limit:           candidatePoolMax,
	})
	if err != nil {
		return nil, apperror.Wrap(apperror.KindInternal, "sampling candidates", err)
	}
	candidateCount = len(candidates)

	interactions, err := e.store.SessionInteractions(ctx, req.SessionID)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindInternal, "loading interactions", err)
	}
	bmodel, err := replay(sess, interactions)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindModelSingular, "model matrix is singular", err)
	}

	scored, err := e.scoreCandidates(bmodel, candidates, snapshot, sess.TotalInteractions, req.SessionID)
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	selected, err := diversity.SelectTopK(scored, req.Count, rng)
	if err != nil {
		return nil, apperror.New(apperror.KindNoCandidates, "no candidates available after filtering")
	}

	now := time.Now()
	out := make([]Scored, 0, len(selected))
	for _, s := range selected {
		conf, _ := bmodel.Confidence(feature.ToFloat64(s.Product.FeatureVector))
		out = append(out, Scored{
			Product:          s.Product,
			ConfidenceScore:  conf,
			BaseScore:        s.BaseScore,
			DiversityBonus:   s.DiversityBonus,
			ExplorationBonus: s.ExplorationBonus,
		})
		if err := e.store.RecordShown(ctx, &model.SessionHistoryEntry{
			ID:        uuid.NewString(),
			SessionID: req.SessionID,
			ProductID: s.Product.ProductID,
			ShownAt:   now,
		}); err != nil {
			return nil, apperror.Wrap(apperror.KindInternal, "recording shown product", err)
		}
	}

	resp = &Response{
		Recommendations:   out,
		Partial:           len(out) < req.Count,
		ProductsSeen:      len(history),
		TotalInteractions: sess.TotalInteractions,
		ConfidenceTier:    bandit.ConfidenceTier(sess.TotalInteractions, bmodel.Norm()),
		Alpha:             bmodel.Alpha,
		ExcludedCount:     len(exclusion),
		Reasoning:         reasoningFor(sess.TotalInteractions),
	}

	if e.cache != nil {
		key := reccache.Key(req.SessionID, req.Filters.Canonical(), req.Count, len(history))
		if encoded, encErr := encodeCachedResponse(resp); encErr == nil {
			e.cache.Put(key, req.SessionID, encoded)
		}
	}

	return resp, nil
}

func reasoningFor(totalInteractions int) string {
	if totalInteractions == 0 {
		return "exploratory: no prior interactions, ranking driven by confidence bound and diversity/exploration bonuses"
	}
	return "ranked by learned preference (UCB) blended with diversity and exploration bonuses"
}

// scoreCandidates computes u=ucb(x) plus C4's bonuses for every
// candidate with a valid feature vector; invalid vectors are silently
// dropped with a warning (spec.md §4.5 step 6).
func (e *Engine) scoreCandidates(bmodel *bandit.Model, candidates []*model.Product, snapshot diversity.UserPreferenceSnapshot, totalInteractions int, sessionID string) ([]diversity.Scored, error) {
	out := make([]diversity.Scored, 0, len(candidates))
	for _, p := range candidates {
		if !feature.Valid(p.FeatureVector) {
			e.log.WithSession(sessionID).Warn("dropping candidate with invalid feature vector", "product_id", p.ProductID)
			continue
		}
		x := feature.ToFloat64(p.FeatureVector)
		u, err := bmodel.UCB(x)
		if err != nil {
			return nil, apperror.Wrap(apperror.KindModelSingular, "model matrix is singular", err)
		}
		db := diversity.DiversityBonus(p, snapshot)
		eb := diversity.ExplorationBonus(totalInteractions)
		out = append(out, diversity.Scored{
			Product:          p,
			BaseScore:        u,
			DiversityBonus:   db,
			ExplorationBonus: eb,
			Final:            u + db + eb,
		})
	}
	return out, nil
}

// replay reconstructs the session's LinUCB state from its interaction
// log, the authoritative definition of model state (spec.md §9).
func replay(sess *model.Session, interactions []*model.Interaction) (*bandit.Model, error) {
	events := make([]bandit.Event, len(interactions))
	for i, it := range interactions {
		events[i] = bandit.Event{FeatureVector: it.FeatureVector, Reward: it.Reward}
	}
	return bandit.Replay(sess.Dimensions, sess.Alpha, events)
}

// fetchHistoryProducts resolves the distinct products referenced by
// history, for the diversity snapshot/avoidance joins.
func (e *Engine) fetchHistoryProducts(ctx context.Context, history []*model.SessionHistoryEntry) (map[string]*model.Product, error) {
	products := make(map[string]*model.Product, len(history))
	for _, h := range history {
		if _, ok := products[h.ProductID]; ok {
			continue
		}
		p, err := e.store.GetProduct(ctx, h.ProductID)
		if err != nil {
			return nil, err
		}
		if p != nil {
			products[h.ProductID] = p
		}
	}
	return products, nil
}
