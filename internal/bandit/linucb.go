// Package bandit implements the per-session LinUCB contextual bandit
// (spec.md §4.2, component C2): expected reward, confidence bound, reward
// updates, and the derived insights/confidence-tier report.
package bandit

import (
	"fmt"
	"math"
)

// Lambda is the ridge regularization term added to A's diagonal at
// initialization and used in the singular-matrix retry ladder.
const Lambda = 0.01

// AlphaDecay and AlphaFloor drive the adaptive exploration schedule:
// after total_interactions > AlphaDecayThreshold, alpha decays toward
// AlphaFloor (spec.md §4.2).
const (
	AlphaDecay          = 0.95
	AlphaFloor          = 0.05
	AlphaDecayThreshold = 10
)

// ErrSingular is returned when A cannot be inverted even after the
// regularization retry; spec.md §4.2 calls this a fatal model error
// (model_singular, §7).
var ErrSingular = fmt.Errorf("bandit: model matrix is singular after regularized retry")

// Model is one session's LinUCB state: A (design matrix), b (reward
// accumulator), and the derived theta = A^-1 b.
type Model struct {
	Dim   int
	Alpha float64
	A     *matrix
	B     []float64
	Theta []float64
}

// New creates a fresh model: A = I*(1+lambda), b = 0, theta = 0, per
// spec.md §3 "Model state ... Initial values".
func New(dim int, alpha float64) *Model {
	m := &Model{
		Dim:   dim,
		Alpha: alpha,
		A:     identity(dim, 1+Lambda),
		B:     make([]float64, dim),
		Theta: make([]float64, dim),
	}
	return m
}

// ExpectedReward returns theta^T x.
func (m *Model) ExpectedReward(x []float64) float64 {
	return dot(m.Theta, x)
}

// Confidence returns alpha * sqrt(max(0, x^T A^-1 x)).
func (m *Model) Confidence(x []float64) (float64, error) {
	aInv, err := m.invertWithFallback()
	if err != nil {
		return 0, err
	}
	quad := dot(x, aInv.mulVec(x))
	return m.Alpha * math.Sqrt(math.Max(0, quad)), nil
}

// UCB returns ExpectedReward(x) + Confidence(x).
func (m *Model) UCB(x []float64) (float64, error) {
	conf, err := m.Confidence(x)
	if err != nil {
		return 0, err
	}
	return m.ExpectedReward(x) + conf, nil
}

// invertWithFallback inverts A, retrying once with A+lambda*I if the
// first attempt is singular (spec.md §4.2's retry ladder, fixed here to
// a single 1x rung before declaring failure — see DESIGN.md "matrix
// inversion fallback ordering").
func (m *Model) invertWithFallback() (*matrix, error) {
	inv, err := m.A.inverse()
	if err == nil {
		return inv, nil
	}
	regularized := m.A.add(identity(m.Dim, Lambda))
	inv, err = regularized.inverse()
	if err != nil {
		return nil, ErrSingular
	}
	return inv, nil
}

// Update applies an observed (x, r) pair: A <- A + x x^T; b <- b + r*x;
// theta <- A^-1 b. This is pure CPU-bound arithmetic and must run to
// completion without yielding mid-update (spec.md §5).
func (m *Model) Update(x []float64, r float64) error {
	m.A.addOuter(x)
	for i := range m.B {
		m.B[i] += r * x[i]
	}
	aInv, err := m.invertWithFallback()
	if err != nil {
		return err
	}
	m.Theta = aInv.mulVec(m.B)
	return nil
}

// DecayAlpha applies the adaptive exploration schedule (spec.md §4.2):
// after totalInteractions exceeds the threshold, alpha decays toward the
// floor and never exceeds AlphaMax (enforced by the caller at session
// creation time, not here).
func (m *Model) DecayAlpha(totalInteractions int) {
	if totalInteractions > AlphaDecayThreshold {
		m.Alpha = math.Max(AlphaFloor, m.Alpha*AlphaDecay)
	}
}

// Norm returns ||theta||, used by the confidence-tier derivation.
func (m *Model) Norm() float64 {
	return norm(m.Theta)
}
