package bandit

// Event is the minimal (x, r) pair replay needs from an Interaction.
type Event struct {
	FeatureVector []int
	Reward        float64
}

// Replay reconstructs a session's LinUCB model by folding its ordered
// interaction history through fresh Update calls. This is the
// authoritative definition of model state (spec.md §3, §9): any cached
// (A, b, theta) must remain equivalent to this replay.
func Replay(dim int, alpha float64, events []Event) (*Model, error) {
	m := New(dim, alpha)
	for _, e := range events {
		x := make([]float64, dim)
		for i, v := range e.FeatureVector {
			if i < dim {
				x[i] = float64(v)
			}
		}
		if err := m.Update(x, e.Reward); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ConfidenceTier buckets a session's learning progress per spec.md
// §4.2's table, using interaction count and ||theta||.
func ConfidenceTier(totalInteractions int, thetaNorm float64) string {
	switch {
	case totalInteractions >= 20 && thetaNorm > 1.0:
		return "very_high"
	case totalInteractions >= 10 && thetaNorm > 0.5:
		return "high"
	case totalInteractions >= 5 && thetaNorm > 0.3:
		return "medium"
	case totalInteractions >= 3:
		return "low"
	default:
		return "very_low"
	}
}

// ThetaComponent names one dimension of theta for the insights report.
type ThetaComponent struct {
	Index int     `json:"index"`
	Slot  string  `json:"slot"`
	Value float64 `json:"value"`
}

// TopComponents returns the k most positive and k most negative theta
// components, each mapped to its slot name via slotName.
func TopComponents(theta []float64, k int, slotName func(int) string) (positive, negative []ThetaComponent) {
	all := make([]ThetaComponent, len(theta))
	for i, v := range theta {
		all[i] = ThetaComponent{Index: i, Slot: slotName(i), Value: v}
	}

	pos := append([]ThetaComponent(nil), all...)
	sortDesc(pos)
	for _, c := range pos {
		if c.Value <= 0 {
			break
		}
		positive = append(positive, c)
		if len(positive) == k {
			break
		}
	}

	neg := append([]ThetaComponent(nil), all...)
	sortAsc(neg)
	for _, c := range neg {
		if c.Value >= 0 {
			break
		}
		negative = append(negative, c)
		if len(negative) == k {
			break
		}
	}
	return positive, negative
}

func sortDesc(c []ThetaComponent) {
	for i := 1; i < len(c); i++ {
		for j := i; j > 0 && c[j].Value > c[j-1].Value; j-- {
			c[j], c[j-1] = c[j-1], c[j]
		}
	}
}

func sortAsc(c []ThetaComponent) {
	for i := 1; i < len(c); i++ {
		for j := i; j > 0 && c[j].Value < c[j-1].Value; j-- {
			c[j], c[j-1] = c[j-1], c[j]
		}
	}
}
