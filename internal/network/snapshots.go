package network

import (
	"errors"
	"fmt"
)

// Snapshots is the ordered time index the model is built over. For
// multi-period investment studies every snapshot additionally carries its
// investment period (a year); a nil period slice means a single flat horizon.
type Snapshots struct {
	labels  []string
	periods []int // per-snapshot investment period; nil = single horizon

	// ObjectiveWeight scales marginal costs, StoreWeight is the elapsed-hours
	// factor used by the storage recursions. Both default to 1.
	objectiveW []float64
	storeW     []float64
}

// NewSnapshots builds a flat snapshot index from unique, ordered labels.
func NewSnapshots(labels []string) (*Snapshots, error) {
	if len(labels) == 0 {
		return nil, errors.New("snapshots must not be empty")
	}
	seen := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		if _, ok := seen[l]; ok {
			return nil, fmt.Errorf("duplicate snapshot label %q", l)
		}
		seen[l] = struct{}{}
	}
	s := &Snapshots{labels: labels}
	s.objectiveW = ones(len(labels))
	s.storeW = ones(len(labels))
	return s, nil
}

// NewPeriodSnapshots builds a two-level index for multi-period investment
// studies. periods must be non-decreasing and aligned with labels.
func NewPeriodSnapshots(labels []string, periods []int) (*Snapshots, error) {
	s, err := NewSnapshots(labels)
	if err != nil {
		return nil, err
	}
	if len(periods) != len(labels) {
		return nil, errors.New("periods must align with snapshot labels")
	}
	for i := 1; i < len(periods); i++ {
		if periods[i] < periods[i-1] {
			return nil, errors.New("investment periods must be ordered")
		}
	}
	s.periods = periods
	return s, nil
}

func ones(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 1
	}
	return w
}

func (s *Snapshots) Len() int { return len(s.labels) }

func (s *Snapshots) Label(t int) string { return s.labels[t] }

func (s *Snapshots) Labels() []string { return s.labels }

// MultiPeriod reports whether the index carries investment periods.
func (s *Snapshots) MultiPeriod() bool { return s.periods != nil }

// Period returns the investment period of snapshot t, or 0 for flat indexes.
func (s *Snapshots) Period(t int) int {
	if s.periods == nil {
		return 0
	}
	return s.periods[t]
}

// Periods returns the ordered distinct investment periods (nil when flat).
func (s *Snapshots) Periods() []int {
	if s.periods == nil {
		return nil
	}
	var out []int
	for i, p := range s.periods {
		if i == 0 || p != s.periods[i-1] {
			out = append(out, p)
		}
	}
	return out
}

func (s *Snapshots) ObjectiveWeight(t int) float64 { return s.objectiveW[t] }

func (s *Snapshots) StoreWeight(t int) float64 { return s.storeW[t] }

// SetWeights overrides the objective and store weightings. Either argument
// may be nil to keep the current values.
func (s *Snapshots) SetWeights(objective, store []float64) error {
	if objective != nil {
		if len(objective) != len(s.labels) {
			return errors.New("objective weightings must align with snapshots")
		}
		s.objectiveW = objective
	}
	if store != nil {
		if len(store) != len(s.labels) {
			return errors.New("store weightings must align with snapshots")
		}
		s.storeW = store
	}
	return nil
}
