package store

import (
	"sort"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
)

// SimilarSignal pairs a signal with its name similarity to a reference.
type SimilarSignal struct {
	Signal     *Signal `json:"signal"`
	Similarity float64 `json:"similarity"`
}

// SimilarSignals ranks recent signals by type-name similarity to the given
// signal, for the "related incident patterns" panel. The reference signal
// itself is excluded.
func (s *Store) SimilarSignals(signalID string, limit int) ([]SimilarSignal, error) {
	if limit <= 0 {
		limit = 5
	}
	ref, err := s.GetSignal(signalID)
	if err != nil {
		return nil, err
	}

	candidates, err := s.ListSignals(SignalFilter{Limit: 200})
	if err != nil {
		return nil, err
	}

	jw := metrics.NewJaroWinkler()
	out := []SimilarSignal{}
	for _, cand := range candidates {
		if cand.ID == ref.ID {
			continue
		}
		score := strutil.Similarity(ref.Type, cand.Type, jw)
		if cand.Source == ref.Source {
			score = (score + 1) / 2
		}
		out = append(out, SimilarSignal{Signal: cand, Similarity: round1(score * 100)})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Similarity > out[j].Similarity
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
