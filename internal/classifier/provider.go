package classifier

import "context"

// Provider is one classification backend. Classify returns the single best
// detection, a *ProviderError for failures in the shared taxonomy, or the
// context's error when ctx ends first.
type Provider interface {
	Kind() Kind
	Classify(ctx context.Context, av Availability, p *Payload) (Detection, error)
}

// pickTop returns the index of the highest score, keeping the first on ties.
func pickTop(scores []float64) int {
	best := -1
	for i, s := range scores {
		if best < 0 || s > scores[best] {
			best = i
		}
	}
	return best
}
