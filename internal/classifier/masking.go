package classifier

import "neurostate/internal/domain"

// MaskingLoadTracker acumula costo lineal, o exponencial con dominancia de canal.
type MaskingLoadTracker struct {
	MinObservations int
}

func (m MaskingLoadTracker) Assess(w domain.SignalWindow, p domain.SegmentProfile) (*domain.MaskingReading, float64) {
	if !sufficient(w, m.MinObservations) {
		return nil, 0
	}
	cost, peak, n := maskingAccumulation(w, p)
	model := domain.MaskingLinear
	if p.ChannelDominanceEnabled {
		model = domain.MaskingExponential
	}
	confidence := clamp01(0.4 + 0.15*float64(n))
	return &domain.MaskingReading{
		Cost:         cost,
		Model:        model,
		PeakContexts: peak,
		Confidence:   confidence,
	}, confidence
}
