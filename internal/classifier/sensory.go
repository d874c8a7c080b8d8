package classifier

import "neurostate/internal/domain"

// SensoryLoadAssessor solo corre cuando el perfil acumula carga sensorial.
type SensoryLoadAssessor struct {
	MinObservations int
}

func (s SensoryLoadAssessor) Assess(w domain.SignalWindow, p domain.SegmentProfile) (*domain.SensoryReading, float64) {
	if !p.SensoryAccumulates || !sufficient(w, s.MinObservations) {
		return nil, 0
	}
	load, n, recovered := sensoryAccumulation(w, p)
	confidence := clamp01(0.4 + 0.15*float64(n))
	return &domain.SensoryReading{
		Load:             load,
		Confidence:       confidence,
		RecoveryObserved: recovered,
	}, confidence
}
