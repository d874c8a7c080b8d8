// Package classifier agrupa los clasificadores de estado. Todos comparten el contrato
// Assess(window, profile) -> (lectura, confianza) y ninguno decide según el segmento:
// solo leen los sub-modelos tipados del perfil.
package classifier

import (
	"neurostate/internal/domain"
)

// DefaultMinObservations es el mínimo de entradas en la ventana para evaluar.
const DefaultMinObservations = 3

type EnergyAssessor interface {
	Assess(w domain.SignalWindow, p domain.SegmentProfile) (*domain.EnergyReading, float64)
}

type SensoryAssessor interface {
	Assess(w domain.SignalWindow, p domain.SegmentProfile) (*domain.SensoryReading, float64)
}

type InertiaAssessor interface {
	Assess(w domain.SignalWindow, p domain.SegmentProfile) (*domain.InertiaReading, float64)
}

type BurnoutAssessor interface {
	Assess(w domain.SignalWindow, p domain.SegmentProfile) (*domain.BurnoutReading, float64)
}

type MaskingAssessor interface {
	Assess(w domain.SignalWindow, p domain.SegmentProfile) (*domain.MaskingReading, float64)
}

type ChannelAssessor interface {
	Assess(w domain.SignalWindow, p domain.SegmentProfile) (*domain.ChannelReading, float64)
}

// Set es el conjunto de clasificadores que usa el constructor de snapshots.
type Set struct {
	Energy  EnergyAssessor
	Sensory SensoryAssessor
	Inertia InertiaAssessor
	Burnout BurnoutAssessor
	Masking MaskingAssessor
	Channel ChannelAssessor
}

// NewSet arma el conjunto por defecto con el mismo mínimo de observaciones.
func NewSet(minObservations int) Set {
	if minObservations <= 0 {
		minObservations = DefaultMinObservations
	}
	return Set{
		Energy:  EnergyPredictor{MinObservations: minObservations},
		Sensory: SensoryLoadAssessor{MinObservations: minObservations},
		Inertia: InertiaDetector{MinObservations: minObservations},
		Burnout: BurnoutClassifier{MinObservations: minObservations},
		Masking: MaskingLoadTracker{MinObservations: minObservations},
		Channel: ChannelDominanceDetector{MinObservations: minObservations},
	}
}

func sufficient(w domain.SignalWindow, min int) bool {
	if min <= 0 {
		min = DefaultMinObservations
	}
	return w.Len() >= min
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func lastN(obs []domain.Observation, n int) []domain.Observation {
	if len(obs) <= n {
		return obs
	}
	return obs[len(obs)-n:]
}
