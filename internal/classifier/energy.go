package classifier

import (
	"neurostate/internal/domain"
)

const energyRecent = 5

// EnergyPredictor combina auto-reporte y proxies conductuales según la confiabilidad
// interoceptiva del perfil.
type EnergyPredictor struct {
	MinObservations int
}

// sourceWeights devuelve (peso auto-reporte, peso conductual). Con confiabilidad baja el
// auto-reporte nunca supera el 10%.
func sourceWeights(r domain.InteroceptionReliability) (float64, float64) {
	switch r {
	case domain.InteroceptionHigh:
		return 0.7, 0.3
	case domain.InteroceptionModerate:
		return 0.55, 0.45
	case domain.InteroceptionLow:
		return 0.1, 0.9
	default:
		return 0.05, 0.95
	}
}

func (e EnergyPredictor) Assess(w domain.SignalWindow, p domain.SegmentProfile) (*domain.EnergyReading, float64) {
	if !sufficient(w, e.MinObservations) {
		return nil, 0
	}
	th := p.Thresholds

	var selfVals, behavVals []float64
	for _, o := range lastN(w.ByChannel(domain.ChannelSelfReport), energyRecent) {
		selfVals = append(selfVals, o.Value)
	}
	for _, o := range lastN(w.ByChannel(domain.ChannelBehavioral), energyRecent) {
		behavVals = append(behavVals, behavioralProxy(o, th, w))
	}

	ws, wb := sourceWeights(p.InteroceptionReliability)
	var score, sourceFactor float64
	switch {
	case len(selfVals) > 0 && len(behavVals) > 0:
		score = ws*mean(selfVals) + wb*mean(behavVals)
		sourceFactor = 1
	case len(behavVals) > 0:
		score = mean(behavVals)
		sourceFactor = 0.8
	case len(selfVals) > 0 && p.InteroceptionReliability.TrustsSelfReport():
		score = mean(selfVals)
		sourceFactor = 0.8
	default:
		// sin proxies conductuales y con auto-reporte no confiable no se evalúa
		return nil, 0
	}

	score = clamp01(score + e.modelAdjustment(w, p))

	coverage := clamp01(float64(len(selfVals)+len(behavVals)) / float64(2*max(e.MinObservations, 1)))
	confidence := clamp01(coverage * sourceFactor)

	return &domain.EnergyReading{
		Score:      score,
		Level:      energyLevel(score, th),
		Confidence: confidence,
	}, confidence
}

func (e EnergyPredictor) modelAdjustment(w domain.SignalWindow, p domain.SegmentProfile) float64 {
	switch p.EnergyModel {
	case domain.EnergyInterestBased:
		return interestBoost(w, p)
	case domain.EnergySensoryCognitive:
		return -sensoryDrain(w, p)
	case domain.EnergyCompositeChannel:
		return (interestBoost(w, p) - sensoryDrain(w, p)) / 2
	case domain.EnergyStandard:
		return 0
	default:
		return 0
	}
}

func interestBoost(w domain.SignalWindow, p domain.SegmentProfile) float64 {
	for _, o := range lastN(w.Observations, energyRecent) {
		if o.HasMarker(domain.MarkerHighInterest) {
			return p.Thresholds.InterestBoost
		}
	}
	return 0
}

// sensoryDrain descuenta la carga sensorial del día; con spoon drawer el
// enmascaramiento sale del mismo presupuesto.
func sensoryDrain(w domain.SignalWindow, p domain.SegmentProfile) float64 {
	load, _, _ := sensoryAccumulation(w, p)
	if p.SpoonDrawerEnabled {
		masking, _, _ := maskingAccumulation(w, p)
		load += masking
	}
	return 0.5 * clamp01(load)
}

func energyLevel(score float64, th domain.Thresholds) domain.EnergyLevel {
	switch {
	case score < th.EnergyRedBelow:
		return domain.EnergyRed
	case score < th.EnergyYellowBelow:
		return domain.EnergyYellow
	default:
		return domain.EnergyGreen
	}
}
