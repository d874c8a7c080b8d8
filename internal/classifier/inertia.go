package classifier

import "neurostate/internal/domain"

const inertiaRecent = 10

var activationVocabulary = []domain.Marker{
	domain.MarkerCantStart,
	domain.MarkerBoringTask,
	domain.MarkerTimeBlindness,
	domain.MarkerTooManyOptions,
}

var autisticVocabulary = []domain.Marker{
	domain.MarkerTransition,
	domain.MarkerInterruption,
	domain.MarkerUnclearNextStep,
	domain.MarkerPlanChange,
}

// InertiaDetector elige entre los tres tipos de inercia según inertia_model. Cada tipo
// tiene su vocabulario y su familia de intervención; la inercia autista nunca recibe
// una intervención de activación.
type InertiaDetector struct {
	MinObservations int
}

type vocabularyMatch struct {
	count int
	top   domain.Marker
}

func matchVocabulary(obs []domain.Observation, vocab []domain.Marker) vocabularyMatch {
	counts := make(map[domain.Marker]int, len(vocab))
	var m vocabularyMatch
	for _, o := range obs {
		for _, marker := range o.Markers {
			for _, v := range vocab {
				if marker != v {
					continue
				}
				counts[v]++
				m.count++
				if counts[v] > counts[m.top] || m.top == "" {
					m.top = v
				}
			}
		}
	}
	return m
}

func (d InertiaDetector) Assess(w domain.SignalWindow, p domain.SegmentProfile) (*domain.InertiaReading, float64) {
	if !sufficient(w, d.MinObservations) {
		return nil, 0
	}
	recent := lastN(w.Observations, inertiaRecent)

	autistic := autisticVocabulary
	if p.IntegrityTriggerEnabled {
		autistic = append(append([]domain.Marker(nil), autisticVocabulary...), domain.MarkerIntegrityConflict)
	}

	switch p.InertiaModel {
	case domain.InertiaActivationDeficit:
		return inertiaReading(domain.InertiaActivationDeficit, matchVocabulary(recent, activationVocabulary), domain.InterventionActivationStart)
	case domain.InertiaAutistic:
		return inertiaReading(domain.InertiaAutistic, matchVocabulary(recent, autistic), domain.InterventionTransitionSupport)
	case domain.InertiaDoubleBlock:
		act := matchVocabulary(recent, activationVocabulary)
		aut := matchVocabulary(recent, autistic)
		switch {
		case act.count > 0 && aut.count > 0:
			top := aut.top
			if act.count > aut.count {
				top = act.top
			}
			return inertiaReading(domain.InertiaDoubleBlock, vocabularyMatch{count: act.count + aut.count, top: top}, domain.InterventionDemandReduction)
		case aut.count > 0:
			return inertiaReading(domain.InertiaAutistic, aut, domain.InterventionTransitionSupport)
		default:
			return inertiaReading(domain.InertiaActivationDeficit, act, domain.InterventionActivationStart)
		}
	default:
		return nil, 0
	}
}

func inertiaReading(t domain.InertiaType, m vocabularyMatch, intervention domain.Intervention) (*domain.InertiaReading, float64) {
	if m.count == 0 {
		return nil, 0
	}
	confidence := clamp01(0.25 * float64(m.count))
	return &domain.InertiaReading{
		Type:         t,
		Trigger:      m.top,
		Intervention: intervention,
		Confidence:   confidence,
	}, confidence
}
