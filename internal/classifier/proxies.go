package classifier

import (
	"math"

	"neurostate/internal/domain"
)

// behavioralProxy estima energía 0..1 a partir de latencia, longitud, vocabulario y hora.
func behavioralProxy(o domain.Observation, th domain.Thresholds, w domain.SignalWindow) float64 {
	latency := 1 - clamp01(o.Value/th.LatencyCeilingSecs)
	tod := timeOfDayScore(w.LocalTime(o.At).Hour())
	if o.Text == nil {
		return clamp01(0.6*latency + 0.4*tod)
	}
	length := clamp01(float64(o.Text.Length) / th.TextLengthNorm)
	return clamp01(0.4*latency + 0.2*length + 0.2*o.Text.VocabularyComplexity + 0.2*tod)
}

func timeOfDayScore(hour int) float64 {
	switch {
	case hour >= 6 && hour < 9:
		return 0.6
	case hour >= 9 && hour < 13:
		return 0.8
	case hour >= 13 && hour < 17:
		return 0.65
	case hour >= 17 && hour < 21:
		return 0.5
	default:
		return 0.3
	}
}

// energyEstimate da una estimación puntual de energía para observaciones que la llevan.
func energyEstimate(o domain.Observation, th domain.Thresholds, w domain.SignalWindow) (float64, bool) {
	switch o.Channel {
	case domain.ChannelSelfReport:
		return o.Value, true
	case domain.ChannelBehavioral:
		return behavioralProxy(o, th, w), true
	default:
		return 0, false
	}
}

// sensoryAccumulation suma los aportes del día local. Solo un evento de recuperación
// reduce la carga; el paso del tiempo no la reduce.
func sensoryAccumulation(w domain.SignalWindow, p domain.SegmentProfile) (load float64, contributions int, recovered bool) {
	for _, o := range w.Today() {
		if o.Channel != domain.ChannelSensory {
			continue
		}
		if o.Recovery {
			load = math.Max(0, load-o.Value)
			recovered = true
			continue
		}
		load = clamp01(load + o.Value*p.Thresholds.ModalityWeight(o.Modality))
		contributions++
	}
	return load, contributions, recovered
}

// maskingAccumulation suma el costo de enmascaramiento del día. Con dominancia de
// canal el costo por observación crece multiplicativamente con cada contexto extra.
func maskingAccumulation(w domain.SignalWindow, p domain.SegmentProfile) (cost float64, peak, n int) {
	th := p.Thresholds
	for _, o := range w.Today() {
		k := o.MaskingContexts
		if o.Channel != domain.ChannelBehavioral || k <= 0 {
			continue
		}
		n++
		if k > peak {
			peak = k
		}
		if p.ChannelDominanceEnabled {
			cost += th.MaskingBase * float64(k) * math.Pow(th.MaskingGrowth, float64(k-1))
		} else {
			cost += th.MaskingBase * float64(k)
		}
	}
	return clamp01(cost), peak, n
}
