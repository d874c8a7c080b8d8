package classifier

import "neurostate/internal/domain"

// boomBustFireBar marca cuando la oscilación boom-bust cuenta como activa en el modelo
// compuesto.
const boomBustFireBar = 0.5

// BurnoutClassifier es una máquina de estados por burnout_model. Ninguna lectura estima
// tiempo de recuperación.
type BurnoutClassifier struct {
	MinObservations int
}

type burnoutEval struct {
	severity   float64
	confidence float64
	fired      bool
	ok         bool
}

func (b BurnoutClassifier) Assess(w domain.SignalWindow, p domain.SegmentProfile) (*domain.BurnoutReading, float64) {
	if !sufficient(w, b.MinObservations) {
		return nil, 0
	}

	switch p.BurnoutModel {
	case domain.BurnoutBoomBust:
		bb := boomBust(w, p)
		if !bb.ok {
			return nil, 0
		}
		return burnoutReading(p.BurnoutModel, domain.BurnoutTypeBoomBust, bb, false)
	case domain.BurnoutOverloadShutdown:
		return burnoutReading(p.BurnoutModel, domain.BurnoutTypeOverloadShutdown, overloadShutdown(w, p), false)
	case domain.BurnoutThreeTypeCompound:
		bb := boomBust(w, p)
		ov := overloadShutdown(w, p)
		if !bb.ok {
			return burnoutReading(p.BurnoutModel, domain.BurnoutTypeOverloadShutdown, ov, false)
		}
		compound := bb.fired && ov.fired
		dominant, typ := ov, domain.BurnoutTypeOverloadShutdown
		if bb.severity > ov.severity {
			dominant, typ = bb, domain.BurnoutTypeBoomBust
		}
		dominant.confidence = (bb.confidence + ov.confidence) / 2
		return burnoutReading(p.BurnoutModel, typ, dominant, compound)
	default:
		return nil, 0
	}
}

func burnoutReading(model domain.BurnoutModel, typ domain.BurnoutType, e burnoutEval, compound bool) (*domain.BurnoutReading, float64) {
	return &domain.BurnoutReading{
		Model:      model,
		Type:       typ,
		Severity:   clamp01(e.severity),
		Compound:   compound,
		Confidence: clamp01(e.confidence),
	}, clamp01(e.confidence)
}

// boomBust sigue la oscilación entre picos de producción y caídas a lo largo de la
// ventana. La severidad crece con la amplitud y con la cantidad de caídas tras un pico;
// si el usuario todavía está en el pico se atenúa.
func boomBust(w domain.SignalWindow, p domain.SegmentProfile) burnoutEval {
	th := p.Thresholds
	var booms, busts []float64
	var oscillations, samples int
	last := 0 // 1 boom, -1 bust
	for _, o := range w.Observations {
		e, ok := energyEstimate(o, th, w)
		if !ok {
			continue
		}
		samples++
		switch {
		case e >= th.BoomAbove:
			booms = append(booms, e)
			last = 1
		case e <= th.BustBelow:
			busts = append(busts, e)
			if last == 1 {
				oscillations++
			}
			last = -1
		}
	}
	if samples == 0 {
		return burnoutEval{}
	}

	var amplitude float64
	if len(booms) > 0 && len(busts) > 0 {
		amplitude = mean(booms) - mean(busts)
	}
	severity := amplitude * min(1, float64(oscillations)/2)
	if last == 1 {
		severity *= 0.75
	}
	return burnoutEval{
		severity:   clamp01(severity),
		confidence: clamp01(0.3 + 0.2*float64(oscillations)),
		fired:      severity >= boomBustFireBar,
		ok:         true,
	}
}

// overloadShutdown compara carga sensorial + enmascaramiento con el umbral del perfil.
// No asume "rebote": solo describe la severidad actual.
func overloadShutdown(w domain.SignalWindow, p domain.SegmentProfile) burnoutEval {
	sensory, nSensory, _ := sensoryAccumulation(w, p)
	masking, _, nMasking := maskingAccumulation(w, p)

	shutdowns := 0
	for _, o := range w.Today() {
		if o.HasMarker(domain.MarkerShutdown) || o.HasMarker(domain.MarkerOverwhelm) {
			shutdowns++
		}
	}

	cumulative := sensory + masking + 0.1*float64(shutdowns)
	threshold := p.Thresholds.OverloadThreshold

	var severity float64
	if cumulative < threshold {
		severity = 0.6 * cumulative / threshold
	} else {
		severity = 0.6 + 0.4*(cumulative-threshold)/threshold
	}
	return burnoutEval{
		severity:   clamp01(severity),
		confidence: clamp01(0.4 + 0.1*float64(nSensory+nMasking+shutdowns)),
		fired:      cumulative >= threshold,
		ok:         true,
	}
}
