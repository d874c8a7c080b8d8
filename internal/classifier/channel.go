package classifier

import (
	"math"

	"neurostate/internal/domain"
)

const (
	channelRecent        = 12
	rapidSwitchRate      = 0.6
	dominantShare        = 0.65
	channelFullCoverageN = 8
)

// ChannelDominanceDetector clasifica que modo domina usando la varianza de las
// clasificaciones recientes. rapid_switching es un estado propio.
type ChannelDominanceDetector struct {
	MinObservations int
}

func (c ChannelDominanceDetector) Assess(w domain.SignalWindow, p domain.SegmentProfile) (*domain.ChannelReading, float64) {
	if !p.ChannelDominanceEnabled || !sufficient(w, c.MinObservations) {
		return nil, 0
	}

	var modes []domain.Mode
	for _, o := range w.Observations {
		if o.Mode != domain.ModeNone {
			modes = append(modes, o.Mode)
		}
	}
	if len(modes) > channelRecent {
		modes = modes[len(modes)-channelRecent:]
	}
	if len(modes) < max(c.MinObservations, 2) {
		return nil, 0
	}

	n := float64(len(modes))
	adhd, switches := 0, 0
	for i, m := range modes {
		if m == domain.ModeADHD {
			adhd++
		}
		if i > 0 && modes[i-1] != m {
			switches++
		}
	}
	share := float64(adhd) / n
	switchRate := float64(switches) / (n - 1)
	variance := share * (1 - share)
	coverage := clamp01(n / channelFullCoverageN)

	var state domain.ChannelState
	var confidence float64
	switch {
	case switchRate >= rapidSwitchRate:
		state = domain.ChannelRapidSwitching
		confidence = clamp01(switchRate * coverage)
	case share >= dominantShare:
		state = domain.ChannelADHDDominant
		confidence = clamp01(math.Abs(share-0.5) * 2 * coverage)
	case share <= 1-dominantShare:
		state = domain.ChannelAutismDominant
		confidence = clamp01(math.Abs(share-0.5) * 2 * coverage)
	default:
		// varianza máxima (0.25) = equilibrio pleno
		state = domain.ChannelBalanced
		confidence = clamp01(variance * 4 * coverage)
	}
	return &domain.ChannelReading{State: state, Confidence: confidence}, confidence
}
