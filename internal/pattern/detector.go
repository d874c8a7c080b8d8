// Package pattern detecta ciclos conductuales destructivos sobre el historial de
// snapshots y acciones. Los detectores son funciones puras; el Tracker maneja el ciclo
// de vida activo/inactivo.
package pattern

import (
	"time"

	"neurostate/internal/domain"
)

// Input es la vista que recibe cada detector. History y Actions van en orden cronológico.
type Input struct {
	History []domain.NeurostateSnapshot
	Actions []domain.ActionEvent
	Profile domain.SegmentProfile
	Now     time.Time
}

// Candidate es un ciclo detectado en esta evaluación, todavía sin ciclo de vida.
type Candidate struct {
	Type       domain.CycleType
	Confidence float64
	Evidence   []domain.EvidenceRef
	FramingKey string
}

type Detector interface {
	Type() domain.CycleType
	Detect(in Input) *Candidate
}

// DefaultDetectors devuelve los cinco detectores en el orden de domain.AllCycleTypes.
func DefaultDetectors() []Detector {
	return []Detector{
		PerfectionismDetector{MinEvidence: 3},
		IsolationDetector{MinEvidence: 2},
		OvercommitDetector{MinEvidence: 3},
		AvoidanceShameDetector{MinEvidence: 2},
		MaskingCollapseDetector{MinEvidence: 2},
	}
}

func snapshotRef(s domain.NeurostateSnapshot) domain.EvidenceRef {
	return domain.EvidenceRef{Kind: domain.EvidenceSnapshot, RefID: s.ID, At: s.CreatedAt}
}

func actionRef(a domain.ActionEvent) domain.EvidenceRef {
	return domain.EvidenceRef{Kind: domain.EvidenceAction, RefID: a.ID, At: a.At}
}

func framing(t domain.CycleType, variant string) string {
	return string(t) + "." + variant
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

func lowEnergy(s domain.NeurostateSnapshot) bool {
	return s.EnergyLevelIs(domain.EnergyRed) || s.EnergyLevelIs(domain.EnergyYellow)
}

// PerfectionismDetector: revisiones repetidas de la misma tarea sin completarla.
type PerfectionismDetector struct {
	MinEvidence int
}

func (PerfectionismDetector) Type() domain.CycleType { return domain.CyclePerfectionism }

func (d PerfectionismDetector) Detect(in Input) *Candidate {
	revisions := map[string][]domain.ActionEvent{}
	completed := map[string]bool{}
	abandonedAfterRevision := 0
	for _, a := range in.Actions {
		task := a.TaskID()
		if task == "" {
			continue
		}
		switch a.Type {
		case domain.ActionTaskRevised:
			revisions[task] = append(revisions[task], a)
		case domain.ActionTaskCompleted:
			completed[task] = true
		case domain.ActionTaskAbandoned:
			if len(revisions[task]) > 0 {
				abandonedAfterRevision++
			}
		}
	}

	var evidence []domain.EvidenceRef
	for _, a := range in.Actions {
		if a.Type != domain.ActionTaskRevised {
			continue
		}
		task := a.TaskID()
		if completed[task] || len(revisions[task]) < 2 {
			continue
		}
		evidence = append(evidence, actionRef(a))
	}
	if len(evidence) < d.MinEvidence {
		return nil
	}
	confidence := 0.2*float64(len(evidence)) + 0.15*float64(abandonedAfterRevision)
	return &Candidate{
		Type:       domain.CyclePerfectionism,
		Confidence: clamp01(confidence),
		Evidence:   evidence,
		FramingKey: framing(domain.CyclePerfectionism, string(in.Profile.InertiaModel)),
	}
}

// IsolationDetector: declinar lo social repetidamente sin reconexión, con energía baja.
type IsolationDetector struct {
	MinEvidence int
}

func (IsolationDetector) Type() domain.CycleType { return domain.CycleIsolation }

func (d IsolationDetector) Detect(in Input) *Candidate {
	var declines []domain.ActionEvent
	for _, a := range in.Actions {
		switch a.Type {
		case domain.ActionSocialDeclined:
			declines = append(declines, a)
		case domain.ActionSocialEngaged:
			// una reconexión corta el ciclo
			declines = declines[:0]
		}
	}
	if len(declines) < d.MinEvidence {
		return nil
	}

	evidence := make([]domain.EvidenceRef, 0, len(declines))
	for _, a := range declines {
		evidence = append(evidence, actionRef(a))
	}
	low := 0
	for _, s := range in.History {
		if lowEnergy(s) && !s.CreatedAt.Before(declines[0].At) {
			evidence = append(evidence, snapshotRef(s))
			low++
		}
	}
	confidence := 0.25*float64(len(declines)) + 0.1*float64(low)
	return &Candidate{
		Type:       domain.CycleIsolation,
		Confidence: clamp01(confidence),
		Evidence:   evidence,
		FramingKey: framing(domain.CycleIsolation, string(in.Profile.EnergyModel)),
	}
}

// OvercommitDetector: compromisos tomados con energía alta seguidos de una caída.
type OvercommitDetector struct {
	MinEvidence int
}

func (OvercommitDetector) Type() domain.CycleType { return domain.CycleBoomBustOvercommit }

func (d OvercommitDetector) Detect(in Input) *Candidate {
	var evidence []domain.EvidenceRef
	commitments := 0
	for _, a := range in.Actions {
		if a.Type != domain.ActionCommitmentAdded {
			continue
		}
		if prev, ok := latestBefore(in.History, a.At); ok && prev.EnergyLevelIs(domain.EnergyGreen) {
			evidence = append(evidence, actionRef(a))
			commitments++
		}
	}
	if commitments == 0 {
		return nil
	}

	crashes := 0
	for _, s := range in.History {
		if !s.CreatedAt.After(evidence[0].At) {
			continue
		}
		crashed := s.EnergyLevelIs(domain.EnergyRed) ||
			(s.Burnout != nil && s.Burnout.Type == domain.BurnoutTypeBoomBust && s.Burnout.Severity >= 0.5)
		if crashed {
			evidence = append(evidence, snapshotRef(s))
			crashes++
		}
	}
	if crashes == 0 || len(evidence) < d.MinEvidence {
		return nil
	}
	confidence := min(0.6, 0.2*float64(commitments)) + min(0.4, 0.2*float64(crashes))
	return &Candidate{
		Type:       domain.CycleBoomBustOvercommit,
		Confidence: clamp01(confidence),
		Evidence:   evidence,
		FramingKey: framing(domain.CycleBoomBustOvercommit, string(in.Profile.BurnoutModel)),
	}
}

// AvoidanceShameDetector: tareas abandonadas acompañadas de inercia detectada.
type AvoidanceShameDetector struct {
	MinEvidence int
}

func (AvoidanceShameDetector) Type() domain.CycleType { return domain.CycleAvoidanceShame }

func (d AvoidanceShameDetector) Detect(in Input) *Candidate {
	var evidence []domain.EvidenceRef
	abandoned := 0
	for _, a := range in.Actions {
		if a.Type == domain.ActionTaskAbandoned {
			evidence = append(evidence, actionRef(a))
			abandoned++
		}
	}
	if abandoned < d.MinEvidence {
		return nil
	}
	inertia := 0
	for _, s := range in.History {
		if s.Inertia != nil {
			evidence = append(evidence, snapshotRef(s))
			inertia++
		}
	}
	confidence := 0.25*float64(abandoned) + 0.1*float64(inertia)
	return &Candidate{
		Type:       domain.CycleAvoidanceShame,
		Confidence: clamp01(confidence),
		Evidence:   evidence,
		FramingKey: framing(domain.CycleAvoidanceShame, string(in.Profile.InertiaModel)),
	}
}

// MaskingCollapseDetector: costo de enmascaramiento alto sostenido y luego un colapso
// (shutdown por sobrecarga o energía roja).
type MaskingCollapseDetector struct {
	MinEvidence int
}

const highMaskingCost = 0.6

func (MaskingCollapseDetector) Type() domain.CycleType { return domain.CycleMaskingCollapse }

func (d MaskingCollapseDetector) Detect(in Input) *Candidate {
	var evidence []domain.EvidenceRef
	var firstHigh time.Time
	high, collapses := 0, 0
	for _, s := range in.History {
		if s.Masking != nil && s.Masking.Cost >= highMaskingCost {
			if high == 0 {
				firstHigh = s.CreatedAt
			}
			evidence = append(evidence, snapshotRef(s))
			high++
			continue
		}
		if high == 0 || !s.CreatedAt.After(firstHigh) {
			continue
		}
		overload := s.Burnout != nil && s.Burnout.Type == domain.BurnoutTypeOverloadShutdown && s.Burnout.Severity >= 0.6
		if overload || s.EnergyLevelIs(domain.EnergyRed) {
			evidence = append(evidence, snapshotRef(s))
			collapses++
		}
	}
	if high < d.MinEvidence {
		return nil
	}
	confidence := min(0.6, 0.2*float64(high))
	if collapses > 0 {
		confidence += 0.3
	}
	variant := string(domain.MaskingLinear)
	if in.Profile.ChannelDominanceEnabled {
		variant = string(domain.MaskingExponential)
	}
	return &Candidate{
		Type:       domain.CycleMaskingCollapse,
		Confidence: clamp01(confidence),
		Evidence:   evidence,
		FramingKey: framing(domain.CycleMaskingCollapse, variant),
	}
}

func latestBefore(history []domain.NeurostateSnapshot, t time.Time) (domain.NeurostateSnapshot, bool) {
	for i := len(history) - 1; i >= 0; i-- {
		if !history[i].CreatedAt.After(t) {
			return history[i], true
		}
	}
	return domain.NeurostateSnapshot{}, false
}
