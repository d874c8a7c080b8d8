package domain

import "time"

type CycleType string

const (
	CyclePerfectionism      CycleType = "perfectionism_loop"
	CycleIsolation          CycleType = "isolation_loop"
	CycleBoomBustOvercommit CycleType = "boom_bust_overcommit"
	CycleAvoidanceShame     CycleType = "avoidance_shame_spiral"
	CycleMaskingCollapse    CycleType = "masking_collapse"
)

// AllCycleTypes en orden de evaluación.
var AllCycleTypes = []CycleType{
	CyclePerfectionism,
	CycleIsolation,
	CycleBoomBustOvercommit,
	CycleAvoidanceShame,
	CycleMaskingCollapse,
}

type EvidenceKind string

const (
	EvidenceSnapshot EvidenceKind = "snapshot"
	EvidenceAction   EvidenceKind = "action"
)

// EvidenceRef apunta a un snapshot o evento de acción que respalda un ciclo.
type EvidenceRef struct {
	Kind  EvidenceKind `json:"kind"`
	RefID string       `json:"ref_id"`
	At    time.Time    `json:"at"`
}

type DetectedCycle struct {
	ID              string        `json:"id"`
	UserID          string        `json:"user_id"`
	Type            CycleType     `json:"cycle_type"`
	Evidence        []EvidenceRef `json:"evidence"`
	Confidence      float64       `json:"confidence"`
	FramingKey      string        `json:"framing_key"`
	FirstDetectedAt time.Time     `json:"first_detected_at"`
	LastConfirmedAt time.Time     `json:"last_confirmed_at"`
	Active          bool          `json:"active"`
}

func (c DetectedCycle) Clone() DetectedCycle {
	out := c
	out.Evidence = append([]EvidenceRef(nil), c.Evidence...)
	return out
}
