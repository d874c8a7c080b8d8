package domain

import "time"

type EnergyLevel string

const (
	EnergyRed    EnergyLevel = "red"
	EnergyYellow EnergyLevel = "yellow"
	EnergyGreen  EnergyLevel = "green"
)

type Tier int

const (
	Tier1 Tier = 1
	Tier2 Tier = 2
	Tier3 Tier = 3
	Tier4 Tier = 4
)

type EnergyReading struct {
	Score      float64     `json:"score"`
	Level      EnergyLevel `json:"level"`
	Confidence float64     `json:"confidence"`
}

type SensoryReading struct {
	Load             float64 `json:"load"`
	Confidence       float64 `json:"confidence"`
	RecoveryObserved bool    `json:"recovery_observed"`
}

type MaskingModel string

const (
	MaskingLinear      MaskingModel = "linear"
	MaskingExponential MaskingModel = "exponential"
)

type MaskingReading struct {
	Cost         float64      `json:"cost"`
	Model        MaskingModel `json:"model"`
	PeakContexts int          `json:"peak_contexts"`
	Confidence   float64      `json:"confidence"`
}

// InertiaType reutiliza los nombres de los modelos de inercia.
type InertiaType = InertiaModel

type Intervention string

const (
	InterventionNone              Intervention = ""
	InterventionActivationStart   Intervention = "activation_micro_start"
	InterventionTransitionSupport Intervention = "transition_support"
	InterventionDemandReduction   Intervention = "demand_reduction"
)

type InertiaReading struct {
	Type         InertiaType  `json:"type"`
	Trigger      Marker       `json:"trigger"`
	Intervention Intervention `json:"intervention,omitempty"`
	Confidence   float64      `json:"confidence"`
}

type BurnoutType string

const (
	BurnoutTypeBoomBust         BurnoutType = "boom_bust"
	BurnoutTypeOverloadShutdown BurnoutType = "overload_shutdown"
)

// BurnoutReading no tiene estimación de recuperación: el tiempo de recuperación de un
// shutdown no está acotado.
type BurnoutReading struct {
	Model      BurnoutModel `json:"model"`
	Type       BurnoutType  `json:"type"`
	Severity   float64      `json:"severity"`
	Compound   bool         `json:"compound"`
	Confidence float64      `json:"confidence"`
}

type ChannelState string

const (
	ChannelADHDDominant   ChannelState = "adhd_dominant"
	ChannelAutismDominant ChannelState = "autism_dominant"
	ChannelBalanced       ChannelState = "balanced"
	ChannelRapidSwitching ChannelState = "rapid_switching"
)

type ChannelReading struct {
	State      ChannelState `json:"state"`
	Confidence float64      `json:"confidence"`
}

// NeurostateSnapshot se crea una vez por evaluación y no se modifica después.
// Un campo nil significa "no evaluado en esta evaluación", nunca un valor neutro.
type NeurostateSnapshot struct {
	ID                      string          `json:"id"`
	UserID                  string          `json:"user_id"`
	Energy                  *EnergyReading  `json:"energy,omitempty"`
	Sensory                 *SensoryReading `json:"sensory,omitempty"`
	Masking                 *MaskingReading `json:"masking,omitempty"`
	Inertia                 *InertiaReading `json:"inertia,omitempty"`
	Burnout                 *BurnoutReading `json:"burnout,omitempty"`
	Channel                 *ChannelReading `json:"channel,omitempty"`
	TierUsed                Tier            `json:"tier_used"`
	InterventionsSuppressed bool            `json:"interventions_suppressed"`
	CreatedAt               time.Time       `json:"created_at"`
}

// EnergyLevelIs es seguro con Energy nil.
func (s NeurostateSnapshot) EnergyLevelIs(level EnergyLevel) bool {
	return s.Energy != nil && s.Energy.Level == level
}

// Clone devuelve una copia profunda para la API de lectura.
func (s NeurostateSnapshot) Clone() NeurostateSnapshot {
	out := s
	if s.Energy != nil {
		v := *s.Energy
		out.Energy = &v
	}
	if s.Sensory != nil {
		v := *s.Sensory
		out.Sensory = &v
	}
	if s.Masking != nil {
		v := *s.Masking
		out.Masking = &v
	}
	if s.Inertia != nil {
		v := *s.Inertia
		out.Inertia = &v
	}
	if s.Burnout != nil {
		v := *s.Burnout
		out.Burnout = &v
	}
	if s.Channel != nil {
		v := *s.Channel
		out.Channel = &v
	}
	return out
}
