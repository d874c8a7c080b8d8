package domain

import "fmt"

type Segment string

const (
	SegmentADHD         Segment = "adhd"
	SegmentAutism       Segment = "autism"
	SegmentAuDHD        Segment = "audhd"
	SegmentNeurotypical Segment = "neurotypical"
	SegmentCustom       Segment = "custom"
)

// ParseSegment valida un identificador externo. Es el único punto donde un string se
// convierte en Segment; los clasificadores nunca lo ven.
func ParseSegment(s string) (Segment, error) {
	switch seg := Segment(s); seg {
	case SegmentADHD, SegmentAutism, SegmentAuDHD, SegmentNeurotypical, SegmentCustom:
		return seg, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSegment, s)
	}
}

type EnergyModel string

const (
	EnergyInterestBased    EnergyModel = "interest_based"
	EnergySensoryCognitive EnergyModel = "sensory_cognitive"
	EnergyCompositeChannel EnergyModel = "composite_channel"
	EnergyStandard         EnergyModel = "standard"
)

func (m EnergyModel) Valid() bool {
	switch m {
	case EnergyInterestBased, EnergySensoryCognitive, EnergyCompositeChannel, EnergyStandard:
		return true
	}
	return false
}

type BurnoutModel string

const (
	BurnoutBoomBust          BurnoutModel = "boom_bust"
	BurnoutOverloadShutdown  BurnoutModel = "overload_shutdown"
	BurnoutThreeTypeCompound BurnoutModel = "three_type_compound"
)

func (m BurnoutModel) Valid() bool {
	switch m {
	case BurnoutBoomBust, BurnoutOverloadShutdown, BurnoutThreeTypeCompound:
		return true
	}
	return false
}

type InertiaModel string

const (
	InertiaActivationDeficit InertiaModel = "activation_deficit"
	InertiaAutistic          InertiaModel = "autistic_inertia"
	InertiaDoubleBlock       InertiaModel = "double_block"
)

func (m InertiaModel) Valid() bool {
	switch m {
	case InertiaActivationDeficit, InertiaAutistic, InertiaDoubleBlock:
		return true
	}
	return false
}

// InteroceptionReliability está ordenado: un valor mayor significa menos confiable.
type InteroceptionReliability int

const (
	InteroceptionHigh InteroceptionReliability = iota
	InteroceptionModerate
	InteroceptionLow
	InteroceptionVeryLow
)

var interoceptionNames = [...]string{"high", "moderate", "low", "very_low"}

func (r InteroceptionReliability) String() string {
	if r < InteroceptionHigh || r > InteroceptionVeryLow {
		return fmt.Sprintf("interoception(%d)", int(r))
	}
	return interoceptionNames[r]
}

func (r InteroceptionReliability) Valid() bool {
	return r >= InteroceptionHigh && r <= InteroceptionVeryLow
}

// TrustsSelfReport indica si el auto-reporte puede dominar el puntaje.
func (r InteroceptionReliability) TrustsSelfReport() bool {
	return r <= InteroceptionModerate
}

func ParseInteroception(s string) (InteroceptionReliability, error) {
	for i, name := range interoceptionNames {
		if name == s {
			return InteroceptionReliability(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown interoception reliability %q", ErrProfileInconsistency, s)
}

func (r InteroceptionReliability) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *InteroceptionReliability) UnmarshalText(b []byte) error {
	v, err := ParseInteroception(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// Modality identifica el canal sensorial de un aporte de carga.
type Modality string

const (
	ModalityAuditory  Modality = "auditory"
	ModalityVisual    Modality = "visual"
	ModalityTactile   Modality = "tactile"
	ModalityOlfactory Modality = "olfactory"
	ModalitySocial    Modality = "social"
)

func (m Modality) Valid() bool {
	switch m {
	case ModalityAuditory, ModalityVisual, ModalityTactile, ModalityOlfactory, ModalitySocial:
		return true
	}
	return false
}

// Thresholds son los umbrales tipados que cada clasificador consume.
type Thresholds struct {
	EnergyRedBelow     float64              `json:"energy_red_below" yaml:"energy_red_below"`
	EnergyYellowBelow  float64              `json:"energy_yellow_below" yaml:"energy_yellow_below"`
	InterestBoost      float64              `json:"interest_boost" yaml:"interest_boost"`
	LatencyCeilingSecs float64              `json:"latency_ceiling_secs" yaml:"latency_ceiling_secs"`
	TextLengthNorm     float64              `json:"text_length_norm" yaml:"text_length_norm"`
	ModalityWeights    map[Modality]float64 `json:"modality_weights,omitempty" yaml:"modality_weights"`
	MaskingBase        float64              `json:"masking_base" yaml:"masking_base"`
	MaskingGrowth      float64              `json:"masking_growth" yaml:"masking_growth"`
	OverloadThreshold  float64              `json:"overload_threshold" yaml:"overload_threshold"`
	BoomAbove          float64              `json:"boom_above" yaml:"boom_above"`
	BustBelow          float64              `json:"bust_below" yaml:"bust_below"`
}

// ModalityWeight devuelve 1 cuando la modalidad no tiene peso configurado.
func (t Thresholds) ModalityWeight(m Modality) float64 {
	if w, ok := t.ModalityWeights[m]; ok {
		return w
	}
	return 1
}

// SegmentProfile es la configuración inmutable por usuario. Se pasa por valor: cada
// evaluación trabaja sobre su propia copia.
type SegmentProfile struct {
	Segment                  Segment                  `json:"segment"`
	EnergyModel              EnergyModel              `json:"energy_model"`
	BurnoutModel             BurnoutModel             `json:"burnout_model"`
	InertiaModel             InertiaModel             `json:"inertia_model"`
	SensoryAccumulates       bool                     `json:"sensory_accumulates"`
	InteroceptionReliability InteroceptionReliability `json:"interoception_reliability"`
	ChannelDominanceEnabled  bool                     `json:"channel_dominance_enabled"`
	SpoonDrawerEnabled       bool                     `json:"spoon_drawer_enabled"`
	IntegrityTriggerEnabled  bool                     `json:"integrity_trigger_enabled"`
	Thresholds               Thresholds               `json:"thresholds"`
}

// RequiresExtendedAssessment indica si el perfil exige Tier2 en cada evaluación.
func (p SegmentProfile) RequiresExtendedAssessment() bool {
	return p.SensoryAccumulates || p.ChannelDominanceEnabled
}

// Validate aplica las reglas de consistencia entre funcionalidades y sub-modelos.
func (p SegmentProfile) Validate() error {
	if _, err := ParseSegment(string(p.Segment)); err != nil {
		return err
	}
	if !p.EnergyModel.Valid() {
		return fmt.Errorf("%w: energy model %q", ErrProfileInconsistency, p.EnergyModel)
	}
	if !p.BurnoutModel.Valid() {
		return fmt.Errorf("%w: burnout model %q", ErrProfileInconsistency, p.BurnoutModel)
	}
	if !p.InertiaModel.Valid() {
		return fmt.Errorf("%w: inertia model %q", ErrProfileInconsistency, p.InertiaModel)
	}
	if !p.InteroceptionReliability.Valid() {
		return fmt.Errorf("%w: interoception reliability %d", ErrProfileInconsistency, p.InteroceptionReliability)
	}
	if p.ChannelDominanceEnabled && p.EnergyModel != EnergyCompositeChannel {
		return fmt.Errorf("%w: channel dominance requires composite_channel energy model", ErrProfileInconsistency)
	}
	if (p.BurnoutModel == BurnoutOverloadShutdown || p.BurnoutModel == BurnoutThreeTypeCompound) && !p.SensoryAccumulates {
		return fmt.Errorf("%w: %s burnout requires sensory accumulation", ErrProfileInconsistency, p.BurnoutModel)
	}
	if p.InertiaModel == InertiaDoubleBlock && !p.ChannelDominanceEnabled {
		return fmt.Errorf("%w: double_block inertia requires channel dominance", ErrProfileInconsistency)
	}
	if p.SpoonDrawerEnabled && !p.SensoryAccumulates {
		return fmt.Errorf("%w: spoon drawer requires sensory accumulation", ErrProfileInconsistency)
	}
	if p.IntegrityTriggerEnabled && p.InertiaModel == InertiaActivationDeficit {
		return fmt.Errorf("%w: integrity trigger requires autistic_inertia or double_block", ErrProfileInconsistency)
	}
	return p.Thresholds.validate()
}

func (t Thresholds) validate() error {
	if !(t.EnergyRedBelow > 0 && t.EnergyRedBelow < t.EnergyYellowBelow && t.EnergyYellowBelow < 1) {
		return fmt.Errorf("%w: energy cut points must satisfy 0 < red (%.2f) < yellow (%.2f) < 1",
			ErrProfileInconsistency, t.EnergyRedBelow, t.EnergyYellowBelow)
	}
	if t.LatencyCeilingSecs <= 0 || t.TextLengthNorm <= 0 {
		return fmt.Errorf("%w: latency ceiling and text length norm must be positive", ErrProfileInconsistency)
	}
	if t.MaskingBase <= 0 || t.MaskingGrowth <= 1 {
		return fmt.Errorf("%w: masking base must be positive and growth above 1", ErrProfileInconsistency)
	}
	if t.OverloadThreshold <= 0 {
		return fmt.Errorf("%w: overload threshold must be positive", ErrProfileInconsistency)
	}
	if !(t.BustBelow > 0 && t.BustBelow < t.BoomAbove && t.BoomAbove < 1) {
		return fmt.Errorf("%w: boom/bust bars must satisfy 0 < bust < boom < 1", ErrProfileInconsistency)
	}
	if t.InterestBoost < 0 {
		return fmt.Errorf("%w: interest boost must not be negative", ErrProfileInconsistency)
	}
	for m, w := range t.ModalityWeights {
		if !m.Valid() || w < 0 {
			return fmt.Errorf("%w: modality weight %s=%.2f", ErrProfileInconsistency, m, w)
		}
	}
	return nil
}

// Clone copia el mapa de pesos para que la copia capturada no comparta estado.
func (p SegmentProfile) Clone() SegmentProfile {
	out := p
	if p.Thresholds.ModalityWeights != nil {
		out.Thresholds.ModalityWeights = make(map[Modality]float64, len(p.Thresholds.ModalityWeights))
		for k, v := range p.Thresholds.ModalityWeights {
			out.Thresholds.ModalityWeights[k] = v
		}
	}
	return out
}
