package profile

import "neurostate/internal/domain"

// Overrides permite al colaborador de configuración ajustar un preset. Un campo nil
// conserva el valor del preset.
type Overrides struct {
	EnergyModel              *domain.EnergyModel              `json:"energy_model,omitempty" yaml:"energy_model"`
	BurnoutModel             *domain.BurnoutModel             `json:"burnout_model,omitempty" yaml:"burnout_model"`
	InertiaModel             *domain.InertiaModel             `json:"inertia_model,omitempty" yaml:"inertia_model"`
	SensoryAccumulates       *bool                            `json:"sensory_accumulates,omitempty" yaml:"sensory_accumulates"`
	InteroceptionReliability *domain.InteroceptionReliability `json:"interoception_reliability,omitempty" yaml:"-"`
	ChannelDominanceEnabled  *bool                            `json:"channel_dominance_enabled,omitempty" yaml:"channel_dominance_enabled"`
	SpoonDrawerEnabled       *bool                            `json:"spoon_drawer_enabled,omitempty" yaml:"spoon_drawer_enabled"`
	IntegrityTriggerEnabled  *bool                            `json:"integrity_trigger_enabled,omitempty" yaml:"integrity_trigger_enabled"`
	Thresholds               *domain.Thresholds               `json:"thresholds,omitempty" yaml:"thresholds"`
}

func (o Overrides) apply(p *domain.SegmentProfile) {
	if o.EnergyModel != nil {
		p.EnergyModel = *o.EnergyModel
	}
	if o.BurnoutModel != nil {
		p.BurnoutModel = *o.BurnoutModel
	}
	if o.InertiaModel != nil {
		p.InertiaModel = *o.InertiaModel
	}
	if o.SensoryAccumulates != nil {
		p.SensoryAccumulates = *o.SensoryAccumulates
	}
	if o.InteroceptionReliability != nil {
		p.InteroceptionReliability = *o.InteroceptionReliability
	}
	if o.ChannelDominanceEnabled != nil {
		p.ChannelDominanceEnabled = *o.ChannelDominanceEnabled
	}
	if o.SpoonDrawerEnabled != nil {
		p.SpoonDrawerEnabled = *o.SpoonDrawerEnabled
	}
	if o.IntegrityTriggerEnabled != nil {
		p.IntegrityTriggerEnabled = *o.IntegrityTriggerEnabled
	}
	if o.Thresholds != nil {
		p.Thresholds = *o.Thresholds
	}
}
