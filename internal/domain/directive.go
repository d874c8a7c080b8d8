package domain

type DirectiveTier string

const (
	DirectiveProceed          DirectiveTier = "proceed"
	DirectiveGentleRedirect   DirectiveTier = "gentle_redirect"
	DirectiveSuspendForCrisis DirectiveTier = "suspend_for_crisis"
)

// OverrideLevel sigue la jerarquía Safety > Grounding > Alignment > Optimization.
type OverrideLevel string

const (
	LevelSafety       OverrideLevel = "safety"
	LevelGrounding    OverrideLevel = "grounding"
	LevelAlignment    OverrideLevel = "alignment"
	LevelOptimization OverrideLevel = "optimization"
)

// WorkflowDirective es la orden para el Daily Workflow. SuspendForCrisis y
// GentleRedirect no se pueden anular durante ese ciclo de interacción.
type WorkflowDirective struct {
	Tier      DirectiveTier `json:"tier"`
	Reason    string        `json:"reason"`
	Level     OverrideLevel `json:"originating_override_level"`
	Degraded  bool          `json:"degraded,omitempty"`
	CycleType CycleType     `json:"cycle_type,omitempty"`
}

// NonOverridable indica si el orquestador debe obedecer sin excepciones.
func (d WorkflowDirective) NonOverridable() bool {
	return d.Tier == DirectiveSuspendForCrisis || d.Tier == DirectiveGentleRedirect
}
