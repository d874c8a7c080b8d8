package snapshot

import "neurostate/internal/domain"

// Step registra la evaluación de la condición de entrada de un tier.
type Step struct {
	Tier    domain.Tier `json:"tier"`
	Entered bool        `json:"entered"`
	Reason  string      `json:"reason,omitempty"`
}

// Trace es el recorrido de una evaluación, en orden de tier.
type Trace struct {
	Steps      []Step `json:"steps"`
	Reassessed bool   `json:"reassessed"`
}

func (t *Trace) enter(tier domain.Tier, reason string) {
	t.Steps = append(t.Steps, Step{Tier: tier, Entered: true, Reason: reason})
}

func (t *Trace) skip(tier domain.Tier) {
	t.Steps = append(t.Steps, Step{Tier: tier})
}

func (t Trace) Entered(tier domain.Tier) bool {
	for _, s := range t.Steps {
		if s.Tier == tier {
			return s.Entered
		}
	}
	return false
}

// Evaluated lista los tiers cuya condición se evaluó, entrara o no.
func (t Trace) Evaluated() []domain.Tier {
	out := make([]domain.Tier, 0, len(t.Steps))
	for _, s := range t.Steps {
		out = append(out, s.Tier)
	}
	return out
}
