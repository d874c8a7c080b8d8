// Package escalation aplica la jerarquía Safety > Grounding > Alignment > Optimization
// sobre un snapshot y los ciclos activos.
package escalation

import (
	"fmt"

	"go.uber.org/zap"

	"neurostate/internal/domain"
)

const (
	// SensoryBurnoutBar aplica a overload_shutdown y al modelo compuesto.
	SensoryBurnoutBar  = 0.6
	BoomBustBurnoutBar = 0.8
	GroundingCycleBar  = 0.8
)

type Input struct {
	Snapshot   *domain.NeurostateSnapshot
	Cycles     []domain.DetectedCycle
	CrisisFlag *bool
}

// Gate evalúa en orden fijo y corta en la primera regla que aplica. El chequeo de
// crisis va primero y no necesita snapshot.
type Gate struct {
	logger *zap.Logger
}

func NewGate(logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{logger: logger}
}

func (g *Gate) Evaluate(in Input) (domain.WorkflowDirective, error) {
	// 1. Crisis externa
	if in.CrisisFlag == nil {
		return domain.WorkflowDirective{}, domain.ErrMissingCrisisFlag
	}
	if *in.CrisisFlag {
		return domain.WorkflowDirective{
			Tier:   domain.DirectiveSuspendForCrisis,
			Level:  domain.LevelSafety,
			Reason: "external crisis flag set",
		}, nil
	}

	s := in.Snapshot
	if s == nil {
		g.logger.Warn("gate evaluated without snapshot, degraded confidence", zap.Int("cycles", len(in.Cycles)))
		return domain.WorkflowDirective{
			Tier:     domain.DirectiveProceed,
			Level:    domain.LevelOptimization,
			Reason:   "no assessment available",
			Degraded: true,
		}, nil
	}

	// 2. Burnout
	if b := s.Burnout; b != nil {
		if reason, hit := burnoutBlocks(b); hit {
			return domain.WorkflowDirective{
				Tier:   domain.DirectiveGentleRedirect,
				Level:  domain.LevelSafety,
				Reason: reason,
			}, nil
		}
	}

	// 3. Ciclo activo con confianza alta
	var weak *domain.DetectedCycle
	for i := range in.Cycles {
		c := in.Cycles[i]
		if !c.Active {
			continue
		}
		if c.Confidence >= GroundingCycleBar {
			return domain.WorkflowDirective{
				Tier:      domain.DirectiveGentleRedirect,
				Level:     domain.LevelGrounding,
				Reason:    fmt.Sprintf("active %s cycle (confidence %.2f)", c.Type, c.Confidence),
				CycleType: c.Type,
			}, nil
		}
		if weak == nil {
			weak = &in.Cycles[i]
		}
	}

	// 4. Alineación: ciclo activo por debajo de la barra o intervenciones suprimidas
	if weak != nil {
		return domain.WorkflowDirective{
			Tier:      domain.DirectiveProceed,
			Level:     domain.LevelAlignment,
			Reason:    fmt.Sprintf("active %s cycle below grounding bar", weak.Type),
			CycleType: weak.Type,
		}, nil
	}
	if s.InterventionsSuppressed {
		return domain.WorkflowDirective{
			Tier:   domain.DirectiveProceed,
			Level:  domain.LevelAlignment,
			Reason: "rapid channel switching, interventions suppressed",
		}, nil
	}

	return domain.WorkflowDirective{
		Tier:   domain.DirectiveProceed,
		Level:  domain.LevelOptimization,
		Reason: "no override applies",
	}, nil
}

func burnoutBlocks(b *domain.BurnoutReading) (string, bool) {
	switch b.Model {
	case domain.BurnoutOverloadShutdown, domain.BurnoutThreeTypeCompound:
		if b.Severity >= SensoryBurnoutBar {
			return fmt.Sprintf("%s burnout severity %.2f", b.Type, b.Severity), true
		}
	case domain.BurnoutBoomBust:
		if b.Severity >= BoomBustBurnoutBar {
			return fmt.Sprintf("boom_bust burnout severity %.2f", b.Severity), true
		}
	}
	return "", false
}
