package escalation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"neurostate/internal/domain"
)

func flag(v bool) *bool { return &v }

func greenSnapshot() *domain.NeurostateSnapshot {
	return &domain.NeurostateSnapshot{
		ID:        "s1",
		UserID:    "u1",
		Energy:    &domain.EnergyReading{Score: 0.9, Level: domain.EnergyGreen, Confidence: 1},
		TierUsed:  domain.Tier1,
		CreatedAt: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
	}
}

func burnout(model domain.BurnoutModel, typ domain.BurnoutType, severity float64) *domain.NeurostateSnapshot {
	s := greenSnapshot()
	s.Burnout = &domain.BurnoutReading{Model: model, Type: typ, Severity: severity, Confidence: 0.7}
	return s
}

func cycle(typ domain.CycleType, confidence float64, active bool) domain.DetectedCycle {
	return domain.DetectedCycle{ID: string(typ), UserID: "u1", Type: typ, Confidence: confidence, Active: active}
}

func TestCrisisAlwaysSuspends(t *testing.T) {
	g := NewGate(zap.NewNop())
	inputs := map[string]Input{
		"green and cycle free": {Snapshot: greenSnapshot()},
		"no snapshot":          {},
		"burnout and cycles": {
			Snapshot: burnout(domain.BurnoutOverloadShutdown, domain.BurnoutTypeOverloadShutdown, 0.95),
			Cycles:   []domain.DetectedCycle{cycle(domain.CycleIsolation, 0.9, true)},
		},
		"malformed snapshot": {Snapshot: &domain.NeurostateSnapshot{TierUsed: 9, Burnout: &domain.BurnoutReading{Severity: -3}}},
	}
	for name, in := range inputs {
		t.Run(name, func(t *testing.T) {
			in.CrisisFlag = flag(true)
			d, err := g.Evaluate(in)
			require.NoError(t, err)
			assert.Equal(t, domain.DirectiveSuspendForCrisis, d.Tier)
			assert.Equal(t, domain.LevelSafety, d.Level)
			assert.True(t, d.NonOverridable())
		})
	}
}

func TestMissingCrisisFlagIsFatal(t *testing.T) {
	_, err := NewGate(nil).Evaluate(Input{Snapshot: greenSnapshot()})
	assert.ErrorIs(t, err, domain.ErrMissingCrisisFlag)
}

func TestBurnoutBars(t *testing.T) {
	g := NewGate(nil)
	cases := []struct {
		name     string
		snapshot *domain.NeurostateSnapshot
		want     domain.OverrideLevel
	}{
		{"boom bust 0.85", burnout(domain.BurnoutBoomBust, domain.BurnoutTypeBoomBust, 0.85), domain.LevelSafety},
		{"boom bust 0.79", burnout(domain.BurnoutBoomBust, domain.BurnoutTypeBoomBust, 0.79), domain.LevelOptimization},
		{"overload 0.6", burnout(domain.BurnoutOverloadShutdown, domain.BurnoutTypeOverloadShutdown, 0.6), domain.LevelSafety},
		{"overload 0.59", burnout(domain.BurnoutOverloadShutdown, domain.BurnoutTypeOverloadShutdown, 0.59), domain.LevelOptimization},
		{"compound reporting boom bust 0.65", burnout(domain.BurnoutThreeTypeCompound, domain.BurnoutTypeBoomBust, 0.65), domain.LevelSafety},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d, err := g.Evaluate(Input{Snapshot: tc.snapshot, CrisisFlag: flag(false)})
			require.NoError(t, err)
			assert.Equal(t, tc.want, d.Level)
			if tc.want == domain.LevelSafety {
				assert.Equal(t, domain.DirectiveGentleRedirect, d.Tier)
			} else {
				assert.Equal(t, domain.DirectiveProceed, d.Tier)
			}
		})
	}
}

func TestBurnoutOutranksCycles(t *testing.T) {
	d, err := NewGate(nil).Evaluate(Input{
		Snapshot:   burnout(domain.BurnoutBoomBust, domain.BurnoutTypeBoomBust, 0.85),
		Cycles:     []domain.DetectedCycle{cycle(domain.CyclePerfectionism, 0.95, true)},
		CrisisFlag: flag(false),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.LevelSafety, d.Level)
	assert.Empty(t, d.CycleType)
}

func TestCycleLevels(t *testing.T) {
	g := NewGate(nil)

	d, err := g.Evaluate(Input{
		Snapshot: greenSnapshot(),
		Cycles: []domain.DetectedCycle{
			cycle(domain.CycleIsolation, 0.95, false),
			cycle(domain.CycleAvoidanceShame, 0.65, true),
			cycle(domain.CycleMaskingCollapse, 0.8, true),
		},
		CrisisFlag: flag(false),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.DirectiveGentleRedirect, d.Tier)
	assert.Equal(t, domain.LevelGrounding, d.Level)
	assert.Equal(t, domain.CycleMaskingCollapse, d.CycleType)

	d, err = g.Evaluate(Input{
		Snapshot:   greenSnapshot(),
		Cycles:     []domain.DetectedCycle{cycle(domain.CycleAvoidanceShame, 0.65, true)},
		CrisisFlag: flag(false),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.DirectiveProceed, d.Tier)
	assert.Equal(t, domain.LevelAlignment, d.Level)
	assert.Equal(t, domain.CycleAvoidanceShame, d.CycleType)
	assert.False(t, d.NonOverridable())
}

func TestSuppressedInterventionsAlign(t *testing.T) {
	s := greenSnapshot()
	s.InterventionsSuppressed = true
	d, err := NewGate(nil).Evaluate(Input{Snapshot: s, CrisisFlag: flag(false)})
	require.NoError(t, err)
	assert.Equal(t, domain.LevelAlignment, d.Level)
	assert.Equal(t, domain.DirectiveProceed, d.Tier)
}

func TestGreenSnapshotOptimizes(t *testing.T) {
	d, err := NewGate(nil).Evaluate(Input{Snapshot: greenSnapshot(), CrisisFlag: flag(false)})
	require.NoError(t, err)
	assert.Equal(t, domain.DirectiveProceed, d.Tier)
	assert.Equal(t, domain.LevelOptimization, d.Level)
	assert.False(t, d.Degraded)
}

func TestMissingSnapshotDegrades(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	d, err := NewGate(zap.New(core)).Evaluate(Input{CrisisFlag: flag(false)})
	require.NoError(t, err)
	assert.Equal(t, domain.DirectiveProceed, d.Tier)
	assert.True(t, d.Degraded)
	assert.Equal(t, 1, logs.Len())
}
