package pattern

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"neurostate/internal/domain"
	"neurostate/internal/profile"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func mustProfile(t *testing.T, seg domain.Segment) domain.SegmentProfile {
	t.Helper()
	p, err := profile.DefaultCatalog().New(seg, profile.Overrides{})
	require.NoError(t, err)
	return p
}

func action(id string, at time.Time, typ domain.ActionType, task string) domain.ActionEvent {
	a := domain.ActionEvent{ID: id, UserID: "u1", At: at, Type: typ}
	if task != "" {
		a.Metadata = map[string]string{"task_id": task}
	}
	return a
}

func snap(id string, at time.Time, level domain.EnergyLevel) domain.NeurostateSnapshot {
	return domain.NeurostateSnapshot{
		ID: id, UserID: "u1", TierUsed: domain.Tier1, CreatedAt: at,
		Energy: &domain.EnergyReading{Score: 0.5, Level: level, Confidence: 0.8},
	}
}

// fakeDetector emite una referencia por acción con confianza fija.
type fakeDetector struct {
	typ        domain.CycleType
	confidence float64
}

func (f fakeDetector) Type() domain.CycleType { return f.typ }

func (f fakeDetector) Detect(in Input) *Candidate {
	if len(in.Actions) == 0 {
		return nil
	}
	c := &Candidate{Type: f.typ, Confidence: f.confidence, FramingKey: framing(f.typ, "test")}
	for _, a := range in.Actions {
		c.Evidence = append(c.Evidence, actionRef(a))
	}
	return c
}

func actions(n int, start time.Time) []domain.ActionEvent {
	out := make([]domain.ActionEvent, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, action(fmt.Sprintf("a%d", i), start.Add(time.Duration(i)*time.Minute), domain.ActionTaskAbandoned, ""))
	}
	return out
}

func TestSingleEvidenceNeverActivates(t *testing.T) {
	for _, typ := range domain.AllCycleTypes {
		t.Run(string(typ), func(t *testing.T) {
			tr := NewTracker("u1", TrackerConfig{}, []Detector{fakeDetector{typ: typ, confidence: 1}}, zap.NewNop())
			acts := actions(2, t0)

			active := tr.Observe(Input{Actions: acts[:1], Now: t0.Add(time.Hour)})
			assert.Empty(t, active)
			all := tr.All()
			require.Len(t, all, 1)
			assert.False(t, all[0].Active)
			assert.Len(t, all[0].Evidence, 1)

			active = tr.Observe(Input{Actions: acts, Now: t0.Add(2 * time.Hour)})
			require.Len(t, active, 1)
			assert.Equal(t, typ, active[0].Type)
			assert.Len(t, active[0].Evidence, 2)
		})
	}
}

func TestActivationNeedsConfidenceBar(t *testing.T) {
	tr := NewTracker("u1", TrackerConfig{}, []Detector{fakeDetector{typ: domain.CycleIsolation, confidence: 0.59}}, nil)
	assert.Empty(t, tr.Observe(Input{Actions: actions(5, t0), Now: t0.Add(time.Hour)}))

	tr = NewTracker("u1", TrackerConfig{}, []Detector{fakeDetector{typ: domain.CycleIsolation, confidence: 0.6}}, nil)
	assert.Len(t, tr.Observe(Input{Actions: actions(5, t0), Now: t0.Add(time.Hour)}), 1)
}

func TestCooldownDeactivatesWithoutNewEvidence(t *testing.T) {
	cooldown := 72 * time.Hour
	tr := NewTracker("u1", TrackerConfig{Cooldown: cooldown}, []Detector{fakeDetector{typ: domain.CycleAvoidanceShame, confidence: 0.9}}, nil)
	acts := actions(2, t0)
	start := t0.Add(time.Hour)

	require.Len(t, tr.Observe(Input{Actions: acts, Now: start}), 1)
	firstID := tr.Active()[0].ID

	// la misma evidencia no renueva el ciclo
	assert.Len(t, tr.Observe(Input{Actions: acts, Now: start.Add(cooldown - time.Minute)}), 1)
	assert.Empty(t, tr.Observe(Input{Actions: acts, Now: start.Add(cooldown)}))

	all := tr.All()
	require.Len(t, all, 1)
	assert.Equal(t, firstID, all[0].ID)
	assert.False(t, all[0].Active)

	// evidencia del episodio cerrado no lo reabre
	assert.Empty(t, tr.Observe(Input{Actions: acts, Now: start.Add(cooldown + time.Hour)}))
	assert.Len(t, tr.All(), 1)

	later := start.Add(cooldown + 2*time.Hour)
	fresh := []domain.ActionEvent{
		action("b1", later, domain.ActionTaskAbandoned, ""),
		action("b2", later.Add(time.Minute), domain.ActionTaskAbandoned, ""),
	}
	active := tr.Observe(Input{Actions: append(acts, fresh...), Now: later.Add(time.Hour)})
	require.Len(t, active, 1)
	assert.NotEqual(t, firstID, active[0].ID)
	assert.Len(t, active[0].Evidence, 2)
}

func TestChangedReportsOnlyTouchedCycles(t *testing.T) {
	cooldown := 72 * time.Hour
	tr := NewTracker("u1", TrackerConfig{Cooldown: cooldown}, []Detector{fakeDetector{typ: domain.CycleAvoidanceShame, confidence: 0.9}}, nil)
	acts := actions(2, t0)
	start := t0.Add(time.Hour)

	tr.Observe(Input{Actions: acts, Now: start})
	changed := tr.Changed()
	require.Len(t, changed, 1)
	assert.True(t, changed[0].Active)

	// sin evidencia nueva no hay nada que persistir
	tr.Observe(Input{Actions: acts, Now: start.Add(time.Hour)})
	assert.Empty(t, tr.Changed())

	// el cierre se reporta una sola vez
	tr.Observe(Input{Actions: acts, Now: start.Add(cooldown)})
	closed := tr.Changed()
	require.Len(t, closed, 1)
	assert.False(t, closed[0].Active)
	assert.Equal(t, changed[0].ID, closed[0].ID)

	tr.Observe(Input{Actions: acts, Now: start.Add(cooldown + time.Hour)})
	assert.Empty(t, tr.Changed())
	assert.Len(t, tr.All(), 1)
}

func TestEvidenceIsDeduplicatedAndBounded(t *testing.T) {
	tr := NewTracker("u1", TrackerConfig{EvidenceMax: 3}, []Detector{fakeDetector{typ: domain.CyclePerfectionism, confidence: 0.8}}, nil)
	acts := actions(5, t0)
	now := t0.Add(time.Hour)
	for i := 1; i <= len(acts); i++ {
		tr.Observe(Input{Actions: acts[:i], Now: now})
		tr.Observe(Input{Actions: acts[:i], Now: now})
	}

	active := tr.Active()
	require.Len(t, active, 1)
	var ids []string
	for _, e := range active[0].Evidence {
		ids = append(ids, e.RefID)
	}
	assert.Equal(t, []string{"a2", "a3", "a4"}, ids)
}

func TestActiveReturnsCopies(t *testing.T) {
	tr := NewTracker("u1", TrackerConfig{}, []Detector{fakeDetector{typ: domain.CycleIsolation, confidence: 0.9}}, nil)
	active := tr.Observe(Input{Actions: actions(2, t0), Now: t0.Add(time.Hour)})
	require.Len(t, active, 1)
	active[0].Evidence[0].RefID = "tampered"
	active[0].Active = false

	again := tr.Active()
	require.Len(t, again, 1)
	assert.Equal(t, "a0", again[0].Evidence[0].RefID)
}

func TestPerfectionismDetector(t *testing.T) {
	d := PerfectionismDetector{MinEvidence: 3}
	in := Input{
		Profile: mustProfile(t, domain.SegmentADHD),
		Actions: []domain.ActionEvent{
			action("r1", t0, domain.ActionTaskRevised, "essay"),
			action("r2", t0.Add(time.Hour), domain.ActionTaskRevised, "essay"),
			action("r3", t0.Add(2*time.Hour), domain.ActionTaskRevised, "essay"),
			action("r4", t0.Add(3*time.Hour), domain.ActionTaskRevised, "email"),
		},
		Now: t0.Add(4 * time.Hour),
	}
	c := d.Detect(in)
	require.NotNil(t, c)
	assert.Len(t, c.Evidence, 3)
	assert.InDelta(t, 0.6, c.Confidence, 1e-9)
	assert.Equal(t, "perfectionism_loop.activation_deficit", c.FramingKey)

	in.Actions = append(in.Actions, action("c1", t0.Add(5*time.Hour), domain.ActionTaskCompleted, "essay"))
	assert.Nil(t, d.Detect(in))
}

func TestIsolationDetector(t *testing.T) {
	d := IsolationDetector{MinEvidence: 2}
	in := Input{
		Profile: mustProfile(t, domain.SegmentAutism),
		Actions: []domain.ActionEvent{
			action("d1", t0, domain.ActionSocialDeclined, ""),
			action("d2", t0.Add(24*time.Hour), domain.ActionSocialDeclined, ""),
		},
		History: []domain.NeurostateSnapshot{
			snap("before", t0.Add(-time.Hour), domain.EnergyRed),
			snap("s1", t0.Add(2*time.Hour), domain.EnergyYellow),
			snap("s2", t0.Add(3*time.Hour), domain.EnergyGreen),
		},
		Now: t0.Add(48 * time.Hour),
	}
	c := d.Detect(in)
	require.NotNil(t, c)
	assert.Len(t, c.Evidence, 3)
	assert.InDelta(t, 0.6, c.Confidence, 1e-9)
	assert.Equal(t, "isolation_loop.sensory_cognitive", c.FramingKey)

	in.Actions = append(in.Actions, action("e1", t0.Add(30*time.Hour), domain.ActionSocialEngaged, ""))
	assert.Nil(t, d.Detect(in))
}

func TestOvercommitDetector(t *testing.T) {
	d := OvercommitDetector{MinEvidence: 3}
	in := Input{
		Profile: mustProfile(t, domain.SegmentADHD),
		History: []domain.NeurostateSnapshot{
			snap("g", t0, domain.EnergyGreen),
			snap("r", t0.Add(6*time.Hour), domain.EnergyRed),
		},
		Actions: []domain.ActionEvent{
			action("c1", t0.Add(30*time.Minute), domain.ActionCommitmentAdded, ""),
			action("c2", t0.Add(time.Hour), domain.ActionCommitmentAdded, ""),
		},
		Now: t0.Add(7 * time.Hour),
	}
	c := d.Detect(in)
	require.NotNil(t, c)
	assert.Len(t, c.Evidence, 3)
	assert.InDelta(t, 0.6, c.Confidence, 1e-9)
	assert.Equal(t, "boom_bust_overcommit.boom_bust", c.FramingKey)

	// sin caída posterior no hay ciclo
	in.History = in.History[:1]
	assert.Nil(t, d.Detect(in))
}

func TestAvoidanceShameDetector(t *testing.T) {
	d := AvoidanceShameDetector{MinEvidence: 2}
	inert := snap("i1", t0.Add(time.Hour), domain.EnergyYellow)
	inert.Inertia = &domain.InertiaReading{Type: domain.InertiaActivationDeficit, Trigger: domain.MarkerCantStart, Confidence: 0.5}
	in := Input{
		Profile: mustProfile(t, domain.SegmentAuDHD),
		History: []domain.NeurostateSnapshot{inert},
		Actions: []domain.ActionEvent{action("x1", t0, domain.ActionTaskAbandoned, "")},
		Now:     t0.Add(3 * time.Hour),
	}
	assert.Nil(t, d.Detect(in))

	in.Actions = append(in.Actions, action("x2", t0.Add(2*time.Hour), domain.ActionTaskAbandoned, ""))
	c := d.Detect(in)
	require.NotNil(t, c)
	assert.Len(t, c.Evidence, 3)
	assert.InDelta(t, 0.6, c.Confidence, 1e-9)
	assert.Equal(t, "avoidance_shame_spiral.double_block", c.FramingKey)
}

func TestMaskingCollapseDetector(t *testing.T) {
	d := MaskingCollapseDetector{MinEvidence: 2}
	masked := func(id string, at time.Time, cost float64) domain.NeurostateSnapshot {
		s := snap(id, at, domain.EnergyYellow)
		s.Masking = &domain.MaskingReading{Cost: cost, Model: domain.MaskingExponential, Confidence: 0.7}
		return s
	}
	in := Input{
		Profile: mustProfile(t, domain.SegmentAuDHD),
		History: []domain.NeurostateSnapshot{
			masked("m1", t0, 0.7),
			masked("m2", t0.Add(time.Hour), 0.2),
			masked("m3", t0.Add(2*time.Hour), 0.8),
			masked("m4", t0.Add(3*time.Hour), 0.9),
			snap("crash", t0.Add(5*time.Hour), domain.EnergyRed),
		},
		Now: t0.Add(6 * time.Hour),
	}
	c := d.Detect(in)
	require.NotNil(t, c)
	assert.Len(t, c.Evidence, 4)
	assert.InDelta(t, 0.9, c.Confidence, 1e-9)
	assert.Equal(t, "masking_collapse.exponential", c.FramingKey)

	in.Profile = mustProfile(t, domain.SegmentAutism)
	in.History = in.History[:2]
	assert.Nil(t, d.Detect(in))
}

func TestDefaultTrackerActivatesOvercommit(t *testing.T) {
	tr := NewTracker("u1", TrackerConfig{}, nil, zap.NewNop())
	in := Input{
		Profile: mustProfile(t, domain.SegmentADHD),
		History: []domain.NeurostateSnapshot{
			snap("g", t0, domain.EnergyGreen),
			snap("r", t0.Add(6*time.Hour), domain.EnergyRed),
		},
		Actions: []domain.ActionEvent{
			action("c1", t0.Add(30*time.Minute), domain.ActionCommitmentAdded, ""),
			action("c2", t0.Add(time.Hour), domain.ActionCommitmentAdded, ""),
		},
		Now: t0.Add(7 * time.Hour),
	}
	active := tr.Observe(in)
	require.Len(t, active, 1)
	assert.Equal(t, domain.CycleBoomBustOvercommit, active[0].Type)
	assert.Equal(t, "u1", active[0].UserID)
	assert.Equal(t, in.Now, active[0].FirstDetectedAt)
}
