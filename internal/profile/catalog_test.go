package profile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neurostate/internal/domain"
)

func ptr[T any](v T) *T { return &v }

func TestDefaultCatalogMapsSegmentsToSubModels(t *testing.T) {
	cat := DefaultCatalog()
	cases := []struct {
		seg     domain.Segment
		energy  domain.EnergyModel
		burnout domain.BurnoutModel
		inertia domain.InertiaModel
		tier2   bool
	}{
		{domain.SegmentADHD, domain.EnergyInterestBased, domain.BurnoutBoomBust, domain.InertiaActivationDeficit, false},
		{domain.SegmentAutism, domain.EnergySensoryCognitive, domain.BurnoutOverloadShutdown, domain.InertiaAutistic, true},
		{domain.SegmentAuDHD, domain.EnergyCompositeChannel, domain.BurnoutThreeTypeCompound, domain.InertiaDoubleBlock, true},
		{domain.SegmentNeurotypical, domain.EnergyStandard, domain.BurnoutBoomBust, domain.InertiaActivationDeficit, false},
	}
	for _, tc := range cases {
		t.Run(string(tc.seg), func(t *testing.T) {
			p, err := cat.New(tc.seg, Overrides{})
			require.NoError(t, err)
			assert.Equal(t, tc.energy, p.EnergyModel)
			assert.Equal(t, tc.burnout, p.BurnoutModel)
			assert.Equal(t, tc.inertia, p.InertiaModel)
			assert.Equal(t, tc.tier2, p.RequiresExtendedAssessment())
		})
	}

	adhd, err := cat.New(domain.SegmentADHD, Overrides{})
	require.NoError(t, err)
	assert.Equal(t, domain.InteroceptionHigh, adhd.InteroceptionReliability)

	audhd, err := cat.New(domain.SegmentAuDHD, Overrides{})
	require.NoError(t, err)
	assert.Equal(t, domain.InteroceptionVeryLow, audhd.InteroceptionReliability)
	assert.True(t, audhd.ChannelDominanceEnabled)
}

func TestNewRejectsUnknownSegment(t *testing.T) {
	_, err := DefaultCatalog().New(domain.Segment("dyslexia"), Overrides{})
	assert.ErrorIs(t, err, domain.ErrUnknownSegment)
}

func TestNewRejectsInconsistentOverrides(t *testing.T) {
	cat := DefaultCatalog()
	cases := map[string]struct {
		seg domain.Segment
		ov  Overrides
	}{
		"channel dominance without composite energy": {
			domain.SegmentADHD, Overrides{ChannelDominanceEnabled: ptr(true)},
		},
		"overload burnout without sensory accumulation": {
			domain.SegmentAutism, Overrides{SensoryAccumulates: ptr(false), SpoonDrawerEnabled: ptr(false)},
		},
		"double block without channel dominance": {
			domain.SegmentAuDHD, Overrides{ChannelDominanceEnabled: ptr(false), EnergyModel: ptr(domain.EnergySensoryCognitive)},
		},
		"integrity trigger with activation deficit": {
			domain.SegmentADHD, Overrides{IntegrityTriggerEnabled: ptr(true)},
		},
		"spoon drawer without sensory accumulation": {
			domain.SegmentNeurotypical, Overrides{SpoonDrawerEnabled: ptr(true)},
		},
		"custom without sub-models": {
			domain.SegmentCustom, Overrides{EnergyModel: ptr(domain.EnergyStandard)},
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := cat.New(tc.seg, tc.ov)
			assert.ErrorIs(t, err, domain.ErrProfileInconsistency)
		})
	}
}

func TestCustomSegmentWithExplicitSubModels(t *testing.T) {
	p, err := DefaultCatalog().New(domain.SegmentCustom, Overrides{
		EnergyModel:        ptr(domain.EnergySensoryCognitive),
		BurnoutModel:       ptr(domain.BurnoutOverloadShutdown),
		InertiaModel:       ptr(domain.InertiaAutistic),
		SensoryAccumulates: ptr(true),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.SegmentCustom, p.Segment)
	assert.Equal(t, domain.InertiaAutistic, p.InertiaModel)
	assert.True(t, p.RequiresExtendedAssessment())
}

func TestThresholdOverrideIsCopied(t *testing.T) {
	th := DefaultCatalog().presets[domain.SegmentAutism].Thresholds
	th.ModalityWeights = map[domain.Modality]float64{domain.ModalitySocial: 1.5}

	p, err := DefaultCatalog().New(domain.SegmentAutism, Overrides{Thresholds: &th})
	require.NoError(t, err)
	th.ModalityWeights[domain.ModalitySocial] = 9
	assert.Equal(t, 1.5, p.Thresholds.ModalityWeight(domain.ModalitySocial))
	assert.Equal(t, 1.0, p.Thresholds.ModalityWeight(domain.ModalityVisual))
}

func TestLoadCatalogFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "presets.yaml")
	data := strings.Replace(string(embeddedPresets), "energy_red_below: 0.25", "energy_red_below: 0.20", 1)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cat, err := LoadCatalog(path)
	require.NoError(t, err)
	p, err := cat.New(domain.SegmentNeurotypical, Overrides{})
	require.NoError(t, err)
	assert.Equal(t, 0.20, p.Thresholds.EnergyRedBelow)

	_, err = LoadCatalog(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestParseCatalogRequiresEverySegment(t *testing.T) {
	_, err := ParseCatalog([]byte("segments:\n  adhd:\n    energy_model: interest_based\n"))
	assert.Error(t, err)

	_, err = ParseCatalog([]byte("segments:\n  dyslexia: {}\n"))
	assert.ErrorIs(t, err, domain.ErrUnknownSegment)
}

func TestParseCatalogRejectsInvalidPreset(t *testing.T) {
	data := strings.Replace(string(embeddedPresets), "bust_below: 0.25\n\n  audhd", "bust_below: 0.90\n\n  audhd", 1)
	require.NotEqual(t, string(embeddedPresets), data)
	_, err := ParseCatalog([]byte(data))
	assert.ErrorIs(t, err, domain.ErrProfileInconsistency)
}
