package profile

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"neurostate/internal/domain"
)

//go:embed presets.yaml
var embeddedPresets []byte

type presetFile struct {
	Segments map[string]preset `yaml:"segments"`
}

type preset struct {
	EnergyModel              domain.EnergyModel  `yaml:"energy_model"`
	BurnoutModel             domain.BurnoutModel `yaml:"burnout_model"`
	InertiaModel             domain.InertiaModel `yaml:"inertia_model"`
	SensoryAccumulates       bool                `yaml:"sensory_accumulates"`
	InteroceptionReliability string              `yaml:"interoception_reliability"`
	ChannelDominanceEnabled  bool                `yaml:"channel_dominance_enabled"`
	SpoonDrawerEnabled       bool                `yaml:"spoon_drawer_enabled"`
	IntegrityTriggerEnabled  bool                `yaml:"integrity_trigger_enabled"`
	Thresholds               domain.Thresholds   `yaml:"thresholds"`
}

// Catalog construye SegmentProfile a partir de los presets.
type Catalog struct {
	presets map[domain.Segment]preset
}

// LoadCatalog lee los presets desde path; si path está vacío usa los embebidos.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return ParseCatalog(embeddedPresets)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read presets %s: %w", path, err)
	}
	return ParseCatalog(data)
}

// DefaultCatalog usa los presets embebidos. Paniquea solo si el binario se compiló con
// un presets.yaml inválido.
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(embeddedPresets)
	if err != nil {
		panic(fmt.Sprintf("embedded presets: %v", err))
	}
	return c
}

func ParseCatalog(data []byte) (*Catalog, error) {
	var f presetFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse presets: %w", err)
	}
	c := &Catalog{presets: make(map[domain.Segment]preset, len(f.Segments))}
	for name, p := range f.Segments {
		seg, err := domain.ParseSegment(name)
		if err != nil {
			return nil, fmt.Errorf("presets: %w", err)
		}
		c.presets[seg] = p
	}
	for _, seg := range []domain.Segment{
		domain.SegmentADHD, domain.SegmentAutism, domain.SegmentAuDHD, domain.SegmentNeurotypical, domain.SegmentCustom,
	} {
		if _, ok := c.presets[seg]; !ok {
			return nil, fmt.Errorf("presets: missing segment %s", seg)
		}
		if seg == domain.SegmentCustom {
			continue
		}
		if _, err := c.New(seg, Overrides{}); err != nil {
			return nil, fmt.Errorf("presets: segment %s: %w", seg, err)
		}
	}
	return c, nil
}

// New mapea segmento -> sub-modelos, aplica overrides y valida. Custom exige los tres
// sub-modelos en overrides.
func (c *Catalog) New(seg domain.Segment, ov Overrides) (domain.SegmentProfile, error) {
	p, ok := c.presets[seg]
	if !ok {
		return domain.SegmentProfile{}, fmt.Errorf("%w: %q", domain.ErrUnknownSegment, seg)
	}
	reliability, err := domain.ParseInteroception(p.InteroceptionReliability)
	if err != nil {
		return domain.SegmentProfile{}, err
	}

	prof := domain.SegmentProfile{
		Segment:                  seg,
		EnergyModel:              p.EnergyModel,
		BurnoutModel:             p.BurnoutModel,
		InertiaModel:             p.InertiaModel,
		SensoryAccumulates:       p.SensoryAccumulates,
		InteroceptionReliability: reliability,
		ChannelDominanceEnabled:  p.ChannelDominanceEnabled,
		SpoonDrawerEnabled:       p.SpoonDrawerEnabled,
		IntegrityTriggerEnabled:  p.IntegrityTriggerEnabled,
		Thresholds:               p.Thresholds,
	}
	if seg == domain.SegmentCustom && (ov.EnergyModel == nil || ov.BurnoutModel == nil || ov.InertiaModel == nil) {
		return domain.SegmentProfile{}, fmt.Errorf("%w: custom segment requires energy, burnout and inertia models", domain.ErrProfileInconsistency)
	}
	ov.apply(&prof)
	prof = prof.Clone()

	if err := prof.Validate(); err != nil {
		return domain.SegmentProfile{}, err
	}
	return prof, nil
}
