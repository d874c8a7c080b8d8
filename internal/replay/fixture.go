package replay

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"neurostate/internal/domain"
	"neurostate/internal/profile"
)

// Fixture es un escenario grabado: un perfil y una secuencia de pasos con tiempo.
type Fixture struct {
	Description string         `yaml:"description"`
	UserID      string         `yaml:"user_id"`
	Timezone    string         `yaml:"timezone"`
	Strict      bool           `yaml:"strict"`
	Profile     FixtureProfile `yaml:"profile"`
	Steps       []FixtureStep  `yaml:"steps"`
}

type FixtureProfile struct {
	Segment                  string            `yaml:"segment"`
	InteroceptionReliability string            `yaml:"interoception_reliability"`
	Overrides                profile.Overrides `yaml:"overrides"`
}

// FixtureStep lleva exactamente una de Observe, Action o Assess.
type FixtureStep struct {
	At      time.Time           `yaml:"at"`
	Observe *FixtureObservation `yaml:"observe"`
	Action  *FixtureAction      `yaml:"action"`
	Assess  *FixtureAssess      `yaml:"assess"`
}

type FixtureObservation struct {
	Channel         string   `yaml:"channel"`
	Value           float64  `yaml:"value"`
	TextLength      *int     `yaml:"text_length"`
	Vocabulary      float64  `yaml:"vocabulary_complexity"`
	Modality        string   `yaml:"modality"`
	Recovery        bool     `yaml:"recovery"`
	MaskingContexts int      `yaml:"masking_contexts"`
	Mode            string   `yaml:"mode"`
	Markers         []string `yaml:"markers"`
}

type FixtureAction struct {
	Type     string            `yaml:"type"`
	Metadata map[string]string `yaml:"metadata"`
}

type FixtureAssess struct {
	CrisisFlag *bool          `yaml:"crisis_flag"`
	Expect     *FixtureExpect `yaml:"expect"`
}

// FixtureExpect compara solo los campos presentes.
type FixtureExpect struct {
	Tier         string   `yaml:"tier"`
	Level        string   `yaml:"level"`
	Energy       string   `yaml:"energy"`
	TierUsed     int      `yaml:"tier_used"`
	ActiveCycles []string `yaml:"active_cycles"`
	Error        string   `yaml:"error"`
}

// LoadFixture lee y valida un fixture YAML.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	f, err := ParseFixture(data)
	if err != nil {
		return nil, fmt.Errorf("fixture %s: %w", path, err)
	}
	return f, nil
}

func ParseFixture(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if f.UserID == "" {
		f.UserID = "replay-user"
	}
	if f.Timezone == "" {
		f.Timezone = "UTC"
	}
	if _, err := time.LoadLocation(f.Timezone); err != nil {
		return nil, fmt.Errorf("timezone %q: %w", f.Timezone, err)
	}
	for i, s := range f.Steps {
		n := 0
		for _, set := range []bool{s.Observe != nil, s.Action != nil, s.Assess != nil} {
			if set {
				n++
			}
		}
		if n != 1 {
			return nil, fmt.Errorf("step %d: exactly one of observe, action or assess is required", i)
		}
		if s.At.IsZero() {
			return nil, fmt.Errorf("step %d: missing at", i)
		}
		if i > 0 && s.At.Before(f.Steps[i-1].At) {
			return nil, fmt.Errorf("step %d: steps must be in chronological order", i)
		}
	}
	return &f, nil
}

// ToProfile resuelve el perfil contra el catálogo; nil usa los presets embebidos.
func (fp FixtureProfile) ToProfile(catalog *profile.Catalog) (domain.SegmentProfile, error) {
	if catalog == nil {
		catalog = profile.DefaultCatalog()
	}
	seg, err := domain.ParseSegment(fp.Segment)
	if err != nil {
		return domain.SegmentProfile{}, err
	}
	ov := fp.Overrides
	if fp.InteroceptionReliability != "" {
		r, err := domain.ParseInteroception(fp.InteroceptionReliability)
		if err != nil {
			return domain.SegmentProfile{}, err
		}
		ov.InteroceptionReliability = &r
	}
	return catalog.New(seg, ov)
}

func (fo FixtureObservation) ToObservation(at time.Time) domain.Observation {
	obs := domain.Observation{
		At:              at,
		Channel:         domain.Channel(fo.Channel),
		Value:           fo.Value,
		Modality:        domain.Modality(fo.Modality),
		Recovery:        fo.Recovery,
		MaskingContexts: fo.MaskingContexts,
		Mode:            domain.Mode(fo.Mode),
	}
	if fo.TextLength != nil {
		obs.Text = &domain.TextMetrics{Length: *fo.TextLength, VocabularyComplexity: fo.Vocabulary}
	}
	for _, m := range fo.Markers {
		obs.Markers = append(obs.Markers, domain.Marker(m))
	}
	return obs
}

func (fa FixtureAction) ToActionEvent(at time.Time) domain.ActionEvent {
	return domain.ActionEvent{
		At:       at,
		Type:     domain.ActionType(fa.Type),
		Metadata: fa.Metadata,
	}
}
