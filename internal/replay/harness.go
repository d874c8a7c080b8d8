package replay

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"neurostate/internal/profile"
	"neurostate/internal/service"
)

// StepResult es el resultado de un paso del fixture.
type StepResult struct {
	Index      int                 `json:"index"`
	At         time.Time           `json:"at"`
	Kind       string              `json:"kind"`
	Error      string              `json:"error,omitempty"`
	Assessment *service.Assessment `json:"assessment,omitempty"`
	Mismatches []string            `json:"mismatches,omitempty"`
}

type Summary struct {
	Description string       `json:"description"`
	Steps       int          `json:"steps"`
	Assessments int          `json:"assessments"`
	Mismatches  int          `json:"mismatches"`
	Results     []StepResult `json:"results"`
}

func (s Summary) Passed() bool { return s.Mismatches == 0 }

// Run reproduce el fixture contra un servicio en memoria con reloj controlado. Solo
// devuelve error si el fixture no se puede preparar; los fallos por paso van en Summary.
func Run(ctx context.Context, f *Fixture, catalog *profile.Catalog, logger *zap.Logger) (Summary, error) {
	if catalog == nil {
		catalog = profile.DefaultCatalog()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	prof, err := f.Profile.ToProfile(catalog)
	if err != nil {
		return Summary{}, fmt.Errorf("fixture profile: %w", err)
	}
	loc, err := time.LoadLocation(f.Timezone)
	if err != nil {
		return Summary{}, err
	}

	var now time.Time
	cfg := service.DefaultConfig()
	cfg.Signals.Location = loc
	cfg.StrictInvariants = f.Strict
	svc := service.NewNeurostateService(cfg, logger, service.WithClock(func() time.Time { return now }))

	sum := Summary{Description: f.Description, Steps: len(f.Steps)}
	for i, step := range f.Steps {
		now = step.At
		res := StepResult{Index: i, At: step.At}

		switch {
		case step.Observe != nil:
			res.Kind = "observe"
			if err := svc.Ingest(f.UserID, step.Observe.ToObservation(step.At)); err != nil {
				res.Error = err.Error()
				res.Mismatches = append(res.Mismatches, "unexpected error: "+err.Error())
			}
		case step.Action != nil:
			res.Kind = "action"
			if _, err := svc.RecordAction(f.UserID, step.Action.ToActionEvent(step.At)); err != nil {
				res.Error = err.Error()
				res.Mismatches = append(res.Mismatches, "unexpected error: "+err.Error())
			}
		case step.Assess != nil:
			res.Kind = "assess"
			sum.Assessments++
			out, err := svc.Assess(ctx, service.AssessRequest{
				UserID:     f.UserID,
				Profile:    prof,
				CrisisFlag: step.Assess.CrisisFlag,
			})
			if err != nil {
				res.Error = err.Error()
			} else {
				res.Assessment = &out
			}
			res.Mismatches = compare(step.Assess.Expect, res.Assessment, err)
		}

		if len(res.Mismatches) > 0 {
			sum.Mismatches += len(res.Mismatches)
			logger.Info("replay mismatch",
				zap.Int("step", i),
				zap.Strings("mismatches", res.Mismatches),
			)
		}
		sum.Results = append(sum.Results, res)
	}
	return sum, nil
}

func compare(want *FixtureExpect, got *service.Assessment, err error) []string {
	if want == nil {
		if err != nil {
			return []string{"unexpected error: " + err.Error()}
		}
		return nil
	}
	if want.Error != "" {
		switch {
		case err == nil:
			return []string{fmt.Sprintf("expected error containing %q", want.Error)}
		case !strings.Contains(err.Error(), want.Error):
			return []string{fmt.Sprintf("error %q does not contain %q", err.Error(), want.Error)}
		}
		return nil
	}
	if err != nil {
		return []string{"unexpected error: " + err.Error()}
	}

	var out []string
	d := got.Directive
	if want.Tier != "" && string(d.Tier) != want.Tier {
		out = append(out, fmt.Sprintf("tier: got %s, want %s", d.Tier, want.Tier))
	}
	if want.Level != "" && string(d.Level) != want.Level {
		out = append(out, fmt.Sprintf("level: got %s, want %s", d.Level, want.Level))
	}
	if want.Energy != "" {
		level := "none"
		if got.Snapshot != nil && got.Snapshot.Energy != nil {
			level = string(got.Snapshot.Energy.Level)
		}
		if level != want.Energy {
			out = append(out, fmt.Sprintf("energy: got %s, want %s", level, want.Energy))
		}
	}
	if want.TierUsed != 0 {
		used := 0
		if got.Snapshot != nil {
			used = int(got.Snapshot.TierUsed)
		}
		if used != want.TierUsed {
			out = append(out, fmt.Sprintf("tier_used: got %d, want %d", used, want.TierUsed))
		}
	}
	if want.ActiveCycles != nil {
		active := make([]string, 0, len(got.ActiveCycles))
		for _, c := range got.ActiveCycles {
			active = append(active, string(c.Type))
		}
		expected := slices.Clone(want.ActiveCycles)
		slices.Sort(active)
		slices.Sort(expected)
		if !slices.Equal(active, expected) {
			out = append(out, fmt.Sprintf("active_cycles: got %v, want %v", active, expected))
		}
	}
	return out
}
