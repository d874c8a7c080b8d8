package pattern

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"neurostate/internal/domain"
	"neurostate/internal/store"
)

const (
	// ActivationConfidence y MinActivationEvidence fijan la barra false -> true.
	ActivationConfidence  = 0.6
	MinActivationEvidence = 2

	DefaultCooldown    = 72 * time.Hour
	DefaultEvidenceMax = 20
	DefaultLookback    = 14 * 24 * time.Hour
	defaultPastMax     = 50
)

type TrackerConfig struct {
	Cooldown    time.Duration
	EvidenceMax int
	Lookback    time.Duration
}

func (c TrackerConfig) withDefaults() TrackerConfig {
	if c.Cooldown <= 0 {
		c.Cooldown = DefaultCooldown
	}
	if c.EvidenceMax < MinActivationEvidence {
		c.EvidenceMax = DefaultEvidenceMax
	}
	if c.Lookback <= 0 {
		c.Lookback = DefaultLookback
	}
	return c
}

// Tracker mantiene el ciclo de vida de los ciclos de un usuario. No es seguro para uso
// concurrente: lo protege el mutex de la entrada del usuario.
type Tracker struct {
	userID    string
	cfg       TrackerConfig
	detectors []Detector
	current   map[domain.CycleType]*domain.DetectedCycle
	// resetAt evita que evidencia de un episodio cerrado reabra el ciclo
	resetAt map[domain.CycleType]time.Time
	past    *store.Ring[domain.DetectedCycle]
	// changed guarda copias de los ciclos creados, modificados o cerrados en el último Observe
	changed []domain.DetectedCycle
	logger  *zap.Logger
}

func NewTracker(userID string, cfg TrackerConfig, detectors []Detector, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if detectors == nil {
		detectors = DefaultDetectors()
	}
	return &Tracker{
		userID:    userID,
		cfg:       cfg.withDefaults(),
		detectors: detectors,
		current:   make(map[domain.CycleType]*domain.DetectedCycle),
		resetAt:   make(map[domain.CycleType]time.Time),
		past:      store.NewRing[domain.DetectedCycle](defaultPastMax),
		logger:    logger,
	}
}

// Observe corre todos los detectores y actualiza el estado. Devuelve los ciclos activos.
func (t *Tracker) Observe(in Input) []domain.DetectedCycle {
	t.changed = nil
	for _, d := range t.detectors {
		typ := d.Type()
		since := in.Now.Add(-t.cfg.Lookback)
		if r, ok := t.resetAt[typ]; ok && r.After(since) {
			since = r
		}
		cand := d.Detect(restrict(in, since))
		t.update(typ, cand, in.Now)
	}
	return t.Active()
}

func (t *Tracker) update(typ domain.CycleType, cand *Candidate, now time.Time) {
	cur := t.current[typ]
	dirty := false
	if cand != nil && len(cand.Evidence) > 0 {
		if cur == nil {
			cur = &domain.DetectedCycle{
				ID:              uuid.NewString(),
				UserID:          t.userID,
				Type:            typ,
				FirstDetectedAt: now,
				LastConfirmedAt: now,
			}
			t.current[typ] = cur
			dirty = true
		}
		if t.mergeEvidence(cur, cand.Evidence) > 0 {
			cur.LastConfirmedAt = now
			dirty = true
		}
		if cur.Confidence != cand.Confidence || cur.FramingKey != cand.FramingKey {
			dirty = true
		}
		cur.Confidence = cand.Confidence
		cur.FramingKey = cand.FramingKey

		if !cur.Active && cur.Confidence >= ActivationConfidence && len(cur.Evidence) >= MinActivationEvidence {
			cur.Active = true
			dirty = true
			t.logger.Info("cycle activated",
				zap.String("user_id", t.userID),
				zap.String("cycle_type", string(typ)),
				zap.Float64("confidence", cur.Confidence),
				zap.Int("evidence", len(cur.Evidence)),
			)
		}
	}

	if cur == nil || now.Sub(cur.LastConfirmedAt) < t.cfg.Cooldown {
		if dirty {
			t.changed = append(t.changed, cur.Clone())
		}
		return
	}
	// sin evidencia nueva durante el cooldown: se cierra el episodio
	if cur.Active {
		t.logger.Info("cycle deactivated after cooldown",
			zap.String("user_id", t.userID),
			zap.String("cycle_type", string(typ)),
		)
	}
	cur.Active = false
	t.past.Push(cur.Clone())
	t.changed = append(t.changed, cur.Clone())
	t.resetAt[typ] = now
	delete(t.current, typ)
}

// mergeEvidence agrega referencias sin duplicados y conserva las más recientes. Devuelve
// cuántas referencias nuevas sobrevivieron al recorte.
func (t *Tracker) mergeEvidence(c *domain.DetectedCycle, refs []domain.EvidenceRef) int {
	seen := make(map[domain.EvidenceRef]struct{}, len(c.Evidence))
	for _, e := range c.Evidence {
		seen[key(e)] = struct{}{}
	}
	fresh := make(map[domain.EvidenceRef]struct{})
	for _, e := range refs {
		k := key(e)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		fresh[k] = struct{}{}
		c.Evidence = append(c.Evidence, e)
	}
	if len(fresh) == 0 {
		return 0
	}
	slices.SortStableFunc(c.Evidence, func(a, b domain.EvidenceRef) int {
		return a.At.Compare(b.At)
	})
	if over := len(c.Evidence) - t.cfg.EvidenceMax; over > 0 {
		c.Evidence = append([]domain.EvidenceRef(nil), c.Evidence[over:]...)
	}
	added := 0
	for _, e := range c.Evidence {
		if _, ok := fresh[key(e)]; ok {
			added++
		}
	}
	return added
}

func key(e domain.EvidenceRef) domain.EvidenceRef {
	return domain.EvidenceRef{Kind: e.Kind, RefID: e.RefID}
}

// Active devuelve copias de los ciclos activos en el orden de domain.AllCycleTypes.
func (t *Tracker) Active() []domain.DetectedCycle {
	var out []domain.DetectedCycle
	for _, typ := range domain.AllCycleTypes {
		if c, ok := t.current[typ]; ok && c.Active {
			out = append(out, c.Clone())
		}
	}
	return out
}

// Changed devuelve los ciclos que el último Observe creó, modificó o cerró.
func (t *Tracker) Changed() []domain.DetectedCycle {
	out := make([]domain.DetectedCycle, 0, len(t.changed))
	for _, c := range t.changed {
		out = append(out, c.Clone())
	}
	return out
}

// All devuelve el historial completo: episodios cerrados y luego los vigentes.
func (t *Tracker) All() []domain.DetectedCycle {
	past := t.past.Items()
	out := make([]domain.DetectedCycle, 0, len(past)+len(t.current))
	for _, c := range past {
		out = append(out, c.Clone())
	}
	for _, typ := range domain.AllCycleTypes {
		if c, ok := t.current[typ]; ok {
			out = append(out, c.Clone())
		}
	}
	return out
}

func restrict(in Input, since time.Time) Input {
	out := in
	out.History = nil
	for _, s := range in.History {
		if s.CreatedAt.After(since) && !s.CreatedAt.After(in.Now) {
			out.History = append(out.History, s)
		}
	}
	out.Actions = nil
	for _, a := range in.Actions {
		if a.At.After(since) && !a.At.After(in.Now) {
			out.Actions = append(out.Actions, a)
		}
	}
	return out
}
