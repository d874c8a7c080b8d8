package snapshot

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"neurostate/internal/classifier"
	"neurostate/internal/domain"
)

const (
	DefaultAfternoonStartHour = 12
	consecutiveRedTrigger     = 3
	// tolerancia para comparar cargas sensoriales en float64
	loadEpsilon = 1e-9
)

// Config controla el comportamiento del constructor.
type Config struct {
	// Strict convierte una violación de invariante en error en vez de recortar y loguear.
	Strict   bool
	Location *time.Location
	// AfternoonStartHour en 0 usa DefaultAfternoonStartHour.
	AfternoonStartHour int
}

// Input es todo lo que necesita una evaluación. History son los snapshots previos en
// orden cronológico; Reload vuelve a leer la ventana para el Tier4.
type Input struct {
	UserID  string
	Profile domain.SegmentProfile
	Window  domain.SignalWindow
	Reload  func() domain.SignalWindow
	History []domain.NeurostateSnapshot
	Now     time.Time
}

// Builder corre la máquina de tiers una vez por evento de evaluación y arma el snapshot.
type Builder struct {
	classifiers classifier.Set
	cfg         Config
	logger      *zap.Logger
}

func NewBuilder(classifiers classifier.Set, cfg Config, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	switch {
	case cfg.AfternoonStartHour == 0:
		cfg.AfternoonStartHour = DefaultAfternoonStartHour
	case cfg.AfternoonStartHour < 0 || cfg.AfternoonStartHour > 23:
		logger.Warn("afternoon start hour out of range, using default",
			zap.Int("afternoon_start_hour", cfg.AfternoonStartHour),
			zap.Int("default", DefaultAfternoonStartHour),
		)
		cfg.AfternoonStartHour = DefaultAfternoonStartHour
	}
	return &Builder{classifiers: classifiers, cfg: cfg, logger: logger}
}

// Build recorre Tier1 -> Tier4 en una sola pasada. Cada condición de entrada se evalúa en
// orden aunque los clasificadores previos no hayan devuelto lectura.
func (b *Builder) Build(in Input) (domain.NeurostateSnapshot, Trace, error) {
	now := in.Now
	if now.IsZero() {
		now = in.Window.AsOf
	}
	p := in.Profile
	w := in.Window
	if w.Location == nil {
		w.Location = b.cfg.Location
	}

	snap := domain.NeurostateSnapshot{
		ID:        uuid.NewString(),
		UserID:    in.UserID,
		TierUsed:  domain.Tier1,
		CreatedAt: now,
	}
	var trace Trace
	log := b.logger.With(zap.String("user_id", in.UserID))

	// Tier1
	energy, _ := b.classifiers.Energy.Assess(w, p)
	if energy == nil {
		log.Debug("energy not assessed", zap.Int("window_len", w.Len()))
	}
	snap.Energy = energy
	trace.enter(domain.Tier1, "always")

	// Tier2
	switch {
	case energy != nil && energy.Level == domain.EnergyYellow:
		trace.enter(domain.Tier2, "energy yellow")
	case p.RequiresExtendedAssessment():
		trace.enter(domain.Tier2, "profile requires extended assessment")
	default:
		trace.skip(domain.Tier2)
	}
	if trace.Entered(domain.Tier2) {
		snap.TierUsed = domain.Tier2
		snap.Sensory, _ = b.classifiers.Sensory.Assess(w, p)
		snap.Channel, _ = b.classifiers.Channel.Assess(w, p)
	}

	// Tier3
	switch {
	case energy != nil && energy.Level == domain.EnergyRed:
		trace.enter(domain.Tier3, "energy red")
	case consecutiveRed(in.History, consecutiveRedTrigger):
		trace.enter(domain.Tier3, "consecutive red snapshots")
	default:
		trace.skip(domain.Tier3)
	}
	if trace.Entered(domain.Tier3) {
		snap.TierUsed = domain.Tier3
		snap.Inertia, _ = b.classifiers.Inertia.Assess(w, p)
		snap.Masking, _ = b.classifiers.Masking.Assess(w, p)
		snap.Burnout, _ = b.classifiers.Burnout.Assess(w, p)
	}

	// Tier4
	if p.SensoryAccumulates && w.LocalTime(now).Hour() >= b.cfg.AfternoonStartHour && ranEarlierToday(in.History, now, w.Location) {
		trace.enter(domain.Tier4, "afternoon re-assessment")
		snap.TierUsed = domain.Tier4
		reloaded := w
		if in.Reload != nil {
			reloaded = in.Reload()
			if reloaded.Location == nil {
				reloaded.Location = w.Location
			}
		}
		if s, _ := b.classifiers.Sensory.Assess(reloaded, p); s != nil {
			snap.Sensory = s
			trace.Reassessed = true
		}
		w = reloaded
	} else {
		trace.skip(domain.Tier4)
	}

	if err := b.enforceSensoryMonotonic(&snap, in.History, w, log); err != nil {
		return domain.NeurostateSnapshot{}, trace, err
	}

	if snap.Channel != nil && snap.Channel.State == domain.ChannelRapidSwitching {
		snap.InterventionsSuppressed = true
		if snap.Inertia != nil {
			snap.Inertia.Intervention = domain.InterventionNone
		}
	}

	return snap, trace, nil
}

// enforceSensoryMonotonic compara con el último snapshot del mismo día local. Sin un
// evento de recuperación posterior la carga no puede bajar.
func (b *Builder) enforceSensoryMonotonic(snap *domain.NeurostateSnapshot, history []domain.NeurostateSnapshot, w domain.SignalWindow, log *zap.Logger) error {
	if snap.Sensory == nil {
		return nil
	}
	prev := lastSameDaySensory(history, snap.CreatedAt, w.Location)
	if prev == nil || snap.Sensory.Load+loadEpsilon >= prev.Sensory.Load {
		return nil
	}
	if recoverySince(w, prev.CreatedAt) {
		return nil
	}
	if b.cfg.Strict {
		return fmt.Errorf("%w: sensory load dropped from %.4f to %.4f without recovery",
			domain.ErrInvariantViolation, prev.Sensory.Load, snap.Sensory.Load)
	}
	log.Warn("sensory load decreased without recovery, clamping",
		zap.Float64("previous", prev.Sensory.Load),
		zap.Float64("computed", snap.Sensory.Load),
		zap.String("previous_snapshot_id", prev.ID),
	)
	snap.Sensory.Load = prev.Sensory.Load
	return nil
}

func consecutiveRed(history []domain.NeurostateSnapshot, n int) bool {
	if len(history) < n {
		return false
	}
	for _, s := range history[len(history)-n:] {
		if !s.EnergyLevelIs(domain.EnergyRed) {
			return false
		}
	}
	return true
}

func ranEarlierToday(history []domain.NeurostateSnapshot, now time.Time, loc *time.Location) bool {
	for i := len(history) - 1; i >= 0; i-- {
		s := history[i]
		if s.CreatedAt.Before(now) && domain.SameDay(s.CreatedAt, now, loc) {
			return true
		}
	}
	return false
}

func lastSameDaySensory(history []domain.NeurostateSnapshot, now time.Time, loc *time.Location) *domain.NeurostateSnapshot {
	for i := len(history) - 1; i >= 0; i-- {
		s := history[i]
		if !domain.SameDay(s.CreatedAt, now, loc) {
			return nil
		}
		if s.Sensory != nil {
			return &history[i]
		}
	}
	return nil
}

func recoverySince(w domain.SignalWindow, since time.Time) bool {
	for _, o := range w.Today() {
		if o.Recovery && o.At.After(since) {
			return true
		}
	}
	return false
}
