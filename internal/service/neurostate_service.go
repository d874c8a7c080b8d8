package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"neurostate/internal/classifier"
	"neurostate/internal/domain"
	"neurostate/internal/escalation"
	"neurostate/internal/pattern"
	"neurostate/internal/signals"
	"neurostate/internal/snapshot"
	"neurostate/internal/store"
)

// Archive recibe una copia de cada snapshot y de los ciclos después de evaluar. Un fallo
// se loguea y no afecta la directiva.
type Archive interface {
	SaveSnapshot(ctx context.Context, s domain.NeurostateSnapshot) error
	SaveCycles(ctx context.Context, userID string, cycles []domain.DetectedCycle) error
}

// CrisisFlagSource lee el flag de crisis que publica el colaborador externo.
type CrisisFlagSource interface {
	CrisisFlag(ctx context.Context, userID string) (bool, error)
}

type Config struct {
	Signals            signals.Config
	HistoryMax         int
	ActionsMax         int
	MinObservations    int
	Cycles             pattern.TrackerConfig
	StrictInvariants   bool
	AfternoonStartHour int
}

func DefaultConfig() Config {
	return Config{
		Signals:            signals.DefaultConfig(),
		HistoryMax:         120,
		ActionsMax:         200,
		MinObservations:    classifier.DefaultMinObservations,
		Cycles:             pattern.TrackerConfig{Cooldown: pattern.DefaultCooldown, EvidenceMax: pattern.DefaultEvidenceMax},
		AfternoonStartHour: snapshot.DefaultAfternoonStartHour,
	}
}

// AssessRequest es un evento de evaluación. Profile es el perfil vigente que entrega el
// colaborador de configuración; CrisisFlag nil significa "preguntar a la fuente".
type AssessRequest struct {
	UserID     string                `json:"user_id"`
	Profile    domain.SegmentProfile `json:"profile"`
	CrisisFlag *bool                 `json:"crisis_flag"`
}

// Assessment es el resultado completo. Snapshot es nil cuando no había señales
// suficientes para evaluar.
type Assessment struct {
	Snapshot     *domain.NeurostateSnapshot `json:"snapshot"`
	Trace        snapshot.Trace             `json:"trace"`
	ActiveCycles []domain.DetectedCycle     `json:"active_cycles"`
	Directive    domain.WorkflowDirective   `json:"directive"`
	// Error describe por qué no hubo snapshot cuando la crisis forzó la directiva.
	Error string `json:"error,omitempty"`
}

type userState struct {
	snapshots *store.Ring[domain.NeurostateSnapshot]
	actions   *store.Ring[domain.ActionEvent]
	tracker   *pattern.Tracker
}

// NeurostateService es la fachada del núcleo: ingesta, evaluación y lectura.
type NeurostateService struct {
	cfg        Config
	aggregator *signals.Aggregator
	builder    *snapshot.Builder
	gate       *escalation.Gate
	users      *store.Arena[userState]
	archive    Archive
	crisis     CrisisFlagSource
	clock      func() time.Time
	logger     *zap.Logger
}

type Option func(*NeurostateService)

func WithArchive(a Archive) Option {
	return func(s *NeurostateService) { s.archive = a }
}

func WithCrisisFlagSource(c CrisisFlagSource) Option {
	return func(s *NeurostateService) { s.crisis = c }
}

func WithClock(clock func() time.Time) Option {
	return func(s *NeurostateService) { s.clock = clock }
}

func NewNeurostateService(cfg Config, logger *zap.Logger, opts ...Option) *NeurostateService {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultConfig()
	if cfg.HistoryMax <= 0 {
		cfg.HistoryMax = def.HistoryMax
	}
	if cfg.ActionsMax <= 0 {
		cfg.ActionsMax = def.ActionsMax
	}
	if cfg.MinObservations <= 0 {
		cfg.MinObservations = def.MinObservations
	}

	s := &NeurostateService{
		cfg:    cfg,
		clock:  func() time.Time { return time.Now().UTC() },
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.aggregator = signals.NewAggregator(cfg.Signals, logger, signals.WithClock(s.clock))
	s.cfg.Signals = s.aggregator.Config()
	s.builder = snapshot.NewBuilder(classifier.NewSet(cfg.MinObservations), snapshot.Config{
		Strict:             cfg.StrictInvariants,
		Location:           s.cfg.Signals.Location,
		AfternoonStartHour: cfg.AfternoonStartHour,
	}, logger)
	s.gate = escalation.NewGate(logger)
	s.users = store.NewArena("user_state", s.cfg.Signals.MaxUsers, func(userID string) *userState {
		return &userState{
			snapshots: store.NewRing[domain.NeurostateSnapshot](cfg.HistoryMax),
			actions:   store.NewRing[domain.ActionEvent](cfg.ActionsMax),
			tracker:   pattern.NewTracker(userID, cfg.Cycles, nil, logger),
		}
	}, logger)
	return s
}

// Ingest agrega una observación a la ventana del usuario.
func (s *NeurostateService) Ingest(userID string, obs domain.Observation) error {
	return s.aggregator.Ingest(userID, obs)
}

// RecordAction guarda un evento de acción para la detección de ciclos.
func (s *NeurostateService) RecordAction(userID string, ev domain.ActionEvent) (domain.ActionEvent, error) {
	if strings.TrimSpace(userID) == "" {
		return domain.ActionEvent{}, fmt.Errorf("%w: empty user id", domain.ErrInvalidActionEvent)
	}
	if err := ev.Validate(s.clock()); err != nil {
		return domain.ActionEvent{}, err
	}
	ev.UserID = userID
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Metadata != nil {
		md := make(map[string]string, len(ev.Metadata))
		for k, v := range ev.Metadata {
			md[k] = v
		}
		ev.Metadata = md
	}
	s.users.GetOrCreate(userID).With(func(st *userState) {
		st.actions.Push(ev)
	})
	return ev, nil
}

// Assess corre una evaluación completa: snapshot, ciclos y directiva. Las evaluaciones de
// un mismo usuario se serializan; las de usuarios distintos no se bloquean.
//
// Con el flag de crisis activo la directiva es siempre SuspendForCrisis: un perfil
// inválido o un snapshot que no se pudo construir se loguean y quedan en Assessment.Error.
func (s *NeurostateService) Assess(ctx context.Context, req AssessRequest) (Assessment, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return Assessment{}, fmt.Errorf("%w: empty user id", domain.ErrUserNotFound)
	}
	flag, err := s.resolveCrisisFlag(ctx, req)
	if err != nil {
		return Assessment{}, err
	}
	crisis := *flag
	log := s.logger.With(zap.String("user_id", req.UserID))

	if err := req.Profile.Validate(); err != nil {
		if !crisis {
			return Assessment{}, err
		}
		log.Warn("invalid profile during crisis, suspending without snapshot", zap.Error(err))
		d, gateErr := s.gate.Evaluate(escalation.Input{CrisisFlag: flag})
		if gateErr != nil {
			return Assessment{}, gateErr
		}
		return Assessment{Directive: d, Error: err.Error()}, nil
	}
	profile := req.Profile.Clone()

	var (
		out     Assessment
		changed []domain.DetectedCycle
		evalErr error
	)
	s.users.GetOrCreate(req.UserID).With(func(st *userState) {
		now := s.clock()
		window := s.aggregator.Window(req.UserID)

		if window.Len() >= s.cfg.MinObservations {
			snap, trace, err := s.builder.Build(snapshot.Input{
				UserID:  req.UserID,
				Profile: profile,
				Window:  window,
				Reload:  func() domain.SignalWindow { return s.aggregator.Window(req.UserID) },
				History: st.snapshots.Items(),
				Now:     now,
			})
			switch {
			case err == nil:
				st.snapshots.Push(snap)
				out.Snapshot = &snap
				out.Trace = trace
			case crisis:
				log.Warn("snapshot build failed during crisis, suspending without snapshot", zap.Error(err))
				out.Error = err.Error()
			default:
				evalErr = err
				return
			}
		} else {
			log.Debug("not enough signals to assess", zap.Int("window_len", window.Len()))
		}

		out.ActiveCycles = st.tracker.Observe(pattern.Input{
			History: st.snapshots.Items(),
			Actions: st.actions.Items(),
			Profile: profile,
			Now:     now,
		})
		changed = st.tracker.Changed()

		out.Directive, evalErr = s.gate.Evaluate(escalation.Input{
			Snapshot:   out.Snapshot,
			Cycles:     out.ActiveCycles,
			CrisisFlag: flag,
		})
	})
	if evalErr != nil {
		return Assessment{}, evalErr
	}

	if out.Snapshot != nil {
		c := out.Snapshot.Clone()
		out.Snapshot = &c
	}
	s.archiveResult(ctx, req.UserID, out.Snapshot, changed)
	return out, nil
}

func (s *NeurostateService) resolveCrisisFlag(ctx context.Context, req AssessRequest) (*bool, error) {
	if req.CrisisFlag != nil {
		v := *req.CrisisFlag
		return &v, nil
	}
	if s.crisis == nil {
		return nil, domain.ErrMissingCrisisFlag
	}
	v, err := s.crisis.CrisisFlag(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("crisis flag for user %s: %w", req.UserID, err)
	}
	return &v, nil
}

// archiveResult guarda el snapshot nuevo y solo los ciclos que cambiaron en esta evaluación.
func (s *NeurostateService) archiveResult(ctx context.Context, userID string, snap *domain.NeurostateSnapshot, cycles []domain.DetectedCycle) {
	if s.archive == nil {
		return
	}
	if snap != nil {
		if err := s.archive.SaveSnapshot(ctx, *snap); err != nil {
			s.logger.Warn("archive snapshot failed", zap.String("user_id", userID), zap.String("snapshot_id", snap.ID), zap.Error(err))
		}
	}
	if len(cycles) > 0 {
		if err := s.archive.SaveCycles(ctx, userID, cycles); err != nil {
			s.logger.Warn("archive cycles failed", zap.String("user_id", userID), zap.Error(err))
		}
	}
}

// LatestSnapshot devuelve el snapshot más reciente del usuario.
func (s *NeurostateService) LatestSnapshot(userID string) (domain.NeurostateSnapshot, error) {
	e, ok := s.users.Get(userID)
	if !ok {
		return domain.NeurostateSnapshot{}, domain.ErrUserNotFound
	}
	var (
		snap  domain.NeurostateSnapshot
		found bool
	)
	e.With(func(st *userState) {
		snap, found = st.snapshots.Last()
		if found {
			snap = snap.Clone()
		}
	})
	if !found {
		return domain.NeurostateSnapshot{}, fmt.Errorf("%w: no snapshots for %s", domain.ErrUserNotFound, userID)
	}
	return snap, nil
}

// SnapshotHistory devuelve hasta limit snapshots en orden cronológico; limit <= 0 = todos.
func (s *NeurostateService) SnapshotHistory(userID string, limit int) []domain.NeurostateSnapshot {
	e, ok := s.users.Get(userID)
	if !ok {
		return nil
	}
	var out []domain.NeurostateSnapshot
	e.With(func(st *userState) {
		for _, snap := range st.snapshots.Tail(limit) {
			out = append(out, snap.Clone())
		}
	})
	return out
}

func (s *NeurostateService) ActiveCycles(userID string) []domain.DetectedCycle {
	e, ok := s.users.Get(userID)
	if !ok {
		return nil
	}
	var out []domain.DetectedCycle
	e.With(func(st *userState) { out = st.tracker.Active() })
	return out
}

// CycleHistory incluye episodios cerrados y los vigentes, activos o no.
func (s *NeurostateService) CycleHistory(userID string) []domain.DetectedCycle {
	e, ok := s.users.Get(userID)
	if !ok {
		return nil
	}
	var out []domain.DetectedCycle
	e.With(func(st *userState) { out = st.tracker.All() })
	return out
}

// Forget descarta ventana, historial, acciones y ciclos del usuario.
func (s *NeurostateService) Forget(userID string) {
	s.aggregator.Forget(userID)
	s.users.Delete(userID)
}
