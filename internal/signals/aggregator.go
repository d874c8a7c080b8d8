package signals

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"neurostate/internal/domain"
	"neurostate/internal/store"
)

// Config acota la ventana por usuario: MaxEntries o Span, lo que sea menor.
type Config struct {
	MaxEntries int
	Span       time.Duration
	MaxUsers   int
	Location   *time.Location
}

func DefaultConfig() Config {
	return Config{
		MaxEntries: 200,
		Span:       36 * time.Hour,
		MaxUsers:   10000,
		Location:   time.UTC,
	}
}

type userWindow struct {
	observations []domain.Observation
}

// Aggregator normaliza observaciones en una ventana acotada por usuario.
type Aggregator struct {
	cfg     Config
	windows *store.Arena[userWindow]
	clock   func() time.Time
	logger  *zap.Logger
}

type Option func(*Aggregator)

// WithClock reemplaza el reloj (tests y replay).
func WithClock(clock func() time.Time) Option {
	return func(a *Aggregator) { a.clock = clock }
}

func NewAggregator(cfg Config, logger *zap.Logger, opts ...Option) *Aggregator {
	def := DefaultConfig()
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = def.MaxEntries
	}
	if cfg.Span <= 0 {
		cfg.Span = def.Span
	}
	if cfg.MaxUsers <= 0 {
		cfg.MaxUsers = def.MaxUsers
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Aggregator{
		cfg:    cfg,
		clock:  func() time.Time { return time.Now().UTC() },
		logger: logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.windows = store.NewArena("signal_windows", cfg.MaxUsers, func(string) *userWindow { return &userWindow{} }, logger)
	return a
}

func (a *Aggregator) Config() Config { return a.cfg }

// Ingest valida y agrega obs a la ventana del usuario. La expulsión ocurre antes de
// retornar: la ventana siempre queda dentro de los límites.
func (a *Aggregator) Ingest(userID string, obs domain.Observation) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("%w: empty user id", domain.ErrInvalidObservation)
	}
	now := a.clock()
	if err := a.validate(obs, now); err != nil {
		return err
	}
	obs.Markers = append([]domain.Marker(nil), obs.Markers...)
	if obs.Text != nil {
		tm := *obs.Text
		obs.Text = &tm
	}

	a.windows.GetOrCreate(userID).With(func(w *userWindow) {
		// inserción ordenada; lo normal es agregar al final
		i := sort.Search(len(w.observations), func(i int) bool {
			return w.observations[i].At.After(obs.At)
		})
		w.observations = append(w.observations, domain.Observation{})
		copy(w.observations[i+1:], w.observations[i:])
		w.observations[i] = obs

		evicted := a.evict(w, now)
		if evicted > 0 {
			a.logger.Debug("signal window eviction",
				zap.String("user_id", userID),
				zap.Int("evicted", evicted),
				zap.Int("size", len(w.observations)),
			)
		}
	})
	return nil
}

// evict descarta primero lo que salió del span y luego recorta por cantidad, siempre
// desde el más antiguo.
func (a *Aggregator) evict(w *userWindow, now time.Time) int {
	cutoff := now.Add(-a.cfg.Span)
	drop := 0
	for drop < len(w.observations) && w.observations[drop].At.Before(cutoff) {
		drop++
	}
	if over := len(w.observations) - drop - a.cfg.MaxEntries; over > 0 {
		drop += over
	}
	if drop == 0 {
		return 0
	}
	w.observations = append(w.observations[:0:0], w.observations[drop:]...)
	return drop
}

// Window devuelve una copia de la ventana vigente del usuario. Nunca crea entradas.
func (a *Aggregator) Window(userID string) domain.SignalWindow {
	now := a.clock()
	win := domain.SignalWindow{UserID: userID, AsOf: now, Location: a.cfg.Location}
	e, ok := a.windows.Get(userID)
	if !ok {
		return win
	}
	cutoff := now.Add(-a.cfg.Span)
	e.With(func(w *userWindow) {
		win.Observations = make([]domain.Observation, 0, len(w.observations))
		for _, o := range w.observations {
			if o.At.Before(cutoff) || o.At.After(now) {
				continue
			}
			o.Markers = append([]domain.Marker(nil), o.Markers...)
			win.Observations = append(win.Observations, o)
		}
	})
	return win
}

// Forget elimina la ventana del usuario.
func (a *Aggregator) Forget(userID string) {
	a.windows.Delete(userID)
}

func (a *Aggregator) validate(o domain.Observation, now time.Time) error {
	if o.At.IsZero() {
		return fmt.Errorf("%w: missing timestamp", domain.ErrInvalidObservation)
	}
	if o.At.After(now) {
		return fmt.Errorf("%w: timestamp %s is in the future", domain.ErrInvalidObservation, o.At.Format(time.RFC3339))
	}
	if o.At.Before(now.Add(-a.cfg.Span)) {
		return fmt.Errorf("%w: timestamp %s is older than the window span", domain.ErrInvalidObservation, o.At.Format(time.RFC3339))
	}
	if !o.Channel.Valid() {
		return fmt.Errorf("%w: unknown channel %q", domain.ErrInvalidObservation, o.Channel)
	}
	if math.IsNaN(o.Value) || math.IsInf(o.Value, 0) || o.Value < 0 {
		return fmt.Errorf("%w: value must be a finite non-negative number", domain.ErrInvalidObservation)
	}
	switch o.Channel {
	case domain.ChannelSelfReport:
		if o.Value > 1 {
			return fmt.Errorf("%w: self report must be within [0,1]", domain.ErrInvalidObservation)
		}
	case domain.ChannelSensory:
		if o.Value > 1 {
			return fmt.Errorf("%w: sensory contribution must be within [0,1]", domain.ErrInvalidObservation)
		}
		if o.Recovery && o.Value == 0 {
			return fmt.Errorf("%w: recovery must shed a positive amount", domain.ErrInvalidObservation)
		}
	}
	if o.Recovery && o.Channel != domain.ChannelSensory {
		return fmt.Errorf("%w: recovery events belong to the sensory channel", domain.ErrInvalidObservation)
	}
	if o.Modality != "" {
		if o.Channel != domain.ChannelSensory {
			return fmt.Errorf("%w: modality on non-sensory channel", domain.ErrInvalidObservation)
		}
		if !o.Modality.Valid() {
			return fmt.Errorf("%w: unknown modality %q", domain.ErrInvalidObservation, o.Modality)
		}
	}
	if o.MaskingContexts < 0 {
		return fmt.Errorf("%w: negative masking contexts", domain.ErrInvalidObservation)
	}
	if o.MaskingContexts > 0 && o.Channel != domain.ChannelBehavioral {
		return fmt.Errorf("%w: masking contexts belong to the behavioral channel", domain.ErrInvalidObservation)
	}
	if !o.Mode.Valid() {
		return fmt.Errorf("%w: unknown mode %q", domain.ErrInvalidObservation, o.Mode)
	}
	if o.Text != nil {
		vc := o.Text.VocabularyComplexity
		if o.Text.Length < 0 || math.IsNaN(vc) || vc < 0 || vc > 1 {
			return fmt.Errorf("%w: text metrics out of range", domain.ErrInvalidObservation)
		}
	}
	for _, m := range o.Markers {
		if !m.Valid() {
			return fmt.Errorf("%w: unknown marker %q", domain.ErrInvalidObservation, m)
		}
	}
	return nil
}
