package domain

import "time"

type Channel string

const (
	ChannelSelfReport Channel = "self_report"
	ChannelBehavioral Channel = "behavioral"
	ChannelSensory    Channel = "sensory"
)

func (c Channel) Valid() bool {
	switch c {
	case ChannelSelfReport, ChannelBehavioral, ChannelSensory:
		return true
	}
	return false
}

// Mode es la clasificación externa de que modo conductual impulsa una interacción.
type Mode string

const (
	ModeNone     Mode = ""
	ModeADHD     Mode = "adhd_mode"
	ModeAutistic Mode = "autistic_mode"
)

func (m Mode) Valid() bool {
	switch m {
	case ModeNone, ModeADHD, ModeAutistic:
		return true
	}
	return false
}

// Marker es una etiqueta derivada por el colaborador de sanitización. El vocabulario es
// cerrado: nunca transporta texto libre.
type Marker string

const (
	MarkerCantStart         Marker = "cant_start"
	MarkerBoringTask        Marker = "boring_task"
	MarkerTimeBlindness     Marker = "time_blindness"
	MarkerTooManyOptions    Marker = "too_many_options"
	MarkerTransition        Marker = "transition"
	MarkerInterruption      Marker = "interruption"
	MarkerUnclearNextStep   Marker = "unclear_next_step"
	MarkerPlanChange        Marker = "plan_change"
	MarkerIntegrityConflict Marker = "integrity_conflict"
	MarkerHighInterest      Marker = "high_interest"
	MarkerShutdown          Marker = "shutdown"
	MarkerOverwhelm         Marker = "overwhelm"
)

var knownMarkers = map[Marker]struct{}{
	MarkerCantStart:         {},
	MarkerBoringTask:        {},
	MarkerTimeBlindness:     {},
	MarkerTooManyOptions:    {},
	MarkerTransition:        {},
	MarkerInterruption:      {},
	MarkerUnclearNextStep:   {},
	MarkerPlanChange:        {},
	MarkerIntegrityConflict: {},
	MarkerHighInterest:      {},
	MarkerShutdown:          {},
	MarkerOverwhelm:         {},
}

func (m Marker) Valid() bool {
	_, ok := knownMarkers[m]
	return ok
}

// TextMetrics son rasgos escalares derivados de un mensaje; el texto no se guarda.
type TextMetrics struct {
	Length               int     `json:"length"`
	VocabularyComplexity float64 `json:"vocabulary_complexity"` // 0..1
}

// Observation es una señal conductual ya sanitizada.
// Value depende del canal: self_report = energía 0..1, behavioral = latencia en segundos,
// sensory = aporte de carga 0..1 (o carga liberada cuando Recovery es true).
type Observation struct {
	At              time.Time    `json:"at"`
	Channel         Channel      `json:"channel"`
	Value           float64      `json:"value"`
	Text            *TextMetrics `json:"text,omitempty"`
	Modality        Modality     `json:"modality,omitempty"`
	Recovery        bool         `json:"recovery,omitempty"`
	MaskingContexts int          `json:"masking_contexts,omitempty"`
	Mode            Mode         `json:"mode,omitempty"`
	Markers         []Marker     `json:"markers,omitempty"`
}

func (o Observation) HasMarker(m Marker) bool {
	for _, x := range o.Markers {
		if x == m {
			return true
		}
	}
	return false
}

// SignalWindow es una copia ordenada por tiempo de la ventana acotada de un usuario.
type SignalWindow struct {
	UserID       string         `json:"user_id"`
	AsOf         time.Time      `json:"as_of"`
	Location     *time.Location `json:"-"`
	Observations []Observation  `json:"observations"`
}

func (w SignalWindow) Len() int { return len(w.Observations) }

func (w SignalWindow) location() *time.Location {
	if w.Location == nil {
		return time.UTC
	}
	return w.Location
}

// LocalTime convierte t a la zona horaria de la ventana.
func (w SignalWindow) LocalTime(t time.Time) time.Time {
	return t.In(w.location())
}

// DayStart es la medianoche local del día de AsOf.
func (w SignalWindow) DayStart() time.Time {
	return StartOfDay(w.AsOf, w.location())
}

// Today devuelve las observaciones desde la medianoche local de AsOf.
func (w SignalWindow) Today() []Observation {
	start := w.DayStart()
	out := make([]Observation, 0, len(w.Observations))
	for _, o := range w.Observations {
		if !o.At.Before(start) && !o.At.After(w.AsOf) {
			out = append(out, o)
		}
	}
	return out
}

// ByChannel filtra por canal manteniendo el orden.
func (w SignalWindow) ByChannel(c Channel) []Observation {
	var out []Observation
	for _, o := range w.Observations {
		if o.Channel == c {
			out = append(out, o)
		}
	}
	return out
}

func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	l := t.In(loc)
	return time.Date(l.Year(), l.Month(), l.Day(), 0, 0, 0, 0, loc)
}

// SameDay compara días calendario en la zona indicada.
func SameDay(a, b time.Time, loc *time.Location) bool {
	return StartOfDay(a, loc).Equal(StartOfDay(b, loc))
}
