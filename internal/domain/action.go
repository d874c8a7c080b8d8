package domain

import (
	"fmt"
	"time"
)

type ActionType string

const (
	ActionTaskStarted      ActionType = "task_started"
	ActionTaskCompleted    ActionType = "task_completed"
	ActionTaskAbandoned    ActionType = "task_abandoned"
	ActionTaskRevised      ActionType = "task_revised"
	ActionCommitmentAdded  ActionType = "commitment_added"
	ActionSocialDeclined   ActionType = "social_declined"
	ActionSocialEngaged    ActionType = "social_engaged"
	ActionModuleTransition ActionType = "module_transition"
)

func (t ActionType) Valid() bool {
	switch t {
	case ActionTaskStarted, ActionTaskCompleted, ActionTaskAbandoned, ActionTaskRevised,
		ActionCommitmentAdded, ActionSocialDeclined, ActionSocialEngaged, ActionModuleTransition:
		return true
	}
	return false
}

// ActionEvent es un evento de acción del usuario (tareas, transiciones de módulo).
type ActionEvent struct {
	ID       string            `json:"id"`
	UserID   string            `json:"user_id"`
	At       time.Time         `json:"at"`
	Type     ActionType        `json:"type"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// TaskID devuelve la clave "task_id" de la metadata, si existe.
func (e ActionEvent) TaskID() string {
	return e.Metadata["task_id"]
}

func (e ActionEvent) Validate(now time.Time) error {
	if !e.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidActionEvent, e.Type)
	}
	if e.At.IsZero() {
		return fmt.Errorf("%w: missing timestamp", ErrInvalidActionEvent)
	}
	if e.At.After(now) {
		return fmt.Errorf("%w: timestamp %s is in the future", ErrInvalidActionEvent, e.At.Format(time.RFC3339))
	}
	return nil
}
