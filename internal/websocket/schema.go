package websocket

import "github.com/alphaexam/alphaexam-backend/internal/model"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAutosave Action = "autosave"
	ActionSync     Action = "sync"
	ActionSubmit   Action = "submit"
	ActionPing     Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// AutosaveRequest is sent by the client to save a single answer.
type AutosaveRequest struct {
	Action     Action `json:"action"`
	QuestionID string `json:"question_id"`
	Option     string `json:"option"`
}

// SubmitRequest is sent by the client to finish and grade the attempt.
// Answers are optional; autosaved answers are used when omitted.
type SubmitRequest struct {
	Action    Action                  `json:"action"`
	Answers   map[string]model.Option `json:"answers,omitempty"`
	TimeSpent int                     `json:"time_spent"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError     Event = "error"
	EventSaved     Event = "saved"
	EventSync      Event = "sync"
	EventSubmitted Event = "submitted"
	EventPong      Event = "pong"
)

type SavedResponse struct {
	Event      Event  `json:"event"`
	QuestionID string `json:"question_id"`
}

// SyncResponse carries the authoritative clock and autosaved answers.
type SyncResponse struct {
	Event            Event                   `json:"event"`
	Status           model.AttemptStatus     `json:"status"`
	RemainingSeconds int                     `json:"remaining_seconds"`
	Answers          map[string]model.Option `json:"answers"`
}

type SubmittedResponse struct {
	Event     Event  `json:"event"`
	AttemptID string `json:"attempt_id"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Code  string `json:"code,omitempty"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
