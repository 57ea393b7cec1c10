package entity

// TurnState tracks one chat's in-flight turn. It is ephemeral client state,
// never persisted.
type TurnState string

const (
	TurnIdle            TurnState = "idle"
	TurnAwaitingStream  TurnState = "awaiting_stream"
	TurnStreaming       TurnState = "streaming"
	TurnReconciling     TurnState = "reconciling"
	TurnFallbackPending TurnState = "fallback_pending"
	TurnError           TurnState = "error"
)
