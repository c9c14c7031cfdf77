package models

import "context"

type initiatorContextKey struct{}

// Initiator identifies which tool submitted a transaction. It travels through
// context so persistence backends can record it without widening the
// CommitSink interface.
type Initiator struct {
	Tool      string // "deploy", "recordctl", "keeper", ...
	RequestId string
}

// WithInitiator attaches initiator data to a context.
func WithInitiator(ctx context.Context, initiator *Initiator) context.Context {
	return context.WithValue(ctx, initiatorContextKey{}, initiator)
}

// GetInitiator retrieves initiator data from context, or nil if absent.
func GetInitiator(ctx context.Context) *Initiator {
	initiator, _ := ctx.Value(initiatorContextKey{}).(*Initiator)
	return initiator
}

// InitiatorTool returns the tool name carried by ctx, or "unknown".
func InitiatorTool(ctx context.Context) string {
	if initiator := GetInitiator(ctx); initiator != nil && initiator.Tool != "" {
		return initiator.Tool
	}
	return "unknown"
}
