package core

import "context"

type contextKey string

const ctxKeyTrigger contextKey = "sync_trigger"

// Sync triggers recorded in run history.
const (
	TriggerHTTP      = "http"
	TriggerCLI       = "cli"
	TriggerScheduler = "scheduler"
)

// ContextWithTrigger records what started a sync run.
func ContextWithTrigger(ctx context.Context, trigger string) context.Context {
	return context.WithValue(ctx, ctxKeyTrigger, trigger)
}

// TriggerFromContext returns the recorded trigger, or "manual" when unset.
func TriggerFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyTrigger).(string); ok && v != "" {
		return v
	}
	return "manual"
}
