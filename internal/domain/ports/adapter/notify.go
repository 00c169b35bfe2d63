package adapter

import "context"

// Notifier delivers user-facing messages fire-and-forget. Send failures are
// logged by callers and must never propagate into a ledger transaction.
type Notifier interface {
	Notify(ctx context.Context, userID, message string) error
}
