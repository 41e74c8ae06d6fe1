// internal/regflow/service.go
package regflow

import (
	"context"

	"memberdesk/internal/roster"
)

// Service defines the interface for the registration approval workflow.
// Approval is the only path from a registration to a roster member.
type Service interface {
	Submit(ctx context.Context, userID, submittedBy string, input SubmitInput) (*Registration, error)
	Approve(ctx context.Context, id string) (*roster.Member, error)
	Reject(ctx context.Context, id string) (*Registration, error)
	ListPending(ctx context.Context) ([]Registration, error)
	ForUser(ctx context.Context, userID string) (*Registration, error)
	DiscardForUser(ctx context.Context, userID string) error

	// StatusForUser reports the user's current registration status for the
	// status watcher. ok is false when the user has no registration.
	StatusForUser(ctx context.Context, userID string) (status string, ok bool, err error)
}
