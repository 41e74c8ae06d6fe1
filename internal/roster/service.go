// internal/roster/service.go
package roster

import "context"

// Service defines the interface for the member roster engine.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (*Member, error)
	Get(ctx context.Context, id string) (*Member, error)
	Update(ctx context.Context, id string, input UpdateInput) (*Member, error)
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) error
	Query(ctx context.Context, filter Filter) ([]Member, error)
	Members(ctx context.Context) ([]Member, error)
	ReplaceAll(ctx context.Context, members []Member) error
}
