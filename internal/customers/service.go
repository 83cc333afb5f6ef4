package customers

import "context"

// Service exposes customer reads to handlers and other modules.
type Service struct {
	repo Repository
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// All returns every customer for selection lists.
func (s *Service) All(ctx context.Context) ([]Customer, error) {
	return s.repo.All(ctx)
}

// List returns a page of customers with invoice aggregates.
func (s *Service) List(ctx context.Context, req ListRequest) ([]Summary, int, error) {
	return s.repo.List(ctx, req)
}
