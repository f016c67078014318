package scope

import "context"

// NoOpTransactionScope executes the function against a fixed repository set
// without any transaction management. Intended for unit tests where the
// repositories are in-memory fakes or mocks.
type NoOpTransactionScope struct {
	repos Repositories
}

// NewNoOpTransactionScope creates a scope backed by the given repositories.
func NewNoOpTransactionScope(repos Repositories) *NoOpTransactionScope {
	return &NoOpTransactionScope{repos: repos}
}

// Execute runs fn with the configured repositories and no transaction.
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos Repositories) error) error {
	return fn(s.repos)
}
