package users

import "context"

// Service exposes credential-store lookups plus the configured bypass
// identity test.
type Service struct {
	repo          Repository
	adminUserName string
}

// NewService constructs a Service. adminUserName is the process-wide
// default administrator login name.
func NewService(repo Repository, adminUserName string) *Service {
	return &Service{repo: repo, adminUserName: adminUserName}
}

// FindByUserName fetches a user by unique login name.
func (s *Service) FindByUserName(ctx context.Context, userName string) (*User, error) {
	return s.repo.FindByUserName(ctx, userName)
}

// FindByID fetches a user by id.
func (s *Service) FindByID(ctx context.Context, id int64) (*User, error) {
	return s.repo.FindByID(ctx, id)
}

// IsDefaultAdministrator reports whether the login name is the configured
// bypass identity.
func (s *Service) IsDefaultAdministrator(userName string) bool {
	return s.adminUserName != "" && userName == s.adminUserName
}
