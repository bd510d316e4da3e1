package user

import (
	"context"
	"fmt"

	"github.com/jwalitptl/dogfinder/internal/model"
	"github.com/jwalitptl/dogfinder/internal/repository"
	apperrors "github.com/jwalitptl/dogfinder/pkg/errors"
	"github.com/jwalitptl/dogfinder/pkg/logger"
)

type UserServicer interface {
	ListUsers(ctx context.Context) ([]model.User, error)
	DeleteUser(ctx context.Context, id int64) error
	EditUser(ctx context.Context, id int64) error
}

type Service struct {
	repo   repository.UserRepository
	logger *logger.Logger
}

func NewService(repo repository.UserRepository, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{repo: repo, logger: log}
}

func (s *Service) ListUsers(ctx context.Context) ([]model.User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, repository.Translate("loading users", "user", err)
	}
	return users, nil
}

func (s *Service) DeleteUser(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.WithContext(ctx).Warn(err, "failed to delete user", "user_id", id)
		return repository.Translate("deleting user", "user", err)
	}
	s.logger.WithContext(ctx).Info("user deleted", "user_id", id)
	return nil
}

// EditUser has no editing flow behind it yet.
func (s *Service) EditUser(ctx context.Context, id int64) error {
	return apperrors.NotImplemented(fmt.Sprintf("Edit user: %d (edit UI not implemented)", id))
}
