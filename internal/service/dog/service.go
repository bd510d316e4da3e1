package dog

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jwalitptl/dogfinder/internal/datastore"
	"github.com/jwalitptl/dogfinder/internal/model"
	"github.com/jwalitptl/dogfinder/internal/repository"
	apperrors "github.com/jwalitptl/dogfinder/pkg/errors"
	"github.com/jwalitptl/dogfinder/pkg/logger"
)

// SchemaHint is appended to delete failures that look like a schema cache or row level security problem.
const SchemaHint = "Possible DB schema or Row-Level Security (RLS) issue. Check that required columns exist and that RLS policies allow deletes for your client role."

type DogServicer interface {
	ListDogs(ctx context.Context) ([]model.Dog, error)
	GetDog(ctx context.Context, id int64) (*model.Dog, error)
	CreateDog(ctx context.Context, req model.CreateDogRequest) (*model.Dog, error)
	UpdateDog(ctx context.Context, id int64, req model.UpdateDogRequest) (*model.Dog, error)
	DeleteDog(ctx context.Context, rawID string) error
	ToggleStatus(ctx context.Context, id int64, current *string) (string, error)
}

type Service struct {
	repo   repository.DogRepository
	logger *logger.Logger
}

func NewService(repo repository.DogRepository, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{repo: repo, logger: log}
}

func (s *Service) ListDogs(ctx context.Context) ([]model.Dog, error) {
	dogs, err := s.repo.List(ctx)
	if err != nil {
		return nil, repository.Translate("loading dogs", "dog", err)
	}
	return dogs, nil
}

func (s *Service) GetDog(ctx context.Context, id int64) (*model.Dog, error) {
	dog, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, repository.Translate("loading dog", "dog", err)
	}
	return dog, nil
}

func (s *Service) CreateDog(ctx context.Context, req model.CreateDogRequest) (*model.Dog, error) {
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Breed) == "" || req.Age == nil || strings.TrimSpace(req.Status) == "" {
		return nil, apperrors.BadRequest("Please fill all required fields", nil)
	}
	dog, err := s.repo.Create(ctx, req.Row())
	if err != nil {
		return nil, repository.Translate("creating dog", "dog", err)
	}
	s.logger.WithContext(ctx).Info("dog created", "dog_id", dog.ID)
	return dog, nil
}

func (s *Service) UpdateDog(ctx context.Context, id int64, req model.UpdateDogRequest) (*model.Dog, error) {
	values := req.Row()
	if len(values) == 0 {
		return nil, apperrors.BadRequest("nothing to update", nil)
	}
	dog, err := s.repo.Update(ctx, id, values)
	if err != nil {
		return nil, repository.Translate("updating dog", "dog", err)
	}
	return dog, nil
}

// DeleteDog takes the id as received so a malformed one is rejected before
// the data service is called.
func (s *Service) DeleteDog(ctx context.Context, rawID string) error {
	id, err := strconv.ParseInt(strings.TrimSpace(rawID), 10, 64)
	if err != nil {
		return apperrors.BadRequest("Invalid dog id: "+rawID, nil)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if datastore.IsSchemaProblem(err) {
			err = fmt.Errorf("%w\n%s", err, SchemaHint)
		}
		s.logger.WithContext(ctx).Warn(err, "failed to delete dog", "dog_id", id)
		return repository.Translate("deleting dog", "dog", err)
	}
	s.logger.WithContext(ctx).Info("dog deleted", "dog_id", id)
	return nil
}

// ToggleStatus flips Available to Adopted and anything else to Available,
// returning the new status. With no current status given it is read first.
func (s *Service) ToggleStatus(ctx context.Context, id int64, current *string) (string, error) {
	if current == nil {
		dog, err := s.repo.Get(ctx, id)
		if err != nil {
			return "", repository.Translate("updating dog", "dog", err)
		}
		current = &dog.Status
	}

	next := model.ToggleDogStatus(*current)
	if _, err := s.repo.Update(ctx, id, datastore.Row{"status": next}); err != nil {
		return "", repository.Translate("updating dog", "dog", err)
	}
	return next, nil
}
