package adoption

import (
	"context"
	"errors"

	"github.com/jwalitptl/dogfinder/internal/datastore"
	"github.com/jwalitptl/dogfinder/internal/model"
	"github.com/jwalitptl/dogfinder/internal/repository"
	apperrors "github.com/jwalitptl/dogfinder/pkg/errors"
	"github.com/jwalitptl/dogfinder/pkg/logger"
	"github.com/jwalitptl/dogfinder/pkg/metrics"
	"github.com/jwalitptl/dogfinder/pkg/validator"
)

type AdoptionServicer interface {
	Submit(ctx context.Context, form model.AdoptionForm) (*model.Adoption, error)
	ListAdoptions(ctx context.Context) ([]model.Adoption, error)
	Approve(ctx context.Context, id int64) (*model.Adoption, error)
	Reject(ctx context.Context, id int64) (*model.Adoption, error)
}

// Notifier tells the applicant about a decision. It must not fail the decision.
type Notifier interface {
	NotifyDecision(ctx context.Context, adoptionID int64, a *model.Adoption, decision string)
}

type Service struct {
	adoptions repository.AdoptionRepository
	dogs      repository.DogRepository
	notifier  Notifier
	logger    *logger.Logger
	metrics   *metrics.Metrics
}

func NewService(adoptions repository.AdoptionRepository, dogs repository.DogRepository, notifier Notifier, log *logger.Logger, m *metrics.Metrics) *Service {
	if log == nil {
		log = logger.Nop()
	}
	if m == nil {
		m = metrics.Nop()
	}
	return &Service{
		adoptions: adoptions,
		dogs:      dogs,
		notifier:  notifier,
		logger:    log,
		metrics:   m,
	}
}

// Submit records a visitor's application and marks the chosen dog Adopted.
// The dog is flipped at submission, not at approval; a failed flip is only
// logged since the application itself went through.
func (s *Service) Submit(ctx context.Context, form model.AdoptionForm) (*model.Adoption, error) {
	log := s.logger.WithContext(ctx)

	if err := validator.Struct(form); err != nil {
		return nil, apperrors.BadRequest("Invalid adoption form", err)
	}

	a, err := s.adoptions.Create(ctx, form.Row())
	if err != nil {
		log.Warn(err, "adoption insert failed", "dog_id", form.DogID)
		return nil, repository.Translate("submitting adoption", "adoption", err)
	}

	if form.DogID != nil && *form.DogID != 0 {
		if _, err := s.dogs.Update(ctx, *form.DogID, datastore.Row{"status": model.DogStatusAdopted}); err != nil {
			s.metrics.BestEffortFailures.WithLabelValues("dog_status").Inc()
			log.Warn(err, "could not mark dog adopted", "dog_id", *form.DogID)
		}
	}
	return a, nil
}

func (s *Service) ListAdoptions(ctx context.Context) ([]model.Adoption, error) {
	adoptions, err := s.adoptions.List(ctx)
	if err != nil {
		return nil, repository.Translate("loading adoptions", "adoption", err)
	}
	return adoptions, nil
}

func (s *Service) Approve(ctx context.Context, id int64) (*model.Adoption, error) {
	return s.decide(ctx, id, model.ApplicationStatusApproved)
}

func (s *Service) Reject(ctx context.Context, id int64) (*model.Adoption, error) {
	return s.decide(ctx, id, model.ApplicationStatusRejected)
}

// decide sets the status and notifies the applicant. An update that matched
// nothing visible still counts as done: row level security may hide the
// updated row, and the notice then goes out without a recipient.
func (s *Service) decide(ctx context.Context, id int64, status string) (*model.Adoption, error) {
	log := s.logger.WithContext(ctx)

	a, err := s.adoptions.UpdateStatus(ctx, id, status)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrNotFound):
		log.Info("status update returned no row", "adoption_id", id, "status", status)
		a = &model.Adoption{ID: id, Status: &status}
	default:
		return nil, repository.Translate("updating adoption", "adoption", err)
	}

	log.Info("adoption decided", "adoption_id", id, "status", status)
	if s.notifier != nil {
		s.notifier.NotifyDecision(ctx, id, a, status)
	}
	return a, nil
}
