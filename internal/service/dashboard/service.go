package dashboard

import (
	"context"
	"strings"

	"github.com/jwalitptl/dogfinder/internal/model"
	"github.com/jwalitptl/dogfinder/internal/repository"
)

type DashboardServicer interface {
	Stats(ctx context.Context) (*model.DashboardStats, error)
}

type Service struct {
	dogs      repository.DogRepository
	adoptions repository.AdoptionRepository
}

func NewService(dogs repository.DogRepository, adoptions repository.AdoptionRepository) *Service {
	return &Service{dogs: dogs, adoptions: adoptions}
}

// Stats counts every dog and application. Dogs without an adopted status,
// blank ones included, count as available. Approved applications need the
// full "approved" in their status, rejected ones only "reject".
func (s *Service) Stats(ctx context.Context) (*model.DashboardStats, error) {
	dogs, err := s.dogs.List(ctx)
	if err != nil {
		return nil, repository.Translate("loading dashboard stats", "dog", err)
	}
	adoptions, err := s.adoptions.List(ctx)
	if err != nil {
		return nil, repository.Translate("loading dashboard stats", "adoption", err)
	}

	stats := &model.DashboardStats{
		TotalDogs:         len(dogs),
		TotalApplications: len(adoptions),
	}
	for _, d := range dogs {
		if d.StatusClass() == model.ClassAdopted {
			stats.AdoptedDogs++
		} else {
			stats.AvailableDogs++
		}
	}
	for _, a := range adoptions {
		status := strings.ToLower(model.Deref(a.Status))
		if strings.Contains(status, "approved") {
			stats.ApprovedApplications++
		}
		if strings.Contains(status, "reject") {
			stats.RejectedApplications++
		}
	}
	return stats, nil
}
