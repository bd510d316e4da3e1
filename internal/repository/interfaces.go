package repository

import (
	"context"
	"errors"

	"github.com/jwalitptl/dogfinder/internal/datastore"
	"github.com/jwalitptl/dogfinder/internal/model"
)

// ErrNotFound is returned when a keyed lookup or mutation matched no row.
var ErrNotFound = errors.New("record not found")

// All repository interfaces in one file
type (
	DogRepository interface {
		List(ctx context.Context) ([]model.Dog, error)
		Get(ctx context.Context, id int64) (*model.Dog, error)
		// GetMany loads id, name and image_url of the given dogs in one query.
		GetMany(ctx context.Context, ids []int64) (map[int64]model.Dog, error)
		Create(ctx context.Context, values datastore.Row) (*model.Dog, error)
		Update(ctx context.Context, id int64, values datastore.Row) (*model.Dog, error)
		Delete(ctx context.Context, id int64) error
	}

	AdoptionRepository interface {
		Create(ctx context.Context, values datastore.Row) (*model.Adoption, error)
		Get(ctx context.Context, id int64) (*model.Adoption, error)
		// List returns every application, newest id first.
		List(ctx context.Context) ([]model.Adoption, error)
		// ListRecent returns up to limit applications by created_at desc.
		ListRecent(ctx context.Context, limit int) ([]model.Adoption, error)
		// ListByColumn is ListRecent filtered on column = value. A missing
		// column surfaces as the data service's error.
		ListByColumn(ctx context.Context, column, value string, limit int) ([]model.Adoption, error)
		UpdateStatus(ctx context.Context, id int64, status string) (*model.Adoption, error)
	}

	NotificationRepository interface {
		ListRecent(ctx context.Context, limit int) ([]model.Notification, error)
		// ListFor returns up to limit rows addressed to recipient or to nobody,
		// newest first. An empty recipient, or a table without a recipient
		// column, gets ListRecent.
		ListFor(ctx context.Context, recipient string, limit int) ([]model.Notification, error)
		Create(ctx context.Context, values datastore.Row) (*model.Notification, error)
	}

	UserRepository interface {
		List(ctx context.Context) ([]model.User, error)
		Delete(ctx context.Context, id int64) error
	}
)
