// Package hosted implements the repositories over a datastore.Client.
package hosted

import (
	"context"
	"fmt"
	"sort"

	"github.com/jwalitptl/dogfinder/internal/datastore"
	"github.com/jwalitptl/dogfinder/internal/model"
	"github.com/jwalitptl/dogfinder/internal/repository"
)

const (
	TableDogs          = "dogs"
	TableAdoptions     = "adoptions"
	TableNotifications = "notifications"
	TableUsers         = "users"
)

type dogRepository struct {
	db datastore.Client
}

func NewDogRepository(db datastore.Client) repository.DogRepository {
	return &dogRepository{db: db}
}

func (r *dogRepository) List(ctx context.Context) ([]model.Dog, error) {
	rows, err := r.db.Select(ctx, datastore.From(TableDogs).Order("id", true))
	if err != nil {
		return nil, err
	}
	return model.DogsFromRows(rows), nil
}

func (r *dogRepository) Get(ctx context.Context, id int64) (*model.Dog, error) {
	rows, err := r.db.Select(ctx, datastore.From(TableDogs).Eq("id", id).Limit(1))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, repository.ErrNotFound
	}
	dog := model.DogFromRow(rows[0])
	return &dog, nil
}

func (r *dogRepository) GetMany(ctx context.Context, ids []int64) (map[int64]model.Dog, error) {
	out := make(map[int64]model.Dog, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	values := make([]any, len(ids))
	for i, id := range ids {
		values[i] = id
	}
	rows, err := r.db.Select(ctx, datastore.From(TableDogs).Select("id,name,image_url").In("id", values...))
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		dog := model.DogFromRow(row)
		out[dog.ID] = dog
	}
	return out, nil
}

func (r *dogRepository) Create(ctx context.Context, values datastore.Row) (*model.Dog, error) {
	rows, err := r.db.Insert(ctx, TableDogs, values)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("insert into %s returned no row", TableDogs)
	}
	dog := model.DogFromRow(rows[0])
	return &dog, nil
}

func (r *dogRepository) Update(ctx context.Context, id int64, values datastore.Row) (*model.Dog, error) {
	rows, err := r.db.Update(ctx, TableDogs, values, datastore.Eq("id", id))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, repository.ErrNotFound
	}
	dog := model.DogFromRow(rows[0])
	return &dog, nil
}

func (r *dogRepository) Delete(ctx context.Context, id int64) error {
	rows, err := r.db.Delete(ctx, TableDogs, datastore.Eq("id", id))
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return repository.ErrNotFound
	}
	return nil
}

type adoptionRepository struct {
	db datastore.Client
}

func NewAdoptionRepository(db datastore.Client) repository.AdoptionRepository {
	return &adoptionRepository{db: db}
}

func (r *adoptionRepository) Create(ctx context.Context, values datastore.Row) (*model.Adoption, error) {
	rows, err := r.db.Insert(ctx, TableAdoptions, values)
	if err != nil {
		return nil, err
	}
	// Row level security may allow the insert but hide the row from the caller.
	if len(rows) == 0 {
		return &model.Adoption{}, nil
	}
	a := model.AdoptionFromRow(rows[0])
	return &a, nil
}

func (r *adoptionRepository) Get(ctx context.Context, id int64) (*model.Adoption, error) {
	rows, err := r.db.Select(ctx, datastore.From(TableAdoptions).Eq("id", id).Limit(1))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, repository.ErrNotFound
	}
	a := model.AdoptionFromRow(rows[0])
	return &a, nil
}

func (r *adoptionRepository) List(ctx context.Context) ([]model.Adoption, error) {
	rows, err := r.db.Select(ctx, datastore.From(TableAdoptions).Order("id", false))
	if err != nil {
		return nil, err
	}
	return model.AdoptionsFromRows(rows), nil
}

func (r *adoptionRepository) ListRecent(ctx context.Context, limit int) ([]model.Adoption, error) {
	rows, err := r.db.Select(ctx, datastore.From(TableAdoptions).Order("created_at", false).Limit(limit))
	if err != nil {
		return nil, err
	}
	return model.AdoptionsFromRows(rows), nil
}

func (r *adoptionRepository) ListByColumn(ctx context.Context, column, value string, limit int) ([]model.Adoption, error) {
	rows, err := r.db.Select(ctx, datastore.From(TableAdoptions).
		Eq(column, value).
		Order("created_at", false).
		Limit(limit))
	if err != nil {
		return nil, err
	}
	return model.AdoptionsFromRows(rows), nil
}

func (r *adoptionRepository) UpdateStatus(ctx context.Context, id int64, status string) (*model.Adoption, error) {
	rows, err := r.db.Update(ctx, TableAdoptions, datastore.Row{"status": status}, datastore.Eq("id", id))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, repository.ErrNotFound
	}
	a := model.AdoptionFromRow(rows[0])
	return &a, nil
}

type notificationRepository struct {
	db datastore.Client
}

func NewNotificationRepository(db datastore.Client) repository.NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) ListRecent(ctx context.Context, limit int) ([]model.Notification, error) {
	rows, err := r.db.Select(ctx, datastore.From(TableNotifications).Order("created_at", false).Limit(limit))
	if err != nil {
		return nil, err
	}
	return model.NotificationsFromRows(rows), nil
}

func (r *notificationRepository) ListFor(ctx context.Context, recipient string, limit int) ([]model.Notification, error) {
	if recipient == "" {
		return r.ListRecent(ctx, limit)
	}
	recent := func(value any) *datastore.Query {
		return datastore.From(TableNotifications).Eq("recipient", value).Order("created_at", false).Limit(limit)
	}

	addressed, err := r.db.Select(ctx, recent(recipient))
	if err != nil {
		if column, ok := datastore.MissingColumn(err); ok && column == "recipient" {
			return r.ListRecent(ctx, limit)
		}
		return nil, err
	}
	// a nil operand selects rows whose recipient IS NULL
	unaddressed, err := r.db.Select(ctx, recent(nil))
	if err != nil {
		return nil, err
	}

	list := model.NotificationsFromRows(append(addressed, unaddressed...))
	sort.SliceStable(list, func(i, j int) bool { return newer(list[i], list[j]) })
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

// newer orders by created_at desc with undated rows last, then by id desc.
func newer(a, b model.Notification) bool {
	switch {
	case a.CreatedAt != nil && b.CreatedAt != nil && !a.CreatedAt.Equal(*b.CreatedAt):
		return a.CreatedAt.After(*b.CreatedAt)
	case a.CreatedAt != nil && b.CreatedAt == nil:
		return true
	case a.CreatedAt == nil && b.CreatedAt != nil:
		return false
	}
	return a.ID > b.ID
}

func (r *notificationRepository) Create(ctx context.Context, values datastore.Row) (*model.Notification, error) {
	rows, err := r.db.Insert(ctx, TableNotifications, values)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return &model.Notification{}, nil
	}
	n := model.NotificationFromRow(rows[0])
	return &n, nil
}

type userRepository struct {
	db datastore.Client
}

func NewUserRepository(db datastore.Client) repository.UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.db.Select(ctx, datastore.From(TableUsers).Order("id", true))
	if err != nil {
		return nil, err
	}
	return model.UsersFromRows(rows), nil
}

func (r *userRepository) Delete(ctx context.Context, id int64) error {
	rows, err := r.db.Delete(ctx, TableUsers, datastore.Eq("id", id))
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return repository.ErrNotFound
	}
	return nil
}
