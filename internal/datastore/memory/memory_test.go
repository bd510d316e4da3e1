package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/dogfinder/internal/datastore"
)

func TestInsertAssignsDefaults(t *testing.T) {
	s := NewWithSchema()
	ctx := context.Background()

	rows, err := s.Insert(ctx, "adoptions", datastore.Row{"dog_id": 3, "contact": "a@b.c"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1), rows[0]["id"])
	assert.Equal(t, "Pending", rows[0]["status"])
	assert.IsType(t, time.Time{}, rows[0]["created_at"])
	assert.Nil(t, rows[0]["applicant_name"])

	rows, err = s.Insert(ctx, "adoptions", datastore.Row{"id": 10}, datastore.Row{})
	require.NoError(t, err)
	assert.Equal(t, int64(10), rows[0]["id"])
	assert.Equal(t, int64(11), rows[1]["id"])
}

func TestSelectFiltersOrdersAndLimits(t *testing.T) {
	s := NewWithSchema()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.Seed("adoptions",
		datastore.Row{"contact": "a@b.c", "created_at": base},
		datastore.Row{"contact": "x@y.z", "created_at": base.Add(time.Hour)},
		datastore.Row{"contact": "a@b.c", "created_at": base.Add(2 * time.Hour)},
	)

	rows, err := s.Select(context.Background(),
		datastore.From("adoptions").Eq("contact", "a@b.c").Order("created_at", false).Limit(1))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(3), rows[0]["id"])

	rows, err = s.Select(context.Background(), datastore.From("adoptions").Select("id").In("id", 1, "2").Order("id", true))
	require.NoError(t, err)
	assert.Equal(t, []datastore.Row{{"id": int64(1)}, {"id": int64(2)}}, rows)
}

func TestMissingColumnAndTable(t *testing.T) {
	s := NewWithSchema()
	ctx := context.Background()

	_, err := s.Select(ctx, datastore.From("adoptions").Eq("email", "a@b.c"))
	column, ok := datastore.MissingColumn(err)
	assert.True(t, ok)
	assert.Equal(t, "email", column)

	s.DropTable("notifications")
	_, err = s.Select(ctx, datastore.From("notifications"))
	assert.True(t, datastore.IsMissingTable(err))

	_, err = s.Insert(ctx, "dogs", datastore.Row{"colour": "brown"})
	assert.True(t, datastore.IsSchemaProblem(err))
}

func TestUpdateAndDelete(t *testing.T) {
	s := NewWithSchema()
	ctx := context.Background()
	s.Seed("dogs", datastore.Row{"name": "Rex", "status": "Available"}, datastore.Row{"name": "Fido"})

	rows, err := s.Update(ctx, "dogs", datastore.Row{"status": "Adopted"}, datastore.Eq("id", 1))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Adopted", rows[0]["status"])

	rows, err = s.Delete(ctx, "dogs", datastore.Eq("id", "2"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Fido", rows[0]["name"])

	rows, err = s.Select(ctx, datastore.From("dogs"))
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, []string{"update dogs id=eq.1", "delete dogs id=eq.2", "select * from dogs"}, s.Log())
}

func TestNilFilterMatchesNull(t *testing.T) {
	s := NewWithSchema()
	s.Seed("adoptions", datastore.Row{"contact": nil}, datastore.Row{"contact": "a@b.c"})

	rows, err := s.Select(context.Background(), datastore.From("adoptions").Eq("contact", nil))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1), rows[0]["id"])

	rows, err = s.Select(context.Background(), datastore.From("adoptions").Eq("contact", "a@b.c"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(2), rows[0]["id"])
}

func TestFailureInjection(t *testing.T) {
	s := NewWithSchema()
	boom := errors.New("boom")
	s.Fail("select", "dogs", boom)

	_, err := s.Select(context.Background(), datastore.From("dogs"))
	assert.ErrorIs(t, err, boom)

	s.Clear()
	s.OnSelect(func(q *datastore.Query) error {
		if q.Table == "users" {
			return boom
		}
		return nil
	})
	_, err = s.Select(context.Background(), datastore.From("dogs"))
	assert.NoError(t, err)
	_, err = s.Select(context.Background(), datastore.From("users"))
	assert.ErrorIs(t, err, boom)
}

func TestAuth(t *testing.T) {
	a := NewAuth()
	ctx := context.Background()
	a.Register("tok", datastore.AuthUser{ID: "u1", Email: "a@b.c"})

	user, err := a.GetUser(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, "a@b.c", user.Email)

	require.NoError(t, a.SignOut(ctx, "tok"))
	_, err = a.GetUser(ctx, "tok")
	assert.True(t, datastore.IsPermissionDenied(err))
}
