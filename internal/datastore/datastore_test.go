package datastore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueryBuilder(t *testing.T) {
	q := From("adoptions").Eq("contact", "a@b.c").Order("created_at", false).Limit(50)

	assert.Equal(t, "adoptions", q.Table)
	assert.Nil(t, q.ColumnList())
	assert.Equal(t, "select * from adoptions contact=eq.a@b.c order created_at.desc limit 50", q.String())
}

func TestQuerySelectColumns(t *testing.T) {
	q := From("dogs").Select("id, name ,image_url").In("id", 1, 2)

	assert.Equal(t, []string{"id", "name", "image_url"}, q.ColumnList())
	assert.Equal(t, "select id, name ,image_url from dogs id=in.(1,2)", q.String())
	assert.Equal(t, "*", From("dogs").Select(" ").Columns)
}

func TestAccessTokenContext(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, AccessToken(ctx))
	assert.Equal(t, ctx, WithAccessToken(ctx, ""))
	assert.Equal(t, "tok", AccessToken(WithAccessToken(ctx, "tok")))
}
