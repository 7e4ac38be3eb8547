package access

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScopeMatchesOnlyOwner(t *testing.T) {
	f := Scope(Principal{UserID: 7})

	assert.True(t, f.Matches(7, 1))
	assert.True(t, f.Matches(7, 99))
	assert.False(t, f.Matches(8, 1))
}

func TestByIDNarrowsWithoutMutatingParent(t *testing.T) {
	base := Scope(Principal{UserID: 7})
	one := base.ByID(3)

	assert.Nil(t, base.ID)
	assert.True(t, one.Matches(7, 3))
	assert.False(t, one.Matches(7, 4))
	assert.False(t, one.Matches(8, 3))
}

func TestFilterSQL(t *testing.T) {
	clause, args := Scope(Principal{UserID: 5}).SQL(1)
	assert.Equal(t, "user_id = $1", clause)
	assert.Equal(t, []any{int64(5)}, args)

	clause, args = Scope(Principal{UserID: 5}).ByID(9).SQL(3)
	assert.Equal(t, "user_id = $3 AND id = $4", clause)
	assert.Equal(t, []any{int64(5), int64(9)}, args)
}

func TestPrincipalContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	ctx := WithPrincipal(context.Background(), Principal{UserID: 2, Email: "a@b.co"})
	p, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, int64(2), p.UserID)

	_, ok = FromContext(WithPrincipal(context.Background(), Principal{}))
	assert.False(t, ok)
}

func TestFilterQualified(t *testing.T) {
	clause, _ := Scope(Principal{UserID: 5}).ByID(1).Qualified("t", 2)
	assert.Equal(t, "t.user_id = $2 AND t.id = $3", clause)
}

func TestLockedKeepsScope(t *testing.T) {
	base := Scope(Principal{UserID: 5}).ByID(9)
	locked := base.Locked()

	assert.False(t, base.ForUpdate)
	assert.True(t, locked.ForUpdate)
	assert.True(t, locked.Matches(5, 9))
	assert.False(t, locked.Matches(6, 9))

	clause, args := locked.SQL(1)
	assert.Equal(t, "user_id = $1 AND id = $2", clause)
	assert.Equal(t, []any{int64(5), int64(9)}, args)
}
