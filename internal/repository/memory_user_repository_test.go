package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/inventory-api/internal/model"
)

func TestMemoryUserRepo_UniqueEmail(t *testing.T) {
	r := NewMemoryUserRepo()
	ctx := context.Background()

	id, err := r.Create(ctx, &model.User{Name: "A", Email: "A@x.com ", Role: model.RoleAdmin})
	require.NoError(t, err)

	_, err = r.Create(ctx, &model.User{Name: "B", Email: "a@x.com", Role: model.RoleAdmin})
	assert.ErrorIs(t, err, ErrEmailExists)

	u, err := r.GetByEmail(ctx, "a@X.com")
	require.NoError(t, err)
	assert.Equal(t, id, u.ID)
	assert.Equal(t, "A", u.Name)
}

func TestMemoryUserRepo_ReturnsCopies(t *testing.T) {
	r := NewMemoryUserRepo()
	ctx := context.Background()
	id, err := r.Create(ctx, &model.User{Name: "A", Email: "a@x.com", Role: model.RoleAdmin})
	require.NoError(t, err)
	require.NoError(t, r.UpdateRefreshToken(ctx, id, ptr("t1")))

	u, err := r.GetByID(ctx, id)
	require.NoError(t, err)
	*u.RefreshToken = "tampered"

	again, err := r.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "t1", *again.RefreshToken)
}

func TestMemoryUserRepo_SwapIsExclusive(t *testing.T) {
	r := NewMemoryUserRepo()
	ctx := context.Background()
	id, err := r.Create(ctx, &model.User{Name: "A", Email: "a@x.com", Role: model.RoleAdmin})
	require.NoError(t, err)
	require.NoError(t, r.UpdateRefreshToken(ctx, id, ptr("old")))

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ok, err := r.SwapRefreshToken(ctx, id, "old", "new")
			if err == nil && ok {
				wins.Add(1)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func TestMemoryUserRepo_UpdateFieldsAndList(t *testing.T) {
	r := NewMemoryUserRepo()
	ctx := context.Background()
	store := uint64(2)
	a, _ := r.Create(ctx, &model.User{Name: "A", Email: "a@x.com", Role: model.RoleStaff, StoreID: &store})
	_, _ = r.Create(ctx, &model.User{Name: "B", Email: "b@x.com", Role: model.RoleAdmin})

	assert.ErrorIs(t, r.UpdateFields(ctx, a, model.UserUpdate{Email: ptr("b@x.com")}), ErrEmailExists)
	require.NoError(t, r.UpdateFields(ctx, a, model.UserUpdate{Name: ptr("Ann"), ClearRefreshToken: true}))

	all, err := r.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "B", all[0].Name)

	byStore, err := r.ListByStore(ctx, store)
	require.NoError(t, err)
	require.Len(t, byStore, 1)
	assert.Equal(t, "Ann", byStore[0].Name)
}
