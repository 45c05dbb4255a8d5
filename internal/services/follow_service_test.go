package services

import (
	"context"
	"testing"

	"github.com/ArowuTest/rafflywin-backend/internal/models"
	"github.com/ArowuTest/rafflywin-backend/internal/repositories/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func createUser(t *testing.T, store *memory.Store, email string, role models.Role) *models.User {
	t.Helper()
	user := &models.User{Email: email, FullName: "User " + email, Role: role, IsActive: true}
	require.NoError(t, store.Users().Create(context.Background(), user))
	return user
}

func TestFollowAndUnfollow(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := NewFollowService(store.Users())
	fan := createUser(t, store, "fan@rafflywin.test", models.RoleUser)
	creator := createUser(t, store, "creator@rafflywin.test", models.RoleCreator)

	require.NoError(t, svc.Follow(ctx, fan.ID, creator.ID))
	require.NoError(t, svc.Follow(ctx, fan.ID, creator.ID))

	got, err := store.Users().FindByID(ctx, creator.ID)
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{fan.ID}, got.Followers)
	got, err = store.Users().FindByID(ctx, fan.ID)
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{creator.ID}, got.Following)

	require.NoError(t, svc.Unfollow(ctx, fan.ID, creator.ID))
	got, err = store.Users().FindByID(ctx, creator.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Followers)
}

func TestFollow_Errors(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := NewFollowService(store.Users())
	fan := createUser(t, store, "fan@rafflywin.test", models.RoleUser)

	assert.ErrorIs(t, svc.Follow(ctx, fan.ID, fan.ID), ErrValidation)
	assert.ErrorIs(t, svc.Follow(ctx, fan.ID, primitive.NewObjectID()), ErrNotFound)
}
