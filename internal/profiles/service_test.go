package profiles

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/shopfront-backend/pkg/db/dbtest"
	pkgerrors "github.com/angelmondragon/shopfront-backend/pkg/errors"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	svc, err := NewService(NewRepository(dbtest.Open(t)))
	require.NoError(t, err)
	return svc
}

func TestListCreatesProfileOnce(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	first, err := svc.List(ctx, userID)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, userID, first[0].User)

	second, err := svc.List(ctx, userID)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].ID, second[0].ID)

	_, err = svc.Create(ctx, userID, ProfileInput{Phone: "555"})
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))
}

func TestCreateAndUpdate(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()
	picture := "avatars/me.png"

	created, err := svc.Create(ctx, userID, ProfileInput{Phone: "+15551234567", Address: "1 Main St", ProfilePicture: &picture})
	require.NoError(t, err)
	require.NotNil(t, created.ProfilePicture)

	address := "2 Side St"
	patched, err := svc.Update(ctx, userID, created.ID, ProfilePatch{Address: &address})
	require.NoError(t, err)
	assert.Equal(t, "2 Side St", patched.Address)
	assert.Equal(t, "+15551234567", patched.Phone)
	assert.NotNil(t, patched.ProfilePicture)

	replaced, err := svc.Update(ctx, userID, created.ID, ProfileInput{Phone: "123"}.Patch())
	require.NoError(t, err)
	assert.Empty(t, replaced.Address)
	assert.Nil(t, replaced.ProfilePicture)

	tooLong := "1234567890123456"
	_, err = svc.Update(ctx, userID, created.ID, ProfilePatch{Phone: &tooLong})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestProfilesAreScopedToOwner(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()

	profile, err := svc.Create(ctx, alice, ProfileInput{Phone: "1"})
	require.NoError(t, err)

	_, err = svc.Get(ctx, bob, profile.ID)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
	phone := "2"
	_, err = svc.Update(ctx, bob, profile.ID, ProfilePatch{Phone: &phone})
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(svc.Delete(ctx, bob, profile.ID)))

	require.NoError(t, svc.Delete(ctx, alice, profile.ID))
	_, err = svc.Get(ctx, alice, profile.ID)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}
