package users

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/shopfront-backend/pkg/db"
	"github.com/angelmondragon/shopfront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/shopfront-backend/pkg/enums"
)

func TestRepositoryCreateAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(dbtest.Open(t))

	user, err := repo.Create(ctx, CreateUserDTO{
		Email:        "  Jane@Example.COM ",
		PasswordHash: "hash",
		FirstName:    " Jane ",
		LastName:     "Doe",
	})
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", user.Email)
	assert.Equal(t, "Jane", user.FirstName)
	assert.Equal(t, enums.RoleCustomer, user.Role)
	assert.True(t, user.IsActive)

	found, err := repo.FindByEmail(ctx, "JANE@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)

	byID, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, byID.Email)

	_, err = repo.Create(ctx, CreateUserDTO{Email: "jane@example.com", PasswordHash: "x", FirstName: "J", LastName: "D"})
	require.Error(t, err)
	assert.True(t, db.IsUniqueViolation(err, "users_email_key"))
}

func TestRepositoryUpdateLastLogin(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(dbtest.Open(t))
	user, err := repo.Create(ctx, CreateUserDTO{Email: "a@b.co", PasswordHash: "h", FirstName: "A", LastName: "B", Role: enums.RoleAdmin})
	require.NoError(t, err)

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.UpdateLastLogin(ctx, user.ID, at))

	found, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, found.LastLoginAt)
	assert.True(t, found.LastLoginAt.Equal(at))
	assert.Equal(t, enums.RoleAdmin, FromModel(found).Role)
}
