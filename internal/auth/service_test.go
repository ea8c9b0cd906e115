package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/shopfront-backend/internal/users"
	pkgAuth "github.com/angelmondragon/shopfront-backend/pkg/auth"
	"github.com/angelmondragon/shopfront-backend/pkg/config"
	"github.com/angelmondragon/shopfront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/shopfront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/shopfront-backend/pkg/errors"
)

var (
	testJWT      = config.JWTConfig{Secret: "secret", Issuer: "shopfront", ExpirationMinutes: 30}
	testPassword = config.PasswordConfig{ArgonMemoryKB: 64, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32}
)

type stubSessions struct {
	generated []string
	err       error
}

func (s *stubSessions) Generate(_ context.Context, accessID string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.generated = append(s.generated, accessID)
	return "refresh-" + accessID, nil
}

func newTestService(t *testing.T) (Service, *stubSessions) {
	t.Helper()
	sessions := &stubSessions{}
	svc, err := NewService(ServiceParams{
		UserRepo:       users.NewRepository(dbtest.Open(t)),
		SessionManager: sessions,
		JWTConfig:      testJWT,
		PasswordConfig: testPassword,
		Now:            func() time.Time { return time.Now() },
	})
	require.NoError(t, err)
	return svc, sessions
}

func validRegistration() RegisterRequest {
	return RegisterRequest{FirstName: "Ada", LastName: "Lovelace", Email: "Ada@Example.com", Password: "correct-horse"}
}

func TestRegisterIssuesCustomerSession(t *testing.T) {
	svc, sessions := newTestService(t)

	resp, err := svc.Register(context.Background(), validRegistration())
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", resp.User.Email)
	assert.Equal(t, enums.RoleCustomer, resp.User.Role)
	require.NotNil(t, resp.User.LastLoginAt)

	claims, err := pkgAuth.ParseAccessToken(testJWT, resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)
	assert.Equal(t, enums.RoleCustomer, claims.Role)
	require.Len(t, sessions.generated, 1)
	assert.Equal(t, claims.ID, sessions.generated[0])
	assert.Equal(t, "refresh-"+claims.ID, resp.RefreshToken)
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Register(context.Background(), validRegistration())
	require.NoError(t, err)

	dup := validRegistration()
	dup.Email = " ada@EXAMPLE.com"
	_, err = svc.Register(context.Background(), dup)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))
}

func TestRegisterAdminCarriesRole(t *testing.T) {
	svc, _ := newTestService(t)
	resp, err := svc.RegisterAdmin(context.Background(), validRegistration())
	require.NoError(t, err)

	claims, err := pkgAuth.ParseAccessToken(testJWT, resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, enums.RoleAdmin, claims.Role)
}

func TestLogin(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Register(context.Background(), validRegistration())
	require.NoError(t, err)

	resp, err := svc.Login(context.Background(), LoginRequest{Email: "ADA@example.com", Password: "correct-horse"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)

	cases := []LoginRequest{
		{Email: "ada@example.com", Password: "wrong"},
		{Email: "nobody@example.com", Password: "correct-horse"},
		{Email: "  ", Password: "correct-horse"},
	}
	for _, req := range cases {
		_, err := svc.Login(context.Background(), req)
		require.Error(t, err)
		assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.CodeOf(err), req.Email)
	}
}

func TestLoginSessionStoreFailure(t *testing.T) {
	svc, sessions := newTestService(t)
	_, err := svc.Register(context.Background(), validRegistration())
	require.NoError(t, err)

	sessions.err = errors.New("redis down")
	_, err = svc.Login(context.Background(), LoginRequest{Email: "ada@example.com", Password: "correct-horse"})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.CodeOf(err))
}

func TestNewServiceValidatesParams(t *testing.T) {
	_, err := NewService(ServiceParams{SessionManager: &stubSessions{}})
	assert.Error(t, err)
	_, err = NewService(ServiceParams{UserRepo: users.NewRepository(nil)})
	assert.Error(t, err)
}
