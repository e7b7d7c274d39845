package service

import (
	"context"
	"strconv"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/support-engine/internal/auth"
	"github.com/spec-kit/support-engine/internal/config"
	"github.com/spec-kit/support-engine/internal/domain"
	apperrors "github.com/spec-kit/support-engine/pkg/util/errorutil"
)

type fakeUserRepo struct {
	users map[string]*domain.User
	seq   int
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	r.seq++
	if user.ID == "" {
		user.ID = "u-" + strconv.Itoa(r.seq)
	}
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) Update(_ context.Context, user *domain.User) error {
	if _, ok := r.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *user
	return &copied, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, user := range r.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func newAuthHarness() (*AuthService, *fakeUserRepo, *fakeAgentRepo) {
	users := &fakeUserRepo{users: map[string]*domain.User{}}
	agents := &fakeAgentRepo{agents: map[string]*domain.Agent{}}
	cfg := config.Config{Auth: config.AuthConfig{
		JWTSecret:             "test-secret",
		AccessTokenTTLMinutes: 60,
		BcryptCost:            4,
	}}
	svc := NewAuthService(cfg, AuthDependencies{UserRepo: users, AgentRepo: agents})
	return svc, users, agents
}

func TestRegisterUser(t *testing.T) {
	svc, users, _ := newAuthHarness()
	ctx := context.Background()

	user, token, _, err := svc.RegisterUser(ctx, "Riley", "riley@example.com", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, domain.UserStatusActive, user.Status)
	assert.NotEqual(t, "hunter2", user.PasswordHash)

	claims, err := svc.TokenManager().ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.SubjectID)
	assert.Equal(t, domain.SubjectTypeUser, claims.Subject)
	assert.Nil(t, claims.Role)

	t.Run("duplicate email", func(t *testing.T) {
		_, _, _, err := svc.RegisterUser(ctx, "Riley II", "riley@example.com", "x")
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeConflict))
		assert.Len(t, users.users, 1)
	})
}

func TestLoginUser(t *testing.T) {
	svc, users, _ := newAuthHarness()
	ctx := context.Background()

	hash, err := auth.HashPassword("hunter2", 4)
	require.NoError(t, err)
	users.users["u-1"] = &domain.User{
		ID: "u-1", Email: "riley@example.com", PasswordHash: hash, Status: domain.UserStatusActive,
	}
	users.users["u-2"] = &domain.User{
		ID: "u-2", Email: "casey@example.com", PasswordHash: hash, Status: domain.UserStatusSuspended,
	}

	t.Run("valid credentials", func(t *testing.T) {
		user, token, _, err := svc.LoginUser(ctx, "riley@example.com", "hunter2")
		require.NoError(t, err)
		assert.Equal(t, "u-1", user.ID)

		claims, err := svc.TokenManager().ParseToken(token)
		require.NoError(t, err)
		assert.Equal(t, "u-1", claims.SubjectID)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, _, _, err := svc.LoginUser(ctx, "riley@example.com", "nope")
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeUnauthorized))
	})

	t.Run("unknown email", func(t *testing.T) {
		_, _, _, err := svc.LoginUser(ctx, "ghost@example.com", "hunter2")
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeUnauthorized))
	})

	t.Run("suspended account", func(t *testing.T) {
		_, _, _, err := svc.LoginUser(ctx, "casey@example.com", "hunter2")
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))
	})
}

func TestLoginAgent(t *testing.T) {
	svc, _, agents := newAuthHarness()
	ctx := context.Background()

	hash, err := auth.HashPassword("s3cret", 4)
	require.NoError(t, err)
	agent := agentFixture("a-1", 2, domain.AgentRoleSupervisor, []string{"billing"}, nil)
	agent.Email = "dana@example.com"
	agent.PasswordHash = hash
	agents.agents["a-1"] = agent

	t.Run("valid credentials carry the role", func(t *testing.T) {
		logged, token, _, err := svc.LoginAgent(ctx, "dana@example.com", "s3cret")
		require.NoError(t, err)
		assert.Equal(t, "a-1", logged.ID)

		claims, err := svc.TokenManager().ParseToken(token)
		require.NoError(t, err)
		assert.Equal(t, domain.SubjectTypeAgent, claims.Subject)
		require.NotNil(t, claims.Role)
		assert.Equal(t, domain.AgentRoleSupervisor, *claims.Role)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, _, _, err := svc.LoginAgent(ctx, "dana@example.com", "nope")
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeUnauthorized))
	})
}
