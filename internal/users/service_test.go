package users

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentinel-iam/sentinel/internal/audit"
	"github.com/sentinel-iam/sentinel/internal/platform/httpx"
	"github.com/sentinel-iam/sentinel/internal/rbac"
)

// mockRepository backs the service with maps and mirrors the storage-level
// guarantees of the real schema: unique usernames and at most one
// bootstrap row.
type mockRepository struct {
	mu        sync.Mutex
	users     map[uuid.UUID]*User
	byName    map[string]*User
	roles     map[uuid.UUID]map[string]struct{}
	bootstrap bool

	countErr  error
	createErr error
	rolesErr  error
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		users:  make(map[uuid.UUID]*User),
		byName: make(map[string]*User),
		roles:  make(map[uuid.UUID]map[string]struct{}),
	}
}

func (m *mockRepository) Count(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.countErr != nil {
		return 0, m.countErr
	}
	return int64(len(m.users)), nil
}

func (m *mockRepository) FindByID(ctx context.Context, id uuid.UUID) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (m *mockRepository) FindByUsername(ctx context.Context, username string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.byName[username]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (m *mockRepository) List(ctx context.Context) ([]User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]User, 0, len(m.users))
	for _, user := range m.users {
		out = append(out, *user)
	}
	return out, nil
}

func (m *mockRepository) Create(ctx context.Context, user User, roles []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if user.IsBootstrap && m.bootstrap {
		return ErrBootstrapConflict
	}
	if _, exists := m.byName[user.Username]; exists {
		return ErrAlreadyExists
	}
	stored := user
	m.users[user.ID] = &stored
	m.byName[user.Username] = &stored
	set := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		set[role] = struct{}{}
	}
	m.roles[user.ID] = set
	if user.IsBootstrap {
		m.bootstrap = true
	}
	return nil
}

func (m *mockRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	user.IsActive = false
	return nil
}

func (m *mockRepository) RolesFor(ctx context.Context, userID uuid.UUID) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rolesErr != nil {
		return nil, m.rolesErr
	}
	if user, ok := m.users[userID]; !ok || !user.IsActive {
		return nil, nil
	}
	var out []string
	for role := range m.roles[userID] {
		out = append(out, role)
	}
	return out, nil
}

func (m *mockRepository) AssignRole(ctx context.Context, userID uuid.UUID, role string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.roles[userID]
	if !ok {
		set = make(map[string]struct{})
		m.roles[userID] = set
	}
	if _, held := set[role]; held {
		return false, nil
	}
	set[role] = struct{}{}
	return true, nil
}

func (m *mockRepository) RemoveRole(ctx context.Context, userID uuid.UUID, role string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.roles[userID]
	if !ok {
		return false, nil
	}
	if _, held := set[role]; !held {
		return false, nil
	}
	delete(set, role)
	return true, nil
}

var _ RepositoryPort = (*mockRepository)(nil)

type plainHasher struct{}

func (plainHasher) Hash(plain string) (string, error) { return "hashed:" + plain, nil }

func newService(repo RepositoryPort) *Service {
	catalog := rbac.NewCatalog()
	engine := rbac.NewEngine(catalog, repo)
	return NewService(repo, catalog, engine, plainHasher{}, audit.NewRecorder(nil, nil))
}

func seedAdmin(t *testing.T, repo *mockRepository) *rbac.Principal {
	t.Helper()
	admin := User{ID: uuid.New(), Username: "root", IsActive: true}
	require.NoError(t, repo.Create(context.Background(), admin, []string{rbac.RoleAdmin}))
	return &rbac.Principal{ID: admin.ID}
}

func TestBootstrapCreateFirstUser(t *testing.T) {
	repo := newMockRepository()
	service := newService(repo)

	user, err := service.Create(context.Background(), nil, CreateInput{
		Username: "Admin",
		Password: "correct-horse",
	})
	require.NoError(t, err)
	assert.Equal(t, "admin", user.Username)
	assert.True(t, user.IsBootstrap)

	roles, err := repo.RolesFor(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{rbac.RoleAdmin}, roles)
}

func TestBootstrapDeniedOnceUsersExist(t *testing.T) {
	repo := newMockRepository()
	service := newService(repo)

	_, err := service.Create(context.Background(), nil, CreateInput{Username: "first", Password: "password-one"})
	require.NoError(t, err)

	_, err = service.Create(context.Background(), nil, CreateInput{Username: "second", Password: "password-two"})
	assert.ErrorIs(t, err, httpx.ErrUnauthenticated)
}

func TestBootstrapRaceAdmitsExactlyOne(t *testing.T) {
	repo := newMockRepository()
	service := newService(repo)

	// Both goroutines observe an empty store before either insert commits;
	// the storage constraint must still admit only one of them.
	start := make(chan struct{})
	results := make(chan error, 2)
	for i, name := range []string{"racer-a", "racer-b"} {
		go func(i int, name string) {
			<-start
			_, err := service.Create(context.Background(), nil, CreateInput{Username: name, Password: "password-race"})
			results <- err
		}(i, name)
	}
	close(start)

	var succeeded, conflicted int
	for i := 0; i < 2; i++ {
		err := <-results
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, httpx.ErrConflict), errors.Is(err, httpx.ErrUnauthenticated):
			conflicted++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, conflicted)

	count, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestBootstrapCountFailureIsUnavailable(t *testing.T) {
	repo := newMockRepository()
	repo.countErr = errors.New("connection refused")
	service := newService(repo)

	_, err := service.Create(context.Background(), nil, CreateInput{Username: "x", Password: "password-one"})
	assert.ErrorIs(t, err, httpx.ErrUnavailable)
}

func TestAuthenticatedCreateRequiresPermission(t *testing.T) {
	repo := newMockRepository()
	service := newService(repo)
	admin := seedAdmin(t, repo)

	// A plain user may not create accounts.
	plain := User{ID: uuid.New(), Username: "plain", IsActive: true}
	require.NoError(t, repo.Create(context.Background(), plain, []string{rbac.RoleUser}))

	_, err := service.Create(context.Background(), &rbac.Principal{ID: plain.ID}, CreateInput{Username: "new", Password: "password-one"})
	assert.ErrorIs(t, err, httpx.ErrForbidden)

	// An administrator may, regardless of bootstrap state.
	user, err := service.Create(context.Background(), admin, CreateInput{Username: "new", Password: "password-one"})
	require.NoError(t, err)
	assert.False(t, user.IsBootstrap)
}

func TestCreateRejectsUnknownRole(t *testing.T) {
	repo := newMockRepository()
	service := newService(repo)
	admin := seedAdmin(t, repo)

	_, err := service.Create(context.Background(), admin, CreateInput{
		Username: "new",
		Password: "password-one",
		Roles:    []string{"wizard"},
	})
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestCreateDuplicateUsernameConflicts(t *testing.T) {
	repo := newMockRepository()
	service := newService(repo)
	admin := seedAdmin(t, repo)

	_, err := service.Create(context.Background(), admin, CreateInput{Username: "dupe", Password: "password-one"})
	require.NoError(t, err)

	_, err = service.Create(context.Background(), admin, CreateInput{Username: "DUPE", Password: "password-two"})
	assert.ErrorIs(t, err, httpx.ErrConflict)
}

func TestAssignRoleIdempotent(t *testing.T) {
	repo := newMockRepository()
	service := newService(repo)
	admin := seedAdmin(t, repo)

	target, err := service.Create(context.Background(), admin, CreateInput{Username: "member", Password: "password-one"})
	require.NoError(t, err)

	require.NoError(t, service.AssignRole(context.Background(), admin, target.ID, rbac.RoleAuditor))
	require.NoError(t, service.AssignRole(context.Background(), admin, target.ID, rbac.RoleAuditor))

	roles, err := service.Roles(context.Background(), target.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{rbac.RoleUser, rbac.RoleAuditor}, roles)
}

func TestRemoveRoleIdempotent(t *testing.T) {
	repo := newMockRepository()
	service := newService(repo)
	admin := seedAdmin(t, repo)

	target, err := service.Create(context.Background(), admin, CreateInput{Username: "member", Password: "password-one"})
	require.NoError(t, err)

	// Removing a role the user never held is still a success.
	require.NoError(t, service.RemoveRole(context.Background(), admin, target.ID, rbac.RoleAuditor))
	require.NoError(t, service.RemoveRole(context.Background(), admin, target.ID, rbac.RoleUser))
	require.NoError(t, service.RemoveRole(context.Background(), admin, target.ID, rbac.RoleUser))

	roles, err := service.Roles(context.Background(), target.ID)
	require.NoError(t, err)
	assert.Empty(t, roles)
}

func TestAssignRoleUnknownUser(t *testing.T) {
	repo := newMockRepository()
	service := newService(repo)
	admin := seedAdmin(t, repo)

	err := service.AssignRole(context.Background(), admin, uuid.New(), rbac.RoleUser)
	assert.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestAssignRoleUnknownRole(t *testing.T) {
	repo := newMockRepository()
	service := newService(repo)
	admin := seedAdmin(t, repo)

	err := service.AssignRole(context.Background(), admin, admin.ID, "wizard")
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestPermissionsReflectRoleUnion(t *testing.T) {
	repo := newMockRepository()
	service := newService(repo)
	admin := seedAdmin(t, repo)

	target, err := service.Create(context.Background(), admin, CreateInput{Username: "member", Password: "password-one", Roles: []string{rbac.RoleUser, rbac.RoleAuditor}})
	require.NoError(t, err)

	perms, err := service.Permissions(context.Background(), target.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"users.view", "roles.view"}, perms)
}

func TestDeactivationRevokesAuthorization(t *testing.T) {
	repo := newMockRepository()
	service := newService(repo)
	admin := seedAdmin(t, repo)

	// A still-valid token must lose all authority the moment the account
	// is deactivated; roles reload on every decision.
	engine := rbac.NewEngine(rbac.NewCatalog(), repo)
	require.NoError(t, engine.Decide(context.Background(), admin, rbac.PermUsersEdit))

	require.NoError(t, service.Deactivate(context.Background(), admin, admin.ID))

	err := engine.Decide(context.Background(), admin, rbac.PermUsersEdit)
	assert.ErrorIs(t, err, httpx.ErrForbidden)

	perms, err := service.Permissions(context.Background(), admin.ID)
	require.NoError(t, err)
	assert.Empty(t, perms)
}

func TestDeactivateUnknownUser(t *testing.T) {
	repo := newMockRepository()
	service := newService(repo)
	admin := seedAdmin(t, repo)

	err := service.Deactivate(context.Background(), admin, uuid.New())
	assert.ErrorIs(t, err, httpx.ErrNotFound)
}
