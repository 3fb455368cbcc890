package users

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meridian-cms/meridian-cms/internal/authz"
	"github.com/meridian-cms/meridian-cms/internal/permission"
	"github.com/meridian-cms/meridian-cms/internal/shared"
)

type memoryRepo struct {
	nextID     int64
	principals map[int64]Principal
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{nextID: 1, principals: make(map[int64]Principal)}
}

func (m *memoryRepo) List(ctx context.Context, limit, offset int) ([]Principal, error) {
	all := make([]Principal, 0, len(m.principals))
	for _, p := range m.principals {
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Email < all[j].Email })
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (m *memoryRepo) Count(ctx context.Context) (int, error) {
	return len(m.principals), nil
}

func (m *memoryRepo) GetByEmail(ctx context.Context, email string) (Principal, error) {
	for _, p := range m.principals {
		if strings.EqualFold(p.Email, email) {
			return p, nil
		}
	}
	return Principal{}, ErrNotFound
}

func (m *memoryRepo) Get(ctx context.Context, id int64) (Principal, error) {
	p, ok := m.principals[id]
	if !ok {
		return Principal{}, ErrNotFound
	}
	return p, nil
}

func (m *memoryRepo) CreatePending(ctx context.Context, email, name string) (Principal, error) {
	for _, existing := range m.principals {
		if existing.Email == email {
			return Principal{}, ErrDuplicateEmail
		}
	}
	p := Principal{ID: m.nextID, Email: email, Name: name, Status: authz.StatusPending, RoleKind: authz.RoleKindUser}
	m.nextID++
	m.principals[p.ID] = p
	return p, nil
}

func (m *memoryRepo) SetRoleAssignment(ctx context.Context, principalID int64, assignment RoleAssignment) error {
	p, ok := m.principals[principalID]
	if !ok {
		return ErrNotFound
	}
	p.RoleKind = assignment.Kind()
	p.AssignedRoleID = assignment.RoleID()
	p.CustomPermissions = assignment.CustomPermissions()
	m.principals[principalID] = p
	return nil
}

type stubRoleChecker struct {
	known map[int64]permission.Matrix
}

func (s *stubRoleChecker) RolePermissions(ctx context.Context, roleID int64) (permission.Matrix, error) {
	matrix, ok := s.known[roleID]
	if !ok {
		return nil, authz.ErrRoleNotFound
	}
	return matrix, nil
}

type recordingMailer struct {
	sent []string
	fail bool
}

func (m *recordingMailer) EnqueueInviteEmail(ctx context.Context, email, name string) error {
	if m.fail {
		return errors.New("queue unavailable")
	}
	m.sent = append(m.sent, email)
	return nil
}

func newTestService(repo RepositoryPort, roles RoleChecker, mailer InviteMailer) *Service {
	return NewService(repo, roles, mailer, nil)
}

func TestListPaginates(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, &stubRoleChecker{}, &recordingMailer{})
	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		_, err := repo.CreatePending(context.Background(), email, "Member")
		require.NoError(t, err)
	}

	page, pagination, err := svc.List(context.Background(), 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.Equal(t, "c@example.com", page[0].Email)
	require.Equal(t, 3, pagination.Total)
	require.Equal(t, 2, pagination.TotalPages)

	all, pagination, err := svc.List(context.Background(), 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, 1, pagination.Page)
}

func TestInviteCreatesPendingPrincipal(t *testing.T) {
	repo := newMemoryRepo()
	mailer := &recordingMailer{}
	svc := newTestService(repo, &stubRoleChecker{}, mailer)

	created, err := svc.Invite(context.Background(), 7, InviteInput{Email: "  Editor@Example.COM ", Name: " Robin Vale "})
	require.NoError(t, err)
	require.Equal(t, "editor@example.com", created.Email)
	require.Equal(t, "Robin Vale", created.Name)
	require.Equal(t, authz.StatusPending, created.Status)
	require.Equal(t, []string{"editor@example.com"}, mailer.sent)
}

func TestInviteDuplicateEmail(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, &stubRoleChecker{}, &recordingMailer{})

	_, err := svc.Invite(context.Background(), 7, InviteInput{Email: "editor@example.com", Name: "Robin"})
	require.NoError(t, err)

	_, err = svc.Invite(context.Background(), 7, InviteInput{Email: "EDITOR@example.com", Name: "Other"})
	require.Equal(t, shared.CodeConflict, shared.CodeOf(err))
}

func TestInviteRejectsInvalidInput(t *testing.T) {
	svc := newTestService(newMemoryRepo(), &stubRoleChecker{}, &recordingMailer{})

	for _, input := range []InviteInput{
		{Email: "", Name: "Robin"},
		{Email: "not-an-email", Name: "Robin"},
		{Email: "editor@example.com", Name: "x"},
	} {
		_, err := svc.Invite(context.Background(), 7, input)
		require.Equal(t, shared.CodeValidation, shared.CodeOf(err), "input %+v", input)
	}
}

func TestInviteSurvivesMailerFailure(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, &stubRoleChecker{}, &recordingMailer{fail: true})

	created, err := svc.Invite(context.Background(), 7, InviteInput{Email: "editor@example.com", Name: "Robin"})
	require.NoError(t, err)
	_, ok := repo.principals[created.ID]
	require.True(t, ok)
}

func TestInviteRequiresCaller(t *testing.T) {
	svc := newTestService(newMemoryRepo(), &stubRoleChecker{}, &recordingMailer{})

	_, err := svc.Invite(context.Background(), 0, InviteInput{Email: "editor@example.com", Name: "Robin"})
	require.Equal(t, shared.CodeUnauthorized, shared.CodeOf(err))
}

func TestSetRoleAssignmentAttachesExistingRole(t *testing.T) {
	repo := newMemoryRepo()
	repo.principals[1] = Principal{ID: 1, Status: authz.StatusActive, RoleKind: authz.RoleKindUser}
	checker := &stubRoleChecker{known: map[int64]permission.Matrix{9: {}}}
	svc := newTestService(repo, checker, &recordingMailer{})

	err := svc.SetRoleAssignment(context.Background(), 7, 1, AssignRole(9))
	require.NoError(t, err)
	require.Equal(t, authz.RoleKindCustomRole, repo.principals[1].RoleKind)
	require.NotNil(t, repo.principals[1].AssignedRoleID)
	require.Equal(t, int64(9), *repo.principals[1].AssignedRoleID)
}

func TestSetRoleAssignmentRejectsUnknownRole(t *testing.T) {
	repo := newMemoryRepo()
	repo.principals[1] = Principal{ID: 1, Status: authz.StatusActive, RoleKind: authz.RoleKindUser}
	svc := newTestService(repo, &stubRoleChecker{}, &recordingMailer{})

	err := svc.SetRoleAssignment(context.Background(), 7, 1, AssignRole(404))
	require.Equal(t, shared.CodeNotFound, shared.CodeOf(err))
	require.Equal(t, authz.RoleKindUser, repo.principals[1].RoleKind, "assignment must not change on failure")
}

func TestSetRoleAssignmentClearsRole(t *testing.T) {
	roleID := int64(9)
	repo := newMemoryRepo()
	repo.principals[1] = Principal{ID: 1, Status: authz.StatusActive, RoleKind: authz.RoleKindCustomRole, AssignedRoleID: &roleID}
	svc := newTestService(repo, &stubRoleChecker{}, &recordingMailer{})

	require.NoError(t, svc.SetRoleAssignment(context.Background(), 7, 1, AssignNone()))
	require.Equal(t, authz.RoleKindUser, repo.principals[1].RoleKind)
	require.Nil(t, repo.principals[1].AssignedRoleID)
	require.Nil(t, repo.principals[1].CustomPermissions)
}

func TestSetRoleAssignmentUnknownPrincipal(t *testing.T) {
	svc := newTestService(newMemoryRepo(), &stubRoleChecker{}, &recordingMailer{})

	err := svc.SetRoleAssignment(context.Background(), 7, 42, AssignSuperAdmin())
	require.Equal(t, shared.CodeNotFound, shared.CodeOf(err))
}
