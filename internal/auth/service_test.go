package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/meridian-cms/meridian-cms/internal/authz"
	"github.com/meridian-cms/meridian-cms/internal/shared"
)

type memoryRepo struct {
	accounts map[string]*Account
	sessions map[string]time.Time
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{accounts: make(map[string]*Account), sessions: make(map[string]time.Time)}
}

func (m *memoryRepo) FindByEmail(ctx context.Context, email string) (*Account, error) {
	account, ok := m.accounts[email]
	if !ok {
		return nil, errors.New("account not found")
	}
	return account, nil
}

func (m *memoryRepo) CreateSession(ctx context.Context, id string, principalID int64, expiresAt time.Time, ip, ua string) error {
	m.sessions[id] = expiresAt
	return nil
}

func (m *memoryRepo) DeleteSession(ctx context.Context, id string) error {
	delete(m.sessions, id)
	return nil
}

func (m *memoryRepo) DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error) {
	var purged int64
	for id, expiresAt := range m.sessions {
		if expiresAt.Before(before) {
			delete(m.sessions, id)
			purged++
		}
	}
	return purged, nil
}

func addAccount(t *testing.T, repo *memoryRepo, email, password string, status authz.Status) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	repo.accounts[email] = &Account{ID: 1, Email: email, Name: "Robin", PasswordHash: string(hash), Status: status}
}

func TestAuthenticate(t *testing.T) {
	repo := newMemoryRepo()
	addAccount(t, repo, "admin@example.com", "correct horse", authz.StatusActive)
	svc := NewService(repo)

	account, err := svc.Authenticate(context.Background(), "admin@example.com", "correct horse")
	require.NoError(t, err)
	require.Equal(t, "admin@example.com", account.Email)
}

func TestAuthenticateWrongPassword(t *testing.T) {
	repo := newMemoryRepo()
	addAccount(t, repo, "admin@example.com", "correct horse", authz.StatusActive)
	svc := NewService(repo)

	_, err := svc.Authenticate(context.Background(), "admin@example.com", "wrong")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestAuthenticateUnknownEmail(t *testing.T) {
	svc := NewService(newMemoryRepo())

	_, err := svc.Authenticate(context.Background(), "ghost@example.com", "whatever")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestAuthenticateNonActiveAccounts(t *testing.T) {
	for _, status := range []authz.Status{authz.StatusBlocked, authz.StatusPending} {
		repo := newMemoryRepo()
		addAccount(t, repo, "admin@example.com", "correct horse", status)
		svc := NewService(repo)

		_, err := svc.Authenticate(context.Background(), "admin@example.com", "correct horse")
		require.ErrorIs(t, err, shared.ErrInvalidCredentials, "status %s", status)
	}
}

func TestPurgeExpiredSessions(t *testing.T) {
	repo := newMemoryRepo()
	repo.sessions["stale"] = time.Now().Add(-time.Hour)
	repo.sessions["live"] = time.Now().Add(time.Hour)
	svc := NewService(repo)

	purged, err := svc.PurgeExpiredSessions(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), purged)
	_, ok := repo.sessions["live"]
	require.True(t, ok)
}
