package application

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/userdesk/userdesk/config"
	"github.com/userdesk/userdesk/internal/domain/entity"
	"github.com/userdesk/userdesk/internal/domain/repository"
	"github.com/userdesk/userdesk/internal/session"
)

func newTestRosterService(cfg *config.Config) (*RosterService, *memRepo, *memSessions) {
	repo := newMemRepo()
	sessions := newMemSessions()
	index := NewSearchIndex(nil, "", nil)
	svc := NewRosterService(repo, sessions, index, testLogger(), cfg)
	return svc, repo, sessions
}

func seedAccount(t *testing.T, repo *memRepo, name string, verified bool) *entity.Account {
	t.Helper()
	a := &entity.Account{
		ID:               uuid.NewString(),
		Name:             name,
		Email:            name + "@example.com",
		PasswordHash:     "x",
		RegistrationTime: time.Now().UTC(),
		IsVerified:       verified,
	}
	require.NoError(t, repo.Create(context.Background(), a))
	return a
}

func TestRosterBlockUnblock(t *testing.T) {
	ctx := context.Background()
	svc, repo, sessions := newTestRosterService(testConfig())

	alice := seedAccount(t, repo, "alice", true)
	bob := seedAccount(t, repo, "bob", true)
	require.NoError(t, sessions.Create(ctx, alice.ID, session.Session{SID: "s1"}))
	require.NoError(t, sessions.Create(ctx, bob.ID, session.Session{SID: "s2"}))

	t.Run("empty id set is a no-op", func(t *testing.T) {
		self, err := svc.Block(ctx, alice.ID, nil)
		require.NoError(t, err)
		require.False(t, self)
	})

	t.Run("blocking another account keeps the actor's session", func(t *testing.T) {
		self, err := svc.Block(ctx, alice.ID, []string{bob.ID})
		require.NoError(t, err)
		require.False(t, self)
		require.True(t, sessions.has(alice.ID))

		got, err := repo.GetByID(ctx, bob.ID)
		require.NoError(t, err)
		require.True(t, got.IsBlocked)
		require.Equal(t, entity.StatusBlocked, got.Status())
	})

	t.Run("self block destroys the actor's session", func(t *testing.T) {
		self, err := svc.Block(ctx, alice.ID, []string{alice.ID, bob.ID})
		require.NoError(t, err)
		require.True(t, self)
		require.False(t, sessions.has(alice.ID))
	})

	t.Run("unblock clears the flag", func(t *testing.T) {
		require.NoError(t, svc.Unblock(ctx, []string{alice.ID, bob.ID}))
		got, err := repo.GetByID(ctx, bob.ID)
		require.NoError(t, err)
		require.False(t, got.IsBlocked)
	})
}

func TestRosterDeleteRestore(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newTestRosterService(testConfig())

	blocked := seedAccount(t, repo, "blocked", true)
	clean := seedAccount(t, repo, "clean", true)
	require.NoError(t, repo.Block(ctx, []string{blocked.ID}))

	t.Run("soft delete snapshots the blocked flag", func(t *testing.T) {
		_, err := svc.Delete(ctx, "", []string{blocked.ID, clean.ID})
		require.NoError(t, err)

		b, err := repo.GetByID(ctx, blocked.ID)
		require.NoError(t, err)
		require.True(t, b.IsDeleted)
		require.True(t, b.WasBlockedBeforeDelete)
		require.Equal(t, entity.StatusDeleted, b.Status())

		c, err := repo.GetByID(ctx, clean.ID)
		require.NoError(t, err)
		require.True(t, c.IsDeleted)
		require.False(t, c.WasBlockedBeforeDelete)
	})

	t.Run("restore brings back the pre-delete blocked flag", func(t *testing.T) {
		require.NoError(t, svc.Restore(ctx, []string{blocked.ID, clean.ID}, false))

		b, err := repo.GetByID(ctx, blocked.ID)
		require.NoError(t, err)
		require.False(t, b.IsDeleted)
		require.True(t, b.IsBlocked)
		require.False(t, b.WasBlockedBeforeDelete)

		c, err := repo.GetByID(ctx, clean.ID)
		require.NoError(t, err)
		require.False(t, c.IsDeleted)
		require.False(t, c.IsBlocked)
	})

	t.Run("restore with unblock all clears the flag instead", func(t *testing.T) {
		_, err := svc.Delete(ctx, "", []string{blocked.ID})
		require.NoError(t, err)
		require.NoError(t, svc.Restore(ctx, []string{blocked.ID}, true))

		b, err := repo.GetByID(ctx, blocked.ID)
		require.NoError(t, err)
		require.False(t, b.IsDeleted)
		require.False(t, b.IsBlocked)
	})

	t.Run("restore all recovers every soft-deleted account", func(t *testing.T) {
		_, err := svc.Delete(ctx, "", []string{blocked.ID, clean.ID})
		require.NoError(t, err)
		require.NoError(t, svc.RestoreAll(ctx, false))

		for _, id := range []string{blocked.ID, clean.ID} {
			a, err := repo.GetByID(ctx, id)
			require.NoError(t, err)
			require.False(t, a.IsDeleted)
		}
	})
}

func TestRosterDeleteModes(t *testing.T) {
	ctx := context.Background()

	t.Run("delete is physical when soft delete is disabled", func(t *testing.T) {
		cfg := testConfig()
		cfg.SoftDeleteEnabled = false
		svc, repo, _ := newTestRosterService(cfg)
		a := seedAccount(t, repo, "gone", true)

		_, err := svc.Delete(ctx, "", []string{a.ID})
		require.NoError(t, err)
		_, err = repo.GetByID(ctx, a.ID)
		require.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("restore is a no-op when soft delete is disabled", func(t *testing.T) {
		cfg := testConfig()
		cfg.SoftDeleteEnabled = false
		svc, repo, _ := newTestRosterService(cfg)
		a := seedAccount(t, repo, "kept", true)

		require.NoError(t, svc.Restore(ctx, []string{a.ID}, true))
		require.NoError(t, svc.RestoreAll(ctx, true))
		_, err := repo.GetByID(ctx, a.ID)
		require.NoError(t, err)
	})

	t.Run("hard delete ignores the soft delete setting", func(t *testing.T) {
		svc, repo, sessions := newTestRosterService(testConfig())
		a := seedAccount(t, repo, "victim", true)
		require.NoError(t, sessions.Create(ctx, a.ID, session.Session{SID: "s"}))

		self, err := svc.HardDelete(ctx, a.ID, []string{a.ID})
		require.NoError(t, err)
		require.True(t, self)
		require.False(t, sessions.has(a.ID))
		_, err = repo.GetByID(ctx, a.ID)
		require.ErrorIs(t, err, repository.ErrNotFound)
	})
}

func TestPurgeUnverified(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newTestRosterService(testConfig())

	seedAccount(t, repo, "pending1", false)
	seedAccount(t, repo, "pending2", false)
	kept := seedAccount(t, repo, "done", true)

	n, err := svc.PurgeUnverified(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	accounts, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	require.Equal(t, kept.ID, accounts[0].ID)
}

func TestRosterOrdering(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newTestRosterService(testConfig())

	active := seedAccount(t, repo, "active", true)
	unverified := seedAccount(t, repo, "unverified", false)
	blocked := seedAccount(t, repo, "blocked", true)
	deleted := seedAccount(t, repo, "deleted", true)
	require.NoError(t, repo.Block(ctx, []string{blocked.ID}))
	require.NoError(t, repo.SoftDelete(ctx, []string{deleted.ID}))

	accounts, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 4)
	require.Equal(t, deleted.ID, accounts[0].ID)
	require.Equal(t, blocked.ID, accounts[1].ID)
	require.Equal(t, unverified.ID, accounts[2].ID)
	require.Equal(t, active.ID, accounts[3].ID)
}
