package application

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/userdesk/userdesk/config"
	"github.com/userdesk/userdesk/pkg/helpers"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func testConfig() *config.Config {
	return &config.Config{
		RequireEmailVerification: true,
		SoftDeleteEnabled:        true,
		VerifyTokenTTL:           24 * time.Hour,
		ResetTokenTTL:            time.Hour,
		MailSendEnabled:          true,
		VerifyEmailURL:           "http://localhost:8080/Account/VerifyEmail",
		ResetPasswordURL:         "http://localhost:8080/Account/ResetPassword",
	}
}

func newTestAccountService(cfg *config.Config) (*AccountService, *memRepo, *memSessions, *capturePub) {
	repo := newMemRepo()
	sessions := newMemSessions()
	pub := &capturePub{}
	tokens := helpers.NewSessionTokenManager("test-secret", time.Hour)
	index := NewSearchIndex(nil, "", nil)
	svc := NewAccountService(repo, sessions, tokens, pub, index, testLogger(), cfg)
	return svc, repo, sessions, pub
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("creates unverified account with pending token", func(t *testing.T) {
		svc, repo, _, pub := newTestAccountService(testConfig())

		a, err := svc.Register(ctx, "Alice", "Alice@Example.COM", "supersecret")
		require.NoError(t, err)
		require.Equal(t, "alice@example.com", a.Email)
		require.False(t, a.IsVerified)
		require.NotNil(t, a.VerificationToken)
		require.NotNil(t, a.VerificationTokenExpiry)
		require.Equal(t, 1, pub.count())

		stored, err := repo.GetByID(ctx, a.ID)
		require.NoError(t, err)
		require.Equal(t, a.Email, stored.Email)
	})

	t.Run("duplicate email is a field conflict", func(t *testing.T) {
		svc, _, _, _ := newTestAccountService(testConfig())

		_, err := svc.Register(ctx, "Alice", "alice@example.com", "supersecret")
		require.NoError(t, err)

		_, err = svc.Register(ctx, "Other", "ALICE@example.com", "different1")
		require.ErrorIs(t, err, ErrEmailTaken)
	})

	t.Run("verification not required yields active account and no mail", func(t *testing.T) {
		cfg := testConfig()
		cfg.RequireEmailVerification = false
		svc, _, _, pub := newTestAccountService(cfg)

		a, err := svc.Register(ctx, "Bob", "bob@example.com", "supersecret")
		require.NoError(t, err)
		require.True(t, a.IsVerified)
		require.Nil(t, a.VerificationToken)
		require.Zero(t, pub.count())
	})
}

func TestLoginGate(t *testing.T) {
	ctx := context.Background()
	svc, repo, _, _ := newTestAccountService(testConfig())

	a, err := svc.Register(ctx, "Alice", "alice@example.com", "supersecret")
	require.NoError(t, err)

	t.Run("unknown email and wrong password are indistinguishable", func(t *testing.T) {
		_, errUnknown := svc.Login(ctx, "nobody@example.com", "whatever12")
		_, errWrong := svc.Login(ctx, "alice@example.com", "wrongpassword")
		require.ErrorIs(t, errUnknown, ErrInvalidCredentials)
		require.ErrorIs(t, errWrong, ErrInvalidCredentials)
		require.Equal(t, errUnknown.Error(), errWrong.Error())
	})

	t.Run("unverified account can log in", func(t *testing.T) {
		got, err := svc.Login(ctx, "alice@example.com", "supersecret")
		require.NoError(t, err)
		require.False(t, got.IsVerified)
		require.NotNil(t, got.LastLoginTime)
	})

	t.Run("wrong password on blocked account reports bad credentials", func(t *testing.T) {
		require.NoError(t, repo.Block(ctx, []string{a.ID}))
		_, err := svc.Login(ctx, "alice@example.com", "wrongpassword")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("blocked account with good credentials is rejected as blocked", func(t *testing.T) {
		_, err := svc.Login(ctx, "alice@example.com", "supersecret")
		require.ErrorIs(t, err, ErrAccountBlocked)
	})

	t.Run("blocked wins over deleted", func(t *testing.T) {
		require.NoError(t, repo.SoftDelete(ctx, []string{a.ID}))
		_, err := svc.Login(ctx, "alice@example.com", "supersecret")
		require.ErrorIs(t, err, ErrAccountBlocked)
	})

	t.Run("deleted account is rejected as deleted", func(t *testing.T) {
		require.NoError(t, repo.RestoreAll(ctx, true))
		require.NoError(t, repo.SoftDelete(ctx, []string{a.ID}))
		_, err := svc.Login(ctx, "alice@example.com", "supersecret")
		require.ErrorIs(t, err, ErrAccountDeleted)
	})
}

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, _, sessions, _ := newTestAccountService(testConfig())

	a, err := svc.Register(ctx, "Alice", "alice@example.com", "supersecret")
	require.NoError(t, err)

	grant, err := svc.StartSession(ctx, a)
	require.NoError(t, err)
	require.NotEmpty(t, grant.Token)
	require.True(t, grant.ExpiresAt.After(time.Now()))

	claims, err := svc.Tokens.Parse(grant.Token)
	require.NoError(t, err)
	require.Equal(t, a.ID, claims.AccountID)

	sess, ok, err := sessions.Get(ctx, a.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, claims.SessionID, sess.SID)

	// A second login supersedes the first session id.
	grant2, err := svc.StartSession(ctx, a)
	require.NoError(t, err)
	claims2, err := svc.Tokens.Parse(grant2.Token)
	require.NoError(t, err)
	sess, _, err = sessions.Get(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, claims2.SessionID, sess.SID)
	require.NotEqual(t, claims.SessionID, claims2.SessionID)

	svc.EndSession(ctx, a.ID)
	_, ok, err = sessions.Get(ctx, a.ID)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestVerifyEmail(t *testing.T) {
	ctx := context.Background()
	svc, repo, _, _ := newTestAccountService(testConfig())

	a, err := svc.Register(ctx, "Alice", "alice@example.com", "supersecret")
	require.NoError(t, err)
	token := *a.VerificationToken

	t.Run("valid token flips the account to verified", func(t *testing.T) {
		got, err := svc.VerifyEmail(ctx, token)
		require.NoError(t, err)
		require.True(t, got.IsVerified)

		stored, err := repo.GetByID(ctx, a.ID)
		require.NoError(t, err)
		require.True(t, stored.IsVerified)
		require.Nil(t, stored.VerificationToken)
	})

	t.Run("token cannot be redeemed twice", func(t *testing.T) {
		_, err := svc.VerifyEmail(ctx, token)
		require.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("unknown token is invalid", func(t *testing.T) {
		_, err := svc.VerifyEmail(ctx, "no-such-token")
		require.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("expired token is invalid", func(t *testing.T) {
		b, err := svc.Register(ctx, "Bob", "bob@example.com", "supersecret")
		require.NoError(t, err)
		past := time.Now().Add(-time.Minute)
		repo.mu.Lock()
		repo.accounts[b.ID].VerificationTokenExpiry = &past
		repo.mu.Unlock()

		_, err = svc.VerifyEmail(ctx, *b.VerificationToken)
		require.ErrorIs(t, err, ErrTokenInvalid)
	})
}

func TestForgotPassword(t *testing.T) {
	ctx := context.Background()
	svc, repo, _, pub := newTestAccountService(testConfig())

	a, err := svc.Register(ctx, "Alice", "alice@example.com", "supersecret")
	require.NoError(t, err)
	baseline := pub.count()

	t.Run("unknown email succeeds without queueing mail", func(t *testing.T) {
		require.NoError(t, svc.ForgotPassword(ctx, "nobody@example.com"))
		require.Equal(t, baseline, pub.count())
	})

	t.Run("active account gets a reset token and mail", func(t *testing.T) {
		require.NoError(t, svc.ForgotPassword(ctx, "alice@example.com"))
		require.Equal(t, baseline+1, pub.count())

		stored, err := repo.GetByID(ctx, a.ID)
		require.NoError(t, err)
		require.NotNil(t, stored.ResetToken)
		require.NotNil(t, stored.ResetTokenExpiry)
	})

	t.Run("blocked account is silently skipped", func(t *testing.T) {
		require.NoError(t, repo.Block(ctx, []string{a.ID}))
		before := pub.count()
		require.NoError(t, svc.ForgotPassword(ctx, "alice@example.com"))
		require.Equal(t, before, pub.count())
	})
}

func TestResetPassword(t *testing.T) {
	ctx := context.Background()
	svc, repo, _, _ := newTestAccountService(testConfig())

	a, err := svc.Register(ctx, "Alice", "alice@example.com", "supersecret")
	require.NoError(t, err)
	require.NoError(t, svc.ForgotPassword(ctx, "alice@example.com"))

	stored, err := repo.GetByID(ctx, a.ID)
	require.NoError(t, err)
	token := *stored.ResetToken

	t.Run("peek does not consume", func(t *testing.T) {
		require.NoError(t, svc.PeekResetToken(ctx, token))
		require.NoError(t, svc.PeekResetToken(ctx, token))
	})

	t.Run("valid token installs the new password", func(t *testing.T) {
		require.NoError(t, svc.ResetPassword(ctx, token, "freshsecret"))

		_, err := svc.Login(ctx, "alice@example.com", "supersecret")
		require.ErrorIs(t, err, ErrInvalidCredentials)

		got, err := svc.Login(ctx, "alice@example.com", "freshsecret")
		require.NoError(t, err)
		require.Equal(t, a.ID, got.ID)
	})

	t.Run("token is single use", func(t *testing.T) {
		require.ErrorIs(t, svc.ResetPassword(ctx, token, "anothersecret"), ErrTokenInvalid)
		require.ErrorIs(t, svc.PeekResetToken(ctx, token), ErrTokenInvalid)
	})

	t.Run("expired token is rejected", func(t *testing.T) {
		require.NoError(t, svc.ForgotPassword(ctx, "alice@example.com"))
		stored, err := repo.GetByID(ctx, a.ID)
		require.NoError(t, err)
		expired := time.Now().Add(-time.Minute)
		repo.mu.Lock()
		repo.accounts[a.ID].ResetTokenExpiry = &expired
		repo.mu.Unlock()

		require.ErrorIs(t, svc.ResetPassword(ctx, *stored.ResetToken, "anothersecret"), ErrTokenInvalid)
	})
}
