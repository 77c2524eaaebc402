package application

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/userdesk/userdesk/config"
	"github.com/userdesk/userdesk/internal/domain/entity"
	"github.com/userdesk/userdesk/internal/domain/repository"
	"github.com/userdesk/userdesk/internal/session"
	"github.com/userdesk/userdesk/pkg/helpers"
	"github.com/userdesk/userdesk/pkg/mailer"
)

// dummyPasswordHash is compared against when the account does not exist so a
// login attempt costs one bcrypt verification either way. The comparison
// result is always discarded.
const dummyPasswordHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// Publisher is the slice of the queue publisher the services need.
type Publisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// AccountService implements the self-service account flows: registration,
// login, email verification, and password reset.
type AccountService struct {
	Repo     repository.AccountRepository
	Sessions session.Store
	Tokens   *helpers.SessionTokenManager
	Pub      Publisher
	Index    *SearchIndex
	Logger   *logrus.Logger
	Cfg      *config.Config
}

func NewAccountService(repo repository.AccountRepository, sessions session.Store, tokens *helpers.SessionTokenManager, pub Publisher, index *SearchIndex, logger *logrus.Logger, cfg *config.Config) *AccountService {
	return &AccountService{Repo: repo, Sessions: sessions, Tokens: tokens, Pub: pub, Index: index, Logger: logger, Cfg: cfg}
}

// SessionGrant is a freshly signed session cookie token and its absolute expiry.
type SessionGrant struct {
	Token     string
	ExpiresAt time.Time
}

// Register creates a new account. When email verification is required the
// account starts unverified with a pending verification token and a
// verification mail is queued.
func (s *AccountService) Register(ctx context.Context, name, email, password string) (*entity.Account, error) {
	hash, err := helpers.HashPassword(password)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	a := &entity.Account{
		ID:               uuid.NewString(),
		Name:             name,
		Email:            strings.ToLower(strings.TrimSpace(email)),
		PasswordHash:     hash,
		RegistrationTime: now,
		IsVerified:       !s.Cfg.RequireEmailVerification,
	}

	var verifyToken string
	if s.Cfg.RequireEmailVerification {
		verifyToken, err = helpers.NewToken(32)
		if err != nil {
			return nil, err
		}
		expiry := now.Add(s.Cfg.VerifyTokenTTL)
		a.VerificationToken = &verifyToken
		a.VerificationTokenExpiry = &expiry
	}

	if err := s.Repo.Create(ctx, a); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	if s.Cfg.RequireEmailVerification {
		s.queueMail(ctx, a, mailer.TemplateVerifyEmail, s.Cfg.VerifyEmailURL+"?token="+verifyToken, s.Cfg.VerifyTokenTTL)
	}
	s.Index.IndexAccount(ctx, a)
	return a, nil
}

// Login applies the lifecycle gate: credential check first with a single
// indistinguishable failure, then blocked, then deleted. On success the
// last-login timestamp is updated.
func (s *AccountService) Login(ctx context.Context, email, password string) (*entity.Account, error) {
	a, err := s.Repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Burn a bcrypt comparison so latency does not reveal whether
			// the email exists.
			_ = helpers.CompareHashAndPassword(dummyPasswordHash, password)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !helpers.CompareHashAndPassword(a.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	if a.IsBlocked {
		return nil, ErrAccountBlocked
	}
	if a.IsDeleted {
		return nil, ErrAccountDeleted
	}

	now := time.Now().UTC()
	if err := s.Repo.UpdateLastLogin(ctx, a.ID, now); err != nil {
		return nil, err
	}
	a.LastLoginTime = &now
	return a, nil
}

// StartSession records a server-side session and signs the cookie token.
func (s *AccountService) StartSession(ctx context.Context, a *entity.Account) (SessionGrant, error) {
	sid := uuid.NewString()
	err := s.Sessions.Create(ctx, a.ID, session.Session{
		SID:       sid,
		Email:     a.Email,
		Name:      a.Name,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return SessionGrant{}, err
	}
	token, exp, err := s.Tokens.Generate(a.ID, sid)
	if err != nil {
		return SessionGrant{}, err
	}
	return SessionGrant{Token: token, ExpiresAt: exp}, nil
}

// EndSession destroys the server-side session. Best-effort; a missing session
// is not an error.
func (s *AccountService) EndSession(ctx context.Context, accountID string) {
	if err := s.Sessions.Destroy(ctx, accountID); err != nil {
		s.Logger.WithError(err).WithField("account_id", accountID).Warn("session destroy failed")
	}
}

// VerifyEmail consumes a pending verification token.
func (s *AccountService) VerifyEmail(ctx context.Context, token string) (*entity.Account, error) {
	a, err := s.Repo.ConsumeVerificationToken(ctx, token, time.Now().UTC())
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) || errors.Is(err, repository.ErrTokenExpired) {
			return nil, ErrTokenInvalid
		}
		return nil, err
	}
	s.Index.IndexAccount(ctx, a)
	return a, nil
}

// ForgotPassword issues a reset token when the account exists and is neither
// blocked nor deleted. The caller's response must not depend on the outcome;
// only internal failures are returned.
func (s *AccountService) ForgotPassword(ctx context.Context, email string) error {
	a, err := s.Repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.Logger.WithField("email", email).Debug("password reset requested for unknown email")
			return nil
		}
		return err
	}
	if a.IsBlocked || a.IsDeleted {
		s.Logger.WithField("account_id", a.ID).Debug("password reset suppressed for inactive account")
		return nil
	}

	token, err := helpers.NewToken(32)
	if err != nil {
		return err
	}
	expiry := time.Now().UTC().Add(s.Cfg.ResetTokenTTL)
	if err := s.Repo.SetResetToken(ctx, a.ID, token, expiry); err != nil {
		return err
	}
	s.queueMail(ctx, a, mailer.TemplateResetPassword, s.Cfg.ResetPasswordURL+"?token="+token, s.Cfg.ResetTokenTTL)
	return nil
}

// PeekResetToken reports whether a reset token is still pending, without
// consuming it. Used by the GET form endpoint.
func (s *AccountService) PeekResetToken(ctx context.Context, token string) error {
	_, err := s.Repo.FindByResetToken(ctx, token, time.Now().UTC())
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) || errors.Is(err, repository.ErrTokenExpired) {
			return ErrTokenInvalid
		}
		return err
	}
	return nil
}

// ResetPassword redeems a reset token and installs the new password. The
// consume is conditional at the store layer, so a second redemption of the
// same token always fails.
func (s *AccountService) ResetPassword(ctx context.Context, token, newPassword string) error {
	a, err := s.Repo.ConsumeResetToken(ctx, token, time.Now().UTC())
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) || errors.Is(err, repository.ErrTokenExpired) {
			return ErrTokenInvalid
		}
		return err
	}
	hash, err := helpers.HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.Repo.UpdatePassword(ctx, a.ID, hash)
}

// queueMail publishes an email job. Failures are logged and swallowed: mail
// delivery is never allowed to fail or roll back the triggering mutation.
func (s *AccountService) queueMail(ctx context.Context, a *entity.Account, template, actionURL string, ttl time.Duration) {
	if s.Pub == nil || !s.Cfg.MailSendEnabled {
		return
	}
	job := mailer.EmailJob{
		To:       a.Email,
		Template: template,
		Data: map[string]any{
			"Name":          a.Name,
			"ActionURL":     actionURL,
			"ExpiresInText": ttl.String(),
		},
	}
	if err := s.Pub.PublishJSON(ctx, job); err != nil {
		s.Logger.WithError(err).WithFields(logrus.Fields{
			"account_id": a.ID,
			"template":   template,
		}).Error("email job publish failed")
	}
}
