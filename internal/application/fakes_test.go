package application

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/userdesk/userdesk/internal/domain/entity"
	"github.com/userdesk/userdesk/internal/domain/repository"
	"github.com/userdesk/userdesk/internal/session"
)

// memRepo is an in-memory AccountRepository with the same observable
// semantics as the Postgres implementation, including conditional
// single-shot token consumption.
type memRepo struct {
	mu       sync.Mutex
	accounts map[string]*entity.Account
}

func newMemRepo() *memRepo {
	return &memRepo{accounts: map[string]*entity.Account{}}
}

func cloneAccount(a *entity.Account) *entity.Account {
	cp := *a
	return &cp
}

func (r *memRepo) Create(_ context.Context, a *entity.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ex := range r.accounts {
		if strings.EqualFold(ex.Email, a.Email) {
			return repository.ErrDuplicateEmail
		}
	}
	r.accounts[a.ID] = cloneAccount(a)
	return nil
}

func (r *memRepo) GetByID(_ context.Context, id string) (*entity.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneAccount(a), nil
}

func (r *memRepo) GetByEmail(_ context.Context, email string) (*entity.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if strings.EqualFold(a.Email, email) {
			return cloneAccount(a), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memRepo) GetByIDs(_ context.Context, ids []string) ([]*entity.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Account
	for _, id := range ids {
		if a, ok := r.accounts[id]; ok {
			out = append(out, cloneAccount(a))
		}
	}
	return out, nil
}

func severity(a *entity.Account) int {
	switch {
	case a.IsDeleted:
		return 3
	case a.IsBlocked:
		return 2
	case !a.IsVerified:
		return 1
	default:
		return 0
	}
}

func (r *memRepo) List(_ context.Context) ([]*entity.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entity.Account, 0, len(r.accounts))
	for _, a := range r.accounts {
		out = append(out, cloneAccount(a))
	}
	sort.SliceStable(out, func(i, j int) bool {
		si, sj := severity(out[i]), severity(out[j])
		if si != sj {
			return si > sj
		}
		return out[i].RegistrationTime.After(out[j].RegistrationTime)
	})
	return out, nil
}

func (r *memRepo) UpdateLastLogin(_ context.Context, id string, t time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return repository.ErrNotFound
	}
	a.LastLoginTime = &t
	return nil
}

func (r *memRepo) UpdatePassword(_ context.Context, id string, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return repository.ErrNotFound
	}
	a.PasswordHash = hash
	return nil
}

func (r *memRepo) SetResetToken(_ context.Context, id, token string, expiry time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return repository.ErrNotFound
	}
	a.ResetToken = &token
	a.ResetTokenExpiry = &expiry
	return nil
}

func (r *memRepo) FindByResetToken(_ context.Context, token string, now time.Time) (*entity.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.ResetToken != nil && *a.ResetToken == token {
			if a.ResetTokenExpiry != nil && !a.ResetTokenExpiry.After(now) {
				return nil, repository.ErrTokenExpired
			}
			return cloneAccount(a), nil
		}
	}
	return nil, repository.ErrTokenNotFound
}

func (r *memRepo) ConsumeResetToken(_ context.Context, token string, now time.Time) (*entity.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.ResetToken != nil && *a.ResetToken == token {
			if a.ResetTokenExpiry != nil && !a.ResetTokenExpiry.After(now) {
				return nil, repository.ErrTokenExpired
			}
			a.ResetToken = nil
			a.ResetTokenExpiry = nil
			return cloneAccount(a), nil
		}
	}
	return nil, repository.ErrTokenNotFound
}

func (r *memRepo) ConsumeVerificationToken(_ context.Context, token string, now time.Time) (*entity.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.VerificationToken != nil && *a.VerificationToken == token {
			if a.VerificationTokenExpiry != nil && !a.VerificationTokenExpiry.After(now) {
				return nil, repository.ErrTokenExpired
			}
			a.IsVerified = true
			a.VerificationToken = nil
			a.VerificationTokenExpiry = nil
			return cloneAccount(a), nil
		}
	}
	return nil, repository.ErrTokenNotFound
}

func (r *memRepo) Block(_ context.Context, ids []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		if a, ok := r.accounts[id]; ok {
			a.IsBlocked = true
		}
	}
	return nil
}

func (r *memRepo) Unblock(_ context.Context, ids []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		if a, ok := r.accounts[id]; ok {
			a.IsBlocked = false
		}
	}
	return nil
}

func (r *memRepo) SoftDelete(_ context.Context, ids []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		if a, ok := r.accounts[id]; ok && !a.IsDeleted {
			a.WasBlockedBeforeDelete = a.IsBlocked
			a.IsDeleted = true
		}
	}
	return nil
}

func (r *memRepo) restoreOne(a *entity.Account, unblockAll bool) {
	if !a.IsDeleted {
		return
	}
	a.IsDeleted = false
	if unblockAll {
		a.IsBlocked = false
	} else {
		a.IsBlocked = a.WasBlockedBeforeDelete
	}
	a.WasBlockedBeforeDelete = false
}

func (r *memRepo) Restore(_ context.Context, ids []string, unblockAll bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		if a, ok := r.accounts[id]; ok {
			r.restoreOne(a, unblockAll)
		}
	}
	return nil
}

func (r *memRepo) RestoreAll(_ context.Context, unblockAll bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		r.restoreOne(a, unblockAll)
	}
	return nil
}

func (r *memRepo) HardDelete(_ context.Context, ids []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		delete(r.accounts, id)
	}
	return nil
}

func (r *memRepo) PurgeUnverified(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, a := range r.accounts {
		if !a.IsVerified {
			delete(r.accounts, id)
			n++
		}
	}
	return n, nil
}

var _ repository.AccountRepository = (*memRepo)(nil)

// memSessions is an in-memory session.Store.
type memSessions struct {
	mu sync.Mutex
	m  map[string]session.Session
}

func newMemSessions() *memSessions {
	return &memSessions{m: map[string]session.Session{}}
}

func (s *memSessions) Create(_ context.Context, accountID string, sess session.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[accountID] = sess
	return nil
}

func (s *memSessions) Get(_ context.Context, accountID string) (session.Session, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.m[accountID]
	return sess, ok, nil
}

func (s *memSessions) Touch(_ context.Context, _ string) error { return nil }

func (s *memSessions) Destroy(_ context.Context, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, accountID)
	return nil
}

func (s *memSessions) has(accountID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.m[accountID]
	return ok
}

var _ session.Store = (*memSessions)(nil)

// capturePub records published email jobs instead of touching a broker.
type capturePub struct {
	mu   sync.Mutex
	jobs []any
}

func (p *capturePub) PublishJSON(_ context.Context, body any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.jobs = append(p.jobs, body)
	return nil
}

func (p *capturePub) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.jobs)
}
