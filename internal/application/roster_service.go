package application

import (
	"context"
	"slices"

	"github.com/sirupsen/logrus"

	"github.com/userdesk/userdesk/config"
	"github.com/userdesk/userdesk/internal/domain/entity"
	"github.com/userdesk/userdesk/internal/domain/repository"
	"github.com/userdesk/userdesk/internal/session"
)

// RosterService implements the operator-facing batch transitions over the
// account roster. Every operation treats an empty id set as a successful
// no-op. When the acting operator targets their own account with a blocking
// or deleting transition, their session is destroyed only after the mutation
// has committed.
type RosterService struct {
	Repo     repository.AccountRepository
	Sessions session.Store
	Index    *SearchIndex
	Logger   *logrus.Logger
	Cfg      *config.Config
}

func NewRosterService(repo repository.AccountRepository, sessions session.Store, index *SearchIndex, logger *logrus.Logger, cfg *config.Config) *RosterService {
	return &RosterService{Repo: repo, Sessions: sessions, Index: index, Logger: logger, Cfg: cfg}
}

// List returns the roster ordered by status severity, then registration time.
func (s *RosterService) List(ctx context.Context) ([]*entity.Account, error) {
	return s.Repo.List(ctx)
}

// Search queries the roster index by email or name.
func (s *RosterService) Search(ctx context.Context, q string, size int) ([]map[string]any, error) {
	return s.Index.Search(ctx, q, size)
}

// Block sets the blocked flag on each target. Returns whether the actor
// blocked themselves, in which case their session has been terminated.
func (s *RosterService) Block(ctx context.Context, actorID string, ids []string) (bool, error) {
	if len(ids) == 0 {
		return false, nil
	}
	if err := s.Repo.Block(ctx, ids); err != nil {
		return false, err
	}
	s.reindex(ctx, ids)
	return s.endSessionIfSelf(ctx, actorID, ids), nil
}

func (s *RosterService) Unblock(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := s.Repo.Unblock(ctx, ids); err != nil {
		return err
	}
	s.reindex(ctx, ids)
	return nil
}

// Delete removes the targets: a soft delete (recoverable, snapshotting the
// blocked flag) when soft delete is enabled, a physical delete otherwise.
func (s *RosterService) Delete(ctx context.Context, actorID string, ids []string) (bool, error) {
	if len(ids) == 0 {
		return false, nil
	}
	if s.Cfg.SoftDeleteEnabled {
		if err := s.Repo.SoftDelete(ctx, ids); err != nil {
			return false, err
		}
		s.reindex(ctx, ids)
	} else {
		if err := s.Repo.HardDelete(ctx, ids); err != nil {
			return false, err
		}
		s.removeFromIndex(ctx, ids)
	}
	return s.endSessionIfSelf(ctx, actorID, ids), nil
}

// HardDelete physically removes the targets regardless of the soft-delete
// setting.
func (s *RosterService) HardDelete(ctx context.Context, actorID string, ids []string) (bool, error) {
	if len(ids) == 0 {
		return false, nil
	}
	if err := s.Repo.HardDelete(ctx, ids); err != nil {
		return false, err
	}
	s.removeFromIndex(ctx, ids)
	return s.endSessionIfSelf(ctx, actorID, ids), nil
}

// Restore clears the deleted flag on the targets. The blocked flag comes back
// as false when unblockAll is set or the account was not blocked before the
// delete, else the pre-delete value is restored.
func (s *RosterService) Restore(ctx context.Context, ids []string, unblockAll bool) error {
	if len(ids) == 0 {
		return nil
	}
	if !s.Cfg.SoftDeleteEnabled {
		return nil
	}
	if err := s.Repo.Restore(ctx, ids, unblockAll); err != nil {
		return err
	}
	s.reindex(ctx, ids)
	return nil
}

// RestoreAll restores every soft-deleted account.
func (s *RosterService) RestoreAll(ctx context.Context, unblockAll bool) error {
	if !s.Cfg.SoftDeleteEnabled {
		return nil
	}
	if err := s.Repo.RestoreAll(ctx, unblockAll); err != nil {
		return err
	}
	s.reindexAll(ctx)
	return nil
}

// PurgeUnverified physically removes every account that never verified its
// email. Returns the number of purged accounts.
func (s *RosterService) PurgeUnverified(ctx context.Context) (int64, error) {
	var staleIDs []string
	if s.Index.enabled() {
		if accounts, err := s.Repo.List(ctx); err == nil {
			for _, a := range accounts {
				if !a.IsVerified {
					staleIDs = append(staleIDs, a.ID)
				}
			}
		}
	}
	n, err := s.Repo.PurgeUnverified(ctx)
	if err != nil {
		return 0, err
	}
	s.removeFromIndex(ctx, staleIDs)
	return n, nil
}

func (s *RosterService) endSessionIfSelf(ctx context.Context, actorID string, ids []string) bool {
	if actorID == "" || !slices.Contains(ids, actorID) {
		return false
	}
	if err := s.Sessions.Destroy(ctx, actorID); err != nil {
		s.Logger.WithError(err).WithField("account_id", actorID).Warn("self-action session destroy failed")
	}
	return true
}

func (s *RosterService) reindex(ctx context.Context, ids []string) {
	if !s.Index.enabled() {
		return
	}
	accounts, err := s.Repo.GetByIDs(ctx, ids)
	if err != nil {
		s.Logger.WithError(err).Warn("reindex fetch failed")
		return
	}
	for _, a := range accounts {
		s.Index.IndexAccount(ctx, a)
	}
}

func (s *RosterService) reindexAll(ctx context.Context) {
	if !s.Index.enabled() {
		return
	}
	accounts, err := s.Repo.List(ctx)
	if err != nil {
		s.Logger.WithError(err).Warn("reindex fetch failed")
		return
	}
	for _, a := range accounts {
		s.Index.IndexAccount(ctx, a)
	}
}

func (s *RosterService) removeFromIndex(ctx context.Context, ids []string) {
	for _, id := range ids {
		s.Index.RemoveAccount(ctx, id)
	}
}
