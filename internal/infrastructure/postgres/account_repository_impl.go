package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/userdesk/userdesk/internal/domain/entity"
	"github.com/userdesk/userdesk/internal/domain/repository"
)

const uniqueViolation = "23505"

const accountColumns = `
	id, name, email, password_hash, registration_time, last_login_time,
	is_blocked, is_deleted, is_verified,
	verification_token, verification_token_expiry,
	reset_token, reset_token_expiry,
	was_blocked_before_delete`

// severity mirrors entity.Status precedence and drives the roster ordering.
const severityExpr = `
	CASE WHEN is_deleted THEN 3
	     WHEN is_blocked THEN 2
	     WHEN NOT is_verified THEN 1
	     ELSE 0 END`

type AccountRepository struct {
	pool *pgxpool.Pool
}

func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

func scanAccount(row pgx.Row) (*entity.Account, error) {
	a := &entity.Account{}
	err := row.Scan(
		&a.ID, &a.Name, &a.Email, &a.PasswordHash, &a.RegistrationTime, &a.LastLoginTime,
		&a.IsBlocked, &a.IsDeleted, &a.IsVerified,
		&a.VerificationToken, &a.VerificationTokenExpiry,
		&a.ResetToken, &a.ResetTokenExpiry,
		&a.WasBlockedBeforeDelete,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

func (r *AccountRepository) Create(ctx context.Context, a *entity.Account) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO accounts (
			id, name, email, password_hash, registration_time,
			is_blocked, is_deleted, is_verified,
			verification_token, verification_token_expiry
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, a.ID, a.Name, a.Email, a.PasswordHash, a.RegistrationTime,
		a.IsBlocked, a.IsDeleted, a.IsVerified,
		a.VerificationToken, a.VerificationTokenExpiry)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return repository.ErrDuplicateEmail
		}
		return err
	}
	return nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (*entity.Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	return scanAccount(row)
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*entity.Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE lower(email) = lower($1)`, email)
	return scanAccount(row)
}

func (r *AccountRepository) GetByIDs(ctx context.Context, ids []string) ([]*entity.Account, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAccounts(rows)
}

func (r *AccountRepository) List(ctx context.Context) ([]*entity.Account, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		ORDER BY `+severityExpr+` DESC, registration_time DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAccounts(rows)
}

func collectAccounts(rows pgx.Rows) ([]*entity.Account, error) {
	var out []*entity.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *AccountRepository) UpdateLastLogin(ctx context.Context, id string, t time.Time) error {
	res, err := r.pool.Exec(ctx, `UPDATE accounts SET last_login_time = $1 WHERE id = $2`, t, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *AccountRepository) UpdatePassword(ctx context.Context, id string, passwordHash string) error {
	res, err := r.pool.Exec(ctx, `UPDATE accounts SET password_hash = $1 WHERE id = $2`, passwordHash, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *AccountRepository) SetResetToken(ctx context.Context, id, token string, expiry time.Time) error {
	res, err := r.pool.Exec(ctx, `
		UPDATE accounts SET reset_token = $1, reset_token_expiry = $2 WHERE id = $3
	`, token, expiry, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *AccountRepository) FindByResetToken(ctx context.Context, token string, now time.Time) (*entity.Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE reset_token = $1`, token)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, repository.ErrTokenNotFound
		}
		return nil, err
	}
	if a.ResetTokenExpiry != nil && !a.ResetTokenExpiry.After(now) {
		return nil, repository.ErrTokenExpired
	}
	return a, nil
}

// ConsumeResetToken clears the token fields in the same statement that matches
// them, so a token can be redeemed at most once even under concurrent requests.
func (r *AccountRepository) ConsumeResetToken(ctx context.Context, token string, now time.Time) (*entity.Account, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE accounts
		SET reset_token = NULL, reset_token_expiry = NULL
		WHERE reset_token = $1 AND reset_token_expiry > $2
		RETURNING `+accountColumns+`
	`, token, now)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, r.classifyTokenMiss(ctx, `reset_token`, token)
		}
		return nil, err
	}
	return a, nil
}

func (r *AccountRepository) ConsumeVerificationToken(ctx context.Context, token string, now time.Time) (*entity.Account, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE accounts
		SET is_verified = TRUE, verification_token = NULL, verification_token_expiry = NULL
		WHERE verification_token = $1
		  AND (verification_token_expiry IS NULL OR verification_token_expiry > $2)
		RETURNING `+accountColumns+`
	`, token, now)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, r.classifyTokenMiss(ctx, `verification_token`, token)
		}
		return nil, err
	}
	return a, nil
}

// classifyTokenMiss distinguishes an expired token from an unknown one after a
// conditional consume matched no rows. Callers collapse both into one generic
// message; the distinction only feeds logging and tests.
func (r *AccountRepository) classifyTokenMiss(ctx context.Context, column, token string) error {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM accounts WHERE `+column+` = $1)`, token,
	).Scan(&exists)
	if err != nil {
		return repository.ErrTokenNotFound
	}
	if exists {
		return repository.ErrTokenExpired
	}
	return repository.ErrTokenNotFound
}

func (r *AccountRepository) Block(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.pool.Exec(ctx, `UPDATE accounts SET is_blocked = TRUE WHERE id = ANY($1)`, ids)
	return err
}

func (r *AccountRepository) Unblock(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.pool.Exec(ctx, `UPDATE accounts SET is_blocked = FALSE WHERE id = ANY($1)`, ids)
	return err
}

func (r *AccountRepository) SoftDelete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.pool.Exec(ctx, `
		UPDATE accounts
		SET was_blocked_before_delete = is_blocked, is_deleted = TRUE
		WHERE id = ANY($1) AND NOT is_deleted
	`, ids)
	return err
}

func (r *AccountRepository) Restore(ctx context.Context, ids []string, unblockAll bool) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.pool.Exec(ctx, restoreSQL+` AND id = ANY($2)`, unblockAll, ids)
	return err
}

func (r *AccountRepository) RestoreAll(ctx context.Context, unblockAll bool) error {
	_, err := r.pool.Exec(ctx, restoreSQL, unblockAll)
	return err
}

const restoreSQL = `
	UPDATE accounts
	SET is_deleted = FALSE,
	    is_blocked = CASE WHEN $1 THEN FALSE ELSE was_blocked_before_delete END,
	    was_blocked_before_delete = FALSE
	WHERE is_deleted`

func (r *AccountRepository) HardDelete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.pool.Exec(ctx, `DELETE FROM accounts WHERE id = ANY($1)`, ids)
	return err
}

func (r *AccountRepository) PurgeUnverified(ctx context.Context) (int64, error) {
	res, err := r.pool.Exec(ctx, `DELETE FROM accounts WHERE NOT is_verified`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected(), nil
}

var _ repository.AccountRepository = (*AccountRepository)(nil)
