package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dtroode/accounts-server/internal/model"
)

const (
	accountsTable = "accounts"

	phoneIndex    = "accounts_phone_live_key"
	usernameIndex = "accounts_username_live_key"
	emailIndex    = "accounts_email_live_key"
)

var accountColumns = []string{
	"id", "phone", "username", "email", "password_hash",
	"is_active", "is_staff", "is_superuser", "is_deleted", "deleted_at",
	"bio", "avatar_ref", "created_at", "updated_at",
}

// pgExecutor is satisfied by *Connection and by pgxmock pools.
type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

type rowScanner interface {
	Scan(dest ...any) error
}

var _ model.AccountStore = (*AccountRepository)(nil)

type AccountRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
	timeout time.Duration
	now     func() time.Time
}

// NewAccountRepository creates a repository; every query is bounded by timeout.
func NewAccountRepository(db pgExecutor, timeout time.Duration) *AccountRepository {
	return &AccountRepository{
		exec:    db,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		timeout: timeout,
		now:     time.Now,
	}
}

func (r *AccountRepository) Create(ctx context.Context, account model.Account) (model.Account, error) {
	if err := model.ValidatePhone(account.Phone); err != nil {
		return model.Account{}, err
	}
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	now := r.now().UTC()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	account.UpdatedAt = account.CreatedAt

	stmt, args, err := r.builder.Insert(accountsTable).
		Columns(accountColumns...).
		Values(
			account.ID, account.Phone, account.Username, account.Email, account.PasswordHash,
			account.IsActive, account.IsStaff, account.IsSuperuser, false, nil,
			account.Bio, account.AvatarRef, account.CreatedAt, account.UpdatedAt,
		).
		Suffix(returning()).
		ToSql()
	if err != nil {
		return model.Account{}, fmt.Errorf("failed to build insert account sql: %w", err)
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	saved, err := scanAccount(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		return model.Account{}, mapError(err, "failed to create account")
	}
	return saved, nil
}

func (r *AccountRepository) GetByPhone(ctx context.Context, phone string, includeDeleted bool) (model.Account, error) {
	query := r.builder.Select(accountColumns...).
		From(accountsTable).
		Where(squirrel.Eq{"phone": phone}).
		OrderBy("is_deleted ASC", "created_at DESC").
		Limit(1)
	if !includeDeleted {
		query = query.Where(squirrel.Eq{"is_deleted": false})
	}
	return r.getOne(ctx, query, "failed to get account by phone")
}

func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID, includeDeleted bool) (model.Account, error) {
	query := r.builder.Select(accountColumns...).
		From(accountsTable).
		Where(squirrel.Eq{"id": id})
	if !includeDeleted {
		query = query.Where(squirrel.Eq{"is_deleted": false})
	}
	return r.getOne(ctx, query, "failed to get account by id")
}

// Update applies patch to a live account. A changed phone, username or email
// is checked for uniqueness by the partial unique indexes.
func (r *AccountRepository) Update(ctx context.Context, id uuid.UUID, patch model.AccountPatch) (model.Account, error) {
	if patch.Empty() {
		return r.GetByID(ctx, id, false)
	}
	if patch.Phone != nil {
		if err := model.ValidatePhone(*patch.Phone); err != nil {
			return model.Account{}, err
		}
	}

	query := r.builder.Update(accountsTable)
	if patch.Phone != nil {
		query = query.Set("phone", *patch.Phone)
	}
	if patch.Username != nil {
		query = query.Set("username", *patch.Username)
	}
	if patch.Email != nil {
		if *patch.Email == "" {
			query = query.Set("email", nil)
		} else {
			query = query.Set("email", *patch.Email)
		}
	}
	if patch.PasswordHash != nil {
		query = query.Set("password_hash", *patch.PasswordHash)
	}
	if patch.Bio != nil {
		query = query.Set("bio", *patch.Bio)
	}
	if patch.AvatarRef != nil {
		query = query.Set("avatar_ref", *patch.AvatarRef)
	}

	stmt, args, err := query.
		Set("updated_at", r.now().UTC()).
		Where(squirrel.Eq{"id": id, "is_deleted": false}).
		Suffix(returning()).
		ToSql()
	if err != nil {
		return model.Account{}, fmt.Errorf("failed to build update account sql: %w", err)
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	updated, err := scanAccount(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		return model.Account{}, mapError(err, "failed to update account")
	}
	return updated, nil
}

// SoftDelete marks the account deleted. Deleting an already deleted account
// succeeds and keeps the original deleted_at.
func (r *AccountRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	now := r.now().UTC()
	stmt, args, err := r.builder.Update(accountsTable).
		Set("updated_at", squirrel.Expr("CASE WHEN is_deleted THEN updated_at ELSE ?::timestamptz END", now)).
		Set("deleted_at", squirrel.Expr("COALESCE(deleted_at, ?::timestamptz)", now)).
		Set("is_deleted", true).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build soft delete sql: %w", err)
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return mapError(err, "failed to soft delete account")
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// Restore clears the deletion markers. It fails with not found unless the
// account exists and is deleted, and with conflict if its phone, username or
// email has since been taken by a live account.
func (r *AccountRepository) Restore(ctx context.Context, id uuid.UUID) (model.Account, error) {
	stmt, args, err := r.builder.Update(accountsTable).
		Set("is_deleted", false).
		Set("deleted_at", nil).
		Set("updated_at", r.now().UTC()).
		Where(squirrel.Eq{"id": id, "is_deleted": true}).
		Suffix(returning()).
		ToSql()
	if err != nil {
		return model.Account{}, fmt.Errorf("failed to build restore sql: %w", err)
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	restored, err := scanAccount(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		return model.Account{}, mapError(err, "failed to restore account")
	}
	return restored, nil
}

func (r *AccountRepository) HardDelete(ctx context.Context, id uuid.UUID) error {
	stmt, args, err := r.builder.Delete(accountsTable).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete sql: %w", err)
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return mapError(err, "failed to delete account")
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *AccountRepository) ListActive(ctx context.Context, page model.Page) (model.AccountList, error) {
	return r.list(ctx, false, page)
}

func (r *AccountRepository) ListDeleted(ctx context.Context, page model.Page) (model.AccountList, error) {
	return r.list(ctx, true, page)
}

func (r *AccountRepository) Ping(ctx context.Context) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	return r.exec.Ping(ctx)
}

func (r *AccountRepository) list(ctx context.Context, deleted bool, page model.Page) (model.AccountList, error) {
	page = page.Normalize()
	filter := squirrel.Eq{"is_deleted": deleted}

	countStmt, countArgs, err := r.builder.Select("COUNT(*)").From(accountsTable).Where(filter).ToSql()
	if err != nil {
		return model.AccountList{}, fmt.Errorf("failed to build count sql: %w", err)
	}
	stmt, args, err := r.builder.Select(accountColumns...).
		From(accountsTable).
		Where(filter).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(page.Size)).
		Offset(uint64(page.Offset())).
		ToSql()
	if err != nil {
		return model.AccountList{}, fmt.Errorf("failed to build list sql: %w", err)
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var total int
	if err := r.exec.QueryRow(ctx, countStmt, countArgs...).Scan(&total); err != nil {
		return model.AccountList{}, fmt.Errorf("failed to count accounts: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return model.AccountList{}, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	items := make([]model.Account, 0, page.Size)
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return model.AccountList{}, fmt.Errorf("failed to scan account: %w", err)
		}
		items = append(items, account)
	}
	if err := rows.Err(); err != nil {
		return model.AccountList{}, fmt.Errorf("failed to iterate accounts: %w", err)
	}

	return model.AccountList{Items: items, Total: total, Page: page}, nil
}

func (r *AccountRepository) getOne(ctx context.Context, query squirrel.SelectBuilder, op string) (model.Account, error) {
	stmt, args, err := query.ToSql()
	if err != nil {
		return model.Account{}, fmt.Errorf("failed to build select account sql: %w", err)
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	account, err := scanAccount(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		return model.Account{}, mapError(err, op)
	}
	return account, nil
}

func (r *AccountRepository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

func returning() string {
	return "RETURNING " + strings.Join(accountColumns, ", ")
}

func scanAccount(row rowScanner) (model.Account, error) {
	var a model.Account
	err := row.Scan(
		&a.ID, &a.Phone, &a.Username, &a.Email, &a.PasswordHash,
		&a.IsActive, &a.IsStaff, &a.IsSuperuser, &a.IsDeleted, &a.DeletedAt,
		&a.Bio, &a.AvatarRef, &a.CreatedAt, &a.UpdatedAt,
	)
	return a, err
}

func mapError(err error, op string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return model.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return model.NewConflict(conflictField(pgErr.ConstraintName), err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func conflictField(constraint string) string {
	switch constraint {
	case phoneIndex:
		return "phone"
	case usernameIndex:
		return "username"
	case emailIndex:
		return "email"
	default:
		return "account"
	}
}
