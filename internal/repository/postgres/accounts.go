package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/DrynaaCode/vegedex-v2-tsc/internal/core/domain"
	"github.com/DrynaaCode/vegedex-v2-tsc/internal/core/port"
	"github.com/DrynaaCode/vegedex-v2-tsc/internal/repository"
)

const accountsTable = "accounts"

// accountColumns is the client-visible projection. Secret columns are
// selected only by GetCredentialsByEmail.
var accountColumns = []string{
	"id",
	"username",
	"email",
	"role",
	"is_active",
	"profile_picture",
	"bio",
	"settings",
	"created_at",
	"updated_at",
}

// AccountRepository implements port.AccountRepository using PostgreSQL.
type AccountRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewAccountRepository wires a PostgreSQL-backed account repository.
func NewAccountRepository(exec pgExecutor) *AccountRepository {
	return &AccountRepository{
		exec:    exec,
		builder: newBuilder(),
	}
}

// Create inserts a new account row.
func (r *AccountRepository) Create(ctx context.Context, account domain.Account, passwordHash string) error {
	settings, err := marshalSettings(account.Settings)
	if err != nil {
		return err
	}

	stmt, args, err := r.builder.Insert(accountsTable).
		Columns(
			"id",
			"username",
			"email",
			"password_hash",
			"role",
			"is_active",
			"profile_picture",
			"bio",
			"settings",
			"created_at",
			"updated_at",
		).
		Values(
			account.ID,
			account.Username,
			account.Email,
			passwordHash,
			string(account.Role),
			account.IsActive,
			account.ProfilePicture,
			account.Bio,
			settings,
			account.CreatedAt,
			account.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert account sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert account: %w", translate(err))
	}
	return nil
}

// ExistsByEmailOrUsername reports whether either identifier is already taken.
func (r *AccountRepository) ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error) {
	stmt, args, err := r.builder.
		Select("1").
		From(accountsTable).
		Where(squirrel.Or{
			squirrel.Eq{"email": email},
			squirrel.Eq{"username": username},
		}).
		Prefix("SELECT EXISTS (").
		Suffix(")").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build account exists sql: %w", err)
	}

	var exists bool
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("check account exists: %w", err)
	}
	return exists, nil
}

// GetByID retrieves an account regardless of its active flag.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	return r.getOne(ctx, "select account by id", squirrel.Eq{"id": id})
}

// GetActiveByEmail retrieves an active account by normalized email.
func (r *AccountRepository) GetActiveByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.getOne(ctx, "select account by email", squirrel.Eq{"email": email, "is_active": true})
}

// GetActiveByRefreshToken retrieves the active account holding the refresh token hash.
func (r *AccountRepository) GetActiveByRefreshToken(ctx context.Context, tokenHash string) (*domain.Account, error) {
	return r.getOne(ctx, "select account by refresh token", squirrel.Eq{"refresh_token_hash": tokenHash, "is_active": true})
}

// GetCredentialsByEmail is the only lookup that reads the password hash.
func (r *AccountRepository) GetCredentialsByEmail(ctx context.Context, email string) (*domain.AccountCredentials, error) {
	stmt, args, err := r.builder.
		Select(append(append([]string{}, accountColumns...), "password_hash")...).
		From(accountsTable).
		Where(squirrel.Eq{"email": email, "is_active": true}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select credentials sql: %w", err)
	}

	var creds domain.AccountCredentials
	dest := append(accountDest(&creds.Account, new([]byte)), &creds.PasswordHash)
	row := r.exec.QueryRow(ctx, stmt, args...)
	if err := scanAccount(row, &creds.Account, dest); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("scan credentials: %w", err)
	}
	return &creds, nil
}

// SetRefreshToken replaces the stored refresh token hash; last login wins.
func (r *AccountRepository) SetRefreshToken(ctx context.Context, id, tokenHash string, at time.Time) error {
	return r.update(ctx, "set refresh token", squirrel.Eq{"id": id}, map[string]any{
		"refresh_token_hash": tokenHash,
		"updated_at":         at,
	})
}

// ClearRefreshToken drops the refresh token hash. It reports whether a row matched.
func (r *AccountRepository) ClearRefreshToken(ctx context.Context, tokenHash string, at time.Time) (bool, error) {
	stmt, args, err := r.builder.Update(accountsTable).
		SetMap(map[string]any{
			"refresh_token_hash": nil,
			"updated_at":         at,
		}).
		Where(squirrel.Eq{"refresh_token_hash": tokenHash}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build clear refresh token sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return false, fmt.Errorf("clear refresh token: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// SetResetToken stores the hashed reset credential and its expiry.
func (r *AccountRepository) SetResetToken(ctx context.Context, id, tokenHash string, expiresAt, at time.Time) error {
	return r.update(ctx, "set reset token", squirrel.Eq{"id": id}, map[string]any{
		"reset_token_hash":       tokenHash,
		"reset_token_expires_at": expiresAt,
		"updated_at":             at,
	})
}

// ConsumeResetToken swaps the password in one conditional statement. The
// reset credential and the refresh token are cleared in the same row write,
// so a token can be consumed at most once.
func (r *AccountRepository) ConsumeResetToken(ctx context.Context, tokenHash, passwordHash string, at time.Time) (*domain.Account, error) {
	stmt, args, err := r.builder.Update(accountsTable).
		SetMap(map[string]any{
			"password_hash":          passwordHash,
			"reset_token_hash":       nil,
			"reset_token_expires_at": nil,
			"refresh_token_hash":     nil,
			"updated_at":             at,
		}).
		Where(squirrel.Eq{"reset_token_hash": tokenHash}).
		Where(squirrel.Gt{"reset_token_expires_at": at}).
		Suffix(returningAccount()).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build consume reset token sql: %w", err)
	}

	var account domain.Account
	if err := scanAccount(r.exec.QueryRow(ctx, stmt, args...), &account, nil); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("consume reset token: %w", err)
	}
	return &account, nil
}

// UpdateProfile applies the non-nil fields of update and returns the new row.
func (r *AccountRepository) UpdateProfile(ctx context.Context, id string, update domain.ProfileUpdate, at time.Time) (*domain.Account, error) {
	values := map[string]any{"updated_at": at}
	if update.Username != nil {
		values["username"] = *update.Username
	}
	if update.Email != nil {
		values["email"] = *update.Email
	}
	if update.ProfilePicture != nil {
		values["profile_picture"] = *update.ProfilePicture
	}
	if update.Bio != nil {
		values["bio"] = *update.Bio
	}

	stmt, args, err := r.builder.Update(accountsTable).
		SetMap(values).
		Where(squirrel.Eq{"id": id}).
		Suffix(returningAccount()).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build update profile sql: %w", err)
	}

	var account domain.Account
	if err := scanAccount(r.exec.QueryRow(ctx, stmt, args...), &account, nil); err != nil {
		if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return &account, nil
}

// MergeSettings shallow-merges settings into the stored JSON object.
func (r *AccountRepository) MergeSettings(ctx context.Context, id string, settings domain.Settings, at time.Time) (domain.Settings, error) {
	patch, err := marshalSettings(settings)
	if err != nil {
		return nil, err
	}

	stmt, args, err := r.builder.Update(accountsTable).
		Set("settings", squirrel.Expr("settings || ?::jsonb", patch)).
		Set("updated_at", at).
		Where(squirrel.Eq{"id": id}).
		Suffix("RETURNING settings").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build merge settings sql: %w", err)
	}

	var raw []byte
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("merge settings: %w", err)
	}
	return unmarshalSettings(raw)
}

// SetActive suspends or reinstates an account. Suspension also drops the refresh token.
func (r *AccountRepository) SetActive(ctx context.Context, id string, active bool, at time.Time) error {
	values := map[string]any{
		"is_active":  active,
		"updated_at": at,
	}
	if !active {
		values["refresh_token_hash"] = nil
	}
	return r.update(ctx, "set active", squirrel.Eq{"id": id}, values)
}

// SetRole changes the account role.
func (r *AccountRepository) SetRole(ctx context.Context, id string, role domain.Role, at time.Time) error {
	return r.update(ctx, "set role", squirrel.Eq{"id": id}, map[string]any{
		"role":       string(role),
		"updated_at": at,
	})
}

// List returns one page of accounts ordered by creation date, newest first,
// together with the total number of matches.
func (r *AccountRepository) List(ctx context.Context, filter port.AccountFilter) ([]domain.Account, int, error) {
	where := squirrel.And{}
	if filter.Role != nil {
		where = append(where, squirrel.Eq{"role": string(*filter.Role)})
	}
	if filter.IsActive != nil {
		where = append(where, squirrel.Eq{"is_active": *filter.IsActive})
	}

	countStmt, countArgs, err := r.builder.Select("COUNT(*)").From(accountsTable).Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count accounts sql: %w", err)
	}

	var total int
	if err := r.exec.QueryRow(ctx, countStmt, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count accounts: %w", err)
	}

	query := r.builder.
		Select(accountColumns...).
		From(accountsTable).
		Where(where).
		OrderBy("created_at DESC", "id")
	if filter.Limit > 0 {
		query = query.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		query = query.Offset(uint64(filter.Offset))
	}

	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list accounts sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	accounts := make([]domain.Account, 0)
	for rows.Next() {
		var account domain.Account
		if err := scanAccount(rows, &account, nil); err != nil {
			return nil, 0, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate accounts: %w", err)
	}

	return accounts, total, nil
}

func (r *AccountRepository) getOne(ctx context.Context, op string, where squirrel.Sqlizer) (*domain.Account, error) {
	stmt, args, err := r.builder.
		Select(accountColumns...).
		From(accountsTable).
		Where(where).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build %s sql: %w", op, err)
	}

	var account domain.Account
	if err := scanAccount(r.exec.QueryRow(ctx, stmt, args...), &account, nil); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &account, nil
}

func (r *AccountRepository) update(ctx context.Context, op string, where squirrel.Sqlizer, values map[string]any) error {
	stmt, args, err := r.builder.Update(accountsTable).SetMap(values).Where(where).ToSql()
	if err != nil {
		return fmt.Errorf("build %s sql: %w", op, err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, translate(err))
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func returningAccount() string {
	suffix := "RETURNING "
	for i, col := range accountColumns {
		if i > 0 {
			suffix += ", "
		}
		suffix += col
	}
	return suffix
}

func accountDest(account *domain.Account, settings *[]byte) []any {
	role := (*string)(&account.Role)
	return []any{
		&account.ID,
		&account.Username,
		&account.Email,
		role,
		&account.IsActive,
		&account.ProfilePicture,
		&account.Bio,
		settings,
		&account.CreatedAt,
		&account.UpdatedAt,
	}
}

// scanAccount scans a row into account. When dest is nil the standard
// projection is used; otherwise dest must start with accountDest's layout.
func scanAccount(row pgx.Row, account *domain.Account, dest []any) error {
	if dest == nil {
		dest = accountDest(account, new([]byte))
	}
	if err := row.Scan(dest...); err != nil {
		return translate(err)
	}

	raw, _ := dest[7].(*[]byte)
	settings, err := unmarshalSettings(*raw)
	if err != nil {
		return err
	}
	account.Settings = settings
	return nil
}

func marshalSettings(settings domain.Settings) ([]byte, error) {
	if settings == nil {
		return []byte("{}"), nil
	}
	payload, err := json.Marshal(settings)
	if err != nil {
		return nil, fmt.Errorf("marshal settings: %w", err)
	}
	return payload, nil
}

func unmarshalSettings(raw []byte) (domain.Settings, error) {
	settings := domain.Settings{}
	if len(raw) == 0 {
		return settings, nil
	}
	if err := json.Unmarshal(raw, &settings); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}
	return settings, nil
}

var _ port.AccountRepository = (*AccountRepository)(nil)
