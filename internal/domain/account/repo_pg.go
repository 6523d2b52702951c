package account

import (
	"context"
	"fmt"

	"github.com/dentaldesk/clinic/internal/platform/db"
)

type adminRepoPG struct{ pool db.Querier }

func NewAdminRepoPG(pool db.Querier) AdminRepository { return &adminRepoPG{pool: pool} }

func (r *adminRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

func (r *adminRepoPG) Create(ctx context.Context, a *Admin) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO admin_user (username, full_name, recovery_phone, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		a.Username, a.FullName, a.RecoveryPhone, a.PasswordHash,
	).Scan(&a.ID)
	if db.IsUniqueViolation(err) {
		return ErrAdminExists
	}
	if err != nil {
		return fmt.Errorf("insert admin: %w", err)
	}
	return nil
}

func (r *adminRepoPG) GetByUsername(ctx context.Context, username string) (*Admin, error) {
	var a Admin
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, username, full_name, recovery_phone, password_hash
		FROM admin_user WHERE username = $1`, username,
	).Scan(&a.ID, &a.Username, &a.FullName, &a.RecoveryPhone, &a.PasswordHash)
	if db.IsNoRows(err) {
		return nil, ErrAdminNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get admin: %w", err)
	}
	return &a, nil
}

func (r *adminRepoPG) exec(ctx context.Context, what, sql string, args ...interface{}) error {
	tag, err := r.conn(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAdminNotFound
	}
	return nil
}

func (r *adminRepoPG) UpdatePassword(ctx context.Context, id int64, hash string) error {
	return r.exec(ctx, "update admin password",
		`UPDATE admin_user SET password_hash = $2 WHERE id = $1`, id, hash)
}

func (r *adminRepoPG) UpdateRecoveryPhone(ctx context.Context, id int64, phone string) error {
	return r.exec(ctx, "update admin recovery phone",
		`UPDATE admin_user SET recovery_phone = $2 WHERE id = $1`, id, phone)
}
