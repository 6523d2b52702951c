package account

import "context"

type AdminRepository interface {
	Create(ctx context.Context, a *Admin) error
	GetByUsername(ctx context.Context, username string) (*Admin, error)
	UpdatePassword(ctx context.Context, id int64, hash string) error
	UpdateRecoveryPhone(ctx context.Context, id int64, phone string) error
}
