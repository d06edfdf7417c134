package checkout

import (
	"context"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"storefront/internal/db"
	orderrepo "storefront/internal/repository/order"
	productrepo "storefront/internal/repository/product"
	userrepo "storefront/internal/repository/user"
	voucherrepo "storefront/internal/repository/voucher"
)

type postgresTx struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

// NewPostgresTx returns a TxRunner that binds the Postgres repositories to one pgx transaction.
func NewPostgresTx(pool *pgxpool.Pool, logger *log.Logger) TxRunner {
	return &postgresTx{pool: pool, logger: logger}
}

func (r *postgresTx) WithinTx(ctx context.Context, fn func(Stores) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(Stores{
			Users:    userrepo.NewPostgres(tx, r.logger),
			Products: productrepo.NewPostgres(tx, r.logger),
			Vouchers: voucherrepo.NewPostgres(tx, r.logger),
			Orders:   orderrepo.NewPostgres(tx, r.logger),
		})
	})
}
