// Package postgres stores deal wallets in PostgreSQL and allocates account
// indexes from a database sequence.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/AlexZinkM/escrow-custody/internal/model"
	"github.com/AlexZinkM/escrow-custody/internal/store"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Store is safe for concurrent use.
type Store struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// Open connects to databaseURL and applies pending migrations.
func Open(ctx context.Context, databaseURL string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, model.Wrap(model.KindConfig, "open database", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, model.Wrap(model.KindNetwork, "open database", err)
	}

	s := &Store{db: pool, logger: logger}
	if err := s.migrate(); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the pool.
func (s *Store) Close() {
	s.db.Close()
}

func (s *Store) migrate() error {
	const op = "run migrations"

	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return model.Wrap(model.KindConfig, op, err)
	}

	db := stdlib.OpenDBFromPool(s.db)
	defer db.Close()

	driver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		return model.Wrap(model.KindConfig, op, err)
	}
	runner, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return model.Wrap(model.KindConfig, op, err)
	}

	err = runner.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return model.Wrap(model.KindConfig, op, err)
	}
	if errors.Is(err, migrate.ErrNoChange) {
		s.logger.Info("database migrations up to date")
	} else {
		s.logger.Info("database migrations applied")
	}
	return nil
}

// NextIndex draws from wallet_account_index_seq, which never hands out the
// same value twice across processes.
func (s *Store) NextIndex(ctx context.Context) (uint32, error) {
	var n int64
	if err := s.db.QueryRow(ctx, `SELECT nextval('wallet_account_index_seq')`).Scan(&n); err != nil {
		return 0, model.Wrap(model.KindNetwork, "next index", err)
	}
	if n < 0 || n >= store.MaxAccountIndex {
		return 0, store.IndexExhausted(n)
	}
	return uint32(n), nil
}

// SaveDeal inserts deal. A repeated deal id, address or index is a conflict.
func (s *Store) SaveDeal(ctx context.Context, deal *model.Deal) error {
	w := deal.Wallet
	_, err := s.db.Exec(ctx, `
		INSERT INTO deal_wallets (
			deal_id, asset, address, encrypted_private_key, public_key,
			derivation_path, account_index, usd_amount, expected_amount, created_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8::numeric,$9::numeric,$10)
	`, deal.ID, w.Asset.String(), w.Address, w.EncryptedPrivateKey, w.PublicKey,
		w.DerivationPath, int64(w.AccountIndex), deal.USDAmount.String(), deal.ExpectedAmount.String(), deal.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.Duplicate(deal.ID)
		}
		return model.Wrap(model.KindNetwork, "save deal", err)
	}
	return nil
}

// GetDeal loads one deal.
func (s *Store) GetDeal(ctx context.Context, dealID string) (*model.Deal, error) {
	row := s.db.QueryRow(ctx, `
		SELECT deal_id, asset, address, encrypted_private_key, public_key,
		       derivation_path, account_index, usd_amount::text, expected_amount::text,
		       COALESCE(released_tx_id, ''), created_at
		FROM deal_wallets
		WHERE deal_id = $1
	`, dealID)

	var (
		d             model.Deal
		asset         string
		index         int64
		usd, expected string
	)
	err := row.Scan(&d.ID, &asset, &d.Wallet.Address, &d.Wallet.EncryptedPrivateKey, &d.Wallet.PublicKey,
		&d.Wallet.DerivationPath, &index, &usd, &expected, &d.ReleasedTxID, &d.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.NotFound(dealID)
	}
	if err != nil {
		return nil, model.Wrap(model.KindNetwork, "get deal", err)
	}

	if d.Wallet.Asset, err = model.ParseAsset(asset); err != nil {
		return nil, fmt.Errorf("deal %s: %w", dealID, err)
	}
	d.Wallet.AccountIndex = uint32(index)
	if d.USDAmount, err = decimal.NewFromString(usd); err != nil {
		return nil, fmt.Errorf("deal %s usd amount: %w", dealID, err)
	}
	if d.ExpectedAmount, err = decimal.NewFromString(expected); err != nil {
		return nil, fmt.Errorf("deal %s expected amount: %w", dealID, err)
	}
	return &d, nil
}

// MarkReleased records the transaction that settled the deal. Only the
// first call for a deal succeeds.
func (s *Store) MarkReleased(ctx context.Context, dealID, txID string) error {
	const op = "mark released"

	tag, err := s.db.Exec(ctx, `
		UPDATE deal_wallets SET released_tx_id = $2
		WHERE deal_id = $1 AND released_tx_id IS NULL
	`, dealID, txID)
	if err != nil {
		return model.Wrap(model.KindNetwork, op, err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	d, err := s.GetDeal(ctx, dealID)
	if err != nil {
		return err
	}
	return store.AlreadyReleased(dealID, d.ReleasedTxID)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "23505"
}
