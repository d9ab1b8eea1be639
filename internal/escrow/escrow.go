// Package escrow drives the custody core for one deal: open a deposit
// wallet, check the deposit, and release the funds to the payout address.
package escrow

import (
	"context"
	"time"

	"github.com/AlexZinkM/escrow-custody/internal/common"
	"github.com/AlexZinkM/escrow-custody/internal/metrics"
	"github.com/AlexZinkM/escrow-custody/internal/model"
	"github.com/AlexZinkM/escrow-custody/internal/sendlock"
	"github.com/AlexZinkM/escrow-custody/internal/settlement"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Chain is the router surface the service needs.
type Chain interface {
	GenerateWallet(ctx context.Context, asset model.Asset, index uint32) (*model.WalletRecord, error)
	GetBalance(ctx context.Context, asset model.Asset, address string) (decimal.Decimal, error)
	SendTransaction(ctx context.Context, asset model.Asset, encryptedKey, to string, amount decimal.Decimal) (string, error)
}

// IndexAllocator hands out account indexes that are never reused.
type IndexAllocator interface {
	NextIndex(ctx context.Context) (uint32, error)
}

// DealStore persists deals. SaveDeal must reject a repeated deal id and
// MarkReleased a deal that already carries a release transaction.
type DealStore interface {
	SaveDeal(ctx context.Context, deal *model.Deal) error
	GetDeal(ctx context.Context, dealID string) (*model.Deal, error)
	MarkReleased(ctx context.Context, dealID, txID string) error
}

// Deps wires a Service. Metrics, Logger and Testnet are optional.
type Deps struct {
	Chain   Chain
	Prices  settlement.Converter
	Indexes IndexAllocator
	Deals   DealStore
	Locks   sendlock.Locker
	Metrics *metrics.Metrics
	Logger  *zap.Logger
	Testnet map[model.Asset]bool // explorer links
}

// Service is safe for concurrent use.
type Service struct {
	chain   Chain
	prices  settlement.Converter
	plans   *settlement.Calculator
	indexes IndexAllocator
	deals   DealStore
	locks   sendlock.Locker
	metrics *metrics.Metrics
	logger  *zap.Logger
	testnet map[model.Asset]bool
	now     func() time.Time
}

// NewService validates d and returns a service.
func NewService(d Deps) (*Service, error) {
	const op = "new escrow service"
	switch {
	case d.Chain == nil:
		return nil, model.Errorf(model.KindConfig, op, "chain router is required")
	case d.Prices == nil:
		return nil, model.Errorf(model.KindConfig, op, "price oracle is required")
	case d.Indexes == nil:
		return nil, model.Errorf(model.KindConfig, op, "index allocator is required")
	case d.Deals == nil:
		return nil, model.Errorf(model.KindConfig, op, "deal store is required")
	case d.Locks == nil:
		return nil, model.Errorf(model.KindConfig, op, "send locker is required")
	}
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		chain:   d.Chain,
		prices:  d.Prices,
		plans:   settlement.NewCalculator(d.Prices),
		indexes: d.Indexes,
		deals:   d.Deals,
		locks:   d.Locks,
		metrics: d.Metrics,
		logger:  logger,
		testnet: d.Testnet,
		now:     time.Now,
	}, nil
}

// OpenDeal derives a fresh deposit wallet for a deal worth usd and records
// it. An empty dealID gets a generated one.
func (s *Service) OpenDeal(ctx context.Context, dealID string, asset model.Asset, usd decimal.Decimal) (*model.OpenDealResponse, error) {
	const op = "open deal"

	if !asset.Valid() {
		return nil, model.Errorf(model.KindInvalidInput, op, "unsupported asset %d", asset)
	}
	if !usd.IsPositive() {
		return nil, model.Errorf(model.KindInvalidInput, op, "usd amount must be positive, got %s", usd)
	}
	if dealID == "" {
		dealID = uuid.NewString()
	}

	fee := settlement.ServiceFee(usd)
	expected, err := s.prices.UsdToCrypto(ctx, usd, asset)
	if err != nil {
		return nil, err
	}
	if !expected.IsPositive() {
		return nil, model.Errorf(model.KindInvalidInput, op, "$%s is below the smallest %s amount", usd, asset)
	}

	index, err := s.indexes.NextIndex(ctx)
	if err != nil {
		return nil, err
	}
	rec, err := s.chain.GenerateWallet(ctx, asset, index)
	if err != nil {
		return nil, err
	}

	deal := &model.Deal{
		ID:             dealID,
		USDAmount:      usd,
		ExpectedAmount: expected,
		Wallet:         *rec,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.deals.SaveDeal(ctx, deal); err != nil {
		return nil, err
	}

	uri := common.PaymentURI(asset, rec.Address, expected)
	qr, err := common.QRCodeBase64(uri)
	if err != nil {
		// The address is what matters; the QR is a convenience.
		s.logger.Warn("deposit qr failed", zap.String("deal_id", dealID), zap.Error(err))
	}

	s.logger.Info("deal opened",
		zap.String("deal_id", dealID),
		zap.Stringer("asset", asset),
		zap.String("address", rec.Address),
		zap.String("expected", expected.String()),
		zap.String("fee_usd", fee.String()),
	)

	return &model.OpenDealResponse{
		DealID:         dealID,
		Asset:          asset,
		Address:        rec.Address,
		DerivationPath: rec.DerivationPath,
		USDAmount:      usd,
		ExpectedAmount: expected,
		ServiceFeeUSD:  fee,
		PaymentURI:     uri,
		ExplorerURL:    common.AddressExplorerURL(asset, rec.Address, s.testnet[asset]),
		QR:             qr,
	}, nil
}

// CheckDeposit reports the deal wallet's confirmed balance and whether it
// covers the expected amount within tolerance.
func (s *Service) CheckDeposit(ctx context.Context, dealID string) (*model.DepositResponse, error) {
	deal, err := s.deals.GetDeal(ctx, dealID)
	if err != nil {
		return nil, err
	}
	w := deal.Wallet
	balance, err := s.chain.GetBalance(ctx, w.Asset, w.Address)
	if err != nil {
		return nil, err
	}

	accepted := settlement.DepositAccepted(deal.ExpectedAmount, balance)
	s.metrics.DepositChecked(w.Asset, accepted)

	return &model.DepositResponse{
		DealID:   deal.ID,
		Asset:    w.Asset,
		Address:  w.Address,
		Balance:  balance,
		Expected: deal.ExpectedAmount,
		Accepted: accepted,
	}, nil
}

// Release pays the deal's value out of its wallet to to. Only one send
// per wallet runs at a time; a concurrent one fails with a conflict before
// touching the chain. A deal is released once; a repeat is a conflict
// naming the recorded transaction.
func (s *Service) Release(ctx context.Context, dealID, to string) (*model.ReleaseResponse, error) {
	return s.send(ctx, "release", dealID, to, func(ctx context.Context, deal *model.Deal, balance decimal.Decimal) (*model.SettlementPlan, error) {
		if deal.ReleasedTxID != "" {
			return nil, model.Errorf(model.KindConflict, "release", "deal %q was already released in %s", deal.ID, deal.ReleasedTxID)
		}
		return s.plans.Plan(ctx, deal.USDAmount, deal.Wallet.Asset, balance)
	})
}

// Sweep sends everything in the deal wallet except the network fee reserve
// to to. It is the operator's manual settlement: it works on released deals
// too, and records its transaction when the deal had none.
func (s *Service) Sweep(ctx context.Context, dealID, to string) (*model.ReleaseResponse, error) {
	return s.send(ctx, "sweep", dealID, to, func(_ context.Context, deal *model.Deal, balance decimal.Decimal) (*model.SettlementPlan, error) {
		return settlement.SweepPlan(deal.Wallet.Asset, balance)
	})
}

type planFunc func(ctx context.Context, deal *model.Deal, balance decimal.Decimal) (*model.SettlementPlan, error)

// send runs one outgoing transfer under the wallet's send lock. The deal is
// read again once the lock is held so a release that finished meanwhile is
// seen by plan.
func (s *Service) send(ctx context.Context, op, dealID, to string, plan planFunc) (*model.ReleaseResponse, error) {
	if to == "" {
		return nil, model.Errorf(model.KindInvalidInput, op, "payout address is required")
	}
	deal, err := s.deals.GetDeal(ctx, dealID)
	if err != nil {
		return nil, err
	}
	w := deal.Wallet

	lease, err := s.locks.Acquire(ctx, sendlock.Key(w.Asset, w.Address))
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("send lock release failed", zap.String("deal_id", dealID), zap.Error(err))
		}
	}()

	if deal, err = s.deals.GetDeal(ctx, dealID); err != nil {
		return nil, err
	}

	balance, err := s.chain.GetBalance(ctx, w.Asset, w.Address)
	if err != nil {
		return nil, err
	}
	p, err := plan(ctx, deal, balance)
	if err != nil {
		return nil, err
	}

	txID, err := s.chain.SendTransaction(ctx, w.Asset, w.EncryptedPrivateKey, to, p.SendAmount)
	if err != nil {
		return nil, err
	}

	if deal.ReleasedTxID == "" {
		// The funds are gone either way; the caller still needs the txid.
		if err := s.deals.MarkReleased(context.WithoutCancel(ctx), dealID, txID); err != nil {
			s.logger.Error("recording release failed",
				zap.String("deal_id", dealID),
				zap.String("tx_id", txID),
				zap.Error(err),
			)
		}
	}

	s.logger.Info("deal "+op+" sent",
		zap.String("deal_id", dealID),
		zap.Stringer("asset", w.Asset),
		zap.String("tx_id", txID),
		zap.String("sent", p.SendAmount.String()),
		zap.String("to", to),
	)

	return &model.ReleaseResponse{
		TxID:        txID,
		ExplorerURL: common.TxExplorerURL(w.Asset, txID, s.testnet[w.Asset]),
		Plan:        *p,
	}, nil
}
