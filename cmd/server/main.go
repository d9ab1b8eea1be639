package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/AlexZinkM/escrow-custody/docs"
	"github.com/AlexZinkM/escrow-custody/evm"
	"github.com/AlexZinkM/escrow-custody/internal/api"
	"github.com/AlexZinkM/escrow-custody/internal/client"
	"github.com/AlexZinkM/escrow-custody/internal/config"
	"github.com/AlexZinkM/escrow-custody/internal/crypto"
	"github.com/AlexZinkM/escrow-custody/internal/escrow"
	"github.com/AlexZinkM/escrow-custody/internal/handler"
	"github.com/AlexZinkM/escrow-custody/internal/hd"
	"github.com/AlexZinkM/escrow-custody/internal/metrics"
	"github.com/AlexZinkM/escrow-custody/internal/model"
	"github.com/AlexZinkM/escrow-custody/internal/price"
	"github.com/AlexZinkM/escrow-custody/internal/router"
	"github.com/AlexZinkM/escrow-custody/internal/sendlock"
	"github.com/AlexZinkM/escrow-custody/internal/store/memory"
	"github.com/AlexZinkM/escrow-custody/internal/store/postgres"
	"github.com/AlexZinkM/escrow-custody/solana"
	"github.com/AlexZinkM/escrow-custody/utxo"

	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// @title        Escrow Custody API
// @version      1.0
// @description  Custodial escrow wallets and settlement for BTC, LTC, ETH, USDT, USDC and SOL.
// @BasePath     /
func main() {
	if err := config.Init(); err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	cfg := config.Get()

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Prompt before anything listens so the operator sees it.
	if err := config.PromptForPassword(); err != nil {
		logger.Fatal("vault passphrase", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.String("code", model.KindOf(err).Code()), zap.Error(err))
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, model.Wrap(model.KindConfig, "log level", err)
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	seed, err := hd.LoadSeed(cfg.MasterSeedPhrase, cfg.SeedPassphrase)
	if err != nil {
		return err
	}
	defer seed.Wipe()

	passphrase, err := config.GetEncryptionKeyBytes()
	if err != nil {
		return err
	}
	vault, err := crypto.NewVault(passphrase)
	clear(passphrase)
	if err != nil {
		return err
	}
	defer vault.Close()

	m := metrics.New()

	// --- Chain engines ---
	btcNet := utxo.BitcoinNetwork(cfg.BTCTestnet(), cfg.BTCFeeRate, cfg.MinConfirmationsBTC)
	btcNet.UseFeeEstimates = cfg.UseFeeEstimates
	ltcNet := utxo.LitecoinNetwork(cfg.LTCTestnet(), cfg.LTCFeeRate, cfg.MinConfirmationsLTC)
	ltcNet.UseFeeEstimates = cfg.UseFeeEstimates

	btc := utxo.NewEngine(btcNet, client.NewEsploraClient(cfg.ResolveBlockstreamURL(), logger), seed, vault, logger)
	ltc := utxo.NewEngine(ltcNet, client.NewEsploraClient(cfg.ResolveLitecoinURL(), logger), seed, vault, logger)

	eth, err := ethclient.DialContext(ctx, cfg.ResolveETHRPCURL())
	if err != nil {
		return model.Wrap(model.KindConfig, "dial eth rpc", err)
	}
	defer eth.Close()

	tokens := evm.DefaultTokens(cfg.ETHTestnet())
	if cfg.USDTContract != "" {
		tokens[model.AssetUSDT] = cfg.USDTContract
	}
	if cfg.USDCContract != "" {
		tokens[model.AssetUSDC] = cfg.USDCContract
	}
	evmEngine := evm.NewEngine(evm.Config{
		MaxGasPriceGwei:  cfg.ETHMaxGasPriceGwei,
		MinConfirmations: cfg.MinConfirmationsETH,
		ConfirmTimeout:   cfg.ConfirmTimeout,
		Tokens:           tokens,
	}, eth, seed, vault, logger)

	sol := solana.NewEngine(solana.Config{
		MinConfirmations: cfg.MinConfirmationsSOL,
		ConfirmTimeout:   cfg.ConfirmTimeout,
	}, client.NewSolanaClient(cfg.ResolveSolanaRPCURL(), logger), seed, vault, logger)

	chains, err := router.New(router.Engines{BTC: btc, LTC: ltc, EVM: evmEngine, SOL: sol}, m, logger)
	if err != nil {
		return err
	}

	// --- Prices ---
	var source price.Source
	if cfg.PriceSource == "coingecko" {
		source = price.NewCoinGeckoSource(client.NewCoinGeckoClient(cfg.CoinGeckoAPIURL))
	}
	oracle := price.NewOracle(source, cfg.PriceCacheTTL, m, logger)

	// --- Persistence and locks ---
	var (
		indexes escrow.IndexAllocator
		deals   escrow.DealStore
	)
	if cfg.DatabaseURL != "" {
		pg, err := postgres.Open(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return err
		}
		defer pg.Close()
		indexes, deals = pg, pg
	} else {
		logger.Warn("DATABASE_URL not set, deals are kept in memory")
		mem := memory.New()
		indexes, deals = mem, mem
	}

	var locks sendlock.Locker
	if cfg.RedisURL != "" {
		rl, err := sendlock.NewRedis(ctx, cfg.RedisURL, cfg.SendLockTTL, logger)
		if err != nil {
			return err
		}
		defer rl.Close()
		locks = rl
	} else {
		locks = sendlock.NewLocal()
	}

	svc, err := escrow.NewService(escrow.Deps{
		Chain:   chains,
		Prices:  oracle,
		Indexes: indexes,
		Deals:   deals,
		Locks:   locks,
		Metrics: m,
		Logger:  logger,
		Testnet: map[model.Asset]bool{
			model.AssetBTC:  cfg.BTCTestnet(),
			model.AssetLTC:  cfg.LTCTestnet(),
			model.AssetETH:  cfg.ETHTestnet(),
			model.AssetUSDT: cfg.ETHTestnet(),
			model.AssetUSDC: cfg.ETHTestnet(),
			model.AssetSOL:  cfg.SOLTestnet(),
		},
	})
	if err != nil {
		return err
	}

	mux := api.SetupRouter(api.Handlers{
		Escrow:  handler.NewEscrowHandler(svc),
		Chain:   handler.NewChainHandler(chains, oracle),
		Metrics: m.Handler(),
	})
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr), zap.String("swagger", "/swagger/index.html"))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	// Sends in flight may be waiting for confirmation; give them the full window.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ConfirmTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
