package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/AlexZinkM/escrow-custody/internal/model"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"golang.org/x/term"
)

const (
	NetworkMainnet = "mainnet"
	NetworkTestnet = "testnet"
)

// Config contains all configuration parameters for the application.
// Note: the vault passphrase may be prompted at runtime instead of read from
// ENCRYPTION_KEY - use GetEncryptionKeyBytes()
type Config struct {
	Port     string `envconfig:"PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Network  string `envconfig:"NETWORK" default:"mainnet"`

	MasterSeedPhrase string `envconfig:"MASTER_SEED_PHRASE"`
	SeedPassphrase   string `envconfig:"SEED_PASSPHRASE"`
	EncryptionKey    string `envconfig:"ENCRYPTION_KEY"`

	BTCNetwork          string `envconfig:"BTC_NETWORK"`
	BlockstreamAPIURL   string `envconfig:"BLOCKSTREAM_API_URL"`
	BTCFeeRate          int64  `envconfig:"BTC_FEE_RATE" default:"10"`
	MinConfirmationsBTC int64  `envconfig:"MIN_CONFIRMATIONS_BTC" default:"3"`

	LTCNetwork          string `envconfig:"LTC_NETWORK"`
	LitecoinAPIURL      string `envconfig:"LITECOIN_API_URL"`
	LTCFeeRate          int64  `envconfig:"LTC_FEE_RATE" default:"50"`
	MinConfirmationsLTC int64  `envconfig:"MIN_CONFIRMATIONS_LTC" default:"6"`

	UseFeeEstimates bool `envconfig:"USE_FEE_ESTIMATES" default:"false"`

	ETHNetwork          string `envconfig:"ETH_NETWORK"`
	ETHRPCURL           string `envconfig:"ETH_RPC_URL"`
	AlchemyAPIKey       string `envconfig:"ALCHEMY_API_KEY"`
	InfuraAPIKey        string `envconfig:"INFURA_API_KEY"`
	ETHMaxGasPriceGwei  int64  `envconfig:"ETH_MAX_GAS_PRICE_GWEI" default:"200"`
	MinConfirmationsETH uint64 `envconfig:"MIN_CONFIRMATIONS_ETH" default:"12"`
	USDTContract        string `envconfig:"USDT_CONTRACT"`
	USDCContract        string `envconfig:"USDC_CONTRACT"`

	SOLNetwork          string `envconfig:"SOL_NETWORK"`
	SolanaRPCURL        string `envconfig:"SOLANA_RPC_URL"`
	MinConfirmationsSOL uint64 `envconfig:"MIN_CONFIRMATIONS_SOL" default:"32"`

	PriceSource     string        `envconfig:"PRICE_SOURCE" default:"coingecko"`
	PriceCacheTTL   time.Duration `envconfig:"PRICE_CACHE_TTL" default:"60s"`
	CoinGeckoAPIURL string        `envconfig:"COINGECKO_API_URL" default:"https://api.coingecko.com/api/v3"`

	DatabaseURL    string        `envconfig:"DATABASE_URL"`
	RedisURL       string        `envconfig:"REDIS_URL"`
	SendLockTTL    time.Duration `envconfig:"SEND_LOCK_TTL" default:"15m"`
	ConfirmTimeout time.Duration `envconfig:"CONFIRM_TIMEOUT" default:"10m"`
}

// sendLockMargin is how much longer than CONFIRM_TIMEOUT a send lease must
// live to cover the balance read and broadcast around the confirmation wait.
const sendLockMargin = 2 * time.Minute

// cfg is the global configuration instance
var cfg *Config

// Init loads .env (if present) and configuration from environment variables.
func Init() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return model.Wrap(model.KindConfig, "load .env", err)
	}
	loaded, err := Load()
	if err != nil {
		return err
	}
	cfg = loaded
	return nil
}

// Load reads and validates configuration from the environment without
// touching the global instance.
func Load() (*Config, error) {
	c := &Config{}
	if err := envconfig.Process("", c); err != nil {
		return nil, model.Wrap(model.KindConfig, "process config", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Get returns the global configuration instance.
// Panics if Init() was not called.
func Get() *Config {
	if cfg == nil {
		panic("config not initialized, call Init() first")
	}
	return cfg
}

// Validate checks values envconfig cannot express.
func (c *Config) Validate() error {
	const op = "validate config"
	for name, network := range map[string]string{
		"NETWORK":     c.Network,
		"BTC_NETWORK": c.BTCNetwork,
		"LTC_NETWORK": c.LTCNetwork,
		"ETH_NETWORK": c.ETHNetwork,
		"SOL_NETWORK": c.SOLNetwork,
	} {
		if network != "" && network != NetworkMainnet && network != NetworkTestnet {
			return model.Errorf(model.KindConfig, op, "%s must be %s or %s, got %q", name, NetworkMainnet, NetworkTestnet, network)
		}
	}
	if strings.TrimSpace(c.MasterSeedPhrase) == "" {
		return model.Errorf(model.KindConfig, op, "MASTER_SEED_PHRASE is required")
	}
	if c.ResolveETHRPCURL() == "" {
		return model.Errorf(model.KindConfig, op, "one of ETH_RPC_URL, ALCHEMY_API_KEY or INFURA_API_KEY is required")
	}
	if c.BTCFeeRate <= 0 || c.LTCFeeRate <= 0 {
		return model.Errorf(model.KindConfig, op, "fee rates must be positive")
	}
	if c.ETHMaxGasPriceGwei <= 0 {
		return model.Errorf(model.KindConfig, op, "ETH_MAX_GAS_PRICE_GWEI must be positive")
	}
	if c.ConfirmTimeout <= 0 {
		return model.Errorf(model.KindConfig, op, "CONFIRM_TIMEOUT must be positive")
	}
	if c.SendLockTTL < c.ConfirmTimeout+sendLockMargin {
		return model.Errorf(model.KindConfig, op, "SEND_LOCK_TTL %s must be at least CONFIRM_TIMEOUT %s plus %s",
			c.SendLockTTL, c.ConfirmTimeout, sendLockMargin)
	}
	switch c.PriceSource {
	case "coingecko", "static":
	default:
		return model.Errorf(model.KindConfig, op, "PRICE_SOURCE must be coingecko or static, got %q", c.PriceSource)
	}
	return nil
}

func (c *Config) isTestnet(override string) bool {
	if override != "" {
		return override == NetworkTestnet
	}
	return c.Network == NetworkTestnet
}

// BTCTestnet reports whether Bitcoin runs on testnet.
func (c *Config) BTCTestnet() bool { return c.isTestnet(c.BTCNetwork) }

// LTCTestnet reports whether Litecoin runs on testnet.
func (c *Config) LTCTestnet() bool { return c.isTestnet(c.LTCNetwork) }

// ETHTestnet reports whether Ethereum runs on Sepolia.
func (c *Config) ETHTestnet() bool { return c.isTestnet(c.ETHNetwork) }

// SOLTestnet reports whether Solana runs on devnet.
func (c *Config) SOLTestnet() bool { return c.isTestnet(c.SOLNetwork) }

// ResolveBlockstreamURL returns the Esplora endpoint for Bitcoin.
func (c *Config) ResolveBlockstreamURL() string {
	if c.BlockstreamAPIURL != "" {
		return strings.TrimSuffix(c.BlockstreamAPIURL, "/")
	}
	if c.BTCTestnet() {
		return "https://blockstream.info/testnet/api"
	}
	return "https://blockstream.info/api"
}

// ResolveLitecoinURL returns the Esplora endpoint for Litecoin.
func (c *Config) ResolveLitecoinURL() string {
	if c.LitecoinAPIURL != "" {
		return strings.TrimSuffix(c.LitecoinAPIURL, "/")
	}
	if c.LTCTestnet() {
		return "https://litecoinspace.org/testnet/api"
	}
	return "https://litecoinspace.org/api"
}

// ResolveETHRPCURL prefers an explicit URL, then Alchemy, then Infura.
func (c *Config) ResolveETHRPCURL() string {
	switch {
	case c.ETHRPCURL != "":
		return c.ETHRPCURL
	case c.AlchemyAPIKey != "":
		if c.ETHTestnet() {
			return "https://eth-sepolia.g.alchemy.com/v2/" + c.AlchemyAPIKey
		}
		return "https://eth-mainnet.g.alchemy.com/v2/" + c.AlchemyAPIKey
	case c.InfuraAPIKey != "":
		if c.ETHTestnet() {
			return "https://sepolia.infura.io/v3/" + c.InfuraAPIKey
		}
		return "https://mainnet.infura.io/v3/" + c.InfuraAPIKey
	default:
		return ""
	}
}

// ResolveSolanaRPCURL returns the Solana RPC endpoint.
func (c *Config) ResolveSolanaRPCURL() string {
	if c.SolanaRPCURL != "" {
		return c.SolanaRPCURL
	}
	if c.SOLTestnet() {
		return "https://api.devnet.solana.com"
	}
	return "https://api.mainnet-beta.solana.com"
}

var passwordBytes []byte

// ReadPassword prompts on stderr and reads a line from the terminal without
// echoing it. Caller must zero the returned slice after use.
func ReadPassword(prompt string) ([]byte, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil, model.Errorf(model.KindConfig, "read password", "stdin is not a terminal: run interactively or set ENCRYPTION_KEY")
	}
	fmt.Fprint(os.Stderr, prompt)
	defer fmt.Fprintln(os.Stderr)

	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return nil, model.Wrap(model.KindConfig, "read password", err)
	}
	if len(raw) == 0 {
		return nil, model.Errorf(model.KindConfig, "read password", "password cannot be empty")
	}
	return raw, nil
}

// PromptForPassword prompts the operator for the vault passphrase when
// ENCRYPTION_KEY is not set and keeps it in memory.
// Call this at startup before the server begins handling requests.
func PromptForPassword() error {
	if Get().EncryptionKey != "" {
		return nil
	}
	raw, err := ReadPassword("Enter vault passphrase: ")
	if err != nil {
		return err
	}
	passwordBytes = make([]byte, len(raw))
	copy(passwordBytes, raw)
	clear(raw)
	return nil
}

// GetEncryptionKeyBytes returns the vault passphrase from ENCRYPTION_KEY or
// from PromptForPassword. Caller must zero the returned slice after use.
func GetEncryptionKeyBytes() ([]byte, error) {
	if key := Get().EncryptionKey; key != "" {
		return []byte(key), nil
	}
	if len(passwordBytes) == 0 {
		return nil, model.Errorf(model.KindConfig, "encryption key", "ENCRYPTION_KEY not set and no passphrase was entered")
	}
	out := make([]byte, len(passwordBytes))
	copy(out, passwordBytes)
	return out, nil
}
