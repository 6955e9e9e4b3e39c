// Package config loads the process configuration from the environment,
// with an optional TOML file overlay for operator-managed defaults — the
// same split the teacher uses between CLI flags and a dumped/loaded TOML
// node config (cmd/utils/nodecmd/dumpconfigcmd.go).
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/naoina/toml"
	"github.com/pkg/errors"
)

// Config holds every environment-driven setting from spec.md §6.
type Config struct {
	// Chain
	ChainRPCURL     string `toml:"chain_rpc_url"`
	ChainNetwork    string `toml:"chain_network"`
	ContractAddress string `toml:"contract_address"`
	KeeperPrivKey   string `toml:"-"` // never serialised back out

	// Image generation
	ImageAPIToken  string `toml:"-"`
	ImageModelID   string `toml:"image_model_id"`
	FallbackPrompt string `toml:"fallback_prompt"`

	// Pinning
	PinningJWT           string `toml:"-"`
	PinningGatewayDomain string `toml:"pinning_gateway_domain"`

	// AuthorCacheSize bounds the webhook ingester's resolved-author LRU.
	AuthorCacheSize int `toml:"author_cache_size"`

	// Default author
	DefaultAuthorWallet string `toml:"default_author_wallet"`

	// Gallery (SPEC_FULL.md §3.7 supplement)
	GalleryBaseURL string `toml:"gallery_base_url"`

	// ExplorerBaseURL is used to build operator-facing tx links in logs
	// (spec.md §7).
	ExplorerBaseURL string `toml:"explorer_base_url"`

	// Worker tuning
	PollInterval       time.Duration `toml:"poll_interval"`
	ImageBatchSize     int           `toml:"image_batch_size"`
	UploadBatchSize    int           `toml:"upload_batch_size"`
	RevealBatchMax     int           `toml:"reveal_batch_max"`
	RevealBatchWait    time.Duration `toml:"reveal_batch_wait"`
	GasBuffer          float64       `toml:"gas_buffer"`
	GasPriceCapGwei    float64       `toml:"gas_price_cap_gwei"`
	TxTimeout          time.Duration `toml:"tx_timeout"`
	RecoveryBatchSize  int           `toml:"recovery_batch_size"`
	RecoveryBlockRange uint64        `toml:"recovery_block_range"`

	// Webhook
	WebhookSecret string `toml:"-"`

	// HTTP
	ListenAddr string `toml:"listen_addr"`

	// Store
	DatabaseURL string `toml:"-"`
	DBPoolSize  int    `toml:"db_pool_size"`

	Debug bool `toml:"debug"`
}

// Default returns the hard defaults the teacher's node config also keeps
// (see node/defaults.go) before env/file overrides are applied.
func Default() Config {
	return Config{
		ChainNetwork:         "base-sepolia",
		ExplorerBaseURL:      "https://sepolia.basescan.org",
		PinningGatewayDomain: "gateway.pinata.cloud",
		AuthorCacheSize:      1000,
		ImageModelID:         "stability-ai/sdxl",
		PollInterval:         5 * time.Second,
		ImageBatchSize:       10,
		UploadBatchSize:      10,
		RevealBatchMax:       50,
		RevealBatchWait:      5 * time.Second,
		GasBuffer:            0.20,
		GasPriceCapGwei:      50,
		TxTimeout:            180 * time.Second,
		RecoveryBatchSize:    500,
		RecoveryBlockRange:   2000,
		ListenAddr:           ":8080",
		DBPoolSize:           200,
	}
}

// LoadFile overlays TOML-file settings onto cfg. Secrets are deliberately
// not read from the file (tagged "-") so they can only come from the
// environment, keeping them out of any config file that gets checked in by
// accident.
func LoadFile(cfg *Config, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "open config file")
	}
	defer f.Close()
	if err := toml.NewDecoder(f).Decode(cfg); err != nil {
		return errors.Wrap(err, "decode config file")
	}
	return nil
}

// FromEnv overlays environment variables onto cfg and validates required
// secrets are present. Required: ChainRPCURL, ContractAddress, KeeperPrivKey,
// WebhookSecret, DatabaseURL, DefaultAuthorWallet.
func FromEnv(cfg *Config) error {
	str(&cfg.ChainRPCURL, "GLISK_CHAIN_RPC_URL")
	str(&cfg.ChainNetwork, "GLISK_CHAIN_NETWORK")
	str(&cfg.ContractAddress, "GLISK_CONTRACT_ADDRESS")
	str(&cfg.KeeperPrivKey, "GLISK_KEEPER_PRIVATE_KEY")
	str(&cfg.ImageAPIToken, "GLISK_IMAGE_API_TOKEN")
	str(&cfg.ImageModelID, "GLISK_IMAGE_MODEL_ID")
	str(&cfg.FallbackPrompt, "GLISK_FALLBACK_PROMPT")
	str(&cfg.PinningJWT, "GLISK_PINNING_JWT")
	str(&cfg.PinningGatewayDomain, "GLISK_PINNING_GATEWAY_DOMAIN")
	str(&cfg.DefaultAuthorWallet, "GLISK_DEFAULT_AUTHOR_WALLET")
	str(&cfg.GalleryBaseURL, "GLISK_GALLERY_BASE_URL")
	str(&cfg.ExplorerBaseURL, "GLISK_EXPLORER_BASE_URL")
	str(&cfg.WebhookSecret, "GLISK_WEBHOOK_SECRET")
	str(&cfg.ListenAddr, "GLISK_LISTEN_ADDR")
	str(&cfg.DatabaseURL, "GLISK_DATABASE_URL")

	dur(&cfg.PollInterval, "GLISK_POLL_INTERVAL_SECONDS")
	dur(&cfg.RevealBatchWait, "GLISK_REVEAL_BATCH_WAIT_SECONDS")
	dur(&cfg.TxTimeout, "GLISK_TX_TIMEOUT_SECONDS")
	intv(&cfg.ImageBatchSize, "GLISK_IMAGE_BATCH_SIZE")
	intv(&cfg.UploadBatchSize, "GLISK_UPLOAD_BATCH_SIZE")
	intv(&cfg.RevealBatchMax, "GLISK_REVEAL_BATCH_MAX")
	intv(&cfg.RecoveryBatchSize, "GLISK_RECOVERY_BATCH_SIZE")
	intv(&cfg.DBPoolSize, "GLISK_DB_POOL_SIZE")
	intv(&cfg.AuthorCacheSize, "GLISK_AUTHOR_CACHE_SIZE")
	floatv(&cfg.GasBuffer, "GLISK_GAS_BUFFER")
	floatv(&cfg.GasPriceCapGwei, "GLISK_GAS_PRICE_CAP_GWEI")
	boolv(&cfg.Debug, "GLISK_DEBUG")

	return cfg.Validate()
}

// Validate fails fast on missing required secrets/settings, the way a
// production daemon should rather than panicking deep inside a worker.
func (c Config) Validate() error {
	required := map[string]string{
		"GLISK_CHAIN_RPC_URL":         c.ChainRPCURL,
		"GLISK_CONTRACT_ADDRESS":      c.ContractAddress,
		"GLISK_KEEPER_PRIVATE_KEY":    c.KeeperPrivKey,
		"GLISK_WEBHOOK_SECRET":        c.WebhookSecret,
		"GLISK_DATABASE_URL":          c.DatabaseURL,
		"GLISK_DEFAULT_AUTHOR_WALLET": c.DefaultAuthorWallet,
	}
	for name, v := range required {
		if v == "" {
			return fmt.Errorf("missing required environment variable %s", name)
		}
	}
	if c.RevealBatchMax < 1 || c.RevealBatchMax > 50 {
		return fmt.Errorf("GLISK_REVEAL_BATCH_MAX must be in [1,50], got %d", c.RevealBatchMax)
	}
	return nil
}

func str(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

func intv(dst *int, env string) {
	if v := os.Getenv(env); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func floatv(dst *float64, env string) {
	if v := os.Getenv(env); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func boolv(dst *bool, env string) {
	if v := os.Getenv(env); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func dur(dst *time.Duration, env string) {
	if v := os.Getenv(env); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = time.Duration(n) * time.Second
		}
	}
}
