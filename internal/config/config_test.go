package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validConfig() Config {
	cfg := Default()
	cfg.ChainRPCURL = "https://rpc.example"
	cfg.ContractAddress = "0xabc"
	cfg.KeeperPrivKey = "deadbeef"
	cfg.WebhookSecret = "shh"
	cfg.DatabaseURL = "postgres://localhost/glisk"
	cfg.DefaultAuthorWallet = "0xdef"
	return cfg
}

func TestValidateAcceptsCompleteConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidateRejectsMissingRequiredFields(t *testing.T) {
	cases := []func(*Config){
		func(c *Config) { c.ChainRPCURL = "" },
		func(c *Config) { c.ContractAddress = "" },
		func(c *Config) { c.KeeperPrivKey = "" },
		func(c *Config) { c.WebhookSecret = "" },
		func(c *Config) { c.DatabaseURL = "" },
		func(c *Config) { c.DefaultAuthorWallet = "" },
	}
	for _, mutate := range cases {
		cfg := validConfig()
		mutate(&cfg)
		assert.Error(t, cfg.Validate())
	}
}

func TestValidateRejectsOutOfRangeRevealBatchMax(t *testing.T) {
	cfg := validConfig()
	cfg.RevealBatchMax = 0
	assert.Error(t, cfg.Validate())

	cfg.RevealBatchMax = 51
	assert.Error(t, cfg.Validate())

	cfg.RevealBatchMax = 50
	assert.NoError(t, cfg.Validate())
}

func TestDefaultProducesUsableHardDefaults(t *testing.T) {
	d := Default()
	assert.Equal(t, "base-sepolia", d.ChainNetwork)
	assert.Equal(t, 50, d.RevealBatchMax)
	assert.Equal(t, 1000, d.AuthorCacheSize)
}
