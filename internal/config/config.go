// Package config loads the recognized environment options (spec §6) via
// struct tags, failing fast at startup when a required value is missing —
// the one place a config-missing error is fatal (spec §7).
package config

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/kelseyhightower/envconfig"
)

// ErrMissing wraps a config-missing failure at startup.
var ErrMissing = errors.New("config: required value missing")

// Config holds every recognized environment option.
type Config struct {
	ChainRPC              string `envconfig:"CHAIN_RPC" required:"true"`
	EscrowContractAddress string `envconfig:"ESCROW_CONTRACT_ADDRESS" required:"true"`
	OperatorPrivateKey    string `envconfig:"OPERATOR_PRIVATE_KEY"`
	Port                  int    `envconfig:"PORT" default:"3000"`
	QueueURL              string `envconfig:"QUEUE_URL"`
	CORSOrigins           string `envconfig:"CORS_ORIGINS" default:"*"`
	JitterMaxDelaySeconds int    `envconfig:"JITTER_MAX_DELAY_SECONDS" default:"10"`
	ProcessorTickSeconds  int    `envconfig:"PROCESSOR_TICK_SECONDS" default:"10"`
}

// GasPrefundWei is the compiled-in gas pre-fund constant (spec §6): 0.01
// native units, in wei.
var GasPrefundWei = func() *big.Int {
	wei, _ := new(big.Int).SetString("10000000000000000", 10) // 0.01 * 1e18
	return wei
}()

// Load reads the process environment into a Config, returning ErrMissing
// wrapped with the underlying envconfig error when a required field is
// absent.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissing, err)
	}
	return &cfg, nil
}
