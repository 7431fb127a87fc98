package dexterm

import (
	"time"

	"github.com/jinzhu/configor"
)

type Config struct {
	Engine struct {
		// key for which Coins entry to use
		Coin string `default:"ltc" required:"true"`
		// bounded-retry attempt count for node RPC calls
		RPCAttempts int `default:"3"`
		// confirmation poll interval for pending orders
		PollInterval time.Duration `default:"5s"`
		// rotating engine log file
		LogFile string `default:"./dexterm.log"`
	}

	// per-coin node endpoints and platform constants
	Coins map[string]CoinConfig
}

// CoinConfig carries everything coin-specific the engine needs:
// daemon endpoints plus the protocol constants of the token layer.
// Injected, never hardcoded inside the engine.
type CoinConfig struct {
	Ticker  string `default:"LTC"`
	Name    string `default:"Litecoin"`
	RPCHost string `default:"localhost"`
	RPCPort int    `default:"9332"`
	RPCUser string `default:"dexterm"`
	RPCPass string `default:"dexterm"`
	ZMQHost string `default:"localhost"`
	ZMQPort string `default:"28332"`

	// address classification rules (anchored regular expressions)
	LegacyPrefix string `default:"^[LM3][a-km-zA-HJ-NP-Z1-9]{26,33}$"`
	SegwitPrefix string `default:"^ltc1[a-z0-9]{38,59}$"`

	// protocol constants
	MinChange        Amount  `default:"546"`     // dust threshold, satoshis
	MultisigChange   Amount  `default:"684"`     // dust carried per multisig data output
	ActivationHeight int64   `default:"2093636"` // token layer activation block
	ExodusAddress    Address // protocol reference address
	FeeAddress       Address // protocol fee address
	DefaultFeerate   Amount  `default:"10000"` // satoshis per kvB, estimator fallback
}

func LoadConfig(confPath string) Config {
	c := Config{}
	configor.Load(&c, confPath)
	return c
}

// ActiveCoin resolves the configured coin entry.
func (c Config) ActiveCoin() (CoinConfig, error) {
	coin, ok := c.Coins[c.Engine.Coin]
	if !ok {
		return CoinConfig{}, NewErr(LogicalInvariant, "no coin config for %q", c.Engine.Coin)
	}
	return coin, nil
}
