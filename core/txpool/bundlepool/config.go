package bundlepool

import (
	"time"

	"github.com/ethereum/go-ethereum/log"
)

type Config struct {
	PriceLimit uint64 // Minimum bundle gas price to enforce for acceptance into the pool

	GlobalSlots     uint64        // Maximum number of bundle slots for all bundles
	MaxBundleBlocks uint64        // Number of blocks bundle arrival metrics are kept for
	MetricsInterval time.Duration // Time interval to prune bundle arrival metrics
}

// DefaultConfig contains the default configurations for the bundle pool.
var DefaultConfig = Config{
	PriceLimit: 1,

	GlobalSlots: 4096 + 1024, // urgent + floating queue capacity with 4:1 ratio

	MaxBundleBlocks: 50,
	MetricsInterval: 5 * time.Minute,
}

// sanitize checks the provided user configurations and changes anything that's
// unreasonable or unworkable.
func (config *Config) sanitize() Config {
	conf := *config
	if conf.PriceLimit < 1 {
		log.Warn("Sanitizing invalid bundlepool price limit", "provided", conf.PriceLimit, "updated", DefaultConfig.PriceLimit)
		conf.PriceLimit = DefaultConfig.PriceLimit
	}
	if conf.GlobalSlots < 1 {
		log.Warn("Sanitizing invalid bundlepool bundle slots", "provided", conf.GlobalSlots, "updated", DefaultConfig.GlobalSlots)
		conf.GlobalSlots = DefaultConfig.GlobalSlots
	}
	if conf.MaxBundleBlocks < 1 {
		log.Warn("Sanitizing invalid bundlepool max bundle blocks", "provided", conf.MaxBundleBlocks, "updated", DefaultConfig.MaxBundleBlocks)
		conf.MaxBundleBlocks = DefaultConfig.MaxBundleBlocks
	}
	if conf.MetricsInterval < time.Second {
		log.Warn("Sanitizing invalid bundlepool metrics interval", "provided", conf.MetricsInterval, "updated", DefaultConfig.MetricsInterval)
		conf.MetricsInterval = DefaultConfig.MetricsInterval
	}
	return conf
}
