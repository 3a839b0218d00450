package minerconfig

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDefaultMinerConfig(t *testing.T) {
	tests := []struct {
		name     string
		config   Config
		expected MevConfig
	}{
		{
			name:     "all defaults",
			config:   Config{},
			expected: DefaultMevConfig,
		},
		{
			name: "keep explicit values",
			config: Config{Mev: MevConfig{
				MaxMergedBundles:  ptr(uint64(3)),
				MinBundleGasPrice: big.NewInt(5),
				SimulationTimeout: ptr(time.Second),
			}},
			expected: MevConfig{
				Enabled:           DefaultMevConfig.Enabled,
				MaxMergedBundles:  ptr(uint64(3)),
				MinBundleGasPrice: big.NewInt(5),
				SimulationWorkers: DefaultMevConfig.SimulationWorkers,
				SimulationTimeout: ptr(time.Second),
			},
		},
		{
			name:     "invalid worker count",
			config:   Config{Mev: MevConfig{SimulationWorkers: ptr(-1)}},
			expected: DefaultMevConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.config
			ApplyDefaultMinerConfig(&cfg)

			require.NotNil(t, cfg.Mev.Enabled)
			assert.Equal(t, *tt.expected.Enabled, *cfg.Mev.Enabled)
			assert.Equal(t, *tt.expected.MaxMergedBundles, *cfg.Mev.MaxMergedBundles)
			assert.Equal(t, 0, tt.expected.MinBundleGasPrice.Cmp(cfg.Mev.MinBundleGasPrice))
			assert.Equal(t, *tt.expected.SimulationWorkers, *cfg.Mev.SimulationWorkers)
			assert.Equal(t, *tt.expected.SimulationTimeout, *cfg.Mev.SimulationTimeout)
			assert.Equal(t, DefaultConfig.GasCeil, cfg.GasCeil)
			require.NotNil(t, cfg.SystemTxsGas)
			assert.Equal(t, *DefaultConfig.SystemTxsGas, *cfg.SystemTxsGas)
		})
	}

	ApplyDefaultMinerConfig(nil)
}

func ptr[T any](v T) *T { return &v }
