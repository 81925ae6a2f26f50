package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sahm-rule-lab/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(`
lines:
  - id: u3
    base: UNRATE
    relative: UNRATE
  - id: u6
    base: U6RATE
    relative: U6RATE
`))
	require.NoError(t, err)
	return cfg
}

func TestSelectLines(t *testing.T) {
	cfg := testConfig(t)

	all, err := selectLines(cfg, nil, true)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	some, err := selectLines(cfg, []string{"u6"}, false)
	require.NoError(t, err)
	require.Len(t, some, 1)
	assert.Equal(t, "U6RATE", some[0].Base)

	_, err = selectLines(cfg, nil, false)
	assert.Error(t, err)

	_, err = selectLines(cfg, []string{"nope"}, false)
	assert.ErrorIs(t, err, config.ErrUnknownLine)
}

func TestApplyBatchFlags(t *testing.T) {
	cfg := testConfig(t)

	batchMetricsAddr, batchRegions, batchOutputDir, batchMaxRegions = ":9100", "r.csv", "o", 7
	t.Cleanup(func() {
		batchMetricsAddr, batchRegions, batchOutputDir, batchMaxRegions = "", "", "", -1
	})

	applyBatchFlags(cfg)
	assert.Equal(t, ":9100", cfg.Metrics.Addr)
	assert.Equal(t, "r.csv", cfg.Data.RegionsFile)
	assert.Equal(t, "o", cfg.Data.OutputDir)
	assert.Equal(t, 7, cfg.Data.MaxRegions)
}

func TestApplyBatchFlags_Defaults(t *testing.T) {
	cfg := testConfig(t)
	applyBatchFlags(cfg)

	assert.Equal(t, "data/regions.csv", cfg.Data.RegionsFile)
	assert.Equal(t, "out", cfg.Data.OutputDir)
	assert.Equal(t, 0, cfg.Data.MaxRegions)
}
