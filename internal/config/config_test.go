package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "config.yaml")
	content := `max-hops: 4
max-visits: 500
pools:
  - ./a.jsonl
  - ./b.yaml
pair:
  - uniswap-v2:0x0000000000000000000000000000000000000001
rpc: http://localhost:8545
interval: 30s
`
	require.NoError(t, os.WriteFile(cfgFile, []byte(content), 0o644))

	t.Setenv("ROUTER_MAX_VISITS", "42")
	t.Setenv("ROUTER_REDIS_ADDR", "localhost:6379")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("max-hops", 3, "")
	flags.Duration("search-timeout", 0, "")
	require.NoError(t, flags.Parse([]string{"--search-timeout=250ms"}))

	cfg, err := Load(cfgFile, flags)
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Router.MaxHops, "config file overrides flag default")
	assert.Equal(t, 42, cfg.Router.MaxVisits, "env overrides config file")
	assert.Equal(t, 250*time.Millisecond, cfg.Router.SearchTimeout)
	assert.Equal(t, uint64(150000), cfg.Router.GasPerHop)
	assert.Equal(t, 95.0, cfg.Router.BaseConfidence)
	assert.Equal(t, []string{"./a.jsonl", "./b.yaml"}, cfg.Sources.PoolFiles)
	require.Len(t, cfg.Sources.Pairs, 1)
	assert.Equal(t, defaultPairFee, cfg.Sources.Pairs[0].Fee)
	assert.Equal(t, "localhost:6379", cfg.Sources.RedisAddr)
	assert.Equal(t, 30*time.Second, cfg.Supplier.Interval)
	assert.Equal(t, 3, cfg.Supplier.MaxRetries)
}

func TestLoadRejectsPairsWithoutRPC(t *testing.T) {
	t.Setenv("ROUTER_PAIR", "uniswap-v2:0x0000000000000000000000000000000000000001")
	t.Setenv("ROUTER_RPC", "")
	_, err := Load("", nil)
	assert.Error(t, err)
}

func TestLoadServeDefaults(t *testing.T) {
	cfg, err := LoadServe("", nil)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Listen)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 3, cfg.Router.MaxHops)
}

func TestParsePairs(t *testing.T) {
	specs, err := ParsePairs([]string{"pancake:0xabc:0.0025", "sushi:0xdef"})
	require.NoError(t, err)
	require.Len(t, specs, 2)
	assert.Equal(t, "pancake", specs[0].Exchange)
	assert.Equal(t, "0xabc", specs[0].Address)
	assert.Equal(t, 0.0025, specs[0].Fee)
	assert.Equal(t, defaultPairFee, specs[1].Fee)

	for _, bad := range []string{"nocolon", ":0xabc", "x:0xabc:fee", "x:0xabc:1.5", "a:b:c:d"} {
		_, err := ParsePairs([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestLoadDotEnv(t *testing.T) {
	const key = "ROUTER_DOTENV_TEST_VALUE"
	t.Cleanup(func() { os.Unsetenv(key) })

	require.NoError(t, loadDotEnv(filepath.Join(t.TempDir(), "missing.env")))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(key+"=from-file\n"), 0o644))
	require.NoError(t, loadDotEnv(path))
	assert.Equal(t, "from-file", os.Getenv(key))
}

func TestSplitAndClean(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitAndClean(" a, ,b ,"))
}
