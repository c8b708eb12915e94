package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFormats(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"pools.jsonl", `{"exchange":"A","pair":"ETH/USDC","liquidity":1000000,"volume24h":5,"price":2000,"fee":0.003,"address":"p1"}

{"exchange":"B","pair":"USDC/DAI","liquidity":5000,"price":1,"fee":0.001,"address":"p2"}
`},
		{"pools.json", `[
  {"exchange":"A","pair":"ETH/USDC","liquidity":1000000,"volume24h":5,"price":2000,"fee":0.003,"address":"p1"},
  {"exchange":"B","pair":"USDC/DAI","liquidity":5000,"price":1,"fee":0.001,"address":"p2"}
]`},
		{"wrapped.json", `{"pools":[
  {"exchange":"A","pair":"ETH/USDC","liquidity":1000000,"volume24h":5,"price":2000,"fee":0.003,"address":"p1"},
  {"exchange":"B","pair":"USDC/DAI","liquidity":5000,"price":1,"fee":0.001,"address":"p2"}
]}`},
		{"pools.yaml", `- exchange: A
  pair: ETH/USDC
  liquidity: 1000000
  volume24h: 5
  price: 2000
  fee: 0.003
  address: p1
- exchange: B
  pair: USDC/DAI
  liquidity: 5000
  price: 1
  fee: 0.001
  address: p2
`},
		{"wrapped.yml", `pools:
  - {exchange: A, pair: ETH/USDC, liquidity: 1000000, volume24h: 5, price: 2000, fee: 0.003, address: p1}
  - {exchange: B, pair: USDC/DAI, liquidity: 5000, price: 1, fee: 0.001, address: p2}
`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pools, err := Load(writeFile(t, tc.name, tc.content))
			require.NoError(t, err)
			require.Len(t, pools, 2)

			first := pools[0]
			assert.Equal(t, "A", first.Exchange)
			assert.Equal(t, "ETH/USDC", first.Pair)
			assert.Equal(t, "p1", first.Address)
			assert.Equal(t, 1_000_000.0, first.Liquidity)
			assert.Equal(t, 2000.0, first.Price)
			assert.Equal(t, 0.003, first.Fee)
			assert.Equal(t, 5.0, first.Volume24h)
			assert.Equal(t, 0.001, pools[1].Fee)
		})
	}
}

func TestLoadReportsLine(t *testing.T) {
	path := writeFile(t, "bad.jsonl", "{\"exchange\":\"A\"}\n{not json}\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestLoadRejectsUnknownExtension(t *testing.T) {
	_, err := Load(writeFile(t, "pools.csv", "a,b"))
	assert.Error(t, err)
}

func TestSourceFetch(t *testing.T) {
	src := NewSource(writeFile(t, "pools.json", "[]"))
	assert.Equal(t, "file:pools.json", src.Name())

	pools, err := src.FetchPools(context.Background())
	require.NoError(t, err)
	assert.Empty(t, pools)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = src.FetchPools(ctx)
	assert.Error(t, err)
}
