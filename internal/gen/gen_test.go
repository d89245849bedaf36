package gen

import (
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tpccharness/api/reportapi"
	"tpccharness/internal/termlog"
)

func TestParseIDList(t *testing.T) {
	cases := map[string][]uint32{
		"":        nil,
		"7":       {7},
		"1,3, 5":  {1, 3, 5},
		"2..5":    {2, 3, 4, 5},
		"4..4":    {4},
		" 10..11": {10, 11},
	}
	for in, want := range cases {
		got, err := ParseIDList(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{"a", "1,b", "1..", "..3", "x..3", "5..2"} {
		_, err := ParseIDList(in)
		assert.Error(t, err, in)
	}
}

func TestBreakdown(t *testing.T) {
	mix := Breakdown(100)
	assert.Equal(t, [reportapi.NumTxTypes]uint32{44, 44, 4, 4, 4}, mix)

	mix = Breakdown(MinTransactionCount)
	var sum uint32
	for _, n := range mix {
		assert.NotZero(t, n)
		sum += n
	}
	assert.Equal(t, uint32(MinTransactionCount), sum)
}

func TestTerminalConfig(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 1))
	cfg := TerminalConfig(r, 3, 7, 100)
	assert.Equal(t, uint32(3), cfg.HomeWarehouseID)
	assert.Equal(t, uint32(7), cfg.ThisTerminalID)
	require.Len(t, cfg.TransactionsToRun, 100)

	counts := map[string]int{}
	for _, tx := range cfg.TransactionsToRun {
		counts[tx.Type]++
		_, err := reportapi.ParseTxType(tx.Type)
		require.NoError(t, err)
		if tx.Type != "NewOrder" {
			assert.False(t, tx.IsRbk)
		}
	}
	assert.Equal(t, 44, counts["NewOrder"])
	assert.Equal(t, 44, counts["Payment"])
}

func TestWriteConfigs(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	files, err := WriteConfigs(ConfigOptions{
		Dir:          dir,
		Warehouses:   []uint32{2, 1, 2},
		Terminals:    2,
		Transactions: 30,
		Seed:         42,
		Now:          now,
	})
	require.NoError(t, err)
	require.Len(t, files, 4)
	assert.Equal(t, filepath.Join(dir, "20240506_070809_W1_T1.cfg"), files[0])

	contents, err := os.ReadFile(files[3])
	require.NoError(t, err)
	var cfg TermControlCfg
	require.NoError(t, yaml.Unmarshal(contents, &cfg))
	assert.Equal(t, uint32(2), cfg.HomeWarehouseID)
	assert.Equal(t, uint32(2), cfg.ThisTerminalID)
	assert.Len(t, cfg.TransactionsToRun, 30)

	_, err = WriteConfigs(ConfigOptions{Dir: dir, Warehouses: []uint32{1}, Terminals: 1, Transactions: 22})
	assert.Error(t, err)
	_, err = WriteConfigs(ConfigOptions{Dir: dir, Terminals: 1, Transactions: 30})
	assert.Error(t, err)
	_, err = WriteConfigs(ConfigOptions{Dir: dir, Warehouses: []uint32{1}, Transactions: 30})
	assert.Error(t, err)
}

func TestWriteSampleLogs(t *testing.T) {
	dir := t.TempDir()
	start := time.UnixMilli(1_700_000_000_000)
	files, err := WriteSampleLogs(SampleOptions{
		Dir:        dir,
		Terminals:  3,
		Iterations: 40,
		Start:      start,
		Stagger:    time.Second,
		TimeScale:  0.01,
		Seed:       7,
	})
	require.NoError(t, err)
	require.Len(t, files, 3)

	for i, path := range files {
		first, err := termlog.FirstRecord(path)
		require.NoError(t, err)
		assert.Equal(t, uint64(start.UnixMilli())+uint64(i)*1000, first.TimeStarted)

		var prev uint64
		n := 0
		require.NoError(t, termlog.ForEach(path, func(rec termlog.Record) error {
			assert.GreaterOrEqual(t, rec.TimeStarted, prev)
			assert.GreaterOrEqual(t, rec.RunningTime, rec.TxRunningTime)
			prev = rec.TimeStarted
			n++
			return nil
		}))
		assert.Equal(t, 40, n)
	}
}
