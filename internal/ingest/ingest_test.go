package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tpccharness/internal/termlog"
)

const header = "time_started,type,running_time,tx_running_time,think_time_ms,is_rbk\n"

func writeTerminal(t *testing.T, dir string, term, rows int) string {
	t.Helper()
	var sb strings.Builder
	sb.WriteString(header)
	for i := range rows {
		// encode the terminal in the running time to tell files apart
		fmt.Fprintf(&sb, "%d,NewOrder,%d,10,10,false\n", 1000+i*100, term)
	}
	path := filepath.Join(dir, fmt.Sprintf("term_%d.csv", term))
	require.NoError(t, os.WriteFile(path, []byte(sb.String()), 0o644))
	return path
}

func collect(ch <-chan termlog.Record) []termlog.Record {
	var out []termlog.Record
	for rec := range ch {
		out = append(out, rec)
	}
	return out
}

func TestStreamDeliversAllRecordsInFileOrder(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for term := range 8 {
		paths = append(paths, writeTerminal(t, dir, term, 50))
	}

	records, wait := Stream(context.Background(), paths, Options{Workers: 3, Buffer: 1})
	got := collect(records)
	require.NoError(t, wait())
	require.Len(t, got, 8*50)

	last := map[uint32]uint64{}
	counts := map[uint32]int{}
	for _, rec := range got {
		term := rec.RunningTime
		if prev, ok := last[term]; ok {
			assert.Greater(t, rec.TimeStarted, prev, "terminal %d out of order", term)
		}
		last[term] = rec.TimeStarted
		counts[term]++
	}
	assert.Len(t, counts, 8)
	for term, n := range counts {
		assert.Equal(t, 50, n, "terminal %d", term)
	}
}

func TestStreamNoPaths(t *testing.T) {
	records, wait := Stream(context.Background(), nil, Options{})
	assert.Empty(t, collect(records))
	assert.NoError(t, wait())
}

func TestStreamMalformedRowIsFatal(t *testing.T) {
	dir := t.TempDir()
	good := writeTerminal(t, dir, 1, 1000)
	bad := filepath.Join(dir, "bad.csv")
	require.NoError(t, os.WriteFile(bad, []byte(header+"1000,NewOrder,1,1,1,false\n1100,NewOrder,1,oops,1,false\n"), 0o644))

	records, wait := Stream(context.Background(), []string{good, bad}, Options{Workers: 2, Buffer: 1})
	collect(records)
	err := wait()
	require.ErrorIs(t, err, termlog.ErrMalformedRow)
	assert.Contains(t, err.Error(), bad)
	assert.Contains(t, err.Error(), "line 3")
}

func TestStreamMissingFile(t *testing.T) {
	records, wait := Stream(context.Background(), []string{filepath.Join(t.TempDir(), "nope.csv")}, Options{})
	collect(records)
	assert.ErrorIs(t, wait(), os.ErrNotExist)
}
