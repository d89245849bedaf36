package report

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tpccharness/api/reportapi"
	"tpccharness/internal/termlog"
	"tpccharness/internal/window"
)

func testParams() window.TermGroupParams {
	return window.TermGroupParams{
		TermCount:           2,
		EarliestStartTimeMS: 0,
		LatestStartTimeMS:   1000,
		SteadyBeginTimeMS:   2000,
		SteadyEndTimeMS:     62000,
	}
}

func feed(t *testing.T, agg *Aggregator, records ...termlog.Record) {
	t.Helper()
	ch := make(chan termlog.Record, len(records))
	for _, rec := range records {
		ch <- rec
	}
	close(ch)
	require.NoError(t, agg.Consume(ch))
}

func TestAggregatorClassification(t *testing.T) {
	agg := NewAggregator(testParams())
	require.Equal(t, StateRunning, agg.State())

	feed(t, agg,
		// fully inside the window
		termlog.Record{TimeStarted: 2000, Type: reportapi.NewOrder, TxRunningTime: 250, ThinkTimeMS: 1000},
		// starts before the window
		termlog.Record{TimeStarted: 1999, Type: reportapi.NewOrder, TxRunningTime: 1},
		// finishes at the window end
		termlog.Record{TimeStarted: 61000, Type: reportapi.Payment, TxRunningTime: 500, ThinkTimeMS: 500},
		// zero durations, inside the window
		termlog.Record{TimeStarted: 61000, Type: reportapi.Payment, IsRollback: true},
		// starts at the window end
		termlog.Record{TimeStarted: 62000, Type: reportapi.Delivery},
	)
	require.Equal(t, StateDraining, agg.State())

	data := agg.Finalize()
	require.Equal(t, StateDone, agg.State())

	newOrder, ok := data.Transaction(reportapi.NewOrder)
	require.True(t, ok)
	payment, _ := data.Transaction(reportapi.Payment)
	delivery, _ := data.Transaction(reportapi.Delivery)

	assert.Equal(t, uint64(1), newOrder.TxRtData.TxRtTxCount)
	assert.Equal(t, uint64(300), newOrder.TxRtData.TxRtP90)
	assert.Equal(t, uint64(300), newOrder.TxRtData.TxRtMean)
	assert.Equal(t, uint64(300), newOrder.TxRtData.TxRtMax)
	assert.Equal(t, uint64(1000), newOrder.TxRtData.TtMean)

	assert.Equal(t, uint64(1), payment.TxRtData.TxRtTxCount)
	assert.Equal(t, uint64(1), payment.TxRtData.RbkCount)
	assert.Equal(t, uint64(100), payment.TxRtData.TxRtP90, "zero duration lands on the first boundary")
	assert.Zero(t, delivery.TxRtData.TxRtTxCount)

	assert.Equal(t, uint64(2), data.TotalTxCount)
	assert.Equal(t, 2, data.TerminalCount)
	assert.Equal(t, uint64(2000), data.TotalTxData.SteadyBeginTime)
	assert.Equal(t, uint64(62000), data.TotalTxData.SteadyEndTime)
	assert.Equal(t, reportapi.SchemaVersion, data.SchemaVersion)
	assert.NotEmpty(t, data.RunID)
}

func TestAggregatorSeries(t *testing.T) {
	agg := NewAggregator(testParams())
	feed(t, agg,
		termlog.Record{TimeStarted: 2000, Type: reportapi.NewOrder, TxRunningTime: 250, ThinkTimeMS: 1000},
		termlog.Record{TimeStarted: 1999, Type: reportapi.NewOrder, TxRunningTime: 1},
		termlog.Record{TimeStarted: 61000, Type: reportapi.Payment, TxRunningTime: 500, ThinkTimeMS: 600},
		termlog.Record{TimeStarted: 61000, Type: reportapi.Payment},
		termlog.Record{TimeStarted: 62000, Type: reportapi.Delivery},
	)
	data := agg.Finalize()

	newOrder, _ := data.Transaction(reportapi.NewOrder)
	payment, _ := data.Transaction(reportapi.Payment)

	// axes are anchored to NewOrder: 4 x P90(300) / 20 and 4 x mean(1000) / 20
	require.Len(t, newOrder.TxRtData.TxRtSeries, TxRtIntervalCount)
	assert.Equal(t, reportapi.Point{60, 0}, newOrder.TxRtData.TxRtSeries[0])
	assert.Equal(t, reportapi.Point{300, 1}, newOrder.TxRtData.TxRtSeries[4])
	assert.Equal(t, reportapi.Point{1200, 0}, newOrder.TxRtData.TxRtSeries[19])
	assert.Equal(t, uint64(1), newOrder.TxRtData.TxRtHigh)
	require.Len(t, newOrder.TxRtData.TtSeries, TtIntervalCount)
	assert.Equal(t, reportapi.Point{1000, 1}, newOrder.TxRtData.TtSeries[4])
	assert.Equal(t, reportapi.Point{120, 1}, payment.TxRtData.TxRtSeries[1])

	assert.Equal(t, reportapi.Series{{30000, 2}, {60000, 2}, {90000, 0}}, newOrder.ThroughputData.TpmSeries)
	assert.Equal(t, reportapi.Series{{30000, 2}, {60000, 0}, {90000, 0}}, newOrder.ThroughputData.TxCountSeries)
	assert.Equal(t, reportapi.Series{{30000, 0}, {60000, 0}, {90000, 2}}, payment.ThroughputData.TxCountSeries)

	assert.Equal(t, reportapi.Series{{30000, 2}, {60000, 2}, {90000, 3}}, data.TotalTxData.TpmSeries)
	assert.Equal(t, reportapi.Series{{30000, 2}, {60000, 0}, {90000, 3}}, data.TotalTxData.TxCountSeries)

	// 2 transactions in a one minute window
	assert.Zero(t, data.TotalTPMC)
	assert.Equal(t, reportapi.Series{{0, 300}}, data.TxRtTpmSeries)
}

func TestAggregatorTotalsMatchSteadyCounts(t *testing.T) {
	params := testParams()
	agg := NewAggregator(params)

	var records []termlog.Record
	for i := range 500 {
		records = append(records, termlog.Record{
			TimeStarted:   uint64(i * 150),
			Type:          reportapi.AllTxTypes[i%reportapi.NumTxTypes],
			TxRunningTime: uint32(i % 700),
			ThinkTimeMS:   uint32(i % 1300),
		})
	}
	feed(t, agg, records...)
	data := agg.Finalize()

	var expected [reportapi.NumTxTypes]uint64
	for _, rec := range records {
		if params.InSteady(rec.TimeStarted) && params.InSteady(rec.CycleFinishTime()) {
			expected[rec.Type.Index()]++
		}
	}

	var sum uint64
	for _, tx := range data.TxData {
		assert.Equal(t, expected[tx.TxType.Index()], tx.TxRtData.TxRtTxCount, tx.TxType.String())
		sum += tx.TxRtData.TxRtTxCount
	}
	assert.Equal(t, sum, data.TotalTxCount)
	assert.Len(t, data.TxData, reportapi.NumTxTypes)
}

func TestAggregatorEmpty(t *testing.T) {
	agg := NewAggregator(window.TermGroupParams{})
	feed(t, agg)
	data := agg.Finalize()

	assert.Zero(t, data.TerminalCount)
	assert.Zero(t, data.TotalTxCount)
	assert.Zero(t, data.TotalTPMC)
	assert.Empty(t, data.TotalTxData.TpmSeries)
	for _, tx := range data.TxData {
		assert.Zero(t, tx.TxRtData.TxRtP90)
		assert.Zero(t, tx.TxRtData.TxRtMean)
		assert.Zero(t, tx.TxRtData.TxRtMax)
		assert.Zero(t, tx.TxRtData.TtMean)
	}
}

func TestAggregatorCompletionOutOfRange(t *testing.T) {
	agg := NewAggregator(testParams())

	ch := make(chan termlog.Record, 3)
	ch <- termlog.Record{TimeStarted: 2000, Type: reportapi.Payment, TxRunningTime: 250, ThinkTimeMS: 1000}
	ch <- termlog.Record{TimeStarted: 1 << 40, Type: reportapi.NewOrder}
	ch <- termlog.Record{TimeStarted: 3000, Type: reportapi.NewOrder}
	close(ch)

	err := agg.Consume(ch)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
	assert.Empty(t, ch)
	assert.Equal(t, StateDraining, agg.State())

	data := agg.Finalize()
	newOrder, _ := data.Transaction(reportapi.NewOrder)
	assert.Zero(t, newOrder.TxRtData.TxRtTxCount)
	assert.Equal(t, uint64(1), data.TotalTxCount)
}

func TestAggregatorMaxDurations(t *testing.T) {
	params := testParams()
	params.SteadyEndTimeMS = 2000 + 2*math.MaxUint32 + 1
	agg := NewAggregator(params)

	feed(t, agg, termlog.Record{
		TimeStarted:   2000,
		Type:          reportapi.StockLevel,
		TxRunningTime: math.MaxUint32,
		ThinkTimeMS:   math.MaxUint32,
	})
	data := agg.Finalize()

	stockLevel, _ := data.Transaction(reportapi.StockLevel)
	assert.Equal(t, uint64(1), stockLevel.TxRtData.TxRtTxCount)
	assert.Equal(t, uint64(math.MaxUint32/100+1)*100, stockLevel.TxRtData.TxRtMax)
	assert.Equal(t, stockLevel.TxRtData.TxRtMax, stockLevel.TxRtData.TxRtP90)
}

func TestAggregatorStateChecks(t *testing.T) {
	agg := NewAggregator(testParams())
	agg.Finalize()
	assert.Panics(t, func() { agg.Add(termlog.Record{}) })
	assert.Panics(t, func() { agg.Finalize() })
}

func TestTPMC(t *testing.T) {
	assert.Equal(t, uint64(60), TPMC(120, 120000))
	assert.Equal(t, uint64(2), TPMC(120, 60000))
	assert.Equal(t, uint64(2), TPMC(120, 1000))
	assert.Equal(t, uint64(40), TPMC(120, 180000))
	assert.Zero(t, TPMC(0, 0))
	assert.Zero(t, TPMC(59, 0))
}
