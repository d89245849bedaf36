package reportapi

import (
	"time"
)

// SchemaVersion is the version of the persisted ReportingData document.
// Readers reject documents carrying any other version.
const SchemaVersion = 1

// Point is a [x, y] pair as consumed by the report viewer charts.
type Point [2]uint64

type Series []Point

// ReportingData is the document persisted into the report data file.
type ReportingData struct {
	SchemaVersion int       `json:"schema_version"`
	RunID         string    `json:"run_id"`
	GeneratedAt   time.Time `json:"generated_at"`

	TxData      []TransactionData `json:"tx_data"`
	TotalTxData ThroughputData    `json:"total_tx_data"`

	// [tpmC, NewOrder P90] readings, one per benchmark run at a given load.
	TxRtTpmSeries Series `json:"tx_rt_tpm_series"`

	TotalTPMC     uint64 `json:"total_tpmc"`
	TotalTxCount  uint64 `json:"total_tx_count"`
	TerminalCount int    `json:"terminal_count"`
}

// Transaction returns the breakdown for the given type.
func (d *ReportingData) Transaction(t TxType) (TransactionData, bool) {
	for _, tx := range d.TxData {
		if tx.TxType == t {
			return tx, true
		}
	}
	return TransactionData{}, false
}

// NewOrderP90 returns the NewOrder 90th percentile response time in ms.
func (d *ReportingData) NewOrderP90() uint64 {
	tx, _ := d.Transaction(NewOrder)
	return tx.TxRtData.TxRtP90
}

type TransactionData struct {
	TxType         TxType         `json:"tx_type"`
	TxRtData       TxRtData       `json:"tx_rt_data"`
	ThroughputData ThroughputData `json:"throughput_data"`
}

// TxRtData holds the steady window latency figures of one transaction type.
// All durations are milliseconds.
type TxRtData struct {
	TxRtP90     uint64 `json:"tx_rt_p90"`
	TxRtMean    uint64 `json:"tx_rt_mean"`
	TxRtMax     uint64 `json:"tx_rt_max"`
	TxRtHigh    uint64 `json:"tx_rt_high"`
	TxRtTxCount uint64 `json:"tx_rt_tx_count"`
	RbkCount    uint64 `json:"rbk_count"`
	TtMean      uint64 `json:"tt_mean"`
	TxRtSeries  Series `json:"tx_rt_series"`
	TtSeries    Series `json:"tt_series"`
	TPMC        uint64 `json:"tpmc"`
}

// ThroughputData describes throughput over the whole run. Times are relative
// to the earliest terminal start.
type ThroughputData struct {
	SteadyBeginTime uint64 `json:"steady_begin_time"`
	SteadyEndTime   uint64 `json:"steady_end_time"`
	TpmSeries       Series `json:"tpm_series"`
	TxCountSeries   Series `json:"tx_count_series"`
}
