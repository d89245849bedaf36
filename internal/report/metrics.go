package report

import (
	"bufio"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"tpccharness/api/reportapi"
)

// Metrics exposes a report summary as Prometheus gauges.
type Metrics struct {
	TotalTPMC     prometheus.Gauge
	TotalTxCount  prometheus.Gauge
	TerminalCount prometheus.Gauge
	TPMC          *prometheus.GaugeVec
	TxCount       *prometheus.GaugeVec
	RbkCount      *prometheus.GaugeVec
	TxRtP90       *prometheus.GaugeVec
	TxRtMean      *prometheus.GaugeVec
	TxRtMax       *prometheus.GaugeVec
	ThinkTimeMean *prometheus.GaugeVec
}

func (m *Metrics) Register(r prometheus.Registerer) {
	name := func(n string) string { return "tpcc_report_" + n }
	txLabels := []string{"tx_type"}

	m.TotalTPMC = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: name("tpmc"),
		Help: "Transactions per minute over all transaction types in the steady window",
	})
	r.MustRegister(m.TotalTPMC)

	m.TotalTxCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: name("tx_count"),
		Help: "Transactions completed within the steady window",
	})
	r.MustRegister(m.TotalTxCount)

	m.TerminalCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: name("terminals"),
		Help: "Terminals with a valid log",
	})
	r.MustRegister(m.TerminalCount)

	newVec := func(n, help string) *prometheus.GaugeVec {
		v := prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: name(n), Help: help}, txLabels)
		r.MustRegister(v)
		return v
	}
	m.TPMC = newVec("tx_tpm", "Transactions per minute in the steady window")
	m.TxCount = newVec("tx_steady_count", "Transactions completed within the steady window")
	m.RbkCount = newVec("tx_rollback_count", "Rolled back transactions within the steady window")
	m.TxRtP90 = newVec("tx_rt_p90_ms", "90th percentile transaction response time")
	m.TxRtMean = newVec("tx_rt_mean_ms", "Mean transaction response time")
	m.TxRtMax = newVec("tx_rt_max_ms", "Maximum transaction response time")
	m.ThinkTimeMean = newVec("think_time_mean_ms", "Mean think time")
}

func (m *Metrics) Observe(data *reportapi.ReportingData) {
	m.TotalTPMC.Set(float64(data.TotalTPMC))
	m.TotalTxCount.Set(float64(data.TotalTxCount))
	m.TerminalCount.Set(float64(data.TerminalCount))
	for _, tx := range data.TxData {
		label := tx.TxType.String()
		m.TPMC.WithLabelValues(label).Set(float64(tx.TxRtData.TPMC))
		m.TxCount.WithLabelValues(label).Set(float64(tx.TxRtData.TxRtTxCount))
		m.RbkCount.WithLabelValues(label).Set(float64(tx.TxRtData.RbkCount))
		m.TxRtP90.WithLabelValues(label).Set(float64(tx.TxRtData.TxRtP90))
		m.TxRtMean.WithLabelValues(label).Set(float64(tx.TxRtData.TxRtMean))
		m.TxRtMax.WithLabelValues(label).Set(float64(tx.TxRtData.TxRtMax))
		m.ThinkTimeMean.WithLabelValues(label).Set(float64(tx.TxRtData.TtMean))
	}
}

// NewRegistry returns a registry holding the summary gauges of data.
func NewRegistry(data *reportapi.ReportingData) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	var m Metrics
	m.Register(reg)
	m.Observe(data)
	return reg
}

// WriteMetricsFile writes the metrics gathered from g in the Prometheus text
// exposition format.
func WriteMetricsFile(path string, g prometheus.Gatherer) (err error) {
	var families []*dto.MetricFamily
	if families, err = g.Gather(); err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()

	w := bufio.NewWriter(f)
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("write metrics %s: %w", path, err)
		}
	}
	return w.Flush()
}
