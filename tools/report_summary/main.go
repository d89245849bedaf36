package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"tpccharness/api/reportapi"
	"tpccharness/internal/report"
	"tpccharness/pkg/stats"
)

type ReportSummary struct {
	Name        string
	TpmC        float64
	TxCount     float64
	NewOrderP90 float64
	Terminals   float64
	Readings    int
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s <report dir or data.js>...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 {
		log.Fatal("At least one report is required as a positional argument.")
	}

	var summaries []ReportSummary
	for _, name := range flag.Args() {
		summary, err := reportSummary(name)
		if err != nil {
			log.Fatalf("Failed to get report summary for %s: %v", name, err)
		}
		summaries = append(summaries, summary)
	}

	fmt.Println("\nSummary Table:")
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"report", "tpmC", "txCount", "NewOrder P90 ms", "terminals", "readings"})
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	for _, s := range summaries {
		table.Append([]string{
			s.Name,
			formatFloat(s.TpmC, 0),
			formatFloat(s.TxCount, 0),
			formatFloat(s.NewOrderP90, 0),
			formatFloat(s.Terminals, 0),
			strconv.Itoa(s.Readings),
		})
	}

	row := func(label string, agg func([]ReportSummary, func(ReportSummary) float64) float64) {
		table.Append([]string{
			label,
			formatFloat(agg(summaries, func(s ReportSummary) float64 { return s.TpmC }), 2),
			formatFloat(agg(summaries, func(s ReportSummary) float64 { return s.TxCount }), 2),
			formatFloat(agg(summaries, func(s ReportSummary) float64 { return s.NewOrderP90 }), 2),
			formatFloat(agg(summaries, func(s ReportSummary) float64 { return s.Terminals }), 2),
			"",
		})
	}
	row("Averages", stats.SliceAverageFunc[ReportSummary])
	row("Medians", stats.SlicesMedianOf[ReportSummary])
	table.Render()
}

func formatFloat(v float64, prec int) string {
	return strconv.FormatFloat(v, 'f', prec, 64)
}

func reportSummary(name string) (ReportSummary, error) {
	contents, err := os.ReadFile(dataFile(name))
	if err != nil {
		return ReportSummary{}, fmt.Errorf("read file: %w", err)
	}

	prior, err := report.ParsePrior(contents)
	if err != nil {
		return ReportSummary{}, err
	}
	data, err := prior.Decode()
	if err != nil {
		return ReportSummary{}, err
	}

	return summarize(name, &data), nil
}

func dataFile(name string) string {
	if fi, err := os.Stat(name); err == nil && fi.IsDir() {
		return report.DataFilePath(name)
	}
	return name
}

func summarize(name string, data *reportapi.ReportingData) ReportSummary {
	if filepath.Base(name) == report.DataFileName {
		name = filepath.Dir(name)
	}
	return ReportSummary{
		Name:        filepath.Base(name),
		TpmC:        float64(data.TotalTPMC),
		TxCount:     float64(data.TotalTxCount),
		NewOrderP90: float64(data.NewOrderP90()),
		Terminals:   float64(data.TerminalCount),
		Readings:    len(data.TxRtTpmSeries),
	}
}
