package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"tpccharness/api/reportapi"
)

const (
	DataFileName = "data.js"
	DataPrefix   = "var data="

	seriesField = "tx_rt_tpm_series"
)

var (
	ErrNoPriorReport     = errors.New("no prior report")
	ErrUnsupportedSchema = errors.New("unsupported report schema")
)

// Prior is a previously written report document. Only the fields needed for
// merging are decoded, everything else is kept verbatim.
type Prior struct {
	Path   string
	Series reportapi.Series

	fields map[string]json.RawMessage
}

// DataFilePath returns the location of the data file inside a report
// directory.
func DataFilePath(dir string) string {
	return filepath.Join(dir, DataFileName)
}

// LoadPrior reads and validates the data file of the report in dir.
func LoadPrior(dir string) (*Prior, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: report path is required in append mode", ErrNoPriorReport)
	}

	path := DataFilePath(dir)
	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s does not exist", ErrNoPriorReport, path)
		}
		return nil, fmt.Errorf("read prior report %s: %w", path, err)
	}

	prior, err := ParsePrior(contents)
	if err != nil {
		return nil, fmt.Errorf("parse prior report %s: %w", path, err)
	}
	prior.Path = path
	return prior, nil
}

func ParsePrior(contents []byte) (*Prior, error) {
	doc, ok := bytes.CutPrefix(bytes.TrimSpace(contents), []byte(DataPrefix))
	if !ok {
		return nil, fmt.Errorf("missing %q prefix", DataPrefix)
	}
	doc = bytes.TrimSuffix(bytes.TrimSpace(doc), []byte(";"))

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(doc, &fields); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}

	var version int
	if raw, ok := fields["schema_version"]; ok {
		if err := json.Unmarshal(raw, &version); err != nil {
			return nil, fmt.Errorf("decode schema_version: %w", err)
		}
	}
	if version != reportapi.SchemaVersion {
		return nil, fmt.Errorf("%w: version %d, expected %d", ErrUnsupportedSchema, version, reportapi.SchemaVersion)
	}

	prior := &Prior{fields: fields}
	if raw, ok := fields[seriesField]; ok {
		if err := json.Unmarshal(raw, &prior.Series); err != nil {
			return nil, fmt.Errorf("decode %s: %w", seriesField, err)
		}
	}
	return prior, nil
}

// Decode decodes the full prior document.
func (p *Prior) Decode() (data reportapi.ReportingData, err error) {
	doc, err := json.Marshal(p.fields)
	if err != nil {
		return data, err
	}
	err = json.Unmarshal(doc, &data)
	return data, err
}

// Merge combines the current run with the prior report and returns the
// document to persist.
//
// If the prior series already holds a reading above the current tpmC, the
// current run is a single additional point: it is appended to the prior
// series and the rest of the prior document stays untouched. Otherwise the
// current run replaces the document, with the prior readings kept in front
// of its own point.
func (p *Prior) Merge(current reportapi.ReportingData) ([]byte, error) {
	point := reportapi.Point{current.TotalTPMC, current.NewOrderP90()}
	series := append(slices.Clone(p.Series), point)

	higher := slices.ContainsFunc(p.Series, func(pt reportapi.Point) bool {
		return pt[0] > current.TotalTPMC
	})
	if higher {
		raw, err := json.Marshal(series)
		if err != nil {
			return nil, err
		}
		fields := maps.Clone(p.fields)
		fields[seriesField] = raw
		return json.Marshal(fields)
	}

	current.TxRtTpmSeries = series
	return json.Marshal(current)
}
