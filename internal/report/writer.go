package report

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"

	"tpccharness/api/reportapi"
)

//go:embed assets
var assets embed.FS

const MetricsFileName = "metrics.prom"

// Mode selects whether a report is created from scratch or merged into an
// existing one.
type Mode int

const (
	ModeNew Mode = iota
	ModeAppend
)

func (m Mode) String() string {
	switch m {
	case ModeNew:
		return "new"
	case ModeAppend:
		return "append"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "", "new":
		return ModeNew, nil
	case "append", "add":
		return ModeAppend, nil
	default:
		return 0, fmt.Errorf("unknown report mode %q, expected new or append", s)
	}
}

// Writer materializes a report directory.
type Writer struct {
	Dir  string
	Mode Mode

	// Prior report, required in append mode.
	Prior *Prior
}

// Write persists data and returns the document that was written.
func (w *Writer) Write(data reportapi.ReportingData) (reportapi.ReportingData, error) {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return data, fmt.Errorf("create report directory %s: %w", w.Dir, err)
	}

	var doc []byte
	var err error
	switch w.Mode {
	case ModeNew:
		doc, err = json.Marshal(data)
	case ModeAppend:
		if w.Prior == nil {
			return data, fmt.Errorf("%w: append mode without prior report", ErrNoPriorReport)
		}
		if doc, err = w.Prior.Merge(data); err == nil {
			var merged reportapi.ReportingData
			err = json.Unmarshal(doc, &merged)
			data = merged
		}
	default:
		err = fmt.Errorf("unknown report mode %v", w.Mode)
	}
	if err != nil {
		return data, fmt.Errorf("encode report data: %w", err)
	}

	dataPath := DataFilePath(w.Dir)
	contents := make([]byte, 0, len(DataPrefix)+len(doc))
	contents = append(contents, DataPrefix...)
	contents = append(contents, doc...)
	if err := writeFileAtomic(dataPath, contents); err != nil {
		return data, fmt.Errorf("write data file %s: %w", dataPath, err)
	}

	if w.Mode == ModeNew {
		if err := CopyAssets(w.Dir); err != nil {
			return data, err
		}
	}

	metricsPath := filepath.Join(w.Dir, MetricsFileName)
	if err := WriteMetricsFile(metricsPath, NewRegistry(&data)); err != nil {
		return data, fmt.Errorf("write metrics file %s: %w", metricsPath, err)
	}

	log.WithFields(log.Fields{
		"dir":  w.Dir,
		"mode": w.Mode,
	}).Info("Report written")
	return data, nil
}

// writeFileAtomic replaces path with contents through a temporary file in the
// same directory, so an interrupted write leaves the previous file intact.
func writeFileAtomic(path string, contents []byte) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(contents); err != nil {
		return err
	}
	if err = tmp.Chmod(0o644); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// CopyAssets places the static report viewer into dir.
func CopyAssets(dir string) error {
	return fs.WalkDir(assets, "assets", func(name string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}

		contents, err := assets.ReadFile(name)
		if err != nil {
			return err
		}
		target := filepath.Join(dir, path.Base(name))
		if err := os.WriteFile(target, contents, 0o644); err != nil {
			return fmt.Errorf("copy asset %s: %w", target, err)
		}
		return nil
	})
}
