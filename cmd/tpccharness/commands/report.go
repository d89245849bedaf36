package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/mattn/go-zglob"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"tpccharness/internal/report"
	"tpccharness/pkg/timeutil"
)

type ReportConfig struct {
	LogFilesGlob      string `yaml:"log_files_glob,omitempty"`
	SteadyBeginOffset string `yaml:"steady_begin_offset,omitempty"`
	SteadyLength      string `yaml:"steady_length,omitempty"`
	Mode              string `yaml:"mode,omitempty"`
	ReportPath        string `yaml:"report_path,omitempty"`
	Workers           int    `yaml:"workers,omitempty"`
}

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Build an HTML report from terminal logs",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindCommand[ReportConfig](cmd, "report")
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := reportConfigFromViper()
			if err != nil {
				return err
			}

			paths, err := expandLogGlob(cfg.LogFilesGlob)
			if err != nil {
				return err
			}

			mode, err := report.ParseMode(cfg.Mode)
			if err != nil {
				return err
			}
			dir := cfg.ReportPath
			if dir == "" {
				if mode == report.ModeAppend {
					return errors.New("--report-path is required in append mode")
				}
				dir = "report_" + timeutil.Stamp(time.Now())
			}

			offset, err := timeutil.ParseDuration(cfg.SteadyBeginOffset)
			if err != nil {
				return fmt.Errorf("--steady-begin-offset: %w", err)
			}
			length, err := timeutil.ParseDuration(cfg.SteadyLength)
			if err != nil {
				return fmt.Errorf("--steady-length: %w", err)
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			data, err := report.Generate(ctx, paths, dir, mode, report.Config{
				SteadyBeginOffset: offset,
				SteadyLength:      length,
				Workers:           cfg.Workers,
			})
			if err != nil {
				return err
			}

			fmt.Printf("Report written to %s (tpmC %d, %d terminals)\n", dir, data.TotalTPMC, data.TerminalCount)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringP("log-files-glob", "g", "", "Glob matching the terminal log files, `**` matches directories recursively")
	flags.String("steady-begin-offset", "5m", "Time after the last terminal start before measurement begins")
	flags.String("steady-length", "10m", "Length of the measurement window")
	flags.String("mode", "new", "Report mode: new or append")
	flags.StringP("report-path", "o", "", "Report directory (defaults to report_<timestamp>, required in append mode)")
	flags.Int("workers", 0, "Concurrent log readers (defaults to the number of CPUs)")

	return cmd
}

func reportConfigFromViper() (ReportConfig, error) {
	cfg := ReportConfig{
		LogFilesGlob:      viper.GetString("log-files-glob"),
		SteadyBeginOffset: viper.GetString("steady-begin-offset"),
		SteadyLength:      viper.GetString("steady-length"),
		Mode:              viper.GetString("mode"),
		ReportPath:        viper.GetString("report-path"),
		Workers:           viper.GetInt("workers"),
	}
	if cfg.LogFilesGlob == "" {
		return cfg, errors.New("--log-files-glob is required")
	}
	if cfg.Workers < 0 {
		return cfg, fmt.Errorf("--workers must not be negative, got %d", cfg.Workers)
	}
	return cfg, nil
}

// expandLogGlob returns the regular files matched by pattern in a stable
// order.
func expandLogGlob(pattern string) ([]string, error) {
	matches, err := zglob.Glob(pattern)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("expand glob %q: %w", pattern, err)
	}

	paths := make([]string, 0, len(matches))
	for _, m := range matches {
		fi, err := os.Stat(m)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", m, err)
		}
		if fi.IsDir() {
			continue
		}
		paths = append(paths, filepath.Clean(m))
	}
	sort.Strings(paths)

	log.WithFields(log.Fields{"pattern": pattern, "files": len(paths)}).Info("Log files found")
	return paths, nil
}
