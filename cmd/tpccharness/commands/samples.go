package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"tpccharness/internal/gen"
	"tpccharness/pkg/timeutil"
)

type SampleLogsConfig struct {
	Dir        string  `yaml:"dir,omitempty"`
	Terminals  int     `yaml:"terminals,omitempty"`
	Iterations int     `yaml:"iterations,omitempty"`
	Stagger    string  `yaml:"stagger,omitempty"`
	TimeScale  float64 `yaml:"time_scale,omitempty"`
	Seed       uint64  `yaml:"seed,omitempty"`
}

func sampleLogsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sample-logs",
		Short: "Write synthetic terminal logs",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindCommand[SampleLogsConfig](cmd, "sample_logs")
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			stagger, err := timeutil.ParseDuration(viper.GetString("stagger"))
			if err != nil {
				return fmt.Errorf("--stagger: %w", err)
			}

			files, err := gen.WriteSampleLogs(gen.SampleOptions{
				Dir:        viper.GetString("dir"),
				Terminals:  viper.GetInt("terminals"),
				Iterations: viper.GetInt("iterations"),
				Start:      time.Now(),
				Stagger:    stagger,
				TimeScale:  viper.GetFloat64("time-scale"),
				Seed:       viper.GetUint64("seed"),
			})
			if err != nil {
				return err
			}

			fmt.Printf("Wrote %d logs to %s\n", len(files), viper.GetString("dir"))
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringP("dir", "d", "logs", "Output directory")
	flags.IntP("terminals", "t", 10, "Number of terminals")
	flags.IntP("iterations", "n", 500, "Transactions per terminal")
	flags.String("stagger", "1s", "Delay between terminal starts")
	flags.Float64("time-scale", 1, "Scale factor for keying and think times")
	flags.Uint64("seed", 1, "Random seed")

	return cmd
}
