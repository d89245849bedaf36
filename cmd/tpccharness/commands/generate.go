package commands

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"tpccharness/internal/gen"
)

type GenerateConfig struct {
	Warehouses   string `yaml:"warehouses,omitempty"`
	Terminals    uint32 `yaml:"terminals,omitempty"`
	Transactions uint32 `yaml:"transactions,omitempty"`
	Dir          string `yaml:"dir,omitempty"`
	Seed         uint64 `yaml:"seed,omitempty"`
}

func generateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate terminal configuration files",
		Long: `Generate one configuration file per warehouse and terminal. Warehouses are
given as single ids, ranges or comma separated lists, e.g. "1..4,8".`,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindCommand[GenerateConfig](cmd, "generate")
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			warehouses, err := gen.ParseIDList(viper.GetString("warehouses"))
			if err != nil {
				return err
			}

			seed := viper.GetUint64("seed")
			if seed == 0 {
				seed = uint64(time.Now().UnixNano())
			}

			files, err := gen.WriteConfigs(gen.ConfigOptions{
				Dir:          viper.GetString("dir"),
				Warehouses:   warehouses,
				Terminals:    viper.GetUint32("terminals"),
				Transactions: viper.GetUint32("transactions"),
				Seed:         seed,
				Now:          time.Now(),
			})
			if err != nil {
				return err
			}

			log.WithField("seed", seed).Debug("Configurations generated")
			for _, f := range files {
				fmt.Println(f)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.String("warehouses", "1", "Warehouse ids")
	flags.Uint32P("terminals", "t", 10, "Terminals per warehouse")
	flags.Uint32("transactions", 100, fmt.Sprintf("Transactions per terminal (at least %d)", gen.MinTransactionCount))
	flags.StringP("dir", "d", ".", "Output directory")
	flags.Uint64("seed", 0, "Random seed (defaults to the current time)")

	return cmd
}
