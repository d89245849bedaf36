package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/goccy/go-yaml"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"kcl-lang.io/kcl-go"
	"kcl-lang.io/kcl-go/pkg/utils"
)

var rootCmd = &cobra.Command{
	Use:          "tpccharness",
	Short:        "TPC-C load test harness",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := viper.BindPFlags(cmd.Root().PersistentFlags()); err != nil {
			return err
		}
		level, err := log.ParseLevel(viper.GetString("log-level"))
		if err != nil {
			return err
		}
		log.SetLevel(level)
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
		return nil
	},
}

var (
	workdir    = "." // root of `main.k` file to load configurations from
	mainConfig = ""
)

func init() {
	viper.SetEnvPrefix("TPCC")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	rootCmd.PersistentFlags().StringVarP(&workdir, "workdir", "w", ".", "Root directory to load configuration files from")
	rootCmd.PersistentFlags().StringVarP(&mainConfig, "main", "m", "", "Path to the main configuration file (defaults to main.yaml, main.k, or main.kcl if present)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
}

func Execute() error {
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(generateCmd())
	rootCmd.AddCommand(sampleLogsCmd())
	rootCmd.AddCommand(serveCmd())
	return rootCmd.Execute()
}

// bindCommand binds the command flags to viper and uses the section selector
// of the configuration file, if any, for defaults. Keys in the file use
// underscores in place of the dashes of the flag names.
func bindCommand[T any](cmd *cobra.Command, selector string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	cfg, err := readConfigFile[T](selector)
	if err != nil {
		return err
	}

	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode %s config: %w", selector, err)
	}
	var values map[string]any
	if err := yaml.Unmarshal(raw, &values); err != nil {
		return fmt.Errorf("decode %s config: %w", selector, err)
	}
	for k, v := range values {
		key := strings.ReplaceAll(k, "_", "-")
		if cmd.Flags().Lookup(key) == nil {
			return fmt.Errorf("unknown %s config key %q", selector, k)
		}
		viper.SetDefault(key, v)
	}
	return nil
}

// readConfigFile reads the configuration selected by selector from the main
// configuration file. Without a configuration file the zero config is
// returned.
func readConfigFile[T any](selector string) (cfg T, err error) {
	if mainConfig == "" {
		rootDir := workdir
		if rootDir == "" {
			rootDir = "."
		}

		for _, file := range []string{"main.yaml", "main.yml", "main.k", "main.kcl"} {
			fullPath := filepath.Join(rootDir, file)
			if _, err := os.Stat(fullPath); err == nil {
				mainConfig = fullPath
				break
			}
		}
	}
	if mainConfig == "" {
		return cfg, nil
	}

	if strings.HasSuffix(mainConfig, ".k") || strings.HasSuffix(mainConfig, ".kcl") {
		return readKCLConfig[T](selector)
	}
	return readYamlConfig[T](selector)
}

func readYamlConfig[T any](selector string) (cfg T, err error) {
	var in io.ReadSeeker
	if mainConfig == "-" {
		body, err := io.ReadAll(os.Stdin)
		if err != nil {
			return cfg, fmt.Errorf("read config from stdin: %w", err)
		}
		in = strings.NewReader(string(body))
	} else {
		f, err := os.Open(mainConfig)
		if err != nil {
			return cfg, fmt.Errorf("open config file: %w", err)
		}
		defer f.Close()
		in = f
	}

	if selector != "" {
		var path *yaml.Path
		path, err = yaml.PathString(fmt.Sprintf("$.%s", selector))
		if err != nil {
			panic(err)
		}

		err = path.Read(in, &cfg)
		if errors.Is(err, yaml.ErrNotFoundNode) {
			return cfg, nil
		}
	} else {
		err = yaml.NewDecoder(in).Decode(&cfg)
	}

	if err != nil {
		return cfg, fmt.Errorf("decode yaml config file %s: %w", mainConfig, err)
	}
	return cfg, nil
}

type kclMod struct {
	Dependencies map[string]kclDependency `toml:"dependencies"`
}

type kclDependency struct {
	Path    string `toml:"path"`
	Version string `toml:"version"`
}

var noKCLMod = errors.New("no kcl.mod set")

func tryKclMod(workdir string) (mod kclMod, rootDir string, err error) {
	rootDir, err = utils.FindPkgRoot(workdir)
	if err != nil {
		return mod, rootDir, noKCLMod
	}

	modFile := filepath.Join(rootDir, "kcl.mod")
	_, err = toml.DecodeFile(modFile, &mod)
	if err != nil {
		return mod, rootDir, fmt.Errorf("decode kcl.mod file: %w", err)
	}

	return mod, rootDir, nil
}

func readKCLConfig[T any](selector string) (cfg T, err error) {
	if workdir == "" {
		workdir, err = os.Getwd()
		if err != nil {
			return cfg, fmt.Errorf("get current working directory: %w", err)
		}
	}

	opts := []kcl.Option{kcl.WithWorkDir(workdir), kcl.WithLogger(os.Stderr)}
	if selector != "" {
		opts = append(opts, kcl.WithSelectors(selector))
	}

	mod, rootDir, err := tryKclMod(workdir)
	if err != nil && !errors.Is(err, noKCLMod) {
		return cfg, err
	}
	for k, dep := range mod.Dependencies {
		if dep.Path == "" {
			continue
		}

		depPath := filepath.Clean(filepath.Join(rootDir, dep.Path))
		if _, err := os.Stat(depPath); err != nil {
			return cfg, fmt.Errorf("dependency %s not found: %w", k, err)
		}
		opts = append(opts, kcl.WithExternalPkgAndPath(k, depPath))
	}

	var res *kcl.KCLResultList
	if mainConfig == "-" {
		body, err := io.ReadAll(os.Stdin)
		if err != nil {
			return cfg, err
		}
		res, err = kcl.Run("<stdin>", append(opts, kcl.WithCode(string(body)))...)
		if err != nil {
			return cfg, err
		}
	} else {
		res, err = kcl.RunFiles([]string{mainConfig}, opts...)
		if err != nil {
			return cfg, fmt.Errorf("evaluate %s: %w", mainConfig, err)
		}
	}

	err = yaml.NewDecoder(strings.NewReader(res.GetRawYamlResult())).Decode(&cfg)
	return cfg, err
}
