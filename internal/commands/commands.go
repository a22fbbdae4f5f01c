package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/idelchi/cloak/internal/config"
	"github.com/idelchi/cloak/internal/logic"
)

// envPrefix is prepended to every environment variable, e.g. CLOAK_BLOB_DIR.
const envPrefix = "CLOAK"

// nestedKeys maps flags onto nested configuration keys.
var nestedKeys = map[string]string{ //nolint:gochecknoglobals
	"kdf-time":    "kdf.time",
	"kdf-memory":  "kdf.memory",
	"kdf-threads": "kdf.threads",
}

// bind loads flags, environment and defaults of the executing command into cfg.
func bind(v *viper.Viper, cmd *cobra.Command, cfg *config.Config) error {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}

	var bindErr error

	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if key, ok := nestedKeys[f.Name]; ok && bindErr == nil {
			bindErr = v.BindPFlag(key, f)
		}
	})

	if bindErr != nil {
		return fmt.Errorf("binding flags: %w", bindErr)
	}

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}

	return nil
}

// preRun returns a PreRunE handler that stores positional args in cfg.Files
// and validates the configuration.
func preRun(cfg *config.Config) func(*cobra.Command, []string) error {
	return func(_ *cobra.Command, args []string) error {
		cfg.Files = args

		return cfg.Validate()
	}
}

type runner func(context.Context, *config.Config, logic.Streams) error

// run returns a RunE handler that executes fn, or prints the configuration when --show is set.
func run(cfg *config.Config, fn runner) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		if cfg.Show {
			return logic.ShowConfig(cfg, cmd.OutOrStdout())
		}

		return fn(cmd.Context(), cfg, logic.Streams{Out: cmd.OutOrStdout(), Err: cmd.ErrOrStderr()})
	}
}
