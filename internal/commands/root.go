package commands

import (
	"path/filepath"
	"runtime"

	"github.com/idelchi/gogen/pkg/cobraext"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/idelchi/cloak/internal/config"
	"github.com/idelchi/cloak/internal/kdf"
)

const stateDir = ".cloak"

// NewRootCommand creates the root command with common configuration.
// It sets up environment variable binding and flag handling.
func NewRootCommand(cfg *config.Config, version string) *cobra.Command {
	v := viper.New()

	root := cobraext.NewDefaultRootCommand(version)

	root.Use = "cloak [flags] command [flags]"
	root.Short = "Envelope encryption and folder access gating for stored files"
	root.Long = `Stores files so that their plaintext is never persisted unless requested.
Each file is encrypted under its own random key, which is wrapped with a password.
Folders can be protected with a password that grants short-lived access tokens.`

	// Bind into a viper instance owned by this command tree instead of the global one.
	root.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		return bind(v, cmd, cfg)
	}

	defaults := kdf.DefaultParams()

	root.PersistentFlags().String("db", filepath.Join(stateDir, "cloak.db"), "Path to the SQLite database")
	root.PersistentFlags().String("blob-dir", filepath.Join(stateDir, "blobs"), "Directory holding sealed file blobs")
	root.PersistentFlags().String("log-level", "warn", "Log level (trace, debug, info, warn, error)")
	root.PersistentFlags().String("token-pepper", "", "Hex-encoded secret keying token digests, see 'cloak keygen'")
	root.PersistentFlags().StringP("user", "u", "", "Identity recorded as the actor, and the token holder")
	root.PersistentFlags().Uint32("kdf-time", defaults.Time, "Argon2id passes")
	root.PersistentFlags().Uint32("kdf-memory", defaults.MemoryKiB, "Argon2id memory in KiB")
	root.PersistentFlags().Uint8("kdf-threads", defaults.Threads, "Argon2id parallelism")
	root.PersistentFlags().IntP("parallel", "j", runtime.NumCPU(), "Number of parallel workers, defaults to number of CPUs")
	root.PersistentFlags().BoolP("quiet", "q", false, "Suppress non-error output")
	root.PersistentFlags().BoolP("show", "s", false, "Show the configuration and exit")

	root.AddCommand(
		NewSealCommand(cfg),
		NewOpenCommand(cfg),
		NewFolderCommand(cfg),
		NewAuditCommand(cfg),
		NewServeCommand(cfg),
		NewKeygenCommand(),
	)

	return root
}
