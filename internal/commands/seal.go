package commands

import (
	"github.com/spf13/cobra"

	"github.com/idelchi/cloak/internal/config"
	"github.com/idelchi/cloak/internal/logic"
)

// NewSealCommand creates a new cobra command for the seal subcommand.
func NewSealCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seal [flags] files...",
		Short: "Encrypt and store files",
		Long: `Encrypts each file under a fresh key, wraps the key with the password and stores both.
With --manifest, files and passwords are read from a JSONC document and matched by position:

  {
    "files": ["a.png", "b.png"],
    "passwords": ["first", "second"],
  }`,
		Args: cobra.ArbitraryArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := preRun(cfg)(cmd, args); err != nil {
				return err
			}

			return cfg.RequireSeal()
		},
		RunE: run(cfg, logic.RunSeal),
	}

	cmd.Flags().StringP("password", "p", "", "Password protecting every file")
	cmd.Flags().StringP("manifest", "m", "", "JSONC manifest of files and their passwords")
	cmd.Flags().Bool("plain", false, "Store the files unencrypted")
	cmd.Flags().StringP("folder", "f", "", "Folder to store the files in")
	cmd.Flags().Bool("stats", false, "Print statistics after sealing")

	return cmd
}
