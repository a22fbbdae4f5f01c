package commands

import (
	"github.com/spf13/cobra"

	"github.com/idelchi/cloak/internal/config"
	"github.com/idelchi/cloak/internal/logic"
)

// NewOpenCommand creates a new cobra command for the open subcommand.
func NewOpenCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "open [flags]",
		Short:   "Decrypt a stored file",
		Args:    cobra.NoArgs,
		PreRunE: preRun(cfg),
		RunE:    run(cfg, logic.RunOpen),
	}

	cmd.Flags().String("id", "", "Id of the stored file")
	cmd.Flags().StringP("password", "p", "", "Password of the file")
	cmd.Flags().StringP("token", "t", "", "Folder access token, for files in protected folders")
	cmd.Flags().StringP("out", "o", "", "Write the plaintext to this path instead of stdout")

	_ = cmd.MarkFlagRequired("id")

	return cmd
}
