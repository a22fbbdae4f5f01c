package commands

import (
	"github.com/spf13/cobra"

	"github.com/idelchi/cloak/internal/config"
	"github.com/idelchi/cloak/internal/logic"
)

// NewFolderCommand creates the folder command group.
func NewFolderCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "folder",
		Short: "Protect folders and issue access tokens",
	}

	cmd.AddCommand(newFolderProtectCommand(cfg), newFolderUnlockCommand(cfg))

	return cmd
}

func folderPreRun(cfg *config.Config) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg.Folder = args[0]

		return preRun(cfg)(cmd, nil)
	}
}

func newFolderProtectCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "protect [flags] folder",
		Short:   "Set the password of a folder",
		Args:    cobra.ExactArgs(1),
		PreRunE: folderPreRun(cfg),
		RunE:    run(cfg, logic.RunFolderProtect),
	}

	cmd.Flags().StringP("password", "p", "", "New folder password")

	return cmd
}

func newFolderUnlockCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unlock [flags] folder",
		Short: "Issue an access token for a protected folder",
		Long: `Verifies the folder password and prints a token granting --user read access
to the folder for two hours.`,
		Args:    cobra.ExactArgs(1),
		PreRunE: folderPreRun(cfg),
		RunE:    run(cfg, logic.RunFolderUnlock),
	}

	cmd.Flags().StringP("password", "p", "", "Folder password")

	return cmd
}
