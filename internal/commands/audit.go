package commands

import (
	"github.com/spf13/cobra"

	"github.com/idelchi/cloak/internal/config"
	"github.com/idelchi/cloak/internal/logic"
)

// NewAuditCommand creates a new cobra command for the audit subcommand.
func NewAuditCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "audit [flags]",
		Short:   "List the security audit trail",
		Args:    cobra.NoArgs,
		PreRunE: preRun(cfg),
		RunE:    run(cfg, logic.RunAudit),
	}

	cmd.Flags().IntP("limit", "n", 50, "Number of most recent entries to show, 0 for all")

	return cmd
}
